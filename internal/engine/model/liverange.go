package model

import (
	"fmt"

	"github.com/dshills/livedoc/internal/event"
)

// LiveRangeChange is delivered when a live range changes.
type LiveRangeChange struct {
	// OldRange is the range before the operation.
	OldRange Range

	// DeletionPosition is set when the range content was moved to the
	// graveyard; it is where the content used to be.
	DeletionPosition *Position
}

// LiveRange is a range that follows its content as document operations are
// applied. It must be detached when no longer needed.
type LiveRange struct {
	r   Range
	sub event.Subscription

	rangeChanges   event.Emitter[LiveRangeChange]
	contentChanges event.Emitter[LiveRangeChange]
}

// NewLiveRange creates a live copy of r. The root of r must be a document root.
func NewLiveRange(r Range) (*LiveRange, error) {
	root := r.Root()
	if root == nil || root.kind != KindRootElement || root.doc == nil {
		return nil, fmt.Errorf("live range %s: %w", r, ErrInvalidRoot)
	}
	lr := &LiveRange{r: NewRange(r.Start, r.End)}
	lr.sub = root.doc.model.applied.On(lr.transform, event.WithPriority(event.PriorityLow))
	return lr, nil
}

// ToRange returns the current range.
func (lr *LiveRange) ToRange() Range {
	return Range{Start: lr.r.Start.clone(), End: lr.r.End.clone()}
}

// Start returns the current start.
func (lr *LiveRange) Start() Position { return lr.r.Start.clone() }

// End returns the current end.
func (lr *LiveRange) End() Position { return lr.r.End.clone() }

// Root returns the current root.
func (lr *LiveRange) Root() *Element { return lr.r.Root() }

// IsCollapsed reports whether the range is collapsed.
func (lr *LiveRange) IsCollapsed() bool { return lr.r.IsCollapsed() }

// OnChangeRange registers a handler called when the boundaries move.
func (lr *LiveRange) OnChangeRange(h event.Handler[LiveRangeChange], opts ...event.SubscriptionOption) event.Subscription {
	return lr.rangeChanges.On(h, opts...)
}

// OnChangeContent registers a handler called when the boundaries stay but
// the content between them changed.
func (lr *LiveRange) OnChangeContent(h event.Handler[LiveRangeChange], opts ...event.SubscriptionOption) event.Subscription {
	return lr.contentChanges.On(h, opts...)
}

// Detach stops tracking. It is safe to call more than once.
func (lr *LiveRange) Detach() {
	lr.sub.Cancel()
	lr.rangeChanges.Clear()
	lr.contentChanges.Clear()
}

func (lr *LiveRange) transform(op Operation) {
	if !op.IsDocumentOperation() {
		return
	}
	if _, ok := op.(*MarkerOperation); ok {
		return
	}

	ranges := lr.r.TransformedBy(op)
	if len(ranges) == 0 {
		return
	}
	result := RangeFromRanges(ranges)
	contentChanged := lr.r.changesContent(op)

	if !result.IsEqual(lr.r) {
		var deletion *Position
		if result.Root().rootName == GraveyardName {
			switch o := op.(type) {
			case *MoveOperation:
				if o.Type() == OpRemove {
					p := o.SourcePosition.clone()
					deletion = &p
				}
			case *MergeOperation:
				p := o.DeletionPosition()
				deletion = &p
			}
		}
		old := lr.r
		lr.r = result
		lr.rangeChanges.Emit(LiveRangeChange{OldRange: old, DeletionPosition: deletion})
		return
	}
	if contentChanged {
		lr.contentChanges.Emit(LiveRangeChange{OldRange: lr.ToRange()})
	}
}
