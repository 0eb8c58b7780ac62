package model

import (
	"fmt"

	"github.com/dshills/livedoc/internal/event"
)

// LivePosition is a position that follows the content it points at as
// document operations are applied. It must be detached when no longer needed.
type LivePosition struct {
	pos     Position
	sub     event.Subscription
	changes event.Emitter[Position]
}

// NewLivePosition creates a live copy of p. The root of p must be a document root.
func NewLivePosition(p Position, stickiness Stickiness) (*LivePosition, error) {
	if p.root == nil || p.root.kind != KindRootElement || p.root.doc == nil {
		return nil, fmt.Errorf("live position at %s: %w", p, ErrInvalidRoot)
	}
	lp := &LivePosition{pos: p.WithStickiness(stickiness)}
	lp.sub = p.root.doc.model.applied.On(lp.transform, event.WithPriority(event.PriorityLow))
	return lp, nil
}

// ToPosition returns the current position.
func (lp *LivePosition) ToPosition() Position { return lp.pos.clone() }

// Root returns the current root, which is the graveyard once the content
// the position was in has been removed.
func (lp *LivePosition) Root() *Element { return lp.pos.root }

// OnChange registers a handler called with the previous position whenever
// the position moves.
func (lp *LivePosition) OnChange(h event.Handler[Position], opts ...event.SubscriptionOption) event.Subscription {
	return lp.changes.On(h, opts...)
}

// Detach stops tracking. It is safe to call more than once.
func (lp *LivePosition) Detach() {
	lp.sub.Cancel()
	lp.changes.Clear()
}

func (lp *LivePosition) transform(op Operation) {
	if !op.IsDocumentOperation() {
		return
	}
	if _, ok := op.(*MarkerOperation); ok {
		return
	}
	next := lp.pos.TransformedBy(op)
	if next.IsEqual(lp.pos) {
		return
	}
	old := lp.pos
	lp.pos = next
	lp.changes.Emit(old)
}
