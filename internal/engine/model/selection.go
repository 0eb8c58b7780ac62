package model

import (
	"fmt"
	"slices"

	"github.com/dshills/livedoc/internal/event"
)

// Selectable is anything a selection can be set to: a Position, a Range,
// Ranges, a *Selection, a *DocumentSelection, or nil for no ranges.
type Selectable interface {
	isSelectable()
}

func (Position) isSelectable()           {}
func (Range) isSelectable()              {}
func (Ranges) isSelectable()             {}
func (*Selection) isSelectable()         {}
func (*DocumentSelection) isSelectable() {}

type selectConfig struct {
	backward bool
}

// SelectOption tunes how a selection is set.
type SelectOption func(*selectConfig)

// AsBackward makes the last range backward: its focus is at its start.
func AsBackward() SelectOption {
	return func(c *selectConfig) { c.backward = true }
}

// RangesOf resolves a selectable to ranges and a backward flag.
func RangesOf(s Selectable, opts ...SelectOption) ([]Range, bool) {
	var cfg selectConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	switch v := s.(type) {
	case nil:
		return nil, false
	case Position:
		return []Range{CollapsedRange(v)}, cfg.backward
	case Range:
		return []Range{v}, cfg.backward
	case Ranges:
		return slices.Clone([]Range(v)), cfg.backward
	case *Selection:
		return v.Ranges(), v.IsBackward() || cfg.backward
	case *DocumentSelection:
		return v.Ranges(), v.IsBackward() || cfg.backward
	default:
		panic(fmt.Sprintf("model: unknown selectable %T", s))
	}
}

// SelectionView is the read side shared by Selection and DocumentSelection.
type SelectionView interface {
	Selectable
	selectionView()

	Ranges() []Range
	RangeCount() int
	FirstRange() Range
	LastRange() Range
	FirstPosition() Position
	LastPosition() Position
	Anchor() Position
	Focus() Position
	IsCollapsed() bool
	IsBackward() bool

	Attribute(key string) (any, bool)
	HasAttribute(key string) bool
	Attributes() Attributes

	ContainsEntireContent(el *Element) bool
	SelectedElement() *Element
	SelectedBlocks(schema Schema) []*Element
}

// SelectionChangeKind tells which part of a selection changed.
type SelectionChangeKind int

const (
	ChangeRange SelectionChangeKind = iota
	ChangeAttribute
	ChangeMarker
)

// SelectionChange describes one selection change.
type SelectionChange struct {
	Kind SelectionChangeKind

	// DirectChange is false when the change followed document changes
	// instead of an explicit call.
	DirectChange bool

	AttributeKeys []string
	OldMarkers    []*Marker
}

type selectionEvents struct {
	rangeChanges     event.Emitter[SelectionChange]
	attributeChanges event.Emitter[SelectionChange]
	markerChanges    event.Emitter[SelectionChange]
	changes          event.Emitter[SelectionChange]
}

// OnChangeRange registers a handler for range changes.
func (e *selectionEvents) OnChangeRange(h event.Handler[SelectionChange], opts ...event.SubscriptionOption) event.Subscription {
	return e.rangeChanges.On(h, opts...)
}

// OnChangeAttribute registers a handler for attribute changes.
func (e *selectionEvents) OnChangeAttribute(h event.Handler[SelectionChange], opts ...event.SubscriptionOption) event.Subscription {
	return e.attributeChanges.On(h, opts...)
}

// OnChangeMarker registers a handler for marker membership changes.
func (e *selectionEvents) OnChangeMarker(h event.Handler[SelectionChange], opts ...event.SubscriptionOption) event.Subscription {
	return e.markerChanges.On(h, opts...)
}

// OnChange registers a handler for every kind of change.
func (e *selectionEvents) OnChange(h event.Handler[SelectionChange], opts ...event.SubscriptionOption) event.Subscription {
	return e.changes.On(h, opts...)
}

func (e *selectionEvents) fire(c SelectionChange) {
	switch c.Kind {
	case ChangeRange:
		e.rangeChanges.Emit(c)
	case ChangeAttribute:
		e.attributeChanges.Emit(c)
	case ChangeMarker:
		e.markerChanges.Emit(c)
	}
	e.changes.Emit(c)
}

func (e *selectionEvents) clear() {
	e.rangeChanges.Clear()
	e.attributeChanges.Clear()
	e.markerChanges.Clear()
	e.changes.Clear()
}

// Selection is a detached set of ranges with a direction and attributes.
// Ranges never intersect or touch: adding one that does merges them.
type Selection struct {
	selectionEvents
	ranges       []Range
	lastBackward bool
	attrs        Attributes
}

// NewSelection creates a selection set to s.
func NewSelection(s Selectable, opts ...SelectOption) *Selection {
	sel := &Selection{attrs: Attributes{}}
	ranges, backward := RangesOf(s, opts...)
	for _, r := range ranges {
		sel.ranges = pushRange(sel.ranges, r)
	}
	sel.lastBackward = backward
	return sel
}

func (s *Selection) selectionView() {}

// SetTo replaces the ranges.
func (s *Selection) SetTo(sel Selectable, opts ...SelectOption) {
	ranges, backward := RangesOf(sel, opts...)
	if !rangesChanged(s.ranges, ranges) && backward == s.lastBackward {
		return
	}
	s.ranges = nil
	for _, r := range ranges {
		s.ranges = pushRange(s.ranges, r)
	}
	s.lastBackward = backward
	s.fire(SelectionChange{Kind: ChangeRange, DirectChange: true})
}

// SetFocus moves the focus, keeping the anchor.
func (s *Selection) SetFocus(p Position) error {
	if len(s.ranges) == 0 {
		return ErrSelectionNoRanges
	}
	if p.IsEqual(s.Focus()) {
		return nil
	}
	anchor := s.Anchor()
	s.ranges = s.ranges[:len(s.ranges)-1]
	r, backward := focusRange(anchor, p)
	s.ranges = pushRange(s.ranges, r)
	s.lastBackward = backward
	s.fire(SelectionChange{Kind: ChangeRange, DirectChange: true})
	return nil
}

// SetAttribute sets a selection attribute.
func (s *Selection) SetAttribute(key string, value any) {
	if old, ok := s.attrs[key]; ok && ValuesEqual(old, value) {
		return
	}
	s.attrs[key] = value
	s.fire(SelectionChange{Kind: ChangeAttribute, DirectChange: true, AttributeKeys: []string{key}})
}

// RemoveAttribute removes a selection attribute.
func (s *Selection) RemoveAttribute(key string) {
	if _, ok := s.attrs[key]; !ok {
		return
	}
	delete(s.attrs, key)
	s.fire(SelectionChange{Kind: ChangeAttribute, DirectChange: true, AttributeKeys: []string{key}})
}

func (s *Selection) Ranges() []Range         { return slices.Clone(s.ranges) }
func (s *Selection) RangeCount() int         { return len(s.ranges) }
func (s *Selection) FirstRange() Range       { return firstRange(s.ranges) }
func (s *Selection) LastRange() Range        { return lastRange(s.ranges) }
func (s *Selection) FirstPosition() Position { return firstRange(s.ranges).Start }
func (s *Selection) LastPosition() Position  { return lastRange(s.ranges).End }
func (s *Selection) Anchor() Position        { return anchorOf(s.ranges, s.lastBackward) }
func (s *Selection) Focus() Position         { return focusOf(s.ranges, s.lastBackward) }
func (s *Selection) IsCollapsed() bool       { return len(s.ranges) == 1 && s.ranges[0].IsCollapsed() }
func (s *Selection) IsBackward() bool        { return !s.IsCollapsed() && s.lastBackward }
func (s *Selection) Attributes() Attributes  { return s.attrs.Clone() }

// HasAttribute reports whether the selection has an attribute.
func (s *Selection) HasAttribute(key string) bool {
	_, ok := s.attrs[key]
	return ok
}

// Attribute returns a selection attribute.
func (s *Selection) Attribute(key string) (any, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

// ContainsEntireContent reports whether the selection spans all of el, or of
// the anchor's root when el is nil.
func (s *Selection) ContainsEntireContent(el *Element) bool {
	return containsEntireContent(s, el)
}

// SelectedElement returns the element a single range spans exactly.
func (s *Selection) SelectedElement() *Element {
	if len(s.ranges) != 1 {
		return nil
	}
	return s.ranges[0].ContainedElement()
}

// SelectedBlocks returns the top-most blocks the selection touches.
func (s *Selection) SelectedBlocks(schema Schema) []*Element {
	return selectedBlocks(s.ranges, schema)
}

// pushRange adds r to ranges, merging every range it intersects or shares a
// boundary with. The merged range goes last.
func pushRange(ranges []Range, r Range) []Range {
	merged := r
	var out []Range
	for _, existing := range ranges {
		if rangesTouch(existing, merged) {
			merged = rangeUnion(existing, merged)
			continue
		}
		out = append(out, existing)
	}
	return append(out, NewRange(merged.Start, merged.End))
}

func rangesTouch(a, b Range) bool {
	if a.Root() != b.Root() {
		return false
	}
	return a.IsIntersecting(b) ||
		a.Start.IsEqual(b.End) || a.End.IsEqual(b.Start) ||
		a.ContainsRange(b, true) || b.ContainsRange(a, true)
}

func rangeUnion(a, b Range) Range {
	start, end := a.Start, a.End
	if b.Start.IsBefore(start) {
		start = b.Start
	}
	if b.End.IsAfter(end) {
		end = b.End
	}
	return NewRange(start, end)
}

func rangesChanged(current, next []Range) bool {
	if len(current) != len(next) {
		return true
	}
	for _, r := range next {
		if !slices.ContainsFunc(current, r.IsEqual) {
			return true
		}
	}
	return false
}

func focusRange(anchor, focus Position) (Range, bool) {
	if focus.IsBefore(anchor) {
		return NewRange(focus, anchor), true
	}
	return NewRange(anchor, focus), false
}

func firstRange(ranges []Range) Range {
	var first Range
	for i, r := range ranges {
		if i == 0 || r.Start.IsBefore(first.Start) {
			first = r
		}
	}
	return first
}

func lastRange(ranges []Range) Range {
	var last Range
	for i, r := range ranges {
		if i == 0 || r.End.IsAfter(last.End) {
			last = r
		}
	}
	return last
}

func anchorOf(ranges []Range, backward bool) Position {
	if len(ranges) == 0 {
		return Position{}
	}
	r := ranges[len(ranges)-1]
	if backward {
		return r.End
	}
	return r.Start
}

func focusOf(ranges []Range, backward bool) Position {
	if len(ranges) == 0 {
		return Position{}
	}
	r := ranges[len(ranges)-1]
	if backward {
		return r.Start
	}
	return r.End
}

func containsEntireContent(s SelectionView, el *Element) bool {
	if el == nil {
		el = s.Anchor().Root()
	}
	if el == nil {
		return false
	}
	return PositionAt(el, 0).IsTouching(s.FirstPosition()) &&
		PositionAtEnd(el).IsTouching(s.LastPosition())
}

func selectedBlocks(ranges []Range, schema Schema) []*Element {
	if schema == nil {
		return nil
	}
	visited := make(map[*Element]bool)
	var out []*Element

	isUnvisitedBlock := func(el *Element) bool {
		if visited[el] {
			return false
		}
		visited[el] = true
		return schema.IsBlock(el) && el.parent != nil
	}
	isTopBlockInRange := func(block *Element, r Range) bool {
		for p := block.parent; p != nil; p = p.parent {
			if schema.IsBlock(p) {
				return !r.ContainsRange(RangeOn(p), true)
			}
		}
		return true
	}
	parentBlock := func(p Position) *Element {
		parent := p.Parent()
		if parent == nil {
			return nil
		}
		var block *Element
		hasLimit := false
		for _, el := range parent.Ancestors(true, true) {
			if block == nil && !hasLimit {
				hasLimit = schema.IsLimit(el)
				if !hasLimit && isUnvisitedBlock(el) {
					block = el
				}
			}
			visited[el] = true
		}
		return block
	}

	for _, r := range ranges {
		if start := parentBlock(r.Start); start != nil && isTopBlockInRange(start, r) {
			out = append(out, start)
		}
		for _, v := range r.Values(WalkerOptions{}) {
			el, ok := v.Item.(*Element)
			if v.Type == WalkerElementEnd && ok && isUnvisitedBlock(el) && isTopBlockInRange(el, r) {
				out = append(out, el)
			}
		}
		if end := parentBlock(r.End); end != nil && !r.End.IsTouching(PositionAt(end, 0)) && isTopBlockInRange(end, r) {
			out = append(out, end)
		}
	}
	return out
}
