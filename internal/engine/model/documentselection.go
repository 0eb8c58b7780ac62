package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/livedoc/internal/event"
)

// StoredAttributePrefix prefixes selection attributes stored in empty elements.
const StoredAttributePrefix = "selection:"

// StoredAttributeKey returns the key a selection attribute is stored under.
func StoredAttributeKey(key string) string {
	return StoredAttributePrefix + key
}

type attrPriority int

const (
	priorityLow attrPriority = iota + 1
	priorityNormal
)

// DocumentSelection is the selection of a document. Its ranges are live and
// it always has at least one: without explicit ranges it reports the
// document's default range. Its attributes follow the text around it unless
// they were set explicitly.
//
// It changes only through a Writer.
type DocumentSelection struct {
	selectionEvents

	doc          *Document
	ranges       []*LiveRange
	lastBackward bool

	attrs        Attributes
	attrPriority map[string]attrPriority

	gravityTokens   map[string]struct{}
	observedMarkers map[string]struct{}
	markers         []*Marker

	restorePosition *Position
	hasChangedRange bool
	changedInBlock  bool
	// First range moved to an invalid position in the running change block.
	invalidErr error

	subs []event.Subscription
}

func newDocumentSelection(doc *Document) *DocumentSelection {
	s := &DocumentSelection{
		doc:             doc,
		attrs:           Attributes{},
		attrPriority:    make(map[string]attrPriority),
		gravityTokens:   make(map[string]struct{}),
		observedMarkers: make(map[string]struct{}),
	}
	m := doc.model
	s.subs = append(s.subs,
		m.applied.On(s.operationApplied, event.WithPriority(event.PriorityLowest)),
		m.markers.OnUpdate(func(MarkerUpdate) { s.updateMarkers() }),
	)
	return s
}

func (s *DocumentSelection) selectionView() {}

// liveRanges returns the current ranges without the default fallback.
func (s *DocumentSelection) liveRanges() []Range {
	out := make([]Range, len(s.ranges))
	for i, lr := range s.ranges {
		out[i] = lr.ToRange()
	}
	return out
}

// Ranges returns the selection ranges, or the default range when there are none.
func (s *DocumentSelection) Ranges() []Range {
	if len(s.ranges) == 0 {
		return []Range{s.doc.defaultRange()}
	}
	return s.liveRanges()
}

// RangeCount is never zero.
func (s *DocumentSelection) RangeCount() int {
	return max(len(s.ranges), 1)
}

func (s *DocumentSelection) FirstRange() Range       { return firstRange(s.Ranges()) }
func (s *DocumentSelection) LastRange() Range        { return lastRange(s.Ranges()) }
func (s *DocumentSelection) FirstPosition() Position { return s.FirstRange().Start }
func (s *DocumentSelection) LastPosition() Position  { return s.LastRange().End }
func (s *DocumentSelection) Anchor() Position        { return anchorOf(s.Ranges(), s.lastBackward) }
func (s *DocumentSelection) Focus() Position         { return focusOf(s.Ranges(), s.lastBackward) }

// IsCollapsed reports whether the selection is a single collapsed range.
func (s *DocumentSelection) IsCollapsed() bool {
	ranges := s.Ranges()
	return len(ranges) == 1 && ranges[0].IsCollapsed()
}

// IsBackward reports whether the focus is before the anchor.
func (s *DocumentSelection) IsBackward() bool {
	return !s.IsCollapsed() && s.lastBackward && len(s.ranges) > 0
}

// Attribute returns a selection attribute.
func (s *DocumentSelection) Attribute(key string) (any, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

// HasAttribute reports whether the selection has an attribute.
func (s *DocumentSelection) HasAttribute(key string) bool {
	_, ok := s.attrs[key]
	return ok
}

// Attributes returns a copy of the selection attributes.
func (s *DocumentSelection) Attributes() Attributes { return s.attrs.Clone() }

// ContainsEntireContent reports whether the selection spans all of el, or of
// the anchor's root when el is nil.
func (s *DocumentSelection) ContainsEntireContent(el *Element) bool {
	return containsEntireContent(s, el)
}

// SelectedElement returns the element a single range spans exactly.
func (s *DocumentSelection) SelectedElement() *Element {
	if s.RangeCount() != 1 {
		return nil
	}
	return s.FirstRange().ContainedElement()
}

// SelectedBlocks returns the top-most blocks the selection touches.
func (s *DocumentSelection) SelectedBlocks(schema Schema) []*Element {
	return selectedBlocks(s.Ranges(), schema)
}

// IsGravityOverridden reports whether attributes are taken from the right side.
func (s *DocumentSelection) IsGravityOverridden() bool {
	return len(s.gravityTokens) > 0
}

// Markers returns the observed markers containing the selection.
func (s *DocumentSelection) Markers() []*Marker {
	return slices.Clone(s.markers)
}

// ObserveMarkers starts tracking markers whose name is prefix or starts with
// prefix followed by a colon.
func (s *DocumentSelection) ObserveMarkers(prefix string) {
	s.observedMarkers[prefix] = struct{}{}
	s.updateMarkers()
}

// StoredAttributes returns the attributes stored for the selection in the
// empty element holding a collapsed selection.
func (s *DocumentSelection) StoredAttributes() Attributes {
	parent := s.FirstPosition().Parent()
	if !s.IsCollapsed() || parent == nil || !parent.IsEmpty() {
		return nil
	}
	out := Attributes{}
	for _, key := range parent.AttributeKeys() {
		if name, ok := strings.CutPrefix(key, StoredAttributePrefix); ok {
			out[name], _ = parent.Attribute(key)
		}
	}
	return out
}

// validateRange checks that r can back the selection: both boundaries in this
// document and not inside a character.
func (s *DocumentSelection) validateRange(r Range) error {
	root := r.Root()
	if root == nil || root.kind != KindRootElement || root.doc != s.doc {
		return fmt.Errorf("range %s: %w", r, ErrInvalidSelectionPosition)
	}
	for _, p := range []Position{r.Start, r.End} {
		if !p.IsValid() {
			return fmt.Errorf("position %s: %w", p, ErrInvalidSelectionPosition)
		}
		if t := p.TextNode(); t != nil && !IsGraphemeBoundary(t.data, p.Offset()-t.StartOffset()) {
			return fmt.Errorf("position %s splits a character: %w", p, ErrInvalidSelectionPosition)
		}
	}
	return nil
}

func (s *DocumentSelection) setTo(sel Selectable, opts ...SelectOption) error {
	ranges, backward := RangesOf(sel, opts...)
	for _, r := range ranges {
		if err := s.validateRange(r); err != nil {
			return err
		}
	}
	s.setRanges(ranges, backward)
	s.updateAttributes(true)
	s.updateMarkers()
	return nil
}

func (s *DocumentSelection) setFocus(p Position) error {
	if err := s.validateRange(CollapsedRange(p)); err != nil {
		return err
	}
	if p.IsEqual(s.Focus()) {
		return nil
	}
	anchor := s.Anchor()
	if n := len(s.ranges); n > 0 {
		s.ranges[n-1].Detach()
		s.ranges = s.ranges[:n-1]
	}
	r, backward := focusRange(anchor, p)
	s.pushRange(r)
	s.lastBackward = backward
	s.fireChange(SelectionChange{Kind: ChangeRange, DirectChange: true})
	s.updateAttributes(true)
	s.updateMarkers()
	return nil
}

func (s *DocumentSelection) setRanges(ranges []Range, backward bool) {
	if !rangesChanged(s.liveRanges(), ranges) && backward == s.lastBackward {
		return
	}
	s.removeAllRanges()
	for _, r := range ranges {
		s.pushRange(r)
	}
	s.lastBackward = backward
	s.fireChange(SelectionChange{Kind: ChangeRange, DirectChange: true})
}

func (s *DocumentSelection) removeAllRanges() {
	for _, lr := range s.ranges {
		lr.Detach()
	}
	s.ranges = nil
}

// pushRange adds a live copy of r, merging ranges it touches. Ranges in the
// graveyard are ignored.
func (s *DocumentSelection) pushRange(r Range) {
	if r.Root() == s.doc.graveyard {
		return
	}
	merged := r
	var kept []*LiveRange
	for _, lr := range s.ranges {
		if existing := lr.ToRange(); rangesTouch(existing, merged) {
			merged = rangeUnion(existing, merged)
			lr.Detach()
			continue
		}
		kept = append(kept, lr)
	}

	lr, err := NewLiveRange(merged)
	if err != nil {
		s.doc.model.logger.Warn("selection range rejected", "range", merged.String(), "err", err)
		s.ranges = kept
		return
	}
	lr.OnChangeRange(func(c LiveRangeChange) { s.liveRangeChanged(lr, c) })
	s.ranges = append(kept, lr)
}

func (s *DocumentSelection) liveRangeChanged(lr *LiveRange, c LiveRangeChange) {
	s.hasChangedRange = true
	if lr.Root() != s.doc.graveyard {
		return
	}
	s.restorePosition = c.DeletionPosition
	if i := slices.Index(s.ranges, lr); i >= 0 {
		s.ranges = slices.Delete(s.ranges, i, i+1)
	}
	lr.Detach()
}

func (s *DocumentSelection) operationApplied(op Operation) {
	if !op.IsDocumentOperation() {
		return
	}
	switch op.(type) {
	case *MarkerOperation, *RenameOperation, *NoOperation:
		return
	}

	if len(s.ranges) == 0 && s.restorePosition != nil {
		s.fixGraveyardSelection(*s.restorePosition)
	}
	s.restorePosition = nil

	// Text around an unmoved boundary may change too, so every range is
	// checked.
	for _, r := range s.liveRanges() {
		if err := s.validateRange(r); err != nil && s.invalidErr == nil {
			s.invalidErr = fmt.Errorf("after %s: %w", op.Type(), err)
		}
	}
	if s.hasChangedRange {
		s.hasChangedRange = false
		s.fireChange(SelectionChange{Kind: ChangeRange})
	}
	s.updateMarkers()
}

// takeError returns and clears the error recorded when an operation moved a
// range to an invalid position.
func (s *DocumentSelection) takeError() error {
	err := s.invalidErr
	s.invalidErr = nil
	return err
}

// fixGraveyardSelection puts the selection back after its last range was
// removed with the content it was in.
func (s *DocumentSelection) fixGraveyardSelection(deletion Position) {
	schema := s.doc.model.schema
	if schema == nil {
		return
	}
	if r, ok := schema.NearestSelectionRange(deletion, Both); ok {
		s.pushRange(r)
		s.doc.model.logger.Debug("selection restored after removal", "range", r.String())
	}
}

func (s *DocumentSelection) fireChange(c SelectionChange) {
	s.changedInBlock = true
	s.fire(c)
}

// refresh re-derives markers and automatic attributes at the end of a change block.
func (s *DocumentSelection) refresh() {
	s.updateMarkers()
	s.updateAttributes(false)
}

// setAttribute sets an attribute with the given priority. A low priority
// write never replaces a normal one. Normal priority writes fire an event.
func (s *DocumentSelection) setAttribute(key string, value any, priority attrPriority) {
	if s.storeAttribute(key, value, priority) && priority == priorityNormal {
		s.fireChange(SelectionChange{Kind: ChangeAttribute, DirectChange: true, AttributeKeys: []string{key}})
	}
}

// removeAttribute removes an attribute under the same priority rule.
func (s *DocumentSelection) removeAttribute(key string, priority attrPriority) {
	if s.dropAttribute(key, priority) && priority == priorityNormal {
		s.fireChange(SelectionChange{Kind: ChangeAttribute, DirectChange: true, AttributeKeys: []string{key}})
	}
}

func (s *DocumentSelection) storeAttribute(key string, value any, priority attrPriority) bool {
	if priority == priorityLow && s.attrPriority[key] == priorityNormal {
		return false
	}
	if old, ok := s.attrs[key]; ok && ValuesEqual(old, value) {
		return false
	}
	s.attrs[key] = value
	s.attrPriority[key] = priority
	return true
}

func (s *DocumentSelection) dropAttribute(key string, priority attrPriority) bool {
	if priority == priorityLow && s.attrPriority[key] == priorityNormal {
		return false
	}
	s.attrPriority[key] = priority
	if _, ok := s.attrs[key]; !ok {
		return false
	}
	delete(s.attrs, key)
	return true
}

// updateAttributes re-derives attributes from the surrounding content. With
// clearAll explicit attributes are dropped too; otherwise only automatic
// ones are replaced.
func (s *DocumentSelection) updateAttributes(clearAll bool) {
	surrounding := s.surroundingAttributes()
	old := s.attrs.Clone()

	if clearAll {
		s.attrs = Attributes{}
		s.attrPriority = make(map[string]attrPriority)
	} else {
		for key, p := range s.attrPriority {
			if p == priorityLow {
				delete(s.attrs, key)
				delete(s.attrPriority, key)
			}
		}
	}
	for _, key := range surrounding.Keys() {
		s.storeAttribute(key, surrounding[key], priorityLow)
	}

	var changed []string
	for _, key := range s.attrs.Keys() {
		if v, ok := old[key]; !ok || !ValuesEqual(v, s.attrs[key]) {
			changed = append(changed, key)
		}
	}
	for _, key := range old.Keys() {
		if _, ok := s.attrs[key]; !ok {
			changed = append(changed, key)
		}
	}
	if len(changed) > 0 {
		s.fireChange(SelectionChange{Kind: ChangeAttribute, AttributeKeys: changed})
	}
}

// surroundingAttributes finds the attributes the selection inherits.
//
// A non-collapsed selection takes them from the first text or object in its
// first range. A collapsed one looks at the node before the caret, the node
// after it, then further left and right siblings, and finally at attributes
// stored in its empty parent. With gravity overridden the left side is skipped.
func (s *DocumentSelection) surroundingAttributes() Attributes {
	position := s.FirstPosition()
	if position.root == nil || position.root == s.doc.graveyard {
		return nil
	}
	schema := s.doc.model.schema

	if !s.IsCollapsed() {
		for _, v := range s.FirstRange().Values(WalkerOptions{}) {
			if el, ok := v.Item.(*Element); ok && schema != nil && schema.IsObject(el) {
				attrs, _ := textAttributes(el, schema)
				return attrs
			}
			if v.Type == WalkerText {
				return v.Item.Attributes()
			}
		}
		return nil
	}

	var before, after Node
	if t := position.TextNode(); t != nil {
		before, after = t, t
	} else {
		before, after = position.NodeBefore(), position.NodeAfter()
	}
	overridden := s.IsGravityOverridden()

	if !overridden {
		if attrs, ok := textAttributes(before, schema); ok {
			return attrs
		}
	}
	if attrs, ok := textAttributes(after, schema); ok {
		return attrs
	}
	if !overridden {
		for n := before; n != nil; {
			n = n.PreviousSibling()
			if attrs, ok := textAttributes(n, schema); ok {
				return attrs
			}
		}
	}
	for n := after; n != nil; {
		n = n.NextSibling()
		if attrs, ok := textAttributes(n, schema); ok {
			return attrs
		}
	}
	return s.StoredAttributes()
}

// textAttributes returns the attributes text next to item would inherit.
// Inline non-objects yield an empty set; inline objects yield those of their
// attributes text may carry.
func textAttributes(item Item, schema Schema) (Attributes, bool) {
	switch it := item.(type) {
	case nil:
		return nil, false
	case *Text:
		if it == nil {
			return nil, false
		}
		return it.Attributes(), true
	case *TextProxy:
		return it.Attributes(), true
	case *Element:
		if it == nil || schema == nil || !schema.IsInline(it) {
			return nil, false
		}
		if !schema.IsObject(it) {
			return Attributes{}, true
		}
		out := Attributes{}
		for _, key := range it.AttributeKeys() {
			if !schema.CheckAttribute(NewContext(TextName), key) {
				continue
			}
			if copyFrom, ok := schema.AttributeProperties(key)["copyFromObject"]; ok && copyFrom == false {
				continue
			}
			out[key], _ = it.Attribute(key)
		}
		return out, true
	}
	return nil, false
}

func (s *DocumentSelection) overrideGravity() string {
	token := uuid.NewString()
	s.gravityTokens[token] = struct{}{}
	if len(s.gravityTokens) == 1 {
		s.updateAttributes(true)
	}
	return token
}

func (s *DocumentSelection) restoreGravity(token string) error {
	if _, ok := s.gravityTokens[token]; !ok {
		return fmt.Errorf("token %q: %w", token, ErrInvalidGravityToken)
	}
	delete(s.gravityTokens, token)
	if len(s.gravityTokens) == 0 {
		s.updateAttributes(true)
	}
	return nil
}

// updateMarkers recomputes which observed markers contain a selection range.
func (s *DocumentSelection) updateMarkers() {
	if len(s.observedMarkers) == 0 {
		return
	}
	ranges := s.Ranges()
	var contained []*Marker
	for _, m := range s.doc.model.markers.All() {
		if _, ok := s.observedMarkers[m.Group()]; !ok {
			continue
		}
		mr := m.Range()
		if slices.ContainsFunc(ranges, func(r Range) bool { return markerContains(mr, r) }) {
			contained = append(contained, m)
		}
	}

	changed := len(contained) != len(s.markers)
	for _, m := range contained {
		if !slices.Contains(s.markers, m) {
			changed = true
		}
	}
	if !changed {
		return
	}
	old := s.markers
	s.markers = contained
	s.fireChange(SelectionChange{Kind: ChangeMarker, OldMarkers: old})
}

// markerContains reports whether a marker range holds a selection range.
// A collapsed range counts when it touches the marker boundaries.
func markerContains(marker, r Range) bool {
	if r.IsCollapsed() {
		p := r.Start
		return marker.ContainsPosition(p) || marker.Start.IsEqual(p) || marker.End.IsEqual(p)
	}
	return marker.ContainsRange(r, false)
}

func (s *DocumentSelection) destroy() {
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.removeAllRanges()
	s.clear()
}
