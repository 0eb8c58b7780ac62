package model

import (
	"fmt"
	"slices"
)

// Writer is the only way to change a model. A writer is valid only inside
// the change block that created it.
type Writer struct {
	model  *Model
	batch  *Batch
	active bool
}

// Model returns the model the writer changes.
func (w *Writer) Model() *Model { return w.model }

// Batch returns the batch collecting the writer's operations.
func (w *Writer) Batch() *Batch { return w.batch }

func (w *Writer) check() error {
	if !w.active {
		return ErrWriterInactive
	}
	return nil
}

func (w *Writer) apply(op Operation) error {
	w.batch.addOperation(op)
	return w.model.ApplyOperation(op)
}

// versionOf returns the document version for operations on root's tree.
func (w *Writer) versionOf(root *Element) int {
	if root.doc != nil {
		return root.doc.version
	}
	return NoVersion
}

// CreateText creates a detached text node.
func (w *Writer) CreateText(data string, attrs Attributes) *Text {
	return NewText(data, attrs)
}

// CreateElement creates a detached element.
func (w *Writer) CreateElement(name string, attrs Attributes) *Element {
	return NewElement(name, attrs)
}

// CreateDocumentFragment creates an empty fragment.
func (w *Writer) CreateDocumentFragment() *Element {
	return NewDocumentFragment()
}

// sameTree reports whether content may move between both roots: the same
// detached tree, or two roots of one document.
func sameTree(a, b *Element) bool {
	if a == b {
		return true
	}
	return a.kind == KindRootElement && b.kind == KindRootElement && a.doc == b.doc
}

// Insert inserts item at position. A node that already has a parent in the
// same tree is moved; one in another detached tree is taken out of it first.
// Inserting a document fragment inserts its children.
func (w *Writer) Insert(item Node, position Position) error {
	if err := w.check(); err != nil {
		return err
	}

	if item.Parent() != nil {
		itemRoot := item.Parent().RootElement()
		if sameTree(itemRoot, position.root) {
			return w.Move(RangeOn(item), position)
		}
		if itemRoot.doc != nil {
			return fmt.Errorf("insert into %s: %w", position, ErrInsertForbiddenMove)
		}
		if err := w.Remove(RangeOn(item)); err != nil {
			return err
		}
	}

	nodes := []Node{item}
	if el, ok := item.(*Element); ok && el.kind == KindDocumentFragment {
		nodes = el.Children()
		if len(nodes) == 0 {
			return nil
		}
		el.removeChildren(0, len(el.children))
	}
	return w.apply(NewInsertOperation(position, nodes, w.versionOf(position.root)))
}

// InsertText creates a text node and inserts it at position.
func (w *Writer) InsertText(data string, attrs Attributes, position Position) error {
	return w.Insert(NewText(data, attrs), position)
}

// InsertElement creates an element and inserts it at position.
func (w *Writer) InsertElement(name string, attrs Attributes, position Position) (*Element, error) {
	el := NewElement(name, attrs)
	if err := w.Insert(el, position); err != nil {
		return nil, err
	}
	return el, nil
}

// Append inserts item at the end of parent.
func (w *Writer) Append(item Node, parent *Element) error {
	return w.Insert(item, PositionAtEnd(parent))
}

// Remove removes the content of r. Document content moves to the graveyard;
// content of detached trees is dropped.
func (w *Writer) Remove(r Range) error {
	if err := w.check(); err != nil {
		return err
	}
	flat := r.MinimalFlatRanges()
	slices.Reverse(flat)
	for _, fr := range flat {
		howMany := fr.End.Offset() - fr.Start.Offset()
		var op Operation
		if doc := fr.Root().doc; doc != nil {
			op = NewMoveOperation(fr.Start, howMany, PositionAt(doc.graveyard, 0), doc.version)
		} else {
			op = NewDetachOperation(fr.Start, howMany)
		}
		if err := w.apply(op); err != nil {
			return err
		}
	}
	return nil
}

// RemoveNode removes a single node.
func (w *Writer) RemoveNode(n Node) error {
	return w.Remove(RangeOn(n))
}

// Move moves a flat range to target.
func (w *Writer) Move(r Range, target Position) error {
	if err := w.check(); err != nil {
		return err
	}
	if !r.IsFlat() {
		return fmt.Errorf("move %s: %w", r, ErrRangeNotFlat)
	}
	if !sameTree(r.Root(), target.root) {
		return fmt.Errorf("move %s to %s: %w", r, target, ErrMoveDifferentTree)
	}
	howMany := r.End.Offset() - r.Start.Offset()
	return w.apply(NewMoveOperation(r.Start, howMany, target, w.versionOf(r.Root())))
}

// Merge merges the elements before and after position: the content of the
// latter moves into the former and the latter is removed.
func (w *Writer) Merge(position Position) error {
	if err := w.check(); err != nil {
		return err
	}
	before, ok := position.NodeBefore().(*Element)
	if !ok {
		return fmt.Errorf("merge at %s: no element before: %w", position, ErrMergeInvalid)
	}
	after, ok := position.NodeAfter().(*Element)
	if !ok {
		return fmt.Errorf("merge at %s: no element after: %w", position, ErrMergeInvalid)
	}

	doc := position.root.doc
	if doc == nil {
		if err := w.Move(RangeIn(after), PositionAtEnd(before)); err != nil {
			return err
		}
		return w.Remove(RangeOn(after))
	}

	op := NewMergeOperation(
		PositionAt(after, 0),
		after.MaxOffset(),
		PositionAtEnd(before),
		PositionAt(doc.graveyard, 0),
		doc.version,
	)
	return w.apply(op)
}

// SplitResult describes the outcome of Split.
type SplitResult struct {
	// Position is between the last split element and its copy.
	Position Position
	// Range spans from the end of the first split element to the start of its copy.
	Range Range
}

// Split splits position's parent at position, and its ancestors up to limit
// (exclusive). A nil limit splits only the parent.
func (w *Writer) Split(position Position, limit *Element) (SplitResult, error) {
	if err := w.check(); err != nil {
		return SplitResult{}, err
	}
	splitElement := position.Parent()
	if splitElement == nil || splitElement.parent == nil {
		return SplitResult{}, fmt.Errorf("split at %s: %w", position, ErrSplitInRoot)
	}
	if limit == nil {
		limit = splitElement.parent
	}
	if !slices.Contains(splitElement.Ancestors(true, false), limit) {
		return SplitResult{}, fmt.Errorf("split at %s: %w", position, ErrSplitInvalidLimit)
	}

	var firstSplit, firstCopy *Element
	for {
		howMany := splitElement.MaxOffset() - position.Offset()
		op := NewSplitOperation(position, howMany, w.versionOf(splitElement.RootElement()))
		if err := w.apply(op); err != nil {
			return SplitResult{}, err
		}
		if firstSplit == nil {
			firstSplit = splitElement
			firstCopy, _ = splitElement.NextSibling().(*Element)
		}
		position = PositionAfter(splitElement)
		splitElement = position.Parent()
		if splitElement == limit {
			break
		}
	}

	return SplitResult{
		Position: position,
		Range:    NewRange(PositionAtEnd(firstSplit), PositionAt(firstCopy, 0)),
	}, nil
}

// Rename changes the name of an element.
func (w *Writer) Rename(el *Element, newName string) error {
	if err := w.check(); err != nil {
		return err
	}
	if el == nil || el.parent == nil {
		return fmt.Errorf("rename: %w", ErrNotElement)
	}
	return w.apply(NewRenameOperation(PositionBefore(el), el.name, newName, w.versionOf(el.RootElement())))
}

// SetAttribute sets an attribute on an item. A nil value removes it.
func (w *Writer) SetAttribute(key string, value any, item Item) error {
	if err := w.check(); err != nil {
		return err
	}
	if el, ok := item.(*Element); ok && el.parent == nil {
		old, _ := el.Attribute(key)
		if ValuesEqual(old, value) {
			return nil
		}
		return w.apply(NewRootAttributeOperation(el, key, old, value, w.versionOf(el)))
	}

	old, _ := item.Attribute(key)
	if ValuesEqual(old, value) {
		return nil
	}
	r := RangeOn(item)
	return w.apply(NewAttributeOperation(r, key, old, value, w.versionOf(r.Root())))
}

// SetAttributeOnRange sets an attribute on every item in r, issuing one
// operation per run of items sharing the old value.
func (w *Writer) SetAttributeOnRange(key string, value any, r Range) error {
	if err := w.check(); err != nil {
		return err
	}
	for _, flat := range r.MinimalFlatRanges() {
		if err := w.setAttributeOnFlatRange(key, value, flat); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) setAttributeOnFlatRange(key string, value any, r Range) error {
	lastSplit := r.Start
	var position *Position
	var before any

	add := func() error {
		rr := NewRange(lastSplit, *position)
		return w.apply(NewAttributeOperation(rr, key, before, value, w.versionOf(rr.Root())))
	}

	walker := r.Walker(WalkerOptions{Shallow: true})
	for {
		v, ok := walker.Next()
		if !ok {
			break
		}
		after, _ := v.Item.Attribute(key)
		if position != nil && !ValuesEqual(before, after) {
			if !ValuesEqual(before, value) {
				if err := add(); err != nil {
					return err
				}
			}
			lastSplit = *position
		}
		next := v.NextPosition
		position = &next
		before = after
	}

	if position != nil && !position.IsEqual(lastSplit) && !ValuesEqual(before, value) {
		return add()
	}
	return nil
}

// SetAttributes sets several attributes on an item.
func (w *Writer) SetAttributes(attrs Attributes, item Item) error {
	for _, key := range attrs.Keys() {
		if err := w.SetAttribute(key, attrs[key], item); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAttribute removes an attribute from an item.
func (w *Writer) RemoveAttribute(key string, item Item) error {
	return w.SetAttribute(key, nil, item)
}

// RemoveAttributeOnRange removes an attribute from every item in r.
func (w *Writer) RemoveAttributeOnRange(key string, r Range) error {
	return w.SetAttributeOnRange(key, nil, r)
}

// ClearAttributes removes all attributes from an item.
func (w *Writer) ClearAttributes(item Item) error {
	for _, key := range item.AttributeKeys() {
		if err := w.RemoveAttribute(key, item); err != nil {
			return err
		}
	}
	return nil
}

// ClearAttributesOnRange removes all attributes from every item in r.
func (w *Writer) ClearAttributesOnRange(r Range) error {
	type cleared struct {
		r    Range
		keys []string
	}
	var targets []cleared
	for _, item := range r.Items(WalkerOptions{}) {
		if keys := item.AttributeKeys(); len(keys) > 0 {
			targets = append(targets, cleared{RangeOn(item), keys})
		}
	}
	for _, t := range targets {
		for _, key := range t.keys {
			if err := w.SetAttributeOnRange(key, nil, t.r); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetSelection sets the document selection.
func (w *Writer) SetSelection(s Selectable, opts ...SelectOption) error {
	if err := w.check(); err != nil {
		return err
	}
	return w.model.doc.selection.setTo(s, opts...)
}

// SetSelectionFocus moves the focus of the document selection.
func (w *Writer) SetSelectionFocus(p Position) error {
	if err := w.check(); err != nil {
		return err
	}
	return w.model.doc.selection.setFocus(p)
}

// SetSelectionAttribute sets an attribute on the document selection. In an
// empty element the attribute is also stored on that element, so it survives
// until content is typed there.
func (w *Writer) SetSelectionAttribute(key string, value any) error {
	if err := w.check(); err != nil {
		return err
	}
	sel := w.model.doc.selection
	if parent := sel.Anchor().Parent(); sel.IsCollapsed() && parent != nil && parent.IsEmpty() {
		if err := w.SetAttribute(StoredAttributeKey(key), value, parent); err != nil {
			return err
		}
	}
	sel.setAttribute(key, value, priorityNormal)
	return nil
}

// RemoveSelectionAttribute removes an attribute from the document selection.
func (w *Writer) RemoveSelectionAttribute(key string) error {
	if err := w.check(); err != nil {
		return err
	}
	sel := w.model.doc.selection
	if parent := sel.Anchor().Parent(); sel.IsCollapsed() && parent != nil && parent.IsEmpty() {
		if err := w.RemoveAttribute(StoredAttributeKey(key), parent); err != nil {
			return err
		}
	}
	sel.removeAttribute(key, priorityNormal)
	return nil
}

// OverrideSelectionGravity makes the selection take attributes from the
// right side. Pass the returned token to RestoreSelectionGravity.
func (w *Writer) OverrideSelectionGravity() (string, error) {
	if err := w.check(); err != nil {
		return "", err
	}
	return w.model.doc.selection.overrideGravity(), nil
}

// RestoreSelectionGravity releases one gravity override.
func (w *Writer) RestoreSelectionGravity(token string) error {
	if err := w.check(); err != nil {
		return err
	}
	return w.model.doc.selection.restoreGravity(token)
}

// AddMarker adds a marker. Markers that affect data count as content.
func (w *Writer) AddMarker(name string, r Range, affectsData bool) (*Marker, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	if w.model.markers.Has(name) {
		return nil, fmt.Errorf("marker %q: %w", name, ErrMarkerExists)
	}
	if err := w.applyMarker(name, nil, &r, affectsData); err != nil {
		return nil, err
	}
	m, _ := w.model.markers.Get(name)
	return m, nil
}

// UpdateMarker moves a marker to r.
func (w *Writer) UpdateMarker(name string, r Range) error {
	if err := w.check(); err != nil {
		return err
	}
	m, ok := w.model.markers.Get(name)
	if !ok {
		return fmt.Errorf("marker %q: %w", name, ErrMarkerNotFound)
	}
	old := m.Range()
	return w.applyMarker(name, &old, &r, m.affectsData)
}

// RemoveMarker removes a marker.
func (w *Writer) RemoveMarker(name string) error {
	if err := w.check(); err != nil {
		return err
	}
	m, ok := w.model.markers.Get(name)
	if !ok {
		return fmt.Errorf("marker %q: %w", name, ErrMarkerNotFound)
	}
	old := m.Range()
	return w.applyMarker(name, &old, nil, m.affectsData)
}

func (w *Writer) applyMarker(name string, oldRange, newRange *Range, affectsData bool) error {
	op := NewMarkerOperation(name, oldRange, newRange, w.model.markers, affectsData, w.model.doc.version)
	return w.apply(op)
}
