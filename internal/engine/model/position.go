package model

import (
	"fmt"
	"slices"
)

// Stickiness decides where a position goes when content is inserted exactly at it.
type Stickiness int

const (
	// StickToNone behaves like StickToNext for insertion and stays put for moves.
	StickToNone Stickiness = iota

	// StickToPrevious keeps the position before content inserted at it.
	StickToPrevious

	// StickToNext keeps the position after content inserted at it.
	StickToNext
)

// String returns the stickiness name.
func (s Stickiness) String() string {
	switch s {
	case StickToPrevious:
		return "toPrevious"
	case StickToNext:
		return "toNext"
	default:
		return "toNone"
	}
}

// Relation is the result of comparing two positions.
type Relation int

const (
	RelationBefore Relation = iota
	RelationSame
	RelationAfter
	RelationDifferent
)

// Position is an immutable tree coordinate: a root plus a path of offsets.
//
// The last path entry is the offset inside the parent element. A position is
// not updated when the tree changes; use LivePosition for that.
type Position struct {
	root       *Element
	path       []int
	stickiness Stickiness
}

// NewPosition creates a position from a root and an offset path.
func NewPosition(root *Element, path []int) (Position, error) {
	if root == nil || root.parent != nil {
		return Position{}, fmt.Errorf("position root: %w", ErrInvalidPath)
	}
	if len(path) == 0 {
		return Position{}, fmt.Errorf("empty position path: %w", ErrInvalidPath)
	}
	return Position{root: root, path: slices.Clone(path)}, nil
}

// PositionAt returns the position at offset inside parent.
func PositionAt(parent *Element, offset int) Position {
	path := append(parent.Path(), offset)
	return Position{root: parent.RootElement(), path: path}
}

// PositionAtEnd returns the position after the last child of parent.
func PositionAtEnd(parent *Element) Position {
	return PositionAt(parent, parent.MaxOffset())
}

// PositionBefore returns the position just before item. The item must have a parent.
func PositionBefore(item Item) Position {
	return PositionAt(item.Parent(), item.StartOffset())
}

// PositionAfter returns the position just after item. The item must have a parent.
func PositionAfter(item Item) Position {
	return PositionAt(item.Parent(), item.EndOffset())
}

// IsZero reports whether p is the zero Position.
func (p Position) IsZero() bool { return p.root == nil }

// Root returns the root element the path is relative to.
func (p Position) Root() *Element { return p.root }

// Path returns a copy of the offset path.
func (p Position) Path() []int { return slices.Clone(p.path) }

// Offset returns the offset inside the parent.
func (p Position) Offset() int {
	if len(p.path) == 0 {
		return 0
	}
	return p.path[len(p.path)-1]
}

// Stickiness returns the insertion bias.
func (p Position) Stickiness() Stickiness { return p.stickiness }

// WithStickiness returns a copy with another stickiness.
func (p Position) WithStickiness(s Stickiness) Position {
	p.path = slices.Clone(p.path)
	p.stickiness = s
	return p
}

// WithOffset returns a copy with another offset in the same parent.
func (p Position) WithOffset(offset int) Position {
	path := slices.Clone(p.path)
	path[len(path)-1] = offset
	return Position{root: p.root, path: path, stickiness: p.stickiness}
}

// ShiftedBy moves the offset by shift, clamping at zero.
func (p Position) ShiftedBy(shift int) Position {
	offset := p.Offset() + shift
	if offset < 0 {
		offset = 0
	}
	return p.WithOffset(offset)
}

// ParentPath returns the path of the parent element.
func (p Position) ParentPath() []int {
	return slices.Clone(p.path[:len(p.path)-1])
}

// Parent returns the element the position is in, or nil when the path no
// longer addresses an element.
func (p Position) Parent() *Element {
	parent := p.root
	for _, offset := range p.path[:len(p.path)-1] {
		child, ok := parent.ChildAtOffset(offset).(*Element)
		if !ok {
			return nil
		}
		parent = child
	}
	return parent
}

// Index returns the index of the child just after the position.
func (p Position) Index() int {
	parent := p.Parent()
	if parent == nil {
		return -1
	}
	return parent.OffsetToIndex(p.Offset())
}

// TextNode returns the text node the position is inside, if it cuts through one.
func (p Position) TextNode() *Text {
	return textNodeAt(p, p.Parent())
}

// NodeAfter returns the node just after the position, or nil.
func (p Position) NodeAfter() Node {
	parent := p.Parent()
	if parent == nil || textNodeAt(p, parent) != nil {
		return nil
	}
	return parent.ChildAtOffset(p.Offset())
}

// NodeBefore returns the node just before the position, or nil.
func (p Position) NodeBefore() Node {
	parent := p.Parent()
	if parent == nil || textNodeAt(p, parent) != nil {
		return nil
	}
	return parent.Child(parent.OffsetToIndex(p.Offset()) - 1)
}

func textNodeAt(p Position, parent *Element) *Text {
	if parent == nil {
		return nil
	}
	t, ok := parent.ChildAtOffset(p.Offset()).(*Text)
	if ok && t.StartOffset() < p.Offset() {
		return t
	}
	return nil
}

// IsAtStart reports whether the offset is zero.
func (p Position) IsAtStart() bool { return p.Offset() == 0 }

// IsAtEnd reports whether the position is after the parent's last child.
func (p Position) IsAtEnd() bool {
	parent := p.Parent()
	return parent != nil && p.Offset() == parent.MaxOffset()
}

// IsValid reports whether the path addresses an existing offset.
func (p Position) IsValid() bool {
	if p.root == nil || len(p.path) == 0 {
		return false
	}
	parent := p.Parent()
	return parent != nil && p.Offset() >= 0 && p.Offset() <= parent.MaxOffset()
}

type arrayRelation int

const (
	arraySame      arrayRelation = -1
	arrayPrefix    arrayRelation = -2
	arrayExtension arrayRelation = -3
)

// compareArrays returns the index of the first difference, or one of the
// array relations.
func compareArrays(a, b []int) arrayRelation {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return arrayRelation(i)
		}
	}
	switch {
	case len(a) == len(b):
		return arraySame
	case len(a) < len(b):
		return arrayPrefix
	default:
		return arrayExtension
	}
}

// CompareWith orders p against other in document order.
func (p Position) CompareWith(other Position) Relation {
	if p.root != other.root {
		return RelationDifferent
	}
	switch r := compareArrays(p.path, other.path); r {
	case arraySame:
		return RelationSame
	case arrayPrefix:
		return RelationBefore
	case arrayExtension:
		return RelationAfter
	default:
		if p.path[r] < other.path[r] {
			return RelationBefore
		}
		return RelationAfter
	}
}

// IsBefore reports whether p precedes other.
func (p Position) IsBefore(other Position) bool { return p.CompareWith(other) == RelationBefore }

// IsAfter reports whether p follows other.
func (p Position) IsAfter(other Position) bool { return p.CompareWith(other) == RelationAfter }

// IsEqual reports whether both positions address the same place. Stickiness is ignored.
func (p Position) IsEqual(other Position) bool { return p.CompareWith(other) == RelationSame }

// HasSameParentAs reports whether both positions are in the same parent.
func (p Position) HasSameParentAs(other Position) bool {
	return p.root == other.root && compareArrays(p.ParentPath(), other.ParentPath()) == arraySame
}

// IsTouching reports whether nothing but element boundaries lies between the
// two positions.
func (p Position) IsTouching(other Position) bool {
	var left, right Position
	switch p.CompareWith(other) {
	case RelationSame:
		return true
	case RelationBefore:
		left, right = p, other
	case RelationAfter:
		left, right = other, p
	default:
		return false
	}

	leftPath := slices.Clone(left.path)
	rightPath := slices.Clone(right.path)
	leftParent := left.Parent()

	for len(leftPath)+len(rightPath) > 0 {
		if compareArrays(leftPath, rightPath) == arraySame {
			return true
		}
		if len(leftPath) > len(rightPath) {
			if len(leftPath) == 1 || leftParent == nil || leftPath[len(leftPath)-1] != leftParent.MaxOffset() {
				return false
			}
			leftPath = leftPath[:len(leftPath)-1]
			leftPath[len(leftPath)-1]++
			leftParent = leftParent.parent
		} else {
			if rightPath[len(rightPath)-1] != 0 {
				return false
			}
			rightPath = rightPath[:len(rightPath)-1]
		}
	}
	return false
}

// Ancestors returns the parent and its ancestors, root first.
func (p Position) Ancestors() []*Element {
	parent := p.Parent()
	if parent == nil {
		return nil
	}
	return parent.Ancestors(true, false)
}

// CommonPath returns the longest path prefix both positions share.
func (p Position) CommonPath(other Position) []int {
	if p.root != other.root {
		return nil
	}
	r := compareArrays(p.path, other.path)
	diffAt := int(r)
	if r < 0 {
		diffAt = min(len(p.path), len(other.path))
	}
	return slices.Clone(p.path[:diffAt])
}

// CommonAncestor returns the deepest element containing both positions.
func (p Position) CommonAncestor(other Position) *Element {
	a := p.Ancestors()
	b := other.Ancestors()
	var common *Element
	for i := 0; i < len(a) && i < len(b) && a[i] == b[i]; i++ {
		common = a[i]
	}
	return common
}

// LastMatchingPosition walks from p while skip returns true and returns where
// the walk stopped.
func (p Position) LastMatchingPosition(skip func(WalkerValue) bool, opts WalkerOptions) Position {
	opts.StartPosition = &p
	w := NewTreeWalker(opts)
	w.Skip(skip)
	return w.Position()
}

// String formats the position for debugging.
func (p Position) String() string {
	if p.root == nil {
		return "<zero position>"
	}
	name := p.root.rootName
	if name == "" {
		name = p.root.name
	}
	return fmt.Sprintf("%s%v", name, p.path)
}

func (p Position) clone() Position {
	return Position{root: p.root, path: slices.Clone(p.path), stickiness: p.stickiness}
}
