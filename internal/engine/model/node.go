package model

import (
	"maps"
	"reflect"
	"slices"
)

// Kind discriminates the concrete item types of the tree.
type Kind int

const (
	KindText Kind = iota
	KindTextProxy
	KindElement
	KindRootElement
	KindDocumentFragment
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTextProxy:
		return "textProxy"
	case KindElement:
		return "element"
	case KindRootElement:
		return "rootElement"
	case KindDocumentFragment:
		return "documentFragment"
	default:
		return "unknown"
	}
}

// IsElementKind reports whether k is one of the element kinds.
func (k Kind) IsElementKind() bool {
	return k == KindElement || k == KindRootElement || k == KindDocumentFragment
}

// Attributes maps attribute keys to values. A nil value means "absent".
type Attributes map[string]any

// Keys returns the attribute keys in sorted order.
func (a Attributes) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// Clone returns a shallow copy.
func (a Attributes) Clone() Attributes {
	if len(a) == 0 {
		return Attributes{}
	}
	return maps.Clone(a)
}

// Equal reports whether both maps hold the same keys and values.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !ValuesEqual(v, w) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two attribute values.
func ValuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Item is anything a tree walker can return: nodes and text proxies.
type Item interface {
	Kind() Kind

	// Parent returns the containing element, or nil.
	Parent() *Element

	// OffsetSize is the number of offsets the item occupies in its parent.
	OffsetSize() int

	// StartOffset is the item's offset in its parent, or -1 when detached.
	StartOffset() int

	// EndOffset is StartOffset plus OffsetSize, or -1 when detached.
	EndOffset() int

	Attribute(key string) (any, bool)
	HasAttribute(key string) bool
	Attributes() Attributes
	AttributeKeys() []string

	item()
}

// Node is an item that is stored in the tree: text and elements.
type Node interface {
	Item

	// Index returns the node's index among its parent's children, or -1.
	Index() int

	// Root returns the top-most ancestor, or the node itself.
	Root() Node

	// Path returns the offsets leading from the root to the node.
	Path() []int

	// PreviousSibling and NextSibling return adjacent nodes, or nil.
	PreviousSibling() Node
	NextSibling() Node

	// IsAttached reports whether the node is inside a document root.
	IsAttached() bool

	// Clone returns a copy without parent. Elements are copied deeply when deep is set.
	Clone(deep bool) Node

	setParent(*Element)
	attrs() Attributes
}

// nodeBase holds what text and elements share.
type nodeBase struct {
	parent     *Element
	attributes Attributes
}

func (n *nodeBase) item() {}

func (n *nodeBase) Parent() *Element {
	return n.parent
}

func (n *nodeBase) setParent(p *Element) {
	n.parent = p
}

func (n *nodeBase) attrs() Attributes {
	if n.attributes == nil {
		n.attributes = Attributes{}
	}
	return n.attributes
}

func (n *nodeBase) Attribute(key string) (any, bool) {
	v, ok := n.attributes[key]
	return v, ok
}

func (n *nodeBase) HasAttribute(key string) bool {
	_, ok := n.attributes[key]
	return ok
}

func (n *nodeBase) Attributes() Attributes {
	return n.attributes.Clone()
}

func (n *nodeBase) AttributeKeys() []string {
	return n.attributes.Keys()
}

func (n *nodeBase) setAttribute(key string, value any) {
	if value == nil {
		delete(n.attributes, key)
		return
	}
	n.attrs()[key] = value
}

func (n *nodeBase) clearAttributes() {
	n.attributes = Attributes{}
}

func indexOf(self Node) int {
	p := self.Parent()
	if p == nil {
		return -1
	}
	return p.childIndex(self)
}

func startOffsetOf(self Node) int {
	p := self.Parent()
	if p == nil {
		return -1
	}
	i := p.childIndex(self)
	if i < 0 {
		return -1
	}
	return p.offsetOfIndex(i)
}

func rootOf(self Node) Node {
	var n Node = self
	for n.Parent() != nil {
		n = n.Parent()
	}
	return n
}

func pathOf(self Node) []int {
	var path []int
	var n Node = self
	for n.Parent() != nil {
		path = append(path, startOffsetOf(n))
		n = n.Parent()
	}
	slices.Reverse(path)
	return path
}

func siblingOf(self Node, delta int) Node {
	p := self.Parent()
	if p == nil {
		return nil
	}
	i := p.childIndex(self) + delta
	if i < 0 || i >= len(p.children) {
		return nil
	}
	return p.children[i]
}

func isAttached(self Node) bool {
	r, ok := rootOf(self).(*Element)
	return ok && r.kind == KindRootElement && r.doc != nil
}
