package model

// Element is a named node with attributes and children.
//
// The same type represents document roots (KindRootElement) and detached
// document fragments (KindDocumentFragment). Roots are named "$root" unless
// created otherwise; fragments are named "$documentFragment".
type Element struct {
	nodeBase
	name     string
	kind     Kind
	children []Node

	// Set on roots only.
	doc      *Document
	rootName string
}

// DocumentFragmentName is the schema name of document fragments.
const DocumentFragmentName = "$documentFragment"

// NewElement creates a detached element. Adjacent text children with equal
// attributes are merged.
func NewElement(name string, attrs Attributes, children ...Node) *Element {
	e := &Element{name: name, kind: KindElement, nodeBase: nodeBase{attributes: attrs.Clone()}}
	e.insertChildren(0, normalizeNodes(children)...)
	return e
}

// NewDocumentFragment creates a fragment holding the given children.
func NewDocumentFragment(children ...Node) *Element {
	e := &Element{name: DocumentFragmentName, kind: KindDocumentFragment, nodeBase: nodeBase{attributes: Attributes{}}}
	e.insertChildren(0, normalizeNodes(children)...)
	return e
}

func newRootElement(doc *Document, elementName, rootName string) *Element {
	return &Element{
		name:     elementName,
		kind:     KindRootElement,
		doc:      doc,
		rootName: rootName,
		nodeBase: nodeBase{attributes: Attributes{}},
	}
}

func (e *Element) Kind() Kind { return e.kind }

// Name returns the element name.
func (e *Element) Name() string { return e.name }

// IsRoot reports whether e is a document root.
func (e *Element) IsRoot() bool { return e.kind == KindRootElement }

// RootName returns the name a root was registered under.
func (e *Element) RootName() string { return e.rootName }

// Document returns the document e belongs to, or nil when detached.
func (e *Element) Document() *Document {
	r, ok := rootOf(e).(*Element)
	if !ok || r.kind != KindRootElement {
		return nil
	}
	return r.doc
}

func (e *Element) OffsetSize() int      { return 1 }
func (e *Element) Index() int           { return indexOf(e) }
func (e *Element) StartOffset() int     { return startOffsetOf(e) }
func (e *Element) Root() Node           { return rootOf(e) }
func (e *Element) Path() []int          { return pathOf(e) }
func (e *Element) IsAttached() bool     { return isAttached(e) }
func (e *Element) PreviousSibling() Node { return siblingOf(e, -1) }
func (e *Element) NextSibling() Node    { return siblingOf(e, 1) }

func (e *Element) EndOffset() int {
	s := e.StartOffset()
	if s < 0 {
		return -1
	}
	return s + 1
}

// RootElement returns the top-most element above e, or e itself.
func (e *Element) RootElement() *Element {
	r := e
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// ChildCount returns the number of children.
func (e *Element) ChildCount() int { return len(e.children) }

// Child returns the child at index, or nil.
func (e *Element) Child(index int) Node {
	if index < 0 || index >= len(e.children) {
		return nil
	}
	return e.children[index]
}

// Children returns a copy of the children list.
func (e *Element) Children() []Node {
	out := make([]Node, len(e.children))
	copy(out, e.children)
	return out
}

// IsEmpty reports whether e has no children.
func (e *Element) IsEmpty() bool { return len(e.children) == 0 }

// MaxOffset is the sum of the children's offset sizes.
func (e *Element) MaxOffset() int {
	total := 0
	for _, c := range e.children {
		total += c.OffsetSize()
	}
	return total
}

// OffsetToIndex converts an offset to the index of the child occupying it.
// The max offset maps to ChildCount. Out of range offsets return -1.
func (e *Element) OffsetToIndex(offset int) int {
	total := 0
	for i, c := range e.children {
		size := c.OffsetSize()
		if offset >= total && offset < total+size {
			return i
		}
		total += size
	}
	if offset != total {
		return -1
	}
	return len(e.children)
}

// ChildAtOffset returns the child occupying offset, or nil.
func (e *Element) ChildAtOffset(offset int) Node {
	return e.Child(e.OffsetToIndex(offset))
}

// NodeByPath follows offsets from e. It returns nil when the path is incorrect.
func (e *Element) NodeByPath(path []int) Node {
	var n Node = e
	for _, offset := range path {
		el, ok := n.(*Element)
		if !ok {
			return nil
		}
		n = el.ChildAtOffset(offset)
		if n == nil {
			return nil
		}
	}
	return n
}

// Ancestors returns the elements above e, root first. With includeSelf, e is
// the last entry; with parentFirst the order is reversed.
func (e *Element) Ancestors(includeSelf, parentFirst bool) []*Element {
	var out []*Element
	start := e.parent
	if includeSelf {
		start = e
	}
	for p := start; p != nil; p = p.parent {
		out = append(out, p)
	}
	if !parentFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// CommonAncestor returns the deepest element both e and other descend from.
func (e *Element) CommonAncestor(other *Element, includeSelf bool) *Element {
	a := e.Ancestors(includeSelf, false)
	b := other.Ancestors(includeSelf, false)
	var common *Element
	for i := 0; i < len(a) && i < len(b) && a[i] == b[i]; i++ {
		common = a[i]
	}
	return common
}

// IsAncestorOf reports whether n lies inside e.
func (e *Element) IsAncestorOf(n Node) bool {
	for p := n.Parent(); p != nil; p = p.parent {
		if p == e {
			return true
		}
	}
	return false
}

// Clone copies e without its parent. Roots clone into plain elements.
func (e *Element) Clone(deep bool) Node {
	c := &Element{name: e.name, kind: e.kind, nodeBase: nodeBase{attributes: e.attributes.Clone()}}
	if c.kind == KindRootElement {
		c.kind = KindElement
	}
	if deep {
		for _, child := range e.children {
			cc := child.Clone(true)
			cc.setParent(c)
			c.children = append(c.children, cc)
		}
	}
	return c
}

func (e *Element) childIndex(n Node) int {
	for i, c := range e.children {
		if c == n {
			return i
		}
	}
	return -1
}

func (e *Element) offsetOfIndex(index int) int {
	total := 0
	for _, c := range e.children[:index] {
		total += c.OffsetSize()
	}
	return total
}

// insertChildren inserts nodes at index, taking them away from former parents.
func (e *Element) insertChildren(index int, nodes ...Node) {
	for _, n := range nodes {
		if p := n.Parent(); p != nil {
			p.removeChildren(p.childIndex(n), 1)
		}
		n.setParent(e)
	}
	tail := append([]Node(nil), e.children[index:]...)
	e.children = append(append(e.children[:index], nodes...), tail...)
}

func (e *Element) appendChildren(nodes ...Node) {
	e.insertChildren(len(e.children), nodes...)
}

func (e *Element) removeChildren(index, count int) []Node {
	if index < 0 || count <= 0 {
		return nil
	}
	removed := append([]Node(nil), e.children[index:index+count]...)
	e.children = append(e.children[:index], e.children[index+count:]...)
	for _, n := range removed {
		n.setParent(nil)
	}
	return removed
}

// normalizeNodes merges adjacent text nodes with equal attributes and drops
// empty text.
func normalizeNodes(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		t, ok := n.(*Text)
		if !ok {
			out = append(out, n)
			continue
		}
		if t.data == "" {
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(*Text); ok && prev.attributes.Equal(t.attributes) {
				out[len(out)-1] = NewText(prev.data+t.data, prev.attributes)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
