package model

import (
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Text is a run of characters sharing one attribute set.
// Offsets inside text are byte offsets into its UTF-8 data.
type Text struct {
	nodeBase
	data string
}

// NewText creates a detached text node.
func NewText(data string, attrs Attributes) *Text {
	return &Text{data: data, nodeBase: nodeBase{attributes: attrs.Clone()}}
}

func (t *Text) Kind() Kind            { return KindText }
func (t *Text) Data() string          { return t.data }
func (t *Text) OffsetSize() int       { return len(t.data) }
func (t *Text) Index() int            { return indexOf(t) }
func (t *Text) StartOffset() int      { return startOffsetOf(t) }
func (t *Text) Root() Node            { return rootOf(t) }
func (t *Text) Path() []int           { return pathOf(t) }
func (t *Text) IsAttached() bool      { return isAttached(t) }
func (t *Text) PreviousSibling() Node { return siblingOf(t, -1) }
func (t *Text) NextSibling() Node     { return siblingOf(t, 1) }

func (t *Text) EndOffset() int {
	s := t.StartOffset()
	if s < 0 {
		return -1
	}
	return s + len(t.data)
}

func (t *Text) Clone(bool) Node {
	return NewText(t.data, t.attributes)
}

// TextProxy is a view on a part of a text node, produced when a walk or a
// range boundary cuts through text.
type TextProxy struct {
	text         *Text
	offsetInText int
	size         int
}

func newTextProxy(t *Text, offsetInText, size int) *TextProxy {
	return &TextProxy{text: t, offsetInText: offsetInText, size: size}
}

func (p *TextProxy) item() {}

func (p *TextProxy) Kind() Kind        { return KindTextProxy }
func (p *TextProxy) TextNode() *Text   { return p.text }
func (p *TextProxy) OffsetInText() int { return p.offsetInText }
func (p *TextProxy) OffsetSize() int   { return p.size }
func (p *TextProxy) Parent() *Element  { return p.text.parent }

// Data returns the proxied characters.
func (p *TextProxy) Data() string {
	return p.text.data[p.offsetInText : p.offsetInText+p.size]
}

// IsPartial reports whether the proxy covers less than its whole text node.
func (p *TextProxy) IsPartial() bool {
	return p.size != len(p.text.data)
}

func (p *TextProxy) StartOffset() int {
	s := p.text.StartOffset()
	if s < 0 {
		return -1
	}
	return s + p.offsetInText
}

func (p *TextProxy) EndOffset() int {
	s := p.StartOffset()
	if s < 0 {
		return -1
	}
	return s + p.size
}

func (p *TextProxy) Attribute(key string) (any, bool) { return p.text.Attribute(key) }
func (p *TextProxy) HasAttribute(key string) bool     { return p.text.HasAttribute(key) }
func (p *TextProxy) Attributes() Attributes           { return p.text.Attributes() }
func (p *TextProxy) AttributeKeys() []string          { return p.text.AttributeKeys() }

// IsRuneBoundary reports whether offset does not cut a UTF-8 sequence.
func IsRuneBoundary(data string, offset int) bool {
	if offset <= 0 || offset >= len(data) {
		return true
	}
	return utf8.RuneStart(data[offset])
}

// IsGraphemeBoundary reports whether offset lies between two user-perceived
// characters, so neither a multi-byte rune nor a combining sequence is split.
func IsGraphemeBoundary(data string, offset int) bool {
	if offset <= 0 || offset >= len(data) {
		return true
	}
	if !utf8.RuneStart(data[offset]) {
		return false
	}
	g := uniseg.NewGraphemes(data)
	for g.Next() {
		from, to := g.Positions()
		if from == offset {
			return true
		}
		if from < offset && offset < to {
			return false
		}
	}
	return true
}
