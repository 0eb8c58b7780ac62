package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/livedoc/internal/engine/model"
	"github.com/dshills/livedoc/internal/engine/schema"
)

func TestCheckChildName(t *testing.T) {
	s := schema.NewDefault()

	tests := []struct {
		name    string
		context []string
		child   string
		want    bool
	}{
		{"paragraph in root", []string{"$root"}, "paragraph", true},
		{"text in root", []string{"$root"}, "$text", false},
		{"text in paragraph", []string{"$root", "paragraph"}, "$text", true},
		{"paragraph in paragraph", []string{"$root", "paragraph"}, "paragraph", false},
		{"image in root", []string{"$root"}, "image", true},
		{"image in paragraph", []string{"$root", "paragraph"}, "image", false},
		{"inline image in paragraph", []string{"$root", "paragraph"}, "imageInline", true},
		{"paragraph in quote", []string{"$root", "blockQuote"}, "paragraph", true},
		{"paragraph in table cell", []string{"$root", "table", "tableCell"}, "paragraph", true},
		{"text in table cell", []string{"$root", "table", "tableCell"}, "$text", false},
		{"cell outside table", []string{"$root"}, "tableCell", false},
		{"text in fragment", []string{"$documentFragment"}, "$text", true},
		{"paragraph in fragment", []string{"$documentFragment"}, "paragraph", true},
		{"broken chain", []string{"$root", "paragraph", "paragraph"}, "$text", false},
		{"unknown child", []string{"$root"}, "widget", false},
		{"marker anywhere", []string{"$root", "image"}, "$marker", true},
		{"empty context", nil, "paragraph", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.CheckChildName(model.NewContext(tt.context...), tt.child)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckAttribute(t *testing.T) {
	s := schema.NewDefault()

	tests := []struct {
		context []string
		key     string
		want    bool
	}{
		{[]string{"$root", "paragraph", "$text"}, "bold", true},
		{[]string{"$root", "paragraph"}, "bold", false},
		{[]string{"$root", "listItem"}, "listType", true},
		{[]string{"$root", "paragraph", "imageInline"}, "bold", true},
		{[]string{"$root", "paragraph", "imageInline"}, "src", true},
		{[]string{"$root", "paragraph", "softBreak"}, "italic", true},
		{[]string{"$root", "image"}, "bold", false},
		{nil, "bold", false},
	}

	for _, tt := range tests {
		got := s.CheckAttribute(model.NewContext(tt.context...), tt.key)
		assert.Equal(t, tt.want, got, "%v %s", tt.context, tt.key)
	}
}

func TestAttributeCheckOverrides(t *testing.T) {
	s := schema.NewDefault()
	s.AddAttributeCheck(func(ctx model.SchemaContext, key string) (bool, bool) {
		if key == "bold" && ctx.Last().Name == "$text" {
			return false, true
		}
		return false, false
	})

	assert.False(t, s.CheckAttribute(model.NewContext("$root", "paragraph", "$text"), "bold"))
	assert.True(t, s.CheckAttribute(model.NewContext("$root", "paragraph", "$text"), "italic"))
}

func TestTypeFlags(t *testing.T) {
	s := schema.NewDefault()

	p := model.NewElement("paragraph", nil)
	img := model.NewElement("image", nil)
	inline := model.NewElement("imageInline", nil)
	br := model.NewElement("softBreak", nil)
	cell := model.NewElement("tableCell", nil)
	text := model.NewText("x", nil)

	assert.True(t, s.IsBlock(p))
	assert.False(t, s.IsObject(p))
	assert.False(t, s.IsLimit(p))

	assert.True(t, s.IsObject(img))
	assert.True(t, s.IsBlock(img))
	assert.True(t, s.IsLimit(img), "objects are limits")
	assert.True(t, s.IsSelectable(img))
	assert.True(t, s.IsContent(img))

	assert.True(t, s.IsInline(inline))
	assert.True(t, s.IsObject(inline))

	assert.True(t, s.IsInline(br))
	assert.False(t, s.IsObject(br))

	assert.True(t, s.IsLimit(cell))
	assert.False(t, s.IsObject(cell))

	assert.True(t, s.IsInline(text))
	assert.True(t, s.IsContent(text))
	assert.False(t, s.IsBlock(model.NewElement("unknown", nil)))
}

func TestInheritTypesKeepsExplicitFlags(t *testing.T) {
	s := schema.New()
	require.NoError(t, s.Register("codeBlock", schema.ItemDefinition{
		InheritAllFrom: schema.BlockName,
		IsBlock:        schema.Flag(false),
	}))

	def, ok := s.Definition("codeBlock")
	require.True(t, ok)
	assert.False(t, def.IsBlock)
	assert.Contains(t, def.AllowIn, "$root")
	assert.Contains(t, def.AllowIn, "$container")
}

func TestRegisterAndExtend(t *testing.T) {
	s := schema.New()
	require.NoError(t, s.Register("caption", schema.ItemDefinition{AllowIn: []string{schema.RootName}}))

	err := s.Register("caption", schema.ItemDefinition{})
	assert.True(t, errors.Is(err, schema.ErrItemExists))

	err = s.Extend("figure", schema.ItemDefinition{})
	assert.True(t, errors.Is(err, schema.ErrItemNotFound))

	assert.False(t, s.CheckChildName(model.NewContext("$root", "caption"), "$text"))
	require.NoError(t, s.Extend("caption", schema.ItemDefinition{AllowContentOf: []string{schema.BlockName}}))
	assert.True(t, s.CheckChildName(model.NewContext("$root", "caption"), "$text"))
}

func TestCheckMerge(t *testing.T) {
	s := schema.NewDefault()

	left := model.NewElement("paragraph", nil, model.NewText("a", nil))
	right := model.NewElement("paragraph", nil, model.NewText("b", nil))
	model.NewElement("$root", nil, left, right)
	assert.True(t, s.CheckMerge(left, right))

	img := model.NewElement("image", nil)
	assert.False(t, s.CheckMerge(left, img))

	quote := model.NewElement("blockQuote", nil, model.NewElement("paragraph", nil))
	model.NewElement("$root", nil, quote)
	assert.False(t, s.CheckMerge(left, quote), "paragraph cannot hold a paragraph")
}

func TestLoadYAML(t *testing.T) {
	s := schema.New()
	data := []byte(`
items:
  paragraph:
    inherit_all_from: $block
  $text:
    allow_attributes: [bold]
attributes:
  bold:
    isFormatting: true
`)
	require.NoError(t, s.Load(data, "yaml"))

	assert.True(t, s.CheckChildName(model.NewContext("$root", "paragraph"), "$text"))
	assert.True(t, s.CheckAttribute(model.NewContext("$root", "paragraph", "$text"), "bold"))
	assert.Equal(t, map[string]any{"isFormatting": true}, s.AttributeProperties("bold"))
}

func TestLoadErrors(t *testing.T) {
	s := schema.New()

	err := s.Load([]byte("[items.paragraph\n"), "toml")
	var perr *schema.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "<data>", perr.Path)
	assert.NotNil(t, perr.Unwrap())

	err = s.Load([]byte("{}"), "json")
	assert.True(t, errors.Is(err, schema.ErrUnknownFormat))
}

func TestAttributesWithProperty(t *testing.T) {
	s := schema.NewDefault()
	text := model.NewText("x", model.Attributes{"bold": true, "linkHref": "https://example.com", "custom": 1})

	assert.Equal(t,
		model.Attributes{"bold": true, "linkHref": "https://example.com"},
		s.AttributesWithProperty(text, "isFormatting", true))
	assert.Equal(t,
		model.Attributes{"bold": true},
		s.AttributesWithProperty(text, "copyOnEnter", true))
	assert.Equal(t,
		model.Attributes{"linkHref": "https://example.com"},
		s.AttributesWithProperty(text, "copyFromObject", nil))
}

// newDoc builds <paragraph>foo</paragraph><image></image><table><tableCell><paragraph>bar</paragraph></tableCell></table>.
func newDoc(t *testing.T) (*model.Model, *model.Element) {
	t.Helper()
	m := model.New(schema.NewDefault())
	root := m.Document().Root("")
	err := m.Change(func(w *model.Writer) error {
		p := w.CreateElement("paragraph", nil)
		if err := w.Append(w.CreateText("foo", nil), p); err != nil {
			return err
		}
		if err := w.Append(p, root); err != nil {
			return err
		}
		if err := w.Append(w.CreateElement("image", nil), root); err != nil {
			return err
		}
		cellParagraph := model.NewElement("paragraph", nil, model.NewText("bar", nil))
		table := model.NewElement("table", nil, model.NewElement("tableCell", nil, cellParagraph))
		return w.Append(table, root)
	})
	require.NoError(t, err)
	return m, root
}

func TestNearestSelectionRange(t *testing.T) {
	m, root := newDoc(t)
	s := m.Schema()

	paragraph := root.Child(0).(*model.Element)
	image := root.Child(1).(*model.Element)

	r, ok := s.NearestSelectionRange(model.PositionAt(paragraph, 1), model.Both)
	require.True(t, ok)
	assert.True(t, r.IsCollapsed())
	assert.Equal(t, []int{0, 1}, r.Start.Path())

	r, ok = s.NearestSelectionRange(model.PositionAt(root, 0), model.Forward)
	require.True(t, ok)
	assert.Equal(t, []int{0, 0}, r.Start.Path())

	r, ok = s.NearestSelectionRange(model.PositionAt(root, 2), model.Backward)
	require.True(t, ok)
	assert.True(t, r.IsEqual(model.RangeOn(image)))

	r, ok = s.NearestSelectionRange(model.PositionAt(root, 1), model.Both)
	require.True(t, ok)
	assert.Equal(t, []int{0, 3}, r.Start.Path(), "backward search wins on ties")
}

func TestNearestSelectionRangeStaysInLimit(t *testing.T) {
	m, root := newDoc(t)
	cell := root.Child(2).(*model.Element).Child(0).(*model.Element)

	_, ok := m.Schema().NearestSelectionRange(model.PositionAt(cell, 1), model.Forward)
	assert.False(t, ok, "nothing after the paragraph inside the cell")

	r, ok := m.Schema().NearestSelectionRange(model.PositionAt(cell, 1), model.Backward)
	require.True(t, ok)
	assert.Equal(t, []int{2, 0, 0, 3}, r.Start.Path())
}

func TestLimitElement(t *testing.T) {
	m, root := newDoc(t)
	cellParagraph := root.Child(2).(*model.Element).Child(0).(*model.Element).Child(0).(*model.Element)

	inCell := model.NewRange(model.PositionAt(cellParagraph, 0), model.PositionAt(cellParagraph, 2))
	assert.Same(t, cellParagraph.Parent(), m.Schema().LimitElement([]model.Range{inCell}))

	paragraph := root.Child(0).(*model.Element)
	inParagraph := model.NewRange(model.PositionAt(paragraph, 1), model.PositionAt(paragraph, 2))
	assert.Same(t, root, m.Schema().LimitElement([]model.Range{inParagraph}))
	assert.Same(t, root, m.Schema().LimitElement([]model.Range{inParagraph, inCell}))
}

func TestRemoveDisallowedAttributes(t *testing.T) {
	m := model.New(schema.NewDefault())
	root := m.Document().Root("")

	err := m.Change(func(w *model.Writer) error {
		p := model.NewElement("paragraph", model.Attributes{"bold": true, "listType": "bulleted"},
			model.NewText("ab", model.Attributes{"bold": true, "src": "x.png"}),
			model.NewText("cd", model.Attributes{"italic": true}),
		)
		if err := w.Append(p, root); err != nil {
			return err
		}
		return m.Schema().RemoveDisallowedAttributes([]model.Node{p}, w)
	})
	require.NoError(t, err)

	p := root.Child(0).(*model.Element)
	assert.Empty(t, p.Attributes())
	require.Equal(t, 2, p.ChildCount())
	assert.Equal(t, model.Attributes{"bold": true}, p.Child(0).Attributes())
	assert.Equal(t, model.Attributes{"italic": true}, p.Child(1).Attributes())
}
