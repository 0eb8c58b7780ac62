package devutil_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/livedoc/internal/engine/devutil"
	"github.com/dshills/livedoc/internal/engine/model"
	"github.com/dshills/livedoc/internal/engine/schema"
)

func TestParse(t *testing.T) {
	parsed, err := devutil.Parse(`<paragraph>f[o]o</paragraph><image src="a.png" width="100"></image>`)
	require.NoError(t, err)

	frag := parsed.Fragment
	require.Equal(t, 2, frag.ChildCount())

	p := frag.Child(0).(*model.Element)
	assert.Equal(t, "paragraph", p.Name())
	assert.Equal(t, "foo", p.Child(0).(*model.Text).Data())

	img := frag.Child(1).(*model.Element)
	assert.Equal(t, model.Attributes{"src": "a.png", "width": 100}, img.Attributes())

	require.Len(t, parsed.Ranges, 1)
	assert.Equal(t, []int{0, 1}, parsed.Ranges[0].Start)
	assert.Equal(t, []int{0, 2}, parsed.Ranges[0].End)
}

func TestParseTextAttributes(t *testing.T) {
	parsed, err := devutil.Parse(`<paragraph>a<$text bold="true" data='x'>b</$text></paragraph>`)
	assert.True(t, errors.Is(err, devutil.ErrSyntax), "single quotes are not supported")
	assert.Nil(t, parsed)

	parsed, err = devutil.Parse(`<paragraph>a<$text bold="true" meta="{&quot;a&quot;:1}">b</$text>c</paragraph>`)
	require.NoError(t, err)
	p := parsed.Fragment.Child(0).(*model.Element)
	require.Equal(t, 3, p.ChildCount())
	b, _ := p.Child(1).Attribute("bold")
	assert.Equal(t, true, b)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, devutil.ParseValue("true"))
	assert.Equal(t, 12, devutil.ParseValue("12"))
	assert.Equal(t, 1.5, devutil.ParseValue("1.5"))
	assert.Equal(t, "plain", devutil.ParseValue("plain"))
	assert.Equal(t, map[string]any{"a": 1}, devutil.ParseValue(`{"a":1}`))
	assert.Equal(t, []any{1, "x"}, devutil.ParseValue(`[1,"x"]`))
	assert.Equal(t, "null", devutil.ParseValue("null"))
}

func TestParseErrors(t *testing.T) {
	for _, data := range []string{
		"<paragraph>foo",
		"foo]",
		"[foo",
		"<paragraph>foo</heading>",
		"</paragraph>",
		"<$text bold=\"true\"><paragraph></paragraph></$text>",
		"<paragraph",
		`<image src=a.png></image>`,
	} {
		_, err := devutil.Parse(data)
		assert.True(t, errors.Is(err, devutil.ErrSyntax), "%q: %v", data, err)
	}
}

func TestStringify(t *testing.T) {
	frag, ranges, err := devutil.ParseRanges(`<paragraph>x<$text bold="true">y[z</$text>]</paragraph><image></image>`)
	require.NoError(t, err)

	assert.Equal(t,
		`<paragraph>x<$text bold="true">y[z</$text>]</paragraph><image></image>`,
		devutil.Stringify(frag, ranges...))
	assert.Equal(t,
		`<paragraph>x<$text bold="true">yz</$text></paragraph><image></image>`,
		devutil.Stringify(frag))

	p := frag.Child(0).(*model.Element)
	assert.Equal(t, `<paragraph>x<$text bold="true">yz</$text></paragraph>`, devutil.Stringify(p))
	assert.Equal(t, "x", devutil.Stringify(p.Child(0)))
}

func TestSetGetData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"collapsed in text", `<paragraph>f[]oo</paragraph>`},
		{"range in text", `<paragraph>f[o]o</paragraph>`},
		{"across blocks", `<heading1>x[</heading1><paragraph>]bar</paragraph>`},
		{"at text boundary", `<paragraph><$text bold="true">foo</$text>[]bar</paragraph>`},
		{"inside formatted text", `<paragraph><$text bold="true">f[]oo</$text></paragraph>`},
		{"on object", `<paragraph>x</paragraph>[<image src="a.png"></image>]`},
		{"multi-byte", `<paragraph>ż[]b</paragraph>`},
		{"two ranges", `<paragraph>[a]b[c]</paragraph>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model.New(schema.NewDefault())
			require.NoError(t, devutil.SetData(m, tt.data))
			assert.Equal(t, tt.data, devutil.GetData(m))
		})
	}
}

func TestSetDataReplacesContent(t *testing.T) {
	m := model.New(schema.NewDefault())
	require.NoError(t, devutil.SetData(m, `<paragraph>old[]</paragraph>`))
	require.NoError(t, devutil.SetData(m, `<paragraph>new</paragraph><paragraph>second</paragraph>`))

	assert.Equal(t, `<paragraph>new</paragraph><paragraph>second</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
	assert.Equal(t, `<paragraph>[]new</paragraph><paragraph>second</paragraph>`, devutil.GetData(m))
}

func TestSetDataOptions(t *testing.T) {
	m := model.New(schema.NewDefault())
	require.NoError(t, devutil.SetData(m, `<paragraph>f[oo]</paragraph>`, devutil.WithBackward()))

	sel := m.Document().Selection()
	assert.True(t, sel.IsBackward())
	assert.Equal(t, []int{0, 1}, sel.Focus().Path())

	require.NoError(t, devutil.SetData(m, `<paragraph>[]</paragraph>`,
		devutil.WithSelectionAttributes(model.Attributes{"bold": true})))
	v, ok := sel.Attribute("bold")
	require.True(t, ok)
	assert.Equal(t, true, v)

	err := devutil.SetData(m, `<paragraph></paragraph>`, devutil.WithRoot("missing"))
	assert.Error(t, err)
}
