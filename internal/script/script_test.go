package script

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/livedoc/internal/engine/devutil"
	"github.com/dshills/livedoc/internal/engine/model"
	"github.com/dshills/livedoc/internal/engine/schema"
)

func newState(t *testing.T, data string, opts ...Option) (*State, *model.Model) {
	t.Helper()
	m := model.New(schema.NewDefault())
	require.NoError(t, devutil.SetData(m, data))
	s := New(m, opts...)
	t.Cleanup(func() { s.Close() })
	return s, m
}

func run(t *testing.T, s *State, source string) {
	t.Helper()
	require.NoError(t, s.Run(context.Background(), "test", source))
}

func TestEditing(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		source string
		want   string
	}{
		{
			name:   "type",
			data:   `<paragraph>a[]bc</paragraph>`,
			source: `doc.type("x")`,
			want:   `<paragraph>ax[]bc</paragraph>`,
		},
		{
			name:   "insert model string",
			data:   `<paragraph>f[]oo</paragraph>`,
			source: `doc.insert("bar")`,
			want:   `<paragraph>fbar[]oo</paragraph>`,
		},
		{
			name:   "modify then delete",
			data:   `<paragraph>f[]oo</paragraph>`,
			source: "doc.modify()\ndoc.delete()",
			want:   `<paragraph>f[]o</paragraph>`,
		},
		{
			name:   "modify backward",
			data:   `<paragraph>fo[]o</paragraph>`,
			source: `doc.modify({direction = "backward"})`,
			want:   `<paragraph>f[o]o</paragraph>`,
		},
		{
			name:   "select range",
			data:   `<paragraph>[]foo</paragraph>`,
			source: `doc.select({0, 1}, {0, 3})`,
			want:   `<paragraph>f[oo]</paragraph>`,
		},
		{
			name:   "select position",
			data:   `<paragraph>[]foo</paragraph>`,
			source: `doc.select({0, 2})`,
			want:   `<paragraph>fo[]o</paragraph>`,
		},
		{
			name:   "split",
			data:   `<paragraph>fo[]o</paragraph>`,
			source: `doc.split()`,
			want:   `<paragraph>fo</paragraph><paragraph>[]o</paragraph>`,
		},
		{
			name:   "rename",
			data:   `<paragraph>[]foo</paragraph>`,
			source: `doc.rename({0}, "heading1")`,
			want:   `<heading1>[]foo</heading1>`,
		},
		{
			name:   "set data",
			data:   `<paragraph>[]foo</paragraph>`,
			source: `doc.set_data("<heading1>b[]ar</heading1>")`,
			want:   `<heading1>b[]ar</heading1>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newState(t, tt.data)
			run(t, s, tt.source)
			assert.Equal(t, tt.want, devutil.GetData(m))
		})
	}
}

func TestSetAttribute(t *testing.T) {
	s, m := newState(t, `<paragraph>[foo]</paragraph>`)
	run(t, s, `doc.set_attribute("bold", true)`)
	assert.Equal(t, `<paragraph><$text bold="true">foo</$text></paragraph>`,
		devutil.GetData(m, devutil.WithoutSelection()))

	run(t, s, `doc.remove_attribute("bold")`)
	assert.Equal(t, `<paragraph>foo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestSetAttributeSkipsDisallowedItems(t *testing.T) {
	s, m := newState(t, `<paragraph>[foo]</paragraph>`)
	run(t, s, `doc.set_attribute("src", "a.png")`)
	assert.Equal(t, `<paragraph>foo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestSetAttributeCollapsed(t *testing.T) {
	s, m := newState(t, `<paragraph>f[]oo</paragraph>`)
	run(t, s, `
doc.set_attribute("italic", true)
local sel = doc.selection()
assert(sel.collapsed)
assert(sel.attributes.italic == true, "selection attribute")
`)
	assert.True(t, m.Document().Selection().HasAttribute("italic"))
	assert.Equal(t, `<paragraph>foo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestSelectionTable(t *testing.T) {
	s, _ := newState(t, `<paragraph>f[oo]</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `
local sel = doc.selection()
print(sel.anchor.root, sel.anchor.path[1], sel.anchor.path[2])
print(sel.focus.path[2], sel.collapsed, sel.backward, #sel.ranges)
`)
	assert.Equal(t, "main\t0\t1\n3\tfalse\tfalse\t1\n", out.String())
}

func TestBackwardSelection(t *testing.T) {
	s, m := newState(t, `<paragraph>[]foo</paragraph>`)
	run(t, s, `doc.select({0, 1}, {0, 3}, {backward = true})`)
	sel := m.Document().Selection()
	assert.True(t, sel.IsBackward())
	assert.Equal(t, []int{0, 3}, sel.Anchor().Path())
	assert.Equal(t, []int{0, 1}, sel.Focus().Path())
}

func TestMarkers(t *testing.T) {
	s, m := newState(t, `<paragraph>[]foo</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `
local name = doc.add_marker("comment:1", {0, 1}, {0, 3})
assert(name == "comment:1")
local generated = doc.add_marker(nil, {0, 0}, {0, 1}, {group = "search"})
for _, mk in ipairs(doc.markers("comment")) do
  print(mk.name, mk.start.path[2], mk["end"].path[2])
end
doc.remove_marker(generated)
`)
	assert.Equal(t, "comment:1\t1\t3\n", out.String())
	assert.True(t, m.Markers().Has("comment:1"))
	assert.Equal(t, 1, m.Markers().Len())
}

func TestMarkerFollowsEdits(t *testing.T) {
	s, m := newState(t, `<paragraph>[]foo</paragraph>`)
	run(t, s, `
doc.add_marker("comment:1", {0, 1}, {0, 3})
doc.type("xy")
`)
	mk, ok := m.Markers().Get("comment:1")
	require.True(t, ok)
	assert.Equal(t, []int{0, 3}, mk.Range().Start.Path())
	assert.Equal(t, []int{0, 5}, mk.Range().End.Path())
}

func TestOnChange(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]foo</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `
doc.on_change(function(batch, ops)
  print(type(batch), ops)
end)
doc.type("x")
`)
	assert.Equal(t, "string\t1\n", out.String())
}

func TestOnChangeStopsAfterClose(t *testing.T) {
	s, m := newState(t, `<paragraph>[]foo</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `doc.on_change(function() print("changed") end)`)
	require.NoError(t, s.Close())

	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.InsertText("x", nil, model.PositionAt(m.Document().Root(""), 0))
	}))
	assert.Empty(t, out.String())
}

func TestHistoryAndVersion(t *testing.T) {
	s, m := newState(t, `<paragraph>[]foo</paragraph>`)
	start := m.Document().Version()
	var out bytes.Buffer
	s.out = &out
	run(t, s, `
local v = doc.version()
doc.type("x")
local ops = doc.history(v)
print(#ops, ops[1].type, ops[1].version == v, doc.version() == v + 1)
`)
	assert.Equal(t, "1\tinsert\ttrue\ttrue\n", out.String())
	assert.Equal(t, start+1, m.Document().Version())
}

func TestHasContentAndRoots(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `
print(doc.has_content(), table.concat(doc.roots(), ","))
doc.type("a")
print(doc.has_content())
`)
	assert.Equal(t, "false\tmain\ntrue\n", out.String())
}

func TestRequireModule(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]foo</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `
local livedoc = require("livedoc")
print(livedoc == doc, livedoc.data({selection = false}))
`)
	assert.Equal(t, "true\t<paragraph>foo</paragraph>\n", out.String())
}

func TestUUID(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `print(#doc.uuid(), doc.uuid() ~= doc.uuid())`)
	assert.Equal(t, "36\ttrue\n", out.String())
}

func TestSandbox(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`)
	var out bytes.Buffer
	s.out = &out
	run(t, s, `print(io, os, load, dofile, loadstring, debug)`)
	assert.Equal(t, "nil\tnil\tnil\tnil\tnil\tnil\n", out.String())

	err := s.Run(context.Background(), "test", `require("os")`)
	assert.Error(t, err)
}

func TestCallLimit(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`, WithCallLimit(3))

	err := s.Run(context.Background(), "test", `for i = 1, 10 do doc.version() end`)
	require.ErrorIs(t, err, ErrCallLimit)
	assert.Equal(t, 4, s.Calls())

	// The count starts over with each run.
	run(t, s, `doc.version() doc.version()`)
	assert.Equal(t, 2, s.Calls())
}

func TestTimeout(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`, WithTimeout(50*time.Millisecond))

	start := time.Now()
	err := s.Run(context.Background(), "test", `while true do end`)
	require.ErrorIs(t, err, ErrExecutionTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCancelledContext(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`, WithTimeout(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, "test", `while true do end`)
	require.ErrorIs(t, err, ErrExecutionTimeout)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBindingErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"rename text", `doc.rename({0, 1}, "heading1")`, model.ErrNotElement},
		{"negative offset", `doc.select({-1})`, ErrBadArgument},
		{"empty path", `doc.select({})`, ErrBadArgument},
		{"bad path", `doc.select({5, 0})`, model.ErrInvalidPath},
		{"unknown root", `doc.select({0}, {root = "nope"})`, ErrBadArgument},
		{"bad direction", `doc.modify({direction = "up"})`, ErrBadArgument},
		{"bad unit", `doc.modify({unit = "line"})`, ErrBadArgument},
		{"split range", `doc.select({0, 0}, {0, 2}) doc.split()`, ErrBadArgument},
		{"nil attribute value", `doc.set_attribute("bold", nil)`, ErrBadArgument},
		{"bad log level", `doc.log("loud", "x")`, ErrBadArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newState(t, `<paragraph>[]foo</paragraph>`)
			err := s.Run(context.Background(), "test", tt.source)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScriptErrorLeavesModelConsistent(t *testing.T) {
	s, m := newState(t, `<paragraph>[]foo</paragraph>`)
	err := s.Run(context.Background(), "test", `
doc.type("x")
error("boom")
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, `<paragraph>x[]foo</paragraph>`, devutil.GetData(m))
}

func TestSyntaxError(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`)
	err := s.Run(context.Background(), "broken.lua", `doc.type(`)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "broken.lua"))
}

func TestRunFile(t *testing.T) {
	s, m := newState(t, `<paragraph>[]</paragraph>`)
	path := filepath.Join(t.TempDir(), "edit.lua")
	require.NoError(t, os.WriteFile(path, []byte(`doc.type("hello")`), 0644))

	require.NoError(t, s.RunFile(context.Background(), path))
	assert.Equal(t, `<paragraph>hello[]</paragraph>`, devutil.GetData(m))

	err := s.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing.lua"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClosedState(t *testing.T) {
	s, _ := newState(t, `<paragraph>[]</paragraph>`)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Run(context.Background(), "test", `doc.version()`), ErrStateClosed)
}

func TestWithEditingDefaults(t *testing.T) {
	s, m := newState(t, `<paragraph>[]foo bar</paragraph>`, WithEditing("word", ""))
	run(t, s, `doc.modify()`)
	assert.Equal(t, `<paragraph>[foo] bar</paragraph>`, devutil.GetData(m))
}
