package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/livedoc/internal/engine/devutil"
	"github.com/dshills/livedoc/internal/engine/model"
	"github.com/dshills/livedoc/internal/engine/schema"
)

func newModel(t *testing.T, data string) *model.Model {
	t.Helper()
	m := model.New(schema.NewDefault())
	require.NoError(t, devutil.SetData(m, data))
	return m
}

func at(t *testing.T, m *model.Model, path ...int) model.Position {
	t.Helper()
	p, err := model.NewPosition(m.Document().Root(""), path)
	require.NoError(t, err)
	return p
}

func child(m *model.Model, index int) *model.Element {
	return m.Document().Root("").Child(index).(*model.Element)
}

func TestWriterOperations(t *testing.T) {
	const initial = `<paragraph>foo</paragraph><paragraph>bar</paragraph>`

	tests := []struct {
		name   string
		change func(t *testing.T, m *model.Model, w *model.Writer) error
		want   string
	}{
		{
			name: "insert text",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.InsertText("x", nil, at(t, m, 0, 1))
			},
			want: `<paragraph>fxoo</paragraph><paragraph>bar</paragraph>`,
		},
		{
			name: "insert element",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				_, err := w.InsertElement("heading1", nil, at(t, m, 1))
				return err
			},
			want: `<paragraph>foo</paragraph><heading1></heading1><paragraph>bar</paragraph>`,
		},
		{
			name: "move text",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Move(model.NewRange(at(t, m, 1, 0), at(t, m, 1, 2)), at(t, m, 0, 3))
			},
			want: `<paragraph>fooba</paragraph><paragraph>r</paragraph>`,
		},
		{
			name: "insert attached element moves it",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Insert(child(m, 1), at(t, m, 0))
			},
			want: `<paragraph>bar</paragraph><paragraph>foo</paragraph>`,
		},
		{
			name: "remove across elements",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Remove(model.NewRange(at(t, m, 0, 1), at(t, m, 1, 2)))
			},
			want: `<paragraph>f</paragraph><paragraph>r</paragraph>`,
		},
		{
			name: "merge",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Merge(at(t, m, 1))
			},
			want: `<paragraph>foobar</paragraph>`,
		},
		{
			name: "split",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				_, err := w.Split(at(t, m, 0, 1), nil)
				return err
			},
			want: `<paragraph>f</paragraph><paragraph>oo</paragraph><paragraph>bar</paragraph>`,
		},
		{
			name: "rename",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Rename(child(m, 1), "heading1")
			},
			want: `<paragraph>foo</paragraph><heading1>bar</heading1>`,
		},
		{
			name: "attribute on text range",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.SetAttributeOnRange("bold", true, model.NewRange(at(t, m, 0, 1), at(t, m, 0, 3)))
			},
			want: `<paragraph>f<$text bold="true">oo</$text></paragraph><paragraph>bar</paragraph>`,
		},
		{
			name: "attribute on element",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.SetAttribute("listType", "bulleted", child(m, 0))
			},
			want: `<paragraph listType="bulleted">foo</paragraph><paragraph>bar</paragraph>`,
		},
		{
			name: "remove attribute from part of a range",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				if err := w.SetAttributeOnRange("bold", true, model.NewRange(at(t, m, 0, 1), at(t, m, 0, 3))); err != nil {
					return err
				}
				return w.RemoveAttributeOnRange("bold", model.NewRange(at(t, m, 0, 0), at(t, m, 0, 2)))
			},
			want: `<paragraph>fo<$text bold="true">o</$text></paragraph><paragraph>bar</paragraph>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, initial)
			err := m.Change(func(w *model.Writer) error {
				return tt.change(t, m, w)
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, devutil.GetData(m, devutil.WithoutSelection()))
		})
	}
}

func TestWriterErrors(t *testing.T) {
	tests := []struct {
		name   string
		change func(t *testing.T, m *model.Model, w *model.Writer) error
		want   error
	}{
		{
			name: "split in root",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				_, err := w.Split(at(t, m, 1), nil)
				return err
			},
			want: model.ErrSplitInRoot,
		},
		{
			name: "split limit not an ancestor",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				_, err := w.Split(at(t, m, 0, 1), child(m, 1))
				return err
			},
			want: model.ErrSplitInvalidLimit,
		},
		{
			name: "merge without element before",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Merge(at(t, m, 0))
			},
			want: model.ErrMergeInvalid,
		},
		{
			name: "move range that is not flat",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Move(model.NewRange(at(t, m, 0, 1), at(t, m, 1, 1)), at(t, m, 0, 0))
			},
			want: model.ErrRangeNotFlat,
		},
		{
			name: "move into itself",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Move(model.RangeOn(child(m, 0)), at(t, m, 0, 1))
			},
			want: model.ErrMoveIntoItself,
		},
		{
			name: "move from detached tree",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				frag := w.CreateDocumentFragment()
				if err := w.Append(w.CreateText("x", nil), frag); err != nil {
					return err
				}
				return w.Move(model.RangeIn(frag), at(t, m, 0, 0))
			},
			want: model.ErrMoveDifferentTree,
		},
		{
			name: "insert node of another document",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				other := newModel(t, `<paragraph>x</paragraph>`)
				return w.Insert(child(other, 0), at(t, m, 0))
			},
			want: model.ErrInsertForbiddenMove,
		},
		{
			name: "rename root",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.Rename(m.Document().Root(""), "paragraph")
			},
			want: model.ErrNotElement,
		},
		{
			name: "duplicate marker",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				r := model.NewRange(at(t, m, 0, 0), at(t, m, 0, 1))
				if _, err := w.AddMarker("comment:1", r, false); err != nil {
					return err
				}
				_, err := w.AddMarker("comment:1", r, false)
				return err
			},
			want: model.ErrMarkerExists,
		},
		{
			name: "missing marker",
			change: func(t *testing.T, m *model.Model, w *model.Writer) error {
				return w.RemoveMarker("comment:1")
			},
			want: model.ErrMarkerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, `<paragraph>foo</paragraph><paragraph>bar</paragraph>`)
			err := m.Change(func(w *model.Writer) error {
				return tt.change(t, m, w)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriterInactiveOutsideChange(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	var saved *model.Writer
	require.NoError(t, m.Change(func(w *model.Writer) error {
		saved = w
		return nil
	}))

	err := saved.InsertText("x", nil, at(t, m, 0, 0))
	assert.ErrorIs(t, err, model.ErrWriterInactive)
	assert.Equal(t, `<paragraph>foo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestWriterDetachedTree(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)
	version := m.Document().Version()

	var p *model.Element
	require.NoError(t, m.Change(func(w *model.Writer) error {
		frag := w.CreateDocumentFragment()
		p = w.CreateElement("paragraph", nil)
		if err := w.Append(p, frag); err != nil {
			return err
		}
		if err := w.InsertText("abc", nil, model.PositionAt(p, 0)); err != nil {
			return err
		}
		if err := w.SetAttributeOnRange("bold", true, model.RangeIn(p)); err != nil {
			return err
		}
		return w.Remove(model.NewRange(model.PositionAt(p, 0), model.PositionAt(p, 2)))
	}))

	assert.Equal(t, version, m.Document().Version(), "detached changes are not document operations")
	assert.Equal(t, `<paragraph><$text bold="true">c</$text></paragraph>`, devutil.Stringify(p))
}

func TestWriterInsertFromDetachedTree(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	var ops []model.OperationType
	m.OnApplyOperation(func(op model.Operation) {
		ops = append(ops, op.Type())
	})

	require.NoError(t, m.Change(func(w *model.Writer) error {
		frag := w.CreateDocumentFragment()
		h := w.CreateElement("heading1", nil)
		if err := w.Append(h, frag); err != nil {
			return err
		}
		return w.Insert(h, at(t, m, 1))
	}))

	assert.Equal(t, []model.OperationType{model.OpInsert, model.OpDetach, model.OpInsert}, ops)
	assert.Equal(t, `<paragraph>foo</paragraph><heading1></heading1>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestWriterSplitToLimit(t *testing.T) {
	m := newModel(t, `<blockQuote><paragraph>foo</paragraph></blockQuote>`)

	var res model.SplitResult
	require.NoError(t, m.Change(func(w *model.Writer) error {
		var err error
		res, err = w.Split(at(t, m, 0, 0, 1), m.Document().Root(""))
		return err
	}))

	assert.Equal(t,
		`<blockQuote><paragraph>f</paragraph></blockQuote><blockQuote><paragraph>oo</paragraph></blockQuote>`,
		devutil.GetData(m, devutil.WithoutSelection()))
	assert.Equal(t, []int{1}, res.Position.Path())
	assert.Equal(t, []int{0, 0, 1}, res.Range.Start.Path())
	assert.Equal(t, []int{1, 0, 0}, res.Range.End.Path())
}

func TestWriterMarkers(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	var updates []model.MarkerUpdate
	m.Markers().OnUpdate(func(u model.MarkerUpdate) {
		updates = append(updates, u)
	})

	require.NoError(t, m.Change(func(w *model.Writer) error {
		_, err := w.AddMarker("comment:1", model.NewRange(at(t, m, 0, 1), at(t, m, 0, 2)), true)
		return err
	}))
	marker, ok := m.Markers().Get("comment:1")
	require.True(t, ok)
	assert.Equal(t, "comment", marker.Group())
	assert.True(t, marker.AffectsData())

	// Typing before the marker shifts it.
	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.InsertText("xx", nil, at(t, m, 0, 0))
	}))
	assert.Equal(t, []int{0, 3}, marker.Range().Start.Path())
	assert.Equal(t, []int{0, 4}, marker.Range().End.Path())

	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.UpdateMarker("comment:1", model.RangeIn(child(m, 0)))
	}))
	assert.Len(t, m.Markers().MarkersAtPosition(at(t, m, 0, 1)), 1)

	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.RemoveMarker("comment:1")
	}))
	assert.False(t, m.Markers().Has("comment:1"))

	require.Len(t, updates, 3)
	assert.Nil(t, updates[0].OldRange)
	assert.NotNil(t, updates[1].OldRange)
	assert.Nil(t, updates[2].NewRange)
}
