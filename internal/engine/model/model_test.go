package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/livedoc/internal/engine/devutil"
	"github.com/dshills/livedoc/internal/engine/model"
	"github.com/dshills/livedoc/internal/engine/schema"
)

func TestChangeBlockOrdering(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	var batches []string
	m.Document().OnChange(func(b *model.Batch) { batches = append(batches, b.ID()) })

	var steps []string
	var outer *model.Writer
	require.NoError(t, m.Change(func(w *model.Writer) error {
		outer = w
		steps = append(steps, "outer")
		if err := m.EnqueueChange(nil, func(w *model.Writer) error {
			steps = append(steps, "enqueued")
			return w.InsertText("b", nil, at(t, m, 0, 0))
		}); err != nil {
			return err
		}
		if err := m.Change(func(nested *model.Writer) error {
			steps = append(steps, "nested")
			assert.Same(t, outer, nested)
			return nested.InsertText("a", nil, at(t, m, 0, 0))
		}); err != nil {
			return err
		}
		steps = append(steps, "outer done")
		return nil
	}))

	assert.Equal(t, []string{"outer", "nested", "outer done", "enqueued"}, steps)
	assert.Len(t, batches, 2)
	assert.NotEqual(t, batches[0], batches[1])
	assert.Equal(t, `<paragraph>bafoo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestEnqueueChangeSharesBatch(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	var batches []*model.Batch
	m.Document().OnChange(func(b *model.Batch) { batches = append(batches, b) })

	require.NoError(t, m.Change(func(w *model.Writer) error {
		if err := w.InsertText("a", nil, at(t, m, 0, 0)); err != nil {
			return err
		}
		return m.EnqueueChange(w.Batch(), func(w *model.Writer) error {
			return w.InsertText("b", nil, at(t, m, 0, 0))
		})
	}))

	require.Len(t, batches, 2)
	assert.Same(t, batches[0], batches[1])
	assert.Len(t, batches[1].DocumentOperations(), 2)
}

func TestChangeErrorDropsQueuedChanges(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)
	errStop := errors.New("stop")

	ran := false
	err := m.Change(func(w *model.Writer) error {
		if err := w.InsertText("x", nil, at(t, m, 0, 0)); err != nil {
			return err
		}
		if err := m.EnqueueChange(nil, func(*model.Writer) error {
			ran = true
			return nil
		}); err != nil {
			return err
		}
		return errStop
	})

	assert.ErrorIs(t, err, errStop)
	assert.False(t, ran)
	assert.Equal(t, `<paragraph>xfoo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()),
		"operations applied before the error stay applied")

	// The model is usable afterwards.
	insertText(t, m, "y", 0, 0)
	assert.Equal(t, `<paragraph>yxfoo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestChangePanicReleasesWriter(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	var saved *model.Writer
	ran := false
	assert.PanicsWithValue(t, "boom", func() {
		_ = m.Change(func(w *model.Writer) error {
			saved = w
			if err := m.EnqueueChange(nil, func(*model.Writer) error {
				ran = true
				return nil
			}); err != nil {
				return err
			}
			panic("boom")
		})
	})

	assert.ErrorIs(t, saved.InsertText("x", nil, at(t, m, 0, 0)), model.ErrWriterInactive)

	// The next change opens its own block instead of reusing the dead writer.
	var w2 *model.Writer
	require.NoError(t, m.Change(func(w *model.Writer) error {
		w2 = w
		return w.InsertText("y", nil, at(t, m, 0, 0))
	}))
	assert.NotSame(t, saved, w2)
	assert.False(t, ran, "changes queued by the panicking block are dropped")
	assert.Equal(t, `<paragraph>yfoo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestPostFixers(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	calls := 0
	m.Document().RegisterPostFixer(func(w *model.Writer) (bool, error) {
		calls++
		root := m.Document().Root("")
		if !root.IsEmpty() {
			return false, nil
		}
		return true, w.Insert(w.CreateElement("paragraph", nil), model.PositionAt(root, 0))
	})

	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.Remove(model.RangeIn(m.Document().Root("")))
	}))
	assert.Equal(t, `<paragraph>[]</paragraph>`, devutil.GetData(m))
	assert.Equal(t, 2, calls)

	// Blocks that change nothing skip post-fixers.
	require.NoError(t, m.Change(func(*model.Writer) error { return nil }))
	assert.Equal(t, 2, calls)
}

func TestVersionAndHistory(t *testing.T) {
	m := model.New(schema.NewDefault(), model.WithHistorySize(2))
	assert.Equal(t, 0, m.Document().Version())

	require.NoError(t, m.Change(func(w *model.Writer) error {
		_, err := w.InsertElement("paragraph", nil, model.PositionAt(m.Document().Root(""), 0))
		return err
	}))
	insertText(t, m, "a", 0, 0)
	insertText(t, m, "b", 0, 0)

	doc := m.Document()
	assert.Equal(t, 3, doc.Version())
	assert.Equal(t, 2, doc.History().Len())

	_, ok := doc.History().Operation(0)
	assert.False(t, ok, "the oldest operation was dropped")

	op, ok := doc.History().Operation(2)
	require.True(t, ok)
	assert.Equal(t, 2, op.BaseVersion())
	assert.Equal(t, model.OpInsert, op.Type())

	since := doc.History().OperationsSince(2)
	require.Len(t, since, 1)
	assert.Same(t, op, since[0])
}

func TestApplyOperationVersionMismatch(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	op := model.NewInsertOperation(at(t, m, 0, 0), []model.Node{model.NewText("x", nil)}, m.Document().Version()+1)
	assert.ErrorIs(t, m.ApplyOperation(op), model.ErrVersionMismatch)

	op = model.NewInsertOperation(at(t, m, 0, 9), []model.Node{model.NewText("x", nil)}, m.Document().Version())
	assert.Error(t, m.ApplyOperation(op))
	assert.Equal(t, `<paragraph>foo</paragraph>`, devutil.GetData(m, devutil.WithoutSelection()))
}

func TestHasContent(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts model.HasContentOptions
		want bool
	}{
		{"text", `<paragraph>foo</paragraph>`, model.HasContentOptions{}, true},
		{"empty block", `<paragraph></paragraph>`, model.HasContentOptions{}, false},
		{"whitespace", `<paragraph>  </paragraph>`, model.HasContentOptions{}, true},
		{"whitespace ignored", `<paragraph>  </paragraph>`, model.HasContentOptions{IgnoreWhitespaces: true}, false},
		{"object", `<image></image>`, model.HasContentOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, tt.data)
			assert.Equal(t, tt.want, m.HasContentIn(m.Document().Root(""), tt.opts))
		})
	}
}

func TestHasContentMarkers(t *testing.T) {
	m := newModel(t, `<paragraph></paragraph><paragraph></paragraph>`)
	root := m.Document().Root("")

	require.NoError(t, m.Change(func(w *model.Writer) error {
		_, err := w.AddMarker("comment:1", model.NewRange(at(t, m, 0, 0), at(t, m, 1, 0)), true)
		return err
	}))

	assert.True(t, m.HasContentIn(root, model.HasContentOptions{}))
	assert.False(t, m.HasContentIn(root, model.HasContentOptions{IgnoreMarkers: true}))
	assert.False(t, m.HasContent(model.CollapsedRange(at(t, m, 0, 0)), model.HasContentOptions{}))
}

func TestDocumentRoots(t *testing.T) {
	m := model.New(schema.NewDefault())
	doc := m.Document()

	second, err := doc.CreateRoot("", "second")
	require.NoError(t, err)
	assert.Equal(t, model.RootElementName, second.Name())
	assert.Equal(t, []string{model.MainRootName, "second"}, doc.RootNames())
	assert.Same(t, second, doc.Root("second"))
	assert.Nil(t, doc.Root("missing"))

	_, err = doc.CreateRoot("", "second")
	assert.ErrorIs(t, err, model.ErrRootExists)

	// Content moves freely between roots of one document.
	require.NoError(t, devutil.SetData(m, `<paragraph>foo</paragraph>`))
	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.Insert(doc.Root("").Child(0), model.PositionAt(second, 0))
	}))
	assert.Equal(t, `<paragraph>foo</paragraph>`, devutil.GetData(m, devutil.WithRoot("second"), devutil.WithoutSelection()))
	assert.True(t, doc.Root("").IsEmpty())
}
