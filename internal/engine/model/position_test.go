package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/livedoc/internal/engine/model"
)

func TestPositionCompare(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph><paragraph>bar</paragraph>`)

	tests := []struct {
		a, b []int
		want model.Relation
	}{
		{[]int{0, 1}, []int{0, 1}, model.RelationSame},
		{[]int{0, 1}, []int{1, 0}, model.RelationBefore},
		{[]int{1}, []int{0, 3}, model.RelationAfter},
		{[]int{0}, []int{0, 0}, model.RelationBefore},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, at(t, m, tt.a...).CompareWith(at(t, m, tt.b...)), "%v vs %v", tt.a, tt.b)
	}

	other := newModel(t, `<paragraph>foo</paragraph>`)
	assert.Equal(t, model.RelationDifferent, at(t, m, 0).CompareWith(at(t, other, 0)))
}

func TestPositionIsTouching(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph><paragraph>bar</paragraph>`)

	assert.True(t, at(t, m, 0, 3).IsTouching(at(t, m, 1, 0)))
	assert.True(t, at(t, m, 1, 0).IsTouching(at(t, m, 0, 3)))
	assert.True(t, at(t, m, 0, 3).IsTouching(at(t, m, 1)))
	assert.False(t, at(t, m, 0, 2).IsTouching(at(t, m, 1, 0)))
	assert.False(t, at(t, m, 0, 3).IsTouching(at(t, m, 1, 1)))
}

func TestPositionNavigation(t *testing.T) {
	m := newModel(t, `<paragraph>foo<$text bold="true">bar</$text></paragraph>`)

	p := at(t, m, 0, 4)
	require.NotNil(t, p.TextNode())
	assert.Equal(t, "bar", p.TextNode().Data())
	assert.Nil(t, p.NodeBefore(), "no whole node before a position inside text")
	assert.Equal(t, 1, p.Index())

	boundary := at(t, m, 0, 3)
	assert.Nil(t, boundary.TextNode())
	assert.Equal(t, "foo", boundary.NodeBefore().(*model.Text).Data())
	assert.Equal(t, "bar", boundary.NodeAfter().(*model.Text).Data())

	assert.True(t, at(t, m, 0, 6).IsAtEnd())
	assert.False(t, at(t, m, 0, 7).IsValid())
	assert.Nil(t, at(t, m, 3, 0).Parent())

	_, err := model.NewPosition(m.Document().Root(""), nil)
	assert.ErrorIs(t, err, model.ErrInvalidPath)
}

func TestPositionTransformedByInsertion(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph>`)

	var op model.Operation
	m.OnApplyOperation(func(o model.Operation) { op = o })
	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.InsertText("xy", nil, at(t, m, 0, 1))
	}))
	require.NotNil(t, op)

	tests := []struct {
		name       string
		path       []int
		stickiness model.Stickiness
		want       []int
	}{
		{"before insertion", []int{0, 0}, model.StickToNone, []int{0, 0}},
		{"after insertion", []int{0, 2}, model.StickToNone, []int{0, 4}},
		{"at insertion sticking to next", []int{0, 1}, model.StickToNext, []int{0, 3}},
		{"at insertion sticking to previous", []int{0, 1}, model.StickToPrevious, []int{0, 1}},
		{"in parent before", []int{0}, model.StickToNone, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := at(t, m, tt.path...).WithStickiness(tt.stickiness)
			assert.Equal(t, tt.want, p.TransformedBy(op).Path())
		})
	}
}

func TestPositionTransformedBySplitAndMerge(t *testing.T) {
	m := newModel(t, `<paragraph>foobar</paragraph>`)

	var ops []model.Operation
	m.OnApplyOperation(func(o model.Operation) { ops = append(ops, o) })

	before := at(t, m, 0, 1)
	after := at(t, m, 0, 5)
	atSplit := at(t, m, 0, 3).WithStickiness(model.StickToNext)

	require.NoError(t, m.Change(func(w *model.Writer) error {
		_, err := w.Split(at(t, m, 0, 3), nil)
		return err
	}))
	require.Len(t, ops, 1)
	assert.Equal(t, []int{0, 1}, before.TransformedBy(ops[0]).Path())
	assert.Equal(t, []int{1, 2}, after.TransformedBy(ops[0]).Path())
	assert.Equal(t, []int{1, 0}, atSplit.TransformedBy(ops[0]).Path())

	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.Merge(at(t, m, 1))
	}))
	require.Len(t, ops, 2)
	assert.Equal(t, []int{0, 5}, after.TransformedByOperations(ops).Path())
	assert.Equal(t, []int{0, 3}, atSplit.TransformedByOperations(ops).Path())
}

func TestPositionTransformedByRemoval(t *testing.T) {
	m := newModel(t, `<paragraph>foo</paragraph><paragraph>bar</paragraph>`)

	var op model.Operation
	m.OnApplyOperation(func(o model.Operation) { op = o })
	require.NoError(t, m.Change(func(w *model.Writer) error {
		return w.RemoveNode(child(m, 0))
	}))

	moved := at(t, m, 1, 2).TransformedBy(op)
	assert.Equal(t, []int{0, 2}, moved.Path())

	removed := at(t, m, 0, 1).TransformedBy(op)
	assert.Equal(t, model.GraveyardName, removed.Root().RootName())
}
