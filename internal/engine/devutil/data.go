package devutil

import (
	"fmt"

	"github.com/dshills/livedoc/internal/engine/model"
)

type options struct {
	rootName       string
	backward       bool
	selectionAttrs model.Attributes
	withoutSel     bool
}

// Option tunes SetData and GetData.
type Option func(*options)

// WithRoot selects the root to read or write. The default is the main root.
func WithRoot(name string) Option {
	return func(o *options) { o.rootName = name }
}

// WithBackward makes the last parsed range backward.
func WithBackward() Option {
	return func(o *options) { o.backward = true }
}

// WithSelectionAttributes sets attributes on the selection after SetData.
func WithSelectionAttributes(attrs model.Attributes) Option {
	return func(o *options) { o.selectionAttrs = attrs }
}

// WithoutSelection makes GetData omit the selection markers.
func WithoutSelection() Option {
	return func(o *options) { o.withoutSel = true }
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SetData replaces the content of a root with the parsed model string and
// sets the document selection to the ranges it marks.
func SetData(m *model.Model, data string, opts ...Option) error {
	o := collect(opts)
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	root := m.Document().Root(o.rootName)
	if root == nil {
		return fmt.Errorf("set data: no root %q", o.rootName)
	}

	return m.Change(func(w *model.Writer) error {
		if !root.IsEmpty() {
			if err := w.Remove(model.RangeIn(root)); err != nil {
				return err
			}
		}
		if !parsed.Fragment.IsEmpty() {
			if err := w.Insert(parsed.Fragment, model.PositionAt(root, 0)); err != nil {
				return err
			}
		}

		if len(parsed.Ranges) > 0 {
			ranges := make(model.Ranges, 0, len(parsed.Ranges))
			for _, pr := range parsed.Ranges {
				r, err := toRange(root, pr)
				if err != nil {
					return err
				}
				ranges = append(ranges, r)
			}
			var selOpts []model.SelectOption
			if o.backward {
				selOpts = append(selOpts, model.AsBackward())
			}
			if err := w.SetSelection(ranges, selOpts...); err != nil {
				return err
			}
		}

		for _, key := range o.selectionAttrs.Keys() {
			if err := w.SetSelectionAttribute(key, o.selectionAttrs[key]); err != nil {
				return err
			}
		}
		return nil
	})
}

func toRange(root *model.Element, pr PathRange) (model.Range, error) {
	start, err := model.NewPosition(root, pr.Start)
	if err != nil {
		return model.Range{}, err
	}
	end, err := model.NewPosition(root, pr.End)
	if err != nil {
		return model.Range{}, err
	}
	return model.NewRange(start, end), nil
}

// GetData returns the content of a root with the document selection marked.
func GetData(m *model.Model, opts ...Option) string {
	o := collect(opts)
	root := m.Document().Root(o.rootName)
	if root == nil {
		return ""
	}
	if o.withoutSel {
		return Stringify(root)
	}
	sel := m.Document().Selection()
	var ranges []model.Range
	for _, r := range sel.Ranges() {
		if r.Root() == root {
			ranges = append(ranges, r)
		}
	}
	return Stringify(root, ranges...)
}

// ParseRanges parses data into a detached fragment and returns the marked
// ranges rooted in that fragment.
func ParseRanges(data string) (*model.Element, []model.Range, error) {
	parsed, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	ranges := make([]model.Range, 0, len(parsed.Ranges))
	for _, pr := range parsed.Ranges {
		r, err := toRange(parsed.Fragment, pr)
		if err != nil {
			return nil, nil, err
		}
		ranges = append(ranges, r)
	}
	return parsed.Fragment, ranges, nil
}
