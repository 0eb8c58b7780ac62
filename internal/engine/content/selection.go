package content

import (
	"fmt"

	"github.com/dshills/livedoc/internal/engine/model"
)

// ParagraphName is the element created when content needs a text container.
const ParagraphName = "paragraph"

// setSelection moves sel to target. The document selection changes through
// the writer, any other selection directly.
func setSelection(w *model.Writer, sel model.SelectionView, target model.Selectable) error {
	switch s := sel.(type) {
	case *model.DocumentSelection:
		return w.SetSelection(target)
	case *model.Selection:
		s.SetTo(target)
		return nil
	default:
		return fmt.Errorf("unsupported selection %T", sel)
	}
}

func setSelectionFocus(m *model.Model, sel model.SelectionView, p model.Position) error {
	switch s := sel.(type) {
	case *model.DocumentSelection:
		return m.Change(func(w *model.Writer) error {
			return w.SetSelectionFocus(p)
		})
	case *model.Selection:
		return s.SetFocus(p)
	default:
		return fmt.Errorf("unsupported selection %T", sel)
	}
}

// selectionOf resolves what InsertContent works on: the document selection
// for nil, a selection itself, or a new selection set to target.
func selectionOf(m *model.Model, target model.Selectable) model.SelectionView {
	switch s := target.(type) {
	case nil:
		return m.Document().Selection()
	case model.SelectionView:
		return s
	default:
		return model.NewSelection(target)
	}
}

func canHoldText(schema model.Schema, p model.Position) bool {
	return schema.CheckChildName(model.ContextOf(p), model.TextName)
}
