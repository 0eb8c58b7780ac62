package content

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/livedoc/internal/engine/model"
)

// Unit is the step ModifySelection moves the focus by.
type Unit string

const (
	// UnitCharacter steps over one user-perceived character (grapheme cluster).
	UnitCharacter Unit = "character"
	// UnitCodePoint steps over one code point. Combining marks are separate steps.
	UnitCodePoint Unit = "codePoint"
	// UnitWord steps to the next word boundary.
	UnitWord Unit = "word"
)

// DefaultWordBoundaries are the characters that end a word.
const DefaultWordBoundaries = " ,.?!:;\"-()"

// ModifyOptions tunes ModifySelection.
type ModifyOptions struct {
	// Unit defaults to UnitCharacter.
	Unit Unit
	// Direction is model.Forward or model.Backward.
	Direction model.Direction
	// WordBoundaries overrides DefaultWordBoundaries.
	WordBoundaries string
}

// ModifySelection moves the focus of sel by one unit in the given direction.
// The anchor stays, so a collapsed selection becomes a range. Limit elements
// are never left and a selectable element on the way is selected whole.
// When there is nowhere to move, sel is unchanged.
func ModifySelection(m *model.Model, sel model.SelectionView, opts ModifyOptions) error {
	focus := sel.Focus()
	if focus.IsZero() {
		return nil
	}

	md := newModifier(m.Schema(), focus, opts)
	for {
		v, ok := md.walker.Next()
		if !ok {
			return nil
		}
		if p, found := md.tryExtendingTo(v); found {
			return setSelectionFocus(m, sel, p)
		}
	}
}

type modifier struct {
	schema     model.Schema
	walker     *model.TreeWalker
	forward    bool
	unit       Unit
	boundaries string
}

func newModifier(schema model.Schema, focus model.Position, opts ModifyOptions) *modifier {
	forward := opts.Direction != model.Backward
	unit := opts.Unit
	if unit == "" {
		unit = UnitCharacter
	}
	boundaries := opts.WordBoundaries
	if boundaries == "" {
		boundaries = DefaultWordBoundaries
	}

	// The search runs to the edge of the root in the chosen direction.
	root := focus.Root()
	var search model.Range
	direction := model.Forward
	if forward {
		search = model.NewRange(focus, model.PositionAtEnd(root))
	} else {
		search = model.NewRange(model.PositionAt(root, 0), focus)
		direction = model.Backward
	}

	return &modifier{
		schema: schema,
		walker: model.NewTreeWalker(model.WalkerOptions{
			Boundaries:       &search,
			Direction:        direction,
			SingleCharacters: true,
		}),
		forward:    forward,
		unit:       unit,
		boundaries: boundaries,
	}
}

// tryExtendingTo decides whether the step v ends the move and where.
func (md *modifier) tryExtendingTo(v model.WalkerValue) (model.Position, bool) {
	if v.Type == model.WalkerText {
		if md.unit == UnitWord {
			return md.wordBreakPosition(), true
		}
		return md.characterPosition(), true
	}

	entering := model.WalkerElementStart
	if !md.forward {
		entering = model.WalkerElementEnd
	}

	if v.Type == entering {
		if md.schema.IsSelectable(v.Item) {
			if md.forward {
				return model.PositionAfter(v.Item), true
			}
			return model.PositionBefore(v.Item), true
		}
		if canHoldText(md.schema, v.NextPosition) {
			return v.NextPosition, true
		}
		return model.Position{}, false
	}

	// Leaving an element.
	if md.schema.IsLimit(v.Item) {
		md.walker.Skip(func(model.WalkerValue) bool { return true })
		return model.Position{}, false
	}
	if canHoldText(md.schema, v.NextPosition) {
		return v.NextPosition, true
	}
	return model.Position{}, false
}

// characterPosition returns the walker position, first advancing it out of
// the middle of a grapheme cluster for the character unit. Code points are
// never split because the walker steps whole runes.
func (md *modifier) characterPosition() model.Position {
	p := md.walker.Position()
	if md.unit != UnitCharacter {
		return p
	}
	for t := p.TextNode(); t != nil; t = p.TextNode() {
		if model.IsGraphemeBoundary(t.Data(), p.Offset()-t.StartOffset()) {
			break
		}
		if _, ok := md.walker.Next(); !ok {
			break
		}
		p = md.walker.Position()
	}
	return p
}

// wordBreakPosition advances the walker through text until the next
// character is a word boundary or the text ends. Text nodes with different
// attributes do not end a word.
func (md *modifier) wordBreakPosition() model.Position {
	for {
		p := md.walker.Position()
		r, ok := md.adjacentRune(p)
		if !ok {
			return p
		}
		if strings.ContainsRune(md.boundaries, r) && md.atGraphemeBoundary(p) {
			return p
		}
		if _, ok := md.walker.Next(); !ok {
			return p
		}
	}
}

// adjacentRune returns the rune next to p in the walking direction, if
// there is text there.
func (md *modifier) adjacentRune(p model.Position) (rune, bool) {
	var data string
	var offset int
	if t := p.TextNode(); t != nil {
		data, offset = t.Data(), p.Offset()-t.StartOffset()
	} else {
		var n model.Node
		if md.forward {
			n = p.NodeAfter()
		} else {
			n = p.NodeBefore()
		}
		t, ok := n.(*model.Text)
		if !ok {
			return 0, false
		}
		data, offset = t.Data(), 0
		if !md.forward {
			offset = len(data)
		}
	}

	var r rune
	if md.forward {
		if offset >= len(data) {
			return 0, false
		}
		r, _ = utf8.DecodeRuneInString(data[offset:])
	} else {
		if offset <= 0 {
			return 0, false
		}
		r, _ = utf8.DecodeLastRuneInString(data[:offset])
	}
	return r, true
}

func (md *modifier) atGraphemeBoundary(p model.Position) bool {
	t := p.TextNode()
	if t == nil {
		return true
	}
	return model.IsGraphemeBoundary(t.Data(), p.Offset()-t.StartOffset())
}
