package content

import (
	"github.com/dshills/livedoc/internal/engine/model"
)

// DeleteOptions tunes DeleteContent.
type DeleteOptions struct {
	// LeaveUnmerged keeps the elements on both ends of the selection apart.
	LeaveUnmerged bool

	// DoNotResetEntireContent stops a selection spanning the whole limit
	// element from being replaced with a single empty paragraph.
	DoNotResetEntireContent bool

	// DoNotAutoparagraph stops a paragraph from being inserted where the
	// selection ends up in a place that cannot hold text.
	DoNotAutoparagraph bool
}

// DeleteContent removes the content of sel's first range, merges the
// elements that were cut through and collapses sel at the junction.
// A collapsed selection, or one already in the graveyard, is left alone.
func DeleteContent(m *model.Model, sel model.SelectionView, opts DeleteOptions) error {
	if sel.IsCollapsed() {
		return nil
	}
	selRange := sel.FirstRange()
	if selRange.Root().RootName() == model.GraveyardName {
		return nil
	}
	schema := m.Schema()

	return m.Change(func(w *model.Writer) error {
		if !opts.DoNotResetEntireContent && shouldReplaceEntireContent(schema, sel) {
			return replaceEntireContent(w, sel)
		}

		var autoparagraphAttrs model.Attributes
		if !opts.DoNotAutoparagraph {
			if el := sel.SelectedElement(); el != nil {
				autoparagraphAttrs = schema.AttributesWithProperty(el, "copyOnReplace", true)
			}
		}

		scope := model.NewLiveScope()
		defer scope.Close()

		startPos, endPos, err := selectedBlockBoundaries(m, selRange)
		if err != nil {
			return err
		}
		start, err := scope.Position(startPos, model.StickToPrevious)
		if err != nil {
			return err
		}
		end, err := scope.Position(endPos, model.StickToNext)
		if err != nil {
			return err
		}

		if !start.ToPosition().IsTouching(end.ToPosition()) {
			if err := w.Remove(model.NewRange(start.ToPosition(), end.ToPosition())); err != nil {
				return err
			}
		}

		if !opts.LeaveUnmerged {
			if err := mergeBranches(w, start.ToPosition(), end.ToPosition()); err != nil {
				return err
			}
			if err := schema.RemoveDisallowedAttributes(start.ToPosition().Parent().Children(), w); err != nil {
				return err
			}
		}

		if err := setSelection(w, sel, start.ToPosition()); err != nil {
			return err
		}
		if !opts.DoNotAutoparagraph && shouldAutoparagraph(schema, start.ToPosition()) {
			return insertParagraph(w, start.ToPosition(), sel, autoparagraphAttrs)
		}
		return nil
	})
}

// selectedBlockBoundaries returns the range boundaries trimmed to what the
// user sees as selected: an end touching the start of a trailing block
// does not select that block.
//
//	<paragraph>[a</paragraph><paragraph>]b</paragraph>
//
// selects only the first paragraph's content.
func selectedBlockBoundaries(m *model.Model, r model.Range) (model.Position, model.Position, error) {
	start, end := r.Start, r.End
	noMarkers := model.HasContentOptions{IgnoreMarkers: true}
	if !m.HasContent(r, noMarkers) {
		return start, end, nil
	}

	endBlock := parentBlock(m.Schema(), end)
	if endBlock == nil || !end.IsTouching(model.PositionAt(endBlock, 0)) {
		return start, end, nil
	}

	shrunk := model.NewSelection(r)
	if err := ModifySelection(m, shrunk, ModifyOptions{Direction: model.Backward}); err != nil {
		return start, end, err
	}
	newEnd := shrunk.LastPosition()
	if !m.HasContent(model.NewRange(newEnd, end), noMarkers) {
		end = newEnd
	}
	return start, end, nil
}

// parentBlock returns the closest block containing p, or nil when a limit
// comes first.
func parentBlock(schema model.Schema, p model.Position) *model.Element {
	parent := p.Parent()
	if parent == nil {
		return nil
	}
	for _, el := range parent.Ancestors(true, true) {
		if schema.IsLimit(el) {
			return nil
		}
		if schema.IsBlock(el) {
			return el
		}
	}
	return nil
}

// mergeBranches joins the elements the removed range cut through, from the
// deepest level up to the common ancestor of both ends.
func mergeBranches(w *model.Writer, start, end model.Position) error {
	m := w.Model()
	if !shouldMerge(m.Schema(), start, end) {
		return nil
	}

	startAncestor, endAncestor := ancestorsBelowCommon(start, end)
	if startAncestor == nil || endAncestor == nil {
		return nil
	}
	common := startAncestor.Parent()

	if preferMergeRight(m, startAncestor, endAncestor) {
		return mergeBranchesRight(w, start, end, common)
	}
	return mergeBranchesLeft(w, start, end, common)
}

// preferMergeRight picks the merge direction: the right element survives
// only when the left side is empty and the right side is not.
//
//	<heading1>[</heading1><paragraph>]bar</paragraph> -> <paragraph>[]bar</paragraph>
//	<heading1>foo[</heading1><paragraph>]bar</paragraph> -> <heading1>foo[]bar</heading1>
func preferMergeRight(m *model.Model, startAncestor, endAncestor *model.Element) bool {
	noMarkers := model.HasContentOptions{IgnoreMarkers: true}
	return !m.HasContentIn(startAncestor, noMarkers) && m.HasContentIn(endAncestor, noMarkers)
}

// mergeBranchesLeft merges the end branch into the start branch, keeping
// the left elements' names and attributes.
func mergeBranchesLeft(w *model.Writer, start, end model.Position, common *model.Element) error {
	startElement, endElement := start.Parent(), end.Parent()
	if reachedCommonAncestor(startElement, endElement, common) {
		return nil
	}

	start = model.PositionAfter(startElement)
	end = model.PositionBefore(endElement)

	if !end.IsEqual(start) {
		if err := w.Insert(endElement, start); err != nil {
			return err
		}
	}
	if err := w.Merge(start); err != nil {
		return err
	}

	// Empty ancestors left behind on the right are removed.
	for isEmptyParent(end) {
		toRemove := end.Parent()
		end = model.PositionBefore(toRemove)
		if err := w.RemoveNode(toRemove); err != nil {
			return err
		}
	}

	if !shouldMerge(w.Model().Schema(), start, end) {
		return nil
	}
	return mergeBranchesLeft(w, start, end, common)
}

// mergeBranchesRight merges the start branch into the end branch, keeping
// the right elements' names and attributes.
func mergeBranchesRight(w *model.Writer, start, end model.Position, common *model.Element) error {
	startElement, endElement := start.Parent(), end.Parent()
	if reachedCommonAncestor(startElement, endElement, common) {
		return nil
	}

	start = model.PositionAfter(startElement)
	end = model.PositionBefore(endElement)

	if !end.IsEqual(start) {
		if err := w.Insert(startElement, end); err != nil {
			return err
		}
	}

	// Empty ancestors left behind on the left are removed.
	for isEmptyParent(start) {
		toRemove := start.Parent()
		start = model.PositionBefore(toRemove)
		if err := w.RemoveNode(toRemove); err != nil {
			return err
		}
	}

	end = model.PositionBefore(endElement)
	if err := mergeRight(w, end); err != nil {
		return err
	}

	if !shouldMerge(w.Model().Schema(), start, end) {
		return nil
	}
	return mergeBranchesRight(w, start, end, common)
}

// mergeRight merges the element after position into the one before it and
// gives the survivor the right element's name and attributes.
func mergeRight(w *model.Writer, position model.Position) error {
	left, ok := position.NodeBefore().(*model.Element)
	if !ok {
		return nil
	}
	right, ok := position.NodeAfter().(*model.Element)
	if !ok {
		return nil
	}

	if left.Name() != right.Name() {
		if err := w.Rename(left, right.Name()); err != nil {
			return err
		}
	}
	if err := w.ClearAttributes(left); err != nil {
		return err
	}
	if err := w.SetAttributes(right.Attributes(), left); err != nil {
		return err
	}
	return w.Merge(position)
}

func isEmptyParent(p model.Position) bool {
	parent := p.Parent()
	return parent != nil && parent.Parent() != nil && parent.IsEmpty()
}

// reachedCommonAncestor stops merging once either side is the common ancestor.
func reachedCommonAncestor(startElement, endElement, common *model.Element) bool {
	return startElement == common || endElement == common
}

// shouldMerge reports whether the parents of start and end still need and
// allow merging.
func shouldMerge(schema model.Schema, start, end model.Position) bool {
	startElement, endElement := start.Parent(), end.Parent()
	if startElement == endElement {
		return false
	}
	if isLimitPair(schema, startElement, endElement) {
		return false
	}
	return !crossesLimit(schema, start, end)
}

// isLimitPair reports whether either side of a merge is a limit element.
func isLimitPair(schema model.Schema, startElement, endElement *model.Element) bool {
	return schema.IsLimit(startElement) || schema.IsLimit(endElement)
}

// crossesLimit reports whether merging start's and end's parents would
// step over a limit element between them.
//
//	<limit><paragraph>x[</paragraph></limit><paragraph>]</paragraph>
func crossesLimit(schema model.Schema, start, end model.Position) bool {
	for _, v := range model.NewRange(start, end).Values(model.WalkerOptions{}) {
		if schema.IsLimit(v.Item) {
			return true
		}
	}
	return false
}

// ancestorsBelowCommon returns the ancestors of a and b that are children of
// their deepest common ancestor. Either is nil when its position sits
// directly in the common ancestor.
func ancestorsBelowCommon(a, b model.Position) (*model.Element, *model.Element) {
	ancestorsA, ancestorsB := a.Ancestors(), b.Ancestors()
	i := 0
	for i < len(ancestorsA) && i < len(ancestorsB) && ancestorsA[i] == ancestorsB[i] {
		i++
	}
	var left, right *model.Element
	if i < len(ancestorsA) {
		left = ancestorsA[i]
	}
	if i < len(ancestorsB) {
		right = ancestorsB[i]
	}
	return left, right
}

func shouldAutoparagraph(schema model.Schema, p model.Position) bool {
	ctx := model.ContextOf(p)
	return !schema.CheckChildName(ctx, model.TextName) && schema.CheckChildName(ctx, ParagraphName)
}

func insertParagraph(w *model.Writer, p model.Position, sel model.SelectionView, attrs model.Attributes) error {
	paragraph := w.CreateElement(ParagraphName, nil)
	schema := w.Model().Schema()
	ctx := model.ContextOfItem(paragraph)
	for _, key := range attrs.Keys() {
		if schema.CheckAttribute(ctx, key) {
			if err := w.SetAttribute(key, attrs[key], paragraph); err != nil {
				return err
			}
		}
	}
	if err := w.Insert(paragraph, p); err != nil {
		return err
	}
	return setSelection(w, sel, model.PositionAt(paragraph, 0))
}

// shouldReplaceEntireContent reports whether sel covers the whole content
// of its limit element across more than one block, with a paragraph
// allowed in the limit.
func shouldReplaceEntireContent(schema model.Schema, sel model.SelectionView) bool {
	limit := schema.LimitElement(sel.Ranges())
	if limit == nil || !sel.ContainsEntireContent(limit) {
		return false
	}
	r := sel.FirstRange()
	if r.Start.Parent() == r.End.Parent() {
		return false
	}
	return schema.CheckChildName(model.ContextOfItem(limit), ParagraphName)
}

func replaceEntireContent(w *model.Writer, sel model.SelectionView) error {
	limit := w.Model().Schema().LimitElement(sel.Ranges())
	if err := w.Remove(model.RangeIn(limit)); err != nil {
		return err
	}
	return insertParagraph(w, model.PositionAt(limit, 0), sel, nil)
}
