package content

import (
	"fmt"

	"github.com/dshills/livedoc/internal/engine/devutil"
	"github.com/dshills/livedoc/internal/engine/model"
)

// InsertContent inserts content (a node, or the children of a document
// fragment) at target and returns the range of the document that changed.
//
// Target is resolved as follows: nil means the document selection, a
// selection is used and updated in place, anything else is wrapped in a new
// selection. A non-collapsed selection is deleted first. Content the schema
// does not allow where it lands is split out of its parent, wrapped in a
// paragraph, unwrapped or dropped, in that order of preference. Afterwards
// the selection is placed at the end of the inserted content, or on the last
// inserted object when no text may follow it.
func InsertContent(m *model.Model, content model.Node, target model.Selectable) (model.Range, error) {
	var affected model.Range
	err := m.Change(func(w *model.Writer) error {
		sel := selectionOf(m, target)
		if !sel.IsCollapsed() {
			if err := DeleteContent(m, sel, DeleteOptions{DoNotAutoparagraph: true}); err != nil {
				return err
			}
		}

		ins := newInsertion(w, sel.Anchor())
		defer ins.close()

		var nodes []model.Node
		if el, ok := content.(*model.Element); ok && el.Kind() == model.KindDocumentFragment {
			nodes = el.Children()
		} else {
			nodes = []model.Node{content}
		}
		if err := ins.handleNodes(nodes); err != nil {
			return err
		}

		if r, ok := ins.selectionRange(); ok {
			if err := setSelection(w, sel, r); err != nil {
				return err
			}
		} else {
			m.Logger().Warn("no selection range after insertion", "position", ins.position.String())
		}

		if r, ok := ins.affectedRange(); ok {
			affected = r
		} else {
			affected = model.CollapsedRange(sel.Anchor())
		}
		return nil
	})
	return affected, err
}

// insertion carries the state of one InsertContent call. Nodes are collected
// in a scratch fragment and flushed into the document whenever the insertion
// position has to move to another parent.
type insertion struct {
	w      *model.Writer
	schema model.Schema
	scope  *model.LiveScope

	position model.Position

	// Only elements split by this insertion, and the original parent, may
	// be merged with inserted content.
	canMergeWith map[*model.Element]bool

	fragment         *model.Element
	fragmentPosition model.Position

	firstNode         model.Node
	lastNode          model.Node
	lastAutoParagraph *model.Element

	filterAttributesOf []model.Node

	affectedStart *model.LivePosition
	affectedEnd   *model.LivePosition

	nodeToSelect model.Node
}

func newInsertion(w *model.Writer, position model.Position) *insertion {
	fragment := w.CreateDocumentFragment()
	ins := &insertion{
		w:                w,
		schema:           w.Model().Schema(),
		scope:            model.NewLiveScope(),
		position:         position,
		canMergeWith:     map[*model.Element]bool{},
		fragment:         fragment,
		fragmentPosition: model.PositionAt(fragment, 0),
	}
	if parent := position.Parent(); parent != nil {
		ins.canMergeWith[parent] = true
	}
	return ins
}

func (ins *insertion) close() {
	ins.scope.Close()
}

// handleNodes places nodes one after another, then flushes the scratch
// fragment and merges the inserted content with what follows it.
func (ins *insertion) handleNodes(nodes []model.Node) error {
	for _, node := range nodes {
		if err := ins.handleNode(node); err != nil {
			return err
		}
	}
	if err := ins.insertPartialFragment(); err != nil {
		return err
	}
	if ins.lastAutoParagraph != nil {
		if err := ins.updateLastNodeFromAutoParagraph(ins.lastAutoParagraph); err != nil {
			return err
		}
	}
	if err := ins.mergeOnRight(); err != nil {
		return err
	}

	filtered := ins.filterAttributesOf
	ins.filterAttributesOf = nil
	return ins.schema.RemoveDisallowedAttributes(attachedNodes(filtered), ins.w)
}

func (ins *insertion) handleNode(node model.Node) error {
	if ins.schema.IsObject(node) {
		return ins.handleObject(node)
	}

	allowed, err := ins.checkAndAutoParagraphToAllowedPosition(node)
	if err != nil {
		return err
	}
	if !allowed {
		allowed, err = ins.checkAndSplitToAllowedPosition(node)
		if err != nil {
			return err
		}
		if !allowed {
			return ins.handleDisallowedNode(node)
		}
	}

	if err := ins.appendToFragment(node); err != nil {
		return err
	}
	if ins.firstNode == nil {
		ins.firstNode = node
	}
	ins.lastNode = node
	return nil
}

func (ins *insertion) handleObject(node model.Node) error {
	allowed, err := ins.checkAndSplitToAllowedPosition(node)
	if err != nil {
		return err
	}
	if allowed {
		return ins.appendToFragment(node)
	}
	return ins.tryAutoparagraphing(node)
}

// handleDisallowedNode unwraps a disallowed element and retries with its
// children. Disallowed text is wrapped in a paragraph when that helps.
func (ins *insertion) handleDisallowedNode(node model.Node) error {
	if el, ok := node.(*model.Element); ok {
		m := ins.w.Model()
		m.Logger().Debug("unwrapping element not allowed at insertion position",
			"element", el.Name(), "position", ins.position.String())
		return ins.handleNodes(el.Children())
	}
	return ins.tryAutoparagraphing(node)
}

// insertPartialFragment moves what was collected into the document at the
// insertion position. The first node of the whole insertion goes in alone so
// it can merge with its left sibling before anything follows it.
func (ins *insertion) insertPartialFragment() error {
	if ins.fragment.IsEmpty() {
		return nil
	}

	live, err := ins.scope.Position(ins.position, model.StickToNext)
	if err != nil {
		return err
	}
	defer live.Detach()
	if err := ins.setAffectedBoundaries(ins.position); err != nil {
		return err
	}

	if ins.fragment.Child(0) == ins.firstNode {
		if err := ins.w.Insert(ins.firstNode, ins.position); err != nil {
			return err
		}
		if err := ins.mergeOnLeft(); err != nil {
			return err
		}
		ins.position = live.ToPosition()
	}

	if !ins.fragment.IsEmpty() {
		if err := ins.w.Insert(ins.fragment, ins.position); err != nil {
			return err
		}
	}

	ins.fragmentPosition = model.PositionAt(ins.fragment, 0)
	ins.position = live.ToPosition()
	return nil
}

// updateLastNodeFromAutoParagraph makes an auto-paragraph that ends the
// inserted content its last node, so it can merge with what follows.
func (ins *insertion) updateLastNodeFromAutoParagraph(paragraph *model.Element) error {
	if ins.lastNode == nil {
		return nil
	}
	afterParagraph := model.PositionAfter(paragraph)
	// Text merged into a neighbour is replaced, so a detached last node is
	// already behind the paragraph.
	if ins.lastNode.Parent() != nil {
		if !afterParagraph.IsAfter(model.PositionAfter(ins.lastNode)) {
			return nil
		}
	}

	ins.lastNode = paragraph
	if ins.position.Parent() != paragraph || !ins.position.IsAtEnd() {
		return fmt.Errorf("insertion position %s outside auto-paragraph: %w", ins.position, ErrAlgorithmInvariant)
	}
	ins.position = afterParagraph
	return ins.setAffectedBoundaries(ins.position)
}

// appendToFragment adds node to the scratch fragment. The caller has
// already made sure the schema allows node at the insertion position.
func (ins *insertion) appendToFragment(node model.Node) error {
	if !ins.schema.CheckChild(model.ContextOf(ins.position), node) {
		return fmt.Errorf("%s not allowed at %s: %w", model.ItemName(node), ins.position, ErrAlgorithmInvariant)
	}
	if err := ins.w.Insert(node, ins.fragmentPosition); err != nil {
		return err
	}
	ins.fragmentPosition = ins.fragmentPosition.ShiftedBy(node.OffsetSize())

	// An object after which no text may go is selected instead of being
	// followed by a collapsed selection.
	if ins.schema.IsObject(node) && !canHoldText(ins.schema, ins.position) {
		ins.nodeToSelect = node
	} else {
		ins.nodeToSelect = nil
	}
	ins.filterAttributesOf = append(ins.filterAttributesOf, node)
	return nil
}

// setAffectedBoundaries widens the affected range to include position.
// The boundaries are kept as two live positions sticking outwards so that
// content inserted between them extends the range.
func (ins *insertion) setAffectedBoundaries(position model.Position) error {
	if ins.affectedStart == nil {
		start, err := ins.scope.Position(position, model.StickToPrevious)
		if err != nil {
			return err
		}
		ins.affectedStart = start
	}
	if ins.affectedEnd == nil || ins.affectedEnd.ToPosition().IsBefore(position) {
		return ins.replaceAffectedEnd(position)
	}
	return nil
}

func (ins *insertion) replaceAffectedStart(p model.Position) error {
	start, err := ins.scope.Position(p, model.StickToPrevious)
	if err != nil {
		return err
	}
	if ins.affectedStart != nil {
		ins.affectedStart.Detach()
	}
	ins.affectedStart = start
	return nil
}

func (ins *insertion) replaceAffectedEnd(p model.Position) error {
	end, err := ins.scope.Position(p, model.StickToNext)
	if err != nil {
		return err
	}
	if ins.affectedEnd != nil {
		ins.affectedEnd.Detach()
	}
	ins.affectedEnd = end
	return nil
}

// mergeOnLeft merges the first inserted element into its left sibling when
// that sibling was split by this insertion.
//
//	<paragraph>f[]oo</paragraph> + <paragraph>A</paragraph>... -> <paragraph>fA</paragraph>...
func (ins *insertion) mergeOnLeft() error {
	node, ok := ins.firstNode.(*model.Element)
	if !ok || !ins.canMergeLeft(node) {
		return nil
	}

	mergePos, err := ins.scope.Position(model.PositionBefore(node), model.StickToNext)
	if err != nil {
		return err
	}
	defer mergePos.Detach()
	live, err := ins.scope.Position(ins.position, model.StickToNext)
	if err != nil {
		return err
	}
	defer live.Detach()

	left, _ := mergePos.ToPosition().NodeBefore().(*model.Element)
	if ins.affectedStart.ToPosition().IsEqual(mergePos.ToPosition()) {
		if err := ins.replaceAffectedStart(model.PositionAtEnd(left)); err != nil {
			return err
		}
	}

	// Node references must survive the merge, which removes node.
	if ins.firstNode == ins.lastNode {
		ins.firstNode = left
		ins.lastNode = left
	}

	if err := ins.w.Merge(mergePos.ToPosition()); err != nil {
		return err
	}

	if mergePos.ToPosition().IsEqual(ins.affectedEnd.ToPosition()) && ins.firstNode == ins.lastNode {
		if err := ins.replaceAffectedEnd(model.PositionAtEnd(left)); err != nil {
			return err
		}
	}

	ins.position = live.ToPosition()
	if parent := ins.position.Parent(); parent != nil {
		ins.filterAttributesOf = append(ins.filterAttributesOf, parent)
	}
	return nil
}

// mergeOnRight merges the last inserted element with its right sibling when
// that sibling was split by this insertion.
//
//	...<paragraph>B</paragraph> + <paragraph>oo</paragraph> -> ...<paragraph>B[]oo</paragraph>
func (ins *insertion) mergeOnRight() error {
	node, ok := ins.lastNode.(*model.Element)
	if !ok || !ins.canMergeRight(node) {
		return nil
	}

	mergePos, err := ins.scope.Position(model.PositionAfter(node), model.StickToNext)
	if err != nil {
		return err
	}
	defer mergePos.Detach()
	if !ins.position.IsEqual(mergePos.ToPosition()) {
		return fmt.Errorf("insertion position %s not after last node: %w", ins.position, ErrAlgorithmInvariant)
	}

	// The position goes into the left element so the merge does not move
	// it to the graveyard, and sticks to what precedes it.
	ins.position = model.PositionAtEnd(node)
	live, err := ins.scope.Position(ins.position, model.StickToPrevious)
	if err != nil {
		return err
	}
	defer live.Detach()

	if ins.affectedEnd.ToPosition().IsEqual(mergePos.ToPosition()) {
		if err := ins.replaceAffectedEnd(model.PositionAtEnd(node)); err != nil {
			return err
		}
	}

	if ins.firstNode == ins.lastNode {
		ins.firstNode = node
		ins.lastNode = node
	}

	if err := ins.w.Merge(mergePos.ToPosition()); err != nil {
		return err
	}

	if mergePos.ToPosition().ShiftedBy(-1).IsEqual(ins.affectedStart.ToPosition()) && ins.firstNode == ins.lastNode {
		if err := ins.replaceAffectedStart(model.PositionAt(node, 0)); err != nil {
			return err
		}
	}

	ins.position = live.ToPosition()
	if parent := ins.position.Parent(); parent != nil {
		ins.filterAttributesOf = append(ins.filterAttributesOf, parent)
	}
	return nil
}

func (ins *insertion) canMergeLeft(node *model.Element) bool {
	prev, ok := node.PreviousSibling().(*model.Element)
	return ok && ins.canMergeWith[prev] && ins.schema.CheckMerge(prev, node)
}

func (ins *insertion) canMergeRight(node *model.Element) bool {
	next, ok := node.NextSibling().(*model.Element)
	return ok && ins.canMergeWith[next] && ins.schema.CheckMerge(node, next)
}

// tryAutoparagraphing wraps node in a paragraph and handles the paragraph
// instead, when the paragraph could go somewhere and accepts node.
func (ins *insertion) tryAutoparagraphing(node model.Node) error {
	paragraph := ins.w.CreateElement(ParagraphName, nil)
	if ins.allowedIn(ins.position.Parent(), paragraph) == nil ||
		!ins.schema.CheckChild(model.ContextOfItem(paragraph), node) {
		ins.w.Model().Logger().Debug("dropping content not allowed at insertion position",
			"item", model.ItemName(node), "content", devutil.Stringify(node), "position", ins.position.String())
		return nil
	}
	if err := ins.w.Append(node, paragraph); err != nil {
		return err
	}
	return ins.handleNode(paragraph)
}

// checkAndAutoParagraphToAllowedPosition reports whether node fits at the
// insertion position, inserting an empty paragraph to hold it if that makes
// it fit.
func (ins *insertion) checkAndAutoParagraphToAllowedPosition(node model.Node) (bool, error) {
	parent := ins.position.Parent()
	if parent == nil {
		return false, nil
	}
	parentCtx := model.ContextOfItem(parent)
	if ins.schema.CheckChild(parentCtx, node) {
		return true, nil
	}
	if !ins.schema.CheckChildName(parentCtx, ParagraphName) ||
		!ins.schema.CheckChild(model.NewContext(ParagraphName), node) {
		return false, nil
	}

	if err := ins.insertPartialFragment(); err != nil {
		return false, err
	}

	paragraph := ins.w.CreateElement(ParagraphName, nil)
	if err := ins.w.Insert(paragraph, ins.position); err != nil {
		return false, err
	}
	if err := ins.setAffectedBoundaries(ins.position); err != nil {
		return false, err
	}
	ins.lastAutoParagraph = paragraph
	ins.position = model.PositionAt(paragraph, 0)
	return true, nil
}

// checkAndSplitToAllowedPosition moves the insertion position up to the
// closest ancestor that accepts node, splitting the elements in between.
// Positions at an element's edge step out of it instead of splitting.
func (ins *insertion) checkAndSplitToAllowedPosition(node model.Node) (bool, error) {
	allowedIn := ins.allowedIn(ins.position.Parent(), node)
	if allowedIn == nil {
		return false, nil
	}

	if allowedIn != ins.position.Parent() {
		if err := ins.insertPartialFragment(); err != nil {
			return false, err
		}
	}

	for allowedIn != ins.position.Parent() {
		parent := ins.position.Parent()
		switch {
		case ins.position.IsAtStart():
			//	<paragraph>[]foo</paragraph> -> []<paragraph>foo</paragraph>
			ins.position = model.PositionBefore(parent)
			// An empty element the insertion started in is dropped.
			if parent.IsEmpty() && parent.Parent() == allowedIn {
				if err := ins.w.RemoveNode(parent); err != nil {
					return false, err
				}
			}
		case ins.position.IsAtEnd():
			ins.position = model.PositionAfter(parent)
		default:
			after := model.PositionAfter(parent)
			if err := ins.setAffectedBoundaries(ins.position); err != nil {
				return false, err
			}
			if _, err := ins.w.Split(ins.position, nil); err != nil {
				return false, err
			}
			ins.position = after
			if next, ok := ins.position.NodeAfter().(*model.Element); ok {
				ins.canMergeWith[next] = true
			}
		}
	}
	return true, nil
}

// allowedIn returns el or its closest ancestor that accepts child, without
// looking past a limit element.
func (ins *insertion) allowedIn(el *model.Element, child model.Node) *model.Element {
	for el != nil {
		if ins.schema.CheckChild(model.ContextOfItem(el), child) {
			return el
		}
		if ins.schema.IsLimit(el) {
			return nil
		}
		el = el.Parent()
	}
	return nil
}

// selectionRange is where the selection goes after the insertion.
func (ins *insertion) selectionRange() (model.Range, bool) {
	if ins.nodeToSelect != nil {
		return model.RangeOn(ins.nodeToSelect), true
	}
	return ins.schema.NearestSelectionRange(ins.position, model.Both)
}

func (ins *insertion) affectedRange() (model.Range, bool) {
	if ins.affectedStart == nil {
		return model.Range{}, false
	}
	return model.NewRange(ins.affectedStart.ToPosition(), ins.affectedEnd.ToPosition()), true
}

// attachedNodes drops nodes that merges took out of the tree.
func attachedNodes(nodes []model.Node) []model.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Parent() != nil && n.Index() >= 0 {
			out = append(out, n)
		}
	}
	return out
}
