package model

// Low level tree mutation shared by operations. All functions keep the
// invariant that no two adjacent text nodes have equal attributes.

// insertNodes inserts nodes at position and returns the range they occupy.
func insertNodes(position Position, nodes []Node) Range {
	nodes = normalizeNodes(nodes)
	parent := position.Parent()
	splitTextAt(position, parent)
	index := position.Index()

	size := 0
	for _, n := range nodes {
		size += n.OffsetSize()
	}
	parent.insertChildren(index, nodes...)

	mergeTextAt(parent, index+len(nodes))
	mergeTextAt(parent, index)

	return NewRange(position, position.ShiftedBy(size))
}

// removeRange detaches the nodes inside a flat range and returns them.
func removeRange(r Range) []Node {
	parent := r.Start.Parent()
	splitTextAt(r.Start, parent)
	splitTextAt(r.End, parent)

	start := r.Start.Index()
	end := r.End.Index()
	removed := parent.removeChildren(start, end-start)

	mergeTextAt(parent, start)
	return removed
}

// moveRange moves a flat range to target, given in pre-move coordinates.
func moveRange(source Range, target Position) Range {
	nodes := removeRange(source)
	target, _ = target.transformedByDeletion(source.Start, source.End.Offset()-source.Start.Offset())
	return insertNodes(target, nodes)
}

// setAttributeOnRange sets or removes (nil value) an attribute on every item
// of a flat range.
func setAttributeOnRange(r Range, key string, value any) {
	parent := r.Start.Parent()
	splitTextAt(r.Start, parent)
	splitTextAt(r.End, parent)

	start := r.Start.Index()
	end := r.End.Index()
	for i := start; i < end; i++ {
		switch n := parent.children[i].(type) {
		case *Text:
			n.setAttribute(key, value)
		case *Element:
			n.setAttribute(key, value)
		}
	}

	// Merge from the end so indexes below stay valid.
	mergeTextAt(parent, end)
	for i := end - 1; i > start; i-- {
		mergeTextAt(parent, i)
	}
	mergeTextAt(parent, start)
}

// splitTextAt replaces the text node position cuts through with two new
// nodes. Text nodes are never changed in place: operations keep references
// to the nodes they inserted and measure them after execution.
func splitTextAt(position Position, parent *Element) {
	t := textNodeAt(position, parent)
	if t == nil {
		return
	}
	cut := position.Offset() - t.StartOffset()
	index := t.Index()
	parent.removeChildren(index, 1)
	parent.insertChildren(index, NewText(t.data[:cut], t.attributes), NewText(t.data[cut:], t.attributes))
}

// mergeTextAt replaces the nodes at index-1 and index with one new text node
// when both are text with equal attributes.
func mergeTextAt(parent *Element, index int) {
	if index <= 0 || index >= len(parent.children) {
		return
	}
	left, ok := parent.children[index-1].(*Text)
	if !ok {
		return
	}
	right, ok := parent.children[index].(*Text)
	if !ok || !left.attributes.Equal(right.attributes) {
		return
	}
	parent.removeChildren(index-1, 2)
	parent.insertChildren(index-1, NewText(left.data+right.data, left.attributes))
}
