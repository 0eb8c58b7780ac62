package model

import "fmt"

// Range is an ordered pair of positions, start before or equal to end.
type Range struct {
	Start Position
	End   Position
}

// NewRange creates a range. A non-collapsed range does not expand when content
// is inserted at its boundaries: its start sticks to the next content and its
// end to the previous.
func NewRange(start, end Position) Range {
	if end.IsZero() {
		end = start
	}
	if start.IsEqual(end) {
		return Range{Start: start.WithStickiness(StickToNone), End: end.WithStickiness(StickToNone)}
	}
	return Range{Start: start.WithStickiness(StickToNext), End: end.WithStickiness(StickToPrevious)}
}

// CollapsedRange returns a range starting and ending at p.
func CollapsedRange(p Position) Range {
	return NewRange(p, p)
}

// RangeIn returns the range spanning all of element's content.
func RangeIn(element *Element) Range {
	return NewRange(PositionAt(element, 0), PositionAtEnd(element))
}

// RangeOn returns the range spanning exactly item.
func RangeOn(item Item) Range {
	return NewRange(PositionBefore(item), PositionAfter(item))
}

// RangeFromPositionAndShift returns the flat range from p spanning shift offsets.
func RangeFromPositionAndShift(p Position, shift int) Range {
	return NewRange(p, p.ShiftedBy(shift))
}

// RangeFromRanges joins ranges that touch the first one into a single range.
// The first range is the reference: ranges sharing a boundary with it, or
// with a range joined to it, are absorbed.
func RangeFromRanges(ranges []Range) Range {
	if len(ranges) == 0 {
		return Range{}
	}
	if len(ranges) == 1 {
		return ranges[0]
	}

	ref := ranges[0]
	sorted := append([]Range(nil), ranges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Start.IsAfter(sorted[j].Start); j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	refIndex := 0
	for i, r := range sorted {
		if r.Start.IsEqual(ref.Start) && r.End.IsEqual(ref.End) {
			refIndex = i
			break
		}
	}

	start, end := ref.Start, ref.End
	for i := refIndex - 1; i >= 0; i-- {
		if !sorted[i].End.IsEqual(start) {
			break
		}
		start = sorted[i].Start
	}
	for i := refIndex + 1; i < len(sorted); i++ {
		if !sorted[i].Start.IsEqual(end) {
			break
		}
		end = sorted[i].End
	}
	return NewRange(start, end)
}

// Root returns the root of the range.
func (r Range) Root() *Element { return r.Start.root }

// IsZero reports whether r is the zero Range.
func (r Range) IsZero() bool { return r.Start.IsZero() }

// IsCollapsed reports whether start equals end.
func (r Range) IsCollapsed() bool { return r.Start.IsEqual(r.End) }

// IsFlat reports whether both boundaries share one parent.
func (r Range) IsFlat() bool {
	return compareArrays(r.Start.ParentPath(), r.End.ParentPath()) == arraySame
}

// IsEqual compares boundaries.
func (r Range) IsEqual(other Range) bool {
	return r.Start.IsEqual(other.Start) && r.End.IsEqual(other.End)
}

// ContainsPosition reports whether p is strictly inside the range.
func (r Range) ContainsPosition(p Position) bool {
	return p.IsAfter(r.Start) && p.IsBefore(r.End)
}

// ContainsRange reports whether other lies inside r. With loose, boundaries
// may coincide; loose has no effect for a collapsed other.
func (r Range) ContainsRange(other Range, loose bool) bool {
	if other.IsCollapsed() {
		loose = false
	}
	containsStart := r.ContainsPosition(other.Start) || (loose && r.Start.IsEqual(other.Start))
	containsEnd := r.ContainsPosition(other.End) || (loose && r.End.IsEqual(other.End))
	return containsStart && containsEnd
}

// ContainsItem reports whether item starts inside the range.
func (r Range) ContainsItem(item Item) bool {
	p := PositionBefore(item)
	return r.ContainsPosition(p) || r.Start.IsEqual(p)
}

// IsIntersecting reports whether the ranges share any content.
func (r Range) IsIntersecting(other Range) bool {
	return r.Start.IsBefore(other.End) && r.End.IsAfter(other.Start)
}

// Intersection returns the common part of both ranges.
func (r Range) Intersection(other Range) (Range, bool) {
	if !r.IsIntersecting(other) {
		return Range{}, false
	}
	start, end := r.Start, r.End
	if r.ContainsPosition(other.Start) {
		start = other.Start
	}
	if r.ContainsPosition(other.End) {
		end = other.End
	}
	return NewRange(start, end), true
}

// Difference returns the parts of r not covered by other.
func (r Range) Difference(other Range) []Range {
	if !r.IsIntersecting(other) {
		return []Range{r}
	}
	var out []Range
	if r.ContainsPosition(other.Start) {
		out = append(out, NewRange(r.Start, other.Start))
	}
	if r.ContainsPosition(other.End) {
		out = append(out, NewRange(other.End, r.End))
	}
	return out
}

// CommonAncestor returns the deepest element containing the whole range.
func (r Range) CommonAncestor() *Element {
	return r.Start.CommonAncestor(r.End)
}

// ContainedElement returns the element the range spans exactly, if any.
func (r Range) ContainedElement() *Element {
	if r.IsCollapsed() {
		return nil
	}
	after, ok := r.Start.NodeAfter().(*Element)
	if !ok {
		return nil
	}
	if before, ok := r.End.NodeBefore().(*Element); ok && before == after {
		return after
	}
	return nil
}

// MinimalFlatRanges splits r into the smallest set of flat ranges covering it.
func (r Range) MinimalFlatRanges() []Range {
	var out []Range
	diffAt := len(r.Start.CommonPath(r.End))
	pos := r.Start.clone()
	posParent := pos.Parent()

	// Go up.
	for len(pos.path) > diffAt+1 {
		howMany := posParent.MaxOffset() - pos.Offset()
		if howMany != 0 {
			out = append(out, NewRange(pos, pos.ShiftedBy(howMany)))
		}
		pos.path = pos.path[:len(pos.path)-1]
		pos = pos.WithOffset(pos.Offset() + 1)
		posParent = posParent.parent
	}

	// Go down.
	for len(pos.path) <= len(r.End.path) {
		offset := r.End.path[len(pos.path)-1]
		howMany := offset - pos.Offset()
		if howMany != 0 {
			out = append(out, NewRange(pos, pos.ShiftedBy(howMany)))
		}
		pos = pos.WithOffset(offset)
		pos.path = append(pos.path, 0)
	}
	return out
}

// Walker returns a tree walker bounded by the range.
func (r Range) Walker(opts WalkerOptions) *TreeWalker {
	opts.Boundaries = &r
	return NewTreeWalker(opts)
}

// Values walks the range and returns every step.
func (r Range) Values(opts WalkerOptions) []WalkerValue {
	w := r.Walker(opts)
	var out []WalkerValue
	for {
		v, ok := w.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Items returns the items inside the range. Element ends are not reported.
func (r Range) Items(opts WalkerOptions) []Item {
	opts.IgnoreElementEnd = true
	values := r.Values(opts)
	out := make([]Item, len(values))
	for i, v := range values {
		out[i] = v.Item
	}
	return out
}

// Positions returns every position the walk passes, starting with the range start.
func (r Range) Positions(opts WalkerOptions) []Position {
	w := r.Walker(opts)
	out := []Position{w.Position()}
	for {
		v, ok := w.Next()
		if !ok {
			return out
		}
		out = append(out, v.NextPosition)
	}
}

// String formats the range for debugging.
func (r Range) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start, r.End)
}

// Ranges is a list of ranges used as a selection source.
type Ranges []Range
