package model

// TransformedBy returns the ranges r becomes after op was applied. A move that
// takes part of the range elsewhere can split it into up to three pieces.
func (r Range) TransformedBy(op Operation) []Range {
	switch o := op.(type) {
	case *InsertOperation:
		return r.transformedByInsertion(o.Position, o.HowMany(), false)
	case *MoveOperation:
		return r.transformedByMove(o.SourcePosition, o.TargetPosition, o.HowMany, false)
	case *SplitOperation:
		return []Range{r.transformedBySplit(o)}
	case *MergeOperation:
		return []Range{r.transformedByMerge(o)}
	default:
		return []Range{r}
	}
}

// TransformedByOperations transforms r by each operation in turn, keeping
// every resulting piece.
func (r Range) TransformedByOperations(ops []Operation) []Range {
	ranges := []Range{r}
	for _, op := range ops {
		var next []Range
		for _, piece := range ranges {
			next = append(next, piece.TransformedBy(op)...)
		}
		ranges = next
	}
	return ranges
}

func (r Range) transformedByInsertion(insertPosition Position, howMany int, spread bool) []Range {
	if spread && r.ContainsPosition(insertPosition) {
		return []Range{
			NewRange(r.Start, insertPosition),
			NewRange(insertPosition.ShiftedBy(howMany), r.End.transformedByInsertion(insertPosition, howMany)),
		}
	}
	return []Range{{
		Start: r.Start.transformedByInsertion(insertPosition, howMany),
		End:   r.End.transformedByInsertion(insertPosition, howMany),
	}}
}

func (r Range) transformedByMove(source, target Position, howMany int, spread bool) []Range {
	if r.IsCollapsed() {
		return []Range{CollapsedRange(r.Start.transformedByMove(source, target, howMany))}
	}

	moved := RangeFromPositionAndShift(source, howMany)
	insertPosition, ok := target.transformedByDeletion(source, howMany)
	if !ok {
		return []Range{r}
	}

	if r.ContainsPosition(target) && !spread {
		if moved.ContainsPosition(r.Start) || moved.ContainsPosition(r.End) {
			return []Range{NewRange(
				r.Start.transformedByMove(source, target, howMany),
				r.End.transformedByMove(source, target, howMany),
			)}
		}
	}

	var difference *Range
	switch diff := r.Difference(moved); len(diff) {
	case 1:
		start, _ := diff[0].Start.transformedByDeletion(source, howMany)
		end, _ := diff[0].End.transformedByDeletion(source, howMany)
		d := NewRange(start, end)
		difference = &d
	case 2:
		end, _ := r.End.transformedByDeletion(source, howMany)
		d := NewRange(r.Start, end)
		difference = &d
	}
	common, hasCommon := r.Intersection(moved)

	var out []Range
	if difference != nil {
		out = difference.transformedByInsertion(insertPosition, howMany, hasCommon || spread)
	}
	if hasCommon {
		transformed := NewRange(
			common.Start.combined(moved.Start, insertPosition),
			common.End.combined(moved.Start, insertPosition),
		)
		if len(out) == 2 {
			out = []Range{out[0], transformed, out[1]}
		} else {
			out = append(out, transformed)
		}
	}
	return out
}

func (r Range) transformedBySplit(op *SplitOperation) Range {
	start := r.Start.transformedBySplit(op)
	end := r.End.transformedBySplit(op)
	if r.End.IsEqual(op.InsertionPosition) {
		end = r.End.ShiftedBy(1)
	}
	if start.root != end.root {
		end = r.End.ShiftedBy(-1)
	}
	return NewRange(start, end)
}

func (r Range) transformedByMerge(op *MergeOperation) Range {
	deletion := op.DeletionPosition()
	if r.Start.IsEqual(op.TargetPosition) && r.End.IsEqual(deletion) {
		return CollapsedRange(r.Start)
	}

	start := r.Start.transformedByMerge(op)
	end := r.End.transformedByMerge(op)
	if start.root != end.root {
		end = r.End.ShiftedBy(-1)
	}

	if start.IsAfter(end) {
		if op.SourcePosition.IsBefore(op.TargetPosition) {
			start = end.WithOffset(0)
		} else {
			if !deletion.IsEqual(start) {
				end = deletion
			}
			start = op.TargetPosition
		}
	}
	return NewRange(start, end)
}

// changesContent reports whether op alters what lies inside r.
func (r Range) changesContent(op Operation) bool {
	switch o := op.(type) {
	case *InsertOperation:
		return r.ContainsPosition(o.Position)
	case *MoveOperation:
		return r.ContainsPosition(o.SourcePosition) || r.Start.IsEqual(o.SourcePosition) || r.ContainsPosition(o.TargetPosition)
	case *MergeOperation:
		return r.ContainsPosition(o.SourcePosition) || r.Start.IsEqual(o.SourcePosition) || r.ContainsPosition(o.TargetPosition)
	case *SplitOperation:
		return r.ContainsPosition(o.SplitPosition) || r.ContainsPosition(o.InsertionPosition)
	}
	return false
}
