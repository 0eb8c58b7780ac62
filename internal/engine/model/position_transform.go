package model

import "slices"

// TransformedBy returns where p ends up after op was applied.
// Positions inside removed content follow it into the graveyard.
func (p Position) TransformedBy(op Operation) Position {
	switch o := op.(type) {
	case *InsertOperation:
		return p.transformedByInsertion(o.Position, o.HowMany())
	case *MoveOperation:
		return p.transformedByMove(o.SourcePosition, o.TargetPosition, o.HowMany)
	case *SplitOperation:
		return p.transformedBySplit(o)
	case *MergeOperation:
		return p.transformedByMerge(o)
	default:
		return p.clone()
	}
}

// TransformedByOperations applies TransformedBy for each operation in turn.
func (p Position) TransformedByOperations(ops []Operation) Position {
	for _, op := range ops {
		p = p.TransformedBy(op)
	}
	return p
}

func (p Position) transformedByInsertion(insertPosition Position, howMany int) Position {
	out := p.clone()
	if p.root != insertPosition.root {
		return out
	}
	switch compareArrays(insertPosition.ParentPath(), p.ParentPath()) {
	case arraySame:
		if insertPosition.Offset() < p.Offset() ||
			(insertPosition.Offset() == p.Offset() && p.stickiness != StickToPrevious) {
			out.path[len(out.path)-1] += howMany
		}
	case arrayPrefix:
		i := len(insertPosition.path) - 1
		if insertPosition.Offset() <= p.path[i] {
			out.path[i] += howMany
		}
	}
	return out
}

// transformedByDeletion returns false when p was inside the deleted content.
func (p Position) transformedByDeletion(deletePosition Position, howMany int) (Position, bool) {
	out := p.clone()
	if p.root != deletePosition.root {
		return out, true
	}
	switch compareArrays(deletePosition.ParentPath(), p.ParentPath()) {
	case arraySame:
		if deletePosition.Offset() < p.Offset() {
			if deletePosition.Offset()+howMany > p.Offset() {
				return Position{}, false
			}
			out.path[len(out.path)-1] -= howMany
		}
	case arrayPrefix:
		i := len(deletePosition.path) - 1
		if deletePosition.Offset() <= p.path[i] {
			if deletePosition.Offset()+howMany > p.path[i] {
				return Position{}, false
			}
			out.path[i] -= howMany
		}
	}
	return out, true
}

func (p Position) transformedByMove(source, target Position, howMany int) Position {
	target, ok := target.transformedByDeletion(source, howMany)
	if !ok || source.IsEqual(target) {
		return p.clone()
	}

	transformed, ok := p.transformedByDeletion(source, howMany)
	moved := !ok ||
		(source.IsEqual(p) && p.stickiness == StickToNext) ||
		(source.ShiftedBy(howMany).IsEqual(p) && p.stickiness == StickToPrevious)
	if moved {
		return p.combined(source, target)
	}
	return transformed.transformedByInsertion(target, howMany)
}

// combined re-roots p, which lies in content starting at source, onto the
// same content starting at target.
func (p Position) combined(source, target Position) Position {
	i := len(source.path) - 1
	path := target.Path()
	path[len(path)-1] += p.path[i] - source.Offset()
	path = append(path, p.path[i+1:]...)
	return Position{root: target.root, path: path, stickiness: p.stickiness}
}

func (p Position) transformedBySplit(op *SplitOperation) Position {
	moved := op.MovedRange()
	if moved.ContainsPosition(p) || (moved.Start.IsEqual(p) && p.stickiness == StickToNext) {
		return p.combined(op.SplitPosition, op.MoveTargetPosition())
	}
	return p.transformedByInsertion(op.InsertionPosition, 1)
}

func (p Position) transformedByMerge(op *MergeOperation) Position {
	moved := op.MovedRange()
	deletion := op.DeletionPosition()
	switch {
	case moved.ContainsPosition(p) || moved.Start.IsEqual(p):
		out := p.combined(op.SourcePosition, op.TargetPosition)
		if op.SourcePosition.IsBefore(op.TargetPosition) {
			if shifted, ok := out.transformedByDeletion(deletion, 1); ok {
				out = shifted
			}
		}
		return out
	case p.IsEqual(deletion):
		return Position{root: deletion.root, path: slices.Clone(deletion.path), stickiness: p.stickiness}
	default:
		return p.transformedByMove(deletion, op.GraveyardPosition, 1)
	}
}
