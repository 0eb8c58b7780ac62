package model

import (
	"fmt"
	"math"
)

// OperationType names an operation kind.
type OperationType string

// Operation types.
const (
	OpInsert              OperationType = "insert"
	OpMove                OperationType = "move"
	OpRemove              OperationType = "remove"
	OpReinsert            OperationType = "reinsert"
	OpDetach              OperationType = "detach"
	OpSplit               OperationType = "split"
	OpMerge               OperationType = "merge"
	OpRename              OperationType = "rename"
	OpAddAttribute        OperationType = "addAttribute"
	OpChangeAttribute     OperationType = "changeAttribute"
	OpRemoveAttribute     OperationType = "removeAttribute"
	OpAddRootAttribute    OperationType = "addRootAttribute"
	OpChangeRootAttribute OperationType = "changeRootAttribute"
	OpRemoveRootAttribute OperationType = "removeRootAttribute"
	OpMarker              OperationType = "marker"
	OpNoop                OperationType = "noop"
)

// NoVersion is the base version of operations on detached trees.
const NoVersion = -1

// GraveyardName is the root name of the document graveyard.
const GraveyardName = "$graveyard"

// infinity stands for "every offset up to the end of the parent".
const infinity = math.MaxInt32

// Operation is an atomic, versioned change of a tree.
type Operation interface {
	Type() OperationType

	// BaseVersion is the document version the operation applies to, or NoVersion.
	BaseVersion() int

	// IsDocumentOperation reports whether the operation changes a document.
	IsDocumentOperation() bool

	validate() error
	execute()
}

type baseOperation struct {
	baseVersion int
}

func (o baseOperation) BaseVersion() int          { return o.baseVersion }
func (o baseOperation) IsDocumentOperation() bool { return o.baseVersion != NoVersion }

// InsertOperation inserts nodes at a position.
type InsertOperation struct {
	baseOperation
	Position Position
	Nodes    []Node
}

// NewInsertOperation creates an insert operation.
func NewInsertOperation(position Position, nodes []Node, baseVersion int) *InsertOperation {
	return &InsertOperation{
		baseOperation: baseOperation{baseVersion},
		Position:      position.WithStickiness(StickToNone),
		Nodes:         nodes,
	}
}

func (o *InsertOperation) Type() OperationType { return OpInsert }

// HowMany is the offset size of the inserted nodes.
func (o *InsertOperation) HowMany() int {
	n := 0
	for _, node := range o.Nodes {
		n += node.OffsetSize()
	}
	return n
}

func (o *InsertOperation) validate() error {
	parent := o.Position.Parent()
	if parent == nil {
		return fmt.Errorf("insert at %s: %w", o.Position, ErrInvalidPath)
	}
	if o.Position.Offset() > parent.MaxOffset() {
		return fmt.Errorf("insert at %s: %w", o.Position, ErrOffsetOutOfRange)
	}
	return nil
}

func (o *InsertOperation) execute() {
	insertNodes(o.Position, o.Nodes)
}

// MoveOperation moves a flat range. Moving into the graveyard removes content
// from the document; moving out of it reinserts.
type MoveOperation struct {
	baseOperation
	SourcePosition Position
	HowMany        int
	TargetPosition Position
}

// NewMoveOperation creates a move operation.
func NewMoveOperation(source Position, howMany int, target Position, baseVersion int) *MoveOperation {
	return &MoveOperation{
		baseOperation:  baseOperation{baseVersion},
		SourcePosition: source.WithStickiness(StickToNext),
		HowMany:        howMany,
		TargetPosition: target.WithStickiness(StickToNone),
	}
}

func (o *MoveOperation) Type() OperationType {
	switch {
	case o.TargetPosition.root.rootName == GraveyardName:
		return OpRemove
	case o.SourcePosition.root.rootName == GraveyardName:
		return OpReinsert
	default:
		return OpMove
	}
}

// MovedRangeStart is where the moved content starts after the move.
func (o *MoveOperation) MovedRangeStart() Position {
	p, _ := o.TargetPosition.transformedByDeletion(o.SourcePosition, o.HowMany)
	return p
}

func (o *MoveOperation) validate() error {
	source := o.SourcePosition.Parent()
	target := o.TargetPosition.Parent()
	if source == nil || target == nil {
		return fmt.Errorf("move %s to %s: %w", o.SourcePosition, o.TargetPosition, ErrInvalidPath)
	}
	sourceOffset := o.SourcePosition.Offset()
	targetOffset := o.TargetPosition.Offset()
	if sourceOffset+o.HowMany > source.MaxOffset() || targetOffset > target.MaxOffset() {
		return fmt.Errorf("move %s to %s: %w", o.SourcePosition, o.TargetPosition, ErrOffsetOutOfRange)
	}
	if source == target && sourceOffset < targetOffset && targetOffset < sourceOffset+o.HowMany {
		return fmt.Errorf("move %s to %s: %w", o.SourcePosition, o.TargetPosition, ErrMoveIntoItself)
	}
	if o.SourcePosition.root == o.TargetPosition.root &&
		compareArrays(o.SourcePosition.ParentPath(), o.TargetPosition.ParentPath()) == arrayPrefix {
		i := len(o.SourcePosition.path) - 1
		if o.TargetPosition.path[i] >= sourceOffset && o.TargetPosition.path[i] < sourceOffset+o.HowMany {
			return fmt.Errorf("move %s to %s: %w", o.SourcePosition, o.TargetPosition, ErrMoveIntoItself)
		}
	}
	return nil
}

func (o *MoveOperation) execute() {
	moveRange(RangeFromPositionAndShift(o.SourcePosition, o.HowMany), o.TargetPosition)
}

// DetachOperation removes content from a tree that is not part of a document.
type DetachOperation struct {
	baseOperation
	SourcePosition Position
	HowMany        int
}

// NewDetachOperation creates a detach operation.
func NewDetachOperation(source Position, howMany int) *DetachOperation {
	return &DetachOperation{baseOperation: baseOperation{NoVersion}, SourcePosition: source, HowMany: howMany}
}

func (o *DetachOperation) Type() OperationType { return OpDetach }

func (o *DetachOperation) validate() error {
	if o.SourcePosition.root.doc != nil {
		return fmt.Errorf("detach at %s: %w", o.SourcePosition, ErrDetachDocument)
	}
	parent := o.SourcePosition.Parent()
	if parent == nil || o.SourcePosition.Offset()+o.HowMany > parent.MaxOffset() {
		return fmt.Errorf("detach at %s: %w", o.SourcePosition, ErrOffsetOutOfRange)
	}
	return nil
}

func (o *DetachOperation) execute() {
	removeRange(RangeFromPositionAndShift(o.SourcePosition, o.HowMany))
}

// SplitOperation splits an element at a position. A copy of the element is
// inserted after it and the content after the split position moves into the copy.
type SplitOperation struct {
	baseOperation
	SplitPosition     Position
	HowMany           int
	InsertionPosition Position
}

// NewSplitOperation creates a split operation for the element at splitPosition.
func NewSplitOperation(splitPosition Position, howMany int, baseVersion int) *SplitOperation {
	return &SplitOperation{
		baseOperation:     baseOperation{baseVersion},
		SplitPosition:     splitPosition.WithStickiness(StickToNext),
		HowMany:           howMany,
		InsertionPosition: SplitInsertionPosition(splitPosition),
	}
}

// SplitInsertionPosition returns where the copy of the split element goes:
// right after the element containing splitPosition.
func SplitInsertionPosition(splitPosition Position) Position {
	path := splitPosition.ParentPath()
	path[len(path)-1]++
	return Position{root: splitPosition.root, path: path, stickiness: StickToPrevious}
}

func (o *SplitOperation) Type() OperationType { return OpSplit }

// MoveTargetPosition is the start of the new element.
func (o *SplitOperation) MoveTargetPosition() Position {
	path := append(o.InsertionPosition.Path(), 0)
	return Position{root: o.InsertionPosition.root, path: path}
}

// MovedRange spans the split element's content after the split position.
func (o *SplitOperation) MovedRange() Range {
	return Range{Start: o.SplitPosition, End: o.SplitPosition.WithOffset(infinity)}
}

func (o *SplitOperation) validate() error {
	element := o.SplitPosition.Parent()
	if element == nil || element.MaxOffset() < o.SplitPosition.Offset() {
		return fmt.Errorf("split at %s: %w", o.SplitPosition, ErrInvalidPath)
	}
	if element.parent == nil {
		return fmt.Errorf("split at %s: %w", o.SplitPosition, ErrSplitInRoot)
	}
	if o.HowMany != element.MaxOffset()-o.SplitPosition.Offset() {
		return fmt.Errorf("split at %s: %w", o.SplitPosition, ErrOffsetOutOfRange)
	}
	return nil
}

func (o *SplitOperation) execute() {
	element := o.SplitPosition.Parent()
	copied := NewElement(element.name, element.attributes)
	insertNodes(o.InsertionPosition, []Node{copied})
	source := NewRange(PositionAt(element, o.SplitPosition.Offset()), PositionAtEnd(element))
	moveRange(source, o.MoveTargetPosition())
}

// MergeOperation moves all content of an element to the end of its previous
// sibling and moves the emptied element to the graveyard.
type MergeOperation struct {
	baseOperation
	SourcePosition    Position
	HowMany           int
	TargetPosition    Position
	GraveyardPosition Position
}

// NewMergeOperation creates a merge operation.
func NewMergeOperation(source Position, howMany int, target, graveyard Position, baseVersion int) *MergeOperation {
	return &MergeOperation{
		baseOperation:     baseOperation{baseVersion},
		SourcePosition:    source.WithStickiness(StickToPrevious),
		HowMany:           howMany,
		TargetPosition:    target.WithStickiness(StickToNext),
		GraveyardPosition: graveyard,
	}
}

func (o *MergeOperation) Type() OperationType { return OpMerge }

// DeletionPosition is the position before the merged element.
func (o *MergeOperation) DeletionPosition() Position {
	return Position{root: o.SourcePosition.root, path: o.SourcePosition.ParentPath()}
}

// MovedRange spans the merged element's content.
func (o *MergeOperation) MovedRange() Range {
	return Range{Start: o.SourcePosition, End: o.SourcePosition.WithOffset(infinity)}
}

func (o *MergeOperation) validate() error {
	source := o.SourcePosition.Parent()
	target := o.TargetPosition.Parent()
	if source == nil || source.parent == nil {
		return fmt.Errorf("merge source %s: %w", o.SourcePosition, ErrMergeInvalid)
	}
	if target == nil || target.parent == nil {
		return fmt.Errorf("merge target %s: %w", o.TargetPosition, ErrMergeInvalid)
	}
	if o.HowMany != source.MaxOffset() {
		return fmt.Errorf("merge source %s: %w", o.SourcePosition, ErrOffsetOutOfRange)
	}
	return nil
}

func (o *MergeOperation) execute() {
	merged := o.SourcePosition.Parent()
	moveRange(RangeIn(merged), o.TargetPosition)
	moveRange(RangeOn(merged), o.GraveyardPosition)
}

// RenameOperation changes an element's name.
type RenameOperation struct {
	baseOperation
	Position Position
	OldName  string
	NewName  string
}

// NewRenameOperation creates a rename operation for the element after position.
func NewRenameOperation(position Position, oldName, newName string, baseVersion int) *RenameOperation {
	return &RenameOperation{baseOperation: baseOperation{baseVersion}, Position: position, OldName: oldName, NewName: newName}
}

func (o *RenameOperation) Type() OperationType { return OpRename }

func (o *RenameOperation) validate() error {
	el, ok := o.Position.NodeAfter().(*Element)
	if !ok || el.name != o.OldName {
		return fmt.Errorf("rename at %s: %w", o.Position, ErrRenameMismatch)
	}
	return nil
}

func (o *RenameOperation) execute() {
	o.Position.NodeAfter().(*Element).name = o.NewName
}

// AttributeOperation changes one attribute on every item of a flat range.
// A nil value means the attribute is absent.
type AttributeOperation struct {
	baseOperation
	Range    Range
	Key      string
	OldValue any
	NewValue any
}

// NewAttributeOperation creates an attribute operation.
func NewAttributeOperation(r Range, key string, oldValue, newValue any, baseVersion int) *AttributeOperation {
	return &AttributeOperation{baseOperation: baseOperation{baseVersion}, Range: r, Key: key, OldValue: oldValue, NewValue: newValue}
}

func (o *AttributeOperation) Type() OperationType {
	switch {
	case o.OldValue == nil:
		return OpAddAttribute
	case o.NewValue == nil:
		return OpRemoveAttribute
	default:
		return OpChangeAttribute
	}
}

func (o *AttributeOperation) validate() error {
	if !o.Range.IsFlat() {
		return fmt.Errorf("attribute %q on %s: %w", o.Key, o.Range, ErrRangeNotFlat)
	}
	for _, item := range o.Range.Items(WalkerOptions{Shallow: true}) {
		v, _ := item.Attribute(o.Key)
		if !ValuesEqual(v, o.OldValue) {
			return fmt.Errorf("attribute %q on %s: %w", o.Key, o.Range, ErrAttributeValueMismatch)
		}
	}
	return nil
}

func (o *AttributeOperation) execute() {
	if !ValuesEqual(o.OldValue, o.NewValue) {
		setAttributeOnRange(o.Range, o.Key, o.NewValue)
	}
}

// RootAttributeOperation changes an attribute of a root element.
type RootAttributeOperation struct {
	baseOperation
	Root     *Element
	Key      string
	OldValue any
	NewValue any
}

// NewRootAttributeOperation creates a root attribute operation.
func NewRootAttributeOperation(root *Element, key string, oldValue, newValue any, baseVersion int) *RootAttributeOperation {
	return &RootAttributeOperation{baseOperation: baseOperation{baseVersion}, Root: root, Key: key, OldValue: oldValue, NewValue: newValue}
}

func (o *RootAttributeOperation) Type() OperationType {
	switch {
	case o.OldValue == nil:
		return OpAddRootAttribute
	case o.NewValue == nil:
		return OpRemoveRootAttribute
	default:
		return OpChangeRootAttribute
	}
}

func (o *RootAttributeOperation) validate() error {
	if o.Root.parent != nil {
		return fmt.Errorf("root attribute %q: %w", o.Key, ErrInvalidPath)
	}
	v, _ := o.Root.Attribute(o.Key)
	if !ValuesEqual(v, o.OldValue) {
		return fmt.Errorf("root attribute %q: %w", o.Key, ErrAttributeValueMismatch)
	}
	return nil
}

func (o *RootAttributeOperation) execute() {
	o.Root.setAttribute(o.Key, o.NewValue)
}

// MarkerOperation adds, moves or removes a marker. A nil NewRange removes it.
type MarkerOperation struct {
	baseOperation
	Name        string
	OldRange    *Range
	NewRange    *Range
	AffectsData bool
	markers     *MarkerCollection
}

// NewMarkerOperation creates a marker operation bound to a marker collection.
func NewMarkerOperation(name string, oldRange, newRange *Range, markers *MarkerCollection, affectsData bool, baseVersion int) *MarkerOperation {
	return &MarkerOperation{
		baseOperation: baseOperation{baseVersion},
		Name:          name,
		OldRange:      oldRange,
		NewRange:      newRange,
		AffectsData:   affectsData,
		markers:       markers,
	}
}

func (o *MarkerOperation) Type() OperationType { return OpMarker }

func (o *MarkerOperation) validate() error {
	if o.NewRange != nil {
		if root := o.NewRange.Root(); root == nil || root.doc == nil {
			return fmt.Errorf("marker %q: %w", o.Name, ErrInvalidRoot)
		}
	}
	return nil
}

func (o *MarkerOperation) execute() {
	if o.NewRange == nil {
		o.markers.remove(o.Name)
		return
	}
	o.markers.set(o.Name, *o.NewRange, o.AffectsData)
}

// NoOperation does nothing. It keeps version numbering intact.
type NoOperation struct {
	baseOperation
}

// NewNoOperation creates a no-op.
func NewNoOperation(baseVersion int) *NoOperation {
	return &NoOperation{baseOperation{baseVersion}}
}

func (o *NoOperation) Type() OperationType { return OpNoop }
func (o *NoOperation) validate() error     { return nil }
func (o *NoOperation) execute()            {}
