package model

import "errors"

// Errors returned by live objects and selections.
var (
	// ErrInvalidRoot indicates a live position or range was created outside a document root.
	ErrInvalidRoot = errors.New("live position must be rooted in a document root element")

	// ErrInvalidSelectionPosition indicates a selection boundary is not a valid document position.
	ErrInvalidSelectionPosition = errors.New("invalid selection position")

	// ErrInvalidGravityToken indicates gravity was restored with a token that was not issued.
	ErrInvalidGravityToken = errors.New("gravity restored with an unknown token")

	// ErrSelectionNoRanges indicates a focus was set on a selection without ranges.
	ErrSelectionNoRanges = errors.New("selection has no ranges")
)

// Errors returned by operations.
var (
	// ErrVersionMismatch indicates an operation's base version differs from the document version.
	ErrVersionMismatch = errors.New("operation base version does not match document version")

	// ErrInvalidPath indicates a position path does not address an element.
	ErrInvalidPath = errors.New("position path is incorrect")

	// ErrOffsetOutOfRange indicates an offset is outside the addressed parent.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeNotFlat indicates an operation requires a range with both ends in one parent.
	ErrRangeNotFlat = errors.New("range is not flat")

	// ErrMoveIntoItself indicates a move target lies inside the moved range.
	ErrMoveIntoItself = errors.New("cannot move a range into itself")

	// ErrAttributeValueMismatch indicates an attribute operation's old value is stale.
	ErrAttributeValueMismatch = errors.New("attribute old value does not match")

	// ErrRenameMismatch indicates a rename target is missing or has another name.
	ErrRenameMismatch = errors.New("rename target does not match")

	// ErrSplitInRoot indicates a split was attempted directly in a root.
	ErrSplitInRoot = errors.New("cannot split a root element")

	// ErrMergeInvalid indicates a merge source or target is not a mergeable element.
	ErrMergeInvalid = errors.New("invalid merge position")

	// ErrDetachDocument indicates a detach operation targeted document content.
	ErrDetachDocument = errors.New("cannot detach document content")
)

// Errors returned by the writer.
var (
	// ErrWriterInactive indicates a writer was used outside its change block.
	ErrWriterInactive = errors.New("writer used outside of its change block")

	// ErrMoveDifferentTree indicates a move between a document and a detached tree.
	ErrMoveDifferentTree = errors.New("cannot move between different trees")

	// ErrInsertForbiddenMove indicates inserting a node that belongs to another document tree.
	ErrInsertForbiddenMove = errors.New("cannot insert a node that belongs to a document")

	// ErrNotElement indicates an element was required.
	ErrNotElement = errors.New("item is not an element")

	// ErrSplitInvalidLimit indicates a split limit that is not an ancestor of the split position.
	ErrSplitInvalidLimit = errors.New("split limit is not an ancestor")

	// ErrRootExists indicates a root with the same name already exists.
	ErrRootExists = errors.New("root already exists")

	// ErrMarkerExists indicates a marker with the same name already exists.
	ErrMarkerExists = errors.New("marker already exists")

	// ErrMarkerNotFound indicates a marker does not exist.
	ErrMarkerNotFound = errors.New("marker not found")
)
