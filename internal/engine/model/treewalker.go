package model

import "unicode/utf8"

// Direction selects which way a walk or search goes.
type Direction int

const (
	Forward Direction = iota
	Backward
	// Both is accepted by searches that look in both directions at once.
	Both
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "both"
	}
}

// WalkerValueType tells what a walker step passed over.
type WalkerValueType int

const (
	WalkerText WalkerValueType = iota
	WalkerElementStart
	WalkerElementEnd
)

// WalkerValue describes one step of a tree walk.
type WalkerValue struct {
	Type             WalkerValueType
	Item             Item
	PreviousPosition Position
	NextPosition     Position
	// Length is the number of offsets passed; zero for element ends.
	Length int
}

// WalkerOptions configures a TreeWalker. Either Boundaries or StartPosition
// must be set.
type WalkerOptions struct {
	Direction     Direction
	Boundaries    *Range
	StartPosition *Position

	// SingleCharacters returns text one rune at a time instead of whole runs.
	SingleCharacters bool

	// Shallow steps over elements instead of entering them.
	Shallow bool

	// IgnoreElementEnd suppresses element end steps.
	IgnoreElementEnd bool
}

// TreeWalker iterates over a tree in document order, reporting text runs,
// element starts and element ends.
type TreeWalker struct {
	direction        Direction
	boundaries       *Range
	position         Position
	singleCharacters bool
	shallow          bool
	ignoreElementEnd bool

	boundaryStartParent *Element
	boundaryEndParent   *Element
	visitedParent       *Element
}

// NewTreeWalker creates a walker.
func NewTreeWalker(opts WalkerOptions) *TreeWalker {
	w := &TreeWalker{
		direction:        opts.Direction,
		boundaries:       opts.Boundaries,
		singleCharacters: opts.SingleCharacters,
		shallow:          opts.Shallow,
		ignoreElementEnd: opts.IgnoreElementEnd,
	}
	if w.direction != Backward {
		w.direction = Forward
	}

	switch {
	case opts.StartPosition != nil:
		w.position = opts.StartPosition.clone()
	case w.direction == Backward:
		w.position = opts.Boundaries.End.clone()
	default:
		w.position = opts.Boundaries.Start.clone()
	}
	w.position.stickiness = StickToNone

	if w.boundaries != nil {
		w.boundaryStartParent = w.boundaries.Start.Parent()
		w.boundaryEndParent = w.boundaries.End.Parent()
	}
	w.visitedParent = w.position.Parent()
	return w
}

// Position returns the walker's current position.
func (w *TreeWalker) Position() Position { return w.position }

// Direction returns the walking direction.
func (w *TreeWalker) Direction() Direction { return w.direction }

// Next advances the walker. It returns false when the walk is done.
func (w *TreeWalker) Next() (WalkerValue, bool) {
	if w.direction == Forward {
		return w.next()
	}
	return w.previous()
}

// Skip advances while skip returns true, leaving the walker before the first
// value that was rejected.
func (w *TreeWalker) Skip(skip func(WalkerValue) bool) {
	for {
		prevPosition := w.position
		prevVisited := w.visitedParent
		v, ok := w.Next()
		if !ok {
			return
		}
		if !skip(v) {
			w.position = prevPosition
			w.visitedParent = prevVisited
			return
		}
	}
}

// JumpTo moves the walker to p, which must be within the boundaries.
func (w *TreeWalker) JumpTo(p Position) {
	w.position = p.clone()
	w.visitedParent = p.Parent()
}

func (w *TreeWalker) next() (WalkerValue, bool) {
	previous := w.position
	position := w.position.clone()
	parent := w.visitedParent
	if parent == nil {
		return WalkerValue{}, false
	}

	// End of the root.
	if parent.parent == nil && position.Offset() == parent.MaxOffset() {
		return WalkerValue{}, false
	}

	// End of the boundaries.
	if w.boundaries != nil && parent == w.boundaryEndParent && position.Offset() == w.boundaries.End.Offset() {
		return WalkerValue{}, false
	}

	var node Node
	if t := textNodeAt(position, parent); t != nil {
		node = t
	} else {
		node = parent.ChildAtOffset(position.Offset())
	}

	switch n := node.(type) {
	case *Element:
		if !w.shallow {
			position.path = append(position.path, 0)
			w.visitedParent = n
		} else {
			if w.boundaries != nil && w.boundaries.End.IsBefore(position) {
				return WalkerValue{}, false
			}
			position = position.WithOffset(position.Offset() + 1)
		}
		w.position = position
		return WalkerValue{Type: WalkerElementStart, Item: n, PreviousPosition: previous, NextPosition: position, Length: 1}, true

	case *Text:
		offsetInText := position.Offset() - n.StartOffset()
		var count int
		if w.singleCharacters {
			_, count = utf8.DecodeRuneInString(n.data[offsetInText:])
		} else {
			end := n.EndOffset()
			if w.boundaries != nil && w.boundaryEndParent == parent && w.boundaries.End.Offset() < end {
				end = w.boundaries.End.Offset()
			}
			count = end - position.Offset()
		}
		item := newTextProxy(n, offsetInText, count)
		position = position.WithOffset(position.Offset() + count)
		w.position = position
		return WalkerValue{Type: WalkerText, Item: item, PreviousPosition: previous, NextPosition: position, Length: count}, true
	}

	// No node after the position: leave the parent.
	position.path = position.path[:len(position.path)-1]
	position = position.WithOffset(position.Offset() + 1)
	w.position = position
	w.visitedParent = parent.parent
	if w.ignoreElementEnd {
		return w.next()
	}
	return WalkerValue{Type: WalkerElementEnd, Item: parent, PreviousPosition: previous, NextPosition: position}, true
}

func (w *TreeWalker) previous() (WalkerValue, bool) {
	previous := w.position
	position := w.position.clone()
	parent := w.visitedParent
	if parent == nil {
		return WalkerValue{}, false
	}

	// Start of the root.
	if parent.parent == nil && position.Offset() == 0 {
		return WalkerValue{}, false
	}

	// Start of the boundaries.
	if w.boundaries != nil && parent == w.boundaryStartParent && position.Offset() == w.boundaries.Start.Offset() {
		return WalkerValue{}, false
	}

	var node Node
	if t := textNodeAt(position, parent); t != nil {
		node = t
	} else {
		node = parent.Child(parent.OffsetToIndex(position.Offset()) - 1)
	}

	switch n := node.(type) {
	case *Element:
		position = position.WithOffset(position.Offset() - 1)
		if w.shallow {
			w.position = position
			return WalkerValue{Type: WalkerElementStart, Item: n, PreviousPosition: previous, NextPosition: position, Length: 1}, true
		}
		position.path = append(position.path, n.MaxOffset())
		w.position = position
		w.visitedParent = n
		if w.ignoreElementEnd {
			return w.previous()
		}
		return WalkerValue{Type: WalkerElementEnd, Item: n, PreviousPosition: previous, NextPosition: position}, true

	case *Text:
		offsetInText := position.Offset() - n.StartOffset()
		var count int
		if w.singleCharacters {
			_, count = utf8.DecodeLastRuneInString(n.data[:offsetInText])
		} else {
			start := n.StartOffset()
			if w.boundaries != nil && w.boundaryStartParent == parent && w.boundaries.Start.Offset() > start {
				start = w.boundaries.Start.Offset()
			}
			count = position.Offset() - start
		}
		item := newTextProxy(n, offsetInText-count, count)
		position = position.WithOffset(position.Offset() - count)
		w.position = position
		return WalkerValue{Type: WalkerText, Item: item, PreviousPosition: previous, NextPosition: position, Length: count}, true
	}

	// No node before the position: leave the parent.
	position.path = position.path[:len(position.path)-1]
	w.position = position
	w.visitedParent = parent.parent
	return WalkerValue{Type: WalkerElementStart, Item: parent, PreviousPosition: previous, NextPosition: position, Length: 1}, true
}
