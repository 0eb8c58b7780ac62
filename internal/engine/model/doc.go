// Package model implements the live document model of livedoc.
//
// A Model owns a Document (a set of named root element trees plus a
// graveyard root for removed content), a MarkerCollection and a Schema.
// Trees are made of Elements and Text nodes and are addressed by Positions:
// a root plus a path of offsets, where text counts one offset per byte.
//
// # Changing the document
//
// Every change runs in a change block through a Writer. The writer turns
// each call into one or more Operations, validates them against the
// current document version and applies them:
//
//	err := m.Change(func(w *model.Writer) error {
//		return w.InsertText("foo", nil, model.PositionAt(paragraph, 0))
//	})
//
// Change blocks nest: an inner Change runs immediately with the outer
// writer. EnqueueChange defers a block until the running one ends. At the
// end of a block post-fixers run, the document selection refreshes its
// attributes and markers, and Document.OnChange listeners receive the batch.
//
// # Live objects
//
// LivePosition, LiveRange and the DocumentSelection follow their content as
// operations are applied. Content removed from a document goes to the
// graveyard, and live objects inside it go along. The document selection
// recovers from that by moving to the nearest valid place where the content
// used to be. Live objects must be detached when no longer needed; a
// LiveScope detaches everything it created on Close.
//
// # Concurrency
//
// A Model is not safe for concurrent use. Callers that share one between
// goroutines must serialize access.
package model
