package model

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dshills/livedoc/internal/event"
)

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger. The default logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithHistorySize sets how many operations the document history keeps.
func WithHistorySize(n int) Option {
	return func(m *Model) {
		m.historySize = n
	}
}

type pendingChange struct {
	batch *Batch
	fn    func(*Writer) error
}

// Model owns a document, its markers and the schema, and is the only way to
// change them: every change runs inside a change block through a Writer.
//
// A Model is not safe for concurrent use.
type Model struct {
	doc     *Document
	schema  Schema
	markers *MarkerCollection
	logger  *slog.Logger

	applied event.Emitter[Operation]

	historySize int
	pending     []pendingChange
	writer      *Writer
}

// New creates a model with a "main" root.
func New(schema Schema, opts ...Option) *Model {
	m := &Model{
		schema:      schema,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		historySize: DefaultMaxHistory,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.markers = newMarkerCollection()
	m.doc = newDocument(m, m.historySize)
	m.doc.selection = newDocumentSelection(m.doc)
	_, _ = m.doc.CreateRoot(RootElementName, MainRootName)
	return m
}

// Document returns the model's document.
func (m *Model) Document() *Document { return m.doc }

// Schema returns the schema the model was created with.
func (m *Model) Schema() Schema { return m.schema }

// Markers returns the marker collection.
func (m *Model) Markers() *MarkerCollection { return m.markers }

// Logger returns the model logger.
func (m *Model) Logger() *slog.Logger { return m.logger }

// OnApplyOperation registers a handler called after each operation was
// executed. Document bookkeeping runs at PriorityCritical, live positions and
// ranges at PriorityLow, the document selection at PriorityLowest.
func (m *Model) OnApplyOperation(h event.Handler[Operation], opts ...event.SubscriptionOption) event.Subscription {
	return m.applied.On(h, opts...)
}

// Change runs fn in a change block. When called from inside another change
// block, fn runs immediately with the outer writer. Otherwise fn, and any
// change enqueued meanwhile, runs before Change returns.
//
// An error returned by fn stops the block and discards queued changes;
// operations already applied stay applied.
func (m *Model) Change(fn func(w *Writer) error) error {
	if m.writer != nil {
		return fn(m.writer)
	}
	m.pending = append(m.pending, pendingChange{batch: NewBatch(), fn: fn})
	return m.runPending()
}

// EnqueueChange queues fn to run after the current change block in the given
// batch (a new batch when nil). Without a running block it runs immediately.
func (m *Model) EnqueueChange(batch *Batch, fn func(w *Writer) error) error {
	if batch == nil {
		batch = NewBatch()
	}
	m.pending = append(m.pending, pendingChange{batch: batch, fn: fn})
	if m.writer != nil {
		return nil
	}
	return m.runPending()
}

// runBlock runs one queued change. The writer is released even when fn
// panics, and the queue is dropped so a later change starts clean.
func (m *Model) runBlock(c pendingChange) error {
	w := &Writer{model: m, batch: c.batch, active: true}
	m.writer = w
	defer func() {
		w.active = false
		m.writer = nil
		m.doc.selection.invalidErr = nil
		if r := recover(); r != nil {
			m.pending = nil
			panic(r)
		}
	}()

	if err := c.fn(w); err != nil {
		return err
	}
	return m.doc.handleChangeBlock(w)
}

func (m *Model) runPending() error {
	for len(m.pending) > 0 {
		c := m.pending[0]
		if err := m.runBlock(c); err != nil {
			m.pending = nil
			return err
		}

		m.pending = m.pending[1:]
		m.logger.Debug("change block finished",
			"batch", c.batch.ID(),
			"operations", len(c.batch.ops),
			"version", m.doc.version)
	}
	return nil
}

// ApplyOperation validates and executes op, then notifies listeners.
// Document operations must be based on the current document version.
func (m *Model) ApplyOperation(op Operation) error {
	if op.IsDocumentOperation() && op.BaseVersion() != m.doc.version {
		return fmt.Errorf("%s at version %d, document at %d: %w",
			op.Type(), op.BaseVersion(), m.doc.version, ErrVersionMismatch)
	}
	if err := op.validate(); err != nil {
		return err
	}
	op.execute()
	m.logger.Debug("operation applied", "type", string(op.Type()), "baseVersion", op.BaseVersion())
	m.applied.Emit(op)
	return nil
}

// HasContentOptions tunes HasContent.
type HasContentOptions struct {
	// IgnoreWhitespaces treats whitespace-only text as empty.
	IgnoreWhitespaces bool

	// IgnoreMarkers stops data markers from counting as content.
	IgnoreMarkers bool
}

// HasContent reports whether r holds anything meaningful: a data marker,
// text, or an element the schema marks as content.
func (m *Model) HasContent(r Range, opts HasContentOptions) bool {
	if r.IsCollapsed() {
		return false
	}
	if !opts.IgnoreMarkers {
		for _, marker := range m.markers.MarkersIntersectingRange(r) {
			if marker.AffectsData() {
				return true
			}
		}
	}
	for _, item := range r.Items(WalkerOptions{}) {
		if m.schema != nil && !m.schema.IsContent(item) {
			continue
		}
		proxy, ok := item.(*TextProxy)
		if !ok || !opts.IgnoreWhitespaces {
			return true
		}
		if strings.IndexFunc(proxy.Data(), func(r rune) bool { return !unicode.IsSpace(r) }) >= 0 {
			return true
		}
	}
	return false
}

// HasContentIn is HasContent for the whole content of an element.
func (m *Model) HasContentIn(el *Element, opts HasContentOptions) bool {
	return m.HasContent(RangeIn(el), opts)
}

// Destroy detaches the document selection and drops every listener. The
// model must not be used afterwards.
func (m *Model) Destroy() {
	m.doc.selection.destroy()
	m.applied.Clear()
	m.doc.changes.Clear()
}
