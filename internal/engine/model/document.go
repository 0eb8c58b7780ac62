package model

import (
	"fmt"
	"strings"

	"github.com/dshills/livedoc/internal/event"
)

// MainRootName is the name of the root every document starts with.
const MainRootName = "main"

// RootElementName is the schema name of root elements.
const RootElementName = "$root"

// PostFixer inspects the document at the end of a change block and may fix
// it with further writes. It returns true when it changed something.
type PostFixer func(w *Writer) (bool, error)

// Document is the tree data of a Model: its roots, version, operation history
// and selection.
type Document struct {
	model     *Model
	roots     map[string]*Element
	rootOrder []string
	graveyard *Element
	version   int
	history   *History
	selection *DocumentSelection

	postFixers []PostFixer
	changes    event.Emitter[*Batch]

	// Bookkeeping for the running change block.
	changed         bool
	insertedParents []*Element
}

func newDocument(m *Model, historySize int) *Document {
	d := &Document{
		model:   m,
		roots:   make(map[string]*Element),
		history: NewHistory(historySize),
	}
	d.graveyard = newRootElement(d, RootElementName, GraveyardName)
	d.roots[GraveyardName] = d.graveyard

	m.applied.On(d.operationApplied, event.WithPriority(event.PriorityCritical))
	return d
}

// Model returns the owning model.
func (d *Document) Model() *Model { return d.model }

// Version is the number of document operations applied so far.
func (d *Document) Version() int { return d.version }

// History returns the document's operation history.
func (d *Document) History() *History { return d.history }

// Selection returns the document selection.
func (d *Document) Selection() *DocumentSelection { return d.selection }

// Graveyard returns the root holding removed content.
func (d *Document) Graveyard() *Element { return d.graveyard }

// CreateRoot adds a root element named rootName with schema name elementName
// (RootElementName when empty).
func (d *Document) CreateRoot(elementName, rootName string) (*Element, error) {
	if _, ok := d.roots[rootName]; ok {
		return nil, fmt.Errorf("root %q: %w", rootName, ErrRootExists)
	}
	if elementName == "" {
		elementName = RootElementName
	}
	root := newRootElement(d, elementName, rootName)
	d.roots[rootName] = root
	d.rootOrder = append(d.rootOrder, rootName)
	return root, nil
}

// Root returns the root registered under name, or nil.
func (d *Document) Root(name string) *Element {
	if name == "" {
		name = MainRootName
	}
	return d.roots[name]
}

// Roots returns the roots in creation order. The graveyard is not included.
func (d *Document) Roots() []*Element {
	out := make([]*Element, 0, len(d.rootOrder))
	for _, name := range d.rootOrder {
		out = append(out, d.roots[name])
	}
	return out
}

// RootNames returns the names of all roots except the graveyard.
func (d *Document) RootNames() []string {
	return append([]string(nil), d.rootOrder...)
}

// OnChange registers a handler called at the end of every change block that
// changed the document or its selection.
func (d *Document) OnChange(h event.Handler[*Batch], opts ...event.SubscriptionOption) event.Subscription {
	return d.changes.On(h, opts...)
}

// RegisterPostFixer adds a post-fixer. Post-fixers run in registration order
// until none of them reports a change.
func (d *Document) RegisterPostFixer(f PostFixer) {
	d.postFixers = append(d.postFixers, f)
}

// defaultRange is where the selection is when it has no ranges: the nearest
// selectable place at the start of the first root.
func (d *Document) defaultRange() Range {
	if len(d.rootOrder) == 0 {
		return CollapsedRange(PositionAt(d.graveyard, 0))
	}
	position := PositionAt(d.roots[d.rootOrder[0]], 0)
	if schema := d.model.schema; schema != nil {
		if r, ok := schema.NearestSelectionRange(position, Both); ok {
			return r
		}
	}
	return CollapsedRange(position)
}

func (d *Document) operationApplied(op Operation) {
	if !op.IsDocumentOperation() {
		return
	}
	d.version++
	d.history.add(op)
	d.changed = true

	var parent *Element
	switch o := op.(type) {
	case *InsertOperation:
		parent = o.Position.Parent()
	case *MoveOperation:
		if o.Type() != OpRemove {
			parent = o.MovedRangeStart().Parent()
		}
	case *MergeOperation:
		parent = o.TargetPosition.Parent()
	}
	if parent != nil {
		d.insertedParents = append(d.insertedParents, parent)
	}
}

func (d *Document) handleChangeBlock(w *Writer) error {
	if err := d.selection.takeError(); err != nil {
		return err
	}
	if !d.changed && !d.selection.changedInBlock {
		return nil
	}

	if err := d.runPostFixers(w); err != nil {
		return err
	}
	if err := d.selection.takeError(); err != nil {
		return err
	}
	d.selection.refresh()
	d.changes.Emit(w.batch)
	d.selection.refresh()

	parents := d.insertedParents
	d.insertedParents = nil
	d.changed = false
	d.selection.changedInBlock = false

	d.clearStoredSelectionAttributes(w.batch, parents)
	return nil
}

func (d *Document) runPostFixers(w *Writer) error {
	for {
		fixed := false
		for _, f := range d.postFixers {
			ok, err := f(w)
			if err != nil {
				return err
			}
			if ok {
				fixed = true
				break
			}
		}
		if !fixed {
			return nil
		}
	}
}

// clearStoredSelectionAttributes drops attributes stored for the selection in
// elements that are no longer empty.
func (d *Document) clearStoredSelectionAttributes(batch *Batch, parents []*Element) {
	seen := make(map[*Element]bool)
	for _, parent := range parents {
		if seen[parent] || parent.IsEmpty() || !parent.IsAttached() {
			continue
		}
		seen[parent] = true

		var keys []string
		for _, key := range parent.AttributeKeys() {
			if strings.HasPrefix(key, StoredAttributePrefix) {
				keys = append(keys, key)
			}
		}
		if len(keys) == 0 {
			continue
		}
		el := parent
		_ = d.model.EnqueueChange(batch, func(w *Writer) error {
			for _, key := range keys {
				if err := w.RemoveAttribute(key, el); err != nil {
					return err
				}
			}
			return nil
		})
	}
}
