package model

import (
	"strings"

	"github.com/dshills/livedoc/internal/event"
)

// Marker is a named live range kept by a MarkerCollection.
type Marker struct {
	name        string
	liveRange   *LiveRange
	affectsData bool
}

// Name returns the marker name.
func (m *Marker) Name() string { return m.name }

// Group returns the part of the name before the first colon.
func (m *Marker) Group() string {
	group, _, _ := strings.Cut(m.name, ":")
	return group
}

// Range returns the current marker range.
func (m *Marker) Range() Range { return m.liveRange.ToRange() }

// AffectsData reports whether the marker counts as document content.
func (m *Marker) AffectsData() bool { return m.affectsData }

// MarkerUpdate is delivered when a marker is added, moved or removed.
// OldRange is nil for added markers, NewRange for removed ones.
type MarkerUpdate struct {
	Marker   *Marker
	OldRange *Range
	NewRange *Range
}

// MarkerCollection holds the markers of a model. Markers change only through
// marker operations issued by a Writer.
type MarkerCollection struct {
	markers map[string]*Marker
	order   []string
	updates event.Emitter[MarkerUpdate]
}

func newMarkerCollection() *MarkerCollection {
	return &MarkerCollection{markers: make(map[string]*Marker)}
}

// Get returns the marker named name.
func (c *MarkerCollection) Get(name string) (*Marker, bool) {
	m, ok := c.markers[name]
	return m, ok
}

// Has reports whether a marker named name exists.
func (c *MarkerCollection) Has(name string) bool {
	_, ok := c.markers[name]
	return ok
}

// Len returns the number of markers.
func (c *MarkerCollection) Len() int { return len(c.order) }

// All returns the markers in the order they were added.
func (c *MarkerCollection) All() []*Marker {
	out := make([]*Marker, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.markers[name])
	}
	return out
}

// Group returns the markers whose name starts with prefix followed by a colon.
func (c *MarkerCollection) Group(prefix string) []*Marker {
	var out []*Marker
	for _, m := range c.All() {
		if strings.HasPrefix(m.name, prefix+":") {
			out = append(out, m)
		}
	}
	return out
}

// MarkersAtPosition returns the markers containing p, boundaries included.
func (c *MarkerCollection) MarkersAtPosition(p Position) []*Marker {
	var out []*Marker
	for _, m := range c.All() {
		r := m.Range()
		if r.ContainsPosition(p) || r.Start.IsEqual(p) || r.End.IsEqual(p) {
			out = append(out, m)
		}
	}
	return out
}

// MarkersIntersectingRange returns the markers sharing content with r.
func (c *MarkerCollection) MarkersIntersectingRange(r Range) []*Marker {
	var out []*Marker
	for _, m := range c.All() {
		if m.Range().IsIntersecting(r) {
			out = append(out, m)
		}
	}
	return out
}

// OnUpdate registers a handler for marker changes.
func (c *MarkerCollection) OnUpdate(h event.Handler[MarkerUpdate], opts ...event.SubscriptionOption) event.Subscription {
	return c.updates.On(h, opts...)
}

func (c *MarkerCollection) set(name string, r Range, affectsData bool) *Marker {
	if m, ok := c.markers[name]; ok {
		old := m.Range()
		changed := m.affectsData != affectsData
		m.affectsData = affectsData
		if !old.IsEqual(r) {
			if lr, err := NewLiveRange(r); err == nil {
				m.liveRange.Detach()
				m.liveRange = lr
				changed = true
			}
		}
		if changed {
			next := m.Range()
			c.updates.Emit(MarkerUpdate{Marker: m, OldRange: &old, NewRange: &next})
		}
		return m
	}

	lr, err := NewLiveRange(r)
	if err != nil {
		return nil
	}
	m := &Marker{name: name, liveRange: lr, affectsData: affectsData}
	c.markers[name] = m
	c.order = append(c.order, name)
	next := m.Range()
	c.updates.Emit(MarkerUpdate{Marker: m, NewRange: &next})
	return m
}

func (c *MarkerCollection) remove(name string) bool {
	m, ok := c.markers[name]
	if !ok {
		return false
	}
	old := m.Range()
	delete(c.markers, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	m.liveRange.Detach()
	c.updates.Emit(MarkerUpdate{Marker: m, OldRange: &old})
	return true
}
