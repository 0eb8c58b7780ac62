package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces the events of a Watcher into batches. A batch is
// delivered once no event has arrived for the debounce delay, and holds one
// event per changed path with every operation seen on it.
type Debouncer struct {
	inner Watcher
	delay time.Duration

	mu       sync.Mutex
	pending  map[string]Event
	timer    *time.Timer
	batches  chan []Event
	errors   chan error
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup

	// firing tracks batches on their way out so Close can wait for them.
	firing sync.WaitGroup
}

// NewDebouncer wraps inner. A non-positive delay means 100ms.
func NewDebouncer(inner Watcher, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	d := &Debouncer{
		inner:   inner,
		delay:   delay,
		pending: make(map[string]Event),
		batches: make(chan []Event, 16),
		errors:  make(chan error, 16),
		closeCh: make(chan struct{}),
	}

	d.closedWg.Add(1)
	go d.processLoop()

	return d
}

// Watch starts watching a file.
func (d *Debouncer) Watch(path string) error {
	return d.inner.Watch(path)
}

// Batches returns the channel of coalesced events, sorted by path.
func (d *Debouncer) Batches() <-chan []Event {
	return d.batches
}

// Errors returns the error channel.
func (d *Debouncer) Errors() <-chan error {
	return d.errors
}

// Close stops the debouncer and the wrapped watcher. Pending events are
// dropped.
func (d *Debouncer) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeCh)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]Event)
	d.mu.Unlock()

	err := d.inner.Close()
	d.closedWg.Wait()
	d.firing.Wait()

	close(d.batches)
	close(d.errors)
	return err
}

// PendingCount returns the number of paths waiting in the current batch.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush delivers the pending batch immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

func (d *Debouncer) processLoop() {
	defer d.closedWg.Done()

	for {
		select {
		case <-d.closeCh:
			return

		case event, ok := <-d.inner.Events():
			if !ok {
				return
			}
			d.add(event)

		case err, ok := <-d.inner.Errors():
			if !ok {
				return
			}
			select {
			case d.errors <- err:
			default:
			}
		}
	}
}

// add merges event into the pending batch and restarts the quiet period.
func (d *Debouncer) add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if prev, ok := d.pending[event.Path]; ok {
		event.Op |= prev.Op
	}
	d.pending[event.Path] = event

	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	batch := make([]Event, 0, len(d.pending))
	for _, e := range d.pending {
		batch = append(batch, e)
	}
	d.pending = make(map[string]Event)
	d.firing.Add(1)
	d.mu.Unlock()
	defer d.firing.Done()

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	select {
	case d.batches <- batch:
	case <-d.closeCh:
	}
}
