package event

// Emitter delivers values of type T to registered handlers.
//
// Delivery is synchronous: Emit returns only after every active handler has
// run. Handlers run in ascending priority order and, within one priority, in
// registration order. A handler registered during Emit is not called for the
// value being emitted; a handler cancelled during Emit is not called if it has
// not run yet.
//
// The zero value is ready to use. An Emitter is not safe for concurrent use.
type Emitter[T any] struct {
	subs   []*subscription[T]
	nextID uint64
}

// On registers a handler and returns its subscription.
func (e *Emitter[T]) On(h Handler[T], opts ...SubscriptionOption) Subscription {
	config := DefaultSubscriptionConfig()
	for _, opt := range opts {
		opt(&config)
	}

	e.nextID++
	sub := &subscription[T]{
		id:      e.nextID,
		handler: h,
		config:  config,
		remove:  e.remove,
	}
	sub.state.Store(int32(SubscriptionStateActive))

	// Insert after the last subscription with the same or lower priority.
	i := len(e.subs)
	for i > 0 && e.subs[i-1].config.Priority > config.Priority {
		i--
	}
	e.subs = append(e.subs, nil)
	copy(e.subs[i+1:], e.subs[i:])
	e.subs[i] = sub

	return sub
}

// Emit delivers v to every active handler.
func (e *Emitter[T]) Emit(v T) {
	if len(e.subs) == 0 {
		return
	}

	snapshot := make([]*subscription[T], len(e.subs))
	copy(snapshot, e.subs)

	for _, sub := range snapshot {
		if !sub.IsActive() {
			continue
		}
		if sub.config.Once {
			sub.Cancel()
		}
		sub.handler(v)
	}
}

// Len returns the number of registered subscriptions, paused ones included.
func (e *Emitter[T]) Len() int {
	return len(e.subs)
}

// Clear cancels every subscription.
func (e *Emitter[T]) Clear() {
	subs := e.subs
	e.subs = nil
	for _, sub := range subs {
		sub.remove = nil
		sub.Cancel()
	}
}

func (e *Emitter[T]) remove(target *subscription[T]) {
	for i, sub := range e.subs {
		if sub == target {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}
