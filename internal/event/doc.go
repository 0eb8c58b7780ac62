// Package event provides the synchronous, priority-ordered notification
// primitive used by the document model.
//
// Every observable entity (the model's operation stream, live positions, live
// ranges, selections, the marker collection) owns one Emitter per event kind
// and exposes typed On* methods returning a Subscription. There is no shared
// bus and no asynchronous delivery: a value emitted while a change is being
// applied reaches all handlers before the emitting call returns, which is what
// lets live positions re-anchor themselves before the code that caused the
// change continues.
//
// # Priorities
//
// Handlers are ordered by Priority, lower first:
//
//	PriorityCritical  document version and history bookkeeping
//	PriorityHigh      validation
//	PriorityNormal    default for feature code
//	PriorityLow       live position and range transformation
//	PriorityLowest    selection consistency fix-ups
//
// Within one priority, handlers run in registration order.
//
// # Lifecycle
//
// A Subscription can be paused, resumed and cancelled. Cancel is idempotent
// and removes the handler from its emitter immediately.
//
//	sub := emitter.On(func(op Operation) { ... }, event.WithPriority(event.PriorityLow))
//	defer sub.Cancel()
package event
