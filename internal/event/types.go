package event

// Priority determines handler execution order.
// Lower values execute first.
type Priority int

const (
	// PriorityCritical is for document bookkeeping that must observe a change first.
	PriorityCritical Priority = 0

	// PriorityHigh is for handlers that validate or buffer a change.
	PriorityHigh Priority = 100

	// PriorityNormal is the default priority for feature handlers.
	PriorityNormal Priority = 200

	// PriorityLow is for live positions and ranges re-anchoring themselves.
	PriorityLow Priority = 300

	// PriorityLowest is for consistency fix-ups that must see every other handler's result.
	PriorityLowest Priority = 400
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p <= PriorityCritical:
		return "critical"
	case p <= PriorityHigh:
		return "high"
	case p <= PriorityNormal:
		return "normal"
	case p <= PriorityLow:
		return "low"
	default:
		return "lowest"
	}
}

// Handler receives events of type T.
type Handler[T any] func(T)
