package model

// DefaultMaxHistory is the default number of operations kept by History.
const DefaultMaxHistory = 10000

// History keeps the most recent document operations in a ring buffer,
// indexed by base version.
type History struct {
	ops   []Operation
	head  int // index of oldest entry
	count int
	max   int
}

// NewHistory creates a history holding at most max operations.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &History{ops: make([]Operation, max), max: max}
}

func (h *History) add(op Operation) {
	idx := (h.head + h.count) % h.max
	if h.count < h.max {
		h.count++
	} else {
		h.head = (h.head + 1) % h.max
	}
	h.ops[idx] = op
}

// Len returns the number of stored operations.
func (h *History) Len() int { return h.count }

// Operation returns the operation applied at base version v, if still stored.
func (h *History) Operation(v int) (Operation, bool) {
	if h.count == 0 {
		return nil, false
	}
	first := h.ops[h.head].BaseVersion()
	i := v - first
	if i < 0 || i >= h.count {
		return nil, false
	}
	return h.ops[(h.head+i)%h.max], true
}

// OperationsSince returns the stored operations with base version >= v, oldest first.
func (h *History) OperationsSince(v int) []Operation {
	var out []Operation
	for i := 0; i < h.count; i++ {
		op := h.ops[(h.head+i)%h.max]
		if op.BaseVersion() >= v {
			out = append(out, op)
		}
	}
	return out
}
