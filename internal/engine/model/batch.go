package model

import "github.com/google/uuid"

// Batch groups the operations issued by one change block.
type Batch struct {
	id  string
	ops []Operation
}

// NewBatch creates an empty batch with a random id.
func NewBatch() *Batch {
	return &Batch{id: uuid.NewString()}
}

// ID returns the batch id.
func (b *Batch) ID() string { return b.id }

// Operations returns the operations added so far.
func (b *Batch) Operations() []Operation {
	out := make([]Operation, len(b.ops))
	copy(out, b.ops)
	return out
}

// DocumentOperations returns the operations that changed a document.
func (b *Batch) DocumentOperations() []Operation {
	var out []Operation
	for _, op := range b.ops {
		if op.IsDocumentOperation() {
			out = append(out, op)
		}
	}
	return out
}

// BaseVersion returns the base version of the first document operation, or NoVersion.
func (b *Batch) BaseVersion() int {
	for _, op := range b.ops {
		if op.IsDocumentOperation() {
			return op.BaseVersion()
		}
	}
	return NoVersion
}

func (b *Batch) addOperation(op Operation) {
	b.ops = append(b.ops, op)
}
