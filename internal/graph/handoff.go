package graph

import (
	"errors"
	"sync"
)

// Handoff carries one node's output to its dependents along a declared
// dependency edge. It is write-once: the producer publishes exactly once,
// and the graph ordering guarantees consumers read only afterwards.
type Handoff[T any] struct {
	mu  sync.Mutex
	set bool
	val T
}

func NewHandoff[T any]() *Handoff[T] {
	return &Handoff[T]{}
}

// Set publishes the value. Publishing twice is a wiring bug.
func (h *Handoff[T]) Set(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.set {
		panic("graph: handoff already set")
	}
	h.val = v
	h.set = true
}

// Get returns the published value. An error means the consumer ran before
// its producer, so the declared dependencies do not match the data flow.
func (h *Handoff[T]) Get() (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.set {
		var zero T
		return zero, errors.New("graph: handoff not set")
	}
	return h.val, nil
}
