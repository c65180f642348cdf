// Package switchbuffer implements an in-process buffer exchange between one
// producer goroutine and any number of independent consumer goroutines.
//
// The producer repeatedly fills buffers taken from a fixed-capacity ring;
// each consumer reads the published buffers at its own pace, without ever
// blocking the producer and without ever observing a partially written
// buffer. A consumer that falls behind is lapped: the producer steals its
// unread slot, and the consumer resumes at the oldest value that is still
// available.
package switchbuffer

import (
	"fmt"
	"sync"
)

var (
	ErrCapacityTooSmall = fmt.Errorf("ring capacity must be 2 or larger")
	ErrProducerAcquired = fmt.Errorf("producer already acquired")
	ErrProducerClosed   = fmt.Errorf("producer closed")
)

// consumerState is the per-consumer bookkeeping kept in the registry.
type consumerState[T any] struct {
	pos       int        // next slot to read, invalid until first data
	isFull    bool       // lapped: the unread slot was overwritten
	sanctuary *T         // private buffer that receives stolen content
	pending   *Future[T] // registered when no data was available
}

// core is the shared state behind the producer and consumer handles: the
// ring, the producer cursors and the consumer registry, all guarded by one
// mutex. No operation blocks while holding it.
type core[T any] struct {
	mu     sync.Mutex
	ring   *ring[T]
	curr   int // most recently published slot
	next   int // slot currently being filled
	olde   int // oldest slot still holding published data
	closed bool

	consumers map[uint64]*consumerState[T]
	nextID    uint64

	stats Stats
}

// Stats is a snapshot of the operation counters.
type Stats struct {
	Productions  uint64 // producer Switch calls
	Publications uint64 // buffers made visible to consumers
	Steals       uint64 // slots rescued into a sanctuary on overwrite
	Fulfilled    uint64 // pending futures resolved with data
	Cancelled    uint64 // futures resolved with a cancellation
	Consumers    uint64 // currently registered consumers
}

// SwitchBuffer owns the shared core and issues the handles: exactly one
// Producer over its lifetime, and any number of Consumers.
type SwitchBuffer[T any] struct {
	core     *core[T]
	producer *Producer[T]
}

// New creates a switch buffer with the given ring capacity.
// Returns ErrCapacityTooSmall if capacity < 2.
func New[T any](capacity int) (*SwitchBuffer[T], error) {
	if capacity < 2 {
		return nil, ErrCapacityTooSmall
	}
	c := &core[T]{
		ring:      newRing[T](capacity),
		consumers: make(map[uint64]*consumerState[T]),
	}
	c.curr = c.ring.invalid()
	c.next = c.ring.invalid()
	c.olde = c.ring.invalid()
	return &SwitchBuffer[T]{
		core:     c,
		producer: &Producer[T]{core: c},
	}, nil
}

// Producer hands out the sole producer handle.
// Returns ErrProducerAcquired on every call but the first.
func (s *SwitchBuffer[T]) Producer() (*Producer[T], error) {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()

	if s.producer == nil {
		return nil, ErrProducerAcquired
	}
	p := s.producer
	s.producer = nil
	return p, nil
}

// Consumer registers fresh consumer state and returns its handle.
// May be called at any time, also while the producer is active.
func (s *SwitchBuffer[T]) Consumer() *Consumer[T] {
	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.consumers[id] = &consumerState[T]{
		pos:       c.ring.invalid(),
		sanctuary: new(T),
	}
	return &Consumer[T]{core: c, id: id}
}

// Capacity returns the fixed ring capacity.
func (s *SwitchBuffer[T]) Capacity() int {
	return s.core.ring.size()
}

// Stats retrieves the current operation counters.
func (s *SwitchBuffer[T]) Stats() Stats {
	c := s.core
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stats
	st.Consumers = uint64(len(c.consumers))
	return st
}
