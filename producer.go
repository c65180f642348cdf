package switchbuffer

// Producer is the writing end of a SwitchBuffer. A buffer issues exactly one.
// Not safe for concurrent use by multiple goroutines.
type Producer[T any] struct {
	core *core[T]
}

// Switch returns the next buffer for the caller to fill. Every call except
// the first also publishes the previously returned buffer to the consumers.
// Switch never blocks, regardless of how far any consumer lags.
func (p *Producer[T]) Switch() *T {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Productions++
	c.curr = c.next
	c.next = c.ring.advance(c.next)

	// the oldest published slot is about to be rewritten
	if c.olde == c.next {
		c.olde = c.ring.advance(c.olde)
	}

	for _, cs := range c.consumers {
		// Rescue the slot a lagging consumer still points at before its
		// content is rewritten. Once the consumer is marked lapped, its
		// last-read buffer already lives in the sanctuary; swapping again
		// would hand that buffer back to the producer mid-read. A waiting
		// consumer is not lagging: it has read everything up to here, and
		// this very call fulfills it with the newest value, so marking it
		// lapped would make its next read re-deliver that value.
		if cs.pos == c.next && !cs.isFull && cs.pending == nil {
			cs.sanctuary = c.ring.swap(c.next, cs.sanctuary)
			cs.isFull = true
			c.stats.Steals++
		}
	}

	if c.ring.valid(c.curr) {
		c.stats.Publications++
		if !c.ring.valid(c.olde) {
			c.olde = c.curr
		}
		for _, cs := range c.consumers {
			if cs.pending != nil {
				cs.pos = c.curr
				cs.pending.fulfill(c.ring.at(c.curr))
				cs.pending = nil
				c.stats.Fulfilled++
			}
		}
	}

	return c.ring.at(c.next)
}

// Close marks the stream as ended and breaks every outstanding consumer
// wait. Already-published data stays readable until each consumer catches
// up. Close is called exactly once; the handle must not be used afterwards.
func (p *Producer[T]) Close() {
	c := p.core
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for _, cs := range c.consumers {
		if cs.pending != nil {
			cs.pending.cancel()
			cs.pending = nil
			c.stats.Cancelled++
		}
	}
}
