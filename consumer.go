package switchbuffer

// Consumer is a reading end of a SwitchBuffer. Any number may exist, each
// advancing through the published buffers at its own pace; separate
// consumers never affect each other. A single Consumer is not safe for
// concurrent use by multiple goroutines.
type Consumer[T any] struct {
	core *core[T]
	id   uint64
}

// Switch returns a future for the next readable buffer.
//
// If unread data is buffered, the future is resolved already: a consumer
// reading for the first time starts at the oldest published buffer, a
// lapped consumer resumes at the oldest buffer that survived overwriting,
// and everyone else advances one step. With skipToMostRecent the whole
// backlog is discarded and the newest published buffer is returned instead.
//
// With no unread data the future resolves on the producer's next Switch,
// or to ErrProducerClosed once the producer is gone for good.
//
// The buffer obtained from a resolved future is read-only and stays
// readable until this consumer's next Switch call.
func (cn *Consumer[T]) Switch(skipToMostRecent bool) *Future[T] {
	c := cn.core
	c.mu.Lock()
	defer c.mu.Unlock()

	cs, ok := c.consumers[cn.id]
	if !ok {
		panic("switchbuffer: Switch on a closed consumer")
	}

	// A lapped consumer always has unread data, even when the publish
	// cursor has rotated back onto its stale position.
	if c.ring.valid(c.curr) && (cs.pos != c.curr || cs.isFull) {
		switch {
		case skipToMostRecent:
			cs.pos = c.curr
		case cs.isFull:
			// lapped: the slot after the in-production one is the oldest
			// that still holds published data
			cs.pos = c.ring.advance(c.next)
		case !c.ring.valid(cs.pos):
			cs.pos = c.olde
		default:
			cs.pos = c.ring.advance(cs.pos)
		}
		cs.isFull = false
		return resolvedFuture(c.ring.at(cs.pos))
	}

	if c.closed {
		c.stats.Cancelled++
		return brokenFuture[T]()
	}

	// abandoning an unresolved future by switching again breaks it
	if cs.pending != nil {
		cs.pending.cancel()
		c.stats.Cancelled++
	}
	cs.pending = newFuture[T]()
	return cs.pending
}

// Close deregisters the consumer, breaking its outstanding future if one
// exists. The handle must not be used afterwards.
func (cn *Consumer[T]) Close() {
	c := cn.core
	c.mu.Lock()
	defer c.mu.Unlock()

	cs, ok := c.consumers[cn.id]
	if !ok {
		panic("switchbuffer: consumer closed twice")
	}
	if cs.pending != nil {
		cs.pending.cancel()
		cs.pending = nil
		c.stats.Cancelled++
	}
	delete(c.consumers, cn.id)
}
