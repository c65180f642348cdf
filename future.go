package switchbuffer

import "context"

// Future is a single-assignment asynchronous result yielding a read-only
// buffer. It is created unresolved and resolved exactly once, either with a
// buffer or with a cancellation. The caller decides the waiting policy:
// block on Wait, select on Done, or poll with Ready.
type Future[T any] struct {
	done chan struct{}
	val  *T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func resolvedFuture[T any](val *T) *Future[T] {
	f := newFuture[T]()
	f.fulfill(val)
	return f
}

func brokenFuture[T any]() *Future[T] {
	f := newFuture[T]()
	f.cancel()
	return f
}

// fulfill resolves the future with val.
// Must be called at most once, while holding the core lock.
func (f *Future[T]) fulfill(val *T) {
	f.val = val
	close(f.done)
}

// cancel resolves the future with ErrProducerClosed.
// Must be called at most once, while holding the core lock.
func (f *Future[T]) cancel() {
	f.err = ErrProducerClosed
	close(f.done)
}

// Done returns a channel that is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the future is resolved, without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future resolves or ctx is done. It returns
// ErrProducerClosed when the producer shut down before more data arrived.
// The returned buffer is read-only and stays readable until the owning
// consumer's next Switch call.
func (f *Future[T]) Wait(ctx context.Context) (*T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
