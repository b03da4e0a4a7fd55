package syncx

import (
	"context"
	"sync"
)

// Completion is a one-shot slot that is resolved at most once and can be
// awaited by any number of readers.
type Completion[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
}

func NewCompletion[T any]() *Completion[T] {
	return &Completion[T]{done: make(chan struct{})}
}

// Resolve stores val and wakes all waiters. It reports whether this call won;
// resolving an already-resolved completion is a no-op.
func (c *Completion[T]) Resolve(val T) bool {
	won := false
	c.once.Do(func() {
		c.val = val
		close(c.done)
		won = true
	})
	return won
}

// Done is closed once the completion has been resolved.
func (c *Completion[T]) Done() <-chan struct{} {
	return c.done
}

// TryValue returns the resolved value, if any.
func (c *Completion[T]) TryValue() (T, bool) {
	select {
	case <-c.done:
		return c.val, true
	default:
		var zero T
		return zero, false
	}
}

// Await blocks until the completion resolves or ctx fires.
func (c *Completion[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
