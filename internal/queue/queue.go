// Package queue provides a bounded FIFO with blocking push and
// deadline-bounded pop.
package queue

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/domain"
)

// Queue is a capacity-limited FIFO safe for concurrent producers and consumers.
type Queue[T any] struct {
	items chan T
	clock clockwork.Clock
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int, clock clockwork.Clock) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Queue[T]{items: make(chan T, capacity), clock: clock}
}

// Push appends item, blocking while the queue is full. An item is queued
// whenever there is room, even after ctx has ended. Otherwise Push returns
// ctx.Err() once the context ends and the item is not queued.
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	if q.TryPush(item) == nil {
		return nil
	}
	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush appends item without blocking.
func (q *Queue[T]) TryPush(item T) error {
	select {
	case q.items <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// PopUntil removes the oldest item. An item that is already queued is
// returned even if the deadline has passed; otherwise it waits until one
// arrives, the deadline elapses (domain.ErrTimeout) or ctx ends.
func (q *Queue[T]) PopUntil(ctx context.Context, deadline time.Time) (T, error) {
	var zero T
	select {
	case item := <-q.items:
		return item, nil
	default:
	}

	wait := deadline.Sub(q.clock.Now())
	if wait <= 0 {
		return zero, domain.ErrTimeout
	}
	timer := q.clock.NewTimer(wait)
	defer timer.Stop()

	select {
	case item := <-q.items:
		return item, nil
	case <-timer.Chan():
		return zero, domain.ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.items) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.items) }
