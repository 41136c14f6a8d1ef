package queue

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/fimsync/internal/domain"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[string](4, clockwork.NewFakeClock())
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, s))
	}
	require.Equal(t, 3, q.Len())

	deadline := time.Now().Add(time.Hour)
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.PopUntil(ctx, deadline)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestQueue_CapacityClamped(t *testing.T) {
	q := New[int](0, nil)
	require.Equal(t, 1, q.Cap())
}

func TestQueue_PushQueuesWhileRoomAfterContextEnds(t *testing.T) {
	q := New[int](1, clockwork.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, q.Push(ctx, 1))
	require.ErrorIs(t, q.Push(ctx, 2), context.Canceled)
	require.Equal(t, 1, q.Len())
}

func TestQueue_TryPushFull(t *testing.T) {
	q := New[int](1, clockwork.NewFakeClock())
	require.NoError(t, q.TryPush(1))
	require.ErrorIs(t, q.TryPush(2), domain.ErrQueueFull)
}

func TestQueue_PushBlocksUntilSpace(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := New[int](1, clock)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, 1))

	done := make(chan error, 1)
	go func() { done <- q.Push(ctx, 2) }()

	select {
	case <-done:
		t.Fatal("push returned while queue was full")
	case <-time.After(20 * time.Millisecond):
	}

	got, err := q.PopUntil(ctx, clock.Now().Add(time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.NoError(t, <-done)
	require.Equal(t, 1, q.Len())
}

func TestQueue_PushCanceled(t *testing.T) {
	q := New[int](1, clockwork.NewFakeClock())
	require.NoError(t, q.TryPush(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, q.Push(ctx, 2), context.Canceled)
	require.Equal(t, 1, q.Len())
}

func TestQueue_PopUntilDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := New[int](1, clock)
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := q.PopUntil(ctx, clock.Now().Add(10*time.Second))
		errc <- err
	}()

	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)
	require.ErrorIs(t, <-errc, domain.ErrTimeout)
}

func TestQueue_PopUntilPastDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := New[int](2, clock)
	ctx := context.Background()
	past := clock.Now().Add(-time.Second)

	_, err := q.PopUntil(ctx, past)
	require.ErrorIs(t, err, domain.ErrTimeout)

	require.NoError(t, q.TryPush(7))
	got, err := q.PopUntil(ctx, past)
	require.NoError(t, err)
	require.Equal(t, 7, got)
}

func TestQueue_PopUntilWakesOnPush(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := New[string](1, clock)
	ctx := context.Background()

	got := make(chan string, 1)
	go func() {
		s, err := q.PopUntil(ctx, clock.Now().Add(time.Minute))
		if err == nil {
			got <- s
		}
		close(got)
	}()

	clock.BlockUntil(1)
	require.NoError(t, q.Push(ctx, "hello"))
	require.Equal(t, "hello", <-got)
}

func TestQueue_PopUntilCanceled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := New[int](1, clock)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := q.PopUntil(ctx, clock.Now().Add(time.Minute))
		errc <- err
	}()
	clock.BlockUntil(1)
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}
