package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/pkg/log/logtest"
)

type mockBatchSender struct {
	mu      sync.Mutex
	batches [][]string
	replies [][]string
	err     error
}

func (m *mockBatchSender) Send(_ context.Context, b *domain.Batch, _ ports.SendMetadata) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), b.Messages...))
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return nil, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

func (m *mockBatchSender) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.batches...)
}

type mockInbox struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (m *mockInbox) Push(_ context.Context, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mockInbox) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.msgs...)
}

// fullInbox never has room: every push waits for its context to end.
type fullInbox struct {
	mu        sync.Mutex
	deadlines []time.Time
}

func (f *fullInbox) Push(ctx context.Context, _ string) error {
	dl, _ := ctx.Deadline()
	f.mu.Lock()
	f.deadlines = append(f.deadlines, dl)
	f.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (f *fullInbox) Deadlines() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.deadlines...)
}

func startShipper(t *testing.T, cfg ShipperConfig, sender *mockBatchSender, inbox Inbox) (*Shipper, context.CancelFunc, chan error) {
	t.Helper()
	s := NewShipper(cfg, sender, inbox, nil, logtest.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	return s, cancel, errc
}

func TestShipper_SendsFullBatchAndForwardsReplies(t *testing.T) {
	sender := &mockBatchSender{replies: [][]string{{"checksum_fail {}", "no_data {}"}}}
	inbox := &mockInbox{}
	s, cancel, errc := startShipper(t, ShipperConfig{SendInterval: time.Hour, MaxBatchMessages: 2}, sender, inbox)
	defer cancel()

	ctx := context.Background()
	require.NoError(t, s.Send(ctx, "m1"))
	require.NoError(t, s.Send(ctx, "m2"))

	require.Eventually(t, func() bool { return len(inbox.Messages()) == 2 }, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, [][]string{{"m1", "m2"}}, sender.Batches())
	require.Equal(t, []string{"checksum_fail {}", "no_data {}"}, inbox.Messages())

	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
}

func TestShipper_SendsOnInterval(t *testing.T) {
	sender := &mockBatchSender{}
	s, cancel, _ := startShipper(t, ShipperConfig{SendInterval: 10 * time.Millisecond, MaxBatchMessages: 100}, sender, &mockInbox{})
	defer cancel()

	require.NoError(t, s.Send(context.Background(), "only"))
	require.Eventually(t, func() bool { return len(sender.Batches()) == 1 }, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"only"}, sender.Batches()[0])
}

func TestShipper_FlushesOnShutdown(t *testing.T) {
	sender := &mockBatchSender{}
	s, cancel, errc := startShipper(t, ShipperConfig{SendInterval: time.Hour, MaxBatchMessages: 100}, sender, &mockInbox{})

	require.NoError(t, s.Send(context.Background(), "pending"))
	require.Eventually(t, func() bool {
		return len(s.outbound) == 0
	}, 5*time.Second, time.Millisecond)
	cancel()
	<-errc

	require.Equal(t, [][]string{{"pending"}}, sender.Batches())
}

func TestShipper_DropsFailedBatch(t *testing.T) {
	sender := &mockBatchSender{err: errors.New("unavailable")}
	s, cancel, _ := startShipper(t, ShipperConfig{SendInterval: time.Hour, MaxBatchMessages: 1}, sender, &mockInbox{})
	defer cancel()

	require.NoError(t, s.Send(context.Background(), "a"))
	require.NoError(t, s.Send(context.Background(), "b"))
	require.Eventually(t, func() bool { return len(sender.Batches()) == 2 }, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, [][]string{{"a"}, {"b"}}, sender.Batches())
}

func TestShipper_SendRespectsContext(t *testing.T) {
	s := NewShipper(ShipperConfig{MaxBatchMessages: 1}, &mockBatchSender{}, &mockInbox{}, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Send(context.Background(), "fills buffer"))
	require.NoError(t, s.Send(context.Background(), "fills buffer"))
	require.ErrorIs(t, s.Send(ctx, "blocked"), context.Canceled)
}

func TestShipper_RepliesShareOneTimeout(t *testing.T) {
	sender := &mockBatchSender{replies: [][]string{{"r1", "r2", "r3"}}}
	inbox := &fullInbox{}
	cfg := ShipperConfig{SendInterval: time.Hour, MaxBatchMessages: 1, ReplyTimeout: 200 * time.Millisecond}
	s, cancel, _ := startShipper(t, cfg, sender, inbox)
	defer cancel()

	require.NoError(t, s.Send(context.Background(), "m1"))
	require.Eventually(t, func() bool { return len(inbox.Deadlines()) == 3 }, 5*time.Second, 5*time.Millisecond)

	deadlines := inbox.Deadlines()
	require.False(t, deadlines[0].IsZero())
	require.Equal(t, deadlines[0], deadlines[1])
	require.Equal(t, deadlines[0], deadlines[2])
}
