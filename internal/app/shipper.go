package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/metrics"
	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/pkg/log"
)

// Shipper defaults.
const (
	DefaultSendInterval = time.Second
	DefaultReplyTimeout = 30 * time.Second
)

// Inbox receives the collector's replies. The sync worker implements it.
type Inbox interface {
	Push(ctx context.Context, msg string) error
}

// InboxFunc adapts a function to Inbox.
type InboxFunc func(ctx context.Context, msg string) error

// Push calls f(ctx, msg).
func (f InboxFunc) Push(ctx context.Context, msg string) error { return f(ctx, msg) }

// ShipperConfig contains configuration for the shipper.
type ShipperConfig struct {
	SendInterval     time.Duration
	MaxBatchMessages int

	// ReplyTimeout bounds how long a reply may wait for room in the inbox.
	ReplyTimeout time.Duration

	Metadata ports.SendMetadata
}

// SendEventEmitter is called on send success or failure.
type SendEventEmitter interface {
	OnSendSuccess(messages, replies int, duration time.Duration)
	OnSendError(err error, messages int)
}

// Shipper is the transport between the sync worker and the collector.
// It implements ports.MessageSender for outbound messages and pushes every
// reply line into the inbox.
type Shipper struct {
	config   ShipperConfig
	sender   ports.BatchSender
	inbox    Inbox
	outbound chan string
	batcher  *Batcher
	clock    clockwork.Clock
	logger   log.Logger
	emitter  SendEventEmitter
}

var _ ports.MessageSender = (*Shipper)(nil)

// NewShipper creates a shipper. emitter may be nil.
func NewShipper(
	config ShipperConfig,
	sender ports.BatchSender,
	inbox Inbox,
	clock clockwork.Clock,
	logger log.Logger,
	emitter SendEventEmitter,
) *Shipper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if config.SendInterval <= 0 {
		config.SendInterval = DefaultSendInterval
	}
	if config.ReplyTimeout <= 0 {
		config.ReplyTimeout = DefaultReplyTimeout
	}
	buffer := 2 * config.MaxBatchMessages
	if buffer < 1 {
		buffer = 1
	}
	return &Shipper{
		config:   config,
		sender:   sender,
		inbox:    inbox,
		outbound: make(chan string, buffer),
		batcher:  NewBatcher(config.MaxBatchMessages, config.SendInterval, clock),
		clock:    clock,
		logger:   logger,
		emitter:  emitter,
	}
}

// Send queues msg for the next batch, blocking while the outbound buffer is full.
func (s *Shipper) Send(ctx context.Context, msg string) error {
	select {
	case s.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ships batches until ctx is canceled, then flushes what is pending.
func (s *Shipper) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.config.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.drain()
			return ctx.Err()

		case msg := <-s.outbound:
			if s.batcher.Add(msg) {
				s.flush(ctx)
			}

		case <-ticker.Chan():
			if s.batcher.ShouldSend() {
				s.flush(ctx)
			}
		}
	}
}

// drain sends the messages still buffered at shutdown. Replies are
// discarded because the worker has stopped.
func (s *Shipper) drain() {
	for len(s.outbound) > 0 {
		s.batcher.Add(<-s.outbound)
	}
	if !s.batcher.HasPending() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ReplyTimeout)
	defer cancel()
	s.send(ctx)
}

// flush ships the pending batch and hands every reply to the inbox. All
// replies of a batch share one ReplyTimeout; after it expires the remaining
// replies are queued only where the inbox has room.
func (s *Shipper) flush(ctx context.Context) {
	replies := s.send(ctx)
	if len(replies) == 0 {
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, s.config.ReplyTimeout)
	defer cancel()

	dropped := 0
	for _, reply := range replies {
		if err := s.inbox.Push(pushCtx, reply); err != nil {
			if ctx.Err() != nil {
				return
			}
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Warn("inbox full, dropped collector replies",
			log.Int("dropped", dropped),
			log.Int("replies", len(replies)),
		)
	}
}

// send ships the pending batch and resets it whatever the outcome.
// A failed batch is dropped; the next global summary resynchronizes.
func (s *Shipper) send(ctx context.Context) []string {
	batch := s.batcher.Batch()
	count := batch.Size()
	start := s.clock.Now()

	replies, err := s.sender.Send(ctx, batch, s.config.Metadata)
	s.batcher.Reset()
	metrics.BatchSent(err == nil)

	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("failed to send batch, dropping",
				log.Int("messages", count),
				log.Err(err),
			)
		}
		if s.emitter != nil {
			s.emitter.OnSendError(err, count)
		}
		return nil
	}

	duration := s.clock.Since(start)
	s.logger.Debug("sent batch",
		log.Int("messages", count),
		log.Int("replies", len(replies)),
		log.Duration("duration", duration),
	)
	if s.emitter != nil {
		s.emitter.OnSendSuccess(count, len(replies), duration)
	}
	return replies
}
