package syncer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/integrity"
	"github.com/bft-labs/fimsync/internal/metrics"
	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/internal/protocol"
	"github.com/bft-labs/fimsync/internal/queue"
	"github.com/bft-labs/fimsync/pkg/log"
)

// Default worker settings.
const (
	DefaultSyncInterval    = 300 * time.Second
	DefaultResponseTimeout = 30 * time.Second
	DefaultQueueSize       = 16384
)

// WorkerConfig contains configuration for the sync worker.
type WorkerConfig struct {
	Component       string
	SyncInterval    time.Duration
	ResponseTimeout time.Duration
	QueueSize       int
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.SyncInterval <= 0 {
		c.SyncInterval = DefaultSyncInterval
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	return c
}

// Worker owns the sync cycle: summarize, then drain collector feedback
// until the cycle deadline.
type Worker struct {
	config     WorkerConfig
	engine     *integrity.Engine
	sender     ports.MessageSender
	encoder    protocol.Encoder
	dispatcher *Dispatcher
	stateRepo  ports.StateRepository
	clock      clockwork.Clock
	logger     log.Logger

	queue   atomic.Pointer[queue.Queue[string]]
	session Session
	state   domain.State
}

// NewWorker creates a sync worker. stateRepo may be nil.
func NewWorker(
	config WorkerConfig,
	engine *integrity.Engine,
	sender ports.MessageSender,
	stateRepo ports.StateRepository,
	clock clockwork.Clock,
	logger log.Logger,
) *Worker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	config = config.withDefaults()
	encoder := protocol.NewEncoder(config.Component)
	return &Worker{
		config:     config,
		engine:     engine,
		sender:     sender,
		encoder:    encoder,
		dispatcher: NewDispatcher(engine, sender, encoder, clock, logger),
		stateRepo:  stateRepo,
		clock:      clock,
		logger:     logger,
	}
}

// Start creates the inbound queue. Messages pushed before Start are dropped.
func (w *Worker) Start(ctx context.Context) {
	if w.queue.Load() != nil {
		return
	}
	if w.stateRepo != nil {
		state, err := w.stateRepo.Load(ctx)
		if err != nil {
			w.logger.Warn("failed to load state", log.Err(err))
		}
		w.state = state
	}
	w.queue.Store(queue.New[string](w.config.QueueSize, w.clock))
	w.logger.Info("sync worker started",
		log.Duration("sync_interval", w.config.SyncInterval),
		log.Duration("response_timeout", w.config.ResponseTimeout),
		log.Int("queue_size", w.config.QueueSize),
	)
}

// Run starts the worker if needed and cycles until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.Start(ctx)
	for {
		if err := w.Cycle(ctx); err != nil {
			return err
		}
	}
}

// Cycle runs one summarize-and-drain round. It returns only ctx errors.
func (w *Worker) Cycle(ctx context.Context) error {
	w.Start(ctx)
	w.summarize(ctx)

	deadline := w.session.Deadline(w.clock.Now(), w.config.SyncInterval, w.config.ResponseTimeout)
	w.logger.Debug("waiting for collector feedback", log.Time("until", deadline))
	q := w.queue.Load()
	for {
		msg, err := q.PopUntil(ctx, deadline)
		metrics.SetQueueLength(q.Len())
		switch {
		case errors.Is(err, domain.ErrTimeout):
			return nil
		case err != nil:
			return err
		}
		w.handle(ctx, msg)
	}
}

// Push hands an inbound message to the worker, blocking while the queue
// is full. The message is dropped and logged if the worker has not started
// or ctx ends first.
func (w *Worker) Push(ctx context.Context, msg string) error {
	q := w.queue.Load()
	if q == nil {
		w.logger.Warn("sync queue not initialized, dropping message", log.String("message", msg))
		metrics.PushDropped("not_started")
		return domain.ErrNotStarted
	}
	if err := q.Push(ctx, msg); err != nil {
		w.logger.Error("failed to queue sync message", log.Err(err), log.String("message", msg))
		metrics.PushDropped("timeout")
		return err
	}
	metrics.SetQueueLength(q.Len())
	return nil
}

func (w *Worker) summarize(ctx context.Context) {
	digest, err := w.engine.Global()
	w.session.CurrentID = w.clock.Now().Unix()

	var (
		msg     string
		msgType protocol.MessageType
	)
	if errors.Is(err, domain.ErrEmptyStore) {
		msgType = protocol.TypeClear
		msg, err = w.encoder.Clear(w.session.CurrentID)
	} else {
		msgType = protocol.TypeGlobal
		msg, err = w.encoder.Global(w.session.CurrentID, digest.Begin, digest.End, digest.Checksum)
	}
	if err != nil {
		w.logger.Error("failed to encode summary", log.Err(err))
		return
	}
	if err := w.sender.Send(ctx, msg); err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to send summary", log.Err(err))
		}
		return
	}
	metrics.MessageSent(string(msgType))
	metrics.SetEntries(digest.Count)

	w.logger.Debug("sent summary",
		log.String("type", string(msgType)),
		log.Int64("id", w.session.CurrentID),
		log.Int("entries", digest.Count),
	)
	w.record(ctx, digest)
}

func (w *Worker) record(ctx context.Context, digest integrity.Digest) {
	if w.stateRepo == nil {
		return
	}
	w.state.RecordSummary(w.session.CurrentID, w.clock.Now(), digest.Checksum, digest.Count)
	if err := w.stateRepo.Save(ctx, w.state); err != nil {
		w.logger.Warn("failed to save state", log.Err(err))
	}
}

func (w *Worker) handle(ctx context.Context, msg string) {
	err := w.dispatcher.Dispatch(ctx, &w.session, msg)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoArgument):
		w.logger.Debug("discarding sync message", log.Err(err), log.String("message", msg))
	case isMalformed(err):
		w.logger.Warn("discarding malformed sync message", log.Err(err), log.String("message", msg))
	case errors.Is(err, domain.ErrStaleMessage):
		w.logger.Debug("discarding stale sync message", log.Err(err))
	case errors.Is(err, domain.ErrUnknownCommand):
		w.logger.Warn("discarding sync message", log.Err(err))
	default:
		w.logger.Error("failed to answer sync message", log.Err(err))
	}
}
