package fimsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/fimsync/internal/adapters/http"
	"github.com/bft-labs/fimsync/internal/app"
	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/integrity"
	"github.com/bft-labs/fimsync/internal/metrics"
	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/internal/scan"
	"github.com/bft-labs/fimsync/internal/store"
	"github.com/bft-labs/fimsync/internal/syncer"
	"github.com/bft-labs/fimsync/pkg/log"
)

// Agent keeps the local inventory of the configured directories in sync
// with the collector. Use New to create one, then Start.
type Agent struct {
	config    Config
	lifecycle *app.Lifecycle
	store     *store.Store
	scanner   *scan.Scanner
	worker    *syncer.Worker
	shipper   *app.Shipper
	stateRepo ports.StateRepository
	logger    log.Logger

	mu   sync.Mutex
	done chan struct{}

	// finished is set when a run ended by itself and reached StateStopped.
	finished bool
}

// New creates an Agent in StateStopped.
// Returns an error if configuration is invalid or the status file is unreadable.
func New(cfg Config, opts ...Option) (*Agent, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: log.NewNoopLogger(), clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		clientCfg := httpAdapter.DefaultClientConfig()
		clientCfg.Timeout = cfg.HTTPTimeout
		o.httpClient = httpAdapter.NewClient(clientCfg, o.logger.With(log.String("component", "http")))
	}
	emitter := eventEmitter{handler: o.eventHandler}

	stateRepo := fs.NewStatusFile(cfg.StateDir)
	agentID, err := resolveAgentID(stateRepo, cfg.AgentID)
	if err != nil {
		return nil, err
	}
	cfg.AgentID = agentID
	logger := o.logger.With(log.String("agent_id", agentID))

	newHash, err := integrity.NewHasher(cfg.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}
	entries := store.New()
	engine := integrity.NewEngine(entries, newHash)

	workerCfg := syncer.WorkerConfig{
		Component:       cfg.Component,
		SyncInterval:    cfg.SyncInterval,
		ResponseTimeout: cfg.ResponseTimeout,
		QueueSize:       cfg.QueueSize,
	}
	if cfg.Once {
		// A single cycle ends once the collector has been quiet for ResponseTimeout.
		workerCfg.SyncInterval = cfg.ResponseTimeout
	}

	var worker *syncer.Worker
	shipper := app.NewShipper(
		app.ShipperConfig{
			SendInterval:     cfg.SendInterval,
			MaxBatchMessages: cfg.MaxBatchMessages,
			ReplyTimeout:     cfg.ResponseTimeout,
			Metadata: ports.SendMetadata{
				AgentID:    agentID,
				Hostname:   hostname(),
				OSArch:     runtime.GOOS + "/" + runtime.GOARCH,
				AuthKey:    cfg.AuthKey,
				ServiceURL: cfg.ServiceURL,
			},
		},
		httpAdapter.NewBatchSender(o.httpClient, logger),
		app.InboxFunc(func(ctx context.Context, msg string) error { return worker.Push(ctx, msg) }),
		o.clock,
		logger.With(log.String("component", "shipper")),
		emitter,
	)
	worker = syncer.NewWorker(workerCfg, engine, shipper, stateRepo, o.clock, logger.With(log.String("component", "sync")))

	scanner := scan.New(scan.Config{
		Directories:  cfg.Directories,
		ScanInterval: cfg.ScanInterval,
		Realtime:     cfg.Realtime,
	}, entries, o.clock, logger.With(log.String("component", "scan")))

	return &Agent{
		config:    cfg,
		lifecycle: app.NewLifecycle(logger, emitter),
		store:     entries,
		scanner:   scanner,
		worker:    worker,
		shipper:   shipper,
		stateRepo: stateRepo,
		logger:    logger,
	}, nil
}

// Start scans the directories once, then runs the sync worker, the shipper,
// the periodic scanner and the metrics endpoint in the background.
// In Once mode the agent stops by itself after one sync cycle.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := a.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx := a.lifecycle.Begin(ctx)
	if _, err := a.scanner.Scan(runCtx); err != nil {
		a.lifecycle.Cancel()
		_ = a.lifecycle.TransitionTo(app.StateCrashed, "initial scan failed: "+err.Error())
		return fmt.Errorf("initial scan: %w", err)
	}
	a.worker.Start(runCtx)

	a.lifecycle.Go(func() error { return a.shipper.Run(runCtx) })
	if a.config.Once {
		a.lifecycle.Go(func() error {
			err := a.worker.Cycle(runCtx)
			a.lifecycle.Cancel()
			return err
		})
	} else {
		a.lifecycle.Go(func() error { return a.worker.Run(runCtx) })
		a.lifecycle.Go(func() error { return a.scanner.Run(runCtx) })
	}
	if a.config.MetricsAddr != "" {
		addr := a.config.MetricsAddr
		a.lifecycle.Go(func() error { return metrics.Serve(runCtx, addr) })
		a.logger.Info("metrics endpoint enabled", log.String("addr", addr))
	}

	if err := a.lifecycle.TransitionTo(app.StateRunning, "agent started"); err != nil {
		return err
	}

	done := make(chan struct{})
	a.done = done
	a.finished = false
	go a.monitor(done)
	return nil
}

// monitor settles the lifecycle when the workers end without Stop.
func (a *Agent) monitor(done chan struct{}) {
	defer close(done)
	err := a.lifecycle.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lifecycle.State() != app.StateRunning {
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("agent error", log.Err(err))
		_ = a.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return
	}
	_ = a.lifecycle.TransitionTo(app.StateStopping, "run finished")
	if a.lifecycle.TransitionTo(app.StateStopped, "run finished") == nil {
		a.finished = true
	}
}

// Stop cancels the workers and waits up to ShutdownTimeout for them to
// return. Pending outbound messages are flushed. Stopping a run that
// already completed by itself, as a Once run does, returns nil.
func (a *Agent) Stop() error {
	a.mu.Lock()
	if !a.lifecycle.CanStop() {
		finished := a.finished && a.lifecycle.State() == app.StateStopped
		a.mu.Unlock()
		if finished {
			return nil
		}
		return domain.ErrNotRunning
	}
	if err := a.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		a.mu.Unlock()
		return err
	}
	a.mu.Unlock()

	a.lifecycle.Cancel()
	err := a.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if errors.Is(err, domain.ErrShutdownTimeout) {
		_ = a.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = a.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (a *Agent) Status() State {
	return a.lifecycle.State()
}

// Done is closed when the current run ends, by Stop, by completing a
// Once run, or by a worker failure. It is nil before Start.
func (a *Agent) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// AgentID returns the identity reported to the collector.
func (a *Agent) AgentID() string {
	return a.config.AgentID
}

// Entries returns the number of entries in the local inventory.
func (a *Agent) Entries() int {
	return a.store.Len()
}

// Status is the persisted summary of the last sync cycle.
type Status = domain.State

// LoadStatus reads the status file kept in stateDir.
func LoadStatus(ctx context.Context, stateDir string) (Status, error) {
	return fs.NewStatusFile(stateDir).Load(ctx)
}

// resolveAgentID returns configured, or the persisted id, or a new one
// that is saved for the next run.
func resolveAgentID(repo ports.StateRepository, configured string) (string, error) {
	ctx := context.Background()
	state, err := repo.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}

	id := configured
	if id == "" {
		id = state.AgentID
	}
	if id == "" {
		id = uuid.NewString()
	}
	if id != state.AgentID {
		state.AgentID = id
		if err := repo.Save(ctx, state); err != nil {
			return "", fmt.Errorf("save state: %w", err)
		}
	}
	return id, nil
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
