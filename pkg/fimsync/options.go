package fimsync

import (
	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/ports"
	"github.com/bft-labs/fimsync/pkg/log"
)

// HTTPClient is the interface used to reach the collector.
type HTTPClient = ports.HTTPClient

// Logger is the structured logger used by the agent.
type Logger = log.Logger

// Option configures an Agent.
type Option func(*options)

type options struct {
	httpClient   HTTPClient
	logger       Logger
	eventHandler EventHandler
	clock        clockwork.Clock
}

// WithHTTPClient replaces the retrying HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for agent events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}
