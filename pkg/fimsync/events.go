package fimsync

import (
	"time"

	"github.com/bft-labs/fimsync/internal/app"
	"github.com/bft-labs/fimsync/internal/domain"
)

// State is the lifecycle state of an Agent.
type State = app.State

// Lifecycle states.
const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// Errors returned by Agent methods.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// SendSuccessEvent is emitted after a batch reached the collector.
type SendSuccessEvent struct {
	Messages int
	Replies  int
	Duration time.Duration
}

// SendErrorEvent is emitted when a batch could not be sent and was dropped.
type SendErrorEvent struct {
	Error    error
	Messages int
}

// EventHandler receives agent notifications. Methods are called
// synchronously and should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnSendSuccess(SendSuccessEvent)
	OnSendError(SendErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops for embedding.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnSendSuccess(SendSuccessEvent) {}
func (BaseEventHandler) OnSendError(SendErrorEvent)     {}

// eventEmitter adapts EventHandler to the internal emitter interfaces.
type eventEmitter struct {
	handler EventHandler
}

func (e eventEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{Previous: previous, Current: current, Reason: reason})
}

func (e eventEmitter) OnSendSuccess(messages, replies int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendSuccess(SendSuccessEvent{Messages: messages, Replies: replies, Duration: duration})
}

func (e eventEmitter) OnSendError(err error, messages int) {
	if e.handler == nil {
		return
	}
	e.handler.OnSendError(SendErrorEvent{Error: err, Messages: messages})
}
