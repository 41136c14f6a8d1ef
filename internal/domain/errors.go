package domain

import "errors"

// Lifecycle errors returned by the agent and checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("fimsync: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("fimsync: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("fimsync: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("fimsync: invalid configuration")
)

// Synchronization errors.
var (
	// ErrEmptyStore signals that there are no entries to summarize.
	ErrEmptyStore = errors.New("entry store is empty")

	// ErrQueueFull is returned by a non-blocking push into a full channel.
	ErrQueueFull = errors.New("message queue is full")

	// ErrTimeout is returned when a deadline-bounded pop expires.
	ErrTimeout = errors.New("message queue wait timed out")

	// ErrNotStarted is returned when a message arrives before the worker
	// created its channel.
	ErrNotStarted = errors.New("sync worker not started")

	// ErrNoArgument is returned for inbound messages without a payload.
	ErrNoArgument = errors.New("sync message has no argument")

	// ErrInvalidArgument is returned for inbound messages whose payload is
	// not valid.
	ErrInvalidArgument = errors.New("sync message has an invalid argument")

	// ErrStaleMessage is returned for inbound messages whose id is newer
	// than the current sync id.
	ErrStaleMessage = errors.New("sync message id is ahead of the current id")

	// ErrUnknownCommand is returned for unrecognized inbound commands.
	ErrUnknownCommand = errors.New("unknown sync command")
)
