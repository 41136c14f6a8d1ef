package app

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/fimsync/internal/domain"
)

// Batcher accumulates outbound messages until the batch is full or the
// send interval elapsed.
type Batcher struct {
	batch        *domain.Batch
	maxMessages  int
	sendInterval time.Duration
	clock        clockwork.Clock
	lastSend     time.Time
}

// NewBatcher creates a new batcher. maxMessages <= 0 disables the size trigger.
func NewBatcher(maxMessages int, sendInterval time.Duration, clock clockwork.Clock) *Batcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Batcher{
		batch:        domain.NewBatch(),
		maxMessages:  maxMessages,
		sendInterval: sendInterval,
		clock:        clock,
		lastSend:     clock.Now(),
	}
}

// Add appends msg and reports whether the batch is now full.
func (b *Batcher) Add(msg string) bool {
	b.batch.Add(msg)
	return b.maxMessages > 0 && b.batch.Size() >= b.maxMessages
}

// ShouldSend returns true if a non-empty batch waited at least the send interval.
func (b *Batcher) ShouldSend() bool {
	if b.batch.Empty() {
		return false
	}
	return b.clock.Since(b.lastSend) >= b.sendInterval
}

// Batch returns the current batch.
func (b *Batcher) Batch() *domain.Batch {
	return b.batch
}

// Reset clears the batch and updates the last send time.
func (b *Batcher) Reset() {
	b.batch.Reset()
	b.lastSend = b.clock.Now()
}

// HasPending returns true if there are messages waiting to be sent.
func (b *Batcher) HasPending() bool {
	return !b.batch.Empty()
}
