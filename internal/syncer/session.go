// Package syncer runs the integrity synchronization cycle: a worker that
// periodically summarizes the entry store and a dispatcher that answers
// the collector's feedback by splitting or resending ranges.
package syncer

import "time"

// Session is the logical clock shared by the worker and the dispatcher.
// Both run on the worker goroutine, so it is not guarded.
type Session struct {
	// CurrentID is seeded from the wall clock on every global summary and
	// may be lowered by the collector.
	CurrentID int64

	// LastMessageTime is when the last accepted inbound message arrived.
	LastMessageTime time.Time
}

// Deadline returns the end of the wait window for a cycle starting at now.
func (s *Session) Deadline(now time.Time, syncInterval, responseTimeout time.Duration) time.Time {
	deadline := now.Add(syncInterval)
	if margin := s.LastMessageTime.Add(responseTimeout); margin.After(deadline) {
		return margin
	}
	return deadline
}
