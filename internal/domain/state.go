package domain

import "time"

// State is the persisted status of the agent.
type State struct {
	AgentID string `json:"agent_id"`

	// LastSyncID is the logical id of the most recent global summary.
	LastSyncID int64 `json:"last_sync_id"`

	LastSyncAt time.Time `json:"last_sync_at"`

	// LastChecksum is empty when the last summary was a clear message.
	LastChecksum string `json:"last_checksum"`

	Entries int `json:"entries"`
}

// RecordSummary updates the state after a global summary was sent.
func (s *State) RecordSummary(id int64, at time.Time, checksum string, entries int) {
	s.LastSyncID = id
	s.LastSyncAt = at
	s.LastChecksum = checksum
	s.Entries = entries
}
