// Package domain contains the core entities of the integrity sync agent.
//
// It has no dependencies on infrastructure concerns (HTTP, file system,
// logging).
//
// # Entities
//
//   - [Entry]: the recorded state of one monitored path
//   - [Batch]: serialized protocol messages waiting to be shipped together
//   - [State]: persisted agent status (identity and last summary)
package domain
