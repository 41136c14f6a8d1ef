// Package ports defines the interfaces that connect the sync core to its
// collaborators.
//
//   - [EntryStore]: the locked, ordered inventory of monitored entries
//   - [MessageSender]: hands serialized protocol messages to the outbound transport
//   - [BatchSender]: ships a batch to the collector and returns its replies
//   - [StateRepository]: persists agent status
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The core (internal/syncer, internal/integrity) depends only on these
// interfaces; internal/store and internal/adapters provide implementations.
package ports
