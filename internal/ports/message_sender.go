package ports

import (
	"context"

	"github.com/bft-labs/fimsync/internal/domain"
)

// MessageSender hands one serialized protocol message to the outbound transport.
type MessageSender interface {
	Send(ctx context.Context, msg string) error
}

// BatchSender ships a batch of messages to the collector.
// It returns the raw inbound commands carried by the collector's response,
// one element per command.
type BatchSender interface {
	Send(ctx context.Context, batch *domain.Batch, metadata SendMetadata) ([]string, error)
}

// SendMetadata provides context for the send operation.
// This information is included in HTTP headers for server-side tracking.
type SendMetadata struct {
	// AgentID identifies this agent to the collector
	AgentID string

	// Hostname is the agent's hostname
	Hostname string

	// OSArch is the operating system and architecture (e.g., "linux/amd64")
	OSArch string

	// AuthKey is the API authentication key
	AuthKey string

	// ServiceURL is the base URL of the collector
	ServiceURL string
}
