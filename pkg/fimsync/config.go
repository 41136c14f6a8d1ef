package fimsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/integrity"
	"github.com/bft-labs/fimsync/internal/protocol"
	"github.com/bft-labs/fimsync/internal/syncer"
)

// Default configuration values.
const (
	DefaultServiceURL        = "http://localhost:55000"
	DefaultChecksumAlgorithm = integrity.AlgorithmSHA1
	DefaultSyncInterval      = syncer.DefaultSyncInterval
	DefaultResponseTimeout   = syncer.DefaultResponseTimeout
	DefaultQueueSize         = syncer.DefaultQueueSize
	DefaultScanInterval      = 12 * time.Hour
	DefaultSendInterval      = time.Second
	DefaultMaxBatchMessages  = 512
	DefaultHTTPTimeout       = 30 * time.Second
)

// Config configures an Agent.
type Config struct {
	// Directories are the monitored roots. Required.
	Directories []string

	// ScanInterval is the period of full rescans.
	ScanInterval time.Duration

	// Realtime rescans paths reported by filesystem notifications.
	Realtime bool

	// Component is the component name carried by every message.
	Component string

	// SyncInterval is the minimum time between global summaries.
	SyncInterval time.Duration

	// ResponseTimeout is how long an active exchange may extend a cycle.
	ResponseTimeout time.Duration

	// QueueSize is the capacity of the inbound message queue.
	QueueSize int

	// ChecksumAlgorithm is the range digest: sha1, sha256 or blake3.
	ChecksumAlgorithm string

	ServiceURL string
	AuthKey    string

	// AgentID identifies this agent. Generated and persisted if empty.
	AgentID string

	SendInterval     time.Duration
	MaxBatchMessages int
	HTTPTimeout      time.Duration

	// StateDir holds status.json.
	StateDir string

	// MetricsAddr enables the prometheus endpoint when set.
	MetricsAddr string

	// Once scans, runs a single sync cycle and stops.
	Once bool
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Component == "" {
		c.Component = protocol.DefaultComponent
	}
	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	if c.ChecksumAlgorithm == "" {
		c.ChecksumAlgorithm = DefaultChecksumAlgorithm
	}
	if c.SyncInterval == 0 {
		c.SyncInterval = DefaultSyncInterval
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.ScanInterval == 0 {
		c.ScanInterval = DefaultScanInterval
	}
	if c.SendInterval == 0 {
		c.SendInterval = DefaultSendInterval
	}
	if c.MaxBatchMessages == 0 {
		c.MaxBatchMessages = DefaultMaxBatchMessages
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if len(c.Directories) == 0 {
		return invalid("at least one directory is required")
	}
	for _, d := range c.Directories {
		if strings.TrimSpace(d) == "" {
			return invalid("empty directory")
		}
	}
	if c.StateDir == "" {
		return invalid("state dir is required")
	}

	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
	if c.ServiceURL == "" {
		return invalid("service url is required")
	}

	if _, err := integrity.NewHasher(c.ChecksumAlgorithm); err != nil {
		return invalid(err.Error())
	}

	for name, d := range map[string]time.Duration{
		"sync interval":    c.SyncInterval,
		"response timeout": c.ResponseTimeout,
		"scan interval":    c.ScanInterval,
		"send interval":    c.SendInterval,
		"http timeout":     c.HTTPTimeout,
	} {
		if d <= 0 {
			return invalid(name + " must be positive")
		}
	}
	if c.QueueSize <= 0 {
		return invalid("queue size must be positive")
	}
	if c.MaxBatchMessages <= 0 {
		return invalid("max batch messages must be positive")
	}
	return nil
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, reason)
}
