package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/fimsync/pkg/fimsync"
)

// DefaultServiceURL is the default collector endpoint.
const DefaultServiceURL = fimsync.DefaultServiceURL

// Config holds CLI configuration for fimsync.
type Config struct {
	Directories  []string
	ScanInterval time.Duration
	Realtime     bool

	ServiceURL string
	AuthKey    string
	AgentID    string
	Component  string

	SyncInterval      time.Duration
	ResponseTimeout   time.Duration
	QueueSize         int
	ChecksumAlgorithm string

	SendInterval     time.Duration
	MaxBatchMessages int
	HTTPTimeout      time.Duration

	StateDir    string
	MetricsAddr string
	LogLevel    string
	Once        bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:        DefaultServiceURL,
		Component:         "syscheck",
		SyncInterval:      fimsync.DefaultSyncInterval,
		ResponseTimeout:   fimsync.DefaultResponseTimeout,
		QueueSize:         fimsync.DefaultQueueSize,
		ChecksumAlgorithm: fimsync.DefaultChecksumAlgorithm,
		ScanInterval:      fimsync.DefaultScanInterval,
		SendInterval:      fimsync.DefaultSendInterval,
		MaxBatchMessages:  fimsync.DefaultMaxBatchMessages,
		HTTPTimeout:       fimsync.DefaultHTTPTimeout,
		StateDir:          DefaultStateDir(),
		LogLevel:          "info",
	}
}

// DefaultStateDir returns ~/.fimsync, or an empty string if the home
// directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".fimsync")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	dirs := c.Directories[:0:0]
	for _, d := range c.Directories {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, filepath.Clean(d))
		}
	}
	c.Directories = dirs
	if len(c.Directories) == 0 {
		return fmt.Errorf("at least one --dir is required")
	}

	if c.StateDir == "" {
		return fmt.Errorf("state-dir is required")
	}

	if c.ServiceURL == "" {
		c.ServiceURL = DefaultServiceURL
	}
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")

	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("response timeout must be positive")
	}
	if c.SendInterval <= 0 {
		return fmt.Errorf("send interval must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	return nil
}

// Library converts the CLI configuration to the agent configuration.
func (c Config) Library() fimsync.Config {
	return fimsync.Config{
		Directories:       append([]string(nil), c.Directories...),
		ScanInterval:      c.ScanInterval,
		Realtime:          c.Realtime,
		Component:         c.Component,
		SyncInterval:      c.SyncInterval,
		ResponseTimeout:   c.ResponseTimeout,
		QueueSize:         c.QueueSize,
		ChecksumAlgorithm: c.ChecksumAlgorithm,
		ServiceURL:        c.ServiceURL,
		AuthKey:           c.AuthKey,
		AgentID:           c.AgentID,
		SendInterval:      c.SendInterval,
		MaxBatchMessages:  c.MaxBatchMessages,
		HTTPTimeout:       c.HTTPTimeout,
		StateDir:          c.StateDir,
		MetricsAddr:       c.MetricsAddr,
		Once:              c.Once,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings replaces a list if the new one is not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
