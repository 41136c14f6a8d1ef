package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Directories       []string `toml:"directories"`
	ScanInterval      string   `toml:"scan_interval"`
	Realtime          *bool    `toml:"realtime"`
	ServiceURL        string   `toml:"service_url"`
	AuthKey           string   `toml:"auth_key"`
	AgentID           string   `toml:"agent_id"`
	Component         string   `toml:"component"`
	SyncInterval      string   `toml:"sync_interval"`
	ResponseTimeout   string   `toml:"response_timeout"`
	QueueSize         int      `toml:"queue_size"`
	ChecksumAlgorithm string   `toml:"checksum_algorithm"`
	SendInterval      string   `toml:"send_interval"`
	MaxBatchMessages  int      `toml:"max_batch_messages"`
	HTTPTimeout       string   `toml:"http_timeout"`
	StateDir          string   `toml:"state_dir"`
	MetricsAddr       string   `toml:"metrics_addr"`
	LogLevel          string   `toml:"log_level"`
	Once              *bool    `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.fimsync/config.toml if the user home
// directory is accessible.
func DefaultConfigPath() string {
	if dir := DefaultStateDir(); dir != "" {
		return filepath.Join(dir, "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setStrings("dir", fc.Directories, &cfg.Directories)
	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("auth-key", fc.AuthKey, &cfg.AuthKey)
	s.setString("agent-id", fc.AgentID, &cfg.AgentID)
	s.setString("component", fc.Component, &cfg.Component)
	s.setString("checksum-algorithm", fc.ChecksumAlgorithm, &cfg.ChecksumAlgorithm)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	for _, d := range []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"scan-interval", fc.ScanInterval, &cfg.ScanInterval},
		{"sync-interval", fc.SyncInterval, &cfg.SyncInterval},
		{"response-timeout", fc.ResponseTimeout, &cfg.ResponseTimeout},
		{"send-interval", fc.SendInterval, &cfg.SendInterval},
		{"timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
	} {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("max-batch-messages", fc.MaxBatchMessages, &cfg.MaxBatchMessages)

	s.setBool("realtime", fc.Realtime, &cfg.Realtime)
	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
