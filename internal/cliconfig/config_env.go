package cliconfig

import (
	"os"
	"strings"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "FIMSYNC_"

func getenv(name string) string { return os.Getenv(EnvPrefix + name) }

// ApplyEnvConfig applies configuration from environment variables (FIMSYNC_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setStrings("dir", splitList(getenv("DIRS")), &cfg.Directories)
	s.setString("service-url", getenv("SERVICE_URL"), &cfg.ServiceURL)
	s.setString("auth-key", getenv("AUTH_KEY"), &cfg.AuthKey)
	s.setString("agent-id", getenv("AGENT_ID"), &cfg.AgentID)
	s.setString("component", getenv("COMPONENT"), &cfg.Component)
	s.setString("checksum-algorithm", getenv("CHECKSUM_ALGORITHM"), &cfg.ChecksumAlgorithm)
	s.setString("state-dir", getenv("STATE_DIR"), &cfg.StateDir)
	s.setString("metrics-addr", getenv("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("scan-interval", getenv("SCAN_INTERVAL"), &cfg.ScanInterval); err != nil {
		return err
	}
	if err := s.setDuration("sync-interval", getenv("SYNC_INTERVAL"), &cfg.SyncInterval); err != nil {
		return err
	}
	if err := s.setDuration("response-timeout", getenv("RESPONSE_TIMEOUT"), &cfg.ResponseTimeout); err != nil {
		return err
	}
	if err := s.setDuration("send-interval", getenv("SEND_INTERVAL"), &cfg.SendInterval); err != nil {
		return err
	}
	if err := s.setDuration("timeout", getenv("HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("queue-size", getenv("QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-messages", getenv("MAX_BATCH_MESSAGES"), &cfg.MaxBatchMessages); err != nil {
		return err
	}

	s.setBoolFromString("realtime", getenv("REALTIME"), &cfg.Realtime)
	s.setBoolFromString("once", getenv("ONCE"), &cfg.Once)

	return nil
}

// splitList splits a comma separated list, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
