package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/fimsync/internal/cliconfig"
	"github.com/bft-labs/fimsync/pkg/fimsync"
	"github.com/bft-labs/fimsync/pkg/log"
)

const helpDescription = `
Keep a file integrity monitoring collector in sync with this host.

Highlights:
  - Scans the configured directories and tracks a checksum per file.
  - Sends a global digest every sync interval and answers range and
    no_data requests from the collector.
  - Configure via file ($HOME/.fimsync/config.toml), FIMSYNC_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  fimsync --dir /etc --dir /usr/bin --service-url http://collector:55000 --auth-key <key>
  fimsync --config $HOME/.fimsync/config.toml --once
  fimsync status --state-dir $HOME/.fimsync
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "fimsync",
		Short:   "Synchronize file integrity state with a collector",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// FIMSYNC_* override the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			lvlLogger, err := cliconfig.WithLevel(logger, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			logger = lvlLogger

			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			logger.Info().Interface("config", logCfg).Msg("configuration")

			agent, err := fimsync.New(cfg.Library(),
				fimsync.WithLogger(log.NewZerologAdapterWithLogger(logger)),
			)
			if err != nil {
				return fmt.Errorf("create agent: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			if err := agent.Start(ctx); err != nil {
				return fmt.Errorf("start agent: %w", err)
			}

			select {
			case <-sigCh:
				logger.Info().Msg("received signal, stopping...")
			case <-agent.Done():
				if agent.Status() == fimsync.StateCrashed {
					return fmt.Errorf("agent crashed")
				}
			}

			if err := agent.Stop(); err != nil {
				return fmt.Errorf("stop agent: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.fimsync/config.toml)")
	root.Flags().StringSliceVar(&cfg.Directories, "dir", cfg.Directories, "directory to monitor (repeatable)")
	root.Flags().DurationVar(&cfg.ScanInterval, "scan-interval", cfg.ScanInterval, "full rescan interval")
	root.Flags().BoolVar(&cfg.Realtime, "realtime", cfg.Realtime, "rescan on filesystem notifications")

	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, fmt.Sprintf("collector URL (defaults to %s)", cliconfig.DefaultServiceURL))
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for authentication")
	root.Flags().StringVar(&cfg.AgentID, "agent-id", cfg.AgentID, "agent identifier (generated when empty)")
	root.Flags().StringVar(&cfg.Component, "component", cfg.Component, "component name carried by sync messages")
	if err := root.Flags().MarkHidden("component"); err != nil {
		logger.Info().Err(err).Msg("failed to hide component flag")
	}

	root.Flags().DurationVar(&cfg.SyncInterval, "sync-interval", cfg.SyncInterval, "minimum time between global summaries")
	root.Flags().DurationVar(&cfg.ResponseTimeout, "response-timeout", cfg.ResponseTimeout, "how long collector replies extend a cycle")
	root.Flags().IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "capacity of the inbound message queue")
	root.Flags().StringVar(&cfg.ChecksumAlgorithm, "checksum-algorithm", cfg.ChecksumAlgorithm, "range digest: sha1, sha256 or blake3")

	root.Flags().DurationVar(&cfg.SendInterval, "send-interval", cfg.SendInterval, "outbound batch interval")
	root.Flags().IntVar(&cfg.MaxBatchMessages, "max-batch-messages", cfg.MaxBatchMessages, "maximum messages per batch")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")

	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for status.json")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "prometheus listen address (disabled when empty)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "scan, run one sync cycle and exit")

	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("fimsync")
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	stateDir := cliconfig.DefaultStateDir()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the persisted sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stateDir == "" {
				return fmt.Errorf("state-dir is required")
			}
			st, err := fimsync.LoadStatus(cmd.Context(), stateDir)
			if err != nil {
				return fmt.Errorf("load status: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", stateDir, "state directory for status.json")
	return cmd
}
