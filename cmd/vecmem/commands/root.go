// Package commands implements the vecmem CLI commands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vecmem"
	"github.com/hupe1980/vecmem/config"
	"github.com/hupe1980/vecmem/distance"
	"github.com/hupe1980/vecmem/wal"
)

type rootFlags struct {
	configPath string
	dataDir    string
	logLevel   string
	logJSON    bool
}

// Execute runs the CLI and returns the first error encountered.
func Execute() error {
	return NewRootCmd(os.Stdin, os.Stdout).Execute()
}

// NewRootCmd builds the command tree. in and out are the payload channels;
// diagnostics go to stderr regardless.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "vecmem",
		Short:         "Persistent embedding store organized into named collections",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "root directory for collection data (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON")

	cmd.AddCommand(
		newAddCmd(in, out, flags),
		newSearchCmd(in, out, flags),
		newDeleteCmd(out, flags),
		newListCmd(out, flags),
		newCollectionsCmd(out, flags),
		newCompactCmd(out, flags),
		newSnapshotCmd(out, flags),
		newRestoreCmd(out, flags),
		newTranscriptCmd(out, flags),
	)

	return cmd
}

// loadConfig merges config file, environment, and command-line flags.
func loadConfig(flags *rootFlags) (config.Config, error) {
	path := flags.configPath
	if path == "" {
		if _, err := os.Stat("vecmem.yaml"); err == nil {
			path = "vecmem.yaml"
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logJSON {
		cfg.Log.JSON = true
	}

	return cfg, nil
}

func newLogger(cfg config.Config) (*vecmem.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if cfg.Log.JSON {
		return vecmem.NewJSONLogger(level), nil
	}
	return vecmem.NewTextLogger(level), nil
}

// openRegistry builds registry options from the merged config and returns
// the logger the commands log their operations through. readOnly commands
// take a shared collection lock so they can run alongside each other.
func openRegistry(flags *rootFlags, readOnly bool) (*vecmem.Registry, config.Config, *vecmem.Logger, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, config.Config{}, nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, config.Config{}, nil, err
	}

	metric, err := distance.Parse(cfg.Metric)
	if err != nil {
		return nil, config.Config{}, nil, err
	}

	opts := []vecmem.Option{
		vecmem.WithMetric(metric),
		vecmem.WithLogger(logger),
		vecmem.WithLockTimeout(cfg.LockTimeout),
	}
	if !cfg.SyncWrites {
		opts = append(opts, vecmem.WithDurability(wal.DurabilityAsync))
	}
	if cfg.Compress {
		opts = append(opts, vecmem.WithCompression(0))
	}
	if readOnly {
		opts = append(opts, vecmem.WithReadOnly())
	}

	reg, err := vecmem.Open(cfg.DataDir, opts...)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return reg, cfg, logger, nil
}
