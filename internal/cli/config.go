// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-splitsecret.
//
// go-splitsecret is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-splitsecret/internal/config"
	"github.com/jeremyhahn/go-splitsecret/pkg/adapters/logger"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage/file"
)

// Flag names. The underscored names are kept for existing scripts.
const (
	flagConfig         = "config"
	flagOutput         = "output"
	flagVerbose        = "verbose"
	flagMetricsFile    = "metrics-file"
	flagOperation      = "operation_name"
	flagSecretName     = "secretname"
	flagShardFile      = "shardfilename"
	flagSecretFile     = "secretfile"
	flagGenerateSecret = "generate_secret_flag"
	flagThreshold      = "threshold"
	flagShards         = "shards"
	flagUnknowns       = "unknowns"
	flagShowSecret     = "show-secret"
	flagStorage        = "storage"
)

// Options holds the flag values of one invocation
type Options struct {
	// ConfigFile is the path to the YAML configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json)
	OutputFormat string

	// Verbose lowers the log level to debug
	Verbose bool

	// MetricsFile, when set, receives a Prometheus textfile after the run
	MetricsFile string

	// Operation selects generate or recover on the root command
	Operation string

	SecretName     string
	ShardFile      string
	SecretFile     string
	GenerateSecret bool
	Threshold      int
	Shards         int
	Unknowns       int
	ShowSecret     bool
	Storage        string
}

// NewOptions returns options with default values
func NewOptions() *Options {
	return &Options{
		OutputFormat: string(OutputFormatText),
		SecretFile:   config.DefaultSecretFile,
		ShardFile:    config.DefaultShardBase,
	}
}

// resolve loads the configuration file and applies the flags the user set.
func (o *Options) resolve(cmd *cobra.Command) (*config.Config, error) {
	if err := NewPrinter(o.OutputFormat, io.Discard).validate(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed(flagSecretName) {
		cfg.Splitting.SecretName = o.SecretName
	}
	if flags.Changed(flagShardFile) {
		cfg.Storage.ShardBase = o.ShardFile
	}
	if flags.Changed(flagSecretFile) {
		cfg.Storage.SecretFile = o.SecretFile
	}
	if flags.Changed(flagThreshold) {
		cfg.Splitting.Threshold = o.Threshold
	}
	if flags.Changed(flagShards) {
		cfg.Splitting.Shards = o.Shards
	}
	if flags.Changed(flagUnknowns) {
		cfg.Splitting.Unknowns = o.Unknowns
	}
	if flags.Changed(flagStorage) {
		cfg.Storage.Backend = o.Storage
	}
	if flags.Changed(flagMetricsFile) {
		cfg.Metrics.Textfile = o.MetricsFile
	}
	if o.Verbose {
		cfg.Logging.Level = logger.LevelDebug.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the structured logger for a run. Logs go to w, which is
// stderr for the CLI, so stdout carries only command output.
func newLogger(cfg *config.Config, w io.Writer) logger.Logger {
	return logger.NewSlogAdapter(&logger.SlogConfig{
		Level:  cfg.LogLevel(),
		Format: strings.ToLower(cfg.Logging.Format),
		Writer: w,
	})
}

// splitPath separates a file path into the directory served by a file
// store and the key inside it.
func splitPath(path string) (dir, key string) {
	dir, key = filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	return dir, key
}

// secretStore returns the file store holding the secret file and its key.
func secretStore(cfg *config.Config) (storage.Backend, string, error) {
	dir, key := splitPath(cfg.Storage.SecretFile)
	store, err := file.New(dir)
	if err != nil {
		return nil, "", err
	}
	return store, key, nil
}

// shardStore returns the store for shards and the key base inside it.
func shardStore(cfg *config.Config) (storage.Backend, string, error) {
	switch cfg.Storage.Backend {
	case config.StorageVault:
		store, err := newVaultStore(cfg.Storage.Vault)
		if err != nil {
			return nil, "", err
		}
		return store, strings.Trim(cfg.Storage.ShardBase, "/"), nil
	default:
		dir, base := splitPath(cfg.Storage.ShardBase)
		store, err := file.New(dir)
		if err != nil {
			return nil, "", err
		}
		return store, base, nil
	}
}
