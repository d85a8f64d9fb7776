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

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-splitsecret/pkg/adapters/logger"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/rand"
	"github.com/jeremyhahn/go-splitsecret/pkg/splitsecret"
)

const (
	// StorageFile keeps shards as files next to the secret file
	StorageFile = "file"

	// StorageVault writes shards to a Vault KV v2 mount
	StorageVault = "vault"

	DefaultSecretFile = "secret.bin"
	DefaultShardBase  = "secret_shard"
)

// Config represents the complete splitsecret configuration
type Config struct {
	Splitting SplittingConfig `yaml:"splitting"`
	Random    RandomConfig    `yaml:"random"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SplittingConfig controls the geometry of a split
type SplittingConfig struct {
	SecretName        string `yaml:"secret_name"`
	SecretSize        int    `yaml:"secret_size"`
	Unknowns          int    `yaml:"unknowns"`
	Threshold         int    `yaml:"threshold"`
	Shards            int    `yaml:"shards"`
	SubsequenceCount  int    `yaml:"subsequence_count"`
	SequenceNumber    int    `yaml:"sequence_number"`
	MaxAttempts       int    `yaml:"max_attempts"`
	MinimalPolynomial uint32 `yaml:"minimal_polynomial"`
}

// RandomConfig selects the entropy source
type RandomConfig struct {
	Mode     string       `yaml:"mode"`     // auto, software, tpm2, pkcs11
	Fallback string       `yaml:"fallback"` // optional mode used when Mode fails
	TPM2     TPM2Config   `yaml:"tpm2"`
	PKCS11   PKCS11Config `yaml:"pkcs11"`
}

// TPM2Config configures the TPM2 RNG
type TPM2Config struct {
	Device         string `yaml:"device"`
	MaxRequestSize int    `yaml:"max_request_size"`
	UseSimulator   bool   `yaml:"use_simulator"`
	SimulatorHost  string `yaml:"simulator_host"`
	SimulatorPort  int    `yaml:"simulator_port"`
}

// PKCS11Config configures the PKCS#11 RNG
type PKCS11Config struct {
	Module         string `yaml:"module"`
	Slot           uint   `yaml:"slot"`
	PIN            string `yaml:"pin"`
	MaxRequestSize int    `yaml:"max_request_size"`
}

// StorageConfig controls where the secret and shards live
type StorageConfig struct {
	Backend    string      `yaml:"backend"` // file, vault (shards only)
	SecretFile string      `yaml:"secret_file"`
	ShardBase  string      `yaml:"shard_base"`
	Vault      VaultConfig `yaml:"vault"`
}

// VaultConfig contains Vault KV settings for shard storage
type VaultConfig struct {
	Address       string `yaml:"address"`
	Token         string `yaml:"token"`
	Namespace     string `yaml:"namespace"`
	Mount         string `yaml:"mount"`
	Prefix        string `yaml:"prefix"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls metrics export
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"` // node-exporter textfile path, optional
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	sc := splitsecret.DefaultConfig()
	return &Config{
		Splitting: SplittingConfig{
			SecretName:        sc.SecretName,
			SecretSize:        sc.SecretSize,
			Unknowns:          sc.Unknowns,
			Threshold:         sc.Threshold,
			Shards:            sc.Shards,
			SubsequenceCount:  sc.SubsequenceCount,
			SequenceNumber:    sc.SequenceNumber,
			MaxAttempts:       sc.MaxAttempts,
			MinimalPolynomial: sc.MinimalPolynomial,
		},
		Random: RandomConfig{
			Mode: string(rand.ModeAuto),
		},
		Storage: StorageConfig{
			Backend:    StorageFile,
			SecretFile: DefaultSecretFile,
			ShardBase:  DefaultShardBase,
			Vault: VaultConfig{
				Mount: "secret",
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file over the defaults and applies
// environment variable overrides. An empty path loads only the defaults
// and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies SPLITSECRET_* environment variables
func applyEnvOverrides(cfg *Config) {
	if name := os.Getenv("SPLITSECRET_SECRET_NAME"); name != "" {
		cfg.Splitting.SecretName = name
	}
	envInt("SPLITSECRET_THRESHOLD", &cfg.Splitting.Threshold)
	envInt("SPLITSECRET_SHARDS", &cfg.Splitting.Shards)
	envInt("SPLITSECRET_UNKNOWNS", &cfg.Splitting.Unknowns)
	envInt("SPLITSECRET_MAX_ATTEMPTS", &cfg.Splitting.MaxAttempts)

	// Random source
	if mode := os.Getenv("SPLITSECRET_RNG_MODE"); mode != "" {
		cfg.Random.Mode = mode
	}
	if module := os.Getenv("SPLITSECRET_PKCS11_MODULE"); module != "" {
		cfg.Random.PKCS11.Module = module
	}
	if pin := os.Getenv("SPLITSECRET_PKCS11_PIN"); pin != "" {
		cfg.Random.PKCS11.PIN = pin
	}

	// Storage
	if backend := os.Getenv("SPLITSECRET_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if addr := firstEnv("SPLITSECRET_VAULT_ADDR", "VAULT_ADDR"); addr != "" {
		cfg.Storage.Vault.Address = addr
	}
	if token := firstEnv("SPLITSECRET_VAULT_TOKEN", "VAULT_TOKEN"); token != "" {
		cfg.Storage.Vault.Token = token
	}
	if ns := firstEnv("SPLITSECRET_VAULT_NAMESPACE", "VAULT_NAMESPACE"); ns != "" {
		cfg.Storage.Vault.Namespace = ns
	}

	// Logging
	if level := os.Getenv("SPLITSECRET_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("SPLITSECRET_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Metrics
	if textfile := os.Getenv("SPLITSECRET_METRICS_TEXTFILE"); textfile != "" {
		cfg.Metrics.Textfile = textfile
	}
	if enabled := os.Getenv("SPLITSECRET_METRICS_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			log.Printf("Warning: invalid SPLITSECRET_METRICS_ENABLED value %q, using %t: %v",
				enabled, cfg.Metrics.Enabled, err)
		} else {
			cfg.Metrics.Enabled = v
		}
	}
}

func envInt(name string, dst *int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value %q, using %d: %v", name, raw, *dst, err)
		return
	}
	*dst = v
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.SplitterConfig().Validate(); err != nil {
		return err
	}

	if _, err := rand.ParseMode(c.Random.Mode); err != nil {
		return fmt.Errorf("invalid random mode: %w", err)
	}
	if c.Random.Fallback != "" {
		if _, err := rand.ParseMode(c.Random.Fallback); err != nil {
			return fmt.Errorf("invalid random fallback: %w", err)
		}
	}

	switch c.Storage.Backend {
	case StorageFile:
	case StorageVault:
		if c.Storage.Vault.Address == "" {
			return fmt.Errorf("vault address is required for the vault storage backend")
		}
		if c.Storage.Vault.Token == "" {
			return fmt.Errorf("vault token is required for the vault storage backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be file or vault)", c.Storage.Backend)
	}
	if c.Storage.SecretFile == "" {
		return fmt.Errorf("storage secret_file is required")
	}
	if c.Storage.ShardBase == "" {
		return fmt.Errorf("storage shard_base is required")
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}
	return nil
}

// SplitterConfig converts the splitting section.
func (c *Config) SplitterConfig() splitsecret.Config {
	s := c.Splitting
	poly := s.MinimalPolynomial
	if poly == 0 {
		poly = gf2.DefaultPolynomial
	}
	return splitsecret.Config{
		SecretName:        s.SecretName,
		SecretSize:        s.SecretSize,
		Unknowns:          s.Unknowns,
		Threshold:         s.Threshold,
		Shards:            s.Shards,
		SubsequenceCount:  s.SubsequenceCount,
		SequenceNumber:    s.SequenceNumber,
		MaxAttempts:       s.MaxAttempts,
		MinimalPolynomial: poly,
	}
}

// RandConfig converts the random section.
func (c *Config) RandConfig() *rand.Config {
	mode, _ := rand.ParseMode(c.Random.Mode)
	var fallback rand.Mode
	if c.Random.Fallback != "" {
		fallback, _ = rand.ParseMode(c.Random.Fallback)
	}

	cfg := &rand.Config{
		Mode:         mode,
		FallbackMode: fallback,
		TPM2Config: &rand.TPM2Config{
			Device:         c.Random.TPM2.Device,
			MaxRequestSize: c.Random.TPM2.MaxRequestSize,
			UseSimulator:   c.Random.TPM2.UseSimulator,
			SimulatorHost:  c.Random.TPM2.SimulatorHost,
			SimulatorPort:  c.Random.TPM2.SimulatorPort,
		},
	}
	if c.Random.PKCS11.Module != "" {
		cfg.PKCS11Config = &rand.PKCS11Config{
			Module:         c.Random.PKCS11.Module,
			SlotID:         c.Random.PKCS11.Slot,
			PIN:            c.Random.PKCS11.PIN,
			MaxRequestSize: c.Random.PKCS11.MaxRequestSize,
		}
	}
	return cfg
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() logger.Level {
	level, _ := logger.ParseLevel(c.Logging.Level)
	return level
}
