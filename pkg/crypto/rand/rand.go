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

// Package rand selects the entropy source used to draw secrets, matrix
// coefficients and padding.
//
// A Resolver wraps one of several sources:
//   - Auto: the first available of PKCS#11, TPM2 and software
//   - Software: crypto/rand
//   - TPM2: TPM2_GetRandom on a device or simulator (build tag tpm2)
//   - PKCS#11: C_GenerateRandom on an HSM slot (build tag pkcs11)
//
// Every Resolver is an io.Reader, so it can be handed directly to the
// linear system builder:
//
//	rng, err := rand.NewResolver(&rand.Config{
//	    Mode:         rand.ModeTPM2,
//	    FallbackMode: rand.ModeSoftware,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rng.Close()
//	matrix, err := linsys.GenerateMatrix(gf2.Default(), 48, rng)
//
// All Resolver implementations are safe for concurrent use.
package rand

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// Mode specifies which RNG source to use.
type Mode string

const (
	// ModeAuto selects the best available RNG.
	// Preference order: PKCS#11 > TPM2 > Software
	ModeAuto Mode = "auto"

	// ModeSoftware uses crypto/rand
	ModeSoftware Mode = "software"

	// ModeTPM2 uses Trusted Platform Module 2.0 hardware RNG
	ModeTPM2 Mode = "tpm2"

	// ModePKCS11 uses PKCS#11 hardware security module RNG
	ModePKCS11 Mode = "pkcs11"
)

var (
	// ErrUnknownMode is returned for a Mode outside the supported set.
	ErrUnknownMode = errors.New("rand: unknown mode")

	// ErrClosed is returned when a closed resolver is read from.
	ErrClosed = errors.New("rand: resolver closed")
)

// ParseMode parses a mode name, case-insensitively. The empty string is
// ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeSoftware, ModeTPM2, ModePKCS11:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Config contains RNG configuration.
type Config struct {
	// Mode specifies the primary RNG source to use.
	// Defaults to ModeAuto if not specified.
	Mode Mode

	// FallbackMode specifies the RNG source to use if the primary fails.
	// If not specified, failures are returned as errors.
	FallbackMode Mode

	// TPM2Config contains TPM2-specific configuration.
	// If nil, defaults are used.
	TPM2Config *TPM2Config

	// PKCS11Config contains PKCS#11-specific configuration.
	PKCS11Config *PKCS11Config
}

// TPM2Config contains configuration for TPM2 RNG.
type TPM2Config struct {
	// Device path to the TPM device (default: "/dev/tpmrm0")
	// Ignored when UseSimulator is true
	Device string

	// MaxRequestSize limits the bytes requested per TPM2_GetRandom call.
	// Default: 32
	MaxRequestSize int

	// UseSimulator connects to a TCP simulator instead of Device.
	UseSimulator bool

	// SimulatorHost is the simulator hostname (default: "localhost")
	SimulatorHost string

	// SimulatorPort is the simulator command port; the platform port is
	// SimulatorPort+1. Default: 2321
	SimulatorPort int
}

// PKCS11Config contains configuration for PKCS#11 RNG.
type PKCS11Config struct {
	// Module path to the PKCS#11 library (e.g., /usr/lib/softhsm/libsofthsm2.so)
	Module string

	// SlotID specifies the PKCS#11 slot containing the RNG
	SlotID uint

	// PIN authenticates the session when set
	PIN string

	// MaxRequestSize limits the bytes requested per C_GenerateRandom call.
	// Default: 256
	MaxRequestSize int
}

const (
	defaultTPM2Device       = "/dev/tpmrm0"
	defaultTPM2MaxRequest   = 32
	defaultSimulatorHost    = "localhost"
	defaultSimulatorPort    = 2321
	defaultPKCS11MaxRequest = 256
)

// withDefaults returns a copy of c with unset fields filled in. A nil
// config yields the defaults.
func (c *TPM2Config) withDefaults() TPM2Config {
	var cfg TPM2Config
	if c != nil {
		cfg = *c
	}
	if cfg.Device == "" {
		cfg.Device = defaultTPM2Device
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultTPM2MaxRequest
	}
	if cfg.SimulatorHost == "" {
		cfg.SimulatorHost = defaultSimulatorHost
	}
	if cfg.SimulatorPort <= 0 {
		cfg.SimulatorPort = defaultSimulatorPort
	}
	return cfg
}

func (c *PKCS11Config) withDefaults() PKCS11Config {
	var cfg PKCS11Config
	if c != nil {
		cfg = *c
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultPKCS11MaxRequest
	}
	return cfg
}

// Source represents a random number generator.
type Source interface {
	// Rand returns n random bytes.
	Rand(n int) ([]byte, error)

	// Available returns true if this RNG source is ready.
	Available() bool

	// Close releases any resources.
	Close() error
}

// Resolver is the RNG an application creates at startup and reuses. It
// implements io.Reader.
type Resolver interface {
	// Rand returns n random bytes from the configured source, trying the
	// fallback source if the primary fails.
	Rand(n int) ([]byte, error)

	// Read fills p completely or returns an error.
	Read(p []byte) (n int, err error)

	// Mode reports the source actually in use. For ModeAuto this is the
	// source that was selected.
	Mode() Mode

	// Source returns the underlying RNG Source being used.
	Source() Source

	// Available returns true if at least one RNG source is available.
	Available() bool

	// Close closes the resolver and releases any resources.
	Close() error
}

// NewResolver creates a resolver from a Mode, a *Config or nil (auto).
func NewResolver(config interface{}) (Resolver, error) {
	cfg := normalizeConfig(config)
	return newResolver(cfg)
}

// normalizeConfig converts various config types to *Config.
func normalizeConfig(config interface{}) *Config {
	if config == nil {
		return &Config{Mode: ModeAuto}
	}

	switch v := config.(type) {
	case Mode:
		return &Config{Mode: v}
	case *Config:
		if v == nil {
			return &Config{Mode: ModeAuto}
		}
		if v.Mode == "" {
			v.Mode = ModeAuto
		}
		return v
	default:
		return &Config{Mode: ModeAuto}
	}
}

func newResolver(cfg *Config) (Resolver, error) {
	switch cfg.Mode {
	case ModeAuto, "":
		return newAutoResolver(cfg)
	case ModeSoftware:
		return newSoftwareResolver()
	case ModeTPM2, ModePKCS11:
		r, err := newHardwareResolver(cfg.Mode, cfg)
		if err != nil && cfg.FallbackMode != "" && cfg.FallbackMode != cfg.Mode {
			return newResolver(&Config{
				Mode:         cfg.FallbackMode,
				TPM2Config:   cfg.TPM2Config,
				PKCS11Config: cfg.PKCS11Config,
			})
		}
		if err != nil {
			return nil, err
		}
		if cfg.FallbackMode != "" && cfg.FallbackMode != cfg.Mode {
			fallback, ferr := newResolver(&Config{Mode: cfg.FallbackMode})
			if ferr == nil {
				return &fallbackResolver{primary: r, fallback: fallback}, nil
			}
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, cfg.Mode)
	}
}

func newHardwareResolver(mode Mode, cfg *Config) (Resolver, error) {
	if mode == ModeTPM2 {
		return newTPM2Resolver(cfg.TPM2Config)
	}
	return newPKCS11Resolver(cfg.PKCS11Config)
}

// readFull fills p from r.Rand, which may return short reads from hardware.
func readFull(r interface{ Rand(int) ([]byte, error) }, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		data, err := r.Rand(len(p) - n)
		if err != nil {
			return n, err
		}
		if len(data) == 0 {
			return n, fmt.Errorf("rand: source returned no data")
		}
		n += copy(p[n:], data)
	}
	return n, nil
}

// SoftwareResolver uses crypto/rand from the Go standard library.
type SoftwareResolver struct{}

var _ Resolver = (*SoftwareResolver)(nil)

func newSoftwareResolver() (Resolver, error) {
	return &SoftwareResolver{}, nil
}

func (s *SoftwareResolver) Rand(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	return buf, err
}

func (s *SoftwareResolver) Read(p []byte) (n int, err error) {
	return rand.Read(p)
}

func (s *SoftwareResolver) Mode() Mode {
	return ModeSoftware
}

func (s *SoftwareResolver) Source() Source {
	return &softwareSource{}
}

func (s *SoftwareResolver) Available() bool {
	return true
}

func (s *SoftwareResolver) Close() error {
	return nil
}

type softwareSource struct{}

func (s *softwareSource) Rand(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	return buf, err
}

func (s *softwareSource) Available() bool {
	return true
}

func (s *softwareSource) Close() error {
	return nil
}

// fallbackResolver reads from primary and retries failed reads on
// fallback.
type fallbackResolver struct {
	primary  Resolver
	fallback Resolver
}

func (f *fallbackResolver) Rand(n int) ([]byte, error) {
	data, err := f.primary.Rand(n)
	if err != nil {
		return f.fallback.Rand(n)
	}
	return data, nil
}

func (f *fallbackResolver) Read(p []byte) (int, error) {
	return readFull(f, p)
}

func (f *fallbackResolver) Mode() Mode {
	return f.primary.Mode()
}

func (f *fallbackResolver) Source() Source {
	return f.primary.Source()
}

func (f *fallbackResolver) Available() bool {
	return f.primary.Available() || f.fallback.Available()
}

func (f *fallbackResolver) Close() error {
	return errors.Join(f.primary.Close(), f.fallback.Close())
}
