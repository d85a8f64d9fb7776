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

package rand

import (
	"sync"
)

// autoResolver uses the first hardware source that opens and falls back to
// crypto/rand. PKCS#11 is only tried when a module is configured.
type autoResolver struct {
	mu       sync.RWMutex
	primary  Resolver
	fallback Resolver
}

var _ Resolver = (*autoResolver)(nil)

func newAutoResolver(cfg *Config) (Resolver, error) {
	primary := detectHardware(cfg)
	if primary == nil {
		primary = &SoftwareResolver{}
	}

	a := &autoResolver{primary: primary}
	if fb := cfg.FallbackMode; fb != "" && fb != ModeAuto && fb != primary.Mode() {
		// A fallback that cannot be opened is left out rather than failing
		// a resolver that already works.
		a.fallback, _ = newResolver(&Config{
			Mode:         fb,
			TPM2Config:   cfg.TPM2Config,
			PKCS11Config: cfg.PKCS11Config,
		})
	}
	return a, nil
}

// detectHardware returns nil when no hardware source is usable.
func detectHardware(cfg *Config) Resolver {
	candidates := []struct {
		enabled bool
		open    func() (Resolver, error)
	}{
		{
			enabled: pkcs11Available() && cfg.PKCS11Config != nil && cfg.PKCS11Config.Module != "",
			open:    func() (Resolver, error) { return newPKCS11Resolver(cfg.PKCS11Config) },
		},
		{
			enabled: tpm2Available(),
			open:    func() (Resolver, error) { return newTPM2Resolver(cfg.TPM2Config) },
		},
	}

	for _, p := range candidates {
		if !p.enabled {
			continue
		}
		r, err := p.open()
		if err != nil {
			continue
		}
		if r.Available() {
			return r
		}
		_ = r.Close()
	}
	return nil
}

func (a *autoResolver) sources() (Resolver, Resolver) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.primary, a.fallback
}

func (a *autoResolver) Rand(n int) ([]byte, error) {
	primary, fallback := a.sources()
	if primary == nil {
		return nil, ErrClosed
	}
	data, err := primary.Rand(n)
	if err != nil && fallback != nil {
		return fallback.Rand(n)
	}
	return data, err
}

func (a *autoResolver) Read(p []byte) (int, error) {
	return readFull(a, p)
}

// Mode reports the selected source, or ModeAuto once closed.
func (a *autoResolver) Mode() Mode {
	if primary, _ := a.sources(); primary != nil {
		return primary.Mode()
	}
	return ModeAuto
}

func (a *autoResolver) Source() Source {
	if primary, _ := a.sources(); primary != nil {
		return primary.Source()
	}
	return nil
}

func (a *autoResolver) Available() bool {
	primary, fallback := a.sources()
	if primary == nil {
		return false
	}
	return primary.Available() || (fallback != nil && fallback.Available())
}

func (a *autoResolver) Close() error {
	a.mu.Lock()
	primary, fallback := a.primary, a.fallback
	a.primary, a.fallback = nil, nil
	a.mu.Unlock()

	if primary != nil {
		_ = primary.Close()
	}
	if fallback != nil {
		_ = fallback.Close()
	}
	return nil
}
