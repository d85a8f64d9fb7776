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
	"fmt"
	"sync"
)

// device is an open hardware RNG session.
type device interface {
	// generate returns up to n bytes; fewer is allowed.
	generate(n int) ([]byte, error)
	close() error
}

// hardwareResolver adapts a device to Resolver. Requests larger than
// maxChunk are split, and calls are serialised because neither TPM nor
// PKCS#11 sessions may be shared between concurrent commands.
type hardwareResolver struct {
	mu       sync.Mutex
	dev      device
	mode     Mode
	maxChunk int
}

var (
	_ Resolver = (*hardwareResolver)(nil)
	_ Source   = (*hardwareResolver)(nil)
)

func newHardwareDeviceResolver(mode Mode, dev device, maxChunk int) *hardwareResolver {
	if maxChunk <= 0 {
		maxChunk = 1
	}
	return &hardwareResolver{dev: dev, mode: mode, maxChunk: maxChunk}
}

func (h *hardwareResolver) Rand(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("rand: negative length %d", n)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil {
		return nil, ErrClosed
	}
	out := make([]byte, 0, n)
	for len(out) < n {
		chunk, err := h.dev.generate(min(n-len(out), h.maxChunk))
		if err != nil {
			return nil, fmt.Errorf("rand: %s: %w", h.mode, err)
		}
		if len(chunk) == 0 {
			return nil, fmt.Errorf("rand: %s returned no data", h.mode)
		}
		out = append(out, chunk...)
	}
	return out[:n], nil
}

func (h *hardwareResolver) Read(p []byte) (int, error) {
	return readFull(h, p)
}

func (h *hardwareResolver) Mode() Mode {
	return h.mode
}

func (h *hardwareResolver) Source() Source {
	return h
}

func (h *hardwareResolver) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev != nil
}

func (h *hardwareResolver) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil {
		return nil
	}
	err := h.dev.close()
	h.dev = nil
	return err
}
