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

//go:build tpm2

package rand

import (
	"fmt"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/tcp"
	"github.com/google/go-tpm/tpmutil"
)

// tpm2Device issues TPM2_GetRandom.
type tpm2Device struct {
	tpm transport.TPMCloser
}

func (d *tpm2Device) generate(n int) ([]byte, error) {
	rsp, err := tpm2.GetRandom{BytesRequested: uint16(n)}.Execute(d.tpm)
	if err != nil {
		return nil, fmt.Errorf("GetRandom failed: %w", err)
	}
	return rsp.RandomBytes.Buffer, nil
}

func (d *tpm2Device) close() error {
	return d.tpm.Close()
}

func newTPM2Resolver(config *TPM2Config) (Resolver, error) {
	cfg := config.withDefaults()

	tpm, err := openTPM(cfg)
	if err != nil {
		return nil, err
	}
	return newHardwareDeviceResolver(ModeTPM2, &tpm2Device{tpm: tpm}, cfg.MaxRequestSize), nil
}

func openTPM(cfg TPM2Config) (transport.TPMCloser, error) {
	if cfg.UseSimulator {
		// SWTPM listens on a command port and a platform port
		cmdAddr := fmt.Sprintf("%s:%d", cfg.SimulatorHost, cfg.SimulatorPort)
		platAddr := fmt.Sprintf("%s:%d", cfg.SimulatorHost, cfg.SimulatorPort+1)
		tpm, err := tcp.Open(tcp.Config{
			CommandAddress:  cmdAddr,
			PlatformAddress: platAddr,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to TPM simulator at %s: %w", cmdAddr, err)
		}
		return tpm, nil
	}

	dev, err := tpmutil.OpenTPM(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open TPM2 device %s: %w", cfg.Device, err)
	}
	return transport.FromReadWriteCloser(dev), nil
}

func tpm2Available() bool {
	return true
}
