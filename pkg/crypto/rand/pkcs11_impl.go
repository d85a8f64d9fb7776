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

//go:build pkcs11

package rand

import (
	"errors"
	"fmt"

	"github.com/miekg/pkcs11"
)

// pkcs11Device issues C_GenerateRandom on one HSM session.
type pkcs11Device struct {
	ctx      *pkcs11.Ctx
	session  pkcs11.SessionHandle
	loggedIn bool
}

func (d *pkcs11Device) generate(n int) ([]byte, error) {
	b, err := d.ctx.GenerateRandom(d.session, n)
	if err != nil {
		return nil, fmt.Errorf("C_GenerateRandom failed: %w", err)
	}
	return b, nil
}

func (d *pkcs11Device) close() error {
	var errs []error
	if d.loggedIn {
		errs = append(errs, d.ctx.Logout(d.session))
	}
	errs = append(errs, d.ctx.CloseSession(d.session), d.ctx.Finalize())
	d.ctx.Destroy()
	return errors.Join(errs...)
}

func newPKCS11Resolver(config *PKCS11Config) (Resolver, error) {
	cfg := config.withDefaults()
	if cfg.Module == "" {
		return nil, fmt.Errorf("PKCS#11 module path is required")
	}

	dev, err := openPKCS11(cfg)
	if err != nil {
		return nil, err
	}
	return newHardwareDeviceResolver(ModePKCS11, dev, cfg.MaxRequestSize), nil
}

func openPKCS11(cfg PKCS11Config) (*pkcs11Device, error) {
	ctx := pkcs11.New(cfg.Module)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load PKCS#11 module: %s", cfg.Module)
	}
	if err := ctx.Initialize(); err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("failed to initialize PKCS#11: %w", err)
	}
	fail := func(msg string, err error) (*pkcs11Device, error) {
		_ = ctx.Finalize()
		ctx.Destroy()
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	// Some modules (e.g., YubiKey) only activate slots after GetSlotList
	if _, err := ctx.GetSlotList(true); err != nil {
		return fail("failed to get PKCS#11 slot list", err)
	}

	session, err := ctx.OpenSession(cfg.SlotID, pkcs11.CKF_SERIAL_SESSION)
	if err != nil {
		return fail(fmt.Sprintf("failed to open PKCS#11 session on slot %d", cfg.SlotID), err)
	}

	dev := &pkcs11Device{ctx: ctx, session: session}
	if cfg.PIN != "" {
		if err := ctx.Login(session, pkcs11.CKU_USER, cfg.PIN); err != nil {
			_ = ctx.CloseSession(session)
			return fail("failed to authenticate with PKCS#11", err)
		}
		dev.loggedIn = true
	}
	return dev, nil
}

func pkcs11Available() bool {
	return true
}
