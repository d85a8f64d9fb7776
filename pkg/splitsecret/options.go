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

package splitsecret

import (
	"io"

	"github.com/jeremyhahn/go-splitsecret/pkg/adapters/logger"
)

// Option configures a Splitter.
type Option func(*Splitter)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logger.Logger) Option {
	return func(s *Splitter) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRandom sets the entropy source for secrets, padding and matrices.
// The default is crypto/rand.
func WithRandom(r io.Reader) Option {
	return func(s *Splitter) {
		if r != nil {
			s.random = r
		}
	}
}

// WithMetrics turns Prometheus recording on or off. It is on by default.
func WithMetrics(enabled bool) Option {
	return func(s *Splitter) {
		s.metrics = enabled
	}
}
