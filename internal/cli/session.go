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
	"context"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-splitsecret/internal/config"
	"github.com/jeremyhahn/go-splitsecret/pkg/adapters/logger"
	"github.com/jeremyhahn/go-splitsecret/pkg/correlation"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/rand"
	"github.com/jeremyhahn/go-splitsecret/pkg/metrics"
	"github.com/jeremyhahn/go-splitsecret/pkg/splitsecret"
)

// session holds what one generate or recover run needs
type session struct {
	ctx      context.Context
	cfg      *config.Config
	log      logger.Logger
	rng      rand.Resolver
	splitter *splitsecret.Splitter
}

func newSession(cmd *cobra.Command, opts *Options) (*session, error) {
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = correlation.WithCorrelationID(ctx, correlation.FromEnv())

	log := newLogger(cfg, cmd.ErrOrStderr())
	rng, err := rand.NewResolver(cfg.RandConfig())
	if err != nil {
		return nil, err
	}
	log.Debug("random source ready", logger.String("mode", string(rng.Mode())))

	splitter, err := splitsecret.New(cfg.SplitterConfig(),
		splitsecret.WithLogger(log),
		splitsecret.WithRandom(rng),
		splitsecret.WithMetrics(cfg.Metrics.Enabled))
	if err != nil {
		_ = rng.Close()
		return nil, err
	}

	return &session{
		ctx:      ctx,
		cfg:      cfg,
		log:      log,
		rng:      rng,
		splitter: splitter,
	}, nil
}

// close releases the random source and flushes metrics to the textfile.
func (s *session) close() error {
	if err := s.rng.Close(); err != nil {
		s.log.Warn("failed to close random source", logger.Error(err))
	}
	if s.cfg.Metrics.Enabled && s.cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			return err
		}
		s.log.Debug("wrote metrics", logger.String("path", s.cfg.Metrics.Textfile))
	}
	return nil
}
