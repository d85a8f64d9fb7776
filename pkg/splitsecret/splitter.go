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
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/jeremyhahn/go-splitsecret/pkg/adapters/logger"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/gf2"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/linsys"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/rand"
	"github.com/jeremyhahn/go-splitsecret/pkg/metrics"
	"github.com/jeremyhahn/go-splitsecret/pkg/shard"
)

// Splitter splits and recovers secrets for one Config. It is safe for
// concurrent use if its random source is.
type Splitter struct {
	cfg     Config
	field   *gf2.Field
	random  io.Reader
	logger  logger.Logger
	metrics bool
}

// New validates cfg and returns a Splitter.
func New(cfg Config, opts ...Option) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	field := gf2.Default()
	if cfg.MinimalPolynomial != gf2.DefaultPolynomial {
		var err error
		if field, err = gf2.NewField(cfg.MinimalPolynomial); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	s := &Splitter{
		cfg:     cfg,
		field:   field,
		random:  &rand.SoftwareResolver{},
		logger:  logger.Nop(),
		metrics: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the splitter's configuration.
func (s *Splitter) Config() Config {
	return s.cfg
}

// Field returns the field the systems are built over.
func (s *Splitter) Field() *gf2.Field {
	return s.field
}

// Params returns the metadata every shard of a split carries.
func (s *Splitter) Params() shard.Params {
	return shard.Params{
		SecretName:              s.cfg.SecretName,
		SubsequenceCount:        s.cfg.SubsequenceCount,
		SequenceNumber:          s.cfg.SequenceNumber,
		ShardsOutstanding:       s.cfg.Shards,
		ShardsRequired:          s.cfg.Threshold,
		EquationsPerShard:       s.cfg.EquationsPerShard(),
		CoefficientsPerEquation: s.cfg.Unknowns,
	}
}

// Split embeds secret in a fresh random system and returns its shards.
// secret must be exactly SecretSize bytes.
func (s *Splitter) Split(ctx context.Context, secret []byte) ([]*shard.Shard, error) {
	start := time.Now()
	shards, _, err := s.split(ctx, secret)
	s.recordOperation(metrics.OpSplit, err, start)
	return shards, err
}

// Combine recovers the secret from a threshold set of shards.
func (s *Splitter) Combine(ctx context.Context, shards []*shard.Shard) ([]byte, error) {
	start := time.Now()
	secret, _, err := s.combine(ctx, shards)
	s.recordOperation(metrics.OpCombine, err, start)
	return secret, err
}

// split returns the shards and the number of matrices drawn.
func (s *Splitter) split(ctx context.Context, secret []byte) ([]*shard.Shard, int, error) {
	if len(secret) != s.cfg.SecretSize {
		return nil, 0, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSecret, len(secret), s.cfg.SecretSize)
	}
	x, err := s.unknowns(secret)
	if err != nil {
		return nil, 0, err
	}

	log := s.logger.WithContext(ctx)
	k := s.cfg.EquationsPerShard()
	rows := s.cfg.Shards * k

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		a, err := linsys.GenerateRows(s.field, rows, s.cfg.Unknowns, s.random)
		if err != nil {
			return nil, attempt, err
		}
		instance, err := linsys.BuildSystem(s.field, a, x)
		if err != nil {
			return nil, attempt, err
		}

		err = s.verify(ctx, instance, x, k)
		if errors.Is(err, linsys.ErrSingularMatrix) {
			if s.metrics {
				metrics.RecordSingularMatrix()
			}
			log.Debug("singular system, drawing a new matrix",
				logger.Int("attempt", attempt), logger.Error(err))
			continue
		}
		if err != nil {
			return nil, attempt, err
		}

		shards := make([]*shard.Shard, s.cfg.Shards)
		for i := range shards {
			if shards[i], err = shard.Fill(s.Params(), i, instance); err != nil {
				return nil, attempt, err
			}
		}
		if s.metrics {
			metrics.RecordAttempts(attempt)
		}
		log.Debug("system generated",
			logger.Int("attempt", attempt),
			logger.Int("subsets_checked", s.cfg.Subsets()))
		return shards, attempt, nil
	}

	return nil, s.cfg.MaxAttempts, fmt.Errorf("%w: %d consecutive matrices were singular",
		ErrRetriesExhausted, s.cfg.MaxAttempts)
}

// unknowns places the secret bytes first and fills the rest of x with
// random padding.
func (s *Splitter) unknowns(secret []byte) ([]gf2.Element, error) {
	padding, err := linsys.RandomVector(s.field, s.cfg.Unknowns-len(secret), s.random, false)
	if err != nil {
		return nil, err
	}
	x := make([]gf2.Element, 0, s.cfg.Unknowns)
	for _, b := range secret {
		x = append(x, gf2.Element(b))
	}
	return append(x, padding...), nil
}

// verify solves the system formed by every threshold subset of shards and
// checks the solution against x, then checks that no smaller set of shards
// constrains the secret.
func (s *Splitter) verify(ctx context.Context, instance linsys.System, x []gf2.Element, k int) error {
	for subset := range shard.EachCombination(s.cfg.Shards, s.cfg.Threshold) {
		if err := ctx.Err(); err != nil {
			return err
		}
		parts := make([]linsys.System, len(subset))
		for i, n := range subset {
			parts[i] = instance[n*k : (n+1)*k]
		}
		solved, err := linsys.Solve(s.field, linsys.Concat(parts...))
		if err != nil {
			return fmt.Errorf("shards %v: %w", subset, err)
		}
		if !slices.Equal(solved, x) {
			return fmt.Errorf("shards %v: solution does not reproduce the secret", subset)
		}
	}
	return s.hidden(ctx, instance, k)
}

// hidden checks every set of Threshold-1 shards. The equations such a set
// holds, restricted to the padding columns, must be linearly independent:
// then the random padding masks every combination of secret bytes those
// equations could reveal. A rank deficit is reported as ErrSingularMatrix
// so the caller draws a new matrix.
func (s *Splitter) hidden(ctx context.Context, instance linsys.System, k int) error {
	below := s.cfg.Threshold - 1
	if below == 0 {
		return nil
	}
	for subset := range shard.EachCombination(s.cfg.Shards, below) {
		if err := ctx.Err(); err != nil {
			return err
		}
		block := make([][]gf2.Element, 0, below*k)
		for _, n := range subset {
			for _, eq := range instance[n*k : (n+1)*k] {
				block = append(block, eq.Coefficients[s.cfg.SecretSize:])
			}
		}
		rank, err := linsys.Rank(s.field, block)
		if err != nil {
			return err
		}
		if rank < len(block) {
			return fmt.Errorf("shards %v: %w: padding rank %d of %d",
				subset, linsys.ErrSingularMatrix, rank, len(block))
		}
	}
	return nil
}

// combine returns the secret and the shard numbers it was solved from.
func (s *Splitter) combine(ctx context.Context, shards []*shard.Shard) ([]byte, []int, error) {
	distinct, err := shard.Distinct(shards)
	if err != nil {
		return nil, nil, err
	}
	if len(distinct) == 0 {
		return nil, nil, fmt.Errorf("%w: no shards", ErrInsufficientShares)
	}
	required := distinct[0].ShardsRequired
	if len(distinct) < required {
		return nil, nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientShares, required, len(distinct))
	}
	if s.cfg.SecretSize > distinct[0].CoefficientCount {
		return nil, nil, fmt.Errorf("%w: shards hold %d unknowns, secret is %d bytes",
			ErrInvalidSecret, distinct[0].CoefficientCount, s.cfg.SecretSize)
	}

	log := s.logger.WithContext(ctx)
	var lastErr error
	for subset := range shard.EachCombination(len(distinct), required) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		picked := make([]*shard.Shard, len(subset))
		used := make([]int, len(subset))
		for i, idx := range subset {
			picked[i] = distinct[idx]
			used[i] = distinct[idx].ShardNumber
		}
		system, err := shard.Assemble(picked)
		if err != nil {
			return nil, nil, err
		}

		x, err := linsys.Solve(s.field, system)
		if errors.Is(err, linsys.ErrSingularMatrix) {
			lastErr = fmt.Errorf("shards %v: %w", used, err)
			log.Warn("shard set is singular", logger.Ints("shards", used))
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		if err := s.checkConsistency(distinct, x); err != nil {
			return nil, nil, err
		}
		secret, err := s.secretFrom(x)
		if err != nil {
			return nil, nil, err
		}
		return secret, used, nil
	}
	return nil, nil, lastErr
}

// checkConsistency verifies that every equation of every shard holds for x.
// With exactly a threshold set this always passes; surplus shards expose
// tampering or shards of a different split.
func (s *Splitter) checkConsistency(shards []*shard.Shard, x []gf2.Element) error {
	for _, sh := range shards {
		for i, eq := range sh.Equations {
			y, err := linsys.MultiplyLinear(s.field, eq.Coefficients, x)
			if err != nil {
				return fmt.Errorf("shard %d equation %d: %w", sh.ShardNumber, i, err)
			}
			if y != eq.Value {
				return fmt.Errorf("%w: shard %d equation %d does not hold",
					ErrInconsistentShards, sh.ShardNumber, i)
			}
		}
	}
	return nil
}

func (s *Splitter) secretFrom(x []gf2.Element) ([]byte, error) {
	secret := make([]byte, s.cfg.SecretSize)
	for i := range secret {
		if x[i] > 0xff {
			return nil, fmt.Errorf("%w: unknown %d is 0x%x, not a byte", ErrInvalidSecret, i, x[i])
		}
		secret[i] = byte(x[i])
	}
	return secret, nil
}

func (s *Splitter) recordOperation(op string, err error, start time.Time) {
	if s.metrics {
		metrics.RecordOperation(op, metrics.Status(err), time.Since(start).Seconds())
	}
}
