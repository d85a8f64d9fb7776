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
	"fmt"
	"io"
	"time"

	"github.com/jeremyhahn/go-splitsecret/pkg/adapters/logger"
	"github.com/jeremyhahn/go-splitsecret/pkg/correlation"
	"github.com/jeremyhahn/go-splitsecret/pkg/metrics"
	"github.com/jeremyhahn/go-splitsecret/pkg/shard"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage"
)

// GenerateRequest names where the secret is read from or written to and
// where the shards go. The two stores may be the same backend.
type GenerateRequest struct {
	SecretStore storage.Backend
	SecretKey   string

	ShardStore storage.Backend
	ShardBase  string

	// GenerateSecret draws a fresh secret and writes it to SecretKey.
	// Otherwise the existing secret at SecretKey is split.
	GenerateSecret bool
}

// RecoverRequest names where shards are read from and where the recovered
// secret is written. A nil SecretStore skips writing.
type RecoverRequest struct {
	ShardStore storage.Backend
	ShardBase  string

	SecretStore storage.Backend
	SecretKey   string

	// SecretName, when set, rejects shards recorded under another name.
	SecretName string
}

// Rejection records a shard skipped during recovery.
type Rejection struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// Result describes a completed Generate or Recover run.
type Result struct {
	RunID      string      `json:"run_id"`
	SecretName string      `json:"secret_name"`
	Secret     []byte      `json:"-"`
	SecretKey  string      `json:"secret_key,omitempty"`
	ShardKeys  []string    `json:"shard_keys"`
	ShardsUsed []int       `json:"shards_used,omitempty"`
	Attempts   int         `json:"attempts,omitempty"`
	Rejected   []Rejection `json:"rejected,omitempty"`
}

// Generate obtains the secret, splits it and writes one shard per key
// "<ShardBase>NN". Shards are only written once the split is complete.
func (s *Splitter) Generate(ctx context.Context, req GenerateRequest) (result *Result, err error) {
	start := time.Now()
	ctx, runID := correlation.Ensure(ctx)
	log := s.logger.WithContext(ctx).With(logger.String("secret_name", s.cfg.SecretName))
	defer func() {
		s.recordOperation(metrics.OpGenerate, err, start)
		if err != nil {
			log.Error("generate failed", logger.Error(err))
		}
	}()

	if req.SecretStore == nil || req.ShardStore == nil {
		return nil, fmt.Errorf("%w: secret and shard stores are required", ErrInvalidConfig)
	}

	var secret []byte
	if req.GenerateSecret {
		secret = make([]byte, s.cfg.SecretSize)
		if _, err := io.ReadFull(s.random, secret); err != nil {
			return nil, fmt.Errorf("failed to generate secret: %w", err)
		}
		log.Info("generated new secret", logger.Int("bytes", len(secret)))
	} else {
		secret, err = req.SecretStore.Get(req.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret %s: %w", req.SecretKey, err)
		}
		if len(secret) != s.cfg.SecretSize {
			return nil, fmt.Errorf("%w: %s holds %d bytes, want %d",
				ErrInvalidSecret, req.SecretKey, len(secret), s.cfg.SecretSize)
		}
	}

	shards, attempts, err := s.split(ctx, secret)
	if err != nil {
		return nil, err
	}

	encoded := make([][]byte, len(shards))
	for i, sh := range shards {
		if encoded[i], err = shard.Marshal(sh); err != nil {
			return nil, err
		}
	}

	if req.GenerateSecret {
		if err := req.SecretStore.Put(req.SecretKey, secret, storage.SecretOptions()); err != nil {
			return nil, fmt.Errorf("failed to write secret %s: %w", req.SecretKey, err)
		}
	}

	backend := storage.Name(req.ShardStore)
	keys := make([]string, len(shards))
	for i, data := range encoded {
		keys[i] = shard.FileName(req.ShardBase, i)
		if err := req.ShardStore.Put(keys[i], data, storage.ShardOptions(i)); err != nil {
			return nil, fmt.Errorf("failed to write shard %s: %w", keys[i], err)
		}
		if s.metrics {
			metrics.RecordShardWritten(backend)
		}
		log.Debug("wrote shard", logger.String("key", keys[i]), logger.Int("bytes", len(data)))
	}

	log.Info("secret split",
		logger.Int("shards", len(keys)),
		logger.Int("threshold", s.cfg.Threshold),
		logger.Int("attempts", attempts),
		logger.Bool("generated", req.GenerateSecret),
		logger.String("backend", backend),
		logger.Duration("elapsed", time.Since(start)))

	return &Result{
		RunID:      runID,
		SecretName: s.cfg.SecretName,
		Secret:     secret,
		SecretKey:  req.SecretKey,
		ShardKeys:  keys,
		Attempts:   attempts,
	}, nil
}

// Recover reads every "<ShardBase>NN" key, skips shards that fail to parse
// or do not belong to the split, combines the rest and writes the secret.
func (s *Splitter) Recover(ctx context.Context, req RecoverRequest) (result *Result, err error) {
	start := time.Now()
	ctx, runID := correlation.Ensure(ctx)
	log := s.logger.WithContext(ctx)
	defer func() {
		s.recordOperation(metrics.OpRecover, err, start)
		if err != nil {
			log.Error("recover failed", logger.Error(err))
		}
	}()

	if req.ShardStore == nil {
		return nil, fmt.Errorf("%w: shard store is required", ErrInvalidConfig)
	}

	keys, err := storage.ShardKeys(req.ShardStore, req.ShardBase)
	if err != nil {
		return nil, fmt.Errorf("failed to list shards %s: %w", req.ShardBase, err)
	}

	result = &Result{RunID: runID, ShardKeys: []string{}}
	reject := func(key, reason string, err error) {
		if s.metrics {
			metrics.RecordShardRejected(reason)
		}
		log.Warn("skipping shard",
			logger.String("key", key), logger.String("reason", reason), logger.Error(err))
		result.Rejected = append(result.Rejected, Rejection{Key: key, Reason: reason, Error: err.Error()})
	}

	var shards []*shard.Shard
	seen := make(map[int]bool)
	for _, key := range keys {
		data, err := req.ShardStore.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read shard %s: %w", key, err)
		}
		sh, err := shard.Unmarshal(data)
		if err != nil {
			reject(key, metrics.ReasonParse, err)
			continue
		}
		if req.SecretName != "" && sh.SecretName != req.SecretName {
			reject(key, metrics.ReasonIncompatible,
				fmt.Errorf("%w: shard is for %q", shard.ErrIncompatibleShards, sh.SecretName))
			continue
		}
		if len(shards) > 0 && !shards[0].Compatible(sh) {
			reject(key, metrics.ReasonIncompatible,
				fmt.Errorf("%w: %s does not match %s", shard.ErrIncompatibleShards, sh, shards[0]))
			continue
		}
		if seen[sh.ShardNumber] {
			reject(key, metrics.ReasonDuplicate, fmt.Errorf("shard %d already loaded", sh.ShardNumber))
			continue
		}
		seen[sh.ShardNumber] = true
		shards = append(shards, sh)
		result.ShardKeys = append(result.ShardKeys, key)
	}
	log.Debug("loaded shards", logger.Strings("keys", result.ShardKeys))

	if len(shards) == 0 {
		return nil, fmt.Errorf("%w: no readable shards under %q", ErrInsufficientShares, req.ShardBase)
	}

	secret, used, err := s.combine(ctx, shards)
	if err != nil {
		return nil, err
	}

	if req.SecretStore != nil {
		if err := req.SecretStore.Put(req.SecretKey, secret, storage.SecretOptions()); err != nil {
			return nil, fmt.Errorf("failed to write secret %s: %w", req.SecretKey, err)
		}
		result.SecretKey = req.SecretKey
	}

	result.SecretName = shards[0].SecretName
	result.Secret = secret
	result.ShardsUsed = used
	log.Info("secret recovered",
		logger.String("secret_name", result.SecretName),
		logger.Ints("shards", used),
		logger.Int("rejected", len(result.Rejected)),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}
