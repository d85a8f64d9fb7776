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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-splitsecret/pkg/adapters/logger"
	"github.com/jeremyhahn/go-splitsecret/pkg/correlation"
	"github.com/jeremyhahn/go-splitsecret/pkg/crypto/linsys"
	"github.com/jeremyhahn/go-splitsecret/pkg/shard"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage/file"
)

func generate(t *testing.T, s *Splitter, store storage.Backend) *Result {
	t.Helper()
	res, err := s.Generate(context.Background(), GenerateRequest{
		SecretStore:    store,
		SecretKey:      "secret.bin",
		ShardStore:     store,
		ShardBase:      "secret_shard",
		GenerateSecret: true,
	})
	require.NoError(t, err)
	return res
}

func TestGenerateRecover(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()

	gen := generate(t, s, store)
	assert.Equal(t, []string{"secret_shard00", "secret_shard01", "secret_shard02"}, gen.ShardKeys)
	assert.Len(t, gen.Secret, 16)
	assert.NotEmpty(t, gen.RunID)
	assert.GreaterOrEqual(t, gen.Attempts, 1)

	stored, err := store.Get("secret.bin")
	require.NoError(t, err)
	assert.Equal(t, gen.Secret, stored)

	md, err := store.Metadata("secret.bin")
	require.NoError(t, err)
	assert.Equal(t, "secret", md["kind"])
	md, err = store.Metadata("secret_shard02")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"kind": "shard", "shard": "2"}, md)

	rec, err := s.Recover(context.Background(), RecoverRequest{
		ShardStore:  store,
		ShardBase:   "secret_shard",
		SecretStore: store,
		SecretKey:   "recovered.bin",
	})
	require.NoError(t, err)
	assert.Equal(t, gen.Secret, rec.Secret)
	assert.Equal(t, []int{0, 1, 2}, rec.ShardsUsed)
	assert.Equal(t, "JLM_Key", rec.SecretName)

	recovered, err := store.Get("recovered.bin")
	require.NoError(t, err)
	assert.Equal(t, gen.Secret, recovered)
}

func TestGenerateFromExistingSecret(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()
	require.NoError(t, store.Put("secret.bin", testSecret(), nil))

	res, err := s.Generate(context.Background(), GenerateRequest{
		SecretStore: store,
		SecretKey:   "secret.bin",
		ShardStore:  store,
		ShardBase:   "secret_shard",
	})
	require.NoError(t, err)
	assert.Equal(t, testSecret(), res.Secret)

	rec, err := s.Recover(context.Background(), RecoverRequest{ShardStore: store, ShardBase: "secret_shard"})
	require.NoError(t, err)
	assert.Equal(t, testSecret(), rec.Secret)
	assert.Empty(t, rec.SecretKey)
}

func TestGenerateSecretErrors(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()

	req := GenerateRequest{SecretStore: store, SecretKey: "secret.bin", ShardStore: store, ShardBase: "s"}
	_, err := s.Generate(context.Background(), req)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Put("secret.bin", []byte("short"), nil))
	_, err = s.Generate(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	keys, err := store.List("s")
	require.NoError(t, err)
	assert.Equal(t, []string{"secret.bin"}, keys, "no shards may be written on failure")

	_, err = s.Generate(context.Background(), GenerateRequest{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGenerateRetriesExhaustedWritesNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	s, err := New(cfg, WithRandom(constReader(0x07)), WithMetrics(false))
	require.NoError(t, err)
	store := storage.NewMemory()

	_, err = s.Generate(context.Background(), GenerateRequest{
		SecretStore: store, SecretKey: "secret.bin",
		ShardStore: store, ShardBase: "secret_shard",
		GenerateSecret: true,
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)

	keys, err := store.List("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRecoverTwoShardsFails(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()
	generate(t, s, store)
	require.NoError(t, store.Delete("secret_shard01"))

	_, err := s.Recover(context.Background(), RecoverRequest{ShardStore: store, ShardBase: "secret_shard"})
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestRecoverSkipsUnparseableShards(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()
	gen := generate(t, s, store)
	require.NoError(t, store.Put("secret_shard07", []byte{0xff, 0xff, 0xff}, nil))
	require.NoError(t, store.Put("secret_shard.bak", []byte("ignored"), nil))

	rec, err := s.Recover(context.Background(), RecoverRequest{ShardStore: store, ShardBase: "secret_shard"})
	require.NoError(t, err)
	assert.Equal(t, gen.Secret, rec.Secret)
	require.Len(t, rec.Rejected, 1)
	assert.Equal(t, "secret_shard07", rec.Rejected[0].Key)
	assert.Equal(t, "parse", rec.Rejected[0].Reason)
}

func TestRecoverParseFailureLeavesTooFew(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()
	generate(t, s, store)

	data, err := store.Get("secret_shard02")
	require.NoError(t, err)
	require.NoError(t, store.Put("secret_shard02", data[:len(data)/2], nil))

	_, err = s.Recover(context.Background(), RecoverRequest{ShardStore: store, ShardBase: "secret_shard"})
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestRecoverFlippedShardByte(t *testing.T) {
	tests := []struct {
		name string
		pos  func(data []byte, last linsys.Equation) int
	}{
		{"leading tag", func([]byte, linsys.Equation) int { return 0 }},
		{"secret name", func([]byte, linsys.Equation) int { return 2 }},
		{"last equation value", func(data []byte, last linsys.Equation) int {
			// Values from 0x80 up take two varint bytes; bit 0 sits in the first.
			if last.Value >= 0x80 {
				return len(data) - 2
			}
			return len(data) - 1
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSplitter(t, nil)
			store := storage.NewMemory()
			gen := generate(t, s, store)

			data := mustGet(t, store, "secret_shard01")
			sh, err := shard.Unmarshal(data)
			require.NoError(t, err)
			data[tt.pos(data, sh.Equations[len(sh.Equations)-1])] ^= 0x01
			require.NoError(t, store.Put("secret_shard01", data, nil))

			rec, err := s.Recover(context.Background(), RecoverRequest{ShardStore: store, ShardBase: "secret_shard"})
			if err != nil {
				assert.True(t,
					errors.Is(err, ErrParse) || errors.Is(err, ErrInsufficientShares) || errors.Is(err, ErrSingularMatrix),
					"unexpected error: %v", err)
				return
			}
			assert.NotEqual(t, gen.Secret, rec.Secret, "a flipped byte went unnoticed")
		})
	}
}

func TestRecoverNoShards(t *testing.T) {
	s := newSplitter(t, nil)
	_, err := s.Recover(context.Background(), RecoverRequest{ShardStore: storage.NewMemory(), ShardBase: "x"})
	assert.ErrorIs(t, err, ErrInsufficientShares)

	_, err = s.Recover(context.Background(), RecoverRequest{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRecoverFiltersBySecretName(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()
	gen := generate(t, s, store)

	// A shard of another secret under the same base.
	other := newSplitter(t, func(c *Config) { c.SecretName = "other" })
	shards, err := other.Split(context.Background(), testSecret())
	require.NoError(t, err)
	data, err := shard.Marshal(shards[0])
	require.NoError(t, err)
	require.NoError(t, store.Put("secret_shard00", data, nil))
	require.NoError(t, store.Put("secret_shard10", mustGet(t, store, "secret_shard00"), nil))

	_, err = s.Recover(context.Background(), RecoverRequest{
		ShardStore: store, ShardBase: "secret_shard", SecretName: "JLM_Key",
	})
	assert.ErrorIs(t, err, ErrInsufficientShares)

	// A complete set under another base recovers despite the stray shard.
	res, err := s.Generate(context.Background(), GenerateRequest{
		SecretStore: store, SecretKey: "secret.bin",
		ShardStore: store, ShardBase: "fresh",
	})
	require.NoError(t, err)
	require.NoError(t, store.Put("fresh03", data, nil))

	rec, err := s.Recover(context.Background(), RecoverRequest{
		ShardStore: store, ShardBase: "fresh", SecretName: "JLM_Key",
	})
	require.NoError(t, err)
	assert.Equal(t, gen.Secret, rec.Secret)
	assert.Equal(t, res.Secret, rec.Secret)
	require.Len(t, rec.Rejected, 1)
	assert.Equal(t, "incompatible", rec.Rejected[0].Reason)
}

func TestRecoverDuplicateShardFiles(t *testing.T) {
	s := newSplitter(t, nil)
	store := storage.NewMemory()
	gen := generate(t, s, store)
	require.NoError(t, store.Put("secret_shard05", mustGet(t, store, "secret_shard01"), nil))

	rec, err := s.Recover(context.Background(), RecoverRequest{ShardStore: store, ShardBase: "secret_shard"})
	require.NoError(t, err)
	assert.Equal(t, gen.Secret, rec.Secret)
	require.Len(t, rec.Rejected, 1)
	assert.Equal(t, "duplicate", rec.Rejected[0].Reason)
}

func TestGenerateRecoverFileStorage(t *testing.T) {
	s := newSplitter(t, nil)
	secrets, err := file.New(t.TempDir())
	require.NoError(t, err)
	shards, err := file.New(t.TempDir())
	require.NoError(t, err)

	gen, err := s.Generate(context.Background(), GenerateRequest{
		SecretStore: secrets, SecretKey: "secret.bin",
		ShardStore: shards, ShardBase: "custodians/secret_shard",
		GenerateSecret: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "custodians/secret_shard02", gen.ShardKeys[2])

	require.NoError(t, secrets.Delete("secret.bin"))
	rec, err := s.Recover(context.Background(), RecoverRequest{
		ShardStore: shards, ShardBase: "custodians/secret_shard",
		SecretStore: secrets, SecretKey: "secret.bin",
	})
	require.NoError(t, err)
	assert.Equal(t, gen.Secret, mustGet(t, secrets, "secret.bin"))
	assert.Equal(t, gen.Secret, rec.Secret)
}

func TestGenerateLogsRunIDWithoutSecret(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewSlogAdapter(&logger.SlogConfig{
		Handler: slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	s := newSplitter(t, nil, WithLogger(l))

	ctx := correlation.WithCorrelationID(context.Background(), "ceremony-7")
	store := storage.NewMemory()
	res, err := s.Generate(ctx, GenerateRequest{
		SecretStore: store, SecretKey: "secret.bin",
		ShardStore: store, ShardBase: "secret_shard",
		GenerateSecret: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ceremony-7", res.RunID)

	out := buf.String()
	assert.Contains(t, out, `"run_id":"ceremony-7"`)
	assert.Contains(t, out, "secret split")
	assert.NotContains(t, out, string(res.Secret))

	var split map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "secret split" {
			split = entry
		}
	}
	require.NotNil(t, split)
	assert.Equal(t, true, split["generated"])
	assert.Contains(t, split, "elapsed")
}

func mustGet(t *testing.T, store storage.Backend, key string) []byte {
	t.Helper()
	data, err := store.Get(key)
	require.NoError(t, err)
	return data
}
