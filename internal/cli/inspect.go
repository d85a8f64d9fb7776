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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-splitsecret/pkg/metrics"
	"github.com/jeremyhahn/go-splitsecret/pkg/shard"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage"
	"github.com/jeremyhahn/go-splitsecret/pkg/storage/file"
)

func newInspectCmd(opts *Options) *cobra.Command {
	var equations bool

	cmd := &cobra.Command{
		Use:   "inspect [shard-file...]",
		Short: "Print shard metadata",
		Long: `Print the metadata of the given shard files, or of every
<shardfilename>NN shard when no file is named.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			start := time.Now()
			defer func() {
				metrics.RecordOperation(metrics.OpInspect, metrics.Status(err), time.Since(start).Seconds())
			}()

			printer := NewPrinter(opts.OutputFormat, cmd.OutOrStdout())
			if err := printer.validate(); err != nil {
				return err
			}

			if len(args) > 0 {
				for _, path := range args {
					dir, key := splitPath(path)
					store, err := file.New(dir)
					if err != nil {
						return err
					}
					err = inspectShard(printer, store, key, equations)
					store.Close()
					if err != nil {
						return err
					}
				}
				return nil
			}

			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			store, base, err := shardStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			keys, err := storage.ShardKeys(store, base)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				return fmt.Errorf("%w: no shards under %q", shard.ErrInsufficientShares, cfg.Storage.ShardBase)
			}
			for _, key := range keys {
				if err := inspectShard(printer, store, key, equations); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&equations, "equations", false, "also print every equation")
	return cmd
}

func inspectShard(printer *Printer, store storage.Backend, key string, equations bool) error {
	data, err := store.Get(key)
	if err != nil {
		return fmt.Errorf("failed to read shard %s: %w", key, err)
	}
	s, err := shard.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return printer.PrintShard(key, s, equations)
}
