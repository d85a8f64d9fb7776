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
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-splitsecret/pkg/splitsecret"
)

func newRecoverCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Recover a secret from its shards",
		Long: `Read every <shardfilename>NN shard, skip the ones that cannot be parsed,
solve the system and write the secret file. With --secretname only shards
recorded under that name are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.ShowSecret, flagShowSecret, false, "print the secret in hex")
	return cmd
}

func runRecover(cmd *cobra.Command, opts *Options) (err error) {
	s, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	shards, base, err := shardStore(s.cfg)
	if err != nil {
		return err
	}
	defer shards.Close()

	secrets, secretKey, err := secretStore(s.cfg)
	if err != nil {
		return err
	}
	defer secrets.Close()

	req := splitsecret.RecoverRequest{
		ShardStore:  shards,
		ShardBase:   base,
		SecretStore: secrets,
		SecretKey:   secretKey,
	}
	if cmd.Flags().Changed(flagSecretName) {
		req.SecretName = opts.SecretName
	}

	result, err := s.splitter.Recover(s.ctx, req)
	if err != nil {
		return err
	}
	return NewPrinter(opts.OutputFormat, cmd.OutOrStdout()).PrintRecover(result, opts.ShowSecret)
}
