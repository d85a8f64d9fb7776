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

func newGenerateCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Split a secret into shards",
		Long: `Split the secret file into shards. With --generate_secret_flag a fresh
random secret is drawn and written to the secret file first; otherwise the
existing secret file is split.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.GenerateSecret, flagGenerateSecret, false,
		"generate a fresh secret instead of reading the secret file")
	cmd.Flags().BoolVar(&opts.ShowSecret, flagShowSecret, false, "print the secret in hex")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *Options) (err error) {
	s, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	secrets, secretKey, err := secretStore(s.cfg)
	if err != nil {
		return err
	}
	defer secrets.Close()

	shards, base, err := shardStore(s.cfg)
	if err != nil {
		return err
	}
	defer shards.Close()

	result, err := s.splitter.Generate(s.ctx, splitsecret.GenerateRequest{
		SecretStore:    secrets,
		SecretKey:      secretKey,
		ShardStore:     shards,
		ShardBase:      base,
		GenerateSecret: opts.GenerateSecret,
	})
	if err != nil {
		return err
	}
	return NewPrinter(opts.OutputFormat, cmd.OutOrStdout()).PrintGenerate(result, opts.ShowSecret)
}
