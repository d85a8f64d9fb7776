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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var errUnsupportedOperation = errors.New("unsupported operation")

// newRootCmd builds the command tree bound to opts
func newRootCmd(opts *Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "splitsecret",
		Short: "splitsecret - split a secret into shards of a linear system over GF(2^8)",
		Long: `splitsecret embeds a secret in the unknowns of a random linear system over
GF(2^8) and distributes the equations across shard files. Any threshold
set of shards solves the system and recovers the secret.

Shards are written as <shardfilename>00, <shardfilename>01, ...

Commands:
  generate: split a new or existing secret into shards
  recover:  rebuild the secret from shards
  inspect:  print shard metadata`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Operation {
			case "":
				return cmd.Help()
			case "generate":
				return runGenerate(cmd, opts)
			case "recover":
				return runRecover(cmd, opts)
			default:
				return fmt.Errorf("%w: %q (must be generate or recover)", errUnsupportedOperation, opts.Operation)
			}
		},
	}

	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, flagConfig, "", "config file (YAML)")
	pf.StringVarP(&opts.OutputFormat, flagOutput, "o", opts.OutputFormat, "output format (text, json)")
	pf.BoolVarP(&opts.Verbose, flagVerbose, "v", false, "verbose output")
	pf.StringVar(&opts.MetricsFile, flagMetricsFile, "",
		"write Prometheus metrics to this node-exporter textfile")
	pf.StringVar(&opts.SecretName, flagSecretName, "", "name recorded in every shard")
	pf.StringVar(&opts.ShardFile, flagShardFile, opts.ShardFile, "shard file base name")
	pf.StringVar(&opts.SecretFile, flagSecretFile, opts.SecretFile, "secret file")
	pf.StringVar(&opts.Storage, flagStorage, "", "shard storage backend (file, vault)")
	pf.IntVar(&opts.Threshold, flagThreshold, 0, "shards required to recover the secret")
	pf.IntVar(&opts.Shards, flagShards, 0, "shards to produce")
	pf.IntVar(&opts.Unknowns, flagUnknowns, 0, "dimension of the linear system")

	// Legacy single-command interface
	rootCmd.Flags().StringVar(&opts.Operation, flagOperation, "", "operation to run (generate, recover)")
	rootCmd.Flags().BoolVar(&opts.GenerateSecret, flagGenerateSecret, false,
		"generate a fresh secret instead of reading the secret file")
	rootCmd.Flags().BoolVar(&opts.ShowSecret, flagShowSecret, false, "print the secret in hex")

	rootCmd.AddCommand(newGenerateCmd(opts))
	rootCmd.AddCommand(newRecoverCmd(opts))
	rootCmd.AddCommand(newInspectCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))
	return rootCmd
}

// Execute runs the CLI against the process arguments. The error, if any,
// has already been printed; the caller only sets the exit status.
func Execute() error {
	return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes args with the given output streams
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts := NewOptions()
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		handleError(opts, stderr, err)
		return err
	}
	return nil
}

// handleError prints an error in the selected output format
func handleError(opts *Options, w io.Writer, err error) {
	printer := NewPrinter(opts.OutputFormat, w)
	_ = printer.PrintError(err) // Error printing to stderr is best-effort
}
