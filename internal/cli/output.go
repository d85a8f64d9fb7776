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
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jeremyhahn/go-splitsecret/pkg/shard"
	"github.com/jeremyhahn/go-splitsecret/pkg/splitsecret"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(strings.ToLower(format)),
		writer: writer,
	}
}

func (p *Printer) validate() error {
	switch p.format {
	case OutputFormatText, OutputFormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintGenerate prints the outcome of a generate run. The secret is only
// included when showSecret is set.
func (p *Printer) PrintGenerate(r *splitsecret.Result, showSecret bool) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(resultJSON(r, showSecret))
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Split secret %q into %d shards (%d attempts)\n",
			r.SecretName, len(r.ShardKeys), r.Attempts)
		for _, k := range r.ShardKeys {
			fmt.Fprintf(p.writer, "  - %s\n", k)
		}
		if showSecret {
			fmt.Fprintf(p.writer, "Secret: %s\n", hex.EncodeToString(r.Secret))
		}
		return nil
	default:
		return p.validate()
	}
}

// PrintRecover prints the outcome of a recover run
func (p *Printer) PrintRecover(r *splitsecret.Result, showSecret bool) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(resultJSON(r, showSecret))
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Recovered secret %q from shards %v\n", r.SecretName, r.ShardsUsed)
		if r.SecretKey != "" {
			fmt.Fprintf(p.writer, "Wrote %s\n", r.SecretKey)
		}
		for _, rej := range r.Rejected {
			fmt.Fprintf(p.writer, "Skipped %s (%s): %s\n", rej.Key, rej.Reason, rej.Error)
		}
		if showSecret {
			fmt.Fprintf(p.writer, "Secret: %s\n", hex.EncodeToString(r.Secret))
		}
		return nil
	default:
		return p.validate()
	}
}

func resultJSON(r *splitsecret.Result, showSecret bool) map[string]interface{} {
	out := map[string]interface{}{
		"status": "success",
		"result": r,
	}
	if showSecret {
		out["secret"] = hex.EncodeToString(r.Secret)
	}
	return out
}

// PrintShard prints the metadata of a shard and, with equations set, its
// equations.
func (p *Printer) PrintShard(key string, s *shard.Shard, equations bool) error {
	switch p.format {
	case OutputFormatJSON:
		info := map[string]interface{}{
			"key":                key,
			"secret_name":        s.SecretName,
			"subsequence_count":  s.SubsequenceCount,
			"sequence_number":    s.SequenceNumber,
			"shards_outstanding": s.ShardsOutstanding,
			"shards_required":    s.ShardsRequired,
			"shard_number":       s.ShardNumber,
			"equation_count":     s.EquationCount,
			"coefficient_count":  s.CoefficientCount,
		}
		if equations {
			rows := make([]map[string]interface{}, len(s.Equations))
			for i, eq := range s.Equations {
				rows[i] = map[string]interface{}{
					"coefficients": eq.Coefficients,
					"value":        eq.Value,
				}
			}
			info["equations"] = rows
		}
		return p.printJSON(info)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Shard: %s\n", key)
		fmt.Fprintf(p.writer, "  Secret Name:   %s\n", s.SecretName)
		fmt.Fprintf(p.writer, "  Sequence:      %d of %d\n", s.SequenceNumber, s.SubsequenceCount)
		fmt.Fprintf(p.writer, "  Shard Number:  %d of %d\n", s.ShardNumber, s.ShardsOutstanding)
		fmt.Fprintf(p.writer, "  Required:      %d\n", s.ShardsRequired)
		fmt.Fprintf(p.writer, "  Equations:     %d x %d coefficients\n", s.EquationCount, s.CoefficientCount)
		if equations {
			for i, eq := range s.Equations {
				fmt.Fprintf(p.writer, "  [%02d] %v = %v\n", i, eq.Coefficients, eq.Value)
			}
		}
		return nil
	default:
		return p.validate()
	}
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return p.validate()
	}
}

// PrintError prints an error message. Unknown formats fall back to text so
// the error is never lost.
func (p *Printer) PrintError(err error) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	}
	_, werr := fmt.Fprintf(p.writer, "Error: %v\n", err)
	return werr
}

func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
