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

package splitsecret_test

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/jeremyhahn/go-splitsecret/pkg/splitsecret"
)

// ExampleSplitter_Split splits a 16-byte secret into three shards and
// recombines them.
func ExampleSplitter_Split() {
	s, err := splitsecret.New(splitsecret.DefaultConfig(), splitsecret.WithMetrics(false))
	if err != nil {
		log.Fatal(err)
	}

	secret := []byte("0123456789abcdef")
	shards, err := s.Split(context.Background(), secret)
	if err != nil {
		log.Fatal(err)
	}

	recovered, err := s.Combine(context.Background(), shards)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d shards of %d equations\n", len(shards), shards[0].EquationCount)
	fmt.Println("recovered:", bytes.Equal(secret, recovered))
	// Output:
	// 3 shards of 16 equations
	// recovered: true
}
