// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package report renders a simulation Result as the plain-text report
// a results file holds. It depends only on the read-only snapshot
// types coherence.CoreStats/BusStats, not on pkg/coherence's live
// components.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/archsim/coherence/pkg/coherence"
)

// Write renders result to w: a block per core, then the bus totals.
func Write(w io.Writer, result coherence.Result) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Protocol: %s\n", result.Protocol)
	for i, core := range result.Cores {
		fmt.Fprintf(bw, "\nCore %d:\n", i)
		fmt.Fprintf(bw, "  overall_cycles: %d\n", core.OverallCycles)
		fmt.Fprintf(bw, "  compute_cycles: %d\n", core.ComputeCycles)
		fmt.Fprintf(bw, "  idle_cycles: %d\n", core.IdleCycles)
		fmt.Fprintf(bw, "  num_load: %d\n", core.NumLoad)
		fmt.Fprintf(bw, "  num_store: %d\n", core.NumStore)
		fmt.Fprintf(bw, "  num_miss: %d\n", core.NumMiss)
		fmt.Fprintf(bw, "  num_private_access: %d\n", core.NumPrivateAccess)
		fmt.Fprintf(bw, "  num_shared_access: %d\n", core.NumSharedAccess)
	}

	fmt.Fprintf(bw, "\nBus:\n")
	fmt.Fprintf(bw, "  data_traffic: %d\n", result.Bus.DataTraffic)
	fmt.Fprintf(bw, "  num_invalidation: %d\n", result.Bus.NumInvalidation)
	fmt.Fprintf(bw, "  num_update: %d\n", result.Bus.NumUpdate)

	return bw.Flush()
}
