// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Command cachesim runs a trace-driven cache-coherence simulation and
// writes a plain-text report.
//
// Usage:
//
//	cachesim [flags] <protocol> <trace-family> <cache-size> <associativity> <block-size>
//
// protocol is one of MESI or DRAGON; anything else selects no
// protocol and the run fails fast. Word size is fixed at 4 bytes and
// the core count is fixed at 4, matching the trace corpus this tool
// was built against.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/archsim/coherence/pkg/coherence"
	cerrors "github.com/archsim/coherence/pkg/errors"
	"github.com/archsim/coherence/pkg/report"
	"github.com/archsim/coherence/pkg/trace"
)

const (
	wordSize = 4
	numCores = 4
)

var (
	resultsPath = flag.String("results", "results.txt", "Path to write the report to")
	tracesDir   = flag.String("traces", "traces", "Directory holding <family>_<core>.data trace files")
	verbose     = flag.Bool("v", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	var logger logr.Logger
	if *verbose {
		zapLog, _ := zap.NewDevelopment()
		logger = zapr.NewLogger(zapLog)
	} else {
		logger = logr.Discard()
	}

	if err := run(logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(logger logr.Logger) error {
	if flag.NArg() != 5 {
		return fmt.Errorf("%w: usage: cachesim [flags] <protocol> <trace-family> <cache-size> <associativity> <block-size>", cerrors.ErrConfig)
	}

	protocol := coherence.ParseProtocol(flag.Arg(0))
	family := flag.Arg(1)
	size, err := strconv.ParseUint(flag.Arg(2), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: cache size: %w", cerrors.ErrConfig, err)
	}
	associativity, err := strconv.ParseUint(flag.Arg(3), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: associativity: %w", cerrors.ErrConfig, err)
	}
	blockSize, err := strconv.ParseUint(flag.Arg(4), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: block size: %w", cerrors.ErrConfig, err)
	}

	logger.Info("starting simulation",
		"protocol", protocol, "trace", family,
		"cacheSize", size, "associativity", associativity, "blockSize", blockSize)

	config, err := coherence.NewCacheConfig(size, associativity, blockSize, wordSize)
	if err != nil {
		return err
	}

	system, err := coherence.NewSystem(protocol, config, numCores, logger)
	if err != nil {
		return err
	}

	traces, err := trace.LoadFamily(*tracesDir, family, numCores)
	if err != nil {
		return err
	}

	result, err := system.Run(traces)
	if err != nil {
		return err
	}

	out, err := os.Create(*resultsPath)
	if err != nil {
		return fmt.Errorf("%w: create results file: %w", cerrors.ErrTraceIO, err)
	}
	defer out.Close()

	return report.Write(out, result)
}
