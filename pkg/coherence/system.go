// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package coherence

import (
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	cerrors "github.com/archsim/coherence/pkg/errors"
)

// System wires one Bus and numCores (Cache, Core) pairs under a
// chosen protocol, and joins every core's trace run into a combined
// Result.
type System struct {
	protocol Protocol
	bus      *Bus
	cores    []*Core
	trackers []*CoreTracker
	logger   logr.Logger
}

// NewSystem builds a system of numCores cores sharing one bus under
// the given cache geometry. Each core gets its own cache and tracker;
// the bus owns the single lock serializing all of them.
func NewSystem(protocol Protocol, config CacheConfig, numCores int, logger logr.Logger) (*System, error) {
	if protocol != MESI && protocol != Dragon {
		return nil, fmt.Errorf("%w: unsupported protocol %q", cerrors.ErrConfig, protocol)
	}
	if numCores <= 0 {
		return nil, fmt.Errorf("%w: numCores must be positive, got %d", cerrors.ErrConfig, numCores)
	}

	bus := NewBus(config, logger)
	cores := make([]*Core, numCores)
	trackers := make([]*CoreTracker, numCores)
	for id := 0; id < numCores; id++ {
		tracker := &CoreTracker{}
		cache := NewCache(id, config, tracker, logger)
		bus.AddCache(cache)
		cores[id] = NewCore(id, cache, bus, protocol, tracker, logger)
		trackers[id] = tracker
	}

	return &System{
		protocol: protocol,
		bus:      bus,
		cores:    cores,
		trackers: trackers,
		logger:   logger.WithName("system"),
	}, nil
}

// Result is the joined outcome of one simulation run: every core's
// counters, indexed by core id, plus the shared bus's.
type Result struct {
	Protocol Protocol
	Cores    []CoreStats
	Bus      BusStats
}

// Run drives each core's trace concurrently, one goroutine per core,
// and joins before assembling Result. traces[i] is the record stream
// for core i; len(traces) must equal the core count the system was
// built with.
func (s *System) Run(traces [][]Record) (Result, error) {
	if len(traces) != len(s.cores) {
		return Result{}, fmt.Errorf("%w: got %d trace streams for %d cores", cerrors.ErrConfig, len(traces), len(s.cores))
	}

	var g errgroup.Group
	for i, core := range s.cores {
		i, core := i, core
		g.Go(func() error {
			if err := core.Run(traces[i]); err != nil {
				return fmt.Errorf("core %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	cores := make([]CoreStats, len(s.cores))
	for i, core := range s.cores {
		cores[i] = core.Stats()
	}

	return Result{
		Protocol: s.protocol,
		Cores:    cores,
		Bus:      s.bus.Stats(),
	}, nil
}
