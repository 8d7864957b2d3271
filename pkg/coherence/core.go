// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package coherence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	cerrors "github.com/archsim/coherence/pkg/errors"
)

// Record is one line of a memory-reference trace: a label (0 = load,
// 1 = store, 2 = compute burst) and its hex-encoded value (an address
// for load/store, a cycle count for compute).
type Record struct {
	Label int
	Value string
}

// Core drives one trace stream against its own cache, issuing bus
// transactions on miss or when coherence demands it.
type Core struct {
	id       int
	cache    *Cache
	bus      *Bus
	protocol Protocol
	tracker  *CoreTracker
	logger   logr.Logger
}

// NewCore binds a cache and a bus handle to a core id under the given
// protocol. The tracker is shared with the cache: both are borrowed
// views into the same per-core counters.
func NewCore(id int, cache *Cache, bus *Bus, protocol Protocol, tracker *CoreTracker, logger logr.Logger) *Core {
	return &Core{
		id:       id,
		cache:    cache,
		bus:      bus,
		protocol: protocol,
		tracker:  tracker,
		logger:   logger.WithName(fmt.Sprintf("core-%d", id)),
	}
}

// ID returns the core's id, matching its cache's id.
func (c *Core) ID() int { return c.id }

// Stats returns a snapshot of this core's counters.
func (c *Core) Stats() CoreStats {
	return CoreStats{
		OverallCycles:    c.tracker.OverallCycles,
		ComputeCycles:    c.tracker.ComputeCycles,
		IdleCycles:       c.tracker.IdleCycles,
		NumLoad:          c.tracker.NumLoad,
		NumStore:         c.tracker.NumStore,
		NumMiss:          c.tracker.NumMiss,
		NumPrivateAccess: c.tracker.NumPrivateAccess,
		NumSharedAccess:  c.tracker.NumSharedAccess,
	}
}

// CoreStats is a read-only snapshot of CoreTracker, safe to hand to a
// report after the simulation has joined all cores.
type CoreStats struct {
	OverallCycles    uint64
	ComputeCycles    uint64
	IdleCycles       uint64
	NumLoad          uint64
	NumStore         uint64
	NumMiss          uint64
	NumPrivateAccess uint64
	NumSharedAccess  uint64
}

// Run processes a trace record at a time, serially, until the slice
// is exhausted. There is no cancellation. Run stops early and returns
// an error only when a record's hex value does not decode or no
// coherence protocol is active.
func (c *Core) Run(records []Record) error {
	for _, rec := range records {
		switch rec.Label {
		case 0:
			if err := c.load(rec.Value); err != nil {
				return err
			}
		case 1:
			if err := c.store(rec.Value); err != nil {
				return err
			}
		case 2:
			if err := c.handleOthers(rec.Value); err != nil {
				return err
			}
		default:
			c.logger.Info("skipping unrecognized trace label", "label", rec.Label)
		}
	}
	return nil
}

func decodeHexAddress(value string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("decode hex address %q: %w", value, err)
	}
	return uint32(v), nil
}

func decodeHexCycles(value string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(value, "0x"), "0X"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("decode hex cycle count %q: %w", value, err)
	}
	return v, nil
}

// load decodes the address and dispatches to the active protocol's
// load-miss handling.
func (c *Core) load(hexAddress string) error {
	address, err := decodeHexAddress(hexAddress)
	if err != nil {
		return err
	}

	c.bus.Lock()
	defer c.bus.Unlock()

	tag, index, offset := c.cache.config.Decompose(address)
	switch c.protocol {
	case MESI:
		if state := c.cache.ProcessorLoad(tag, index, offset); state == Invalid {
			c.bus.busLoadRequestLocked(c.id, tag, index, offset)
		}
	case Dragon:
		if state := c.cache.ProcessorLoad(tag, index, offset); state == Invalid {
			c.bus.prLoadMissRequestLocked(c.id, tag, index, offset)
		}
	default:
		return fmt.Errorf("%w: no active coherence protocol", cerrors.ErrConfig)
	}
	c.tracker.incrLoad()
	return nil
}

// store decodes the address and dispatches to the active protocol's
// store handling: invalidation (MESI) or update (Dragon).
func (c *Core) store(hexAddress string) error {
	address, err := decodeHexAddress(hexAddress)
	if err != nil {
		return err
	}

	c.bus.Lock()
	defer c.bus.Unlock()

	tag, index, offset := c.cache.config.Decompose(address)
	switch c.protocol {
	case MESI:
		if err := c.storeInvalidate(tag, index, offset); err != nil {
			return err
		}
	case Dragon:
		if err := c.storeUpdate(tag, index, offset); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: no active coherence protocol", cerrors.ErrConfig)
	}
	c.tracker.incrStore()
	return nil
}

// storeInvalidate implements the MESI store flow. Caller holds the
// bus lock.
func (c *Core) storeInvalidate(tag, index, offset uint64) error {
	switch state := c.cache.ProcessorInvalidateStore(tag, index, offset); state {
	case Shared:
		// Hit on a shared line: this core keeps writing, peers must
		// give up their copies.
		c.bus.flushRequestLocked(c.id, tag, index, offset)
	case Invalid:
		// Miss: fetch ownership, then apply the write against the
		// now-resident block.
		c.bus.busLoadExclusiveRequestLocked(c.id, tag, index, offset)
		c.cache.ProcessorInvalidateStore(tag, index, offset)
	case Exclusive, Modified:
		// Already sole owner; no bus action needed.
	}
	return nil
}

// storeUpdate implements the Dragon store flow. Caller holds the bus
// lock.
func (c *Core) storeUpdate(tag, index, offset uint64) error {
	switch state := c.cache.ProcessorUpdateStore(tag, index, offset); state {
	case Invalid:
		if source := c.bus.prStoreMissRequestLocked(c.id, tag, index, offset); source == RemoteCache {
			// A peer held the block: take ownership, then ship the
			// word we just wrote out to that peer.
			c.cache.ProcessorUpdateStore(tag, index, offset)
			c.bus.busUpdateRequestLocked(c.id, tag, index, offset)
		}
	case SharedClean:
		// Promote to SharedModified (take ownership), then propagate.
		c.cache.ProcessorUpdateStore(tag, index, offset)
		c.bus.busUpdateRequestLocked(c.id, tag, index, offset)
	case SharedModified:
		// Already own the line; just propagate the new word.
		c.bus.busUpdateRequestLocked(c.id, tag, index, offset)
	case Exclusive, Modified:
		// Already sole owner; no bus action needed.
	}
	return nil
}

// handleOthers decodes a hex cycle count and accounts it as compute
// time.
func (c *Core) handleOthers(hexCycles string) error {
	cycles, err := decodeHexCycles(hexCycles)
	if err != nil {
		return err
	}
	c.compute(cycles)
	return nil
}

// compute adds cycles to both overall and compute cycle counters.
func (c *Core) compute(cycles uint64) {
	c.bus.Lock()
	defer c.bus.Unlock()
	c.tracker.trackCompute(cycles)
}
