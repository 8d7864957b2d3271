// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package coherence

import (
	"sync"

	"github.com/go-logr/logr"
)

// Bus is the shared snooping bus: the coherence serialization point.
// Every transaction walks every non-originating cache in registration
// order and takes their per-block transitions. A miss transaction
// delivers a block to the originator; an update delivers a word to
// each peer holding the line; a flush delivers nothing.
//
// Concurrency: the bus and every cache registered with it share a
// single coarse lock (mu). Its scope covers not only bus transactions
// but every per-reference Core operation — see Core — because a
// core's own processor-side access to its cache would otherwise race,
// under the Go memory model, with a peer's bus transaction snooping
// that same cache concurrently. The original (GIL-protected) threaded
// implementation tolerated that interleaving; Go cannot.
type Bus struct {
	mu sync.Mutex

	config  CacheConfig
	caches  []*Cache
	tracker *BusTracker
	logger  logr.Logger
}

// NewBus builds a bus for the given cache geometry. Caches are
// registered with AddCache before the simulation starts.
func NewBus(config CacheConfig, logger logr.Logger) *Bus {
	return &Bus{
		config:  config,
		tracker: &BusTracker{},
		logger:  logger.WithName("bus"),
	}
}

// AddCache registers a cache with the bus. Every registered cache
// observes every transaction that does not originate at itself, in
// the order caches were added.
func (b *Bus) AddCache(c *Cache) {
	b.caches = append(b.caches, c)
}

// Lock acquires the bus's single coarse lock. Core wraps every
// per-reference operation in Lock/Unlock before touching any cache,
// so the *Locked methods below never re-acquire it themselves.
func (b *Bus) Lock() { b.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (b *Bus) Unlock() { b.mu.Unlock() }

// Stats returns a snapshot of the bus-wide counters.
func (b *Bus) Stats() BusStats {
	return BusStats{
		DataTraffic:     b.tracker.DataTraffic,
		NumInvalidation: b.tracker.NumInvalidation,
		NumUpdate:       b.tracker.NumUpdate,
	}
}

// BusStats is a read-only snapshot of BusTracker, safe to hand to a
// report after the simulation has joined all cores.
type BusStats struct {
	DataTraffic     uint64
	NumInvalidation uint64
	NumUpdate       uint64
}

// BusLoadRequest is the standalone, self-locking entry point for the
// invalidation-protocol load-miss transaction, for callers that drive
// the bus without a Core.
func (b *Bus) BusLoadRequest(originatorID int, tag, index, offset uint64) BlockSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busLoadRequestLocked(originatorID, tag, index, offset)
}

func (b *Bus) busLoadRequestLocked(originatorID int, tag, index, offset uint64) BlockSource {
	foundRemote := false
	for _, c := range b.caches {
		if c.id == originatorID {
			continue
		}
		if c.BusInvalidateLoad(tag, index, offset) && !foundRemote {
			b.deliverBlock(RemoteCache, PrInvalidateLoad, originatorID, tag, index)
			foundRemote = true
		}
	}
	if foundRemote {
		return RemoteCache
	}
	b.deliverBlock(Memory, PrInvalidateLoad, originatorID, tag, index)
	return Memory
}

// BusLoadExclusiveRequest is the standalone entry point for the
// invalidation-protocol store-miss transaction.
func (b *Bus) BusLoadExclusiveRequest(originatorID int, tag, index, offset uint64) BlockSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busLoadExclusiveRequestLocked(originatorID, tag, index, offset)
}

func (b *Bus) busLoadExclusiveRequestLocked(originatorID int, tag, index, offset uint64) BlockSource {
	foundRemote := false
	for _, c := range b.caches {
		if c.id == originatorID {
			continue
		}
		if c.BusInvalidateLoadExclusive(tag, index, offset) {
			b.tracker.trackInvalidation(1)
			if !foundRemote {
				b.deliverBlock(RemoteCache, PrInvalidateStore, originatorID, tag, index)
				foundRemote = true
			}
		}
	}
	if foundRemote {
		return RemoteCache
	}
	b.deliverBlock(Memory, PrInvalidateStore, originatorID, tag, index)
	return Memory
}

// PRLoadMissRequest is the standalone entry point for the
// update-protocol (Dragon) load-miss transaction.
func (b *Bus) PRLoadMissRequest(originatorID int, tag, index, offset uint64) BlockSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prLoadMissRequestLocked(originatorID, tag, index, offset)
}

func (b *Bus) prLoadMissRequestLocked(originatorID int, tag, index, offset uint64) BlockSource {
	foundRemote := false
	for _, c := range b.caches {
		if c.id == originatorID {
			continue
		}
		if c.BusUpdateLoad(tag, index, offset) && !foundRemote {
			b.deliverBlock(RemoteCache, PrLoadMiss, originatorID, tag, index)
			foundRemote = true
		}
	}
	if foundRemote {
		return RemoteCache
	}
	b.deliverBlock(Memory, PrLoadMiss, originatorID, tag, index)
	return Memory
}

// PRStoreMissRequest is the standalone entry point for the
// update-protocol (Dragon) store-miss transaction. If any peer held
// the block, the originator installs SharedModified (taking
// ownership); otherwise it installs Modified.
func (b *Bus) PRStoreMissRequest(originatorID int, tag, index, offset uint64) BlockSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.prStoreMissRequestLocked(originatorID, tag, index, offset)
}

func (b *Bus) prStoreMissRequestLocked(originatorID int, tag, index, offset uint64) BlockSource {
	foundRemote := false
	for _, c := range b.caches {
		if c.id == originatorID {
			continue
		}
		if c.BusUpdateLoad(tag, index, offset) && !foundRemote {
			b.deliverBlock(RemoteCache, PrStoreMiss, originatorID, tag, index)
			foundRemote = true
		}
	}
	if foundRemote {
		return RemoteCache
	}
	b.deliverBlock(Memory, PrStoreMiss, originatorID, tag, index)
	return Memory
}

// BusUpdateRequest propagates a single written word to every peer
// that holds the line, under the update protocol: each such peer
// counts as one bus update and receives the word directly (not via a
// block-sized delivery).
func (b *Bus) BusUpdateRequest(originatorID int, tag, index, offset uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.busUpdateRequestLocked(originatorID, tag, index, offset)
}

func (b *Bus) busUpdateRequestLocked(originatorID int, tag, index, offset uint64) {
	for _, c := range b.caches {
		if c.id == originatorID {
			continue
		}
		if c.findBlock(tag, index) == -1 {
			continue
		}
		b.tracker.trackUpdate(1)
		b.deliverWord(RemoteCache, BusUpdateUpdate, c.id, tag, index)
	}
}

// FlushRequest invalidates the given line in every peer cache,
// writing it back if dirty. Used by the invalidation protocol when a
// store hits a Shared line: the writer keeps its copy and becomes
// sole owner once peers have flushed.
func (b *Bus) FlushRequest(originatorID int, tag, index, offset uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushRequestLocked(originatorID, tag, index, offset)
}

func (b *Bus) flushRequestLocked(originatorID int, tag, index, offset uint64) {
	for _, c := range b.caches {
		if c.id == originatorID {
			continue
		}
		c.flush(tag, index, false)
	}
}

// deliverBlock routes a full block to the target cache and accounts
// block_size bytes of traffic. Assumes the caller already holds mu.
func (b *Bus) deliverBlock(source BlockSource, op MemOperation, targetID int, tag, index uint64) {
	for _, c := range b.caches {
		if c.id != targetID {
			continue
		}
		c.receiveBlockFromBus(source, op, tag, index)
		b.tracker.trackTraffic(b.config.WordSize, b.config.WordsPerBlock)
		return
	}
}

// deliverWord routes a single word to the target cache and accounts
// word_size bytes of traffic. Assumes the caller already holds mu.
func (b *Bus) deliverWord(source BlockSource, op MemOperation, targetID int, tag, index uint64) {
	for _, c := range b.caches {
		if c.id != targetID {
			continue
		}
		c.receiveWordFromBus(source, op, tag, index)
		b.tracker.trackTraffic(b.config.WordSize, 1)
		return
	}
}
