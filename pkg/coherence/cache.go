// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package coherence

import (
	"github.com/go-logr/logr"

	cerrors "github.com/archsim/coherence/pkg/errors"
)

// Cache is a set-associative, LRU-replaced private cache. It is
// identified by a core id unique across the system it belongs to.
//
// Every public method here is called either directly by the owning
// Core, or by the Bus while snooping this cache as a peer of some
// other core's transaction. Both call paths are only ever reached
// while the owning Bus's single lock is held — see Bus for why that
// lock's scope covers processor-side access too, not just bus
// transactions.
type Cache struct {
	id      int
	config  CacheConfig
	tracker *CoreTracker
	logger  logr.Logger

	sets [][]CacheBlock

	// numOperation is stamped onto a block's LastUsed on every access
	// and incremented afterward, giving LRU a monotonic per-cache clock.
	numOperation uint64
}

// NewCache builds a cache with config.SetsPerCache sets of
// config.Associativity blocks each.
func NewCache(id int, config CacheConfig, tracker *CoreTracker, logger logr.Logger) *Cache {
	sets := make([][]CacheBlock, config.SetsPerCache)
	for i := range sets {
		set := make([]CacheBlock, config.Associativity)
		for w := range set {
			set[w] = newCacheBlock(config.WordsPerBlock)
		}
		sets[i] = set
	}
	return &Cache{
		id:      id,
		config:  config,
		tracker: tracker,
		logger:  logger.WithName("cache"),
		sets:    sets,
	}
}

func (c *Cache) ID() int { return c.id }

// findBlock returns the way index within set `index` whose block
// carries `tag` and is not Invalid, or -1 if there is no such block.
func (c *Cache) findBlock(tag, index uint64) int {
	set := c.sets[index]
	for way := range set {
		if set[way].Tag == tag && !set[way].isInvalid() {
			return way
		}
	}
	return -1
}

func (c *Cache) stamp(block *CacheBlock) {
	block.LastUsed = c.numOperation
	c.numOperation++
}

// ProcessorLoad handles a processor-issued load. On a hit it records
// the hit and the access (private or shared, by the current state)
// and returns that state; on a miss it counts the miss and returns
// Invalid.
func (c *Cache) ProcessorLoad(tag, index, offset uint64) BlockState {
	way := c.findBlock(tag, index)
	if way == -1 {
		c.tracker.incrMiss()
		c.numOperation++
		return Invalid
	}

	block := &c.sets[index][way]
	c.stamp(block)
	c.tracker.trackHit()
	c.tracker.incrDataAccess(block.State)
	return block.State
}

// ProcessorInvalidateStore handles a processor-issued store under an
// invalidation protocol (MESI). On a hit it records the old state's
// access, applies PrInvalidateStore, and returns the pre-transition
// state; on a miss it counts the miss and returns Invalid.
func (c *Cache) ProcessorInvalidateStore(tag, index, offset uint64) BlockState {
	return c.processorStore(tag, index, PrInvalidateStore)
}

// ProcessorUpdateStore is the Dragon-protocol analogue of
// ProcessorInvalidateStore, applying PrUpdateStore instead.
func (c *Cache) ProcessorUpdateStore(tag, index, offset uint64) BlockState {
	return c.processorStore(tag, index, PrUpdateStore)
}

func (c *Cache) processorStore(tag, index uint64, op MemOperation) BlockState {
	way := c.findBlock(tag, index)
	if way == -1 {
		c.tracker.incrMiss()
		c.numOperation++
		return Invalid
	}

	block := &c.sets[index][way]
	c.stamp(block)

	oldState := block.State
	c.tracker.trackHit()
	c.tracker.incrDataAccess(oldState)
	block.State = transition(oldState, op, LocalCache)
	return oldState
}

// BusInvalidateLoad is the bus-side counterpart of a peer's load miss
// under an invalidation protocol: if this cache holds the line, its
// access is recorded and BusInvalidateLoad is applied.
func (c *Cache) BusInvalidateLoad(tag, index, offset uint64) bool {
	way := c.findBlock(tag, index)
	if way == -1 {
		return false
	}
	block := &c.sets[index][way]
	c.tracker.incrDataAccess(block.State)
	block.State = transition(block.State, BusInvalidateLoad, RemoteCache)
	c.stamp(block)
	return true
}

// BusInvalidateLoadExclusive is the bus-side counterpart of a peer's
// store miss under an invalidation protocol: the line is invalidated
// unconditionally. This is not counted as a data access.
func (c *Cache) BusInvalidateLoadExclusive(tag, index, offset uint64) bool {
	way := c.findBlock(tag, index)
	if way == -1 {
		return false
	}
	block := &c.sets[index][way]
	c.stamp(block)
	block.State = transition(block.State, BusLoadExclusive, RemoteCache)
	return true
}

// BusUpdateLoad is the Dragon-protocol counterpart of
// BusInvalidateLoad: it applies BusUpdateLoad instead of invalidating.
func (c *Cache) BusUpdateLoad(tag, index, offset uint64) bool {
	way := c.findBlock(tag, index)
	if way == -1 {
		return false
	}
	block := &c.sets[index][way]
	c.tracker.incrDataAccess(block.State)
	block.State = transition(block.State, BusUpdateLoad, RemoteCache)
	c.stamp(block)
	return true
}

// receiveBlockFromBus allocates a block for (tag, index): the first
// Invalid slot, or else the LRU victim (lowest LastUsed, ties broken
// by slot order). Evicting a Modified or Shared victim costs the
// evictor a 100-cycle stall. The installed block is stamped and transitioned by
// (op, source); the delivery itself additionally stalls the receiving
// core per spec: 2*WordsPerBlock cycles from a remote cache, or one
// hit cycle plus 100 cycles from memory.
func (c *Cache) receiveBlockFromBus(source BlockSource, op MemOperation, tag, index uint64) {
	set := c.sets[index]

	target := -1
	for way := range set {
		if set[way].isInvalid() {
			target = way
			break
		}
	}
	if target == -1 {
		target = 0
		minLastUsed := set[0].LastUsed
		for way := 1; way < len(set); way++ {
			if set[way].LastUsed < minLastUsed {
				target = way
				minLastUsed = set[way].LastUsed
			}
		}
		victim := &set[target]
		if victim.State == Modified || victim.State == Shared {
			c.tracker.trackEvict()
		}
		c.logger.V(1).Info("evicting block", "tag", victim.Tag, "index", index, "state", victim.State)
		victim.State = Invalid
	}

	block := &set[target]
	cerrors.Assert(c.findBlock(tag, index) == -1,
		"set %d already holds tag %d in a non-invalid state", index, tag)
	block.Tag = tag
	c.stamp(block)
	block.State = transition(block.State, op, source)

	switch source {
	case RemoteCache:
		c.tracker.trackLoadWordsFromRemoteCache(c.config.WordsPerBlock)
	case Memory:
		c.tracker.trackLoadFromMemory()
	}
}

// receiveWordFromBus applies a single-word update delivered by the
// bus; it is a no-op if the block is gone by the time it arrives.
func (c *Cache) receiveWordFromBus(source BlockSource, op MemOperation, tag, index uint64) {
	way := c.findBlock(tag, index)
	if way == -1 {
		return
	}
	block := &c.sets[index][way]
	c.stamp(block)
	block.State = transition(block.State, op, source)
	c.tracker.trackLoadWordsFromRemoteCache(1)
}

// flush invalidates the block at (tag, index) if present. If it was
// Modified or Shared and not already written back, the evicting core
// is charged an eviction. alreadyWrittenBack defaults to false at
// every call site in this repo; no caller ever has reason to pass
// true, since nothing here performs a write-back out of band.
func (c *Cache) flush(tag, index uint64, alreadyWrittenBack bool) bool {
	way := c.findBlock(tag, index)
	if way == -1 {
		return false
	}
	block := &c.sets[index][way]
	if (block.State == Modified || block.State == Shared) && !alreadyWrittenBack {
		c.tracker.trackEvict()
	}
	block.State = Invalid
	c.stamp(block)
	return !alreadyWrittenBack
}
