// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package coherence implements a shared-bus, snooping cache-coherence
// engine: per-block state machines, a serializing bus, and the cores
// that drive them from a memory-reference trace.
package coherence

// Protocol selects the coherence state machine a Core and Cache pair
// runs. Only MESI and Dragon have transitions defined; any other
// value is treated as None and the simulation does not run.
type Protocol string

const (
	MESI   Protocol = "MESI"
	Dragon Protocol = "DRAGON"
	None   Protocol = "NONE"
)

// ParseProtocol maps a CLI protocol argument to a Protocol, falling
// through to None for anything unrecognized per spec.
func ParseProtocol(s string) Protocol {
	switch Protocol(s) {
	case MESI, Dragon:
		return Protocol(s)
	default:
		return None
	}
}

// Instruction is the label on a trace record.
type Instruction int

const (
	InstructionLoad Instruction = iota
	InstructionStore
	InstructionCompute
)

// BlockState is the union of the MESI and Dragon state sets. A given
// protocol only ever observes the subset relevant to it.
type BlockState int

const (
	Invalid BlockState = iota
	Exclusive
	Modified
	Shared
	SharedClean
	SharedModified
)

func (s BlockState) String() string {
	switch s {
	case Invalid:
		return "INVALID"
	case Exclusive:
		return "EXCLUSIVE"
	case Modified:
		return "MODIFIED"
	case Shared:
		return "SHARED"
	case SharedClean:
		return "SHARED_CLEAN"
	case SharedModified:
		return "SHARED_MODIFIED"
	default:
		return "UNKNOWN"
	}
}

// IsPrivate reports whether a data access made while the block sits in
// this state counts as a private (exclusively-owned) access.
func (s BlockState) IsPrivate() bool {
	return s == Exclusive || s == Modified
}

// IsShared reports whether a data access made while the block sits in
// this state counts as a shared access.
func (s BlockState) IsShared() bool {
	return s == Shared || s == SharedClean || s == SharedModified
}

// MemOperation is the event applied to a CacheBlock's state machine.
type MemOperation int

const (
	PrInvalidateLoad MemOperation = iota
	PrInvalidateStore
	BusInvalidateLoad
	BusLoadExclusive

	PrLoadMiss
	PrStoreMiss
	PrUpdateStore
	BusUpdateLoad
	BusUpdateUpdate
)

// BlockSource identifies where a delivered block or word came from.
type BlockSource int

const (
	LocalCache BlockSource = iota
	RemoteCache
	Memory
)

func (s BlockSource) String() string {
	switch s {
	case LocalCache:
		return "LOCAL_CACHE"
	case RemoteCache:
		return "REMOTE_CACHE"
	case Memory:
		return "MEMORY"
	default:
		return "UNKNOWN"
	}
}
