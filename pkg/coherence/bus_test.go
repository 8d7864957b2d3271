package coherence

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScenarioCores builds the two-core rig used by the end-to-end
// scenarios: word_size=4, block_size=32, size=1024, associativity=2.
// Operations are driven directly, one at a time, so the sequencing
// spec.md's scenarios describe is exact rather than left to goroutine
// scheduling.
func newScenarioCores(t *testing.T, protocol Protocol) (*Core, *Core, *Bus) {
	t.Helper()
	config, err := NewCacheConfig(1024, 2, 32, 4)
	require.NoError(t, err)

	bus := NewBus(config, logr.Discard())
	tracker0, tracker1 := &CoreTracker{}, &CoreTracker{}
	cache0 := NewCache(0, config, tracker0, logr.Discard())
	cache1 := NewCache(1, config, tracker1, logr.Discard())
	bus.AddCache(cache0)
	bus.AddCache(cache1)

	core0 := NewCore(0, cache0, bus, protocol, tracker0, logr.Discard())
	core1 := NewCore(1, cache1, bus, protocol, tracker1, logr.Discard())
	return core0, core1, bus
}

func TestScenario_MESI_LoadMissFromMemory(t *testing.T) {
	core0, _, bus := newScenarioCores(t, MESI)

	// a. Core 0 loads 0x0: miss, no peer, memory delivery, becomes Exclusive.
	require.NoError(t, core0.load("0"))

	assert.Equal(t, uint64(1), core0.tracker.NumMiss)
	assert.Equal(t, uint64(32), bus.tracker.DataTraffic)
	assert.Equal(t, uint64(0), bus.tracker.NumInvalidation)
}

func TestScenario_MESI_SharedLoadThenStore_Invalidates(t *testing.T) {
	core0, core1, bus := newScenarioCores(t, MESI)

	// a. Core 0 loads 0x0: miss, memory delivery, Exclusive.
	require.NoError(t, core0.load("0"))
	// b. Core 1 loads 0x0: peer has it, remote-cache delivery; core 0
	// downgrades E->S, core 1 installs Shared.
	require.NoError(t, core1.load("0"))
	assert.Equal(t, uint64(64), bus.tracker.DataTraffic)
	assert.Equal(t, uint64(0), bus.tracker.NumInvalidation)

	// c. Core 0 stores 0x4 (same line): hit in Shared, flush invalidates
	// core 1's copy, core 0 becomes Modified.
	require.NoError(t, core0.store("4"))
	assert.Equal(t, uint64(1), core0.tracker.NumStore)
	assert.Equal(t, uint64(64), bus.tracker.DataTraffic, "flush itself carries no traffic")

	way := cache1For(core1).findBlock(0, 0)
	assert.Equal(t, -1, way, "core 1's copy was invalidated by the flush")
}

func TestScenario_Dragon_SharedCleanStorePromotesAndUpdates(t *testing.T) {
	core0, core1, bus := newScenarioCores(t, Dragon)

	// a. Core 0 loads 0x0: miss, memory delivery, Exclusive.
	require.NoError(t, core0.load("0"))
	// b. Core 1 loads 0x0: peer has it; core 0 downgrades E->SharedClean,
	// core 1 installs SharedClean.
	require.NoError(t, core1.load("0"))
	assert.Equal(t, uint64(64), bus.tracker.DataTraffic)

	// d. Core 0 stores 0x4 (same line): SharedClean promotes to
	// SharedModified; one word ships to core 1, which stays SharedClean.
	require.NoError(t, core0.store("4"))
	assert.Equal(t, uint64(1), bus.tracker.NumUpdate)
	assert.Equal(t, uint64(64+4), bus.tracker.DataTraffic)
}

func TestComputeOnlyTrace_NoBusTraffic(t *testing.T) {
	core0, _, bus := newScenarioCores(t, MESI)

	require.NoError(t, core0.Run([]Record{
		{Label: 2, Value: "a"},
		{Label: 2, Value: "5"},
	}))

	assert.Equal(t, uint64(0), core0.tracker.NumLoad)
	assert.Equal(t, uint64(0), core0.tracker.NumStore)
	assert.Equal(t, uint64(0xa+0x5), core0.tracker.ComputeCycles)
	assert.Equal(t, uint64(0xa+0x5), core0.tracker.OverallCycles)
	assert.Equal(t, uint64(0), bus.tracker.DataTraffic)
}

func TestRepeatedLoad_OneMissRestHits(t *testing.T) {
	core0, _, _ := newScenarioCores(t, MESI)

	records := make([]Record, 5)
	for i := range records {
		records[i] = Record{Label: 0, Value: "40"}
	}
	require.NoError(t, core0.Run(records))

	assert.Equal(t, uint64(1), core0.tracker.NumMiss)
	assert.Equal(t, uint64(5), core0.tracker.NumLoad)
}

func TestUnrecognizedLabel_IsSkipped(t *testing.T) {
	core0, _, _ := newScenarioCores(t, MESI)

	require.NoError(t, core0.Run([]Record{
		{Label: 9, Value: "0"},
		{Label: 0, Value: "0"},
	}))

	assert.Equal(t, uint64(1), core0.tracker.NumLoad)
}

func cache1For(core *Core) *Cache { return core.cache }
