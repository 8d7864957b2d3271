package coherence_test

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/archsim/coherence/pkg/coherence"
)

func TestNewSystem_RejectsUnsupportedProtocol(t *testing.T) {
	config, err := NewCacheConfig(1024, 2, 32, 4)
	require.NoError(t, err)

	_, err = NewSystem(None, config, 4, logr.Discard())
	assert.Error(t, err)
}

func TestNewSystem_RejectsNonPositiveCoreCount(t *testing.T) {
	config, err := NewCacheConfig(1024, 2, 32, 4)
	require.NoError(t, err)

	_, err = NewSystem(MESI, config, 0, logr.Discard())
	assert.Error(t, err)
}

// TestSystem_Run_DisjointLines drives four cores over disjoint cache
// lines (no cross-core sharing), so outcomes are deterministic
// regardless of goroutine scheduling: each core sees exactly its own
// single miss and no bus traffic beyond its own memory fetch.
func TestSystem_Run_DisjointLines(t *testing.T) {
	config, err := NewCacheConfig(1024, 2, 32, 4)
	require.NoError(t, err)
	system, err := NewSystem(MESI, config, 4, logr.Discard())
	require.NoError(t, err)

	traces := make([][]Record, 4)
	for i := range traces {
		// Each core's block lands in a distinct tag region: i*0x100
		// keeps every core's line in a different set/tag combination
		// from the others under this geometry.
		addr := uint32(i * 0x100)
		traces[i] = []Record{{Label: 0, Value: hex(addr)}}
	}

	result, err := system.Run(traces)
	require.NoError(t, err)

	for i, core := range result.Cores {
		assert.Equal(t, uint64(1), core.NumMiss, "core %d", i)
		assert.Equal(t, uint64(1), core.NumLoad, "core %d", i)
	}
	assert.Equal(t, uint64(4*32), result.Bus.DataTraffic)
	assert.Equal(t, uint64(0), result.Bus.NumInvalidation)
}

func TestSystem_Run_RejectsTraceCountMismatch(t *testing.T) {
	config, err := NewCacheConfig(1024, 2, 32, 4)
	require.NoError(t, err)
	system, err := NewSystem(MESI, config, 4, logr.Discard())
	require.NoError(t, err)

	_, err = system.Run([][]Record{{{Label: 2, Value: "1"}}})
	assert.Error(t, err)
}

func hex(v uint32) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}
