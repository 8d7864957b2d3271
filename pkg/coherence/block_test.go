package coherence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition_Invalidation(t *testing.T) {
	tests := []struct {
		name   string
		state  BlockState
		op     MemOperation
		source BlockSource
		want   BlockState
	}{
		{"invalid load from memory goes exclusive", Invalid, PrInvalidateLoad, Memory, Exclusive},
		{"invalid load from remote cache goes shared", Invalid, PrInvalidateLoad, RemoteCache, Shared},
		{"shared load is unaffected", Shared, PrInvalidateLoad, Memory, Shared},
		{"exclusive load is unaffected", Exclusive, PrInvalidateLoad, RemoteCache, Exclusive},

		{"invalid store goes modified", Invalid, PrInvalidateStore, LocalCache, Modified},
		{"shared store goes modified", Shared, PrInvalidateStore, LocalCache, Modified},
		{"exclusive store goes modified", Exclusive, PrInvalidateStore, LocalCache, Modified},
		{"modified store stays modified", Modified, PrInvalidateStore, LocalCache, Modified},

		{"bus invalidate load demotes exclusive to shared", Exclusive, BusInvalidateLoad, RemoteCache, Shared},
		{"bus invalidate load demotes modified to shared", Modified, BusInvalidateLoad, RemoteCache, Shared},
		{"bus invalidate load leaves shared unaffected", Shared, BusInvalidateLoad, RemoteCache, Shared},
		{"bus invalidate load leaves invalid unaffected", Invalid, BusInvalidateLoad, RemoteCache, Invalid},

		{"bus load exclusive always invalidates", Shared, BusLoadExclusive, RemoteCache, Invalid},
		{"bus load exclusive invalidates modified", Modified, BusLoadExclusive, RemoteCache, Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transition(tt.state, tt.op, tt.source))
		})
	}
}

func TestTransition_Update(t *testing.T) {
	tests := []struct {
		name   string
		state  BlockState
		op     MemOperation
		source BlockSource
		want   BlockState
	}{
		{"invalid load miss from memory goes exclusive", Invalid, PrLoadMiss, Memory, Exclusive},
		{"invalid load miss from remote cache goes shared clean", Invalid, PrLoadMiss, RemoteCache, SharedClean},

		{"store miss from memory goes modified", Invalid, PrStoreMiss, Memory, Modified},
		{"store miss from remote cache goes shared modified", Invalid, PrStoreMiss, RemoteCache, SharedModified},

		{"update store from exclusive goes modified", Exclusive, PrUpdateStore, LocalCache, Modified},
		{"update store from shared clean goes shared modified", SharedClean, PrUpdateStore, LocalCache, SharedModified},
		{"update store from modified is unaffected", Modified, PrUpdateStore, LocalCache, Modified},

		{"bus update load demotes exclusive to shared clean", Exclusive, BusUpdateLoad, RemoteCache, SharedClean},
		{"bus update load leaves modified unaffected", Modified, BusUpdateLoad, RemoteCache, Modified},
		{"bus update load leaves shared clean unaffected", SharedClean, BusUpdateLoad, RemoteCache, SharedClean},

		{"bus update releases ownership from shared modified", SharedModified, BusUpdateUpdate, RemoteCache, SharedClean},
		{"bus update leaves shared clean unaffected", SharedClean, BusUpdateUpdate, RemoteCache, SharedClean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transition(tt.state, tt.op, tt.source))
		})
	}
}

func TestBlockState_Classification(t *testing.T) {
	assert.True(t, Exclusive.IsPrivate())
	assert.True(t, Modified.IsPrivate())
	assert.False(t, Shared.IsPrivate())

	assert.True(t, Shared.IsShared())
	assert.True(t, SharedClean.IsShared())
	assert.True(t, SharedModified.IsShared())
	assert.False(t, Exclusive.IsShared())
	assert.False(t, Invalid.IsShared())
}

func TestBlockState_String(t *testing.T) {
	assert.Equal(t, "INVALID", Invalid.String())
	assert.Equal(t, "SHARED_MODIFIED", SharedModified.String())
}
