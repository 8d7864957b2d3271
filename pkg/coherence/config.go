// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package coherence

import (
	"fmt"
	"math/bits"

	cerrors "github.com/archsim/coherence/pkg/errors"
)

// CacheConfig is immutable after construction. It carries the
// geometry shared by the bus (for traffic accounting) and by every
// cache in the system.
type CacheConfig struct {
	Size          uint64 // total cache size in bytes
	Associativity uint64 // ways per set
	BlockSize     uint64 // bytes per block
	WordSize      uint64 // bytes per word

	// Derived, computed once at construction.
	WordsPerBlock uint64
	SetsPerCache  uint64
}

// NewCacheConfig validates the geometry and returns the derived
// fields filled in. It fails fast, the way NewMemoryCollector rejects
// a relative HostProcPath, rather than letting a malformed geometry
// surface as a panic deep inside Cache construction.
func NewCacheConfig(size, associativity, blockSize, wordSize uint64) (CacheConfig, error) {
	if !isPowerOfTwo(blockSize) {
		return CacheConfig{}, fmt.Errorf("%w: block size must be a power of two, got: %d", cerrors.ErrConfig, blockSize)
	}
	if !isPowerOfTwo(size) {
		return CacheConfig{}, fmt.Errorf("%w: cache size must be a power of two, got: %d", cerrors.ErrConfig, size)
	}
	if associativity == 0 {
		return CacheConfig{}, fmt.Errorf("%w: associativity must be positive", cerrors.ErrConfig)
	}
	if wordSize == 0 || blockSize%wordSize != 0 {
		return CacheConfig{}, fmt.Errorf("%w: word size must divide block size evenly, got word=%d block=%d", cerrors.ErrConfig, wordSize, blockSize)
	}
	if size%(blockSize*associativity) != 0 {
		return CacheConfig{}, fmt.Errorf("%w: cache size must be a multiple of block_size*associativity, got size=%d block=%d ways=%d", cerrors.ErrConfig, size, blockSize, associativity)
	}

	return CacheConfig{
		Size:          size,
		Associativity: associativity,
		BlockSize:     blockSize,
		WordSize:      wordSize,
		WordsPerBlock: blockSize / wordSize,
		SetsPerCache:  size / (blockSize * associativity),
	}, nil
}

func isPowerOfTwo(n uint64) bool {
	return n > 0 && n&(n-1) == 0
}

// Decompose splits a byte address into (tag, set index, word offset)
// using the geometry's words-per-block and sets-per-cache, entirely
// with integer shifts: both WordsPerBlock and SetsPerCache are powers
// of two by construction, so a bit-shift-based implementation never
// needs floating point or a square root.
func (c CacheConfig) Decompose(address uint32) (tag, index, offset uint64) {
	addr := uint64(address)
	offsetBits := bits.TrailingZeros64(c.WordsPerBlock)
	indexBits := bits.TrailingZeros64(c.SetsPerCache)

	offset = addr & (c.WordsPerBlock - 1)
	index = (addr >> offsetBits) & (c.SetsPerCache - 1)
	tag = addr >> (offsetBits + indexBits)
	return tag, index, offset
}
