// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package coherence

// CoreTracker accumulates the per-core counters a Core and its Cache
// update as a trace plays out. It is owned by the Core; the Cache
// holds a pointer to the same tracker, and both mutate it only under
// the single coarse lock documented on Bus.
type CoreTracker struct {
	OverallCycles    uint64
	HitCycles        uint64
	ComputeCycles    uint64
	IdleCycles       uint64
	NumLoad          uint64
	NumStore         uint64
	NumMiss          uint64
	NumPrivateAccess uint64
	NumSharedAccess  uint64
}

func (t *CoreTracker) trackHitCycles() {
	t.OverallCycles++
	t.HitCycles++
}

func (t *CoreTracker) trackCompute(cycles uint64) {
	t.OverallCycles += cycles
	t.ComputeCycles += cycles
}

func (t *CoreTracker) trackStall(cycles uint64) {
	t.OverallCycles += cycles
	t.IdleCycles += cycles
}

func (t *CoreTracker) trackHit()  { t.trackHitCycles() }
func (t *CoreTracker) incrLoad()  { t.NumLoad++ }
func (t *CoreTracker) incrStore() { t.NumStore++ }
func (t *CoreTracker) incrMiss()  { t.NumMiss++ }

func (t *CoreTracker) incrDataAccess(state BlockState) {
	switch {
	case state.IsShared():
		t.NumSharedAccess++
	case state.IsPrivate():
		t.NumPrivateAccess++
	}
}

func (t *CoreTracker) trackEvict() {
	t.trackStall(100)
}

func (t *CoreTracker) trackLoadWordsFromRemoteCache(words uint64) {
	t.trackStall(2 * words)
}

func (t *CoreTracker) trackLoadFromMemory() {
	t.trackHitCycles()
	t.trackStall(100)
}

// BusTracker accumulates bus-wide traffic and coherence-event
// counters. It is mutated only while the bus's single lock is held.
type BusTracker struct {
	DataTraffic     uint64 // bytes
	NumInvalidation uint64 // blocks
	NumUpdate       uint64 // word-level updates
}

func (t *BusTracker) trackTraffic(wordSize, words uint64) {
	t.DataTraffic += wordSize * words
}

func (t *BusTracker) trackInvalidation(blocks uint64) {
	t.NumInvalidation += blocks
}

func (t *BusTracker) trackUpdate(updates uint64) {
	t.NumUpdate += updates
}
