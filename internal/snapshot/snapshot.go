// Package snapshot implements the fixed-capacity, wrap-around log of
// (slot, total_staked) samples per farm (spec §3/§4.2, component C2).
package snapshot

import "github.com/harvestlabs/farmengine/internal/errs"

// DefaultCapacity is N, the number of ring slots a production farm account
// is sized for. Tests exercising wraparound (spec §8 S4) construct a
// Buffer with a much smaller capacity; the algorithm does not depend on
// the concrete size.
const DefaultCapacity = 1000

// Snapshot is one recorded (slot, total_staked) sample.
type Snapshot struct {
	StartedAt uint64
	Staked    uint64
}

// Buffer is the ring log itself. Entries is conceptually a fixed-size
// array on a real account (spec §3); it is represented here as a slice
// allocated once at construction time to the requested capacity, which is
// never resized afterward.
type Buffer struct {
	Tip     uint64
	Entries []Snapshot
}

// NewBuffer constructs a Buffer in its spec-mandated initial state: tip=0,
// entries[0] = (0,0), all other entries zero.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		Tip:     0,
		Entries: make([]Snapshot, capacity),
	}
}

// Capacity returns N for this buffer.
func (b *Buffer) Capacity() int {
	return len(b.Entries)
}

// Latest returns the most recently recorded snapshot (at Tip).
func (b *Buffer) Latest() Snapshot {
	return b.Entries[b.Tip]
}

// TakeSnapshot enforces the minimum-slot-window precondition and appends a
// new sample, advancing Tip modulo the buffer's capacity (spec §4.2).
//
// TakeSnapshot never decreases Tip and two successive snapshots always
// satisfy new.StartedAt > old.StartedAt for any caller that respects the
// precondition (invariants 3 in spec §3).
func (b *Buffer) TakeSnapshot(currentSlot uint64, vaultBalance uint64, minWindow uint64) error {
	last := b.Latest()
	if currentSlot < last.StartedAt || currentSlot-last.StartedAt < minWindow {
		return errs.ErrInsufficientSlotTime
	}
	n := uint64(len(b.Entries))
	b.Tip = (b.Tip + 1) % n
	b.Entries[b.Tip] = Snapshot{StartedAt: currentSlot, Staked: vaultBalance}
	return nil
}

// HasWrapped reports whether the ring has been filled all the way around
// at least once, i.e. whether index 0 (other than the degenerate initial
// sample) has been overwritten by natural advancement of Tip.
func (b *Buffer) HasWrapped() bool {
	n := uint64(len(b.Entries))
	// The ring has wrapped once the slot immediately after Tip (the
	// would-be "oldest" on wrap) is initialised, i.e. has a non-zero
	// StartedAt. Before the first wrap that slot is either unwritten or
	// the genesis sample at index 0, both of which have StartedAt 0.
	next := (b.Tip + 1) % n
	return b.Entries[next].StartedAt != 0
}

// OldestIndex returns the index of the oldest initialised snapshot: index
// 0 (the genesis sample) if the ring has not yet wrapped, or (Tip+1) mod N
// once it has (spec §4.2 Traversal).
func (b *Buffer) OldestIndex() int {
	if !b.HasWrapped() {
		return 0
	}
	n := uint64(len(b.Entries))
	return int((b.Tip + 1) % n)
}

// Walk calls fn for every initialised snapshot in ring order from oldest
// to newest (inclusive of the tip), stopping early if fn returns false.
// Uninitialised entries (the unwrapped tail of a fresh buffer) are
// skipped, per spec §4.2.
func (b *Buffer) Walk(fn func(index int, s Snapshot) bool) {
	n := len(b.Entries)
	start := b.OldestIndex()
	// Number of initialised entries walked from start to Tip inclusive.
	count := int(b.Tip) - start
	if count < 0 {
		count += n
	}
	count++
	idx := start
	for i := 0; i < count; i++ {
		if !fn(idx, b.Entries[idx]) {
			return
		}
		idx = (idx + 1) % n
	}
}

// OrderedNonDecreasing verifies spec §8 property 7: walking from the tip
// backwards i steps, StartedAt is non-increasing in i over the
// initialised range. Exposed for tests.
func (b *Buffer) OrderedNonDecreasing() bool {
	prev := uint64(0)
	first := true
	ok := true
	b.Walk(func(_ int, s Snapshot) bool {
		if !first && s.StartedAt < prev {
			ok = false
			return false
		}
		prev = s.StartedAt
		first = false
		return true
	})
	return ok
}
