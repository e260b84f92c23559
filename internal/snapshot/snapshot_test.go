package snapshot

import "testing"

func TestNewBufferInitialState(t *testing.T) {
	b := NewBuffer(4)
	if b.Tip != 0 {
		t.Fatalf("expected initial tip 0, got %d", b.Tip)
	}
	if b.Entries[0] != (Snapshot{}) {
		t.Fatalf("expected genesis entry to be zero, got %+v", b.Entries[0])
	}
	if b.HasWrapped() {
		t.Fatalf("fresh buffer should not report wrapped")
	}
	if b.OldestIndex() != 0 {
		t.Fatalf("oldest index should be 0 before wrap")
	}
}

func TestTakeSnapshotEnforcesMinWindow(t *testing.T) {
	b := NewBuffer(8)
	// The window is measured from the genesis entry at slot 0.
	if err := b.TakeSnapshot(10, 100, 10); err != nil {
		t.Fatalf("first snapshot at the window boundary should succeed: %v", err)
	}
	if err := b.TakeSnapshot(15, 200, 10); err == nil {
		t.Fatalf("expected InsufficientSlotTime when window not satisfied")
	}
	if err := b.TakeSnapshot(20, 200, 10); err != nil {
		t.Fatalf("unexpected error satisfying the window: %v", err)
	}
}

func TestTipNeverDecreasesAndOrderingHolds(t *testing.T) {
	b := NewBuffer(4)
	slots := []uint64{1, 2, 3, 4, 5, 6}
	prevTip := b.Tip
	for _, s := range slots {
		if err := b.TakeSnapshot(s, s*10, 1); err != nil {
			t.Fatalf("unexpected error at slot %d: %v", s, err)
		}
		if b.Tip < prevTip && !(prevTip == uint64(len(b.Entries)-1) && b.Tip == 0) {
			t.Fatalf("tip decreased unexpectedly: prev=%d new=%d", prevTip, b.Tip)
		}
		prevTip = b.Tip
	}
	if !b.OrderedNonDecreasing() {
		t.Fatalf("expected non-decreasing StartedAt walking the ring")
	}
}

func TestWrapDiscardsOldestHistory(t *testing.T) {
	// N=4, tps=1 per spec §8 S4.
	b := NewBuffer(4)
	for _, s := range []uint64{1, 2, 3, 4, 5, 6} {
		if err := b.TakeSnapshot(s, 10, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !b.HasWrapped() {
		t.Fatalf("expected buffer to have wrapped after 6 takes with capacity 4")
	}
	oldest := b.Entries[b.OldestIndex()]
	// Only the last 4 chronological samples survive a capacity-4 ring:
	// the genesis (0,0) and the samples at slots 1 and 2 are burned.
	if oldest.StartedAt < 3 {
		t.Fatalf("expected early history to be discarded, oldest=%+v", oldest)
	}
}

func TestWalkVisitsOldestToNewestSkippingUninitialised(t *testing.T) {
	b := NewBuffer(8)
	for _, s := range []uint64{2, 4, 6} {
		if err := b.TakeSnapshot(s, s, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	var seen []uint64
	b.Walk(func(_ int, s Snapshot) bool {
		seen = append(seen, s.StartedAt)
		return true
	})
	want := []uint64{0, 2, 4, 6}
	if len(seen) != len(want) {
		t.Fatalf("seen=%v want=%v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen=%v want=%v", seen, want)
		}
	}
}
