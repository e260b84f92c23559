package events

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeReceivesBacklogThenLiveEvents(t *testing.T) {
	b := NewBroker()
	b.Publish(Event{Kind: KindSnapshotTaken, FarmID: "farm1", Slot: 1})

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	backlog, updates, cancel := b.Subscribe(ctx)
	defer cancel()

	if len(backlog) != 1 || backlog[0].FarmID != "farm1" {
		t.Fatalf("expected backlog to contain the prior event, got %+v", backlog)
	}

	b.Publish(Event{Kind: KindClaimSettled, FarmerID: "farmer1"})

	select {
	case ev := <-updates:
		if ev.Kind != KindClaimSettled || ev.FarmerID != "farmer1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for published event")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := NewBroker()
	ctx := context.Background()
	_, updates, cancel := b.Subscribe(ctx)
	cancel()

	b.Publish(Event{Kind: KindSnapshotTaken, FarmID: "farm1"})

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatalf("expected channel to be closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for channel close")
	}
}

func TestBacklogIsBounded(t *testing.T) {
	b := NewBroker()
	for i := 0; i < backlogSize+10; i++ {
		b.Publish(Event{Kind: KindSnapshotTaken, Slot: uint64(i)})
	}
	backlog, _, cancel := b.Subscribe(context.Background())
	defer cancel()
	if len(backlog) != backlogSize {
		t.Fatalf("expected backlog capped at %d, got %d", backlogSize, len(backlog))
	}
	if backlog[0].Slot != 10 {
		t.Fatalf("expected oldest surviving event to be slot 10, got %d", backlog[0].Slot)
	}
}
