package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/internal/farmer"
	"github.com/harvestlabs/farmengine/internal/schedule"
)

func TestFarmRoundTrip(t *testing.T) {
	store := NewStore(NewMemKV())
	f := farm.New("farm1", "admin", "mintA", "vaultA", 16)
	if err := f.AddHarvest("mintB", "harvestVaultB"); err != nil {
		t.Fatalf("add harvest: %v", err)
	}
	slot, err := f.Harvest("mintB")
	if err != nil {
		t.Fatalf("harvest: %v", err)
	}
	if _, err := slot.Schedule.Schedule(0, schedule.Period{StartsAt: 0, EndsAt: 100, Tps: 5}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := f.TakeSnapshot(10, 200); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	store.PutFarm(f)
	got, ok := store.GetFarm("farm1")
	if !ok {
		t.Fatalf("expected farm to round-trip")
	}
	if got.Admin != f.Admin || got.StakeMint != f.StakeMint || got.StakeVault != f.StakeVault {
		t.Fatalf("farm fields did not round-trip: %+v", got)
	}
	gotSlot, err := got.Harvest("mintB")
	if err != nil {
		t.Fatalf("round-tripped farm missing harvest: %v", err)
	}
	if len(gotSlot.Schedule.Periods) != 1 || gotSlot.Schedule.Periods[0].Tps != 5 {
		t.Fatalf("schedule did not round-trip: %+v", gotSlot.Schedule.Periods)
	}
	if got.Snapshots.Latest().Staked != 200 {
		t.Fatalf("snapshot did not round-trip: %+v", got.Snapshots.Latest())
	}
}

func TestFarmerRoundTripAndDelete(t *testing.T) {
	store := NewStore(NewMemKV())
	fr := farmer.New("farmer1", "authA", "farm1")
	fr.Staked = 500
	fr.VestedAt = 7
	store.PutFarmer(fr)

	got, ok := store.GetFarmer("farmer1")
	if !ok {
		t.Fatalf("expected farmer to round-trip")
	}
	if got.Staked != 500 || got.VestedAt != 7 || got.Authority != "authA" {
		t.Fatalf("farmer fields did not round-trip: %+v", got)
	}

	store.DeleteFarmer("farmer1")
	if _, ok := store.GetFarmer("farmer1"); ok {
		t.Fatalf("expected farmer to be gone after delete")
	}
}

func TestCompoundingMarkerLifecycle(t *testing.T) {
	store := NewStore(NewMemKV())
	marker := farm.AccountID("marker1")
	if store.GetCompoundingMarker(marker) {
		t.Fatalf("expected marker absent initially")
	}
	store.PutCompoundingMarker(marker)
	if !store.GetCompoundingMarker(marker) {
		t.Fatalf("expected marker present after put")
	}
	store.DeleteCompoundingMarker(marker)
	if store.GetCompoundingMarker(marker) {
		t.Fatalf("expected marker absent after delete")
	}
}

func TestUnknownFarmAndFarmerAreAbsent(t *testing.T) {
	store := NewStore(NewMemKV())
	if _, ok := store.GetFarm("missing"); ok {
		t.Fatalf("expected unknown farm to be absent")
	}
	if _, ok := store.GetFarmer("missing"); ok {
		t.Fatalf("expected unknown farmer to be absent")
	}
}

func TestLevelKVPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelKV(dir)
	require.NoError(t, err)

	store1 := NewStore(db1)
	f := farm.New("farm1", "admin", "mintA", "vaultA", 16)
	store1.PutFarm(f)
	db1.Close()

	db2, err := NewLevelKV(dir)
	require.NoError(t, err)
	defer db2.Close()

	store2 := NewStore(db2)
	got, ok := store2.GetFarm("farm1")
	require.True(t, ok)
	require.Equal(t, f.Admin, got.Admin)
	require.Equal(t, f.StakeMint, got.StakeMint)
}
