package engine

import (
	"errors"
	"testing"

	"github.com/harvestlabs/farmengine/internal/errs"
	"github.com/harvestlabs/farmengine/internal/ledger"
	"github.com/harvestlabs/farmengine/internal/storage"
)

func newTestEngine() (*Engine, *ledger.MemVault, *ledger.ManualSlotOracle) {
	vault := ledger.NewMemVault()
	clock := ledger.NewManualSlotOracle()
	store := storage.NewStore(storage.NewMemKV())
	return New(store, vault, clock, 8), vault, clock
}

func TestLifecycleHappyPath(t *testing.T) {
	e, vault, clock := newTestEngine()

	stakeVault, err := e.CreateFarm("farm1", "admin", "stakeMint")
	if err != nil {
		t.Fatalf("create farm: %v", err)
	}

	harvestVault, err := e.AddHarvest("farm1", "admin", "harvestMint")
	if err != nil {
		t.Fatalf("add harvest: %v", err)
	}

	if err := vault.Mint("adminWallet", 1_000_000_000); err != nil {
		t.Fatalf("mint admin wallet: %v", err)
	}
	if err := e.NewHarvestPeriod("farm1", "admin", "harvestMint", "adminWallet", 0, 1_000_000, 10); err != nil {
		t.Fatalf("new harvest period: %v", err)
	}
	if got := vault.BalanceOf(harvestVault); got == 0 {
		t.Fatalf("expected harvest vault funded, got 0")
	}

	farmerID, err := e.CreateFarmer("farm1", "authA")
	if err != nil {
		t.Fatalf("create farmer: %v", err)
	}
	if _, err := e.CreateFarmer("farm1", "authA"); err == nil {
		t.Fatalf("expected duplicate create_farmer to fail")
	}

	if err := vault.Mint("wallet1", 1000); err != nil {
		t.Fatalf("mint wallet: %v", err)
	}
	if err := e.StartFarming(farmerID, "wallet1", 100); err != nil {
		t.Fatalf("start farming: %v", err)
	}
	if got := vault.BalanceOf(stakeVault); got != 100 {
		t.Fatalf("stake vault = %d, want 100", got)
	}

	clock.Advance(5)
	if err := e.TakeSnapshot("farm1"); err != nil {
		t.Fatalf("take snapshot: %v", err)
	}

	clock.Advance(10)
	if err := e.TakeSnapshot("farm1"); err != nil {
		t.Fatalf("take snapshot 2: %v", err)
	}

	if err := e.UpdateEligibleHarvest(farmerID); err != nil {
		t.Fatalf("update eligible harvest: %v", err)
	}

	if err := e.ClaimEligibleHarvest(farmerID, "authA", []ClaimPair{{Vault: harvestVault, Wallet: "wallet1"}}); err != nil {
		t.Fatalf("claim eligible harvest: %v", err)
	}
	if got := vault.BalanceOf("wallet1"); got == 0 {
		t.Fatalf("expected claim to pay out to wallet1, got 0")
	}

	if err := e.StopFarming(farmerID, "authA", "wallet1", 100); err != nil {
		t.Fatalf("stop farming: %v", err)
	}
	if got := vault.BalanceOf(stakeVault); got != 0 {
		t.Fatalf("stake vault after full unstake = %d, want 0", got)
	}

	if err := e.CloseFarmer(farmerID, "authA"); err != nil {
		t.Fatalf("close farmer: %v", err)
	}
}

func TestClaimRejectsStakeVault(t *testing.T) {
	e, _, _ := newTestEngine()
	stakeVault, err := e.CreateFarm("farm1", "admin", "stakeMint")
	if err != nil {
		t.Fatalf("create farm: %v", err)
	}
	farmerID, err := e.CreateFarmer("farm1", "authA")
	if err != nil {
		t.Fatalf("create farmer: %v", err)
	}
	if err := e.ClaimEligibleHarvest(farmerID, "authA", []ClaimPair{{Vault: stakeVault, Wallet: "wallet1"}}); err != errs.ErrInvalidAccountInput {
		t.Fatalf("expected ErrInvalidAccountInput, got %v", err)
	}
}

func TestStopFarmingRequiresAuthorityMatch(t *testing.T) {
	e, vault, _ := newTestEngine()
	if _, err := e.CreateFarm("farm1", "admin", "stakeMint"); err != nil {
		t.Fatalf("create farm: %v", err)
	}
	farmerID, err := e.CreateFarmer("farm1", "authA")
	if err != nil {
		t.Fatalf("create farmer: %v", err)
	}
	if err := vault.Mint("wallet1", 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := e.StartFarming(farmerID, "wallet1", 50); err != nil {
		t.Fatalf("start farming: %v", err)
	}
	if err := e.StopFarming(farmerID, "wrongAuth", "wallet1", 10); err == nil {
		t.Fatalf("expected authority mismatch error")
	}
}

func TestCompoundingRequiresWhitelist(t *testing.T) {
	e, vault, clock := newTestEngine()
	if _, err := e.CreateFarm("farmA", "admin", "stakeMintA"); err != nil {
		t.Fatalf("create farmA: %v", err)
	}
	if _, err := e.AddHarvest("farmA", "admin", "stakeMintB"); err != nil {
		t.Fatalf("add harvest to farmA: %v", err)
	}
	if err := vault.Mint("adminWallet", 1_000_000_000); err != nil {
		t.Fatalf("mint admin wallet: %v", err)
	}
	if err := e.NewHarvestPeriod("farmA", "admin", "stakeMintB", "adminWallet", 0, 1_000_000, 10); err != nil {
		t.Fatalf("new harvest period: %v", err)
	}
	if _, err := e.CreateFarm("farmB", "admin", "stakeMintB"); err != nil {
		t.Fatalf("create farmB: %v", err)
	}

	srcFarmer, err := e.CreateFarmer("farmA", "authA")
	if err != nil {
		t.Fatalf("create farmer A: %v", err)
	}
	dstFarmer, err := e.CreateFarmer("farmB", "authA")
	if err != nil {
		t.Fatalf("create farmer B: %v", err)
	}

	if err := vault.Mint("wallet1", 1000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := e.StartFarming(srcFarmer, "wallet1", 100); err != nil {
		t.Fatalf("start farming: %v", err)
	}
	clock.Advance(20)
	if err := e.TakeSnapshot("farmA"); err != nil {
		t.Fatalf("take snapshot: %v", err)
	}

	if err := e.CompoundAcrossFarms(srcFarmer, dstFarmer, "authA", "stakeMintB"); err == nil {
		t.Fatalf("expected compounding to fail without whitelist")
	}

	if err := e.WhitelistFarmForCompounding("admin", "farmA", "farmB"); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := e.CompoundAcrossFarms(srcFarmer, dstFarmer, "authA", "stakeMintB"); err != nil {
		t.Fatalf("compound across farms: %v", err)
	}
}

func TestInspectFarmReturnsLiveHarvestsAndSnapshot(t *testing.T) {
	e, vault, clock := newTestEngine()

	if _, err := e.CreateFarm("farm1", "admin", "stakeMint"); err != nil {
		t.Fatalf("create farm: %v", err)
	}
	if _, err := e.AddHarvest("farm1", "admin", "harvestMint"); err != nil {
		t.Fatalf("add harvest: %v", err)
	}
	if err := vault.Mint("staker", 500); err != nil {
		t.Fatalf("mint: %v", err)
	}
	farmerID, err := e.CreateFarmer("farm1", "authority")
	if err != nil {
		t.Fatalf("create farmer: %v", err)
	}
	if err := e.StartFarming(farmerID, "staker", 500); err != nil {
		t.Fatalf("start farming: %v", err)
	}
	clock.Advance(10)
	if err := e.TakeSnapshot("farm1"); err != nil {
		t.Fatalf("take snapshot: %v", err)
	}

	view, err := e.InspectFarm("farm1")
	if err != nil {
		t.Fatalf("inspect farm: %v", err)
	}
	if view.Admin != "admin" || view.StakeMint != "stakeMint" {
		t.Fatalf("unexpected farm view: %+v", view)
	}
	if len(view.Harvests) != 1 || view.Harvests[0].Mint != "harvestMint" {
		t.Fatalf("expected one live harvest mint, got %+v", view.Harvests)
	}
	if view.LatestSnapshotSlot != 10 || view.LatestSnapshotBalance != 500 {
		t.Fatalf("expected snapshot (10, 500), got (%d, %d)", view.LatestSnapshotSlot, view.LatestSnapshotBalance)
	}
}

func TestInspectFarmUnknownReturnsNotFound(t *testing.T) {
	e, _, _ := newTestEngine()
	if _, err := e.InspectFarm("missing"); !errors.Is(err, errs.ErrFarmNotFound) {
		t.Fatalf("expected ErrFarmNotFound, got %v", err)
	}
}
