package farm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/harvestlabs/farmengine/internal/errs"
)

func TestRequireAdminRejectsMismatch(t *testing.T) {
	f := New("farm1", "admin", "mintA", "vaultA", 8)
	if err := f.RequireAdmin("someone-else"); !errors.Is(err, errs.ErrFarmAdminMismatch) {
		t.Fatalf("expected ErrFarmAdminMismatch, got %v", err)
	}
	if err := f.RequireAdmin("admin"); err != nil {
		t.Fatalf("expected matching admin to pass, got %v", err)
	}
}

func TestAddHarvestRejectsDuplicateMint(t *testing.T) {
	f := New("farm1", "admin", "mintA", "vaultA", 8)
	if err := f.AddHarvest("mintB", "vaultB"); err != nil {
		t.Fatalf("add harvest: %v", err)
	}
	if err := f.AddHarvest("mintB", "vaultB2"); !errors.Is(err, errs.ErrHarvestMintAlreadyPresent) {
		t.Fatalf("expected ErrHarvestMintAlreadyPresent, got %v", err)
	}
}

func TestAddHarvestRejectsWhenFull(t *testing.T) {
	f := New("farm1", "admin", "mintA", "vaultA", 8)
	for i := 0; i < MaxHarvests; i++ {
		mint := AccountID(fmt.Sprintf("mint%d", i))
		if err := f.AddHarvest(mint, "vault"); err != nil {
			t.Fatalf("add harvest %d: %v", i, err)
		}
	}
	if err := f.AddHarvest("overflow", "vault"); !errors.Is(err, errs.ErrHarvestMintsFull) {
		t.Fatalf("expected ErrHarvestMintsFull, got %v", err)
	}
}

func TestRemoveHarvestRequiresEmptyVault(t *testing.T) {
	f := New("farm1", "admin", "mintA", "vaultA", 8)
	if err := f.AddHarvest("mintB", "vaultB"); err != nil {
		t.Fatalf("add harvest: %v", err)
	}
	if err := f.RemoveHarvest("mintB", 5); !errors.Is(err, errs.ErrHarvestVaultNotEmpty) {
		t.Fatalf("expected ErrHarvestVaultNotEmpty, got %v", err)
	}
	if err := f.RemoveHarvest("mintB", 0); err != nil {
		t.Fatalf("expected empty-vault removal to succeed, got %v", err)
	}
	if f.HarvestIndex("mintB") != -1 {
		t.Fatalf("expected slot to be cleared after removal")
	}
}

func TestRemoveHarvestUnknownMint(t *testing.T) {
	f := New("farm1", "admin", "mintA", "vaultA", 8)
	if err := f.RemoveHarvest("missing", 0); !errors.Is(err, errs.ErrUnknownHarvestMint) {
		t.Fatalf("expected ErrUnknownHarvestMint, got %v", err)
	}
}

func TestSetOwnerRequiresCurrentAdmin(t *testing.T) {
	f := New("farm1", "admin", "mintA", "vaultA", 8)
	if err := f.SetOwner("not-admin", "newAdmin"); !errors.Is(err, errs.ErrFarmAdminMismatch) {
		t.Fatalf("expected ErrFarmAdminMismatch, got %v", err)
	}
	if err := f.SetOwner("admin", "newAdmin"); err != nil {
		t.Fatalf("set owner: %v", err)
	}
	if f.Admin != "newAdmin" {
		t.Fatalf("expected admin updated, got %q", f.Admin)
	}
}

func TestTakeSnapshotEnforcesMinWindow(t *testing.T) {
	f := New("farm1", "admin", "mintA", "vaultA", 8)
	if err := f.SetMinSnapshotWindow("admin", 10); err != nil {
		t.Fatalf("set min snapshot window: %v", err)
	}
	if err := f.TakeSnapshot(5, 100); !errors.Is(err, errs.ErrInsufficientSlotTime) {
		t.Fatalf("expected ErrInsufficientSlotTime, got %v", err)
	}
	if err := f.TakeSnapshot(10, 100); err != nil {
		t.Fatalf("expected snapshot at exactly the window boundary to succeed, got %v", err)
	}
}
