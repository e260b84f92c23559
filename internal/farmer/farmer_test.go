package farmer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/harvestlabs/farmengine/internal/errs"
	"github.com/harvestlabs/farmengine/internal/farm"
)

func TestRequireAuthorityRejectsMismatch(t *testing.T) {
	f := New("farmer1", "authA", "farm1")
	if err := f.RequireAuthority("authB"); !errors.Is(err, errs.ErrFarmerAuthorityMismatch) {
		t.Fatalf("expected ErrFarmerAuthorityMismatch, got %v", err)
	}
	if err := f.RequireAuthority("authA"); err != nil {
		t.Fatalf("expected matching authority to pass, got %v", err)
	}
}

func TestAirdropAndClaimAccruedRoundTrip(t *testing.T) {
	f := New("farmer1", "authA", "farm1")
	if err := f.Airdrop("mintA", 100); err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if got := f.AccruedFor("mintA"); got != 100 {
		t.Fatalf("expected accrued 100, got %d", got)
	}
	if err := f.Airdrop("mintA", 50); err != nil {
		t.Fatalf("second airdrop: %v", err)
	}
	if got := f.AccruedFor("mintA"); got != 150 {
		t.Fatalf("expected accrued to accumulate to 150, got %d", got)
	}

	claimed := f.ClaimAccrued("mintA")
	if claimed != 150 {
		t.Fatalf("expected claim of 150, got %d", claimed)
	}
	if got := f.AccruedFor("mintA"); got != 0 {
		t.Fatalf("expected accrued zeroed after claim, got %d", got)
	}
}

func TestAirdropFailsWhenHarvestSlotsExhausted(t *testing.T) {
	f := New("farmer1", "authA", "farm1")
	for i := 0; i < len(f.Harvests); i++ {
		mint := farm.AccountID(fmt.Sprintf("mint%d", i))
		if err := f.Airdrop(mint, 1); err != nil {
			t.Fatalf("airdrop %d: %v", i, err)
		}
	}
	if err := f.Airdrop("overflow", 1); !errors.Is(err, errs.ErrInvariantViolated) {
		t.Fatalf("expected ErrInvariantViolated once all parallel entries are taken, got %v", err)
	}
}

func TestCanCloseAndCloseAgree(t *testing.T) {
	f := New("farmer1", "authA", "farm1")
	if !f.CanClose() {
		t.Fatalf("expected a fresh farmer to be closable")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("expected fresh farmer to close cleanly, got %v", err)
	}

	f.Staked = 10
	if f.CanClose() {
		t.Fatalf("expected farmer with staked balance to not be closable")
	}
	if err := f.Close(); !errors.Is(err, errs.ErrFarmerStillHasStakedTokens) {
		t.Fatalf("expected ErrFarmerStillHasStakedTokens, got %v", err)
	}

	f.Staked = 0
	if err := f.Airdrop("mintA", 1); err != nil {
		t.Fatalf("airdrop: %v", err)
	}
	if f.CanClose() {
		t.Fatalf("expected farmer with unclaimed harvest to not be closable")
	}
	if err := f.Close(); !errors.Is(err, errs.ErrFarmerHasUnclaimedHarvest) {
		t.Fatalf("expected ErrFarmerHasUnclaimedHarvest, got %v", err)
	}
}
