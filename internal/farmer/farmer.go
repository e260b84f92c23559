// Package farmer implements the Farmer record (spec §3, component C5):
// one user's staked/vested position and per-mint accrued-but-unclaimed
// harvest balances within a single farm.
package farmer

import (
	"github.com/harvestlabs/farmengine/internal/errs"
	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/internal/fixedpoint"
)

// HarvestEntry is one element of Farmer.Harvests: the accrued-but-unclaimed
// balance for one harvest mint. The mint array is kept parallel to — but
// not necessarily in the same order as — the farm's harvest array (spec
// §3).
type HarvestEntry struct {
	Mint    farm.AccountID
	Accrued fixedpoint.Amount
}

// Farmer is the per-user position record (spec §3).
type Farmer struct {
	ID                       farm.AccountID
	Authority                farm.AccountID
	Farm                     farm.AccountID
	Staked                   fixedpoint.Amount
	Vested                   fixedpoint.Amount
	VestedAt                 uint64
	CalculateNextHarvestFrom uint64
	Harvests                 [farm.MaxHarvests]HarvestEntry
}

// New constructs a fresh Farmer record (spec §4.5 create_farmer).
func New(id, authority, farmID farm.AccountID) *Farmer {
	return &Farmer{ID: id, Authority: authority, Farm: farmID}
}

// RequireAuthority enforces that signer matches this farmer's authority,
// used by stop_farming, claim_eligible_harvest, and close_farmer (spec
// §4.5).
func (f *Farmer) RequireAuthority(signer farm.AccountID) error {
	if signer != f.Authority {
		return errs.ErrFarmerAuthorityMismatch
	}
	return nil
}

// harvestIndex returns the index of this farmer's entry for mint, or -1.
func (f *Farmer) harvestIndex(mint farm.AccountID) int {
	for i := range f.Harvests {
		if f.Harvests[i].Mint == mint {
			return i
		}
	}
	return -1
}

// AccruedFor returns the farmer's currently accrued balance for mint.
func (f *Farmer) AccruedFor(mint farm.AccountID) fixedpoint.Amount {
	idx := f.harvestIndex(mint)
	if idx < 0 {
		return 0
	}
	return f.Harvests[idx].Accrued
}

// addAccrued adds amount to the farmer's entry for mint, allocating a
// fresh parallel entry if this is the first accrual for that mint.
func (f *Farmer) addAccrued(mint farm.AccountID, amount fixedpoint.Amount) error {
	if amount == 0 {
		return nil
	}
	idx := f.harvestIndex(mint)
	if idx < 0 {
		idx = f.harvestIndex(farm.EmptyAccountID)
		if idx < 0 {
			return errs.ErrInvariantViolated
		}
		f.Harvests[idx].Mint = mint
	}
	sum, err := fixedpoint.Add(f.Harvests[idx].Accrued, amount)
	if err != nil {
		return err
	}
	f.Harvests[idx].Accrued = sum
	return nil
}

// ClaimAccrued zeroes and returns the farmer's accrued balance for mint
// (spec §4.5 claim_eligible_harvest).
func (f *Farmer) ClaimAccrued(mint farm.AccountID) fixedpoint.Amount {
	idx := f.harvestIndex(mint)
	if idx < 0 {
		return 0
	}
	amount := f.Harvests[idx].Accrued
	f.Harvests[idx].Accrued = 0
	return amount
}

// Airdrop increments the farmer's accrued balance for mint by amount
// without going through the accrual engine (spec §4.5 airdrop, used for
// migrations).
func (f *Farmer) Airdrop(mint farm.AccountID, amount fixedpoint.Amount) error {
	return f.addAccrued(mint, amount)
}

// CanClose reports whether invariant 5 (spec §3) is satisfied: staked and
// vested are both zero and every harvest entry's accrued balance is zero.
func (f *Farmer) CanClose() bool {
	if f.Staked != 0 || f.Vested != 0 {
		return false
	}
	for _, h := range f.Harvests {
		if h.Accrued != 0 {
			return false
		}
	}
	return true
}

// Close implements spec §4.5 close_farmer's invariant check. The caller
// (internal/engine) is responsible for authority verification and for
// actually removing the persisted record once this returns nil.
func (f *Farmer) Close() error {
	if f.Staked != 0 || f.Vested != 0 {
		return errs.ErrFarmerStillHasStakedTokens
	}
	for _, h := range f.Harvests {
		if h.Accrued != 0 {
			return errs.ErrFarmerHasUnclaimedHarvest
		}
	}
	return nil
}
