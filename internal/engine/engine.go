// Package engine wires the Farm, Farmer, accrual, and ledger packages
// together into the full lifecycle call surface of spec §4.5/§6
// (component C7): create_farm, create_farmer, add/remove_harvest,
// new_harvest_period, set_min_snapshot_window, set_farm_owner,
// take_snapshot, start_farming, stop_farming, update_eligible_harvest(_until),
// claim_eligible_harvest, close_farmer, airdrop, and the compounding
// primitives. Every exported method here is one serialized transaction
// (spec §5): it either commits every mutation or returns an error with the
// farm/farmer store untouched, mirroring the teacher's approach in
// native/potso.Engine of holding a single mutex around one record's
// lifetime rather than a generic two-phase commit.
package engine

import (
	"sync"

	"github.com/harvestlabs/farmengine/internal/accrual"
	"github.com/harvestlabs/farmengine/internal/errs"
	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/internal/farmer"
	"github.com/harvestlabs/farmengine/internal/fixedpoint"
	"github.com/harvestlabs/farmengine/internal/ledger"
	"github.com/harvestlabs/farmengine/internal/schedule"
	"github.com/harvestlabs/farmengine/internal/storage"
)

// Engine is the lifecycle operations façade. It owns no state of its own
// beyond a store, a vault, and a slot oracle; all durable state lives in
// storage.Database.
type Engine struct {
	mu     sync.Mutex
	store  storage.Database
	vault  ledger.Vault
	clock  ledger.SlotOracle
	snapCapacity int
}

// New constructs an Engine over the given store, vault, and slot oracle.
// snapshotCapacity is N (spec §3); callers in production should pass
// snapshot.DefaultCapacity.
func New(store storage.Database, vault ledger.Vault, clock ledger.SlotOracle, snapshotCapacity int) *Engine {
	return &Engine{store: store, vault: vault, clock: clock, snapCapacity: snapshotCapacity}
}

// CreateFarm implements spec §4.5 create_farm.
func (e *Engine) CreateFarm(farmID, admin, stakeMint farm.AccountID) (farm.AccountID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.store.GetFarm(farmID); ok {
		return "", errs.ErrFarmAlreadyExists
	}
	stakeVault := ledger.StakeVaultFor(farmID)
	f := farm.New(farmID, admin, stakeMint, stakeVault, e.snapCapacity)
	e.store.PutFarm(f)
	return stakeVault, nil
}

// AddHarvest implements spec §4.5 add_harvest.
func (e *Engine) AddHarvest(farmID, admin, mint farm.AccountID) (farm.AccountID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(farmID)
	if !ok {
		return "", errs.ErrFarmNotFound
	}
	if err := f.RequireAdmin(admin); err != nil {
		return "", err
	}
	vault := ledger.HarvestVaultFor(farmID, mint)
	if err := f.AddHarvest(mint, vault); err != nil {
		return "", err
	}
	e.store.PutFarm(f)
	return vault, nil
}

// RemoveHarvest implements spec §4.5 remove_harvest.
func (e *Engine) RemoveHarvest(farmID, admin, mint farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(farmID)
	if !ok {
		return errs.ErrFarmNotFound
	}
	if err := f.RequireAdmin(admin); err != nil {
		return err
	}
	slot, err := f.Harvest(mint)
	if err != nil {
		return err
	}
	balance := e.vault.BalanceOf(slot.Vault)
	if err := f.RemoveHarvest(mint, balance); err != nil {
		return err
	}
	e.store.PutFarm(f)
	return nil
}

// NewHarvestPeriod implements spec §4.5 new_harvest_period: validates the
// proposed period against the schedule (§4.3), then moves the net
// reservation delta between the admin's wallet and the harvest vault. A
// startsAt of zero is taken to mean the current slot.
func (e *Engine) NewHarvestPeriod(farmID, admin, mint, adminWallet farm.AccountID, startsAt, endsAt, tps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(farmID)
	if !ok {
		return errs.ErrFarmNotFound
	}
	if err := f.RequireAdmin(admin); err != nil {
		return err
	}
	slot, err := f.Harvest(mint)
	if err != nil {
		return err
	}
	now := e.clock.CurrentSlot()
	if startsAt == 0 {
		startsAt = now
	}
	delta, err := slot.Schedule.Schedule(now, schedule.Period{StartsAt: startsAt, EndsAt: endsAt, Tps: tps})
	if err != nil {
		return err
	}
	if delta > 0 {
		if err := e.vault.Transfer(adminWallet, slot.Vault, uint64(delta)); err != nil {
			return err
		}
	} else if delta < 0 {
		if err := e.vault.Transfer(slot.Vault, adminWallet, uint64(-delta)); err != nil {
			return err
		}
	}
	e.store.PutFarm(f)
	return nil
}

// SetMinSnapshotWindow implements spec §4.5 set_min_snapshot_window.
func (e *Engine) SetMinSnapshotWindow(farmID, admin farm.AccountID, slots uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(farmID)
	if !ok {
		return errs.ErrFarmNotFound
	}
	if err := f.SetMinSnapshotWindow(admin, slots); err != nil {
		return err
	}
	e.store.PutFarm(f)
	return nil
}

// SetFarmOwner implements spec §4.5 set_farm_owner. Both signers having
// actually signed is the caller's responsibility (the gateway's auth
// middleware); this method only enforces that currentAdmin matches and
// newAdmin was supplied.
func (e *Engine) SetFarmOwner(farmID, currentAdmin, newAdmin farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(farmID)
	if !ok {
		return errs.ErrFarmNotFound
	}
	if newAdmin == farm.EmptyAccountID {
		return errs.ErrInvalidAccountInput
	}
	if err := f.SetOwner(currentAdmin, newAdmin); err != nil {
		return err
	}
	e.store.PutFarm(f)
	return nil
}

// TakeSnapshot implements spec §4.5 take_snapshot: permissionless, enforces
// min_snapshot_window_slots.
func (e *Engine) TakeSnapshot(farmID farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(farmID)
	if !ok {
		return errs.ErrFarmNotFound
	}
	balance := e.vault.BalanceOf(f.StakeVault)
	if err := f.TakeSnapshot(e.clock.CurrentSlot(), balance); err != nil {
		return err
	}
	e.store.PutFarm(f)
	return nil
}

// CreateFarmer implements spec §4.5 create_farmer: the farmer id is
// derived deterministically from (farm, authority), so a second create for
// the same pair maps to the same id and is rejected by the existence check
// below, which runs under the engine mutex together with the store write.
func (e *Engine) CreateFarmer(farmID, authority farm.AccountID) (farm.AccountID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.store.GetFarm(farmID); !ok {
		return "", errs.ErrFarmNotFound
	}
	id := ledger.FarmerIDFor(farmID, authority)
	if _, ok := e.store.GetFarmer(id); ok {
		return "", errs.ErrFarmerAlreadyExists
	}
	fr := farmer.New(id, authority, farmID)
	e.store.PutFarmer(fr)
	return id, nil
}

// loadPair fetches both the farm and farmer records for a farmer-scoped
// operation, failing if either is missing or if the farmer does not belong
// to the named farm.
func (e *Engine) loadPair(farmerID farm.AccountID) (*farm.Farm, *farmer.Farmer, error) {
	fr, ok := e.store.GetFarmer(farmerID)
	if !ok {
		return nil, nil, errs.ErrFarmerNotFound
	}
	f, ok := e.store.GetFarm(fr.Farm)
	if !ok {
		return nil, nil, errs.ErrFarmNotFound
	}
	return f, fr, nil
}

// StartFarming implements spec §4.5 start_farming: runs accrual, adds
// amount to vested, transfers amount from stakeWallet into the farm's
// stake vault. amount=0 is a no-op (still runs accrual, matching the
// "runs accrual" clause that precedes the no-op carve-out). Authority need
// not match the farmer's authority — anyone may stake on behalf of a
// farmer.
func (e *Engine) StartFarming(farmerID, stakeWallet farm.AccountID, amount fixedpoint.Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	now := e.clock.CurrentSlot()
	if err := accrual.Accrue(f, fr, now); err != nil {
		return err
	}
	if amount == 0 {
		e.store.PutFarmer(fr)
		return nil
	}
	if err := e.vault.Transfer(stakeWallet, f.StakeVault, uint64(amount)); err != nil {
		return err
	}
	fr.Vested, err = fixedpoint.Add(fr.Vested, amount)
	if err != nil {
		return err
	}
	fr.VestedAt = now
	e.store.PutFarmer(fr)
	return nil
}

// StopFarming implements spec §4.5 stop_farming: authority must match,
// runs accrual, unstakes up to maxAmount first from vested then from
// staked, transfers the unstaked total to the authority's stake wallet.
func (e *Engine) StopFarming(farmerID, authority, stakeWallet farm.AccountID, maxAmount fixedpoint.Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if maxAmount == 0 {
		return errs.ErrAmountMustBePositive
	}
	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	if err := fr.RequireAuthority(authority); err != nil {
		return err
	}
	now := e.clock.CurrentSlot()
	if err := accrual.Accrue(f, fr, now); err != nil {
		return err
	}

	remaining := maxAmount
	fromVested := fr.Vested
	if fromVested > remaining {
		fromVested = remaining
	}
	fr.Vested, err = fixedpoint.Sub(fr.Vested, fromVested)
	if err != nil {
		return err
	}
	remaining, err = fixedpoint.Sub(remaining, fromVested)
	if err != nil {
		return err
	}

	fromStaked := fr.Staked
	if fromStaked > remaining {
		fromStaked = remaining
	}
	fr.Staked, err = fixedpoint.Sub(fr.Staked, fromStaked)
	if err != nil {
		return err
	}

	total, err := fixedpoint.Add(fromVested, fromStaked)
	if err != nil {
		return err
	}
	if total > 0 {
		if err := e.vault.Transfer(f.StakeVault, stakeWallet, uint64(total)); err != nil {
			return err
		}
	}
	e.store.PutFarmer(fr)
	return nil
}

// UpdateEligibleHarvest implements spec §4.5 update_eligible_harvest.
// Permissionless.
func (e *Engine) UpdateEligibleHarvest(farmerID farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	if err := accrual.Accrue(f, fr, e.clock.CurrentSlot()); err != nil {
		return err
	}
	e.store.PutFarmer(fr)
	return nil
}

// UpdateEligibleHarvestUntil implements spec §4.4's
// update_eligible_harvest_until(cap).
func (e *Engine) UpdateEligibleHarvestUntil(farmerID farm.AccountID, cap uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	if err := accrual.AccrueUntil(f, fr, e.clock.CurrentSlot(), cap); err != nil {
		return err
	}
	e.store.PutFarmer(fr)
	return nil
}

// ClaimPair is one (vault, wallet) pair for ClaimEligibleHarvest.
type ClaimPair struct {
	Vault  farm.AccountID
	Wallet farm.AccountID
}

// ClaimEligibleHarvest implements spec §4.5 claim_eligible_harvest: for
// each pair, matches vault's mint to a harvest entry by looking up which
// harvest slot owns that vault, transfers the farmer's accrued balance for
// that mint, and zeroes the entry. Pairs naming the farm's stake vault are
// rejected with InvalidAccountInput.
func (e *Engine) ClaimEligibleHarvest(farmerID, authority farm.AccountID, pairs []ClaimPair) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	if err := fr.RequireAuthority(authority); err != nil {
		return err
	}
	if err := accrual.Accrue(f, fr, e.clock.CurrentSlot()); err != nil {
		return err
	}

	for _, p := range pairs {
		if p.Vault == f.StakeVault {
			return errs.ErrInvalidAccountInput
		}
		mint := farm.EmptyAccountID
		for i := range f.Harvests {
			if f.Harvests[i].Vault == p.Vault {
				mint = f.Harvests[i].Mint
				break
			}
		}
		if mint == farm.EmptyAccountID {
			return errs.ErrUnknownHarvestMint
		}
		amount := fr.ClaimAccrued(mint)
		if amount == 0 {
			continue
		}
		if err := e.vault.Transfer(p.Vault, p.Wallet, uint64(amount)); err != nil {
			return err
		}
	}
	e.store.PutFarmer(fr)
	return nil
}

// CloseFarmer implements spec §4.5 close_farmer.
func (e *Engine) CloseFarmer(farmerID, authority farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	if err := fr.RequireAuthority(authority); err != nil {
		return err
	}
	if err := fr.Close(); err != nil {
		return err
	}
	e.store.DeleteFarmer(farmerID)
	return nil
}

// Airdrop implements spec §4.5 airdrop: increments the farmer's accrued
// amount for mint, deposits amount into the harvest vault from the
// caller's wallet.
func (e *Engine) Airdrop(farmerID, callerWallet, mint farm.AccountID, amount fixedpoint.Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	slot, err := f.Harvest(mint)
	if err != nil {
		return err
	}
	if err := e.vault.Transfer(callerWallet, slot.Vault, uint64(amount)); err != nil {
		return err
	}
	if err := fr.Airdrop(mint, amount); err != nil {
		return err
	}
	e.store.PutFarmer(fr)
	return nil
}

// WhitelistFarmForCompounding implements spec §4.5
// whitelist_farm_for_compounding: records a per-pair marker authorizing
// CompoundAcrossFarms(sourceFarm -> targetFarm).
func (e *Engine) WhitelistFarmForCompounding(admin, sourceFarm, targetFarm farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(sourceFarm)
	if !ok {
		return errs.ErrFarmNotFound
	}
	if err := f.RequireAdmin(admin); err != nil {
		return err
	}
	marker := ledger.WhitelistMarkerFor(sourceFarm, targetFarm)
	if e.store.GetCompoundingMarker(marker) {
		return errs.ErrAlreadyWhitelisted
	}
	e.store.PutCompoundingMarker(marker)
	return nil
}

// DewhitelistFarmForCompounding implements spec §4.5
// dewhitelist_farm_for_compounding.
func (e *Engine) DewhitelistFarmForCompounding(admin, sourceFarm, targetFarm farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(sourceFarm)
	if !ok {
		return errs.ErrFarmNotFound
	}
	if err := f.RequireAdmin(admin); err != nil {
		return err
	}
	marker := ledger.WhitelistMarkerFor(sourceFarm, targetFarm)
	if !e.store.GetCompoundingMarker(marker) {
		return errs.ErrNotWhitelisted
	}
	e.store.DeleteCompoundingMarker(marker)
	return nil
}

// CompoundSameFarm implements spec §4.5 compound_same_farm: claims the
// farmer's accrued balance of harvestMint, which must equal the farm's
// stake mint, and immediately re-stakes the claimed amount in the same
// farm by moving it from that harvest's vault into the stake vault,
// without round-tripping through an external wallet. Reduces to claim + start_farming per spec's framing of
// compounding as "external collaborators... built from the primitives
// exposed here".
func (e *Engine) CompoundSameFarm(farmerID, authority, harvestMint farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return err
	}
	if err := fr.RequireAuthority(authority); err != nil {
		return err
	}
	if harvestMint != f.StakeMint {
		return errs.ErrInvalidAccountInput
	}
	now := e.clock.CurrentSlot()
	if err := accrual.Accrue(f, fr, now); err != nil {
		return err
	}
	amount := fr.ClaimAccrued(harvestMint)
	if amount == 0 {
		e.store.PutFarmer(fr)
		return nil
	}
	slot, err := f.Harvest(harvestMint)
	if err != nil {
		return err
	}
	if err := e.vault.Transfer(slot.Vault, f.StakeVault, uint64(amount)); err != nil {
		return err
	}
	fr.Vested, err = fixedpoint.Add(fr.Vested, amount)
	if err != nil {
		return err
	}
	fr.VestedAt = now
	e.store.PutFarmer(fr)
	return nil
}

// CompoundAcrossFarms implements spec §4.5 compound_across_farms: claims
// harvestMint from sourceFarmerID and stakes the claimed amount into
// targetFarmerID, guarded by the (source_farm, target_farm) whitelist
// marker WhitelistFarmForCompounding established. Requires both farmer
// records to share the same authority (only that authority's own position
// may be compounded across farms).
func (e *Engine) CompoundAcrossFarms(sourceFarmerID, targetFarmerID, authority, harvestMint farm.AccountID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	srcFarm, srcFarmer, err := e.loadPair(sourceFarmerID)
	if err != nil {
		return err
	}
	if err := srcFarmer.RequireAuthority(authority); err != nil {
		return err
	}
	dstFarm, dstFarmer, err := e.loadPair(targetFarmerID)
	if err != nil {
		return err
	}
	if err := dstFarmer.RequireAuthority(authority); err != nil {
		return err
	}
	if dstFarm.StakeMint != harvestMint {
		return errs.ErrInvalidAccountInput
	}
	marker := ledger.WhitelistMarkerFor(srcFarm.ID, dstFarm.ID)
	if !e.store.GetCompoundingMarker(marker) {
		return errs.ErrNotWhitelisted
	}
	srcSlot, err := srcFarm.Harvest(harvestMint)
	if err != nil {
		return err
	}

	now := e.clock.CurrentSlot()
	if err := accrual.Accrue(srcFarm, srcFarmer, now); err != nil {
		return err
	}
	if err := accrual.Accrue(dstFarm, dstFarmer, now); err != nil {
		return err
	}
	amount := srcFarmer.ClaimAccrued(harvestMint)
	if amount == 0 {
		e.store.PutFarmer(srcFarmer)
		e.store.PutFarmer(dstFarmer)
		return nil
	}
	if err := e.vault.Transfer(srcSlot.Vault, dstFarm.StakeVault, uint64(amount)); err != nil {
		return err
	}
	dstFarmer.Vested, err = fixedpoint.Add(dstFarmer.Vested, amount)
	if err != nil {
		return err
	}
	dstFarmer.VestedAt = now
	e.store.PutFarmer(srcFarmer)
	e.store.PutFarmer(dstFarmer)
	return nil
}

// PreviewAccrual exposes the read-only accrual.Preview dry-run for the
// farmer inspection surface (SPEC_FULL.md §12), without running accrual.Accrue
// or writing to the store.
func (e *Engine) PreviewAccrual(farmerID farm.AccountID) ([]accrual.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, fr, err := e.loadPair(farmerID)
	if err != nil {
		return nil, err
	}
	return accrual.Preview(f, fr, e.clock.CurrentSlot())
}

// FarmView is the read-only shape of a Farm exposed by InspectFarm: the
// live harvest mints (empty slots omitted) and the current snapshot tip,
// rather than the raw fixed-size array/ring buffer Farm carries for O(1)
// mutation.
type FarmView struct {
	ID                     farm.AccountID
	Admin                  farm.AccountID
	StakeMint              farm.AccountID
	StakeVault             farm.AccountID
	MinSnapshotWindowSlots uint64
	Harvests               []HarvestView
	LatestSnapshotSlot     uint64
	LatestSnapshotBalance  uint64
}

// HarvestView is one live harvest mint within a FarmView.
type HarvestView struct {
	Mint  farm.AccountID
	Vault farm.AccountID
}

// InspectFarm implements the read-only farm inspection surface (SPEC_FULL.md
// §12, GET /farms/{id}).
func (e *Engine) InspectFarm(farmID farm.AccountID) (FarmView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.store.GetFarm(farmID)
	if !ok {
		return FarmView{}, errs.ErrFarmNotFound
	}
	view := FarmView{
		ID:                     f.ID,
		Admin:                  f.Admin,
		StakeMint:              f.StakeMint,
		StakeVault:             f.StakeVault,
		MinSnapshotWindowSlots: f.MinSnapshotWindowSlots,
	}
	for _, h := range f.Harvests {
		if h.Mint == farm.EmptyAccountID {
			continue
		}
		view.Harvests = append(view.Harvests, HarvestView{Mint: h.Mint, Vault: h.Vault})
	}
	latest := f.Snapshots.Latest()
	view.LatestSnapshotSlot = latest.StartedAt
	view.LatestSnapshotBalance = latest.Staked
	return view, nil
}
