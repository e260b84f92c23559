// Package farm implements the Farm record (spec §3/§4.5, component C4):
// the admin-owned pool definition aggregating a stake mint, stake vault,
// snapshot history, and up to MaxHarvests harvest schedules.
package farm

import (
	"github.com/harvestlabs/farmengine/internal/errs"
	"github.com/harvestlabs/farmengine/internal/schedule"
	"github.com/harvestlabs/farmengine/internal/snapshot"
)

// AccountID identifies any ledger-addressable account: a mint, a vault, an
// admin/authority, or a farm itself. The farming engine treats these as
// opaque identifiers; interpretation is the host ledger's responsibility
// (spec §6).
type AccountID string

// EmptyAccountID is the sentinel used for unused harvest slots (spec §3:
// "Empty harvest slots hold a sentinel (zero pubkey)").
const EmptyAccountID AccountID = ""

// MaxHarvests is Ψ, the compile-time cap on simultaneous harvest mints per
// farm (spec §3 names the source's value as 10).
const MaxHarvests = 10

// HarvestSlot is one entry of Farm.Harvests: a harvest mint's vault and
// emission schedule (spec §3, Harvest).
type HarvestSlot struct {
	Mint     AccountID
	Vault    AccountID
	Schedule *schedule.Schedule
}

func (h HarvestSlot) empty() bool {
	return h.Mint == EmptyAccountID
}

// Farm is the admin-owned pool definition (spec §3).
type Farm struct {
	ID                     AccountID
	Admin                  AccountID
	StakeMint              AccountID
	StakeVault             AccountID
	MinSnapshotWindowSlots uint64
	Harvests               [MaxHarvests]HarvestSlot
	Snapshots              *snapshot.Buffer
}

// New constructs a Farm in its spec-mandated initial state (spec §4.5
// create_farm): zero min snapshot window, empty harvests, a snapshot
// buffer with tip=0 and entries[0]=(0,0).
func New(id, admin, stakeMint, stakeVault AccountID, snapshotCapacity int) *Farm {
	return &Farm{
		ID:                     id,
		Admin:                  admin,
		StakeMint:              stakeMint,
		StakeVault:             stakeVault,
		MinSnapshotWindowSlots: 0,
		Snapshots:              snapshot.NewBuffer(snapshotCapacity),
	}
}

// RequireAdmin enforces spec §7 FarmAdminMismatch.
func (f *Farm) RequireAdmin(signer AccountID) error {
	if signer != f.Admin {
		return errs.ErrFarmAdminMismatch
	}
	return nil
}

// HarvestIndex returns the index of the harvest slot for mint, or -1.
// Spec §9 design notes: "plain struct array and index by mint equality
// (linear search, Psi <= 10)".
func (f *Farm) HarvestIndex(mint AccountID) int {
	for i := range f.Harvests {
		if f.Harvests[i].Mint == mint {
			return i
		}
	}
	return -1
}

// Harvest returns the harvest slot for mint.
func (f *Farm) Harvest(mint AccountID) (*HarvestSlot, error) {
	idx := f.HarvestIndex(mint)
	if idx < 0 {
		return nil, errs.ErrUnknownHarvestMint
	}
	return &f.Harvests[idx], nil
}

// AddHarvest implements spec §4.5 add_harvest: fails if the farm already
// has MaxHarvests entries or the mint is already present.
func (f *Farm) AddHarvest(mint, vault AccountID) error {
	if f.HarvestIndex(mint) >= 0 {
		return errs.ErrHarvestMintAlreadyPresent
	}
	for i := range f.Harvests {
		if f.Harvests[i].empty() {
			f.Harvests[i] = HarvestSlot{Mint: mint, Vault: vault, Schedule: schedule.NewSchedule()}
			return nil
		}
	}
	return errs.ErrHarvestMintsFull
}

// RemoveHarvest implements spec §4.5 remove_harvest: fails unless the
// corresponding harvest vault is empty (vaultBalance == 0 as reported by
// the caller's ledger lookup).
func (f *Farm) RemoveHarvest(mint AccountID, vaultBalance uint64) error {
	idx := f.HarvestIndex(mint)
	if idx < 0 {
		return errs.ErrUnknownHarvestMint
	}
	if vaultBalance != 0 {
		return errs.ErrHarvestVaultNotEmpty
	}
	f.Harvests[idx] = HarvestSlot{}
	return nil
}

// SetMinSnapshotWindow implements spec §4.5 set_min_snapshot_window.
func (f *Farm) SetMinSnapshotWindow(admin AccountID, slots uint64) error {
	if err := f.RequireAdmin(admin); err != nil {
		return err
	}
	f.MinSnapshotWindowSlots = slots
	return nil
}

// SetOwner implements spec §4.5 set_farm_owner. Both signers must be
// verified by the caller (host runtime signature check, spec §6); this
// method only enforces that the current admin matches.
func (f *Farm) SetOwner(currentAdmin, newAdmin AccountID) error {
	if err := f.RequireAdmin(currentAdmin); err != nil {
		return err
	}
	f.Admin = newAdmin
	return nil
}

// TakeSnapshot implements spec §4.2/§4.5 take_snapshot: permissionless,
// enforces MinSnapshotWindowSlots.
func (f *Farm) TakeSnapshot(currentSlot, vaultBalance uint64) error {
	return f.Snapshots.TakeSnapshot(currentSlot, vaultBalance, f.MinSnapshotWindowSlots)
}
