// Package ledger provides the one concrete instantiation of the host
// interface the engine expects (spec §6): a token vault abstraction, a
// deterministic identity/address derivation scheme, and a monotone slot
// oracle. internal/engine depends only on the interfaces here, never on
// the in-memory implementation directly, so a production deployment can
// swap in a real chain's vault/signer primitives without touching the
// lifecycle operations.
package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/harvestlabs/farmengine/internal/errs"
	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/internal/storage"
	"lukechampine.com/blake3"
)

// Derive computes the deterministic identifier for a seed-pair derivation
// named in spec §6: blake3 digest of the seed components, joined by a
// delimiter byte absent from any realistic component (the same approach
// the teacher's native/creator engine uses to turn normalized input into a
// stable digest).
func Derive(parts ...string) farm.AccountID {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
		buf = append(buf, 0)
	}
	sum := blake3.Sum256(buf)
	return farm.AccountID(hex.EncodeToString(sum[:]))
}

// SignerFor derives a farm's program-owned signer identity.
func SignerFor(farmID farm.AccountID) farm.AccountID {
	return Derive("signer", string(farmID))
}

// StakeVaultFor derives a farm's stake vault identity.
func StakeVaultFor(farmID farm.AccountID) farm.AccountID {
	return Derive("stake_vault", string(farmID))
}

// HarvestVaultFor derives a harvest's vault identity.
func HarvestVaultFor(farmID, mint farm.AccountID) farm.AccountID {
	return Derive("harvest_vault", string(farmID), string(mint))
}

// FarmerIDFor derives a farmer record's identity from its farm and
// authority, guaranteeing create_farmer rejects duplicates by construction
// (spec §4.5: "Allocates Farmer record derived deterministically from
// (farm, authority)").
func FarmerIDFor(farmID, authority farm.AccountID) farm.AccountID {
	return Derive("farmer", string(farmID), string(authority))
}

// WhitelistMarkerFor derives the per-pair compounding whitelist marker
// identity (spec §4.5 whitelist_farm_for_compounding).
func WhitelistMarkerFor(sourceFarm, targetFarm farm.AccountID) farm.AccountID {
	return Derive("whitelist_compounding", string(sourceFarm), string(targetFarm))
}

// Vault is the token custody abstraction the engine transfers against
// (spec §6: "A token vault abstraction: a typed balance per (mint,
// vault_id), with authority-gated transfer(src, dst, amount) that fails
// on insufficient balance").
type Vault interface {
	// BalanceOf returns the current balance of vaultID.
	BalanceOf(vaultID farm.AccountID) uint64
	// Transfer moves amount from src to dst, failing with
	// ErrInsufficientBalance if src does not hold enough.
	Transfer(src, dst farm.AccountID, amount uint64) error
	// Mint credits vaultID out of thin air, without debiting any other
	// vault. The lifecycle operations never call it: new_harvest_period
	// and airdrop move tokens from a caller wallet with Transfer, so that
	// wallet has to be funded first (tests do so with Mint).
	Mint(vaultID farm.AccountID, amount uint64) error
}

// SlotOracle returns a monotone 64-bit slot (spec §6).
type SlotOracle interface {
	CurrentSlot() uint64
}

// MemVault is an in-memory Vault, the default for tests. farmgatewayd
// uses LevelVault instead so balances survive a restart.
type MemVault struct {
	mu       sync.Mutex
	balances map[farm.AccountID]uint64
}

// NewMemVault constructs an empty MemVault.
func NewMemVault() *MemVault {
	return &MemVault{balances: make(map[farm.AccountID]uint64)}
}

// BalanceOf implements Vault.
func (v *MemVault) BalanceOf(vaultID farm.AccountID) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[vaultID]
}

// Transfer implements Vault.
func (v *MemVault) Transfer(src, dst farm.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.balances[src] < amount {
		return errs.ErrInsufficientBalance
	}
	v.balances[src] -= amount
	v.balances[dst] += amount
	return nil
}

// Mint implements Vault.
func (v *MemVault) Mint(vaultID farm.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[vaultID] += amount
	return nil
}

const vaultBalancePrefix = "farmengine/vault/"

func vaultBalanceKey(vaultID farm.AccountID) []byte {
	return []byte(vaultBalancePrefix + string(vaultID))
}

// LevelVault is a Vault persisted over a storage.KV, the same key-value
// interface storage.Store uses for farm and farmer records, so vault
// balances survive a restart instead of resetting to zero alongside
// metadata that outlives them.
type LevelVault struct {
	mu sync.Mutex
	kv storage.KV
}

// NewLevelVault wraps kv as a persistent Vault.
func NewLevelVault(kv storage.KV) *LevelVault {
	return &LevelVault{kv: kv}
}

func (v *LevelVault) balance(vaultID farm.AccountID) uint64 {
	raw, err := v.kv.Get(vaultBalanceKey(vaultID))
	if err != nil {
		return 0
	}
	bal, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0
	}
	return bal
}

func (v *LevelVault) setBalance(vaultID farm.AccountID, amount uint64) {
	if err := v.kv.Put(vaultBalanceKey(vaultID), []byte(strconv.FormatUint(amount, 10))); err != nil {
		panic(fmt.Sprintf("ledger: persist vault balance %s: %v", vaultID, err))
	}
}

// BalanceOf implements Vault.
func (v *LevelVault) BalanceOf(vaultID farm.AccountID) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance(vaultID)
}

// Transfer implements Vault.
func (v *LevelVault) Transfer(src, dst farm.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	srcBal := v.balance(src)
	if srcBal < amount {
		return errs.ErrInsufficientBalance
	}
	v.setBalance(src, srcBal-amount)
	v.setBalance(dst, v.balance(dst)+amount)
	return nil
}

// Mint implements Vault.
func (v *LevelVault) Mint(vaultID farm.AccountID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setBalance(vaultID, v.balance(vaultID)+amount)
	return nil
}

// ManualSlotOracle is a SlotOracle whose value the caller advances
// explicitly, used by tests directly and by a production deployment via
// Run, a ticker-driven goroutine (spec §6: "slots are a monotone logical
// clock" with no wall-clock semantics assumed).
type ManualSlotOracle struct {
	mu   sync.Mutex
	slot uint64
}

// NewManualSlotOracle constructs a ManualSlotOracle starting at 0.
func NewManualSlotOracle() *ManualSlotOracle {
	return &ManualSlotOracle{}
}

// CurrentSlot implements SlotOracle.
func (o *ManualSlotOracle) CurrentSlot() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.slot
}

// Advance moves the slot forward by delta and returns the new value.
// Advancing by zero is a no-op; the oracle never regresses.
func (o *ManualSlotOracle) Advance(delta uint64) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.slot += delta
	return o.slot
}

// Run advances the slot by one on every tick of interval until ctx is
// done, the same ticker/select-loop shape the teacher's connManager.run
// uses to drive its periodic maintenance goroutine. A production
// farmgatewayd calls this once at startup so take_snapshot's
// min_snapshot_window_slots check and internal/accrual's closed/open
// window math actually progress over wall-clock time.
func (o *ManualSlotOracle) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.Advance(1)
		case <-ctx.Done():
			return
		}
	}
}
