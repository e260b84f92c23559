// Package storage persists Farm and Farmer records and compounding
// whitelist markers over a generic key-value store, mirroring the
// teacher's storage.Database split between an in-memory implementation
// (tests) and a github.com/syndtr/goleveldb-backed implementation (a
// standalone process). Encoding follows the teacher's
// consensus/potso/evidence.Store pattern of a prefixed key per record type
// wrapping a raw KV.Database; json replaces the teacher's go-ethereum/rlp
// codec since this module does not otherwise depend on go-ethereum.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/internal/farmer"
	"github.com/harvestlabs/farmengine/internal/fixedpoint"
	"github.com/harvestlabs/farmengine/internal/schedule"
	"github.com/harvestlabs/farmengine/internal/snapshot"
	"github.com/syndtr/goleveldb/leveldb"
)

// KV is a generic interface for a raw key-value store, allowing the
// engine's storage layer to run against either an in-memory map or a
// persistent LevelDB instance.
type KV interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Close()
}

// MemKV is an in-memory KV, the default for tests.
type MemKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemKV constructs an empty MemKV.
func NewMemKV() *MemKV {
	return &MemKV{data: make(map[string][]byte)}
}

func (db *MemKV) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = value
	return nil
}

func (db *MemKV) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, fmt.Errorf("storage: key not found")
	}
	return value, nil
}

func (db *MemKV) Close() {}

// LevelKV is a persistent KV backed by goleveldb, for a standalone
// farmgatewayd process.
type LevelKV struct {
	db *leveldb.DB
}

// NewLevelKV opens (or creates) a LevelDB database at path.
func NewLevelKV(path string) (*LevelKV, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelKV{db: db}, nil
}

func (db *LevelKV) Put(key, value []byte) error {
	return db.db.Put(key, value, nil)
}

func (db *LevelKV) Get(key []byte) ([]byte, error) {
	return db.db.Get(key, nil)
}

func (db *LevelKV) Close() {
	db.db.Close()
}

const (
	farmPrefix     = "farmengine/farm/"
	farmerPrefix   = "farmengine/farmer/"
	compoundPrefix = "farmengine/compound/"
)

func farmKey(id farm.AccountID) []byte   { return []byte(farmPrefix + string(id)) }
func farmerKey(id farm.AccountID) []byte { return []byte(farmerPrefix + string(id)) }
func compoundKey(id farm.AccountID) []byte {
	return []byte(compoundPrefix + string(id))
}

// harvestSlotDTO/farmDTO/farmerDTO are the wire encodings of the in-memory
// record graph: schedule.Schedule and snapshot.Buffer carry their
// invariants entirely in their own package's methods, so the storage layer
// marshals their exported fields directly rather than introducing bespoke
// (Un)MarshalJSON methods on those packages.
type harvestSlotDTO struct {
	Mint    farm.AccountID
	Vault   farm.AccountID
	Periods []schedule.Period
}

type farmDTO struct {
	ID                     farm.AccountID
	Admin                  farm.AccountID
	StakeMint              farm.AccountID
	StakeVault             farm.AccountID
	MinSnapshotWindowSlots uint64
	Harvests               []harvestSlotDTO
	SnapshotTip            uint64
	SnapshotEntries        []snapshot.Snapshot
}

func toFarmDTO(f *farm.Farm) farmDTO {
	dto := farmDTO{
		ID:                     f.ID,
		Admin:                  f.Admin,
		StakeMint:              f.StakeMint,
		StakeVault:             f.StakeVault,
		MinSnapshotWindowSlots: f.MinSnapshotWindowSlots,
		SnapshotTip:            f.Snapshots.Tip,
		SnapshotEntries:        f.Snapshots.Entries,
	}
	for _, h := range f.Harvests {
		var periods []schedule.Period
		if h.Schedule != nil {
			periods = h.Schedule.Periods
		}
		dto.Harvests = append(dto.Harvests, harvestSlotDTO{Mint: h.Mint, Vault: h.Vault, Periods: periods})
	}
	return dto
}

func fromFarmDTO(dto farmDTO) *farm.Farm {
	f := farm.New(dto.ID, dto.Admin, dto.StakeMint, dto.StakeVault, len(dto.SnapshotEntries))
	f.MinSnapshotWindowSlots = dto.MinSnapshotWindowSlots
	f.Snapshots.Tip = dto.SnapshotTip
	copy(f.Snapshots.Entries, dto.SnapshotEntries)
	for i, h := range dto.Harvests {
		if i >= len(f.Harvests) {
			break
		}
		sched := schedule.NewSchedule()
		sched.Periods = append(sched.Periods, h.Periods...)
		f.Harvests[i] = farm.HarvestSlot{Mint: h.Mint, Vault: h.Vault, Schedule: sched}
	}
	return f
}

type farmerDTO struct {
	ID                       farm.AccountID
	Authority                farm.AccountID
	Farm                     farm.AccountID
	Staked                   uint64
	Vested                   uint64
	VestedAt                 uint64
	CalculateNextHarvestFrom uint64
	Harvests                 [farm.MaxHarvests]farmer.HarvestEntry
}

func toFarmerDTO(fr *farmer.Farmer) farmerDTO {
	return farmerDTO{
		ID:                       fr.ID,
		Authority:                fr.Authority,
		Farm:                     fr.Farm,
		Staked:                   uint64(fr.Staked),
		Vested:                   uint64(fr.Vested),
		VestedAt:                 fr.VestedAt,
		CalculateNextHarvestFrom: fr.CalculateNextHarvestFrom,
		Harvests:                 fr.Harvests,
	}
}

func fromFarmerDTO(dto farmerDTO) *farmer.Farmer {
	fr := farmer.New(dto.ID, dto.Authority, dto.Farm)
	fr.Staked = fixedpoint.Amount(dto.Staked)
	fr.Vested = fixedpoint.Amount(dto.Vested)
	fr.VestedAt = dto.VestedAt
	fr.CalculateNextHarvestFrom = dto.CalculateNextHarvestFrom
	fr.Harvests = dto.Harvests
	return fr
}

// Database is the record-level persistence interface the engine depends
// on. It intentionally never returns an error from its accessors: a
// missing record is ordinary control flow (the engine maps that to the
// appropriate sentinel), and encode/decode failures against a store this
// package itself writes to indicate corruption the caller cannot recover
// from, so Put panics rather than silently dropping a record.
type Database interface {
	GetFarm(id farm.AccountID) (*farm.Farm, bool)
	PutFarm(f *farm.Farm)
	GetFarmer(id farm.AccountID) (*farmer.Farmer, bool)
	PutFarmer(fr *farmer.Farmer)
	DeleteFarmer(id farm.AccountID)
	GetCompoundingMarker(id farm.AccountID) bool
	PutCompoundingMarker(id farm.AccountID)
	DeleteCompoundingMarker(id farm.AccountID)
}

// Store is the concrete Database implementation over any KV.
type Store struct {
	kv KV
}

// NewStore wraps kv as a record-level Database.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) GetFarm(id farm.AccountID) (*farm.Farm, bool) {
	raw, err := s.kv.Get(farmKey(id))
	if err != nil {
		return nil, false
	}
	var dto farmDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		panic(fmt.Sprintf("storage: corrupt farm record %s: %v", id, err))
	}
	return fromFarmDTO(dto), true
}

func (s *Store) PutFarm(f *farm.Farm) {
	raw, err := json.Marshal(toFarmDTO(f))
	if err != nil {
		panic(fmt.Sprintf("storage: encode farm %s: %v", f.ID, err))
	}
	if err := s.kv.Put(farmKey(f.ID), raw); err != nil {
		panic(fmt.Sprintf("storage: persist farm %s: %v", f.ID, err))
	}
}

func (s *Store) GetFarmer(id farm.AccountID) (*farmer.Farmer, bool) {
	raw, err := s.kv.Get(farmerKey(id))
	if err != nil || string(raw) == "null" {
		return nil, false
	}
	var dto farmerDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		panic(fmt.Sprintf("storage: corrupt farmer record %s: %v", id, err))
	}
	return fromFarmerDTO(dto), true
}

func (s *Store) PutFarmer(fr *farmer.Farmer) {
	raw, err := json.Marshal(toFarmerDTO(fr))
	if err != nil {
		panic(fmt.Sprintf("storage: encode farmer %s: %v", fr.ID, err))
	}
	if err := s.kv.Put(farmerKey(fr.ID), raw); err != nil {
		panic(fmt.Sprintf("storage: persist farmer %s: %v", fr.ID, err))
	}
}

func (s *Store) DeleteFarmer(id farm.AccountID) {
	// The underlying KV interface (grounded on the teacher's
	// storage.Database) exposes no Delete; a "null" tombstone value is
	// written instead, which GetFarmer above treats as absent.
	_ = s.kv.Put(farmerKey(id), []byte("null"))
}

func (s *Store) GetCompoundingMarker(id farm.AccountID) bool {
	raw, err := s.kv.Get(compoundKey(id))
	return err == nil && string(raw) == "1"
}

func (s *Store) PutCompoundingMarker(id farm.AccountID) {
	if err := s.kv.Put(compoundKey(id), []byte("1")); err != nil {
		panic(fmt.Sprintf("storage: persist compounding marker %s: %v", id, err))
	}
}

func (s *Store) DeleteCompoundingMarker(id farm.AccountID) {
	_ = s.kv.Put(compoundKey(id), []byte("0"))
}
