// Package accrual implements the farmer accrual engine (spec §4.4,
// component C6): the closed-window sum over recorded snapshots plus the
// open-window tail, which together drive every claim/stake/unstake call.
package accrual

import (
	"math/big"

	"github.com/harvestlabs/farmengine/internal/errs"
	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/internal/farmer"
	"github.com/harvestlabs/farmengine/internal/fixedpoint"
	"github.com/harvestlabs/farmengine/internal/schedule"
	"github.com/harvestlabs/farmengine/internal/snapshot"
)

// window is one (start, end, totalStaked) slice of time bounded by two
// consecutive recorded snapshots, or by the newest snapshot and the
// current slot for the open tail.
type window struct {
	start, end uint64 // inclusive
	totalStake uint64
}

// reconcileVesting implements spec §4.4's vesting reconciliation, which
// precedes any accrual computation: once a snapshot has been taken after
// a farmer's VestedAt, the farmer's vested tokens are "captured" and
// become part of Staked.
func reconcileVesting(f *farmer.Farmer, tipSlot uint64) error {
	if f.Vested > 0 && tipSlot > f.VestedAt {
		sum, err := fixedpoint.Add(f.Staked, f.Vested)
		if err != nil {
			return err
		}
		f.Staked = sum
		f.Vested = 0
	}
	return nil
}

// collectSnapshots returns every initialised snapshot from oldest to
// newest (inclusive of the tip), per spec §4.2 Traversal.
func collectSnapshots(buf *snapshot.Buffer) []snapshot.Snapshot {
	var out []snapshot.Snapshot
	buf.Walk(func(_ int, s snapshot.Snapshot) bool {
		out = append(out, s)
		return true
	})
	return out
}

// termTokens computes floor(length * tps * farmerStake / totalStake)
// using a big.Int intermediate so the triple product never overflows and
// the single final division keeps the accumulated rounding error to at
// most one smallest unit per term (spec §4.1, §9 rounding direction: this
// computes a share paid TO the farmer, so it rounds down).
func termTokens(length, tps uint64, farmerStake, totalStake fixedpoint.Amount) (fixedpoint.Amount, error) {
	if totalStake == 0 || length == 0 || tps == 0 || farmerStake == 0 {
		return 0, nil
	}
	product := new(big.Int).SetUint64(length)
	product.Mul(product, new(big.Int).SetUint64(tps))
	product.Mul(product, new(big.Int).SetUint64(uint64(farmerStake)))
	product.Quo(product, new(big.Int).SetUint64(uint64(totalStake)))
	if !product.IsUint64() {
		return 0, errs.ErrArithmeticOverflow
	}
	return fixedpoint.Amount(product.Uint64()), nil
}

// accrueWindow sums termTokens over every tps-homogeneous sub-interval of
// [w.start, w.end] per the given schedule (spec §4.4: "a snapshot window
// may straddle a period boundary; the sum then splits into sub-intervals
// per period").
func accrueWindow(sched *schedule.Schedule, w window, farmerStake fixedpoint.Amount) (fixedpoint.Amount, error) {
	if w.end < w.start {
		return 0, nil
	}
	var total fixedpoint.Amount
	for _, iv := range sched.Intervals(w.start, w.end) {
		length := iv.To - iv.From + 1
		term, err := termTokens(length, iv.Tps, farmerStake, fixedpoint.Amount(w.totalStake))
		if err != nil {
			return 0, err
		}
		total, err = fixedpoint.Add(total, term)
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Result captures the per-mint accrual computed for one Accrue/Preview
// call, keyed by harvest mint.
type Result struct {
	Mint    farm.AccountID
	Accrued fixedpoint.Amount
}

// compute runs the full §4.4 algorithm for every harvest slot of f against
// farmer state, WITHOUT mutating either. untilSlot is the inclusive upper
// bound of the open window (min(currentSlot, cap) for
// update_eligible_harvest_until; currentSlot for the ordinary call).
func compute(fm *farm.Farm, fr *farmer.Farmer, untilSlot uint64) ([]Result, error) {
	snaps := collectSnapshots(fm.Snapshots)
	if len(snaps) == 0 {
		return nil, errs.ErrInvariantViolated
	}
	fu := fr.CalculateNextHarvestFrom
	farmerStake := fr.Staked

	var results []Result
	for i := range fm.Harvests {
		slot := fm.Harvests[i]
		if slot.Mint == farm.EmptyAccountID {
			continue
		}
		var accrued fixedpoint.Amount

		// Closed windows: every pair of consecutive recorded snapshots
		// whose end is after the farmer's checkpoint.
		for j := 0; j+1 < len(snaps); j++ {
			sJ, sJ1 := snaps[j], snaps[j+1]
			if sJ1.StartedAt <= fu {
				continue
			}
			start := sJ.StartedAt
			if fu > start {
				start = fu
			}
			end := sJ1.StartedAt - 1
			if end < start {
				continue
			}
			term, err := accrueWindow(slot.Schedule, window{start: start, end: end, totalStake: sJ.Staked}, farmerStake)
			if err != nil {
				return nil, err
			}
			accrued, err = fixedpoint.Add(accrued, term)
			if err != nil {
				return nil, err
			}
		}

		// Open window: the tail from the newest snapshot to untilSlot.
		tip := snaps[len(snaps)-1]
		start := tip.StartedAt
		if fu > start {
			start = fu
		}
		if untilSlot >= start {
			term, err := accrueWindow(slot.Schedule, window{start: start, end: untilSlot, totalStake: tip.Staked}, farmerStake)
			if err != nil {
				return nil, err
			}
			accrued, err = fixedpoint.Add(accrued, term)
			if err != nil {
				return nil, err
			}
		}

		results = append(results, Result{Mint: slot.Mint, Accrued: accrued})
	}
	return results, nil
}

// Accrue implements spec §4.4's full effect: it reconciles vesting,
// computes H_closed+H_open for every harvest mint, adds the result to the
// farmer's accrued balances, and advances CalculateNextHarvestFrom to
// currentSlot+1 (spec invariant 4: this never regresses, since currentSlot
// is monotone and CalculateNextHarvestFrom was <= currentSlot on entry by
// construction of the caller).
func Accrue(fm *farm.Farm, fr *farmer.Farmer, currentSlot uint64) error {
	return accrueUntil(fm, fr, currentSlot, currentSlot)
}

// AccrueUntil implements spec §4.4's update_eligible_harvest_until: it
// treats min(currentSlot, cap) as the end of the open window and advances
// CalculateNextHarvestFrom only that far. Idempotent for
// cap <= CalculateNextHarvestFrom-1 (no snapshots or periods are newly
// crossed, so every term's window is empty).
func AccrueUntil(fm *farm.Farm, fr *farmer.Farmer, currentSlot, untilCap uint64) error {
	until := currentSlot
	if untilCap < until {
		until = untilCap
	}
	return accrueUntil(fm, fr, currentSlot, until)
}

func accrueUntil(fm *farm.Farm, fr *farmer.Farmer, currentSlot, until uint64) error {
	if err := reconcileVesting(fr, fm.Snapshots.Latest().StartedAt); err != nil {
		return err
	}

	if until < fr.CalculateNextHarvestFrom {
		// Nothing new to accrue; still a no-op on CalculateNextHarvestFrom
		// to preserve invariant 4 (never regresses).
		return nil
	}

	results, err := compute(fm, fr, until)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := fr.Airdrop(r.Mint, r.Accrued); err != nil {
			return err
		}
	}
	fr.CalculateNextHarvestFrom = until + 1
	return nil
}

// Preview computes the same H_closed+H_open total accrual that Accrue
// would apply, for every harvest mint, without mutating farmer or farm
// state. Used by the read-only farmer inspection endpoint (SPEC_FULL.md
// §12) to show pending accrual between update_eligible_harvest calls.
func Preview(fm *farm.Farm, fr *farmer.Farmer, currentSlot uint64) ([]Result, error) {
	fork := *fr
	if err := reconcileVesting(&fork, fm.Snapshots.Latest().StartedAt); err != nil {
		return nil, err
	}
	if currentSlot < fork.CalculateNextHarvestFrom {
		return nil, nil
	}
	return compute(fm, &fork, currentSlot)
}
