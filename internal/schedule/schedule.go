// Package schedule implements a harvest's ordered, non-overlapping period
// queue (spec §3/§4.3, component C3): the tokens-per-slot emission rate
// active over time for one harvest mint.
package schedule

import (
	"sort"

	"github.com/harvestlabs/farmengine/internal/errs"
)

// MaxPeriods is Ψ... no — P_MAX, the compile-time cap on periods retained
// per harvest (spec §3 names the source's value as 10).
const MaxPeriods = 10

// Period is one (starts_at, ends_at, tps) emission window (spec §3,
// HarvestPeriod). Both bounds are inclusive.
type Period struct {
	StartsAt uint64
	EndsAt   uint64
	Tps      uint64
}

// TotalTokens returns the tokens reserved by this period:
// (ends_at - starts_at + 1) * tps.
func (p Period) TotalTokens() uint64 {
	return (p.EndsAt - p.StartsAt + 1) * p.Tps
}

// Contains reports whether slot lies within [StartsAt, EndsAt].
func (p Period) Contains(slot uint64) bool {
	return slot >= p.StartsAt && slot <= p.EndsAt
}

// Schedule is a harvest's periods kept sorted newest-first, capacity
// MaxPeriods (spec §3: "new additions shift older entries right and drop
// the oldest when full").
type Schedule struct {
	Periods []Period // index 0 = newest; len <= MaxPeriods
}

// NewSchedule returns an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{Periods: make([]Period, 0, MaxPeriods)}
}

// openPeriod returns the period (if any) whose window contains now, along
// with its index in s.Periods.
func (s *Schedule) openPeriod(now uint64) (Period, int, bool) {
	for i, p := range s.Periods {
		if p.Contains(now) {
			return p, i, true
		}
	}
	return Period{}, -1, false
}

// scheduledNotYetStarted returns the index of an existing period with the
// same StartsAt as candidate's, provided that period has not started yet
// (StartsAt > now) — the "overwrite" case spec §4.3 allows.
func (s *Schedule) scheduledNotYetStarted(startsAt, now uint64) int {
	if startsAt <= now {
		return -1
	}
	for i, p := range s.Periods {
		if p.StartsAt == startsAt && p.StartsAt > now {
			return i
		}
	}
	return -1
}

// Schedule proposes a new period (spec §4.3 "schedule(p_new)"). A
// StartsAt earlier than now is rejected, so with now==0 any StartsAt is
// accepted. StartsAt==0 gets no special meaning here: the caller
// (internal/engine.NewHarvestPeriod) substitutes the current slot for it
// before calling Schedule. delta is the net
// number of tokens to reserve: positive means deposit delta into the
// harvest vault, negative means return -delta from it (spec §4.5
// new_harvest_period "adds if new total reservation > current vault
// balance; returns delta otherwise").
func (s *Schedule) Schedule(now uint64, p Period) (delta int64, err error) {
	if p.StartsAt < now {
		return 0, errs.ErrPeriodMustStartAtOrAfterCurrentSlot
	}
	if p.EndsAt < p.StartsAt {
		return 0, errs.ErrPeriodMustBeAtLeastOneSlot
	}

	if overwriteIdx := s.scheduledNotYetStarted(p.StartsAt, now); overwriteIdx >= 0 {
		old := s.Periods[overwriteIdx]
		delta = int64(p.TotalTokens()) - int64(old.TotalTokens())
		s.Periods[overwriteIdx] = p
		return delta, nil
	}

	if open, _, ok := s.openPeriod(now); ok {
		if p.StartsAt <= open.EndsAt {
			return 0, errs.ErrCannotOverwriteOpenPeriod
		}
	}

	s.Periods = append([]Period{p}, s.Periods...)
	if len(s.Periods) > MaxPeriods {
		s.Periods = s.Periods[:MaxPeriods]
	}
	return int64(p.TotalTokens()), nil
}

// TpsAt returns the tps of the period whose window contains slot, or zero
// if none (spec §4.3, and the Open Question in §9 preserving "zero
// outside any period"). Ties at an abutting boundary belong to the
// earlier period (spec §4.3 tie-break).
func (s *Schedule) TpsAt(slot uint64) uint64 {
	for _, p := range s.Periods {
		if p.Contains(slot) {
			return p.Tps
		}
	}
	return 0
}

// Intervals returns the tps-homogeneous sub-intervals of [from, to]
// (inclusive) by splitting at period boundaries, used by the accrual
// engine to compute the piecewise sum rho-tilde over a snapshot window
// that straddles a period boundary (spec §4.4).
type Interval struct {
	From uint64
	To   uint64
	Tps  uint64
}

func (s *Schedule) Intervals(from, to uint64) []Interval {
	if to < from {
		return nil
	}
	type clipped struct {
		from, to, tps uint64
	}
	var overlapping []clipped
	for _, p := range s.Periods {
		if p.EndsAt < from || p.StartsAt > to {
			continue
		}
		lo := p.StartsAt
		if lo < from {
			lo = from
		}
		hi := p.EndsAt
		if hi > to {
			hi = to
		}
		overlapping = append(overlapping, clipped{lo, hi, p.Tps})
	}
	sort.Slice(overlapping, func(i, j int) bool { return overlapping[i].from < overlapping[j].from })

	var out []Interval
	cur := from
	for _, c := range overlapping {
		if c.from > cur {
			out = append(out, Interval{From: cur, To: c.from - 1, Tps: 0})
		}
		out = append(out, Interval{From: c.from, To: c.to, Tps: c.tps})
		cur = c.to + 1
	}
	if cur <= to {
		out = append(out, Interval{From: cur, To: to, Tps: 0})
	}
	return out
}
