// Package errs collects the sentinel errors raised across the farming
// engine, grouped by the record or component that raises them rather than
// centralized in a single numeric error-code table.
package errs

import "errors"

// Arithmetic (internal/fixedpoint).
var (
	ErrArithmeticOverflow = errors.New("farm: arithmetic overflow")
	ErrInvariantViolated  = errors.New("farm: invariant violated")
)

// Farm / admin (internal/farm).
var (
	ErrFarmAdminMismatch      = errors.New("farm: admin signer mismatch")
	ErrFarmAlreadyExists      = errors.New("farm: record already exists")
	ErrFarmNotFound           = errors.New("farm: record not found")
	ErrUnknownHarvestMint     = errors.New("farm: unknown harvest mint")
	ErrHarvestMintAlreadyPresent = errors.New("farm: harvest mint already present")
	ErrHarvestMintsFull       = errors.New("farm: harvest slots full")
	ErrHarvestVaultNotEmpty   = errors.New("farm: harvest vault not empty")
	ErrInvalidAccountInput    = errors.New("farm: invalid account input")
	ErrInsufficientSlotTime   = errors.New("farm: insufficient slot time since last snapshot")
	ErrInvalidLpTokenAmount   = errors.New("farm: invalid lp token amount")
	ErrAmountMustBePositive   = errors.New("farm: amount must be positive")
	ErrNotWhitelisted         = errors.New("farm: compounding pair not whitelisted")
	ErrAlreadyWhitelisted     = errors.New("farm: compounding pair already whitelisted")
)

// Ledger (internal/ledger).
var (
	ErrInsufficientBalance = errors.New("ledger: insufficient vault balance")
)

// Harvest schedule (internal/schedule).
var (
	ErrPeriodMustStartAtOrAfterCurrentSlot = errors.New("schedule: period must start at or after the current slot")
	ErrPeriodMustBeAtLeastOneSlot          = errors.New("schedule: period must span at least one slot")
	ErrCannotOverwriteOpenPeriod           = errors.New("schedule: cannot overwrite the open period")
)

// Farmer (internal/farmer).
var (
	ErrFarmerHasUnclaimedHarvest  = errors.New("farmer: unclaimed harvest balance remains")
	ErrFarmerStillHasStakedTokens = errors.New("farmer: staked or vested balance remains")
	ErrFarmerAuthorityMismatch    = errors.New("farmer: authority mismatch")
	ErrFarmerAlreadyExists        = errors.New("farmer: record already exists")
	ErrFarmerNotFound             = errors.New("farmer: record not found")
)
