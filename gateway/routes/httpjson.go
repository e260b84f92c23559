package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harvestlabs/farmengine/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps an engine sentinel error to the HTTP status a client
// should see: admin/authority mismatches and missing whitelist markers are
// 403, missing records are 404, duplicates are 409, invalid input is 400,
// insufficient vault balance is 422, everything else is 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrFarmAdminMismatch),
		errors.Is(err, errs.ErrFarmerAuthorityMismatch),
		errors.Is(err, errs.ErrNotWhitelisted):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrUnknownHarvestMint),
		errors.Is(err, errs.ErrFarmNotFound),
		errors.Is(err, errs.ErrFarmerNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrFarmAlreadyExists),
		errors.Is(err, errs.ErrFarmerAlreadyExists),
		errors.Is(err, errs.ErrAlreadyWhitelisted):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidAccountInput),
		errors.Is(err, errs.ErrAmountMustBePositive),
		errors.Is(err, errs.ErrInvalidLpTokenAmount),
		errors.Is(err, errs.ErrInsufficientSlotTime),
		errors.Is(err, errs.ErrHarvestMintAlreadyPresent),
		errors.Is(err, errs.ErrHarvestMintsFull),
		errors.Is(err, errs.ErrHarvestVaultNotEmpty),
		errors.Is(err, errs.ErrFarmerHasUnclaimedHarvest),
		errors.Is(err, errs.ErrFarmerStillHasStakedTokens),
		errors.Is(err, errs.ErrPeriodMustStartAtOrAfterCurrentSlot),
		errors.Is(err, errs.ErrPeriodMustBeAtLeastOneSlot),
		errors.Is(err, errs.ErrCannotOverwriteOpenPeriod):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
