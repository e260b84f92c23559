package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harvestlabs/farmengine/gateway/events"
	"github.com/harvestlabs/farmengine/internal/engine"
	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/internal/fixedpoint"
	"github.com/harvestlabs/farmengine/observability/metrics"
)

type createFarmerRequest struct {
	FarmID    string `json:"farm_id"`
	Authority string `json:"authority"`
}

func (h *handlers) createFarmer(w http.ResponseWriter, r *http.Request) {
	var req createFarmerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	id, err := h.engine.CreateFarmer(farm.AccountID(req.FarmID), farm.AccountID(req.Authority))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"farmer_id": string(id)})
}

func (h *handlers) getFarmer(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	preview, err := h.engine.PreviewAccrual(farmerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"farmer_id": string(farmerID), "pending_accrual": preview})
}

type startFarmingRequest struct {
	StakeWallet string `json:"stake_wallet"`
	Amount      uint64 `json:"amount"`
}

func (h *handlers) startFarming(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	var req startFarmingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.StartFarming(farmerID, farm.AccountID(req.StakeWallet), fixedpoint.Amount(req.Amount)); err != nil {
		writeError(w, err)
		return
	}
	h.events.Publish(events.Event{Kind: events.KindFarmerStarted, FarmerID: string(farmerID)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "farming"})
}

type stopFarmingRequest struct {
	Authority   string `json:"authority"`
	StakeWallet string `json:"stake_wallet"`
	MaxAmount   uint64 `json:"max_amount"`
}

func (h *handlers) stopFarming(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	var req stopFarmingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.StopFarming(farmerID, farm.AccountID(req.Authority), farm.AccountID(req.StakeWallet), fixedpoint.Amount(req.MaxAmount)); err != nil {
		writeError(w, err)
		return
	}
	h.events.Publish(events.Event{Kind: events.KindFarmerStopped, FarmerID: string(farmerID)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *handlers) updateEligibleHarvest(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	if err := h.engine.UpdateEligibleHarvest(farmerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type claimRequest struct {
	Authority string      `json:"authority"`
	Pairs     []claimPair `json:"pairs"`
}

type claimPair struct {
	Vault  string `json:"vault"`
	Wallet string `json:"wallet"`
}

func (h *handlers) claimEligibleHarvest(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	pairs := make([]engine.ClaimPair, 0, len(req.Pairs))
	for _, p := range req.Pairs {
		pairs = append(pairs, engine.ClaimPair{Vault: farm.AccountID(p.Vault), Wallet: farm.AccountID(p.Wallet)})
	}
	if err := h.engine.ClaimEligibleHarvest(farmerID, farm.AccountID(req.Authority), pairs); err != nil {
		metrics.Farm().IncEngineError("claim_eligible_harvest", err)
		writeError(w, err)
		return
	}
	h.events.Publish(events.Event{Kind: events.KindClaimSettled, FarmerID: string(farmerID)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
}

func (h *handlers) closeFarmer(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	authority := farm.AccountID(r.URL.Query().Get("authority"))
	if err := h.engine.CloseFarmer(farmerID, authority); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type airdropRequest struct {
	CallerWallet string `json:"caller_wallet"`
	Mint         string `json:"mint"`
	Amount       uint64 `json:"amount"`
}

func (h *handlers) airdrop(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	var req airdropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.Airdrop(farmerID, farm.AccountID(req.CallerWallet), farm.AccountID(req.Mint), fixedpoint.Amount(req.Amount)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "airdropped"})
}

type compoundSameFarmRequest struct {
	Authority   string `json:"authority"`
	HarvestMint string `json:"harvest_mint"`
}

func (h *handlers) compoundSameFarm(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	var req compoundSameFarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.CompoundSameFarm(farmerID, farm.AccountID(req.Authority), farm.AccountID(req.HarvestMint)); err != nil {
		writeError(w, err)
		return
	}
	metrics.Farm().IncCompoundAction("same_farm")
	writeJSON(w, http.StatusOK, map[string]string{"status": "compounded"})
}

type compoundAcrossFarmsRequest struct {
	TargetFarmerID string `json:"target_farmer_id"`
	Authority      string `json:"authority"`
	HarvestMint    string `json:"harvest_mint"`
}

func (h *handlers) compoundAcrossFarms(w http.ResponseWriter, r *http.Request) {
	farmerID := farm.AccountID(chi.URLParam(r, "farmerID"))
	var req compoundAcrossFarmsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.CompoundAcrossFarms(farmerID, farm.AccountID(req.TargetFarmerID), farm.AccountID(req.Authority), farm.AccountID(req.HarvestMint)); err != nil {
		writeError(w, err)
		return
	}
	metrics.Farm().IncCompoundAction("across_farms")
	writeJSON(w, http.StatusOK, map[string]string{"status": "compounded"})
}
