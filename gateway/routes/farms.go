package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harvestlabs/farmengine/gateway/events"
	"github.com/harvestlabs/farmengine/internal/engine"
	"github.com/harvestlabs/farmengine/internal/farm"
	"github.com/harvestlabs/farmengine/observability/metrics"
)

type handlers struct {
	engine *engine.Engine
	events *events.Broker
}

type createFarmRequest struct {
	FarmID    string `json:"farm_id"`
	Admin     string `json:"admin"`
	StakeMint string `json:"stake_mint"`
}

func (h *handlers) createFarm(w http.ResponseWriter, r *http.Request) {
	var req createFarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	stakeVault, err := h.engine.CreateFarm(farm.AccountID(req.FarmID), farm.AccountID(req.Admin), farm.AccountID(req.StakeMint))
	if err != nil {
		metrics.Farm().IncEngineError("create_farm", err)
		writeError(w, err)
		return
	}
	metrics.Farm().ObserveFarmerAction("create_farm", req.FarmID)
	metrics.Farm().InitFarm(req.FarmID)
	writeJSON(w, http.StatusCreated, map[string]string{"stake_vault": string(stakeVault)})
}

func (h *handlers) getFarm(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	view, err := h.engine.InspectFarm(farmID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addHarvestRequest struct {
	Admin string `json:"admin"`
	Mint  string `json:"mint"`
}

func (h *handlers) addHarvest(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	var req addHarvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	vault, err := h.engine.AddHarvest(farmID, farm.AccountID(req.Admin), farm.AccountID(req.Mint))
	if err != nil {
		writeError(w, err)
		return
	}
	h.events.Publish(events.Event{Kind: events.KindHarvestScheduled, FarmID: string(farmID), Detail: "harvest added: " + req.Mint})
	writeJSON(w, http.StatusCreated, map[string]string{"vault": string(vault)})
}

func (h *handlers) removeHarvest(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	mint := farm.AccountID(chi.URLParam(r, "mint"))
	admin := farm.AccountID(r.URL.Query().Get("admin"))
	if err := h.engine.RemoveHarvest(farmID, admin, mint); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type newHarvestPeriodRequest struct {
	Admin       string `json:"admin"`
	AdminWallet string `json:"admin_wallet"`
	StartsAt    uint64 `json:"starts_at"`
	EndsAt      uint64 `json:"ends_at"`
	Tps         uint64 `json:"tokens_per_slot"`
}

func (h *handlers) newHarvestPeriod(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	mint := farm.AccountID(chi.URLParam(r, "mint"))
	var req newHarvestPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.NewHarvestPeriod(farmID, farm.AccountID(req.Admin), mint, farm.AccountID(req.AdminWallet), req.StartsAt, req.EndsAt, req.Tps); err != nil {
		writeError(w, err)
		return
	}
	h.events.Publish(events.Event{Kind: events.KindHarvestScheduled, FarmID: string(farmID), Slot: req.StartsAt, Detail: string(mint)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

type setMinSnapshotWindowRequest struct {
	Admin string `json:"admin"`
	Slots uint64 `json:"slots"`
}

func (h *handlers) setMinSnapshotWindow(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	var req setMinSnapshotWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.SetMinSnapshotWindow(farmID, farm.AccountID(req.Admin), req.Slots); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type setFarmOwnerRequest struct {
	CurrentAdmin string `json:"current_admin"`
	NewAdmin     string `json:"new_admin"`
}

func (h *handlers) setFarmOwner(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	var req setFarmOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.SetFarmOwner(farmID, farm.AccountID(req.CurrentAdmin), farm.AccountID(req.NewAdmin)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *handlers) takeSnapshot(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	if err := h.engine.TakeSnapshot(farmID); err != nil {
		metrics.Farm().IncEngineError("take_snapshot", err)
		writeError(w, err)
		return
	}
	metrics.Farm().IncSnapshotTaken(string(farmID))
	h.events.Publish(events.Event{Kind: events.KindSnapshotTaken, FarmID: string(farmID)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "taken"})
}

type whitelistCompoundingRequest struct {
	Admin        string `json:"admin"`
	TargetFarmID string `json:"target_farm_id"`
}

func (h *handlers) whitelistCompounding(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	var req whitelistCompoundingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.engine.WhitelistFarmForCompounding(farm.AccountID(req.Admin), farmID, farm.AccountID(req.TargetFarmID)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "whitelisted"})
}

func (h *handlers) dewhitelistCompounding(w http.ResponseWriter, r *http.Request) {
	farmID := farm.AccountID(chi.URLParam(r, "farmID"))
	targetFarmID := farm.AccountID(chi.URLParam(r, "targetFarmID"))
	admin := farm.AccountID(r.URL.Query().Get("admin"))
	if err := h.engine.DewhitelistFarmForCompounding(admin, farmID, targetFarmID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dewhitelisted"})
}
