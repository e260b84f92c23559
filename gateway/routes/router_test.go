package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harvestlabs/farmengine/gateway/events"
	"github.com/harvestlabs/farmengine/gateway/middleware"
	"github.com/harvestlabs/farmengine/internal/engine"
	"github.com/harvestlabs/farmengine/internal/ledger"
	"github.com/harvestlabs/farmengine/internal/storage"
)

func newTestRouter() http.Handler {
	store := storage.NewStore(storage.NewMemKV())
	vault := ledger.NewMemVault()
	clock := ledger.NewManualSlotOracle()
	eng := engine.New(store, vault, clock, 8)

	return New(Config{
		Engine:        eng,
		Events:        events.NewBroker(),
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{Enabled: false}, nil),
		RateLimiter:   middleware.NewRateLimiter(100, 100, nil),
	})
}

func TestHealthzOK(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestCreateFarmAndFarmerEndToEnd(t *testing.T) {
	router := newTestRouter()

	farmReq := map[string]string{"farm_id": "farm1", "admin": "admin1", "stake_mint": "mintA"}
	body, _ := json.Marshal(farmReq)
	req := httptest.NewRequest(http.MethodPost, "/farms/", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating farm, got %d: %s", res.Code, res.Body.String())
	}

	farmerReq := map[string]string{"farm_id": "farm1", "authority": "auth1"}
	body, _ = json.Marshal(farmerReq)
	req = httptest.NewRequest(http.MethodPost, "/farmers/", bytes.NewReader(body))
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating farmer, got %d: %s", res.Code, res.Body.String())
	}

	var out map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["farmer_id"] == "" {
		t.Fatalf("expected non-empty farmer_id in response")
	}
}

func TestCreateFarmRejectsDuplicate(t *testing.T) {
	router := newTestRouter()
	farmReq := map[string]string{"farm_id": "farm1", "admin": "admin1", "stake_mint": "mintA"}
	body, _ := json.Marshal(farmReq)

	req := httptest.NewRequest(http.MethodPost, "/farms/", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected first create to succeed, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/farms/", bytes.NewReader(body))
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate farm, got %d", res.Code)
	}
}

func TestGetFarmReturnsInspectionView(t *testing.T) {
	router := newTestRouter()
	farmReq := map[string]string{"farm_id": "farm1", "admin": "admin1", "stake_mint": "mintA"}
	body, _ := json.Marshal(farmReq)
	req := httptest.NewRequest(http.MethodPost, "/farms/", bytes.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating farm, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/farms/farm1", nil)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 inspecting farm, got %d: %s", res.Code, res.Body.String())
	}

	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["Admin"] != "admin1" {
		t.Fatalf("expected admin1 in inspection view, got %+v", out)
	}
}

func TestGetFarmUnknownNotFound(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/farms/missing", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestTakeSnapshotUnknownFarmNotFound(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodPost, "/farms/missing/snapshot", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown farm, got %d", res.Code)
	}
}
