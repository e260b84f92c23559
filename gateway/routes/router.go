// Package routes exposes the farming engine's call surface (spec §6) as
// JSON endpoints over a github.com/go-chi/chi/v5 router, modeled on the
// teacher's gateway/routes package shape (a Config struct assembling
// middleware around a mounted router).
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harvestlabs/farmengine/gateway/events"
	"github.com/harvestlabs/farmengine/gateway/middleware"
	"github.com/harvestlabs/farmengine/internal/engine"
	"github.com/harvestlabs/farmengine/observability/metrics"
)

// Config assembles the router's dependencies.
type Config struct {
	Engine        *engine.Engine
	Events        *events.Broker
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	CORS          middleware.CORSConfig
}

// New builds the gateway's HTTP handler.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.RequestID)

	h := &handlers{engine: cfg.Engine, events: cfg.Events}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metricsHandler())

	r.Route("/farms", func(fr chi.Router) {
		fr.With(middleware.Tracing("create_farm"), cfg.Authenticator.Middleware).Post("/", h.createFarm)
		fr.With(middleware.Tracing("get_farm")).Get("/{farmID}", h.getFarm)
		fr.With(middleware.Tracing("add_harvest"), cfg.Authenticator.Middleware).Post("/{farmID}/harvests", h.addHarvest)
		fr.With(middleware.Tracing("remove_harvest"), cfg.Authenticator.Middleware).Delete("/{farmID}/harvests/{mint}", h.removeHarvest)
		fr.With(middleware.Tracing("new_harvest_period"), cfg.Authenticator.Middleware).Post("/{farmID}/harvests/{mint}/periods", h.newHarvestPeriod)
		fr.With(middleware.Tracing("set_min_snapshot_window"), cfg.Authenticator.Middleware).Post("/{farmID}/min-snapshot-window", h.setMinSnapshotWindow)
		fr.With(middleware.Tracing("set_farm_owner"), cfg.Authenticator.Middleware).Post("/{farmID}/owner", h.setFarmOwner)
		fr.With(middleware.Tracing("take_snapshot"), cfg.RateLimiter.Middleware).Post("/{farmID}/snapshot", h.takeSnapshot)
		fr.With(middleware.Tracing("whitelist_compounding"), cfg.Authenticator.Middleware).Post("/{farmID}/compounding-whitelist", h.whitelistCompounding)
		fr.With(middleware.Tracing("dewhitelist_compounding"), cfg.Authenticator.Middleware).Delete("/{farmID}/compounding-whitelist/{targetFarmID}", h.dewhitelistCompounding)
	})

	r.Route("/farmers", func(fr chi.Router) {
		fr.With(middleware.Tracing("create_farmer")).Post("/", h.createFarmer)
		fr.With(middleware.Tracing("get_farmer")).Get("/{farmerID}", h.getFarmer)
		fr.With(middleware.Tracing("start_farming")).Post("/{farmerID}/start", h.startFarming)
		fr.With(middleware.Tracing("stop_farming")).Post("/{farmerID}/stop", h.stopFarming)
		fr.With(middleware.Tracing("update_eligible_harvest"), cfg.RateLimiter.Middleware).Post("/{farmerID}/update-eligible-harvest", h.updateEligibleHarvest)
		fr.With(middleware.Tracing("claim_eligible_harvest")).Post("/{farmerID}/claim", h.claimEligibleHarvest)
		fr.With(middleware.Tracing("close_farmer")).Post("/{farmerID}/close", h.closeFarmer)
		fr.With(middleware.Tracing("airdrop"), cfg.Authenticator.Middleware).Post("/{farmerID}/airdrop", h.airdrop)
		fr.With(middleware.Tracing("compound_same_farm")).Post("/{farmerID}/compound", h.compoundSameFarm)
		fr.With(middleware.Tracing("compound_across_farms")).Post("/{farmerID}/compound-across", h.compoundAcrossFarms)
	})

	r.Get("/stream", h.stream)

	return r
}

func metricsHandler() http.Handler {
	return metrics.Handler()
}
