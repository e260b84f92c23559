// Command farmgatewayd runs the farming engine's HTTP gateway: a chi
// router over internal/engine backed by a LevelDB-persisted storage.Store
// and a LevelDB-persisted ledger.LevelVault, wired with structured
// logging, Prometheus metrics, and OTLP tracing, the way the teacher's
// service daemons (services/payoutd) wire their shell. A background
// goroutine ticks the engine's slot oracle forward on a configurable
// cadence, since this deployment has no external chain supplying slots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/harvestlabs/farmengine/config"
	"github.com/harvestlabs/farmengine/gateway"
	"github.com/harvestlabs/farmengine/internal/engine"
	"github.com/harvestlabs/farmengine/internal/ledger"
	"github.com/harvestlabs/farmengine/internal/storage"
	"github.com/harvestlabs/farmengine/observability/logging"
	telemetry "github.com/harvestlabs/farmengine/observability/otel"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "farmgatewayd.toml", "path to farmgatewayd configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Setup("farmgatewayd", cfg.Env)

	otlpEndpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	if otlpEndpoint == "" {
		otlpEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "farmgatewayd",
		Environment: cfg.Env,
		Endpoint:    otlpEndpoint,
		Insecure:    true,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	kv, err := storage.NewLevelKV(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
	}
	defer kv.Close()
	store := storage.NewStore(kv)

	vaultKV, err := storage.NewLevelKV(filepath.Join(cfg.DataDir, "vault"))
	if err != nil {
		return fmt.Errorf("open vault data dir %s: %w", cfg.DataDir, err)
	}
	defer vaultKV.Close()
	vault := ledger.NewLevelVault(vaultKV)

	clock := ledger.NewManualSlotOracle()
	eng := engine.New(store, vault, clock, cfg.SnapshotCapacity)

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slotInterval := time.Duration(cfg.SlotIntervalMillis) * time.Millisecond
	go clock.Run(stopCtx, slotInterval)

	handler, _ := gateway.New(gateway.Options{
		Engine:             eng,
		JWTSigningKey:      cfg.JWTSigningKey,
		AuthEnabled:        cfg.JWTSigningKey != "",
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		Logger:             log.Default(),
	})

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("farmgatewayd listening on %s", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
