// Package config loads the farmgatewayd daemon's TOML configuration,
// writing a default file on first run, mirroring the teacher's
// config.Load/createDefault split.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's complete runtime configuration.
type Config struct {
	ListenAddress    string `toml:"ListenAddress"`
	DataDir          string `toml:"DataDir"`
	Env              string `toml:"Env"`
	SnapshotCapacity int    `toml:"SnapshotCapacity"`
	// RateLimitPerSecond bounds the permissionless take_snapshot and
	// update_eligible_harvest endpoints per caller IP (SPEC_FULL.md §11).
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	JWTSigningKey      string  `toml:"JWTSigningKey"`
	OTLPEndpoint       string  `toml:"OTLPEndpoint"`
	// SlotIntervalMillis is the cadence at which the daemon's slot oracle
	// advances by one slot (SPEC_FULL.md §11, DESIGN.md). Zero falls back
	// to DefaultSlotIntervalMillis.
	SlotIntervalMillis int64 `toml:"SlotIntervalMillis"`
}

// DefaultSlotIntervalMillis is the default slot cadence: 400ms, matching
// the slot times of the production proof-of-stake networks this engine's
// slot model is drawn from (spec §6: "slots are a monotone logical clock").
const DefaultSlotIntervalMillis = 400

// Load reads the configuration at path, writing a default file if none
// exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if cfg.SnapshotCapacity <= 0 {
		cfg.SnapshotCapacity = 1000
	}
	if cfg.SlotIntervalMillis <= 0 {
		cfg.SlotIntervalMillis = DefaultSlotIntervalMillis
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:      ":8080",
		DataDir:            "./farmengine-data",
		Env:                "development",
		SnapshotCapacity:   1000,
		RateLimitPerSecond: 5,
		RateLimitBurst:     10,
		SlotIntervalMillis: DefaultSlotIntervalMillis,
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("config: create default %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, fmt.Errorf("config: write default %s: %w", path, err)
	}
	return cfg, nil
}
