// Package config loads the optimizer's runtime configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob the service exposes: bind address,
// default search tunables, gate/session timeouts, rate limiting, and
// the balanced-metric weights.
type Config struct {
	BindHost string
	BindPort int

	MaxIterations int
	MaxWallTime   time.Duration
	Patience      int
	MinRelImprove float64

	SessionTTL      time.Duration
	SweepInterval   time.Duration
	GateTimeout     time.Duration
	ProgressQueueSz int

	ProgressEvery    int
	ProgressInterval time.Duration

	BalancedDPSWeight float64
	BalancedEHPWeight float64

	LogLevel  string
	LogFormat string

	MetricsEnabled bool

	MaxBuildCodeBytes int

	TreeDataPath string

	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Default returns the service's documented default configuration.
func Default() Config {
	return Config{
		BindHost: "127.0.0.1",
		BindPort: 5000,

		MaxIterations: 600,
		MaxWallTime:   300 * time.Second,
		Patience:      3,
		MinRelImprove: 0.001,

		SessionTTL:      24 * time.Hour,
		SweepInterval:   time.Hour,
		GateTimeout:     time.Second,
		ProgressQueueSz: 100,

		ProgressEvery:    100,
		ProgressInterval: 5 * time.Second,

		BalancedDPSWeight: 0.6,
		BalancedEHPWeight: 0.4,

		LogLevel:  "info",
		LogFormat: "json",

		MetricsEnabled: false,

		MaxBuildCodeBytes: 100 * 1024,

		TreeDataPath: "",

		RateLimitPerSecond: 2,
		RateLimitBurst:     5,
	}
}

// Load loads an optional config/<env>.env file (env from OPTIMIZER_ENV,
// default "development") and then overlays environment variables onto
// the documented defaults. A missing env file is not an error.
func Load() (Config, error) {
	cfg := Default()

	env := strings.TrimSpace(os.Getenv("OPTIMIZER_ENV"))
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("load %s: %w", envFile, err)
	}

	if v := strings.TrimSpace(os.Getenv("BIND_HOST")); v != "" {
		cfg.BindHost = v
	}
	if v, ok := envInt("BIND_PORT"); ok {
		cfg.BindPort = v
	}
	if v, ok := envInt("MAX_ITERATIONS"); ok {
		cfg.MaxIterations = v
	}
	if v, ok := envDuration("MAX_WALL_TIME"); ok {
		cfg.MaxWallTime = v
	}
	if v, ok := envInt("PATIENCE"); ok {
		cfg.Patience = v
	}
	if v, ok := envFloat("MIN_RELATIVE_IMPROVEMENT"); ok {
		cfg.MinRelImprove = v
	}
	if v, ok := envDuration("SESSION_TTL"); ok {
		cfg.SessionTTL = v
	}
	if v, ok := envDuration("SWEEP_INTERVAL"); ok {
		cfg.SweepInterval = v
	}
	if v, ok := envInt("PROGRESS_EVERY"); ok {
		cfg.ProgressEvery = v
	}
	if v, ok := envDuration("PROGRESS_INTERVAL"); ok {
		cfg.ProgressInterval = v
	}
	if v, ok := envFloat("BALANCED_DPS_WEIGHT"); ok {
		cfg.BalancedDPSWeight = v
	}
	if v, ok := envFloat("BALANCED_EHP_WEIGHT"); ok {
		cfg.BalancedEHPWeight = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("METRICS_ENABLED")); v != "" {
		cfg.MetricsEnabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := strings.TrimSpace(os.Getenv("TREE_DATA_PATH")); v != "" {
		cfg.TreeDataPath = v
	}
	if v, ok := envFloat("RATE_LIMIT_PER_SECOND"); ok {
		cfg.RateLimitPerSecond = v
	}
	if v, ok := envInt("RATE_LIMIT_BURST"); ok {
		cfg.RateLimitBurst = v
	}

	return cfg, nil
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(key string) (float64, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
