package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds process-level knobs for a Decision Gate deployment. None of
// this is scenario or schema content — that is authored data living in the
// registry, not environment configuration.
type Config struct {
	Port             string
	LogLevel         string
	DatabaseURL      string
	RunLockURL       string
	RunpackStoreURL  string
	OTLPEndpoint     string
	MaxCanonicalBytes int64
	DevPermissive    bool
	StepTimeout      time.Duration
}

// Load reads configuration from the environment, applying the defaults a
// local single-binary deployment needs. Transports own CLI flag parsing and
// config-file parsing; Load is the one constructor the core exposes.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://decisiongate@localhost:5432/decisiongate?sslmode=disable"
	}

	runLockURL := os.Getenv("RUN_LOCK_URL")
	if runLockURL == "" {
		runLockURL = "redis://localhost:6379/0"
	}

	runpackStoreURL := os.Getenv("RUNPACK_STORE_URL")
	if runpackStoreURL == "" {
		runpackStoreURL = "file://./runpacks"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")

	maxBytes := int64(1 << 20)
	if v := os.Getenv("MAX_CANONICAL_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			maxBytes = parsed
		}
	}

	stepTimeout := 30 * time.Second
	if v := os.Getenv("STEP_TIMEOUT_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			stepTimeout = time.Duration(parsed) * time.Millisecond
		}
	}

	devPermissive := os.Getenv("DEV_PERMISSIVE") == "true"

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		DatabaseURL:       dbURL,
		RunLockURL:        runLockURL,
		RunpackStoreURL:   runpackStoreURL,
		OTLPEndpoint:      otlpEndpoint,
		MaxCanonicalBytes: maxBytes,
		DevPermissive:     devPermissive,
		StepTimeout:       stepTimeout,
	}
}
