package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Settings holds all configuration for the validator
type Settings struct {
	// Core Identity
	ValidatorHotkey string
	Network         string

	// Coordination Service
	APIURL              string
	PollSeconds         int
	HTTPTimeout         time.Duration
	ScoresBlockInterval uint64
	IntakeMode          string // "validation" or "batch"
	AuthSecret          string

	// Ground Truth Source
	GroundTruthURL    string
	GroundTruthAPIKey string

	// Analyzer
	AnalyzerURL string

	// Retry Policy
	MaxRetryAttempts int
	RetryBaseDelay   time.Duration

	// Redis Configuration
	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string
	RedisEnabled  bool

	// Deduplication Configuration
	DedupEnabled        bool
	DedupLocalCacheSize int
	DedupTTL            time.Duration

	// Monitoring API
	APIHost    string
	APIPort    int
	APIEnabled bool

	// Debugging
	LogLevel  string
	DebugMode bool
}

var (
	// SettingsObj is the global settings instance
	SettingsObj *Settings
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	SettingsObj = &Settings{
		// Core Identity
		ValidatorHotkey: getEnv("VALIDATOR_HOTKEY", ""),
		Network:         getEnv("NETWORK", "mainnet"),

		// Coordination Service
		APIURL:              getEnv("MINER_API_URL", "http://localhost:8000"),
		PollSeconds:         getEnvAsInt("VALIDATION_POLL_SECONDS", 10),
		HTTPTimeout:         time.Duration(getEnvAsInt("BATCH_HTTP_TIMEOUT", 30)) * time.Second,
		ScoresBlockInterval: uint64(getEnvAsInt("SCORES_BLOCK_INTERVAL", 100)),
		IntakeMode:          getEnv("INTAKE_MODE", "validation"),
		AuthSecret:          getEnv("AUTH_SECRET", ""),

		// Ground Truth Source
		GroundTruthURL:    getEnv("GROUND_TRUTH_URL", ""),
		GroundTruthAPIKey: getEnv("GROUND_TRUTH_API_KEY", ""),

		// Analyzer
		AnalyzerURL: getEnv("ANALYZER_URL", "http://localhost:8600"),

		// Retry Policy
		MaxRetryAttempts: getEnvAsInt("MAX_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:   time.Duration(getEnvAsInt("RETRY_BASE_DELAY_SECONDS", 3)) * time.Second,

		// Redis Configuration - Read directly from env
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),

		// Deduplication Configuration
		DedupEnabled:        getBoolEnv("DEDUP_ENABLED", true),
		DedupLocalCacheSize: getEnvAsInt("DEDUP_LOCAL_CACHE_SIZE", 10000),
		DedupTTL:            time.Duration(getEnvAsInt("DEDUP_TTL_SECONDS", 7200)) * time.Second,

		// Monitoring API
		APIHost:    getEnv("API_HOST", "0.0.0.0"),
		APIPort:    getEnvAsInt("API_PORT", 8080),
		APIEnabled: getBoolEnv("API_ENABLED", true),

		// Debugging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DebugMode: getBoolEnv("DEBUG_MODE", false),
	}

	// Configure logging
	configureLogging()

	// Validate configuration
	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Log configuration summary
	logConfigSummary()

	return nil
}

// configureLogging sets up the logger based on configuration
func configureLogging() {
	switch strings.ToLower(SettingsObj.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	// Override with debug mode
	if SettingsObj.DebugMode {
		log.SetLevel(log.DebugLevel)
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

// validateConfig validates the loaded configuration
func validateConfig() error {
	if SettingsObj.ValidatorHotkey == "" {
		return fmt.Errorf("VALIDATOR_HOTKEY is required")
	}
	if SettingsObj.APIURL == "" {
		return fmt.Errorf("MINER_API_URL is required")
	}
	if SettingsObj.IntakeMode != "validation" && SettingsObj.IntakeMode != "batch" {
		return fmt.Errorf("INTAKE_MODE must be 'validation' or 'batch', got %q", SettingsObj.IntakeMode)
	}
	if SettingsObj.AnalyzerURL == "" {
		return fmt.Errorf("ANALYZER_URL is required")
	}
	if SettingsObj.IntakeMode == "batch" && SettingsObj.GroundTruthURL == "" {
		return fmt.Errorf("GROUND_TRUTH_URL required in batch intake mode")
	}
	if SettingsObj.AuthSecret == "" {
		log.Warn("AUTH_SECRET not set - requests to the coordination service will not verify")
	}
	if SettingsObj.DedupEnabled && !SettingsObj.RedisEnabled {
		log.Warn("Dedup enabled without Redis - duplicates survive restarts only in the local cache")
	}
	return nil
}

// logConfigSummary logs a summary of the configuration
func logConfigSummary() {
	log.Info("=== Configuration Loaded ===")
	log.Infof("Validator: %s (network %s)", SettingsObj.ValidatorHotkey, SettingsObj.Network)
	log.Infof("Coordination API: %s (mode %s, poll %ds, scores every %d blocks)",
		SettingsObj.APIURL, SettingsObj.IntakeMode, SettingsObj.PollSeconds, SettingsObj.ScoresBlockInterval)

	if SettingsObj.GroundTruthURL != "" {
		log.Infof("Ground truth source: %s", SettingsObj.GroundTruthURL)
	}
	log.Infof("Analyzer: %s", SettingsObj.AnalyzerURL)

	if SettingsObj.RedisEnabled {
		log.Infof("Redis: %s:%s (DB %d)", SettingsObj.RedisHost, SettingsObj.RedisPort, SettingsObj.RedisDB)
	}
	if SettingsObj.DedupEnabled {
		log.Infof("Deduplication: Enabled (TTL: %v, Cache: %d)", SettingsObj.DedupTTL, SettingsObj.DedupLocalCacheSize)
	}
	if SettingsObj.APIEnabled {
		log.Infof("Monitoring API: %s:%d", SettingsObj.APIHost, SettingsObj.APIPort)
	}

	log.Info("============================")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		value = strings.ToLower(value)
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
