package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Backend configuration
	BackendURL     string
	BackendTimeout time.Duration

	// Token configuration
	USDCMintAddress string

	// Solana configuration
	SolanaRPCURL string

	// Wallet configuration
	WalletKeypairPath string

	// OAuth configuration (social linking)
	TwitterClientID  string
	OAuthRedirectURL string

	// Storage configuration (optional; in-memory when unset)
	DatabaseURL string
	RedisAddr   string

	// NATS configuration (optional; publishing disabled when unset)
	NATSURL string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables, applying defaults
// where they exist. A .env file in the working directory is loaded first
// when present; real environment variables take precedence over it.
// Load does not check required fields — commands that need them call
// Validate (or use MustLoad), so read-only commands can run with a
// partial configuration.
func Load() (*Config, error) {
	// Ignore a missing .env file; it is a development convenience.
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	cfg.BackendURL = os.Getenv("BACKEND_URL")
	cfg.USDCMintAddress = os.Getenv("USDC_MINT_ADDRESS")

	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", "https://api.devnet.solana.com")

	cfg.WalletKeypairPath = os.Getenv("WALLET_KEYPAIR_PATH")

	cfg.TwitterClientID = os.Getenv("TWITTER_CLIENT_ID")
	cfg.OAuthRedirectURL = getEnvOrDefault("OAUTH_REDIRECT_URL", "handlepay://oauthredirect")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.NATSURL = os.Getenv("NATS_URL")

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "handlepay-recording")

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	timeout, err := parseDuration("BACKEND_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.BackendTimeout = timeout
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration loading failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad loads and validates, panicking on either failure. Useful for
// long-running process initialization where misconfiguration should halt
// startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}
	return cfg
}

// Validate checks that every required field is set.
func (c *Config) Validate() error {
	var errs []error

	if c.BackendURL == "" {
		errs = append(errs, fmt.Errorf("BackendURL is required"))
	}

	if c.USDCMintAddress == "" {
		errs = append(errs, fmt.Errorf("USDCMintAddress is required"))
	}

	if c.BackendTimeout < time.Second {
		errs = append(errs, fmt.Errorf("BackendTimeout must be at least 1 second"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}
