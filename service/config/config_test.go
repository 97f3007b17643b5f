package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	os.Setenv("BACKEND_URL", "http://localhost:3000")
	os.Setenv("USDC_MINT_ADDRESS", "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "http://localhost:3000", cfg.BackendURL)
	assert.Equal(t, "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr", cfg.USDCMintAddress)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.SolanaRPCURL) // Default
	assert.Equal(t, "handlepay://oauthredirect", cfg.OAuthRedirectURL) // Default
	assert.Equal(t, "info", cfg.LogLevel)                              // Default
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout)
	assert.Equal(t, "handlepay-recording", cfg.TemporalTaskQueue)
}

func TestLoad_MissingRequiredFieldsStillLoads(t *testing.T) {
	defer cleanupEnv()

	// Load tolerates a partial configuration so read-only commands can
	// run; Validate is where required fields are enforced.
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.BackendURL)
	assert.Empty(t, cfg.USDCMintAddress)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.SolanaRPCURL)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BackendURL is required")
	assert.Contains(t, err.Error(), "USDCMintAddress is required")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	os.Setenv("BACKEND_URL", "http://localhost:3000")
	os.Setenv("USDC_MINT_ADDRESS", "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr")
	os.Setenv("BACKEND_TIMEOUT", "not-a-duration")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		BackendURL:        "http://localhost:3000",
		USDCMintAddress:   "mint",
		BackendTimeout:    30 * time.Second,
		TemporalHost:      "localhost:7233",
		TemporalNamespace: "default",
		TemporalTaskQueue: "handlepay-recording",
	}
	require.NoError(t, cfg.Validate())

	cfg.USDCMintAddress = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USDCMintAddress is required")
}

func cleanupEnv() {
	for _, key := range []string{
		"BACKEND_URL",
		"USDC_MINT_ADDRESS",
		"SOLANA_RPC_URL",
		"BACKEND_TIMEOUT",
		"WALLET_KEYPAIR_PATH",
		"TWITTER_CLIENT_ID",
		"OAUTH_REDIRECT_URL",
		"DATABASE_URL",
		"REDIS_ADDR",
		"NATS_URL",
		"TEMPORAL_HOST",
		"TEMPORAL_NAMESPACE",
		"TEMPORAL_TASK_QUEUE",
		"LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}
}
