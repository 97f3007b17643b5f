package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/cypherpunk-labs/handlepay/service/config"
)

func TestNewApp_FlagDefaultsComeFromConfig(t *testing.T) {
	os.Setenv("BACKEND_URL", "http://backend.test")
	os.Setenv("USDC_MINT_ADDRESS", "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr")
	os.Setenv("SOLANA_RPC_URL", "http://rpc.test")
	os.Setenv("BACKEND_TIMEOUT", "45s")
	os.Setenv("TEMPORAL_HOST", "temporal.test:7233")
	defer func() {
		for _, key := range []string{
			"BACKEND_URL", "USDC_MINT_ADDRESS", "SOLANA_RPC_URL",
			"BACKEND_TIMEOUT", "TEMPORAL_HOST",
		} {
			os.Unsetenv(key)
		}
	}()

	cfg, err := config.Load()
	require.NoError(t, err)

	app := newApp(cfg)

	assert.Equal(t, "http://backend.test", stringFlagDefault(t, app, "backend-url"))
	assert.Equal(t, "http://rpc.test", stringFlagDefault(t, app, "solana-rpc-url"))
	assert.Equal(t, "Gh9ZwEmdLJ8DscKNTkTqPbNwLNNBjuSzaG9Vp2KGtKJr", stringFlagDefault(t, app, "usdc-mint"))
	assert.Equal(t, "temporal.test:7233", stringFlagDefault(t, app, "temporal-host"))
	assert.Equal(t, 45*time.Second, durationFlagDefault(t, app, "backend-timeout"))

	// Built-in defaults survive when the environment is silent.
	assert.Equal(t, "handlepay-recording", stringFlagDefault(t, app, "task-queue"))
	assert.Equal(t, "default", stringFlagDefault(t, app, "temporal-namespace"))
}

func stringFlagDefault(t *testing.T, app *cli.App, name string) string {
	t.Helper()
	for _, f := range app.Flags {
		if sf, ok := f.(*cli.StringFlag); ok && sf.Name == name {
			return sf.Value
		}
	}
	t.Fatalf("no string flag named %q", name)
	return ""
}

func durationFlagDefault(t *testing.T, app *cli.App, name string) time.Duration {
	t.Helper()
	for _, f := range app.Flags {
		if df, ok := f.(*cli.DurationFlag); ok && df.Name == name {
			return df.Value
		}
	}
	t.Fatalf("no duration flag named %q", name)
	return 0
}
