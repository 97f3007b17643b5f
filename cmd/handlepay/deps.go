package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/cypherpunk-labs/handlepay/client"
	"github.com/cypherpunk-labs/handlepay/service/kv"
	"github.com/cypherpunk-labs/handlepay/service/ledger"
	"github.com/cypherpunk-labs/handlepay/service/signer"
)

// errLogger returns a logger that writes only errors to stderr, keeping
// stdout clean for command output.
func errLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// newBackend builds the backend client from the global flags.
func newBackend(c *cli.Context, logger *slog.Logger) (*client.Client, error) {
	backendURL := c.String("backend-url")
	if backendURL == "" {
		return nil, fmt.Errorf("--backend-url (or BACKEND_URL) is required")
	}

	var httpClient *http.Client
	if timeout := c.Duration("backend-timeout"); timeout > 0 {
		httpClient = &http.Client{Timeout: timeout}
	}
	return client.NewClient(backendURL, httpClient, nil, logger), nil
}

// newStore picks the history store backend: Redis when --redis-addr is
// set, Postgres when --database-url is set, in-memory otherwise. The
// in-memory store makes history commands no-ops across invocations, which
// is still useful for dry runs.
func newStore(ctx context.Context, c *cli.Context) (kv.Store, func(), error) {
	if addr := c.String("redis-addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
		}
		return kv.NewRedis(rdb, "handlepay:"), func() { rdb.Close() }, nil
	}

	if dbURL := c.String("database-url"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return kv.NewPostgres(pool), pool.Close, nil
	}

	return kv.NewMemory(), func() {}, nil
}

// newLedger builds the history ledger over the configured store.
func newLedger(ctx context.Context, c *cli.Context, logger *slog.Logger) (*ledger.Ledger, func(), error) {
	store, closeStore, err := newStore(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return ledger.New(store, nil, logger), closeStore, nil
}

// newWallet loads the signing keypair and connects it to the configured
// RPC node.
func newWallet(c *cli.Context, logger *slog.Logger) (*signer.KeypairWallet, string, error) {
	keypairPath := c.String("keypair")
	if keypairPath == "" {
		return nil, "", fmt.Errorf("--keypair (or WALLET_KEYPAIR_PATH) is required")
	}

	rpcClient := rpc.New(c.String("solana-rpc-url"))
	wallet, err := signer.NewKeypairWalletFromFile(keypairPath, rpcClient, logger)
	if err != nil {
		return nil, "", err
	}

	address, err := wallet.Address(0)
	if err != nil {
		return nil, "", err
	}
	return wallet, address.String(), nil
}

// requireMint returns the configured USDC mint address.
func requireMint(c *cli.Context) (string, error) {
	mint := c.String("usdc-mint")
	if mint == "" {
		return "", fmt.Errorf("--usdc-mint (or USDC_MINT_ADDRESS) is required")
	}
	return mint, nil
}
