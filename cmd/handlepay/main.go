package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cypherpunk-labs/handlepay/service/config"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Configuration supplies the flag defaults: .env (when present), then
	// real environment, then the built-in defaults. Explicit flags win.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := newApp(cfg).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:  "handlepay",
		Usage: "Send USDC to wallets and social handles",
		Description: `A command-line client for the handlepay payment service.

Resolve recipients, send USDC directly or into escrow, claim escrowed
funds, link a social account, and inspect the local send history.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			resolveCommand(),
			sendCommand(),
			pendingCommand(),
			claimCommand(),
			{
				Name:  "link",
				Usage: "Social account linking commands",
				Subcommands: []*cli.Command{
					linkCommand(cfg),
					linkStatusCommand(),
					linkClearCommand(),
				},
			},
			{
				Name:  "history",
				Usage: "Local send history commands",
				Subcommands: []*cli.Command{
					historyListCommand(),
					historyRemoveCommand(),
					historyClearCommand(),
				},
			},
			workerCommand(cfg),
		},
		// Global flags available to all commands, defaulted from config.
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend-url",
				Usage: "Payments backend base URL",
				Value: cfg.BackendURL,
			},
			&cli.DurationFlag{
				Name:  "backend-timeout",
				Usage: "Timeout for backend HTTP requests",
				Value: cfg.BackendTimeout,
			},
			&cli.StringFlag{
				Name:  "usdc-mint",
				Usage: "USDC mint address",
				Value: cfg.USDCMintAddress,
			},
			&cli.StringFlag{
				Name:  "solana-rpc-url",
				Usage: "Solana RPC node URL",
				Value: cfg.SolanaRPCURL,
			},
			&cli.StringFlag{
				Name:  "keypair",
				Usage: "Path to a solana-keygen JSON keypair file",
				Value: cfg.WalletKeypairPath,
			},
			&cli.StringFlag{
				Name:  "database-url",
				Usage: "Postgres connection URL for the history store",
				Value: cfg.DatabaseURL,
			},
			&cli.StringFlag{
				Name:  "redis-addr",
				Usage: "Redis address for the history store",
				Value: cfg.RedisAddr,
			},
			&cli.StringFlag{
				Name:  "nats-url",
				Usage: "NATS server URL for payment events",
				Value: cfg.NATSURL,
			},
			&cli.StringFlag{
				Name:  "temporal-host",
				Usage: "Temporal server address",
				Value: cfg.TemporalHost,
			},
			&cli.StringFlag{
				Name:  "temporal-namespace",
				Usage: "Temporal namespace",
				Value: cfg.TemporalNamespace,
			},
			&cli.StringFlag{
				Name:  "task-queue",
				Usage: "Temporal task queue for payment recording",
				Value: cfg.TemporalTaskQueue,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}
