package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cypherpunk-labs/handlepay/service/claims"
	"github.com/cypherpunk-labs/handlepay/service/events"
	"github.com/cypherpunk-labs/handlepay/service/handle"
	"github.com/cypherpunk-labs/handlepay/service/resolve"
	"github.com/cypherpunk-labs/handlepay/service/send"
	"github.com/cypherpunk-labs/handlepay/service/temporal"
	"github.com/cypherpunk-labs/handlepay/service/txbuild"
	"github.com/cypherpunk-labs/handlepay/service/units"
)

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a recipient and report which send flow applies",
		ArgsUsage: "[RECIPIENT]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "share-text",
				Usage: "Free text from a share intent to extract the recipient from",
			},
			&cli.StringFlag{
				Name:  "share-url",
				Usage: "URL from a share intent to extract the recipient from",
			},
		},
		Action: func(c *cli.Context) error {
			recipient, err := recipientFromArgs(c)
			if err != nil {
				return err
			}

			logger := errLogger()
			backend, err := newBackend(c, logger)
			if err != nil {
				return err
			}

			resolver := resolve.NewResolver(backend, nil, logger)
			outcome := resolver.Resolve(context.Background(), recipient)

			if c.Bool("json") {
				data, err := json.MarshalIndent(map[string]string{
					"flow":      string(outcome.Flow),
					"recipient": outcome.RecipientWallet,
					"error":     outcome.Err,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			switch outcome.Flow {
			case resolve.FlowLinked:
				fmt.Printf("linked: direct transfer to %s\n", outcome.RecipientWallet)
			case resolve.FlowUnlinked:
				fmt.Printf("unlinked: escrow deposit for %s\n", outcome.RecipientWallet)
			default:
				return fmt.Errorf("cannot send: %s", outcome.Err)
			}
			return nil
		},
	}
}

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send USDC to a wallet address or social handle",
		ArgsUsage: "RECIPIENT AMOUNT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "durable",
				Usage: "Record the send through a Temporal workflow instead of writing locally",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("recipient and amount are required")
			}

			recipient := c.Args().Get(0)
			amount, err := strconv.ParseFloat(c.Args().Get(1), 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
			}

			ctx := context.Background()
			logger := errLogger()

			backend, err := newBackend(c, logger)
			if err != nil {
				return err
			}
			mint, err := requireMint(c)
			if err != nil {
				return err
			}
			wallet, senderAddress, err := newWallet(c, logger)
			if err != nil {
				return err
			}
			history, closeStore, err := newLedger(ctx, c, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			var publisher events.Publisher
			if natsURL := c.String("nats-url"); natsURL != "" {
				p, err := events.NewPublisher(natsURL, nil, logger)
				if err != nil {
					return err
				}
				defer p.Close()
				publisher = p
			}

			var recorder send.Recorder
			if c.Bool("durable") {
				tc, err := temporal.NewClient(
					c.String("temporal-host"),
					c.String("temporal-namespace"),
					c.String("task-queue"),
					logger,
				)
				if err != nil {
					return err
				}
				defer tc.Close()
				recorder = tc
			}

			orchestrator := send.New(send.Config{
				Resolver:     resolve.NewResolver(backend, nil, logger),
				Builder:      txbuild.NewBuilder(backend, mint, logger),
				Claims:       claims.NewDiscovery(backend, logger),
				Wallet:       wallet,
				Ledger:       history,
				Publisher:    publisher,
				Recorder:     recorder,
				Logger:       logger,
				SenderWallet: senderAddress,
				Mint:         mint,
			})

			outcome, err := orchestrator.Check(ctx, recipient)
			if err != nil {
				return err
			}
			if outcome.Flow == resolve.FlowNone {
				return fmt.Errorf("cannot send: %s", outcome.Err)
			}

			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Sending %.2f USDC to %s (%s flow)...\n",
					amount, outcome.RecipientWallet, outcome.Flow)
			}

			receipt, err := orchestrator.Confirm(ctx, amount)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(map[string]any{
					"signature":  receipt.Signature,
					"flow":       string(receipt.Flow),
					"recipient":  receipt.Recipient,
					"amount":     units.FormatAmount(receipt.BaseUnits),
					"base_units": receipt.BaseUnits,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Sent %s USDC to %s\n", units.FormatAmount(receipt.BaseUnits), receipt.Recipient)
			fmt.Printf("Signature: %s\n", receipt.Signature)
			return nil
		},
	}
}

// recipientFromArgs picks the recipient from the positional argument or,
// when share-intent flags are given, extracts the handle the way the
// share target does: the shared URL first, then the free text.
func recipientFromArgs(c *cli.Context) (string, error) {
	if text, webURL := c.String("share-text"), c.String("share-url"); text != "" || webURL != "" {
		h, ok := handle.ExtractFromShareIntent(text, webURL)
		if !ok {
			return "", fmt.Errorf("no handle found in shared content")
		}
		return h, nil
	}
	if c.NArg() < 1 {
		return "", fmt.Errorf("recipient is required")
	}
	return c.Args().Get(0), nil
}

func pendingCommand() *cli.Command {
	return &cli.Command{
		Name:      "pending",
		Usage:     "Show escrowed USDC waiting to be claimed by a handle",
		ArgsUsage: "HANDLE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "payments",
				Usage: "Also list the individual escrow deposits",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("handle is required")
			}

			ctx := context.Background()
			logger := errLogger()

			backend, err := newBackend(c, logger)
			if err != nil {
				return err
			}
			discovery := claims.NewDiscovery(backend, logger)

			pending, status, err := discovery.Lookup(ctx, c.Args().Get(0))
			switch status {
			case claims.StatusError:
				return fmt.Errorf("pending-claims lookup failed: %w", err)
			case claims.StatusNone:
				fmt.Println("Nothing pending.")
				return nil
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(map[string]any{
					"handle":        pending.Handle,
					"amount":        units.FormatAmount(pending.Amount),
					"base_units":    pending.Amount,
					"payment_count": pending.PaymentCount,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("%s USDC pending for %s across %d payment(s)\n",
				units.FormatAmount(pending.Amount), pending.Handle, pending.PaymentCount)

			if c.Bool("payments") {
				payments, err := discovery.PaymentHistory(ctx, pending.Handle)
				if err != nil {
					return err
				}
				for _, p := range payments {
					fmt.Printf("  %s  %10s USDC  from %s\n",
						time.UnixMilli(p.Timestamp).Format(time.RFC3339),
						units.FormatAmount(p.Amount), p.Sender)
				}
			}
			return nil
		},
	}
}

func claimCommand() *cli.Command {
	return &cli.Command{
		Name:      "claim",
		Usage:     "Claim escrowed USDC addressed to a social handle",
		ArgsUsage: "HANDLE",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("handle is required")
			}

			ctx := context.Background()
			logger := errLogger()

			backend, err := newBackend(c, logger)
			if err != nil {
				return err
			}
			mint, err := requireMint(c)
			if err != nil {
				return err
			}
			wallet, senderAddress, err := newWallet(c, logger)
			if err != nil {
				return err
			}
			history, closeStore, err := newLedger(ctx, c, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			orchestrator := send.New(send.Config{
				Resolver:     resolve.NewResolver(backend, nil, logger),
				Builder:      txbuild.NewBuilder(backend, mint, logger),
				Claims:       claims.NewDiscovery(backend, logger),
				Wallet:       wallet,
				Ledger:       history,
				Logger:       logger,
				SenderWallet: senderAddress,
				Mint:         mint,
			})

			sig, pending, err := orchestrator.Claim(ctx, c.Args().Get(0))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(map[string]any{
					"signature":     sig,
					"handle":        pending.Handle,
					"amount":        units.FormatAmount(pending.Amount),
					"payment_count": pending.PaymentCount,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Claimed %s USDC (%d payments) for %s\n",
				units.FormatAmount(pending.Amount), pending.PaymentCount, pending.Handle)
			fmt.Printf("Signature: %s\n", sig)
			return nil
		},
	}
}
