package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/cypherpunk-labs/handlepay/service/config"
	"github.com/cypherpunk-labs/handlepay/service/social"
)

func linkCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Link a Twitter account to the configured wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "client-id",
				Usage: "Twitter OAuth2 client ID",
				Value: cfg.TwitterClientID,
			},
			&cli.StringFlag{
				Name:  "redirect-url",
				Usage: "OAuth redirect URL registered with the client ID",
				Value: cfg.OAuthRedirectURL,
			},
		},
		Action: func(c *cli.Context) error {
			clientID := c.String("client-id")
			if clientID == "" {
				return fmt.Errorf("--client-id (or TWITTER_CLIENT_ID) is required")
			}

			ctx := context.Background()
			logger := errLogger()

			backend, err := newBackend(c, logger)
			if err != nil {
				return err
			}
			_, walletAddress, err := newWallet(c, logger)
			if err != nil {
				return err
			}
			store, closeStore, err := newStore(ctx, c)
			if err != nil {
				return err
			}
			defer closeStore()

			session := social.NewSession(clientID, c.String("redirect-url"), backend, store, logger)

			req, err := session.BeginAuth(walletAddress)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stderr, "Open this URL in a browser and authorize the app:")
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "  %s\n", req.AuthURL)
			fmt.Fprintln(os.Stderr)
			fmt.Fprint(os.Stderr, "Paste the authorization code from the redirect: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				session.Cancel()
				return fmt.Errorf("failed to read authorization code: %w", err)
			}

			account, err := session.CompleteAuth(ctx, strings.TrimSpace(code))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(account, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Linked %s (%s) to %s\n", account.Handle, account.Platform, account.WalletAddress)
			return nil
		},
	}
}

func linkStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the cached linked account, if any",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			logger := errLogger()

			store, closeStore, err := newStore(ctx, c)
			if err != nil {
				return err
			}
			defer closeStore()

			session := social.NewSession("", "", nil, store, logger)
			account, err := session.CachedAccount(ctx)
			if err != nil {
				return err
			}
			if account == nil {
				fmt.Println("No linked account.")
				return nil
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(account, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Platform: %s\n", account.Platform)
			fmt.Printf("Handle:   %s\n", account.Handle)
			fmt.Printf("Wallet:   %s\n", account.WalletAddress)
			if account.Name != "" {
				fmt.Printf("Name:     %s\n", account.Name)
			}
			return nil
		},
	}
}

func linkClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove the cached linked account",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			logger := errLogger()

			store, closeStore, err := newStore(ctx, c)
			if err != nil {
				return err
			}
			defer closeStore()

			session := social.NewSession("", "", nil, store, logger)
			if err := session.ClearCache(ctx); err != nil {
				return err
			}
			fmt.Println("Cleared.")
			return nil
		},
	}
}
