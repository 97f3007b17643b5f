package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/cypherpunk-labs/handlepay/service/ledger"
)

func historyListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recorded sends, most recent first",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq expression entries must satisfy (repeatable, all must match)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of entries to show",
				Value: ledger.MaxEntries,
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			logger := errLogger()

			history, closeStore, err := newLedger(ctx, c, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			// Compile jq filters
			filters := c.StringSlice("filter")
			compiled := make([]*gojq.Code, len(filters))
			for i, filter := range filters {
				query, err := gojq.Parse(filter)
				if err != nil {
					return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
				}
				compiled[i], err = gojq.Compile(query)
				if err != nil {
					return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
				}
			}

			items := history.List(ctx)
			matched := make([]ledger.Item, 0, len(items))
			for _, item := range items {
				ok, err := matchesFilters(item, compiled)
				if err != nil {
					return err
				}
				if ok {
					matched = append(matched, item)
				}
				if len(matched) >= c.Int("limit") {
					break
				}
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(matched, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			if len(matched) == 0 {
				fmt.Println("No recorded sends.")
				return nil
			}
			for _, item := range matched {
				ts := time.UnixMilli(item.Timestamp).Format(time.RFC3339)
				fmt.Printf("%s  %-8s  %10s USDC  %s  %s\n",
					ts, item.Flow, item.Amount, item.Recipient, item.TransactionSignature)
			}
			return nil
		},
	}
}

// matchesFilters runs each compiled jq filter against the entry's JSON
// form; all must produce a truthy result.
func matchesFilters(item ledger.Item, filters []*gojq.Code) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	data, err := json.Marshal(item)
	if err != nil {
		return false, err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, err
	}

	for _, code := range filters {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := v.(error); isErr {
			return false, fmt.Errorf("jq filter failed: %w", err)
		}
		if !isTruthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func historyRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove one entry by id",
		ArgsUsage: "ENTRY_ID",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("entry id is required")
			}

			ctx := context.Background()
			logger := errLogger()

			history, closeStore, err := newLedger(ctx, c, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			history.Remove(ctx, c.Args().Get(0))
			fmt.Println("Removed.")
			return nil
		},
	}
}

func historyClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete the entire send history",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			logger := errLogger()

			history, closeStore, err := newLedger(ctx, c, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			history.Clear(ctx)
			fmt.Println("Cleared.")
			return nil
		},
	}
}
