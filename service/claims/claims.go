// Package claims discovers unclaimed escrow balances addressed to a
// handle. Aggregation is backend-owned: multiple deposits to one handle
// arrive already collapsed into a single pending claim with a payment
// count; nothing is summed client-side.
package claims

import (
	"context"
	"log/slog"

	"github.com/cypherpunk-labs/handlepay/client"
)

// PendingClaim is the aggregate of all not-yet-claimed escrow deposits
// addressed to one handle. PaymentCount == 0 and Amount == 0 are
// equivalent "nothing pending" states.
type PendingClaim struct {
	Handle       string
	Amount       int64
	PaymentCount int
	Claimed      bool
}

// Payment is one itemized escrow deposit.
type Payment struct {
	Sender    string
	Amount    int64
	Timestamp int64
}

// Status discriminates the three outcomes of a claim lookup, so callers
// that care can tell a failed lookup from an empty one.
type Status int

const (
	// StatusFound means a pending claim with a non-zero balance exists.
	StatusFound Status = iota
	// StatusNone means the backend answered and nothing is pending.
	StatusNone
	// StatusError means the lookup failed; pending funds may still exist.
	StatusError
)

// Backend is the subset of the backend client this package needs.
type Backend interface {
	PendingClaims(ctx context.Context, handle string) (*client.PendingClaim, error)
	PaymentHistory(ctx context.Context, handle string) ([]client.Payment, error)
}

// Discovery queries the backend for escrow claim state. It owns no state;
// every call re-queries and is safely retryable.
type Discovery struct {
	backend Backend
	logger  *slog.Logger
}

// NewDiscovery creates a claim discovery service.
func NewDiscovery(backend Backend, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{backend: backend, logger: logger}
}

// Lookup fetches the pending claim for a handle with an explicit
// three-way result: found, none pending, or lookup failed.
func (d *Discovery) Lookup(ctx context.Context, handle string) (*PendingClaim, Status, error) {
	result, err := d.backend.PendingClaims(ctx, handle)
	if err != nil {
		d.logger.WarnContext(ctx, "pending-claims lookup failed", "handle", handle, "error", err)
		return nil, StatusError, err
	}

	claim := &PendingClaim{
		Handle:       result.Handle,
		Amount:       result.Amount,
		PaymentCount: result.PaymentCount,
		Claimed:      result.Claimed,
	}

	if claim.Amount == 0 || claim.PaymentCount == 0 || claim.Claimed {
		return claim, StatusNone, nil
	}
	return claim, StatusFound, nil
}

// FindPendingClaims is the lenient form: any lookup failure collapses to
// nil, indistinguishable from "no claims". Callers wanting the
// distinction use Lookup.
func (d *Discovery) FindPendingClaims(ctx context.Context, handle string) *PendingClaim {
	claim, status, _ := d.Lookup(ctx, handle)
	if status == StatusError {
		return nil
	}
	return claim
}

// PaymentHistory fetches the itemized deposits for a handle. Read-only;
// it has no effect on claim state.
func (d *Discovery) PaymentHistory(ctx context.Context, handle string) ([]Payment, error) {
	results, err := d.backend.PaymentHistory(ctx, handle)
	if err != nil {
		return nil, err
	}

	payments := make([]Payment, len(results))
	for i, p := range results {
		payments[i] = Payment{
			Sender:    p.Sender,
			Amount:    p.Amount,
			Timestamp: p.Timestamp,
		}
	}
	return payments, nil
}
