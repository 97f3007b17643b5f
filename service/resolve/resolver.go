// Package resolve classifies a free-form recipient string and determines
// which send flow applies: a direct transfer to a linked wallet or an
// escrow deposit keyed by an unlinked handle.
package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/cypherpunk-labs/handlepay/client"
	"github.com/cypherpunk-labs/handlepay/service/handle"
	"github.com/cypherpunk-labs/handlepay/service/metrics"
)

// Flow identifies the send path a resolution selected.
type Flow string

const (
	// FlowLinked means the recipient resolves to a wallet; funds transfer
	// directly.
	FlowLinked Flow = "linked"

	// FlowUnlinked means the handle has no linked wallet; funds go to the
	// escrow keyed by the handle.
	FlowUnlinked Flow = "unlinked"

	// FlowNone means no usable route exists; Outcome.Err carries the reason.
	FlowNone Flow = ""
)

// Base58 Solana addresses are 43 or 44 characters. Classification is
// structural: shorter strings degrade to handle treatment.
const (
	walletAddressMinLen = 43
	walletAddressMaxLen = 44
)

// Outcome is the discriminated result of a resolution.
//
// Invariants: FlowLinked implies RecipientWallet holds a wallet address;
// FlowUnlinked implies RecipientWallet holds the normalized handle, used
// as an escrow deposit key rather than a transfer destination; FlowNone
// implies Err is set.
type Outcome struct {
	Flow            Flow
	RecipientWallet string
	Err             string
}

// Backend is the subset of the backend client the resolver needs.
type Backend interface {
	GetLinkedSocials(ctx context.Context, wallet string) (*client.LinkedSocials, error)
	FindWalletByHandle(ctx context.Context, handle, platform string) (*client.WalletLookup, error)
}

// Resolver resolves recipients against the backend. It holds no state and
// never caches: every invocation re-queries.
type Resolver struct {
	backend  Backend
	platform string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewResolver creates a resolver. If metrics is nil, no metrics are
// recorded.
func NewResolver(backend Backend, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		backend:  backend,
		platform: "twitter",
		logger:   logger,
		metrics:  m,
	}
}

// Resolve classifies the recipient and queries the backend for a route.
// It performs no retries; callers decide whether to re-invoke.
func (r *Resolver) Resolve(ctx context.Context, recipient string) Outcome {
	trimmed := strings.TrimSpace(recipient)
	if trimmed == "" {
		return r.record(Outcome{Flow: FlowNone, Err: "Recipient is empty"})
	}

	if len(trimmed) >= walletAddressMinLen && len(trimmed) <= walletAddressMaxLen {
		return r.record(r.resolveWallet(ctx, trimmed))
	}
	return r.record(r.resolveHandle(ctx, trimmed))
}

// resolveWallet handles recipients classified as wallet addresses. A
// wallet with no linked social account is not a valid direct-send target:
// direct sends only reach wallets discoverable through a social identity.
func (r *Resolver) resolveWallet(ctx context.Context, wallet string) Outcome {
	socials, err := r.backend.GetLinkedSocials(ctx, wallet)
	if err != nil {
		r.logger.ErrorContext(ctx, "linked-socials lookup failed", "wallet", wallet, "error", err)
		return Outcome{Flow: FlowNone, Err: err.Error()}
	}

	if !socials.Linked {
		return Outcome{Flow: FlowNone, Err: "Wallet has no linked social accounts"}
	}

	r.logger.DebugContext(ctx, "recipient resolved as linked wallet", "wallet", wallet)
	return Outcome{Flow: FlowLinked, RecipientWallet: wallet}
}

// resolveHandle handles recipients classified as social handles. The raw
// input may be a typed handle, a bare username, or a profile/post URL;
// extraction and validity run before any network call. An unlinked handle
// is not an error; it selects the escrow flow.
func (r *Resolver) resolveHandle(ctx context.Context, raw string) Outcome {
	extracted, ok := handle.Extract(raw)
	if !ok || !handle.Valid(extracted) {
		return Outcome{Flow: FlowNone, Err: "Not a valid social handle"}
	}
	normalized := handle.Normalize(extracted)

	lookup, err := r.backend.FindWalletByHandle(ctx, normalized, r.platform)
	if err != nil {
		r.logger.ErrorContext(ctx, "wallet lookup by handle failed", "handle", normalized, "error", err)
		return Outcome{Flow: FlowNone, Err: err.Error()}
	}

	if lookup.Found {
		r.logger.DebugContext(ctx, "handle resolved to linked wallet",
			"handle", normalized,
			"wallet", lookup.Wallet,
		)
		return Outcome{Flow: FlowLinked, RecipientWallet: lookup.Wallet}
	}

	r.logger.DebugContext(ctx, "handle has no linked wallet, selecting escrow flow", "handle", normalized)
	return Outcome{Flow: FlowUnlinked, RecipientWallet: normalized}
}

func (r *Resolver) record(o Outcome) Outcome {
	if r.metrics != nil {
		flow := string(o.Flow)
		if flow == "" {
			flow = "error"
		}
		r.metrics.RecordResolution(flow)
	}
	return o
}
