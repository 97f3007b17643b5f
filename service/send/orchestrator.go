// Package send sequences a complete payment: resolve the recipient,
// build the right transaction for the resolved flow, sign and submit it,
// and record the completed send in the local history ledger.
package send

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cypherpunk-labs/handlepay/service/claims"
	"github.com/cypherpunk-labs/handlepay/service/events"
	"github.com/cypherpunk-labs/handlepay/service/ledger"
	"github.com/cypherpunk-labs/handlepay/service/metrics"
	"github.com/cypherpunk-labs/handlepay/service/resolve"
	"github.com/cypherpunk-labs/handlepay/service/signer"
	"github.com/cypherpunk-labs/handlepay/service/txbuild"
	"github.com/cypherpunk-labs/handlepay/service/units"
)

// State is the orchestrator's position in the send flow.
type State string

const (
	StateIdle              State = "idle"
	StateResolving         State = "resolving"
	StateResolved          State = "resolved"
	StateBuilding          State = "building"
	StateAwaitingSignature State = "awaiting_signature"
	StateSubmitted         State = "submitted"
	StateRecorded          State = "recorded"
	StateErrored           State = "errored"
)

// RecipientResolver resolves a free-form recipient into a flow.
type RecipientResolver interface {
	Resolve(ctx context.Context, recipient string) resolve.Outcome
}

// TransactionBuilder builds unsigned transactions for the three flows.
type TransactionBuilder interface {
	BuildDirect(ctx context.Context, senderWallet, recipientWallet string, amount int64) (*txbuild.UnsignedTransaction, error)
	BuildEscrowDeposit(ctx context.Context, senderWallet, socialHandle string, amount int64) (*txbuild.UnsignedTransaction, error)
	BuildClaim(ctx context.Context, socialHandle string) (*txbuild.UnsignedTransaction, error)
}

// ClaimFinder discovers pending escrow claims for a handle.
type ClaimFinder interface {
	FindPendingClaims(ctx context.Context, handle string) *claims.PendingClaim
}

// HistoryLedger records completed sends.
type HistoryLedger interface {
	Append(ctx context.Context, item ledger.Item)
}

// Recorder durably records a completed send out of process. When
// configured, it replaces the direct ledger write after submission so the
// write survives the app exiting mid-flow.
type Recorder interface {
	RecordPayment(ctx context.Context, item ledger.Item, event *events.PaymentEvent) error
}

// Receipt describes a submitted, recorded send.
type Receipt struct {
	Signature string
	Flow      resolve.Flow
	Recipient string
	BaseUnits int64
}

// Config assembles an orchestrator's collaborators. Publisher, Recorder,
// and Metrics are optional.
type Config struct {
	Resolver     RecipientResolver
	Builder      TransactionBuilder
	Claims       ClaimFinder
	Wallet       signer.Wallet
	Ledger       HistoryLedger
	Publisher    events.Publisher
	Recorder     Recorder
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	SenderWallet string
	Mint         string
	SignerIndex  int
}

// Orchestrator drives one send attempt at a time through the state
// machine Idle -> Resolving -> Resolved -> Building -> AwaitingSignature
// -> Submitted -> Recorded, with Errored reachable from Resolving,
// Building, and AwaitingSignature. It never runs two sends concurrently;
// independent instances share no mutable state except the ledger's
// backing store, which serializes its own writes.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	outcome resolve.Outcome
	reason  string
}

// New creates an orchestrator in the Idle state.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ErrReason returns the message that moved the flow to Errored.
func (o *Orchestrator) ErrReason() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reason
}

// Reset returns the orchestrator to Idle. Errored is terminal per
// attempt; a caller retries by resetting and re-running the whole
// sequence, never by resuming partway.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.outcome = resolve.Outcome{}
	o.reason = ""
}

// Check resolves the recipient and moves to Resolved or Errored. It must
// be called from Idle.
func (o *Orchestrator) Check(ctx context.Context, recipient string) (resolve.Outcome, error) {
	if err := o.transition(StateIdle, StateResolving); err != nil {
		return resolve.Outcome{}, err
	}

	outcome := o.cfg.Resolver.Resolve(ctx, recipient)

	o.mu.Lock()
	defer o.mu.Unlock()

	if outcome.Flow == resolve.FlowNone {
		o.state = StateErrored
		o.reason = outcome.Err
		return outcome, nil
	}

	o.state = StateResolved
	o.outcome = outcome
	return outcome, nil
}

// Confirm builds, signs, submits, and records a send of the given display
// amount to the previously resolved recipient. Input validation happens
// before any network call; an invalid amount leaves the flow in Resolved
// so the caller can correct it.
//
// Once the flow enters AwaitingSignature it runs on a context detached
// from the caller's: abandoning the UI must not orphan a transaction the
// wallet may already have submitted.
func (o *Orchestrator) Confirm(ctx context.Context, amount float64) (*Receipt, error) {
	o.mu.Lock()
	if o.state != StateResolved {
		state := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("cannot confirm from state %q", state)
	}
	outcome := o.outcome
	o.mu.Unlock()

	baseUnits, err := units.ToBaseUnits(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if baseUnits <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	start := time.Now()
	receipt, err := o.run(ctx, outcome, baseUnits)

	if o.cfg.Metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		o.cfg.Metrics.RecordSend(string(outcome.Flow), status, time.Since(start).Seconds())
	}
	return receipt, err
}

func (o *Orchestrator) run(ctx context.Context, outcome resolve.Outcome, baseUnits int64) (*Receipt, error) {
	o.setState(StateBuilding)

	var unsigned *txbuild.UnsignedTransaction
	var err error
	switch outcome.Flow {
	case resolve.FlowLinked:
		unsigned, err = o.cfg.Builder.BuildDirect(ctx, o.cfg.SenderWallet, outcome.RecipientWallet, baseUnits)
	case resolve.FlowUnlinked:
		unsigned, err = o.cfg.Builder.BuildEscrowDeposit(ctx, o.cfg.SenderWallet, outcome.RecipientWallet, baseUnits)
	default:
		err = fmt.Errorf("no resolved flow")
	}
	if err != nil {
		return nil, o.fail(err.Error(), err)
	}

	tx, err := unsigned.Decode()
	if err != nil {
		return nil, o.fail("Failed to decode transaction", err)
	}

	o.setState(StateAwaitingSignature)

	// From here the flow must run to Submitted or Errored even if the
	// caller goes away; an already-submitted transaction with no local
	// record is worse than a slow cancellation.
	detached := context.WithoutCancel(ctx)

	sig, err := o.cfg.Wallet.SignAndSend(detached, tx, o.cfg.SignerIndex)
	if err != nil {
		if errors.Is(err, signer.ErrSigningRejected) {
			return nil, o.fail("Transaction cancelled", err)
		}
		return nil, o.fail("Failed to send transaction", err)
	}

	o.setState(StateSubmitted)

	receipt := &Receipt{
		Signature: sig.String(),
		Flow:      outcome.Flow,
		Recipient: outcome.RecipientWallet,
		BaseUnits: baseUnits,
	}

	// Recording must not resubmit on failure; only the ledger write is
	// retried (durably, when a Recorder is configured).
	o.record(detached, receipt)

	o.setState(StateRecorded)

	o.logger.InfoContext(ctx, "send recorded",
		"signature", receipt.Signature,
		"flow", receipt.Flow,
		"recipient", receipt.Recipient,
		"base_units", receipt.BaseUnits,
	)
	return receipt, nil
}

// record writes the history entry and publishes the payment event,
// delegating to the durable recorder when one is configured.
func (o *Orchestrator) record(ctx context.Context, receipt *Receipt) {
	item := ledger.Item{
		Recipient:            receipt.Recipient,
		Amount:               units.FormatAmount(receipt.BaseUnits),
		Flow:                 string(receipt.Flow),
		TransactionSignature: receipt.Signature,
	}

	event := &events.PaymentEvent{
		Signature:    receipt.Signature,
		SenderWallet: o.cfg.SenderWallet,
		Recipient:    receipt.Recipient,
		Flow:         string(receipt.Flow),
		Amount:       receipt.BaseUnits,
		Mint:         o.cfg.Mint,
	}

	if o.cfg.Recorder != nil {
		err := o.cfg.Recorder.RecordPayment(ctx, item, event)
		if err == nil {
			return
		}
		// Fall back to the local write rather than lose the record.
		o.logger.ErrorContext(ctx, "durable recording failed, writing locally", "error", err)
	}

	o.cfg.Ledger.Append(ctx, item)

	if o.cfg.Publisher != nil {
		if err := o.cfg.Publisher.PublishPayment(ctx, event); err != nil {
			// Best effort: the event stream is not the record of truth.
			o.logger.WarnContext(ctx, "failed to publish payment event",
				"signature", receipt.Signature,
				"error", err,
			)
		}
	}
}

// Claim discovers pending escrow funds for a handle and, when any exist,
// builds, signs, and submits the claim transaction. Claims are not
// recorded in the send history; the resulting balance change shows up on
// chain.
func (o *Orchestrator) Claim(ctx context.Context, socialHandle string) (string, *claims.PendingClaim, error) {
	pending := o.cfg.Claims.FindPendingClaims(ctx, socialHandle)
	if pending == nil || pending.Amount == 0 || pending.Claimed {
		return "", pending, fmt.Errorf("no pending tokens to claim for %s", socialHandle)
	}

	unsigned, err := o.cfg.Builder.BuildClaim(ctx, socialHandle)
	if err != nil {
		o.recordClaimMetric("build_error")
		return "", pending, err
	}

	tx, err := unsigned.Decode()
	if err != nil {
		o.recordClaimMetric("decode_error")
		return "", pending, fmt.Errorf("failed to decode claim transaction: %w", err)
	}

	sig, err := o.cfg.Wallet.SignAndSend(context.WithoutCancel(ctx), tx, o.cfg.SignerIndex)
	if err != nil {
		o.recordClaimMetric("sign_error")
		return "", pending, err
	}

	o.recordClaimMetric("success")
	o.logger.InfoContext(ctx, "escrow claim submitted",
		"handle", socialHandle,
		"amount", pending.Amount,
		"signature", sig.String(),
	)
	return sig.String(), pending, nil
}

func (o *Orchestrator) recordClaimMetric(status string) {
	if o.cfg.Metrics != nil {
		o.cfg.Metrics.RecordClaim(status)
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) fail(reason string, err error) error {
	o.mu.Lock()
	o.state = StateErrored
	o.reason = reason
	o.mu.Unlock()

	o.logger.Error("send failed", "reason", reason, "error", err)
	if reason == err.Error() {
		return err
	}
	return fmt.Errorf("%s: %w", reason, err)
}

func (o *Orchestrator) transition(from, to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != from {
		return fmt.Errorf("cannot move to %q from %q", to, o.state)
	}
	o.state = to
	return nil
}
