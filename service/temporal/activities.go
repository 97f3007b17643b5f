// Package temporal provides durable recording of completed sends. A
// submitted transaction with no local record is the failure mode this
// package exists to prevent: once the workflow is accepted, the history
// write and event publish survive the app process exiting.
package temporal

import (
	"context"
	"log/slog"

	"github.com/cypherpunk-labs/handlepay/service/events"
	"github.com/cypherpunk-labs/handlepay/service/ledger"
	"github.com/cypherpunk-labs/handlepay/service/metrics"
)

// HistoryStore is the subset of the ledger the activities need.
type HistoryStore interface {
	Append(ctx context.Context, item ledger.Item)
}

// Activities holds the dependencies for payment-recording activities.
type Activities struct {
	history   HistoryStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates the activities instance. Publisher and metrics
// may be nil; publishing is then skipped or unmeasured respectively.
func NewActivities(history HistoryStore, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		history:   history,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// AppendHistoryInput contains the history entry to record.
type AppendHistoryInput struct {
	Item ledger.Item `json:"item"`
}

// AppendHistoryResult reports the recorded entry's ID.
type AppendHistoryResult struct {
	HistoryID string `json:"history_id"`
}

// AppendHistory writes one completed send into the history ledger. The
// caller assigns the item ID before starting the workflow, so a retried
// append re-records the same entry rather than minting a duplicate.
func (a *Activities) AppendHistory(ctx context.Context, input AppendHistoryInput) (*AppendHistoryResult, error) {
	a.history.Append(ctx, input.Item)

	a.logger.DebugContext(ctx, "appended history entry",
		"id", input.Item.ID,
		"signature", input.Item.TransactionSignature,
	)
	return &AppendHistoryResult{HistoryID: input.Item.ID}, nil
}

// PublishPaymentEventInput contains the event to publish.
type PublishPaymentEventInput struct {
	Event *events.PaymentEvent `json:"event"`
}

// PublishPaymentEvent publishes the completed-payment event. The
// transaction signature is the JetStream message ID, so a retried publish
// deduplicates server-side.
func (a *Activities) PublishPaymentEvent(ctx context.Context, input PublishPaymentEventInput) error {
	if a.publisher == nil || input.Event == nil {
		return nil
	}
	return a.publisher.PublishPayment(ctx, input.Event)
}
