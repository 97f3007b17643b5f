// Package ledger keeps the local record of completed sends. It is a
// best-effort convenience record for display, never a source of truth for
// fund state; the chain and the backend remain authoritative.
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cypherpunk-labs/handlepay/service/kv"
	"github.com/cypherpunk-labs/handlepay/service/metrics"
)

// StorageKey is the kv key the serialized history is stored under.
const StorageKey = "transactionHistory"

// MaxEntries caps the history; the oldest entries are silently dropped on
// overflow.
const MaxEntries = 100

// Item is one completed send. Items are created immediately after a
// successful submission and never mutated.
type Item struct {
	ID                   string `json:"id"`
	Recipient            string `json:"recipient"`
	Amount               string `json:"amount"` // display form, human units
	Flow                 string `json:"flow"`   // "linked" or "unlinked"
	TransactionSignature string `json:"transactionSignature"`
	Timestamp            int64  `json:"timestamp"` // epoch milliseconds
}

// Ledger is the append-only, bounded transaction history. A single mutex
// serializes all read-modify-write cycles so two concurrent flows cannot
// lose each other's appends.
type Ledger struct {
	mu      sync.Mutex
	store   kv.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a ledger over the given store. If metrics is nil, no
// metrics are recorded.
func New(store kv.Store, m *metrics.Metrics, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Append stamps the item with the current time, assigns an ID when the
// caller left it empty, prepends it to the history, and truncates to
// MaxEntries. Persistence failures are logged and non-fatal: the ledger
// is a convenience record, not fund state.
func (l *Ledger) Append(ctx context.Context, item Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.Timestamp = l.now().UnixMilli()

	history := l.load(ctx)
	history = append([]Item{item}, history...)
	if len(history) > MaxEntries {
		history = history[:MaxEntries]
	}

	l.persist(ctx, history, "append")
}

// List returns the history, most recent first.
func (l *Ledger) List(ctx context.Context) []Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load(ctx)
}

// Remove deletes one entry by id. Removing an unknown id is a no-op.
func (l *Ledger) Remove(ctx context.Context, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.load(ctx)
	filtered := history[:0:0]
	for _, item := range history {
		if item.ID != id {
			filtered = append(filtered, item)
		}
	}

	l.persist(ctx, filtered, "remove")
}

// Clear empties the history. Clearing an empty history is safe.
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, StorageKey); err != nil {
		l.logger.ErrorContext(ctx, "failed to clear transaction history", "error", err)
		if l.metrics != nil {
			l.metrics.RecordLedgerWrite("clear", "error")
		}
		return
	}
	if l.metrics != nil {
		l.metrics.RecordLedgerWrite("clear", "success")
		l.metrics.SetLedgerSize(StorageKey, 0)
	}
}

// load reads and decodes the stored history. Missing or malformed data is
// treated as an empty history; corruption must never take the app down.
func (l *Ledger) load(ctx context.Context) []Item {
	data, err := l.store.Get(ctx, StorageKey)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to read transaction history", "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var history []Item
	if err := json.Unmarshal(data, &history); err != nil {
		l.logger.ErrorContext(ctx, "stored transaction history is malformed, treating as empty", "error", err)
		return nil
	}
	return history
}

func (l *Ledger) persist(ctx context.Context, history []Item, kind string) {
	data, err := json.Marshal(history)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to encode transaction history", "error", err)
		if l.metrics != nil {
			l.metrics.RecordLedgerWrite(kind, "error")
		}
		return
	}

	if err := l.store.Set(ctx, StorageKey, data); err != nil {
		l.logger.ErrorContext(ctx, "failed to persist transaction history",
			"kind", kind,
			"entries", len(history),
			"error", err,
		)
		if l.metrics != nil {
			l.metrics.RecordLedgerWrite(kind, "error")
		}
		return
	}

	if l.metrics != nil {
		l.metrics.RecordLedgerWrite(kind, "success")
		l.metrics.SetLedgerSize(StorageKey, len(history))
	}
}
