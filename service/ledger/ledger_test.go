package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherpunk-labs/handlepay/service/kv"
)

func newTestLedger() *Ledger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(kv.NewMemory(), nil, logger)
}

func TestAppend_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	l.Append(ctx, Item{ID: "first", Recipient: "@alice", Amount: "1.00", Flow: "linked", TransactionSignature: "sig1"})
	l.Append(ctx, Item{ID: "second", Recipient: "@bob", Amount: "2.00", Flow: "unlinked", TransactionSignature: "sig2"})

	history := l.List(ctx)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].ID)
	assert.Equal(t, "first", history[1].ID)
	assert.NotZero(t, history[0].Timestamp)
}

func TestAppend_AssignsIDWhenEmpty(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	l.Append(ctx, Item{Recipient: "@alice", Amount: "1.00", Flow: "linked", TransactionSignature: "sig"})

	history := l.List(ctx)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
}

func TestAppend_CapsAtMaxEntries(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	for i := 0; i <= MaxEntries; i++ {
		l.Append(ctx, Item{
			ID:        fmt.Sprintf("item-%d", i),
			Recipient: "@alice",
			Amount:    "1.00",
			Flow:      "linked",
		})
	}

	history := l.List(ctx)
	require.Len(t, history, MaxEntries)
	// The 101st (newest) append sits at index 0; the oldest was evicted.
	assert.Equal(t, "item-100", history[0].ID)
	assert.Equal(t, "item-1", history[MaxEntries-1].ID)
	for _, item := range history {
		assert.NotEqual(t, "item-0", item.ID)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	l.Append(ctx, Item{ID: "keep"})
	l.Append(ctx, Item{ID: "drop"})

	l.Remove(ctx, "drop")

	history := l.List(ctx)
	require.Len(t, history, 1)
	assert.Equal(t, "keep", history[0].ID)

	// Removing an unknown id is a no-op.
	l.Remove(ctx, "never-existed")
	assert.Len(t, l.List(ctx), 1)
}

func TestClear_Idempotent(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger()

	l.Append(ctx, Item{ID: "a"})
	l.Append(ctx, Item{ID: "b"})

	l.Clear(ctx)
	assert.Empty(t, l.List(ctx))

	l.Clear(ctx)
	assert.Empty(t, l.List(ctx))
}

func TestList_MalformedStoredDataTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, StorageKey, []byte("{not json")))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := New(store, nil, logger)

	assert.Empty(t, l.List(ctx))

	// The ledger recovers: the next append replaces the corrupt blob.
	l.Append(ctx, Item{ID: "fresh"})
	history := l.List(ctx)
	require.Len(t, history, 1)
	assert.Equal(t, "fresh", history[0].ID)
}
