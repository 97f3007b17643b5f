package resolve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cypherpunk-labs/handlepay/client"
)

// mockBackend implements Backend for testing. Behavior-focused: we set
// what it should return, not verify call sequences.
type mockBackend struct {
	socials    *client.LinkedSocials
	socialsErr error

	lookup           *client.WalletLookup
	lookupErr        error
	lookedUp         string
	lookedUpPlatform string
}

func (m *mockBackend) GetLinkedSocials(ctx context.Context, wallet string) (*client.LinkedSocials, error) {
	if m.socialsErr != nil {
		return nil, m.socialsErr
	}
	return m.socials, nil
}

func (m *mockBackend) FindWalletByHandle(ctx context.Context, handle, platform string) (*client.WalletLookup, error) {
	m.lookedUp = handle
	m.lookedUpPlatform = platform
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.lookup, nil
}

func newTestResolver(backend Backend) *Resolver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(backend, nil, logger)
}

// A 44-character base58 string, the usual length of a Solana address.
const testWallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func TestResolve_WalletWithLinkedSocials(t *testing.T) {
	backend := &mockBackend{socials: &client.LinkedSocials{Linked: true}}
	r := newTestResolver(backend)

	outcome := r.Resolve(context.Background(), testWallet)
	assert.Equal(t, FlowLinked, outcome.Flow)
	assert.Equal(t, testWallet, outcome.RecipientWallet)
	assert.Empty(t, outcome.Err)
}

func TestResolve_WalletWithoutSocialsIsNotAValidTarget(t *testing.T) {
	backend := &mockBackend{socials: &client.LinkedSocials{Linked: false}}
	r := newTestResolver(backend)

	outcome := r.Resolve(context.Background(), testWallet)
	assert.Equal(t, FlowNone, outcome.Flow)
	assert.Equal(t, "Wallet has no linked social accounts", outcome.Err)
}

func TestResolve_43CharStringClassifiedAsWallet(t *testing.T) {
	backend := &mockBackend{socials: &client.LinkedSocials{Linked: true}}
	r := newTestResolver(backend)

	addr43 := testWallet[:43]
	outcome := r.Resolve(context.Background(), addr43)
	assert.Equal(t, FlowLinked, outcome.Flow)
	assert.Equal(t, addr43, outcome.RecipientWallet)
}

func TestResolve_HandleFound(t *testing.T) {
	backend := &mockBackend{lookup: &client.WalletLookup{Found: true, Wallet: testWallet}}
	r := newTestResolver(backend)

	outcome := r.Resolve(context.Background(), "alice")
	assert.Equal(t, FlowLinked, outcome.Flow)
	assert.Equal(t, testWallet, outcome.RecipientWallet)
	assert.Equal(t, "@alice", backend.lookedUp)
	assert.Equal(t, "twitter", backend.lookedUpPlatform)
}

func TestResolve_HandleNormalization(t *testing.T) {
	backend := &mockBackend{lookup: &client.WalletLookup{Found: false}}
	r := newTestResolver(backend)

	// "alice" and "@alice" both normalize to "@alice" before lookup.
	r.Resolve(context.Background(), "alice")
	assert.Equal(t, "@alice", backend.lookedUp)

	r.Resolve(context.Background(), "@alice")
	assert.Equal(t, "@alice", backend.lookedUp)
}

func TestResolve_HandleNotFoundSelectsEscrowFlow(t *testing.T) {
	backend := &mockBackend{lookup: &client.WalletLookup{Found: false}}
	r := newTestResolver(backend)

	outcome := r.Resolve(context.Background(), "alice")
	assert.Equal(t, FlowUnlinked, outcome.Flow)
	assert.Equal(t, "@alice", outcome.RecipientWallet)
	assert.Empty(t, outcome.Err)
}

func TestResolve_BackendFailureSurfacesMessage(t *testing.T) {
	backend := &mockBackend{lookupErr: errors.New("connection refused")}
	r := newTestResolver(backend)

	outcome := r.Resolve(context.Background(), "@bob")
	assert.Equal(t, FlowNone, outcome.Flow)
	assert.Equal(t, "connection refused", outcome.Err)
}

func TestResolve_EmptyRecipientRejectedBeforeNetwork(t *testing.T) {
	backend := &mockBackend{lookupErr: errors.New("should not be called")}
	r := newTestResolver(backend)

	outcome := r.Resolve(context.Background(), "   ")
	assert.Equal(t, FlowNone, outcome.Flow)
	assert.Equal(t, "Recipient is empty", outcome.Err)
	assert.Empty(t, backend.lookedUp)
}

func TestResolve_AmbiguousShortStringDegradesToHandle(t *testing.T) {
	backend := &mockBackend{lookup: &client.WalletLookup{Found: false}}
	r := newTestResolver(backend)

	// 30 characters: too short for an address, treated as a handle.
	short := strings.Repeat("a", 30)
	outcome := r.Resolve(context.Background(), short)
	assert.Equal(t, FlowUnlinked, outcome.Flow)
	assert.Equal(t, "@"+short, outcome.RecipientWallet)
}

func TestResolve_ProfileURLExtractsHandle(t *testing.T) {
	backend := &mockBackend{lookup: &client.WalletLookup{Found: true, Wallet: testWallet}}
	r := newTestResolver(backend)

	for _, input := range []string{
		"https://twitter.com/alice",
		"https://x.com/alice/status/1234567890",
		"https://mobile.twitter.com/alice",
	} {
		outcome := r.Resolve(context.Background(), input)
		assert.Equal(t, FlowLinked, outcome.Flow, "input %q", input)
		assert.Equal(t, "@alice", backend.lookedUp, "input %q", input)
	}
}

func TestResolve_InvalidHandleRejectedBeforeNetwork(t *testing.T) {
	backend := &mockBackend{lookupErr: errors.New("should not be called")}
	r := newTestResolver(backend)

	// Over the length cap, disallowed characters, a non-profile host, a
	// site-chrome path, and a bare at-sign: none should reach the backend.
	for _, input := range []string{
		strings.Repeat("a", 31),
		"not a handle!!!",
		"https://example.com/alice",
		"https://twitter.com/home",
		"@",
	} {
		outcome := r.Resolve(context.Background(), input)
		assert.Equal(t, FlowNone, outcome.Flow, "input %q", input)
		assert.Equal(t, "Not a valid social handle", outcome.Err, "input %q", input)
	}
	assert.Empty(t, backend.lookedUp)
}
