// Package txbuild requests unsigned transactions from the backend for the
// three send flows: direct transfer, escrow deposit, and escrow claim.
// The encoded payloads are opaque here; no client-side validation of
// amounts or destinations happens before signing.
package txbuild

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/cypherpunk-labs/handlepay/service/signer"
)

// Backend is the subset of the backend client the builder needs.
type Backend interface {
	BuildTransferTransaction(ctx context.Context, senderWallet, recipientWallet, mint string, amount int64) (string, error)
	BuildEscrowDepositTransaction(ctx context.Context, senderWallet, socialHandle, mint string, amount int64) (string, error)
	BuildClaimTransaction(ctx context.Context, socialHandle string) (string, error)
}

// UnsignedTransaction is an encoded transaction payload together with the
// encoding its builder used, ready for the signing adapter.
type UnsignedTransaction struct {
	Payload  string
	Encoding signer.Encoding
}

// Decode deserializes the payload for signing.
func (u *UnsignedTransaction) Decode() (*solana.Transaction, error) {
	return signer.DecodeTransaction(u.Payload, u.Encoding)
}

// Builder constructs build requests appropriate to a resolved flow.
type Builder struct {
	backend Backend
	mint    string
	logger  *slog.Logger
}

// NewBuilder creates a builder for the given token mint.
func NewBuilder(backend Backend, mint string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{backend: backend, mint: mint, logger: logger}
}

// BuildDirect requests an unsigned transaction transferring amount base
// units from the sender to a resolved recipient wallet.
func (b *Builder) BuildDirect(ctx context.Context, senderWallet, recipientWallet string, amount int64) (*UnsignedTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	payload, err := b.backend.BuildTransferTransaction(ctx, senderWallet, recipientWallet, b.mint, amount)
	if err != nil {
		return nil, err
	}

	b.logger.DebugContext(ctx, "built direct transfer transaction",
		"sender", senderWallet,
		"recipient", recipientWallet,
		"amount", amount,
	)
	return &UnsignedTransaction{Payload: payload, Encoding: signer.EncodingBase64}, nil
}

// BuildEscrowDeposit requests an unsigned transaction depositing amount
// base units into the escrow keyed by an unlinked handle.
func (b *Builder) BuildEscrowDeposit(ctx context.Context, senderWallet, socialHandle string, amount int64) (*UnsignedTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	payload, err := b.backend.BuildEscrowDepositTransaction(ctx, senderWallet, socialHandle, b.mint, amount)
	if err != nil {
		return nil, err
	}

	b.logger.DebugContext(ctx, "built escrow deposit transaction",
		"sender", senderWallet,
		"handle", socialHandle,
		"amount", amount,
	)
	return &UnsignedTransaction{Payload: payload, Encoding: signer.EncodingBase64}, nil
}

// BuildClaim requests an unsigned transaction transferring escrowed funds
// to the wallet now linked to the handle. The caller must already hold a
// wallet session proving control of the handle.
func (b *Builder) BuildClaim(ctx context.Context, socialHandle string) (*UnsignedTransaction, error) {
	payload, err := b.backend.BuildClaimTransaction(ctx, socialHandle)
	if err != nil {
		return nil, err
	}

	b.logger.DebugContext(ctx, "built escrow claim transaction", "handle", socialHandle)
	return &UnsignedTransaction{Payload: payload, Encoding: signer.EncodingBase58}, nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d base units", amount)
	}
	return nil
}
