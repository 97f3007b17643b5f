// Package signer decodes the backend's encoded transaction payloads and
// hands them to a wallet for signing and submission. Each submission is a
// single attempt: build and sign calls are not idempotent and must never
// be silently retried.
package signer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
)

// Encoding identifies the binary-to-text encoding of a transaction
// payload. The direct and escrow-deposit builders return base64; the
// claim builder returns base58.
type Encoding string

const (
	EncodingBase58 Encoding = "base58"
	EncodingBase64 Encoding = "base64"
)

// ErrSigningRejected indicates the user (or wallet policy) declined to
// sign. Callers surface this distinctly from network failures and must
// not record anything in history.
var ErrSigningRejected = errors.New("signing rejected")

// DecodeTransaction decodes an encoded payload into a transaction ready
// for signing.
func DecodeTransaction(payload string, enc Encoding) (*solana.Transaction, error) {
	var raw []byte
	var err error

	switch enc {
	case EncodingBase58:
		raw, err = base58.Decode(payload)
	case EncodingBase64:
		raw, err = base64.StdEncoding.DecodeString(payload)
	default:
		return nil, fmt.Errorf("unsupported transaction encoding %q", enc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s transaction payload: %w", enc, err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize transaction: %w", err)
	}
	return tx, nil
}

// Wallet signs a transaction with the signer at the given index and
// submits it, returning the submitted transaction's signature. Index 0 is
// the default signer in all current flows; other indexes support
// multi-account wallets.
type Wallet interface {
	SignAndSend(ctx context.Context, tx *solana.Transaction, signerIndex int) (solana.Signature, error)
}

// RPCClient is the subset of the Solana RPC surface the keypair wallet
// needs. This allows mocking the RPC layer in tests without hitting real
// Solana nodes.
type RPCClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)

	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// KeypairWallet signs with locally held keypairs and submits through a
// Solana RPC node.
type KeypairWallet struct {
	keys   []solana.PrivateKey
	rpc    RPCClient
	logger *slog.Logger
}

// NewKeypairWallet creates a wallet over the given keypairs.
func NewKeypairWallet(keys []solana.PrivateKey, rpcClient RPCClient, logger *slog.Logger) *KeypairWallet {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeypairWallet{keys: keys, rpc: rpcClient, logger: logger}
}

// NewKeypairWalletFromFile loads a single keypair from a solana-keygen
// JSON file.
func NewKeypairWalletFromFile(path string, rpcClient RPCClient, logger *slog.Logger) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return NewKeypairWallet([]solana.PrivateKey{key}, rpcClient, logger), nil
}

// Address returns the public key of the signer at the given index.
func (w *KeypairWallet) Address(signerIndex int) (solana.PublicKey, error) {
	if signerIndex < 0 || signerIndex >= len(w.keys) {
		return solana.PublicKey{}, fmt.Errorf("signer index %d out of range (have %d signers)", signerIndex, len(w.keys))
	}
	return w.keys[signerIndex].PublicKey(), nil
}

// SignAndSend signs the transaction with the selected keypair and submits
// it. One attempt, no retry; failures propagate to the caller.
func (w *KeypairWallet) SignAndSend(ctx context.Context, tx *solana.Transaction, signerIndex int) (solana.Signature, error) {
	if signerIndex < 0 || signerIndex >= len(w.keys) {
		return solana.Signature{}, fmt.Errorf("signer index %d out of range (have %d signers)", signerIndex, len(w.keys))
	}
	key := w.keys[signerIndex]

	// The backend normally embeds a recent blockhash in the built
	// transaction; fetch one only when it is missing.
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		result, err := w.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to fetch recent blockhash: %w", err)
		}
		tx.Message.RecentBlockhash = result.Value.Blockhash
	}

	_, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if pub.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := w.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.logger.InfoContext(ctx, "transaction submitted",
		"signature", sig.String(),
		"signer", key.PublicKey().String(),
	)
	return sig, nil
}
