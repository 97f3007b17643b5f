package signer

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
type mockRPCClient struct {
	blockhash    solana.Hash
	blockhashErr error

	sentTx  *solana.Transaction
	sendSig solana.Signature
	sendErr error
}

func (m *mockRPCClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if m.blockhashErr != nil {
		return nil, m.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: m.blockhash},
	}, nil
}

func (m *mockRPCClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	m.sentTx = tx
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	return m.sendSig, nil
}

func testTransaction(t *testing.T, payer solana.PublicKey, blockhash solana.Hash) *solana.Transaction {
	t.Helper()

	recipient := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1_000, payer, recipient).Build(),
		},
		blockhash,
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func TestDecodeTransaction_Base64(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	tx := testTransaction(t, payer, solana.Hash{1})

	raw, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	// An unsigned payload is the message preceded by an empty signature list.
	payload := append([]byte{0}, raw...)

	decoded, err := DecodeTransaction(base64.StdEncoding.EncodeToString(payload), EncodingBase64)
	require.NoError(t, err)
	assert.Equal(t, tx.Message.RecentBlockhash, decoded.Message.RecentBlockhash)
	assert.Equal(t, payer, decoded.Message.AccountKeys[0])
}

func TestDecodeTransaction_Base58(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	tx := testTransaction(t, payer, solana.Hash{2})

	raw, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	payload := append([]byte{0}, raw...)

	decoded, err := DecodeTransaction(base58.Encode(payload), EncodingBase58)
	require.NoError(t, err)
	assert.Equal(t, tx.Message.RecentBlockhash, decoded.Message.RecentBlockhash)
}

func TestDecodeTransaction_RejectsGarbage(t *testing.T) {
	_, err := DecodeTransaction("!!!not-base64!!!", EncodingBase64)
	assert.Error(t, err)

	_, err = DecodeTransaction("0OIl", EncodingBase58) // invalid base58 alphabet
	assert.Error(t, err)

	_, err = DecodeTransaction("whatever", Encoding("hex"))
	assert.Error(t, err)
}

func TestSignAndSend(t *testing.T) {
	ctx := context.Background()
	wallet := solana.NewWallet()

	tx := testTransaction(t, wallet.PublicKey(), solana.Hash{3})

	wantSig := solana.Signature{9, 9, 9}
	mock := &mockRPCClient{sendSig: wantSig}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kw := NewKeypairWallet([]solana.PrivateKey{wallet.PrivateKey}, mock, logger)

	sig, err := kw.SignAndSend(ctx, tx, 0)
	require.NoError(t, err)
	assert.Equal(t, wantSig, sig)

	require.NotNil(t, mock.sentTx)
	require.NotEmpty(t, mock.sentTx.Signatures)
	assert.NotEqual(t, solana.Signature{}, mock.sentTx.Signatures[0])
}

func TestSignAndSend_FetchesBlockhashWhenMissing(t *testing.T) {
	ctx := context.Background()
	wallet := solana.NewWallet()

	tx := testTransaction(t, wallet.PublicKey(), solana.Hash{})

	mock := &mockRPCClient{blockhash: solana.Hash{7}, sendSig: solana.Signature{1}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kw := NewKeypairWallet([]solana.PrivateKey{wallet.PrivateKey}, mock, logger)

	_, err := kw.SignAndSend(ctx, tx, 0)
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{7}, tx.Message.RecentBlockhash)
}

func TestSignAndSend_SignerIndexOutOfRange(t *testing.T) {
	wallet := solana.NewWallet()
	tx := testTransaction(t, wallet.PublicKey(), solana.Hash{3})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kw := NewKeypairWallet([]solana.PrivateKey{wallet.PrivateKey}, &mockRPCClient{}, logger)

	_, err := kw.SignAndSend(context.Background(), tx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
