// Package client is the HTTP client for the payments backend. The backend
// resolves social handles to wallets, builds unsigned transactions for the
// direct, escrow-deposit, and escrow-claim flows, and exchanges OAuth
// authorization codes during social-account linking.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cypherpunk-labs/handlepay/service/metrics"
)

// LinkedSocials describes the social accounts linked to a wallet.
type LinkedSocials struct {
	Linked  bool    `json:"linked"`
	Socials Socials `json:"socials,omitempty"`
}

// Socials holds the per-platform handles linked to a wallet.
type Socials struct {
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// WalletLookup is the result of resolving a handle to a wallet.
type WalletLookup struct {
	Found  bool   `json:"found"`
	Wallet string `json:"wallet,omitempty"`
}

// PendingClaim is the aggregate of all unclaimed escrow deposits
// addressed to one handle.
type PendingClaim struct {
	Handle       string `json:"handle"`
	Amount       int64  `json:"amount"`
	PaymentCount int    `json:"paymentCount"`
	Claimed      bool   `json:"claimed"`
}

// Payment is one itemized escrow deposit from the payment history.
type Payment struct {
	Sender    string `json:"sender"`
	Amount    int64  `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

// TwitterVerifyResult is the profile returned after a successful OAuth
// code exchange.
type TwitterVerifyResult struct {
	Username        string `json:"username"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// Client is the HTTP client for the payments backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new backend client. If metrics is nil, no metrics
// are recorded.
func NewClient(baseURL string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
	}
}

// GetLinkedSocials reports which social accounts are linked to a wallet.
func (c *Client) GetLinkedSocials(ctx context.Context, wallet string) (*LinkedSocials, error) {
	u := fmt.Sprintf("%s/api/social/get?wallet=%s", c.baseURL, url.QueryEscape(wallet))

	var out LinkedSocials
	if err := c.getJSON(ctx, "social/get", u, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched linked socials", "wallet", wallet, "linked", out.Linked)
	return &out, nil
}

// FindWalletByHandle resolves a social handle to a linked wallet address.
// A not-found result is not an error; check Found on the returned lookup.
func (c *Client) FindWalletByHandle(ctx context.Context, handle, platform string) (*WalletLookup, error) {
	u := fmt.Sprintf("%s/api/social/find-wallet?handle=%s&platform=%s",
		c.baseURL, url.QueryEscape(handle), url.QueryEscape(platform))

	var out WalletLookup
	if err := c.getJSON(ctx, "social/find-wallet", u, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("resolved handle", "handle", handle, "found", out.Found)
	return &out, nil
}

// LinkSocial records a platform/handle pair for the authenticated wallet.
func (c *Client) LinkSocial(ctx context.Context, platform, handle string) error {
	body := map[string]string{
		"platform": platform,
		"handle":   handle,
	}
	if err := c.postJSON(ctx, "social/link", c.baseURL+"/api/social/link", body, nil); err != nil {
		return err
	}

	c.logger.Debug("social account linked", "platform", platform, "handle", handle)
	return nil
}

// VerifyTwitterAuth exchanges an OAuth authorization code (plus its PKCE
// verifier) for the linked Twitter profile. The token exchange itself
// happens on the backend so client credentials never leave the server.
func (c *Client) VerifyTwitterAuth(ctx context.Context, code, redirectURL, codeVerifier, walletAddress string) (*TwitterVerifyResult, error) {
	body := map[string]string{
		"code":          code,
		"redirectUrl":   redirectURL,
		"codeVerifier":  codeVerifier,
		"walletAddress": walletAddress,
	}

	var out TwitterVerifyResult
	if err := c.postJSON(ctx, "social/twitter/verify", c.baseURL+"/api/social/twitter/verify", body, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("twitter auth verified", "username", out.Username)
	return &out, nil
}

// BuildTransferTransaction asks the backend for an unsigned transaction
// transferring base units of the mint directly to a resolved wallet.
// The returned payload is base64-encoded and opaque to this client.
func (c *Client) BuildTransferTransaction(ctx context.Context, senderWallet, recipientWallet, mint string, amount int64) (string, error) {
	body := map[string]any{
		"senderWallet":    senderWallet,
		"recipientWallet": recipientWallet,
		"mint":            mint,
		"amount":          amount,
	}
	return c.buildTransaction(ctx, "tokens/build-transaction", c.baseURL+"/api/tokens/build-transaction", body, "Failed to build transaction")
}

// BuildEscrowDepositTransaction asks the backend for an unsigned
// transaction depositing base units into the escrow keyed by an unlinked
// social handle. The returned payload is base64-encoded.
func (c *Client) BuildEscrowDepositTransaction(ctx context.Context, senderWallet, socialHandle, mint string, amount int64) (string, error) {
	body := map[string]any{
		"senderWallet": senderWallet,
		"socialHandle": socialHandle,
		"mint":         mint,
		"amount":       amount,
	}
	return c.buildTransaction(ctx, "tokens/build-unlinked-transaction", c.baseURL+"/api/tokens/build-unlinked-transaction", body, "Failed to build transaction")
}

// BuildClaimTransaction asks the backend for an unsigned transaction that
// moves escrowed funds to the wallet now linked to the handle and marks
// the claim consumed. The returned payload is base58-encoded.
func (c *Client) BuildClaimTransaction(ctx context.Context, socialHandle string) (string, error) {
	body := map[string]any{
		"socialHandle": socialHandle,
	}
	return c.buildTransaction(ctx, "tokens/build-claim-transaction", c.baseURL+"/api/tokens/build-claim-transaction", body, "Failed to build claim transaction")
}

// PendingClaims fetches the aggregate unclaimed escrow balance for a handle.
func (c *Client) PendingClaims(ctx context.Context, handle string) (*PendingClaim, error) {
	u := fmt.Sprintf("%s/api/tokens/pending-claims?handle=%s", c.baseURL, url.QueryEscape(handle))

	var out PendingClaim
	if err := c.getJSON(ctx, "tokens/pending-claims", u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentHistory fetches the itemized escrow deposits for a handle.
// Read-only; it has no effect on claim state.
func (c *Client) PaymentHistory(ctx context.Context, handle string) ([]Payment, error) {
	u := fmt.Sprintf("%s/api/tokens/payment-history?handle=%s", c.baseURL, url.QueryEscape(handle))

	var out struct {
		Payments []Payment `json:"payments"`
	}
	if err := c.getJSON(ctx, "tokens/payment-history", u, &out); err != nil {
		return nil, err
	}
	return out.Payments, nil
}

// buildTransaction POSTs a build request and extracts the encoded
// transaction payload from the response. When the error body is
// unparseable, fallback stands in for the backend's message.
func (c *Client) buildTransaction(ctx context.Context, endpoint, u string, body map[string]any, fallback string) (string, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Transaction string `json:"transaction"`
	}
	if err := c.doWithFallback(req, endpoint, &out, fallback); err != nil {
		return "", err
	}
	if out.Transaction == "" {
		return "", fmt.Errorf("backend returned an empty transaction payload")
	}
	return out.Transaction, nil
}

// getJSON performs a GET request and decodes a JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

// postJSON performs a POST request with a JSON body and decodes a JSON
// response into out (out may be nil when the body is irrelevant).
func (c *Client) postJSON(ctx context.Context, endpoint, u string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

func (c *Client) do(req *http.Request, endpoint string, out any) error {
	return c.doWithFallback(req, endpoint, out, "")
}

func (c *Client) doWithFallback(req *http.Request, endpoint string, out any, fallback string) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil || (resp != nil && resp.StatusCode >= 400) {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordAPICall(endpoint, status, duration)
	}

	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseErrorResponse(resp, fallback)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the backend,
// surfacing the backend's message verbatim when one is present. When the
// body is unparseable, the fallback message is used if the caller supplied
// one.
func (c *Client) parseErrorResponse(resp *http.Response, fallback string) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		if fallback != "" {
			return fmt.Errorf("%s", fallback)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("%s", errResp.Error)
}
