// Package social manages the OAuth/PKCE handshake that links a social
// account to a wallet. The handshake is a suspend-and-resume flow driven
// by an external browser: BeginAuth produces the authorization URL and
// the pending verifier, the browser returns an authorization code out of
// band, and CompleteAuth exchanges it through the backend.
package social

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/cypherpunk-labs/handlepay/client"
	"github.com/cypherpunk-labs/handlepay/service/handle"
	"github.com/cypherpunk-labs/handlepay/service/kv"
)

// AuthorizeURL is Twitter's OAuth2 authorization endpoint.
const AuthorizeURL = "https://twitter.com/i/oauth2/authorize"

// CacheKey is the kv key the linked-account snapshot is stored under.
// The snapshot exists for offline display only; the backend remains
// authoritative for resolution.
const CacheKey = "linkedSocialAccount"

// verifierLength is the length of the generated PKCE code verifier.
// RFC 7636 allows 43-128 characters.
const verifierLength = 64

// verifierCharset is the unreserved character set RFC 7636 permits.
const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// LinkedAccount is the durable fact that lets future resolutions for this
// handle return the linked flow.
type LinkedAccount struct {
	Platform        string `json:"platform"`
	Handle          string `json:"handle"`
	WalletAddress   string `json:"walletAddress"`
	Name            string `json:"name,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// AuthRequest is the output of BeginAuth: the URL to open in a browser
// and the PKCE verifier to present at completion.
type AuthRequest struct {
	AuthURL      string
	State        string
	CodeVerifier string
}

// Backend is the subset of the backend client the session needs.
type Backend interface {
	VerifyTwitterAuth(ctx context.Context, code, redirectURL, codeVerifier, walletAddress string) (*client.TwitterVerifyResult, error)
	LinkSocial(ctx context.Context, platform, handle string) error
}

// Session manages one in-flight OAuth exchange. The in-flight state is
// cleared on completion or cancellation; the session owns nothing else.
type Session struct {
	clientID    string
	redirectURL string
	backend     Backend
	cache       kv.Store
	logger      *slog.Logger

	mu      sync.Mutex
	pending *pendingAuth
}

type pendingAuth struct {
	verifier      string
	state         string
	walletAddress string
}

// NewSession creates a link session. The cache store holds the
// display-only linked-account snapshot.
func NewSession(clientID, redirectURL string, backend Backend, cache kv.Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		clientID:    clientID,
		redirectURL: redirectURL,
		backend:     backend,
		cache:       cache,
		logger:      logger,
	}
}

// BeginAuth starts a PKCE authorization: it generates a code verifier and
// state nonce, records them as the in-flight exchange, and returns the
// authorization URL to open externally. Beginning a new auth replaces any
// previous in-flight exchange.
func (s *Session) BeginAuth(walletAddress string) (*AuthRequest, error) {
	verifier, err := randomVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	state, err := randomVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	challenge := sha256.Sum256([]byte(verifier))

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.clientID)
	q.Set("redirect_uri", s.redirectURL)
	q.Set("scope", "tweet.read users.read")
	q.Set("state", state)
	q.Set("code_challenge", base64.RawURLEncoding.EncodeToString(challenge[:]))
	q.Set("code_challenge_method", "S256")

	s.mu.Lock()
	s.pending = &pendingAuth{
		verifier:      verifier,
		state:         state,
		walletAddress: walletAddress,
	}
	s.mu.Unlock()

	s.logger.Debug("began social link auth", "wallet", walletAddress)

	return &AuthRequest{
		AuthURL:      AuthorizeURL + "?" + q.Encode(),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

// CompleteAuth exchanges the authorization code through the backend,
// records the platform/handle link, and caches a display snapshot. The
// in-flight exchange is cleared whether or not the exchange succeeds.
func (s *Session) CompleteAuth(ctx context.Context, code string) (*LinkedAccount, error) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending == nil {
		return nil, fmt.Errorf("no authorization in flight; call BeginAuth first")
	}
	if code == "" {
		return nil, fmt.Errorf("no authorization code received")
	}

	result, err := s.backend.VerifyTwitterAuth(ctx, code, s.redirectURL, pending.verifier, pending.walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to verify with backend: %w", err)
	}

	linkedHandle := handle.Normalize(result.Username)
	if err := s.backend.LinkSocial(ctx, "twitter", linkedHandle); err != nil {
		return nil, fmt.Errorf("failed to record social link: %w", err)
	}

	account := &LinkedAccount{
		Platform:        "twitter",
		Handle:          linkedHandle,
		WalletAddress:   pending.walletAddress,
		Name:            result.Name,
		ProfileImageURL: result.ProfileImageURL,
	}

	s.cacheAccount(ctx, account)

	s.logger.Info("social account linked",
		"platform", account.Platform,
		"handle", account.Handle,
		"wallet", account.WalletAddress,
	)
	return account, nil
}

// Cancel abandons any in-flight exchange.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// InFlight reports whether an authorization is awaiting completion.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// CachedAccount returns the locally cached linked-account snapshot, or
// nil when none exists. Malformed cache data is treated as no data.
func (s *Session) CachedAccount(ctx context.Context) (*LinkedAccount, error) {
	data, err := s.cache.Get(ctx, CacheKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var account LinkedAccount
	if err := json.Unmarshal(data, &account); err != nil {
		s.logger.Warn("cached linked account is malformed, ignoring", "error", err)
		return nil, nil
	}
	return &account, nil
}

// ClearCache removes the linked-account snapshot.
func (s *Session) ClearCache(ctx context.Context) error {
	return s.cache.Delete(ctx, CacheKey)
}

// cacheAccount persists the snapshot; failures are logged and non-fatal
// since the cache is display-only.
func (s *Session) cacheAccount(ctx context.Context, account *LinkedAccount) {
	data, err := json.Marshal(account)
	if err != nil {
		s.logger.Error("failed to encode linked account", "error", err)
		return
	}
	if err := s.cache.Set(ctx, CacheKey, data); err != nil {
		s.logger.Error("failed to cache linked account", "error", err)
	}
}

// randomVerifier generates a PKCE-safe random string.
func randomVerifier() (string, error) {
	buf := make([]byte, verifierLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = verifierCharset[int(b)%len(verifierCharset)]
	}
	return string(buf), nil
}
