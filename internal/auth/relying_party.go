package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	httphelper "github.com/zitadel/oidc/v3/pkg/http"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"

	"github.com/terraconstructs/campusapi/internal/config"
)

// GoogleIssuer is Google's OpenID Connect issuer.
const GoogleIssuer = "https://accounts.google.com"

// StateCookieName holds the encrypted OAuth2 state between redirect and callback.
const StateCookieName = "campus.oauth_state"

var (
	// ErrExchangeRejected means the provider refused the grant or returned an ID token
	// that failed verification.
	ErrExchangeRejected = errors.New("authorization code rejected by provider")
	// ErrProviderUnavailable means the provider could not be reached in time.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrStateMismatch means the callback state does not match the cookie.
	ErrStateMismatch = errors.New("oauth state mismatch")
)

// ProfileExchanger turns an authorization code into a verified external profile.
type ProfileExchanger interface {
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalProfile, error)
}

// RelyingParty handles the Google authorization code flow by wrapping the
// zitadel/oidc RelyingParty implementation.
type RelyingParty struct {
	rp      rp.RelyingParty
	timeout time.Duration
}

// NewRelyingParty runs OIDC discovery against the configured issuer and returns a
// relying party for the authorization code flow. PKCE is not used; the client is
// confidential.
func NewRelyingParty(ctx context.Context, cfg *config.GoogleConfig) (*RelyingParty, error) {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = GoogleIssuer
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail}
	}

	options := []rp.Option{
		rp.WithVerifierOpts(rp.WithIssuedAtMaxAge(10 * time.Minute)),
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx, issuer, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI,
		scopes, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC relying party: %w", err)
	}

	timeout := cfg.ExchangeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RelyingParty{rp: relyingParty, timeout: timeout}, nil
}

// AuthorizationURL returns the provider authorization endpoint URL for state.
func (r *RelyingParty) AuthorizationURL(state string) string {
	return rp.AuthURL(state, r.rp)
}

// Exchange redeems code, verifies the ID token and decodes its profile claims.
func (r *RelyingParty) Exchange(ctx context.Context, code string) (*ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, r.rp)
	if err != nil {
		return nil, classifyExchangeError(ctx, err)
	}
	if tokens.IDTokenClaims == nil {
		return nil, fmt.Errorf("%w: no id token in response", ErrExchangeRejected)
	}

	raw, err := json.Marshal(tokens.IDTokenClaims)
	if err != nil {
		return nil, fmt.Errorf("encode id token claims: %w", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	return DecodeProfile(claims)
}

func classifyExchangeError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrExchangeRejected, err)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrExchangeRejected, err)
}

// StateStore keeps the OAuth2 state in an encrypted, short-lived cookie so the
// server holds no per-login state.
type StateStore struct {
	cookies *httphelper.CookieHandler
}

// NewStateStore derives the cookie hash and encryption keys from key. An empty key
// yields random keys, which invalidates in-flight logins on restart.
func NewStateStore(key string, secure bool) (*StateStore, error) {
	var hashKey, cryptoKey []byte
	if key == "" {
		var err error
		if hashKey, err = generateRandomBytes(32); err != nil {
			return nil, fmt.Errorf("failed to generate cookie hash key: %w", err)
		}
		if cryptoKey, err = generateRandomBytes(32); err != nil {
			return nil, fmt.Errorf("failed to generate cookie crypto key: %w", err)
		}
	} else {
		h := sha256.Sum256([]byte("hash:" + key))
		c := sha256.Sum256([]byte("crypto:" + key))
		hashKey, cryptoKey = h[:], c[:]
	}

	opts := []httphelper.CookieHandlerOpt{httphelper.WithMaxAge(600)}
	if !secure {
		opts = append(opts, httphelper.WithUnsecure())
	}
	return &StateStore{cookies: httphelper.NewCookieHandler(hashKey, cryptoKey, opts...)}, nil
}

// SecureCookiesFor reports whether cookies for the given redirect URI need the Secure flag.
func SecureCookiesFor(redirectURI string) bool {
	return strings.HasPrefix(strings.ToLower(redirectURI), "https://")
}

// Begin generates a fresh state value and writes it to the state cookie.
func (s *StateStore) Begin(w http.ResponseWriter) (string, error) {
	state, err := GenerateNonce()
	if err != nil {
		return "", err
	}
	if err := s.cookies.SetCookie(w, StateCookieName, state); err != nil {
		return "", fmt.Errorf("set state cookie: %w", err)
	}
	return state, nil
}

// Verify checks state against the cookie and clears it.
func (s *StateStore) Verify(w http.ResponseWriter, r *http.Request, state string) error {
	stored, err := s.cookies.CheckCookie(r, StateCookieName)
	s.cookies.DeleteCookie(w, StateCookieName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStateMismatch, err)
	}
	if state == "" || stored != state {
		return ErrStateMismatch
	}
	return nil
}

// generateRandomBytes creates a slice of random bytes of a specified size.
func generateRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	_, err := io.ReadFull(rand.Reader, b)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateNonce generates a random nonce string.
func GenerateNonce() (string, error) {
	b, err := generateRandomBytes(32)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
