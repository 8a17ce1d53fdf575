package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrTokenInvalid covers bad signatures, wrong algorithm or issuer, malformed
	// structure and missing claims.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned once now >= exp.
	ErrTokenExpired = errors.New("token expired")
)

// DefaultTokenIssuer is the iss claim when none is configured.
const DefaultTokenIssuer = "campusapi"

// TokenClaims is the payload of every bearer token.
type TokenClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token and its bookkeeping fields.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	ID        string
}

// TokenIssuer signs and verifies HS256 bearer tokens with a fixed lifetime.
// It holds no mutable state after construction.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// TokenIssuerOption customises a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithClock replaces the time source used for iat, exp and verification.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer creates an issuer. secret must be non-empty and ttl positive.
func NewTokenIssuer(secret string, ttl time.Duration, issuer string, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if issuer == "" {
		issuer = DefaultTokenIssuer
	}

	t := &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Now returns the issuer's current time.
func (t *TokenIssuer) Now() time.Time { return t.now() }

// Issue signs a token for the given principal attributes.
func (t *TokenIssuer) Issue(id, email string, role Role) (IssuedToken, error) {
	if id == "" {
		return IssuedToken{}, errors.New("issue token: principal id is required")
	}
	if !role.Valid() {
		return IssuedToken{}, fmt.Errorf("issue token: invalid role %q", role)
	}

	now := t.now().Truncate(time.Second)
	exp := now.Add(t.ttl)
	jti := ulid.Make().String()

	claims := TokenClaims{
		ID:    id,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Token: signed, ExpiresAt: exp, ID: jti}, nil
}

// Verify checks signature, algorithm, issuer and expiry and returns the claims.
// Failures are ErrTokenExpired or ErrTokenInvalid, wrapping the parser error.
func (t *TokenIssuer) Verify(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, t.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.ID == "" || claims.Subject != claims.ID || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: missing or inconsistent principal claims", ErrTokenInvalid)
	}
	return claims, nil
}

func (t *TokenIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	return t.secret, nil
}

// classifyTokenError reports expiry only when nothing else is wrong with the token.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

// RemainingLifetime is how long a token with the given expiry stays usable at now.
func RemainingLifetime(expiresAt, now time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	return expiresAt.Sub(now)
}
