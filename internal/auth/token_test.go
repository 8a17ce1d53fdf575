package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestIssuer(t *testing.T, clock *fakeClock) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret", time.Hour, "campusapi", WithClock(clock.Now))
	require.NoError(t, err)
	return issuer
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	issued, err := issuer.Issue("user-1", "a@staff.edu", RoleStaff)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(time.Hour), issued.ExpiresAt)
	assert.Len(t, issued.ID, 26, "jti is a ULID")

	claims, err := issuer.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.ID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@staff.edu", claims.Email)
	assert.Equal(t, RoleStaff, claims.Role)
	assert.Equal(t, issued.ID, claims.RegisteredClaims.ID)
	assert.Equal(t, "campusapi", claims.Issuer)
	assert.Equal(t, clock.t, claims.IssuedAt.Time.UTC())
}

func TestTokenIssuer_UniqueIDs(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	issuer := newTestIssuer(t, clock)

	a, err := issuer.Issue("u", "u@x.edu", RoleStudent)
	require.NoError(t, err)
	b, err := issuer.Issue("u", "u@x.edu", RoleStudent)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Token, b.Token)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	issued, err := issuer.Issue("user-1", "a@b.edu", RoleStudent)
	require.NoError(t, err)

	clock.Advance(time.Hour - time.Second)
	_, err = issuer.Verify(issued.Token)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = issuer.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired, "now == exp is expired")

	clock.Advance(24 * time.Hour)
	_, err = issuer.Verify(issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenIssuer_Invalid(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	issued, err := issuer.Issue("user-1", "a@b.edu", RoleAdmin)
	require.NoError(t, err)

	other, err := NewTokenIssuer("other-secret", time.Hour, "campusapi", WithClock(clock.Now))
	require.NoError(t, err)
	foreign, err := other.Issue("user-1", "a@b.edu", RoleAdmin)
	require.NoError(t, err)

	wrongIssuer, err := NewTokenIssuer("test-secret", time.Hour, "someone-else", WithClock(clock.Now))
	require.NoError(t, err)
	misissued, err := wrongIssuer.Issue("user-1", "a@b.edu", RoleAdmin)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{
		ID: "user-1", Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "campusapi", Subject: "user-1",
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		ID: "user-1", Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "campusapi", Subject: "user-1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":          "not-a-token",
		"empty":            "",
		"wrong secret":     foreign.Token,
		"wrong issuer":     misissued.Token,
		"tampered payload": tampered,
		"alg none":         noneToken,
		"missing exp":      noExp,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Verify(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.NotErrorIs(t, err, ErrTokenExpired)
		})
	}
}

func TestTokenIssuer_ExpiredWithBadSignatureIsInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	other, err := NewTokenIssuer("other-secret", time.Hour, "campusapi", WithClock(clock.Now))
	require.NoError(t, err)
	foreign, err := other.Issue("user-1", "a@b.edu", RoleAdmin)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = issuer.Verify(foreign.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour, "")
	assert.Error(t, err)

	_, err = NewTokenIssuer("s", 0, "")
	assert.Error(t, err)

	issuer, err := NewTokenIssuer("s", time.Minute, "")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, issuer.TTL())

	_, err = issuer.Issue("", "a@b.edu", RoleStudent)
	assert.Error(t, err)
	_, err = issuer.Issue("id", "a@b.edu", RoleAnonymous)
	assert.Error(t, err)
}
