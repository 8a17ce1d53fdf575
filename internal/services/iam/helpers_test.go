package iam

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/config"
	"github.com/terraconstructs/campusapi/internal/db/models"
	"github.com/terraconstructs/campusapi/internal/repository"
	"github.com/terraconstructs/campusapi/internal/telemetry"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// mockUserRepository is an in-memory UserRepository enforcing the same unique
// constraints as the users table.
type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User // id → user
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: map[string]*models.User{}}
}

func (m *mockUserRepository) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user %s: %w", user.Email, repository.ErrConflict)
		}
		if u.ExternalID != nil && user.ExternalID != nil && *u.ExternalID == *user.ExternalID {
			return fmt.Errorf("create user %s: %w", user.Email, repository.ErrConflict)
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepository) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *mockUserRepository) GetByExternalID(_ context.Context, externalID string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ExternalID != nil && *u.ExternalID == externalID })
}

func (m *mockUserRepository) mutate(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

func (m *mockUserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return m.mutate(id, func(u *models.User) { u.LastLoginAt = &at })
}

func (m *mockUserRepository) SetRole(_ context.Context, id string, role string) error {
	return m.mutate(id, func(u *models.User) { u.Role = role })
}

func (m *mockUserRepository) SetDisabled(_ context.Context, id string, disabled bool) error {
	return m.mutate(id, func(u *models.User) {
		if disabled {
			now := time.Now()
			u.DisabledAt = &now
		} else {
			u.DisabledAt = nil
		}
	})
}

func (m *mockUserRepository) List(_ context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *mockUserRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// fakeExchanger returns canned profiles by authorization code.
type fakeExchanger struct {
	profiles map[string]*auth.ExternalProfile
	errs     map[string]error
	calls    int
}

func (f *fakeExchanger) AuthorizationURL(state string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

func (f *fakeExchanger) Exchange(_ context.Context, code string) (*auth.ExternalProfile, error) {
	f.calls++
	if err, ok := f.errs[code]; ok {
		return nil, err
	}
	if p, ok := f.profiles[code]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: invalid_grant", auth.ErrExchangeRejected)
}

// failingRevocationList simulates an unreachable revocation backend.
type failingRevocationList struct{}

func (failingRevocationList) Revoke(context.Context, string, time.Duration) error {
	return errors.New("connection refused")
}

func (failingRevocationList) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (failingRevocationList) Backend() string { return "redis" }

type testEnv struct {
	svc         Service
	users       *mockUserRepository
	exchanger   *fakeExchanger
	clock       *fakeClock
	tokens      *auth.TokenIssuer
	revocations auth.RevocationList
	metrics     *telemetry.Metrics
}

type envOption func(*IAMServiceDependencies, *IAMServiceConfig)

func withRevocations(list auth.RevocationList) envOption {
	return func(d *IAMServiceDependencies, _ *IAMServiceConfig) { d.Revocations = list }
}

func withBrokerOptions(opts BrokerOptions) envOption {
	return func(_ *IAMServiceDependencies, c *IAMServiceConfig) { c.Broker = opts }
}

func withoutGoogle() envOption {
	return func(d *IAMServiceDependencies, _ *IAMServiceConfig) { d.Exchanger = nil }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	clock := &fakeClock{t: time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour, "", auth.WithClock(clock.Now))
	require.NoError(t, err)
	roles, err := auth.NewRoleResolverFromConfig(config.DefaultRoleRules())
	require.NoError(t, err)

	env := &testEnv{
		users:     newMockUserRepository(),
		exchanger: &fakeExchanger{profiles: map[string]*auth.ExternalProfile{}, errs: map[string]error{}},
		clock:     clock,
		tokens:    tokens,
		metrics:   telemetry.NewMetrics(),
	}

	deps := IAMServiceDependencies{
		Users:       env.users,
		Tokens:      tokens,
		Revocations: auth.NewMemoryRevocationList(100, time.Hour, clock.Now),
		Roles:       roles,
		Hasher:      auth.NewPasswordHasher(bcrypt.MinCost),
		Exchanger:   env.exchanger,
		Metrics:     env.metrics,
		Logger:      zerolog.Nop(),
	}
	cfg := IAMServiceConfig{Broker: BrokerOptions{RequireEmail: true, RequireVerifiedEmail: true}}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}
	env.revocations = deps.Revocations

	env.svc, err = NewIAMService(deps, cfg)
	require.NoError(t, err)
	return env
}

func bearerHeaders(token string) AuthRequest {
	req := AuthRequest{Headers: make(map[string][]string)}
	req.Headers.Set("Authorization", "Bearer "+token)
	return req
}
