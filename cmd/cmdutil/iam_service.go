package cmdutil

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/config"
	"github.com/terraconstructs/campusapi/internal/db/bunx"
	"github.com/terraconstructs/campusapi/internal/logging"
	"github.com/terraconstructs/campusapi/internal/repository"
	"github.com/terraconstructs/campusapi/internal/services/iam"
	"github.com/terraconstructs/campusapi/internal/telemetry"
)

// IAMServiceOptions controls how the IAM service is constructed.
type IAMServiceOptions struct {
	// EnableGoogle builds the Google relying party when configured. The CLI leaves it
	// off so user management works without provider discovery.
	EnableGoogle bool
	Metrics      *telemetry.Metrics
}

// IAMServiceBundle bundles the service with its underlying resources so callers can
// reuse them and release them together.
type IAMServiceBundle struct {
	Service     iam.Service
	DB          *bun.DB
	Tokens      *auth.TokenIssuer
	Revocations auth.RevocationList

	closers []func() error
}

// Close releases the revocation backend and the database connection.
func (b *IAMServiceBundle) Close() {
	if b == nil {
		return
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
	b.closers = nil
}

// NewIAMServiceBundle centralizes IAM service construction for the server and CLI
// commands. It opens the database, selects the revocation backend and wires every
// authenticator.
func NewIAMServiceBundle(ctx context.Context, cfg *config.Config, opts IAMServiceOptions) (*IAMServiceBundle, error) {
	logger := logging.Component("iam")

	db, err := bunx.NewDB(ctx, cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	bundle := &IAMServiceBundle{DB: db}
	bundle.closers = append(bundle.closers, func() error { return bunx.Close(db) })

	fail := func(err error) (*IAMServiceBundle, error) {
		bundle.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, cfg.Auth.TokenIssuer)
	if err != nil {
		return fail(fmt.Errorf("failed to create token issuer: %w", err))
	}
	bundle.Tokens = tokens

	roles, err := auth.NewRoleResolverFromConfig(cfg.Auth.RoleRules)
	if err != nil {
		return fail(fmt.Errorf("failed to build role rules: %w", err))
	}

	revocations, closeRevocations, err := NewRevocationList(ctx, cfg, db, tokens.TTL())
	if err != nil {
		return fail(err)
	}
	bundle.Revocations = revocations
	if closeRevocations != nil {
		bundle.closers = append(bundle.closers, closeRevocations)
	}

	deps := iam.IAMServiceDependencies{
		Users:       repository.NewBunUserRepository(db),
		Tokens:      tokens,
		Revocations: revocations,
		Roles:       roles,
		Hasher:      auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Metrics:     opts.Metrics,
		Logger:      logger,
	}

	brokerOpts := iam.BrokerOptions{RequireEmail: true, RequireVerifiedEmail: true}
	if google := cfg.Auth.Google; google != nil && opts.EnableGoogle {
		rp, err := auth.NewRelyingParty(ctx, google)
		if err != nil {
			return fail(fmt.Errorf("failed to create google relying party: %w", err))
		}
		deps.Exchanger = rp
		brokerOpts = iam.BrokerOptions{
			RequireEmail:         google.RequireEmail,
			RequireVerifiedEmail: google.RequireVerifiedEmail,
		}
		logger.Info().Str("redirect_uri", google.RedirectURI).Msg("google sign-in enabled")
	}

	svc, err := iam.NewIAMService(deps, iam.IAMServiceConfig{Broker: brokerOpts})
	if err != nil {
		return fail(fmt.Errorf("failed to create IAM service: %w", err))
	}
	bundle.Service = svc

	return bundle, nil
}

// NewRevocationList builds the configured denylist backend. The returned close
// function, when non-nil, releases backend connections.
func NewRevocationList(ctx context.Context, cfg *config.Config, db *bun.DB, tokenTTL time.Duration) (auth.RevocationList, func() error, error) {
	switch cfg.Revocation.Backend {
	case config.RevocationBackendRedis:
		rdb, err := auth.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return auth.NewRedisRevocationList(rdb), rdb.Close, nil
	case config.RevocationBackendDatabase:
		return auth.NewDatabaseRevocationList(repository.NewBunRevokedTokenRepository(db), nil), nil, nil
	case config.RevocationBackendMemory:
		return auth.NewMemoryRevocationList(cfg.Revocation.MemorySize, tokenTTL, nil), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown revocation backend %q", cfg.Revocation.Backend)
	}
}

// Logger returns the CLI logger for a command.
func Logger(command string) zerolog.Logger {
	return logging.Component("cli").With().Str("command", command).Logger()
}
