package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/terraconstructs/campusapi/internal/apperr"
	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/db/bunx"
	"github.com/terraconstructs/campusapi/internal/db/models"
	"github.com/terraconstructs/campusapi/internal/repository"
	"github.com/terraconstructs/campusapi/internal/telemetry"
)

const tracerName = "campusapi/services/iam"

// Login methods used as metric labels.
const (
	MethodPassword = "password"
	MethodGoogle   = "google"
	MethodSignup   = "signup"
)

// iamService implements the Service interface.
//
// It coordinates the credential store, the token issuer, the revocation list and
// the authenticator implementations.
type iamService struct {
	users       repository.UserRepository
	tokens      *auth.TokenIssuer
	revocations auth.RevocationList
	roles       *auth.RoleResolver
	hasher      *auth.PasswordHasher
	metrics     *telemetry.Metrics
	logger      zerolog.Logger

	password *PasswordAuthenticator
	broker   *IdentityBroker // nil when Google is not configured
	bearer   *BearerAuthenticator
}

// IAMServiceDependencies contains all dependencies for IAM service construction.
type IAMServiceDependencies struct {
	Users       repository.UserRepository
	Tokens      *auth.TokenIssuer
	Revocations auth.RevocationList
	Roles       *auth.RoleResolver
	Hasher      *auth.PasswordHasher
	// Exchanger is nil when Google sign-in is disabled.
	Exchanger auth.ProfileExchanger
	Metrics   *telemetry.Metrics
	Logger    zerolog.Logger
}

// IAMServiceConfig contains configuration for IAM service construction.
// Separated from dependencies to clearly distinguish config from runtime dependencies.
type IAMServiceConfig struct {
	Broker BrokerOptions
}

// NewIAMService creates a new IAM service with all dependencies.
func NewIAMService(deps IAMServiceDependencies, cfg IAMServiceConfig) (Service, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("iam: user repository is required")
	case deps.Tokens == nil:
		return nil, errors.New("iam: token issuer is required")
	case deps.Revocations == nil:
		return nil, errors.New("iam: revocation list is required")
	case deps.Roles == nil:
		return nil, errors.New("iam: role resolver is required")
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewPasswordHasher(auth.DefaultBcryptCost)
	}

	svc := &iamService{
		users:       deps.Users,
		tokens:      deps.Tokens,
		revocations: deps.Revocations,
		roles:       deps.Roles,
		hasher:      deps.Hasher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		password:    NewPasswordAuthenticator(deps.Users, deps.Hasher),
		bearer:      NewBearerAuthenticator(deps.Tokens, deps.Revocations, deps.Metrics),
	}
	if deps.Exchanger != nil {
		svc.broker = NewIdentityBroker(deps.Exchanger, deps.Users, deps.Roles, cfg.Broker, deps.Logger)
	}
	return svc, nil
}

// =========================================================================
// Sign-up and sign-in
// =========================================================================

func (s *iamService) Signup(ctx context.Context, in SignupInput) (result *AuthResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Signup",
		attribute.String(telemetry.AttrAuthMethod, MethodSignup),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	email := auth.NormalizeEmail(in.Email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, invalidEmail(err)
	}

	resolved := s.roles.Resolve(email)
	role := resolved
	if in.Role != "" {
		requested, err := auth.ParseRole(in.Role)
		if err != nil {
			return nil, ErrInvalidRole.WithCause(err)
		}
		if !resolved.AtLeast(requested) {
			return nil, ErrRoleNotAllowed
		}
		role = requested
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.metrics.RecordLogin(MethodSignup, telemetry.OutcomeFailure)
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	principal, err := s.createLocal(ctx, email, in.Password, in.Name, role)
	if err != nil {
		s.metrics.RecordLogin(MethodSignup, telemetry.OutcomeFailure)
		return nil, err
	}
	telemetry.AddEvent(span, "principal.created",
		attribute.String(telemetry.AttrPrincipalID, principal.ID),
		attribute.String(telemetry.AttrPrincipalRole, string(principal.Role)),
	)

	result, err = s.issue(principal)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLogin(MethodSignup, telemetry.OutcomeSuccess)
	return result, nil
}

func (s *iamService) Login(ctx context.Context, email, password string) (result *AuthResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Login",
		attribute.String(telemetry.AttrAuthMethod, MethodPassword),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	principal, err := s.password.Authenticate(ctx, AuthRequest{
		Password: &PasswordCredentials{Email: email, Password: password},
	})
	if err != nil {
		s.metrics.RecordLogin(MethodPassword, outcomeOf(err))
		return nil, err
	}

	return s.completeLogin(ctx, principal, MethodPassword)
}

func (s *iamService) GoogleEnabled() bool {
	return s.broker != nil
}

func (s *iamService) AuthorizationURL(state string) (string, error) {
	if s.broker == nil {
		return "", ErrGoogleDisabled
	}
	return s.broker.AuthorizationURL(state), nil
}

func (s *iamService) CompleteExternalLogin(ctx context.Context, code string) (result *AuthResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.CompleteExternalLogin",
		attribute.String(telemetry.AttrAuthMethod, MethodGoogle),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if s.broker == nil {
		return nil, ErrGoogleDisabled
	}
	if code == "" {
		return nil, ErrProviderRejected.WithCause(errors.New("missing authorization code"))
	}

	principal, err := s.broker.Authenticate(ctx, AuthRequest{AuthorizationCode: code})
	if err != nil {
		s.metrics.RecordLogin(MethodGoogle, outcomeOf(err))
		return nil, err
	}

	return s.completeLogin(ctx, principal, MethodGoogle)
}

// completeLogin records the sign-in and issues the token.
func (s *iamService) completeLogin(ctx context.Context, principal *Principal, method string) (*AuthResult, error) {
	if err := s.users.UpdateLastLogin(ctx, principal.ID, s.tokens.Now()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", principal.ID).Msg("failed to record last login")
	}

	result, err := s.issue(principal)
	if err != nil {
		s.metrics.RecordLogin(method, telemetry.OutcomeError)
		return nil, err
	}
	s.metrics.RecordLogin(method, telemetry.OutcomeSuccess)
	return result, nil
}

func (s *iamService) issue(principal *Principal) (*AuthResult, error) {
	issued, err := s.tokens.Issue(principal.ID, principal.Email, principal.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Principal: principal,
	}, nil
}

// =========================================================================
// Authentication
// =========================================================================

func (s *iamService) AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error) {
	return s.bearer.Authenticate(ctx, req)
}

// =========================================================================
// Revocation
// =========================================================================

func (s *iamService) Logout(ctx context.Context, principal *Principal) (err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Logout")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if principal == nil || principal.Token == "" {
		return ErrAuthenticationRequired
	}
	span.SetAttributes(attribute.String(telemetry.AttrTokenID, principal.TokenID))

	return s.revoke(auth.WithRevocationReason(ctx, "logout"), principal.Token, principal.ExpiresAt)
}

func (s *iamService) RevokeToken(ctx context.Context, token string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.RevokeToken")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	claims, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil
		}
		return ErrTokenNotIssued.WithCause(err)
	}
	span.SetAttributes(attribute.String(telemetry.AttrTokenID, claims.RegisteredClaims.ID))

	return s.revoke(auth.WithRevocationReason(ctx, "admin"), token, claims.ExpiresAt.Time)
}

func (s *iamService) revoke(ctx context.Context, token string, expiresAt time.Time) error {
	remaining := auth.RemainingLifetime(expiresAt, s.tokens.Now())
	if err := s.revocations.Revoke(ctx, token, remaining); err != nil {
		return apperr.Internal(fmt.Errorf("revoke token (%s): %w", s.revocations.Backend(), err))
	}
	if remaining > 0 {
		s.metrics.RecordRevocation(s.revocations.Backend())
	}
	return nil
}

func (s *iamService) RevocationBackend() string {
	return s.revocations.Backend()
}

// =========================================================================
// Principal management
// =========================================================================

func (s *iamService) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	principal, err := principalFromUser(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return principal, nil
}

func (s *iamService) CreateUser(ctx context.Context, in CreateUserInput) (*Principal, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, invalidEmail(err)
	}
	role := in.Role
	if role == "" {
		role = s.roles.Resolve(email)
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.createLocal(ctx, email, in.Password, in.Name, role)
}

func (s *iamService) createLocal(ctx context.Context, email, password, name string, role auth.Role) (*Principal, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		ID:           bunx.NewUUIDv7(),
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
		Role:         string(role),
		Provider:     string(auth.ProviderLocal),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Msg("created local principal")

	return principalFromUser(user)
}

func (s *iamService) SetRole(ctx context.Context, email string, role auth.Role) (*Principal, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRole(ctx, user.ID, string(role)); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("from", user.Role).
		Str("to", string(role)).
		Msg("changed principal role")

	user.Role = string(role)
	return principalFromUser(user)
}

func (s *iamService) SetDisabled(ctx context.Context, email string, disabled bool) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.users.SetDisabled(ctx, user.ID, disabled); err != nil {
		return apperr.Internal(err)
	}
	s.logger.Info().Str("user_id", user.ID).Bool("disabled", disabled).Msg("changed principal status")
	return nil
}

func (s *iamService) ListUsers(ctx context.Context) ([]*Principal, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	principals := make([]*Principal, 0, len(users))
	for _, u := range users {
		p, err := principalFromUser(u)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		principals = append(principals, p)
	}
	return principals, nil
}

func (s *iamService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

func invalidEmail(err error) error {
	return apperr.Validation(ErrInvalidEmail.Message, apperr.FieldError{Field: "email", Message: err.Error()}).WithCause(err)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrAccountDisabled):
		return telemetry.OutcomeDisabled
	case apperr.IsKind(err, apperr.KindInternal), errors.Is(err, ErrProviderUnavailable):
		return telemetry.OutcomeError
	default:
		return telemetry.OutcomeFailure
	}
}
