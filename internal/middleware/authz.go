package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/casbin/casbin/v2"
	"github.com/rs/zerolog/hlog"

	"github.com/terraconstructs/campusapi/internal/apperr"
	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/services/iam"
)

// RequireRoles admits principals whose role is one of roles. It must run after the
// auth gate: no principal → 401, role outside the set → 403.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := slices.Clone(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.GetUserFromContext(r.Context())
			if !ok || principal.ID == "" {
				apperr.Write(w, r, iam.ErrAuthenticationRequired)
				return
			}
			if !slices.Contains(allowed, principal.Role) {
				apperr.Write(w, r, iam.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewPolicyGuard enforces the casbin route table for every request.
// Subject is the principal role (anonymous without one), object the request path and
// action the HTTP method.
func NewPolicyGuard(enforcer casbin.IEnforcer) (func(http.Handler) http.Handler, error) {
	if enforcer == nil {
		return nil, errors.New("policy guard requires casbin enforcer")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var subject *auth.AuthenticatedPrincipal
			if principal, ok := auth.GetUserFromContext(r.Context()); ok && principal.ID != "" {
				subject = &principal
			}

			allowed, err := enforcer.Enforce(auth.PolicySubject(subject), r.URL.Path, r.Method)
			if err != nil {
				apperr.Write(w, r, apperr.Internal(fmt.Errorf("enforce policy for %s %s: %w", r.Method, r.URL.Path, err)))
				return
			}
			if !allowed {
				hlog.FromRequest(r).Debug().
					Str("subject", auth.PolicySubject(subject)).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("policy denied request")
				if subject == nil {
					apperr.Write(w, r, iam.ErrAuthenticationRequired)
				} else {
					apperr.Write(w, r, iam.ErrForbidden)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
