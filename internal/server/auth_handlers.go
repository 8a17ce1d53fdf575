package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/terraconstructs/campusapi/internal/apperr"
	"github.com/terraconstructs/campusapi/internal/auth"
	campusmw "github.com/terraconstructs/campusapi/internal/middleware"
	"github.com/terraconstructs/campusapi/internal/services/iam"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin staff student"`
}

// RevokeRequest is the body of POST /auth/revoke.
type RevokeRequest struct {
	Token string `json:"token" validate:"required"`
}

// UserResponse is the principal summary returned with a token.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// TokenResponse is returned by login, signup and the Google callback.
type TokenResponse struct {
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

// ProfileResponse is the principal as stored, returned by GET /auth/me.
type ProfileResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Provider string `json:"provider"`
	Avatar   string `json:"avatar,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func summary(p *iam.Principal) UserResponse {
	return UserResponse{ID: p.ID, Email: p.Email, Role: string(p.Role)}
}

// HandleLogin authenticates an email and password.
func HandleLogin(iamService iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(r, &req); err != nil {
			apperr.Write(w, r, err)
			return
		}

		result, err := iamService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			apperr.Write(w, r, err)
			return
		}

		apperr.WriteJSON(w, http.StatusOK, TokenResponse{
			Message: "Login successful",
			Token:   result.Token,
			User:    summary(result.Principal),
		})
	}
}

// HandleSignup registers a local principal and signs it in.
func HandleSignup(iamService iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := decodeJSON(r, &req); err != nil {
			apperr.Write(w, r, err)
			return
		}

		result, err := iamService.Signup(r.Context(), iam.SignupInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Role:     req.Role,
		})
		if err != nil {
			apperr.Write(w, r, err)
			return
		}

		user := summary(result.Principal)
		user.Name = result.Principal.Name
		apperr.WriteJSON(w, http.StatusCreated, TokenResponse{
			Message: "User created",
			Token:   result.Token,
			User:    user,
		})
	}
}

// HandleGoogleLogin redirects to Google's consent screen. The state value is kept in
// an encrypted cookie and checked by HandleGoogleCallback.
func HandleGoogleLogin(iamService iam.Service, states *auth.StateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !iamService.GoogleEnabled() || states == nil {
			apperr.Write(w, r, iam.ErrGoogleDisabled)
			return
		}

		state, err := states.Begin(w)
		if err != nil {
			apperr.Write(w, r, apperr.Internal(err))
			return
		}
		url, err := iamService.AuthorizationURL(state)
		if err != nil {
			apperr.Write(w, r, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// HandleGoogleCallback completes the authorization code flow and returns a token.
func HandleGoogleCallback(iamService iam.Service, states *auth.StateStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !iamService.GoogleEnabled() || states == nil {
			apperr.Write(w, r, iam.ErrGoogleDisabled)
			return
		}

		q := r.URL.Query()
		if providerErr := q.Get("error"); providerErr != "" {
			hlog.FromRequest(r).Info().
				Str("error", providerErr).
				Str("error_description", q.Get("error_description")).
				Msg("google returned an error to the callback")
			apperr.Write(w, r, iam.ErrProviderRejected)
			return
		}

		if err := states.Verify(w, r, q.Get("state")); err != nil {
			apperr.Write(w, r, iam.ErrInvalidState.WithCause(err))
			return
		}

		result, err := iamService.CompleteExternalLogin(r.Context(), q.Get("code"))
		if err != nil {
			apperr.Write(w, r, err)
			return
		}

		apperr.WriteJSON(w, http.StatusOK, TokenResponse{
			Token: result.Token,
			User:  summary(result.Principal),
		})
	}
}

// HandleAuthFailure is the landing route for failed external sign-ins.
func HandleAuthFailure() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apperr.Write(w, r, iam.ErrProviderRejected)
	}
}

// HandleLogout revokes the bearer token of the current request.
func HandleLogout(iamService iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := campusmw.PrincipalFromContext(r.Context())
		if !ok {
			apperr.Write(w, r, iam.ErrAuthenticationRequired)
			return
		}

		if err := iamService.Logout(r.Context(), principal); err != nil {
			apperr.Write(w, r, err)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
	}
}

// HandleMe returns the stored profile of the current principal.
func HandleMe(iamService iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := campusmw.PrincipalFromContext(r.Context())
		if !ok {
			apperr.Write(w, r, iam.ErrAuthenticationRequired)
			return
		}

		stored, err := iamService.GetPrincipal(r.Context(), principal.ID)
		if err != nil {
			// A token can outlive its principal.
			if errors.Is(err, iam.ErrUserNotFound) {
				apperr.Write(w, r, iam.ErrInvalidToken)
				return
			}
			apperr.Write(w, r, err)
			return
		}

		apperr.WriteJSON(w, http.StatusOK, map[string]ProfileResponse{
			"user": {
				ID:       stored.ID,
				Email:    stored.Email,
				Name:     stored.Name,
				Role:     string(stored.Role),
				Provider: string(stored.Provider),
				Avatar:   stored.AvatarURL,
			},
		})
	}
}

// HandleProtected echoes the verified claims.
func HandleProtected() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := campusmw.PrincipalFromContext(r.Context())
		if !ok {
			apperr.Write(w, r, iam.ErrAuthenticationRequired)
			return
		}
		apperr.WriteJSON(w, http.StatusOK, struct {
			Message string       `json:"message"`
			User    UserResponse `json:"user"`
		}{
			Message: "JWT Auth Success!",
			User:    summary(principal),
		})
	}
}

// HandleRevoke revokes an arbitrary token (administrators only).
func HandleRevoke(iamService iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RevokeRequest
		if err := decodeJSON(r, &req); err != nil {
			apperr.Write(w, r, err)
			return
		}

		if err := iamService.RevokeToken(r.Context(), req.Token); err != nil {
			apperr.Write(w, r, err)
			return
		}

		principal, _ := campusmw.PrincipalFromContext(r.Context())
		if principal != nil {
			hlog.FromRequest(r).Info().Str("admin_id", principal.ID).Msg("token revoked by administrator")
		}
		apperr.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Token revoked"})
	}
}
