package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/terraconstructs/campusapi/internal/apperr"
	"github.com/terraconstructs/campusapi/internal/auth"
	campusmw "github.com/terraconstructs/campusapi/internal/middleware"
	"github.com/terraconstructs/campusapi/internal/services/iam"
	"github.com/terraconstructs/campusapi/internal/telemetry"
)

// RouterOptions controls the construction of the campusapi HTTP router.
// IAMService and Enforcer are required; other fields fall back to defaults.
type RouterOptions struct {
	IAMService  iam.Service
	Enforcer    casbin.IEnforcer
	StateStore  *auth.StateStore
	Metrics     *telemetry.Metrics
	RateLimiter *campusmw.RateLimiter
	Logger      zerolog.Logger
	CORSOptions *cors.Options
	Middleware  []func(http.Handler) http.Handler
	// APIRoutes mounts the resource handlers under /api, behind the optional auth
	// gate and the route policy.
	APIRoutes func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// CORSOptionsFor returns the default policy restricted to origins, or the default
// policy when origins is empty.
func CORSOptionsFor(origins []string) cors.Options {
	opts := DefaultCORSOptions()
	if len(origins) > 0 {
		opts.AllowedOrigins = origins
	}
	return opts
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	GoogleEnabled     bool   `json:"google_enabled"`
	RevocationBackend string `json:"revocation_backend"`
}

func healthHandler(iamService iam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		apperr.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:            "ok",
			GoogleEnabled:     iamService.GoogleEnabled(),
			RevocationBackend: iamService.RevocationBackend(),
		})
	}
}

// NewRouter assembles a chi.Router with shared middleware, the CORS policy and the
// auth endpoints mounted.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if opts.IAMService == nil {
		return nil, errors.New("router requires IAM service")
	}
	policyGuard, err := campusmw.NewPolicyGuard(opts.Enforcer)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Instrument)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperr.Write(w, r, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteJSON(w, http.StatusMethodNotAllowed, apperr.Envelope{
			Success:   false,
			Message:   "Method not allowed",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})

	svc := opts.IAMService
	limited := func(h http.HandlerFunc) http.Handler { return opts.RateLimiter.Handler(h) }

	r.Route("/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/login", limited(HandleLogin(svc)))
		r.Method(http.MethodPost, "/signup", limited(HandleSignup(svc)))

		r.Get("/google", HandleGoogleLogin(svc, opts.StateStore))
		r.Get("/google/callback", HandleGoogleCallback(svc, opts.StateStore))
		r.Get("/failure", HandleAuthFailure())

		r.Group(func(r chi.Router) {
			r.Use(campusmw.RequireAuth(svc))
			r.Post("/logout", HandleLogout(svc))
			r.Get("/me", HandleMe(svc))
			r.Get("/protected", HandleProtected())
			r.With(campusmw.RequireRoles(auth.RoleAdmin)).Post("/revoke", HandleRevoke(svc))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(campusmw.OptionalAuth(svc))
		r.Use(policyGuard)
		if opts.APIRoutes != nil {
			opts.APIRoutes(r)
		}
	})

	r.Get("/health", healthHandler(svc))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	return r, nil
}
