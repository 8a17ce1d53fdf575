package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/campusapi/cmd/cmdutil"
	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/logging"
	campusmw "github.com/terraconstructs/campusapi/internal/middleware"
	"github.com/terraconstructs/campusapi/internal/server"
	"github.com/terraconstructs/campusapi/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the campusapi server",
	Long:  `Starts the HTTP server with the auth endpoints, the /api mount point, health and metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := telemetry.Init(ctx, cfg.Observability, logging.Component("telemetry"))
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn().Err(err).Msg("tracer shutdown failed")
			}
		}()

		metrics := telemetry.NewMetrics()

		bundle, err := cmdutil.NewIAMServiceBundle(ctx, cfg, cmdutil.IAMServiceOptions{
			EnableGoogle: true,
			Metrics:      metrics,
		})
		if err != nil {
			return err
		}
		defer bundle.Close()
		logger.Info().
			Str("revocation_backend", bundle.Revocations.Backend()).
			Bool("google_enabled", bundle.Service.GoogleEnabled()).
			Msg("IAM service initialized")

		// The database backend keeps expired rows until swept.
		if list, ok := bundle.Revocations.(*auth.DatabaseRevocationList); ok {
			go list.RunSweeper(ctx, cfg.Revocation.SweepInterval, logging.Component("revocation"))
		}

		var states *auth.StateStore
		if google := cfg.Auth.Google; google != nil {
			states, err = auth.NewStateStore(google.CookieKey, auth.SecureCookiesFor(google.RedirectURI))
			if err != nil {
				return fmt.Errorf("failed to create oauth state store: %w", err)
			}
		}

		enforcer, err := auth.InitEnforcer("")
		if err != nil {
			return fmt.Errorf("configure casbin enforcer: %w", err)
		}

		corsOpts := server.CORSOptionsFor(cfg.CORS.AllowedOrigins)
		router, err := server.NewRouter(server.RouterOptions{
			IAMService:  bundle.Service,
			Enforcer:    enforcer,
			StateStore:  states,
			Metrics:     metrics,
			RateLimiter: campusmw.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
			Logger:      logging.Component("http"),
			CORSOptions: &corsOpts,
		})
		if err != nil {
			return fmt.Errorf("failed to build router: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ServerAddr).Str("url", cfg.ServerURL).Msg("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info().Msg("shutting down gracefully")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info().Msg("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
