package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	airelay "github.com/ferro-labs/ai-relay"
	"github.com/ferro-labs/ai-relay/internal/logging"
	"github.com/ferro-labs/ai-relay/internal/security"
	"github.com/ferro-labs/ai-relay/internal/site"
	"github.com/ferro-labs/ai-relay/internal/version"
	"github.com/ferro-labs/ai-relay/web"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// routerConfig is everything newRouter needs besides the relay.
type routerConfig struct {
	site      fs.FS
	policy    string
	bodyLimit int64
}

func runServe(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := loadEnv(opts.envFile); err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	bodyLimit, err := cfg.BodyLimitBytes()
	if err != nil {
		return err
	}

	registry, err := loadRegistry()
	if err != nil {
		return fmt.Errorf("building provider registry: %w", err)
	}
	available := registry.Available()
	if len(available) == 0 {
		logging.Logger.Warn("no provider credentials set; every /api/ai request will be rejected",
			"env", []string{"MISTRAL_KEY", "GROQ_KEY", "DEEPSEEK_KEY", "GEMINI_KEY"})
	}
	for _, name := range available {
		logging.Logger.Info("provider available", "provider", name)
	}

	rc := routerConfig{
		site: documentRoot(cfg),
		policy: security.BuildPolicy(security.PolicyOptions{
			CDNOrigins:     cfg.Security.CDNOrigins,
			ConnectOrigins: append(registry.Origins(), cfg.Security.ConnectOrigins...),
		}),
		bodyLimit: bodyLimit,
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(airelay.New(registry), rc),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logging.Logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Logger.Error("shutdown error", "error", err.Error())
		}
	}()

	logging.Logger.Info("airelay listening",
		"version", version.Short(),
		"addr", addr,
		"providers", len(available),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	logging.Logger.Info("server stopped")
	return nil
}

// documentRoot returns the configured document root, or the embedded client
// when none is set.
func documentRoot(cfg airelay.Config) fs.FS {
	if cfg.DocumentRoot == "" {
		return web.Assets
	}
	return os.DirFS(cfg.DocumentRoot)
}

// newRouter builds the HTTP router.
func newRouter(relay *airelay.Relay, rc routerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(logging.AccessLog)

	r.Get("/health", healthHandler(relay))
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/ai", aiHandler(relay, rc.bodyLimit))

	r.Group(func(r chi.Router) {
		r.Use(security.Headers(rc.policy))
		r.Handle("/*", site.New(rc.site))
	})

	return r
}
