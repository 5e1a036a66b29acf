// Package server assembles the storage, services and HTTP surface of
// the dashboard into one runnable unit.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/helvet/keyhub/internal/auth"
	"github.com/helvet/keyhub/internal/config"
	"github.com/helvet/keyhub/internal/db"
	"github.com/helvet/keyhub/internal/github"
	"github.com/helvet/keyhub/internal/handlers"
	"github.com/helvet/keyhub/internal/keys"
	"github.com/helvet/keyhub/internal/metrics"
	"github.com/helvet/keyhub/internal/middleware"
	"github.com/helvet/keyhub/internal/repository"
	"github.com/helvet/keyhub/internal/summarizer"
)

type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *db.DB
	boltDB  *bolt.DB
	metrics *metrics.Metrics
	http    *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Summarizer.CachePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	boltDB, err := bolt.Open(cfg.Summarizer.CachePath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open summary cache: %w", err)
	}

	cache, err := summarizer.NewCache(boltDB, cfg.Summarizer.CacheTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summary cache: %w", err)
	}

	provider, oidcProvider, err := buildAuthProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	apiKeys := repository.NewAPIKeyRepository(database.DB)
	logs := repository.NewActivityLogRepository(database.DB)
	settings := repository.NewSettingsRepository(database.DB)
	validator := keys.NewValidator(apiKeys, logger)
	m := metrics.New()

	h := handlers.New(handlers.Options{
		Config:    cfg,
		APIKeys:   apiKeys,
		Logs:      logs,
		Settings:  settings,
		Validator: validator,
		Provider:  provider,
		OIDC:      oidcProvider,
		GitHub:    github.NewClient(cfg.GitHub),
		Cache:     cache,
		Metrics:   m,
		Logger:    logger,
	})

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      database,
		boltDB:  boltDB,
		metrics: m,
	}

	s.http = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      s.setupRoutes(h, provider),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// buildAuthProvider assembles the bearer-token provider: OIDC when
// enabled, falling back to static tokens, or both chained together.
func buildAuthProvider(cfg *config.Config, logger *slog.Logger) (auth.Provider, *auth.OIDCProvider, error) {
	var providers []auth.Provider

	var oidcProvider *auth.OIDCProvider
	if cfg.Auth.OIDC.Enabled {
		var err error
		oidcProvider, err = auth.NewOIDCProvider(context.Background(), &cfg.Auth.OIDC)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize OIDC provider: %w", err)
		}
		logger.Info("OIDC provider initialized", "issuer", cfg.Auth.OIDC.IssuerURL)
		providers = append(providers, oidcProvider)
	}

	if len(cfg.Auth.StaticTokens) > 0 {
		tokens := make(map[string]auth.Identity, len(cfg.Auth.StaticTokens))
		for token, id := range cfg.Auth.StaticTokens {
			tokens[token] = auth.Identity{ID: id.ID, Email: id.Email, Name: id.Name}
		}
		providers = append(providers, auth.NewStaticProvider(tokens))
	}

	return auth.NewChainProvider(providers...), oidcProvider, nil
}

func (s *Server) setupRoutes(h *handlers.Handlers, provider auth.Provider) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logger(s.logger))
	r.Use(s.metrics.HTTPMiddleware)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Public: no bearer token required, owner scoping applies when one
	// is presented anyway
	r.Post("/api/validate-api-key", h.ValidateKey)

	r.Get("/auth/login", h.AuthLogin)
	r.Get("/auth/callback", h.AuthCallback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(provider, s.logger))

		r.Get("/api/api-keys", h.APIKeysList)
		r.Post("/api/api-keys", h.APIKeyCreate)
		r.Put("/api/api-keys", h.APIKeyUpdate)
		r.Delete("/api/api-keys", h.APIKeyDelete)

		r.Get("/api/settings", h.SettingsGet)
		r.Put("/api/settings", h.SettingsUpdate)

		r.Get("/api/logs", h.LogsList)
		r.Post("/api/logs", h.LogsCreate)

		r.Post("/api/github-summarizer", h.Summarize)
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "addr", s.cfg.Server.ListenAddr)
		if s.cfg.Server.TLS.Enabled {
			errCh <- s.http.ListenAndServeTLS(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
		} else {
			errCh <- s.http.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
		s.close()
		return nil
	}
}

func (s *Server) close() {
	if err := s.boltDB.Close(); err != nil {
		s.logger.Error("failed to close summary cache", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
}
