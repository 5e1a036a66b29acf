package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	bolt "go.etcd.io/bbolt"

	"github.com/helvet/keyhub/internal/auth"
	"github.com/helvet/keyhub/internal/config"
	"github.com/helvet/keyhub/internal/db"
	"github.com/helvet/keyhub/internal/github"
	"github.com/helvet/keyhub/internal/keys"
	"github.com/helvet/keyhub/internal/metrics"
	"github.com/helvet/keyhub/internal/middleware"
	"github.com/helvet/keyhub/internal/repository"
	"github.com/helvet/keyhub/internal/summarizer"
)

const (
	tokenAlice = "token-alice"
	tokenBob   = "token-bob"
	userAlice  = "user-alice"
	userBob    = "user-bob"
)

type testEnv struct {
	router   http.Handler
	apiKeys  *repository.APIKeyRepository
	logs     *repository.ActivityLogRepository
	settings *repository.SettingsRepository
}

// newTestEnv wires the handlers against an in-memory database, a bolt
// cache in a temp dir and a static token provider, routed the same way
// the real server routes them.
func newTestEnv(t *testing.T, gh config.GitHubConfig) *testEnv {
	t.Helper()

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	boltDB, err := bolt.Open(filepath.Join(t.TempDir(), "cache.db"), 0600, nil)
	if err != nil {
		t.Fatalf("failed to open cache database: %v", err)
	}
	t.Cleanup(func() { boltDB.Close() })
	cache, err := summarizer.NewCache(boltDB, time.Hour)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := auth.NewStaticProvider(map[string]auth.Identity{
		tokenAlice: {ID: userAlice, Email: "alice@example.com", Name: "Alice"},
		tokenBob:   {ID: userBob, Email: "bob@example.com", Name: "Bob"},
	})

	apiKeys := repository.NewAPIKeyRepository(database.DB)
	logs := repository.NewActivityLogRepository(database.DB)
	settings := repository.NewSettingsRepository(database.DB)

	if gh.Timeout == 0 {
		gh.Timeout = 5 * time.Second
	}

	h := New(Options{
		Config:    &config.Config{GitHub: gh},
		APIKeys:   apiKeys,
		Logs:      logs,
		Settings:  settings,
		Validator: keys.NewValidator(apiKeys, logger),
		Provider:  provider,
		GitHub:    github.NewClient(gh),
		Cache:     cache,
		Metrics:   metrics.New(),
		Logger:    logger,
	})

	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Post("/api/validate-api-key", h.ValidateKey)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(provider, logger))
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

	return &testEnv{router: r, apiKeys: apiKeys, logs: logs, settings: settings}
}

// request performs one request against the test router. A non-empty
// token goes into the Authorization header; body is JSON-encoded.
func (e *testEnv) request(t *testing.T, method, path, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelopeBody struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Pagination *struct {
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		HasMore bool `json:"hasMore"`
	} `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode envelope from %q: %v", rec.Body.String(), err)
	}
	return body
}
