// Package handlers implements the JSON API of the dashboard. All
// responses share the envelope {success, data?, error?}; list endpoints
// additionally carry a pagination object.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/helvet/keyhub/internal/auth"
	"github.com/helvet/keyhub/internal/config"
	"github.com/helvet/keyhub/internal/github"
	"github.com/helvet/keyhub/internal/keys"
	"github.com/helvet/keyhub/internal/metrics"
	"github.com/helvet/keyhub/internal/middleware"
	"github.com/helvet/keyhub/internal/models"
	"github.com/helvet/keyhub/internal/repository"
	"github.com/helvet/keyhub/internal/summarizer"
)

type Handlers struct {
	cfg       *config.Config
	apiKeys   *repository.APIKeyRepository
	logs      *repository.ActivityLogRepository
	settings  *repository.SettingsRepository
	validator *keys.Validator
	provider  auth.Provider
	oidc      *auth.OIDCProvider
	github    *github.Client
	cache     *summarizer.Cache
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Options carries the dependencies for New. OIDC and Cache may be nil;
// the corresponding endpoints degrade gracefully.
type Options struct {
	Config    *config.Config
	APIKeys   *repository.APIKeyRepository
	Logs      *repository.ActivityLogRepository
	Settings  *repository.SettingsRepository
	Validator *keys.Validator
	Provider  auth.Provider
	OIDC      *auth.OIDCProvider
	GitHub    *github.Client
	Cache     *summarizer.Cache
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func New(opts Options) *Handlers {
	return &Handlers{
		cfg:       opts.Config,
		apiKeys:   opts.APIKeys,
		logs:      opts.Logs,
		settings:  opts.Settings,
		validator: opts.Validator,
		provider:  opts.Provider,
		oidc:      opts.OIDC,
		github:    opts.GitHub,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Health check
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

func (h *Handlers) respond(w http.ResponseWriter, status int, data any) {
	h.writeJSON(w, status, envelope{Success: true, Data: data})
}

func (h *Handlers) respondList(w http.ResponseWriter, data any, p pagination) {
	h.writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, envelope{Success: false, Error: message})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// identity returns the authenticated identity placed in the context by
// the auth middleware.
func (h *Handlers) identity(r *http.Request) *auth.Identity {
	return middleware.IdentityFromContext(r)
}

func clientIPOrUnknown(r *http.Request) string {
	if ip := middleware.GetClientIP(r); ip != "" {
		return ip
	}
	return "unknown"
}

func userAgentOrUnknown(r *http.Request) string {
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return "unknown"
}

// audit records an activity entry. Failures are logged and swallowed;
// auditing never blocks the operation it describes.
func (h *Handlers) audit(r *http.Request, userID, action, resourceType, resourceID string, details map[string]any) {
	entry := &models.ActivityLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    middleware.GetClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if err := h.logs.Append(entry); err != nil {
		h.logger.Warn("failed to record activity", "action", action, "user", userID, "error", err)
	}
}
