package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/helvet/keyhub/internal/github"
	"github.com/helvet/keyhub/internal/metrics"
	"github.com/helvet/keyhub/internal/models"
	"github.com/helvet/keyhub/internal/summarizer"
)

type summarizeRequest struct {
	GitHubURL string `json:"githubUrl"`
}

type summarizeResponse struct {
	GitHubURL     string   `json:"githubUrl"`
	Owner         string   `json:"owner"`
	Repo          string   `json:"repo"`
	Stars         int64    `json:"stars"`
	LatestVersion string   `json:"latestVersion"`
	Summary       string   `json:"summary"`
	CoolFacts     []string `json:"coolFacts"`
}

// Summarize fetches a GitHub repository's README and returns a summary.
// The caller must hold a valid bearer token and present, in x-api-key,
// an active key of their own; the validation counts against the key's
// monthly limit.
func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	secret := strings.TrimSpace(r.Header.Get("x-api-key"))
	if secret == "" {
		h.respondError(w, http.StatusBadRequest, "API key is required")
		return
	}

	result, err := h.validator.Validate(secret)
	if err != nil {
		h.logger.Error("failed to validate API key", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to validate API key")
		return
	}
	if !result.Valid {
		h.respondError(w, http.StatusUnauthorized, result.Message)
		return
	}
	if result.Key.UserID != user.ID {
		h.respondError(w, http.StatusForbidden, "API key does not belong to authenticated user")
		return
	}

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "GitHub URL is required")
		return
	}
	url := strings.TrimSpace(req.GitHubURL)
	if url == "" {
		h.respondError(w, http.StatusBadRequest, "GitHub URL is required")
		return
	}

	if resp := h.cachedSummary(url); resp != nil {
		h.metrics.SummariesTotal.WithLabelValues(metrics.SourceCache).Inc()
		h.auditSummary(r, user.ID, result.Key.ID, resp)
		h.respond(w, http.StatusOK, resp)
		return
	}

	info, err := h.github.FetchRepoInfo(r.Context(), url)
	if errors.Is(err, github.ErrInvalidRepoURL) {
		h.respondError(w, http.StatusBadRequest, "Invalid GitHub repository URL")
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch repository info", "url", url, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to process GitHub repository")
		return
	}
	if info.Readme == "" {
		h.respondError(w, http.StatusNotFound, "Could not fetch README content from the repository")
		return
	}

	summary := summarizer.Summarize(info.Readme)
	h.metrics.SummariesTotal.WithLabelValues(metrics.SourceGitHub).Inc()

	resp := &summarizeResponse{
		GitHubURL:     url,
		Owner:         info.Owner,
		Repo:          info.Repo,
		Stars:         info.Stars,
		LatestVersion: info.LatestVersion,
		Summary:       summary.Summary,
		CoolFacts:     summary.CoolFacts,
	}

	if h.cache != nil {
		err := h.cache.Put(url, &summarizer.CachedResult{
			Owner:         info.Owner,
			Repo:          info.Repo,
			Stars:         info.Stars,
			LatestVersion: info.LatestVersion,
			Summary:       summary.Summary,
			CoolFacts:     summary.CoolFacts,
		})
		if err != nil {
			h.logger.Warn("failed to cache summary", "url", url, "error", err)
		}
	}

	h.auditSummary(r, user.ID, result.Key.ID, resp)
	h.respond(w, http.StatusOK, resp)
}

func (h *Handlers) cachedSummary(url string) *summarizeResponse {
	if h.cache == nil {
		return nil
	}
	cached, err := h.cache.Get(url)
	if err != nil {
		h.logger.Warn("failed to read summary cache", "url", url, "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}
	return &summarizeResponse{
		GitHubURL:     url,
		Owner:         cached.Owner,
		Repo:          cached.Repo,
		Stars:         cached.Stars,
		LatestVersion: cached.LatestVersion,
		Summary:       cached.Summary,
		CoolFacts:     cached.CoolFacts,
	}
}

func (h *Handlers) auditSummary(r *http.Request, userID, keyID string, resp *summarizeResponse) {
	h.audit(r, userID, models.ActionAPIRequest, models.ResourceAPIKey, keyID, map[string]any{
		"endpoint":  "github-summarizer",
		"githubUrl": resp.GitHubURL,
		"owner":     resp.Owner,
		"repo":      resp.Repo,
	})
}
