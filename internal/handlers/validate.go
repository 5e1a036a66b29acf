package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/helvet/keyhub/internal/keys"
	"github.com/helvet/keyhub/internal/metrics"
)

type validateKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type validateKeyData struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Usage        int64  `json:"usage"`
	MonthlyLimit *int64 `json:"monthlyLimit"`
}

type validateKeyResponse struct {
	Success bool             `json:"success"`
	IsValid bool             `json:"isValid"`
	Message string           `json:"message"`
	Data    *validateKeyData `json:"data,omitempty"`
}

// ValidateKey checks a presented API key and records one use when it is
// admitted. No bearer token is required; when one is presented it must
// be valid, and the check is then scoped to keys the caller owns.
func (h *Handlers) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var req validateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "API key is required")
		return
	}
	secret := strings.TrimSpace(req.APIKey)
	if secret == "" {
		h.respondError(w, http.StatusBadRequest, "API key is required")
		return
	}

	result, err := h.validateForRequest(w, r, secret)
	if result == nil {
		// Either the bearer token was rejected (response already
		// written) or the lookup failed.
		if err != nil {
			h.logger.Error("failed to validate API key", "error", err)
			h.respondError(w, http.StatusInternalServerError, "Failed to validate API key")
		}
		return
	}

	resp := validateKeyResponse{
		Success: true,
		IsValid: result.Valid,
		Message: result.Message,
	}
	if result.Valid {
		h.metrics.KeyValidationsTotal.WithLabelValues(metrics.OutcomeValid).Inc()
		resp.Data = &validateKeyData{
			ID:           result.Key.ID,
			Name:         result.Key.Name,
			Type:         result.Key.Type,
			Usage:        result.Key.Usage,
			MonthlyLimit: result.Key.MonthlyLimit,
		}
	} else if result.Key != nil && result.Key.OverLimit() {
		h.metrics.KeyValidationsTotal.WithLabelValues(metrics.OutcomeOverLimit).Inc()
	} else {
		h.metrics.KeyValidationsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// validateForRequest picks between owner-scoped and unscoped validation
// depending on whether the request carries a bearer token. A nil result
// with nil error means a 401 has already been written.
func (h *Handlers) validateForRequest(w http.ResponseWriter, r *http.Request, secret string) (*keys.Result, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return h.validator.Validate(secret)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		h.respondError(w, http.StatusUnauthorized, "Authentication required. Please provide a valid Bearer token.")
		return nil, nil
	}
	identity, err := h.provider.Authenticate(r.Context(), strings.TrimSpace(parts[1]))
	if err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid authentication token.")
		return nil, nil
	}
	return h.validator.ValidateForUser(secret, identity.ID)
}
