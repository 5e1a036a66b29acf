package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/helvet/keyhub/internal/models"
	"github.com/helvet/keyhub/internal/repository"
)

// APIKeysList returns all keys owned by the caller, newest first.
func (h *Handlers) APIKeysList(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	keys, err := h.apiKeys.ListByUser(user.ID)
	if err != nil {
		h.logger.Error("failed to list API keys", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch API keys")
		return
	}

	h.respond(w, http.StatusOK, keys)
}

type createKeyRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	MonthlyLimit *int64 `json:"monthlyLimit"`
}

// APIKeyCreate creates a new API key for the caller.
func (h *Handlers) APIKeyCreate(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !models.ValidKeyType(req.Type) {
		h.respondError(w, http.StatusBadRequest, "Type must be either development or production")
		return
	}
	if req.MonthlyLimit != nil && *req.MonthlyLimit < 1 {
		h.respondError(w, http.StatusBadRequest, "Monthly limit must be a positive number or null")
		return
	}

	key, err := h.apiKeys.Create(repository.APIKeyCreateOptions{
		UserID:       user.ID,
		Name:         req.Name,
		Type:         req.Type,
		MonthlyLimit: req.MonthlyLimit,
	})
	if err != nil {
		h.logger.Error("failed to create API key", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	h.logger.Info("API key created", "id", key.ID, "name", key.Name, "user", user.ID)
	h.audit(r, user.ID, models.ActionCreateKey, models.ResourceAPIKey, key.ID, map[string]any{
		"name": key.Name,
		"type": key.Type,
	})

	h.respond(w, http.StatusCreated, key)
}

type updateKeyRequest struct {
	ID           string          `json:"id"`
	Name         json.RawMessage `json:"name"`
	Type         json.RawMessage `json:"type"`
	MonthlyLimit json.RawMessage `json:"monthlyLimit"`
	IsActive     json.RawMessage `json:"isActive"`
}

// APIKeyUpdate applies a partial update to a key owned by the caller.
// Absent fields are left untouched; monthlyLimit null clears the limit.
func (h *Handlers) APIKeyUpdate(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	var req updateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		h.respondError(w, http.StatusBadRequest, "ID is required")
		return
	}

	upd := repository.APIKeyUpdate{}
	changed := []string{}

	if len(req.Name) > 0 {
		var name string
		if err := json.Unmarshal(req.Name, &name); err != nil || strings.TrimSpace(name) == "" {
			h.respondError(w, http.StatusBadRequest, "Name must be a non-empty string")
			return
		}
		name = strings.TrimSpace(name)
		upd.Name = &name
		changed = append(changed, "name")
	}
	if len(req.Type) > 0 {
		var keyType string
		if err := json.Unmarshal(req.Type, &keyType); err != nil || !models.ValidKeyType(keyType) {
			h.respondError(w, http.StatusBadRequest, "Type must be either development or production")
			return
		}
		upd.Type = &keyType
		changed = append(changed, "type")
	}
	if len(req.MonthlyLimit) > 0 {
		if string(req.MonthlyLimit) == "null" {
			upd.ClearMonthlyLimit = true
		} else {
			var limit int64
			if err := json.Unmarshal(req.MonthlyLimit, &limit); err != nil || limit < 1 {
				h.respondError(w, http.StatusBadRequest, "Monthly limit must be a positive number or null")
				return
			}
			upd.MonthlyLimit = &limit
		}
		changed = append(changed, "monthly_limit")
	}
	if len(req.IsActive) > 0 {
		var active bool
		if err := json.Unmarshal(req.IsActive, &active); err != nil {
			h.respondError(w, http.StatusBadRequest, "isActive must be a boolean")
			return
		}
		upd.IsActive = &active
		changed = append(changed, "is_active")
	}

	key, err := h.apiKeys.Update(req.ID, user.ID, upd)
	if errors.Is(err, repository.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "API key not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update API key", "id", req.ID, "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to update API key")
		return
	}

	action := models.ActionEditKey
	if len(changed) == 1 && changed[0] == "is_active" {
		action = models.ActionToggleKey
	}
	h.audit(r, user.ID, action, models.ResourceAPIKey, key.ID, map[string]any{
		"updated_fields": changed,
	})

	h.respond(w, http.StatusOK, key)
}

// APIKeyDelete removes a key owned by the caller. The id comes from the
// query string; the deleted record is returned.
func (h *Handlers) APIKeyDelete(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	id := r.URL.Query().Get("id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "ID is required")
		return
	}

	key, err := h.apiKeys.Delete(id, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "API key not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete API key", "id", id, "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}

	h.logger.Info("API key deleted", "id", key.ID, "name", key.Name, "user", user.ID)
	h.audit(r, user.ID, models.ActionDeleteKey, models.ResourceAPIKey, key.ID, map[string]any{
		"name": key.Name,
	})

	h.respond(w, http.StatusOK, key)
}
