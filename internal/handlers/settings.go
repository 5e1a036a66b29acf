package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/helvet/keyhub/internal/models"
)

// SettingsGet returns the caller's settings, creating the default
// record on first access.
func (h *Handlers) SettingsGet(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	settings, err := h.settings.GetOrCreate(user.ID)
	if err != nil {
		h.logger.Error("failed to fetch settings", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch settings")
		return
	}

	h.respond(w, http.StatusOK, settings)
}

// SettingsUpdate merges the supplied sections into the stored settings.
// Only fields present in the request change; everything else keeps its
// stored value.
func (h *Handlers) SettingsUpdate(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	var upd models.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.settings.GetOrCreate(user.ID)
	if err != nil {
		h.logger.Error("failed to fetch settings", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch settings")
		return
	}

	if err := settings.Apply(&upd); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settings.Save(settings); err != nil {
		h.logger.Error("failed to save settings", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	h.audit(r, user.ID, models.ActionUpdateSettings, models.ResourceSettings, "", map[string]any{
		"updated_fields": upd.Sections(),
	})

	h.respond(w, http.StatusOK, settings)
}
