package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/helvet/keyhub/internal/models"
)

const defaultLogLimit = 50

// LogsList returns the caller's activity log, newest first, with
// optional action/resource/date filters and limit/offset pagination.
func (h *Handlers) LogsList(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)
	q := r.URL.Query()

	filter := models.ActivityLogFilter{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		Limit:        defaultLogLimit,
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	filter.DateFrom = h.parseLogDate(q.Get("date_from"), "date_from")
	filter.DateTo = h.parseLogDate(q.Get("date_to"), "date_to")

	logs, err := h.logs.ListByUser(user.ID, filter)
	if err != nil {
		h.logger.Error("failed to list activity logs", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch logs")
		return
	}

	h.respondList(w, logs, pagination{
		Limit:   filter.Limit,
		Offset:  filter.Offset,
		HasMore: len(logs) == filter.Limit,
	})
}

// parseLogDate accepts both full RFC 3339 timestamps and bare
// YYYY-MM-DD dates, which is what the dashboard sends.
func (h *Handlers) parseLogDate(raw, param string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	h.logger.Warn("ignoring unparseable date filter", "param", param, "value", raw)
	return nil
}

type createLogRequest struct {
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      map[string]any `json:"details"`
}

// LogsCreate records an activity entry on behalf of the caller. Client
// IP and user agent come from the request itself.
func (h *Handlers) LogsCreate(w http.ResponseWriter, r *http.Request) {
	user := h.identity(r)

	var req createLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Action == "" || req.ResourceType == "" {
		h.respondError(w, http.StatusBadRequest, "Action and resource_type are required")
		return
	}

	entry := &models.ActivityLog{
		UserID:       user.ID,
		Action:       req.Action,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Details:      req.Details,
		IPAddress:    clientIPOrUnknown(r),
		UserAgent:    userAgentOrUnknown(r),
	}
	if err := h.logs.Append(entry); err != nil {
		h.logger.Error("failed to create activity log", "user", user.ID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to create log")
		return
	}

	h.respond(w, http.StatusOK, entry)
}
