package handlers

import (
	"net/http"
)

// AuthLogin starts the OIDC authorization code flow by redirecting to
// the provider. Returns 404 when OIDC is not configured.
func (h *Handlers) AuthLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		h.respondError(w, http.StatusNotFound, "OIDC authentication is not configured")
		return
	}

	url, err := h.oidc.AuthCodeURL()
	if err != nil {
		h.logger.Error("failed to build authorization URL", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

type authCallbackData struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// AuthCallback completes the OIDC flow: it exchanges the code for an ID
// token and returns it to the caller to use as the bearer token.
func (h *Handlers) AuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		h.respondError(w, http.StatusNotFound, "OIDC authentication is not configured")
		return
	}

	q := r.URL.Query()
	state := q.Get("state")
	code := q.Get("code")
	if state == "" || code == "" {
		h.respondError(w, http.StatusBadRequest, "Missing state or code parameter")
		return
	}

	token, identity, err := h.oidc.Exchange(r.Context(), state, code)
	if err != nil {
		h.logger.Warn("OIDC exchange failed", "error", err)
		h.respondError(w, http.StatusUnauthorized, "Invalid authentication token.")
		return
	}

	h.logger.Info("user logged in", "user", identity.ID, "email", identity.Email)
	h.respond(w, http.StatusOK, authCallbackData{Token: token, User: identity})
}
