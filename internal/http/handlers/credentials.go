package handlers

import (
	"net/http"
	"strings"
)

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

func (a *App) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Credentials.Status(r.Context()))
}

// SelectCredential stores a new provider key and clears any pending request
// for one.
func (a *App) SelectCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "api_key required")
		return
	}
	if err := a.Credentials.Select(r.Context(), req.APIKey); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: store credential failed")
		a.error(w, http.StatusInternalServerError, "internal", localize(r.Context(), "internal"))
		return
	}
	a.json(w, http.StatusOK, a.Credentials.Status(r.Context()))
}
