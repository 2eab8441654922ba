package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "sessions": a.Sessions.Len()}
	if a.Credentials != nil {
		body["credential_configured"] = a.Credentials.Status(r.Context()).Configured
	}
	a.json(w, http.StatusOK, body)
}
