package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/export"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/studio"
)

// CredentialManager exposes the provider key state to the API.
type CredentialManager interface {
	Status(ctx context.Context) credentials.Status
	Select(ctx context.Context, key string) error
}

// Archiver packages completed records into a download.
type Archiver interface {
	Export(ctx context.Context, records []domain.AssetJob) (export.Archive, error)
}

type App struct {
	Config      infra.Config
	Logger      infra.Logger
	Sessions    *studio.Registry
	Credentials CredentialManager
	Exporter    Archiver
}

func NewApp(cfg infra.Config, logger infra.Logger, sessions *studio.Registry, creds CredentialManager, exporter Archiver) *App {
	return &App{Config: cfg, Logger: logger, Sessions: sessions, Credentials: creds, Exporter: exporter}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// session loads the session named in the route or writes a 404.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*studio.Session, bool) {
	sess, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
