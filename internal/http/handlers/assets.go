package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/export"
	"studio/internal/studio"
)

type generateRequest struct {
	IncludeThumbnail bool `json:"include_thumbnail"`
}

type jobsResponse struct {
	Items   []domain.AssetJob `json:"items"`
	Version uint64            `json:"version"`
}

// Generate starts a batch and answers 202 with the records it created.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	batch, err := sess.Generate(r.Context(), studio.GenerateOptions{IncludeThumbnail: req.IncludeThumbnail})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, jobsResponse{Items: batch.Jobs, Version: sess.Store().Version()})
}

func (a *App) GenerateThumbnail(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	job, err := sess.GenerateThumbnail(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

// ListAssets returns the records in creation order, optionally filtered by ?kind=.
func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	store := sess.Store()
	items := store.Snapshot()
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, err := domain.ParseAssetKind(raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		items = store.FilterByKind(kind)
	}
	if r.URL.Query().Get("status") == string(domain.StatusCompleted) {
		items = completedOf(items)
	}
	if items == nil {
		items = []domain.AssetJob{}
	}
	a.json(w, http.StatusOK, jobsResponse{Items: items, Version: store.Version()})
}

func (a *App) RetryAsset(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	job, err := sess.Retry(r.Context(), chi.URLParam(r, "assetID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, job)
}

// Export streams a zip of every completed asset. With nothing completed it
// answers 204 and no download starts.
func (a *App) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	archive, err := a.Exporter.Export(r.Context(), sess.Store().Snapshot())
	if err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		a.Logger.Error().Err(err).Str("session_id", sess.ID()).Msg("handlers: export failed")
		a.error(w, http.StatusBadGateway, "export_failed", localize(r.Context(), "export_failed"))
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", archive.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Data)
}

// ListingSheet downloads the listing text and completed assets as XLSX.
func (a *App) ListingSheet(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	state := sess.State()
	if state.Analysis == nil {
		a.fail(w, r, domain.ErrPreconditionFailed)
		return
	}
	data, err := export.ListingSheet(*state.Analysis, sess.Store().Snapshot())
	if err != nil {
		a.Logger.Error().Err(err).Str("session_id", sess.ID()).Msg("handlers: listing sheet failed")
		a.error(w, http.StatusInternalServerError, "export_failed", localize(r.Context(), "export_failed"))
		return
	}
	name := "etsy-listing-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func completedOf(items []domain.AssetJob) []domain.AssetJob {
	out := items[:0:0]
	for _, it := range items {
		if it.Status == domain.StatusCompleted {
			out = append(out, it)
		}
	}
	return out
}
