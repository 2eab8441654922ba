package handlers

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"studio/internal/domain"
	"studio/internal/export"
	"studio/internal/middleware"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// fail maps a domain or provider error onto a status code and a localized message.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Str("code", code).Msg("handlers: request failed")
	}
	a.error(w, status, code, localize(r.Context(), code))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "asset_not_found"
	case errors.Is(err, domain.ErrPreconditionFailed):
		return http.StatusConflict, "precondition_failed"
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrNoImages):
		return http.StatusConflict, "no_images"
	case errors.Is(err, domain.ErrInvalidAspect),
		errors.Is(err, domain.ErrInvalidBackground),
		errors.Is(err, domain.ErrInvalidLayout),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrSceneIndex),
		errors.Is(err, domain.ErrImageIndex):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, export.ErrNothingToExport):
		return http.StatusNoContent, "nothing_to_export"
	}
	switch domain.ProviderErrorKindOf(err) {
	case domain.ProviderPermission:
		return http.StatusFailedDependency, "credential_required"
	case domain.ProviderTransient:
		return http.StatusServiceUnavailable, "provider_unavailable"
	case domain.ProviderInvalidInput, domain.ProviderEmpty:
		return http.StatusBadGateway, "provider_failed"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "provider_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

var catalog = map[string][2]string{
	"session_not_found":    {"Studio session not found.", "Sesi studio tidak ditemukan."},
	"asset_not_found":      {"Asset not found.", "Aset tidak ditemukan."},
	"precondition_failed":  {"Upload photos and run the analysis before generating assets.", "Unggah foto dan jalankan analisis sebelum membuat aset."},
	"busy":                 {"A generation batch is already running.", "Proses pembuatan aset sedang berjalan."},
	"invalid_transition":   {"Only finished assets can be regenerated.", "Hanya aset yang sudah selesai yang dapat dibuat ulang."},
	"no_images":            {"Upload at least one product photo.", "Unggah minimal satu foto produk."},
	"bad_request":          {"The request is invalid.", "Permintaan tidak valid."},
	"nothing_to_export":    {"There are no completed assets to download.", "Belum ada aset selesai untuk diunduh."},
	"credential_required":  {"Select a valid API key to continue.", "Pilih kunci API yang valid untuk melanjutkan."},
	"provider_unavailable": {"The generation service is busy. Please try again.", "Layanan pembuatan sedang sibuk. Silakan coba lagi."},
	"provider_failed":      {"The generation service could not complete the request.", "Layanan pembuatan tidak dapat menyelesaikan permintaan."},
	"export_failed":        {"Failed to package assets for download.", "Gagal mengemas aset untuk diunduh."},
	"upload_too_large":     {"The uploaded photos are too large.", "Ukuran foto yang diunggah terlalu besar."},
	"internal":             {"Something went wrong.", "Terjadi kesalahan."},
}

func init() {
	for key, msgs := range catalog {
		_ = message.SetString(language.English, key, msgs[0])
		_ = message.SetString(language.Indonesian, key, msgs[1])
	}
}

// localize returns the message for key in the request's negotiated language.
func localize(ctx context.Context, key string) string {
	return message.NewPrinter(middleware.LocaleFromContext(ctx)).Sprintf(key)
}
