package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/infra/credentials"
	"studio/internal/studio"
)

type sessionResponse struct {
	studio.State
	Credential    *credentials.Status `json:"credential,omitempty"`
	AnalysisError string              `json:"analysis_error,omitempty"`
}

func (a *App) sessionBody(r *http.Request, sess *studio.Session) sessionResponse {
	resp := sessionResponse{State: sess.State()}
	if a.Credentials != nil {
		st := a.Credentials.Status(r.Context())
		resp.Credential = &st
	}
	return resp
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := a.Sessions.Create()
	a.json(w, http.StatusCreated, a.sessionBody(r, sess))
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, a.sessionBody(r, sess))
}

// UploadImages replaces the reference photos and runs the analysis on them.
// An analysis failure still returns the new state with analysis_error set.
func (a *App) UploadImages(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	maxBytes := a.Config.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "upload_too_large", localize(r.Context(), "upload_too_large"))
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var images []domain.ReferenceImage
	for _, fh := range r.MultipartForm.File["images"] {
		f, err := fh.Open()
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable file")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable file")
			return
		}
		mime := http.DetectContentType(data)
		if !strings.HasPrefix(mime, "image/") {
			a.error(w, http.StatusBadRequest, "bad_request", "only image files are accepted")
			return
		}
		images = append(images, domain.ReferenceImage{Name: fh.Filename, MIMEType: mime, Data: data})
	}
	if kw := r.FormValue("keywords"); kw != "" {
		sess.SetKeywords(kw)
	}
	if err := sess.Upload(images); err != nil {
		a.fail(w, r, err)
		return
	}

	_, analyzeErr := sess.Analyze(r.Context())
	body := a.sessionBody(r, sess)
	if analyzeErr != nil {
		_, code := classify(analyzeErr)
		body.AnalysisError = localize(r.Context(), code)
	}
	a.json(w, http.StatusOK, body)
}

type analyzeRequest struct {
	Keywords *string `json:"keywords"`
}

func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req analyzeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}
	if req.Keywords != nil {
		sess.SetKeywords(*req.Keywords)
	}
	analysis, err := sess.Analyze(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, analysis)
}

type settingsRequest struct {
	Keywords      *string `json:"keywords"`
	SelectedImage *int    `json:"selected_image"`
	AspectRatio   *string `json:"aspect_ratio"`
}

func (a *App) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.AspectRatio != nil {
		ratio, err := domain.ParseAspectRatio(*req.AspectRatio)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		if err := sess.SetAspectRatio(ratio); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if req.SelectedImage != nil {
		if err := sess.SelectImage(*req.SelectedImage); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if req.Keywords != nil {
		sess.SetKeywords(*req.Keywords)
	}
	a.json(w, http.StatusOK, a.sessionBody(r, sess))
}

type sceneRequest struct {
	Text string `json:"text"`
}

func (a *App) AddScene(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req sceneRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"scenes": sess.AddScene(req.Text)})
}

func (a *App) UpdateScene(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "index must be a number")
		return
	}
	var req sceneRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	scenes, err := sess.SetScene(idx, req.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"scenes": scenes})
}

func (a *App) DeleteScene(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "index must be a number")
		return
	}
	scenes, err := sess.RemoveScene(idx)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"scenes": scenes})
}

func (a *App) UpdateThumbnailConfig(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var cfg domain.ThumbnailConfig
	if err := decodeJSON(r, &cfg); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := sess.SetThumbnailConfig(cfg); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"thumbnail_config": sess.State().ThumbnailConfig})
}
