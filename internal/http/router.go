package httpapi

import (
	stdhttp "net/http"
	"time"

	"studio/internal/http/handlers"
	"studio/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSOrigins),
		middleware.Locale(app.Config.DefaultLocale),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", app.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetSession)
				r.Post("/images", app.UploadImages)
				r.Post("/analysis", app.Analyze)
				r.Put("/settings", app.UpdateSettings)
				r.Post("/scenes", app.AddScene)
				r.Put("/scenes/{index}", app.UpdateScene)
				r.Delete("/scenes/{index}", app.DeleteScene)
				r.Put("/thumbnail-config", app.UpdateThumbnailConfig)
				r.Post("/generate", app.Generate)
				r.Post("/thumbnail", app.GenerateThumbnail)
				r.Get("/assets", app.ListAssets)
				r.Post("/assets/{assetID}/retry", app.RetryAsset)
				r.Get("/export", app.Export)
				r.Get("/listing.xlsx", app.ListingSheet)
			})
		})

		r.Route("/v1/credentials", func(r chi.Router) {
			r.Get("/", app.CredentialStatus)
			r.Put("/", app.SelectCredential)
		})
	})

	// Generated media
	if app.Config.StoragePath != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(app.Config.StoragePath)))
		r.Handle("/static/*", fs)
	}

	return r
}
