package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"genmedia/internal/http/handlers"
	"genmedia/internal/middleware"
)

// NewRouter wires the HTTP surface. Everything except /health sits behind
// the Firebase auth middleware.
func NewRouter(app *handlers.App, verifier middleware.TokenVerifier, allowed middleware.AllowFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(app.Config.CORSOrigins),
		middleware.Logger(app.Logger),
	)

	r.Get("/health", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(verifier, allowed))

		r.Route("/generate", func(r chi.Router) {
			r.Post("/image", app.GenerateImage)
			r.Post("/text", app.GenerateText)
			r.Post("/video", app.GenerateVideo)
			r.Post("/video/status", app.GenerateVideoStatus)
			r.Post("/upscale", app.UpscaleImage)
		})

		r.Route("/library", func(r chi.Router) {
			r.Post("/save", app.SaveAsset)
			r.Get("/", app.ListAssets)
			r.Get("/{id}", app.GetAsset)
			r.Delete("/{id}", app.DeleteAsset)
		})

		r.Route("/workflows", func(r chi.Router) {
			r.Post("/save", app.SaveWorkflow)
			r.Get("/", app.ListWorkflows)
			r.Get("/{id}", app.GetWorkflow)
			r.Put("/{id}", app.UpdateWorkflow)
			r.Delete("/{id}", app.DeleteWorkflow)
			r.Post("/{id}/clone", app.CloneWorkflow)
		})
	})

	return r
}
