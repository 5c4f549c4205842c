package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/camroll/internal/capture"
	"github.com/starford/camroll/internal/mediaservice"
	"github.com/starford/camroll/internal/session"
)

// Deps are the services the API is built on.
type Deps struct {
	Media   *mediaservice.Service
	Session *session.Host
	Capture *capture.Controller
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(deps Deps, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Media index.
	r.Get("/media", h.ListMedia)
	r.Get("/media/counts", h.Counts)
	r.Route("/media/{collection}/{id}", func(r chi.Router) {
		r.Get("/", h.GetMedia)
		r.Get("/content", h.Content)
		r.Delete("/", h.DeleteMedia)
	})

	// Capture.
	r.Post("/capture/photo", h.CapturePhoto)
	r.Post("/capture/video", h.RecordVideo)

	// Gallery screen.
	r.Get("/gallery", h.Gallery)
	r.Post("/gallery/refresh", h.Refresh)
	r.Put("/gallery/mode", h.SetMode)
	r.Post("/gallery/mode/toggle", h.ToggleMode)
	r.Post("/gallery/tap", h.Tap)
	r.Post("/gallery/delete", h.DeleteSelected)

	// Detail viewer.
	r.Post("/viewer", h.OpenViewer)
	r.Get("/viewer", h.Viewer)
	r.Get("/viewer/pages/{position}", h.Page)
	r.Put("/viewer/current", h.SetCurrent)
	r.Post("/viewer/delete", h.DeleteCurrent)
	r.Delete("/viewer", h.CloseViewer)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
