package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/camroll/internal/capture"
	"github.com/starford/camroll/internal/mediaservice"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	svc     *mediaservice.Service
	host    *session.Host
	capture *capture.Controller
}

// NewHandler creates a new Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{svc: deps.Media, host: deps.Session, capture: deps.Capture}
}

// locatorParam builds the locator from /media/{collection}/{id}.
func locatorParam(r *http.Request) (models.Locator, bool) {
	kind, err := models.ParseKind(chi.URLParam(r, "collection"))
	if err != nil {
		return "", false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return "", false
	}
	return models.NewLocator(kind, id), true
}

// ListMedia handles GET /api/media.
//
//	@Summary		List indexed media, most recent first
//	@Tags			media
//	@Produce		json
//	@Param			kind	query		string	false	"Filter by kind"	Enums(image, video)
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	MediaListResponse
//	@Security		BearerAuth
//	@Router			/media [get]
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	var kind models.Kind
	if k := q.Get("kind"); k != "" {
		parsed, err := models.ParseKind(k)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		kind = parsed
	}

	items, total, err := h.svc.List(r.Context(), kind, limit, offset)
	if err != nil {
		writeError(w, "list media", err)
		return
	}
	if items == nil {
		items = []models.Media{}
	}
	writeJSON(w, http.StatusOK, MediaListResponse{Media: items, Total: total})
}

// Counts handles GET /api/media/counts.
//
//	@Summary		Count indexed media per kind
//	@Tags			media
//	@Produce		json
//	@Success		200	{object}	CountsResponse
//	@Security		BearerAuth
//	@Router			/media/counts [get]
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Counts(r.Context())
	if err != nil {
		writeError(w, "counts", err)
		return
	}
	writeJSON(w, http.StatusOK, CountsResponse{
		Images: counts[models.KindImage],
		Videos: counts[models.KindVideo],
	})
}

// GetMedia handles GET /api/media/{collection}/{id}.
//
//	@Summary		Get the metadata of one item
//	@Tags			media
//	@Produce		json
//	@Param			collection	path		string	true	"images or videos"
//	@Param			id			path		int		true	"Index id"
//	@Success		200			{object}	MediaResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media/{collection}/{id} [get]
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	loc, ok := locatorParam(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	m, err := h.svc.Get(r.Context(), loc)
	if err != nil {
		writeError(w, "get media", err)
		return
	}
	writeJSON(w, http.StatusOK, MediaResponse{Media: *m, ContentURL: contentURL(loc)})
}

// Content handles GET /api/media/{collection}/{id}/content.
//
//	@Summary		Stream the content of one item
//	@Tags			media
//	@Produce		octet-stream
//	@Param			collection	path	string	true	"images or videos"
//	@Param			id			path	int		true	"Index id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media/{collection}/{id}/content [get]
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	loc, ok := locatorParam(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	f, m, err := h.svc.Open(r.Context(), loc)
	if err != nil {
		writeError(w, "open media", err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", m.MimeType)
	// ServeContent handles Range requests, which video players rely on.
	http.ServeContent(w, r, m.DisplayName, m.DateAdded, f)
}

// DeleteMedia handles DELETE /api/media/{collection}/{id}.
//
//	@Summary		Delete one item from the library
//	@Tags			media
//	@Param			collection	path	string	true	"images or videos"
//	@Param			id			path	int		true	"Index id"
//	@Success		204			"Item deleted"
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media/{collection}/{id} [delete]
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	loc, ok := locatorParam(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err := h.svc.Delete(r.Context(), loc); err != nil {
		writeError(w, "delete media", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSession guards the screen endpoints on hosts built without one.
func (h *Handler) requireSession(w http.ResponseWriter) bool {
	if h.host == nil {
		writeJSON(w, http.StatusNotFound, errorBody("sessions disabled"))
		return false
	}
	return true
}

