package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/selection"
)

// maxCaptureBytes caps one capture upload.
const maxCaptureBytes = 512 << 20

// captureBody returns the uploaded bytes: the "file" field of a multipart
// form, or the raw request body otherwise.
func captureBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCaptureBytes)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		return r.Body, true
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing file field"))
		return nil, false
	}
	return f, true
}

func (h *Handler) doCapture(w http.ResponseWriter, r *http.Request, video bool) {
	if h.capture == nil {
		writeJSON(w, http.StatusNotFound, errorBody("capture disabled"))
		return
	}
	body, ok := captureBody(w, r)
	if !ok {
		return
	}
	defer body.Close()

	var (
		m   *models.Media
		err error
	)
	if video {
		m, err = h.capture.RecordVideo(r.Context(), body)
	} else {
		m, err = h.capture.CapturePhoto(r.Context(), body)
	}
	if err != nil {
		writeError(w, "capture", err)
		return
	}
	writeJSON(w, http.StatusCreated, MediaResponse{Media: *m, ContentURL: contentURL(m.Locator)})
}

// CapturePhoto handles POST /api/capture/photo.
//
//	@Summary		Save a captured JPEG photo
//	@Tags			capture
//	@Accept			image/jpeg
//	@Accept			multipart/form-data
//	@Produce		json
//	@Success		201	{object}	MediaResponse
//	@Failure		403	{object}	errResponse
//	@Failure		415	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/capture/photo [post]
func (h *Handler) CapturePhoto(w http.ResponseWriter, r *http.Request) {
	h.doCapture(w, r, false)
}

// RecordVideo handles POST /api/capture/video.
//
//	@Summary		Save a recorded MP4 video
//	@Tags			capture
//	@Accept			video/mp4
//	@Accept			multipart/form-data
//	@Produce		json
//	@Success		201	{object}	MediaResponse
//	@Failure		403	{object}	errResponse
//	@Failure		415	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/capture/video [post]
func (h *Handler) RecordVideo(w http.ResponseWriter, r *http.Request) {
	h.doCapture(w, r, true)
}

// Gallery handles GET /api/gallery.
func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	st, err := h.host.Gallery(r.Context())
	if err != nil {
		writeError(w, "gallery", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Refresh handles POST /api/gallery/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	st, err := h.host.Refresh(r.Context())
	if err != nil {
		writeError(w, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetMode handles PUT /api/gallery/mode.
//
//	@Summary		Set the gallery selection mode
//	@Tags			gallery
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ModeRequest	true	"single or multi"
//	@Success		200		{object}	session.GalleryState
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gallery/mode [put]
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	var req ModeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := selection.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	st, err := h.host.SetMode(r.Context(), mode)
	if err != nil {
		writeError(w, "set mode", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ToggleMode handles POST /api/gallery/mode/toggle.
func (h *Handler) ToggleMode(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	st, err := h.host.ToggleMode(r.Context())
	if err != nil {
		writeError(w, "toggle mode", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Tap handles POST /api/gallery/tap. In single mode the tap opens the
// viewer, which shows up in the returned state.
//
//	@Summary		Tap a grid cell
//	@Tags			gallery
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PositionRequest	true	"Grid position"
//	@Success		200		{object}	session.GalleryState
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gallery/tap [post]
func (h *Handler) Tap(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	var req PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.host.Tap(r.Context(), req.Position)
	if err != nil {
		writeError(w, "tap", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteSelected handles POST /api/gallery/delete.
//
//	@Summary		Delete every selected item
//	@Tags			gallery
//	@Produce		json
//	@Success		200	{object}	DeleteResultResponse
//	@Failure		423	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gallery/delete [post]
func (h *Handler) DeleteSelected(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	res, err := h.host.DeleteSelected(r.Context())
	if err != nil {
		writeError(w, "delete selected", err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResultDTO(res))
}

// OpenViewer handles POST /api/viewer.
func (h *Handler) OpenViewer(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	var req PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.host.OpenViewer(r.Context(), req.Position)
	if err != nil {
		writeError(w, "open viewer", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// Viewer handles GET /api/viewer.
func (h *Handler) Viewer(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	st, err := h.host.Viewer(r.Context())
	if err != nil {
		writeError(w, "viewer", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Page handles GET /api/viewer/pages/{position}.
//
//	@Summary		Resolve the page variant at a position
//	@Tags			viewer
//	@Produce		json
//	@Param			position	path		int	true	"List position"
//	@Success		200			{object}	PageResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewer/pages/{position} [get]
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	pos, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid position"))
		return
	}
	p, err := h.host.Page(r.Context(), pos)
	if err != nil {
		writeError(w, "page", err)
		return
	}
	writeJSON(w, http.StatusOK, pageDTO(p))
}

// SetCurrent handles PUT /api/viewer/current.
func (h *Handler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	var req PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st, err := h.host.SetCurrent(r.Context(), req.Position)
	if err != nil {
		writeError(w, "set current", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteCurrent handles POST /api/viewer/delete.
//
//	@Summary		Delete the item shown in the viewer
//	@Tags			viewer
//	@Produce		json
//	@Success		200	{object}	session.ViewerState
//	@Failure		404	{object}	errResponse
//	@Failure		423	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewer/delete [post]
func (h *Handler) DeleteCurrent(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	st, err := h.host.DeleteCurrent(r.Context())
	if err != nil {
		writeError(w, "delete current", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CloseViewer handles DELETE /api/viewer.
func (h *Handler) CloseViewer(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	if err := h.host.CloseViewer(r.Context()); err != nil {
		writeError(w, "close viewer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
