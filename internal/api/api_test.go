package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/camroll/internal/capture"
	"github.com/starford/camroll/internal/mediaservice"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/pager"
	"github.com/starford/camroll/internal/session"
	"github.com/starford/camroll/internal/testutil"
)

type testEnv struct {
	svc    *mediaservice.Service
	router http.Handler
}

// newTestEnv sets up a temp library, SQLite DB, services and router.
// An empty token means auth is disabled.
func newTestEnv(t *testing.T, token string, opts ...mediaservice.Option) *testEnv {
	t.Helper()
	return newTestEnvSSE(t, token, nil, opts...)
}

func newTestEnvSSE(t *testing.T, token string, sseHandler http.Handler, opts ...mediaservice.Option) *testEnv {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	clock := time.Unix(1700000000, 0)
	opts = append([]mediaservice.Option{mediaservice.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})}, opts...)
	svc := mediaservice.NewService(store, testutil.TestDB(t), opts...)
	host := session.New(svc, nil, testutil.DiscardLogger())
	t.Cleanup(host.Close)

	capt := capture.New(svc, "DCIM/Camera", "Movies", testutil.DiscardLogger())
	shot := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	capt.SetClock(func() time.Time {
		shot = shot.Add(time.Second)
		return shot
	})

	router := NewRouter(Deps{Media: svc, Session: host, Capture: capt}, token != "", token, sseHandler)
	return &testEnv{svc: svc, router: router}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) capturePhoto(t *testing.T) MediaResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/capture/photo", bytes.NewReader(testutil.JPEG))
	req.Header.Set("Content-Type", "image/jpeg")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("capture photo = %d, body = %s", w.Code, w.Body.String())
	}
	var m MediaResponse
	decode(t, w, &m)
	return m
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, w.Body.String())
	}
}

func TestCaptureAndGetMedia(t *testing.T) {
	env := newTestEnv(t, "")
	m := env.capturePhoto(t)
	if m.Kind != "image" || m.MimeType != "image/jpeg" {
		t.Fatalf("media = %+v", m.Media)
	}
	if !strings.HasPrefix(m.Path, "DCIM/Camera/20240501_1000") {
		t.Errorf("path = %q", m.Path)
	}

	kind, id, err := m.Locator.Split()
	if err != nil || kind != models.KindImage {
		t.Fatalf("locator %q: %v", m.Locator, err)
	}
	w := env.do(t, http.MethodGet, contentURL(m.Locator)[len("/api"):], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("content = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), testutil.JPEG) {
		t.Error("content mismatch")
	}

	w = env.do(t, http.MethodGet, "/media/images/"+itoa(id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestCaptureMultipartVideo(t *testing.T) {
	env := newTestEnv(t, "")
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "clip.mp4")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(testutil.MP4)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/capture/video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("record = %d, body = %s", w.Code, w.Body.String())
	}
	var m MediaResponse
	decode(t, w, &m)
	if m.Kind != "video" || !strings.HasPrefix(m.Path, "Movies/20240501_1000") {
		t.Errorf("media = %+v", m.Media)
	}
}

func TestCaptureWrongFormat(t *testing.T) {
	env := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/capture/photo", bytes.NewReader(testutil.PNG))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("png photo = %d, want 415", w.Code)
	}
}

func TestCaptureMissingFileField(t *testing.T) {
	env := newTestEnv(t, "")
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/capture/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file = %d, want 400", w.Code)
	}
}

func TestListAndCounts(t *testing.T) {
	env := newTestEnv(t, "")
	env.capturePhoto(t)
	env.capturePhoto(t)

	w := env.do(t, http.MethodGet, "/media?kind=image&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var list MediaListResponse
	decode(t, w, &list)
	if list.Total != 2 || len(list.Media) != 1 {
		t.Errorf("list = %+v", list)
	}

	w = env.do(t, http.MethodGet, "/media?kind=audio", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodGet, "/media/counts", nil)
	var counts CountsResponse
	decode(t, w, &counts)
	if counts.Images != 2 || counts.Videos != 0 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestDeleteMedia(t *testing.T) {
	env := newTestEnv(t, "")
	m := env.capturePhoto(t)
	_, id, _ := m.Locator.Split()

	w := env.do(t, http.MethodDelete, "/media/images/"+itoa(id), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/media/images/"+itoa(id), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/media/images/"+itoa(id), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestGetMedia_BadLocator(t *testing.T) {
	env := newTestEnv(t, "")
	for _, p := range []string{"/media/audio/1", "/media/images/x", "/media/images/0"} {
		if w := env.do(t, http.MethodGet, p, nil); w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", p, w.Code)
		}
	}
}

func TestReadOnlyLibrary(t *testing.T) {
	env := newTestEnv(t, "", mediaservice.WithReadOnly(true))
	req := httptest.NewRequest(http.MethodPost, "/capture/photo", bytes.NewReader(testutil.JPEG))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("capture on read-only = %d, want 403", w.Code)
	}
}

func TestGalleryMultiDelete(t *testing.T) {
	env := newTestEnv(t, "")
	for range 3 {
		env.capturePhoto(t)
	}

	w := env.do(t, http.MethodPost, "/gallery/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d", w.Code)
	}
	var st session.GalleryState
	decode(t, w, &st)
	if len(st.Items) != 3 || st.Mode != "single" {
		t.Fatalf("gallery = %+v", st)
	}

	w = env.do(t, http.MethodPut, "/gallery/mode", ModeRequest{Mode: "multi"})
	if w.Code != http.StatusOK {
		t.Fatalf("mode = %d", w.Code)
	}
	for _, pos := range []int{0, 2} {
		w = env.do(t, http.MethodPost, "/gallery/tap", PositionRequest{Position: pos})
		if w.Code != http.StatusOK {
			t.Fatalf("tap %d = %d", pos, w.Code)
		}
	}
	decode(t, w, &st)
	if st.Selected != 2 || !st.Items[0].Highlighted || st.Items[1].Highlighted {
		t.Fatalf("after taps = %+v", st)
	}

	w = env.do(t, http.MethodPost, "/gallery/delete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	var res DeleteResultResponse
	decode(t, w, &res)
	if len(res.Deleted) != 2 || res.Message != "deleted: 2" {
		t.Errorf("result = %+v", res)
	}

	w = env.do(t, http.MethodGet, "/gallery", nil)
	decode(t, w, &st)
	if len(st.Items) != 1 || st.Selected != 0 {
		t.Errorf("gallery after delete = %+v", st)
	}
}

func TestGalleryDeleteNothingSelected(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodPost, "/gallery/delete", nil)
	var res DeleteResultResponse
	decode(t, w, &res)
	if res.Message != "nothing selected" || len(res.Deleted) != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestGalleryValidation(t *testing.T) {
	env := newTestEnv(t, "")
	if w := env.do(t, http.MethodPut, "/gallery/mode", ModeRequest{Mode: "many"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/gallery/tap", PositionRequest{Position: -1}); w.Code != http.StatusBadRequest {
		t.Errorf("negative tap = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/gallery/tap", PositionRequest{Position: 5}); w.Code != http.StatusBadRequest {
		t.Errorf("out of range tap = %d, want 400", w.Code)
	}
}

func TestViewerFlow(t *testing.T) {
	env := newTestEnv(t, "")
	env.capturePhoto(t)
	env.capturePhoto(t)
	env.do(t, http.MethodPost, "/gallery/refresh", nil)

	if w := env.do(t, http.MethodGet, "/viewer", nil); w.Code != http.StatusNotFound {
		t.Errorf("viewer before open = %d, want 404", w.Code)
	}

	w := env.do(t, http.MethodPost, "/viewer", PositionRequest{Position: 1})
	if w.Code != http.StatusCreated {
		t.Fatalf("open = %d", w.Code)
	}
	var vs session.ViewerState
	decode(t, w, &vs)
	if vs.State != pager.Loaded || vs.Current != 1 || len(vs.Locators) != 2 {
		t.Fatalf("viewer = %+v", vs)
	}

	w = env.do(t, http.MethodGet, "/viewer/pages/0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("page = %d", w.Code)
	}
	var page PageResponse
	decode(t, w, &page)
	if page.Kind != "image" || page.Locator != vs.Locators[0] {
		t.Errorf("page = %+v", page)
	}
	if w := env.do(t, http.MethodGet, "/viewer/pages/9", nil); w.Code != http.StatusBadRequest {
		t.Errorf("page out of range = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/viewer/delete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete current = %d, body = %s", w.Code, w.Body.String())
	}
	decode(t, w, &vs)
	if vs.State != pager.Loaded || vs.Current != 0 || len(vs.Locators) != 1 {
		t.Fatalf("after delete = %+v", vs)
	}

	w = env.do(t, http.MethodPost, "/viewer/delete", nil)
	decode(t, w, &vs)
	if vs.State != pager.Terminal {
		t.Errorf("after deleting last = %+v", vs)
	}

	var st session.GalleryState
	decode(t, env.do(t, http.MethodGet, "/gallery", nil), &st)
	if len(st.Items) != 0 {
		t.Errorf("gallery items = %d, want 0", len(st.Items))
	}
}

func TestCloseViewer(t *testing.T) {
	env := newTestEnv(t, "")
	env.capturePhoto(t)
	env.do(t, http.MethodPost, "/gallery/refresh", nil)
	env.do(t, http.MethodPost, "/viewer", PositionRequest{Position: 0})

	if w := env.do(t, http.MethodDelete, "/viewer", nil); w.Code != http.StatusNoContent {
		t.Fatalf("close = %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/viewer", nil); w.Code != http.StatusNotFound {
		t.Errorf("second close = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/media", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	w := env.do(t, http.MethodGet, "/media", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret")
	req := httptest.NewRequest(http.MethodGet, "/gallery", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// blockingSSE writes headers and blocks until the request is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := newTestEnvSSE(t, "secret", blockingSSE)
	w := env.do(t, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := newTestEnvSSE(t, "tok", blockingSSE)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
