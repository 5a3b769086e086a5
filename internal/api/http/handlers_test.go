package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/blob"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/capture"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/comment"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/mention"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/project"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/review"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/notify"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/overlay"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/providers/http/client"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/proxy"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/realtime"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = "https://example.com/pricing"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type fakeFetcher struct {
	resp *client.Response
	err  error
}

func (f *fakeFetcher) Get(_ context.Context, target string, _ http.Header) (*client.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.resp
	r.URL = target
	return &r, nil
}

type stubRenderer struct {
	available bool
	img       []byte
	err       error
}

func (r *stubRenderer) Name() string    { return "stub" }
func (r *stubRenderer) Available() bool { return r.available }
func (r *stubRenderer) Render(context.Context, capture.Request) ([]byte, error) {
	return r.img, r.err
}

type harness struct {
	router   *gin.Engine
	fetcher  *fakeFetcher
	renderer *stubRenderer
	verifier *middleware.Verifier
	comments *comment.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logging.NewNop()

	store, err := storage.Open(storage.Options{InMemory: true, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	hub := realtime.NewHub(nil, log)
	blobs, err := blob.NewLocalStore(t.TempDir(), log)
	require.NoError(t, err)
	script, err := overlay.LoadScript()
	require.NoError(t, err)

	hs := &harness{
		fetcher:  &fakeFetcher{},
		renderer: &stubRenderer{},
		verifier: middleware.NewVerifier("test-secret", ""),
	}
	hs.comments = comment.NewManager(comment.Deps{
		Comments: store.Comments,
		Projects: store.Projects,
		Mentions: mention.NewResolver(store.Users),
		Notifier: notify.NewLogDispatcher(log),
		Hub:      hub,
		Logger:   log,
	})
	t.Cleanup(hs.comments.Wait)

	h := NewHandlers(Deps{
		Proxy:           proxy.NewService(hs.fetcher, nil, nil, overlay.Injector{}, nil, log),
		Script:          script,
		Comments:        hs.comments,
		Reviews:         review.NewManager(store.Reviews, store.Projects, hub, nil, log),
		Projects:        project.NewManager(store.Projects, store.Reviews, store.Users, nil, log),
		Blobs:           blobs,
		Capture:         capture.NewService(nil, log, hs.renderer),
		Hub:             hub,
		CaptureSettings: capture.DefaultSettings(),
		Sync:            config.Default().Sync,
		PublicURL:       "https://review.example.com",
		Logger:          log,
	})
	hs.router = gin.New()
	h.Register(hs.router, hs.verifier, nil)
	return hs
}

func (hs *harness) token(t *testing.T, userID, name string) string {
	t.Helper()
	tok, err := hs.verifier.Sign(types.Identity{ID: userID, Name: name, Email: userID + "@example.com"}, time.Hour)
	require.NoError(t, err)
	return tok
}

type call struct {
	method string
	path   string
	body   any
	token  string
	header map[string]string
}

func (hs *harness) do(t *testing.T, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var body *bytes.Reader
	switch b := c.body.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case []byte:
		body = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	hs.router.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestProxy(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.do(t, call{method: "GET", path: "/proxy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing url parameter", body["error"])

	hs.fetcher.resp = &client.Response{
		Status: http.StatusOK,
		Header: http.Header{
			"Content-Type":    {"text/html; charset=utf-8"},
			"X-Frame-Options": {"DENY"},
		},
		Body: []byte(`<html><body><img src="/logo.png"></body></html>`),
	}
	w, _ = hs.do(t, call{method: "GET", path: "/proxy?url=" + url.QueryEscape(page) + "&breakpoint=mobile"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Empty(t, w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Body.String(), "https://review.example.com/overlay-script.js")
	assert.Contains(t, w.Body.String(), `window.__BREAKPOINT__ = "mobile"`)
	assert.Contains(t, w.Body.String(), "/proxy?url="+url.QueryEscape("https://example.com/logo.png"))

	hs.fetcher.err = errors.New("connection refused")
	w, body = hs.do(t, call{method: "GET", path: "/proxy?url=" + url.QueryEscape(page)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to proxy URL", body["error"])
}

func TestOverlayScriptETag(t *testing.T) {
	hs := newHarness(t)

	w, _ := hs.do(t, call{method: "GET", path: "/overlay-script.js"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, overlay.ContentType, w.Header().Get("Content-Type"))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w, _ = hs.do(t, call{method: "GET", path: "/overlay-script.js", header: map[string]string{"If-None-Match": etag}})
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestCommentLifecycle(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.do(t, call{method: "POST", path: "/api/comments", body: map[string]any{
		"url": page, "x": 120.0, "y": 40.0, "text": "Logo is blurry",
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	created := body["comment"].(map[string]any)
	id := created["id"].(string)
	assert.Equal(t, "Anonymous", created["author"])
	assert.Equal(t, "desktop", created["breakpoint"])
	assert.Equal(t, 100.0, created["x"])

	w, body = hs.do(t, call{method: "GET", path: "/api/comments?url=" + url.QueryEscape(page)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["comments"], 1)

	w, body = hs.do(t, call{method: "PATCH", path: "/api/comments/" + id, body: map[string]any{"resolved": true}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["comment"].(map[string]any)["resolved"])

	w, body = hs.do(t, call{method: "PATCH", path: "/api/comments/" + id + "/screenshot", body: map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Screenshot URL required", body["error"])

	w, body = hs.do(t, call{method: "POST", path: "/api/comments/" + id + "/replies", body: map[string]any{"text": "Fixed"}, token: hs.token(t, "usr_ada", "Ada")})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Ada", body["reply"].(map[string]any)["author"])

	w, body = hs.do(t, call{method: "GET", path: "/api/overlay/markers?url=" + url.QueryEscape(page)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RENDER_MARKERS", body["type"])
	markers := body["comments"].([]any)
	require.Len(t, markers, 1)
	assert.Equal(t, 2.0, markers[0].(map[string]any)["count"])

	w, body = hs.do(t, call{method: "DELETE", path: "/api/comments/url/" + url.PathEscape(page)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["deletedCount"])

	w, _ = hs.do(t, call{method: "PATCH", path: "/api/comments/" + id, body: map[string]any{"text": "again"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCommentValidation(t *testing.T) {
	hs := newHarness(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing text", map[string]any{"url": page, "x": 1.0, "y": 1.0}},
		{"missing position", map[string]any{"url": page, "text": "hi"}},
		{"bad url", map[string]any{"url": "ftp://example.com", "x": 1.0, "y": 1.0, "text": "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := hs.do(t, call{method: "POST", path: "/api/comments", body: tt.body})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, body["fields"])
		})
	}
}

func TestReviewsRequireAuthentication(t *testing.T) {
	hs := newHarness(t)

	w, _ := hs.do(t, call{method: "GET", path: "/api/reviews/project/prj_x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	owner := hs.token(t, "usr_owner", "Owner")
	w, body := hs.do(t, call{method: "POST", path: "/api/projects", token: owner, body: map[string]any{"name": "Site", "url": page}})
	require.Equal(t, http.StatusCreated, w.Code)
	projectID := body["project"].(map[string]any)["id"].(string)

	w, body = hs.do(t, call{method: "POST", path: "/api/reviews", token: owner, body: map[string]any{
		"projectId": projectID, "breakpointIndex": 0, "type": "point", "position": map[string]any{"x": 10, "y": 20},
	}})
	require.Equal(t, http.StatusCreated, w.Code)
	reviewID := body["review"].(map[string]any)["id"].(string)

	stranger := hs.token(t, "usr_stranger", "Stranger")
	w, _ = hs.do(t, call{method: "DELETE", path: "/api/reviews/" + reviewID, token: stranger})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = hs.do(t, call{method: "DELETE", path: "/api/reviews/" + reviewID, token: owner})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Review deleted", body["message"])
}

func TestShareLink(t *testing.T) {
	hs := newHarness(t)
	owner := hs.token(t, "usr_owner", "Owner")

	w, body := hs.do(t, call{method: "POST", path: "/api/projects", token: owner, body: map[string]any{"name": "Site", "url": page}})
	require.Equal(t, http.StatusCreated, w.Code)
	projectID := body["project"].(map[string]any)["id"].(string)

	w, body = hs.do(t, call{method: "POST", path: "/api/projects/" + projectID + "/share", token: owner, body: map[string]any{"password": "hunter2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["hasPassword"])
	settings := body["shareSettings"].(map[string]any)
	assert.NotContains(t, settings, "passwordHash")
	token := settings["token"].(string)
	assert.Len(t, token, 32)

	w, body = hs.do(t, call{method: "GET", path: "/api/share/" + token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, true, body["requiresPassword"])

	w, body = hs.do(t, call{method: "POST", path: "/api/share/" + token + "/verify", body: map[string]any{"password": "nope"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["valid"])

	w, body = hs.do(t, call{method: "GET", path: "/api/share/" + token + "?name=Guest", header: map[string]string{"X-Share-Password": "hunter2"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Site", body["project"].(map[string]any)["name"])
	assert.Equal(t, false, body["isAuthenticated"])

	w, body = hs.do(t, call{method: "GET", path: "/api/projects/" + projectID + "/participants", token: owner})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["participants"], 2)

	w, _ = hs.do(t, call{method: "DELETE", path: "/api/projects/" + projectID + "/share", token: owner})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = hs.do(t, call{method: "GET", path: "/api/share/" + token, header: map[string]string{"X-Share-Password": "hunter2"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCurrentUser(t *testing.T) {
	hs := newHarness(t)
	tok := hs.token(t, "usr_ada", "Ada")

	w, body := hs.do(t, call{method: "PUT", path: "/api/users/me", token: tok, body: map[string]any{"name": "Ada L"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada L", body["user"].(map[string]any)["name"])

	w, body = hs.do(t, call{method: "GET", path: "/api/users/me", token: tok})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "usr_ada@example.com", body["user"].(map[string]any)["email"])

	w, _ = hs.do(t, call{method: "PUT", path: "/api/users/me", token: tok, body: map[string]any{"email": "not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploads(t *testing.T) {
	hs := newHarness(t)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	w, body := hs.do(t, call{method: "POST", path: "/api/uploads/screenshot-base64", body: map[string]any{"imageData": dataURL, "filename": "../../etc/passwd"}})
	require.Equal(t, http.StatusOK, w.Code)
	stored := body["url"].(string)
	assert.True(t, strings.HasPrefix(stored, "/uploads/screenshots/screenshot-"))
	assert.True(t, strings.HasSuffix(stored, ".png"))

	w, _ = hs.do(t, call{method: "GET", path: stored})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w, _ = hs.do(t, call{method: "POST", path: "/api/uploads/screenshot-base64", body: map[string]any{
		"imageData": base64.StdEncoding.EncodeToString([]byte("plain text, not an image")),
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("screenshot", "shot.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/uploads/screenshot", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	hs.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestCaptureScreenshot(t *testing.T) {
	hs := newHarness(t)
	path := "/api/uploads/capture-screenshot"

	w, _ := hs.do(t, call{method: "POST", path: path, body: map[string]any{"x": 10}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := hs.do(t, call{method: "POST", path: path, body: map[string]any{"url": page, "x": 50, "y": 50}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["skipped"])
	assert.Nil(t, body["url"])

	hs.renderer.available = true
	hs.renderer.err = errors.New("navigation timeout")
	w, _ = hs.do(t, call{method: "POST", path: path, body: map[string]any{"url": page}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	hs.renderer.err = nil
	hs.renderer.img = pngBytes
	w, body = hs.do(t, call{method: "POST", path: path, body: map[string]any{"url": page, "x": 50, "y": 50}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "stub", body["renderer"])
}

func TestSyncConfig(t *testing.T) {
	hs := newHarness(t)

	w, body := hs.do(t, call{method: "GET", path: "/api/sync/config"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3000.0, body["commentsPollMs"])
	assert.Equal(t, 30000.0, body["participantsPollMs"])
}

func TestStreamLogs(t *testing.T) {
	hs := newHarness(t)

	w, _ := hs.do(t, call{method: "POST", path: "/api/logs", body: map[string]any{"source": "kernel", "entries": []any{map[string]any{"message": "x"}}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := hs.do(t, call{method: "POST", path: "/api/logs", body: map[string]any{
		"source":  "overlay",
		"entries": []any{map[string]any{"level": "error", "message": "postMessage rejected", "context": map[string]any{"breakpoint": "mobile"}}},
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["entries_processed"])
}
