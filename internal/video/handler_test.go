package video

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhost/service/internal/logging"
	"github.com/reelhost/service/internal/middleware"
)

const testSecret = "test-secret"

func token(t *testing.T, userID string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func newRouter(env *testEnv) http.Handler {
	h := NewHandler(env.service, env.uploader, testSecret, logging.Discard())
	r := chi.NewRouter()
	r.Post("/videos/{videoID}/video", h.UploadVideo)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(testSecret))
		r.Post("/videos", h.Create)
		r.Get("/videos", h.List)
		r.Get("/videos/{videoID}", h.Get)
		r.Delete("/videos/{videoID}", h.Delete)
	})
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func multipartBody(t *testing.T, field, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="clip.mp4"`, field))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, videoID, bearer, field, contentType string, content []byte) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, field, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/videos/"+videoID+"/video", body)
	req.Header.Set("Content-Type", ct)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func TestUploadVideoHandler(t *testing.T) {
	env := newTestEnv(t, withMaxSize(64))
	router := newRouter(env)
	owned := env.seed(t, "u1")
	payload := []byte("mp4 payload")

	cases := []struct {
		name        string
		videoID     string
		bearer      string
		field       string
		contentType string
		content     []byte
		want        int
	}{
		{"malformed id wins over missing token", "not-a-uuid", "", "video", "video/mp4", payload, http.StatusBadRequest},
		{"missing token", owned.ID, "", "video", "video/mp4", payload, http.StatusUnauthorized},
		{"bad token", owned.ID, "garbage", "video", "video/mp4", payload, http.StatusUnauthorized},
		{"missing field", owned.ID, token(t, "u1"), "file", "video/mp4", payload, http.StatusBadRequest},
		{"too large", owned.ID, token(t, "u1"), "video", "video/mp4", bytes.Repeat([]byte("x"), 65), http.StatusRequestEntityTooLarge},
		{"unknown video", uuid.NewString(), token(t, "u1"), "video", "video/mp4", payload, http.StatusNotFound},
		{"not owner", owned.ID, token(t, "u2"), "video", "video/mp4", payload, http.StatusForbidden},
		{"wrong type", owned.ID, token(t, "u1"), "video", "video/webm", payload, http.StatusUnsupportedMediaType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, tc.videoID, tc.bearer, tc.field, tc.contentType, tc.content))
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			body := decode(t, rec)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
		})
	}

	assert.Empty(t, env.stagingEntries(t))
	assert.Empty(t, env.assetFiles(t))
	assert.Empty(t, env.tools.called())
}

func TestUploadVideoHandlerSuccess(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)
	v := env.seed(t, "u1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, v.ID, token(t, "u1"), "video", "video/mp4", []byte("mp4 payload")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.True(t, body.Success)
	var got Video
	require.NoError(t, json.Unmarshal(body.Data, &got))
	require.NotNil(t, got.VideoURL)
	assert.True(t, strings.HasPrefix(*got.VideoURL, "http://cdn.test/assets/landscape/"), *got.VideoURL)
	assert.Empty(t, env.stagingEntries(t))
}

func TestUploadVideoHandlerToolFailure(t *testing.T) {
	env := newTestEnv(t)
	env.tools.remuxErr = fmt.Errorf("boom")
	router := newRouter(env)
	v := env.seed(t, "u1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, v.ID, token(t, "u1"), "video", "video/mp4", []byte("mp4 payload")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec).Error)
	assert.Empty(t, env.stagingEntries(t))
}

func TestVideoCRUDHandlers(t *testing.T) {
	env := newTestEnv(t)
	router := newRouter(env)
	auth := "Bearer " + token(t, "u1")

	do := func(method, path, body, authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/videos", `{"title":""}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/videos", `{`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/videos", `{"title":"Trip"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(http.MethodPost, "/videos", `{"title":"Trip","description":"coast"}`, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Video
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.Equal(t, "Trip", created.Title)
	assert.Equal(t, "u1", created.UserID)

	rec = do(http.MethodGet, "/videos", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Video
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Len(t, list, 1)

	rec = do(http.MethodGet, "/videos/"+created.ID, "", "Bearer "+token(t, "u2"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodGet, "/videos/nope", "", auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, "/videos/"+created.ID, "", auth)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodDelete, "/videos/"+created.ID, "", auth)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(http.MethodGet, "/videos/"+created.ID, "", auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
