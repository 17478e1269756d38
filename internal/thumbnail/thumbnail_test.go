package thumbnail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhost/service/internal/logging"
	"github.com/reelhost/service/internal/storage"
	"github.com/reelhost/service/internal/video"
)

const testSecret = "test-secret"

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

type memStore struct {
	mu        sync.Mutex
	videos    map[string]*video.Video
	updateErr error
	// afterGet runs once a record has been read, outside the lock.
	afterGet func(id string)
}

func (s *memStore) Create(_ context.Context, v *video.Video) (*video.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *v
	c.ID = uuid.NewString()
	s.videos[c.ID] = &c
	out := c
	return &out, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*video.Video, error) {
	s.mu.Lock()
	v, ok := s.videos[id]
	if !ok {
		s.mu.Unlock()
		return nil, video.ErrNotFound
	}
	out := *v
	s.mu.Unlock()
	if s.afterGet != nil {
		s.afterGet(id)
	}
	return &out, nil
}

func (s *memStore) ListByUser(context.Context, string) ([]*video.Video, error) {
	return nil, nil
}

func (s *memStore) SetVideoURL(_ context.Context, id, ref string) (*video.Video, *string, error) {
	return s.set(id, func(v *video.Video) **string { return &v.VideoURL }, ref)
}

func (s *memStore) SetThumbnailURL(_ context.Context, id, ref string) (*video.Video, *string, error) {
	return s.set(id, func(v *video.Video) **string { return &v.ThumbnailURL }, ref)
}

func (s *memStore) set(id string, field func(*video.Video) **string, ref string) (*video.Video, *string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, nil, s.updateErr
	}
	v, ok := s.videos[id]
	if !ok {
		return nil, nil, video.ErrNotFound
	}
	slot := field(v)
	previous := *slot
	*slot = &ref
	out := *v
	return &out, previous, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
	return nil
}

type fixture struct {
	store  *memStore
	assets *storage.LocalStorage
	svc    *Service
	router http.Handler
}

func newFixture(t *testing.T, mode Mode) *fixture {
	t.Helper()
	assets, err := storage.NewLocalStorage(t.TempDir(), "http://cdn.test/assets")
	require.NoError(t, err)
	videos, err := storage.NewResolver(storage.URLModePublic, assets, 0)
	require.NoError(t, err)

	var thumbs storage.Resolver = storage.InlineResolver{}
	if mode == ModeStorage {
		thumbs = videos
	}

	f := &fixture{store: &memStore{videos: make(map[string]*video.Video)}, assets: assets}
	f.svc = NewService(Config{
		Mode:       mode,
		Store:      f.store,
		Storage:    assets,
		Presenter:  video.NewPresenter(videos, thumbs),
		PublicBase: "http://api.test/",
		Logger:     logging.Discard(),
	})

	h := NewHandler(f.svc, testSecret, logging.Discard())
	r := chi.NewRouter()
	r.Post("/api/v1/videos/{videoID}/thumbnail", h.Upload)
	r.Get("/api/v1/thumbnails/{videoID}", h.Get)
	f.router = r
	return f
}

func (f *fixture) seed(t *testing.T, userID string) *video.Video {
	t.Helper()
	v, err := f.store.Create(context.Background(), &video.Video{UserID: userID, Title: "clip"})
	require.NoError(t, err)
	return v
}

func input(v *video.Video, userID, contentType string) UploadInput {
	return UploadInput{
		VideoID:     v.ID,
		UserID:      userID,
		File:        bytes.NewReader(pngBytes),
		Size:        int64(len(pngBytes)),
		ContentType: contentType,
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", Image{Data: []byte("1"), ContentType: "image/png"})
	c.Set("a", Image{Data: []byte("2"), ContentType: "image/jpeg"})
	img, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "2", string(img.Data))
	assert.Equal(t, 1, c.Len())

	c.Evict("a")
	c.Evict("missing")
	assert.Equal(t, 0, c.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("v%d", i%5)
			c.Set(id, Image{Data: []byte{byte(i)}})
			c.Get(id)
			if i%7 == 0 {
				c.Evict(id)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 5)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeStorage, "storage": ModeStorage, "Inline": ModeInline, " memory ": ModeMemory} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("disk")
	assert.Error(t, err)
}

func TestUploadStorageMode(t *testing.T) {
	f := newFixture(t, ModeStorage)
	v := f.seed(t, "u1")
	ctx := context.Background()

	got, err := f.svc.Upload(ctx, input(v, "u1", "image/png"))
	require.NoError(t, err)

	stored, _ := f.store.GetByID(ctx, v.ID)
	key := *stored.ThumbnailURL
	assert.True(t, strings.HasPrefix(key, "thumbnails/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "http://cdn.test/assets/"+key, *got.ThumbnailURL)

	data, err := os.ReadFile(filepath.Join(f.assets.Root(), filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	_, err = f.svc.Upload(ctx, input(v, "u1", "image/jpeg"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.assets.Root(), filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err), "previous thumbnail is removed")
}

func TestUploadInlineMode(t *testing.T) {
	f := newFixture(t, ModeInline)
	v := f.seed(t, "u1")

	got, err := f.svc.Upload(context.Background(), input(v, "u1", "image/png"))
	require.NoError(t, err)
	assert.Equal(t, storage.DataURI("image/png", pngBytes), *got.ThumbnailURL)
}

func TestUploadMemoryModeAndServe(t *testing.T) {
	f := newFixture(t, ModeMemory)
	v := f.seed(t, "u1")

	got, err := f.svc.Upload(context.Background(), input(v, "u1", "image/png"))
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/api/v1/thumbnails/"+v.ID, *got.ThumbnailURL)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/thumbnails/"+v.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	f.svc.Cache().Evict(v.ID)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/thumbnails/"+v.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/thumbnails/bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadLeavesVideoURLAlone(t *testing.T) {
	f := newFixture(t, ModeInline)
	v := f.seed(t, "u1")
	ctx := context.Background()

	// A video upload commits between the read and the thumbnail write.
	f.store.afterGet = func(id string) {
		f.store.afterGet = nil
		_, _, err := f.store.SetVideoURL(ctx, id, "landscape/fresh.mp4")
		require.NoError(t, err)
	}

	got, err := f.svc.Upload(ctx, input(v, "u1", "image/png"))
	require.NoError(t, err)
	require.NotNil(t, got.VideoURL)
	assert.Equal(t, "http://cdn.test/assets/landscape/fresh.mp4", *got.VideoURL)

	stored, _ := f.store.GetByID(ctx, v.ID)
	require.NotNil(t, stored.VideoURL)
	assert.Equal(t, "landscape/fresh.mp4", *stored.VideoURL)
	require.NotNil(t, stored.ThumbnailURL)
}

func TestUploadMemoryModeFailedSaveServesNothing(t *testing.T) {
	f := newFixture(t, ModeMemory)
	v := f.seed(t, "u1")
	f.store.updateErr = errors.New("connection reset")

	_, err := f.svc.Upload(context.Background(), input(v, "u1", "image/png"))
	require.Error(t, err)
	assert.Equal(t, 0, f.svc.Cache().Len())

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/thumbnails/"+v.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadStorageModeFailedSaveRemovesObject(t *testing.T) {
	f := newFixture(t, ModeStorage)
	v := f.seed(t, "u1")
	f.store.updateErr = errors.New("connection reset")

	_, err := f.svc.Upload(context.Background(), input(v, "u1", "image/png"))
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(f.assets.Root(), "thumbnails"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t, ModeStorage)
	v := f.seed(t, "owner")
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, input(v, "intruder", "image/png"))
	assert.ErrorIs(t, err, video.ErrForbidden)

	_, err = f.svc.Upload(ctx, input(v, "owner", "image/gif"))
	assert.ErrorIs(t, err, video.ErrUnsupportedMediaType)

	big := input(v, "owner", "image/png")
	big.Size = MaxSize + 1
	_, err = f.svc.Upload(ctx, big)
	assert.ErrorIs(t, err, video.ErrPayloadTooLarge)

	missing := input(&video.Video{ID: uuid.NewString()}, "owner", "image/png")
	_, err = f.svc.Upload(ctx, missing)
	assert.ErrorIs(t, err, video.ErrNotFound)

	stored, _ := f.store.GetByID(ctx, v.ID)
	assert.Nil(t, stored.ThumbnailURL)
}

func TestUploadHandler(t *testing.T) {
	f := newFixture(t, ModeInline)
	v := f.seed(t, "u1")

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	send := func(videoID, bearer, contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="thumbnail"; filename="thumb.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write(pngBytes)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/"+videoID+"/thumbnail", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, send("nope", "", "image/png").Code)
	assert.Equal(t, http.StatusUnauthorized, send(v.ID, "", "image/png").Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, send(v.ID, tok, "text/plain").Code)

	rec := send(v.ID, tok, "image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data video.Video `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Data.ThumbnailURL)
	assert.True(t, strings.HasPrefix(*body.Data.ThumbnailURL, "data:image/png;base64,"))
}
