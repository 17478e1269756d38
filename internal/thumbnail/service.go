package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/reelhost/service/internal/staging"
	"github.com/reelhost/service/internal/storage"
	"github.com/reelhost/service/internal/video"
)

// MaxSize is the upload ceiling for thumbnails (10 MiB).
const MaxSize int64 = 10 << 20

// Mode selects where thumbnail bytes live.
type Mode string

const (
	// ModeStorage places thumbnails in the asset store under thumbnails/.
	ModeStorage Mode = "storage"
	// ModeInline persists the image as a data: URI on the record.
	ModeInline Mode = "inline"
	// ModeMemory keeps the image in a Cache and records the URL that serves it.
	ModeMemory Mode = "memory"
)

// ParseMode validates a configured thumbnail mode. "" selects storage.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeStorage, ModeInline, ModeMemory:
		return m, nil
	case "":
		return ModeStorage, nil
	default:
		return "", fmt.Errorf("unknown thumbnail mode %q", s)
	}
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// UploadInput is one authenticated thumbnail upload.
type UploadInput struct {
	VideoID     string
	UserID      string
	File        io.Reader
	Size        int64
	ContentType string
}

// Config wires the collaborators of a Service.
type Config struct {
	Mode       Mode
	Store      video.Store
	Storage    storage.Storage
	Cache      *Cache
	Presenter  *video.Presenter
	PublicBase string
	MaxSize    int64
	Logger     *slog.Logger
}

// Service attaches thumbnails to videos.
type Service struct {
	mode       Mode
	store      video.Store
	storage    storage.Storage
	cache      *Cache
	presenter  *video.Presenter
	publicBase string
	maxSize    int64
	logger     *slog.Logger
}

// NewService creates a thumbnail Service.
func NewService(cfg Config) *Service {
	if cfg.Mode == "" {
		cfg.Mode = ModeStorage
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = MaxSize
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		mode:       cfg.Mode,
		store:      cfg.Store,
		storage:    cfg.Storage,
		cache:      cfg.Cache,
		presenter:  cfg.Presenter,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
		maxSize:    cfg.MaxSize,
		logger:     cfg.Logger,
	}
}

// MaxSize returns the configured upload ceiling.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// Cache returns the cache used in memory mode.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Upload attaches in.File as the thumbnail of in.VideoID and returns the
// record with its URLs resolved.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*video.Video, error) {
	if in.Size > s.maxSize {
		return nil, video.ErrPayloadTooLarge
	}

	v, err := video.GetOwned(ctx, s.store, in.VideoID, in.UserID)
	if err != nil {
		return nil, err
	}

	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	ext, ok := extensions[mediaType]
	if err != nil || !ok {
		return nil, fmt.Errorf("%w: %q", video.ErrUnsupportedMediaType, in.ContentType)
	}

	data, err := io.ReadAll(io.LimitReader(in.File, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, video.ErrPayloadTooLarge
	}

	ref, err := s.place(ctx, v.ID, ext, mediaType, data)
	if err != nil {
		return nil, err
	}

	updated, previous, err := s.store.SetThumbnailURL(ctx, v.ID, ref)
	if err != nil {
		if storage.IsKey(ref) {
			s.removeObject(ctx, ref)
		}
		return nil, fmt.Errorf("save thumbnail url: %w", err)
	}
	// The memory URL only goes live once the record points at it.
	if s.mode == ModeMemory {
		s.cache.Set(v.ID, Image{Data: data, ContentType: mediaType})
	}
	if previous != nil && *previous != ref && storage.IsKey(*previous) {
		s.removeObject(ctx, *previous)
	}

	s.logger.Info("thumbnail uploaded", "video_id", v.ID, "mode", s.mode, "bytes", len(data))
	return s.presenter.Present(ctx, updated)
}

func (s *Service) place(ctx context.Context, videoID, ext, mediaType string, data []byte) (string, error) {
	switch s.mode {
	case ModeInline:
		return storage.DataURI(mediaType, data), nil
	case ModeMemory:
		return s.publicBase + "/api/v1/thumbnails/" + videoID, nil
	default:
		name, err := staging.RandomName()
		if err != nil {
			return "", err
		}
		key := fmt.Sprintf("thumbnails/%s.%s", name, ext)
		if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mediaType); err != nil {
			return "", fmt.Errorf("store thumbnail: %w", err)
		}
		return key, nil
	}
}

func (s *Service) removeObject(ctx context.Context, key string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("failed to remove orphaned thumbnail", "key", key, "error", err)
	}
}
