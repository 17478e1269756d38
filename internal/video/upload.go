package video

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"

	"github.com/reelhost/service/internal/media"
	"github.com/reelhost/service/internal/staging"
	"github.com/reelhost/service/internal/storage"
)

// MaxVideoSize is the upload ceiling for video files (1 GiB).
const MaxVideoSize int64 = 1 << 30

// AcceptedVideoType is the only video MIME type accepted for upload.
const AcceptedVideoType = "video/mp4"

// Prober reads stream geometry from a staged file.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Geometry, error)
}

// Remuxer writes a fast-start copy of a staged file and returns its path.
type Remuxer interface {
	Remux(ctx context.Context, inputPath string) (string, error)
}

// UploadInput is one authenticated video upload.
type UploadInput struct {
	VideoID     string
	UserID      string
	File        io.Reader
	Size        int64
	ContentType string
}

// UploaderConfig wires the collaborators of an Uploader.
type UploaderConfig struct {
	Store     Store
	Staging   *staging.Manager
	Prober    Prober
	Remuxer   Remuxer
	Storage   storage.Storage
	Presenter *Presenter
	MaxSize   int64
	Logger    *slog.Logger
}

// Uploader runs the ingestion pipeline: stage, probe, remux, place, record.
type Uploader struct {
	store     Store
	staging   *staging.Manager
	prober    Prober
	remuxer   Remuxer
	storage   storage.Storage
	presenter *Presenter
	maxSize   int64
	logger    *slog.Logger
}

// NewUploader creates an Uploader from cfg.
func NewUploader(cfg UploaderConfig) *Uploader {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = MaxVideoSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{
		store:     cfg.Store,
		staging:   cfg.Staging,
		prober:    cfg.Prober,
		remuxer:   cfg.Remuxer,
		storage:   cfg.Storage,
		presenter: cfg.Presenter,
		maxSize:   maxSize,
		logger:    logger,
	}
}

// MaxSize returns the configured upload ceiling.
func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// Upload ingests in.File as the video for in.VideoID and returns the record
// with its URLs resolved. The persisted record keeps the storage key.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (*Video, error) {
	if in.Size > u.maxSize {
		return nil, ErrPayloadTooLarge
	}

	v, err := GetOwned(ctx, u.store, in.VideoID, in.UserID)
	if err != nil {
		return nil, err
	}

	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || mediaType != AcceptedVideoType {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMediaType, in.ContentType)
	}

	staged, err := u.staging.Stage(in.File, extension(mediaType))
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	processed := media.OutputPath(staged.Path)
	defer u.staging.Cleanup(staged.Path, processed)

	logger := u.logger.With("video_id", v.ID, "staged", staged.Name)

	geometry, err := u.prober.Probe(ctx, staged.Path)
	if err != nil {
		return nil, fmt.Errorf("probe upload: %w", err)
	}
	orientation := geometry.Orientation()

	out, err := u.remuxer.Remux(ctx, staged.Path)
	if err != nil {
		return nil, fmt.Errorf("remux upload: %w", err)
	}

	key := staged.Key(string(orientation))
	if err := storage.Place(ctx, u.storage, out, key, mediaType); err != nil {
		return nil, err
	}

	updated, previous, err := u.store.SetVideoURL(ctx, v.ID, key)
	if err != nil {
		u.removeObject(ctx, logger, key)
		return nil, fmt.Errorf("save video url: %w", err)
	}
	if previous != nil && *previous != key && storage.IsKey(*previous) {
		u.removeObject(ctx, logger, *previous)
	}

	logger.Info("video uploaded",
		"key", key,
		"width", geometry.Width,
		"height", geometry.Height,
		"orientation", orientation,
	)
	return u.presenter.Present(ctx, updated)
}

// removeObject deletes an object that no record points to any more. It runs
// even when the request context is already cancelled.
func (u *Uploader) removeObject(ctx context.Context, logger *slog.Logger, key string) {
	if err := u.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Warn("failed to remove orphaned object", "key", key, "error", err)
	}
}

// extension derives a file extension from a MIME type's subtype.
func extension(mediaType string) string {
	_, sub, ok := strings.Cut(mediaType, "/")
	if !ok || sub == "" {
		return "bin"
	}
	return sub
}
