package video

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelhost/service/internal/storage"
)

// Service contains the record-level operations on videos.
type Service struct {
	store     Store
	storage   storage.Storage
	presenter *Presenter
	onDelete  func(videoID string)
	logger    *slog.Logger
}

// NewService creates a video Service. onDelete, when set, runs after a
// record is removed.
func NewService(store Store, st storage.Storage, presenter *Presenter, onDelete func(videoID string), logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, storage: st, presenter: presenter, onDelete: onDelete, logger: logger}
}

// Create adds a draft video owned by userID. It has no assets yet.
func (s *Service) Create(ctx context.Context, userID, title, description string) (*Video, error) {
	v, err := s.store.Create(ctx, &Video{UserID: userID, Title: title, Description: description})
	if err != nil {
		return nil, err
	}
	return s.presenter.Present(ctx, v)
}

// List returns the caller's videos with resolved URLs.
func (s *Service) List(ctx context.Context, userID string) ([]*Video, error) {
	vs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.presenter.PresentAll(ctx, vs)
}

// Get returns one of the caller's videos with resolved URLs.
func (s *Service) Get(ctx context.Context, userID, id string) (*Video, error) {
	v, err := GetOwned(ctx, s.store, id, userID)
	if err != nil {
		return nil, err
	}
	return s.presenter.Present(ctx, v)
}

// Delete removes one of the caller's videos and, best effort, its stored assets.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	v, err := GetOwned(ctx, s.store, id, userID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	for _, ref := range []*string{v.VideoURL, v.ThumbnailURL} {
		if ref == nil || !storage.IsKey(*ref) {
			continue
		}
		if err := s.storage.Delete(ctx, *ref); err != nil {
			s.logger.Warn("failed to remove video asset", "video_id", id, "key", *ref, "error", err)
		}
	}
	if s.onDelete != nil {
		s.onDelete(id)
	}
	return nil
}
