// Package video owns video records and the ingestion pipeline that turns an
// uploaded MP4 into a fast-start object in storage.
package video

import (
	"context"
	"errors"
	"time"
)

// Video is a video record. VideoURL and ThumbnailURL hold the durable
// reference (usually a storage key) when persisted and the client-facing URL
// once presented.
type Video struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     *string   `json:"videoUrl"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	// ErrInvalidRequest is returned for a malformed id or a missing file field.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthenticated is returned when no valid bearer token was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the caller does not own the video.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a video does not exist.
	ErrNotFound = errors.New("video not found")
	// ErrUnsupportedMediaType is returned for uploads of the wrong type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrPayloadTooLarge is returned for uploads above the size ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Store persists video records. Writes are atomic per record.
//
// SetVideoURL and SetThumbnailURL change only their own column, so an upload
// never writes back a stale copy of the other fields. Each returns the updated
// record and the reference it replaced.
type Store interface {
	Create(ctx context.Context, v *Video) (*Video, error)
	GetByID(ctx context.Context, id string) (*Video, error)
	ListByUser(ctx context.Context, userID string) ([]*Video, error)
	SetVideoURL(ctx context.Context, id, ref string) (*Video, *string, error)
	SetThumbnailURL(ctx context.Context, id, ref string) (*Video, *string, error)
	Delete(ctx context.Context, id string) error
}

// GetOwned loads a video and checks that userID owns it.
func GetOwned(ctx context.Context, store Store, id, userID string) (*Video, error) {
	v, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.UserID != userID {
		return nil, ErrForbidden
	}
	return v, nil
}
