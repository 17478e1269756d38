package video

import (
	"context"
	"fmt"

	"github.com/reelhost/service/internal/storage"
)

// Presenter resolves the stored references on a record into client URLs.
// The record itself is never modified, so the durable form stays intact.
type Presenter struct {
	videos     storage.Resolver
	thumbnails storage.Resolver
}

// NewPresenter returns a Presenter. thumbnails may be nil, in which case the
// video resolver is used for both fields.
func NewPresenter(videos, thumbnails storage.Resolver) *Presenter {
	if thumbnails == nil {
		thumbnails = videos
	}
	return &Presenter{videos: videos, thumbnails: thumbnails}
}

// Present returns a copy of v with resolved URLs.
func (p *Presenter) Present(ctx context.Context, v *Video) (*Video, error) {
	out := *v
	var err error
	if out.VideoURL, err = resolve(ctx, p.videos, v.VideoURL); err != nil {
		return nil, fmt.Errorf("resolve video url: %w", err)
	}
	if out.ThumbnailURL, err = resolve(ctx, p.thumbnails, v.ThumbnailURL); err != nil {
		return nil, fmt.Errorf("resolve thumbnail url: %w", err)
	}
	return &out, nil
}

// PresentAll resolves every record in vs.
func (p *Presenter) PresentAll(ctx context.Context, vs []*Video) ([]*Video, error) {
	out := make([]*Video, 0, len(vs))
	for _, v := range vs {
		pv, err := p.Present(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, pv)
	}
	return out, nil
}

func resolve(ctx context.Context, r storage.Resolver, ref *string) (*string, error) {
	if ref == nil {
		return nil, nil
	}
	u, err := r.Resolve(ctx, *ref)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
