package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// URLMode selects how stored references become client URLs.
type URLMode string

const (
	// URLModePublic builds a static public URL from the key.
	URLModePublic URLMode = "public"
	// URLModeSigned issues a time-limited presigned URL for the key.
	URLModeSigned URLMode = "signed"
	// URLModeInline expects references that are already full URLs or data:
	// URIs, as produced by the inline and memory thumbnail modes.
	URLModeInline URLMode = "inline"
)

// DefaultSignedURLExpiry is how long presigned URLs stay valid.
const DefaultSignedURLExpiry = 10000 * time.Second

// ParseURLMode validates the configured mode for stored video objects.
// Inline is not accepted here; it only applies to small assets.
func ParseURLMode(s string) (URLMode, error) {
	switch m := URLMode(strings.ToLower(strings.TrimSpace(s))); m {
	case URLModePublic, URLModeSigned:
		return m, nil
	case "":
		return URLModePublic, nil
	default:
		return "", fmt.Errorf("unknown storage url mode %q", s)
	}
}

// Resolver turns a persisted reference into the URL handed to clients.
// References that already carry a scheme are returned unchanged, as is "".
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// NewResolver returns the Resolver for mode.
func NewResolver(mode URLMode, store Storage, expiry time.Duration) (Resolver, error) {
	switch mode {
	case URLModePublic:
		return PublicResolver{store: store}, nil
	case URLModeSigned:
		p, ok := store.(Presigner)
		if !ok {
			return nil, ErrPresignUnsupported
		}
		if expiry <= 0 {
			expiry = DefaultSignedURLExpiry
		}
		return SignedResolver{presigner: p, expiry: expiry}, nil
	case URLModeInline:
		return InlineResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown storage url mode %q", mode)
	}
}

// PublicResolver maps keys to the backend's public URL.
type PublicResolver struct {
	store Storage
}

func (r PublicResolver) Resolve(_ context.Context, ref string) (string, error) {
	if isResolved(ref) {
		return ref, nil
	}
	return r.store.PublicURL(ref), nil
}

// SignedResolver maps keys to presigned URLs.
type SignedResolver struct {
	presigner Presigner
	expiry    time.Duration
}

func (r SignedResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if isResolved(ref) {
		return ref, nil
	}
	return r.presigner.PresignGet(ctx, ref, r.expiry)
}

// InlineResolver passes references through.
type InlineResolver struct{}

func (InlineResolver) Resolve(_ context.Context, ref string) (string, error) {
	return ref, nil
}

// IsKey reports whether ref is a storage key rather than a resolved URL or
// data: URI.
func IsKey(ref string) bool {
	return !isResolved(ref)
}

func isResolved(ref string) bool {
	if ref == "" {
		return true
	}
	for _, scheme := range []string{"data:", "http://", "https://"} {
		if strings.HasPrefix(ref, scheme) {
			return true
		}
	}
	return false
}
