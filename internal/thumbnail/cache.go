// Package thumbnail stores per-video thumbnail images in one of three modes:
// object storage, inline data: URIs, or an in-process cache served by the API.
package thumbnail

import "sync"

// Image is a cached thumbnail.
type Image struct {
	Data        []byte
	ContentType string
}

// Cache holds thumbnails keyed by video ID for the life of the process.
type Cache struct {
	mu     sync.RWMutex
	images map[string]Image
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{images: make(map[string]Image)}
}

// Set stores img for videoID, replacing any previous entry.
func (c *Cache) Set(videoID string, img Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[videoID] = img
}

// Get returns the thumbnail for videoID.
func (c *Cache) Get(videoID string) (Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.images[videoID]
	return img, ok
}

// Evict drops the thumbnail for videoID, if any.
func (c *Cache) Evict(videoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.images, videoID)
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}
