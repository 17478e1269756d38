package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
)

// Place uploads the finished local file at path to store under key.
func Place(ctx context.Context, store Storage, path, key, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := store.Upload(ctx, key, f, info.Size(), contentType); err != nil {
		return fmt.Errorf("place %s: %w", key, err)
	}
	return nil
}

// DataURI encodes data inline as "data:<contentType>;base64,<payload>".
func DataURI(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}
