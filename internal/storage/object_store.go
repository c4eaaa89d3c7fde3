package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoredObject is one entry in a bucket listing, decorated with the
// original filename recovered from object metadata and a playable
// presigned URL.
type StoredObject struct {
	Key              string    `json:"key"`
	OriginalFilename string    `json:"original_filename"`
	SizeBytes        int64     `json:"size_bytes"`
	UploadedAt       time.Time `json:"uploaded_at"`
	URL              string    `json:"url"`
}

// ObjectStore stores and retrieves large binary assets by opaque key.
type ObjectStore interface {
	// Upload streams an object into the bucket under a freshly generated
	// collision-free key and returns that key.
	Upload(ctx context.Context, r io.Reader, size int64, filename, contentType, prefix string) (string, error)

	// PresignedURL returns a time-bounded read URL for key, or the empty
	// string if the provider call fails or the object does not exist.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) string

	// Download fetches an object to a local file path.
	Download(ctx context.Context, key, localPath string) error

	// List enumerates every stored object, newest first.
	List(ctx context.Context) ([]StoredObject, error)

	// Remove deletes an object. Missing keys are not an error.
	Remove(ctx context.Context, key string) error
}

// generateObjectKey builds a unique key from an optional prefix, a random
// identifier, and the original file extension. Two uploads of identically
// named files always produce distinct keys.
func generateObjectKey(prefix, filename string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	ext := filepath.Ext(filename)
	return prefix + id + ext
}

// sanitizeFilename strips non-ASCII characters so the value is safe to use
// as object metadata; S3-compatible stores reject non-ASCII metadata values.
func sanitizeFilename(filename string) string {
	var b strings.Builder
	for _, r := range filename {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	safe := b.String()
	if safe == "" {
		return "unknown_video"
	}
	return safe
}
