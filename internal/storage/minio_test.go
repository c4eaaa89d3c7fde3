package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func newTestMinioStore(t *testing.T, handler http.HandlerFunc) *MinioStore {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("test-access", "test-secret", ""),
		Secure: false,
		// A fixed region stops the client from issuing a bucket-location
		// request that the single-response test handler cannot answer.
		Region: "us-east-1",
	})
	if err != nil {
		t.Fatalf("failed to create MinIO client: %v", err)
	}
	return &MinioStore{client: client, bucket: "momentfinder"}
}

func TestPresignedURL_MissingKeyReturnsEmpty(t *testing.T) {
	store := newTestMinioStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	url := store.PresignedURL(context.Background(), "videos/does-not-exist.mp4", time.Hour)
	if url != "" {
		t.Errorf("expected empty URL for a missing key, got %q", url)
	}
}

func TestPresignedURL_ExistingKey(t *testing.T) {
	store := newTestMinioStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", "9")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	})

	url := store.PresignedURL(context.Background(), "videos/clip.mp4", time.Hour)
	if url == "" {
		t.Fatal("expected a presigned URL for an existing key, got empty")
	}
	if !strings.Contains(url, "videos/clip.mp4") {
		t.Errorf("presigned URL %q does not reference the object key", url)
	}
}
