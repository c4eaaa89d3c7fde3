package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const metadataFilenameKey = "Original-Filename"

// MinioStore is the S3/MinIO-backed ObjectStore used in production.
type MinioStore struct {
	client *minio.Client
	bucket string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Printf("Created storage bucket %s", cfg.Bucket)
	}

	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Upload(ctx context.Context, r io.Reader, size int64, filename, contentType, prefix string) (string, error) {
	key := generateObjectKey(prefix, filename)

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			metadataFilenameKey: sanitizeFilename(filename),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to storage: %w", filename, err)
	}
	return key, nil
}

// PresignedURL returns "" on any provider error, including a missing key.
// Callers treat an empty URL as "not playable right now" rather than a
// hard failure.
func (s *MinioStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) string {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		log.Printf("Error generating presigned URL for %s: %v", key, err)
		return ""
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		log.Printf("Error generating presigned URL for %s: %v", key, err)
		return ""
	}
	return u.String()
}

func (s *MinioStore) Download(ctx context.Context, key, localPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download %s from storage: %w", key, err)
	}
	return nil
}

func (s *MinioStore) List(ctx context.Context) ([]StoredObject, error) {
	objects := []StoredObject{}

	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list storage objects: %w", info.Err)
		}

		// ListObjects does not return user metadata; a per-object Stat
		// recovers the original filename saved at upload time.
		originalName := info.Key
		if stat, err := s.client.StatObject(ctx, s.bucket, info.Key, minio.StatObjectOptions{}); err == nil {
			if name, ok := stat.UserMetadata[metadataFilenameKey]; ok && name != "" {
				originalName = name
			}
		}

		objects = append(objects, StoredObject{
			Key:              info.Key,
			OriginalFilename: originalName,
			SizeBytes:        info.Size,
			UploadedAt:       info.LastModified,
			URL:              s.PresignedURL(ctx, info.Key, time.Hour),
		})
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].UploadedAt.After(objects[j].UploadedAt)
	})
	return objects, nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s from storage: %w", key, err)
	}
	return nil
}
