package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/mediacheck/truthscan-service/internal/domain/entity"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Storage struct {
	client       *miniogo.Client
	uploadBucket string
	frameBucket  string
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UploadBucket string
	FrameBucket  string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:       client,
		uploadBucket: cfg.UploadBucket,
		frameBucket:  cfg.FrameBucket,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.frameBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// DownloadMedia copies an uploaded object to destPath. A missing key is
// reported as entity.ErrMediaNotFound.
func (s *Storage) DownloadMedia(ctx context.Context, objectKey string, destPath string) error {
	err := s.client.FGetObject(ctx, s.uploadBucket, objectKey, destPath, miniogo.GetObjectOptions{})
	if err == nil {
		return nil
	}
	if miniogo.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s/%s", entity.ErrMediaNotFound, s.uploadBucket, objectKey)
	}
	return fmt.Errorf("download media: %w", err)
}

func (s *Storage) UploadFrame(ctx context.Context, objectKey string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.frameBucket, objectKey, reader, size, miniogo.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return fmt.Errorf("upload frame: %w", err)
	}
	return nil
}

// Ping is the worker's readiness probe for object storage.
func (s *Storage) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.uploadBucket); err != nil {
		return fmt.Errorf("minio unreachable: %w", err)
	}
	return nil
}

// UploadMedia puts a local file into the uploads bucket for the worker.
func (s *Storage) UploadMedia(ctx context.Context, objectKey, path, contentType string) error {
	_, err := s.client.FPutObject(ctx, s.uploadBucket, objectKey, path, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload media: %w", err)
	}
	return nil
}
