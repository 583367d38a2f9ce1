package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ACLPublicRead makes uploaded objects readable through their public URL.
const ACLPublicRead = "public-read"

// Config holds connection details for an S3-compatible bucket.
type Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	PublicDomain string
	UseSSL       bool
	EnsureBucket bool
}

// S3Storage uploads listing images to a single bucket.
type S3Storage struct {
	client       *minio.Client
	bucket       string
	publicDomain string
	logger       *zap.Logger
}

func NewS3Storage(ctx context.Context, cfg Config, log *zap.Logger) (*S3Storage, error) {
	log.Info("initializing object storage",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("region", cfg.Region),
		zap.String("bucket", cfg.Bucket),
		zap.Bool("use_ssl", cfg.UseSSL))

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client for %s: %w", cfg.Endpoint, err)
	}

	if cfg.EnsureBucket {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
			}
			log.Info("bucket created", zap.String("bucket", cfg.Bucket))
		}
	}

	return &S3Storage{
		client:       client,
		bucket:       cfg.Bucket,
		publicDomain: cfg.PublicDomain,
		logger:       log,
	}, nil
}

// Upload stores data under key with public-read visibility.
func (s *S3Storage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"x-amz-acl": ACLPublicRead},
	})
	if err != nil {
		return fmt.Errorf("put object %s to bucket %s: %w", key, s.bucket, err)
	}

	s.logger.Debug("object uploaded",
		zap.String("bucket", info.Bucket),
		zap.String("key", info.Key),
		zap.String("etag", info.ETag),
		zap.Int64("size", info.Size))
	return nil
}

// PublicURL returns the virtual-hosted URL of key. It never contacts the store.
func (s *S3Storage) PublicURL(key string) string {
	return PublicURL(s.bucket, s.publicDomain, key)
}

func PublicURL(bucket, domain, key string) string {
	return fmt.Sprintf("https://%s.s3.%s/%s", bucket, domain, key)
}
