package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// s3Storage implements the FileStorage interface using an S3-compatible backend.
type s3Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	publicBase    string
	presignTTL    time.Duration
	log           *zap.Logger
}

// NewS3Storage creates a new S3 storage service instance. A custom endpoint
// (MinIO, Spaces, ...) switches to path-style addressing.
func NewS3Storage(ctx context.Context, cfg config.S3Config, log *zap.Logger) (FileStorage, error) {
	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(cfg))
			o.UsePathStyle = true
		}
	})

	log.Info("s3_storage_initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.BucketName),
	)

	return &s3Storage{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		publicBase:    PublicBaseURL(cfg),
		presignTTL:    cfg.PresignTTL,
		log:           log,
	}, nil
}

// PublicBaseURL is the prefix of public object URLs: the custom domain or the
// custom endpoint followed by the bucket, or the virtual-hosted AWS URL.
func PublicBaseURL(cfg config.S3Config) string {
	switch {
	case cfg.CustomDomain != "":
		return strings.TrimRight(cfg.CustomDomain, "/") + "/" + cfg.BucketName
	case cfg.Endpoint != "":
		return strings.TrimRight(endpointURL(cfg), "/") + "/" + cfg.BucketName
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.BucketName, cfg.Region)
	}
}

// endpointURL adds a scheme to a bare host:port endpoint according to UseSSL.
func endpointURL(cfg config.S3Config) string {
	if strings.Contains(cfg.Endpoint, "://") {
		return cfg.Endpoint
	}
	if cfg.UseSSL {
		return "https://" + cfg.Endpoint
	}
	return "http://" + cfg.Endpoint
}

func (s *s3Storage) ObjectURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}

func (s *s3Storage) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.log.Error("s3_put_failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	return s.ObjectURL(key), nil
}

func (s *s3Storage) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Error("s3_delete_failed", zap.String("key", key), zap.String("bucket", s.bucketName), zap.Error(err))
		return err
	}
	s.log.Info("s3_object_deleted", zap.String("key", key))
	return nil
}

// PresignGetURL falls back to the configured TTL, then to
// DefaultPresignedURLExpiry, when expires is not positive.
func (s *s3Storage) PresignGetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = s.presignTTL
	}
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.log.Error("s3_presign_failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	return req.URL, nil
}
