package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Config holds the bucket settings. Credentials fall back to the default
// AWS chain when AccessKeyID is empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. a MinIO URL
	UsePathStyle    bool
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Storage writes objects to a single S3 bucket.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Storage builds the S3 client from cfg.
func NewS3Storage(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info().Str("bucket", cfg.Bucket).Str("region", region).Str("endpoint", cfg.Endpoint).Msg("S3 storage configured")
	return &S3Storage{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

func (s *S3Storage) Driver() Driver { return DriverS3 }

// Put uploads data with PutObject.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (*ObjectInfo, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrInvalidKey
	}
	objectKey := key
	if s.prefix != "" {
		objectKey = s.prefix + "/" + key
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error().Err(err).Str("bucket", s.bucket).Str("key", objectKey).Msg("Failed to upload object")
		return nil, fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}

	s.logger.Info().Str("bucket", s.bucket).Str("key", objectKey).Int("size", len(data)).Msg("Object uploaded")
	return &ObjectInfo{
		Key:       key,
		Location:  fmt.Sprintf("s3://%s/%s", s.bucket, objectKey),
		SizeBytes: int64(len(data)),
		CreatedAt: time.Now().UTC(),
	}, nil
}
