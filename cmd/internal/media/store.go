// Package media issues presigned upload URLs against an S3-compatible
// object store and resolves uploaded keys to their public URLs. The
// server never proxies image bytes; clients PUT directly to storage and
// hand the resulting key back to the profile endpoints.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidtube/cmd/account/ids"
)

// Store wraps a presign client for a single bucket.
type Store struct {
	presign *s3.PresignClient

	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
}

// NewStore builds the S3 client once at startup. Works against AWS or
// any S3-compatible endpoint (MinIO etc.) via cfg.Endpoint.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, ErrConfig
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		presign:       s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignTTL:    cfg.PresignTTL,
	}, nil
}

// PresignUpload mints a presigned PUT URL for a fresh object key under
// the given prefix. The key embeds a ULID so concurrent uploads never
// collide and stale avatars are simply abandoned in the bucket.
func (s *Store) PresignUpload(ctx context.Context, prefix string) (string, string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "", "", fmt.Errorf("media: empty key prefix")
	}

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		return "", "", err
	}
	key := prefix + "/" + id

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", "", fmt.Errorf("media: presign put: %w", err)
	}

	return key, req.URL, nil
}

// ObjectURL resolves an object key to its public fetch URL.
func (s *Store) ObjectURL(key string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(key, "/")
}
