// Package archive stores delivered sighting entity documents in S3/MinIO so
// submissions can be audited after the fact.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// pathPrefix namespaces archived documents inside the bucket.
const pathPrefix = "sightings"

// Config holds configuration for the archive store.
type Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Store archives entity documents using MinIO/S3. One object per submission,
// keyed by submission ID.
type Store struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewStore creates a new archive Store instance.
func NewStore(cfg Config, logger zerolog.Logger) (*Store, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "archive").Logger(),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		s.logger.Info().Str("bucket", s.bucket).Msg("created bucket")
	}

	return nil
}

// Put archives an entity document under the submission ID and returns the
// object path.
func (s *Store) Put(ctx context.Context, submissionID string, doc []byte) (string, error) {
	objectPath := objectPath(submissionID)

	info, err := s.client.PutObject(ctx, s.bucket, objectPath,
		bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("failed to archive entity document: %w", err)
	}

	s.logger.Debug().
		Str("submission_id", submissionID).
		Str("path", objectPath).
		Int64("size", info.Size).
		Msg("archived entity document")

	return objectPath, nil
}

// Get retrieves an archived entity document by submission ID.
func (s *Store) Get(ctx context.Context, submissionID string) (io.ReadCloser, error) {
	objectPath := objectPath(submissionID)

	obj, err := s.client.GetObject(ctx, s.bucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("archived document not found: %w", err)
	}

	return obj, nil
}

// PresignedURL generates a presigned URL for downloading an archived document.
func (s *Store) PresignedURL(ctx context.Context, submissionID string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = 1 * time.Hour // Default expiry
	}
	if expires > 7*24*time.Hour {
		expires = 7 * 24 * time.Hour // Max 7 days
	}

	reqParams := make(url.Values)
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath(submissionID), expires, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedURL.String(), nil
}

// Delete removes an archived document.
func (s *Store) Delete(ctx context.Context, submissionID string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectPath(submissionID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete archived document: %w", err)
	}

	s.logger.Info().Str("submission_id", submissionID).Msg("deleted archived document")
	return nil
}

// HealthCheck checks if the storage backend is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("archive health check failed: %w", err)
	}
	return nil
}

func objectPath(submissionID string) string {
	return fmt.Sprintf("%s/%s.json", pathPrefix, submissionID)
}
