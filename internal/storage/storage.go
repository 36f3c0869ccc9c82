// Package storage publishes artifacts to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Opts holds connection settings for the object store.
type Opts struct {
	Endpoint  string // e.g. "s3.ap-northeast-2.amazonaws.com"
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// PublicBaseURL, when set, is used as the CDN base for public URLs
	// instead of the virtual-hosted bucket address.
	PublicBaseURL string
}

// Store uploads artifacts and resolves public URLs.
type Store struct {
	client *minio.Client
	opts   Opts
}

// New creates a Store connected to the configured endpoint.
func New(opts Opts) (*Store, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("storage: endpoint is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect %s: %w", opts.Endpoint, err)
	}
	return &Store{client: client, opts: opts}, nil
}

// Upload copies a local file to bucket/key and returns the storage
// reference in s3://bucket/key form. Public objects are served through a
// publicly readable bucket; the flag only tunes cache headers here.
func (s *Store) Upload(ctx context.Context, localPath, bucket, key string, public bool) (string, error) {
	putOpts := minio.PutObjectOptions{
		ContentType: contentTypeFor(localPath),
	}
	if public {
		putOpts.CacheControl = "public, max-age=86400"
	}
	if _, err := s.client.FPutObject(ctx, bucket, key, localPath, putOpts); err != nil {
		return "", fmt.Errorf("storage: upload %s/%s: %w", bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

// PublicURL resolves the externally reachable URL for a public object.
func (s *Store) PublicURL(bucket, key string) string {
	if s.opts.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.opts.PublicBaseURL, key)
	}
	scheme := "http"
	if s.opts.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, bucket, s.opts.Endpoint, key)
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
