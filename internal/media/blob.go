package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BlobRef identifies a stored blob and its publicly reachable URL.
type BlobRef struct {
	Key string
	URL string
}

// BlobStore persists binary media content under a key and returns a stable
// reference to it.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (BlobRef, error)
}

// S3Config describes an S3-compatible bucket used as the managed media store.
type S3Config struct {
	Endpoint       string
	Region         string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PublicEndpoint string
}

// S3Store stores media blobs in an S3-compatible bucket.
type S3Store struct {
	client         *minio.Client
	bucket         string
	publicEndpoint string
	secure         bool
	host           string
}

// NewS3Store opens a client against the configured bucket. minio-go expects a
// bare host:port endpoint, so URL schemes are stripped and drive the TLS flag.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	secure := cfg.UseSSL
	if strings.HasPrefix(endpoint, "https://") {
		endpoint = strings.TrimPrefix(endpoint, "https://")
		secure = true
	} else if strings.HasPrefix(endpoint, "http://") {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	}
	if endpoint == "" {
		return nil, fmt.Errorf("media store endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("media store bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create media store client: %w", err)
	}

	return &S3Store{
		client:         client,
		bucket:         strings.TrimSpace(cfg.Bucket),
		publicEndpoint: strings.TrimRight(strings.TrimSpace(cfg.PublicEndpoint), "/"),
		secure:         secure,
		host:           endpoint,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (BlobRef, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return BlobRef{}, fmt.Errorf("store object %s: %w", key, err)
	}
	return BlobRef{Key: info.Key, URL: s.publicURL(key)}, nil
}

func (s *S3Store) publicURL(key string) string {
	encoded := encodeObjectKey(key)
	if s.publicEndpoint != "" {
		return fmt.Sprintf("%s/%s", s.publicEndpoint, encoded)
	}
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.host, s.bucket, encoded)
}

func encodeObjectKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// DiskStore writes blobs under a local directory. It backs development and
// test setups where no object storage is available.
type DiskStore struct {
	Dir     string
	BaseURL string
}

func (s *DiskStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (BlobRef, error) {
	cleaned := path.Clean("/" + key)
	target := filepath.Join(s.Dir, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return BlobRef{}, fmt.Errorf("create media dir: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return BlobRef{}, fmt.Errorf("create media file: %w", err)
	}
	defer file.Close()
	if _, err := io.Copy(file, body); err != nil {
		_ = os.Remove(target)
		return BlobRef{}, fmt.Errorf("write media file: %w", err)
	}
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = "file://" + filepath.ToSlash(s.Dir)
	}
	return BlobRef{Key: strings.TrimPrefix(cleaned, "/"), URL: base + cleaned}, nil
}
