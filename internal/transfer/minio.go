package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig configures the object storage backend.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`
}

// Validate reports the first missing or invalid field.
func (c MinIOConfig) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("minio endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("minio endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("minio access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("minio secret key is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("minio bucket is required")
	}
	return nil
}

// MinIO is a FileTransfer over an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

// NewMinIO returns a MinIO backend. It does not contact the server.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinIO{client: client, bucket: cfg.Bucket, region: cfg.Region, prefix: cfg.Prefix}, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// EnsureBucket creates the bucket if it does not exist.
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w: %w", m.bucket, ErrUnavailable, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w: %w", m.bucket, ErrUnavailable, err)
	}
	return nil
}

func (m *MinIO) key(name string) string {
	if name == "" {
		name = DefaultName
	}
	return objectKey(m.prefix, name)
}

func objectKey(prefix, name string) string {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if prefix == "" {
		return name
	}
	return path.Join(strings.Trim(prefix, "/"), name)
}

func contentType(name string) string {
	if Compressed(name) {
		return "application/octet-stream"
	}
	return "application/json"
}

// Export stores blob under name.
func (m *MinIO) Export(ctx context.Context, name string, blob []byte) error {
	key := m.key(name)
	_, err := m.client.PutObject(ctx, m.bucket, key,
		bytes.NewReader(blob), int64(len(blob)),
		minio.PutObjectOptions{ContentType: contentType(key)},
	)
	if err != nil {
		return fmt.Errorf("export %s/%s: %w: %w", m.bucket, key, ErrUnavailable, err)
	}
	return nil
}

// Import reads the object stored under name. A missing object wraps
// fs.ErrNotExist like LocalDir.
func (m *MinIO) Import(ctx context.Context, name string) ([]byte, error) {
	key := m.key(name)
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.importErr(key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.importErr(key, err)
	}
	return data, nil
}

func (m *MinIO) importErr(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("import %s/%s: %w", m.bucket, key, fs.ErrNotExist)
	}
	return fmt.Errorf("import %s/%s: %w: %w", m.bucket, key, ErrUnavailable, err)
}
