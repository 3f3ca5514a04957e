// Package minio stores uploaded structure files in object storage so that
// workers can fetch them by key instead of shipping file bodies through the
// job queue.
package minio

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"io"

	"github.com/turtacn/ligandscope/internal/config"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/pkg/errors"
)

var ErrClientClosed = errors.New(errors.ErrCodeStorageError, "minio client is closed")

// MinIOAPI abstracts the minio-go client for testing.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error)
}

// Client wraps the minio-go client with the service's single-bucket layout.
type Client struct {
	raw           MinIOAPI
	bucket        string
	region        string
	presignExpiry time.Duration
	logger        logging.Logger

	mu     sync.RWMutex
	closed bool
}

const (
	defaultRegion        = "us-east-1"
	defaultPresignExpiry = time.Hour

	// uploads under this prefix are pre-submission scratch space and
	// expire automatically
	tempPrefix     = "tmp/"
	tempExpiryDays = 7
)

// NewClient connects to the object store, verifies the connection and makes
// sure the configured bucket exists.
func NewClient(cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio endpoint required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio bucket required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: defaultRegion,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	c := newClientWithAPI(api, cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.raw.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing API implementation.  Used by tests.
func NewClientWithAPI(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *Client {
	return newClientWithAPI(api, cfg, log)
}

func newClientWithAPI(api MinIOAPI, cfg config.MinIOConfig, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	expiry := cfg.PresignExpiry
	if expiry == 0 {
		expiry = defaultPresignExpiry
	}
	return &Client{
		raw:           api,
		bucket:        cfg.Bucket,
		region:        defaultRegion,
		presignExpiry: expiry,
		logger:        log,
	}
}

// API exposes the underlying client.
func (c *Client) API() MinIOAPI { return c.raw }

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.bucket }

// EnsureBucket creates the bucket when it does not exist yet and installs the
// scratch-space expiry rule.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.raw.BucketExists(ctx, c.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence")
	}
	if !exists {
		if err := c.raw.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket "+c.bucket)
		}
		c.logger.Info("created bucket", logging.String("bucket", c.bucket))
	}

	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     "tmp-cleanup",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(tempExpiryDays),
			},
			Prefix: tempPrefix,
		},
	}
	if err := c.raw.SetBucketLifecycle(ctx, c.bucket, lc); err != nil {
		// lifecycle support is optional on some backends
		c.logger.Warn("failed to set bucket lifecycle", logging.Err(err))
	}
	return nil
}

// HealthStatus reports the outcome of a HealthCheck.
type HealthStatus struct {
	Healthy      bool
	Latency      time.Duration
	BucketExists bool
	Error        string
}

// HealthCheck verifies connectivity and that the bucket is still there.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	_, err := c.raw.ListBuckets(ctx)
	status := &HealthStatus{
		Healthy: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		status.Error = err.Error()
		return status
	}

	exists, err := c.raw.BucketExists(ctx, c.bucket)
	if err != nil {
		status.Healthy = false
		status.Error = err.Error()
		return status
	}
	status.BucketExists = exists
	if !exists {
		status.Healthy = false
		status.Error = "bucket " + c.bucket + " missing"
	}
	return status
}

// PresignedGetURL returns a time-limited download URL for an object.
func (c *Client) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if c.isClosed() {
		return "", ErrClientClosed
	}
	if expiry == 0 {
		expiry = c.presignExpiry
	}
	u, err := c.raw.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign download")
	}
	return u.String(), nil
}

// PresignedPutURL returns a time-limited upload URL for an object.
func (c *Client) PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if c.isClosed() {
		return "", ErrClientClosed
	}
	if expiry == 0 {
		expiry = c.presignExpiry
	}
	u, err := c.raw.PresignedPutObject(ctx, c.bucket, key, expiry)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign upload")
	}
	return u.String(), nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close marks the client closed.  minio-go keeps no persistent connection, so
// there is nothing to tear down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
