package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscope/pkg/errors"
)

var ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")

const (
	structurePrefix      = "structures/"
	structureContentType = "chemical/x-pdb"
)

// StructureKey returns the canonical object key for a structure file,
// addressed by the hex SHA-256 of its contents.
func StructureKey(sha string) string {
	return structurePrefix + sha + ".pdb"
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// PutResult describes a completed upload.
type PutResult struct {
	Key        string
	ETag       string
	Size       int64
	UploadedAt time.Time
}

// StructureStore persists structure files and hands out presigned URLs for
// direct client access.
type StructureStore interface {
	Put(ctx context.Context, key string, data []byte, metadata map[string]string) (*PutResult, error)
	PutStream(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) (*PutResult, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string, maxKeys int) ([]*ObjectInfo, error)
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type structureStore struct {
	client *Client
	logger logging.Logger
}

// NewStructureStore builds the minio-backed StructureStore.
func NewStructureStore(client *Client, log logging.Logger) StructureStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &structureStore{client: client, logger: log}
}

func (s *structureStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) (*PutResult, error) {
	return s.PutStream(ctx, key, bytes.NewReader(data), int64(len(data)), metadata)
}

func (s *structureStore) PutStream(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) (*PutResult, error) {
	if key == "" {
		return nil, errors.New(errors.ErrCodeValidation, "object key required")
	}

	info, err := s.client.API().PutObject(ctx, s.client.Bucket(), key, r, size, minio.PutObjectOptions{
		ContentType:  structureContentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed")
	}

	s.logger.Debug("structure stored",
		logging.String("key", key),
		logging.Int64("size", info.Size))

	return &PutResult{
		Key:        info.Key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: time.Now(),
	}, nil
}

func (s *structureStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.API().GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed")
	}
	return data, nil
}

func (s *structureStore) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	info, err := s.client.API().StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed")
	}
	return &ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		Metadata:     info.UserMetadata,
	}, nil
}

func (s *structureStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.IsCode(err, errors.ErrCodeNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *structureStore) Delete(ctx context.Context, key string) error {
	if err := s.client.API().RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete failed")
	}
	return nil
}

func (s *structureStore) List(ctx context.Context, prefix string, maxKeys int) ([]*ObjectInfo, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	ch := s.client.API().ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   maxKeys,
	})

	var objects []*ObjectInfo
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list failed")
		}
		objects = append(objects, &ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
		if len(objects) >= maxKeys {
			break
		}
	}
	return objects, nil
}

func (s *structureStore) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.client.PresignedGetURL(ctx, key, expiry)
}

func (s *structureStore) PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.client.PresignedPutURL(ctx, key, expiry)
}
