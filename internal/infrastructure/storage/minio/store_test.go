package minio

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/ligandscope/internal/config"
	"github.com/turtacn/ligandscope/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ligandscope/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error {
	args := m.Called(ctx, bucketName, config)
	return args.Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	// a functional *minio.Object needs a live connection, so success paths
	// are covered by integration tests
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.Object), args.Error(1)
}

func (m *MockMinIOAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockMinIOAPI) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(<-chan minio.ObjectInfo)
}

func (m *MockMinIOAPI) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry, reqParams)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

func (m *MockMinIOAPI) PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expiry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

type StructureStoreTestSuite struct {
	suite.Suite
	mockAPI *MockMinIOAPI
	store   StructureStore
}

func (s *StructureStoreTestSuite) SetupTest() {
	s.mockAPI = new(MockMinIOAPI)
	client := NewClientWithAPI(s.mockAPI, config.MinIOConfig{
		Endpoint: "localhost:9000",
		Bucket:   "ligandscope",
	}, logging.NewNopLogger())
	s.store = NewStructureStore(client, logging.NewNopLogger())
}

func (s *StructureStoreTestSuite) TestStructureKey() {
	assert.Equal(s.T(), "structures/deadbeef.pdb", StructureKey("deadbeef"))
}

func (s *StructureStoreTestSuite) TestPut_Success() {
	key := StructureKey("deadbeef")
	s.mockAPI.On("PutObject", mock.Anything, "ligandscope", key,
		mock.Anything, int64(9), mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
			return opts.ContentType == structureContentType
		})).
		Return(minio.UploadInfo{Key: key, ETag: "etag-1", Size: 9}, nil)

	res, err := s.store.Put(context.Background(), key, []byte("ATOM  1 N"), map[string]string{"source": "upload"})
	s.Require().NoError(err)
	assert.Equal(s.T(), key, res.Key)
	assert.Equal(s.T(), "etag-1", res.ETag)
	assert.Equal(s.T(), int64(9), res.Size)
}

func (s *StructureStoreTestSuite) TestPut_EmptyKey() {
	_, err := s.store.Put(context.Background(), "", []byte("x"), nil)
	s.Require().Error(err)
	assert.True(s.T(), apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func (s *StructureStoreTestSuite) TestPut_BackendFailure() {
	s.mockAPI.On("PutObject", mock.Anything, "ligandscope", "k",
		mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, minio.ErrorResponse{Code: "AccessDenied"})

	_, err := s.store.Put(context.Background(), "k", []byte("x"), nil)
	s.Require().Error(err)
	assert.True(s.T(), apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func (s *StructureStoreTestSuite) TestGet_BackendFailure() {
	s.mockAPI.On("GetObject", mock.Anything, "ligandscope", "k", mock.Anything).
		Return(nil, minio.ErrorResponse{Code: "AccessDenied"})

	_, err := s.store.Get(context.Background(), "k")
	s.Require().Error(err)
	assert.True(s.T(), apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func (s *StructureStoreTestSuite) TestStat_Success() {
	s.mockAPI.On("StatObject", mock.Anything, "ligandscope", "k", mock.Anything).
		Return(minio.ObjectInfo{Size: 42, ContentType: structureContentType, ETag: "e"}, nil)

	info, err := s.store.Stat(context.Background(), "k")
	s.Require().NoError(err)
	assert.Equal(s.T(), "k", info.Key)
	assert.Equal(s.T(), int64(42), info.Size)
	assert.Equal(s.T(), structureContentType, info.ContentType)
}

func (s *StructureStoreTestSuite) TestStat_NotFound() {
	s.mockAPI.On("StatObject", mock.Anything, "ligandscope", "missing", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

	_, err := s.store.Stat(context.Background(), "missing")
	s.Require().ErrorIs(err, ErrObjectNotFound)
}

func (s *StructureStoreTestSuite) TestExists() {
	s.mockAPI.On("StatObject", mock.Anything, "ligandscope", "there", mock.Anything).
		Return(minio.ObjectInfo{Size: 1}, nil)
	s.mockAPI.On("StatObject", mock.Anything, "ligandscope", "gone", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})

	exists, err := s.store.Exists(context.Background(), "there")
	s.Require().NoError(err)
	assert.True(s.T(), exists)

	exists, err = s.store.Exists(context.Background(), "gone")
	s.Require().NoError(err)
	assert.False(s.T(), exists)
}

func (s *StructureStoreTestSuite) TestDelete() {
	s.mockAPI.On("RemoveObject", mock.Anything, "ligandscope", "k", mock.Anything).Return(nil)
	s.Require().NoError(s.store.Delete(context.Background(), "k"))
}

func (s *StructureStoreTestSuite) TestList() {
	ch := make(chan minio.ObjectInfo, 2)
	ch <- minio.ObjectInfo{Key: "structures/a.pdb", Size: 10}
	ch <- minio.ObjectInfo{Key: "structures/b.pdb", Size: 20}
	close(ch)

	s.mockAPI.On("ListObjects", mock.Anything, "ligandscope",
		mock.MatchedBy(func(opts minio.ListObjectsOptions) bool {
			return opts.Prefix == structurePrefix && opts.Recursive
		})).
		Return((<-chan minio.ObjectInfo)(ch))

	objects, err := s.store.List(context.Background(), structurePrefix, 0)
	s.Require().NoError(err)
	s.Require().Len(objects, 2)
	assert.Equal(s.T(), "structures/a.pdb", objects[0].Key)
	assert.Equal(s.T(), int64(20), objects[1].Size)
}

func (s *StructureStoreTestSuite) TestList_BackendFailure() {
	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: minio.ErrorResponse{Code: "AccessDenied"}}
	close(ch)

	s.mockAPI.On("ListObjects", mock.Anything, "ligandscope", mock.Anything).
		Return((<-chan minio.ObjectInfo)(ch))

	_, err := s.store.List(context.Background(), "", 10)
	s.Require().Error(err)
	assert.True(s.T(), apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func (s *StructureStoreTestSuite) TestPresignedURLs() {
	u, _ := url.Parse("https://minio.local/ligandscope/structures/a.pdb?sig=x")
	s.mockAPI.On("PresignedGetObject", mock.Anything, "ligandscope", "structures/a.pdb",
		time.Hour, url.Values(nil)).Return(u, nil)
	s.mockAPI.On("PresignedPutObject", mock.Anything, "ligandscope", "tmp/up.pdb",
		15*time.Minute).Return(u, nil)

	got, err := s.store.PresignedGetURL(context.Background(), "structures/a.pdb", 0)
	s.Require().NoError(err)
	assert.Equal(s.T(), u.String(), got)

	got, err = s.store.PresignedPutURL(context.Background(), "tmp/up.pdb", 15*time.Minute)
	s.Require().NoError(err)
	assert.Equal(s.T(), u.String(), got)
}

func TestStructureStoreSuite(t *testing.T) {
	suite.Run(t, new(StructureStoreTestSuite))
}
