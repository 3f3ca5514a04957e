package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/turtacn/ligandscope/internal/domain/job"
	rediscache "github.com/turtacn/ligandscope/internal/infrastructure/database/redis"
	"github.com/turtacn/ligandscope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ligandscope/internal/infrastructure/storage/minio"
)

// atomRecord renders one fixed-column ATOM/HETATM line for synthetic
// structures.
func atomRecord(record string, serial int, name, resName, chain string, resSeq int, x, y, z float64, element string) string {
	return fmt.Sprintf("%-6s%5d %-4s%1s%3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		record, serial, name, "", resName, chain, resSeq, x, y, z, 1.0, 0.0, element)
}

// syntheticStructure is a minimal protein + ligand structure that yields one
// binding site with one hydrophobic contact.
func syntheticStructure() string {
	lines := []string{
		atomRecord("ATOM", 1, "N", "ALA", "A", 1, 0.0, 0.0, 0.0, "N"),
		atomRecord("ATOM", 2, "CA", "ALA", "A", 1, 1.5, 0.0, 0.0, "C"),
		atomRecord("ATOM", 3, "C", "ALA", "A", 1, 3.0, 0.0, 0.0, "C"),
		atomRecord("ATOM", 4, "O", "ALA", "A", 1, 3.0, 1.2, 0.0, "O"),
		atomRecord("ATOM", 5, "CB", "ALA", "A", 1, 1.5, 1.5, 0.0, "C"),
		atomRecord("HETATM", 900, "C1", "LIG", "A", 900, 1.5, 4.5, 0.0, "C"),
	}
	return strings.Join(lines, "\n") + "\n"
}

type mockJobRepo struct {
	mock.Mock
}

func (m *mockJobRepo) Create(ctx context.Context, j *job.AnalysisJob) error {
	return m.Called(ctx, j).Error(0)
}

func (m *mockJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*job.AnalysisJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.AnalysisJob), args.Error(1)
}

func (m *mockJobRepo) Update(ctx context.Context, j *job.AnalysisJob) error {
	return m.Called(ctx, j).Error(0)
}

func (m *mockJobRepo) UpdateProgress(ctx context.Context, id uuid.UUID, percent int) error {
	return m.Called(ctx, id, percent).Error(0)
}

func (m *mockJobRepo) ClaimNextPending(ctx context.Context) (*job.AnalysisJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.AnalysisJob), args.Error(1)
}

func (m *mockJobRepo) List(ctx context.Context, status job.Status, limit, offset int) ([]*job.AnalysisJob, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.AnalysisJob), args.Error(1)
}

func (m *mockJobRepo) CountByStatus(ctx context.Context) (map[job.Status]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[job.Status]int64), args.Error(1)
}

func (m *mockJobRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockStructureStore struct {
	mock.Mock
}

func (m *mockStructureStore) Put(ctx context.Context, key string, data []byte, metadata map[string]string) (*minio.PutResult, error) {
	args := m.Called(ctx, key, data, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.PutResult), args.Error(1)
}

func (m *mockStructureStore) PutStream(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) (*minio.PutResult, error) {
	args := m.Called(ctx, key, r, size, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.PutResult), args.Error(1)
}

func (m *mockStructureStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockStructureStore) Stat(ctx context.Context, key string) (*minio.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*minio.ObjectInfo), args.Error(1)
}

func (m *mockStructureStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockStructureStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStructureStore) List(ctx context.Context, prefix string, maxKeys int) ([]*minio.ObjectInfo, error) {
	args := m.Called(ctx, prefix, maxKeys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*minio.ObjectInfo), args.Error(1)
}

func (m *mockStructureStore) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *mockStructureStore) PresignedPutURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

// mockPublisher records every published message.
type mockPublisher struct {
	mu       sync.Mutex
	messages []*kafka.Message
	err      error
}

func (m *mockPublisher) Publish(ctx context.Context, msg *kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockPublisher) published() []*kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*kafka.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// fakeCache is an in-memory Cache good enough for service tests.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return rediscache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *fakeCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	if value == nil {
		return rediscache.ErrCacheMiss
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.Get(ctx, key, dest)
}

func (c *fakeCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

func (c *fakeCache) TTL(ctx context.Context, key string) (time.Duration, error) { return 0, nil }

func (c *fakeCache) Ping(ctx context.Context) error { return nil }

func (c *fakeCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
