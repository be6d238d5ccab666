package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qs3c/ats_resume_server/internal/pkg/storage"
)

// StoredObject 内存存储中的对象
type StoredObject struct {
	Data        []byte
	ContentType string
	Meta        map[string]string
}

// MemoryStore 内存版 ObjectStore，用于测试
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string]StoredObject
	Signs   int
	PutErr  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: make(map[string]StoredObject)}
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string, meta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Objects[key] = StoredObject{Data: append([]byte(nil), data...), ContentType: contentType, Meta: meta}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.Objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return obj.Data, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, key)
	return nil
}

// SignedURL 每次签名返回不同的 URL
func (m *MemoryStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Signs++
	return fmt.Sprintf("https://storage.test/%s?expires=%d&sig=%d", key, int64(ttl.Seconds()), m.Signs), nil
}

// Len 对象数量
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}
