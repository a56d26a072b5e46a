package persist

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
)

// ErrStorageUnavailable is returned by storage that cannot be used in the
// current execution context.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Storage is a durable string key/value store. *store.Store implements it on
// SQLite; MemoryStorage keeps values in memory.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStorage is an in-memory Storage. The zero value is ready to use.
type MemoryStorage struct {
	mu          sync.Mutex
	data        map[string]string
	unavailable bool
	writes      int
}

// NewMemoryStorage returns a MemoryStorage pre-populated with seed.
func NewMemoryStorage(seed map[string]string) *MemoryStorage {
	return &MemoryStorage{data: maps.Clone(seed)}
}

// SetUnavailable makes every later call fail with ErrStorageUnavailable.
func (m *MemoryStorage) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return "", false, ErrStorageUnavailable
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrStorageUnavailable
	}
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	m.writes++
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrStorageUnavailable
	}
	delete(m.data, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.data))
}

// Writes returns the number of successful Set calls.
func (m *MemoryStorage) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
