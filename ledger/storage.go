package ledger

import (
	"errors"
	"sync"
)

// ErrStorageFull is returned when the backing storage rejects a write for
// lack of space.
var ErrStorageFull = errors.New("ledger: storage quota exceeded")

// ErrNotFound is returned when a transaction id does not exist.
var ErrNotFound = errors.New("ledger: transaction not found")

// Storage is the session-scoped key/value port the store persists through.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string)
}

// MemoryStorage is an in-memory Storage with an optional byte quota.
// Safe for concurrent use.
type MemoryStorage struct {
	mu    sync.RWMutex
	data  map[string]string
	quota int
}

// NewMemoryStorage creates an unbounded in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

// NewMemoryStorageWithQuota creates a storage that rejects writes once the
// total stored bytes would exceed quota, mimicking a session-storage limit.
func NewMemoryStorageWithQuota(quota int) *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string), quota: quota}
}

// Get returns the value stored under key.
func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key, enforcing the quota when one is configured.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		total := len(key) + len(value)
		for k, v := range s.data {
			if k == key {
				continue
			}
			total += len(k) + len(v)
		}
		if total > s.quota {
			return ErrStorageFull
		}
	}

	s.data[key] = value
	return nil
}

// Remove deletes the value stored under key.
func (s *MemoryStorage) Remove(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

// Notifier receives user-facing notifications from the store.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
}

// NoopNotifier discards all notifications. It is the default so callers that
// do not care about notifications need no nil checks.
type NoopNotifier struct{}

func (NoopNotifier) Info(msg string) {}
func (NoopNotifier) Warn(msg string) {}
