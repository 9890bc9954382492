package blacklist

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// errStoreClosed indicates that the store has been closed
var errStoreClosed = errors.New("blacklist store is closed")

const defaultMaxSize = 100000

// memoryStore implements the Store interface using in-memory storage
type memoryStore struct {
	entries map[string]time.Time

	mu      sync.RWMutex
	maxSize int
	closed  bool
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory blacklist store
func NewMemoryStore(maxSize int) Store {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &memoryStore{
		entries: make(map[string]time.Time, min(maxSize, 1024)),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Add adds an entry to the blacklist with expiration time
func (m *memoryStore) Add(id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errStoreClosed
	}

	if _, exists := m.entries[id]; !exists {
		m.makeRoomUnsafe()
	}
	m.entries[id] = expiresAt
	return nil
}

// AddIfAbsent adds an entry unless a live one exists
func (m *memoryStore) AddIfAbsent(id string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, errStoreClosed
	}

	if exp, exists := m.entries[id]; exists {
		if !m.now().After(exp) {
			return false, nil
		}
	} else {
		m.makeRoomUnsafe()
	}

	m.entries[id] = expiresAt
	return true, nil
}

// Contains checks if a live entry exists
func (m *memoryStore) Contains(id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, errStoreClosed
	}

	expiresAt, exists := m.entries[id]
	if !exists {
		return false, nil
	}

	// Expired entries stay until the next cleanup so reads never take the
	// write lock.
	return !m.now().After(expiresAt), nil
}

// Remove removes an entry from the blacklist
func (m *memoryStore) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errStoreClosed
	}

	delete(m.entries, id)
	return nil
}

// Cleanup removes expired entries from the blacklist
func (m *memoryStore) Cleanup() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errStoreClosed
	}

	return m.cleanupExpiredUnsafe(m.now()), nil
}

// Size returns the current number of entries in the blacklist
func (m *memoryStore) Size() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, errStoreClosed
	}

	return len(m.entries), nil
}

// Close closes the store and releases resources
func (m *memoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.entries = nil
	return nil
}

// makeRoomUnsafe frees space for one new entry (must be called with write lock held)
func (m *memoryStore) makeRoomUnsafe() {
	if len(m.entries) < m.maxSize {
		return
	}

	m.cleanupExpiredUnsafe(m.now())
	if len(m.entries) >= m.maxSize {
		m.evictOldestUnsafe(max(m.maxSize/10, 1))
	}
}

// cleanupExpiredUnsafe removes expired entries (must be called with write lock held)
func (m *memoryStore) cleanupExpiredUnsafe(now time.Time) int {
	cleaned := 0
	for id, expiresAt := range m.entries {
		if now.After(expiresAt) {
			delete(m.entries, id)
			cleaned++
		}
	}
	return cleaned
}

// evictOldestUnsafe removes the entries closest to expiry (must be called with write lock held)
func (m *memoryStore) evictOldestUnsafe(count int) {
	type entryAge struct {
		id        string
		expiresAt time.Time
	}

	ages := make([]entryAge, 0, len(m.entries))
	for id, expiresAt := range m.entries {
		ages = append(ages, entryAge{id, expiresAt})
	}

	sort.Slice(ages, func(i, j int) bool {
		return ages[i].expiresAt.Before(ages[j].expiresAt)
	})

	for i := 0; i < len(ages) && i < count; i++ {
		delete(m.entries, ages[i].id)
	}
}
