package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	cache "jobsync/internal/cache/iface"
)

type entry struct {
	value     string
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache returns a process-local cache for local runs and tests
func NewMemoryCache() cache.Cache {
	return &memoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: fmt.Sprint(value)}
	if b, ok := value.([]byte); ok {
		e.value = string(b)
	}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", cache.ErrKeyNotFound, key)
	}
	return e.value, nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memoryCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	if e, ok := m.lookup(key); ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not an integer: %w", key, err)
		}
		n = parsed
	}
	n++
	m.entries[key] = entry{value: strconv.FormatInt(n, 10)}
	return n, nil
}

func (m *memoryCache) Close() error {
	return nil
}

// lookup must be called with mu held
func (m *memoryCache) lookup(key string) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return entry{}, false
	}
	return e, true
}
