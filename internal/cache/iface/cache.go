package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get on a cache miss
var ErrKeyNotFound = errors.New("key not found")

// IsKeyNotFound reports whether err is a cache miss
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// Cache defines the read-cache operations (Redis)
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	// Incr atomically increments a counter, creating it at 1
	Incr(ctx context.Context, key string) (int64, error)

	Close() error
}
