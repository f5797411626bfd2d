package coordinator

import "errors"

// ErrLockHeld is returned by AcquireLock when another session owns the lock
var ErrLockHeld = errors.New("lock held by another node")

// IsLockHeldError reports whether err is ErrLockHeld
func IsLockHeldError(err error) bool {
	return errors.Is(err, ErrLockHeld)
}

// Coordinator defines ZooKeeper operations for distributed coordination
type Coordinator interface {
	CreateNode(path string, data []byte) error
	GetNode(path string) ([]byte, error)
	UpdateNode(path string, data []byte) error
	// WatchNode calls handler with the new data on every change until Close
	WatchNode(path string, handler func([]byte)) error

	// AcquireLock creates an ephemeral node owned by this session.
	// It returns ErrLockHeld when the node already exists.
	AcquireLock(path string, owner []byte) error
	ReleaseLock(path string) error

	Close() error
}
