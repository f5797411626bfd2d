package zk

import (
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	coordinator "jobsync/internal/coordinator/iface"
	"jobsync/internal/logger"

	"github.com/go-zookeeper/zk"
)

type zkCoordinator struct {
	conn   *zk.Conn
	logger logger.Logger

	mu     sync.Mutex
	locks  map[string]int32
	closed chan struct{}
	once   sync.Once
}

// NewZKCoordinator creates a new ZooKeeper coordinator
func NewZKCoordinator(servers []string, sessionTimeout time.Duration, log logger.Logger) (coordinator.Coordinator, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	log.Info("connected to zookeeper",
		logger.Any("servers", servers),
	)

	return &zkCoordinator{
		conn:   conn,
		logger: log.With(logger.String("component", "zk_coordinator")),
		locks:  make(map[string]int32),
		closed: make(chan struct{}),
	}, nil
}

func (c *zkCoordinator) CreateNode(nodePath string, data []byte) error {
	if err := c.ensureParentPath(path.Dir(nodePath)); err != nil {
		return err
	}

	_, err := c.conn.Create(nodePath, data, 0, zk.WorldACL(zk.PermAll))
	if err != nil {
		if errors.Is(err, zk.ErrNodeExists) {
			c.logger.Debug("node already exists", logger.String("path", nodePath))
			return nil
		}
		return fmt.Errorf("failed to create node: %w", err)
	}

	c.logger.Info("created zk node", logger.String("path", nodePath))
	return nil
}

func (c *zkCoordinator) GetNode(nodePath string) ([]byte, error) {
	data, _, err := c.conn.Get(nodePath)
	if err != nil {
		if errors.Is(err, zk.ErrNoNode) {
			return nil, fmt.Errorf("node not found: %s", nodePath)
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return data, nil
}

func (c *zkCoordinator) UpdateNode(nodePath string, data []byte) error {
	_, stat, err := c.conn.Get(nodePath)
	if err != nil {
		if errors.Is(err, zk.ErrNoNode) {
			return c.CreateNode(nodePath, data)
		}
		return fmt.Errorf("failed to get node: %w", err)
	}

	if _, err := c.conn.Set(nodePath, data, stat.Version); err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}

	c.logger.Debug("updated zk node", logger.String("path", nodePath))
	return nil
}

func (c *zkCoordinator) WatchNode(nodePath string, handler func([]byte)) error {
	// the node must exist for GetW to arm a data watch
	if err := c.CreateNode(nodePath, []byte{}); err != nil {
		return err
	}

	c.logger.Info("watching zk node", logger.String("path", nodePath))

	go func() {
		for {
			_, _, events, err := c.conn.GetW(nodePath)
			if err != nil {
				select {
				case <-c.closed:
					return
				default:
				}
				c.logger.Error("failed to watch node",
					logger.String("path", nodePath),
					logger.Error(err))
				time.Sleep(time.Second)
				continue
			}

			var event zk.Event
			select {
			case <-c.closed:
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				event = e
			}

			if event.Type != zk.EventNodeDataChanged {
				continue
			}

			data, _, err := c.conn.Get(event.Path)
			if err != nil {
				c.logger.Error("failed to get updated node data",
					logger.String("path", event.Path),
					logger.Error(err))
				continue
			}
			handler(data)
		}
	}()

	return nil
}

func (c *zkCoordinator) AcquireLock(lockPath string, owner []byte) error {
	if err := c.ensureParentPath(path.Dir(lockPath)); err != nil {
		return err
	}

	_, err := c.conn.Create(lockPath, owner, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err != nil {
		if errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("%w: %s", coordinator.ErrLockHeld, lockPath)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	_, stat, err := c.conn.Exists(lockPath)
	if err != nil {
		return fmt.Errorf("failed to stat lock: %w", err)
	}

	c.mu.Lock()
	c.locks[lockPath] = stat.Version
	c.mu.Unlock()

	c.logger.Debug("lock acquired", logger.String("path", lockPath))
	return nil
}

func (c *zkCoordinator) ReleaseLock(lockPath string) error {
	c.mu.Lock()
	version, ok := c.locks[lockPath]
	delete(c.locks, lockPath)
	c.mu.Unlock()

	if !ok {
		return nil
	}

	if err := c.conn.Delete(lockPath, version); err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	c.logger.Debug("lock released", logger.String("path", lockPath))
	return nil
}

func (c *zkCoordinator) Close() error {
	c.once.Do(func() {
		c.logger.Info("closing zookeeper connection")
		close(c.closed)
		c.conn.Close()
	})
	return nil
}

// ensureParentPath creates dir and its ancestors when missing
func (c *zkCoordinator) ensureParentPath(dir string) error {
	if dir == "/" || dir == "." || dir == "" {
		return nil
	}

	exists, _, err := c.conn.Exists(dir)
	if err != nil {
		return fmt.Errorf("failed to check parent path: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.ensureParentPath(path.Dir(dir)); err != nil {
		return err
	}

	_, err = c.conn.Create(dir, []byte{}, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("failed to create parent path: %w", err)
	}
	return nil
}
