package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"yesno-backend/logging"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired 锁已被其他持有者占用
var ErrLockNotAcquired = errors.New("lock held by another owner")

// Locker 互斥执行
type Locker interface {
	// TryWithLock 获取锁后执行 action，锁被占用时立即返回 ErrLockNotAcquired
	TryWithLock(ctx context.Context, lockName string, expiry time.Duration, action func(ctx context.Context) error) error
}

// NewLocker 有 Redis 客户端时使用分布式锁，否则使用进程内锁
func NewLocker(client *redis.Client) Locker {
	if client == nil {
		return NewLocalLocker()
	}
	return NewDistributedLockService(client)
}

// DistributedLockService 分布式锁服务
type DistributedLockService struct {
	rs *redsync.Redsync
}

// NewDistributedLockService 创建分布式锁服务
func NewDistributedLockService(client *redis.Client) *DistributedLockService {
	pool := goredis.NewPool(client)
	return &DistributedLockService{rs: redsync.New(pool)}
}

func (s *DistributedLockService) newMutex(lockName string, expiry time.Duration) *redsync.Mutex {
	return s.rs.NewMutex(lockName,
		redsync.WithExpiry(expiry),
		redsync.WithTries(1),          // 不等待
		redsync.WithDriftFactor(0.01), // 时钟漂移因子
	)
}

// TryWithLock 尝试在锁内执行操作，如果获取锁失败立即返回
func (s *DistributedLockService) TryWithLock(ctx context.Context, lockName string, expiry time.Duration, action func(ctx context.Context) error) error {
	mutex := s.newMutex(lockName, expiry)
	if err := mutex.TryLockContext(ctx); err != nil {
		return errors.Join(ErrLockNotAcquired, err)
	}
	defer s.release(mutex)

	// 锁在 expiry 后自动失效，执行时间不应超过它
	actionCtx, cancel := context.WithTimeout(ctx, expiry)
	defer cancel()
	return action(actionCtx)
}

func (s *DistributedLockService) release(mutex *redsync.Mutex) {
	if _, err := mutex.Unlock(); err != nil {
		logging.Warn().Err(err).Str("lock", mutex.Name()).Msg("释放分布式锁失败")
	}
}

// LocalLocker 进程内锁，按名称区分
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]bool)}
}

// TryWithLock 锁被占用时立即返回 ErrLockNotAcquired
func (l *LocalLocker) TryWithLock(ctx context.Context, lockName string, expiry time.Duration, action func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[lockName] {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[lockName] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, lockName)
		l.mu.Unlock()
	}()

	actionCtx, cancel := context.WithTimeout(ctx, expiry)
	defer cancel()
	return action(actionCtx)
}
