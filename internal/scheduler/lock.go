package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RaprApraP54/rapz-auction/pkg/logger"
)

const lockPrefix = "rapz:auction:lock:"

// unlockScript 只释放自己持有的锁
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// renewScript 只续期自己持有的锁
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// DistributedLock 基于 Redis SETNX 的分布式锁
// 多实例部署时保证同一任务同一时刻只在一个实例上执行
type DistributedLock struct {
	client      redis.UniversalClient
	key         string
	value       string
	ttl         time.Duration
	useWatchdog bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client redis.UniversalClient, name string, ttl time.Duration, useWatchdog bool) *DistributedLock {
	return &DistributedLock{
		client:      client,
		key:         lockPrefix + name,
		value:       fmt.Sprintf("%d", time.Now().UnixNano()),
		ttl:         ttl,
		useWatchdog: useWatchdog,
		stopCh:      make(chan struct{}),
	}
}

// TryLock 尝试获取锁, 已被其他实例持有时返回 false
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if ok && l.useWatchdog {
		l.startWatchdog(ctx)
	}
	return ok, nil
}

// Unlock 释放锁, 只删除自己持有的值
func (l *DistributedLock) Unlock(ctx context.Context) error {
	if l.useWatchdog {
		close(l.stopCh)
		l.wg.Wait()
	}

	_, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

// IsHeld 检查锁是否仍被自己持有
func (l *DistributedLock) IsHeld(ctx context.Context) (bool, error) {
	val, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == l.value, nil
}

// startWatchdog 在 TTL 的 1/3 周期自动续期, 直到解锁
func (l *DistributedLock) startWatchdog(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopCh:
				return
			case <-ticker.C:
				if err := l.renew(ctx); err != nil {
					logger.Warn("renew lock failed",
						zap.String("key", l.key),
						zap.Error(err))
				}
			}
		}
	}()
}

func (l *DistributedLock) renew(ctx context.Context) error {
	result, err := l.client.Eval(ctx, renewScript, []string{l.key}, l.value, l.ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if result.(int64) == 0 {
		return fmt.Errorf("lock %s no longer held", l.key)
	}
	return nil
}

// LockManager 锁管理器
type LockManager struct {
	client redis.UniversalClient
}

// NewLockManager 创建锁管理器
func NewLockManager(client redis.UniversalClient) *LockManager {
	return &LockManager{client: client}
}

// NewLock 为任务创建新锁
func (m *LockManager) NewLock(name string, ttl time.Duration, useWatchdog bool) *DistributedLock {
	return NewDistributedLock(m.client, name, ttl, useWatchdog)
}

// IsLocked 检查任务是否被任意实例锁定
func (m *LockManager) IsLocked(ctx context.Context, name string) (bool, error) {
	exists, err := m.client.Exists(ctx, lockPrefix+name).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// ForceUnlock 强制解锁, 运维操作
func (m *LockManager) ForceUnlock(ctx context.Context, name string) error {
	return m.client.Del(ctx, lockPrefix+name).Err()
}
