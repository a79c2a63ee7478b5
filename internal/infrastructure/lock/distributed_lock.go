package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 扫码链路按会员维度加锁：同一会员的并发扫码请求串行化，
// 不同会员之间互不影响。锁只是削并发的第一道闸，
// 真正的正确性由数据库事务内的条件更新保证：
// 即使锁失效，同一张券也绝不会被核销两次。
//
// 加锁：SET key value NX EX timeout
//   - NX 保证互斥，EX 防止持有者崩溃后死锁
//   - value 记录持有者标识，释放时校验，避免误删他人的锁
// 释放：Lua 脚本原子地"校验+删除"
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string        // 持有者标识
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
// 先校验 value 是自己的再删除，两步用 Lua 脚本保证原子性，
// 防止锁过期后误删下一个持有者的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewScanLock 创建扫码锁（按会员维度）
// 同一会员串行扫码，防止网络抖动导致的重复提交打到同一张券/兑换码上
func NewScanLock(client *redis.Client, uid string, requestID string) *DistributedLock {
	key := fmt.Sprintf("scan:lock:user:%s", uid)
	return NewDistributedLock(client, key, requestID, 30*time.Second)
}

// NewBonusLock 创建生日奖励锁（按会员维度）
func NewBonusLock(client *redis.Client, uid string, requestID string) *DistributedLock {
	key := fmt.Sprintf("bonus:lock:user:%s", uid)
	return NewDistributedLock(client, key, requestID, 10*time.Second)
}
