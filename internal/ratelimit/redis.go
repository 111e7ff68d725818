package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter 基于 Redis 的限流器，供多实例部署使用。
//
// 计数用 INCR + 首次设置 TTL 实现，窗口语义与 MemoryLimiter
// 一致；多个实例共享同一份计数。
type RedisLimiter struct {
	client *redis.Client
	policy Policy
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(client *redis.Client, policy Policy) *RedisLimiter {
	return &RedisLimiter{client: client, policy: policy}
}

// Policy 返回限流策略
func (l *RedisLimiter) Policy() Policy {
	return l.policy
}

// Check 记一次尝试并返回放行结果
func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", l.policy.Name, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("increment rate limit: %w", err)
	}

	// 只在首次计数（count==1）时设置窗口 TTL，后续请求不顺延窗口
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.policy.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("set rate limit window: %w", err)
		}
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = l.policy.Window
	}
	resetAt := time.Now().Add(ttl)

	if int(count) > l.policy.Max {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	return Result{Allowed: true, Remaining: l.policy.Max - int(count), ResetAt: resetAt}, nil
}
