package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepInterval 过期计数的清理间隔，用于约束内存占用
const sweepInterval = 5 * time.Minute

// entry 单个键的计数状态
type entry struct {
	attempts int
	resetAt  time.Time
}

// MemoryLimiter 进程内限流器。
//
// 状态为进程级共享可变状态，所有读写都在互斥锁内完成，
// 并发突发下计数不会丢失。不跨进程、不跨重启。
type MemoryLimiter struct {
	policy Policy
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	nextSweep time.Time
}

// NewMemoryLimiter 创建进程内限流器
func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	return &MemoryLimiter{
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// Policy 返回限流策略
func (l *MemoryLimiter) Policy() Policy {
	return l.policy
}

// Check 记一次尝试并返回放行结果
func (l *MemoryLimiter) Check(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		// 首次出现或上个窗口已过：重置计数
		e = &entry{attempts: 1, resetAt: now.Add(l.policy.Window)}
		l.entries[key] = e
		return Result{Allowed: true, Remaining: l.policy.Max - 1, ResetAt: e.resetAt}, nil
	}

	e.attempts++
	if e.attempts > l.policy.Max {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}, nil
	}

	return Result{Allowed: true, Remaining: l.policy.Max - e.attempts, ResetAt: e.resetAt}, nil
}

// sweepLocked 周期性删除已过重置时刻的条目，调用方必须持锁。
// 首次调用只排定下一次清扫时刻，之后都跟随注入的时钟。
func (l *MemoryLimiter) sweepLocked(now time.Time) {
	if l.nextSweep.IsZero() {
		l.nextSweep = now.Add(sweepInterval)
		return
	}
	if now.Before(l.nextSweep) {
		return
	}
	for key, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, key)
		}
	}
	l.nextSweep = now.Add(sweepInterval)
}
