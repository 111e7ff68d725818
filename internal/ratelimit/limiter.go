package ratelimit

import (
	"context"
	"time"
)

// Policy 定义单个端点的限流策略
type Policy struct {
	Name   string        // 计数键前缀，区分不同端点
	Max    int           // 窗口内允许的最大请求数
	Window time.Duration // 窗口长度
}

// 各敏感端点的限流策略
var (
	// PolicyAccessValidate 访问码校验：15 分钟 5 次
	PolicyAccessValidate = Policy{Name: "access_validate", Max: 5, Window: 15 * time.Minute}
	// PolicyAdminCreate 管理员创建：1 小时 3 次
	PolicyAdminCreate = Policy{Name: "admin_create", Max: 3, Window: time.Hour}
	// PolicyAdminDelete 管理员删除：1 小时 5 次
	PolicyAdminDelete = Policy{Name: "admin_delete", Max: 5, Window: time.Hour}
	// PolicyVerificationFetch 验证码抓取：15 分钟 10 次
	PolicyVerificationFetch = Policy{Name: "verification_fetch", Max: 10, Window: 15 * time.Minute}
)

// Result 一次限流检查的结果
type Result struct {
	Allowed   bool      // 本次请求是否放行
	Remaining int       // 窗口内剩余额度
	ResetAt   time.Time // 窗口重置时刻
}

// RetryAfter 距离窗口重置的剩余时长（已放行时为 0）
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Limiter 限流器抽象。
//
// 进程内默认实现见 memory.go；多实例部署可换用 redis.go 的
// 外部存储实现（key→计数 + TTL）。窗口语义是"按重置点计数"：
// 键首次出现（或上个窗口已过）时计数置 1 并设定重置时刻，
// 之后在窗口内累加，达到上限即拒绝直至重置时刻过去。
// 无效请求同样消耗额度。
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
	Policy() Policy
}
