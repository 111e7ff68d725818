package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/ratelimit"
)

// 提取客户端地址时按优先级尝试的代理头
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
	"X-Forwarded-For",
}

// ClientKey 从请求中推导限流键。
//
// 依次尝试代理头，取 X-Forwarded-For 的第一个地址；全部缺失时
// 退回直连地址，再退回共享的 "unknown" 桶。代理头可伪造，
// 因此敏感入口另叠加全局限流兜底（见 GlobalCeiling）。
func ClientKey(c *gin.Context) string {
	for _, h := range proxyHeaders {
		v := c.GetHeader(h)
		if v == "" {
			continue
		}
		if idx := strings.IndexByte(v, ','); idx >= 0 {
			v = v[:idx]
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimit 按策略限流的中间件。
//
// 无论请求最终成败，配额都在进入处理器之前消耗，
// 格式错误的请求同样计数。
func RateLimit(limiter ratelimit.Limiter, metrics *monitoring.Metrics, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := ClientKey(c)

		result, err := limiter.Check(c.Request.Context(), key)
		if err != nil {
			// 限流后端故障时放行并记录，不让限流器拖垮主流程
			log.Error("rate limiter check failed", zap.Error(err))
			if metrics != nil {
				metrics.RecordError("rate_limiter", "middleware")
			}
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		c.Set("rateLimitRemaining", result.Remaining)

		if !result.Allowed {
			retryAfter := int(result.RetryAfter(time.Now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			if metrics != nil {
				metrics.RecordRateLimitBlock(limiter.Policy().Name)
			}
			log.Warn("rate limit exceeded",
				zap.String("policy", limiter.Policy().Name),
				zap.String("key", key),
			)

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GlobalCeiling 全局限流兜底。
//
// 与按键限流互补：键可被伪造的代理头稀释，全局令牌桶
// 保证所有客户端合计的请求速率有硬上限。
func GlobalCeiling(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
