package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SchedulerAuth 外部调度器触发入口的共享密钥鉴权。
//
// 密钥未配置时 fail-closed（500 拒绝而非放行）；密钥缺失与
// 密钥错误统一返回 401，不回显候选值，不区分两种失败。
func SchedulerAuth(secret string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if secret == "" {
			log.Error("scheduler secret not configured, refusing trigger")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "scheduler endpoint not configured",
			})
			c.Abort()
			return
		}

		candidate := bearerToken(c)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) != 1 {
			log.Warn("scheduler trigger rejected", zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken 从 Authorization 头提取 Bearer 令牌
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
