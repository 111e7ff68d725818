package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"

	"subshare/backend/internal/cache"
	"subshare/backend/internal/domain"
	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/service"
)

// 统计结果的本地缓存 TTL。仪表盘轮询间隔远大于这个值，
// 短缓存足以挡掉多标签页的重复全表扫描。
const statisticsCacheTTL = 30 * time.Second

const statisticsCacheKey = "dashboard:statistics"

// DashboardHandler 仪表盘处理器
type DashboardHandler struct {
	notifications *service.NotificationService
	metrics       *monitoring.Metrics
	local         *cache.LocalCache
}

// NewDashboardHandler 创建仪表盘处理器
func NewDashboardHandler(notifications *service.NotificationService, metrics *monitoring.Metrics) *DashboardHandler {
	return &DashboardHandler{
		notifications: notifications,
		metrics:       metrics,
		local:         cache.NewLocalCache(statisticsCacheTTL),
	}
}

// Attention godoc
// @Summary 需关注事项
// @Description 汇总即将到期与接近轮换点的客户，按紧迫度升序
// @Tags Dashboard
// @Produce json
// @Success 200 {array} domain.AttentionItem
// @Router /v1/dashboard/attention [get]
func (h *DashboardHandler) Attention(c *gin.Context) {
	items, err := h.notifications.Aggregate(time.Now())
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	if items == nil {
		items = []domain.AttentionItem{}
	}

	Success(c, items)
}

// Statistics godoc
// @Summary 仪表盘统计
// @Description 客户/账号总量与状态分布
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardStatistics
// @Router /v1/dashboard/statistics [get]
func (h *DashboardHandler) Statistics(c *gin.Context) {
	if cached, ok := h.local.Get(statisticsCacheKey); ok {
		Success(c, cached.(*domain.DashboardStatistics))
		return
	}

	stats, err := h.notifications.Statistics(time.Now())
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	h.local.Set(statisticsCacheKey, stats, 0)

	// 统计顺带刷新业务 gauge，省一轮独立采集
	h.metrics.UpdateCustomerGauges(stats.ActiveCustomers, stats.ExpiringSoon, stats.AssignedCustomers)

	Success(c, stats)
}
