package httptransport

import (
	"time"

	"github.com/gin-gonic/gin"

	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/service"
)

// 入站邮件超出该期限即可清理，验证邮件的时效远小于这个值。
const defaultMessageRetention = 24 * time.Hour

// SchedulerHandler 定时任务处理器
//
// 由外部调度器（cron、Cloud Scheduler 等）携带共享密钥调用，
// 所有端点都要求幂等。
type SchedulerHandler struct {
	reconcile    *service.ReconcileService
	verification *service.VerificationService
	metrics      *monitoring.Metrics
}

// NewSchedulerHandler 创建定时任务处理器
func NewSchedulerHandler(reconcile *service.ReconcileService, verification *service.VerificationService, metrics *monitoring.Metrics) *SchedulerHandler {
	return &SchedulerHandler{
		reconcile:    reconcile,
		verification: verification,
		metrics:      metrics,
	}
}

// Reconcile godoc
// @Summary 订阅对账
// @Description 扫描有效客户，停用已过期者并释放账号槽位；可重复调用
// @Tags Scheduler
// @Produce json
// @Success 200 {object} service.ReconcileResult
// @Failure 401 {object} Response
// @Router /v1/scheduler/reconcile [post]
func (h *SchedulerHandler) Reconcile(c *gin.Context) {
	result, err := h.reconcile.Run(time.Now())
	if err != nil {
		h.metrics.RecordError("reconcile_failed", "scheduler")
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordReconcileRun(result.Deactivated)
	Success(c, result)
}

// PruneMessages godoc
// @Summary 清理过期入站邮件
// @Description 删除超出保留期的入站邮件；可重复调用
// @Tags Scheduler
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /v1/scheduler/prune-messages [post]
func (h *SchedulerHandler) PruneMessages(c *gin.Context) {
	deleted, err := h.verification.PruneMessages(time.Now(), defaultMessageRetention)
	if err != nil {
		h.metrics.RecordError("prune_failed", "scheduler")
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, gin.H{"deleted": deleted})
}
