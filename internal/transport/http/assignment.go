package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/service"
	"subshare/backend/internal/storage"
)

// AssignmentHandler 账号分配处理器
type AssignmentHandler struct {
	assignments *service.AssignmentService
	metrics     *monitoring.Metrics
}

// NewAssignmentHandler 创建账号分配处理器
func NewAssignmentHandler(assignments *service.AssignmentService, metrics *monitoring.Metrics) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		metrics:     metrics,
	}
}

// AssignRequest 分配账号请求
type AssignRequest struct {
	AccountID     string `json:"accountId" binding:"required"`
	ProfileNumber *int   `json:"profileNumber"`
}

// Assign godoc
// @Summary 为客户分配账号槽位
// @Description 指定槽位时校验冲突，不指定时自动选最小空闲槽位
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "客户ID"
// @Param request body AssignRequest true "分配信息"
// @Success 200 {object} domain.Customer
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /v1/customers/{id}/assignment [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	customer, err := h.assignments.Assign(c.Param("id"), req.AccountID, req.ProfileNumber)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCustomerNotFound):
			NotFound(c, GetErrorMessage(storage.ErrCustomerNotFound))
		case errors.Is(err, storage.ErrAccountNotFound):
			NotFound(c, GetErrorMessage(storage.ErrAccountNotFound))
		case errors.Is(err, service.ErrProfileSlotTaken):
			Conflict(c, GetErrorMessage(service.ErrProfileSlotTaken))
		case errors.Is(err, service.ErrNoFreeSlot):
			Conflict(c, GetErrorMessage(service.ErrNoFreeSlot))
		case errors.Is(err, domain.ErrInvalidProfileNumber):
			BadRequest(c, GetErrorMessage(domain.ErrInvalidProfileNumber))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	Success(c, customer)
}

// Release godoc
// @Summary 释放客户的账号槽位
// @Tags Assignments
// @Param id path string true "客户ID"
// @Success 204
// @Failure 404 {object} Response
// @Router /v1/customers/{id}/assignment [delete]
func (h *AssignmentHandler) Release(c *gin.Context) {
	if err := h.assignments.Release(c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrCustomerNotFound))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	NoContent(c)
}

// ReassignRequest 批量换号请求
type ReassignRequest struct {
	CustomerIDs  []string `json:"customerIds" binding:"required,min=1"`
	NewAccountID *string  `json:"newAccountId"`
}

// Reassign godoc
// @Summary 批量换号
// @Description 把多个客户迁移到新账号（留空则仅解绑），逐条尽力执行
// @Tags Assignments
// @Accept json
// @Produce json
// @Param request body ReassignRequest true "换号信息"
// @Success 200 {object} domain.BatchResult
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /v1/customers/batch/reassign [post]
func (h *AssignmentHandler) Reassign(c *gin.Context) {
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.assignments.Reassign(req.CustomerIDs, req.NewAccountID)
	if err != nil {
		// 目标账号不存在时整批拒绝，不做部分迁移
		if errors.Is(err, storage.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrAccountNotFound))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordBatchItems("reassign", result.Succeeded, result.Failed)
	Success(c, result)
}

// ExtendRequest 批量续期请求
type ExtendRequest struct {
	CustomerIDs []string `json:"customerIds" binding:"required,min=1"`
	DeltaDays   int      `json:"deltaDays" binding:"required,min=1"`
}

// Extend godoc
// @Summary 批量续期
// @Description 为多个客户增加订阅天数，逐条尽力执行
// @Tags Assignments
// @Accept json
// @Produce json
// @Param request body ExtendRequest true "续期信息"
// @Success 200 {object} domain.BatchResult
// @Failure 400 {object} Response
// @Router /v1/customers/batch/extend [post]
func (h *AssignmentHandler) Extend(c *gin.Context) {
	var req ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.assignments.Extend(req.CustomerIDs, req.DeltaDays)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDuration) {
			BadRequest(c, GetErrorMessage(domain.ErrInvalidDuration))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	h.metrics.RecordBatchItems("extend", result.Succeeded, result.Failed)
	Success(c, result)
}

// RotationCandidates godoc
// @Summary 轮换候选列表
// @Description 列出订阅周期足够长、接近 30 天轮换点的客户
// @Tags Assignments
// @Produce json
// @Success 200 {array} domain.AttentionItem
// @Router /v1/attention/rotation [get]
func (h *AssignmentHandler) RotationCandidates(c *gin.Context) {
	items, err := h.assignments.RotationCandidates(time.Now())
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	if items == nil {
		items = []domain.AttentionItem{}
	}

	Success(c, items)
}
