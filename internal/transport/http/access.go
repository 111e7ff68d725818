package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/service"
)

// AccessHandler 访问码入口处理器
//
// 面向客户的匿名端点：凭 6 位访问码换取订阅状态与账号凭证，
// 以及抓取绑定邮箱里的验证链接/验证码。
type AccessHandler struct {
	access       *service.AccessService
	verification *service.VerificationService
	metrics      *monitoring.Metrics
}

// NewAccessHandler 创建访问码入口处理器
func NewAccessHandler(access *service.AccessService, verification *service.VerificationService, metrics *monitoring.Metrics) *AccessHandler {
	return &AccessHandler{
		access:       access,
		verification: verification,
		metrics:      metrics,
	}
}

// ValidateAccessRequest 访问码校验请求
type ValidateAccessRequest struct {
	AccessCode string `json:"accessCode" binding:"required"`
}

// validateAccessResponse 访问码校验响应
type validateAccessResponse struct {
	Customer          *domain.CustomerView `json:"customer"`
	RemainingAttempts int                  `json:"remainingAttempts"`
}

// Validate godoc
// @Summary 校验访问码
// @Description 凭 6 位访问码查询订阅状态，已分配账号时附带凭证
// @Tags Access
// @Accept json
// @Produce json
// @Param request body ValidateAccessRequest true "访问码"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 429 {object} Response
// @Router /v1/access/validate [post]
func (h *AccessHandler) Validate(c *gin.Context) {
	var req ValidateAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordAccessValidation("malformed")
		BadRequest(c, MsgInvalidRequest)
		return
	}

	view, err := h.access.ValidateCode(req.AccessCode, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAccessCode):
			h.metrics.RecordAccessValidation("malformed")
			BadRequest(c, GetErrorMessage(domain.ErrInvalidAccessCode))
		case errors.Is(err, service.ErrAccessDenied):
			// 访问码不存在和客户已停用返回同一错误，避免探测
			h.metrics.RecordAccessValidation("denied")
			Forbidden(c, MsgAccessDenied)
		default:
			h.metrics.RecordAccessValidation("error")
			InternalError(c, MsgInternalError)
		}
		return
	}

	h.metrics.RecordAccessValidation("granted")
	Success(c, validateAccessResponse{
		Customer:          view,
		RemainingAttempts: c.GetInt("rateLimitRemaining"),
	})
}

// FetchVerificationRequest 验证信息抓取请求
type FetchVerificationRequest struct {
	AccessCode string `json:"accessCode" binding:"required"`
}

// FetchVerification godoc
// @Summary 抓取验证链接/验证码
// @Description 扫描客户所绑账号的登记邮箱，提取最近的验证链接或数字验证码
// @Tags Access
// @Accept json
// @Produce json
// @Param request body FetchVerificationRequest true "访问码"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 429 {object} Response
// @Router /v1/access/verification [post]
func (h *AccessHandler) FetchVerification(c *gin.Context) {
	var req FetchVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.verification.FetchByAccessCode(req.AccessCode, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAccessCode):
			h.metrics.RecordVerificationFetch("malformed")
			BadRequest(c, GetErrorMessage(domain.ErrInvalidAccessCode))
		case errors.Is(err, service.ErrAccessDenied):
			// 码无效、客户停用、未绑定账号统一按拒绝处理
			h.metrics.RecordVerificationFetch("denied")
			Forbidden(c, MsgAccessDenied)
		case errors.Is(err, service.ErrNoMailbox):
			h.metrics.RecordVerificationFetch("no_mailbox")
			NotFound(c, GetErrorMessage(service.ErrNoMailbox))
		default:
			h.metrics.RecordVerificationFetch("error")
			InternalError(c, MsgInternalError)
		}
		return
	}

	// 没抓到是正常业务结果而非错误，found=false 让前端提示稍后重试
	if result.Found {
		h.metrics.RecordVerificationFetch("found")
	} else {
		h.metrics.RecordVerificationFetch("empty")
	}
	Success(c, result)
}
