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

// AccountHandler 共享账号处理器
type AccountHandler struct {
	accounts     *service.AccountService
	assignments  *service.AssignmentService
	verification *service.VerificationService
	metrics      *monitoring.Metrics
}

// NewAccountHandler 创建共享账号处理器
func NewAccountHandler(accounts *service.AccountService, assignments *service.AssignmentService, verification *service.VerificationService, metrics *monitoring.Metrics) *AccountHandler {
	return &AccountHandler{
		accounts:     accounts,
		assignments:  assignments,
		verification: verification,
		metrics:      metrics,
	}
}

// CreateAccountRequest 创建共享账号请求
type CreateAccountRequest struct {
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	MailboxAddress string `json:"mailboxAddress"`
	Note           string `json:"note"`
}

// Create godoc
// @Summary 创建共享账号
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "账号信息"
// @Success 201 {object} domain.CredentialAccount
// @Failure 400 {object} Response
// @Router /v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.Create(service.CreateAccountInput{
		Email:          req.Email,
		Password:       req.Password,
		MailboxAddress: req.MailboxAddress,
		Note:           req.Note,
	})
	if err != nil {
		if isValidationError(err) {
			BadRequest(c, GetErrorMessage(err))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	Created(c, account)
}

// List godoc
// @Summary 共享账号列表
// @Tags Accounts
// @Produce json
// @Success 200 {array} domain.CredentialAccount
// @Router /v1/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.List()
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	if accounts == nil {
		accounts = []domain.CredentialAccount{}
	}

	Success(c, accounts)
}

// Get godoc
// @Summary 共享账号详情
// @Tags Accounts
// @Produce json
// @Param id path string true "账号ID"
// @Success 200 {object} domain.CredentialAccount
// @Failure 404 {object} Response
// @Router /v1/accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accounts.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrAccountNotFound))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, account)
}

// UpdateAccountRequest 更新共享账号请求
type UpdateAccountRequest struct {
	Email          *string `json:"email"`
	Password       *string `json:"password"`
	MailboxAddress *string `json:"mailboxAddress"`
	Note           *string `json:"note"`
}

// Update godoc
// @Summary 更新共享账号
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "账号ID"
// @Param request body UpdateAccountRequest true "更新内容"
// @Success 200 {object} domain.CredentialAccount
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /v1/accounts/{id} [patch]
func (h *AccountHandler) Update(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.Update(c.Param("id"), service.UpdateAccountInput{
		Email:          req.Email,
		Password:       req.Password,
		MailboxAddress: req.MailboxAddress,
		Note:           req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			NotFound(c, GetErrorMessage(storage.ErrAccountNotFound))
		case isValidationError(err):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	Success(c, account)
}

// Delete godoc
// @Summary 删除共享账号
// @Description 仍被有效客户引用的账号拒绝删除
// @Tags Accounts
// @Param id path string true "账号ID"
// @Success 204
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.accounts.Delete(c.Param("id")); err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			NotFound(c, GetErrorMessage(storage.ErrAccountNotFound))
		case errors.Is(err, service.ErrAccountInUse):
			Conflict(c, GetErrorMessage(service.ErrAccountInUse))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	NoContent(c)
}

// Occupancy godoc
// @Summary 账号槽位占用
// @Description 列出账号各 Profile 槽位的占用者与空闲槽位
// @Tags Accounts
// @Produce json
// @Param id path string true "账号ID"
// @Success 200 {object} domain.AccountOccupancy
// @Failure 404 {object} Response
// @Router /v1/accounts/{id}/occupancy [get]
func (h *AccountHandler) Occupancy(c *gin.Context) {
	occupancy, err := h.assignments.Occupancy(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrAccountNotFound))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, occupancy)
}

// FetchVerification godoc
// @Summary 抓取账号验证信息（管理端）
// @Description 绕过访问码直接按账号抓取验证链接/验证码
// @Tags Accounts
// @Produce json
// @Param id path string true "账号ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /v1/accounts/{id}/verification [post]
func (h *AccountHandler) FetchVerification(c *gin.Context) {
	result, err := h.verification.FetchByAccountID(c.Param("id"), time.Now())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrAccountNotFound):
			h.metrics.RecordVerificationFetch("not_found")
			NotFound(c, GetErrorMessage(storage.ErrAccountNotFound))
		case errors.Is(err, service.ErrNoMailbox):
			h.metrics.RecordVerificationFetch("no_mailbox")
			NotFound(c, GetErrorMessage(service.ErrNoMailbox))
		default:
			h.metrics.RecordVerificationFetch("error")
			InternalError(c, MsgInternalError)
		}
		return
	}

	if result.Found {
		h.metrics.RecordVerificationFetch("found")
	} else {
		h.metrics.RecordVerificationFetch("empty")
	}
	Success(c, result)
}
