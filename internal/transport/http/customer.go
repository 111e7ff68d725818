package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/service"
	"subshare/backend/internal/storage"
)

// CustomerHandler 客户管理处理器
type CustomerHandler struct {
	customers *service.CustomerService
}

// NewCustomerHandler 创建客户管理处理器
func NewCustomerHandler(customers *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customers: customers,
	}
}

// CreateCustomerRequest 创建客户请求
type CreateCustomerRequest struct {
	Name             string    `json:"name" binding:"required"`
	AccessCode       string    `json:"accessCode"`
	PurchaseDate     time.Time `json:"purchaseDate" binding:"required"`
	SubscriptionDays int       `json:"subscriptionDays" binding:"required,min=1"`
	ProfileNumber    *int      `json:"profileNumber"`
	NetflixAccountID *string   `json:"netflixAccountId"`
	PurchasedFrom    string    `json:"purchasedFrom"`
}

// Create godoc
// @Summary 创建客户
// @Description 创建新客户，访问码留空时随机生成
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body CreateCustomerRequest true "客户信息"
// @Success 201 {object} domain.Customer
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /v1/customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	customer, err := h.customers.Create(service.CreateCustomerInput{
		Name:             req.Name,
		AccessCode:       req.AccessCode,
		PurchaseDate:     req.PurchaseDate,
		SubscriptionDays: req.SubscriptionDays,
		ProfileNumber:    req.ProfileNumber,
		NetflixAccountID: req.NetflixAccountID,
		PurchasedFrom:    req.PurchasedFrom,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccessCodeTaken):
			Conflict(c, GetErrorMessage(service.ErrAccessCodeTaken))
		case errors.Is(err, service.ErrCodeSpaceExhausted):
			InternalError(c, GetErrorMessage(service.ErrCodeSpaceExhausted))
		case isValidationError(err):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	Created(c, customer)
}

// List godoc
// @Summary 客户列表
// @Description 获取全部客户及派生的订阅状态
// @Tags Customers
// @Produce json
// @Success 200 {array} service.CustomerWithStatus
// @Router /v1/customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	customers, err := h.customers.List(time.Now())
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	// 空列表返回空数组而不是 null
	if customers == nil {
		customers = []service.CustomerWithStatus{}
	}

	Success(c, customers)
}

// Get godoc
// @Summary 客户详情
// @Tags Customers
// @Produce json
// @Param id path string true "客户ID"
// @Success 200 {object} domain.Customer
// @Failure 404 {object} Response
// @Router /v1/customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrCustomerNotFound))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, customer)
}

// UpdateCustomerRequest 更新客户请求
//
// 指针字段缺省表示不修改；clearProfile/clearAccount 显式清空
// 对应字段，区别于"未提交"。
type UpdateCustomerRequest struct {
	Name             *string    `json:"name"`
	AccessCode       *string    `json:"accessCode"`
	PurchaseDate     *time.Time `json:"purchaseDate"`
	SubscriptionDays *int       `json:"subscriptionDays"`
	IsActive         *bool      `json:"isActive"`
	ProfileNumber    *int       `json:"profileNumber"`
	ClearProfile     bool       `json:"clearProfile"`
	NetflixAccountID *string    `json:"netflixAccountId"`
	ClearAccount     bool       `json:"clearAccount"`
	PurchasedFrom    *string    `json:"purchasedFrom"`
}

// Update godoc
// @Summary 更新客户
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path string true "客户ID"
// @Param request body UpdateCustomerRequest true "更新内容"
// @Success 200 {object} domain.Customer
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Router /v1/customers/{id} [patch]
func (h *CustomerHandler) Update(c *gin.Context) {
	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	customer, err := h.customers.Update(c.Param("id"), service.UpdateCustomerInput{
		Name:             req.Name,
		AccessCode:       req.AccessCode,
		PurchaseDate:     req.PurchaseDate,
		SubscriptionDays: req.SubscriptionDays,
		IsActive:         req.IsActive,
		ProfileNumber:    req.ProfileNumber,
		ClearProfile:     req.ClearProfile,
		NetflixAccountID: req.NetflixAccountID,
		ClearAccount:     req.ClearAccount,
		PurchasedFrom:    req.PurchasedFrom,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrCustomerNotFound):
			NotFound(c, GetErrorMessage(storage.ErrCustomerNotFound))
		case errors.Is(err, service.ErrAccessCodeTaken):
			Conflict(c, GetErrorMessage(service.ErrAccessCodeTaken))
		case isValidationError(err):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	Success(c, customer)
}

// Delete godoc
// @Summary 删除客户
// @Tags Customers
// @Param id path string true "客户ID"
// @Success 204
// @Failure 404 {object} Response
// @Router /v1/customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.customers.Delete(c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			NotFound(c, GetErrorMessage(storage.ErrCustomerNotFound))
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	NoContent(c)
}

// BulkActiveRequest 批量启停请求
type BulkActiveRequest struct {
	CustomerIDs []string `json:"customerIds" binding:"required,min=1"`
	IsActive    *bool    `json:"isActive" binding:"required"`
}

// BulkSetActive godoc
// @Summary 批量启用/停用客户
// @Description 停用同时释放账号与槽位，逐条尽力执行
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body BulkActiveRequest true "客户ID列表与目标状态"
// @Success 200 {object} domain.BatchResult
// @Failure 400 {object} Response
// @Router /v1/customers/batch/active [post]
func (h *CustomerHandler) BulkSetActive(c *gin.Context) {
	var req BulkActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.customers.BulkSetActive(req.CustomerIDs, *req.IsActive)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, result)
}

// isValidationError 判断是否为领域校验错误
func isValidationError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidAccessCode,
		domain.ErrInvalidProfileNumber,
		domain.ErrInvalidDuration,
		domain.ErrInvalidEmail,
		domain.ErrEmailTooLong,
		domain.ErrPasswordTooShort,
		domain.ErrPasswordTooLong,
		domain.ErrNameRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
