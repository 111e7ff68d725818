package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subshare/backend/internal/auth"
	"subshare/backend/internal/auth/jwt"
	"subshare/backend/internal/domain"
)

// AuthHandler 管理员认证处理器
type AuthHandler struct {
	authService *auth.Service
	jwtManager  *jwt.Manager
	log         *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, jwtManager *jwt.Manager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtManager:  jwtManager,
		log:         log,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// loginResponse 登录响应
type loginResponse struct {
	User   *domain.AdminUser `json:"user"`
	Role   domain.AdminRole  `json:"role"`
	Tokens *jwt.TokenPair    `json:"tokens"`
}

// Login godoc
// @Summary 管理员登录
// @Description 邮箱密码登录，返回访问令牌与刷新令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, grant, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		// 任何失败原因都返回同一错误，不泄露账户是否存在
		Unauthorized(c, GetErrorMessage(auth.ErrInvalidCredentials))
		return
	}

	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, user.Email, string(grant.Role))
	if err != nil {
		h.log.Error("failed to generate token pair", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, loginResponse{
		User:   user,
		Role:   grant.Role,
		Tokens: tokens,
	})
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh godoc
// @Summary 刷新令牌
// @Description 用刷新令牌换取新的令牌对
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新令牌"
// @Success 200 {object} jwt.TokenPair
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	tokens, err := h.jwtManager.RefreshTokenPair(req.RefreshToken)
	if err != nil {
		Unauthorized(c, GetErrorMessage(jwt.ErrInvalidToken))
		return
	}

	Success(c, tokens)
}

// meResponse 当前管理员响应
type meResponse struct {
	User *domain.AdminUser `json:"user"`
	Role domain.AdminRole  `json:"role"`
}

// Me godoc
// @Summary 当前管理员信息
// @Tags Auth
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	user, grant, err := h.authService.GetAdmin(userID)
	if err != nil {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	Success(c, meResponse{User: user, Role: grant.Role})
}

// CreateAdminRequest 创建管理员请求
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=admin super"`
	SetupKey string `json:"setupKey" binding:"required"`
}

// CreateAdmin godoc
// @Summary 创建管理员
// @Description 凭初始化密钥创建管理员账户；密钥未配置时该入口关闭
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body CreateAdminRequest true "管理员信息"
// @Success 201 {object} domain.AdminUser
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 409 {object} Response
// @Failure 429 {object} Response
// @Router /v1/auth/admins [post]
func (h *AuthHandler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	role := domain.AdminRole(req.Role)
	if role == "" {
		role = domain.RoleAdmin
	}

	user, err := h.authService.CreateAdmin(auth.CreateAdminInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
		SetupKey: req.SetupKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSetupKeyNotConfigured):
			Forbidden(c, GetErrorMessage(auth.ErrSetupKeyNotConfigured))
		case errors.Is(err, auth.ErrInvalidSetupKey):
			Forbidden(c, GetErrorMessage(auth.ErrInvalidSetupKey))
		case errors.Is(err, auth.ErrEmailExists):
			Conflict(c, GetErrorMessage(auth.ErrEmailExists))
		case isValidationError(err):
			BadRequest(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	Created(c, user)
}

// DeleteAdminRequest 删除管理员请求
type DeleteAdminRequest struct {
	SetupKey string `json:"setupKey" binding:"required"`
}

// DeleteAdmin godoc
// @Summary 删除管理员
// @Description 凭初始化密钥删除管理员账户，至少保留一名管理员
// @Tags Auth
// @Accept json
// @Param id path string true "管理员ID"
// @Param request body DeleteAdminRequest true "初始化密钥"
// @Success 204
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response
// @Failure 429 {object} Response
// @Router /v1/auth/admins/{id} [delete]
func (h *AuthHandler) DeleteAdmin(c *gin.Context) {
	var req DeleteAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	err := h.authService.DeleteAdmin(auth.DeleteAdminInput{
		UserID:   c.Param("id"),
		SetupKey: req.SetupKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSetupKeyNotConfigured):
			Forbidden(c, GetErrorMessage(auth.ErrSetupKeyNotConfigured))
		case errors.Is(err, auth.ErrInvalidSetupKey):
			Forbidden(c, GetErrorMessage(auth.ErrInvalidSetupKey))
		case errors.Is(err, auth.ErrAdminNotFound):
			NotFound(c, GetErrorMessage(auth.ErrAdminNotFound))
		case errors.Is(err, auth.ErrLastAdmin):
			Conflict(c, GetErrorMessage(auth.ErrLastAdmin))
		default:
			InternalError(c, MsgInternalError)
		}
		return
	}

	NoContent(c)
}
