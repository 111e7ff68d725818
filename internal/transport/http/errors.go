package httptransport

import (
	"subshare/backend/internal/auth"
	"subshare/backend/internal/auth/jwt"
	"subshare/backend/internal/domain"
	"subshare/backend/internal/service"
	"subshare/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// 校验错误
	domain.ErrInvalidAccessCode:    "访问码必须为 6 位数字",
	domain.ErrInvalidProfileNumber: "子账户槽位必须在 1-5 之间",
	domain.ErrInvalidDuration:      "订阅天数必须大于 0",
	domain.ErrInvalidEmail:         "邮箱格式无效",
	domain.ErrEmailTooLong:         "邮箱地址过长",
	domain.ErrPasswordTooShort:     "密码长度不能少于 8 位",
	domain.ErrPasswordTooLong:      "密码长度不能超过 128 位",
	domain.ErrNameRequired:         "客户姓名不能为空",

	// 客户与账号错误
	service.ErrAccessCodeTaken:    "访问码已被占用",
	service.ErrCodeSpaceExhausted: "访问码生成失败，请重试",
	service.ErrProfileSlotTaken:   "该槽位已被其他客户占用",
	service.ErrNoFreeSlot:         "该账号没有空闲槽位",
	service.ErrAccountInUse:       "账号仍被在用客户引用，无法删除",
	service.ErrNoMailbox:          "该账号未关联托管邮箱",
	storage.ErrCustomerNotFound:   "客户不存在",
	storage.ErrAccountNotFound:    "账号不存在",

	// 认证错误
	auth.ErrInvalidCredentials:    "邮箱或密码错误",
	auth.ErrEmailExists:           "邮箱已被注册",
	auth.ErrInvalidSetupKey:       "初始化密钥错误",
	auth.ErrSetupKeyNotConfigured: "初始化密钥未配置",
	auth.ErrLastAdmin:             "至少需要保留一名管理员",
	auth.ErrAdminNotFound:         "管理员不存在",
	jwt.ErrExpiredToken:           "登录已过期，请重新登录",
	jwt.ErrInvalidToken:           "无效的访问令牌",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest   = "请求参数格式错误"
	MsgRequestBodyEmpty = "请求体不能为空"

	// 访问码相关
	MsgAccessDenied = "访问码无效或已停用"

	// 认证相关
	MsgAuthRequired     = "需要登录认证"
	MsgPermissionDenied = "权限不足"

	// 服务端相关
	MsgInternalError = "服务暂时不可用，请稍后再试"
)
