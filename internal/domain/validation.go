package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidAccessCode    = errors.New("access code must be exactly 6 digits")
	ErrInvalidProfileNumber = errors.New("profile number out of range")
	ErrInvalidDuration      = errors.New("subscription days must be at least 1")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrEmailTooLong         = errors.New("email address too long")
	ErrPasswordTooShort     = errors.New("password too short (min 8 chars)")
	ErrPasswordTooLong      = errors.New("password too long (max 128 chars)")
	ErrNameRequired         = errors.New("customer name is required")
)

// 验证常量
const (
	AccessCodeLength = 6

	// RFC 5322 邮箱地址长度限制
	MaxEmailLength = 254

	// 管理员密码长度限制
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// 访问码必须恰好 6 位 ASCII 数字
var accessCodeRegex = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateAccessCode 校验访问码形状。
//
// 形状不合法的输入必须在任何数据查询之前被拒绝，
// 避免通过错误差异或耗时差异泄漏格式信息。
func ValidateAccessCode(code string) error {
	if !accessCodeRegex.MatchString(code) {
		return ErrInvalidAccessCode
	}
	return nil
}

// ValidateProfileNumber 校验 profile 槽位编号（nil 表示未分配，合法）
func ValidateProfileNumber(n *int) error {
	if n == nil {
		return nil
	}
	if *n < 1 || *n > MaxProfileNumber {
		return ErrInvalidProfileNumber
	}
	return nil
}

// ValidateSubscriptionDays 校验订阅时长
func ValidateSubscriptionDays(days int) error {
	if days < 1 {
		return ErrInvalidDuration
	}
	return nil
}

// ValidateEmail 校验邮箱地址格式
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword 校验管理员密码强度
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateCustomer 校验客户实体的不变量
func ValidateCustomer(c *Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if err := ValidateAccessCode(c.AccessCode); err != nil {
		return err
	}
	if err := ValidateSubscriptionDays(c.SubscriptionDays); err != nil {
		return err
	}
	return ValidateProfileNumber(c.ProfileNumber)
}
