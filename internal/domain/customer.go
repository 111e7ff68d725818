package domain

import (
	"time"
)

// Status 订阅状态（派生值，不落库，每次读取时重新计算）
type Status string

const (
	// StatusInactive 管理员手动停用，优先级最高，覆盖所有日期计算
	StatusInactive Status = "inactive"
	// StatusExpired 剩余天数 <= 0
	StatusExpired Status = "expired"
	// StatusExpiringSoon 剩余天数 1~7 天
	StatusExpiringSoon Status = "expiring_soon"
	// StatusActive 剩余天数 > 7 天
	StatusActive Status = "active"
)

// Customer 表示订阅客户的业务实体。
//
// AccessCode 全局唯一，固定 6 位数字；客户凭该码自助查询自己的
// 订阅信息和共享账号凭证。NetflixAccountID 与 ProfileNumber 记录
// 客户占用的共享账号及子账户槽位，到期回收后置空以便重新分配。
type Customer struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name             string    `json:"name" gorm:"type:varchar(100);not null"`
	AccessCode       string    `json:"accessCode" gorm:"type:char(6);uniqueIndex;not null"`
	PurchaseDate     time.Time `json:"purchaseDate" gorm:"type:date;not null"`
	SubscriptionDays int       `json:"subscriptionDays" gorm:"not null"`
	IsActive         bool      `json:"isActive" gorm:"default:true;index"`
	ProfileNumber    *int      `json:"profileNumber,omitempty"`
	NetflixAccountID *string   `json:"netflixAccountId,omitempty" gorm:"type:varchar(36);index"`
	PurchasedFrom    string    `json:"purchasedFrom,omitempty" gorm:"type:varchar(100)"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasAssignment 判断客户是否占用了共享账号资源
func (c *Customer) HasAssignment() bool {
	return c.NetflixAccountID != nil || c.ProfileNumber != nil
}

// CustomerRef 批量操作结果中引用客户的轻量投影
type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CredentialView 客户可见的共享账号凭证投影
//
// 仅在客户已分配账号时返回，字段固定，避免 schema 漂移
// 导致多余字段泄漏。
type CredentialView struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	MailboxAddress string `json:"mailboxAddress,omitempty"`
}

// CustomerView 访问码校验成功后返回给匿名客户的受限投影。
//
// 投影由单次授权感知查询产生（查询内嵌 is_active 过滤），
// 不做"先查存在、再查详情"的两段式读取。
type CustomerView struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	PurchaseDate     time.Time       `json:"purchaseDate"`
	SubscriptionDays int             `json:"subscriptionDays"`
	DaysRemaining    int             `json:"daysRemaining"`
	Status           Status          `json:"status"`
	ProfileNumber    *int            `json:"profileNumber,omitempty"`
	PurchasedFrom    string          `json:"purchasedFrom,omitempty"`
	Credential       *CredentialView `json:"credential,omitempty"`
}
