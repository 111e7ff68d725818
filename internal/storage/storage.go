package storage

import (
	"errors"
	"time"

	"subshare/backend/internal/domain"
)

// 存储层通用错误
var (
	// ErrCustomerNotFound 客户不存在
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrAccountNotFound 共享账号不存在
	ErrAccountNotFound = errors.New("credential account not found")
	// ErrAdminNotFound 管理员不存在
	ErrAdminNotFound = errors.New("admin user not found")
	// ErrAccessCodeExists 访问码已被占用
	ErrAccessCodeExists = errors.New("access code already exists")
	// ErrArtifactNotFound 验证产物不存在或已过期
	ErrArtifactNotFound = errors.New("verification artifact not found")
	// ErrEmailExists 邮箱已存在
	ErrEmailExists = errors.New("email already exists")
)

// CustomerRepository 定义客户数据存取操作。
type CustomerRepository interface {
	SaveCustomer(c *domain.Customer) error
	GetCustomer(id string) (*domain.Customer, error)
	// GetActiveCustomerByAccessCode 在单次授权感知查询中返回
	// 有效客户及其已分配的共享账号（未分配时账号为 nil）。
	// 未命中与命中但已停用统一返回 ErrCustomerNotFound。
	GetActiveCustomerByAccessCode(code string) (*domain.Customer, *domain.CredentialAccount, error)
	AccessCodeExists(code string) (bool, error)
	ListCustomers() ([]domain.Customer, error)
	ListActiveCustomers() ([]domain.Customer, error)
	ListCustomersByAccountID(accountID string) ([]domain.Customer, error)
	UpdateCustomer(c *domain.Customer) error
	DeleteCustomer(id string) error
	// DeactivateCustomers 单条批量更新：置 is_active=false 并清空
	// netflix_account_id 与 profile_number，释放共享资源槽位。
	// 整批失败时不得留下部分停用状态。
	DeactivateCustomers(ids []string) error
	ReleaseAssignment(id string) error
	SetCustomerAccount(id string, accountID *string) error
	// ExtendCustomerSubscription 在 subscription_days 上累加天数，
	// 购买日期锚点保持不变。
	ExtendCustomerSubscription(id string, deltaDays int) error
}

// AccountRepository 定义共享账号数据存取操作。
type AccountRepository interface {
	SaveAccount(a *domain.CredentialAccount) error
	GetAccount(id string) (*domain.CredentialAccount, error)
	GetAccountByMailbox(address string) (*domain.CredentialAccount, error)
	ListAccounts() ([]domain.CredentialAccount, error)
	UpdateAccount(a *domain.CredentialAccount) error
	DeleteAccount(id string) error
}

// AdminRepository 定义管理员账户与授权记录的存取操作。
type AdminRepository interface {
	CreateAdminUser(u *domain.AdminUser) error
	GetAdminUserByID(id string) (*domain.AdminUser, error)
	GetAdminUserByEmail(email string) (*domain.AdminUser, error)
	DeleteAdminUser(id string) error
	UpdateAdminLastLogin(id string) error
	CreateAdminGrant(g *domain.AdminGrant) error
	GetAdminGrant(userID string) (*domain.AdminGrant, error)
	DeleteAdminGrant(userID string) error
	CountAdminGrants() (int, error)
}

// MessageRepository 定义托管邮箱内邮件的存取操作。
type MessageRepository interface {
	SaveInboundMessage(m *domain.InboundMessage) error
	// ListInboundMessagesSince 返回某邮箱自 since 起收到的邮件，按时间倒序。
	ListInboundMessagesSince(mailboxAddress string, since time.Time) ([]domain.InboundMessage, error)
	// DeleteInboundMessagesBefore 清理陈旧邮件，返回删除数量。
	DeleteInboundMessagesBefore(cutoff time.Time) (int, error)
}

// ArtifactRepository 定义验证产物的存取操作。
type ArtifactRepository interface {
	// SaveArtifact 覆盖式保存：同一账号的旧产物即刻失效。
	SaveArtifact(a *domain.VerificationArtifact) error
	// GetArtifact 返回账号当前有效的产物；不存在或已过期返回 ErrArtifactNotFound。
	GetArtifact(accountID string, now time.Time) (*domain.VerificationArtifact, error)
}

// Store 聚合全部仓储接口。
type Store interface {
	CustomerRepository
	AccountRepository
	AdminRepository
	MessageRepository
	ArtifactRepository

	Health() error
	Close() error
}
