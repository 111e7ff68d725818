package hybrid

import (
	"fmt"
	"time"

	"subshare/backend/internal/config"
	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
	"subshare/backend/internal/storage/postgres"
	"subshare/backend/internal/storage/redis"
	sqlstore "subshare/backend/internal/storage/sql"
)

// 缓存过期时间
const (
	customerCacheTTL   = 1 * time.Hour
	statisticsCacheTTL = 5 * time.Minute
)

// Store 混合存储实现，结合数据库与 Redis
type Store struct {
	db    storage.Store
	redis *redis.Cache
}

// NewStore 创建混合存储实例（指定数据库类型）
func NewStore(dbType, dsn string, redisCfg *config.RedisConfig) (*Store, error) {
	var db storage.Store
	var err error

	switch dbType {
	case "mysql":
		db, err = sqlstore.NewStore("mysql", dsn, 25, 5, time.Hour)
	case "postgres", "postgresql":
		db, err = postgres.NewStore(dsn, 25, 5, time.Hour)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres)", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client, err := redis.New(redisCfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		db:    db,
		redis: redis.NewCache(client),
	}, nil
}

// ========== Customer Repository ==========

// SaveCustomer 保存客户信息
func (s *Store) SaveCustomer(c *domain.Customer) error {
	if err := s.db.SaveCustomer(c); err != nil {
		return err
	}
	return s.redis.CacheCustomer(c, customerCacheTTL)
}

// GetCustomer 根据 ID 获取客户
func (s *Store) GetCustomer(id string) (*domain.Customer, error) {
	// 先尝试从 Redis 获取
	if c, err := s.redis.GetCachedCustomer(id); err == nil {
		return c, nil
	}

	c, err := s.db.GetCustomer(id)
	if err != nil {
		return nil, err
	}

	s.redis.CacheCustomer(c, customerCacheTTL)
	return c, nil
}

// GetActiveCustomerByAccessCode 根据访问码获取有效客户及其共享账号
func (s *Store) GetActiveCustomerByAccessCode(code string) (*domain.Customer, *domain.CredentialAccount, error) {
	// 授权查询直接走数据库（停用状态必须即时生效，不走缓存）
	return s.db.GetActiveCustomerByAccessCode(code)
}

// AccessCodeExists 检查访问码是否已被占用
func (s *Store) AccessCodeExists(code string) (bool, error) {
	return s.db.AccessCodeExists(code)
}

// ListCustomers 返回全部客户
func (s *Store) ListCustomers() ([]domain.Customer, error) {
	// 列表查询不缓存
	return s.db.ListCustomers()
}

// ListActiveCustomers 返回全部有效客户
func (s *Store) ListActiveCustomers() ([]domain.Customer, error) {
	return s.db.ListActiveCustomers()
}

// ListCustomersByAccountID 返回某共享账号下的全部客户
func (s *Store) ListCustomersByAccountID(accountID string) ([]domain.Customer, error) {
	return s.db.ListCustomersByAccountID(accountID)
}

// UpdateCustomer 更新客户信息
func (s *Store) UpdateCustomer(c *domain.Customer) error {
	if err := s.db.UpdateCustomer(c); err != nil {
		return err
	}

	// 删除缓存（强制重新加载）
	s.redis.DeleteCachedCustomer(c.ID)
	return nil
}

// DeleteCustomer 删除客户
func (s *Store) DeleteCustomer(id string) error {
	if err := s.db.DeleteCustomer(id); err != nil {
		return err
	}

	s.redis.DeleteCachedCustomer(id)
	return nil
}

// DeactivateCustomers 批量停用客户并释放共享资源槽位
func (s *Store) DeactivateCustomers(ids []string) error {
	if err := s.db.DeactivateCustomers(ids); err != nil {
		return err
	}

	for _, id := range ids {
		s.redis.DeleteCachedCustomer(id)
	}
	return nil
}

// ReleaseAssignment 释放客户的共享资源分配
func (s *Store) ReleaseAssignment(id string) error {
	if err := s.db.ReleaseAssignment(id); err != nil {
		return err
	}

	s.redis.DeleteCachedCustomer(id)
	return nil
}

// SetCustomerAccount 变更客户绑定的共享账号
func (s *Store) SetCustomerAccount(id string, accountID *string) error {
	if err := s.db.SetCustomerAccount(id, accountID); err != nil {
		return err
	}

	s.redis.DeleteCachedCustomer(id)
	return nil
}

// ExtendCustomerSubscription 延长客户订阅天数
func (s *Store) ExtendCustomerSubscription(id string, deltaDays int) error {
	if err := s.db.ExtendCustomerSubscription(id, deltaDays); err != nil {
		return err
	}

	s.redis.DeleteCachedCustomer(id)
	return nil
}

// ========== Account Repository ==========

// SaveAccount 保存共享账号
func (s *Store) SaveAccount(a *domain.CredentialAccount) error {
	return s.db.SaveAccount(a)
}

// GetAccount 根据 ID 获取共享账号
func (s *Store) GetAccount(id string) (*domain.CredentialAccount, error) {
	return s.db.GetAccount(id)
}

// GetAccountByMailbox 根据托管邮箱地址获取共享账号
func (s *Store) GetAccountByMailbox(address string) (*domain.CredentialAccount, error) {
	return s.db.GetAccountByMailbox(address)
}

// ListAccounts 返回全部共享账号
func (s *Store) ListAccounts() ([]domain.CredentialAccount, error) {
	return s.db.ListAccounts()
}

// UpdateAccount 更新共享账号
func (s *Store) UpdateAccount(a *domain.CredentialAccount) error {
	return s.db.UpdateAccount(a)
}

// DeleteAccount 删除共享账号
func (s *Store) DeleteAccount(id string) error {
	if err := s.db.DeleteAccount(id); err != nil {
		return err
	}

	s.redis.DeleteCachedArtifact(id)
	return nil
}

// ========== Admin Repository ==========

// CreateAdminUser 创建管理员账户
func (s *Store) CreateAdminUser(u *domain.AdminUser) error {
	// 管理员不走缓存（密码散列字段不参与序列化）
	return s.db.CreateAdminUser(u)
}

// GetAdminUserByID 根据 ID 获取管理员
func (s *Store) GetAdminUserByID(id string) (*domain.AdminUser, error) {
	return s.db.GetAdminUserByID(id)
}

// GetAdminUserByEmail 根据邮箱获取管理员
func (s *Store) GetAdminUserByEmail(email string) (*domain.AdminUser, error) {
	return s.db.GetAdminUserByEmail(email)
}

// DeleteAdminUser 删除管理员账户
func (s *Store) DeleteAdminUser(id string) error {
	return s.db.DeleteAdminUser(id)
}

// UpdateAdminLastLogin 更新管理员最后登录时间
func (s *Store) UpdateAdminLastLogin(id string) error {
	return s.db.UpdateAdminLastLogin(id)
}

// CreateAdminGrant 创建管理员授权记录
func (s *Store) CreateAdminGrant(g *domain.AdminGrant) error {
	return s.db.CreateAdminGrant(g)
}

// GetAdminGrant 获取管理员授权记录
func (s *Store) GetAdminGrant(userID string) (*domain.AdminGrant, error) {
	return s.db.GetAdminGrant(userID)
}

// DeleteAdminGrant 删除管理员授权记录
func (s *Store) DeleteAdminGrant(userID string) error {
	return s.db.DeleteAdminGrant(userID)
}

// CountAdminGrants 统计管理员授权数量
func (s *Store) CountAdminGrants() (int, error) {
	return s.db.CountAdminGrants()
}

// ========== Message Repository ==========

// SaveInboundMessage 保存托管邮箱邮件
func (s *Store) SaveInboundMessage(m *domain.InboundMessage) error {
	if err := s.db.SaveInboundMessage(m); err != nil {
		return err
	}

	// 发布新邮件通知（失败不影响主流程）
	s.redis.PublishInboundMessage(m.MailboxAddress, m)
	return nil
}

// ListInboundMessagesSince 返回某邮箱自 since 起的邮件
func (s *Store) ListInboundMessagesSince(mailboxAddress string, since time.Time) ([]domain.InboundMessage, error) {
	return s.db.ListInboundMessagesSince(mailboxAddress, since)
}

// DeleteInboundMessagesBefore 清理陈旧邮件
func (s *Store) DeleteInboundMessagesBefore(cutoff time.Time) (int, error) {
	return s.db.DeleteInboundMessagesBefore(cutoff)
}

// ========== Artifact Repository ==========

// SaveArtifact 覆盖式保存验证产物
func (s *Store) SaveArtifact(a *domain.VerificationArtifact) error {
	if err := s.db.SaveArtifact(a); err != nil {
		return err
	}

	ttl := time.Until(a.ExpiresAt)
	if ttl > 0 {
		s.redis.CacheArtifact(a, ttl)
	}
	return nil
}

// GetArtifact 返回账号当前有效的验证产物
func (s *Store) GetArtifact(accountID string, now time.Time) (*domain.VerificationArtifact, error) {
	// 先尝试从 Redis 获取
	if a, err := s.redis.GetCachedArtifact(accountID); err == nil && !a.Expired(now) {
		return a, nil
	}

	return s.db.GetArtifact(accountID, now)
}

// ========== 工具方法 ==========

// Health 健康检查
func (s *Store) Health() error {
	return s.db.Health()
}

// Close 关闭存储连接
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	return s.redis.Close()
}
