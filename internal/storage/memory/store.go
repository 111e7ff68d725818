package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// Store 使用内存保存客户与账号数据，主要用于开发验证和测试。
type Store struct {
	mu sync.RWMutex

	customers    map[string]*domain.Customer          // customerID -> customer
	byAccessCode map[string]string                    // accessCode -> customerID
	accounts     map[string]*domain.CredentialAccount // accountID -> account
	byMailbox    map[string]string                    // mailboxAddress -> accountID

	admins      map[string]*domain.AdminUser  // userID -> admin
	byEmail     map[string]string             // email -> userID
	adminGrants map[string]*domain.AdminGrant // userID -> grant

	messages  map[string][]*domain.InboundMessage     // mailboxAddress -> messages
	artifacts map[string]*domain.VerificationArtifact // accountID -> latest artifact
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		customers:    make(map[string]*domain.Customer),
		byAccessCode: make(map[string]string),
		accounts:     make(map[string]*domain.CredentialAccount),
		byMailbox:    make(map[string]string),
		admins:       make(map[string]*domain.AdminUser),
		byEmail:      make(map[string]string),
		adminGrants:  make(map[string]*domain.AdminGrant),
		messages:     make(map[string][]*domain.InboundMessage),
		artifacts:    make(map[string]*domain.VerificationArtifact),
	}
}

// ========== Customer Repository ==========

// SaveCustomer 保存客户信息。
func (s *Store) SaveCustomer(c *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byAccessCode[c.AccessCode]; ok && existing != c.ID {
		return storage.ErrAccessCodeExists
	}

	clone := *c
	s.customers[c.ID] = &clone
	s.byAccessCode[c.AccessCode] = c.ID
	return nil
}

// GetCustomer 根据 ID 获取客户。
func (s *Store) GetCustomer(id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, storage.ErrCustomerNotFound
	}
	clone := *c
	return &clone, nil
}

// GetActiveCustomerByAccessCode 单次查询返回有效客户及其共享账号。
func (s *Store) GetActiveCustomerByAccessCode(code string) (*domain.Customer, *domain.CredentialAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAccessCode[code]
	if !ok {
		return nil, nil, storage.ErrCustomerNotFound
	}
	c, ok := s.customers[id]
	if !ok || !c.IsActive {
		// 已停用与不存在不可区分
		return nil, nil, storage.ErrCustomerNotFound
	}

	clone := *c
	var account *domain.CredentialAccount
	if c.NetflixAccountID != nil {
		if a, ok := s.accounts[*c.NetflixAccountID]; ok {
			ac := *a
			account = &ac
		}
	}
	return &clone, account, nil
}

// AccessCodeExists 判断访问码是否已被占用。
func (s *Store) AccessCodeExists(code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byAccessCode[code]
	return ok, nil
}

// ListCustomers 返回全部客户，按创建时间排序。
func (s *Store) ListCustomers() ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// ListActiveCustomers 返回全部 is_active=true 的客户。
func (s *Store) ListActiveCustomers() ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]domain.Customer, 0)
	for _, c := range s.customers {
		if c.IsActive {
			list = append(list, *c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// ListCustomersByAccountID 返回引用某共享账号的全部客户。
func (s *Store) ListCustomersByAccountID(accountID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]domain.Customer, 0)
	for _, c := range s.customers {
		if c.NetflixAccountID != nil && *c.NetflixAccountID == accountID {
			list = append(list, *c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// UpdateCustomer 更新客户信息。
func (s *Store) UpdateCustomer(c *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.customers[c.ID]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	if existing, ok := s.byAccessCode[c.AccessCode]; ok && existing != c.ID {
		return storage.ErrAccessCodeExists
	}

	if old.AccessCode != c.AccessCode {
		delete(s.byAccessCode, old.AccessCode)
		s.byAccessCode[c.AccessCode] = c.ID
	}
	clone := *c
	clone.UpdatedAt = time.Now().UTC()
	s.customers[c.ID] = &clone
	return nil
}

// DeleteCustomer 删除客户。
func (s *Store) DeleteCustomer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	delete(s.byAccessCode, c.AccessCode)
	delete(s.customers, id)
	return nil
}

// DeactivateCustomers 批量停用并释放共享资源槽位。
//
// 内存实现天然原子：整批在同一把写锁内完成。
func (s *Store) DeactivateCustomers(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, id := range ids {
		c, ok := s.customers[id]
		if !ok {
			continue
		}
		c.IsActive = false
		c.NetflixAccountID = nil
		c.ProfileNumber = nil
		c.UpdatedAt = now
	}
	return nil
}

// ReleaseAssignment 清空单个客户的账号与槽位引用。
func (s *Store) ReleaseAssignment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	c.NetflixAccountID = nil
	c.ProfileNumber = nil
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// SetCustomerAccount 更新客户引用的共享账号（nil 表示解除引用）。
func (s *Store) SetCustomerAccount(id string, accountID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	if accountID != nil {
		if _, ok := s.accounts[*accountID]; !ok {
			return storage.ErrAccountNotFound
		}
		v := *accountID
		c.NetflixAccountID = &v
	} else {
		c.NetflixAccountID = nil
		c.ProfileNumber = nil
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ExtendCustomerSubscription 在订阅天数上累加。
func (s *Store) ExtendCustomerSubscription(id string, deltaDays int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	c.SubscriptionDays += deltaDays
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ========== Account Repository ==========

// SaveAccount 保存共享账号。
func (s *Store) SaveAccount(a *domain.CredentialAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *a
	s.accounts[a.ID] = &clone
	if a.MailboxAddress != "" {
		s.byMailbox[strings.ToLower(a.MailboxAddress)] = a.ID
	}
	return nil
}

// GetAccount 根据 ID 获取共享账号。
func (s *Store) GetAccount(id string) (*domain.CredentialAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *a
	return &clone, nil
}

// GetAccountByMailbox 根据关联邮箱地址获取共享账号。
func (s *Store) GetAccountByMailbox(address string) (*domain.CredentialAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byMailbox[strings.ToLower(address)]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	clone := *s.accounts[id]
	return &clone, nil
}

// ListAccounts 返回全部共享账号。
func (s *Store) ListAccounts() ([]domain.CredentialAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]domain.CredentialAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// UpdateAccount 更新共享账号。
func (s *Store) UpdateAccount(a *domain.CredentialAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.accounts[a.ID]
	if !ok {
		return storage.ErrAccountNotFound
	}
	if old.MailboxAddress != "" {
		delete(s.byMailbox, strings.ToLower(old.MailboxAddress))
	}
	clone := *a
	clone.UpdatedAt = time.Now().UTC()
	s.accounts[a.ID] = &clone
	if a.MailboxAddress != "" {
		s.byMailbox[strings.ToLower(a.MailboxAddress)] = a.ID
	}
	return nil
}

// DeleteAccount 删除共享账号。
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	if a.MailboxAddress != "" {
		delete(s.byMailbox, strings.ToLower(a.MailboxAddress))
	}
	delete(s.accounts, id)
	delete(s.artifacts, id)
	return nil
}

// Health 内存存储恒为健康。
func (s *Store) Health() error { return nil }

// Close 内存存储无需释放资源。
func (s *Store) Close() error { return nil }
