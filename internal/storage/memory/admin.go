package memory

import (
	"strings"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Admin Repository ==========

// CreateAdminUser 创建管理员登录记录。
func (s *Store) CreateAdminUser(u *domain.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return storage.ErrEmailExists
	}

	clone := *u
	s.admins[u.ID] = &clone
	s.byEmail[email] = u.ID
	return nil
}

// GetAdminUserByID 根据 ID 获取管理员。
func (s *Store) GetAdminUserByID(id string) (*domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.admins[id]
	if !ok {
		return nil, storage.ErrAdminNotFound
	}
	clone := *u
	return &clone, nil
}

// GetAdminUserByEmail 根据邮箱获取管理员。
func (s *Store) GetAdminUserByEmail(email string) (*domain.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrAdminNotFound
	}
	clone := *s.admins[id]
	return &clone, nil
}

// DeleteAdminUser 删除管理员登录记录。
func (s *Store) DeleteAdminUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.admins[id]
	if !ok {
		return storage.ErrAdminNotFound
	}
	delete(s.byEmail, strings.ToLower(u.Email))
	delete(s.admins, id)
	return nil
}

// UpdateAdminLastLogin 更新最后登录时间。
func (s *Store) UpdateAdminLastLogin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.admins[id]
	if !ok {
		return storage.ErrAdminNotFound
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	return nil
}

// CreateAdminGrant 写入授权记录。
func (s *Store) CreateAdminGrant(g *domain.AdminGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *g
	s.adminGrants[g.UserID] = &clone
	return nil
}

// GetAdminGrant 获取授权记录。
func (s *Store) GetAdminGrant(userID string) (*domain.AdminGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.adminGrants[userID]
	if !ok {
		return nil, storage.ErrAdminNotFound
	}
	clone := *g
	return &clone, nil
}

// DeleteAdminGrant 删除授权记录。
func (s *Store) DeleteAdminGrant(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.adminGrants[userID]; !ok {
		return storage.ErrAdminNotFound
	}
	delete(s.adminGrants, userID)
	return nil
}

// CountAdminGrants 统计现存授权数量。
func (s *Store) CountAdminGrants() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.adminGrants), nil
}
