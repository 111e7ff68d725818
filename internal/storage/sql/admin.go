package sql

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Admin Repository ==========

// CreateAdminUser 创建管理员登录记录
func (s *Store) CreateAdminUser(u *domain.AdminUser) error {
	query := s.rebind(`
		INSERT INTO admin_users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query, u.ID, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil && isDuplicateErr(err) {
		return storage.ErrEmailExists
	}
	return err
}

// scanAdmin 从一行记录扫描管理员
func scanAdmin(row interface{ Scan(...any) error }) (*domain.AdminUser, error) {
	var u domain.AdminUser
	var lastLogin sql.NullTime

	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

// GetAdminUserByID 根据 ID 获取管理员
func (s *Store) GetAdminUserByID(id string) (*domain.AdminUser, error) {
	query := s.rebind(`
		SELECT id, email, password_hash, created_at, updated_at, last_login_at
		FROM admin_users WHERE id = ?
	`)
	u, err := scanAdmin(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	return u, err
}

// GetAdminUserByEmail 根据邮箱获取管理员
func (s *Store) GetAdminUserByEmail(email string) (*domain.AdminUser, error) {
	query := s.rebind(`
		SELECT id, email, password_hash, created_at, updated_at, last_login_at
		FROM admin_users WHERE email = ?
	`)
	u, err := scanAdmin(s.db.QueryRow(query, strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	return u, err
}

// DeleteAdminUser 删除管理员登录记录
func (s *Store) DeleteAdminUser(id string) error {
	res, err := s.db.Exec(s.rebind(`DELETE FROM admin_users WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrAdminNotFound)
}

// UpdateAdminLastLogin 更新最后登录时间
func (s *Store) UpdateAdminLastLogin(id string) error {
	query := s.rebind(`UPDATE admin_users SET last_login_at = ? WHERE id = ?`)
	_, err := s.db.Exec(query, time.Now().UTC(), id)
	return err
}

// CreateAdminGrant 写入授权记录
func (s *Store) CreateAdminGrant(g *domain.AdminGrant) error {
	query := s.rebind(`INSERT INTO admin_grants (user_id, role, granted_at) VALUES (?, ?, ?)`)
	_, err := s.db.Exec(query, g.UserID, g.Role, g.GrantedAt)
	return err
}

// GetAdminGrant 获取授权记录
func (s *Store) GetAdminGrant(userID string) (*domain.AdminGrant, error) {
	query := s.rebind(`SELECT user_id, role, granted_at FROM admin_grants WHERE user_id = ?`)
	var g domain.AdminGrant
	err := s.db.QueryRow(query, userID).Scan(&g.UserID, &g.Role, &g.GrantedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteAdminGrant 删除授权记录
func (s *Store) DeleteAdminGrant(userID string) error {
	res, err := s.db.Exec(s.rebind(`DELETE FROM admin_grants WHERE user_id = ?`), userID)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrAdminNotFound)
}

// CountAdminGrants 统计现存授权数量
func (s *Store) CountAdminGrants() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM admin_grants`).Scan(&count)
	return count, err
}
