package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Admin Repository ==========

// CreateAdminUser 创建管理员登录记录
func (s *Store) CreateAdminUser(u *domain.AdminUser) error {
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO admin_users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return storage.ErrEmailExists
	}
	return err
}

func scanAdmin(row pgx.Row) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetAdminUserByID 根据 ID 获取管理员
func (s *Store) GetAdminUserByID(id string) (*domain.AdminUser, error) {
	row := s.pool.QueryRow(s.ctx, `
		SELECT id, email, password_hash, created_at, updated_at, last_login_at
		FROM admin_users WHERE id = $1
	`, id)
	u, err := scanAdmin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	return u, err
}

// GetAdminUserByEmail 根据邮箱获取管理员
func (s *Store) GetAdminUserByEmail(email string) (*domain.AdminUser, error) {
	row := s.pool.QueryRow(s.ctx, `
		SELECT id, email, password_hash, created_at, updated_at, last_login_at
		FROM admin_users WHERE email = $1
	`, strings.ToLower(email))
	u, err := scanAdmin(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	return u, err
}

// DeleteAdminUser 删除管理员登录记录
func (s *Store) DeleteAdminUser(id string) error {
	tag, err := s.pool.Exec(s.ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAdminNotFound
	}
	return nil
}

// UpdateAdminLastLogin 更新最后登录时间
func (s *Store) UpdateAdminLastLogin(id string) error {
	_, err := s.pool.Exec(s.ctx, `UPDATE admin_users SET last_login_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}

// CreateAdminGrant 写入授权记录
func (s *Store) CreateAdminGrant(g *domain.AdminGrant) error {
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO admin_grants (user_id, role, granted_at) VALUES ($1, $2, $3)`,
		g.UserID, g.Role, g.GrantedAt)
	return err
}

// GetAdminGrant 获取授权记录
func (s *Store) GetAdminGrant(userID string) (*domain.AdminGrant, error) {
	var g domain.AdminGrant
	err := s.pool.QueryRow(s.ctx,
		`SELECT user_id, role, granted_at FROM admin_grants WHERE user_id = $1`, userID).
		Scan(&g.UserID, &g.Role, &g.GrantedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// DeleteAdminGrant 删除授权记录
func (s *Store) DeleteAdminGrant(userID string) error {
	tag, err := s.pool.Exec(s.ctx, `DELETE FROM admin_grants WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAdminNotFound
	}
	return nil
}

// CountAdminGrants 统计现存授权数量
func (s *Store) CountAdminGrants() (int, error) {
	var count int
	err := s.pool.QueryRow(s.ctx, `SELECT COUNT(1) FROM admin_grants`).Scan(&count)
	return count, err
}
