package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// Store 基于 pgx 连接池的 PostgreSQL 存储实现。
//
// 与 sql 包的通用实现相比走 PostgreSQL 原生协议，
// 批量更新使用 ANY($1) 数组参数。
type Store struct {
	pool *pgxpool.Pool
	ctx  context.Context
}

// NewStore 创建 PostgreSQL 存储
func NewStore(dsn string, maxConns, minConns int, maxLifetime time.Duration) (*Store, error) {
	pool, err := newPool(dsn, maxConns, minConns, maxLifetime)
	if err != nil {
		return nil, err
	}

	s := &Store{pool: pool, ctx: context.Background()}
	if err := s.migrate(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate 建表（幂等）
func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			access_code CHAR(6) NOT NULL UNIQUE,
			purchase_date DATE NOT NULL,
			subscription_days INT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			profile_number INT,
			netflix_account_id VARCHAR(36),
			purchased_from VARCHAR(100),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_is_active ON customers (is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_account ON customers (netflix_account_id)`,
		`CREATE TABLE IF NOT EXISTS credential_accounts (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password VARCHAR(255) NOT NULL,
			mailbox_address VARCHAR(255),
			note VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_mailbox ON credential_accounts (LOWER(mailbox_address))`,
		`CREATE TABLE IF NOT EXISTS admin_users (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			last_login_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS admin_grants (
			user_id VARCHAR(36) PRIMARY KEY,
			role VARCHAR(20) NOT NULL DEFAULT 'admin',
			granted_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inbound_messages (
			id VARCHAR(36) PRIMARY KEY,
			mailbox_address VARCHAR(255) NOT NULL,
			from_address VARCHAR(255),
			subject VARCHAR(998),
			text TEXT,
			html TEXT,
			received_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_mailbox ON inbound_messages (mailbox_address, received_at)`,
		`CREATE TABLE IF NOT EXISTS verification_artifacts (
			account_id VARCHAR(36) PRIMARY KEY,
			kind VARCHAR(10) NOT NULL,
			value TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(s.ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ========== Customer Repository ==========

const customerColumns = `id, name, access_code, purchase_date, subscription_days, is_active,
       profile_number, netflix_account_id, purchased_from, created_at, updated_at`

// SaveCustomer 创建新客户
func (s *Store) SaveCustomer(c *domain.Customer) error {
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO customers (id, name, access_code, purchase_date, subscription_days, is_active,
		                       profile_number, netflix_account_id, purchased_from, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.ID, c.Name, c.AccessCode, c.PurchaseDate, c.SubscriptionDays, c.IsActive,
		c.ProfileNumber, c.NetflixAccountID, c.PurchasedFrom, c.CreatedAt, c.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return storage.ErrAccessCodeExists
	}
	return err
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.AccessCode, &c.PurchaseDate, &c.SubscriptionDays, &c.IsActive,
		&c.ProfileNumber, &c.NetflixAccountID, &c.PurchasedFrom, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomer 根据 ID 获取客户
func (s *Store) GetCustomer(id string) (*domain.Customer, error) {
	row := s.pool.QueryRow(s.ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrCustomerNotFound
	}
	return c, err
}

// GetActiveCustomerByAccessCode 单次授权感知查询，连表取共享账号
func (s *Store) GetActiveCustomerByAccessCode(code string) (*domain.Customer, *domain.CredentialAccount, error) {
	row := s.pool.QueryRow(s.ctx, `
		SELECT c.id, c.name, c.access_code, c.purchase_date, c.subscription_days, c.is_active,
		       c.profile_number, c.netflix_account_id, c.purchased_from, c.created_at, c.updated_at,
		       a.id, a.email, a.password, a.mailbox_address, a.note, a.created_at, a.updated_at
		FROM customers c
		LEFT JOIN credential_accounts a ON a.id = c.netflix_account_id
		WHERE c.access_code = $1 AND c.is_active = TRUE
	`, code)

	var c domain.Customer
	var aID, aEmail, aPassword, aMailbox, aNote *string
	var aCreated, aUpdated *time.Time

	err := row.Scan(
		&c.ID, &c.Name, &c.AccessCode, &c.PurchaseDate, &c.SubscriptionDays, &c.IsActive,
		&c.ProfileNumber, &c.NetflixAccountID, &c.PurchasedFrom, &c.CreatedAt, &c.UpdatedAt,
		&aID, &aEmail, &aPassword, &aMailbox, &aNote, &aCreated, &aUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, storage.ErrCustomerNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var account *domain.CredentialAccount
	if aID != nil {
		account = &domain.CredentialAccount{
			ID:       *aID,
			Email:    deref(aEmail),
			Password: deref(aPassword),
		}
		account.MailboxAddress = deref(aMailbox)
		account.Note = deref(aNote)
		if aCreated != nil {
			account.CreatedAt = *aCreated
		}
		if aUpdated != nil {
			account.UpdatedAt = *aUpdated
		}
	}
	return &c, account, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// AccessCodeExists 判断访问码是否已被占用
func (s *Store) AccessCodeExists(code string) (bool, error) {
	var count int
	err := s.pool.QueryRow(s.ctx, `SELECT COUNT(1) FROM customers WHERE access_code = $1`, code).Scan(&count)
	return count > 0, err
}

func (s *Store) queryCustomers(query string, args ...any) ([]domain.Customer, error) {
	rows, err := s.pool.Query(s.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]domain.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// ListCustomers 返回全部客户
func (s *Store) ListCustomers() ([]domain.Customer, error) {
	return s.queryCustomers(`SELECT ` + customerColumns + ` FROM customers ORDER BY created_at`)
}

// ListActiveCustomers 返回全部有效客户
func (s *Store) ListActiveCustomers() ([]domain.Customer, error) {
	return s.queryCustomers(`SELECT ` + customerColumns + ` FROM customers WHERE is_active = TRUE ORDER BY created_at`)
}

// ListCustomersByAccountID 返回引用某共享账号的全部客户
func (s *Store) ListCustomersByAccountID(accountID string) ([]domain.Customer, error) {
	return s.queryCustomers(`SELECT `+customerColumns+` FROM customers WHERE netflix_account_id = $1 ORDER BY created_at`, accountID)
}

// UpdateCustomer 更新客户信息
func (s *Store) UpdateCustomer(c *domain.Customer) error {
	tag, err := s.pool.Exec(s.ctx, `
		UPDATE customers
		SET name = $1, access_code = $2, purchase_date = $3, subscription_days = $4, is_active = $5,
		    profile_number = $6, netflix_account_id = $7, purchased_from = $8, updated_at = $9
		WHERE id = $10
	`, c.Name, c.AccessCode, c.PurchaseDate, c.SubscriptionDays, c.IsActive,
		c.ProfileNumber, c.NetflixAccountID, c.PurchasedFrom, time.Now().UTC(), c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAccessCodeExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCustomerNotFound
	}
	return nil
}

// DeleteCustomer 删除客户
func (s *Store) DeleteCustomer(id string) error {
	tag, err := s.pool.Exec(s.ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCustomerNotFound
	}
	return nil
}

// DeactivateCustomers 单条批量更新：停用并释放共享资源槽位
func (s *Store) DeactivateCustomers(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(s.ctx, `
		UPDATE customers
		SET is_active = FALSE, netflix_account_id = NULL, profile_number = NULL, updated_at = $1
		WHERE id = ANY($2)
	`, time.Now().UTC(), ids)
	return err
}

// ReleaseAssignment 清空单个客户的账号与槽位引用
func (s *Store) ReleaseAssignment(id string) error {
	tag, err := s.pool.Exec(s.ctx, `
		UPDATE customers
		SET netflix_account_id = NULL, profile_number = NULL, updated_at = $1
		WHERE id = $2
	`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCustomerNotFound
	}
	return nil
}

// SetCustomerAccount 更新客户引用的共享账号
func (s *Store) SetCustomerAccount(id string, accountID *string) error {
	var tag interface{ RowsAffected() int64 }
	var err error
	if accountID == nil {
		tag, err = s.pool.Exec(s.ctx, `
			UPDATE customers
			SET netflix_account_id = NULL, profile_number = NULL, updated_at = $1
			WHERE id = $2
		`, time.Now().UTC(), id)
	} else {
		tag, err = s.pool.Exec(s.ctx, `
			UPDATE customers SET netflix_account_id = $1, updated_at = $2 WHERE id = $3
		`, *accountID, time.Now().UTC(), id)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCustomerNotFound
	}
	return nil
}

// ExtendCustomerSubscription 在订阅天数上累加，购买日期不变
func (s *Store) ExtendCustomerSubscription(id string, deltaDays int) error {
	tag, err := s.pool.Exec(s.ctx, `
		UPDATE customers
		SET subscription_days = subscription_days + $1, updated_at = $2
		WHERE id = $3
	`, deltaDays, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrCustomerNotFound
	}
	return nil
}

// isUniqueViolation 判断是否为唯一约束冲突（23505）
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "23505")
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close 关闭连接池
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
