package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Customer Repository ==========

const customerColumns = `id, name, access_code, purchase_date, subscription_days, is_active,
       profile_number, netflix_account_id, purchased_from, created_at, updated_at`

// SaveCustomer 创建新客户
func (s *Store) SaveCustomer(c *domain.Customer) error {
	query := s.rebind(`
		INSERT INTO customers (id, name, access_code, purchase_date, subscription_days, is_active,
		                       profile_number, netflix_account_id, purchased_from, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		c.ID,
		c.Name,
		c.AccessCode,
		c.PurchaseDate,
		c.SubscriptionDays,
		c.IsActive,
		c.ProfileNumber,
		c.NetflixAccountID,
		c.PurchasedFrom,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil && isDuplicateErr(err) {
		return storage.ErrAccessCodeExists
	}
	return err
}

// scanCustomer 从一行记录扫描客户实体
func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	var c domain.Customer
	var profile sql.NullInt64
	var accountID sql.NullString
	var purchasedFrom sql.NullString

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.AccessCode,
		&c.PurchaseDate,
		&c.SubscriptionDays,
		&c.IsActive,
		&profile,
		&accountID,
		&purchasedFrom,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if profile.Valid {
		v := int(profile.Int64)
		c.ProfileNumber = &v
	}
	if accountID.Valid {
		v := accountID.String
		c.NetflixAccountID = &v
	}
	if purchasedFrom.Valid {
		c.PurchasedFrom = purchasedFrom.String
	}
	return &c, nil
}

// GetCustomer 根据 ID 获取客户
func (s *Store) GetCustomer(id string) (*domain.Customer, error) {
	query := s.rebind(`SELECT ` + customerColumns + ` FROM customers WHERE id = ?`)
	c, err := scanCustomer(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrCustomerNotFound
	}
	return c, err
}

// GetActiveCustomerByAccessCode 单次授权感知查询：连表返回有效客户及其共享账号。
//
// is_active 过滤内嵌在查询里，杜绝"先查存在、再查详情"之间
// 客户被停用的窗口。
func (s *Store) GetActiveCustomerByAccessCode(code string) (*domain.Customer, *domain.CredentialAccount, error) {
	query := s.rebind(`
		SELECT c.id, c.name, c.access_code, c.purchase_date, c.subscription_days, c.is_active,
		       c.profile_number, c.netflix_account_id, c.purchased_from, c.created_at, c.updated_at,
		       a.id, a.email, a.password, a.mailbox_address, a.note, a.created_at, a.updated_at
		FROM customers c
		LEFT JOIN credential_accounts a ON a.id = c.netflix_account_id
		WHERE c.access_code = ? AND c.is_active = TRUE
	`)

	var c domain.Customer
	var profile sql.NullInt64
	var custAccountID, purchasedFrom sql.NullString
	var aID, aEmail, aPassword, aMailbox, aNote sql.NullString
	var aCreated, aUpdated sql.NullTime

	err := s.db.QueryRow(query, code).Scan(
		&c.ID, &c.Name, &c.AccessCode, &c.PurchaseDate, &c.SubscriptionDays, &c.IsActive,
		&profile, &custAccountID, &purchasedFrom, &c.CreatedAt, &c.UpdatedAt,
		&aID, &aEmail, &aPassword, &aMailbox, &aNote, &aCreated, &aUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, storage.ErrCustomerNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	if profile.Valid {
		v := int(profile.Int64)
		c.ProfileNumber = &v
	}
	if custAccountID.Valid {
		v := custAccountID.String
		c.NetflixAccountID = &v
	}
	if purchasedFrom.Valid {
		c.PurchasedFrom = purchasedFrom.String
	}

	var account *domain.CredentialAccount
	if aID.Valid {
		account = &domain.CredentialAccount{
			ID:             aID.String,
			Email:          aEmail.String,
			Password:       aPassword.String,
			MailboxAddress: aMailbox.String,
			Note:           aNote.String,
			CreatedAt:      aCreated.Time,
			UpdatedAt:      aUpdated.Time,
		}
	}
	return &c, account, nil
}

// AccessCodeExists 判断访问码是否已被占用
func (s *Store) AccessCodeExists(code string) (bool, error) {
	query := s.rebind(`SELECT COUNT(1) FROM customers WHERE access_code = ?`)
	var count int
	if err := s.db.QueryRow(query, code).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// queryCustomers 执行查询并扫描客户列表
func (s *Store) queryCustomers(query string, args ...any) ([]domain.Customer, error) {
	rows, err := s.db.Query(query, args...)
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
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at`
	return s.queryCustomers(query)
}

// ListActiveCustomers 返回全部有效客户
func (s *Store) ListActiveCustomers() ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE is_active = TRUE ORDER BY created_at`
	return s.queryCustomers(query)
}

// ListCustomersByAccountID 返回引用某共享账号的全部客户
func (s *Store) ListCustomersByAccountID(accountID string) ([]domain.Customer, error) {
	query := s.rebind(`SELECT ` + customerColumns + ` FROM customers WHERE netflix_account_id = ? ORDER BY created_at`)
	return s.queryCustomers(query, accountID)
}

// UpdateCustomer 更新客户信息
func (s *Store) UpdateCustomer(c *domain.Customer) error {
	query := s.rebind(`
		UPDATE customers
		SET name = ?, access_code = ?, purchase_date = ?, subscription_days = ?, is_active = ?,
		    profile_number = ?, netflix_account_id = ?, purchased_from = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := s.db.Exec(query,
		c.Name,
		c.AccessCode,
		c.PurchaseDate,
		c.SubscriptionDays,
		c.IsActive,
		c.ProfileNumber,
		c.NetflixAccountID,
		c.PurchasedFrom,
		time.Now().UTC(),
		c.ID,
	)
	if err != nil {
		if isDuplicateErr(err) {
			return storage.ErrAccessCodeExists
		}
		return err
	}
	return requireRow(res, storage.ErrCustomerNotFound)
}

// DeleteCustomer 删除客户
func (s *Store) DeleteCustomer(id string) error {
	query := s.rebind(`DELETE FROM customers WHERE id = ?`)
	res, err := s.db.Exec(query, id)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrCustomerNotFound)
}

// DeactivateCustomers 单条批量更新：停用并释放共享资源槽位
func (s *Store) DeactivateCustomers(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := s.rebind(fmt.Sprintf(`
		UPDATE customers
		SET is_active = FALSE, netflix_account_id = NULL, profile_number = NULL, updated_at = ?
		WHERE id IN (%s)
	`, placeholders))

	args := make([]any, 0, len(ids)+1)
	args = append(args, time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.Exec(query, args...)
	return err
}

// ReleaseAssignment 清空单个客户的账号与槽位引用
func (s *Store) ReleaseAssignment(id string) error {
	query := s.rebind(`
		UPDATE customers
		SET netflix_account_id = NULL, profile_number = NULL, updated_at = ?
		WHERE id = ?
	`)
	res, err := s.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrCustomerNotFound)
}

// SetCustomerAccount 更新客户引用的共享账号
func (s *Store) SetCustomerAccount(id string, accountID *string) error {
	var query string
	var args []any
	if accountID == nil {
		// 解除账号引用时同时释放槽位
		query = s.rebind(`
			UPDATE customers
			SET netflix_account_id = NULL, profile_number = NULL, updated_at = ?
			WHERE id = ?
		`)
		args = []any{time.Now().UTC(), id}
	} else {
		query = s.rebind(`UPDATE customers SET netflix_account_id = ?, updated_at = ? WHERE id = ?`)
		args = []any{*accountID, time.Now().UTC(), id}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrCustomerNotFound)
}

// ExtendCustomerSubscription 在订阅天数上累加，购买日期不变
func (s *Store) ExtendCustomerSubscription(id string, deltaDays int) error {
	query := s.rebind(`
		UPDATE customers
		SET subscription_days = subscription_days + ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := s.db.Exec(query, deltaDays, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrCustomerNotFound)
}

// requireRow 影响零行时返回给定的未找到错误
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // 驱动不支持时放过
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// isDuplicateErr 判断是否为唯一约束冲突（MySQL 1062 / PostgreSQL 23505）
func isDuplicateErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key")
}
