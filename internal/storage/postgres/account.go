package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Account Repository ==========

const accountColumns = `id, email, password, COALESCE(mailbox_address, ''), COALESCE(note, ''), created_at, updated_at`

// SaveAccount 创建共享账号
func (s *Store) SaveAccount(a *domain.CredentialAccount) error {
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO credential_accounts (id, email, password, mailbox_address, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Email, a.Password, a.MailboxAddress, a.Note, a.CreatedAt, a.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return storage.ErrEmailExists
	}
	return err
}

func scanAccount(row pgx.Row) (*domain.CredentialAccount, error) {
	var a domain.CredentialAccount
	err := row.Scan(&a.ID, &a.Email, &a.Password, &a.MailboxAddress, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccount 根据 ID 获取共享账号
func (s *Store) GetAccount(id string) (*domain.CredentialAccount, error) {
	row := s.pool.QueryRow(s.ctx, `SELECT `+accountColumns+` FROM credential_accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrAccountNotFound
	}
	return a, err
}

// GetAccountByMailbox 根据关联邮箱地址获取共享账号
func (s *Store) GetAccountByMailbox(address string) (*domain.CredentialAccount, error) {
	row := s.pool.QueryRow(s.ctx,
		`SELECT `+accountColumns+` FROM credential_accounts WHERE LOWER(mailbox_address) = $1`,
		strings.ToLower(address))
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrAccountNotFound
	}
	return a, err
}

// ListAccounts 返回全部共享账号
func (s *Store) ListAccounts() ([]domain.CredentialAccount, error) {
	rows, err := s.pool.Query(s.ctx, `SELECT `+accountColumns+` FROM credential_accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]domain.CredentialAccount, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// UpdateAccount 更新共享账号
func (s *Store) UpdateAccount(a *domain.CredentialAccount) error {
	tag, err := s.pool.Exec(s.ctx, `
		UPDATE credential_accounts
		SET email = $1, password = $2, mailbox_address = $3, note = $4, updated_at = $5
		WHERE id = $6
	`, a.Email, a.Password, a.MailboxAddress, a.Note, time.Now().UTC(), a.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}

// DeleteAccount 删除共享账号及其验证产物
func (s *Store) DeleteAccount(id string) error {
	if _, err := s.pool.Exec(s.ctx, `DELETE FROM verification_artifacts WHERE account_id = $1`, id); err != nil {
		return err
	}
	tag, err := s.pool.Exec(s.ctx, `DELETE FROM credential_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}
	return nil
}
