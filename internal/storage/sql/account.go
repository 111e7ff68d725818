package sql

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Account Repository ==========

const accountColumns = `id, email, password, mailbox_address, note, created_at, updated_at`

// SaveAccount 创建共享账号
func (s *Store) SaveAccount(a *domain.CredentialAccount) error {
	query := s.rebind(`
		INSERT INTO credential_accounts (id, email, password, mailbox_address, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		a.ID,
		a.Email,
		a.Password,
		a.MailboxAddress,
		a.Note,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil && isDuplicateErr(err) {
		return storage.ErrEmailExists
	}
	return err
}

// scanAccount 从一行记录扫描共享账号
func scanAccount(row interface{ Scan(...any) error }) (*domain.CredentialAccount, error) {
	var a domain.CredentialAccount
	var mailbox, note sql.NullString

	err := row.Scan(&a.ID, &a.Email, &a.Password, &mailbox, &note, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.MailboxAddress = mailbox.String
	a.Note = note.String
	return &a, nil
}

// GetAccount 根据 ID 获取共享账号
func (s *Store) GetAccount(id string) (*domain.CredentialAccount, error) {
	query := s.rebind(`SELECT ` + accountColumns + ` FROM credential_accounts WHERE id = ?`)
	a, err := scanAccount(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAccountNotFound
	}
	return a, err
}

// GetAccountByMailbox 根据关联邮箱地址获取共享账号
func (s *Store) GetAccountByMailbox(address string) (*domain.CredentialAccount, error) {
	query := s.rebind(`SELECT ` + accountColumns + ` FROM credential_accounts WHERE LOWER(mailbox_address) = ?`)
	a, err := scanAccount(s.db.QueryRow(query, strings.ToLower(address)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrAccountNotFound
	}
	return a, err
}

// ListAccounts 返回全部共享账号
func (s *Store) ListAccounts() ([]domain.CredentialAccount, error) {
	rows, err := s.db.Query(`SELECT ` + accountColumns + ` FROM credential_accounts ORDER BY created_at`)
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
	query := s.rebind(`
		UPDATE credential_accounts
		SET email = ?, password = ?, mailbox_address = ?, note = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := s.db.Exec(query, a.Email, a.Password, a.MailboxAddress, a.Note, time.Now().UTC(), a.ID)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrAccountNotFound)
}

// DeleteAccount 删除共享账号及其验证产物
func (s *Store) DeleteAccount(id string) error {
	if _, err := s.db.Exec(s.rebind(`DELETE FROM verification_artifacts WHERE account_id = ?`), id); err != nil {
		return err
	}
	res, err := s.db.Exec(s.rebind(`DELETE FROM credential_accounts WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return requireRow(res, storage.ErrAccountNotFound)
}
