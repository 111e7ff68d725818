package sql

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Message Repository ==========

// SaveInboundMessage 保存一封托管邮箱邮件
func (s *Store) SaveInboundMessage(m *domain.InboundMessage) error {
	query := s.rebind(`
		INSERT INTO inbound_messages (id, mailbox_address, from_address, subject, text, html, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		m.ID,
		strings.ToLower(m.MailboxAddress),
		m.FromAddress,
		m.Subject,
		m.Text,
		m.HTML,
		m.ReceivedAt,
	)
	return err
}

// ListInboundMessagesSince 按时间倒序返回某邮箱自 since 起的邮件
func (s *Store) ListInboundMessagesSince(mailboxAddress string, since time.Time) ([]domain.InboundMessage, error) {
	query := s.rebind(`
		SELECT id, mailbox_address, from_address, subject, text, html, received_at
		FROM inbound_messages
		WHERE mailbox_address = ? AND received_at >= ?
		ORDER BY received_at DESC
	`)
	rows, err := s.db.Query(query, strings.ToLower(mailboxAddress), since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]domain.InboundMessage, 0)
	for rows.Next() {
		var m domain.InboundMessage
		if err := rows.Scan(&m.ID, &m.MailboxAddress, &m.FromAddress, &m.Subject, &m.Text, &m.HTML, &m.ReceivedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// DeleteInboundMessagesBefore 清理陈旧邮件，返回删除数量
func (s *Store) DeleteInboundMessagesBefore(cutoff time.Time) (int, error) {
	res, err := s.db.Exec(s.rebind(`DELETE FROM inbound_messages WHERE received_at < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// ========== Artifact Repository ==========

// SaveArtifact 覆盖式保存验证产物（account_id 为主键）
func (s *Store) SaveArtifact(a *domain.VerificationArtifact) error {
	var query string
	if s.driverName == "postgres" {
		query = s.rebind(`
			INSERT INTO verification_artifacts (account_id, kind, value, fetched_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (account_id)
			DO UPDATE SET kind = EXCLUDED.kind, value = EXCLUDED.value,
			              fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at
		`)
	} else {
		query = `
			INSERT INTO verification_artifacts (account_id, kind, value, fetched_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE kind = VALUES(kind), value = VALUES(value),
			                        fetched_at = VALUES(fetched_at), expires_at = VALUES(expires_at)
		`
	}
	_, err := s.db.Exec(query, a.AccountID, string(a.Kind), a.Value, a.FetchedAt, a.ExpiresAt)
	return err
}

// GetArtifact 返回账号当前有效的验证产物
func (s *Store) GetArtifact(accountID string, now time.Time) (*domain.VerificationArtifact, error) {
	query := s.rebind(`
		SELECT account_id, kind, value, fetched_at, expires_at
		FROM verification_artifacts
		WHERE account_id = ? AND expires_at > ?
	`)
	var a domain.VerificationArtifact
	var kind string
	err := s.db.QueryRow(query, accountID, now).Scan(&a.AccountID, &kind, &a.Value, &a.FetchedAt, &a.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Kind = domain.ArtifactKind(kind)
	return &a, nil
}
