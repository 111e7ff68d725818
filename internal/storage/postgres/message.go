package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Message Repository ==========

// SaveInboundMessage 保存一封托管邮箱邮件
func (s *Store) SaveInboundMessage(m *domain.InboundMessage) error {
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO inbound_messages (id, mailbox_address, from_address, subject, text, html, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, strings.ToLower(m.MailboxAddress), m.FromAddress, m.Subject, m.Text, m.HTML, m.ReceivedAt)
	return err
}

// ListInboundMessagesSince 按时间倒序返回某邮箱自 since 起的邮件
func (s *Store) ListInboundMessagesSince(mailboxAddress string, since time.Time) ([]domain.InboundMessage, error) {
	rows, err := s.pool.Query(s.ctx, `
		SELECT id, mailbox_address, from_address, subject, text, html, received_at
		FROM inbound_messages
		WHERE mailbox_address = $1 AND received_at >= $2
		ORDER BY received_at DESC
	`, strings.ToLower(mailboxAddress), since)
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
	tag, err := s.pool.Exec(s.ctx, `DELETE FROM inbound_messages WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ========== Artifact Repository ==========

// SaveArtifact 覆盖式保存验证产物
func (s *Store) SaveArtifact(a *domain.VerificationArtifact) error {
	_, err := s.pool.Exec(s.ctx, `
		INSERT INTO verification_artifacts (account_id, kind, value, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id)
		DO UPDATE SET kind = EXCLUDED.kind, value = EXCLUDED.value,
		              fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at
	`, a.AccountID, string(a.Kind), a.Value, a.FetchedAt, a.ExpiresAt)
	return err
}

// GetArtifact 返回账号当前有效的验证产物
func (s *Store) GetArtifact(accountID string, now time.Time) (*domain.VerificationArtifact, error) {
	var a domain.VerificationArtifact
	var kind string
	err := s.pool.QueryRow(s.ctx, `
		SELECT account_id, kind, value, fetched_at, expires_at
		FROM verification_artifacts
		WHERE account_id = $1 AND expires_at > $2
	`, accountID, now).Scan(&a.AccountID, &kind, &a.Value, &a.FetchedAt, &a.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrArtifactNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Kind = domain.ArtifactKind(kind)
	return &a, nil
}
