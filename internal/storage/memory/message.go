package memory

import (
	"sort"
	"strings"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ========== Message Repository ==========

// SaveInboundMessage 保存一封托管邮箱邮件。
func (s *Store) SaveInboundMessage(m *domain.InboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := strings.ToLower(m.MailboxAddress)
	clone := *m
	s.messages[addr] = append(s.messages[addr], &clone)
	return nil
}

// ListInboundMessagesSince 按时间倒序返回某邮箱自 since 起的邮件。
func (s *Store) ListInboundMessagesSince(mailboxAddress string, since time.Time) ([]domain.InboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]domain.InboundMessage, 0)
	for _, m := range s.messages[strings.ToLower(mailboxAddress)] {
		if !m.ReceivedAt.Before(since) {
			list = append(list, *m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ReceivedAt.After(list[j].ReceivedAt) })
	return list, nil
}

// DeleteInboundMessagesBefore 清理陈旧邮件，返回删除数量。
func (s *Store) DeleteInboundMessagesBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for addr, msgs := range s.messages {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.ReceivedAt.Before(cutoff) {
				deleted++
			} else {
				kept = append(kept, m)
			}
		}
		if len(kept) == 0 {
			delete(s.messages, addr)
		} else {
			s.messages[addr] = kept
		}
	}
	return deleted, nil
}

// ========== Artifact Repository ==========

// SaveArtifact 覆盖式保存验证产物，旧产物即刻失效。
func (s *Store) SaveArtifact(a *domain.VerificationArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *a
	s.artifacts[a.AccountID] = &clone
	return nil
}

// GetArtifact 返回账号当前有效的验证产物。
func (s *Store) GetArtifact(accountID string, now time.Time) (*domain.VerificationArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[accountID]
	if !ok || a.Expired(now) {
		return nil, storage.ErrArtifactNotFound
	}
	clone := *a
	return &clone, nil
}
