package smtp

import (
	"fmt"
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/storage"
	"subshare/backend/internal/websocket"
)

// 单封邮件的最大尺寸。验证邮件都很小，1MB 足够。
const maxMessageSize = 1 << 20

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个只收不发的 SMTP 入口：流媒体平台发到托管邮箱的
// 验证邮件经此落库，供验证码抓取使用。收件人必须是某个共享
// 账号登记过的托管邮箱地址，其余地址一律 550 拒绝，服务器
// 不会成为开放中继。
type Backend struct {
	accounts storage.AccountRepository
	messages storage.MessageRepository
	hub      *websocket.Hub
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewBackend 创建 SMTP Backend。
func NewBackend(accounts storage.AccountRepository, messages storage.MessageRepository, hub *websocket.Hub, metrics *monitoring.Metrics, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		accounts: accounts,
		messages: messages,
		hub:      hub,
		metrics:  metrics,
		log:      log,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = normalizeAddress(from)
	return nil
}

// Rcpt 处理 RCPT 命令。
//
// 防中继的核心：只接受登记为托管邮箱的收件地址。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	if !strings.Contains(addr, "@") {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	if _, err := s.backend.accounts.GetAccountByMailbox(addr); err != nil {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "recipient mailbox not found",
		}
	}

	s.recipients = append(s.recipients, addr)
	return nil
}

// Data 处理邮件内容。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(io.LimitReader(r, maxMessageSize))
	if err != nil {
		return err
	}

	parsed, err := ParseEmail(rawBytes)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	now := time.Now()
	for _, addr := range s.recipients {
		msg := &domain.InboundMessage{
			ID:             uuid.NewString(),
			MailboxAddress: addr,
			FromAddress:    s.fromAddress,
			Subject:        parsed.Subject,
			Text:           parsed.Text,
			HTML:           parsed.HTML,
			ReceivedAt:     now,
		}

		if err := s.backend.messages.SaveInboundMessage(msg); err != nil {
			s.backend.log.Error("failed to save inbound message",
				zap.String("mailbox", addr),
				zap.Error(err))
			return err
		}

		if s.backend.metrics != nil {
			s.backend.metrics.RecordInboundMessage()
		}
		if s.backend.hub != nil {
			s.backend.hub.NotifyInboundMessage(addr, msg)
		}

		s.backend.log.Info("inbound message stored",
			zap.String("mailbox", addr),
			zap.String("from", s.fromAddress),
			zap.String("subject", parsed.Subject))
	}

	return nil
}

// AuthPlain 处理 PLAIN 认证（收信入口允许匿名）。
func (s *session) AuthPlain(username, password string) error {
	return nil
}

// Reset 重置会话状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
