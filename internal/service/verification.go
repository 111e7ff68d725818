package service

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

var (
	// ErrNoMailbox 账号未托管邮箱，无法抓取验证邮件
	ErrNoMailbox = errors.New("account has no linked mailbox")
)

// 提取验证产物用的匹配模式。
//
// 先找验证链接（更精确），找不到再退回 4~8 位数字验证码；
// 数字匹配排除常见的日期/金额上下文干扰，要求独立成词。
var (
	verifyLinkRegex = regexp.MustCompile(`https?://[^\s"'<>]+(?:verify|confirm|update-primary-location|travel)[^\s"'<>]*`)
	verifyCodeRegex = regexp.MustCompile(`\b([0-9]{4,8})\b`)
)

// 只检索最近一段时间内的邮件，陈旧验证邮件视为无效
const messageSearchWindow = 10 * time.Minute

// VerificationService 从托管邮箱提取服务商验证产物。
type VerificationService struct {
	customers storage.CustomerRepository
	accounts  storage.AccountRepository
	messages  storage.MessageRepository
	artifacts storage.ArtifactRepository
	log       *zap.Logger
}

// NewVerificationService 创建验证产物服务。
func NewVerificationService(store storage.Store, log *zap.Logger) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerificationService{
		customers: store,
		accounts:  store,
		messages:  store,
		artifacts: store,
		log:       log,
	}
}

// FetchResult 一次抓取的结果。
//
// Found=false 表示"验证邮件尚未到达"，是预期内的正常状态，
// 不作为错误上抛。
type FetchResult struct {
	Found    bool                         `json:"found"`
	Artifact *domain.VerificationArtifact `json:"artifact,omitempty"`
}

// FetchByAccessCode 凭访问码抓取客户所绑账号的验证产物。
//
// 访问码路径复用授权感知查询：码无效、客户停用、未绑定账号
// 统一折叠为 ErrAccessDenied。
func (s *VerificationService) FetchByAccessCode(code string, now time.Time) (*FetchResult, error) {
	if err := domain.ValidateAccessCode(code); err != nil {
		return nil, err
	}

	_, account, err := s.customers.GetActiveCustomerByAccessCode(code)
	if err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if account == nil {
		return nil, ErrAccessDenied
	}

	return s.fetch(account, now)
}

// FetchByAccountID 凭账号内部引用抓取验证产物（管理端）。
func (s *VerificationService) FetchByAccountID(accountID string, now time.Time) (*FetchResult, error) {
	account, err := s.accounts.GetAccount(accountID)
	if err != nil {
		return nil, err
	}
	return s.fetch(account, now)
}

// fetch 搜索托管邮箱并提取最新验证产物。
//
// 已有未过期产物时直接复用；否则扫描时间窗口内的邮件，
// 提取成功则覆盖式落库。
func (s *VerificationService) fetch(account *domain.CredentialAccount, now time.Time) (*FetchResult, error) {
	if account.MailboxAddress == "" {
		return nil, ErrNoMailbox
	}

	if artifact, err := s.artifacts.GetArtifact(account.ID, now); err == nil {
		return &FetchResult{Found: true, Artifact: artifact}, nil
	}

	messages, err := s.messages.ListInboundMessagesSince(normalizeMailbox(account.MailboxAddress), now.Add(-messageSearchWindow))
	if err != nil {
		return nil, err
	}

	for i := range messages {
		kind, value := extractArtifact(&messages[i])
		if value == "" {
			continue
		}

		artifact := &domain.VerificationArtifact{
			AccountID: account.ID,
			Kind:      kind,
			Value:     value,
			FetchedAt: now,
			ExpiresAt: now.Add(domain.DefaultArtifactTTL),
		}
		if err := s.artifacts.SaveArtifact(artifact); err != nil {
			return nil, err
		}

		s.log.Info("verification artifact extracted",
			zap.String("account_id", account.ID),
			zap.String("kind", string(kind)),
		)
		return &FetchResult{Found: true, Artifact: artifact}, nil
	}

	return &FetchResult{Found: false}, nil
}

// extractArtifact 从单封邮件中提取验证链接或数字验证码
func extractArtifact(m *domain.InboundMessage) (domain.ArtifactKind, string) {
	body := m.Text
	if body == "" {
		body = m.HTML
	}

	if link := verifyLinkRegex.FindString(body); link != "" {
		return domain.ArtifactLink, link
	}
	if link := verifyLinkRegex.FindString(m.HTML); link != "" {
		return domain.ArtifactLink, link
	}

	// 数字验证码优先从主题行取（服务商惯例），再退回正文
	if code := verifyCodeRegex.FindString(m.Subject); code != "" {
		return domain.ArtifactCode, code
	}
	if code := verifyCodeRegex.FindString(body); code != "" {
		return domain.ArtifactCode, code
	}
	return "", ""
}

// PruneMessages 清理时间窗口之外的陈旧邮件。
func (s *VerificationService) PruneMessages(now time.Time, retention time.Duration) (int, error) {
	count, err := s.messages.DeleteInboundMessagesBefore(now.Add(-retention))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("pruned stale inbound messages", zap.Int("count", count))
	}
	return count, nil
}

// 附带工具：规范化邮箱地址比较
func normalizeMailbox(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
