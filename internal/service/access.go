package service

import (
	"errors"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ErrAccessDenied 统一的拒绝错误。
//
// "码不存在"与"码存在但客户已停用"必须折叠为同一个错误，
// 避免通过错误差异枚举有效访问码。
var ErrAccessDenied = errors.New("invalid or inactive access code")

// AccessService 封装访问码校验业务。
type AccessService struct {
	repo storage.CustomerRepository
}

// NewAccessService 创建访问码校验服务。
func NewAccessService(repo storage.CustomerRepository) *AccessService {
	return &AccessService{repo: repo}
}

// ValidateCode 校验访问码并返回受限的客户视图。
//
// 流程：形状校验（任何查询之前）→ 单次授权感知查询 → 派生状态。
// 形状不合法返回 domain.ErrInvalidAccessCode；查无有效客户返回
// ErrAccessDenied。
func (s *AccessService) ValidateCode(code string, now time.Time) (*domain.CustomerView, error) {
	if err := domain.ValidateAccessCode(code); err != nil {
		return nil, err
	}

	customer, account, err := s.repo.GetActiveCustomerByAccessCode(code)
	if err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}

	eval := domain.EvaluateCustomer(customer, now)

	view := &domain.CustomerView{
		ID:               customer.ID,
		Name:             customer.Name,
		PurchaseDate:     customer.PurchaseDate,
		SubscriptionDays: customer.SubscriptionDays,
		DaysRemaining:    eval.DaysRemaining,
		Status:           eval.Status,
		ProfileNumber:    customer.ProfileNumber,
		PurchasedFrom:    customer.PurchasedFrom,
	}

	if account != nil {
		view.Credential = &domain.CredentialView{
			Email:          account.Email,
			Password:       account.Password,
			MailboxAddress: account.MailboxAddress,
		}
	}

	return view, nil
}
