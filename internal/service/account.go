package service

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ErrAccountInUse 账号仍被在用客户引用，不能删除
var ErrAccountInUse = errors.New("account still referenced by active customers")

// AccountService 封装共享账号的管理操作。
type AccountService struct {
	accounts  storage.AccountRepository
	customers storage.CustomerRepository
}

// NewAccountService 创建共享账号服务。
func NewAccountService(accounts storage.AccountRepository, customers storage.CustomerRepository) *AccountService {
	return &AccountService{accounts: accounts, customers: customers}
}

// CreateAccountInput 定义创建共享账号的输入。
type CreateAccountInput struct {
	Email          string
	Password       string
	MailboxAddress string
	Note           string
}

// Create 创建共享账号。
func (s *AccountService) Create(input CreateAccountInput) (*domain.CredentialAccount, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}

	mailbox := normalizeMailbox(input.MailboxAddress)
	if mailbox != "" {
		if err := domain.ValidateEmail(mailbox); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	account := &domain.CredentialAccount{
		ID:             uuid.NewString(),
		Email:          email,
		Password:       input.Password,
		MailboxAddress: mailbox,
		Note:           strings.TrimSpace(input.Note),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.accounts.SaveAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Get 根据 ID 获取共享账号。
func (s *AccountService) Get(id string) (*domain.CredentialAccount, error) {
	return s.accounts.GetAccount(id)
}

// List 返回全部共享账号。
func (s *AccountService) List() ([]domain.CredentialAccount, error) {
	return s.accounts.ListAccounts()
}

// UpdateAccountInput 定义更新共享账号的输入（nil 字段表示不修改）。
type UpdateAccountInput struct {
	Email          *string
	Password       *string
	MailboxAddress *string
	Note           *string
}

// Update 更新共享账号。
func (s *AccountService) Update(id string, input UpdateAccountInput) (*domain.CredentialAccount, error) {
	account, err := s.accounts.GetAccount(id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if err := domain.ValidateEmail(email); err != nil {
			return nil, err
		}
		account.Email = email
	}
	if input.Password != nil {
		account.Password = *input.Password
	}
	if input.MailboxAddress != nil {
		mailbox := normalizeMailbox(*input.MailboxAddress)
		if mailbox != "" {
			if err := domain.ValidateEmail(mailbox); err != nil {
				return nil, err
			}
		}
		account.MailboxAddress = mailbox
	}
	if input.Note != nil {
		account.Note = strings.TrimSpace(*input.Note)
	}

	account.UpdatedAt = time.Now().UTC()
	if err := s.accounts.UpdateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Delete 删除共享账号。
//
// 仍有在用客户引用该账号时拒绝删除，避免客户视图悬挂。
func (s *AccountService) Delete(id string) error {
	holders, err := s.customers.ListCustomersByAccountID(id)
	if err != nil {
		return err
	}
	for i := range holders {
		if holders[i].IsActive {
			return ErrAccountInUse
		}
	}
	return s.accounts.DeleteAccount(id)
}
