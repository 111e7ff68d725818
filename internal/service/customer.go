package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

var (
	// ErrAccessCodeTaken 访问码已被其他客户占用
	ErrAccessCodeTaken = errors.New("access code already taken")
	// ErrCodeSpaceExhausted 随机生成访问码连续碰撞，视为码空间紧张
	ErrCodeSpaceExhausted = errors.New("failed to generate unique access code")
)

// 随机生成访问码时的最大重试次数
const maxCodeAttempts = 10

// CustomerService 封装客户相关业务操作。
type CustomerService struct {
	repo storage.CustomerRepository
}

// NewCustomerService 创建客户业务服务。
func NewCustomerService(repo storage.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// CreateCustomerInput 定义创建客户所需的输入。
type CreateCustomerInput struct {
	Name             string
	AccessCode       string // 可选：为空则随机生成
	PurchaseDate     time.Time
	SubscriptionDays int
	ProfileNumber    *int
	NetflixAccountID *string
	PurchasedFrom    string
}

// Create 创建新客户。
//
// 访问码可由管理员指定（需满足 6 位数字且未被占用），
// 留空时随机生成并保证全局唯一。
func (s *CustomerService) Create(input CreateCustomerInput) (*domain.Customer, error) {
	code := strings.TrimSpace(input.AccessCode)
	if code != "" {
		if err := domain.ValidateAccessCode(code); err != nil {
			return nil, err
		}
		exists, err := s.repo.AccessCodeExists(code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAccessCodeTaken
		}
	} else {
		generated, err := s.generateAccessCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	now := time.Now().UTC()
	customer := &domain.Customer{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(input.Name),
		AccessCode:       code,
		PurchaseDate:     input.PurchaseDate,
		SubscriptionDays: input.SubscriptionDays,
		IsActive:         true,
		ProfileNumber:    input.ProfileNumber,
		NetflixAccountID: input.NetflixAccountID,
		PurchasedFrom:    strings.TrimSpace(input.PurchasedFrom),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := domain.ValidateCustomer(customer); err != nil {
		return nil, err
	}

	if err := s.repo.SaveCustomer(customer); err != nil {
		if errors.Is(err, storage.ErrAccessCodeExists) {
			return nil, ErrAccessCodeTaken
		}
		return nil, err
	}
	return customer, nil
}

// accessCodeSpace 访问码取值空间（000000-999999）
var accessCodeSpace = big.NewInt(1000000)

// generateAccessCode 随机生成一个未被占用的 6 位数字访问码。
// 访问码是匿名凭证，必须用密码学随机源生成，不可被预测。
func (s *CustomerService) generateAccessCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		n, err := rand.Int(rand.Reader, accessCodeSpace)
		if err != nil {
			return "", fmt.Errorf("failed to draw random access code: %w", err)
		}

		code := fmt.Sprintf("%06d", n)
		exists, err := s.repo.AccessCodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Get 根据 ID 获取客户。
func (s *CustomerService) Get(id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(id)
}

// CustomerWithStatus 列表视图：客户实体加上派生的过期状态
type CustomerWithStatus struct {
	domain.Customer
	DaysRemaining int           `json:"daysRemaining"`
	Status        domain.Status `json:"status"`
	EndDate       time.Time     `json:"endDate"`
}

// List 返回全部客户及各自的派生状态。
//
// 状态不落库，每次列表请求重新计算。
func (s *CustomerService) List(now time.Time) ([]CustomerWithStatus, error) {
	customers, err := s.repo.ListCustomers()
	if err != nil {
		return nil, err
	}

	result := make([]CustomerWithStatus, 0, len(customers))
	for i := range customers {
		eval := domain.EvaluateCustomer(&customers[i], now)
		result = append(result, CustomerWithStatus{
			Customer:      customers[i],
			DaysRemaining: eval.DaysRemaining,
			Status:        eval.Status,
			EndDate:       eval.EndDate,
		})
	}
	return result, nil
}

// UpdateCustomerInput 定义更新客户的输入（nil 字段表示不修改）。
type UpdateCustomerInput struct {
	Name             *string
	AccessCode       *string
	PurchaseDate     *time.Time
	SubscriptionDays *int
	IsActive         *bool
	ProfileNumber    *int
	ClearProfile     bool
	NetflixAccountID *string
	ClearAccount     bool
	PurchasedFrom    *string
}

// Update 更新客户信息。
func (s *CustomerService) Update(id string, input UpdateCustomerInput) (*domain.Customer, error) {
	customer, err := s.repo.GetCustomer(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		customer.Name = strings.TrimSpace(*input.Name)
	}
	if input.AccessCode != nil && *input.AccessCode != customer.AccessCode {
		code := strings.TrimSpace(*input.AccessCode)
		if err := domain.ValidateAccessCode(code); err != nil {
			return nil, err
		}
		exists, err := s.repo.AccessCodeExists(code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrAccessCodeTaken
		}
		customer.AccessCode = code
	}
	if input.PurchaseDate != nil {
		customer.PurchaseDate = *input.PurchaseDate
	}
	if input.SubscriptionDays != nil {
		customer.SubscriptionDays = *input.SubscriptionDays
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}
	if input.ClearProfile {
		customer.ProfileNumber = nil
	} else if input.ProfileNumber != nil {
		customer.ProfileNumber = input.ProfileNumber
	}
	if input.ClearAccount {
		customer.NetflixAccountID = nil
	} else if input.NetflixAccountID != nil {
		customer.NetflixAccountID = input.NetflixAccountID
	}
	if input.PurchasedFrom != nil {
		customer.PurchasedFrom = strings.TrimSpace(*input.PurchasedFrom)
	}

	if err := domain.ValidateCustomer(customer); err != nil {
		return nil, err
	}

	customer.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateCustomer(customer); err != nil {
		if errors.Is(err, storage.ErrAccessCodeExists) {
			return nil, ErrAccessCodeTaken
		}
		return nil, err
	}
	return customer, nil
}

// Delete 删除客户。
func (s *CustomerService) Delete(id string) error {
	return s.repo.DeleteCustomer(id)
}

// BulkSetActive 批量启用或停用客户，逐条尽力执行。
// 停用同时释放账号与槽位，与对账停用保持同一后置状态。
func (s *CustomerService) BulkSetActive(customerIDs []string, active bool) (*domain.BatchResult, error) {
	result := &domain.BatchResult{}
	for _, id := range customerIDs {
		result.Add(id, s.setActive(id, active))
	}
	return result, nil
}

func (s *CustomerService) setActive(id string, active bool) error {
	customer, err := s.repo.GetCustomer(id)
	if err != nil {
		return err
	}

	customer.IsActive = active
	if !active {
		customer.NetflixAccountID = nil
		customer.ProfileNumber = nil
	}
	customer.UpdatedAt = time.Now().UTC()

	return s.repo.UpdateCustomer(customer)
}
