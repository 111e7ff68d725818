package service

import (
	"errors"
	"sort"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

var (
	// ErrProfileSlotTaken 槽位已被其他在用客户占据
	ErrProfileSlotTaken = errors.New("profile slot already taken")
	// ErrNoFreeSlot 账号下没有空闲槽位
	ErrNoFreeSlot = errors.New("no free profile slot on account")
)

// AssignmentService 共享账号与 profile 槽位的分配策略。
//
// 约束"同一 (账号, 槽位) 同时只能被一个在用客户占据"在分配
// 入口处校验，数据层不设唯一约束；并发管理操作之间为
// last-write-wins（明确的设计决定，见 DESIGN.md）。
type AssignmentService struct {
	customers storage.CustomerRepository
	accounts  storage.AccountRepository
}

// NewAssignmentService 创建分配策略服务。
func NewAssignmentService(customers storage.CustomerRepository, accounts storage.AccountRepository) *AssignmentService {
	return &AssignmentService{customers: customers, accounts: accounts}
}

// Assign 将指定账号与槽位分配给客户。
//
// profileNumber 为 nil 时自动选取最小空闲槽位。
func (s *AssignmentService) Assign(customerID, accountID string, profileNumber *int) (*domain.Customer, error) {
	customer, err := s.customers.GetCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetAccount(accountID); err != nil {
		return nil, err
	}

	occupied, err := s.occupiedSlots(accountID, customerID)
	if err != nil {
		return nil, err
	}

	var slot int
	if profileNumber != nil {
		if err := domain.ValidateProfileNumber(profileNumber); err != nil {
			return nil, err
		}
		if occupied[*profileNumber] {
			return nil, ErrProfileSlotTaken
		}
		slot = *profileNumber
	} else {
		slot = 0
		for n := 1; n <= domain.MaxProfileNumber; n++ {
			if !occupied[n] {
				slot = n
				break
			}
		}
		if slot == 0 {
			return nil, ErrNoFreeSlot
		}
	}

	customer.NetflixAccountID = &accountID
	customer.ProfileNumber = &slot
	customer.UpdatedAt = time.Now().UTC()

	if err := s.customers.UpdateCustomer(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// occupiedSlots 统计账号下被在用客户占据的槽位（排除指定客户自身）
func (s *AssignmentService) occupiedSlots(accountID, excludeCustomerID string) (map[int]bool, error) {
	holders, err := s.customers.ListCustomersByAccountID(accountID)
	if err != nil {
		return nil, err
	}

	occupied := make(map[int]bool)
	for i := range holders {
		if holders[i].ID == excludeCustomerID || !holders[i].IsActive {
			continue
		}
		if holders[i].ProfileNumber != nil {
			occupied[*holders[i].ProfileNumber] = true
		}
	}
	return occupied, nil
}

// Release 释放客户占用的账号与槽位。
func (s *AssignmentService) Release(customerID string) error {
	return s.customers.ReleaseAssignment(customerID)
}

// Reassign 批量变更一组客户绑定的共享账号（轮换用）。
//
// newAccountID 为 nil 表示解绑。逐条尽力执行，按条上报成败，
// 不回滚已成功的条目。
func (s *AssignmentService) Reassign(customerIDs []string, newAccountID *string) (*domain.BatchResult, error) {
	if newAccountID != nil {
		if _, err := s.accounts.GetAccount(*newAccountID); err != nil {
			return nil, err
		}
	}

	result := &domain.BatchResult{}
	for _, id := range customerIDs {
		result.Add(id, s.customers.SetCustomerAccount(id, newAccountID))
	}
	return result, nil
}

// Extend 批量延长一组客户的订阅天数。
//
// 天数累加到 subscription_days 上，购买日期锚点不变，
// 到期日随之顺延而不是重置时钟。
func (s *AssignmentService) Extend(customerIDs []string, deltaDays int) (*domain.BatchResult, error) {
	if deltaDays < 1 {
		return nil, domain.ErrInvalidDuration
	}

	result := &domain.BatchResult{}
	for _, id := range customerIDs {
		result.Add(id, s.customers.ExtendCustomerSubscription(id, deltaDays))
	}
	return result, nil
}

// Occupancy 返回某共享账号的槽位占用视图。
func (s *AssignmentService) Occupancy(accountID string) (*domain.AccountOccupancy, error) {
	account, err := s.accounts.GetAccount(accountID)
	if err != nil {
		return nil, err
	}

	holders, err := s.customers.ListCustomersByAccountID(accountID)
	if err != nil {
		return nil, err
	}

	occ := &domain.AccountOccupancy{Account: *account}
	taken := make(map[int]bool)
	for i := range holders {
		if !holders[i].IsActive || holders[i].ProfileNumber == nil {
			continue
		}
		occ.Occupants = append(occ.Occupants, domain.SlotOccupant{
			CustomerID:    holders[i].ID,
			CustomerName:  holders[i].Name,
			ProfileNumber: *holders[i].ProfileNumber,
		})
		taken[*holders[i].ProfileNumber] = true
	}

	sort.Slice(occ.Occupants, func(i, j int) bool {
		return occ.Occupants[i].ProfileNumber < occ.Occupants[j].ProfileNumber
	})

	for n := 1; n <= domain.MaxProfileNumber; n++ {
		if !taken[n] {
			occ.FreeSlots = append(occ.FreeSlots, n)
		}
	}
	return occ, nil
}

// RotationCandidates 返回临近 30 天轮换点的在用客户。
func (s *AssignmentService) RotationCandidates(now time.Time) ([]domain.AttentionItem, error) {
	customers, err := s.customers.ListActiveCustomers()
	if err != nil {
		return nil, err
	}

	var items []domain.AttentionItem
	for i := range customers {
		rot := domain.EvaluateRotation(&customers[i], now)
		if !rot.Due {
			continue
		}
		items = append(items, domain.AttentionItem{
			Kind:         domain.AttentionRotation,
			CustomerID:   customers[i].ID,
			CustomerName: customers[i].Name,
			DaysUntil:    rot.DaysUntilRotation,
			AccountID:    customers[i].NetflixAccountID,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DaysUntil < items[j].DaysUntil
	})
	return items, nil
}
