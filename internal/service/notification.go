package service

import (
	"sort"
	"time"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// NotificationService 只读聚合：从客户集合派生"需关注"事项。
//
// 不落库，每次调用重新计算。未绑定账号或未托管邮箱的客户
// 不会产生轮换提醒，但即将到期提醒照常生效。
type NotificationService struct {
	customers storage.CustomerRepository
	accounts  storage.AccountRepository
}

// NewNotificationService 创建通知聚合服务。
func NewNotificationService(customers storage.CustomerRepository, accounts storage.AccountRepository) *NotificationService {
	return &NotificationService{customers: customers, accounts: accounts}
}

// Aggregate 返回按紧迫度升序排列的需关注事项。
//
// 每个客户可同时产生"即将到期"和"轮换临近"两类事项。
func (s *NotificationService) Aggregate(now time.Time) ([]domain.AttentionItem, error) {
	customers, err := s.customers.ListActiveCustomers()
	if err != nil {
		return nil, err
	}

	var items []domain.AttentionItem
	for i := range customers {
		c := &customers[i]

		eval := domain.EvaluateCustomer(c, now)
		if eval.Status == domain.StatusExpiringSoon {
			items = append(items, domain.AttentionItem{
				Kind:         domain.AttentionExpiring,
				CustomerID:   c.ID,
				CustomerName: c.Name,
				DaysUntil:    eval.DaysRemaining,
				AccountID:    c.NetflixAccountID,
			})
		}

		rot := domain.EvaluateRotation(c, now)
		if rot.Due {
			items = append(items, domain.AttentionItem{
				Kind:         domain.AttentionRotation,
				CustomerID:   c.ID,
				CustomerName: c.Name,
				DaysUntil:    rot.DaysUntilRotation,
				AccountID:    c.NetflixAccountID,
			})
		}
	}

	// 紧迫度升序，同日先到期后轮换，再按客户名保证输出稳定
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DaysUntil != items[j].DaysUntil {
			return items[i].DaysUntil < items[j].DaysUntil
		}
		if items[i].Kind != items[j].Kind {
			return items[i].Kind == domain.AttentionExpiring
		}
		return items[i].CustomerName < items[j].CustomerName
	})
	return items, nil
}

// Statistics 返回后台首页统计数据。
func (s *NotificationService) Statistics(now time.Time) (*domain.DashboardStatistics, error) {
	customers, err := s.customers.ListCustomers()
	if err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListAccounts()
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStatistics{
		TotalCustomers: len(customers),
		TotalAccounts:  len(accounts),
		GeneratedAt:    now,
	}

	for i := range customers {
		c := &customers[i]
		eval := domain.EvaluateCustomer(c, now)
		switch eval.Status {
		case domain.StatusActive, domain.StatusExpiringSoon:
			stats.ActiveCustomers++
			if eval.Status == domain.StatusExpiringSoon {
				stats.ExpiringSoon++
			}
		case domain.StatusExpired:
			stats.Expired++
		}
		if c.IsActive && c.HasAssignment() {
			stats.AssignedCustomers++
		}
	}
	return stats, nil
}
