package service

import (
	"time"

	"go.uber.org/zap"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

// ReconcileService 订阅对账：批量停用已过期客户并释放共享资源。
type ReconcileService struct {
	repo storage.CustomerRepository
	log  *zap.Logger
}

// NewReconcileService 创建对账服务。
func NewReconcileService(repo storage.CustomerRepository, log *zap.Logger) *ReconcileService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconcileService{repo: repo, log: log}
}

// ReconcileResult 一次对账运行的摘要
type ReconcileResult struct {
	Scanned     int                  `json:"scanned"`
	Deactivated int                  `json:"deactivated"`
	Customers   []domain.CustomerRef `json:"customers,omitempty"`
}

// Run 扫描全部有效客户，停用其中已过期的并清空账号与槽位。
//
// 停用为单条批量更新：整批失败时不留下部分停用状态。
// 幂等：紧接着再跑一次（时间未流逝）停用数为 0。
func (s *ReconcileService) Run(now time.Time) (*ReconcileResult, error) {
	customers, err := s.repo.ListActiveCustomers()
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Scanned: len(customers)}

	var expiredIDs []string
	for i := range customers {
		eval := domain.Evaluate(customers[i].PurchaseDate, customers[i].SubscriptionDays, now)
		if eval.Status == domain.StatusExpired {
			expiredIDs = append(expiredIDs, customers[i].ID)
			result.Customers = append(result.Customers, domain.CustomerRef{
				ID:   customers[i].ID,
				Name: customers[i].Name,
			})
		}
	}

	if len(expiredIDs) == 0 {
		return result, nil
	}

	if err := s.repo.DeactivateCustomers(expiredIDs); err != nil {
		s.log.Error("reconciliation batch update failed",
			zap.Int("expired", len(expiredIDs)),
			zap.Error(err),
		)
		return nil, err
	}

	result.Deactivated = len(expiredIDs)
	s.log.Info("reconciliation completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("deactivated", result.Deactivated),
	)
	return result, nil
}
