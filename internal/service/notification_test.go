package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage/memory"
)

func TestNotificationService_Aggregate(t *testing.T) {
	store := memory.NewStore()
	service := NewNotificationService(store, store)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// 剩余 3 天，即将到期；短于 30 天的订阅不参与轮换提醒
	seedCustomer(t, store, &domain.Customer{
		ID: "soon", Name: "Soon", AccessCode: "600001",
		PurchaseDate:     now.AddDate(0, 0, -11),
		SubscriptionDays: 14, IsActive: true,
	})
	// D+23 的 45 天订阅：剩余 22 天仍充足，但距轮换点 7 天
	seedCustomer(t, store, &domain.Customer{
		ID: "rotate", Name: "Rotate", AccessCode: "600002",
		PurchaseDate:     now.AddDate(0, 0, -23),
		SubscriptionDays: 45, IsActive: true,
	})
	// 剩余充足且不在轮换窗口
	seedCustomer(t, store, &domain.Customer{
		ID: "calm", Name: "Calm", AccessCode: "600003",
		PurchaseDate:     now.AddDate(0, 0, -5),
		SubscriptionDays: 90, IsActive: true,
	})
	// 已过期客户不产生提醒
	seedCustomer(t, store, &domain.Customer{
		ID: "gone", Name: "Gone", AccessCode: "600004",
		PurchaseDate:     now.AddDate(0, 0, -60),
		SubscriptionDays: 30, IsActive: true,
	})

	t.Run("按紧迫度升序返回需关注事项", func(t *testing.T) {
		items, err := service.Aggregate(now)

		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, domain.AttentionExpiring, items[0].Kind)
		assert.Equal(t, "soon", items[0].CustomerID)
		assert.Equal(t, 3, items[0].DaysUntil)

		assert.Equal(t, domain.AttentionRotation, items[1].Kind)
		assert.Equal(t, "rotate", items[1].CustomerID)
		assert.Equal(t, 7, items[1].DaysUntil)
	})

	t.Run("同日事项先到期后轮换再按客户名", func(t *testing.T) {
		tied := memory.NewStore()
		// 两个剩余 3 天的短订阅与一个距轮换点 3 天的长订阅
		seedCustomer(t, tied, &domain.Customer{
			ID: "beta", Name: "Beta", AccessCode: "700001",
			PurchaseDate:     now.AddDate(0, 0, -11),
			SubscriptionDays: 14, IsActive: true,
		})
		seedCustomer(t, tied, &domain.Customer{
			ID: "alpha", Name: "Alpha", AccessCode: "700002",
			PurchaseDate:     now.AddDate(0, 0, -11),
			SubscriptionDays: 14, IsActive: true,
		})
		seedCustomer(t, tied, &domain.Customer{
			ID: "turn", Name: "Turn", AccessCode: "700003",
			PurchaseDate:     now.AddDate(0, 0, -27),
			SubscriptionDays: 45, IsActive: true,
		})

		items, err := NewNotificationService(tied, tied).Aggregate(now)

		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, 3, items[0].DaysUntil)
		assert.Equal(t, "alpha", items[0].CustomerID)
		assert.Equal(t, "beta", items[1].CustomerID)
		assert.Equal(t, domain.AttentionRotation, items[2].Kind)
		assert.Equal(t, "turn", items[2].CustomerID)
	})

	t.Run("无在用客户时返回空列表", func(t *testing.T) {
		empty := memory.NewStore()
		items, err := NewNotificationService(empty, empty).Aggregate(now)

		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestNotificationService_Statistics(t *testing.T) {
	store := memory.NewStore()
	service := NewNotificationService(store, store)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	accountID := "acc-1"
	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:       accountID,
		Email:    "shared@example.com",
		Password: "secret123",
	}))

	profile := 1
	seedCustomer(t, store, &domain.Customer{
		ID: "a", Name: "A", AccessCode: "700001",
		PurchaseDate: now.AddDate(0, 0, -5), SubscriptionDays: 90,
		IsActive: true, ProfileNumber: &profile, NetflixAccountID: &accountID,
	})
	seedCustomer(t, store, &domain.Customer{
		ID: "b", Name: "B", AccessCode: "700002",
		PurchaseDate: now.AddDate(0, 0, -27), SubscriptionDays: 30,
		IsActive: true,
	})
	seedCustomer(t, store, &domain.Customer{
		ID: "c", Name: "C", AccessCode: "700003",
		PurchaseDate: now.AddDate(0, 0, -60), SubscriptionDays: 30,
		IsActive: true,
	})
	seedCustomer(t, store, &domain.Customer{
		ID: "d", Name: "D", AccessCode: "700004",
		PurchaseDate: now.AddDate(0, 0, -5), SubscriptionDays: 90,
		IsActive: false,
	})

	stats, err := service.Statistics(now)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCustomers)
	assert.Equal(t, 2, stats.ActiveCustomers)
	assert.Equal(t, 1, stats.ExpiringSoon)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, stats.TotalAccounts)
	assert.Equal(t, 1, stats.AssignedCustomers)
}
