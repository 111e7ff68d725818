package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage/memory"
)

func TestReconcileService_Run(t *testing.T) {
	store := memory.NewStore()
	service := NewReconcileService(store, nil)

	accountID := "acc-1"
	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:       accountID,
		Email:    "shared@example.com",
		Password: "secret123",
	}))

	profile := 1
	seedCustomer(t, store, &domain.Customer{
		ID:               "expired-1",
		Name:             "Expired One",
		AccessCode:       "100001",
		PurchaseDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 30,
		IsActive:         true,
		ProfileNumber:    &profile,
		NetflixAccountID: &accountID,
	})
	seedCustomer(t, store, &domain.Customer{
		ID:               "alive-1",
		Name:             "Still Active",
		AccessCode:       "100002",
		PurchaseDate:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 90,
		IsActive:         true,
	})
	seedCustomer(t, store, &domain.Customer{
		ID:               "inactive-1",
		Name:             "Already Off",
		AccessCode:       "100003",
		PurchaseDate:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 30,
		IsActive:         false,
	})

	now := time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)

	t.Run("停用过期客户并释放资源槽位", func(t *testing.T) {
		result, err := service.Run(now)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Scanned) // 已停用客户不在扫描范围内
		assert.Equal(t, 1, result.Deactivated)
		require.Len(t, result.Customers, 1)
		assert.Equal(t, "expired-1", result.Customers[0].ID)

		released, err := store.GetCustomer("expired-1")
		require.NoError(t, err)
		assert.False(t, released.IsActive)
		assert.Nil(t, released.NetflixAccountID)
		assert.Nil(t, released.ProfileNumber)
	})

	t.Run("时间未流逝时重复运行不产生新的停用", func(t *testing.T) {
		result, err := service.Run(now)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Deactivated)
		assert.Empty(t, result.Customers)
	})

	t.Run("到期日当天视为已过期", func(t *testing.T) {
		seedCustomer(t, store, &domain.Customer{
			ID:               "boundary-1",
			Name:             "Ends Today",
			AccessCode:       "100004",
			PurchaseDate:     time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
			SubscriptionDays: 30,
			IsActive:         true,
		})

		result, err := service.Run(now)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Deactivated)
		assert.Equal(t, "boundary-1", result.Customers[0].ID)
	})
}
