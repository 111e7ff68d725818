package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage/memory"
)

func seedCustomer(t *testing.T, store *memory.Store, c *domain.Customer) {
	t.Helper()
	if c.ID == "" {
		c.ID = "cust-" + c.AccessCode
	}
	require.NoError(t, store.SaveCustomer(c))
}

func TestAccessService_ValidateCode(t *testing.T) {
	store := memory.NewStore()
	service := NewAccessService(store)

	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	accountID := "acc-1"
	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:             accountID,
		Email:          "shared@example.com",
		Password:       "secret123",
		MailboxAddress: "box1@verify.example.com",
	}))

	profile := 2
	seedCustomer(t, store, &domain.Customer{
		Name:             "Alice",
		AccessCode:       "123456",
		PurchaseDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 30,
		IsActive:         true,
		ProfileNumber:    &profile,
		NetflixAccountID: &accountID,
	})
	seedCustomer(t, store, &domain.Customer{
		Name:             "Bob",
		AccessCode:       "654321",
		PurchaseDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 30,
		IsActive:         false,
	})
	seedCustomer(t, store, &domain.Customer{
		Name:             "Carol",
		AccessCode:       "111222",
		PurchaseDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SubscriptionDays: 30,
		IsActive:         true,
	})

	t.Run("有效访问码返回客户视图与凭证", func(t *testing.T) {
		view, err := service.ValidateCode("123456", now)

		require.NoError(t, err)
		assert.Equal(t, "Alice", view.Name)
		assert.Equal(t, domain.StatusActive, view.Status)
		assert.Equal(t, 21, view.DaysRemaining)
		require.NotNil(t, view.Credential)
		assert.Equal(t, "shared@example.com", view.Credential.Email)
		assert.Equal(t, "secret123", view.Credential.Password)
		assert.Equal(t, "box1@verify.example.com", view.Credential.MailboxAddress)
	})

	t.Run("未分配账号的客户凭证为空", func(t *testing.T) {
		view, err := service.ValidateCode("111222", now)

		require.NoError(t, err)
		assert.Nil(t, view.Credential)
	})

	t.Run("格式错误的访问码在任何查询之前被拒绝", func(t *testing.T) {
		for _, code := range []string{"12345", "1234567", "12a456", "", "１２３４５６"} {
			view, err := service.ValidateCode(code, now)
			assert.Nil(t, view)
			assert.ErrorIs(t, err, domain.ErrInvalidAccessCode)
		}
	})

	t.Run("停用客户与不存在的码返回相同错误", func(t *testing.T) {
		_, errInactive := service.ValidateCode("654321", now)
		_, errMissing := service.ValidateCode("999999", now)

		assert.ErrorIs(t, errInactive, ErrAccessDenied)
		assert.ErrorIs(t, errMissing, ErrAccessDenied)
		assert.Equal(t, errInactive, errMissing)
	})

	t.Run("过期客户仍可查询但状态为已过期", func(t *testing.T) {
		later := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
		view, err := service.ValidateCode("123456", later)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, view.Status)
		assert.Negative(t, view.DaysRemaining)
	})
}
