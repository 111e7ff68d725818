package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage/memory"
)

func TestCustomerService_Create(t *testing.T) {
	store := memory.NewStore()
	service := NewCustomerService(store)

	purchase := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("指定访问码创建成功", func(t *testing.T) {
		customer, err := service.Create(CreateCustomerInput{
			Name:             "Alice",
			AccessCode:       "123456",
			PurchaseDate:     purchase,
			SubscriptionDays: 30,
			PurchasedFrom:    "reseller-a",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, customer.ID)
		assert.Equal(t, "123456", customer.AccessCode)
		assert.True(t, customer.IsActive)
		assert.Equal(t, "reseller-a", customer.PurchasedFrom)
	})

	t.Run("访问码留空时随机生成并保证唯一", func(t *testing.T) {
		first, err := service.Create(CreateCustomerInput{
			Name: "Bob", PurchaseDate: purchase, SubscriptionDays: 30,
		})
		require.NoError(t, err)
		second, err := service.Create(CreateCustomerInput{
			Name: "Carol", PurchaseDate: purchase, SubscriptionDays: 30,
		})
		require.NoError(t, err)

		assert.Regexp(t, `^[0-9]{6}$`, first.AccessCode)
		assert.Regexp(t, `^[0-9]{6}$`, second.AccessCode)
		assert.NotEqual(t, first.AccessCode, second.AccessCode)
	})

	t.Run("重复的访问码被拒绝", func(t *testing.T) {
		_, err := service.Create(CreateCustomerInput{
			Name: "Dup", AccessCode: "123456",
			PurchaseDate: purchase, SubscriptionDays: 30,
		})

		assert.ErrorIs(t, err, ErrAccessCodeTaken)
	})

	t.Run("非法输入被拒绝", func(t *testing.T) {
		cases := []struct {
			name  string
			input CreateCustomerInput
			want  error
		}{
			{"访问码格式错误", CreateCustomerInput{Name: "X", AccessCode: "12345", PurchaseDate: purchase, SubscriptionDays: 30}, domain.ErrInvalidAccessCode},
			{"订阅天数为零", CreateCustomerInput{Name: "X", PurchaseDate: purchase, SubscriptionDays: 0}, domain.ErrInvalidDuration},
			{"姓名为空", CreateCustomerInput{Name: "  ", PurchaseDate: purchase, SubscriptionDays: 30}, domain.ErrNameRequired},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := service.Create(tc.input)
				assert.ErrorIs(t, err, tc.want)
			})
		}
	})
}

func TestCustomerService_Update(t *testing.T) {
	store := memory.NewStore()
	service := NewCustomerService(store)

	purchase := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	created, err := service.Create(CreateCustomerInput{
		Name: "Alice", AccessCode: "123456",
		PurchaseDate: purchase, SubscriptionDays: 30,
	})
	require.NoError(t, err)
	other, err := service.Create(CreateCustomerInput{
		Name: "Bob", AccessCode: "654321",
		PurchaseDate: purchase, SubscriptionDays: 30,
	})
	require.NoError(t, err)

	t.Run("更新姓名与停用开关", func(t *testing.T) {
		name := "Alice Chen"
		active := false
		updated, err := service.Update(created.ID, UpdateCustomerInput{
			Name: &name, IsActive: &active,
		})

		require.NoError(t, err)
		assert.Equal(t, "Alice Chen", updated.Name)
		assert.False(t, updated.IsActive)
	})

	t.Run("换成已占用的访问码被拒绝", func(t *testing.T) {
		code := other.AccessCode
		_, err := service.Update(created.ID, UpdateCustomerInput{AccessCode: &code})

		assert.ErrorIs(t, err, ErrAccessCodeTaken)
	})

	t.Run("换成新的访问码后旧码失效", func(t *testing.T) {
		code := "999000"
		updated, err := service.Update(created.ID, UpdateCustomerInput{AccessCode: &code})

		require.NoError(t, err)
		assert.Equal(t, "999000", updated.AccessCode)

		exists, err := store.AccessCodeExists("123456")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("清空槽位与账号引用", func(t *testing.T) {
		slot := 2
		accountID := "acc-1"
		require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
			ID: accountID, Email: "shared@example.com", Password: "secret123",
		}))
		_, err := service.Update(other.ID, UpdateCustomerInput{
			ProfileNumber: &slot, NetflixAccountID: &accountID,
		})
		require.NoError(t, err)

		cleared, err := service.Update(other.ID, UpdateCustomerInput{
			ClearProfile: true, ClearAccount: true,
		})
		require.NoError(t, err)
		assert.Nil(t, cleared.ProfileNumber)
		assert.Nil(t, cleared.NetflixAccountID)
	})
}

func TestCustomerService_List(t *testing.T) {
	store := memory.NewStore()
	service := NewCustomerService(store)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := service.Create(CreateCustomerInput{
		Name: "Fresh", AccessCode: "111111",
		PurchaseDate: now.AddDate(0, 0, -5), SubscriptionDays: 90,
	})
	require.NoError(t, err)
	_, err = service.Create(CreateCustomerInput{
		Name: "Old", AccessCode: "222222",
		PurchaseDate: now.AddDate(0, 0, -60), SubscriptionDays: 30,
	})
	require.NoError(t, err)

	list, err := service.List(now)

	require.NoError(t, err)
	require.Len(t, list, 2)

	byCode := make(map[string]CustomerWithStatus)
	for _, item := range list {
		byCode[item.AccessCode] = item
	}
	assert.Equal(t, domain.StatusActive, byCode["111111"].Status)
	assert.Equal(t, 85, byCode["111111"].DaysRemaining)
	assert.Equal(t, domain.StatusExpired, byCode["222222"].Status)
	assert.Equal(t, -30, byCode["222222"].DaysRemaining)
}

func TestCustomerService_BulkSetActive(t *testing.T) {
	store := memory.NewStore()
	service := NewCustomerService(store)

	accountID := "acc-1"
	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID: accountID, Email: "shared@example.com", Password: "secret123",
	}))

	slot := 3
	a, err := service.Create(CreateCustomerInput{
		Name: "Alice", AccessCode: "111111",
		PurchaseDate: time.Now(), SubscriptionDays: 30,
		ProfileNumber: &slot, NetflixAccountID: &accountID,
	})
	require.NoError(t, err)
	b, err := service.Create(CreateCustomerInput{
		Name: "Bob", AccessCode: "222222",
		PurchaseDate: time.Now(), SubscriptionDays: 30,
	})
	require.NoError(t, err)

	t.Run("停用同时释放账号与槽位", func(t *testing.T) {
		result, err := service.BulkSetActive([]string{a.ID, b.ID}, false)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 0, result.Failed)

		got, err := service.Get(a.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
		assert.Nil(t, got.NetflixAccountID)
		assert.Nil(t, got.ProfileNumber)
	})

	t.Run("启用不找回槽位", func(t *testing.T) {
		result, err := service.BulkSetActive([]string{a.ID}, true)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)

		got, err := service.Get(a.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
		assert.Nil(t, got.NetflixAccountID)
	})

	t.Run("不存在的客户计入失败但不中止", func(t *testing.T) {
		result, err := service.BulkSetActive([]string{"ghost", b.ID}, true)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Items, 2)
		assert.False(t, result.Items[0].OK)
	})
}
