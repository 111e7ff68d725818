package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage/memory"
)

func TestAssignmentService_Assign(t *testing.T) {
	store := memory.NewStore()
	service := NewAssignmentService(store, store)

	accountID := "acc-1"
	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:       accountID,
		Email:    "shared@example.com",
		Password: "secret123",
	}))

	purchase := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedCustomer(t, store, &domain.Customer{
		ID: "c1", Name: "One", AccessCode: "200001",
		PurchaseDate: purchase, SubscriptionDays: 30, IsActive: true,
	})
	seedCustomer(t, store, &domain.Customer{
		ID: "c2", Name: "Two", AccessCode: "200002",
		PurchaseDate: purchase, SubscriptionDays: 30, IsActive: true,
	})

	t.Run("指定槽位分配成功", func(t *testing.T) {
		slot := 3
		customer, err := service.Assign("c1", accountID, &slot)

		require.NoError(t, err)
		require.NotNil(t, customer.ProfileNumber)
		assert.Equal(t, 3, *customer.ProfileNumber)
		assert.Equal(t, accountID, *customer.NetflixAccountID)
	})

	t.Run("占用中的槽位拒绝二次分配", func(t *testing.T) {
		slot := 3
		_, err := service.Assign("c2", accountID, &slot)

		assert.ErrorIs(t, err, ErrProfileSlotTaken)
	})

	t.Run("未指定槽位时自动选取最小空闲槽位", func(t *testing.T) {
		customer, err := service.Assign("c2", accountID, nil)

		require.NoError(t, err)
		require.NotNil(t, customer.ProfileNumber)
		assert.Equal(t, 1, *customer.ProfileNumber)
	})

	t.Run("槽位编号越界被拒绝", func(t *testing.T) {
		slot := 6
		_, err := service.Assign("c2", accountID, &slot)

		assert.ErrorIs(t, err, domain.ErrInvalidProfileNumber)
	})

	t.Run("账号槽位占满后无法继续分配", func(t *testing.T) {
		for i := 3; i <= 5; i++ {
			id := string(rune('a'+i)) + "-extra"
			seedCustomer(t, store, &domain.Customer{
				ID: id, Name: "Extra", AccessCode: "20010" + string(rune('0'+i)),
				PurchaseDate: purchase, SubscriptionDays: 30, IsActive: true,
			})
			_, err := service.Assign(id, accountID, nil)
			require.NoError(t, err)
		}

		seedCustomer(t, store, &domain.Customer{
			ID: "overflow", Name: "Overflow", AccessCode: "200108",
			PurchaseDate: purchase, SubscriptionDays: 30, IsActive: true,
		})
		_, err := service.Assign("overflow", accountID, nil)

		assert.ErrorIs(t, err, ErrNoFreeSlot)
	})
}

func TestAssignmentService_ReleaseAndOccupancy(t *testing.T) {
	store := memory.NewStore()
	service := NewAssignmentService(store, store)

	accountID := "acc-1"
	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:       accountID,
		Email:    "shared@example.com",
		Password: "secret123",
	}))

	purchase := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2"} {
		slot := i + 1
		seedCustomer(t, store, &domain.Customer{
			ID: id, Name: "Holder " + id, AccessCode: "30000" + string(rune('1'+i)),
			PurchaseDate: purchase, SubscriptionDays: 30, IsActive: true,
			ProfileNumber: &slot, NetflixAccountID: &accountID,
		})
	}

	t.Run("占用视图列出占用者与空闲槽位", func(t *testing.T) {
		occ, err := service.Occupancy(accountID)

		require.NoError(t, err)
		require.Len(t, occ.Occupants, 2)
		assert.Equal(t, 1, occ.Occupants[0].ProfileNumber)
		assert.Equal(t, 2, occ.Occupants[1].ProfileNumber)
		assert.Equal(t, []int{3, 4, 5}, occ.FreeSlots)
	})

	t.Run("释放后槽位回到空闲列表", func(t *testing.T) {
		require.NoError(t, service.Release("c1"))

		released, err := store.GetCustomer("c1")
		require.NoError(t, err)
		assert.Nil(t, released.NetflixAccountID)
		assert.Nil(t, released.ProfileNumber)

		occ, err := service.Occupancy(accountID)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 4, 5}, occ.FreeSlots)
	})
}

func TestAssignmentService_BatchOperations(t *testing.T) {
	store := memory.NewStore()
	service := NewAssignmentService(store, store)

	require.NoError(t, store.SaveAccount(&domain.CredentialAccount{
		ID:       "acc-new",
		Email:    "new@example.com",
		Password: "secret123",
	}))

	purchase := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c3"} {
		seedCustomer(t, store, &domain.Customer{
			ID: id, Name: "Batch " + id, AccessCode: "40000" + string(rune('1'+i)),
			PurchaseDate: purchase, SubscriptionDays: 30, IsActive: true,
		})
	}

	t.Run("批量延期逐条尽力执行并上报部分失败", func(t *testing.T) {
		result, err := service.Extend([]string{"c1", "c2", "c3"}, 30)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Items, 3)
		assert.True(t, result.Items[0].OK)
		assert.False(t, result.Items[1].OK) // c2 不存在
		assert.True(t, result.Items[2].OK)

		// 成功的条目不因后续失败而回滚
		extended, err := store.GetCustomer("c1")
		require.NoError(t, err)
		assert.Equal(t, 60, extended.SubscriptionDays)
		assert.Equal(t, purchase, extended.PurchaseDate) // 购买日期锚点不变
	})

	t.Run("非正数的延期天数被拒绝", func(t *testing.T) {
		_, err := service.Extend([]string{"c1"}, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidDuration)
	})

	t.Run("批量换号更新账号引用", func(t *testing.T) {
		newID := "acc-new"
		result, err := service.Reassign([]string{"c1", "c3"}, &newID)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Succeeded)

		moved, err := store.GetCustomer("c1")
		require.NoError(t, err)
		require.NotNil(t, moved.NetflixAccountID)
		assert.Equal(t, "acc-new", *moved.NetflixAccountID)
	})

	t.Run("换到不存在的账号直接失败", func(t *testing.T) {
		missing := "acc-missing"
		_, err := service.Reassign([]string{"c1"}, &missing)

		assert.Error(t, err)
	})
}

func TestAssignmentService_RotationCandidates(t *testing.T) {
	store := memory.NewStore()
	service := NewAssignmentService(store, store)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// D+23：23 mod 30 = 23，距轮换点 7 天，命中窗口
	seedCustomer(t, store, &domain.Customer{
		ID: "due", Name: "Due", AccessCode: "500001",
		PurchaseDate:     now.AddDate(0, 0, -23),
		SubscriptionDays: 45, IsActive: true,
	})
	// D+10：距轮换点 20 天，不在窗口内
	seedCustomer(t, store, &domain.Customer{
		ID: "far", Name: "Far", AccessCode: "500002",
		PurchaseDate:     now.AddDate(0, 0, -10),
		SubscriptionDays: 45, IsActive: true,
	})
	// 短订阅不参与轮换
	seedCustomer(t, store, &domain.Customer{
		ID: "short", Name: "Short", AccessCode: "500003",
		PurchaseDate:     now.AddDate(0, 0, -25),
		SubscriptionDays: 28, IsActive: true,
	})

	items, err := service.RotationCandidates(now)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "due", items[0].CustomerID)
	assert.Equal(t, 7, items[0].DaysUntil)
	assert.Equal(t, domain.AttentionRotation, items[0].Kind)
}
