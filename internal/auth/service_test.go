package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
	"subshare/backend/internal/storage/memory"
)

const testSetupKey = "test-setup-key"

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(store, testSetupKey, nil), store
}

func TestService_CreateAdmin(t *testing.T) {
	service, store := newTestService(t)

	t.Run("创建管理员成功并写入授权记录", func(t *testing.T) {
		user, err := service.CreateAdmin(CreateAdminInput{
			Email:    "Admin@Example.com",
			Password: "password123",
			SetupKey: testSetupKey,
		})

		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", user.Email)
		assert.NotEqual(t, "password123", user.PasswordHash)

		grant, err := store.GetAdminGrant(user.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, grant.Role)
	})

	t.Run("初始化密钥错误被拒绝", func(t *testing.T) {
		_, err := service.CreateAdmin(CreateAdminInput{
			Email:    "other@example.com",
			Password: "password123",
			SetupKey: "wrong-key",
		})

		assert.ErrorIs(t, err, ErrInvalidSetupKey)
	})

	t.Run("未配置初始化密钥时关闭创建入口", func(t *testing.T) {
		closed := NewService(memory.NewStore(), "", nil)
		_, err := closed.CreateAdmin(CreateAdminInput{
			Email:    "x@example.com",
			Password: "password123",
			SetupKey: "",
		})

		assert.ErrorIs(t, err, ErrSetupKeyNotConfigured)
	})

	t.Run("重复邮箱被拒绝", func(t *testing.T) {
		_, err := service.CreateAdmin(CreateAdminInput{
			Email:    "admin@example.com",
			Password: "password123",
			SetupKey: testSetupKey,
		})

		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("弱密码被拒绝", func(t *testing.T) {
		_, err := service.CreateAdmin(CreateAdminInput{
			Email:    "weak@example.com",
			Password: "short",
			SetupKey: testSetupKey,
		})

		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	})

	t.Run("授权写入失败时回滚登录记录", func(t *testing.T) {
		failing := &grantFailingRepo{AdminRepository: memory.NewStore()}
		svc := NewService(failing, testSetupKey, nil)

		_, err := svc.CreateAdmin(CreateAdminInput{
			Email:    "orphan@example.com",
			Password: "password123",
			SetupKey: testSetupKey,
		})

		require.Error(t, err)
		_, lookupErr := failing.GetAdminUserByEmail("orphan@example.com")
		assert.ErrorIs(t, lookupErr, storage.ErrAdminNotFound)
	})
}

// grantFailingRepo 注入授权写入失败
type grantFailingRepo struct {
	storage.AdminRepository
}

func (r *grantFailingRepo) CreateAdminGrant(g *domain.AdminGrant) error {
	return errors.New("grant write failed")
}

func TestService_DeleteAdmin(t *testing.T) {
	service, _ := newTestService(t)

	first, err := service.CreateAdmin(CreateAdminInput{
		Email: "first@example.com", Password: "password123", SetupKey: testSetupKey,
	})
	require.NoError(t, err)

	t.Run("仅剩一名管理员时拒绝删除", func(t *testing.T) {
		err := service.DeleteAdmin(DeleteAdminInput{UserID: first.ID, SetupKey: testSetupKey})
		assert.ErrorIs(t, err, ErrLastAdmin)
	})

	t.Run("多于一名时删除成功", func(t *testing.T) {
		second, err := service.CreateAdmin(CreateAdminInput{
			Email: "second@example.com", Password: "password123", SetupKey: testSetupKey,
		})
		require.NoError(t, err)

		require.NoError(t, service.DeleteAdmin(DeleteAdminInput{
			UserID: second.ID, SetupKey: testSetupKey,
		}))

		_, _, err = service.GetAdmin(second.ID)
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})

	t.Run("删除不存在的管理员报错", func(t *testing.T) {
		err := service.DeleteAdmin(DeleteAdminInput{UserID: "missing", SetupKey: testSetupKey})
		assert.ErrorIs(t, err, ErrAdminNotFound)
	})
}

func TestService_Login(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.CreateAdmin(CreateAdminInput{
		Email: "admin@example.com", Password: "password123", SetupKey: testSetupKey,
	})
	require.NoError(t, err)

	t.Run("正确凭证登录成功", func(t *testing.T) {
		user, grant, err := service.Login("Admin@Example.com", "password123")

		require.NoError(t, err)
		assert.Equal(t, "admin@example.com", user.Email)
		assert.Equal(t, domain.RoleAdmin, grant.Role)
	})

	t.Run("错误密码与未知邮箱返回相同错误", func(t *testing.T) {
		_, _, errBadPass := service.Login("admin@example.com", "wrong-password")
		_, _, errUnknown := service.Login("nobody@example.com", "password123")

		assert.ErrorIs(t, errBadPass, ErrInvalidCredentials)
		assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	assert.True(t, CheckPassword("password123", hash))
	assert.False(t, CheckPassword("password124", hash))
}
