package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
)

var (
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists 邮箱已被注册
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidSetupKey 初始化密钥错误
	ErrInvalidSetupKey = errors.New("invalid setup key")
	// ErrSetupKeyNotConfigured 初始化密钥未配置，敏感操作关闭
	ErrSetupKeyNotConfigured = errors.New("setup key not configured")
	// ErrLastAdmin 至少保留一名管理员
	ErrLastAdmin = errors.New("cannot delete the last admin")
	// ErrAdminNotFound 管理员不存在
	ErrAdminNotFound = errors.New("admin not found")
)

// Service 管理员认证服务。
//
// 登录记录与授权记录两段式落库：创建时先写登录记录、再写授权
// 记录，授权写入失败则回滚登录记录，不留"能登录但无权限"的
// 孤儿状态。删除时保证至少剩余一名管理员。
type Service struct {
	repo     storage.AdminRepository
	setupKey string
	log      *zap.Logger
}

// NewService 创建认证服务。
//
// setupKey 为空表示未配置：创建/删除管理员的入口 fail-closed。
func NewService(repo storage.AdminRepository, setupKey string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, setupKey: setupKey, log: log}
}

// VerifySetupKey 校验初始化密钥（常数时间比较）。
func (s *Service) VerifySetupKey(candidate string) error {
	if s.setupKey == "" {
		return ErrSetupKeyNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(s.setupKey)) != 1 {
		return ErrInvalidSetupKey
	}
	return nil
}

// CreateAdminInput 创建管理员的输入
type CreateAdminInput struct {
	Email    string
	Password string
	Role     domain.AdminRole
	SetupKey string
}

// CreateAdmin 创建管理员账户（两段式写入）。
func (s *Service) CreateAdmin(input CreateAdminInput) (*domain.AdminUser, error) {
	if err := s.VerifySetupKey(input.SetupKey); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetAdminUserByEmail(email); err == nil {
		return nil, ErrEmailExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleAdmin
	}

	now := time.Now().UTC()
	user := &domain.AdminUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateAdminUser(user); err != nil {
		if errors.Is(err, storage.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	grant := &domain.AdminGrant{
		UserID:    user.ID,
		Role:      role,
		GrantedAt: now,
	}
	if err := s.repo.CreateAdminGrant(grant); err != nil {
		// 回滚登录记录，避免孤儿账户
		if rbErr := s.repo.DeleteAdminUser(user.ID); rbErr != nil {
			s.log.Error("failed to roll back orphaned admin user",
				zap.String("user_id", user.ID),
				zap.Error(rbErr),
			)
		}
		return nil, fmt.Errorf("failed to create admin grant: %w", err)
	}

	s.log.Info("admin user created", zap.String("user_id", user.ID))
	return user, nil
}

// DeleteAdminInput 删除管理员的输入
type DeleteAdminInput struct {
	UserID   string
	SetupKey string
}

// DeleteAdmin 删除管理员账户，保证至少剩余一名。
func (s *Service) DeleteAdmin(input DeleteAdminInput) error {
	if err := s.VerifySetupKey(input.SetupKey); err != nil {
		return err
	}

	if _, err := s.repo.GetAdminUserByID(input.UserID); err != nil {
		return ErrAdminNotFound
	}

	count, err := s.repo.CountAdminGrants()
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAdmin
	}

	if err := s.repo.DeleteAdminGrant(input.UserID); err != nil {
		return err
	}
	if err := s.repo.DeleteAdminUser(input.UserID); err != nil {
		return err
	}

	s.log.Info("admin user deleted", zap.String("user_id", input.UserID))
	return nil
}

// Login 管理员登录。
//
// 邮箱不存在、密码错误、授权记录缺失统一返回 ErrInvalidCredentials。
func (s *Service) Login(email, password string) (*domain.AdminUser, *domain.AdminGrant, error) {
	user, err := s.repo.GetAdminUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	grant, err := s.repo.GetAdminGrant(user.ID)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	_ = s.repo.UpdateAdminLastLogin(user.ID)
	return user, grant, nil
}

// GetAdmin 根据 ID 获取管理员及其授权。
func (s *Service) GetAdmin(userID string) (*domain.AdminUser, *domain.AdminGrant, error) {
	user, err := s.repo.GetAdminUserByID(userID)
	if err != nil {
		return nil, nil, ErrAdminNotFound
	}
	grant, err := s.repo.GetAdminGrant(userID)
	if err != nil {
		return nil, nil, ErrAdminNotFound
	}
	return user, grant, nil
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
