package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"subshare/backend/internal/auth"
	"subshare/backend/internal/config"
	"subshare/backend/internal/domain"
	"subshare/backend/internal/storage"
	"subshare/backend/internal/storage/postgres"
	sqlstore "subshare/backend/internal/storage/sql"
)

// main 直接向数据库写入一个管理员账户。
//
// HTTP 接口创建管理员需要初始化密钥并受限流保护，本工具绕过
// 这些入口，用于首次部署时在服务器上直接落一个超级管理员。
func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: create-admin <email> <password> [super|admin]")
		os.Exit(1)
	}

	email := os.Args[1]
	password := os.Args[2]
	role := domain.RoleSuper
	if len(os.Args) >= 4 && os.Args[3] == "admin" {
		role = domain.RoleAdmin
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("Database is not configured; set SUBSHARE_DATABASE_TYPE and SUBSHARE_DATABASE_DSN.")
		fmt.Println("An admin created in memory storage would vanish with the process.")
		os.Exit(1)
	}

	var store storage.Store
	switch cfg.Database.Type {
	case "mysql":
		store, err = sqlstore.NewStore("mysql", cfg.Database.DSN, 5, 2, time.Hour)
	case "postgres", "postgresql":
		store, err = postgres.NewStore(cfg.Database.DSN, 5, 2, time.Hour)
	default:
		fmt.Printf("Unsupported database type: %s\n", cfg.Database.Type)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := domain.ValidateEmail(email); err != nil {
		fmt.Printf("Invalid email: %v\n", err)
		os.Exit(1)
	}
	if err := domain.ValidatePassword(password); err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	user := &domain.AdminUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := store.CreateAdminUser(user); err != nil {
		fmt.Printf("Failed to create admin user: %v\n", err)
		os.Exit(1)
	}

	grant := &domain.AdminGrant{
		UserID:    user.ID,
		Role:      role,
		GrantedAt: now,
	}
	if err := store.CreateAdminGrant(grant); err != nil {
		// 授权写入失败时回滚登录记录
		store.DeleteAdminUser(user.ID)
		fmt.Printf("Failed to create admin grant: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Admin user created successfully!\n")
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role:  %s\n", grant.Role)
}
