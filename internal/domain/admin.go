package domain

import "time"

// AdminRole 管理员角色
type AdminRole string

const (
	RoleAdmin AdminRole = "admin"
	RoleSuper AdminRole = "super" // 超级管理员
)

// AdminUser 表示后台管理员账户。
//
// 登录记录（AdminUser）与授权记录（AdminGrant）分开落库：
// 创建管理员时先写登录记录、再写授权记录，授权写入失败则
// 回滚登录记录，避免出现"能登录但无权限"的孤儿状态。
type AdminUser struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// AdminGrant 管理员授权记录
type AdminGrant struct {
	UserID    string    `json:"userId" gorm:"primaryKey;type:varchar(36)"`
	Role      AdminRole `json:"role" gorm:"type:varchar(20);default:'admin'"`
	GrantedAt time.Time `json:"grantedAt"`
}

// IsSuper 判断授权是否为超级管理员
func (g *AdminGrant) IsSuper() bool {
	return g.Role == RoleSuper
}
