package domain

import "time"

// DashboardStatistics 后台首页统计数据
type DashboardStatistics struct {
	TotalCustomers    int       `json:"totalCustomers"`
	ActiveCustomers   int       `json:"activeCustomers"`
	ExpiringSoon      int       `json:"expiringSoon"`
	Expired           int       `json:"expired"`
	TotalAccounts     int       `json:"totalAccounts"`
	AssignedCustomers int       `json:"assignedCustomers"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

// AttentionKind 需关注事项类型
type AttentionKind string

const (
	// AttentionExpiring 订阅即将到期
	AttentionExpiring AttentionKind = "expiring"
	// AttentionRotation 临近 30 天轮换点
	AttentionRotation AttentionKind = "rotation"
)

// AttentionItem 需关注事项（只读派生，每次调用重新计算）
type AttentionItem struct {
	Kind         AttentionKind `json:"kind"`
	CustomerID   string        `json:"customerId"`
	CustomerName string        `json:"customerName"`
	DaysUntil    int           `json:"daysUntil"`
	AccountID    *string       `json:"accountId,omitempty"`
}
