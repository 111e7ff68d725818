package domain

import (
	"time"
)

// 过期边界与轮换周期常量
const (
	// ExpiringSoonDays 剩余天数小于等于该值时进入"即将到期"状态
	ExpiringSoonDays = 7
	// RotationCycleDays 共享账号的轮换周期（天），只对订阅时长 >= 30 天的客户生效
	RotationCycleDays = 30
	// RotationWindowDays 距离轮换点小于等于该值时标记"轮换临近"
	RotationWindowDays = 7
)

// Evaluation 表示一次过期计算的结果。
//
// 边界约定（全系统唯一口径）：DaysRemaining == 0 视为已过期。
// 即 end_date 当天不再算有效期内；展示层若需显示"今天到期"，
// 应基于 DaysRemaining == 0 自行渲染文案，而非另行计算状态。
type Evaluation struct {
	EndDate       time.Time `json:"endDate"`
	DaysRemaining int       `json:"daysRemaining"`
	Status        Status    `json:"status"`
}

// dateOnly 截断时间部分，统一到 UTC 日历日，保证天数差不受时区和时刻影响
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Evaluate 纯函数：由购买日期和订阅天数计算剩余天数与状态。
//
// DaysRemaining 为有符号整数，过期后继续递减（可为负）。
func Evaluate(purchaseDate time.Time, subscriptionDays int, now time.Time) Evaluation {
	purchase := dateOnly(purchaseDate)
	today := dateOnly(now)

	endDate := purchase.AddDate(0, 0, subscriptionDays)
	daysRemaining := int(endDate.Sub(today).Hours() / 24)

	var status Status
	switch {
	case daysRemaining <= 0:
		status = StatusExpired
	case daysRemaining <= ExpiringSoonDays:
		status = StatusExpiringSoon
	default:
		status = StatusActive
	}

	return Evaluation{
		EndDate:       endDate,
		DaysRemaining: daysRemaining,
		Status:        status,
	}
}

// EvaluateCustomer 在日期计算之上叠加管理停用开关。
//
// 检查顺序：is_active=false 优先于一切日期计算。
func EvaluateCustomer(c *Customer, now time.Time) Evaluation {
	eval := Evaluate(c.PurchaseDate, c.SubscriptionDays, now)
	if !c.IsActive {
		eval.Status = StatusInactive
	}
	return eval
}

// Rotation 表示轮换窗口检测结果
type Rotation struct {
	DaysSincePurchase int  `json:"daysSincePurchase"`
	DaysUntilRotation int  `json:"daysUntilRotation"`
	Due               bool `json:"due"`
}

// EvaluateRotation 检测客户是否临近 30 天轮换点。
//
// 只对订阅时长 >= 30 天、当前有效且未过期的客户生效；
// 其余情况返回 Due=false。
func EvaluateRotation(c *Customer, now time.Time) Rotation {
	if c.SubscriptionDays < RotationCycleDays {
		return Rotation{}
	}

	eval := EvaluateCustomer(c, now)
	if eval.Status != StatusActive && eval.Status != StatusExpiringSoon {
		return Rotation{}
	}

	daysSince := int(dateOnly(now).Sub(dateOnly(c.PurchaseDate)).Hours() / 24)
	if daysSince < 0 {
		return Rotation{}
	}

	daysUntil := RotationCycleDays - daysSince%RotationCycleDays
	return Rotation{
		DaysSincePurchase: daysSince,
		DaysUntilRotation: daysUntil,
		Due:               daysUntil <= RotationWindowDays,
	}
}
