package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"subshare/backend/internal/storage"
)

// AlertLevel 告警级别
type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "info"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// Alert 告警
type Alert struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Level     AlertLevel `json:"level"`
	Component string     `json:"component"`
	Timestamp time.Time  `json:"timestamp"`
}

// AlertRule 告警规则，Condition 为真且冷却期已过时触发
type AlertRule struct {
	ID            string
	Name          string
	Condition     func() bool
	Level         AlertLevel
	Component     string
	Message       string
	Cooldown      time.Duration
	lastTriggered time.Time
}

// AlertReceiver 告警接收器接口
type AlertReceiver interface {
	SendAlert(alert *Alert) error
}

// AlertManager 告警管理器
type AlertManager struct {
	rules     []AlertRule
	receivers []AlertReceiver
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewAlertManager 创建告警管理器
func NewAlertManager(logger *zap.Logger) *AlertManager {
	return &AlertManager{logger: logger}
}

// AddReceiver 添加告警接收器
func (am *AlertManager) AddReceiver(receiver AlertReceiver) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.receivers = append(am.receivers, receiver)
}

// AddRule 添加告警规则
func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.rules = append(am.rules, rule)
}

// CheckRules 逐条评估告警规则
func (am *AlertManager) CheckRules() {
	am.mu.Lock()
	defer am.mu.Unlock()

	now := time.Now()
	for i := range am.rules {
		rule := &am.rules[i]
		if now.Sub(rule.lastTriggered) < rule.Cooldown {
			continue
		}
		if !rule.Condition() {
			continue
		}

		rule.lastTriggered = now
		alert := &Alert{
			ID:        fmt.Sprintf("%s_%d", rule.ID, now.Unix()),
			Title:     rule.Name,
			Message:   rule.Message,
			Level:     rule.Level,
			Component: rule.Component,
			Timestamp: now,
		}

		for _, receiver := range am.receivers {
			if err := receiver.SendAlert(alert); err != nil {
				am.logger.Error("failed to send alert",
					zap.String("alert_id", alert.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// StartMonitoring 周期性评估规则，直到上下文取消
func (am *AlertManager) StartMonitoring(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			am.CheckRules()
		}
	}
}

// ========== 内置告警规则 ==========

// HighMemoryUsageRule 高内存使用告警规则
func HighMemoryUsageRule(thresholdMB float64) AlertRule {
	return AlertRule{
		ID:   "high_memory_usage",
		Name: "High Memory Usage",
		Condition: func() bool {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return float64(m.Alloc)/1024/1024 > thresholdMB
		},
		Level:     AlertLevelWarning,
		Component: "memory",
		Message:   fmt.Sprintf("Memory usage exceeds %.0f MB", thresholdMB),
		Cooldown:  5 * time.Minute,
	}
}

// DatabaseConnectionRule 数据库连接告警规则
func DatabaseConnectionRule(store storage.Store) AlertRule {
	return AlertRule{
		ID:   "database_connection",
		Name: "Database Connection",
		Condition: func() bool {
			return store.Health() != nil
		},
		Level:     AlertLevelCritical,
		Component: "database",
		Message:   "Database connection failed",
		Cooldown:  1 * time.Minute,
	}
}

// ExpiredBacklogRule 到期积压告警规则。
//
// 处于在用状态但早已到期的客户应被对账及时停用，积压超过阈值
// 说明外部调度器很可能没有在触发对账接口。
func ExpiredBacklogRule(backlog func() int, threshold int) AlertRule {
	return AlertRule{
		ID:   "expired_backlog",
		Name: "Expired Customer Backlog",
		Condition: func() bool {
			return backlog() > threshold
		},
		Level:     AlertLevelWarning,
		Component: "reconcile",
		Message:   fmt.Sprintf("More than %d expired customers are still active; is the scheduler running?", threshold),
		Cooldown:  30 * time.Minute,
	}
}

// ========== 告警接收器实现 ==========

// LogAlertReceiver 日志告警接收器
type LogAlertReceiver struct {
	logger *zap.Logger
}

// NewLogAlertReceiver 创建日志告警接收器
func NewLogAlertReceiver(logger *zap.Logger) *LogAlertReceiver {
	return &LogAlertReceiver{logger: logger}
}

// SendAlert 发送告警到日志
func (r *LogAlertReceiver) SendAlert(alert *Alert) error {
	fields := []zap.Field{
		zap.String("alert_id", alert.ID),
		zap.String("title", alert.Title),
		zap.String("message", alert.Message),
		zap.String("component", alert.Component),
	}

	switch alert.Level {
	case AlertLevelCritical:
		r.logger.Error("CRITICAL ALERT", fields...)
	case AlertLevelWarning:
		r.logger.Warn("WARNING ALERT", fields...)
	default:
		r.logger.Info("INFO ALERT", fields...)
	}

	return nil
}
