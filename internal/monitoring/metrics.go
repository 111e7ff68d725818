package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 访问码校验指标
	AccessValidations   *prometheus.CounterVec
	VerificationFetches *prometheus.CounterVec

	// 对账指标
	ReconcileRuns        prometheus.Counter
	CustomersDeactivated prometheus.Counter

	// 客户状态指标
	CustomersActive       prometheus.Gauge
	CustomersExpiringSoon prometheus.Gauge
	CustomersAssigned     prometheus.Gauge

	// 批量操作指标
	BatchItems *prometheus.CounterVec

	// 托管邮箱指标
	InboundMessages prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec

	// 系统指标
	SystemUptime        prometheus.Gauge
	DatabaseConnections prometheus.Gauge
	MemoryUsage         prometheus.Gauge
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subshare_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subshare_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subshare_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subshare_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "endpoint"},
		),

		AccessValidations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subshare_access_validations_total",
				Help: "Total number of access code validation attempts",
			},
			[]string{"result"},
		),

		VerificationFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subshare_verification_fetches_total",
				Help: "Total number of verification artifact fetch attempts",
			},
			[]string{"result"},
		),

		ReconcileRuns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "subshare_reconcile_runs_total",
				Help: "Total number of reconciliation runs",
			},
		),

		CustomersDeactivated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "subshare_customers_deactivated_total",
				Help: "Total number of customers deactivated by reconciliation",
			},
		),

		CustomersActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "subshare_customers_active",
				Help: "Number of active customers",
			},
		),

		CustomersExpiringSoon: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "subshare_customers_expiring_soon",
				Help: "Number of customers expiring within seven days",
			},
		),

		CustomersAssigned: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "subshare_customers_assigned",
				Help: "Number of active customers holding an account slot",
			},
		),

		BatchItems: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subshare_batch_items_total",
				Help: "Per-item outcomes of bulk extend and reassign operations",
			},
			[]string{"operation", "outcome"},
		),

		InboundMessages: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "subshare_inbound_messages_total",
				Help: "Total number of messages delivered to hosted mailboxes",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subshare_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "subshare_panics_total",
				Help: "Total number of recovered panics",
			},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subshare_rate_limit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
			[]string{"policy"},
		),

		SystemUptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "subshare_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),

		DatabaseConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "subshare_database_connections",
				Help: "Number of open database connections",
			},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "subshare_memory_usage_bytes",
				Help: "Memory usage in bytes",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, requestSize, responseSize int64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPRequestSize.WithLabelValues(method, endpoint).Observe(float64(requestSize))
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordAccessValidation 记录访问码校验结果（granted/denied/malformed）
func (m *Metrics) RecordAccessValidation(result string) {
	m.AccessValidations.WithLabelValues(result).Inc()
}

// RecordVerificationFetch 记录验证产物抓取结果（found/pending/denied）
func (m *Metrics) RecordVerificationFetch(result string) {
	m.VerificationFetches.WithLabelValues(result).Inc()
}

// RecordReconcileRun 记录一次对账运行
func (m *Metrics) RecordReconcileRun(deactivated int) {
	m.ReconcileRuns.Inc()
	m.CustomersDeactivated.Add(float64(deactivated))
}

// RecordBatchItems 记录批量操作的逐条成败
func (m *Metrics) RecordBatchItems(operation string, succeeded, failed int) {
	m.BatchItems.WithLabelValues(operation, "ok").Add(float64(succeeded))
	m.BatchItems.WithLabelValues(operation, "failed").Add(float64(failed))
}

// RecordInboundMessage 记录托管邮箱收信
func (m *Metrics) RecordInboundMessage() {
	m.InboundMessages.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(policy string) {
	m.RateLimitBlocks.WithLabelValues(policy).Inc()
}

// UpdateCustomerGauges 更新客户状态仪表
func (m *Metrics) UpdateCustomerGauges(active, expiringSoon, assigned int) {
	m.CustomersActive.Set(float64(active))
	m.CustomersExpiringSoon.Set(float64(expiringSoon))
	m.CustomersAssigned.Set(float64(assigned))
}

// UpdateSystemUptime 更新系统运行时间
func (m *Metrics) UpdateSystemUptime(uptime time.Duration) {
	m.SystemUptime.Set(uptime.Seconds())
}

// UpdateDatabaseConnections 更新数据库连接数
func (m *Metrics) UpdateDatabaseConnections(count int) {
	m.DatabaseConnections.Set(float64(count))
}

// UpdateMemoryUsage 更新内存使用量
func (m *Metrics) UpdateMemoryUsage(bytes int64) {
	m.MemoryUsage.Set(float64(bytes))
}

// HTTPHandler 返回 Prometheus 指标的 HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
