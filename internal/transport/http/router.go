package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"subshare/backend/internal/auth"
	jwtpkg "subshare/backend/internal/auth/jwt"
	"subshare/backend/internal/config"
	"subshare/backend/internal/health"
	"subshare/backend/internal/middleware"
	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/ratelimit"
	"subshare/backend/internal/service"
	"subshare/backend/internal/storage"
	"subshare/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config              *config.Config
	CustomerService     *service.CustomerService
	AccountService      *service.AccountService
	AssignmentService   *service.AssignmentService
	AccessService       *service.AccessService
	VerificationService *service.VerificationService
	NotificationService *service.NotificationService
	ReconcileService    *service.ReconcileService
	AuthService         *auth.Service
	JWTManager          *jwtpkg.Manager
	WebSocketHub        *websocket.Hub
	Store               storage.Store
	Redis               health.Pinger // 可为 nil，跳过 Redis 就绪检查
	Metrics             *monitoring.Metrics
	Logger              *zap.Logger

	// 各敏感端点的限流器，进程内或 Redis 实现均可
	AccessLimiter       ratelimit.Limiter
	VerificationLimiter ratelimit.Limiter
	AdminCreateLimiter  ratelimit.Limiter
	AdminDeleteLimiter  ratelimit.Limiter
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	monitoringMW := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
	router.Use(monitoringMW.HTTPMetrics())
	router.Use(monitoringMW.SystemMetrics())

	// 匿名入口的全局令牌桶：限流键取自代理头，可被伪造，
	// 这道总闸保证伪造键也压不垮实例
	router.Use(middleware.GlobalCeiling(50, 100))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	accessHandler := NewAccessHandler(deps.AccessService, deps.VerificationService, deps.Metrics)
	customerHandler := NewCustomerHandler(deps.CustomerService)
	accountHandler := NewAccountHandler(deps.AccountService, deps.AssignmentService, deps.VerificationService, deps.Metrics)
	assignmentHandler := NewAssignmentHandler(deps.AssignmentService, deps.Metrics)
	dashboardHandler := NewDashboardHandler(deps.NotificationService, deps.Metrics)
	schedulerHandler := NewSchedulerHandler(deps.ReconcileService, deps.VerificationService, deps.Metrics)
	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager, deps.Logger)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)
	schedulerAuth := middleware.SchedulerAuth(deps.Config.Auth.SchedulerSecret, deps.Logger)

	// 健康检查与指标
	checker := health.NewHealthChecker(deps.Store, deps.Redis, deps.Logger)
	healthHandler := http.StripPrefix("/health", checker.Handler())
	router.GET("/health/live", gin.WrapH(healthHandler))
	router.GET("/health/ready", gin.WrapH(healthHandler))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Access Routes（客户匿名入口） ==========
		accessRoutes := v1.Group("/access")
		{
			accessRoutes.POST("/validate",
				middleware.RateLimit(deps.AccessLimiter, deps.Metrics, deps.Logger),
				accessHandler.Validate)
			accessRoutes.POST("/verification",
				middleware.RateLimit(deps.VerificationLimiter, deps.Metrics, deps.Logger),
				accessHandler.FetchVerification)
		}

		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)

			// 创建/删除管理员凭初始化密钥而非 JWT：首个管理员
			// 诞生之前没有任何人能登录
			authRoutes.POST("/admins",
				middleware.RateLimit(deps.AdminCreateLimiter, deps.Metrics, deps.Logger),
				authHandler.CreateAdmin)
			authRoutes.DELETE("/admins/:id",
				middleware.RateLimit(deps.AdminDeleteLimiter, deps.Metrics, deps.Logger),
				authHandler.DeleteAdmin)
		}

		// ========== Customer Routes ==========
		customerRoutes := v1.Group("/customers")
		customerRoutes.Use(jwtAuth.RequireAuth())
		{
			customerRoutes.POST("", customerHandler.Create)
			customerRoutes.GET("", customerHandler.List)
			customerRoutes.GET("/:id", customerHandler.Get)
			customerRoutes.PATCH("/:id", customerHandler.Update)
			customerRoutes.DELETE("/:id", jwtAuth.RequireSuper(), customerHandler.Delete)

			// 槽位分配
			customerRoutes.POST("/:id/assignment", assignmentHandler.Assign)
			customerRoutes.DELETE("/:id/assignment", assignmentHandler.Release)

			// 批量操作
			customerRoutes.POST("/batch/reassign", assignmentHandler.Reassign)
			customerRoutes.POST("/batch/extend", assignmentHandler.Extend)
			customerRoutes.POST("/batch/active", customerHandler.BulkSetActive)
		}

		// ========== Account Routes ==========
		accountRoutes := v1.Group("/accounts")
		accountRoutes.Use(jwtAuth.RequireAuth())
		{
			accountRoutes.POST("", accountHandler.Create)
			accountRoutes.GET("", accountHandler.List)
			accountRoutes.GET("/:id", accountHandler.Get)
			accountRoutes.PATCH("/:id", accountHandler.Update)
			accountRoutes.DELETE("/:id", jwtAuth.RequireSuper(), accountHandler.Delete)
			accountRoutes.GET("/:id/occupancy", accountHandler.Occupancy)
			accountRoutes.POST("/:id/verification", accountHandler.FetchVerification)
		}

		// ========== Dashboard Routes ==========
		dashboardRoutes := v1.Group("/dashboard")
		dashboardRoutes.Use(jwtAuth.RequireAuth())
		{
			dashboardRoutes.GET("/attention", dashboardHandler.Attention)
			dashboardRoutes.GET("/attention/rotation", assignmentHandler.RotationCandidates)
			dashboardRoutes.GET("/statistics", dashboardHandler.Statistics)
		}

		// ========== Scheduler Routes（外部调度器入口） ==========
		schedulerRoutes := v1.Group("/scheduler")
		schedulerRoutes.Use(schedulerAuth)
		{
			schedulerRoutes.POST("/reconcile", schedulerHandler.Reconcile)
			schedulerRoutes.POST("/prune-messages", schedulerHandler.PruneMessages)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}
