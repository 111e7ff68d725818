package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"subshare/backend/internal/auth"
	jwtpkg "subshare/backend/internal/auth/jwt"
	"subshare/backend/internal/config"
	"subshare/backend/internal/logger"
	"subshare/backend/internal/monitoring"
	"subshare/backend/internal/pool"
	"subshare/backend/internal/ratelimit"
	"subshare/backend/internal/service"
	"subshare/backend/internal/smtp"
	"subshare/backend/internal/storage"
	"subshare/backend/internal/storage/hybrid"
	"subshare/backend/internal/storage/memory"
	redisstore "subshare/backend/internal/storage/redis"
	httptransport "subshare/backend/internal/transport/http"
	"subshare/backend/internal/websocket"
)

// 后台维护任务的节奏
const (
	messagePruneInterval = 1 * time.Hour
	messageRetention     = 24 * time.Hour
	gaugeRefreshInterval = 1 * time.Minute
)

// main 启动同时包含 HTTP API 与收信 SMTP 的订阅管理服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting subshare server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = hybrid.NewStore(cfg.Database.Type, cfg.Database.DSN, &cfg.Redis)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// Redis 客户端用于限流与就绪检查，连不上时退化为进程内方案
	var redisClient *redisstore.Client
	if cfg.Redis.Address != "" {
		redisClient, err = redisstore.New(&cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process rate limiting", zap.Error(err))
			redisClient = nil
		}
	}

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	alertManager := monitoring.NewAlertManager(log)
	alertManager.AddReceiver(monitoring.NewLogAlertReceiver(log))
	alertManager.AddRule(monitoring.HighMemoryUsageRule(512.0)) // 512MB
	alertManager.AddRule(monitoring.DatabaseConnectionRule(store))

	// 初始化认证
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authService := auth.NewService(store, cfg.Auth.SetupKey, log)

	log.Info("JWT configuration",
		zap.String("issuer", cfg.JWT.Issuer),
		zap.Duration("access_expiry", cfg.JWT.AccessExpiry),
		zap.Duration("refresh_expiry", cfg.JWT.RefreshExpiry),
	)
	if cfg.Auth.SetupKey == "" {
		log.Warn("setup key not configured, admin bootstrap endpoints are disabled")
	}
	if cfg.Auth.SchedulerSecret == "" {
		log.Warn("scheduler secret not configured, scheduler endpoints are disabled")
	}

	// 初始化服务层
	customerService := service.NewCustomerService(store)
	accountService := service.NewAccountService(store, store)
	assignmentService := service.NewAssignmentService(store, store)
	accessService := service.NewAccessService(store)
	verificationService := service.NewVerificationService(store, log)
	notificationService := service.NewNotificationService(store, store)
	reconcileService := service.NewReconcileService(store, log)

	// 到期积压超过阈值多半意味着外部调度器没在触发对账
	alertManager.AddRule(monitoring.ExpiredBacklogRule(func() int {
		stats, err := notificationService.Statistics(time.Now())
		if err != nil {
			return 0
		}
		return stats.Expired
	}, 20))

	// 创建 WebSocket Hub
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, jwtManager, log)

	// 创建限流器（Redis 可用时跨实例共享计数）
	limiterFor := func(policy ratelimit.Policy) ratelimit.Limiter {
		if redisClient != nil {
			return ratelimit.NewRedisLimiter(redisClient.Client(), policy)
		}
		return ratelimit.NewMemoryLimiter(policy)
	}

	deps := httptransport.RouterDependencies{
		Config:              cfg,
		CustomerService:     customerService,
		AccountService:      accountService,
		AssignmentService:   assignmentService,
		AccessService:       accessService,
		VerificationService: verificationService,
		NotificationService: notificationService,
		ReconcileService:    reconcileService,
		AuthService:         authService,
		JWTManager:          jwtManager,
		WebSocketHub:        wsHub,
		Store:               store,
		Metrics:             metrics,
		Logger:              log,
		AccessLimiter:       limiterFor(ratelimit.PolicyAccessValidate),
		VerificationLimiter: limiterFor(ratelimit.PolicyVerificationFetch),
		AdminCreateLimiter:  limiterFor(ratelimit.PolicyAdminCreate),
		AdminDeleteLimiter:  limiterFor(ratelimit.PolicyAdminDelete),
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(deps)

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 创建 SMTP 服务器（只收验证邮件，不做任何转发）
	smtpBackend := smtp.NewBackend(store, store, wsHub, metrics, log)
	smtpServer := smtp.NewServer(cfg.SMTP.BindAddr, cfg.SMTP.Domain, smtpBackend, log)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// 后台任务线程池
	workers := pool.NewWorkerPool(4, 64, log)
	workers.Start(groupCtx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting SMTP server",
			zap.String("address", cfg.SMTP.BindAddr),
			zap.String("domain", cfg.SMTP.Domain),
		)
		if err := smtpServer.ListenAndServe(); err != nil {
			log.Error("SMTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 告警监控 goroutine
	group.Go(func() error {
		log.Info("starting alert monitoring")
		alertManager.StartMonitoring(groupCtx, 1*time.Minute)
		return nil
	})

	// 定时清理陈旧验证邮件 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(messagePruneInterval)
		defer ticker.Stop()

		log.Info("starting message prune task", zap.Duration("interval", messagePruneInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("message prune task stopped")
				return nil
			case <-ticker.C:
				workers.TrySubmit(func() {
					count, err := verificationService.PruneMessages(time.Now(), messageRetention)
					if err != nil {
						log.Error("failed to prune inbound messages", zap.Error(err))
					} else if count > 0 {
						log.Info("stale inbound messages pruned", zap.Int("count", count))
					}
				})
			}
		}
	})

	// 定时刷新客户状态仪表 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(gaugeRefreshInterval)
		defer ticker.Stop()

		startedAt := time.Now()

		for {
			select {
			case <-groupCtx.Done():
				log.Info("gauge refresh task stopped")
				return nil
			case <-ticker.C:
				workers.TrySubmit(func() {
					metrics.UpdateSystemUptime(time.Since(startedAt))
					stats, err := notificationService.Statistics(time.Now())
					if err != nil {
						log.Error("failed to refresh customer gauges", zap.Error(err))
						return
					}
					metrics.UpdateCustomerGauges(stats.ActiveCustomers, stats.ExpiringSoon, stats.AssignedCustomers)
				})
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if err := smtpServer.Close(); err != nil {
			log.Warn("SMTP server close warning", zap.Error(err))
		}

		workers.Stop()

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close warning", zap.Error(err))
			}
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
