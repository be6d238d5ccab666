package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/api"
	"github.com/qs3c/ats_resume_server/internal/api/handler"
	"github.com/qs3c/ats_resume_server/internal/ats"
	"github.com/qs3c/ats_resume_server/internal/database"
	"github.com/qs3c/ats_resume_server/internal/pkg/cache"
	"github.com/qs3c/ats_resume_server/internal/pkg/cron"
	"github.com/qs3c/ats_resume_server/internal/pkg/email"
	"github.com/qs3c/ats_resume_server/internal/pkg/jwt"
	"github.com/qs3c/ats_resume_server/internal/pkg/oauth"
	"github.com/qs3c/ats_resume_server/internal/pkg/payment"
	"github.com/qs3c/ats_resume_server/internal/pkg/pubsub"
	"github.com/qs3c/ats_resume_server/internal/pkg/queue"
	"github.com/qs3c/ats_resume_server/internal/pkg/storage"
	"github.com/qs3c/ats_resume_server/internal/pkg/ws"
	"github.com/qs3c/ats_resume_server/internal/repository"
	"github.com/qs3c/ats_resume_server/internal/service"
)

const (
	cronInterval = time.Hour
	staleJobTTL  = 30 * time.Minute
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Printf("Database connected (%s)", cfg.Database.Driver)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化对象存储
	store, err := storage.NewFromConfig(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	log.Printf("Object storage initialized (%s)", cfg.Storage.Provider)

	// 支付渠道，未配置时对应接口返回错误
	var razorpayGW payment.RazorpayGateway
	if rp, err := payment.NewRazorpay(&cfg.Payments.Razorpay); err == nil {
		razorpayGW = rp
		log.Println("Razorpay enabled")
	} else {
		log.Printf("Razorpay disabled: %v", err)
	}
	var stripeGW payment.StripeGateway
	if sp, err := payment.NewStripe(&cfg.Payments.Stripe); err == nil {
		stripeGW = sp
		log.Println("Stripe enabled")
	} else {
		log.Printf("Stripe disabled: %v", err)
	}

	jobQueue := queue.NewQueue(rdb, cfg.Queue.AIQueue)
	publisher := pubsub.NewPublisher(rdb)
	blacklist := jwt.NewBlacklist(rdb)
	mailer := email.NewService(&cfg.Email)
	wsHub := ws.NewHub()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	jobRepo := repository.NewJobRepository(db)
	shareRepo := repository.NewShareRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// 初始化 Service
	usageService := service.NewUsageService(userRepo, cfg)
	authService := service.NewAuthService(userRepo, cfg, oauth.NewStateStore(rdb), blacklist, mailer)
	userService := service.NewUserService(userRepo, usageService)
	shareService := service.NewShareService(shareRepo, analysisRepo, cache.New(rdb, "share:"), cfg)
	uploadService := service.NewUploadService(userRepo, analysisRepo, store, ats.NewDocumentParser(), cfg)
	analysisService := service.NewAnalysisService(analysisRepo, jobRepo, shareService, store, cfg)
	aiService := service.NewAIService(analysisRepo, jobRepo, jobQueue, publisher)
	reportService := service.NewReportService(analysisRepo, store, cfg)
	paymentService := service.NewPaymentService(userRepo, paymentRepo, razorpayGW, stripeGW, mailer, cfg)
	adminService := service.NewAdminService(userRepo, auditRepo, paymentService)

	// 初始化 Router
	router := api.NewRouter(api.Handlers{
		Auth:      handler.NewAuthHandler(authService, userService, wsHub, cfg.Server.PublicBaseURL),
		Resume:    handler.NewResumeHandler(uploadService, analysisService, shareService, aiService, usageService, userService, cfg.Upload.MaxSize),
		Report:    handler.NewReportHandler(reportService),
		Share:     handler.NewShareHandler(shareService),
		Payment:   handler.NewPaymentHandler(paymentService),
		Admin:     handler.NewAdminHandler(adminService),
		WebSocket: handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, blacklist, cfg.CORS.AllowedOrigins),
		Health:    handler.NewHealthHandler(db, rdb),
	}, userRepo, usageService, blacklist, cfg)
	engine := router.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// worker 发布的进度推送给对应用户的 WebSocket 连接
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(ctx, func(msg *pubsub.ProgressMessage) {
			if err := wsHub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
				log.Printf("Failed to push progress to user %d: %v", msg.UserID, err)
			}
			if msg.Finished() && !wsHub.IsOnline(msg.UserID) {
				log.Printf("Job %d (%s) %s while user %d offline", msg.JobID, msg.Kind, msg.Status, msg.UserID)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()

	// 定时任务：订阅过期、分享链接清理、僵尸任务
	cronService := cron.NewService(userRepo, shareRepo, jobRepo, cronInterval, staleJobTTL)
	cronService.Start()
	defer cronService.Stop()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server shutdown complete")
}
