package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/api/handler"
	"github.com/qs3c/ats_resume_server/internal/api/middleware"
	"github.com/qs3c/ats_resume_server/internal/entitlement"
	"github.com/qs3c/ats_resume_server/internal/pkg/jwt"
	"github.com/qs3c/ats_resume_server/internal/service"
)

// Handlers 路由用到的全部处理器
type Handlers struct {
	Auth      *handler.AuthHandler
	Resume    *handler.ResumeHandler
	Report    *handler.ReportHandler
	Share     *handler.ShareHandler
	Payment   *handler.PaymentHandler
	Admin     *handler.AdminHandler
	WebSocket *handler.WebSocketHandler
	Health    *handler.HealthHandler
}

type Router struct {
	handlers     Handlers
	users        middleware.UserLoader
	usageService *service.UsageService
	blacklist    *jwt.Blacklist
	cfg          *config.Config
}

func NewRouter(
	handlers Handlers,
	users middleware.UserLoader,
	usageService *service.UsageService,
	blacklist *jwt.Blacklist,
	cfg *config.Config,
) *Router {
	return &Router{
		handlers:     handlers,
		users:        users,
		usageService: usageService,
		blacklist:    blacklist,
		cfg:          cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := r.handlers
	secret := r.cfg.JWT.Secret
	upgradeURL := r.cfg.Server.PublicBaseURL

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.CORS(r.cfg.CORS))
	engine.MaxMultipartMemory = 8 << 20

	engine.GET("/health", h.Health.Check)

	api := engine.Group("/api")
	{
		// WebSocket，token 走 query
		api.GET("/ws", h.WebSocket.Handle)

		// 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.GET("/github", h.Auth.GithubAuth)
			auth.GET("/github/callback", h.Auth.GithubCallback)
		}
		authed := api.Group("/auth")
		authed.Use(middleware.Auth(secret, r.blacklist))
		{
			authed.POST("/logout", h.Auth.Logout)
			authed.GET("/me", h.Auth.Me)
			authed.PUT("/me", h.Auth.UpdateMe)
		}

		// 上传允许匿名，计入每日用量
		api.POST("/resume/upload",
			middleware.OptionalAuth(secret, r.blacklist),
			middleware.UsageLimit(r.usageService),
			h.Resume.Upload)

		resume := api.Group("/resume")
		resume.Use(middleware.Auth(secret, r.blacklist))
		{
			resume.GET("/analyses", h.Resume.ListAnalyses)
			resume.GET("/analysis/:id", h.Resume.GetAnalysis)
			resume.DELETE("/analysis/:id", h.Resume.DeleteAnalysis)
			resume.GET("/analysis/:id/file-url", h.Resume.FileURL)
			resume.POST("/analysis/:id/share", h.Resume.CreateShare)
			resume.DELETE("/analysis/:id/share", h.Resume.RevokeShare)

			resume.POST("/match-jd",
				middleware.RequireFeature(r.users, upgradeURL, entitlement.FeatureJDMatch),
				h.Resume.MatchJD)
			resume.POST("/analysis/:id/ai-suggestions",
				middleware.RequirePremium(r.users, upgradeURL, entitlement.FeatureAISuggestions),
				h.Resume.AISuggestions)
			resume.POST("/analysis/:id/cover-letter",
				middleware.RequirePremium(r.users, upgradeURL, entitlement.FeatureCoverLetter),
				h.Resume.CoverLetter)
			resume.GET("/ai-jobs/:id", h.Resume.GetAIJob)

			resume.GET("/usage", h.Resume.Usage)
			resume.GET("/features", h.Resume.Features)
		}

		// 报告
		reports := api.Group("/reports")
		reports.Use(middleware.Auth(secret, r.blacklist))
		{
			reports.POST("/generate/:analysisId",
				middleware.RequireFeature(r.users, upgradeURL, entitlement.FeaturePDFReport),
				h.Report.Generate)
		}

		// 公开分享
		api.GET("/share/:token", h.Share.Get)

		// 支付；webhook 只校验签名
		api.POST("/payments/webhook/razorpay", h.Payment.RazorpayWebhook)
		api.POST("/payments/webhook/stripe", h.Payment.StripeWebhook)

		payments := api.Group("/payments")
		payments.Use(middleware.Auth(secret, r.blacklist))
		{
			payments.POST("/create-intent", h.Payment.CreateIntent)
			payments.POST("/verify-razorpay", h.Payment.VerifyRazorpay)
			payments.POST("/confirm-stripe", h.Payment.ConfirmStripe)
			payments.GET("/history", h.Payment.History)
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(secret, r.blacklist), middleware.RequireAdmin(r.users))
		{
			admin.GET("/users", h.Admin.ListUsers)
			admin.PUT("/users/:id/tier", h.Admin.UpdateTier)
			admin.POST("/payments/:id/refund", h.Admin.RefundPayment)
			admin.GET("/audit-logs", h.Admin.AuditLogs)
		}
	}

	return engine
}
