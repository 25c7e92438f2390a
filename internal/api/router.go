package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/api/handler"
	"github.com/qs3c/pronos_server/internal/api/middleware"
	"github.com/qs3c/pronos_server/internal/pkg/authz"
)

type Router struct {
	authHandler      *handler.AuthHandler
	userHandler      *handler.UserHandler
	plansHandler     *handler.PlansHandler
	pronoHandler     *handler.PronoHandler
	paymentHandler   *handler.PaymentHandler
	webhookHandler   *handler.WebhookHandler
	adminHandler     *handler.AdminHandler
	websocketHandler *handler.WebSocketHandler
	tiers            middleware.TierResolver
	policy           *authz.AdminPolicy
	cfg              *config.Config
	log              zerolog.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	plansHandler *handler.PlansHandler,
	pronoHandler *handler.PronoHandler,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
	adminHandler *handler.AdminHandler,
	websocketHandler *handler.WebSocketHandler,
	tiers middleware.TierResolver,
	policy *authz.AdminPolicy,
	cfg *config.Config,
	log zerolog.Logger,
) *Router {
	return &Router{
		authHandler:      authHandler,
		userHandler:      userHandler,
		plansHandler:     plansHandler,
		pronoHandler:     pronoHandler,
		paymentHandler:   paymentHandler,
		webhookHandler:   webhookHandler,
		adminHandler:     adminHandler,
		websocketHandler: websocketHandler,
		tiers:            tiers,
		policy:           policy,
		cfg:              cfg,
		log:              log,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.log))
	engine.Use(middleware.Metrics())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if r.cfg.Metrics.Enabled {
		engine.GET(r.cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 支付服务商回调，不走 JWT
	engine.POST("/api/webhooks/moneyfusion", r.webhookHandler.MoneyFusion)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
		}

		// 公开接口 - 套餐
		api.GET("/plans", r.plansHandler.List)

		// 预测（可选认证，按等级锁定）
		pronos := api.Group("/pronos")
		pronos.Use(middleware.OptionalAuth(r.cfg.JWT.Secret), middleware.ResolveTier(r.tiers))
		{
			pronos.GET("", r.pronoHandler.List)
			pronos.GET("/:id", r.pronoHandler.Get)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.GET("/subscription", r.userHandler.GetSubscription)
				user.GET("/referral", r.userHandler.GetReferral)
			}

			// 支付
			payments := authenticated.Group("/payments")
			{
				payments.GET("", r.paymentHandler.ListMine)
				payments.POST("/moneyfusion", r.paymentHandler.Checkout)
				payments.POST("/manual", r.paymentHandler.SubmitManual)
			}
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.RequireAdmin(r.policy))
		{
			admin.GET("/stats", r.adminHandler.Stats)

			admin.GET("/payments", r.adminHandler.ListPayments)
			admin.GET("/payments/:id", r.adminHandler.GetPayment)
			admin.POST("/payments/:id/approve", r.adminHandler.ApprovePayment)
			admin.POST("/payments/:id/reject", r.adminHandler.RejectPayment)

			admin.GET("/pronos", r.adminHandler.ListPronos)
			admin.POST("/pronos", r.adminHandler.CreateProno)
			admin.GET("/pronos/:id", r.adminHandler.GetProno)
			admin.PUT("/pronos/:id", r.adminHandler.UpdateProno)
			admin.POST("/pronos/:id/publish", r.adminHandler.PublishProno)
			admin.POST("/pronos/:id/archive", r.adminHandler.ArchiveProno)
			admin.PUT("/pronos/:id/result", r.adminHandler.SetPronoResult)
		}
	}

	return engine
}
