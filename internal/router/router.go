package router

import (
	"log/slog"
	"net/http"

	"vipclub/config"
	"vipclub/internal/handler"
	"vipclub/internal/middleware"
	"vipclub/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, svc *Services, limiter middleware.Limiter, logger *slog.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		logger.Error("[API] validator registration failed", "error", err)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if limiter != nil {
		r.Use(middleware.RateLimit(limiter, logger))
	}

	paymentHandler := handler.NewPaymentHandler(svc.Payments)
	webhookHandler := handler.NewPixWebhookHandler(svc.Payments, cfg, logger)
	tokenHandler := handler.NewTokenHandler(svc.Redemption)
	rouletteHandler := handler.NewRouletteHandler(svc.Roulette)
	meHandler := handler.NewMeHandler(svc.Entitlements, svc.Notifications)
	adminHandler := handler.NewAdminHandler(svc.Tokens, svc.Entitlements, svc.Payments)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws/payments", ws.UpgradePaymentWS(&cfg.JWT, svc.Hub, paymentHandler.Snapshot))

	api := r.Group("/api/v1")
	optional := middleware.OptionalAuth(&cfg.JWT)
	required := middleware.AuthRequired(&cfg.JWT)

	api.POST("/webhooks/pix", webhookHandler.Handle)

	payments := api.Group("/payments/pix")
	if cfg.Payment.RequireAuth {
		payments.POST("", required, paymentHandler.Initiate)
	} else {
		payments.POST("", optional, paymentHandler.Initiate)
	}
	payments.POST("/status", optional, paymentHandler.PostStatus)
	payments.GET("/:external_id", optional, paymentHandler.GetStatus)

	authed := api.Group("", required)
	authed.POST("/tokens/redeem", tokenHandler.Redeem)
	authed.POST("/roulette/spin", rouletteHandler.Spin)
	authed.GET("/me/vip", meHandler.VIP)
	authed.GET("/me/notifications", meHandler.Notifications)
	authed.POST("/me/notifications/:id/read", meHandler.MarkNotificationRead)
	authed.POST("/me/fcm-token", meHandler.RegisterFCMToken)
	authed.GET("/vip/access", middleware.RequireVIP(svc.Entitlements), meHandler.Access)

	admin := api.Group("/admin", required, middleware.AdminRequired(svc.Profiles))
	admin.POST("/tokens", adminHandler.GenerateTokens)
	admin.GET("/tokens/stats", adminHandler.TokenStats)
	admin.POST("/users/:id/vip", adminHandler.GrantVIP)
	admin.DELETE("/users/:id/vip", adminHandler.RevokeVIP)
	admin.GET("/transactions", adminHandler.ListTransactions)
	admin.POST("/transactions/:external_id/reconcile", adminHandler.Reconcile)

	return r
}
