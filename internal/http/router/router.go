package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/config"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/http/handlers"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/http/middleware"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	jobHandler *handlers.JobHandler,
	paymentHandler *handlers.PaymentHandler,
	disputeHandler *handlers.DisputeHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/jobs", jobHandler.List)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/jobs", jobHandler.Create)
		protected.GET("/jobs/my", jobHandler.ListMine)
		protected.GET("/jobs/:jobId", middleware.UUIDValidator("jobId"), jobHandler.Get)
		protected.POST("/jobs/:jobId/accept", middleware.UUIDValidator("jobId"), jobHandler.Accept)
		protected.POST("/jobs/:jobId/complete", middleware.UUIDValidator("jobId"), jobHandler.Complete)
		protected.POST("/jobs/:jobId/satisfy", middleware.UUIDValidator("jobId"), jobHandler.Satisfy)
		protected.POST("/jobs/:jobId/cancel", middleware.UUIDValidator("jobId"), jobHandler.Cancel)
		protected.GET("/jobs/:jobId/escrow", middleware.UUIDValidator("jobId"), jobHandler.EscrowAudit)

		protected.POST("/jobs/:jobId/dispute", middleware.UUIDValidator("jobId"), disputeHandler.Open)
		protected.GET("/jobs/:jobId/dispute", middleware.UUIDValidator("jobId"), disputeHandler.GetByJob)
		protected.POST("/jobs/:jobId/resolve", middleware.UUIDValidator("jobId"), disputeHandler.Resolve)
		protected.GET("/disputes/my", disputeHandler.ListMine)

		protected.GET("/payments/balance", paymentHandler.GetBalance)
		protected.POST("/payments/deposit", paymentHandler.Deposit)
		protected.GET("/payments/transactions", paymentHandler.ListTransactions)

		protected.GET("/notifications", notificationHandler.List)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
	}

	return r
}
