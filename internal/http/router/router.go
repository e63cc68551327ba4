package router

import (
	"github.com/gin-gonic/gin"

	"github.com/propelhq/propel-backend/internal/config"
	"github.com/propelhq/propel-backend/internal/http/handlers"
	"github.com/propelhq/propel-backend/internal/http/middleware"
	"github.com/propelhq/propel-backend/internal/models"
	"github.com/propelhq/propel-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	bidHandler *handlers.BidHandler,
	contractHandler *handlers.ContractHandler,
	disputeHandler *handlers.DisputeHandler,
	walletHandler *handlers.WalletHandler,
	notificationHandler *handlers.NotificationHandler,
	adminHandler *handlers.AdminHandler,
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
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/projects", projectHandler.List)
	api.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", authHandler.Me)

		// Проекты. /projects/my раньше /projects/:id, иначе gin примет
		// "my" за идентификатор.
		protected.GET("/projects/my", projectHandler.ListMy)
		protected.POST("/projects", middleware.RequireRole(models.RoleClient, models.RoleAdmin), projectHandler.Create)
		protected.POST("/projects/:id/checklist", middleware.UUIDValidator("id"), projectHandler.AddChecklistItem)
		protected.PATCH("/projects/:id/checklist", middleware.UUIDValidator("id"), projectHandler.SetChecklistItem)
		protected.POST("/projects/:id/cancel", middleware.UUIDValidator("id"), projectHandler.Cancel)

		// Отклики
		protected.GET("/bids/my", bidHandler.ListMy)
		protected.POST("/projects/:id/bids", middleware.UUIDValidator("id"), middleware.RequireRole(models.RoleContractor), bidHandler.Place)
		protected.GET("/projects/:id/bids", middleware.UUIDValidator("id"), bidHandler.ListForProject)
		protected.POST("/bids/:id/accept", middleware.UUIDValidator("id"), contractHandler.AcceptBid)

		// Контракты
		protected.GET("/contracts/my", contractHandler.ListMy)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.Get)
		protected.POST("/contracts/:id/submit", middleware.UUIDValidator("id"), contractHandler.SubmitWork)
		protected.POST("/contracts/:id/release", middleware.UUIDValidator("id"), contractHandler.ReleasePayment)
		protected.GET("/contracts/:id/invoice", middleware.UUIDValidator("id"), contractHandler.Invoice)

		// Споры. Открытие и загрузка доказательств под rate limit:
		// обе операции пишут на диск или замораживают контракт.
		disputeRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		protected.POST("/disputes", disputeRateLimit, disputeHandler.Open)
		protected.GET("/disputes/my", disputeHandler.ListMy)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)
		protected.POST("/disputes/:id/evidence", middleware.UUIDValidator("id"), disputeRateLimit, disputeHandler.UploadEvidence)

		// Кошелёк
		protected.GET("/wallet/balance", walletHandler.GetBalance)
		protected.POST("/wallet/deposit", walletHandler.Deposit)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)

		// Уведомления
		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread", notificationHandler.CountUnread)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	// Арбитраж
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.PUT("/users/:id/ban", middleware.UUIDValidator("id"), adminHandler.BanUser)
		admin.GET("/disputes", disputeHandler.ListOpen)
		admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), disputeHandler.MarkUnderReview)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
	}

	return r
}
