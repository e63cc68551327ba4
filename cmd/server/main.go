package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/propelhq/propel-backend/internal/config"
	"github.com/propelhq/propel-backend/internal/db"
	httpHandlers "github.com/propelhq/propel-backend/internal/http/handlers"
	httpRouter "github.com/propelhq/propel-backend/internal/http/router"
	"github.com/propelhq/propel-backend/internal/logger"
	"github.com/propelhq/propel-backend/internal/mail"
	"github.com/propelhq/propel-backend/internal/repository"
	"github.com/propelhq/propel-backend/internal/service"
	"github.com/propelhq/propel-backend/internal/storage"
	"github.com/propelhq/propel-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidenceStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		mailer = mail.NewLogMailer()
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	contractRepo := repository.NewContractRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	walletRepo := repository.NewWalletRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo)
	projectService := service.NewProjectService(projectRepo)
	bidService := service.NewBidService(bidRepo, projectRepo)
	contractService := service.NewContractService(contractRepo, bidRepo, projectRepo, userRepo, mailer)
	disputeService := service.NewDisputeService(disputeRepo, contractRepo, contractService)
	walletService := service.NewWalletService(walletRepo)
	adminService := service.NewAdminService(userRepo, userRepo, projectRepo, disputeRepo)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run()

	// Сервисы рассылают события о жизненном цикле контрактов через hub.
	bidService.SetHub(hub)
	contractService.SetHub(hub)
	disputeService.SetHub(hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	projectHandler := httpHandlers.NewProjectHandler(projectService)
	bidHandler := httpHandlers.NewBidHandler(bidService)
	contractHandler := httpHandlers.NewContractHandler(contractService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService, evidenceStorage)
	walletHandler := httpHandlers.NewWalletHandler(walletService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	adminHandler := httpHandlers.NewAdminHandler(adminService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, projectHandler, bidHandler, contractHandler, disputeHandler, walletHandler, notificationHandler, adminHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
