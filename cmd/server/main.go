package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/config"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/db"
	httpHandlers "github.com/Adechukwu-ctrl/sha-pay-backend/internal/http/handlers"
	httpRouter "github.com/Adechukwu-ctrl/sha-pay-backend/internal/http/router"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/logger"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/repository/common"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/service"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/ws"
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
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init(cfg.LogLevel)
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

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	txRunner := common.NewSQLTxRunner(dbConn)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	jobRepo := repository.NewJobRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo, hub)
	paymentService := service.NewPaymentService(paymentRepo)
	escrowService := service.NewEscrowService(escrowRepo, paymentService)
	jobService := service.NewJobService(jobRepo, escrowService, txRunner, notificationService, cfg.FeeRateBps)
	disputeService := service.NewDisputeService(jobRepo, disputeRepo, escrowService, escrowService, txRunner, notificationService)

	// Фоновая отмена просроченных работ от имени системы.
	sweeper := service.NewDeadlineSweeper(jobService, cfg.SweepInterval)
	go sweeper.Run(ctx)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	jobHandler := httpHandlers.NewJobHandler(jobService, escrowService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, jobHandler, paymentHandler,
		disputeHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

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
