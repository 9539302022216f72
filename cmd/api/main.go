package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giftcanvas-api/internal/config"
	"giftcanvas-api/internal/handler"
	"giftcanvas-api/internal/livefeed"
	"giftcanvas-api/internal/middleware"
	"giftcanvas-api/internal/realtime"
	"giftcanvas-api/internal/repository"
	"giftcanvas-api/internal/router"
	"giftcanvas-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting GiftCanvas API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Redis is the system of record for logs, the gift ledger, job
	// queues and account records. Without it nothing works.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("Redis connection failed: %v", err)
	}
	cancel()
	log.Println("Redis client initialized")

	// Initialize MySQL connection for activation keys (optional)
	var mysqlDB *sql.DB
	var activationRepo *repository.MySQLActivationRepository

	mysqlDB, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		log.Printf("Warning: MySQL connection failed: %v", err)
	} else {
		mysqlDB.SetMaxOpenConns(10)
		mysqlDB.SetMaxIdleConns(5)
		mysqlDB.SetConnMaxLifetime(5 * time.Minute)

		if err := mysqlDB.Ping(); err != nil {
			log.Printf("Warning: MySQL ping failed: %v", err)
			mysqlDB.Close()
			mysqlDB = nil
		} else {
			activationRepo = repository.NewMySQLActivationRepository(mysqlDB)
			log.Println("MySQL activation repository initialized")
		}
	}
	if mysqlDB != nil {
		defer mysqlDB.Close()
	}

	// Initialize the completed-job archive (optional)
	var archiveRepo repository.JobArchiveRepository
	var cleanup *service.CleanupScheduler

	sqliteArchive, err := repository.NewSQLiteJobArchiveRepository(cfg.Archive.Path)
	if err != nil {
		log.Printf("Warning: job archive initialization failed: %v", err)
	} else {
		defer sqliteArchive.Close()
		archiveRepo = sqliteArchive
		log.Println("SQLite job archive initialized")

		cleanup = service.NewCleanupScheduler(archiveRepo, service.CleanupConfig{
			RetentionPeriod: cfg.Archive.RetentionPeriod,
			Interval:        cfg.Archive.RetentionInterval,
		})
		cleanup.Start()
	}

	// Initialize repositories
	logRepo := repository.NewRedisEventLogRepository(redisClient)
	ledgerRepo := repository.NewRedisGiftLedgerRepository(redisClient)
	queueRepo := repository.NewRedisJobQueueRepository(redisClient)
	accountRepo := repository.NewRedisAccountRepository(redisClient)

	// In-process fanout for SSE dashboards
	hub := realtime.NewHub()

	// Live-connection provider
	provider, err := livefeed.NewProvider(cfg.Listener.Provider)
	if err != nil {
		log.Fatalf("Livefeed provider: %v", err)
	}
	log.Printf("Livefeed provider initialized: %s", cfg.Listener.Provider)

	// Initialize services
	logService := service.NewEventLogService(logRepo, hub)
	listenerService := service.NewListenerService(provider, ledgerRepo, queueRepo, logService, hub, cfg.Listener.ConnectTimeout)
	processor := service.SimulatedProcessor{Delay: cfg.Worker.ProcessDelay}
	consumer := service.NewQueueConsumer(queueRepo, archiveRepo, logService, processor, cfg.Worker.PopWait)
	manager := service.NewWorkerManager(listenerService, consumer, logService, hub)
	accountService := service.NewAccountService(accountRepo, queueRepo, ledgerRepo, archiveRepo, manager)
	notifier := service.NewNotifier(logService)
	tokenService := service.NewTokenService(redisClient)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version)
	accountHandler := handler.NewAccountHandler(accountService, manager, logService, notifier)
	eventsHandler := handler.NewEventsHandler(accountService, hub)

	var authHandler *handler.AuthHandler
	if activationRepo != nil {
		authHandler = handler.NewAuthHandler(tokenService, activationRepo)
	}

	// Create auth middleware with injected dependencies (NO GLOBALS!)
	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		TokenService: tokenService,
	})

	// Create router
	r := router.New(router.Config{
		Handler:        healthHandler,
		AccountHandler: accountHandler,
		AuthHandler:    authHandler,
		EventsHandler:  eventsHandler,
		AuthMiddleware: authMiddleware,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop the pipelines first so consumers finish their in-flight job.
	manager.StopAll(shutdownCtx)

	if cleanup != nil {
		cleanup.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
