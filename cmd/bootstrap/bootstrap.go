package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthcare-booking-service/config"
	deliveryHttp "healthcare-booking-service/internal/delivery/http"
	"healthcare-booking-service/internal/delivery/http/handler"
	"healthcare-booking-service/internal/delivery/http/middleware"
	"healthcare-booking-service/internal/infrastructure/cache"
	"healthcare-booking-service/internal/infrastructure/database"
	"healthcare-booking-service/internal/infrastructure/messaging"
	"healthcare-booking-service/internal/repository"
	"healthcare-booking-service/internal/scheduler"
	"healthcare-booking-service/internal/service"
	"healthcare-booking-service/internal/usecase"
	"healthcare-booking-service/pkg/jwt"
	"healthcare-booking-service/pkg/validator"

	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	AMQP        *amqp091.Connection
	Scheduler   *scheduler.Scheduler
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	if level, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("Unknown LOG_LEVEL %q, keeping info", cfg.App.LogLevel)
	}
	logrus.Info("Configuration loaded successfully")

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.App.Timezone, err)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize notification sink
	log := logrus.StandardLogger()
	publisher, err := app.setupPublisher(cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}

	// Initialize all layers
	server, sched := initializeServer(cfg, db, redisClient, publisher, loc, log)
	app.Server = server
	app.Scheduler = sched

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// setupPublisher connects to RabbitMQ, or logs events when no broker is configured.
func (app *App) setupPublisher(cfg *config.Config, log *logrus.Logger) (service.NotificationPublisher, error) {
	if cfg.RabbitMQ.URL == "" {
		log.Warn("RABBITMQ_URL not set, notification events will only be logged")
		return service.NewLogPublisher(log), nil
	}

	conn, err := messaging.NewRabbitMQConnection(cfg.RabbitMQ)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	app.AMQP = conn

	publisher, err := service.NewRabbitPublisher(conn, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	log.Info("RabbitMQ connected successfully")
	return publisher, nil
}

// initializeServer creates and configures the HTTP server and the background sweeps
func initializeServer(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	publisher service.NotificationPublisher,
	loc *time.Location,
	log *logrus.Logger,
) (*http.Server, *scheduler.Scheduler) {
	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	availabilityRepo := repository.NewAvailabilityRepository()
	bookedSlotRepo := repository.NewBookedSlotRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	paymentRepo := repository.NewPaymentRepository()
	earningRepo := repository.NewUpcomingEarningRepository()
	walletRepo := repository.NewWalletRepository()
	transactionRepo := repository.NewTransactionRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	clock := service.Clock(service.SystemClock)
	auditService := service.NewAuditService(log, auditLogRepo)
	slotCache := service.NewSlotCache(redisClient, cfg.Redis.SlotCacheTTL, log)
	escrowService := service.NewEscrowService(log, walletRepo, earningRepo, transactionRepo, cfg.Escrow.DefaultCommissionRate)

	var gateway service.PaymentGateway
	if cfg.Gateway.BaseURL != "" {
		gateway = service.NewHTTPPaymentGateway(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout)
	} else {
		log.Warn("PAYMENT_GATEWAY_BASE_URL not set, refunds are recorded without a gateway call")
		gateway = service.NewOfflinePaymentGateway()
	}

	// Initialize usecases
	availabilityUsecase := usecase.NewAvailabilityUsecase(db, log, availabilityRepo, bookedSlotRepo, auditService, slotCache)
	paymentUsecase := usecase.NewPaymentUsecase(db, log, paymentRepo, appointmentRepo, earningRepo, transactionRepo,
		escrowService, gateway, auditService, publisher, cfg.Escrow, loc, clock)
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, appointmentRepo, paymentRepo, doctorProfileRepo,
		availabilityUsecase, paymentUsecase, auditService, publisher, cfg.Booking, loc, clock)
	walletUsecase := usecase.NewWalletUsecase(db, log, walletRepo, transactionRepo, earningRepo,
		escrowService, auditService, publisher, clock)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize handlers
	availabilityHandler := handler.NewAvailabilityHandler(availabilityUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	paymentHandler := handler.NewPaymentHandler(paymentUsecase, customValidator)
	walletHandler := handler.NewWalletHandler(walletUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, redisClient, log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins...)

	// Initialize router
	router := deliveryHttp.NewRouter(availabilityHandler, appointmentHandler, paymentHandler, walletHandler,
		auditLogHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Background sweeps
	sched := scheduler.New(log, redisClient, loc,
		scheduler.Job{Name: "appointment-cleanup", Spec: cfg.Booking.CleanupSchedule, Run: appointmentUsecase.CleanupExpiredPending},
		scheduler.Job{Name: "escrow-release", Spec: cfg.Escrow.ReleaseSchedule, Run: paymentUsecase.ReleaseDueEarnings},
		scheduler.Job{Name: "refund-retry", Spec: cfg.Escrow.RefundRetrySchedule, Run: paymentUsecase.RetryCancelledRefunds},
	)

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}, sched
}

// Run starts the HTTP server and the sweeps, and handles graceful shutdown
func (app *App) Run() {
	if err := app.Scheduler.Start(context.Background()); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Let running sweeps finish
	app.Scheduler.Stop()

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, rabbitmq)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}

	// Close RabbitMQ connection
	if app.AMQP != nil {
		app.AMQP.Close()
	}
}
