package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/adapters/http/routes"
	"collections-console/internal/adapters/persistence/kvstore"
	"collections-console/internal/adapters/persistence/models"
	"collections-console/internal/adapters/persistence/repositories"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/config"
	"collections-console/internal/core/services"
	"collections-console/internal/obs"

	"github.com/gofiber/fiber/v2"

	_ "collections-console/docs" // Swagger docs
)

// @title Collections Console API
// @version 1.0
// @description Staff console for loan collections: customers, follow-up notes, M-Pesa payment prompts and exports.

// @contact.name API Support

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the console token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	obs.Init()

	// Local store for sessions and the comment cache
	store, err := kvstore.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("❌ Failed to open local store: %v", err)
	}
	defer store.Close()

	// Optional notification audit database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	var notificationLogs repositories.NotificationLogRepository
	if db != nil {
		if err := models.AutoMigrate(db); err != nil {
			log.Fatalf("❌ Failed to auto migrate: %v", err)
		}
		log.Println("✅ Database migration completed")
		notificationLogs = repositories.NewNotificationLogRepository(db)
	} else {
		notificationLogs = repositories.NewMemoryNotificationLogRepository()
	}

	api := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
	log.Printf("✅ Collections API at %s", cfg.Upstream.BaseURL)

	// Services
	sessionService := services.NewSessionService(api, kvstore.NewSessionStore(store), cfg)
	commentService := services.NewCommentService(api, kvstore.NewCommentCache(store), cfg.Reconcile.MaxAttempts, cfg.Reconcile.NoticeTTL)
	notificationService := services.NewNotificationService(cfg.WhatsApp, notificationLogs)
	sessionService.OnEnd(func(sessionID string) { commentService.DropSession(sessionID) })

	svc := &routes.Services{
		Sessions:      sessionService,
		Dashboard:     services.NewDashboardService(api),
		Customers:     services.NewCustomerService(api, commentService),
		Transactions:  services.NewTransactionService(api),
		Reports:       services.NewReportService(api),
		Payments:      services.NewPaymentService(api, notificationService, cfg.Payment.RefreshDelay),
		Notifications: notificationService,
		Store:         store,
	}

	// Background reconcile and arrears reminders
	var reminders services.ReminderSender
	if notificationService.IsEnabled() {
		reminders = notificationService
	}
	cronService := services.NewCronService(cfg, sessionService, commentService, api, reminders)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Collections Console v1.0",
		ErrorHandler: middleware.NewErrorHandler(sessionService, cfg),
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, svc, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
