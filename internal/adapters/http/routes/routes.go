package routes

import (
	"time"

	"collections-console/internal/adapters/http/handlers"
	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/config"
	"collections-console/internal/core/services"
	"collections-console/internal/obs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Services bundles everything the HTTP layer depends on
type Services struct {
	Sessions      *services.SessionService
	Dashboard     *services.DashboardService
	Customers     *services.CustomerService
	Transactions  *services.TransactionService
	Reports       *services.ReportService
	Payments      *services.PaymentService
	Notifications *services.NotificationService
	Store         handlers.Pinger
}

// Setup configures all routes for the application
func Setup(app *fiber.App, svc *Services, cfg *config.Config) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(svc.Store, cfg)
	authHandler := handlers.NewAuthHandler(svc.Sessions, cfg)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard)
	customerHandler := handlers.NewCustomerHandler(svc.Customers)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions)
	reportHandler := handlers.NewReportHandler(svc.Reports)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifications)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", obs.Handler())

	// Swagger documentation
	app.Get("/swagger/*", middleware.CacheControl(10*time.Minute), swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1", middleware.NoStore())
	apiV1.Get("/", healthHandler.APIInfo)

	auth := middleware.AuthMiddleware(svc.Sessions)

	// Auth routes
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/logout", middleware.OptionalAuth(svc.Sessions), authHandler.Logout)
	authRoutes.Get("/me", auth, authHandler.Me)

	// Dashboard routes
	apiV1.Get("/dashboard", auth, dashboardHandler.GetDashboard)

	// Customer routes
	customerRoutes := apiV1.Group("/customers", auth)
	customerRoutes.Get("/", customerHandler.List)
	customerRoutes.Get("/:id", customerHandler.Details)
	customerRoutes.Get("/:id/comments", customerHandler.Comments)
	customerRoutes.Post("/:id/comments", customerHandler.AddComment)
	customerRoutes.Post("/:id/comments/reconcile", customerHandler.Reconcile)
	customerRoutes.Get("/:id/statement", customerHandler.Statement)

	// Transaction routes
	transactionRoutes := apiV1.Group("/transactions", auth)
	transactionRoutes.Get("/", transactionHandler.List)
	transactionRoutes.Get("/export", transactionHandler.Export)

	// Report routes (export is Supervisor/Admin only)
	reportRoutes := apiV1.Group("/reports", auth)
	reportRoutes.Get("/summary", reportHandler.Summary)
	reportRoutes.Get("/export", middleware.SupervisorOrAdmin(), reportHandler.Export)

	// Payment routes
	paymentRoutes := apiV1.Group("/payments", auth)
	paymentRoutes.Post("/initiate", middleware.StrictRateLimiter(), paymentHandler.Initiate)
	paymentRoutes.Post("/receipt", paymentHandler.SendReceipt)

	// Notification log (Supervisor/Admin only)
	apiV1.Get("/notifications", auth, middleware.SupervisorOrAdmin(), notificationHandler.List)
}
