package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kabir-17/schoolmanagement-sub003/docs" // Swagger docs
	"github.com/Kabir-17/schoolmanagement-sub003/internal/config"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/database"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/handlers"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/jobs"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/middleware"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/models"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/repository"
	"github.com/Kabir-17/schoolmanagement-sub003/internal/services"
	"github.com/Kabir-17/schoolmanagement-sub003/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title School Fee Accounting API
// @version 1.0
// @description REST API for multi-tenant school fee accounting

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(db, repos, cfg)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, repos, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

// scheduleJobs wires the periodic defaulter resync and the reminder sweep.
// The resync runs immediately at startup so the derived list is fresh after a
// restart instead of waiting a full interval.
func scheduleJobs(worker *jobs.Worker, svcs *services.Services, repos *repository.Repositories, cfg *config.Config) {
	syncInterval := time.Duration(cfg.DefaulterSyncMinutes) * time.Minute

	worker.ScheduleEveryImmediate(syncInterval, func(ctx context.Context) error {
		academicYear := models.CurrentAcademicYear(time.Now(), cfg.AcademicYearStartMonth)
		schools, err := repos.School.ListActive(ctx)
		if err != nil {
			return err
		}
		for _, school := range schools {
			if _, err := svcs.Defaulter.SyncDefaultersForSchool(ctx, school.ID, academicYear); err != nil {
				logger.Error("Defaulter sync failed",
					"school_id", school.ID,
					"error", err)
			}
		}
		return nil
	})

	worker.ScheduleEvery(24*time.Hour, func(ctx context.Context) error {
		_, err := svcs.Defaulter.SendDueReminders(ctx)
		return err
	})
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Redirect root to swagger
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})

		// Swagger documentation
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			protected.GET("/auth/me", h.Auth.Me)

			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				// Fee structure management
				admin.POST("/fee-structures", h.Structure.Create)
				admin.PUT("/fee-structures/:structure_id", h.Structure.Update)
				admin.POST("/fee-structures/:structure_id/deactivate", h.Structure.Deactivate)
				admin.POST("/fee-structures/:structure_id/clone", h.Structure.Clone)

				// Waivers and cancellations
				admin.POST("/collections/waive", h.Collection.Waive)
				admin.POST("/collections/batch-waive", h.Collection.BatchWaive)
				admin.POST("/transactions/:transaction_id/cancel", h.Transaction.Cancel)

				// Defaulter administration
				admin.POST("/defaulters/sync", h.Defaulter.Sync)

				// Fraud advisory
				admin.GET("/fraud/check", h.Fraud.Check)

				// Audit trail
				admin.GET("/audit", h.Audit.Index)
			}

			// Admin + accountant routes (day-to-day collection work)
			staff := protected.Group("")
			staff.Use(middleware.RequireRole(models.RoleAdmin, models.RoleAccountant))
			{
				// Fee structure viewing
				staff.GET("/fee-structures", h.Structure.Index)
				staff.GET("/fee-structures/:structure_id", h.Structure.Show)

				// Student fee records
				staff.POST("/fee-records", h.Record.Create)
				staff.GET("/fee-records/:record_id", h.Record.Show)
				staff.GET("/students/:student_id/fee-status", h.Record.StudentFeeStatus)

				// Collections
				staff.POST("/collections/validate", h.Collection.Validate)
				staff.POST("/collections", h.Collection.Collect)

				// Transactions
				staff.GET("/transactions", h.Transaction.Index)
				staff.GET("/transactions/export", h.Transaction.ExportCSV)
				staff.GET("/transactions/:transaction_id", h.Transaction.Show)
				staff.GET("/transactions/:transaction_id/receipt", h.Transaction.Receipt)

				// Defaulters
				staff.GET("/defaulters", h.Defaulter.Index)
				staff.GET("/defaulters/export", h.Defaulter.Export)
				staff.POST("/defaulters/:defaulter_id/remind", h.Defaulter.Remind)

				// Reports
				staff.GET("/reports/overview", h.Report.Overview)
				staff.GET("/reports/overview/export", h.Report.ExportOverview)
				staff.GET("/reports/daily-collections", h.Report.DailyCollections)
			}

			// All authenticated users
			protected.GET("/notifications", h.Notification.Index)
			protected.POST("/notifications/:notification_id/read", h.Notification.MarkRead)
			protected.POST("/notifications/read-all", h.Notification.MarkAllRead)
		}
	}

	return router
}
