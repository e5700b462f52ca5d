package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	invoiceapp "github.com/erp/acquisitions/internal/application/invoice"
	"github.com/erp/acquisitions/internal/application/workflow"
	"github.com/erp/acquisitions/internal/infrastructure/cache"
	"github.com/erp/acquisitions/internal/infrastructure/client"
	"github.com/erp/acquisitions/internal/infrastructure/config"
	"github.com/erp/acquisitions/internal/infrastructure/logger"
	"github.com/erp/acquisitions/internal/infrastructure/persistence"
	"github.com/erp/acquisitions/internal/interfaces/http/handler"
	"github.com/erp/acquisitions/internal/interfaces/http/middleware"
	"github.com/erp/acquisitions/internal/interfaces/http/router"
)

//	@title			Acquisitions Invoice API
//	@version		1.0
//	@description	Invoice financial transaction workflow service: fund distribution expansion, budget validation and ledger transaction management.

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/acquisitions

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting acquisitions service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)

	// Initialize finance record store clients
	recordStore, err := client.NewRecordStore(&client.Config{
		BaseURL:        cfg.Finance.BaseURL,
		Token:          cfg.Finance.Token,
		TimeoutSeconds: cfg.Finance.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal("Failed to initialize finance record store client", zap.Error(err))
	}
	fundClient := client.NewFundClient(recordStore)
	ledgerClient := client.NewLedgerClient(recordStore)
	budgetClient := client.NewBudgetClient(recordStore)
	fiscalYearClient := client.NewFiscalYearClient(recordStore)
	expenseClassClient := client.NewExpenseClassClient(recordStore)
	transactionClient := client.NewTransactionClient(recordStore)
	summaryClient := client.NewSummaryClient(recordStore)
	exchangeRateClient := client.NewExchangeRateClient(recordStore)

	// Exchange rate caching: Redis when available, in-memory otherwise
	rateCacheFactory := cache.NewRateCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.ExchangeRate.RequireRedis),
	)
	rateCache, err := rateCacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to initialize exchange rate cache", zap.Error(err))
	}
	rateProvider := cache.NewCachingRateProvider(exchangeRateClient, rateCache, cfg.ExchangeRate.CacheTTL, log)

	// Assemble the transaction workflow engine
	conversions := workflow.NewConversionResolver(rateProvider, log)
	enricher := workflow.NewEnricher(
		fundClient,
		ledgerClient,
		budgetClient,
		fiscalYearClient,
		expenseClassClient,
		transactionClient,
		conversions,
		log,
	)
	validator := workflow.NewBudgetValidator(log)
	pendingPayments := workflow.NewPendingPaymentService(transactionClient, summaryClient, log)
	paymentsCredits := workflow.NewPaymentCreditService(transactionClient, summaryClient, log)
	encumbrances := workflow.NewEncumbranceReconciler(transactionClient, log)
	engine := workflow.NewEngine(
		enricher,
		validator,
		pendingPayments,
		paymentsCredits,
		encumbrances,
		transactionClient,
		log,
	)

	// Initialize application services
	invoiceService := invoiceapp.NewService(invoiceRepo, engine, log)

	// Initialize HTTP handlers
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	ginEngine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Timeout - Per-request deadline on the context
	// 8. RateLimit - Apply rate limiting (if enabled)
	ginEngine.Use(middleware.RequestID())
	ginEngine.Use(logger.Recovery(log))
	ginEngine.Use(logger.GinMiddleware(log, logger.WithSkipPaths("/health")))
	ginEngine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	ginEngine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit and per-request deadline
	ginEngine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	ginEngine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		ginEngine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	router.HealthCheck(ginEngine, db.Ping)

	// Register API routes
	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"))
	r.Register(router.InvoiceRoutes(invoiceHandler)).
		Register(router.SystemRoutes(systemHandler))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
