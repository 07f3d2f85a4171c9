// Package main runs the funnel HTTP server with graceful shutdown.
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
	"go.uber.org/zap/zapcore"

	"github.com/inkwell-funnel/backend/config"
	"github.com/inkwell-funnel/backend/internal/analytics"
	"github.com/inkwell-funnel/backend/internal/auth"
	"github.com/inkwell-funnel/backend/internal/emaillogs"
	"github.com/inkwell-funnel/backend/internal/entitlements"
	"github.com/inkwell-funnel/backend/internal/leads"
	"github.com/inkwell-funnel/backend/internal/middleware"
	"github.com/inkwell-funnel/backend/internal/payments"
	"github.com/inkwell-funnel/backend/internal/registrations"
	"github.com/inkwell-funnel/backend/internal/schedule"
	"github.com/inkwell-funnel/backend/internal/webinarevents"
	"github.com/inkwell-funnel/backend/internal/workbooks"
	"github.com/inkwell-funnel/backend/pkg/database"
	"github.com/inkwell-funnel/backend/pkg/queue"
	"github.com/inkwell-funnel/backend/pkg/redis"
	"github.com/inkwell-funnel/backend/pkg/response"
	"github.com/inkwell-funnel/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			WorkbooksBucket:      cfg.AWS.WorkbooksBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Webinar events
	eventRepo := webinarevents.NewRepository(pool)
	eventHandler := webinarevents.NewHandler(eventRepo, logger)

	// Email scheduling
	scheduleRepo := schedule.NewRepository(pool)
	scheduler := schedule.NewService(scheduleRepo, logger)

	// Entitlements (access gate)
	entitlementRepo := entitlements.NewRepository(pool)
	accessGate := entitlements.NewService(entitlementRepo, logger)
	entitlementHandler := entitlements.NewHandler(accessGate, entitlementRepo, logger)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, eventRepo, authRepo, scheduler, logger)

	// Leads
	leadRepo := leads.NewRepository(pool)
	leadHandler := leads.NewHandler(leadRepo, logger)

	// Payments
	purchaseRepo := payments.NewRepository(pool)
	granter := payments.NewGranter(entitlementRepo, scheduler, jobQueue, logger)
	paymentHandler := payments.NewHandler(cfg.Stripe, eventRepo, purchaseRepo, authRepo, granter, logger)
	stripeWebhook := payments.NewWebhookHandler(cfg.Stripe.WebhookSecret, purchaseRepo, granter, logger)

	// Schedule trigger (internal automation)
	scheduleHandler := schedule.NewHandler(scheduler, scheduleRepo, entitlementRepo, jobQueue, logger)

	// Workbook assets (paywalled downloads)
	workbookRepo := workbooks.NewRepository(pool)
	workbookHandler := workbooks.NewHandler(workbookRepo, accessGate, s3Client, logger)

	// Email logs + analytics (admin)
	emailLogRepo := emaillogs.NewRepository(pool)
	emailLogHandler := emaillogs.NewHandler(emailLogRepo, scheduleRepo, jobQueue, logger)
	analyticsHandler := analytics.NewHandler(leadRepo, purchaseRepo, registrationRepo, eventRepo, emailLogRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public funnel surface
	router.POST("/leads", leadHandler.Capture)
	router.POST("/webinar/register", registrationHandler.Register)
	router.GET("/webinar/discount-status", eventHandler.DiscountStatus)
	router.POST("/payments/checkout", middleware.OptionalJWT(jwtService), paymentHandler.Checkout)
	router.POST("/payments/verify", paymentHandler.Verify)

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
	}

	// Webhooks (no JWT; signature validated in handler)
	router.POST("/webhooks/stripe", stripeWebhook.Handle)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/access/verify", entitlementHandler.Verify)
		api.GET("/access", entitlementHandler.ListMine)
		api.POST("/payments/claim", paymentHandler.Claim)
		api.GET("/workbooks/:product_type/download-url", workbookHandler.DownloadURL)
		api.GET("/emails/schedule", scheduleHandler.ListMine)
	}

	// Admin
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole("admin"))
	{
		admin.POST("/webinar-events", eventHandler.Create)
		admin.GET("/webinar-events", eventHandler.List)
		admin.POST("/webinar-events/:id/activate", eventHandler.Activate)
		admin.GET("/webinar-events/:id/registrations", registrationHandler.ListByEvent)
		admin.GET("/emails/logs", emailLogHandler.List)
		admin.POST("/emails/resend", emailLogHandler.Resend)
		admin.GET("/analytics", analyticsHandler.Summary)
		admin.POST("/workbooks/:product_type/asset", workbookHandler.UploadAsset)
	}

	// Internal automation (shared secret)
	internal := router.Group("/internal")
	internal.Use(middleware.InternalSecret(cfg.Internal.Secret))
	{
		internal.POST("/emails/schedule", scheduleHandler.Trigger)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
