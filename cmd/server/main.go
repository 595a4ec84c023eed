package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/homenest/booking-backend/internal/cache"
	"github.com/homenest/booking-backend/internal/config"
	"github.com/homenest/booking-backend/internal/database"
	"github.com/homenest/booking-backend/internal/events"
	"github.com/homenest/booking-backend/internal/handlers"
	"github.com/homenest/booking-backend/internal/middleware"
	"github.com/homenest/booking-backend/internal/services"
	"github.com/homenest/booking-backend/pkg/jwt"
	"github.com/homenest/booking-backend/pkg/payment"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting HomeNest Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Transactional repositories need *sqlx.DB, not the DB interface
	sqlxDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	// Initialize Redis-backed agent cache (optional; listings fall
	// through to Postgres without it)
	var agentCache *cache.AgentCache
	agentCache, err = cache.NewAgentCache(cfg.Redis, cfg.Booking.AgentCacheTTL, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, agent listing cache disabled")
		agentCache = nil
	} else {
		defer agentCache.Close()
		logger.Info("Agent cache connected")
	}

	// Initialize event publisher
	var publisher events.Publisher
	if cfg.Queue.URL != "" {
		publisher = events.NewAMQPPublisher(cfg.Queue.URL, logger)
		logger.Info("Booking event publisher enabled")
	} else {
		publisher = events.NewNoopPublisher(logger)
		logger.Info("No RABBITMQ_URL configured, booking events disabled")
	}
	defer publisher.Close()

	// Initialize payment gateway
	var gateway payment.Gateway
	if cfg.Payment.Mode == "production" {
		logger.Info("Initializing UPI gateway in production mode...")
		gateway = payment.NewUPIGateway(payment.UPIConfig{
			APIURL:      cfg.Payment.APIURL,
			APIKey:      cfg.Payment.APIKey,
			MerchantVPA: cfg.Payment.MerchantVPA,
			Timeout:     cfg.Payment.RequestTimeout,
		})
	} else {
		logger.Info("Payment gateway in development mode (intents auto-settle)")
		gateway = payment.NewStubGateway()
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	bookingRepo := database.NewBookingRepository(sqlxDB.DB)
	paymentRepo := database.NewPaymentRepository(sqlxDB.DB)
	agentRepo := database.NewAgentRepository(db)
	adminUserRepo := database.NewAdminUserRepository(db)
	auditRepo := database.NewAuditLogRepository(sqlxDB.DB, logger)

	auditService := services.NewAuditService(auditRepo, cfg.Security.EnableAuditLog, logger)
	paymentService := services.NewPaymentService(
		paymentRepo,
		bookingRepo,
		gateway,
		publisher,
		services.PaymentServiceConfig{
			GatewayTimeout:  cfg.Payment.RequestTimeout,
			MinLeadTime:     cfg.Booking.MinLeadTime,
			PayLaterDueDays: cfg.Booking.PayLaterDueDays,
		},
		logger,
	)
	bookingService := services.NewBookingService(
		bookingRepo,
		agentRepo,
		agentCache,
		publisher,
		cfg.Booking.MinLeadTime,
		logger,
	)
	adminAuthService := services.NewAdminAuthService(adminUserRepo, jwtService, logger)
	logger.Info("Services initialized")

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService, auditService)
	bookingHandler := handlers.NewBookingHandler(bookingService, auditService)
	adminHandler := handlers.NewAdminHandler(bookingService, auditService)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Checkout surface (customers)
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(middleware.RoleCustomer))
		{
			payments.POST("/qr", paymentHandler.CreateQRPayment)
			payments.POST("/verify", paymentHandler.VerifyPayment)
		}

		orders := v1.Group("/orders")
		orders.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(middleware.RoleCustomer))
		{
			orders.POST("/pay-later", paymentHandler.CreatePayLaterOrder)
		}

		// Customer booking surface
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(middleware.RoleCustomer))
		{
			bookings.GET("", bookingHandler.MyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/reschedule", bookingHandler.RescheduleBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
		}

		// Admin surface
		admin := v1.Group("/admin")
		{
			admin.POST("/login", adminAuthHandler.Login)

			adminProtected := admin.Group("")
			adminProtected.Use(middleware.AuthMiddleware(jwtService), middleware.RequireRole(middleware.RoleAdmin))
			{
				adminProtected.GET("/bookings/pending", adminHandler.ListPendingBookings)
				adminProtected.GET("/agents/available", adminHandler.ListAvailableAgents)
				adminProtected.POST("/bookings/:id/assign-agent", adminHandler.AssignAgent)
				adminProtected.POST("/bookings/:id/cancel", adminHandler.CancelBooking)
				adminProtected.POST("/bookings/:id/complete", adminHandler.CompleteBooking)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			if status >= 500 {
				entry.Error("Request completed with server error")
			} else if status >= 400 {
				entry.Warn("Request completed with client error")
			} else {
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
