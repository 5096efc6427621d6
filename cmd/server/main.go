package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"healthcare_app_echo/internal/config"
	"healthcare_app_echo/internal/handlers"
	appMiddleware "healthcare_app_echo/internal/middleware"
	"healthcare_app_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Database
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = services.InitDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := services.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
	} else {
		log.Fatal("DATABASE_URL not set")
	}

	// Initialize Redis (optional; OTP login and caching degrade without it)
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
		}
	} else {
		log.Println("Warning: REDIS_URL not set, caching and OTP login disabled")
	}

	// Initialize Firebase for OAuth sign-in
	authClient, err := services.InitFirebase(cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("OAuth sign-in will not work until valid credentials are provided")
	}

	emailService := services.NewEmailService(cfg.SMTP)
	gateway := services.NewPhonePeService(cfg.PhonePe)
	paymentService := services.NewPaymentService(db, cache, gateway, cfg)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cache, emailService, authClient, cfg)
	doctorHandler := handlers.NewDoctorHandler(db, cache)
	appointmentHandler := handlers.NewAppointmentHandler(db, emailService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Auth routes
	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/verify-otp", authHandler.VerifyOTP)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password/:token", authHandler.ResetPassword)
	authGroup.POST("/oauth", authHandler.OAuthLogin)

	// Doctor discovery is public
	e.GET("/api/doctors", doctorHandler.List)
	e.GET("/api/search", doctorHandler.Search)

	// Gateway server-to-server callback must not require a session
	e.POST("/api/payment/callback", paymentHandler.Callback)

	// Protected routes
	protected := e.Group("/api", appMiddleware.RequireAuth(cfg.JWTSecret))
	protected.POST("/appointments/book", appointmentHandler.Book)
	protected.GET("/appointments", appointmentHandler.List)
	protected.DELETE("/appointments/:id", appointmentHandler.Cancel)
	protected.POST("/payment/initiate", paymentHandler.Initiate)

	log.Printf("Server starting on port %s", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
