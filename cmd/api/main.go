package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/azs-pg/ilawa-courses-api/api/swagger"
	"github.com/azs-pg/ilawa-courses-api/internal/handler"
	"github.com/azs-pg/ilawa-courses-api/internal/middleware"
	"github.com/azs-pg/ilawa-courses-api/internal/models"
	"github.com/azs-pg/ilawa-courses-api/internal/ranking"
	"github.com/azs-pg/ilawa-courses-api/internal/repository"
	"github.com/azs-pg/ilawa-courses-api/internal/service"
	"github.com/azs-pg/ilawa-courses-api/pkg/cache"
	"github.com/azs-pg/ilawa-courses-api/pkg/config"
	"github.com/azs-pg/ilawa-courses-api/pkg/database"
	"github.com/azs-pg/ilawa-courses-api/pkg/export"
	"github.com/azs-pg/ilawa-courses-api/pkg/logger"
	corsmiddleware "github.com/azs-pg/ilawa-courses-api/pkg/middleware/cors"
	reqidmiddleware "github.com/azs-pg/ilawa-courses-api/pkg/middleware/requestid"
	"github.com/azs-pg/ilawa-courses-api/pkg/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// @title Iława Courses API
// @version 1.0.0
// @description Sailing course enrollment service for the Iława training centre
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, course list caching disabled", "error", err)
		redisClient = nil
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	ranker := ranking.NewEngine(nil, nil)
	exporter := export.NewPDFExporter()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "ilawa-courses-api",
	})
	courseSvc := service.NewCourseService(courseRepo, cacheRepo, cfg.Courses.CacheTTL, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(registrationRepo, courseRepo, userRepo, ranker, validate, logr)
	userSvc := service.NewUserService(userRepo, registrationRepo, courseRepo, exporter, validate, logr)
	paymentSvc := service.NewPaymentService(userRepo, registrationRepo, uploadStore, nil, cfg.Payment.ReferenceCode, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	userHandler := handler.NewUserHandler(userSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, cfg.Uploads.MaxFileSizeBytes)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/login", authHandler.Login)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.GET("/:id/instructors", enrollmentHandler.ListInstructors)
	}

	adminCourses := authed.Group("/courses")
	adminCourses.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		adminCourses.POST("", courseHandler.Create)
		adminCourses.PUT("/:id", courseHandler.Update)
		adminCourses.DELETE("/:id", courseHandler.Delete)
		adminCourses.POST("/:id/form-templates", courseHandler.SetTemplate)
	}

	enrollments := authed.Group("/courses/:id")
	{
		enrollments.POST("/registrations", enrollmentHandler.Register)
		enrollments.DELETE("/registrations", enrollmentHandler.Unregister)
		enrollments.PUT("/registrations", enrollmentHandler.UpdateRegistration)
		enrollments.GET("/registrations/summary.pdf", userHandler.RegistrationSummary)
		enrollments.POST("/instructors", enrollmentHandler.EnrollInstructor)
		enrollments.POST("/instructors/half-day", enrollmentHandler.EnrollInstructorHalfDay)
		enrollments.POST("/payment-confirmations", paymentHandler.ValidateConfirmation)
	}

	api.GET("/users/:id", userHandler.Get)

	users := authed.Group("/users")
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateMe)
		users.GET("/me/registration-forms", userHandler.MyRegistrationForms)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
