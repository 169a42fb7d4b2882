package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"scopehub/internal/caching"
	"scopehub/internal/config"
	"scopehub/internal/handlers"
	"scopehub/internal/jobs/background"
	"scopehub/internal/middleware"
	"scopehub/internal/repositories"
	"scopehub/internal/rls"
	"scopehub/internal/services"
	"scopehub/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := database.NewPool(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Storage-layer isolation policies must exist before any guarded query.
	if err := rls.Setup(context.Background(), pool, rls.GuardedTables); err != nil {
		log.Fatalf("Failed to apply row security policies: %v", err)
	}

	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: JWT_SECRET not set, using a generated secret")
	}

	cacheSvc := caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	storageSvc, err := services.NewMinioStorage(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Repositories. Tenant-defining tables use the pool directly; tenant-scoped
	// tables go through the isolation enforcer.
	enforcer := rls.NewEnforcer(pool)
	userRepo := repositories.NewUserRepo(pool)
	tenantRepo := repositories.NewTenantRepo(pool)
	tenantUserRepo := repositories.NewTenantUserRepo(pool)
	tokenRepo := repositories.NewTokenRepo(pool)
	flagRepo := repositories.NewFeatureFlagRepo(enforcer)

	// Services
	authSvc := services.NewAuthService(userRepo, tokenRepo, jwtSecret, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())
	tenantSvc := services.NewTenantService(tenantRepo, cacheSvc)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, userRepo, tenantUserRepo, cacheSvc)
	tenantHandlers := handlers.NewTenantHandlers(tenantSvc, tenantUserRepo, storageSvc)
	userHandlers := handlers.NewUserHandlers(userRepo)
	flagHandlers := handlers.NewFeatureFlagHandlers(flagRepo)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	// Background jobs
	scheduler, err := background.NewJobScheduler(tokenRepo)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	if err := scheduler.AddJob("tenant-cache-sweep", time.Hour, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed, err := cacheSvc.SweepTenants(ctx)
		if err != nil {
			log.Printf("Tenant cache sweep failed: %v", err)
			return
		}
		log.Printf("Tenant cache sweep removed %d entries", removed)
	}); err != nil {
		log.Fatalf("Failed to register tenant cache sweep: %v", err)
	}
	scheduler.Start()
	log.Printf("Background jobs registered: %v", scheduler.JobNames())
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()

	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	v1 := e.Group("/v1")

	// Authentication routes (no JWT required for signup/login/refresh)
	auth := v1.Group("/auth")
	auth.POST("/signup", authHandlers.Signup)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)

	// Protected routes: JWT first, then tenant resolution.
	tenantMw := middleware.NewTenantMiddleware(tenantSvc, tenantUserRepo)
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(authSvc, userRepo))
	protected.Use(tenantMw.Resolve())

	protected.POST("/auth/logout", authHandlers.Logout)
	protected.GET("/me", authHandlers.Me)

	// User routes
	protected.GET("/users", userHandlers.ListUsers)
	protected.GET("/users/:id", userHandlers.GetUser)
	protected.PUT("/users/:id", userHandlers.UpdateUser)
	protected.DELETE("/users/:id", userHandlers.DeleteUser)

	// Tenant routes
	protected.GET("/tenants", tenantHandlers.ListTenants)
	protected.POST("/tenants", tenantHandlers.CreateTenant)
	protected.GET("/tenants/:id", tenantHandlers.GetTenant)
	protected.PUT("/tenants/:id", tenantHandlers.UpdateTenant)
	protected.DELETE("/tenants/:id", tenantHandlers.DeleteTenant)
	protected.GET("/tenants/:id/members", tenantHandlers.ListMembers)
	protected.POST("/tenants/:id/members", tenantHandlers.AddMember)
	protected.DELETE("/tenants/:id/members/:userId", tenantHandlers.RemoveMember)
	protected.POST("/tenants/:id/logo", tenantHandlers.UploadLogo)

	// Tenant-scoped routes (guarded by the isolation enforcer)
	protected.GET("/feature-flags", flagHandlers.ListFlags)
	protected.POST("/feature-flags", flagHandlers.CreateFlag)
	protected.GET("/feature-flags/:id", flagHandlers.GetFlag)
	protected.PUT("/feature-flags/:id", flagHandlers.UpdateFlag)
	protected.DELETE("/feature-flags/:id", flagHandlers.DeleteFlag)

	log.Printf("scopehub server v%s starting on port %d", version, cfg.Server.Port)
	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Server.Port)))
}
