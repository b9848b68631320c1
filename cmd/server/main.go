package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/WebblyCMS/Webbly/internal/cache"
	"github.com/WebblyCMS/Webbly/internal/config"
	"github.com/WebblyCMS/Webbly/internal/database"
	"github.com/WebblyCMS/Webbly/internal/handlers"
	"github.com/WebblyCMS/Webbly/internal/jobs"
	"github.com/WebblyCMS/Webbly/internal/logging"
	"github.com/WebblyCMS/Webbly/internal/middleware"
	"github.com/WebblyCMS/Webbly/internal/search"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Webbly Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Cache: %s)", cfg.Port, cfg.CacheType)

	settings, err := config.LoadSearchSettings(cfg.SearchSettingsPath)
	if err != nil {
		log.Fatalf("❌ Failed to load search settings: %v", err)
	}

	// Open the content store
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to open content store: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize content store: %v", err)
	}

	// Construct the cache backend selected by CACHE_TYPE
	store, err := newCacheStore(cfg)
	if err != nil {
		// The cache is a performance layer; degrade to process memory
		// rather than refusing to start.
		log.Printf("⚠️  Cache backend %q unavailable (%v), falling back to memory", cfg.CacheType, err)
		store = cache.NewMemory()
	}
	appCache := cache.New(store, cfg.CacheKeyPrefix, cfg.CacheTimeout)
	defer appCache.Close()
	log.Printf("📦 Cache backend ready: %s", appCache.Backend())

	// Search service
	searchService := search.New(db, appCache, settings)

	// Handlers
	searchHandler := handlers.NewSearchHandler(searchService, db, appCache, cfg.ExcerptLength)
	contentHandler := handlers.NewContentHandler(db, searchService)
	adminHandler := handlers.NewAdminHandler(searchService, appCache, cfg.AdminToken)
	healthHandler := handlers.NewHealthHandler(appCache, searchService)

	if cfg.AdminToken == "" {
		log.Println("⚠️  ADMIN_TOKEN not set - admin endpoints disabled")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:   "Webbly v1.0",
		BodyLimit: 4 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("webbly")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Admin-Token",
	}))

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Search=%d/min, Admin=%d/min",
		rateLimitConfig.SearchMax, rateLimitConfig.AdminMax)

	// Routes
	app.Get("/health", healthHandler.Handle)

	api := app.Group("/api")
	api.Get("/search", middleware.SearchRateLimiter(rateLimitConfig), searchHandler.HandleSearch)

	api.Get("/content", contentHandler.HandleList)
	api.Get("/content/:id", contentHandler.HandleGet)
	api.Get("/content/:id/related", searchHandler.HandleRelated)
	api.Post("/content", contentHandler.HandleCreate)
	api.Put("/content/:id", contentHandler.HandleUpdate)
	api.Delete("/content/:id", contentHandler.HandleDelete)

	admin := api.Group("/admin", middleware.AdminRateLimiter(rateLimitConfig), adminHandler.RequireToken)
	admin.Post("/reindex", adminHandler.HandleReindex)
	admin.Delete("/cache", adminHandler.HandleCacheClear)
	admin.Delete("/cache/:pattern", adminHandler.HandleCacheInvalidate)

	// Scheduled reindex
	scheduler, err := jobs.NewScheduler(searchService, cfg.ReindexInterval)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		fmt.Println()
		log.Printf("🛑 Received signal %v, shutting down...", sig)

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	log.Println("👋 Webbly Server stopped")
}

// newCacheStore builds the backend named by CACHE_TYPE. The choice is
// made once here; nothing downstream knows which backend it talks to.
func newCacheStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheType {
	case "redis":
		return cache.NewRedis(cfg.RedisURL)
	case "memory":
		return cache.NewMemory(), nil
	case "filesystem":
		return cache.NewFilesystem(cfg.CacheDir)
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.CacheType)
	}
}
