package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/photolib/server/internal/config"
	"github.com/photolib/server/internal/handlers"
	custommw "github.com/photolib/server/internal/middleware"
	"github.com/photolib/server/internal/observability"
	"github.com/photolib/server/internal/providers"
	"github.com/photolib/server/internal/repository"
	"github.com/photolib/server/internal/services"
)

const serviceVersion = "1.0.0"

// @title PhotoLib Server API
// @version 1.0
// @description Self-hosted photo library backend: storage providers, content cache, and sync engine
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Telemetry is optional; the server runs fine without a collector
	telemetry, err := observability.Initialize(context.Background(), observability.NewConfig("photolib-server", serviceVersion))
	if err != nil {
		log.Printf("Warning: telemetry init failed: %v", err)
	}

	// Initialize database and repositories
	var mediaRepo repository.MediaRepo
	var providerRepo repository.ProviderRepo
	var cacheRepo repository.CacheRepo
	if cfg.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err := repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		defer db.Close()
		mediaRepo = repository.NewMediaRepositoryPostgres(db)
		providerRepo = repository.NewProviderRepositoryPostgres(db)
		cacheRepo = repository.NewCacheRepositoryPostgres(db)
	} else {
		log.Println("Using SQLite database")
		db, err := repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
		defer db.Close()
		mediaRepo = repository.NewMediaRepository(db)
		providerRepo = repository.NewProviderRepository(db)
		cacheRepo = repository.NewCacheRepository(db)
	}

	// Metrics are best effort
	cacheMetrics, err := observability.NewCacheMetrics()
	if err != nil {
		log.Printf("Warning: cache metrics unavailable: %v", err)
	}
	syncMetrics, err := observability.NewSyncMetrics()
	if err != nil {
		log.Printf("Warning: sync metrics unavailable: %v", err)
	}
	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		log.Printf("Warning: HTTP metrics unavailable: %v", err)
	}

	// Initialize services
	hashService := services.NewHashService()
	contentCache := services.NewContentCache(cacheRepo, hashService, cfg.ContentCache.Directory, cfg.ContentCache.MaxSizeBytes, cacheMetrics)
	registry := providers.NewRegistry(providerRepo, mediaRepo, contentCache, cfg.MediaStorage.BasePath)

	hub := services.NewWebSocketHub()
	go hub.Run()

	syncService := services.NewSyncService(registry, mediaRepo, providerRepo, hub, syncMetrics)

	janitor := services.NewCacheJanitor(contentCache, cacheRepo, cfg.ContentCache.MaxSizeBytes,
		time.Duration(cfg.ContentCache.JanitorIntervalHours)*time.Hour)
	janitor.Start()

	// Make sure a local provider exists so a fresh install can sync immediately
	if _, err := registry.GetOrCreateDefaultLocalProvider(context.Background()); err != nil {
		log.Printf("Warning: failed to ensure default local provider: %v", err)
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	providerHandler := handlers.NewProviderHandler(providerRepo, registry)
	mediaHandler := handlers.NewMediaHandler(mediaRepo, registry)
	syncHandler := handlers.NewSyncHandler(syncService)
	cacheHandler := handlers.NewCacheHandler(contentCache, janitor)
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Setup router
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.TracingMiddleware("photolib-server"))
	if httpMetrics != nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}
	r.Use(custommw.APIKeyAuth(cfg.Security.APIKey, cfg.Security.APIKeyHeader))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/ws", wsHandler.HandleConnection)

	r.Route("/api/providers", func(r chi.Router) {
		r.Get("/", providerHandler.ListProviders)
		r.Post("/", providerHandler.CreateProvider)
		r.Get("/{id}", providerHandler.GetProvider)
		r.Put("/{id}", providerHandler.UpdateProvider)
		r.Delete("/{id}", providerHandler.DeleteProvider)
		r.Post("/{id}/test", providerHandler.TestConnection)
	})

	r.Route("/api/media", func(r chi.Router) {
		r.Get("/", mediaHandler.ListMedia)
		r.Get("/{id}", mediaHandler.GetMedia)
		r.Get("/{id}/content", mediaHandler.DownloadMedia)
		r.Delete("/{id}", mediaHandler.DeleteMedia)
	})

	r.Route("/api/sync", func(r chi.Router) {
		r.Post("/all", syncHandler.SyncAll)
		r.Post("/providers/{id}", syncHandler.SyncProvider)
		r.Get("/providers/{id}/status", syncHandler.GetStatus)
		r.Post("/providers/{id}/cancel", syncHandler.CancelSync)
		r.Get("/providers/{id}/scan", syncHandler.ScanProvider)
	})

	r.Route("/api/cache", func(r chi.Router) {
		r.Get("/status", cacheHandler.GetStatus)
		r.Get("/entries", cacheHandler.ListEntries)
		r.Delete("/", cacheHandler.ClearAll)
		r.Delete("/providers/{id}", cacheHandler.ClearForProvider)
		r.Get("/janitor/status", cacheHandler.GetJanitorStatus)
		r.Post("/janitor/run", cacheHandler.RunJanitor)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Longer for media downloads
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("PhotoLib Server starting on %s", cfg.ServerAddress)
		log.Printf("Media storage path: %s", cfg.MediaStorage.BasePath)
		log.Printf("Content cache: %s (budget %d bytes)", cfg.ContentCache.Directory, cfg.ContentCache.MaxSizeBytes)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(ctx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}

	log.Println("Server stopped")
}
