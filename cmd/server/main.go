package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"momentfinder-backend/internal/ai"
	"momentfinder-backend/internal/config"
	"momentfinder-backend/internal/database"
	"momentfinder-backend/internal/handlers"
	"momentfinder-backend/internal/models"
	"momentfinder-backend/internal/repository"
	"momentfinder-backend/internal/router"
	"momentfinder-backend/internal/storage"
	"momentfinder-backend/internal/websocket"
	"momentfinder-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Moment Finder Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Initialize Object Store ────
	store, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		log.Fatalf("✗ Object store initialization failed: %v", err)
	}
	log.Println("✓ Object store connected")

	// ──── Step 6: Select AI Engine ────
	// Unknown engine names fail here, at startup, never at job time.
	engine, err := ai.New(cfg.ActiveAIEngine, ai.Config{
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModelName: cfg.GeminiModelName,
	})
	if err != nil {
		log.Fatalf("✗ AI engine initialization failed: %v", err)
	}
	defer engine.Close()
	log.Printf("✓ AI engine ready (%s)", cfg.ActiveAIEngine)

	// ──── Initialize Repositories ────
	videoRepo := repository.NewVideoRepo(pool)
	screenshotRepo := repository.NewScreenshotRepo(pool)
	momentRepo := repository.NewMomentRepo(pool)

	// ──── Initialize Handlers ────
	presignExpiry := time.Duration(cfg.PresignExpirySeconds) * time.Second
	videoHandler := handlers.NewVideoHandler(videoRepo, screenshotRepo, momentRepo, store, presignExpiry)
	screenshotHandler := handlers.NewScreenshotHandler(screenshotRepo, videoRepo, momentRepo, store, redisClients.Queue)

	// ──── Step 7: Start Worker Pool ────
	notify := func(update models.VideoStatusUpdate) {
		worker.PublishUpdate(context.Background(), redisClients.Queue, update)
	}
	analyzer := worker.NewAnalyzer(videoRepo, screenshotRepo, momentRepo, store, engine, notify)
	workerPool := worker.NewPool(redisClients.Queue, analyzer, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, worker.UpdatesChannel)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	r := router.New(videoHandler, screenshotHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Minute, // large video uploads
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Moment Finder Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
