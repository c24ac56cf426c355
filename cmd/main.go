package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docqa-service/internal/ai"
	"docqa-service/internal/config"
	"docqa-service/internal/logger"
	"docqa-service/internal/queue"
	"docqa-service/internal/scheduler"
	"docqa-service/internal/store"
	"docqa-service/internal/telemetry"
	"docqa-service/internal/vectorstore"
	"docqa-service/routes"
	"docqa-service/services"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	ctx := context.Background()

	if cfg.OTelEnabled {
		shutdown, err := telemetry.InitTracer(telemetry.TracerOptions{
			ServiceName: cfg.OTelServiceName,
			Endpoint:    cfg.OTelEndpoint,
			Environment: cfg.DeploymentTarget,
			SampleRatio: cfg.OTelSampleRatio,
		})
		if err != nil {
			log.Fatal("Failed to initialize tracer:", err)
		}
		defer shutdown()
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	// Redis backs the shared session store, rate limiting and the cleanup queue
	var rdb *redis.Client
	if cfg.SessionStore == "redis" || cfg.RateLimitEnabled || cfg.CleanupQueueEnabled {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			if cfg.SessionStore == "redis" || cfg.CleanupQueueEnabled {
				log.Fatal("Failed to connect to Redis:", err)
			}
			logger.Warn("Redis unavailable, using in-process rate limiting", "error", err)
		} else {
			defer rdb.Close()
		}
	}

	sessionStore, closeStore, err := store.Open(cfg, rdb)
	if err != nil {
		log.Fatal("Failed to open session store:", err)
	}
	defer closeStore()

	index, closeIndex, err := vectorstore.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open vector index:", err)
	}
	defer closeIndex()

	embedders, err := ai.NewEmbedderChainFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedders:", err)
	}
	generator, err := ai.NewGeneratorFromConfig(ctx, cfg, metrics)
	if err != nil {
		log.Fatal("Failed to initialize generator:", err)
	}

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}

	deps := services.SessionDeps{
		Store:             sessionStore,
		Index:             index,
		Loader:            services.NewPDFLoader(""),
		Chunker:           chunker,
		Embedders:         embedders,
		Reranker:          ai.NewRerankerFromConfig(cfg, metrics),
		Generator:         generator,
		Prompts:           services.NewPromptAssembler(cfg.DefaultPrompt, cfg.FallbackPhrase),
		Metrics:           metrics,
		RetrieveTopK:      cfg.RetrieveTopK,
		RerankTopN:        cfg.RerankTopN,
		MaxFiles:          cfg.MaxFiles,
		GenerationTimeout: cfg.GenerationTimeout,
	}
	if cfg.CleanupQueueEnabled {
		opt, err := config.RedisOptions(cfg)
		if err != nil {
			log.Fatal("Invalid Redis configuration:", err)
		}
		enqueuer := queue.NewEnqueuer(queue.RedisConnOpt(opt))
		defer enqueuer.Close()
		deps.Cleanup = enqueuer
	}

	sessions, err := services.NewSessionService(deps)
	if err != nil {
		log.Fatal("Failed to initialize session service:", err)
	}

	sched := scheduler.NewScheduler()
	expiry := services.NewExpiryService(sessions, sched, cfg.SessionTTL, cfg.SessionSweepInterval)
	if err := expiry.Start(); err != nil {
		log.Fatal("Failed to schedule session expiry:", err)
	}
	sched.Start()
	defer sched.Stop()

	router := routes.NewRouter(cfg, routes.RouterDeps{
		Sessions: sessions,
		Exporter: services.NewExportService(sessions),
		Metrics:  metrics,
		Redis:    rdb,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting",
			"port", cfg.Port,
			"vector_store", index.Backend(),
			"session_store", cfg.SessionStore,
			"generator", generator.Name(),
			"embedders", embedders.Names(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	expiry.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
