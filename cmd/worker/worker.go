package main

import (
	"context"
	"log"

	"docqa-service/internal/config"
	"docqa-service/internal/logger"
	"docqa-service/internal/queue"
	"docqa-service/internal/vectorstore"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	index, closeIndex, err := vectorstore.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to open vector index:", err)
	}
	defer closeIndex()

	opt, err := config.RedisOptions(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}
	redisOpt := queue.RedisConnOpt(opt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				queue.QueueCleanup: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Error("Task failed",
					"type", task.Type(),
					"retry", retried,
					"max_retry", maxRetry,
					"error", err,
				)
			}),
		},
	)

	processor := queue.NewTaskProcessor(index)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskReleaseCollection, processor.ReleaseCollection)

	logger.Info("Starting cleanup worker",
		"concurrency", cfg.WorkerConcurrency,
		"queue", queue.QueueCleanup,
		"redis", redisOpt.Addr,
		"vector_store", index.Backend(),
	)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
