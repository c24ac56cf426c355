package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"docqa-service/internal/config"
	"docqa-service/internal/logger"
	"docqa-service/internal/store"
	"docqa-service/internal/vectorstore"
	"docqa-service/services"

	"github.com/redis/go-redis/v9"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  init           - Create indexes and vector tables for the configured backends")
		fmt.Println("  list           - List session collections in the vector store")
		fmt.Println("  purge-orphans  - Release collections no registered session owns")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Opening the index runs its schema setup (Mongo indexes, pgvector AutoMigrate)
	index, closeIndex, err := vectorstore.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open vector index: %v", err)
	}
	defer closeIndex()

	switch command {
	case "init":
		fmt.Printf("Vector store %s is ready\n", index.Backend())

	case "list":
		names, err := index.ListCollections(ctx)
		if err != nil {
			log.Fatalf("Failed to list collections: %v", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		fmt.Printf("%d collection(s)\n", len(names))

	case "purge-orphans":
		if cfg.SessionStore == "memory" {
			log.Fatal("purge-orphans needs a shared session store (SESSION_STORE=redis or mongo)")
		}
		var rdb *redis.Client
		if cfg.SessionStore == "redis" {
			rdb, err = config.NewRedisClient(cfg)
			if err != nil {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			defer rdb.Close()
		}
		sessionStore, closeStore, err := store.Open(cfg, rdb)
		if err != nil {
			log.Fatalf("Failed to open session store: %v", err)
		}
		defer closeStore()

		n, err := services.PurgeOrphanCollections(ctx, sessionStore, index, 30*time.Second)
		if err != nil {
			log.Fatalf("Purge failed: %v", err)
		}
		fmt.Printf("Purged %d orphaned collection(s)\n", n)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
