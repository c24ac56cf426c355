package vectorstore

import (
	"context"
	"fmt"
	"time"

	"docqa-service/internal/config"
	"docqa-service/internal/logger"
)

// Open builds the index selected by VECTOR_STORE. The returned func releases
// any connection the index owns.
func Open(ctx context.Context, cfg *config.Config) (Index, func(), error) {
	switch cfg.VectorStore {
	case "qdrant":
		return NewQdrant(QdrantConfig{
			URL:       cfg.QdrantURL,
			APIKey:    cfg.QdrantAPIKey,
			BatchSize: cfg.QdrantBatchSize,
			Timeout:   60 * time.Second,
		}), func() {}, nil

	case "mongo":
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("Failed to disconnect MongoDB", "error", err)
			}
		}
		return NewMongo(client.Database(cfg.DBName)), closeFn, nil

	case "pgvector":
		db, err := config.ConnectPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		idx, err := NewPGVector(ctx, db)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return idx, closeFn, nil

	case "memory":
		return NewMemory(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
}
