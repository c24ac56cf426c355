package store

import (
	"context"
	"fmt"
	"time"

	"docqa-service/internal/config"
	"docqa-service/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Open builds the session store selected by SESSION_STORE. rdb is required
// for the redis store and ignored otherwise.
func Open(cfg *config.Config, rdb *redis.Client) (SessionStore, func(), error) {
	switch cfg.SessionStore {
	case "memory", "":
		return NewMemory(), func() {}, nil

	case "redis":
		if rdb == nil {
			return nil, nil, fmt.Errorf("redis session store requires REDIS_URL")
		}
		return NewRedis(rdb), func() {}, nil

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

	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
