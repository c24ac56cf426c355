package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"docqa-service/internal/logger"
	"docqa-service/internal/vectorstore"
)

const (
	TaskReleaseCollection = "collection:release"

	QueueCleanup = "cleanup"
)

type ReleaseCollectionPayload struct {
	SessionID  string `json:"session_id"`
	Collection string `json:"collection"`
}

// Task creators
func NewReleaseCollectionTask(sessionID, collection string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReleaseCollectionPayload{
		SessionID:  sessionID,
		Collection: collection,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReleaseCollection,
		payload,
		asynq.MaxRetry(10),
		asynq.Timeout(2*time.Minute),
		asynq.Queue(QueueCleanup),
	), nil
}

// Enqueuer hands collections that could not be released inline to the worker.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(redisOpt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(redisOpt)}
}

func (e *Enqueuer) EnqueueRelease(ctx context.Context, sessionID, collection string) error {
	task, err := NewReleaseCollectionTask(sessionID, collection)
	if err != nil {
		return err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskReleaseCollection, err)
	}
	logger.Info("Collection release queued", "collection", collection, "task_id", info.ID)
	return nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// Task handlers
type TaskProcessor struct {
	index vectorstore.Index
}

func NewTaskProcessor(index vectorstore.Index) *TaskProcessor {
	return &TaskProcessor{index: index}
}

func (p *TaskProcessor) ReleaseCollection(ctx context.Context, t *asynq.Task) error {
	var payload ReleaseCollectionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}
	if payload.Collection == "" {
		return fmt.Errorf("empty collection name: %w", asynq.SkipRetry)
	}

	if err := p.index.DeleteCollection(ctx, payload.Collection); err != nil {
		logger.Warn("Collection release failed, will retry",
			"collection", payload.Collection, "backend", p.index.Backend(), "error", err)
		return err
	}

	logger.Info("Collection released", "collection", payload.Collection, "session_id", payload.SessionID)
	return nil
}

// RedisConnOpt converts go-redis options into asynq's connection options so
// the queue shares REDIS_URL with the rest of the service.
func RedisConnOpt(opt *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Network:   opt.Network,
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}
}
