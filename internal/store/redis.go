package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"docqa-service/models"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "docqa:session:"
	sessionIndexKey  = "docqa:sessions"
)

// Redis stores each session as a JSON string plus membership in an index set.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (r *Redis) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(data)
}

func (r *Redis) Put(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.ID), data, 0)
		pipe.SAdd(ctx, sessionIndexKey, s.ID)
		return nil
	})
	return err
}

func (r *Redis) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	key := sessionKey(id)
	var updated *models.Session
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		out, err := json.Marshal(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		updated = s
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Redis) Remove(ctx context.Context, id string) (*models.Session, error) {
	var getCmd *redis.StringCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.GetDel(ctx, sessionKey(id))
		pipe.SRem(ctx, sessionIndexKey, id)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis remove: %w", err)
	}
	data, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

func (r *Redis) List(ctx context.Context) ([]*models.Session, error) {
	ids, err := r.rdb.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionKey(id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]*models.Session, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // removed between SMEMBERS and MGET
		}
		s, err := decodeSession([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *Redis) Count(ctx context.Context) (int, error) {
	n, err := r.rdb.SCard(ctx, sessionIndexKey).Result()
	return int(n), err
}

func decodeSession(data []byte) (*models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}
