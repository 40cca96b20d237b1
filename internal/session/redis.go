package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 256

// Redis stores sessions as JSON strings under prefix+connID.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the Redis server at redisURL. Every key is written under
// prefix, which Close uses to purge the entries of this instance.
func NewRedis(ctx context.Context, redisURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) key(connID string) string {
	return r.prefix + connID
}

func (r *Redis) Bind(ctx context.Context, connID string, id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := r.client.Set(ctx, r.key(connID), data, 0).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *Redis) Lookup(ctx context.Context, connID string) (Identity, error) {
	data, err := r.client.Get(ctx, r.key(connID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrNoSession
		}
		return Identity{}, fmt.Errorf("get session: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("unmarshal identity: %w", err)
	}
	return id, nil
}

func (r *Redis) Unbind(ctx context.Context, connID string) error {
	if err := r.client.Del(ctx, r.key(connID)).Err(); err != nil {
		return fmt.Errorf("del session: %w", err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close purges the keys under this store's prefix, then closes the client.
func (r *Redis) Close(ctx context.Context) error {
	purgeErr := r.purge(ctx)
	if err := r.client.Close(); err != nil {
		return err
	}
	return purgeErr
}

func (r *Redis) purge(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	keys := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanBatch {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan sessions: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
	}
	return nil
}
