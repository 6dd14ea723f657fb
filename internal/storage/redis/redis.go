package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noo-bita/propinv/internal/config"
	"github.com/noo-bita/propinv/internal/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "propinv"

// Store implements the storage.Store interface using Redis
type Store struct {
	client        *redis.Client
	snapshotStore *snapshotStore
	refreshStore  *refreshLogStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:        client,
		snapshotStore: &snapshotStore{client: client},
		refreshStore:  &refreshLogStore{client: client},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Snapshots returns the SnapshotStore implementation
func (s *Store) Snapshots() storage.SnapshotStore {
	return s.snapshotStore
}

// RefreshLogs returns the RefreshLogStore implementation
func (s *Store) RefreshLogs() storage.RefreshLogStore {
	return s.refreshStore
}

func key(parts ...string) string {
	k := keyPrefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// score orders index members by time; milliseconds stay exact in a float64.
func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func scoreBound(t *time.Time, open string) string {
	if t == nil {
		return open
	}
	return fmt.Sprintf("%d", t.UnixMilli())
}

// getJSON loads and decodes several string keys, skipping missing ones.
func getJSON[T any](ctx context.Context, client *redis.Client, keys []string) ([]T, error) {
	out := make([]T, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var item T
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			return nil, fmt.Errorf("unmarshal value: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
