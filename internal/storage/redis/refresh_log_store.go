package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/noo-bita/propinv/internal/storage"
	"github.com/redis/go-redis/v9"
)

var addRefreshLog = redis.NewScript(addRefreshLogScript)

type refreshLogStore struct {
	client *redis.Client
}

func (s *refreshLogStore) Add(ctx context.Context, log storage.RefreshLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal refresh log: %w", err)
	}

	keys := []string{
		key("refresh", log.ID),
		key("refresh", "index"),
		key("refresh", "source", log.Source),
		key("refresh", "sources"),
	}
	return addRefreshLog.Run(ctx, s.client, keys, log.ID, string(payload), score(log.Timestamp), log.Source).Err()
}

// Query returns matching logs, newest first.
func (s *refreshLogStore) Query(ctx context.Context, filter storage.RefreshLogFilter) ([]storage.RefreshLog, error) {
	index := key("refresh", "index")
	if filter.Source != "" {
		index = key("refresh", "source", filter.Source)
	}

	ids, err := s.client.ZRevRangeByScore(ctx, index, &redis.ZRangeBy{
		Min: scoreBound(filter.StartTime, "-inf"),
		Max: scoreBound(filter.EndTime, "+inf"),
	}).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, key("refresh", id))
	}
	logs, err := getJSON[storage.RefreshLog](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}

	matched := make([]storage.RefreshLog, 0, len(logs))
	for _, log := range logs {
		if filter.Match(log) {
			matched = append(matched, log)
		}
	}
	return filter.Page(matched), nil
}

func (s *refreshLogStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ms := cutoff.UnixMilli()
	n, err := deleteBefore.Run(ctx, s.client, []string{key("refresh", "index")}, key("refresh")+":", ms).Int()
	if err != nil {
		return 0, err
	}

	sources, err := s.client.SMembers(ctx, key("refresh", "sources")).Result()
	if err != nil {
		return n, err
	}
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, source := range sources {
			pipe.ZRemRangeByScore(ctx, key("refresh", "source", source), "-inf", fmt.Sprintf("(%d", ms))
		}
		return nil
	})
	return n, err
}
