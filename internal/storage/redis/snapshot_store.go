package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noo-bita/propinv/internal/storage"
	"github.com/redis/go-redis/v9"
)

var (
	putSnapshot  = redis.NewScript(putSnapshotScript)
	deleteBefore = redis.NewScript(deleteBeforeScript)
)

type snapshotStore struct {
	client *redis.Client
}

func snapshotIndexKey() string { return key("snapshots") }

func (s *snapshotStore) Put(ctx context.Context, snapshot storage.Snapshot) error {
	if snapshot.Source == "" {
		return fmt.Errorf("snapshot source is required")
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	keys := []string{key("snapshot", snapshot.Source), snapshotIndexKey()}
	return putSnapshot.Run(ctx, s.client, keys, snapshot.Source, string(payload), score(snapshot.FetchedAt)).Err()
}

func (s *snapshotStore) Get(ctx context.Context, source string) (*storage.Snapshot, error) {
	data, err := s.client.Get(ctx, key("snapshot", source)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var snapshot storage.Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *snapshotStore) List(ctx context.Context) ([]storage.SnapshotInfo, error) {
	sources, err := s.client.ZRange(ctx, snapshotIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(sources))
	for _, source := range sources {
		keys = append(keys, key("snapshot", source))
	}
	snapshots, err := getJSON[storage.Snapshot](ctx, s.client, keys)
	if err != nil {
		return nil, err
	}

	infos := make([]storage.SnapshotInfo, 0, len(snapshots))
	for _, snapshot := range snapshots {
		infos = append(infos, snapshot.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Source < infos[j].Source })
	return infos, nil
}

func (s *snapshotStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := deleteBefore.Run(ctx, s.client, []string{snapshotIndexKey()}, key("snapshot")+":", cutoff.UnixMilli()).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}
