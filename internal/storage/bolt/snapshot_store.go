package bolt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/noo-bita/propinv/internal/storage"
	"go.etcd.io/bbolt"
)

type snapshotStore struct {
	db *bbolt.DB
}

func (s *snapshotStore) Put(ctx context.Context, snapshot storage.Snapshot) error {
	if snapshot.Source == "" {
		return fmt.Errorf("snapshot source is required")
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now().UTC()
	}
	return putBucketValue(ctx, s.db, bucketSnapshots, snapshot.Source, snapshot)
}

func (s *snapshotStore) Get(ctx context.Context, source string) (*storage.Snapshot, error) {
	return getBucketValue[storage.Snapshot](ctx, s.db, bucketSnapshots, source)
}

func (s *snapshotStore) List(ctx context.Context) ([]storage.SnapshotInfo, error) {
	snapshots, err := listBucket[storage.Snapshot](ctx, s.db, bucketSnapshots)
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
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketSnapshots))
		if bucket == nil {
			return nil
		}
		var stale [][]byte
		if err := bucket.ForEach(func(k, v []byte) error {
			var snapshot storage.Snapshot
			if err := unmarshal(v, &snapshot); err != nil {
				return err
			}
			if snapshot.FetchedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
