package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/noo-bita/propinv/internal/storage"
	"go.etcd.io/bbolt"
)

type refreshLogStore struct {
	db *bbolt.DB
}

func (s *refreshLogStore) Add(ctx context.Context, log storage.RefreshLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	if log.ID == "" {
		key, err := logKey("refresh", log.Timestamp)
		if err != nil {
			return err
		}
		log.ID = key
	}
	data, err := marshal(log)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketRefreshLogs))
		if bucket == nil {
			return fmt.Errorf("refresh log bucket missing")
		}
		if err := bucket.Put([]byte(log.ID), data); err != nil {
			return err
		}
		index, err := ensureIndexBucket(tx, bucketIndexesRefresh, bucketIndexSource, normalizeIndexKey(log.Source))
		if err != nil {
			return err
		}
		return index.Put([]byte(log.ID), []byte{})
	})
}

// Query returns matching logs, newest first.
func (s *refreshLogStore) Query(ctx context.Context, filter storage.RefreshLogFilter) ([]storage.RefreshLog, error) {
	logs := make([]storage.RefreshLog, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRefreshLogs))
		if bucket == nil {
			return nil
		}

		// With a source filter walk the index instead of every log.
		keys := bucket.Cursor()
		lookup := func(k []byte) []byte { return bucket.Get(k) }
		if filter.Source != "" {
			index := indexBucket(tx, bucketIndexesRefresh, bucketIndexSource, normalizeIndexKey(filter.Source))
			if index == nil {
				return nil
			}
			keys = index.Cursor()
		}

		for k, _ := keys.Last(); k != nil; k, _ = keys.Prev() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			v := lookup(k)
			if v == nil {
				continue
			}
			var log storage.RefreshLog
			if err := unmarshal(v, &log); err != nil {
				return err
			}
			if filter.Match(log) {
				logs = append(logs, log)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filter.Page(logs), nil
}

func (s *refreshLogStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bucket := tx.Bucket([]byte(bucketRefreshLogs))
		if bucket == nil {
			return nil
		}
		stale := make(map[string]string)
		if err := bucket.ForEach(func(k, v []byte) error {
			var log storage.RefreshLog
			if err := unmarshal(v, &log); err != nil {
				return err
			}
			if log.Timestamp.Before(cutoff) {
				stale[string(k)] = log.Source
			}
			return nil
		}); err != nil {
			return err
		}
		for k, source := range stale {
			if index := indexBucket(tx, bucketIndexesRefresh, bucketIndexSource, normalizeIndexKey(source)); index != nil {
				if err := index.Delete([]byte(k)); err != nil {
					return err
				}
			}
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
