package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Snapshots() SnapshotStore
	RefreshLogs() RefreshLogStore
}

// SnapshotStore keeps the last known good record set per source.
type SnapshotStore interface {
	Put(ctx context.Context, snapshot Snapshot) error
	Get(ctx context.Context, source string) (*Snapshot, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// RefreshLogStore records the outcome of each backend fetch.
type RefreshLogStore interface {
	Add(ctx context.Context, log RefreshLog) error
	Query(ctx context.Context, filter RefreshLogFilter) ([]RefreshLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// RefreshLogFilter defines criteria for querying refresh logs.
type RefreshLogFilter struct {
	Source    string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Match reports whether log satisfies the filter bounds.
func (f RefreshLogFilter) Match(log RefreshLog) bool {
	if f.Source != "" && log.Source != f.Source {
		return false
	}
	if f.StartTime != nil && log.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && log.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// Page applies Offset and Limit to logs already in result order.
func (f RefreshLogFilter) Page(logs []RefreshLog) []RefreshLog {
	if f.Offset > 0 {
		if f.Offset >= len(logs) {
			return []RefreshLog{}
		}
		logs = logs[f.Offset:]
	}
	if f.Limit > 0 && len(logs) > f.Limit {
		logs = logs[:f.Limit]
	}
	return logs
}
