package storage

import (
	"time"

	"github.com/noo-bita/propinv/internal/chart"
)

// Record sources.
const (
	SourceItems    = "items"
	SourceRequests = "requests"
)

// Snapshot is a fetched record set for one source.
type Snapshot struct {
	Source    string         `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
	Records   []chart.Record `json:"records"`
}

// Info describes the snapshot without its records.
func (s Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{Source: s.Source, FetchedAt: s.FetchedAt, Count: len(s.Records)}
}

// SnapshotInfo is the listing form of a Snapshot.
type SnapshotInfo struct {
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Count     int       `json:"count"`
}

// RefreshLog represents one fetch attempt against the backend.
type RefreshLog struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Records    int       `json:"records"`
	Fallback   bool      `json:"fallback"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}
