package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/noo-bita/propinv/internal/chart"
	"github.com/noo-bita/propinv/internal/storage"
)

func TestSnapshotStorePutGet(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	snapshots := store.Snapshots()
	fetched := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	err := snapshots.Put(ctx, storage.Snapshot{
		Source:    storage.SourceItems,
		FetchedAt: fetched,
		Records: []chart.Record{
			{"created_at": "2024-01-09T10:00:00Z", "category": "Books", "price": 12.5},
			{"created_at": "2024-01-10T07:00:00Z", "category": map[string]any{"name": "Furniture"}},
		},
	})
	if err != nil {
		t.Fatalf("put snapshot: %v", err)
	}

	got, err := snapshots.Get(ctx, storage.SourceItems)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fetched)
	}
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got.Records))
	}
	if got.Records[1].Category() != "Furniture" {
		t.Errorf("nested category lost: %v", got.Records[1])
	}

	if _, err := snapshots.Get(ctx, storage.SourceRequests); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing snapshot error = %v, want ErrNotFound", err)
	}
}

func TestSnapshotStoreListAndDeleteBefore(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	snapshots := store.Snapshots()
	now := time.Now().UTC()

	for _, snap := range []storage.Snapshot{
		{Source: storage.SourceRequests, FetchedAt: now.Add(-72 * time.Hour), Records: []chart.Record{{}}},
		{Source: storage.SourceItems, FetchedAt: now, Records: []chart.Record{{}, {}}},
	} {
		if err := snapshots.Put(ctx, snap); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
	}

	infos, err := snapshots.List(ctx)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(infos) != 2 || infos[0].Source != storage.SourceItems || infos[0].Count != 2 {
		t.Fatalf("unexpected listing: %+v", infos)
	}

	deleted, err := snapshots.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete before: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted snapshot, got %d", deleted)
	}
	if _, err := snapshots.Get(ctx, storage.SourceRequests); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("stale snapshot still present: %v", err)
	}
}

func TestSnapshotStoreRequiresSource(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	if err := store.Snapshots().Put(context.Background(), storage.Snapshot{}); err == nil {
		t.Fatal("expected error for snapshot without source")
	}
}

func TestRefreshLogStoreQuery(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	logs := store.RefreshLogs()
	base := time.Now().Add(-time.Hour)

	entries := []storage.RefreshLog{
		{Timestamp: base, Source: storage.SourceItems, Records: 3},
		{Timestamp: base.Add(time.Minute), Source: storage.SourceRequests, Records: 1},
		{Timestamp: base.Add(2 * time.Minute), Source: storage.SourceItems, Fallback: true, Error: "backend down"},
	}
	for _, entry := range entries {
		if err := logs.Add(ctx, entry); err != nil {
			t.Fatalf("add refresh log: %v", err)
		}
	}

	tests := []struct {
		name      string
		filter    storage.RefreshLogFilter
		wantCount int
		wantFirst bool // fallback flag of the newest result
	}{
		{"all", storage.RefreshLogFilter{}, 3, true},
		{"by source", storage.RefreshLogFilter{Source: storage.SourceItems}, 2, true},
		{"limit", storage.RefreshLogFilter{Limit: 1}, 1, true},
		{"offset", storage.RefreshLogFilter{Source: storage.SourceItems, Offset: 1}, 1, false},
		{"unknown source", storage.RefreshLogFilter{Source: "reports"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logs.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Fatalf("expected %d logs, got %d", tt.wantCount, len(got))
			}
			if len(got) > 0 && got[0].Fallback != tt.wantFirst {
				t.Errorf("newest fallback = %v, want %v", got[0].Fallback, tt.wantFirst)
			}
		})
	}
}

func TestRefreshLogStoreCleanup(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	logs := store.RefreshLogs()

	for _, ts := range []time.Time{time.Now().Add(-48 * time.Hour), time.Now().Add(-47 * time.Hour), time.Now()} {
		if err := logs.Add(ctx, storage.RefreshLog{Timestamp: ts, Source: storage.SourceItems}); err != nil {
			t.Fatalf("add refresh log: %v", err)
		}
	}

	deleted, err := logs.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete refresh logs: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted logs, got %d", deleted)
	}

	remaining, err := logs.Query(ctx, storage.RefreshLogFilter{Source: storage.SourceItems})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining log, got %d", len(remaining))
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "propinv.bolt")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}
