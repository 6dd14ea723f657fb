package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/noo-bita/propinv/internal/chart"
	"github.com/noo-bita/propinv/internal/config"
	"github.com/noo-bita/propinv/internal/storage"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	// Host carries the full "host:port" so Port stays 0
	cfg := config.RedisConfig{
		Host:         mr.Addr(),
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  "5s",
		ReadTimeout:  "3s",
		WriteTimeout: "3s",
	}

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open Redis store: %v", err)
	}

	return store, mr
}

func TestOpenRejectsBadTimeout(t *testing.T) {
	_, err := Open(config.RedisConfig{Host: "localhost", DialTimeout: "fast", ReadTimeout: "1s", WriteTimeout: "1s"})
	if err == nil {
		t.Fatal("expected error for invalid dial_timeout")
	}
}

func TestSnapshotStore_PutGetList(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	snapshots := store.Snapshots()
	fetched := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	snapshot := storage.Snapshot{
		Source:    storage.SourceItems,
		FetchedAt: fetched,
		Records: []chart.Record{
			{"created_at": "2024-01-09", "category": "Books", "purchase_price": "12.50", "quantity": 2},
		},
	}
	if err := snapshots.Put(ctx, snapshot); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if !mr.Exists("propinv:snapshot:items") {
		t.Error("snapshot key not written")
	}

	got, err := snapshots.Get(ctx, storage.SourceItems)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fetched)
	}
	if len(got.Records) != 1 || !got.Records[0].Cost().Equal(chart.Record{"price": 25}.Cost()) {
		t.Errorf("records not preserved: %+v", got.Records)
	}

	infos, err := snapshots.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Count != 1 {
		t.Errorf("List = %+v", infos)
	}

	if _, err := snapshots.Get(ctx, storage.SourceRequests); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_DeleteBefore(t *testing.T) {
	store, mr := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	snapshots := store.Snapshots()
	now := time.Now().UTC()

	_ = snapshots.Put(ctx, storage.Snapshot{Source: storage.SourceItems, FetchedAt: now})
	_ = snapshots.Put(ctx, storage.Snapshot{Source: storage.SourceRequests, FetchedAt: now.Add(-72 * time.Hour)})

	deleted, err := snapshots.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted snapshot, got %d", deleted)
	}
	if mr.Exists("propinv:snapshot:requests") {
		t.Error("stale snapshot key still present")
	}
	if _, err := snapshots.Get(ctx, storage.SourceItems); err != nil {
		t.Errorf("fresh snapshot removed: %v", err)
	}
}

func TestRefreshLogStore_QueryAndCleanup(t *testing.T) {
	store, _ := setupTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	logs := store.RefreshLogs()
	now := time.Now().UTC()

	entries := []storage.RefreshLog{
		{Timestamp: now.Add(-48 * time.Hour), Source: storage.SourceItems, Records: 4},
		{Timestamp: now.Add(-time.Hour), Source: storage.SourceRequests, Records: 2},
		{Timestamp: now, Source: storage.SourceItems, Fallback: true, Error: "timeout"},
	}
	for _, entry := range entries {
		if err := logs.Add(ctx, entry); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	all, err := logs.Query(ctx, storage.RefreshLogFilter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(all) != 3 || !all[0].Fallback {
		t.Fatalf("expected 3 logs newest first, got %+v", all)
	}

	since := now.Add(-2 * time.Hour)
	recent, err := logs.Query(ctx, storage.RefreshLogFilter{Source: storage.SourceItems, StartTime: &since})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Error != "timeout" {
		t.Errorf("source+time filter = %+v", recent)
	}

	deleted, err := logs.DeleteBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted log, got %d", deleted)
	}

	items, err := logs.Query(ctx, storage.RefreshLogFilter{Source: storage.SourceItems})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 items log after cleanup, got %d", len(items))
	}
}
