package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis instance for testing Lua scripts
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestPutSnapshotScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	script := redis.NewScript(putSnapshotScript)

	keys := []string{"propinv:snapshot:items", "propinv:snapshots"}
	if err := script.Run(ctx, client, keys, "items", `{"source":"items"}`, 1000).Err(); err != nil {
		t.Fatalf("script failed: %v", err)
	}
	// Re-put moves the index score rather than adding a member
	if err := script.Run(ctx, client, keys, "items", `{"source":"items","records":[]}`, 2000).Err(); err != nil {
		t.Fatalf("script failed: %v", err)
	}

	got, err := mr.Get("propinv:snapshot:items")
	if err != nil || got != `{"source":"items","records":[]}` {
		t.Errorf("snapshot value = %q, %v", got, err)
	}
	members, err := mr.ZMembers("propinv:snapshots")
	if err != nil || len(members) != 1 {
		t.Fatalf("index members = %v, %v", members, err)
	}
	if s, _ := mr.ZScore("propinv:snapshots", "items"); s != 2000 {
		t.Errorf("index score = %v, want 2000", s)
	}
}

func TestDeleteBeforeScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()

	tests := []struct {
		member string
		score  float64
		stale  bool
	}{
		{"a", 100, true},
		{"b", 199, true},
		{"c", 200, false},
		{"d", 300, false},
	}
	for _, tt := range tests {
		mr.Set("propinv:x:"+tt.member, "v")
		if _, err := mr.ZAdd("propinv:xs", tt.score, tt.member); err != nil {
			t.Fatalf("zadd: %v", err)
		}
	}

	n, err := redis.NewScript(deleteBeforeScript).Run(ctx, client, []string{"propinv:xs"}, "propinv:x:", 200).Int()
	if err != nil {
		t.Fatalf("script failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	for _, tt := range tests {
		t.Run(tt.member, func(t *testing.T) {
			if exists := mr.Exists("propinv:x:" + tt.member); exists == tt.stale {
				t.Errorf("value key exists = %v, stale = %v", exists, tt.stale)
			}
			if _, err := mr.ZScore("propinv:xs", tt.member); (err == nil) == tt.stale {
				t.Errorf("index member present = %v, stale = %v", err == nil, tt.stale)
			}
		})
	}
}
