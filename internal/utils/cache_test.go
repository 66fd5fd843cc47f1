package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCacheRoundTrip(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := payload{Name: "sweets", Count: 3}
	if err := SetCache(ctx, rdb, "k", in, time.Minute); err != nil {
		t.Fatalf("SetCache error: %v", err)
	}
	var out payload
	found, err := GetCache(ctx, rdb, "k", &out)
	if err != nil {
		t.Fatalf("GetCache error: %v", err)
	}
	if !found || out != in {
		t.Fatalf("round trip mismatch: found=%v out=%+v", found, out)
	}
}

func TestGetCache_MissingKey(t *testing.T) {
	rdb := newTestRedis(t)

	found, err := GetCache(context.Background(), rdb, "absent", &struct{}{})
	if err != nil {
		t.Fatalf("GetCache error: %v", err)
	}
	if found {
		t.Fatalf("expected miss for absent key")
	}
}

func TestDeleteCachePages(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	for _, key := range []string{"p:page:1:size:20", "p:page:5:size:20", "p:page:6:size:20"} {
		if err := SetCache(ctx, rdb, key, "x", time.Minute); err != nil {
			t.Fatalf("SetCache error: %v", err)
		}
	}
	DeleteCachePages(ctx, rdb, "p")

	var s string
	if found, _ := GetCache(ctx, rdb, "p:page:1:size:20", &s); found {
		t.Fatalf("page 1 should be invalidated")
	}
	if found, _ := GetCache(ctx, rdb, "p:page:5:size:20", &s); found {
		t.Fatalf("page 5 should be invalidated")
	}
	// Pages beyond the invalidation window age out via TTL instead
	if found, _ := GetCache(ctx, rdb, "p:page:6:size:20", &s); !found {
		t.Fatalf("page 6 is outside the invalidation window")
	}
}
