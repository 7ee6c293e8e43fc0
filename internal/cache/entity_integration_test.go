//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cheroliv/blogger/internal/model"
	"github.com/cheroliv/blogger/internal/testutil"
)

func newEntityCacheTestEnv(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	ctx := context.Background()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	c, err := New(ctx, redisURL)
	if err != nil {
		t.Skipf("Skipping integration test: Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return ctx, c
}

func TestIntegrationEntityCache_RoundTrip(t *testing.T) {
	ctx, c := newEntityCacheTestEnv(t)
	people := NewEntityCache[*model.Person](c, "person", time.Minute)

	if _, err := people.Get(ctx, 1); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get on empty cache = %v, want ErrCacheMiss", err)
	}

	p := &model.Person{ID: model.Int64Ptr(1), Name: model.StringPtr("A")}
	if err := people.Set(ctx, 1, p); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := people.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if *got.Name != "A" || *got.ID != 1 {
		t.Errorf("cached person = %+v", got)
	}

	if err := people.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := people.Get(ctx, 1); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete = %v, want ErrCacheMiss", err)
	}
}

func TestIntegrationEntityCache_InvalidateAll(t *testing.T) {
	ctx, c := newEntityCacheTestEnv(t)
	articles := NewEntityCache[*model.Article](c, "article", time.Minute)
	people := NewEntityCache[*model.Person](c, "person", time.Minute)

	for i := int64(1); i <= 450; i++ {
		if err := articles.Set(ctx, i, &model.Article{ID: model.Int64Ptr(i)}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := people.Set(ctx, 1, &model.Person{ID: model.Int64Ptr(1)}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := articles.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll failed: %v", err)
	}

	n, err := c.Client().Exists(ctx, articles.Key(1), articles.Key(450)).Result()
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if n != 0 {
		t.Errorf("article keys left = %d, want 0", n)
	}
	if _, err := people.Get(ctx, 1); err != nil {
		t.Errorf("person entry should survive article invalidation: %v", err)
	}
}

func TestIntegrationRateLimit_IP(t *testing.T) {
	ctx, c := newEntityCacheTestEnv(t)

	var allowed int
	for i := 0; i < 10; i++ {
		res, err := c.CheckIPRateLimit(ctx, "203.0.113.7", 1, 3)
		if err != nil {
			t.Fatalf("CheckIPRateLimit failed: %v", err)
		}
		if res.Allowed {
			allowed++
		}
	}
	if allowed > 4 {
		t.Errorf("allowed = %d, want at most burst plus one refill", allowed)
	}

	res, err := c.CheckIPRateLimit(ctx, "203.0.113.7", 1, 3)
	if err != nil {
		t.Fatalf("CheckIPRateLimit failed: %v", err)
	}
	if res.Allowed || res.RetryAfter < time.Second || res.Remaining != 0 {
		t.Errorf("drained bucket result = %+v", res)
	}

	other, err := c.CheckIPRateLimit(ctx, "203.0.113.8", 1, 3)
	if err != nil || !other.Allowed || other.Remaining != 2 {
		t.Errorf("a second client should get its own bucket: %+v, %v", other, err)
	}
}
