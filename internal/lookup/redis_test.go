package lookup

import (
	"context"
	"errors"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"orderconsumer/internal/config"
	"testing"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), config.RedisConfig{URL: "redis://" + srv.Addr() + "/0"})
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, srv
}

func TestHashKey(t *testing.T) {
	if got := hashKey("transactions", "PAY-1"); got != "transactions:PAY-1" {
		t.Errorf("error: unexpected hash key %q", got)
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), config.RedisConfig{URL: "not a url"}); err == nil {
		t.Errorf("error: expected error for invalid url")
	}
}

func TestNewRedisStore_Password(t *testing.T) {
	srv := miniredis.RunT(t)
	srv.RequireAuth("secret")

	cfg := config.RedisConfig{URL: "redis://" + srv.Addr() + "/0"}
	if _, err := NewRedisStore(context.Background(), cfg); err == nil {
		t.Errorf("error: expected auth failure without password")
	}

	cfg.Password = "secret"
	store, err := NewRedisStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	_ = store.Close()
}

func TestRedisStore_LookupFound(t *testing.T) {
	store, srv := newTestStore(t)
	srv.HSet("transactions:PAY-1", "entity_id", "E-1")

	value, found, err := store.Lookup(context.Background(), "transactions", "PAY-1", "entity_id")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !found || value != "E-1" {
		t.Errorf("error: expected E-1, got %q found=%v", value, found)
	}
}

func TestRedisStore_LookupAbsent(t *testing.T) {
	store, srv := newTestStore(t)
	srv.HSet("transactions:PAY-1", "other_field", "x")

	for _, key := range []string{"PAY-1", "PAY-2"} {
		value, found, err := store.Lookup(context.Background(), "transactions", key, "entity_id")
		if err != nil {
			t.Errorf("error: absent value should not be an error, got %v", err)
		}
		if found || value != "" {
			t.Errorf("error: %s should be absent, got %q found=%v", key, value, found)
		}
	}
}

func TestRedisStore_LookupError(t *testing.T) {
	store, srv := newTestStore(t)
	srv.SetError("ERR backend unavailable")

	_, found, err := store.Lookup(context.Background(), "transactions", "PAY-1", "entity_id")
	if err == nil {
		t.Fatalf("error: expected error when redis fails")
	}
	if found || errors.Is(err, redis.Nil) {
		t.Errorf("error: connection failure reported as absent value: %v", err)
	}
	if store.Ping(context.Background()) == nil {
		t.Errorf("error: ping should fail when redis fails")
	}
}

func TestRedisStore_Upsert(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "transactions", "PAY-1", "entity_id", "E-1"); err != nil {
		t.Fatalf("error: %v", err)
	}
	if err := store.Upsert(ctx, "transactions", "PAY-1", "entity_id", "E-2"); err != nil {
		t.Fatalf("error: %v", err)
	}

	if got := srv.HGet("transactions:PAY-1", "entity_id"); got != "E-2" {
		t.Errorf("error: expected upserted value E-2, got %q", got)
	}
	value, found, err := store.Lookup(ctx, "transactions", "PAY-1", "entity_id")
	if err != nil || !found || value != "E-2" {
		t.Errorf("error: lookup after upsert returned %q %v %v", value, found, err)
	}
}
