package exchange

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_ConsumeOnce(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	pe := &PendingExchange{
		CodeVerifier: "verifier-abc",
		State:        "state-1",
		ReturnURL:    "/dashboard",
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.PutExchange(ctx, pe); err != nil {
		t.Fatalf("PutExchange error: %v", err)
	}

	got, err := store.ConsumeExchange(ctx, "state-1")
	if err != nil {
		t.Fatalf("ConsumeExchange error: %v", err)
	}
	if got == nil {
		t.Fatal("expected pending exchange, got absent")
	}
	if got.CodeVerifier != pe.CodeVerifier || got.ReturnURL != pe.ReturnURL {
		t.Errorf("round trip mismatch: got %+v", got)
	}

	// second consume must land on the absent branch
	again, err := store.ConsumeExchange(ctx, "state-1")
	if err != nil {
		t.Fatalf("second ConsumeExchange error: %v", err)
	}
	if again != nil {
		t.Errorf("expected absent after consume, got %+v", again)
	}
}

func TestRedisStore_ConsumeUnknownState(t *testing.T) {
	store, _ := newRedisStore(t)
	got, err := store.ConsumeExchange(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("ConsumeExchange error: %v", err)
	}
	if got != nil {
		t.Errorf("expected absent for unknown state, got %+v", got)
	}
}

func TestRedisStore_ExchangeExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	pe := &PendingExchange{CodeVerifier: "v", State: "state-ttl", CreatedAt: time.Now().UTC()}
	if err := store.PutExchange(ctx, pe); err != nil {
		t.Fatalf("PutExchange error: %v", err)
	}

	mr.FastForward(ExchangeTTL + time.Second)

	got, err := store.ConsumeExchange(ctx, "state-ttl")
	if err != nil {
		t.Fatalf("ConsumeExchange error: %v", err)
	}
	if got != nil {
		t.Errorf("expected absent after TTL elapsed, got %+v", got)
	}
}

func TestRedisStore_ProviderToken(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	pt := &ProviderToken{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	}
	if err := store.PutProviderToken(ctx, "acct-1", pt, 30*time.Minute); err != nil {
		t.Fatalf("PutProviderToken error: %v", err)
	}

	got, err := store.GetProviderToken(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetProviderToken error: %v", err)
	}
	if got == nil || got.AccessToken != "at-1" || got.RefreshToken != "rt-1" {
		t.Errorf("round trip mismatch: got %+v", got)
	}

	mr.FastForward(31 * time.Minute)
	got, err = store.GetProviderToken(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetProviderToken error: %v", err)
	}
	if got != nil {
		t.Errorf("expected cached token to expire, got %+v", got)
	}
}

func TestMemoryStore_ConsumeOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	pe := &PendingExchange{CodeVerifier: "v", State: "s", ReturnURL: "/home", CreatedAt: time.Now().UTC()}
	if err := store.PutExchange(ctx, pe); err != nil {
		t.Fatalf("PutExchange error: %v", err)
	}
	got, err := store.ConsumeExchange(ctx, "s")
	if err != nil {
		t.Fatalf("ConsumeExchange error: %v", err)
	}
	if got == nil || got.ReturnURL != "/home" {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
	again, _ := store.ConsumeExchange(ctx, "s")
	if again != nil {
		t.Errorf("expected absent after consume, got %+v", again)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.PutExchange(ctx, &PendingExchange{State: "s"}); err != nil {
		t.Fatalf("PutExchange error: %v", err)
	}
	if err := store.PutProviderToken(ctx, "acct", &ProviderToken{AccessToken: "at"}, 0); err != nil {
		t.Fatalf("PutProviderToken error: %v", err)
	}

	// jump past both TTLs (default provider token TTL is the longer one)
	store.now = func() time.Time { return base.Add(DefaultProviderTokenTTL + time.Minute) }

	if got, _ := store.ConsumeExchange(ctx, "s"); got != nil {
		t.Errorf("expected expired exchange to be absent, got %+v", got)
	}
	if got, _ := store.GetProviderToken(ctx, "acct"); got != nil {
		t.Errorf("expected expired token to be absent, got %+v", got)
	}
}
