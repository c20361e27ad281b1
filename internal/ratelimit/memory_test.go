package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLimit(t *testing.T) {
	m := NewMemoryStore(ContactRule)
	ctx := context.Background()

	for i := 1; i <= ContactRule.Limit; i++ {
		ok, err := m.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d denied inside the limit", i)
		}
	}
	ok, _ := m.Allow(ctx, "1.2.3.4")
	if ok {
		t.Fatal("request over the limit admitted")
	}
}

func TestMemoryStoreIsolatesClients(t *testing.T) {
	m := NewMemoryStore(Rule{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	if ok, _ := m.Allow(ctx, "a"); !ok {
		t.Fatal("first request for a denied")
	}
	if ok, _ := m.Allow(ctx, "a"); ok {
		t.Fatal("second request for a admitted")
	}
	if ok, _ := m.Allow(ctx, "b"); !ok {
		t.Fatal("b punished for a's traffic")
	}
}

func TestMemoryStoreWindowReset(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemoryStore(Rule{Limit: 2, Window: 10 * time.Minute})
	m.now = func() time.Time { return clock }
	ctx := context.Background()

	m.Allow(ctx, "x")
	m.Allow(ctx, "x")
	if ok, _ := m.Allow(ctx, "x"); ok {
		t.Fatal("third request admitted before reset")
	}

	clock = clock.Add(10*time.Minute + time.Second)
	if ok, _ := m.Allow(ctx, "x"); !ok {
		t.Fatal("request denied after the window lapsed")
	}
	if got := m.Remaining("x"); got != 1 {
		t.Fatalf("expected a fresh window with 1 left, got %d", got)
	}
}

func TestMemoryStorePrunesExpired(t *testing.T) {
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m := NewMemoryStore(Rule{Limit: 5, Window: time.Minute})
	m.now = func() time.Time { return clock }
	ctx := context.Background()

	m.Allow(ctx, "old")
	clock = clock.Add(2 * time.Minute)
	m.Allow(ctx, "new")

	m.mu.Lock()
	_, stillThere := m.entries["old"]
	m.mu.Unlock()
	if stillThere {
		t.Fatal("expired entry survived pruning")
	}
}

func TestMemoryStoreRemaining(t *testing.T) {
	m := NewMemoryStore(QuoteRule)
	ctx := context.Background()

	if got := m.Remaining("c"); got != QuoteRule.Limit {
		t.Fatalf("fresh client remaining = %d, want %d", got, QuoteRule.Limit)
	}
	m.Allow(ctx, "c")
	if got := m.Remaining("c"); got != QuoteRule.Limit-1 {
		t.Fatalf("after one request remaining = %d, want %d", got, QuoteRule.Limit-1)
	}
}
