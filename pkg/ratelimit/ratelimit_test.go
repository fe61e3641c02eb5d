package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_BasicTokenLimit(t *testing.T) {
	cfg := Config{Enabled: true, Limits: []LimitRule{{Type: LimitTypeToken, Window: WindowMinute, Limit: 100}}}

	store := NewMemoryStore()
	limiter, err := NewRateLimiter(&cfg, store)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()

	result, err := limiter.CheckAndRecord(ctx, ScopeSession, "session1", 50, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("expected request to be allowed")
	}

	usage := result.GetUsage(LimitTypeToken, WindowMinute)
	if usage == nil {
		t.Fatal("expected token usage to be present")
	}
	if usage.Current != 50 {
		t.Errorf("expected current usage to be 50, got %d", usage.Current)
	}

	result, err = limiter.CheckAndRecord(ctx, ScopeSession, "session1", 40, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("expected request to be allowed")
	}

	result, err = limiter.CheckAndRecord(ctx, ScopeSession, "session1", 20, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Errorf("expected request to be denied")
	}
	if result.RetryAfter == nil {
		t.Errorf("expected retry_after to be set")
	}
}

func TestRateLimiter_BasicCountLimit(t *testing.T) {
	cfg := Config{Enabled: true, Limits: []LimitRule{{Type: LimitTypeCount, Window: WindowMinute, Limit: 5}}}

	store := NewMemoryStore()
	limiter, err := NewRateLimiter(&cfg, store)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		result, err := limiter.CheckAndRecord(ctx, ScopeSession, "session1", 0, 1)
		if err != nil {
			t.Fatalf("unexpected error on request %d: %v", i, err)
		}
		if !result.Allowed {
			t.Errorf("expected request %d to be allowed", i)
		}
	}

	result, err := limiter.CheckAndRecord(ctx, ScopeSession, "session1", 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Errorf("expected 6th request to be denied")
	}
}

func TestRateLimiter_SeparateIdentifiers(t *testing.T) {
	cfg := Config{Enabled: true, Limits: []LimitRule{{Type: LimitTypeCount, Window: WindowMinute, Limit: 5}}}

	store := NewMemoryStore()
	limiter, err := NewRateLimiter(&cfg, store)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := limiter.CheckAndRecord(ctx, ScopeUser, "teacher-1", 0, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	result, err := limiter.CheckAndRecord(ctx, ScopeUser, "teacher-2", 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("expected teacher-2 to have a separate quota")
	}

	result, err = limiter.CheckAndRecord(ctx, ScopeUser, "teacher-1", 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Errorf("expected teacher-1 to be blocked")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	cfg := Config{Enabled: true, Limits: []LimitRule{{Type: LimitTypeCount, Window: WindowMinute, Limit: 5}}}

	store := NewMemoryStore()
	limiter, err := NewRateLimiter(&cfg, store)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := limiter.CheckAndRecord(ctx, ScopeSession, "session1", 0, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	result, err := limiter.CheckAndRecord(ctx, ScopeSession, "session1", 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Errorf("expected to be blocked")
	}

	if err := limiter.Reset(ctx, ScopeSession, "session1"); err != nil {
		t.Fatalf("failed to reset: %v", err)
	}

	result, err = limiter.CheckAndRecord(ctx, ScopeSession, "session1", 0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Errorf("expected to be allowed after reset")
	}
}

func TestRateLimiter_DisabledConfig(t *testing.T) {
	cfg := Config{Enabled: false}

	store := NewMemoryStore()
	limiter, err := NewRateLimiter(&cfg, store)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		result, err := limiter.CheckAndRecord(ctx, ScopeSession, "session1", 1_000_000, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Allowed {
			t.Errorf("expected to be allowed when rate limiting is disabled")
		}
	}
}

func TestMemoryStore_WindowExpiration(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	windowEnd := time.Now().Add(100 * time.Millisecond)
	if err := store.SetUsage(ctx, ScopeSession, "session1", LimitTypeCount, WindowMinute, 100, windowEnd); err != nil {
		t.Fatalf("failed to set usage: %v", err)
	}

	amount, _, err := store.GetUsage(ctx, ScopeSession, "session1", LimitTypeCount, WindowMinute)
	if err != nil {
		t.Fatalf("failed to get usage: %v", err)
	}
	if amount != 100 {
		t.Errorf("expected amount to be 100, got %d", amount)
	}

	time.Sleep(150 * time.Millisecond)

	amount, newWindowEnd, err := store.GetUsage(ctx, ScopeSession, "session1", LimitTypeCount, WindowMinute)
	if err != nil {
		t.Fatalf("failed to get usage: %v", err)
	}
	if amount != 0 {
		t.Errorf("expected amount to be 0 after expiration, got %d", amount)
	}
	if !newWindowEnd.After(time.Now()) {
		t.Errorf("expected new window end to be in the future")
	}
}
