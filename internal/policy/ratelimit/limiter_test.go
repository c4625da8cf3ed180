package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_Wait(t *testing.T) {
	var (
		mu      sync.Mutex
		delayed []string
	)
	l := New(Config{
		DefaultRPS:   10, // one token every 100ms
		DefaultBurst: 1,
		OnDelay: func(host string, _ time.Duration) {
			mu.Lock()
			delayed = append(delayed, host)
			mu.Unlock()
		},
	})

	ctx := context.Background()
	if err := l.Wait(ctx, "https://Test.com/a"); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := l.Wait(ctx, "https://test.com/b"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delayed) != 1 || delayed[0] != "test.com" {
		t.Fatalf("expected one delay for test.com, got %v", delayed)
	}
}

func TestLimiter_DifferentHosts(t *testing.T) {
	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})

	ctx := context.Background()
	if err := l.Wait(ctx, "https://a.com/1"); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := l.Wait(ctx, "https://b.com/1"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("host b blocked unexpectedly")
	}
}

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for range 50 {
		if err := l.Wait(context.Background(), "https://a.com"); err != nil {
			t.Fatal(err)
		}
	}
	var nilLimiter *Limiter
	if err := nilLimiter.Wait(context.Background(), "https://a.com"); err != nil {
		t.Fatalf("nil limiter should be a no-op, got %v", err)
	}
}

func TestLimiter_CanceledContext(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.1, DefaultBurst: 1})
	if err := l.Wait(context.Background(), "https://slow.com"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "https://slow.com"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
