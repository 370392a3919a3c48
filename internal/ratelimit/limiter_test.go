package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestLimiterBlocksOverQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := New(mr.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !limiter.Allow("ip-1") || !limiter.Allow("ip-1") {
		t.Fatal("requests within quota must pass")
	}
	if limiter.Allow("ip-1") {
		t.Fatal("third hit must be blocked")
	}
	if !limiter.Allow("ip-2") {
		t.Fatal("quota is per key")
	}
}

func TestLimiterFailsClosedOnRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter, err := New(mr.Addr(), "", "test:ratelimit", 1, time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mr.Close()
	if limiter.Allow("ip-1") {
		t.Fatal("limiter must fail closed when redis is down")
	}
}

func TestLimiterConstructorValidation(t *testing.T) {
	if _, err := New("", "", "p", 1, time.Minute); err == nil {
		t.Fatal("empty addr must be rejected")
	}
	if _, err := New("localhost:6379", "", "p", 0, time.Minute); err == nil {
		t.Fatal("zero limit must be rejected")
	}
}
