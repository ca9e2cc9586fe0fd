package auth

import (
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, now *time.Time) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     3,
		WindowDuration:  time.Minute,
		LockoutDuration: 5 * time.Minute,
		CleanupInterval: time.Hour,
	})
	rl.now = func() time.Time { return *now }
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimiter_LocksAfterMaxFailures(t *testing.T) {
	now := time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	for i := 0; i < 2; i++ {
		if locked := rl.RecordFailure("10.0.0.1", "john"); locked {
			t.Fatalf("locked after %d failures", i+1)
		}
	}
	if allowed, _ := rl.Allow("10.0.0.1", "john"); !allowed {
		t.Fatal("expected attempt to be allowed below the limit")
	}

	if locked := rl.RecordFailure("10.0.0.1", "John "); !locked {
		t.Fatal("expected lockout on the third failure")
	}
	allowed, retryAfter := rl.Allow("10.0.0.1", "john")
	if allowed {
		t.Fatal("expected attempt to be blocked")
	}
	if retryAfter != 5*time.Minute {
		t.Errorf("retryAfter = %v, want 5m", retryAfter)
	}

	if allowed, _ := rl.Allow("10.0.0.2", "john"); !allowed {
		t.Error("another IP should not be affected")
	}

	now = now.Add(6 * time.Minute)
	if allowed, _ := rl.Allow("10.0.0.1", "john"); !allowed {
		t.Error("expected lockout to expire")
	}
}

func TestRateLimiter_SuccessClearsFailures(t *testing.T) {
	now := time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	rl.RecordFailure("10.0.0.1", "john")
	rl.RecordFailure("10.0.0.1", "john")
	rl.RecordSuccess("10.0.0.1", "john")

	if locked := rl.RecordFailure("10.0.0.1", "john"); locked {
		t.Error("failures before a successful login should not count")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, &now)

	rl.RecordFailure("10.0.0.1", "john")
	rl.RecordFailure("10.0.0.1", "john")
	now = now.Add(2 * time.Minute)

	if locked := rl.RecordFailure("10.0.0.1", "john"); locked {
		t.Error("failures outside the window should not count")
	}

	rl.cleanup()
	if len(rl.attempts) != 1 {
		t.Errorf("expected the fresh record to survive cleanup, have %d", len(rl.attempts))
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	rl.Stop()
	rl.Stop()
}
