package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, cfg), mr
}

func TestLoginThrottle(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginFailures: 3,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "ana@example.com", ""); err != nil {
			t.Fatalf("attempt %d blocked early: %v", i, err)
		}
		if err := l.RecordLoginFailure(ctx, "ana@example.com", ""); err != nil {
			t.Fatalf("RecordLoginFailure: %v", err)
		}
	}

	if err := l.CheckLogin(ctx, "ana@example.com", ""); !errors.Is(err, ErrLimited) {
		t.Fatalf("4th attempt not limited: %v", err)
	}
	// Other identifiers are unaffected.
	if err := l.CheckLogin(ctx, "bob@example.com", ""); err != nil {
		t.Fatalf("unrelated email limited: %v", err)
	}
}

func TestLoginThrottleWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{
		MaxLoginFailures: 1,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "ana@example.com", ""); err != nil {
		t.Fatalf("RecordLoginFailure: %v", err)
	}
	if err := l.CheckLogin(ctx, "ana@example.com", ""); !errors.Is(err, ErrLimited) {
		t.Fatalf("not limited: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "ana@example.com", ""); err != nil {
		t.Fatalf("still limited after window: %v", err)
	}
}

func TestResetLoginClearsBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginFailures: 1,
		LoginWindow:      time.Minute,
		ThrottleByIP:     true,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "ana@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("RecordLoginFailure: %v", err)
	}
	if err := l.CheckLogin(ctx, "ana@example.com", "10.0.0.1"); !errors.Is(err, ErrLimited) {
		t.Fatalf("not limited: %v", err)
	}

	if err := l.ResetLogin(ctx, "ana@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if err := l.CheckLogin(ctx, "ana@example.com", "10.0.0.1"); err != nil {
		t.Fatalf("limited after reset: %v", err)
	}
}

func TestIPThrottleSpansEmails(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxLoginFailures: 2,
		LoginWindow:      time.Minute,
		ThrottleByIP:     true,
	})
	ctx := context.Background()

	if err := l.RecordLoginFailure(ctx, "a@example.com", "10.0.0.9"); err != nil {
		t.Fatalf("RecordLoginFailure: %v", err)
	}
	if err := l.RecordLoginFailure(ctx, "b@example.com", "10.0.0.9"); err != nil {
		t.Fatalf("RecordLoginFailure: %v", err)
	}

	if err := l.CheckLogin(ctx, "c@example.com", "10.0.0.9"); !errors.Is(err, ErrLimited) {
		t.Fatalf("IP not limited across emails: %v", err)
	}
}

func TestRefreshThrottle(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		MaxRefreshCalls: 2,
		RefreshWindow:   time.Minute,
	})
	ctx := context.Background()

	if err := l.CheckRefresh(ctx, "u1"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := l.CheckRefresh(ctx, "u1"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if err := l.CheckRefresh(ctx, "u1"); !errors.Is(err, ErrLimited) {
		t.Fatalf("third refresh not limited: %v", err)
	}
}

func TestDisabledLimiter(t *testing.T) {
	l, _ := newTestLimiter(t, Config{})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := l.CheckLogin(ctx, "ana@example.com", "10.0.0.1"); err != nil {
			t.Fatalf("disabled login throttle fired: %v", err)
		}
		if err := l.CheckRefresh(ctx, "u1"); err != nil {
			t.Fatalf("disabled refresh throttle fired: %v", err)
		}
	}

	var nilLimiter *Limiter
	if err := nilLimiter.CheckLogin(ctx, "x", "y"); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}
}
