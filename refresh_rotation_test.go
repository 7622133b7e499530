package authkit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func loginPair(t *testing.T, e *Engine) TokenPair {
	t.Helper()
	register(t, e, "ana@example.com")
	pair, err := e.Login(context.Background(), "ana@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return pair
}

func TestRefreshRotationChain(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	pair := loginPair(t, e)

	for i := 0; i < 5; i++ {
		next, err := e.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh step %d: %v", i, err)
		}
		if next.RefreshToken == pair.RefreshToken {
			t.Fatalf("step %d: refresh token not rotated", i)
		}
		if _, err := e.ValidateAccess(next.AccessToken); err != nil {
			t.Fatalf("step %d: new access token invalid: %v", i, err)
		}

		// The consumed token is single-use.
		if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
			t.Fatalf("step %d: consumed token reuse: %v", i, err)
		}
		pair = next
	}
}

func TestRefreshRejectsGarbageAndAccessTokens(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	pair := loginPair(t, e)

	if _, err := e.Refresh(ctx, "garbage"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("garbage: %v", err)
	}
	// An access token must not pass as a refresh token.
	if _, err := e.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("access token as refresh: %v", err)
	}
}

func TestRefreshAfterLogout(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	pair := loginPair(t, e)

	identity, err := e.ValidateAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if err := e.Logout(ctx, identity.UserID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	// The refresh JWT is still signed and unexpired, but the slot is gone.
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("refresh after logout: %v", err)
	}
}

func TestNewLoginDisplacesOldRefreshToken(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	first := loginPair(t, e)
	second, err := e.Login(ctx, "ana@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}

	if _, err := e.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("displaced token refresh: %v", err)
	}
	if _, err := e.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("current token refresh: %v", err)
	}
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	pair := loginPair(t, e)

	const workers = 16
	var (
		wins   int64
		losses int64
		start  = make(chan struct{})
		wg     sync.WaitGroup
	)
	winners := make([]TokenPair, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			next, err := e.Refresh(ctx, pair.RefreshToken)
			switch {
			case err == nil:
				winners[i] = next
				atomic.AddInt64(&wins, 1)
			case errors.Is(err, ErrRefreshReuse):
				atomic.AddInt64(&losses, 1)
			default:
				t.Errorf("worker %d: %v", i, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1", wins)
	}
	if losses != workers-1 {
		t.Fatalf("losses = %d, want %d", losses, workers-1)
	}

	// The winner's refresh token is the live one.
	for i := range winners {
		if winners[i].RefreshToken == "" {
			continue
		}
		if _, err := e.Refresh(ctx, winners[i].RefreshToken); err != nil {
			t.Fatalf("winner's token rejected: %v", err)
		}
	}

	if got := e.Metrics().Value(MetricRefreshReuse); got != uint64(workers-1) {
		t.Fatalf("reuse counter = %d, want %d", got, workers-1)
	}
}

func TestRefreshRateLimit(t *testing.T) {
	e := newTestEngine(t, func(cfg *Config) {
		cfg.Limits.MaxRefreshCalls = 2
		cfg.Limits.RefreshWindow = time.Minute
	})
	ctx := context.Background()

	pair := loginPair(t, e)

	for i := 0; i < 2; i++ {
		next, err := e.Refresh(ctx, pair.RefreshToken)
		if err != nil {
			t.Fatalf("Refresh %d: %v", i, err)
		}
		pair = next
	}

	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("third refresh: %v", err)
	}
}
