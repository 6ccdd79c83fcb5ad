package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/cache"
)

var testAudiences = []string{"web", "mobile", "cli"}

func newTestRegistry(t *testing.T) (*Registry, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRegistry(cache.NewRedisStore(rdb), zap.NewNop()), mr
}

func TestStartAndEndSession(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.StartSession(ctx, "web", "u1", "token-value", time.Hour); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	active, err := reg.IsActive(ctx, "web", "u1")
	if err != nil || !active {
		t.Fatalf("isActive = %v, %v; want true, nil", active, err)
	}

	// Other audiences unaffected.
	active, err = reg.IsActive(ctx, "mobile", "u1")
	if err != nil || active {
		t.Fatalf("mobile active = %v, %v; want false, nil", active, err)
	}

	if err := reg.EndSession(ctx, "web", "u1"); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	active, err = reg.IsActive(ctx, "web", "u1")
	if err != nil || active {
		t.Fatalf("active after end = %v, %v; want false, nil", active, err)
	}
}

func TestEndSessionIdempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.EndSession(ctx, "web", "u1"); err != nil {
		t.Fatalf("ending absent session errored: %v", err)
	}
}

func TestEndAllSessions(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, audience := range testAudiences {
		if err := reg.StartSession(ctx, audience, "u1", "tok-"+audience, time.Hour); err != nil {
			t.Fatalf("start %s failed: %v", audience, err)
		}
	}
	if err := reg.StartSession(ctx, "web", "u2", "tok-other", time.Hour); err != nil {
		t.Fatalf("start other failed: %v", err)
	}

	reg.EndAllSessions(ctx, "u1", testAudiences)

	anywhere, err := reg.IsLoggedInAnywhere(ctx, "u1", testAudiences)
	if err != nil || anywhere {
		t.Fatalf("u1 logged in after sweep = %v, %v; want false, nil", anywhere, err)
	}

	// The sweep must not touch other subjects.
	anywhere, err = reg.IsLoggedInAnywhere(ctx, "u2", testAudiences)
	if err != nil || !anywhere {
		t.Fatalf("u2 logged in = %v, %v; want true, nil", anywhere, err)
	}
}

func TestIsLoggedInAnywhere(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	anywhere, err := reg.IsLoggedInAnywhere(ctx, "u1", testAudiences)
	if err != nil || anywhere {
		t.Fatalf("fresh subject logged in = %v, %v; want false, nil", anywhere, err)
	}

	if err := reg.StartSession(ctx, "cli", "u1", "tok", time.Hour); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	anywhere, err = reg.IsLoggedInAnywhere(ctx, "u1", testAudiences)
	if err != nil || !anywhere {
		t.Fatalf("logged in = %v, %v; want true, nil", anywhere, err)
	}
}

func TestSessionExpiresWithTokenTTL(t *testing.T) {
	reg, mr := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.StartSession(ctx, "web", "u1", "tok", time.Minute); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	active, err := reg.IsActive(ctx, "web", "u1")
	if err != nil || active {
		t.Fatalf("expired session still active: %v, %v", active, err)
	}
}
