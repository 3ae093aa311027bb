package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/store"
)

func newLimiter(t *testing.T, limit int) (*Limiter, *miniredis.Miniredis) {
	mini := miniredis.RunT(t)
	s, err := store.NewStore(context.Background(), &config.Config{Store: config.StoreConfig{
		URL: "redis://" + mini.Addr(), Enabled: true, DisableCache: true, ConnectMaxAttempts: 1,
	}}, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(s.Close)

	limiter := NewLimiter(&config.Config{Quota: config.QuotaConfig{DailyLimit: limit}}, s)
	limiter.now = func() time.Time { return time.Date(2026, 5, 4, 22, 0, 0, 0, time.UTC) }
	return limiter, mini
}

func TestReserveUntilExceeded(t *testing.T) {
	limiter, mini := newLimiter(t, 2)
	ctx := context.Background()

	status, err := limiter.Reserve(ctx, "key:abc")
	if err != nil || status.Remaining != 1 {
		t.Fatalf("unexpected first reserve: %+v err=%v", status, err)
	}
	if _, err := limiter.Reserve(ctx, "key:abc"); err != nil {
		t.Fatalf("unexpected second reserve error: %v", err)
	}
	status, err = limiter.Reserve(ctx, "key:abc")
	if !errors.Is(err, ErrExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
	if status.Remaining != 0 || status.Limit != 2 {
		t.Fatalf("unexpected exceeded status: %+v", status)
	}

	key := "quota:analysis:20260504:key:abc"
	if got, _ := mini.Get(key); got != "2" {
		t.Fatalf("expected rejected reserve to be rolled back, got %q", got)
	}
	if ttl := mini.TTL(key); ttl != 3*time.Hour {
		t.Fatalf("expected ttl until reset plus grace, got %v", ttl)
	}
	if !status.ResetAt.Equal(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected reset time: %v", status.ResetAt)
	}
}

func TestRefundRestoresCapacity(t *testing.T) {
	limiter, _ := newLimiter(t, 1)
	ctx := context.Background()

	if _, err := limiter.Reserve(ctx, "ip:1.2.3.4"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := limiter.Refund(ctx, "ip:1.2.3.4"); err != nil {
		t.Fatalf("refund: %v", err)
	}
	status, err := limiter.Status(ctx, "ip:1.2.3.4")
	if err != nil || status.Used != 0 || status.Remaining != 1 {
		t.Fatalf("unexpected status after refund: %+v err=%v", status, err)
	}
	if _, err := limiter.Reserve(ctx, "ip:1.2.3.4"); err != nil {
		t.Fatalf("expected capacity after refund, got %v", err)
	}
}

func TestDisabledLimiter(t *testing.T) {
	limiter := NewLimiter(&config.Config{}, store.NewMemoryStore())
	if limiter.Enabled() {
		t.Fatalf("expected disabled limiter")
	}
	for i := 0; i < 10; i++ {
		if _, err := limiter.Reserve(context.Background(), "u"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestIdentitiesAreIndependent(t *testing.T) {
	limiter := NewLimiter(&config.Config{Quota: config.QuotaConfig{DailyLimit: 1, KeyPrefix: "q"}}, store.NewMemoryStore())
	ctx := context.Background()
	if _, err := limiter.Reserve(ctx, "a"); err != nil {
		t.Fatalf("reserve a: %v", err)
	}
	if _, err := limiter.Reserve(ctx, "b"); err != nil {
		t.Fatalf("reserve b: %v", err)
	}
	if _, err := limiter.Reserve(ctx, "a"); !errors.Is(err, ErrExceeded) {
		t.Fatalf("expected a to be exceeded, got %v", err)
	}
}
