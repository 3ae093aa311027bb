package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

// ErrExceeded 는 일일 분석 한도를 넘었을 때 반환된다.
var ErrExceeded = errors.New("daily analysis quota exceeded")

const defaultKeyPrefix = "quota:analysis"

// Counter 는 만료 시간이 있는 카운터 저장소다.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
	Count(ctx context.Context, key string) (int64, error)
}

// Status 는 호출자의 당일 사용 현황이다.
type Status struct {
	Limit     int
	Used      int64
	Remaining int64
	ResetAt   time.Time
}

// Limiter 는 호출자별 일일 분석 횟수를 제한한다. limit 이 0 이면 제한하지 않는다.
type Limiter struct {
	counter Counter
	limit   int
	prefix  string
	now     func() time.Time
}

// NewLimiter 는 할당량 제한기를 생성한다.
func NewLimiter(cfg *config.Config, counter Counter) *Limiter {
	limiter := &Limiter{counter: counter, prefix: defaultKeyPrefix, now: time.Now}
	if cfg != nil {
		limiter.limit = cfg.Quota.DailyLimit
		if cfg.Quota.KeyPrefix != "" {
			limiter.prefix = cfg.Quota.KeyPrefix
		}
	}
	return limiter
}

// Enabled 는 제한 활성화 여부를 반환한다.
func (l *Limiter) Enabled() bool {
	return l != nil && l.limit > 0 && l.counter != nil
}

// Reserve 는 1회를 선차감한다. 한도를 넘으면 차감을 되돌리고 ErrExceeded 를 반환한다.
func (l *Limiter) Reserve(ctx context.Context, identity string) (Status, error) {
	if !l.Enabled() {
		return Status{}, nil
	}

	now := l.now()
	key, resetAt := l.key(identity, now)
	used, err := l.counter.Incr(ctx, key, resetAt.Sub(now)+time.Hour)
	if err != nil {
		return Status{}, fmt.Errorf("reserve quota: %w", err)
	}

	status := Status{Limit: l.limit, Used: used, ResetAt: resetAt}
	if used > int64(l.limit) {
		_ = l.counter.Decr(ctx, key)
		status.Used = int64(l.limit)
		return status, ErrExceeded
	}
	status.Remaining = int64(l.limit) - used
	return status, nil
}

// Refund 는 실패한 분석의 선차감을 되돌린다.
func (l *Limiter) Refund(ctx context.Context, identity string) error {
	if !l.Enabled() {
		return nil
	}
	key, _ := l.key(identity, l.now())
	if err := l.counter.Decr(ctx, key); err != nil {
		return fmt.Errorf("refund quota: %w", err)
	}
	return nil
}

// Status 는 차감 없이 현재 사용량을 반환한다.
func (l *Limiter) Status(ctx context.Context, identity string) (Status, error) {
	if !l.Enabled() {
		return Status{}, nil
	}
	key, resetAt := l.key(identity, l.now())
	used, err := l.counter.Count(ctx, key)
	if err != nil {
		return Status{}, fmt.Errorf("quota status: %w", err)
	}
	return Status{Limit: l.limit, Used: used, Remaining: max(0, int64(l.limit)-used), ResetAt: resetAt}, nil
}

// key 는 UTC 일자 단위 키와 다음 초기화 시각을 반환한다.
func (l *Limiter) key(identity string, now time.Time) (string, time.Time) {
	day := now.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%s:%s:%s", l.prefix, start.Format("20060102"), identity), start.AddDate(0, 0, 1)
}
