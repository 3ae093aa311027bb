package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
)

const defaultFlushTimeout = 5 * time.Second

// usageKey: 집계 단위 (사용일, 작업 유형)
type usageKey struct {
	day      time.Time
	taskType string
}

// batcher 는 분석 사용량을 메모리에 모았다가 주기적으로 Store 에 반영한다.
// 반영 실패분은 다시 쌓고 지수 백오프 동안 플러시를 미룬다. 종료 시 실패분은 버린다.
type batcher struct {
	store     Writer
	logger    *slog.Logger
	interval  time.Duration
	timeout   time.Duration
	threshold int
	warnEvery time.Duration
	now       func() time.Time

	mu     sync.Mutex
	buf    map[usageKey]*Delta
	queued int

	// 아래 필드는 loop 고루틴에서만 접근한다.
	retry      *backoff.ExponentialBackOff
	failures   int
	holdUntil  time.Time
	lastWarnAt time.Time

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newBatcher(cfg *config.Config, store Writer, logger *slog.Logger) *batcher {
	db := cfg.Database
	interval := secondsOr(db.UsageBatchFlushIntervalSeconds, time.Second)
	timeout := secondsOr(db.UsageBatchFlushTimeoutSeconds, defaultFlushTimeout)

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = interval
	retry.MaxInterval = secondsOr(db.UsageBatchMaxBackoffSeconds, interval)
	retry.Multiplier = 2
	retry.RandomizationFactor = 0
	retry.Reset()

	return &batcher{
		store:     store,
		logger:    logger,
		interval:  interval,
		timeout:   timeout,
		threshold: max(1, db.UsageBatchMaxPendingRequests),
		warnEvery: time.Duration(db.UsageBatchErrorLogMaxIntervalSeconds) * time.Second,
		now:       time.Now,
		buf:       make(map[usageKey]*Delta),
		retry:     retry,
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func (b *batcher) start() {
	go b.loop()
}

func (b *batcher) stop() {
	close(b.quit)
	<-b.done
}

// add 는 사용량을 누적하고 임계치에 도달하면 플러시를 깨운다.
func (b *batcher) add(taskType string, delta Delta) {
	if delta.IsZero() {
		return
	}
	if b.enqueue(usageKey{day: todayDate(), taskType: taskType}, delta) >= b.threshold {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
}

func (b *batcher) enqueue(key usageKey, delta Delta) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.buf[key]
	if !ok {
		acc = &Delta{}
		b.buf[key] = acc
	}
	acc.add(delta)
	b.queued += int(delta.AnalysisCount)
	return b.queued
}

func (b *batcher) loop() {
	defer close(b.done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flush(false)
		case <-b.wake:
			b.flush(false)
		case <-b.quit:
			b.flush(true)
			return
		}
	}
}

func (b *batcher) flush(final bool) {
	if !final && b.now().Before(b.holdUntil) {
		return
	}

	batch := b.drain()
	if len(batch) == 0 {
		return
	}

	var firstErr error
	for key, delta := range batch {
		err := b.write(key, delta)
		switch {
		case err == nil:
			metrics.RecordUsageFlush(metrics.FlushWritten)
			continue
		case final:
			metrics.RecordUsageFlush(metrics.FlushDropped)
		default:
			b.enqueue(key, delta)
			metrics.RecordUsageFlush(metrics.FlushRequeued)
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		b.fail(firstErr)
		return
	}
	b.failures = 0
	b.holdUntil = time.Time{}
	b.retry.Reset()
}

func (b *batcher) drain() map[usageKey]Delta {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch := make(map[usageKey]Delta, len(b.buf))
	for key, delta := range b.buf {
		batch[key] = *delta
	}
	clear(b.buf)
	b.queued = 0
	return batch
}

func (b *batcher) write(key usageKey, delta Delta) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return b.store.RecordUsage(ctx, key.taskType, delta, key.day)
}

func (b *batcher) fail(err error) {
	b.failures++
	wait := b.retry.NextBackOff()
	b.holdUntil = b.now().Add(wait)

	if !b.shouldWarn() || b.logger == nil {
		return
	}
	b.lastWarnAt = b.now()
	b.mu.Lock()
	queued := b.queued
	b.mu.Unlock()
	b.logger.Warn("usage_db_batch_flush_failed",
		"failures", b.failures,
		"backoff", wait,
		"pending_requests", queued,
		"err", err,
	)
}

// shouldWarn: 1, 2, 4, 8 ... 번째 연속 실패이거나 마지막 경고 후 warnEvery 가 지났을 때만 남긴다.
func (b *batcher) shouldWarn() bool {
	if b.failures <= 0 {
		return false
	}
	if b.failures&(b.failures-1) == 0 {
		return true
	}
	return b.warnEvery > 0 && b.now().Sub(b.lastWarnAt) >= b.warnEvery
}
