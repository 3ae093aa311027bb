package usage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
)

// Recorder 는 분석 1건의 사용량을 저장하거나 배치로 적재한다.
type Recorder struct {
	repo    Writer
	batcher *batcher
	logger  *slog.Logger
}

// NewRecorder 는 설정에 따라 배치 사용 여부를 결정해 Recorder를 생성한다.
// DB 가 비활성화되어 있으면 아무것도 기록하지 않는 Recorder 를 반환한다.
func NewRecorder(cfg *config.Config, repo Writer, logger *slog.Logger) *Recorder {
	if cfg == nil || !cfg.Database.Enabled {
		return &Recorder{logger: logger}
	}

	recorder := &Recorder{
		repo:   repo,
		logger: logger,
	}

	if cfg.Database.UsageBatchEnabled {
		recorder.batcher = newBatcher(cfg, repo, logger)
		recorder.batcher.start()
		if logger != nil {
			logger.Info(
				"usage_db_batch_enabled",
				"flush_interval_seconds", cfg.Database.UsageBatchFlushIntervalSeconds,
				"flush_timeout_seconds", cfg.Database.UsageBatchFlushTimeoutSeconds,
				"max_pending_requests", cfg.Database.UsageBatchMaxPendingRequests,
				"max_backoff_seconds", cfg.Database.UsageBatchMaxBackoffSeconds,
				"error_log_max_interval_seconds", cfg.Database.UsageBatchErrorLogMaxIntervalSeconds,
			)
		}
	}

	return recorder
}

// Record 는 분석 1회의 결과와 토큰 사용량을 기록한다.
func (r *Recorder) Record(ctx context.Context, taskType string, fallback bool, usage llm.Usage) {
	if r == nil || r.repo == nil {
		return
	}

	delta := Delta{
		AnalysisCount:   1,
		InputTokens:     int64(usage.InputTokens),
		OutputTokens:    int64(usage.OutputTokens),
		ReasoningTokens: int64(usage.ReasoningTokens),
	}
	if fallback {
		delta.FallbackCount = 1
	}

	if r.batcher != nil {
		r.batcher.add(taskType, delta)
		return
	}

	if err := r.repo.RecordUsage(ctx, taskType, delta, time.Time{}); err != nil && !errors.Is(err, ErrDisabled) {
		if r.logger != nil {
			r.logger.Warn("usage_db_save_failed", "task_type", taskType, "err", err)
		}
	}
}

// Close 는 배치 플러셔를 중지한다.
func (r *Recorder) Close() {
	if r == nil || r.batcher == nil {
		return
	}
	r.batcher.stop()
}
