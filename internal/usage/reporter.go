package usage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const reportTimeout = 30 * time.Second

// Reporter 는 전일 사용량 요약을 cron 일정에 따라 로그로 남긴다.
type Reporter struct {
	store   Reader
	logger  *slog.Logger
	spec    string
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewReporter 는 리포터를 생성한다. spec 이 비어 있으면 Start 가 아무것도 하지 않는다.
func NewReporter(store Reader, spec string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		store:  store,
		logger: logger,
		spec:   spec,
		cron:   cron.New(),
	}
}

// Start 는 일정을 등록하고 스케줄러를 시작한다.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.spec == "" || r.store == nil {
		return nil
	}
	if r.running {
		return nil
	}
	if _, err := r.cron.AddFunc(r.spec, func() { r.Report(ctx) }); err != nil {
		return fmt.Errorf("schedule usage report %q: %w", r.spec, err)
	}
	r.cron.Start()
	r.running = true
	r.logger.Info("usage_report_scheduled", "schedule", r.spec)
	return nil
}

// Report 는 전일 작업 유형별 사용량을 조회해 기록한다.
func (r *Reporter) Report(ctx context.Context) {
	reportCtx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	yesterday := todayDate().AddDate(0, 0, -1)
	rows, err := r.store.GetDailyUsage(reportCtx, yesterday)
	if err != nil {
		r.logger.Warn("usage_report_failed", "err", err)
		return
	}

	total := summarize(rows)
	for _, row := range rows {
		r.logger.Info(
			"usage_report_task",
			"date", row.UsageDate.Format(time.DateOnly),
			"task_type", row.TaskType,
			"analyses", row.AnalysisCount,
			"fallbacks", row.FallbackCount,
			"total_tokens", row.TotalTokens(),
		)
	}
	r.logger.Info(
		"usage_report_daily",
		"date", yesterday.Format(time.DateOnly),
		"analyses", total.AnalysisCount,
		"fallbacks", total.FallbackCount,
		"fallback_rate", total.FallbackRate(),
		"input_tokens", total.InputTokens,
		"output_tokens", total.OutputTokens,
		"reasoning_tokens", total.ReasoningTokens,
	)
}

// Stop 은 스케줄러를 멈추고 실행 중인 작업을 기다린다.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
}

func summarize(rows []DailyUsage) DailyUsage {
	var total DailyUsage
	for _, row := range rows {
		total.AnalysisCount += row.AnalysisCount
		total.FallbackCount += row.FallbackCount
		total.InputTokens += row.InputTokens
		total.OutputTokens += row.OutputTokens
		total.ReasoningTokens += row.ReasoningTokens
	}
	return total
}
