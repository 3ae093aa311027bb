package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
)

// 분석 결과 라벨
const (
	OutcomeSuccess       = "success"
	OutcomeFallback      = "fallback"
	OutcomeInvalid       = "invalid_request"
	OutcomeModelError    = "model_error"
	OutcomeTimeout       = "timeout"
	OutcomeGuardRejected = "guard_rejected"
)

// 사용량 배치 플러시 결과 라벨
const (
	FlushWritten  = "written"
	FlushRequeued = "requeued"
	FlushDropped  = "dropped"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drawing_analyses_total",
			Help: "Total number of drawing analyses by task type and outcome",
		},
		[]string{"task_type", "outcome"},
	)

	modelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drawing_model_call_duration_seconds",
			Help:    "Model invocation latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		},
		[]string{"model", "result"},
	)

	modelTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drawing_model_tokens_total",
			Help: "Model tokens consumed by kind",
		},
		[]string{"kind"},
	)

	achievementEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drawing_achievement_events_total",
			Help: "Achievement tracking events by result",
		},
		[]string{"result"},
	)

	usageFlushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drawing_usage_flush_total",
			Help: "Usage batch rows flushed to the database by result",
		},
		[]string{"result"},
	)

	quotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drawing_quota_rejections_total",
			Help: "Requests rejected by the daily analysis quota",
		},
	)
)

// ObserveModelCall 는 모델 호출 지연을 기록한다.
func ObserveModelCall(model string, result string, duration time.Duration) {
	if model == "" {
		model = "unknown"
	}
	modelCallDuration.WithLabelValues(model, result).Observe(duration.Seconds())
}

// AddTokens 는 토큰 사용량을 종류별로 누적한다.
func AddTokens(usage llm.Usage) {
	modelTokensTotal.WithLabelValues("input").Add(float64(usage.InputTokens))
	modelTokensTotal.WithLabelValues("output").Add(float64(usage.OutputTokens))
	modelTokensTotal.WithLabelValues("reasoning").Add(float64(usage.ReasoningTokens))
	modelTokensTotal.WithLabelValues("cached").Add(float64(usage.CachedTokens))
}

// RecordAchievement 는 업적 이벤트 발행 결과를 기록한다.
func RecordAchievement(result string) {
	achievementEventsTotal.WithLabelValues(result).Inc()
}

// RecordUsageFlush 는 사용량 배치 한 행의 반영 결과를 센다.
func RecordUsageFlush(result string) {
	usageFlushTotal.WithLabelValues(result).Inc()
}

// RecordQuotaRejection 는 일일 한도 초과 거절을 기록한다.
func RecordQuotaRejection() {
	quotaRejectionsTotal.Inc()
}

// Handler 는 Prometheus 노출 핸들러를 반환한다.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
