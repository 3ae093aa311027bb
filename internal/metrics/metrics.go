package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
)

// Store 는 프로세스 수명 동안의 모델 호출/분석 통계를 들고 있다.
// 같은 값을 Prometheus 컬렉터에도 함께 기록한다.
type Store struct {
	calls      atomic.Int64
	callErrors atomic.Int64
	callMillis atomic.Int64

	inputTokens     atomic.Int64
	outputTokens    atomic.Int64
	reasoningTokens atomic.Int64
	cachedTokens    atomic.Int64

	mu       sync.Mutex
	outcomes map[string]int64
}

// Snapshot 은 /stats 응답 본문이다.
type Snapshot struct {
	ModelCalls       int64            `json:"model_calls"`
	ModelErrors      int64            `json:"model_errors"`
	AvgModelCallMs   float64          `json:"avg_model_call_ms"`
	Tokens           llm.Usage        `json:"tokens"`
	Analyses         int64            `json:"analyses"`
	Fallbacks        int64            `json:"fallbacks"`
	AnalysesByResult map[string]int64 `json:"analyses_by_outcome"`
}

func NewStore() *Store {
	return &Store{outcomes: make(map[string]int64)}
}

// RecordModelCall 은 모델 호출 1회를 기록한다. err 가 nil 이 아니면 usage 는 무시한다.
func (s *Store) RecordModelCall(model string, duration time.Duration, usage llm.Usage, err error) {
	s.calls.Add(1)
	s.callMillis.Add(duration.Milliseconds())
	if err != nil {
		s.callErrors.Add(1)
		ObserveModelCall(model, "error", duration)
		return
	}

	s.inputTokens.Add(int64(usage.InputTokens))
	s.outputTokens.Add(int64(usage.OutputTokens))
	s.reasoningTokens.Add(int64(usage.ReasoningTokens))
	s.cachedTokens.Add(int64(usage.CachedTokens))
	ObserveModelCall(model, "ok", duration)
	AddTokens(usage)
}

// RecordAnalysis 는 분석 1건의 결과(outcome)를 센다.
func (s *Store) RecordAnalysis(taskType string, outcome string) {
	s.mu.Lock()
	s.outcomes[outcome]++
	s.mu.Unlock()
	analysesTotal.WithLabelValues(taskType, outcome).Inc()
}

func (s *Store) UsageTotals() llm.Usage {
	input := int(s.inputTokens.Load())
	output := int(s.outputTokens.Load())
	return llm.Usage{
		InputTokens:     input,
		OutputTokens:    output,
		TotalTokens:     input + output,
		ReasoningTokens: int(s.reasoningTokens.Load()),
		CachedTokens:    int(s.cachedTokens.Load()),
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	outcomes := maps.Clone(s.outcomes)
	s.mu.Unlock()

	snap := Snapshot{
		ModelCalls:       s.calls.Load(),
		ModelErrors:      s.callErrors.Load(),
		Tokens:           s.UsageTotals(),
		Fallbacks:        outcomes[OutcomeFallback],
		AnalysesByResult: outcomes,
	}
	for _, n := range outcomes {
		snap.Analyses += n
	}
	if snap.ModelCalls > 0 {
		snap.AvgModelCallMs = float64(s.callMillis.Load()) / float64(snap.ModelCalls)
	}
	return snap
}
