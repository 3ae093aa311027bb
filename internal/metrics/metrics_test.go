package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
)

func TestStoreRecordsMetrics(t *testing.T) {
	store := NewStore()
	store.RecordModelCall("gemini-test", 120*time.Millisecond, llm.Usage{InputTokens: 2, OutputTokens: 3, ReasoningTokens: 1}, nil)
	store.RecordModelCall("gemini-test", 50*time.Millisecond, llm.Usage{InputTokens: 99}, errors.New("boom"))

	usage := store.UsageTotals()
	if usage.InputTokens != 2 || usage.OutputTokens != 3 || usage.ReasoningTokens != 1 {
		t.Fatalf("unexpected usage totals: %+v", usage)
	}

	snapshot := store.Snapshot()
	if snapshot.ModelCalls != 2 || snapshot.ModelErrors != 1 {
		t.Fatalf("unexpected call counts: %+v", snapshot)
	}
	if snapshot.AvgModelCallMs != 85 {
		t.Fatalf("expected avg 85ms, got %v", snapshot.AvgModelCallMs)
	}
}

func TestStoreRecordsAnalyses(t *testing.T) {
	store := NewStore()
	store.RecordAnalysis("DAP", OutcomeSuccess)
	store.RecordAnalysis("DAP", OutcomeFallback)
	store.RecordAnalysis("free_drawing", OutcomeFallback)

	snapshot := store.Snapshot()
	if snapshot.Analyses != 3 || snapshot.Fallbacks != 2 {
		t.Fatalf("unexpected analysis counts: %+v", snapshot)
	}
	if snapshot.AnalysesByResult[OutcomeSuccess] != 1 {
		t.Fatalf("unexpected outcome breakdown: %v", snapshot.AnalysesByResult)
	}
	if got := testutil.ToFloat64(analysesTotal.WithLabelValues("DAP", OutcomeFallback)); got < 1 {
		t.Fatalf("expected prometheus counter incremented, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveModelCall("", "ok", time.Second)
	AddTokens(llm.Usage{InputTokens: 5})
	RecordQuotaRejection()
	RecordUsageFlush(FlushWritten)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"drawing_model_call_duration_seconds", "drawing_model_tokens_total", "drawing_quota_rejections_total", "drawing_usage_flush_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}
