package handler

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/gemini"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/store"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

const modelReply = `{
  "meta": {"confidence": 0.7, "uncertaintyLevel": "mid", "dataQualityNotes": []},
  "insights": [{"title": "Trunk", "summary": "A thick trunk.", "evidence": ["trunk_width"], "strength": "weak"}],
  "homeTips": [],
  "riskFlags": [],
  "traumaAssessment": null,
  "conversationGuide": null,
  "professionalGuidance": null,
  "trendNote": ""
}`

type stubLLM struct {
	generate func(ctx context.Context, req gemini.Request) (llm.ChatResult, string, error)
}

func (s stubLLM) Generate(ctx context.Context, req gemini.Request) (llm.ChatResult, string, error) {
	return s.generate(ctx, req)
}

func replyWith(text string) stubLLM {
	return stubLLM{generate: func(_ context.Context, req gemini.Request) (llm.ChatResult, string, error) {
		return llm.ChatResult{Text: text, Usage: llm.Usage{InputTokens: 10, OutputTokens: 5}}, req.Model, nil
	}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPNG() string {
	data := make([]byte, 2048)
	copy(data, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	return base64.StdEncoding.EncodeToString(data)
}

func newAnalysisRouter(t *testing.T, client gemini.Invoker, dailyLimit int) (*gin.Engine, *metrics.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Gemini:   config.GeminiConfig{DefaultModel: "gemini-3-test"},
		Pipeline: config.PipelineConfig{SchemaVersion: "v3", InstrumentTemperature: 0.4, InstrumentMaxTokens: 6144},
		Quota:    config.QuotaConfig{DailyLimit: dailyLimit},
	}
	catalog, err := drawing.NewCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	metricsStore := metrics.NewStore()
	service := analysis.New(cfg, client, catalog, analysis.Dependencies{Metrics: metricsStore}, testLogger())
	limiter := quota.NewLimiter(cfg, store.NewMemoryStore())

	router := gin.New()
	NewAnalysisHandler(service, limiter, metricsStore, testLogger()).RegisterRoutes(router)
	return router, metricsStore
}
