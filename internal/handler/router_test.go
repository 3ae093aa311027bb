package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/guard"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/health"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/middleware"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

func TestNewRouterMiddlewareChain(t *testing.T) {
	cfg := &config.Config{
		Gemini:   config.GeminiConfig{DefaultModel: "gemini-3-test"},
		HTTP:     config.HTTPConfig{Gzip: true},
		HTTPAuth: config.HTTPAuthConfig{APIKey: "secret"},
		CORS:     config.CORSConfig{AllowOrigins: []string{"https://app.example.com"}},
	}
	catalog, err := drawing.NewCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	injectionGuard, err := guard.NewGuard(cfg, testLogger())
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	metricsStore := metrics.NewStore()
	service := analysis.New(cfg, replyWith(modelReply), catalog, analysis.Dependencies{Metrics: metricsStore}, testLogger())

	router := NewRouter(
		cfg,
		testLogger(),
		health.NewChecker(cfg, nil),
		NewAnalysisHandler(service, nil, metricsStore, testLogger()),
		NewUsageHandler(&stubUsageStore{}, testLogger()),
		NewGuardHandler(injectionGuard),
	)

	healthReq := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthResp := httptest.NewRecorder()
	router.ServeHTTP(healthResp, healthReq)
	if healthResp.Code != http.StatusOK {
		t.Fatalf("health must not require api key, got %d", healthResp.Code)
	}
	if healthResp.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	denied := httptest.NewRequest(http.MethodGet, "/api/analysis/task-types", nil)
	deniedResp := httptest.NewRecorder()
	router.ServeHTTP(deniedResp, denied)
	if deniedResp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key, got %d", deniedResp.Code)
	}

	allowed := httptest.NewRequest(http.MethodGet, "/api/analysis/task-types", nil)
	allowed.Header.Set("X-API-Key", "secret")
	allowed.Header.Set("Origin", "https://app.example.com")
	allowedResp := httptest.NewRecorder()
	router.ServeHTTP(allowedResp, allowed)
	if allowedResp.Code != http.StatusOK {
		t.Fatalf("expected 200 with api key, got %d", allowedResp.Code)
	}
	if allowedResp.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("expected CORS header, got %q", allowedResp.Header().Get("Access-Control-Allow-Origin"))
	}
}
