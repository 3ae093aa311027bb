package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usage"
)

type stubUsageStore struct {
	rows  []usage.DailyUsage
	total usage.DailyUsage
	err   error
	days  int
	date  time.Time
}

func (s *stubUsageStore) RecordUsage(context.Context, string, usage.Delta, time.Time) error {
	return nil
}

func (s *stubUsageStore) GetDailyUsage(_ context.Context, date time.Time) ([]usage.DailyUsage, error) {
	s.date = date
	return s.rows, s.err
}

func (s *stubUsageStore) GetRecentUsage(_ context.Context, days int) ([]usage.DailyUsage, error) {
	s.days = days
	return s.rows, s.err
}

func (s *stubUsageStore) GetTotalUsage(_ context.Context, days int) (usage.DailyUsage, error) {
	s.days = days
	return s.total, s.err
}

func (s *stubUsageStore) Close() {}

func newUsageRouter(repo usage.Reader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewUsageHandler(repo, testLogger()).RegisterRoutes(router)
	return router
}

func TestParseDays(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?days=3", nil)

	days, ok := parseDays(c, 7)
	if !ok || days != 3 {
		t.Fatalf("unexpected days: %d", days)
	}
}

func TestParseDaysInvalid(t *testing.T) {
	for _, raw := range []string{"0", "abc", "400"} {
		gin.SetMode(gin.TestMode)
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?days="+raw, nil)

		if _, ok := parseDays(c, 7); ok {
			t.Fatalf("expected parseDays(%q) to fail", raw)
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	}
}

func TestBuildUsageListResponse(t *testing.T) {
	handler := NewUsageHandler(&stubUsageStore{}, testLogger())

	rows := []usage.DailyUsage{
		{TaskType: "DAP", AnalysisCount: 4, FallbackCount: 1, InputTokens: 1, OutputTokens: 2, UsageDate: time.Now()},
		{TaskType: "HTP", AnalysisCount: 2, InputTokens: 3, OutputTokens: 4, ReasoningTokens: 1, UsageDate: time.Now()},
	}
	resp := handler.buildUsageListResponse(rows)
	if resp.TotalInputTokens != 4 || resp.TotalOutputTokens != 6 || resp.TotalAnalysisCount != 6 || resp.TotalFallbackCount != 1 {
		t.Fatalf("unexpected totals: %+v", resp)
	}
	if resp.Usages[0].FallbackRate != 0.25 || resp.Usages[0].TotalTokens != 3 {
		t.Fatalf("unexpected row: %+v", resp.Usages[0])
	}
}

func TestUsageRecentRoute(t *testing.T) {
	repo := &stubUsageStore{rows: []usage.DailyUsage{
		{TaskType: "Tree", AnalysisCount: 3, UsageDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
	}}
	router := newUsageRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/usage/recent?days=14", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if repo.days != 14 {
		t.Fatalf("expected days=14, got %d", repo.days)
	}

	var payload UsageListResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Usages) != 1 || payload.Usages[0].UsageDate != "2026-05-01" || payload.Usages[0].TaskType != "Tree" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestUsageTotalRoute(t *testing.T) {
	repo := &stubUsageStore{total: usage.DailyUsage{AnalysisCount: 10, FallbackCount: 2, InputTokens: 100, OutputTokens: 50}}
	router := newUsageRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/usage/total", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var payload DailyUsageResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if repo.days != 30 || payload.TotalTokens != 150 || payload.FallbackRate != 0.2 || payload.UsageDate == "" {
		t.Fatalf("unexpected payload: %+v (days=%d)", payload, repo.days)
	}
}

func TestUsageDisabledDatabase(t *testing.T) {
	router := newUsageRouter(&stubUsageStore{err: usage.ErrDisabled})

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/usage/daily", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestUsageDailyRouteDate(t *testing.T) {
	repo := &stubUsageStore{rows: []usage.DailyUsage{{TaskType: "HTP", AnalysisCount: 2}}}
	router := newUsageRouter(repo)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/analysis/usage/daily?date=2026-03-09", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC); !repo.date.Equal(want) {
		t.Fatalf("expected date %v, got %v", want, repo.date)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/analysis/usage/daily?date=03/09/2026", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", resp.Code)
	}
}
