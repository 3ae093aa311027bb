package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/store"
)

func newQuotaRouter(limit int, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Quota: config.QuotaConfig{DailyLimit: limit}}
	limiter := quota.NewLimiter(cfg, store.NewMemoryStore())

	router := gin.New()
	router.Use(Quota(limiter, nil))
	router.POST("/api/analysis/drawings", func(c *gin.Context) { c.Status(status) })
	return router
}

func postAs(router *gin.Engine, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/drawings", nil)
	req.Header.Set(UserIDHeader, userID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestQuotaRejectsOverLimit(t *testing.T) {
	router := newQuotaRouter(2, http.StatusOK)

	for i := 0; i < 2; i++ {
		if resp := postAs(router, "u1"); resp.Code != http.StatusOK {
			t.Fatalf("request %d: expected ok, got %d", i, resp.Code)
		}
	}

	resp := postAs(router, "u1")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected quota rejection, got %d", resp.Code)
	}
	if resp.Header().Get("X-Quota-Remaining") != "0" {
		t.Fatalf("unexpected remaining header: %q", resp.Header().Get("X-Quota-Remaining"))
	}

	if other := postAs(router, "u2"); other.Code != http.StatusOK {
		t.Fatalf("quota must be per caller, got %d", other.Code)
	}
}

func TestQuotaRefundsFailedAnalysis(t *testing.T) {
	router := newQuotaRouter(1, http.StatusBadGateway)

	for i := 0; i < 3; i++ {
		if resp := postAs(router, "u1"); resp.Code != http.StatusBadGateway {
			t.Fatalf("request %d: failed analyses must not consume quota, got %d", i, resp.Code)
		}
	}
}

func TestQuotaDisabled(t *testing.T) {
	router := newQuotaRouter(0, http.StatusOK)

	for i := 0; i < 5; i++ {
		resp := postAs(router, "u1")
		if resp.Code != http.StatusOK {
			t.Fatalf("disabled quota must pass, got %d", resp.Code)
		}
		if resp.Header().Get("X-Quota-Limit") != "" {
			t.Fatalf("disabled quota must not set headers")
		}
	}
}

func TestCallerIdentityPrefersUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/x", nil)
	c.Request.RemoteAddr = "1.2.3.4:1234"

	if got := CallerIdentity(c); got != "ip:1.2.3.4" {
		t.Fatalf("unexpected identity: %s", got)
	}
	c.Request.Header.Set(UserIDHeader, "parent-42")
	if got := CallerIdentity(c); got != "user:parent-42" {
		t.Fatalf("unexpected identity: %s", got)
	}
}
