package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/middleware"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

// AnalysisIDHeader 는 분석 식별자 응답 헤더다.
const AnalysisIDHeader = middleware.AnalysisIDHeader

// 이미지 10장 base64 와 특징 맵을 담을 수 있는 크기.
const maxAnalysisBodyBytes int64 = 64 << 20

// TaskTypesResponse 는 지원 검사 목록 응답이다.
type TaskTypesResponse struct {
	TaskTypes []drawing.TaskInfo `json:"taskTypes"`
	Languages []drawing.Language `json:"languages"`
}

// QuotaResponse 는 호출자의 당일 할당량 응답이다.
type QuotaResponse struct {
	Enabled   bool   `json:"enabled"`
	Limit     int    `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	ResetAt   string `json:"reset_at,omitempty"`
}

// AnalysisHandler 는 그림 분석 API 핸들러다.
type AnalysisHandler struct {
	service *analysis.Service
	limiter *quota.Limiter
	metrics *metrics.Store
	logger  *slog.Logger
}

// NewAnalysisHandler 는 분석 핸들러를 생성한다. limiter 는 nil 일 수 있다.
func NewAnalysisHandler(
	service *analysis.Service,
	limiter *quota.Limiter,
	metricsStore *metrics.Store,
	logger *slog.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		limiter: limiter,
		metrics: metricsStore,
		logger:  logger,
	}
}

// RegisterRoutes 는 분석 라우트를 등록한다.
func (h *AnalysisHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/analysis")
	group.POST("/drawings", middleware.Quota(h.limiter, h.logger), h.handleAnalyze)
	group.GET("/task-types", h.handleTaskTypes)
	group.GET("/quota", h.handleQuota)
	group.GET("/stats", h.handleStats)
}

func (h *AnalysisHandler) handleAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAnalysisBodyBytes)

	var req drawing.AnalysisRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := h.service.Analyze(c.Request.Context(), req, middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	middleware.SetAnalysisID(c, outcome.AnalysisID)
	c.JSON(http.StatusOK, outcome.Result)
}

func (h *AnalysisHandler) handleTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, TaskTypesResponse{
		TaskTypes: h.service.TaskTypes(),
		Languages: drawing.SupportedLanguages(),
	})
}

func (h *AnalysisHandler) handleQuota(c *gin.Context) {
	if !h.limiter.Enabled() {
		c.JSON(http.StatusOK, QuotaResponse{Enabled: false})
		return
	}

	status, err := h.limiter.Status(c.Request.Context(), middleware.CallerIdentity(c))
	if err != nil {
		h.logger.Warn("quota_status_failed", "err", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, QuotaResponse{
		Enabled:   true,
		Limit:     status.Limit,
		Used:      status.Used,
		Remaining: status.Remaining,
		ResetAt:   status.ResetAt.UTC().Format(time.RFC3339),
	})
}

func (h *AnalysisHandler) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
