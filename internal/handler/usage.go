package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/httperror"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usage"
)

const usageDateLayout = "2006-01-02"

// DailyUsageResponse: 일자·검사 유형별 사용량 응답입니다.
type DailyUsageResponse struct {
	UsageDate       string  `json:"usage_date"`
	TaskType        string  `json:"task_type,omitempty"`
	AnalysisCount   int64   `json:"analysis_count"`
	FallbackCount   int64   `json:"fallback_count"`
	FallbackRate    float64 `json:"fallback_rate"`
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	TotalTokens     int64   `json:"total_tokens"`
	ReasoningTokens int64   `json:"reasoning_tokens"`
}

// UsageListResponse: 사용량 목록 응답입니다.
type UsageListResponse struct {
	Usages             []DailyUsageResponse `json:"usages"`
	TotalAnalysisCount int64                `json:"total_analysis_count"`
	TotalFallbackCount int64                `json:"total_fallback_count"`
	TotalInputTokens   int64                `json:"total_input_tokens"`
	TotalOutputTokens  int64                `json:"total_output_tokens"`
	TotalTokens        int64                `json:"total_tokens"`
}

// UsageHandler: 사용량 API 핸들러입니다.
type UsageHandler struct {
	repo   usage.Reader
	logger *slog.Logger
	now    func() time.Time
}

// NewUsageHandler: 사용량 핸들러를 생성합니다.
func NewUsageHandler(repo usage.Reader, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterRoutes: 사용량 라우트를 등록합니다.
func (h *UsageHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/analysis/usage")
	group.GET("/daily", h.handleDaily)
	group.GET("/recent", h.handleRecent)
	group.GET("/total", h.handleTotal)
}

func (h *UsageHandler) handleDaily(c *gin.Context) {
	day, ok := parseDate(c)
	if !ok {
		return
	}

	rows, err := h.repo.GetDailyUsage(c.Request.Context(), day)
	if err != nil {
		h.writeUsageError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.buildUsageListResponse(rows))
}

func (h *UsageHandler) handleRecent(c *gin.Context) {
	days, ok := parseDays(c, 7)
	if !ok {
		return
	}

	rows, err := h.repo.GetRecentUsage(c.Request.Context(), days)
	if err != nil {
		h.writeUsageError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.buildUsageListResponse(rows))
}

func (h *UsageHandler) handleTotal(c *gin.Context) {
	days, ok := parseDays(c, 30)
	if !ok {
		return
	}

	total, err := h.repo.GetTotalUsage(c.Request.Context(), days)
	if err != nil {
		h.writeUsageError(c, err)
		return
	}

	resp := toDailyUsageResponse(total)
	if total.UsageDate.IsZero() {
		resp.UsageDate = h.now().UTC().Format(usageDateLayout)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsageHandler) buildUsageListResponse(rows []usage.DailyUsage) UsageListResponse {
	response := UsageListResponse{
		Usages: make([]DailyUsageResponse, 0, len(rows)),
	}

	for _, row := range rows {
		response.Usages = append(response.Usages, toDailyUsageResponse(row))
		response.TotalAnalysisCount += row.AnalysisCount
		response.TotalFallbackCount += row.FallbackCount
		response.TotalInputTokens += row.InputTokens
		response.TotalOutputTokens += row.OutputTokens
		response.TotalTokens += row.TotalTokens()
	}

	return response
}

func toDailyUsageResponse(row usage.DailyUsage) DailyUsageResponse {
	date := ""
	if !row.UsageDate.IsZero() {
		date = row.UsageDate.Format(usageDateLayout)
	}
	return DailyUsageResponse{
		UsageDate:       date,
		TaskType:        row.TaskType,
		AnalysisCount:   row.AnalysisCount,
		FallbackCount:   row.FallbackCount,
		FallbackRate:    row.FallbackRate(),
		InputTokens:     row.InputTokens,
		OutputTokens:    row.OutputTokens,
		TotalTokens:     row.TotalTokens(),
		ReasoningTokens: row.ReasoningTokens,
	}
}

// parseDate 는 ?date=YYYY-MM-DD 를 UTC 로 읽는다. 없으면 zero(오늘).
func parseDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Time{}, true
	}
	day, err := time.ParseInLocation(usageDateLayout, raw, time.UTC)
	if err != nil {
		writeError(c, httperror.NewInvalidInput("date must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return day, true
}

func parseDays(c *gin.Context, defaultDays int) (int, bool) {
	raw := c.Query("days")
	if raw == "" {
		return defaultDays, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 || parsed > 366 {
		writeError(c, httperror.NewInvalidInput("days must be between 1 and 366"))
		return 0, false
	}
	return parsed, true
}

func (h *UsageHandler) writeUsageError(c *gin.Context, err error) {
	if errors.Is(err, usage.ErrDisabled) {
		writeError(c, httperror.NewUnavailable("Usage database disabled"))
		return
	}
	h.logger.WarnContext(c.Request.Context(), "usage_query_failed", "err", err)
	writeError(c, err)
}
