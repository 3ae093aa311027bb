package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/health"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
)

// TaskModelConfig: 작업 분류별 모델 호출 설정입니다.
type TaskModelConfig struct {
	Model           string  `json:"model"`
	ThinkingLevel   string  `json:"thinking_level"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// ModelConfigResponse: /health/models 응답입니다.
type ModelConfigResponse struct {
	DefaultModel   string                     `json:"default_model"`
	Tasks          map[string]TaskModelConfig `json:"tasks"`
	SchemaVersion  string                     `json:"schema_version"`
	TimeoutSeconds int                        `json:"timeout_seconds"`
	JSONMode       bool                       `json:"json_mode"`
	Transport      string                     `json:"transport"`
}

func newModelConfigResponse(cfg *config.Config) ModelConfigResponse {
	task := func(name string, temperature float64, maxTokens int) TaskModelConfig {
		return TaskModelConfig{
			Model:           cfg.Gemini.ModelForTask(name),
			ThinkingLevel:   cfg.Gemini.Thinking.Level(name),
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		}
	}
	transport := "h1"
	if cfg.HTTP.HTTP2Enabled {
		transport = "h2c"
	}
	return ModelConfigResponse{
		DefaultModel: cfg.Gemini.DefaultModel,
		Tasks: map[string]TaskModelConfig{
			config.TaskFreeDrawing: task(config.TaskFreeDrawing, cfg.Pipeline.FreeDrawingTemperature, cfg.Pipeline.FreeDrawingMaxTokens),
			config.TaskInstrument:  task(config.TaskInstrument, cfg.Pipeline.InstrumentTemperature, cfg.Pipeline.InstrumentMaxTokens),
		},
		SchemaVersion:  cfg.Pipeline.SchemaVersion,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
		JSONMode:       cfg.Gemini.JSONMode,
		Transport:      transport,
	}
}

// RegisterHealthRoutes: /health (liveness), /health/ready, /health/models, /metrics 를 등록합니다.
// liveness 는 외부 의존성을 보지 않습니다.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config, checker *health.Checker) {
	models := newModelConfigResponse(cfg)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, checker.Collect(c.Request.Context(), false))
	})
	router.GET("/health/ready", func(c *gin.Context) {
		report := checker.Collect(c.Request.Context(), true)
		if report.Status != "ok" {
			c.JSON(http.StatusServiceUnavailable, report)
			return
		}
		c.JSON(http.StatusOK, report)
	})
	router.GET("/health/models", func(c *gin.Context) {
		c.JSON(http.StatusOK, models)
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}
