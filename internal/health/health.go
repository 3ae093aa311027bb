package health

import (
	"context"
	"time"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

var startTime = time.Now()

const deepCheckTimeout = 2 * time.Second

// Component 는 상태 구성 요소다.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response 는 상태 응답 본문이다.
type Response struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
}

// StorePinger 는 공유 저장소 연결 상태를 확인한다.
type StorePinger interface {
	Ping(ctx context.Context) error
	Backend() string
}

// Checker 는 구성 요소 상태를 모은다.
type Checker struct {
	cfg   *config.Config
	store StorePinger
}

// NewChecker 는 상태 수집기를 생성한다. store 는 nil 일 수 있다.
func NewChecker(cfg *config.Config, store StorePinger) *Checker {
	return &Checker{cfg: cfg, store: store}
}

// Collect 는 헬스 상태를 수집한다. deepChecks 가 false 면 외부 호출을 하지 않는다.
func (h *Checker) Collect(ctx context.Context, deepChecks bool) Response {
	components := map[string]Component{
		"app":    buildAppStatus(),
		"store":  h.buildStoreStatus(ctx, deepChecks),
		"gemini": buildGeminiStatus(h.cfg),
	}

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:     overall,
		Components: components,
	}
}

func buildAppStatus() Component {
	uptimeSeconds := int(time.Since(startTime).Seconds())
	return Component{
		Status: "ok",
		Detail: map[string]any{
			"uptime_seconds": uptimeSeconds,
		},
	}
}

func buildGeminiStatus(cfg *config.Config) Component {
	apiKeyPresent := false
	detail := map[string]any{}

	if cfg != nil {
		apiKeyPresent = cfg.Gemini.PrimaryKey() != ""
		detail["free_drawing_model"] = cfg.Gemini.ModelForTask(config.TaskFreeDrawing)
		detail["instrument_model"] = cfg.Gemini.ModelForTask(config.TaskInstrument)
		detail["timeout_seconds"] = cfg.Gemini.TimeoutSeconds
		detail["requests_per_second"] = cfg.Gemini.RequestsPerSecond
	}
	detail["api_key_present"] = apiKeyPresent

	status := "ok"
	if !apiKeyPresent {
		status = "degraded"
	}
	return Component{Status: status, Detail: detail}
}

func (h *Checker) buildStoreStatus(ctx context.Context, deepChecks bool) Component {
	storeEnabled := h.cfg != nil && h.cfg.Store.Enabled
	backend := "none"
	if h.store != nil {
		backend = h.store.Backend()
	}

	detail := map[string]any{
		"store_enabled": storeEnabled,
		"backend":       backend,
		"deep_checked":  deepChecks,
	}
	status := "ok"
	if storeEnabled && backend != "valkey" {
		status = "degraded"
	}

	if deepChecks && h.store != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deepCheckTimeout)
		defer cancel()
		if err := h.store.Ping(checkCtx); err != nil {
			status = "degraded"
			detail["ping_error"] = err.Error()
		} else {
			detail["store_connected"] = true
		}
	}

	return Component{Status: status, Detail: detail}
}
