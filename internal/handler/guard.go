package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/guard"
)

// GuardRequest 는 검사할 텍스트 목록이다. 분석 요청의 자유 텍스트 필드를 한 번에 넣어 볼 수 있다.
type GuardRequest struct {
	Texts []string `json:"texts" binding:"required,min=1,max=20,dive,max=4000"`
}

// GuardVerdict 는 텍스트 하나의 판정이다.
type GuardVerdict struct {
	Score     float64       `json:"score"`
	Blocked   bool          `json:"blocked"`
	Threshold float64       `json:"threshold"`
	Hits      []guard.Match `json:"hits"`
}

// GuardResponse 의 Blocked 는 하나라도 차단되면 true 다. 분석 요청도 같은 기준으로 거절된다.
type GuardResponse struct {
	Blocked  bool           `json:"blocked"`
	Verdicts []GuardVerdict `json:"verdicts"`
}

// RulepackResponse 는 현재 적재된 규칙 묶음 목록이다.
type RulepackResponse struct {
	Generation uint64           `json:"generation"`
	Packs      []guard.PackInfo `json:"packs"`
}

// GuardHandler 는 입력 가드 운영 API 다.
type GuardHandler struct {
	guard *guard.InjectionGuard
}

func NewGuardHandler(guard *guard.InjectionGuard) *GuardHandler {
	return &GuardHandler{guard: guard}
}

// RegisterRoutes 는 /api/guard 아래 라우트를 등록한다.
func (h *GuardHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/guard")
	group.POST("/evaluations", h.handleEvaluate)
	group.GET("/rulepacks", h.handleRulepacks)
	group.POST("/reload", h.handleReload)
}

func (h *GuardHandler) handleEvaluate(c *gin.Context) {
	var req GuardRequest
	if !bindJSON(c, &req) {
		return
	}

	resp := GuardResponse{Verdicts: make([]GuardVerdict, 0, len(req.Texts))}
	for _, text := range req.Texts {
		evaluation := h.guard.Evaluate(text)
		verdict := GuardVerdict{
			Score:     evaluation.Score,
			Blocked:   evaluation.Blocked(),
			Threshold: evaluation.Threshold,
			Hits:      evaluation.Hits,
		}
		resp.Blocked = resp.Blocked || verdict.Blocked
		resp.Verdicts = append(resp.Verdicts, verdict)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GuardHandler) handleRulepacks(c *gin.Context) {
	packs, generation := h.guard.Packs()
	c.JSON(http.StatusOK, RulepackResponse{Generation: generation, Packs: packs})
}

func (h *GuardHandler) handleReload(c *gin.Context) {
	h.guard.Reload()
	h.handleRulepacks(c)
}
