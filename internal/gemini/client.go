// Package gemini 는 분석 요청 1건을 Gemini 3 모델에 보내는 호출기다.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
)

var (
	ErrMissingAPIKey = errors.New("missing gemini api key")
	ErrInvalidModel  = errors.New("invalid model")
	ErrEmptyRequest  = errors.New("empty model request")
)

// Request 는 모델 호출 1회의 입력이다. Parts 는 텍스트와 인라인 이미지를 보낼 순서대로 담는다.
// 비어 있는 Model, ThinkingLevel 은 Task 에 맞는 설정값으로 채운다.
type Request struct {
	SystemPrompt    string
	Parts           []llm.Part
	Model           string
	Task            string
	Temperature     *float64
	MaxOutputTokens int
	ThinkingLevel   string
	JSONMode        bool
}

// Invoker 는 모델 호출 1회를 추상화한다. 반환 문자열은 실제 사용한 모델명이다.
type Invoker interface {
	Generate(ctx context.Context, req Request) (llm.ChatResult, string, error)
}

var _ Invoker = (*Client)(nil)

// Client 는 Invoker 의 Gemini 구현이다. 재시도하지 않고, 설정 시 초당 호출 수를 제한한다.
type Client struct {
	cfg     *config.Config
	metrics *metrics.Store
	limiter *rate.Limiter
	keys    *keyPool
}

func NewClient(cfg *config.Config, metricsStore *metrics.Store) (*Client, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("config is nil")
	case metricsStore == nil:
		return nil, errors.New("metrics store is nil")
	}
	return &Client{
		cfg:     cfg,
		metrics: metricsStore,
		limiter: newLimiter(cfg.Gemini),
		keys:    newKeyPool(cfg.Gemini.APIKeys, time.Duration(cfg.Gemini.TimeoutSeconds)*time.Second),
	}, nil
}

func newLimiter(cfg config.GeminiConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, cfg.RequestBurst))
}

// Generate 는 요청을 1회 보내 응답 텍스트와 사용량을 돌려준다. 실패도 지연 시간과 함께 메트릭에 남는다.
func (c *Client) Generate(ctx context.Context, req Request) (llm.ChatResult, string, error) {
	if len(req.Parts) == 0 {
		return llm.ChatResult{}, "", ErrEmptyRequest
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return llm.ChatResult{}, "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	model, response, err := c.call(ctx, req)
	if err != nil {
		c.metrics.RecordModelCall(model, time.Since(start), llm.Usage{}, err)
		return llm.ChatResult{}, model, err
	}
	result := readResponse(response)
	result.Model = model
	c.metrics.RecordModelCall(model, time.Since(start), result.Usage, nil)
	return result, model, nil
}

func (c *Client) call(ctx context.Context, req Request) (string, *genai.GenerateContentResponse, error) {
	model, err := c.resolveModel(req.Model, req.Task)
	if err != nil {
		return model, nil, err
	}
	client, err := c.keys.client(ctx)
	if err != nil {
		return model, nil, err
	}

	thinking := req.ThinkingLevel
	if thinking == "" {
		thinking = c.cfg.Gemini.Thinking.Level(req.Task)
	}
	response, err := client.Models.GenerateContent(ctx, model, toContents(req.Parts), generateConfig(req, model, thinking))
	if err != nil {
		return model, nil, fmt.Errorf("generate content: %w", err)
	}
	return model, response, nil
}

// resolveModel 은 요청 모델이 없으면 작업 분류의 설정 모델을 쓴다. Gemini 3 계열만 허용한다.
func (c *Client) resolveModel(override, task string) (string, error) {
	model := override
	if model == "" {
		model = c.cfg.Gemini.ModelForTask(task)
	}
	if model == "" || !isGemini3(model) {
		return model, ErrInvalidModel
	}
	return model, nil
}

func isGemini3(model string) bool {
	return strings.Contains(strings.ToLower(model), "gemini-3")
}
