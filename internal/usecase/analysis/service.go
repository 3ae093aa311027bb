package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/achievement"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/diagnostics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/gemini"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/guard"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/logging"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/telemetry"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/toon"
)

const (
	archiveTimeout = 3 * time.Second
	logRawRunes    = 200
)

// ErrTimeout 은 분석 전체 제한 시간이 지났을 때 반환된다.
var ErrTimeout = errors.New("analysis timed out")

// Notifier: 분석 완료 후 활동 이벤트를 보내는 협력자입니다. 대기하지 않아야 합니다.
type Notifier interface {
	Notify(ctx context.Context, event achievement.Event)
}

// Archiver: 폴백 원문을 보관하는 협력자입니다.
type Archiver interface {
	Save(ctx context.Context, record diagnostics.Record) error
}

// UsageRecorder: 일별 사용량을 기록하는 협력자입니다.
type UsageRecorder interface {
	Record(ctx context.Context, taskType string, fallback bool, usage llm.Usage)
}

// Outcome: 분석 1회의 결과와 부가 정보입니다.
type Outcome struct {
	AnalysisID    string
	Result        *drawing.AnalysisResult
	Fallback      bool
	Model         string
	SchemaVersion string
	Usage         llm.Usage
}

// Dependencies: Service 생성에 필요한 선택적 협력자 묶음입니다.
type Dependencies struct {
	Guard    guard.Guard
	Notifier Notifier
	Archiver Archiver
	Usage    UsageRecorder
	Metrics  *metrics.Store
}

// Service: 그림 분석 파이프라인(HTTP/gRPC 공용) 구현체입니다.
// 검증, 지시문 조립, 모델 호출, 추출, 출력 검증 순으로 진행하며 상태를 공유하지 않습니다.
type Service struct {
	cfg      *config.Config
	client   gemini.Invoker
	catalog  *drawing.Catalog
	composer *drawing.Composer
	profiles Profiles
	deps     Dependencies
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// New: 분석 Service 인스턴스를 생성합니다.
func New(
	cfg *config.Config,
	client gemini.Invoker,
	catalog *drawing.Catalog,
	deps Dependencies,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		client:   client,
		catalog:  catalog,
		composer: drawing.NewComposer(catalog),
		profiles: NewProfiles(cfg),
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// TaskTypes: 지원하는 검사 목록을 반환합니다.
func (s *Service) TaskTypes() []drawing.TaskInfo {
	return drawing.TaskTypes()
}

// Analyze: 요청 1건을 분석합니다.
// 요청 오류는 *drawing.ValidationError, 모델 호출 실패는 *drawing.ModelInvocationError,
// 제한 시간 초과는 ErrTimeout 으로 반환합니다. 그 외의 출력 문제는 폴백 결과로 대체됩니다.
func (s *Service) Analyze(ctx context.Context, in drawing.AnalysisRequest, userID string) (*Outcome, error) {
	analysisID := s.newID()
	ctx, span := telemetry.StartStage(ctx, "drawing.analyze",
		attribute.String("analysis.id", analysisID),
		attribute.String("analysis.task_type", in.TaskType),
	)
	defer span.End()
	ctx = logging.WithAnalysis(ctx, analysisID, in.TaskType)

	req, err := drawing.ValidateRequest(in)
	if err != nil {
		s.recordOutcome(in.TaskType, metrics.OutcomeInvalid)
		telemetry.Fail(span, nil, "invalid request")
		return nil, err
	}
	if err := s.screen(req); err != nil {
		s.recordOutcome(string(req.TaskType), metrics.OutcomeGuardRejected)
		telemetry.Fail(span, nil, "guard rejected")
		s.logger.WarnContext(ctx, "analysis_guard_rejected", "err", err)
		return nil, err
	}

	profile := s.profiles.For(req.Category)
	composition, err := s.composer.Compose(req)
	if err != nil {
		telemetry.Fail(span, err, "compose failed")
		return nil, fmt.Errorf("compose analysis %s: %w", analysisID, err)
	}
	span.SetAttributes(
		attribute.String("analysis.language", string(req.Language)),
		attribute.Int("analysis.images", llm.CountImages(composition.Parts)),
	)

	callCtx := ctx
	if timeout := s.cfg.Pipeline.AnalysisTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	callCtx, callSpan := telemetry.StartStage(callCtx, "drawing.model_call",
		attribute.String("model.task", taskKey(req.Category)),
	)
	temperature := profile.Temperature
	chat, model, err := s.client.Generate(callCtx, gemini.Request{
		SystemPrompt:    composition.System,
		Parts:           composition.Parts,
		Model:           profile.Model,
		Task:            taskKey(req.Category),
		Temperature:     &temperature,
		MaxOutputTokens: profile.MaxOutputTokens,
		ThinkingLevel:   profile.ThinkingLevel,
		JSONMode:        profile.JSONMode,
	})
	callSpan.SetAttributes(attribute.String("model.name", model))
	if err != nil {
		telemetry.Fail(callSpan, err, "model invocation failed")
		callSpan.End()
		telemetry.Fail(span, nil, "model invocation failed")
		return nil, s.invocationError(callCtx, req, analysisID, model, err)
	}
	callSpan.End()

	result, reason := s.buildResult(req, chat.Text)
	fallback := reason != ""
	if fallback {
		result = drawing.Fallback(req, s.catalog, chat.Text)
		s.logger.WarnContext(ctx,
			"analysis_fallback",
			"language", req.Language,
			"model", model,
			"reason", reason,
			"raw", logging.Trim(chat.Text, logRawRunes),
		)
		s.archive(ctx, diagnostics.Record{
			AnalysisID:    analysisID,
			TaskType:      string(req.TaskType),
			Language:      string(req.Language),
			Model:         model,
			SchemaVersion: profile.SchemaVersion,
			Reason:        reason,
			RawText:       chat.Text,
			CreatedAt:     s.now(),
		})
	}
	drawing.EnsureConversationGuide(result, req, s.catalog)

	outcome := metrics.OutcomeSuccess
	if fallback {
		outcome = metrics.OutcomeFallback
	}
	s.recordOutcome(string(req.TaskType), outcome)
	if s.deps.Usage != nil {
		s.deps.Usage.Record(ctx, string(req.TaskType), fallback, chat.Usage)
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(ctx, achievement.Event{
			UserID:     userID,
			Activity:   achievement.ActivityDrawingAnalysis,
			TaskType:   string(req.TaskType),
			AnalysisID: analysisID,
			Fallback:   fallback,
			At:         s.now(),
		})
	}

	span.SetAttributes(attribute.Bool("analysis.fallback", fallback))
	s.logger.InfoContext(ctx,
		"analysis_completed",
		"language", req.Language,
		"model", model,
		"schema_version", profile.SchemaVersion,
		"images", len(req.EffectiveImages()),
		"fallback", fallback,
		"input_tokens", chat.Usage.InputTokens,
		"output_tokens", chat.Usage.OutputTokens,
	)

	return &Outcome{
		AnalysisID:    analysisID,
		Result:        result,
		Fallback:      fallback,
		Model:         model,
		SchemaVersion: profile.SchemaVersion,
		Usage:         chat.Usage,
	}, nil
}

// buildResult 는 원문을 추출하고 검증한다. 실패하면 사유 문자열을 돌려준다.
func (s *Service) buildResult(req *drawing.Request, raw string) (*drawing.AnalysisResult, string) {
	extraction := drawing.Extract(raw)
	if !extraction.Success {
		return nil, "extraction: " + extraction.Error
	}
	if drawing.UpgradeLegacy(extraction.Data) {
		s.logger.Debug("analysis_legacy_upgraded", "task_type", req.TaskType)
	}
	result, err := drawing.ValidateResult(extraction.Data, req, s.catalog.Disclaimer(req.Language))
	if err != nil {
		return nil, err.Error()
	}
	return result, ""
}

// screen 은 모델에 그대로 전달되는 호출자 텍스트를 가드로 검사한다.
func (s *Service) screen(req *drawing.Request) error {
	if s.deps.Guard == nil {
		return nil
	}
	check := func(field, text string) error {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if err := s.deps.Guard.EnsureSafe(text); err != nil {
			return &drawing.ValidationError{Field: field, Reason: "rejected by input guard"}
		}
		return nil
	}

	if err := check("culturalContext", req.CulturalContext); err != nil {
		return err
	}
	for i, img := range req.Images {
		if err := check(fmt.Sprintf("images[%d].label", i), img.Label); err != nil {
			return err
		}
	}
	for _, feature := range req.Features {
		field := "featuresJson." + feature.Key
		if err := check(field, feature.Key); err != nil {
			return err
		}
		switch v := feature.Value.(type) {
		case string:
			if err := check(field, v); err != nil {
				return err
			}
		case map[string]any, []any:
			if err := check(field, toon.Encode(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) invocationError(ctx context.Context, req *drawing.Request, analysisID, model string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		s.recordOutcome(string(req.TaskType), metrics.OutcomeTimeout)
		s.logger.WarnContext(ctx, "analysis_timeout", "model", model)
		return fmt.Errorf("%w: %s: %w", ErrTimeout, analysisID, context.DeadlineExceeded)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("analysis %s: %w", analysisID, err)
	}

	s.recordOutcome(string(req.TaskType), metrics.OutcomeModelError)
	s.logger.ErrorContext(ctx, "model_invocation_failed", "model", model, "err", err)
	return &drawing.ModelInvocationError{
		Language: req.Language,
		Message:  s.catalog.FailureMessage(req.Language),
		Err:      err,
	}
}

func (s *Service) archive(ctx context.Context, record diagnostics.Record) {
	if s.deps.Archiver == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := s.deps.Archiver.Save(saveCtx, record); err != nil && !errors.Is(err, diagnostics.ErrDisabled) {
		s.logger.WarnContext(ctx, "diagnostics_save_failed", "err", err)
	}
}

func (s *Service) recordOutcome(taskType string, outcome string) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.RecordAnalysis(taskType, outcome)
}

