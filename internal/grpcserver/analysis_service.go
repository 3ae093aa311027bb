package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/handler/shared"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

const (
	userIDMetadataKey     = "x-user-id"
	analysisIDMetadataKey = "x-analysis-id"
	maxUserIDLength       = 128
	refundTimeout         = 2 * time.Second
)

// AnalysisService: 내부 서비스용 그림 분석 gRPC 구현체입니다.
// HTTP 와 같은 analysis.Service 와 일일 할당량을 공유합니다.
type AnalysisService struct {
	service *analysis.Service
	limiter *quota.Limiter
	logger  *slog.Logger
}

var _ AnalysisServer = (*AnalysisService)(nil)

// NewAnalysisService: gRPC AnalysisService를 생성합니다.
func NewAnalysisService(service *analysis.Service, limiter *quota.Limiter, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		service: service,
		limiter: limiter,
		logger:  logger,
	}
}

// Analyze 는 그림 1건을 분석한다.
func (s *AnalysisService) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in drawing.AnalysisRequest
	if err := shared.Decode(req.AsMap(), &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid analysis request payload")
	}

	userID := userIDFromContext(ctx)
	identity := "grpc"
	if userID != "" {
		identity = "user:" + userID
	}

	// 저장소 오류로 선차감하지 못했으면 실패해도 되돌리지 않는다.
	reserved := false
	if s.limiter.Enabled() {
		_, err := s.limiter.Reserve(ctx, identity)
		switch {
		case errors.Is(err, quota.ErrExceeded):
			metrics.RecordQuotaRejection()
			return nil, status.Error(codes.ResourceExhausted, "daily analysis quota exceeded")
		case err != nil:
			s.logError(ctx, "quota_reserve_failed", err)
		default:
			reserved = true
		}
	}

	outcome, err := s.service.Analyze(ctx, in, userID)
	if err != nil {
		if reserved {
			s.refund(ctx, identity)
		}
		return nil, err
	}

	_ = grpc.SetHeader(ctx, metadata.Pairs(analysisIDMetadataKey, outcome.AnalysisID))
	resp, err := toStruct(outcome.Result)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode analysis result")
	}
	return resp, nil
}

// TaskTypes 는 지원 검사 목록과 언어를 반환한다.
func (s *AnalysisService) TaskTypes(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	resp, err := toStruct(map[string]any{
		"taskTypes": s.service.TaskTypes(),
		"languages": drawing.SupportedLanguages(),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode task types")
	}
	return resp, nil
}

func (s *AnalysisService) refund(ctx context.Context, identity string) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()
	if err := s.limiter.Refund(refundCtx, identity); err != nil {
		s.logError(ctx, "quota_refund_failed", err)
	}
}

func (s *AnalysisService) logError(ctx context.Context, event string, err error) {
	if s.logger == nil || err == nil {
		return
	}
	s.logger.Warn(event, "request_id", RequestIDFromContext(ctx), "err", err)
}

// toStruct 는 JSON 태그 그대로 structpb.Struct 로 옮긴다.
func toStruct(value any) (*structpb.Struct, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("new struct: %w", err)
	}
	return out, nil
}

func userIDFromContext(ctx context.Context) string {
	value := firstMetadata(ctx, userIDMetadataKey)
	if len(value) > maxUserIDLength {
		return ""
	}
	return value
}
