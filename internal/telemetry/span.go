package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mchush24/rork-masalbak-studio-sub007"

// Tracer 는 파이프라인 tracer 다. 트레이싱이 꺼져 있으면 전역 no-op tracer 가 된다.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartStage 는 분석 단계 하나의 span 을 연다.
func StartStage(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Fail 은 span 을 에러 상태로 표시한다. err 가 있으면 이벤트로도 남긴다.
func Fail(span trace.Span, err error, description string) {
	if err != nil {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, description)
}
