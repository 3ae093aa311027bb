package grpcserver

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	requestIDMetadataKey = "x-request-id"
	maxRequestIDLength   = 128

	healthMethodPrefix = "/grpc.health.v1.Health/"
)

type requestIDKey struct{}

func recoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.ErrorContext(ctx, "grpc_panic",
					"method", info.FullMethod,
					"request_id", RequestIDFromContext(ctx),
					"panic", recovered,
					"stack", string(debug.Stack()),
				)
				resp, err = nil, status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// requestIDInterceptor 는 x-request-id 를 정해 컨텍스트에 싣고 응답 헤더로 돌려준다.
func requestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := resolveRequestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, id))
		return handler(context.WithValue(ctx, requestIDKey{}, id), req)
	}
}

func accessLogInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		attrs := []slog.Attr{
			slog.String("request_id", RequestIDFromContext(ctx)),
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("latency", time.Since(start)),
		}
		if userID := userIDFromContext(ctx); userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}
		if err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "grpc_request_failed", append(attrs, slog.Any("err", err))...)
		} else {
			logger.LogAttrs(ctx, slog.LevelDebug, "grpc_request", attrs...)
		}
		return resp, err
	}
}

// authInterceptor 는 헬스 프로브를 제외한 호출에 API 키를 요구한다. 키가 설정되지 않았고 필수도 아니면 통과시킨다.
func authInterceptor(expected string, required bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthMethodPrefix) {
			return handler(ctx, req)
		}
		switch {
		case expected == "" && required:
			return nil, status.Error(codes.Internal, "api key required but not configured")
		case expected == "":
		default:
			provided := extractAPIKey(ctx)
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				return nil, status.Error(codes.Unauthenticated, "invalid api key")
			}
		}
		return handler(ctx, req)
	}
}

func extractAPIKey(ctx context.Context) string {
	if value := firstMetadata(ctx, "x-api-key"); value != "" {
		return value
	}
	scheme, token, ok := strings.Cut(firstMetadata(ctx, "authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(key); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// resolveRequestID 는 호출자가 준 x-request-id 를 재사용하고, 없거나 너무 길면 새로 만든다.
func resolveRequestID(ctx context.Context) string {
	if value := firstMetadata(ctx, requestIDMetadataKey); value != "" && len(value) <= maxRequestIDLength {
		return value
	}
	return uuid.NewString()
}

// RequestIDFromContext: 요청 컨텍스트의 request id 입니다. 인터셉터를 거치지 않았으면 빈 문자열입니다.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
