package grpcserver

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/httperror"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

const errorDomain = "drawing-analysis"

// HTTP 상태 → gRPC 코드. 없는 상태는 Internal.
var grpcCodeByHTTPStatus = map[int]codes.Code{
	http.StatusBadRequest:            codes.InvalidArgument,
	http.StatusUnauthorized:          codes.Unauthenticated,
	http.StatusNotFound:              codes.NotFound,
	http.StatusRequestEntityTooLarge: codes.InvalidArgument,
	http.StatusUnprocessableEntity:   codes.InvalidArgument,
	http.StatusTooManyRequests:       codes.ResourceExhausted,
	http.StatusBadGateway:            codes.Unavailable,
	http.StatusServiceUnavailable:    codes.Unavailable,
	http.StatusGatewayTimeout:        codes.DeadlineExceeded,
}

// errorMapperInterceptor 는 핸들러가 돌려준 일반 에러를 gRPC status 로 바꾼다.
// 이미 status 인 에러는 그대로 둔다.
func errorMapperInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return resp, err
		}
		return resp, statusFromError(err)
	}
}

// statusFromError 는 HTTP API 와 같은 오류 분류(httperror)를 거쳐 gRPC 코드를 고른다.
// ErrorInfo.Reason 에는 HTTP 응답의 error_code 가 실린다.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, analysis.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "analysis timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}

	apiErr := httperror.FromError(err)
	if apiErr == nil {
		return status.Error(codes.Internal, "internal server error")
	}
	code, ok := grpcCodeByHTTPStatus[apiErr.Status]
	if !ok {
		code = codes.Internal
	}

	st := status.New(code, apiErr.Message)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(apiErr.Code),
		Domain: errorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}
