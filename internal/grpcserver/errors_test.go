package grpcserver

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/guard"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{&drawing.ValidationError{Field: "taskType", Reason: "unsupported"}, codes.InvalidArgument},
		{&guard.BlockedError{Score: 0.9, Threshold: 0.7}, codes.InvalidArgument},
		{analysis.ErrTimeout, codes.DeadlineExceeded},
		{context.Canceled, codes.Canceled},
		{quota.ErrExceeded, codes.ResourceExhausted},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(statusFromError(tc.err)); got != tc.code {
			t.Fatalf("statusFromError(%v) = %v, want %v", tc.err, got, tc.code)
		}
	}
	if statusFromError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestStatusFromErrorCarriesReason(t *testing.T) {
	st := status.Convert(statusFromError(quota.ErrExceeded))
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			if info.GetReason() != "QUOTA_EXCEEDED" || info.GetDomain() != errorDomain {
				t.Fatalf("unexpected error info: %+v", info)
			}
			return
		}
	}
	t.Fatalf("expected ErrorInfo detail, got %v", st.Details())
}

func TestErrorMapperKeepsStatusErrors(t *testing.T) {
	interceptor := errorMapperInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: AnalyzeFullMethod}

	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.PermissionDenied, "nope")
	})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected original status kept, got %v", err)
	}

	_, err = interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, analysis.ErrTimeout
	})
	if status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("expected mapped status, got %v", err)
	}
}
