// Package grpcserver 는 분석 파이프라인을 gRPC 로 노출한다.
// 메시지는 structpb.Struct 이고 HTTP JSON 과 같은 필드를 쓴다.
package grpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

const (
	defaultHost = "127.0.0.1"
	defaultPort = 40528

	// HTTP 분석 본문 제한과 같다.
	maxRecvMsgSizeBytes = 64 << 20

	listenTimeout     = 5 * time.Second
	maxConnectionIdle = 5 * time.Minute
	keepaliveMinTime  = 30 * time.Second
)

// NewServer: 설정된 주소에서 리슨하는 gRPC 서버를 만듭니다. 비활성 설정이면 모두 nil 입니다.
func NewServer(cfg *config.Config, logger *slog.Logger) (*grpc.Server, net.Listener, error) {
	if cfg == nil || !cfg.GRPC.Enabled {
		return nil, nil, nil
	}
	host := orDefault(strings.TrimSpace(cfg.GRPC.Host), defaultHost)
	port := cfg.GRPC.Port
	if port <= 0 {
		port = defaultPort
	}

	ctx, cancel := context.WithTimeout(context.Background(), listenTimeout)
	defer cancel()
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return nil, nil, fmt.Errorf("grpc listen: %w", err)
	}
	return grpc.NewServer(serverOptions(cfg, logger)...), lis, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// serverOptions 의 인터셉터 순서: 패닉 복구, request id, 접근 로그, API 키, 에러 코드 변환.
func serverOptions(cfg *config.Config, logger *slog.Logger) []grpc.ServerOption {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var auth config.HTTPAuthConfig
	tracing := false
	if cfg != nil {
		auth = cfg.HTTPAuth
		tracing = cfg.Telemetry.Enabled
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(maxRecvMsgSizeBytes),
		grpc.KeepaliveParams(keepalive.ServerParameters{MaxConnectionIdle: maxConnectionIdle}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{MinTime: keepaliveMinTime, PermitWithoutStream: true}),
		grpc.ChainUnaryInterceptor(
			recoveryInterceptor(logger),
			requestIDInterceptor(),
			accessLogInterceptor(logger),
			authInterceptor(strings.TrimSpace(auth.APIKey), auth.Required),
			errorMapperInterceptor(),
		),
	}
	if tracing {
		opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	return opts
}

// RegisterHealth: 표준 헬스 서비스와 리플렉션을 등록하고 분석 서비스를 SERVING 으로 표시합니다.
func RegisterHealth(server *grpc.Server) *health.Server {
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	hs.SetServingStatus(AnalysisServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(server)
	return hs
}
