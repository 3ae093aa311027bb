package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/grpcserver"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/logging"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/store"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/telemetry"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usage"
)

// ProvideLogger: 로거를 구성해 반환합니다.
// 로그에는 활성 span 의 trace_id/span_id 가 함께 기록됩니다.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// ProvideTelemetry: OTel TracerProvider 를 초기화합니다.
func ProvideTelemetry(cfg *config.Config) (*telemetry.Provider, error) {
	provider, err := telemetry.NewProvider(context.Background(), cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return provider, nil
}

// ProvideStore: 공유 저장소(Valkey 또는 메모리)를 연결합니다.
func ProvideStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	sharedStore, err := store.NewStore(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	return sharedStore, nil
}

// ProvideUsageReporter: 일일 사용량 리포터를 생성합니다.
func ProvideUsageReporter(cfg *config.Config, repo usage.Store, logger *slog.Logger) *usage.Reporter {
	spec := ""
	if cfg.Database.Enabled {
		spec = cfg.Database.UsageReportCron
	}
	return usage.NewReporter(repo, spec, logger)
}

// ProvideGRPC: gRPC 서버를 만들고 분석 서비스를 등록합니다.
func ProvideGRPC(cfg *config.Config, logger *slog.Logger, service *grpcserver.AnalysisService) (GRPC, error) {
	server, listener, err := grpcserver.NewServer(cfg, logger)
	if err != nil {
		return GRPC{}, fmt.Errorf("grpc server: %w", err)
	}
	if server == nil {
		return GRPC{}, nil
	}
	grpcserver.RegisterAnalysisServer(server, service)
	healthServer := grpcserver.RegisterHealth(server)
	return GRPC{Server: server, Listener: listener, Health: healthServer}, nil
}
