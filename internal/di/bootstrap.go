//go:build !wireinject

package di

import (
	"fmt"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/achievement"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/diagnostics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/gemini"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/grpcserver"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/guard"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/handler"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/health"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/server"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usage"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

// InitializeApp 은 애플리케이션 의존성을 초기화하고 App 인스턴스를 반환한다.
// wire.go 의 provider 집합과 같은 순서로 조립한다.
func InitializeApp() (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	telemetryProvider, err := ProvideTelemetry(cfg)
	if err != nil {
		return nil, err
	}

	metricsStore := metrics.NewStore()

	sharedStore, err := ProvideStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	usageRepository := usage.NewRepository(cfg, logger)
	usageRecorder := usage.NewRecorder(cfg, usageRepository, logger)
	usageReporter := ProvideUsageReporter(cfg, usageRepository, logger)

	geminiClient, err := gemini.NewClient(cfg, metricsStore)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	injectionGuard, err := guard.NewGuard(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}

	catalog, err := drawing.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("prompt catalog: %w", err)
	}

	notifier := achievement.NewNotifier(cfg, sharedStore, logger)
	archive := diagnostics.NewArchive(cfg, sharedStore, logger)
	limiter := quota.NewLimiter(cfg, sharedStore)

	service := analysis.New(cfg, geminiClient, catalog, analysis.Dependencies{
		Guard:    injectionGuard,
		Notifier: notifier,
		Archiver: archive,
		Usage:    usageRecorder,
		Metrics:  metricsStore,
	}, logger)

	checker := health.NewChecker(cfg, sharedStore)
	analysisHandler := handler.NewAnalysisHandler(service, limiter, metricsStore, logger)
	usageHandler := handler.NewUsageHandler(usageRepository, logger)
	guardHandler := handler.NewGuardHandler(injectionGuard)

	router := handler.NewRouter(cfg, logger, checker, analysisHandler, usageHandler, guardHandler)
	httpServer := server.NewHTTPServer(cfg, router)

	grpcService := grpcserver.NewAnalysisService(service, limiter, logger)
	grpcBundle, err := ProvideGRPC(cfg, logger, grpcService)
	if err != nil {
		return nil, err
	}

	return NewApp(
		httpServer,
		grpcBundle,
		logger,
		cfg,
		sharedStore,
		injectionGuard,
		notifier,
		usageRepository,
		usageRecorder,
		usageReporter,
		telemetryProvider,
	), nil
}
