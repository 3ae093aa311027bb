//go:build wireinject

package di

import (
	"github.com/google/wire"

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
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/store"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usage"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usecase/analysis"
)

func InitializeApp() (*App, error) {
	wire.Build(
		config.ProvideConfig,
		ProvideLogger,
		ProvideTelemetry,
		ProvideStore,
		metrics.NewStore,
		usage.NewRepository,
		usage.NewRecorder,
		ProvideUsageReporter,
		wire.Bind(new(usage.Store), new(*usage.Repository)),
		gemini.NewClient,
		wire.Bind(new(gemini.Invoker), new(*gemini.Client)),
		guard.NewGuard,
		wire.Bind(new(guard.Guard), new(*guard.InjectionGuard)),
		drawing.NewCatalog,
		achievement.NewNotifier,
		wire.Bind(new(achievement.Publisher), new(*store.Store)),
		diagnostics.NewArchive,
		wire.Bind(new(diagnostics.BlobStore), new(*store.Store)),
		quota.NewLimiter,
		wire.Bind(new(quota.Counter), new(*store.Store)),
		wire.Bind(new(analysis.Notifier), new(*achievement.Notifier)),
		wire.Bind(new(analysis.Archiver), new(*diagnostics.Archive)),
		wire.Bind(new(analysis.UsageRecorder), new(*usage.Recorder)),
		wire.Struct(new(analysis.Dependencies), "*"),
		analysis.New,
		health.NewChecker,
		wire.Bind(new(health.StorePinger), new(*store.Store)),
		handler.NewAnalysisHandler,
		handler.NewUsageHandler,
		handler.NewGuardHandler,
		handler.NewRouter,
		server.NewHTTPServer,
		grpcserver.NewAnalysisService,
		ProvideGRPC,
		NewApp,
	)
	return nil, nil
}
