package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/achievement"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/guard"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/store"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/telemetry"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/usage"
)

const (
	telemetryShutdownTimeout = 5 * time.Second
	httpShutdownTimeout      = 10 * time.Second
)

// GRPC: gRPC 서버와 리스너 묶음입니다. 비활성 설정이면 둘 다 nil 입니다.
type GRPC struct {
	Server   *grpc.Server
	Listener net.Listener
	Health   *health.Server
}

// App: 애플리케이션 구성 요소를 묶는다.
type App struct {
	Server          *http.Server
	GRPC            GRPC
	Logger          *slog.Logger
	Config          *config.Config
	Store           *store.Store
	Guard           *guard.InjectionGuard
	Notifier        *achievement.Notifier
	UsageRepository *usage.Repository
	UsageRecorder   *usage.Recorder
	UsageReporter   *usage.Reporter
	Telemetry       *telemetry.Provider
}

// NewApp: App 인스턴스를 생성합니다.
func NewApp(
	server *http.Server,
	grpcServer GRPC,
	logger *slog.Logger,
	cfg *config.Config,
	sharedStore *store.Store,
	injectionGuard *guard.InjectionGuard,
	notifier *achievement.Notifier,
	usageRepository *usage.Repository,
	usageRecorder *usage.Recorder,
	usageReporter *usage.Reporter,
	telemetryProvider *telemetry.Provider,
) *App {
	return &App{
		Server:          server,
		GRPC:            grpcServer,
		Logger:          logger,
		Config:          cfg,
		Store:           sharedStore,
		Guard:           injectionGuard,
		Notifier:        notifier,
		UsageRepository: usageRepository,
		UsageRecorder:   usageRecorder,
		UsageReporter:   usageReporter,
		Telemetry:       telemetryProvider,
	}
}

// StartBackground: 룰팩 감시와 사용량 리포트 일정을 시작합니다.
// ctx 가 취소되면 룰팩 감시가 멈춥니다.
func (a *App) StartBackground(ctx context.Context) error {
	if a.Guard != nil {
		if err := a.Guard.Watch(ctx); err != nil {
			return fmt.Errorf("watch rulepacks: %w", err)
		}
	}
	if a.UsageReporter != nil {
		if err := a.UsageReporter.Start(ctx); err != nil {
			return fmt.Errorf("usage reporter: %w", err)
		}
	}
	return nil
}

// Run: 백그라운드 작업과 HTTP/gRPC 서버를 띄우고 ctx 가 끝나거나 서버 하나가 실패할 때까지 기다립니다.
// 종료 시 HTTP 는 httpShutdownTimeout 안에 정리하고, gRPC 는 진행 중인 호출을 마칩니다.
func (a *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	if err := a.StartBackground(ctx); err != nil {
		return err
	}

	a.Logger.Info("http_server_start",
		"addr", a.Server.Addr,
		"http2", a.Config.HTTP.HTTP2Enabled,
		"store_backend", a.Store.Backend(),
	)
	group.Go(func() error {
		if err := a.Server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.GRPC.Server != nil {
		a.Logger.Info("grpc_server_start", "addr", a.GRPC.Listener.Addr().String())
		group.Go(func() error {
			if err := a.GRPC.Server.Serve(a.GRPC.Listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("server_shutdown", "cause", context.Cause(ctx))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), httpShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("http_server_shutdown_failed", "err", err)
			_ = a.Server.Close()
		}
		if a.GRPC.Server != nil {
			a.GRPC.Server.GracefulStop()
		}
		return nil
	})

	return group.Wait()
}

// Close: 앱 리소스를 정리합니다.
func (a *App) Close() {
	if a.GRPC.Health != nil {
		a.GRPC.Health.Shutdown()
	}
	if a.GRPC.Server != nil {
		a.GRPC.Server.GracefulStop()
	}
	if a.GRPC.Listener != nil {
		_ = a.GRPC.Listener.Close()
	}
	if a.UsageReporter != nil {
		a.UsageReporter.Stop()
	}
	if a.Notifier != nil {
		a.Notifier.Close()
	}
	if a.UsageRecorder != nil {
		a.UsageRecorder.Close()
	}
	if a.UsageRepository != nil {
		a.UsageRepository.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := a.Telemetry.Shutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("telemetry_shutdown_failed", "err", err)
		}
	}
}
