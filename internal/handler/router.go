package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/health"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/middleware"
)

const defaultServiceName = "drawing-analysis"

// NewRouter 는 HTTP 라우터를 구성한다.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	checker *health.Checker,
	analysisHandler *AnalysisHandler,
	usageHandler *UsageHandler,
	guardHandler *GuardHandler,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()

	// OTel 미들웨어는 가장 앞에 둔다.
	if cfg.Telemetry.Enabled {
		serviceName := cfg.Telemetry.ServiceName
		if serviceName == "" {
			serviceName = defaultServiceName
		}
		router.Use(otelgin.Middleware(serviceName))
	}

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.Recovery(),
	)
	if len(cfg.CORS.AllowOrigins) > 0 {
		router.Use(cors.New(newCORSConfig(cfg.CORS)))
	}
	if cfg.HTTP.Gzip {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/health", "/metrics"})))
	}
	router.Use(
		middleware.APIKeyAuth(cfg),
		middleware.RateLimit(cfg),
	)

	RegisterHealthRoutes(router, cfg, checker)
	analysisHandler.RegisterRoutes(router)
	usageHandler.RegisterRoutes(router)
	guardHandler.RegisterRoutes(router)

	return router
}

func newCORSConfig(cfg config.CORSConfig) cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowOrigins
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders,
		"Authorization", "X-API-Key", middleware.UserIDHeader, middleware.RequestIDHeader)
	corsConfig.ExposeHeaders = []string{
		AnalysisIDHeader,
		middleware.RequestIDHeader,
		middleware.QuotaLimitHeader,
		middleware.QuotaRemainingHeader,
	}
	return corsConfig
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
