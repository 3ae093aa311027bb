package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 64 << 10
	// 분석 타임아웃 이후 폴백/에러 응답을 쓰는 여유 시간
	writeGrace = 15 * time.Second
)

// NewHTTPServer 는 분석 API 용 HTTP 서버를 생성한다.
// 쓰기 타임아웃은 분석 타임아웃보다 길게 잡아 폴백 응답이 잘리지 않게 한다.
func NewHTTPServer(cfg *config.Config, router *gin.Engine) *http.Server {
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	if cfg.HTTP.HTTP2Enabled {
		server.Handler = h2c.NewHandler(router, &http2.Server{IdleTimeout: idleTimeout})
	}

	return server
}

func writeTimeout(cfg *config.Config) time.Duration {
	analysisTimeout := cfg.Pipeline.AnalysisTimeout()
	if analysisTimeout <= 0 {
		return 0
	}
	return analysisTimeout + writeGrace
}
