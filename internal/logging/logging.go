// Package logging 은 tint 기반 slog 로거를 만든다.
// 레코드에는 활성 span 의 trace_id/span_id 와 컨텍스트에 실린 분석 식별자가 붙는다.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

const logFileName = "analysis.log"

// NewLogger: 로거를 만들어 기본 로거로 등록합니다. LogDir 이 있으면 회전 파일에도 씁니다.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := parseLevel(cfg.Level)

	out, path, err := openSink(cfg)
	if err != nil {
		return nil, err
	}
	logger := newLogger(out, level, path != "")
	slog.SetDefault(logger)
	if path != "" {
		logger.Info("file_logging_enabled", "path", path)
	}
	return logger, nil
}

// openSink 는 stdout 과 (설정 시) lumberjack 파일을 묶은 writer 를 반환한다.
func openSink(cfg config.LoggingConfig) (io.Writer, string, error) {
	dir := strings.TrimSpace(cfg.LogDir)
	if dir == "" {
		return os.Stdout, "", nil
	}
	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, "", fmt.Errorf("invalid log rotation: size=%dMB backups=%d age=%dd",
			cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create log dir: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return io.MultiWriter(os.Stdout, file), file.Filename, nil
}

func newLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(&contextHandler{Handler: tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		AddSource:  true,
		NoColor:    noColor,
	})})
}

type analysisKey struct{}

// WithAnalysis 는 이후 *Context 로그에 analysis_id, task_type 이 붙도록 ctx 에 싣는다.
func WithAnalysis(ctx context.Context, analysisID, taskType string) context.Context {
	return context.WithValue(ctx, analysisKey{}, []slog.Attr{
		slog.String("analysis_id", analysisID),
		slog.String("task_type", taskType),
	})
}

type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if ctx != nil {
		if attrs, ok := ctx.Value(analysisKey{}).([]slog.Attr); ok {
			record.AddAttrs(attrs...)
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			record.AddAttrs(
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return h.Handler.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}

// Trim 은 앞뒤 공백을 걷고 limit 룬을 넘는 부분을 "..." 으로 줄인다.
func Trim(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func parseLevel(level string) slog.Level {
	var parsed slog.Level
	switch normalized := strings.ToLower(strings.TrimSpace(level)); normalized {
	case "warning":
		return slog.LevelWarn
	case "":
		return slog.LevelInfo
	default:
		if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
			return slog.LevelInfo
		}
		return parsed
	}
}
