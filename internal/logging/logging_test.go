package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

func TestNewLoggerCreatesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LoggingConfig{
		LogDir:     dir,
		Level:      "info",
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
		Compress:   true,
	}
	if _, err := NewLogger(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "analysis.log")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file, got error: %v", err)
	}
}

func TestNewLoggerRejectsInvalidRotation(t *testing.T) {
	cfg := config.LoggingConfig{LogDir: t.TempDir(), MaxSizeMB: 0, MaxBackups: 1, MaxAgeDays: 1}
	if _, err := NewLogger(cfg); err == nil {
		t.Fatalf("expected error for zero max size")
	}
}

func TestTraceHandlerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo, true)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "analysis_completed")
	if !strings.Contains(buf.String(), "0102030405060708090a0b0c0d0e0f10") {
		t.Fatalf("expected trace id in log line: %s", buf.String())
	}

	buf.Reset()
	logger.Info("no_span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("unexpected trace id without span: %s", buf.String())
	}
}

func TestWithAnalysisAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo, true).With("component", "pipeline")

	ctx := WithAnalysis(context.Background(), "an-42", "DAP")
	logger.WarnContext(ctx, "analysis_fallback")
	line := buf.String()
	for _, want := range []string{"analysis_id=an-42", "task_type=DAP", "component=pipeline"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in log line: %s", want, line)
		}
	}
}

func TestTrim(t *testing.T) {
	if got := Trim("abcdef", 3); got != "abc..." {
		t.Fatalf("unexpected trim: %s", got)
	}
	if got := Trim("  padded  ", 20); got != "padded" {
		t.Fatalf("expected trimmed spaces, got %q", got)
	}
	if got := Trim("çiz", 10); got != "çiz" {
		t.Fatalf("unexpected trim: %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("WARNING") != slog.LevelWarn {
		t.Fatalf("expected warn level")
	}
	if parseLevel("") != slog.LevelInfo || parseLevel("verbose") != slog.LevelInfo {
		t.Fatalf("expected info level")
	}
	if parseLevel("Debug") != slog.LevelDebug || parseLevel("error") != slog.LevelError {
		t.Fatalf("expected case-insensitive parsing")
	}
}
