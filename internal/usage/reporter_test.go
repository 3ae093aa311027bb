package usage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestReporterReportLogsSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := &fakeStore{daily: []DailyUsage{
		{TaskType: "DAP", AnalysisCount: 3, FallbackCount: 1, InputTokens: 30},
		{TaskType: "free_drawing", AnalysisCount: 1, OutputTokens: 9},
	}}

	NewReporter(store, "5 0 * * *", logger).Report(context.Background())

	out := buf.String()
	if strings.Count(out, "usage_report_task") != 2 {
		t.Fatalf("expected per-task lines, got %q", out)
	}
	if !strings.Contains(out, "usage_report_daily") || !strings.Contains(out, "analyses=4") {
		t.Fatalf("expected daily total, got %q", out)
	}
}

func TestReporterReportFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	store := &fakeStore{dailyErr: errors.New("db down")}

	NewReporter(store, "5 0 * * *", logger).Report(context.Background())
	if !strings.Contains(buf.String(), "usage_report_failed") {
		t.Fatalf("expected failure log, got %q", buf.String())
	}
}

func TestReporterStartSkipsEmptySpec(t *testing.T) {
	reporter := NewReporter(&fakeStore{}, "", nil)
	if err := reporter.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reporter.running {
		t.Fatalf("expected reporter not running")
	}
	reporter.Stop()
}

func TestReporterStartRejectsInvalidSpec(t *testing.T) {
	reporter := NewReporter(&fakeStore{}, "not a cron", nil)
	if err := reporter.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid spec error")
	}
}

func TestReporterStartStop(t *testing.T) {
	reporter := NewReporter(&fakeStore{}, "5 0 * * *", nil)
	if err := reporter.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !reporter.running {
		t.Fatalf("expected running reporter")
	}
	reporter.Stop()
	if reporter.running {
		t.Fatalf("expected stopped reporter")
	}
}
