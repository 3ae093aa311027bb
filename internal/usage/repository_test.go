package usage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

func TestRepositoryDisabled(t *testing.T) {
	repo := NewRepository(&config.Config{}, nil)
	if _, err := repo.GetRecentUsage(context.Background(), 7); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
	if _, err := repo.GetTotalUsage(context.Background(), 7); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
	if err := repo.RecordUsage(context.Background(), "DAP", Delta{}, todayDate()); err != nil {
		t.Fatalf("zero delta should be a no-op, got %v", err)
	}
	if err := repo.RecordUsage(context.Background(), "DAP", Delta{AnalysisCount: 1}, time.Time{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
	repo.Close()
}

func TestWindowStart(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		days int
		want time.Time
	}{
		{1, today},
		{7, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
		{0, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := windowStart(today, tc.days, defaultTotalDays); !got.Equal(tc.want) {
			t.Fatalf("days=%d: expected %v, got %v", tc.days, tc.want, got)
		}
	}
}

func TestDayOrTodayTruncatesToUTC(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	got := dayOrToday(time.Date(2026, 3, 10, 2, 30, 0, 0, seoul))
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if today := dayOrToday(time.Time{}); today.Hour() != 0 || today.Location() != time.UTC {
		t.Fatalf("unexpected today: %v", today)
	}
}

func TestUpsertCountersAddsEveryColumn(t *testing.T) {
	conflict := upsertCounters()
	if len(conflict.Columns) != 2 {
		t.Fatalf("expected conflict on (usage_date, task_type), got %v", conflict.Columns)
	}
	if len(conflict.DoUpdates) != len(counterColumns)+1 {
		t.Fatalf("unexpected assignments: %d", len(conflict.DoUpdates))
	}
	sums := sumColumns()
	for _, column := range counterColumns {
		if !strings.Contains(sums, "SUM("+column+")") {
			t.Fatalf("missing %s in %q", column, sums)
		}
	}
}
