package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

// ErrDisabled 는 사용량 DB 가 비활성화되어 있을 때 반환된다.
var ErrDisabled = errors.New("usage database disabled")

const (
	defaultRecentDays = 7
	defaultTotalDays  = 30
)

// 누적 대상 컬럼. OnConflict 시 기존 값에 더한다.
var counterColumns = []string{
	"analysis_count",
	"fallback_count",
	"input_tokens",
	"output_tokens",
	"reasoning_tokens",
}

// Repository 는 analysis_usage 테이블에 대한 PostgreSQL 저장소다.
// 연결은 첫 호출 시 맺고, 실패하면 다음 호출에서 다시 시도한다.
type Repository struct {
	cfg    *config.Config
	logger *slog.Logger

	mu    sync.Mutex
	db    *gorm.DB
	sqlDB *sql.DB
}

// NewRepository 는 usage 저장소를 생성한다.
func NewRepository(cfg *config.Config, logger *slog.Logger) *Repository {
	return &Repository{cfg: cfg, logger: logger}
}

// RecordUsage 는 (사용일, 작업 유형) 행에 delta 를 더한다. 날짜가 비어 있으면 오늘(UTC)이다.
func (r *Repository) RecordUsage(ctx context.Context, taskType string, delta Delta, usageDate time.Time) error {
	if delta.IsZero() {
		return nil
	}
	db, err := r.conn()
	if err != nil {
		return err
	}

	row := AnalysisUsage{
		UsageDate:       dayOrToday(usageDate),
		TaskType:        taskType,
		AnalysisCount:   delta.AnalysisCount,
		FallbackCount:   delta.FallbackCount,
		InputTokens:     delta.InputTokens,
		OutputTokens:    delta.OutputTokens,
		ReasoningTokens: delta.ReasoningTokens,
	}
	return db.WithContext(ctx).Clauses(upsertCounters()).Create(&row).Error
}

func upsertCounters() clause.OnConflict {
	updates := make(map[string]any, len(counterColumns)+1)
	for _, column := range counterColumns {
		updates[column] = gorm.Expr(fmt.Sprintf("analysis_usage.%[1]s + EXCLUDED.%[1]s", column))
	}
	updates["updated_at"] = gorm.Expr("EXCLUDED.updated_at")
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "usage_date"}, {Name: "task_type"}},
		DoUpdates: clause.Assignments(updates),
	}
}

// GetDailyUsage 는 하루치 작업 유형별 사용량을 조회한다.
func (r *Repository) GetDailyUsage(ctx context.Context, usageDate time.Time) ([]DailyUsage, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var rows []AnalysisUsage
	err = db.WithContext(ctx).
		Where("usage_date = ?", dayOrToday(usageDate)).
		Order("task_type").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query daily usage: %w", err)
	}
	return toDailyUsages(rows), nil
}

// GetRecentUsage 는 오늘을 포함한 최근 days 일의 행을 최신순으로 조회한다.
func (r *Repository) GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	var rows []AnalysisUsage
	err = db.WithContext(ctx).
		Where("usage_date >= ?", windowStart(todayDate(), days, defaultRecentDays)).
		Order("usage_date DESC, task_type").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent usage: %w", err)
	}
	return toDailyUsages(rows), nil
}

// GetTotalUsage 는 최근 days 일 전체 합계를 반환한다. TaskType 은 비어 있다.
func (r *Repository) GetTotalUsage(ctx context.Context, days int) (DailyUsage, error) {
	db, err := r.conn()
	if err != nil {
		return DailyUsage{}, err
	}

	today := todayDate()
	var total DailyUsage
	err = db.WithContext(ctx).
		Model(&AnalysisUsage{}).
		Select(sumColumns()).
		Where("usage_date >= ?", windowStart(today, days, defaultTotalDays)).
		Scan(&total).Error
	if err != nil {
		return DailyUsage{}, fmt.Errorf("query total usage: %w", err)
	}
	total.UsageDate = today
	total.TaskType = ""
	return total, nil
}

func sumColumns() string {
	parts := make([]string, 0, len(counterColumns))
	for _, column := range counterColumns {
		parts = append(parts, fmt.Sprintf("COALESCE(SUM(%[1]s), 0) AS %[1]s", column))
	}
	return strings.Join(parts, ", ")
}

func toDailyUsages(rows []AnalysisUsage) []DailyUsage {
	usages := make([]DailyUsage, 0, len(rows))
	for _, row := range rows {
		usages = append(usages, fromRow(row))
	}
	return usages
}

// Close 는 DB 연결을 닫는다. 이후 호출은 다시 연결한다.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sqlDB != nil {
		_ = r.sqlDB.Close()
	}
	r.db, r.sqlDB = nil, nil
}

func (r *Repository) conn() (*gorm.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		return r.db, nil
	}
	if r.cfg == nil || !r.cfg.Database.Enabled {
		return nil, ErrDisabled
	}

	dbCfg := r.cfg.Database
	db, err := gorm.Open(postgres.Open(dbCfg.DSN()), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	if err := db.AutoMigrate(&AnalysisUsage{}); err != nil {
		return nil, fmt.Errorf("migrate usage db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("usage db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(dbCfg.MinPool)
	sqlDB.SetMaxOpenConns(dbCfg.MaxPool)
	sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(dbCfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if r.logger != nil {
		r.logger.Info("usage_db_connected", "host", dbCfg.Host, "name", dbCfg.Name)
	}
	r.db, r.sqlDB = db, sqlDB
	return db, nil
}

// todayDate 는 UTC 기준 오늘 0시다. 일일 한도 키와 같은 날짜 경계를 쓴다.
func todayDate() time.Time {
	return truncateDay(time.Now())
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayOrToday(day time.Time) time.Time {
	if day.IsZero() {
		return todayDate()
	}
	return truncateDay(day)
}

// windowStart 는 today 를 포함해 days 일 구간의 첫날이다.
func windowStart(today time.Time, days, fallback int) time.Time {
	if days <= 0 {
		days = fallback
	}
	return today.AddDate(0, 0, -(days - 1))
}
