package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
)

const keyPrefix = "diagnostics:"

// ErrDisabled 는 진단 보관이 꺼져 있을 때 반환된다.
var ErrDisabled = errors.New("diagnostics archive disabled")

// BlobStore 는 진단 원문을 보관할 키-값 저장소다.
type BlobStore interface {
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
}

// Record 는 폴백으로 대체된 분석의 원문과 실패 사유다.
type Record struct {
	AnalysisID    string    `json:"analysis_id"`
	TaskType      string    `json:"task_type"`
	Language      string    `json:"language"`
	Model         string    `json:"model,omitempty"`
	SchemaVersion string    `json:"schema_version,omitempty"`
	Reason        string    `json:"reason"`
	RawText       string    `json:"raw_text"`
	Truncated     bool      `json:"truncated,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Archive 는 모델 원문을 압축해 TTL 과 함께 저장한다.
type Archive struct {
	store    BlobStore
	enabled  bool
	ttl      time.Duration
	maxBytes int
	logger   *slog.Logger
}

// NewArchive 는 진단 아카이브를 생성한다.
func NewArchive(cfg *config.Config, store BlobStore, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	archive := &Archive{store: store, logger: logger}
	if cfg != nil {
		archive.enabled = cfg.Diagnostics.Enabled && store != nil
		archive.ttl = time.Duration(cfg.Diagnostics.TTLMinutes) * time.Minute
		archive.maxBytes = cfg.Diagnostics.MaxBytes
	}
	return archive
}

// Enabled 는 보관 활성화 여부를 반환한다.
func (a *Archive) Enabled() bool {
	return a != nil && a.enabled
}

// Save 는 기록을 저장한다. 원문은 maxBytes 이내로 자른다.
func (a *Archive) Save(ctx context.Context, record Record) error {
	if !a.Enabled() {
		return ErrDisabled
	}
	if record.AnalysisID == "" {
		return errors.New("analysis id is empty")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if a.maxBytes > 0 && len(record.RawText) > a.maxBytes {
		record.RawText = truncateBytes(record.RawText, a.maxBytes)
		record.Truncated = true
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal diagnostics record: %w", err)
	}
	compressed, err := compressZstd(data)
	if err != nil {
		return err
	}
	if err := a.store.SetBytes(ctx, keyPrefix+record.AnalysisID, compressed, a.ttl); err != nil {
		return fmt.Errorf("save diagnostics record: %w", err)
	}

	a.logger.Debug("diagnostics_saved",
		"analysis_id", record.AnalysisID,
		"raw_bytes", len(data),
		"stored_bytes", len(compressed),
	)
	return nil
}

// Load 는 저장된 기록을 읽는다.
func (a *Archive) Load(ctx context.Context, analysisID string) (*Record, error) {
	if !a.Enabled() {
		return nil, ErrDisabled
	}
	compressed, err := a.store.GetBytes(ctx, keyPrefix+analysisID)
	if err != nil {
		return nil, fmt.Errorf("load diagnostics record: %w", err)
	}
	data, err := decompressZstd(compressed)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal diagnostics record: %w", err)
	}
	return &record, nil
}

// truncateBytes 는 UTF-8 경계를 지키며 limit 바이트 이내로 자른다.
func truncateBytes(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
