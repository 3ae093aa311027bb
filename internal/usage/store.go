package usage

import (
	"context"
	"time"
)

// Writer 는 사용량 증분을 누적한다. Recorder 와 batcher 가 쓴다.
type Writer interface {
	RecordUsage(ctx context.Context, taskType string, delta Delta, usageDate time.Time) error
}

// Reader 는 집계된 사용량을 조회한다. 조회 API 와 Reporter 가 쓴다.
type Reader interface {
	GetDailyUsage(ctx context.Context, usageDate time.Time) ([]DailyUsage, error)
	GetRecentUsage(ctx context.Context, days int) ([]DailyUsage, error)
	GetTotalUsage(ctx context.Context, days int) (DailyUsage, error)
}

// Store 는 PostgreSQL 저장소와 테스트 스텁이 구현하는 전체 계약이다.
type Store interface {
	Writer
	Reader
	Close()
}

var _ Store = (*Repository)(nil)
