package usage

import "time"

// AnalysisUsage 는 일자·작업 유형별 분석 사용량 집계를 저장하는 DB 모델이다.
type AnalysisUsage struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	UsageDate       time.Time `gorm:"column:usage_date;type:date;not null;uniqueIndex:idx_analysis_usage_day_task,priority:1"`
	TaskType        string    `gorm:"column:task_type;not null;uniqueIndex:idx_analysis_usage_day_task,priority:2"`
	AnalysisCount   int64     `gorm:"column:analysis_count;not null;default:0"`
	FallbackCount   int64     `gorm:"column:fallback_count;not null;default:0"`
	InputTokens     int64     `gorm:"column:input_tokens;not null;default:0"`
	OutputTokens    int64     `gorm:"column:output_tokens;not null;default:0"`
	ReasoningTokens int64     `gorm:"column:reasoning_tokens;not null;default:0"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

// TableName 은 GORM에서 사용할 테이블명을 반환한다.
func (AnalysisUsage) TableName() string {
	return "analysis_usage"
}

// Delta 는 한 번에 누적할 사용량 증분이다.
type Delta struct {
	AnalysisCount   int64
	FallbackCount   int64
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
}

// IsZero 는 기록할 값이 없는지 확인한다.
func (d Delta) IsZero() bool {
	return d.AnalysisCount <= 0 && d.InputTokens <= 0 && d.OutputTokens <= 0
}

func (d *Delta) add(other Delta) {
	d.AnalysisCount += other.AnalysisCount
	d.FallbackCount += other.FallbackCount
	d.InputTokens += other.InputTokens
	d.OutputTokens += other.OutputTokens
	d.ReasoningTokens += other.ReasoningTokens
}

// DailyUsage 는 API/집계용 사용량 뷰 모델이다. 합계 조회에서는 TaskType 이 비어 있다.
type DailyUsage struct {
	UsageDate       time.Time `json:"usage_date"`
	TaskType        string    `json:"task_type,omitempty"`
	AnalysisCount   int64     `json:"analysis_count"`
	FallbackCount   int64     `json:"fallback_count"`
	InputTokens     int64     `json:"input_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	ReasoningTokens int64     `json:"reasoning_tokens"`
}

// TotalTokens 는 입력+출력 토큰 합계를 반환한다.
func (d DailyUsage) TotalTokens() int64 {
	return d.InputTokens + d.OutputTokens
}

// FallbackRate 는 폴백 비율(0~1)을 반환한다.
func (d DailyUsage) FallbackRate() float64 {
	if d.AnalysisCount <= 0 {
		return 0
	}
	return float64(d.FallbackCount) / float64(d.AnalysisCount)
}

func fromRow(row AnalysisUsage) DailyUsage {
	return DailyUsage{
		UsageDate:       row.UsageDate,
		TaskType:        row.TaskType,
		AnalysisCount:   row.AnalysisCount,
		FallbackCount:   row.FallbackCount,
		InputTokens:     row.InputTokens,
		OutputTokens:    row.OutputTokens,
		ReasoningTokens: row.ReasoningTokens,
	}
}
