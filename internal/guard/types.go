package guard

import (
	"fmt"
	"strings"
)

// Guard 는 모델 프롬프트에 그대로 들어가는 호출자 텍스트를 검사한다.
type Guard interface {
	Evaluate(input string) Evaluation
	EnsureSafe(input string) error
}

var _ Guard = (*InjectionGuard)(nil)

// Match 는 점수에 더해진 규칙 하나. 구문 규칙의 ID 는 "phrase:<구문>" 형태다.
type Match struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Evaluation 은 한 입력의 누적 점수와 매칭 규칙 목록이다.
type Evaluation struct {
	Score     float64 `json:"score"`
	Hits      []Match `json:"hits"`
	Threshold float64 `json:"threshold"`
}

// Blocked 는 점수가 임계값 이상인지 여부다.
func (e Evaluation) Blocked() bool {
	return e.Score >= e.Threshold
}

func (e Evaluation) ruleIDs() []string {
	ids := make([]string, 0, len(e.Hits))
	for _, hit := range e.Hits {
		ids = append(ids, hit.ID)
	}
	return ids
}

// BlockedError 는 EnsureSafe 가 차단한 입력을 나타낸다.
type BlockedError struct {
	Score     float64
	Threshold float64
	Rules     []string
}

func (e *BlockedError) Error() string {
	msg := fmt.Sprintf("input blocked by injection guard (score=%.2f, threshold=%.2f)", e.Score, e.Threshold)
	if len(e.Rules) > 0 {
		msg += " rules=" + strings.Join(e.Rules, ",")
	}
	return msg
}
