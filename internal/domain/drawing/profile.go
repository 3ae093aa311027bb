package drawing

// PipelineProfile 은 분류별 모델 호출 파라미터다.
// 자유 그림과 검사는 같은 오케스트레이터를 쓰고 이 값만 다르다.
type PipelineProfile struct {
	Category        Category
	SchemaVersion   string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	ThinkingLevel   string
	JSONMode        bool
}
