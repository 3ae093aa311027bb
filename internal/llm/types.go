package llm

// PartKind: 모델 입력 조각의 종류입니다.
type PartKind int

const (
	// PartText: 텍스트 조각
	PartText PartKind = iota
	// PartImage: 인라인 이미지 조각
	PartImage
)

// Part: 모델에 순서대로 전달되는 입력 조각입니다.
type Part struct {
	Kind     PartKind
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart: 텍스트 조각을 생성합니다.
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// ImagePart: 이미지 조각을 생성합니다.
func ImagePart(mimeType string, data []byte) Part {
	return Part{Kind: PartImage, MIMEType: mimeType, Data: data}
}

// CountImages: 조각 중 이미지 개수를 반환합니다.
func CountImages(parts []Part) int {
	n := 0
	for _, p := range parts {
		if p.Kind == PartImage {
			n++
		}
	}
	return n
}

// Usage: 토큰 사용량 정보를 담습니다.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	TotalTokens     int `json:"total_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
	CachedTokens    int `json:"cached_tokens"` // 암시적 캐싱된 토큰 수 (CachedContentTokenCount)
}

// CacheHitRatio: 캐시 적중률을 계산합니다 (0.0 ~ 1.0).
// InputTokens가 0이면 0을 반환합니다.
func (u Usage) CacheHitRatio() float64 {
	if u.InputTokens == 0 {
		return 0
	}
	return float64(u.CachedTokens) / float64(u.InputTokens)
}

// ChatResult: LLM 응답과 사용량을 담습니다.
type ChatResult struct {
	Text         string
	Usage        Usage
	Reasoning    string
	HasReasoning bool
	Model        string
}
