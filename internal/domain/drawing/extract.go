package drawing

import (
	"strings"

	json "github.com/goccy/go-json"
)

// maxCandidates 는 한 응답에서 시도할 객체 후보 수 상한이다.
const maxCandidates = 64

// Extraction 은 구조화 추출 결과다. 실패도 값으로 표현한다.
type Extraction struct {
	Success bool
	Data    map[string]any
	Error   string
	RawText string
}

// Extract 는 모델 원문에서 첫 번째로 파싱되는 최상위 JSON 객체를 찾는다.
// 실패한 후보 안쪽의 중괄호는 후보로 삼지 않는다.
// 앞뒤 산문과 코드 펜스, 공백을 허용하며 panic 하지 않는다.
func Extract(raw string) Extraction {
	text := stripCodeFences(raw)
	if strings.TrimSpace(text) == "" {
		return Extraction{Error: "empty model output", RawText: raw}
	}

	tried := 0
	lastErr := "no JSON object found"
	for start := strings.IndexByte(text, '{'); start >= 0 && tried < maxCandidates; {
		tried++
		end := matchBrace(text, start)
		if end < 0 {
			// 닫히지 않은 객체 뒤의 '{' 는 모두 그 객체 안쪽이다.
			lastErr = "unterminated JSON object"
			break
		}
		var data map[string]any
		err := json.Unmarshal([]byte(text[start:end+1]), &data)
		if err == nil {
			return Extraction{Success: true, Data: data, RawText: raw}
		}
		lastErr = err.Error()

		next := strings.IndexByte(text[end+1:], '{')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return Extraction{Error: lastErr, RawText: raw}
}

// stripCodeFences 는 ``` 와 ```json 같은 펜스 줄만 지우고 나머지 순서는 유지한다.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// matchBrace 는 문자열 리터럴을 고려해 start 의 '{' 와 짝이 되는 '}' 위치를 찾는다.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
