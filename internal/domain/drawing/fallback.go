package drawing

import (
	"strings"
	"unicode/utf8"
)

// 폴백 결과 상수.
const (
	ParseErrorEvidence  = "parse_error"
	fallbackConfidence  = 0.2
	fallbackSummaryRune = 2000
)

// Fallback 은 추출이나 출력 검증에 실패했을 때 대신 반환하는 결과다.
// 항상 ValidateResult 와 같은 계약을 만족한다.
func Fallback(req *Request, catalog *Catalog, rawText string) *AnalysisResult {
	lang := req.Language
	summary := usableRawText(rawText)
	if summary == "" {
		summary = catalog.Text(lang, "fallback_generic_summary")
	}

	result := &AnalysisResult{
		Meta: Meta{
			TestType:         string(req.TaskType),
			Age:              req.Age,
			Language:         string(lang),
			Confidence:       fallbackConfidence,
			UncertaintyLevel: "high",
			DataQualityNotes: []string{catalog.Text(lang, "fallback_quality_note")},
		},
		Insights: []Insight{{
			Title:    catalog.Text(lang, "fallback_insight_title"),
			Summary:  summary,
			Evidence: []string{ParseErrorEvidence},
			Strength: "weak",
		}},
		HomeTips: []HomeTip{{
			Title: catalog.Text(lang, "fallback_tip_title"),
			Steps: []string{
				catalog.Text(lang, "fallback_tip_step_1"),
				catalog.Text(lang, "fallback_tip_step_2"),
			},
			Why: catalog.Text(lang, "fallback_tip_why"),
		}},
		RiskFlags:  []RiskFlag{},
		Disclaimer: catalog.Disclaimer(lang),
	}
	EnsureConversationGuide(result, req, catalog)
	return result
}

// usableRawText 는 펜스를 걷어낸 원문이 비어 있지 않으면 길이를 제한해 반환한다.
func usableRawText(raw string) string {
	text := strings.TrimSpace(stripCodeFences(raw))
	if text == "" || !utf8.ValidString(text) {
		return ""
	}
	if utf8.RuneCountInString(text) > fallbackSummaryRune {
		text = string([]rune(text)[:fallbackSummaryRune])
	}
	return text
}
