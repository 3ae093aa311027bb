package drawing

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ValidateResult 는 추출된 객체를 출력 계약에 맞춰 검사하고 AnalysisResult 로 만든다.
// meta 의 testType, age, language 는 요청 값으로 덮어쓰고, disclaimer 를 주입한다.
// 계약 위반은 *OutputSchemaViolation 으로 반환한다.
func ValidateResult(data map[string]any, req *Request, disclaimer string) (*AnalysisResult, error) {
	if data == nil {
		return nil, &OutputSchemaViolation{Violations: []string{"empty object"}}
	}
	if meta, ok := data["meta"].(map[string]any); ok {
		delete(meta, "testType")
		delete(meta, "age")
		delete(meta, "language")
		if raw, exists := meta["confidence"]; exists {
			confidence, ok := toFloat(raw)
			if !ok {
				return nil, &OutputSchemaViolation{Violations: []string{"meta.confidence: not a number"}}
			}
			meta["confidence"] = clamp01(confidence)
		}
	}

	var result AnalysisResult
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &result,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("new result decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, &OutputSchemaViolation{Violations: []string{err.Error()}}
	}

	result.Meta.TestType = string(req.TaskType)
	result.Meta.Age = req.Age
	result.Meta.Language = string(req.Language)
	result.Disclaimer = disclaimer
	normalizeResult(&result)

	if err := validate.Struct(&result); err != nil {
		return nil, schemaViolation(err)
	}
	return &result, nil
}

// normalizeResult 는 nil 목록을 빈 목록으로 바꾸고 위험 신호 조치를 고정값으로 맞춘다.
func normalizeResult(r *AnalysisResult) {
	if r.Meta.DataQualityNotes == nil {
		r.Meta.DataQualityNotes = []string{}
	}
	if r.HomeTips == nil {
		r.HomeTips = []HomeTip{}
	}
	if r.RiskFlags == nil {
		r.RiskFlags = []RiskFlag{}
	}
	for i := range r.Insights {
		if r.Insights[i].Evidence == nil {
			r.Insights[i].Evidence = []string{}
		}
	}
	for i := range r.RiskFlags {
		if action, ok := ActionForRisk(RiskType(r.RiskFlags[i].Type)); ok {
			r.RiskFlags[i].Action = action
		}
	}
	if r.TraumaAssessment != nil && !r.TraumaAssessment.HasTraumaticContent {
		r.TraumaAssessment = nil
	}
	if r.TraumaAssessment != nil && r.TraumaAssessment.ContentTypes == nil {
		r.TraumaAssessment.ContentTypes = []string{}
	}
}

// EnsureConversationGuide 는 자유 그림 결과에 대화 안내가 없으면 로케일 기본 안내를 채운다.
func EnsureConversationGuide(r *AnalysisResult, req *Request, catalog *Catalog) {
	if r == nil || req == nil || req.Category != CategoryFreeDrawing || r.ConversationGuide != nil {
		return
	}
	r.ConversationGuide = defaultConversationGuide(catalog, req.Language)
}

func defaultConversationGuide(catalog *Catalog, lang Language) *ConversationGuide {
	return &ConversationGuide{
		OpeningQuestions:    []string{catalog.Text(lang, "guide_question")},
		AvoidPhrases:        []string{catalog.Text(lang, "guide_avoid")},
		SupportiveResponses: []string{catalog.Text(lang, "guide_response")},
	}
}

func schemaViolation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &OutputSchemaViolation{Violations: []string{err.Error()}}
	}
	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, fieldPath(fe.Namespace())+": "+describeTag(fe))
	}
	return &OutputSchemaViolation{Violations: violations}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
