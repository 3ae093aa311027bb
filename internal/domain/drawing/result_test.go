package drawing

import (
	"errors"
	"testing"
)

func familyRequest(t *testing.T) *Request {
	return mustValidate(t, AnalysisRequest{
		TaskType: "Family",
		ChildAge: intPtr(7),
		Language: "en",
		Images:   []ImageInput{{ID: "fam", Content: pngBase64(10 * 1024)}},
	})
}

func TestValidateResultScenarioA(t *testing.T) {
	catalog := mustCatalog(t)
	req := familyRequest(t)
	ext := Extract("```json\n" + `{
		"meta": {"testType": "DAP", "age": 3, "language": "tr", "confidence": 0.72, "uncertaintyLevel": "low", "dataQualityNotes": []},
		"insights": [{"title": "Close grouping", "summary": "Figures stand together.", "evidence": ["figure_distance"], "strength": "moderate"}],
		"homeTips": [{"title": "Family drawing talk", "steps": ["Ask who is who."], "why": "Invites storytelling."}],
		"riskFlags": [],
		"traumaAssessment": null,
		"conversationGuide": null,
		"professionalGuidance": null,
		"trendNote": ""
	}` + "\n```")
	if !ext.Success {
		t.Fatalf("extract: %s", ext.Error)
	}

	res, err := ValidateResult(ext.Data, req, catalog.Disclaimer(req.Language))
	if err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
	if res.Meta.TestType != "Family" || res.Meta.Age == nil || *res.Meta.Age != 7 || res.Meta.Language != "en" {
		t.Fatalf("meta must echo the request: %+v", res.Meta)
	}
	if res.RiskFlags == nil || len(res.RiskFlags) != 0 {
		t.Fatalf("expected empty risk flags, got %+v", res.RiskFlags)
	}
	if res.Disclaimer != catalog.Disclaimer(LangEnglish) {
		t.Fatalf("disclaimer not injected")
	}
}

func TestValidateResultNormalizes(t *testing.T) {
	req := familyRequest(t)
	data := map[string]any{
		"meta": map[string]any{"confidence": 1.7, "uncertaintyLevel": "mid"},
		"insights": []any{
			map[string]any{"title": "t", "summary": "s", "strength": "weak"},
		},
		"riskFlags": []any{
			map[string]any{"type": "self_harm", "summary": "marks on arms", "action": "ignore it"},
		},
		"traumaAssessment": map[string]any{"hasTraumaticContent": false},
	}
	res, err := ValidateResult(data, req, "d")
	if err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
	if res.Meta.Confidence != 1 {
		t.Fatalf("confidence must be clamped, got %v", res.Meta.Confidence)
	}
	if res.RiskFlags[0].Action != ActionUrgentReferral {
		t.Fatalf("risk action must be fixed by type, got %q", res.RiskFlags[0].Action)
	}
	if res.TraumaAssessment != nil {
		t.Fatalf("trauma assessment without content must be dropped")
	}
	if res.Insights[0].Evidence == nil || res.HomeTips == nil {
		t.Fatalf("lists must not be nil")
	}
}

func TestValidateResultViolations(t *testing.T) {
	req := familyRequest(t)
	insight := map[string]any{"title": "t", "summary": "s", "evidence": []any{}, "strength": "moderate"}
	tests := []struct {
		name string
		data map[string]any
	}{
		{"no insights", map[string]any{"meta": map[string]any{"confidence": 0.5, "uncertaintyLevel": "mid"}, "insights": []any{}}},
		{"unknown uncertainty", map[string]any{"meta": map[string]any{"confidence": 0.5, "uncertaintyLevel": "unsure"}, "insights": []any{insight}}},
		{"unknown strength", map[string]any{"meta": map[string]any{"confidence": 0.5, "uncertaintyLevel": "mid"}, "insights": []any{
			map[string]any{"title": "t", "summary": "s", "strength": "huge"},
		}}},
		{"unknown risk type", map[string]any{"meta": map[string]any{"confidence": 0.5, "uncertaintyLevel": "mid"}, "insights": []any{insight},
			"riskFlags": []any{map[string]any{"type": "diagnosis"}}}},
		{"unknown trauma category", map[string]any{"meta": map[string]any{"confidence": 0.5, "uncertaintyLevel": "mid"}, "insights": []any{insight},
			"traumaAssessment": map[string]any{"hasTraumaticContent": true, "contentTypes": []any{"monsters"}}}},
		{"confidence text", map[string]any{"meta": map[string]any{"confidence": "high", "uncertaintyLevel": "mid"}, "insights": []any{insight}}},
		{"wrong type", map[string]any{"meta": map[string]any{"confidence": 0.5, "uncertaintyLevel": "mid"}, "insights": "none"}},
	}
	for _, tc := range tests {
		_, err := ValidateResult(tc.data, req, "d")
		var violation *OutputSchemaViolation
		if !errors.As(err, &violation) {
			t.Errorf("%s: expected OutputSchemaViolation, got %v", tc.name, err)
		}
	}
}

func TestUpgradeLegacyFlatShape(t *testing.T) {
	req := familyRequest(t)
	ext := Extract(`{"summary":"A calm family scene.","insights":["Everyone is smiling.","The sun is large."],"tips":["Draw together this weekend."],"confidence":0.55}`)
	if !ext.Success {
		t.Fatalf("extract: %s", ext.Error)
	}
	if !UpgradeLegacy(ext.Data) {
		t.Fatalf("expected legacy shape to be upgraded")
	}
	res, err := ValidateResult(ext.Data, req, "d")
	if err != nil {
		t.Fatalf("upgraded legacy shape must validate: %v", err)
	}
	if len(res.Insights) != 2 || res.Insights[0].Title != "Everyone is smiling" {
		t.Fatalf("unexpected insights: %+v", res.Insights)
	}
	if res.Meta.UncertaintyLevel != "mid" {
		t.Fatalf("expected derived uncertainty mid, got %s", res.Meta.UncertaintyLevel)
	}
	if len(res.HomeTips) != 1 || res.HomeTips[0].Steps[0] != "Draw together this weekend." {
		t.Fatalf("unexpected tips: %+v", res.HomeTips)
	}
}

func TestUpgradeLegacyIntermediateShape(t *testing.T) {
	data := map[string]any{
		"meta":      map[string]any{"confidence": 0.3, "uncertaintyLevel": "high"},
		"insights":  []any{map[string]any{"summary": "Strong lines."}},
		"tips":      []any{map[string]any{"title": "Play", "description": "Build blocks."}},
		"riskFlags": []any{"child mentions nightmares"},
	}
	if !UpgradeLegacy(data) {
		t.Fatalf("expected intermediate shape to be upgraded")
	}
	res, err := ValidateResult(data, familyRequest(t), "d")
	if err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
	if res.RiskFlags[0].Type != string(RiskOther) || res.RiskFlags[0].Action != ActionMonitor {
		t.Fatalf("unexpected risk flag: %+v", res.RiskFlags[0])
	}
	if res.HomeTips[0].Steps[0] != "Build blocks." {
		t.Fatalf("unexpected tip: %+v", res.HomeTips[0])
	}
}

func TestUpgradeLegacyLeavesCanonical(t *testing.T) {
	ext := Extract(sampleJSON)
	if UpgradeLegacy(ext.Data) {
		t.Fatalf("canonical shape must not be upgraded")
	}
}

func TestUpgradeLegacyRejectsFragments(t *testing.T) {
	fragments := []map[string]any{
		{"title": "Close grouping", "summary": "Figures stand together.", "evidence": []any{"figure_distance"}, "strength": "moderate"},
		{"summary": "Only a sentence."},
		{"confidence": 0.7, "uncertaintyLevel": "low"},
	}
	for _, data := range fragments {
		if UpgradeLegacy(data) {
			t.Fatalf("fragment must not be upgraded: %+v", data)
		}
		if _, err := ValidateResult(data, familyRequest(t), "d"); err == nil {
			t.Fatalf("fragment must fail validation: %+v", data)
		}
	}
}

func TestEnsureConversationGuideFreeDrawing(t *testing.T) {
	catalog := mustCatalog(t)
	req := mustValidate(t, AnalysisRequest{TaskType: "FreeDrawing", Language: "ru"})
	res := &AnalysisResult{}
	EnsureConversationGuide(res, req, catalog)
	if res.ConversationGuide == nil || res.ConversationGuide.OpeningQuestions[0] != catalog.Text(LangRussian, "guide_question") {
		t.Fatalf("expected localized default guide: %+v", res.ConversationGuide)
	}

	instrument := familyRequest(t)
	other := &AnalysisResult{}
	EnsureConversationGuide(other, instrument, catalog)
	if other.ConversationGuide != nil {
		t.Fatalf("instrument results keep a null guide")
	}
}
