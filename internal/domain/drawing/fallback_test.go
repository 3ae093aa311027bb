package drawing

import (
	"strings"
	"testing"
)

func TestFallbackScenarioB(t *testing.T) {
	catalog := mustCatalog(t)
	req := familyRequest(t)
	raw := "This is not valid JSON at all!"
	if Extract(raw).Success {
		t.Fatalf("prose must not extract")
	}

	res := Fallback(req, catalog, raw)
	if res.Meta.UncertaintyLevel != "high" {
		t.Fatalf("expected high uncertainty, got %s", res.Meta.UncertaintyLevel)
	}
	if len(res.Insights) != 1 || len(res.Insights[0].Evidence) != 1 || res.Insights[0].Evidence[0] != ParseErrorEvidence {
		t.Fatalf("unexpected insights: %+v", res.Insights)
	}
	if res.Insights[0].Summary != raw {
		t.Fatalf("summary should carry raw text, got %q", res.Insights[0].Summary)
	}
	if res.RiskFlags == nil || len(res.RiskFlags) != 0 {
		t.Fatalf("expected empty risk flags")
	}
	if len(res.HomeTips) != 1 {
		t.Fatalf("expected one retry tip")
	}
}

func TestFallbackValidatesAgainstSchema(t *testing.T) {
	catalog := mustCatalog(t)
	for _, lang := range SupportedLanguages() {
		for _, task := range []string{"FreeDrawing", "KFD"} {
			req := mustValidate(t, AnalysisRequest{TaskType: task, Language: string(lang)})
			res := Fallback(req, catalog, "")
			if err := validate.Struct(res); err != nil {
				t.Fatalf("%s/%s: fallback violates schema: %v", lang, task, err)
			}
			if res.Disclaimer != catalog.Disclaimer(lang) || res.Meta.Language != string(lang) {
				t.Fatalf("%s: fallback not localized", lang)
			}
			if res.Insights[0].Summary != catalog.Text(lang, "fallback_generic_summary") {
				t.Fatalf("%s: expected generic note for empty raw text", lang)
			}
			if (task == "FreeDrawing") != (res.ConversationGuide != nil) {
				t.Fatalf("%s/%s: unexpected conversation guide presence", lang, task)
			}
		}
	}
}

func TestFallbackTrimsLongRawText(t *testing.T) {
	catalog := mustCatalog(t)
	req := familyRequest(t)
	res := Fallback(req, catalog, "```\n"+strings.Repeat("ж", fallbackSummaryRune+50)+"\n```")
	if got := len([]rune(res.Insights[0].Summary)); got != fallbackSummaryRune {
		t.Fatalf("expected trimmed summary, got %d runes", got)
	}
}
