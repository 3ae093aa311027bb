package drawing

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
)

func TestCatalogCoversAllLanguages(t *testing.T) {
	catalog := mustCatalog(t)
	for _, lang := range SupportedLanguages() {
		if catalog.Disclaimer(lang) == "" {
			t.Fatalf("missing disclaimer for %s", lang)
		}
		if catalog.FailureMessage(lang) == "" {
			t.Fatalf("missing failure message for %s", lang)
		}
		for _, task := range TaskTypes() {
			if task.Category == CategoryInstrument && catalog.Text(lang, lensKey(task.Code)) == "" {
				t.Fatalf("missing lens for %s/%s", lang, task.Code)
			}
		}
	}
}

func TestLoadCatalogRejectsUnknownVariable(t *testing.T) {
	data, err := promptsFS.ReadFile("prompts/en.yml")
	if err != nil {
		t.Fatalf("read en.yml: %v", err)
	}
	fsys := fstest.MapFS{}
	for _, lang := range SupportedLanguages() {
		fsys["p/"+string(lang)+".yml"] = &fstest.MapFile{Data: data}
	}
	broken := strings.Replace(string(data), "{image_block}", "{image_blok}", 1)
	fsys["p/ru.yml"] = &fstest.MapFile{Data: []byte(broken)}

	if _, err := LoadCatalog(fsys, "p"); err == nil {
		t.Fatalf("expected unknown template variable error")
	}
}

func TestComposeFreeDrawingUnknownAge(t *testing.T) {
	catalog := mustCatalog(t)
	req := mustValidate(t, AnalysisRequest{TaskType: "FreeDrawing", Language: "en"})

	comp, err := NewComposer(catalog).Compose(req)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(comp.User, "Child age: "+catalog.Text(LangEnglish, "age_unknown")) {
		t.Fatalf("expected unknown-age placeholder in user block:\n%s", comp.User)
	}
	if !strings.Contains(comp.User, "conversationGuide") {
		t.Fatalf("free drawing must ask for a conversation guide")
	}
	if !strings.Contains(comp.System, "strengths first") {
		t.Fatalf("expected free drawing system template")
	}
	if llm.CountImages(comp.Parts) != 0 || len(comp.Parts) != 1 {
		t.Fatalf("text-only request must not carry image parts: %d parts", len(comp.Parts))
	}
}

func TestComposeInstrumentBlocks(t *testing.T) {
	catalog := mustCatalog(t)
	req := mustValidate(t, AnalysisRequest{
		TaskType: "Tree",
		ChildAge: intPtr(7),
		Language: "en",
		UserRole: "teacher",
		Images:   []ImageInput{{ID: "t1", Content: pngBase64(16)}},
	})

	comp, err := NewComposer(catalog).Compose(req)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(comp.User, catalog.Text(LangEnglish, "lens_Tree")) {
		t.Fatalf("expected tree lens in user block")
	}
	if !strings.Contains(comp.User, catalog.Text(LangEnglish, "age_band_6_9")) {
		t.Fatalf("expected 6-9 age band")
	}
	if !strings.Contains(comp.User, "sexual_abuse_indicators") {
		t.Fatalf("expected trauma taxonomy in user block")
	}
	if !strings.Contains(comp.System, catalog.Text(LangEnglish, "role_teacher")) {
		t.Fatalf("expected teacher role in system block")
	}
	if len(comp.Parts) != 2 || comp.Parts[1].Kind != llm.PartImage {
		t.Fatalf("single image must follow the user block without a marker: %+v", comp.Parts)
	}
}

func TestComposeRendersFeatures(t *testing.T) {
	catalog := mustCatalog(t)
	req := mustValidate(t, AnalysisRequest{
		TaskType: "DAP",
		Language: "en",
		FeaturesJSON: map[string]any{
			"line_pressure": 0.75,
			"palette":       map[string]any{"dark": 0.6, "bright": 0.1},
			"note":          "<b>big</b> hands",
		},
	})

	comp, err := NewComposer(catalog).Compose(req)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	for _, want := range []string{
		"- line_pressure: 0.75",
		"- palette:\n    bright: 0.1\n    dark: 0.6",
		"- note: &lt;b&gt;big&lt;/b&gt; hands",
	} {
		if !strings.Contains(comp.User, want) {
			t.Fatalf("expected %q in user block:\n%s", want, comp.User)
		}
	}
	if strings.Contains(comp.User, "map[") {
		t.Fatalf("nested feature leaked Go formatting:\n%s", comp.User)
	}
}

func TestComposeMultiImageMarkers(t *testing.T) {
	catalog := mustCatalog(t)
	req := mustValidate(t, AnalysisRequest{
		TaskType: "HTP",
		ChildAge: intPtr(8),
		Language: "en",
		Images: []ImageInput{
			{ID: "h", Label: "house", Content: pngBase64(16)},
			{ID: "t", Label: "tree", Content: pngBase64(16)},
			{ID: "p", Label: "person", Content: pngBase64(16)},
		},
	})

	comp, err := NewComposer(catalog).Compose(req)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if llm.CountImages(comp.Parts) != 3 {
		t.Fatalf("expected 3 image parts")
	}

	want := []string{
		"[Image 1 of 3: house (id: h)]",
		"[Image 2 of 3: tree (id: t)]",
		"[Image 3 of 3: person (id: p)]",
	}
	var markers []string
	for i, part := range comp.Parts[1:] {
		if part.Kind != llm.PartText {
			continue
		}
		markers = append(markers, part.Text)
		next := comp.Parts[1+i+1]
		if next.Kind != llm.PartImage {
			t.Fatalf("marker %q must be followed by an image", part.Text)
		}
	}
	if strings.Join(markers, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected markers: %v", markers)
	}

	last := -1
	for _, label := range []string{"1. house (id: h)", "2. tree (id: t)", "3. person (id: p)"} {
		idx := strings.Index(comp.User, label)
		if idx <= last {
			t.Fatalf("image line %q missing or out of order", label)
		}
		last = idx
	}
}

func TestComposeUsesExpectedLabels(t *testing.T) {
	catalog := mustCatalog(t)
	req := mustValidate(t, AnalysisRequest{
		TaskType: "ReyOsterrieth",
		Language: "en",
		Images: []ImageInput{
			{ID: "a", Content: pngBase64(16)},
			{ID: "b", Content: pngBase64(16)},
		},
	})
	comp, err := NewComposer(catalog).Compose(req)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if !strings.Contains(comp.User, "1. copy (id: a)") || !strings.Contains(comp.User, "2. recall (id: b)") {
		t.Fatalf("expected copy/recall labels:\n%s", comp.User)
	}
}

func TestComposeLocalizesWholeInstruction(t *testing.T) {
	catalog := mustCatalog(t)
	for _, lang := range SupportedLanguages() {
		req := mustValidate(t, AnalysisRequest{TaskType: "Family", Language: string(lang), CulturalContext: "<b>city</b>"})
		comp, err := NewComposer(catalog).Compose(req)
		if err != nil {
			t.Fatalf("%s: compose: %v", lang, err)
		}
		if !strings.HasPrefix(comp.System, catalog.Text(lang, "instrument_system")) {
			t.Fatalf("%s: system block not localized", lang)
		}
		if !strings.Contains(comp.User, `"uncertaintyLevel"`) {
			t.Fatalf("%s: output shape must keep field names", lang)
		}
		if !strings.Contains(comp.User, "<cultural_context>&lt;b&gt;city&lt;/b&gt;</cultural_context>") {
			t.Fatalf("%s: cultural context not escaped", lang)
		}
	}
}

func TestAgeBandKey(t *testing.T) {
	tests := []struct {
		age  *int
		want string
	}{
		{nil, "age_band_unknown"},
		{intPtr(2), "age_band_2_3"},
		{intPtr(3), "age_band_3_4"},
		{intPtr(5), "age_band_4_6"},
		{intPtr(6), "age_band_6_9"},
		{intPtr(11), "age_band_9_12"},
		{intPtr(12), "age_band_12_18"},
		{intPtr(18), "age_band_12_18"},
	}
	for _, tc := range tests {
		if got := AgeBandKey(tc.age); got != tc.want {
			t.Errorf("AgeBandKey(%v) = %s, want %s", tc.age, got, tc.want)
		}
	}
}
