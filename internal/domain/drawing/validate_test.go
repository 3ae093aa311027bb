package drawing

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestValidateRequestDefaults(t *testing.T) {
	req := mustValidate(t, AnalysisRequest{TaskType: "FreeDrawing"})
	if req.Language != LangTurkish {
		t.Fatalf("expected default language tr, got %s", req.Language)
	}
	if req.Role != RoleParent {
		t.Fatalf("expected default role parent, got %s", req.Role)
	}
	if req.Category != CategoryFreeDrawing {
		t.Fatalf("unexpected category: %s", req.Category)
	}
	if len(req.EffectiveImages()) != 0 {
		t.Fatalf("expected text-only request")
	}
}

func TestValidateRequestRejections(t *testing.T) {
	tooMany := make([]ImageInput, MaxImages+1)
	for i := range tooMany {
		tooMany[i] = ImageInput{Content: pngBase64(16)}
	}

	tests := []struct {
		name  string
		in    AnalysisRequest
		field string
	}{
		{"unknown task", AnalysisRequest{TaskType: "Rorschach"}, "taskType"},
		{"missing task", AnalysisRequest{}, "taskType"},
		{"age above range", AnalysisRequest{TaskType: "DAP", ChildAge: intPtr(19)}, "childAge"},
		{"negative age", AnalysisRequest{TaskType: "DAP", ChildAge: intPtr(-1)}, "childAge"},
		{"language", AnalysisRequest{TaskType: "DAP", Language: "de"}, "language"},
		{"role", AnalysisRequest{TaskType: "DAP", UserRole: "doctor"}, "userRole"},
		{"gender", AnalysisRequest{TaskType: "DAP", ChildGender: "x"}, "childGender"},
		{"cultural context", AnalysisRequest{TaskType: "DAP", CulturalContext: strings.Repeat("a", MaxCulturalContextLen+1)}, "culturalContext"},
		{"too many images", AnalysisRequest{TaskType: "HTP", Images: tooMany}, "images"},
		{"missing content", AnalysisRequest{TaskType: "HTP", Images: []ImageInput{{ID: "a"}}}, "images[0].content"},
		{"not base64", AnalysisRequest{TaskType: "DAP", Images: []ImageInput{{ID: "a", Content: "%%%"}}}, "images[0].content"},
		{"not an image", AnalysisRequest{TaskType: "DAP", ImageBase64: "aGVsbG8gd29ybGQ="}, "imageBase64"},
		{"oversized", AnalysisRequest{TaskType: "DAP", Images: []ImageInput{{ID: "a", Content: pngBase64(MaxImageBytes + 1)}}}, "images[0].content"},
		{"duplicate id", AnalysisRequest{TaskType: "HTP", Images: []ImageInput{{ID: "a", Content: pngBase64(16)}, {ID: "a", Content: pngBase64(16)}}}, "images[1].id"},
		{"feature key", AnalysisRequest{TaskType: "DAP", FeaturesJSON: map[string]any{strings.Repeat("k", MaxFeatureKeyLength+1): 1.0}}, "featuresJson"},
		{"feature depth", AnalysisRequest{TaskType: "DAP", FeaturesJSON: map[string]any{"nested": map[string]any{"a": map[string]any{"b": []any{1.0}}}}}, "featuresJson.nested"},
		{"feature value", AnalysisRequest{TaskType: "DAP", FeaturesJSON: map[string]any{"chan": make(chan int)}}, "featuresJson.chan"},
	}

	for _, tc := range tests {
		_, err := ValidateRequest(tc.in)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
			continue
		}
		if !strings.HasPrefix(vErr.Field, tc.field) {
			t.Errorf("%s: expected field %q, got %q (%s)", tc.name, tc.field, vErr.Field, vErr.Reason)
		}
	}
}

func TestValidateRequestImageBudgetIsInclusive(t *testing.T) {
	req := mustValidate(t, AnalysisRequest{
		TaskType: "DAP",
		Images:   []ImageInput{{ID: "a", Content: pngBase64(MaxImageBytes)}},
	})
	if len(req.Images[0].Data) != MaxImageBytes {
		t.Fatalf("unexpected decoded size: %d", len(req.Images[0].Data))
	}
}

func TestValidateRequestPrefersImageList(t *testing.T) {
	req := mustValidate(t, AnalysisRequest{
		TaskType:    "HTP",
		Images:      []ImageInput{{ID: "house", Label: "house", Content: pngBase64(16)}},
		ImageBase64: pngBase64(32),
	})
	images := req.EffectiveImages()
	if len(images) != 1 || images[0].ID != "house" {
		t.Fatalf("expected explicit list to win, got %+v", images)
	}
	if req.Legacy != nil {
		t.Fatalf("legacy image should be ignored when images are present")
	}
}

func TestValidateRequestWrapsLegacyImage(t *testing.T) {
	req := mustValidate(t, AnalysisRequest{TaskType: "Tree", ImageBase64: "data:image/png;base64," + pngBase64(16)})
	images := req.EffectiveImages()
	if len(images) != 1 {
		t.Fatalf("expected one wrapped image, got %d", len(images))
	}
	if images[0].ID != "image_1" || images[0].MIMEType != "image/png" {
		t.Fatalf("unexpected legacy image: %+v", images[0])
	}
}

func TestValidateRequestSortsFeatures(t *testing.T) {
	req := mustValidate(t, AnalysisRequest{
		TaskType:     "FreeDrawing",
		FeaturesJSON: map[string]any{"zeta": 1.0, "alpha": "red", "mid": true},
	})
	if len(req.Features) != 3 {
		t.Fatalf("unexpected features: %+v", req.Features)
	}
	if req.Features[0].Key != "alpha" || req.Features[2].Key != "zeta" {
		t.Fatalf("features not sorted: %+v", req.Features)
	}
}

func TestValidateRequestAcceptsNestedFeatures(t *testing.T) {
	req := mustValidate(t, AnalysisRequest{
		TaskType: "DAP",
		FeaturesJSON: map[string]any{
			"palette": map[string]any{"dark": 0.6, "bright": 0.1},
			"objects": []any{"sun", "house"},
		},
	})
	if len(req.Features) != 2 || req.Features[0].Key != "objects" {
		t.Fatalf("unexpected features: %+v", req.Features)
	}
}

func TestDecodeImageVariants(t *testing.T) {
	raw := pngBytes(20)
	tests := []struct {
		name    string
		content string
	}{
		{"std", pngBase64(20)},
		{"data uri", "data:image/png;base64," + pngBase64(20)},
		{"url safe raw", strings.TrimRight(strings.NewReplacer("+", "-", "/", "_").Replace(pngBase64(20)), "=")},
		{"wrapped lines", pngBase64(20)[:10] + "\n" + pngBase64(20)[10:]},
	}
	for _, tc := range tests {
		img, err := DecodeImage("content", tc.content)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if len(img.Data) != len(raw) || img.MIMEType != "image/png" {
			t.Errorf("%s: unexpected image %d bytes %s", tc.name, len(img.Data), img.MIMEType)
		}
	}
}

func ftypBox(brand string) string {
	data := make([]byte, 32)
	copy(data, []byte{0x00, 0x00, 0x00, 0x18})
	copy(data[4:], "ftyp"+brand)
	return base64.StdEncoding.EncodeToString(data)
}

func TestDecodeImageMIME(t *testing.T) {
	jpeg := base64.StdEncoding.EncodeToString(append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 28)...))
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{name: "jpg alias", content: "data:image/jpg;base64," + jpeg, want: "image/jpeg"},
		{name: "x-png alias", content: "data:image/x-png;base64," + pngBase64(20), want: "image/png"},
		{name: "sniffed jpeg", content: jpeg, want: "image/jpeg"},
		{name: "raw heic", content: ftypBox("heic"), want: "image/heic"},
		{name: "raw heif", content: ftypBox("mif1"), want: "image/heif"},
		{name: "mp4 is not an image", content: ftypBox("isom"), wantErr: true},
		{name: "text payload", content: base64.StdEncoding.EncodeToString([]byte("just some words here")), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img, err := DecodeImage("images[0].content", tc.content)
			if tc.wantErr {
				var invalid *ValidationError
				if !errors.As(err, &invalid) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.MIMEType != tc.want {
				t.Fatalf("mime = %s, want %s", img.MIMEType, tc.want)
			}
		})
	}
}
