package drawing

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/prompt"
)

//go:embed prompts/*.yml
var promptsFS embed.FS

// requiredKeys 는 모든 로케일 파일에 있어야 하는 키 목록이다.
var requiredKeys = []string{
	"language_name",
	"free_system", "instrument_system",
	"role_parent", "role_teacher",
	"free_user", "instrument_user",
	"age_unknown", "age_band_unknown",
	"age_band_2_3", "age_band_3_4", "age_band_4_6", "age_band_6_9", "age_band_9_12", "age_band_12_18",
	"gender_male", "gender_female", "gender_unknown",
	"images_none", "images_single", "images_multi_header", "image_line", "image_marker",
	"default_image_label", "none",
	"disclaimer", "failure_message",
	"fallback_insight_title", "fallback_generic_summary", "fallback_quality_note",
	"fallback_tip_title", "fallback_tip_step_1", "fallback_tip_step_2", "fallback_tip_why",
	"guide_question", "guide_avoid", "guide_response",
}

// 템플릿 키별 허용 치환 변수.
var templateVars = map[string][]string{
	"free_user":           {"task_type", "age", "age_band", "gender", "role", "cultural_context", "features", "image_block", "output_shape"},
	"instrument_user":     {"task_type", "lens", "age", "age_band", "gender", "role", "cultural_context", "features", "image_block", "trauma_taxonomy", "output_shape"},
	"images_single":       {"label", "id"},
	"images_multi_header": {"count"},
	"image_line":          {"index", "label", "id"},
	"image_marker":        {"index", "count", "label", "id"},
}

// Catalog 는 (로케일, 키) 로 조회하는 지시문 템플릿 모음이다.
type Catalog struct {
	texts map[Language]map[string]string
}

// NewCatalog 는 내장된 로케일 프롬프트를 로드한다.
func NewCatalog() (*Catalog, error) {
	return LoadCatalog(promptsFS, "prompts")
}

// LoadCatalog 는 fsys 의 dir 에서 로케일별 YAML 을 로드하고 키와 템플릿 변수를 검사한다.
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	bundle, err := prompt.LoadBundle(fsys, dir, "drawing")
	if err != nil {
		return nil, fmt.Errorf("load drawing prompts: %w", err)
	}

	c := &Catalog{texts: make(map[Language]map[string]string)}
	for _, lang := range supportedLanguages {
		section := string(lang)
		if _, err := bundle.Section(section); err != nil {
			return nil, fmt.Errorf("load drawing prompts: %w", err)
		}
		texts := make(map[string]string, len(requiredKeys))
		for _, key := range requiredKeys {
			value, err := bundle.Field(section, key)
			if err != nil {
				return nil, err
			}
			texts[key] = strings.TrimSpace(value)
		}
		for _, task := range taskCatalog {
			if task.Category != CategoryInstrument {
				continue
			}
			key := lensKey(task.Code)
			value, err := bundle.Field(section, key)
			if err != nil {
				return nil, err
			}
			texts[key] = strings.TrimSpace(value)
		}
		if err := checkTemplateVars(lang, texts); err != nil {
			return nil, err
		}
		c.texts[lang] = texts
	}
	return c, nil
}

func checkTemplateVars(lang Language, texts map[string]string) error {
	for key, allowed := range templateVars {
		vars, err := prompt.Placeholders(texts[key])
		if err != nil {
			return fmt.Errorf("%s.%s: %w", lang, key, err)
		}
		for _, v := range vars {
			if !slices.Contains(allowed, v) {
				return fmt.Errorf("%s.%s: unknown template variable %q", lang, key, v)
			}
		}
	}
	return nil
}

// Text 는 로케일 문구를 반환한다. 없으면 기본 로케일 문구를 쓴다.
func (c *Catalog) Text(lang Language, key string) string {
	if c == nil {
		return ""
	}
	if value, ok := c.texts[lang][key]; ok {
		return value
	}
	return c.texts[DefaultLanguage][key]
}

// Disclaimer 는 로케일별 면책 문구다.
func (c *Catalog) Disclaimer(lang Language) string {
	return c.Text(lang, "disclaimer")
}

// FailureMessage 는 모델 호출 실패 시 사용자에게 보여줄 문구다.
func (c *Catalog) FailureMessage(lang Language) string {
	return c.Text(lang, "failure_message")
}

func lensKey(task TaskType) string {
	return "lens_" + string(task)
}
