package drawing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/prompt"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/toon"
)

// outputShape 는 모든 로케일에 동일하게 들어가는 출력 형태다. 필드명은 번역하지 않는다.
var outputShape = `{
  "meta": {"testType": "string", "age": "number or null", "language": "string", "confidence": "number 0..1", "uncertaintyLevel": "low | mid | high", "dataQualityNotes": ["string"]},
  "insights": [{"title": "string", "summary": "2-4 sentences", "evidence": ["evidence_key"], "strength": "weak | moderate | strong"}],
  "homeTips": [{"title": "string", "steps": ["string"], "why": "string"}],
  "riskFlags": [{"type": "` + strings.Join(riskTypeCodes(), " | ") + `", "summary": "string"}],
  "traumaAssessment": null or {"hasTraumaticContent": true, "contentTypes": ["category_code"], "primaryConcern": "string", "therapeuticApproach": "string", "severity": "none | mild | moderate | severe", "urgency": "routine | soon | urgent"},
  "conversationGuide": null or {"openingQuestions": ["string"], "avoidPhrases": ["string"], "supportiveResponses": ["string"]},
  "professionalGuidance": null or {"whenToSeek": ["string"], "professionalTypes": ["string"], "urgencyNote": "string"},
  "trendNote": "string"
}`

func riskTypeCodes() []string {
	return []string{
		string(RiskSelfHarm),
		string(RiskSuicidalIdeation),
		string(RiskAbuseIndicator),
		string(RiskNeglect),
		string(RiskViolenceExposure),
		string(RiskSevereDistress),
		string(RiskOther),
	}
}

// Composition 은 모델에 보낼 역할 지시문과 작업 지시문, 그리고 호출 순서대로의 입력 조각이다.
// Parts 의 첫 조각은 항상 User 텍스트다.
type Composition struct {
	System string
	User   string
	Parts  []llm.Part
}

// Composer 는 정규화된 요청으로 지시문을 만든다.
type Composer struct {
	catalog *Catalog
}

// NewComposer 는 Composer 를 생성한다.
func NewComposer(catalog *Catalog) *Composer {
	return &Composer{catalog: catalog}
}

// Compose 는 분류(자유/검사)와 이미지 수에 따라 지시문을 조립한다.
func (c *Composer) Compose(req *Request) (Composition, error) {
	if req == nil {
		return Composition{}, fmt.Errorf("compose: nil request")
	}
	lang := req.Language
	images := req.EffectiveImages()

	systemKey, userKey := "instrument_system", "instrument_user"
	if req.Category == CategoryFreeDrawing {
		systemKey, userKey = "free_system", "free_user"
	}
	system := c.catalog.Text(lang, systemKey) + "\n\n" + c.catalog.Text(lang, "role_"+string(req.Role))

	imageBlock, labels, err := c.imageBlock(req, images)
	if err != nil {
		return Composition{}, err
	}

	values := map[string]string{
		"task_type":        string(req.TaskType),
		"age":              c.ageText(req.Age, lang),
		"age_band":         c.catalog.Text(lang, AgeBandKey(req.Age)),
		"gender":           c.genderText(req.Gender, lang),
		"role":             string(req.Role),
		"cultural_context": c.culturalContext(req.CulturalContext, lang),
		"features":         c.featureBlock(req.Features, lang),
		"image_block":      imageBlock,
		"output_shape":     outputShape,
	}
	if req.Category == CategoryInstrument {
		values["lens"] = c.catalog.Text(lang, lensKey(req.TaskType))
		values["trauma_taxonomy"] = strings.Join(TraumaCategories, ", ")
	}

	user, err := prompt.FormatTemplate(c.catalog.Text(lang, userKey), values)
	if err != nil {
		return Composition{}, fmt.Errorf("format %s.%s: %w", lang, userKey, err)
	}

	parts := make([]llm.Part, 0, 1+2*len(images))
	parts = append(parts, llm.TextPart(user))
	for i, img := range images {
		if len(images) > 1 {
			marker, err := prompt.FormatTemplate(c.catalog.Text(lang, "image_marker"), map[string]string{
				"index": strconv.Itoa(i + 1),
				"count": strconv.Itoa(len(images)),
				"label": labels[i],
				"id":    img.ID,
			})
			if err != nil {
				return Composition{}, fmt.Errorf("format image marker: %w", err)
			}
			parts = append(parts, llm.TextPart(marker))
		}
		parts = append(parts, llm.ImagePart(img.MIMEType, img.Data))
	}

	return Composition{System: system, User: user, Parts: parts}, nil
}

func (c *Composer) imageBlock(req *Request, images []Image) (string, []string, error) {
	lang := req.Language
	labels := make([]string, len(images))
	for i, img := range images {
		labels[i] = c.imageLabel(req.TaskType, i, img.Label, lang)
	}

	switch len(images) {
	case 0:
		return c.catalog.Text(lang, "images_none"), labels, nil
	case 1:
		block, err := prompt.FormatTemplate(c.catalog.Text(lang, "images_single"), map[string]string{
			"label": labels[0],
			"id":    images[0].ID,
		})
		return block, labels, err
	}

	header, err := prompt.FormatTemplate(c.catalog.Text(lang, "images_multi_header"), map[string]string{
		"count": strconv.Itoa(len(images)),
	})
	if err != nil {
		return "", nil, err
	}
	lines := []string{header}
	for i, img := range images {
		line, err := prompt.FormatTemplate(c.catalog.Text(lang, "image_line"), map[string]string{
			"index": strconv.Itoa(i + 1),
			"label": labels[i],
			"id":    img.ID,
		})
		if err != nil {
			return "", nil, err
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), labels, nil
}

// imageLabel 은 호출자 라벨을 우선하고, 없으면 검사의 기대 라벨, 그다음 기본 라벨을 쓴다.
func (c *Composer) imageLabel(task TaskType, index int, label string, lang Language) string {
	if label != "" {
		return label
	}
	if info, ok := LookupTask(task); ok && index < len(info.ExpectedLabels) {
		return info.ExpectedLabels[index]
	}
	return c.catalog.Text(lang, "default_image_label")
}

func (c *Composer) ageText(age *int, lang Language) string {
	if age == nil {
		return c.catalog.Text(lang, "age_unknown")
	}
	return strconv.Itoa(*age)
}

func (c *Composer) genderText(gender string, lang Language) string {
	switch gender {
	case "male", "female":
		return c.catalog.Text(lang, "gender_"+gender)
	default:
		return c.catalog.Text(lang, "gender_unknown")
	}
}

func (c *Composer) culturalContext(text string, lang Language) string {
	if text == "" {
		return c.catalog.Text(lang, "none")
	}
	return prompt.WrapXML("cultural_context", text)
}

func (c *Composer) featureBlock(features []Feature, lang Language) string {
	if len(features) == 0 {
		return c.catalog.Text(lang, "none")
	}
	lines := make([]string, 0, len(features))
	for _, f := range features {
		entry := prompt.EscapeXML(toon.EncodeField(f.Key, f.Value))
		lines = append(lines, "- "+strings.ReplaceAll(entry, "\n", "\n  "))
	}
	return strings.Join(lines, "\n")
}

// AgeBandKey 는 나이에 맞는 발달 구간 문구 키를 반환한다.
func AgeBandKey(age *int) string {
	if age == nil {
		return "age_band_unknown"
	}
	switch a := *age; {
	case a < 3:
		return "age_band_2_3"
	case a < 4:
		return "age_band_3_4"
	case a < 6:
		return "age_band_4_6"
	case a < 9:
		return "age_band_6_9"
	case a < 12:
		return "age_band_9_12"
	default:
		return "age_band_12_18"
	}
}
