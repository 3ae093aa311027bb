package drawing

// AnalysisRequest 는 호출자가 보내는 원본 요청이다.
type AnalysisRequest struct {
	TaskType        string         `json:"taskType" validate:"required,tasktype"`
	ChildAge        *int           `json:"childAge,omitempty" validate:"omitempty,min=0,max=18"`
	ChildGender     string         `json:"childGender,omitempty" validate:"omitempty,oneof=male female"`
	Language        string         `json:"language,omitempty" validate:"omitempty,language"`
	UserRole        string         `json:"userRole,omitempty" validate:"omitempty,oneof=parent teacher"`
	CulturalContext string         `json:"culturalContext,omitempty" validate:"max=500"`
	Images          []ImageInput   `json:"images,omitempty" validate:"max=10,dive"`
	ImageBase64     string         `json:"imageBase64,omitempty"`
	FeaturesJSON    map[string]any `json:"featuresJson,omitempty" validate:"max=200,dive,keys,max=100,endkeys"`
}

// ImageInput 은 다중 이미지 요청의 한 항목이다.
type ImageInput struct {
	ID      string `json:"id" validate:"max=64"`
	Label   string `json:"label" validate:"max=120"`
	Content string `json:"content" validate:"required"`
}

// Image 는 디코딩을 마친 이미지다.
type Image struct {
	ID       string
	Label    string
	MIMEType string
	Data     []byte
}

// Feature 는 정렬된 특징 벡터 항목이다.
type Feature struct {
	Key   string
	Value any
}

// Request 는 기본값 적용과 디코딩을 마친 요청이다.
type Request struct {
	TaskType        TaskType
	Category        Category
	Age             *int
	Gender          string
	Language        Language
	Role            Role
	CulturalContext string
	Images          []Image
	Legacy          *Image
	Features        []Feature
}

// EffectiveImages 는 다중 이미지 목록을 우선하고, 없으면 레거시 단일 이미지를 감싸 반환한다.
func (r *Request) EffectiveImages() []Image {
	if len(r.Images) > 0 {
		return r.Images
	}
	if r.Legacy != nil {
		return []Image{*r.Legacy}
	}
	return nil
}

// AnalysisResult 는 파이프라인의 최종 출력이다.
type AnalysisResult struct {
	Meta                 Meta                  `json:"meta"`
	Insights             []Insight             `json:"insights" validate:"required,min=1,dive"`
	HomeTips             []HomeTip             `json:"homeTips" validate:"dive"`
	RiskFlags            []RiskFlag            `json:"riskFlags" validate:"dive"`
	TraumaAssessment     *TraumaAssessment     `json:"traumaAssessment"`
	ConversationGuide    *ConversationGuide    `json:"conversationGuide"`
	ProfessionalGuidance *ProfessionalGuidance `json:"professionalGuidance"`
	TrendNote            string                `json:"trendNote"`
	Disclaimer           string                `json:"disclaimer" validate:"required"`
}

// Meta 는 결과 메타데이터다. testType, age, language 는 요청 값을 그대로 되돌린다.
type Meta struct {
	TestType         string   `json:"testType" validate:"required"`
	Age              *int     `json:"age"`
	Language         string   `json:"language" validate:"required"`
	Confidence       float64  `json:"confidence" validate:"min=0,max=1"`
	UncertaintyLevel string   `json:"uncertaintyLevel" validate:"oneof=low mid high"`
	DataQualityNotes []string `json:"dataQualityNotes"`
}

// Insight 는 근거가 붙은 관찰 한 건이다.
type Insight struct {
	Title    string   `json:"title" validate:"required"`
	Summary  string   `json:"summary" validate:"required"`
	Evidence []string `json:"evidence"`
	Strength string   `json:"strength" validate:"oneof=weak moderate strong"`
}

// HomeTip 은 가정에서 해볼 수 있는 활동 제안이다.
type HomeTip struct {
	Title string   `json:"title" validate:"required"`
	Steps []string `json:"steps" validate:"min=1"`
	Why   string   `json:"why"`
}

// RiskFlag 는 진단이 아닌 안전 우려 신호다. Action 은 유형별 고정값으로 덮어쓴다.
type RiskFlag struct {
	Type    string `json:"type" validate:"risktype"`
	Summary string `json:"summary"`
	Action  string `json:"action"`
}

// TraumaAssessment 는 우려 내용이 감지된 경우에만 채워진다.
type TraumaAssessment struct {
	HasTraumaticContent bool     `json:"hasTraumaticContent"`
	ContentTypes        []string `json:"contentTypes" validate:"dive,traumacategory"`
	PrimaryConcern      string   `json:"primaryConcern"`
	TherapeuticApproach string   `json:"therapeuticApproach"`
	Severity            string   `json:"severity" validate:"omitempty,oneof=none mild moderate severe"`
	Urgency             string   `json:"urgency" validate:"omitempty,oneof=routine soon urgent"`
}

// ConversationGuide 는 보호자용 대화 안내다.
type ConversationGuide struct {
	OpeningQuestions    []string `json:"openingQuestions"`
	AvoidPhrases        []string `json:"avoidPhrases"`
	SupportiveResponses []string `json:"supportiveResponses"`
}

// ProfessionalGuidance 는 전문가 상담이 필요한 시점 안내다.
type ProfessionalGuidance struct {
	WhenToSeek        []string `json:"whenToSeek"`
	ProfessionalTypes []string `json:"professionalTypes"`
	UrgencyNote       string   `json:"urgencyNote"`
}
