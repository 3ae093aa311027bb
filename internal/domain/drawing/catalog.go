package drawing

import "slices"

// TaskType 은 분석 대상 그림 검사 코드다.
type TaskType string

// 지원하는 검사 코드 목록.
const (
	TaskDAP         TaskType = "DAP"
	TaskHTP         TaskType = "HTP"
	TaskFamily      TaskType = "Family"
	TaskKFD         TaskType = "KFD"
	TaskCactus      TaskType = "Cactus"
	TaskTree        TaskType = "Tree"
	TaskGarden      TaskType = "Garden"
	TaskBender      TaskType = "BenderGestalt2"
	TaskRey         TaskType = "ReyOsterrieth"
	TaskFreeDrawing TaskType = "FreeDrawing"
)

// Category 는 프롬프트와 모델 프로필을 가르는 검사 분류다.
type Category string

// 검사 분류.
const (
	CategoryFreeDrawing Category = "free_drawing"
	CategoryInstrument  Category = "instrument"
)

// Language 는 지원 로케일 코드다.
type Language string

// 지원 로케일. 기본값은 tr 이다.
const (
	LangTurkish Language = "tr"
	LangEnglish Language = "en"
	LangRussian Language = "ru"
	LangTurkmen Language = "tk"
	LangUzbek   Language = "uz"

	DefaultLanguage = LangTurkish
)

// Role 은 결과를 읽는 보호자 유형이다.
type Role string

// 보호자 유형. 기본값은 parent 이다.
const (
	RoleParent  Role = "parent"
	RoleTeacher Role = "teacher"

	DefaultRole = RoleParent
)

// 요청 크기 제한.
const (
	MaxImages             = 10
	MaxImageBytes         = 3_932_160
	MaxFeatureKeyLength   = 100
	MaxFeatures           = 200
	MaxFeatureDepth       = 3
	MaxCulturalContextLen = 500
)

// TaskInfo 는 검사 코드별 메타데이터다.
type TaskInfo struct {
	Code           TaskType `json:"code"`
	Category       Category `json:"category"`
	MultiImage     bool     `json:"multiImage"`
	ExpectedLabels []string `json:"expectedLabels,omitempty"`
}

var taskCatalog = []TaskInfo{
	{Code: TaskDAP, Category: CategoryInstrument},
	{Code: TaskHTP, Category: CategoryInstrument, MultiImage: true, ExpectedLabels: []string{"house", "tree", "person"}},
	{Code: TaskFamily, Category: CategoryInstrument},
	{Code: TaskKFD, Category: CategoryInstrument},
	{Code: TaskCactus, Category: CategoryInstrument},
	{Code: TaskTree, Category: CategoryInstrument},
	{Code: TaskGarden, Category: CategoryInstrument},
	{Code: TaskBender, Category: CategoryInstrument, MultiImage: true, ExpectedLabels: []string{"copy", "recall"}},
	{Code: TaskRey, Category: CategoryInstrument, MultiImage: true, ExpectedLabels: []string{"copy", "recall"}},
	{Code: TaskFreeDrawing, Category: CategoryFreeDrawing},
}

var supportedLanguages = []Language{LangTurkish, LangEnglish, LangRussian, LangTurkmen, LangUzbek}

// TaskTypes 는 지원 검사 목록의 복사본을 반환한다.
func TaskTypes() []TaskInfo {
	out := make([]TaskInfo, len(taskCatalog))
	copy(out, taskCatalog)
	return out
}

// LookupTask 는 코드에 해당하는 검사 정보를 찾는다.
func LookupTask(code TaskType) (TaskInfo, bool) {
	for _, info := range taskCatalog {
		if info.Code == code {
			return info, true
		}
	}
	return TaskInfo{}, false
}

// IsSupportedLanguage 는 지원 로케일 여부를 반환한다.
func IsSupportedLanguage(lang Language) bool {
	return slices.Contains(supportedLanguages, lang)
}

// SupportedLanguages 는 지원 로케일 목록을 반환한다.
func SupportedLanguages() []Language {
	return slices.Clone(supportedLanguages)
}

// TraumaCategories 는 traumaAssessment.contentTypes 에 허용되는 닫힌 분류 목록이다.
var TraumaCategories = []string{
	"war_violence",
	"natural_disaster",
	"loss_grief",
	"family_conflict",
	"domestic_violence",
	"physical_abuse",
	"sexual_abuse_indicators",
	"neglect",
	"bullying",
	"medical_trauma",
	"accident",
	"displacement_migration",
	"separation_divorce",
	"anxiety",
	"depression_sadness",
	"self_harm",
	"suicidal_ideation",
	"aggression",
	"isolation_loneliness",
	"fear_threat",
	"body_image",
	"sleep_nightmares",
	"school_stress",
	"other",
}

// RiskType 은 riskFlags.type 의 닫힌 분류다.
type RiskType string

// 위험 신호 유형.
const (
	RiskSelfHarm         RiskType = "self_harm"
	RiskSuicidalIdeation RiskType = "suicidal_ideation"
	RiskAbuseIndicator   RiskType = "abuse_indicator"
	RiskNeglect          RiskType = "neglect_indicator"
	RiskViolenceExposure RiskType = "violence_exposure"
	RiskSevereDistress   RiskType = "severe_distress"
	RiskOther            RiskType = "other"
)

// 위험 신호별 고정 권고 조치 코드.
const (
	ActionUrgentReferral      = "urgent_professional_referral"
	ActionSafeguardingContact = "contact_child_protection_services"
	ActionConsultation        = "consult_child_psychologist"
	ActionMonitor             = "monitor_and_discuss"
)

var riskActions = map[RiskType]string{
	RiskSelfHarm:         ActionUrgentReferral,
	RiskSuicidalIdeation: ActionUrgentReferral,
	RiskAbuseIndicator:   ActionSafeguardingContact,
	RiskNeglect:          ActionSafeguardingContact,
	RiskViolenceExposure: ActionConsultation,
	RiskSevereDistress:   ActionConsultation,
	RiskOther:            ActionMonitor,
}

// ActionForRisk 는 위험 유형에 고정된 권고 조치를 반환한다.
func ActionForRisk(t RiskType) (string, bool) {
	action, ok := riskActions[t]
	return action, ok
}
