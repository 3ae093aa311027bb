package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// ThinkingConfig: Gemini thinking 레벨 설정입니다.
type ThinkingConfig struct {
	LevelDefault     string
	LevelFreeDrawing string
	LevelInstrument  string
}

// Level: 작업 유형별 thinking 레벨을 반환합니다.
func (t ThinkingConfig) Level(task string) string {
	switch task {
	case TaskFreeDrawing:
		if t.LevelFreeDrawing != "" {
			return t.LevelFreeDrawing
		}
	case TaskInstrument:
		if t.LevelInstrument != "" {
			return t.LevelInstrument
		}
	}
	return t.LevelDefault
}

// 모델 선택에 쓰이는 작업 유형 키입니다.
const (
	TaskFreeDrawing = "free_drawing"
	TaskInstrument  = "instrument"
)

// GeminiConfig: Gemini 모델 설정입니다.
type GeminiConfig struct {
	APIKeys           []string
	DefaultModel      string
	FreeDrawingModel  string
	InstrumentModel   string
	Thinking          ThinkingConfig
	TimeoutSeconds    int
	RequestsPerSecond float64
	RequestBurst      int
	JSONMode          bool
}

// PrimaryKey: 기본 API 키를 반환합니다.
func (g GeminiConfig) PrimaryKey() string {
	if len(g.APIKeys) == 0 {
		return ""
	}
	return g.APIKeys[0]
}

// ModelForTask: 작업 유형별 모델을 반환합니다.
func (g GeminiConfig) ModelForTask(task string) string {
	switch task {
	case TaskFreeDrawing:
		if g.FreeDrawingModel != "" {
			return g.FreeDrawingModel
		}
	case TaskInstrument:
		if g.InstrumentModel != "" {
			return g.InstrumentModel
		}
	}
	return g.DefaultModel
}

// PipelineConfig: 분석 파이프라인 프로필 설정입니다.
// 자유 그림 프로필은 온도와 토큰 예산이 더 높습니다.
type PipelineConfig struct {
	SchemaVersion          string
	FreeDrawingTemperature float64
	InstrumentTemperature  float64
	FreeDrawingMaxTokens   int
	InstrumentMaxTokens    int
	AnalysisTimeoutSeconds int
}

// AnalysisTimeout: 분석 1회 전체에 적용되는 타임아웃입니다.
func (p PipelineConfig) AnalysisTimeout() time.Duration {
	if p.AnalysisTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(p.AnalysisTimeoutSeconds) * time.Second
}

// StoreConfig: Valkey 저장소 연결 설정입니다.
type StoreConfig struct {
	URL                 string
	Enabled             bool
	Required            bool
	DisableCache        bool
	ConnectMaxAttempts  int
	ConnectRetrySeconds int
}

// QuotaConfig: 호출자별 일일 분석 한도 설정입니다. DailyLimit 0 은 비활성입니다.
type QuotaConfig struct {
	DailyLimit int
	KeyPrefix  string
}

// AchievementConfig: 분석 완료 후 활동 이벤트 발행 설정입니다.
type AchievementConfig struct {
	Enabled        bool
	Stream         string
	MaxLen         int64
	Workers        int
	TimeoutSeconds int
}

// DiagnosticsConfig: fallback 원문 보관 설정입니다.
type DiagnosticsConfig struct {
	Enabled    bool
	TTLMinutes int
	MaxBytes   int
}

// GuardConfig: 입력 검증 설정입니다.
type GuardConfig struct {
	Enabled         bool
	Threshold       float64
	RulepacksDir    string
	WatchRulepacks  bool
	CacheMaxSize    int
	CacheTTLSeconds int
}

// LoggingConfig: 로깅 설정입니다.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig: HTTP 서버 설정입니다.
type HTTPConfig struct {
	Host               string
	Port               int
	HTTP2Enabled       bool
	Gzip               bool
	ReadTimeoutSeconds int
}

// GRPCConfig: gRPC 서버 설정입니다.
type GRPCConfig struct {
	Host    string
	Port    int
	Enabled bool
}

// HTTPAuthConfig: API 키 인증 설정입니다.
type HTTPAuthConfig struct {
	APIKey   string
	Required bool
}

// HTTPRateLimitConfig: 요청 제한 설정입니다.
type HTTPRateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTLSeconds   int
}

// CORSConfig: 웹 클라이언트 CORS 설정입니다.
type CORSConfig struct {
	AllowOrigins []string
}

// DatabaseConfig: DB 연결 및 저장 설정입니다.
type DatabaseConfig struct {
	Enabled                              bool
	Host                                 string
	Port                                 int
	Name                                 string
	User                                 string
	Password                             string
	MinPool                              int
	MaxPool                              int
	ConnMaxLifetimeMinutes               int
	ConnMaxIdleTimeMinutes               int
	UsageBatchEnabled                    bool
	UsageBatchFlushIntervalSeconds       int
	UsageBatchFlushTimeoutSeconds        int
	UsageBatchMaxPendingRequests         int
	UsageBatchMaxBackoffSeconds          int
	UsageBatchErrorLogMaxIntervalSeconds int
	UsageReportCron                      string
}

// DSN: DB 접속 문자열을 반환합니다.
func (d DatabaseConfig) DSN() string {
	host := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	u := &url.URL{
		Scheme: "postgresql",
		Host:   host,
		Path:   "/" + d.Name,
	}
	if d.Password == "" {
		u.User = url.User(d.User)
	} else {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// TelemetryConfig: OpenTelemetry 설정입니다.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPInsecure   bool
	SampleRate     float64
}

// Config: 애플리케이션 전체 설정입니다.
type Config struct {
	Gemini        GeminiConfig
	Pipeline      PipelineConfig
	Store         StoreConfig
	Quota         QuotaConfig
	Achievement   AchievementConfig
	Diagnostics   DiagnosticsConfig
	Guard         GuardConfig
	Logging       LoggingConfig
	HTTP          HTTPConfig
	GRPC          GRPCConfig
	HTTPAuth      HTTPAuthConfig
	HTTPRateLimit HTTPRateLimitConfig
	CORS          CORSConfig
	Database      DatabaseConfig
	Telemetry     TelemetryConfig
}
