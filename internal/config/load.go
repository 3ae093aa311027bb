package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

var (
	configOnce  sync.Once
	configValue *Config
)

// Load 는 환경 변수 기반 설정을 로드한다.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue = buildConfig()
	})
	return configValue
}

// ProvideConfig 는 설정을 로드하고 검증한다.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 는 설정 유효성을 검사한다.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	models := []string{
		c.Gemini.DefaultModel,
		c.Gemini.FreeDrawingModel,
		c.Gemini.InstrumentModel,
	}
	for _, model := range models {
		if model == "" {
			continue
		}
		if !isGemini3(model) {
			return fmt.Errorf("gemini 3 only: model=%s", model)
		}
	}

	temps := map[string]float64{
		"PIPELINE_FREE_DRAWING_TEMPERATURE": c.Pipeline.FreeDrawingTemperature,
		"PIPELINE_INSTRUMENT_TEMPERATURE":   c.Pipeline.InstrumentTemperature,
	}
	for key, value := range temps {
		if value < 0 || value > 2 {
			return fmt.Errorf("%s out of range [0,2]: %v", key, value)
		}
	}
	if c.Pipeline.FreeDrawingMaxTokens < 0 || c.Pipeline.InstrumentMaxTokens < 0 {
		return errors.New("pipeline max tokens must not be negative")
	}

	if spec := c.Database.UsageReportCron; spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid USAGE_REPORT_CRON %q: %w", spec, err)
		}
	}
	return nil
}

// LogEnvStatus 는 환경 설정 상태를 로그로 남긴다.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	envFilePresent := fileExists(".env")
	primaryKey := maskSecret(cfg.Gemini.PrimaryKey())
	logger.Debug(
		"env_status",
		"env_file", envFilePresent,
		"gemini_keys", len(cfg.Gemini.APIKeys),
		"primary_key", primaryKey,
		"model", cfg.Gemini.DefaultModel,
		"free_drawing_model", cfg.Gemini.ModelForTask(TaskFreeDrawing),
		"instrument_model", cfg.Gemini.ModelForTask(TaskInstrument),
		"timeout", cfg.Gemini.TimeoutSeconds,
		"store_url", cfg.Store.URL,
		"quota_daily_limit", cfg.Quota.DailyLimit,
		"achievement_enabled", cfg.Achievement.Enabled,
		"db_enabled", cfg.Database.Enabled,
		"db_host", cfg.Database.Host,
		"db_name", cfg.Database.Name,
	)

	if len(cfg.Gemini.APIKeys) == 0 {
		logger.Error("env_missing_google_api_key")
	}
}

func buildConfig() *Config {
	return &Config{
		Gemini:        readGeminiConfig(),
		Pipeline:      readPipelineConfig(),
		Store:         readStoreConfig(),
		Quota:         readQuotaConfig(),
		Achievement:   readAchievementConfig(),
		Diagnostics:   readDiagnosticsConfig(),
		Guard:         readGuardConfig(),
		Logging:       readLoggingConfig(),
		HTTP:          readHTTPConfig(),
		GRPC:          readGRPCConfig(),
		HTTPAuth:      readHTTPAuthConfig(),
		HTTPRateLimit: readHTTPRateLimitConfig(),
		CORS:          readCORSConfig(),
		Database:      readDatabaseConfig(),
		Telemetry:     readTelemetryConfig(),
	}
}

func readGeminiConfig() GeminiConfig {
	return GeminiConfig{
		APIKeys:          parseAPIKeys(),
		DefaultModel:     getEnvString("GEMINI_MODEL", "gemini-3-flash-preview"),
		FreeDrawingModel: getEnvString("GEMINI_FREE_DRAWING_MODEL", ""),
		InstrumentModel:  getEnvString("GEMINI_INSTRUMENT_MODEL", ""),
		Thinking: ThinkingConfig{
			LevelDefault:     getEnvString("GEMINI_THINKING_LEVEL", "low"),
			LevelFreeDrawing: getEnvString("GEMINI_THINKING_LEVEL_FREE_DRAWING", ""),
			LevelInstrument:  getEnvString("GEMINI_THINKING_LEVEL_INSTRUMENT", ""),
		},
		TimeoutSeconds:    getEnvInt("GEMINI_TIMEOUT", 60),
		RequestsPerSecond: getEnvFloat("GEMINI_REQUESTS_PER_SECOND", 0),
		RequestBurst:      max(1, getEnvNonNegativeInt("GEMINI_REQUEST_BURST", 4)),
		JSONMode:          getEnvBool("GEMINI_JSON_MODE", true),
	}
}

func readPipelineConfig() PipelineConfig {
	return PipelineConfig{
		SchemaVersion:          getEnvString("PIPELINE_SCHEMA_VERSION", "v3"),
		FreeDrawingTemperature: getEnvFloat("PIPELINE_FREE_DRAWING_TEMPERATURE", 0.9),
		InstrumentTemperature:  getEnvFloat("PIPELINE_INSTRUMENT_TEMPERATURE", 0.4),
		FreeDrawingMaxTokens:   getEnvNonNegativeInt("PIPELINE_FREE_DRAWING_MAX_TOKENS", 8192),
		InstrumentMaxTokens:    getEnvNonNegativeInt("PIPELINE_INSTRUMENT_MAX_TOKENS", 6144),
		AnalysisTimeoutSeconds: getEnvNonNegativeInt("PIPELINE_ANALYSIS_TIMEOUT", 90),
	}
}

func readStoreConfig() StoreConfig {
	return StoreConfig{
		URL:                 getEnvString("STORE_URL", "redis://localhost:6379"),
		Enabled:             getEnvBool("STORE_ENABLED", true),
		Required:            getEnvBool("STORE_REQUIRED", false),
		DisableCache:        getEnvBool("STORE_DISABLE_CACHE", false),
		ConnectMaxAttempts:  max(1, getEnvNonNegativeInt("STORE_CONNECT_MAX_ATTEMPTS", 6)),
		ConnectRetrySeconds: getEnvNonNegativeInt("STORE_CONNECT_RETRY_SECONDS", 5),
	}
}

func readQuotaConfig() QuotaConfig {
	return QuotaConfig{
		DailyLimit: getEnvNonNegativeInt("QUOTA_DAILY_LIMIT", 0),
		KeyPrefix:  getEnvString("QUOTA_KEY_PREFIX", "quota:analysis"),
	}
}

func readAchievementConfig() AchievementConfig {
	return AchievementConfig{
		Enabled:        getEnvBool("ACHIEVEMENT_ENABLED", false),
		Stream:         getEnvString("ACHIEVEMENT_STREAM", "activity:events"),
		MaxLen:         int64(max(1, getEnvNonNegativeInt("ACHIEVEMENT_STREAM_MAXLEN", 10000))),
		Workers:        max(1, getEnvNonNegativeInt("ACHIEVEMENT_WORKERS", 4)),
		TimeoutSeconds: max(1, getEnvNonNegativeInt("ACHIEVEMENT_TIMEOUT_SECONDS", 5)),
	}
}

func readDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		Enabled:    getEnvBool("DIAGNOSTICS_ENABLED", true),
		TTLMinutes: max(1, getEnvNonNegativeInt("DIAGNOSTICS_TTL_MINUTES", 1440)),
		MaxBytes:   max(1, getEnvNonNegativeInt("DIAGNOSTICS_MAX_BYTES", 262144)),
	}
}

func readGuardConfig() GuardConfig {
	return GuardConfig{
		Enabled:         getEnvBool("GUARD_ENABLED", true),
		Threshold:       getEnvRatio("GUARD_THRESHOLD", 0.85),
		RulepacksDir:    getEnvString("RULEPACKS_DIR", ""),
		WatchRulepacks:  getEnvBool("GUARD_WATCH_RULEPACKS", false),
		CacheMaxSize:    getEnvInt("GUARD_CACHE_SIZE", 10000),
		CacheTTLSeconds: getEnvInt("GUARD_CACHE_TTL", 3600),
	}
}

func readLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      getEnvString("LOG_LEVEL", "info"),
		LogDir:     getEnvString("LOG_DIR", ""),
		MaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 1),
		MaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 30),
		MaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 7),
		Compress:   getEnvBool("LOG_FILE_COMPRESS", true),
	}
}

func readHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Host:               getEnvString("HTTP_HOST", "127.0.0.1"),
		Port:               getEnvInt("HTTP_PORT", 40527),
		HTTP2Enabled:       getEnvBool("HTTP2_ENABLED", true),
		Gzip:               getEnvBool("HTTP_GZIP_ENABLED", true),
		ReadTimeoutSeconds: getEnvNonNegativeInt("HTTP_READ_TIMEOUT_SECONDS", 30),
	}
}

func readGRPCConfig() GRPCConfig {
	return GRPCConfig{
		Host:    getEnvString("GRPC_HOST", "127.0.0.1"),
		Port:    getEnvInt("GRPC_PORT", 40528),
		Enabled: getEnvBool("GRPC_ENABLED", false),
	}
}

func readHTTPAuthConfig() HTTPAuthConfig {
	return HTTPAuthConfig{
		APIKey:   getEnvSecret("HTTP_API_KEY"),
		Required: getEnvBool("HTTP_AUTH_REQUIRED", false),
	}
}

func readHTTPRateLimitConfig() HTTPRateLimitConfig {
	return HTTPRateLimitConfig{
		RequestsPerMinute: getEnvNonNegativeInt("HTTP_RATE_LIMIT_RPM", 0),
		CacheSize:         max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_SIZE", 10000)),
		CacheTTLSeconds:   max(1, getEnvNonNegativeInt("HTTP_RATE_LIMIT_CACHE_TTL_SECONDS", 120)),
	}
}

func readCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: getEnvList("CORS_ALLOW_ORIGINS"),
	}
}

func readDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:                              getEnvBool("DB_ENABLED", false),
		Host:                                 getEnvString("DB_HOST", "localhost"),
		Port:                                 getEnvInt("DB_PORT", 5432),
		Name:                                 getEnvString("DB_NAME", "masalbak"),
		User:                                 getEnvString("DB_USER", "masalbak"),
		Password:                             getEnvSecret("DB_PASSWORD"),
		MinPool:                              getEnvInt("DB_MIN_POOL", 1),
		MaxPool:                              getEnvInt("DB_MAX_POOL", 5),
		ConnMaxLifetimeMinutes:               getEnvNonNegativeInt("DB_CONN_MAX_LIFETIME_MINUTES", 60),
		ConnMaxIdleTimeMinutes:               getEnvNonNegativeInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 10),
		UsageBatchEnabled:                    getEnvBool("DB_USAGE_BATCH_ENABLED", false),
		UsageBatchFlushIntervalSeconds:       max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_INTERVAL_SECONDS", 1)),
		UsageBatchFlushTimeoutSeconds:        max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_FLUSH_TIMEOUT_SECONDS", 5)),
		UsageBatchMaxPendingRequests:         max(1, getEnvNonNegativeInt("DB_USAGE_BATCH_MAX_PENDING_REQUESTS", 50)),
		UsageBatchMaxBackoffSeconds:          getEnvNonNegativeInt("DB_USAGE_BATCH_MAX_BACKOFF_SECONDS", 60),
		UsageBatchErrorLogMaxIntervalSeconds: getEnvNonNegativeInt("DB_USAGE_BATCH_ERROR_LOG_MAX_INTERVAL_SECONDS", 60),
		UsageReportCron:                      getEnvString("USAGE_REPORT_CRON", "5 0 * * *"),
	}
}

func readTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        getEnvBool("OTEL_ENABLED", false),
		ServiceName:    getEnvString("OTEL_SERVICE_NAME", "drawing-analysis"),
		ServiceVersion: getEnvString("OTEL_SERVICE_VERSION", "1.0.0"),
		Environment:    getEnvString("OTEL_ENVIRONMENT", "production"),
		OTLPEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317"),
		OTLPInsecure:   getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		SampleRate:     getEnvRatio("OTEL_SAMPLE_RATE", 1.0),
	}
}
