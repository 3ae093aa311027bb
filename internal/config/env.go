package config

import (
	"os"
	"strconv"
	"strings"
	"unicode"
)

// parseAPIKeys 는 GOOGLE_API_KEYS(여러 개) 를 우선하고, 없으면 GOOGLE_API_KEY 또는 그 _FILE 변형을 쓴다.
func parseAPIKeys() []string {
	if keys := getEnvList("GOOGLE_API_KEYS"); len(keys) > 0 {
		return keys
	}
	key := getEnvSecret("GOOGLE_API_KEY")
	if key == "" {
		return nil
	}
	return []string{key}
}

// splitKeys 는 쉼표나 공백류로 나눈다. 빈 항목은 버린다.
func splitKeys(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func isGemini3(model string) bool {
	return strings.Contains(strings.ToLower(model), "gemini-3")
}

// lookupEnv 는 공백을 걷은 값이 있을 때만 parse 결과를 쓰고, 비었거나 해석에 실패하면 def 를 돌려준다.
func lookupEnv[T any](key string, def T, parse func(string) (T, error)) T {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := parse(value)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvString(key string, def string) string {
	return lookupEnv(key, def, func(v string) (string, error) { return v, nil })
}

func getEnvInt(key string, def int) int {
	return lookupEnv(key, def, strconv.Atoi)
}

func getEnvNonNegativeInt(key string, def int) int {
	return max(0, getEnvInt(key, def))
}

func getEnvFloat(key string, def float64) float64 {
	return lookupEnv(key, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func getEnvList(key string) []string {
	return splitKeys(os.Getenv(key))
}

// getEnvSecret 는 KEY 가 비어 있으면 KEY_FILE 이 가리키는 파일 내용을 읽는다. 컨테이너 시크릿 마운트용.
func getEnvSecret(key string) string {
	if value := getEnvString(key, ""); value != "" {
		return value
	}
	path := getEnvString(key+"_FILE", "")
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// getEnvRatio 는 [0,1] 범위 값을 읽는다. 범위를 벗어나면 기본값을 쓴다.
func getEnvRatio(key string, def float64) float64 {
	value := getEnvFloat(key, def)
	if value < 0 || value > 1 {
		return def
	}
	return value
}

// getEnvBool 은 알 수 없는 값이면 기본값을 유지한다.
func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func maskSecret(value string) string {
	if value == "" {
		return "<missing>"
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:2] + "***" + value[len(value)-2:]
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
