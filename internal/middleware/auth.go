package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/httperror"
)

// APIKeyAuth 는 /api/ 경로에 API 키를 요구하는 미들웨어다.
// 키가 필수인데 설정되지 않았으면 모든 보호 경로를 500 으로 막는다.
func APIKeyAuth(cfg *config.Config) gin.HandlerFunc {
	expected := ""
	required := false
	if cfg != nil {
		expected = strings.TrimSpace(cfg.HTTPAuth.APIKey)
		required = cfg.HTTPAuth.Required
	}

	return func(c *gin.Context) {
		if !shouldProtectPath(c.Request.URL.Path) || (expected == "" && !required) {
			c.Next()
			return
		}

		if expected == "" {
			status, payload := httperror.Response(httperror.NewInternalError("api key required but not configured"), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		provided := extractAPIKey(c)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			details := map[string]any{"path": c.Request.URL.Path}
			status, payload := httperror.Response(httperror.NewUnauthorized(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

// UserIDHeader 는 인증 게이트가 전달하는 사용자 식별자 헤더다.
const UserIDHeader = "X-User-ID"

const maxUserIDLength = 128

// GetUserID 는 요청의 사용자 식별자를 반환한다. 너무 길거나 비어 있으면 빈 문자열이다.
func GetUserID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if len(value) > maxUserIDLength {
		return ""
	}
	return value
}

func extractAPIKey(c *gin.Context) string {
	if c == nil {
		return ""
	}

	if value := strings.TrimSpace(c.GetHeader("X-API-Key")); value != "" {
		return value
	}

	authValue := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authValue) > 7 && strings.EqualFold(authValue[:7], "bearer ") {
		return strings.TrimSpace(authValue[7:])
	}
	return ""
}

func shouldProtectPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
