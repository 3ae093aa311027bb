package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 추적용 응답 헤더 키.
const (
	RequestIDHeader  = "X-Request-ID"
	AnalysisIDHeader = "X-Analysis-ID"
)

const (
	requestIDKey       = "request_id"
	analysisIDKey      = "analysis_id"
	maxRequestIDLength = 128
)

// RequestID 는 요청 ID를 부여하는 미들웨어다.
// 호출자가 보낸 X-Request-ID 는 길이 제한 안에서 그대로 쓰고, 응답 헤더는 핸들러 실행 전에 설정한다.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID: 컨텍스트의 요청 ID를 반환합니다.
func GetRequestID(c *gin.Context) string {
	return contextString(c, requestIDKey)
}

// SetAnalysisID 는 분석 ID 를 응답 헤더와 요청 로그에 남긴다.
func SetAnalysisID(c *gin.Context, analysisID string) {
	if c == nil || analysisID == "" {
		return
	}
	c.Set(analysisIDKey, analysisID)
	c.Header(AnalysisIDHeader, analysisID)
}

// GetAnalysisID: 이번 요청에서 만들어진 분석 ID 를 반환합니다.
func GetAnalysisID(c *gin.Context) string {
	return contextString(c, analysisIDKey)
}

func contextString(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get(key)
	if !ok {
		return ""
	}
	text, _ := value.(string)
	return text
}
