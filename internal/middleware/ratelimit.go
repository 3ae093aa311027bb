package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/cache"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/httperror"
)

// 요청 제한 응답 헤더
const (
	RetryAfterHeader     = "Retry-After"
	RateLimitHeader      = "X-RateLimit-Limit"
	RateRemainingHeader  = "X-RateLimit-Remaining"
	rateWindowSeconds    = 60
	identityHashHexChars = 16
)

// RateLimit 는 /api/ 경로에 호출자별 분당 고정 창 제한을 건다.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	return rateLimit(cfg, time.Now)
}

type windowKey struct {
	identity string
	minute   int64
}

func rateLimit(cfg *config.Config, now func() time.Time) gin.HandlerFunc {
	if cfg == nil || cfg.HTTPRateLimit.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	rl := cfg.HTTPRateLimit
	limit := rl.RequestsPerMinute
	hits := cache.NewTTLCache[windowKey, int](rl.CacheSize, time.Duration(rl.CacheTTLSeconds)*time.Second)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || !shouldProtectPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		unix := now().Unix()
		key := windowKey{identity: CallerIdentity(c), minute: unix / rateWindowSeconds}
		count := hits.Modify(key, func(n int, _ bool) int { return n + 1 })

		c.Header(RateLimitHeader, strconv.Itoa(limit))
		c.Header(RateRemainingHeader, strconv.Itoa(max(0, limit-count)))
		if count <= limit {
			c.Next()
			return
		}

		retryAfter := rateWindowSeconds - unix%rateWindowSeconds
		c.Header(RetryAfterHeader, strconv.FormatInt(retryAfter, 10))
		status, body := httperror.Response(httperror.NewRateLimitExceeded(map[string]any{
			"path":             c.Request.URL.Path,
			"identity":         key.identity,
			"limit_per_minute": limit,
			"retry_after_sec":  retryAfter,
		}), GetRequestID(c))
		c.AbortWithStatusJSON(status, body)
	}
}

// CallerIdentity 는 제한과 한도 집계에 쓰는 호출자 키다.
// 우선순위: X-User-ID, API 키 해시, X-Forwarded-For 첫 주소, 접속 주소.
func CallerIdentity(c *gin.Context) string {
	if userID := GetUserID(c); userID != "" {
		return "user:" + userID
	}
	if key := extractAPIKey(c); key != "" {
		sum := sha256.Sum256([]byte(key))
		return "key:" + hex.EncodeToString(sum[:])[:identityHashHexChars]
	}
	if first, _, _ := strings.Cut(c.GetHeader("X-Forwarded-For"), ","); net.ParseIP(strings.TrimSpace(first)) != nil {
		return "ip:" + strings.TrimSpace(first)
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}
