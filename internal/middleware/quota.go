package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/httperror"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/metrics"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
)

const refundTimeout = 2 * time.Second

// 할당량 응답 헤더 키.
const (
	QuotaLimitHeader     = "X-Quota-Limit"
	QuotaRemainingHeader = "X-Quota-Remaining"
)

// QuotaReserver 는 분석 1회분 할당량을 선차감하고 실패 시 되돌린다.
type QuotaReserver interface {
	Enabled() bool
	Reserve(ctx context.Context, identity string) (quota.Status, error)
	Refund(ctx context.Context, identity string) error
}

// Quota 는 호출자별 일일 분석 한도 미들웨어다.
// 응답 상태가 4xx/5xx 이면 선차감한 1회를 돌려준다. 저장소 오류는 통과시킨다.
func Quota(limiter QuotaReserver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !limiter.Enabled() || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		identity := CallerIdentity(c)
		status, err := limiter.Reserve(c.Request.Context(), identity)
		switch {
		case errors.Is(err, quota.ErrExceeded):
			metrics.RecordQuotaRejection()
			setQuotaHeaders(c, status)
			details := map[string]any{
				"limit":    status.Limit,
				"reset_at": status.ResetAt.UTC().Format(time.RFC3339),
			}
			code, payload := httperror.Response(httperror.NewQuotaExceeded(details), GetRequestID(c))
			c.AbortWithStatusJSON(code, payload)
			return
		case err != nil:
			if logger != nil {
				logger.Warn("quota_reserve_failed", "identity", identity, "err", err)
			}
			c.Next()
			return
		}

		setQuotaHeaders(c, status)
		c.Next()

		if c.Writer.Status() < http.StatusBadRequest {
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), refundTimeout)
		defer cancel()
		if err := limiter.Refund(ctx, identity); err != nil && logger != nil {
			logger.Warn("quota_refund_failed", "identity", identity, "err", err)
		}
	}
}

func setQuotaHeaders(c *gin.Context, status quota.Status) {
	c.Header(QuotaLimitHeader, strconv.Itoa(status.Limit))
	c.Header(QuotaRemainingHeader, strconv.FormatInt(status.Remaining, 10))
}
