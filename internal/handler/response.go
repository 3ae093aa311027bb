package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/httperror"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/middleware"
)

// writeError 는 err 를 표준 에러 본문으로 쓰고 요청을 중단한다. 응답은 request_id 를 포함한다.
func writeError(c *gin.Context, err error) {
	status, body := httperror.Response(err, middleware.GetRequestID(c))
	c.AbortWithStatusJSON(status, body)
}

// bindJSON 은 본문을 out 으로 읽는다. 실패하면 응답을 쓰고 false 를 돌려준다.
// 본문 한도를 넘으면 413, 형식이나 binding 태그 위반은 422 다.
func bindJSON(c *gin.Context, out any) bool {
	err := c.ShouldBindJSON(out)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(c, httperror.NewPayloadTooLarge(tooLarge.Limit))
	} else {
		writeError(c, httperror.NewValidationError(err))
	}
	return false
}
