package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/gemini"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/guard"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/quota"
)

// ErrorCode 는 API 오류 코드다.
type ErrorCode string

// API 오류 코드.
const (
	ErrorCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrorCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrorCodeHTTPRateLimit   ErrorCode = "HTTP_RATE_LIMIT"
	ErrorCodeQuotaExceeded   ErrorCode = "QUOTA_EXCEEDED"
	ErrorCodeGuardBlocked    ErrorCode = "GUARD_BLOCKED"
	ErrorCodeAnalysisFailed  ErrorCode = "ANALYSIS_FAILED"
	ErrorCodeLLM             ErrorCode = "LLM_ERROR"
	ErrorCodeLLMTimeout      ErrorCode = "LLM_TIMEOUT"
	ErrorCodeLLMModel        ErrorCode = "LLM_MODEL_ERROR"
	ErrorCodeUnavailable     ErrorCode = "UNAVAILABLE"
)

// ErrorResponse 는 API 오류 응답 본문이다.
type ErrorResponse struct {
	ErrorCode string         `json:"error_code"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	RequestID *string        `json:"request_id"`
	Details   map[string]any `json:"details"`
}

// Error 는 내부 표준 오류 타입이다.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details map[string]any
}

// Error 는 오류 메시지를 반환한다.
func (e *Error) Error() string {
	return e.Message
}

// Response 는 오류를 HTTP 응답으로 변환한다.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}

	var requestIDPtr *string
	if requestID != "" {
		requestIDPtr = &requestID
	}

	return apiErr.Status, ErrorResponse{
		ErrorCode: string(apiErr.Code),
		ErrorType: apiErr.Type,
		Message:   apiErr.Message,
		RequestID: requestIDPtr,
		Details:   apiErr.Details,
	}
}

// FromError 는 오류를 내부 오류 타입으로 변환한다.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var invalid *drawing.ValidationError
	if errors.As(err, &invalid) {
		return NewRequestValidation(invalid.Field, invalid.Reason)
	}

	var invocation *drawing.ModelInvocationError
	if errors.As(err, &invocation) {
		return NewAnalysisFailed(invocation.Message)
	}

	var blocked *guard.BlockedError
	if errors.As(err, &blocked) {
		return NewGuardBlocked(blocked.Score, blocked.Threshold)
	}

	if errors.Is(err, quota.ErrExceeded) {
		return NewQuotaExceeded(nil)
	}

	if errors.Is(err, gemini.ErrInvalidModel) {
		return NewLLMModelError("Invalid model")
	}

	if errors.Is(err, gemini.ErrMissingAPIKey) {
		return NewLLMError("Missing Gemini API key", http.StatusServiceUnavailable)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewPayloadTooLarge(tooLarge.Limit)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewLLMTimeoutError("Analysis timed out")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	return NewInternalError("Internal server error")
}

func newError(code ErrorCode, status int, errorType string, message string, details map[string]any) *Error {
	return &Error{Code: code, Status: status, Type: errorType, Message: message, Details: details}
}

// NewInternalError 는 내부 오류를 생성한다.
func NewInternalError(message string) *Error {
	return newError(ErrorCodeInternal, http.StatusInternalServerError, "InternalError", message, nil)
}

// NewValidationError 는 요청 본문 파싱/바인딩 오류(422)를 생성한다.
func NewValidationError(err error) *Error {
	return newError(ErrorCodeValidation, http.StatusUnprocessableEntity, "ValidationError", "Input validation failed", validationDetails(err))
}

// NewRequestValidation 은 분석 요청 필드 오류(400)를 생성한다.
func NewRequestValidation(field string, reason string) *Error {
	message := "Invalid analysis request"
	if field != "" {
		message = fmt.Sprintf("Invalid analysis request: %s", field)
	}
	details := map[string]any{
		"errors": []FieldError{{Field: field, Message: reason, Value: nil}},
	}
	return newError(ErrorCodeValidation, http.StatusBadRequest, "ValidationError", message, details)
}

// NewInvalidInput 는 입력 오류를 생성한다.
func NewInvalidInput(message string) *Error {
	return newError(ErrorCodeInvalidInput, http.StatusBadRequest, "InvalidInputError", message, nil)
}

// NewPayloadTooLarge 는 본문 크기 초과 오류를 생성한다.
func NewPayloadTooLarge(limit int64) *Error {
	details := map[string]any{"limit_bytes": limit}
	return newError(ErrorCodePayloadTooLarge, http.StatusRequestEntityTooLarge, "PayloadTooLargeError", "Request body too large", details)
}

func NewUnavailable(message string) *Error {
	return newError(ErrorCodeUnavailable, http.StatusServiceUnavailable, "UnavailableError", message, nil)
}

func NewUnauthorized(details map[string]any) *Error {
	return newError(ErrorCodeUnauthorized, http.StatusUnauthorized, "UnauthorizedError", "Invalid API key", details)
}

func NewRateLimitExceeded(details map[string]any) *Error {
	return newError(ErrorCodeHTTPRateLimit, http.StatusTooManyRequests, "HTTPRateLimitExceededError", "Rate limit exceeded", details)
}

// NewQuotaExceeded 는 일일 분석 한도 초과 오류를 생성한다.
func NewQuotaExceeded(details map[string]any) *Error {
	return newError(ErrorCodeQuotaExceeded, http.StatusTooManyRequests, "QuotaExceededError", "Daily analysis quota exceeded", details)
}

// NewGuardBlocked 는 가드 차단 오류를 생성한다.
func NewGuardBlocked(score float64, threshold float64) *Error {
	message := fmt.Sprintf("Input blocked by injection guard (score=%.2f, threshold=%.2f)", score, threshold)
	return newError(ErrorCodeGuardBlocked, http.StatusBadRequest, "GuardBlockedError", message, map[string]any{"score": score, "threshold": threshold})
}

// NewAnalysisFailed 는 모델 호출 실패 오류(502)를 생성한다. message 는 요청 언어의 안내 문구다.
func NewAnalysisFailed(message string) *Error {
	if message == "" {
		message = "Analysis failed"
	}
	return newError(ErrorCodeAnalysisFailed, http.StatusBadGateway, "ModelInvocationError", message, nil)
}

func NewLLMModelError(message string) *Error {
	return newError(ErrorCodeLLMModel, http.StatusBadRequest, "LLMModelError", message, nil)
}

func NewLLMTimeoutError(message string) *Error {
	return newError(ErrorCodeLLMTimeout, http.StatusGatewayTimeout, "LLMTimeoutError", message, nil)
}

func NewLLMError(message string, status int) *Error {
	return newError(ErrorCodeLLM, status, "LLMError", message, nil)
}

// FieldError 는 필드 오류 상세 정보다.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, validationErr := range validationErrors {
			fields = append(fields, FieldError{
				Field:   validationErr.Field(),
				Message: validationErr.Error(),
				Value:   validationErr.Value(),
			})
		}
		return map[string]any{"errors": fields}
	}

	return map[string]any{
		"errors": []FieldError{
			{
				Field:   "body",
				Message: err.Error(),
				Value:   nil,
			},
		},
	}
}
