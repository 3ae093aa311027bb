package drawing

import (
	"fmt"
	"strings"
)

// ValidationError 는 모델 호출 전에 거부된 요청 오류다.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid analysis request: " + e.Reason
	}
	return fmt.Sprintf("invalid analysis request: %s: %s", e.Field, e.Reason)
}

// ModelInvocationError 는 모델 전송/상류 실패다. Message 는 사용자에게 보여줄 현지화 문구다.
type ModelInvocationError struct {
	Language Language
	Message  string
	Err      error
}

func (e *ModelInvocationError) Error() string {
	if e.Err == nil {
		return "model invocation failed"
	}
	return "model invocation failed: " + e.Err.Error()
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// OutputSchemaViolation 은 파싱은 되었으나 출력 계약을 어긴 결과다.
type OutputSchemaViolation struct {
	Violations []string
}

func (e *OutputSchemaViolation) Error() string {
	return "output schema violation: " + strings.Join(e.Violations, "; ")
}
