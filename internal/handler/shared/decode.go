package shared

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// DecoderConfig: mapstructure 디코더의 기본 설정입니다.
// json 태그를 따르고, 문자열 숫자 같은 느슨한 입력을 허용하되 정수 필드의 소수는 거부합니다.
func DecoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			wholeNumberHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	}
}

// Decode: map[string]any를 Go struct로 디코딩합니다.
// structpb 로 들어온 숫자(float64)도 정수 필드로 변환되며, 변환 실패 시 에러를 반환합니다.
func Decode(input map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(DecoderConfig(result))
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// wholeNumberHook 은 structpb 숫자(float64)가 정수 필드로 잘려 들어가지 않게 한다. 6.5 세는 오류다.
func wholeNumberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	value := reflect.ValueOf(data).Float()
	if value != math.Trunc(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("expected a whole number, got %v", value)
	}
	return data, nil
}
