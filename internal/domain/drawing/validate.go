package drawing

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("tasktype", func(fl validator.FieldLevel) bool {
		_, ok := LookupTask(TaskType(fl.Field().String()))
		return ok
	})
	_ = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return IsSupportedLanguage(Language(fl.Field().String()))
	})
	_ = v.RegisterValidation("risktype", func(fl validator.FieldLevel) bool {
		_, ok := ActionForRisk(RiskType(fl.Field().String()))
		return ok
	})
	_ = v.RegisterValidation("traumacategory", func(fl validator.FieldLevel) bool {
		return slices.Contains(TraumaCategories, fl.Field().String())
	})
	return v
}

// ValidateRequest 는 원본 요청을 검증하고 기본값을 적용한 Request 를 반환한다.
// 실패하면 문제 필드를 담은 *ValidationError 를 반환한다.
func ValidateRequest(in AnalysisRequest) (*Request, error) {
	if err := validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	task, _ := LookupTask(TaskType(in.TaskType))
	req := &Request{
		TaskType:        task.Code,
		Category:        task.Category,
		Age:             in.ChildAge,
		Gender:          in.ChildGender,
		Language:        DefaultLanguage,
		Role:            DefaultRole,
		CulturalContext: strings.TrimSpace(in.CulturalContext),
	}
	if in.Language != "" {
		req.Language = Language(in.Language)
	}
	if in.UserRole != "" {
		req.Role = Role(in.UserRole)
	}

	seen := make(map[string]struct{}, len(in.Images))
	for i, item := range in.Images {
		field := fmt.Sprintf("images[%d]", i)
		img, err := DecodeImage(field+".content", item.Content)
		if err != nil {
			return nil, err
		}
		img.ID = strings.TrimSpace(item.ID)
		if img.ID == "" {
			img.ID = fmt.Sprintf("image_%d", i+1)
		}
		if _, dup := seen[img.ID]; dup {
			return nil, &ValidationError{Field: field + ".id", Reason: "duplicate image id " + img.ID}
		}
		seen[img.ID] = struct{}{}
		img.Label = strings.TrimSpace(item.Label)
		req.Images = append(req.Images, img)
	}

	if len(req.Images) == 0 && strings.TrimSpace(in.ImageBase64) != "" {
		img, err := DecodeImage("imageBase64", in.ImageBase64)
		if err != nil {
			return nil, err
		}
		img.ID = "image_1"
		req.Legacy = &img
	}

	features, err := normalizeFeatures(in.FeaturesJSON)
	if err != nil {
		return nil, err
	}
	req.Features = features
	return req, nil
}

func normalizeFeatures(raw map[string]any) ([]Feature, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	features := make([]Feature, 0, len(keys))
	for _, key := range keys {
		if strings.TrimSpace(key) == "" {
			return nil, &ValidationError{Field: "featuresJson", Reason: "empty feature key"}
		}
		value := raw[key]
		if err := checkFeatureValue(value, 1); err != nil {
			return nil, &ValidationError{Field: "featuresJson." + key, Reason: err.Error()}
		}
		features = append(features, Feature{Key: key, Value: value})
	}
	return features, nil
}

// checkFeatureValue 는 JSON 으로 표현 가능한 값만 허용하고 중첩 깊이를 제한한다.
func checkFeatureValue(value any, depth int) error {
	switch v := value.(type) {
	case nil, string, bool, float64, float32, int, int64, int32:
		return nil
	case map[string]any:
		if depth >= MaxFeatureDepth {
			return fmt.Errorf("nesting deeper than %d levels", MaxFeatureDepth)
		}
		for _, item := range v {
			if err := checkFeatureValue(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if depth >= MaxFeatureDepth {
			return fmt.Errorf("nesting deeper than %d levels", MaxFeatureDepth)
		}
		for _, item := range v {
			if err := checkFeatureValue(item, depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.New("value must be a number, boolean, string, object or array")
	}
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fieldPath(fe.Namespace()), Reason: describeTag(fe)}
}

// fieldPath 는 "AnalysisRequest.images[0].content" 에서 루트 타입명을 제거한다.
func fieldPath(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}
	return rest
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return "must contain at most " + fe.Param() + " items"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "tasktype":
		return "unsupported task type"
	case "language":
		return "unsupported language"
	case "risktype":
		return "unknown risk flag type"
	case "traumacategory":
		return "unknown content type"
	default:
		return "failed " + fe.Tag()
	}
}
