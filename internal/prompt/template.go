package prompt

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errUnclosedBrace   = errors.New("invalid template: missing '}'")
	errUnexpectedBrace = errors.New("invalid template: unexpected '}'")
)

// scanTemplate 은 템플릿을 리터럴과 {key} 자리표시자로 나눠 콜백을 부른다.
// {{ 와 }} 는 중괄호 리터럴이다.
func scanTemplate(template string, literal func(string), placeholder func(string) error) error {
	for i := 0; i < len(template); {
		next := strings.IndexAny(template[i:], "{}")
		if next < 0 {
			literal(template[i:])
			return nil
		}
		if next > 0 {
			literal(template[i : i+next])
			i += next
		}

		brace := template[i]
		if i+1 < len(template) && template[i+1] == brace {
			literal(string(brace))
			i += 2
			continue
		}
		if brace == '}' {
			return errUnexpectedBrace
		}
		end := strings.IndexByte(template[i+1:], '}')
		if end < 0 {
			return errUnclosedBrace
		}
		if err := placeholder(template[i+1 : i+1+end]); err != nil {
			return err
		}
		i += end + 2
	}
	return nil
}

// FormatTemplate 은 {key} 를 values 로 치환한다. 값이 없는 키는 에러다.
func FormatTemplate(template string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))
	err := scanTemplate(template,
		func(text string) { b.WriteString(text) },
		func(key string) error {
			value, ok := values[key]
			if !ok {
				return fmt.Errorf("missing template value for %q", key)
			}
			b.WriteString(value)
			return nil
		},
	)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Placeholders 는 템플릿의 치환 키를 등장 순서대로 반환한다.
func Placeholders(template string) ([]string, error) {
	var keys []string
	err := scanTemplate(template, func(string) {}, func(key string) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ValidateSystemStatic 은 시스템 프롬프트에 치환 변수가 없는지 확인한다.
func ValidateSystemStatic(name string, system string) error {
	keys, err := Placeholders(system)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(keys) > 0 {
		return fmt.Errorf("%s: system prompt must not contain template variables %q", name, keys[0])
	}
	return nil
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

// EscapeXML 은 호출자 텍스트를 XML 본문으로 넣을 수 있게 이스케이프한다.
func EscapeXML(value string) string {
	return xmlEscaper.Replace(value)
}

func WrapXML(tag string, value string) string {
	return "<" + tag + ">" + EscapeXML(value) + "</" + tag + ">"
}
