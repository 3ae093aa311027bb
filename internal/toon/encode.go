// Package toon 은 JSON 값을 프롬프트용 TOON 표기로 직렬화한다.
// 객체는 들여쓴 "키: 값" 줄, 원시값 배열은 "키[n]: a,b", 같은 키를 가진 객체 배열은 표 형식이 된다.
package toon

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const indentUnit = "  "

// Encode: 값을 Toon 포맷 문자열로 변환합니다. 맵 키는 정렬됩니다.
func Encode(value any) string {
	w := &writer{}
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			return "{}"
		}
		w.object(0, v)
	case []any:
		w.array(0, "", v)
	default:
		return formatPrimitive(value)
	}
	return w.String()
}

// EncodeField: 키 하나와 값을 Toon 항목으로 만듭니다.
func EncodeField(key string, value any) string {
	w := &writer{}
	w.field(0, encodeKey(key), value)
	return w.String()
}

type writer struct {
	lines []string
}

func (w *writer) String() string {
	return strings.Join(w.lines, "\n")
}

func (w *writer) add(indent int, line string) {
	w.lines = append(w.lines, strings.Repeat(indentUnit, indent)+line)
}

func (w *writer) object(indent int, mapping map[string]any) {
	for _, key := range sortedKeys(mapping) {
		w.field(indent, encodeKey(key), mapping[key])
	}
}

func (w *writer) field(indent int, key string, value any) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			w.add(indent, key+": {}")
			return
		}
		w.add(indent, key+":")
		w.object(indent+1, v)
	case []any:
		w.array(indent, key, v)
	default:
		w.add(indent, key+": "+formatPrimitive(value))
	}
}

func (w *writer) array(indent int, key string, items []any) {
	header := fmt.Sprintf("%s[%d]", key, len(items))
	if len(items) == 0 {
		w.add(indent, header+":")
		return
	}

	if values, ok := primitiveRow(items); ok {
		w.add(indent, header+": "+strings.Join(values, ","))
		return
	}

	if columns, ok := tableColumns(items); ok {
		w.add(indent, header+"{"+strings.Join(columns, ",")+"}:")
		for _, item := range items {
			row := item.(map[string]any)
			values := make([]string, 0, len(columns))
			for _, column := range columns {
				values = append(values, formatPrimitive(row[column]))
			}
			w.add(indent+1, strings.Join(values, ","))
		}
		return
	}

	w.add(indent, header+":")
	for _, item := range items {
		w.listItem(indent+1, item)
	}
}

// listItem 은 "- " 뒤에 첫 줄을 붙이고 나머지 줄을 한 단계 더 들여쓴다.
func (w *writer) listItem(indent int, item any) {
	nested := &writer{}
	switch v := item.(type) {
	case map[string]any:
		if len(v) == 0 {
			w.add(indent, "- {}")
			return
		}
		nested.object(0, v)
	case []any:
		nested.array(0, "", v)
	default:
		w.add(indent, "- "+formatPrimitive(item))
		return
	}
	for i, line := range nested.lines {
		if i == 0 {
			w.add(indent, "- "+line)
			continue
		}
		w.add(indent+1, line)
	}
}

func primitiveRow(items []any) ([]string, bool) {
	values := make([]string, 0, len(items))
	for _, item := range items {
		if !isPrimitive(item) {
			return nil, false
		}
		values = append(values, formatPrimitive(item))
	}
	return values, true
}

// tableColumns 는 모든 항목이 같은 키 집합과 원시값만 가진 객체일 때 정렬된 키를 반환한다.
func tableColumns(items []any) ([]string, bool) {
	first, ok := items[0].(map[string]any)
	if !ok || len(first) == 0 {
		return nil, false
	}
	columns := sortedKeys(first)
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok || len(row) != len(columns) {
			return nil, false
		}
		for _, column := range columns {
			value, exists := row[column]
			if !exists || !isPrimitive(value) {
				return nil, false
			}
		}
	}
	for i, column := range columns {
		columns[i] = encodeKey(column)
	}
	return columns, true
}

func isPrimitive(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

func formatPrimitive(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return encodeString(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return encodeString(fmt.Sprint(v))
	}
}

// encodeString 은 구분자나 리터럴로 오해될 수 있는 문자열만 따옴표로 감싼다.
func encodeString(value string) string {
	if needsQuote(value) {
		return strconv.Quote(value)
	}
	return value
}

func encodeKey(key string) string {
	if key == "" || strings.ContainsAny(key, ",:[]{}\"' \t\n") {
		return strconv.Quote(key)
	}
	return key
}

func needsQuote(value string) bool {
	if value == "" || strings.TrimSpace(value) != value {
		return true
	}
	if strings.ContainsAny(value, ",:\n\r\t\"'\\[]{}") || strings.HasPrefix(value, "- ") {
		return true
	}
	switch value {
	case "true", "false", "null":
		return true
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

func sortedKeys(mapping map[string]any) []string {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
