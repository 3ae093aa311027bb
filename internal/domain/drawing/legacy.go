package drawing

import (
	"strings"
	"unicode/utf8"
)

const legacyTitleRunes = 80

// UpgradeLegacy 는 단순 평면 형태와 중간 형태의 응답을 표준 형태로 끌어올린다.
// 표준 형태면 data 를 건드리지 않고 false 를 반환한다.
func UpgradeLegacy(data map[string]any) bool {
	if data == nil || !isLegacyShape(data) {
		return false
	}

	meta, ok := data["meta"].(map[string]any)
	if !ok {
		meta = map[string]any{}
		data["meta"] = meta
	}
	for _, key := range []string{"confidence", "uncertaintyLevel", "dataQualityNotes"} {
		if v, exists := data[key]; exists {
			if _, set := meta[key]; !set {
				meta[key] = v
			}
			delete(data, key)
		}
	}
	if _, ok := meta["uncertaintyLevel"]; !ok {
		confidence, _ := toFloat(meta["confidence"])
		meta["uncertaintyLevel"] = uncertaintyFor(clamp01(confidence))
	}

	insights := upgradeInsights(data["insights"])
	if summary, ok := data["summary"].(string); ok {
		if len(insights) == 0 && strings.TrimSpace(summary) != "" {
			insights = append(insights, insightFromText(summary))
		}
		delete(data, "summary")
	}
	data["insights"] = insights

	if _, ok := data["homeTips"]; !ok {
		for _, key := range []string{"tips", "recommendations"} {
			if raw, exists := data[key]; exists {
				data["homeTips"] = upgradeTips(raw)
				delete(data, key)
				break
			}
		}
	}

	if flags, ok := data["riskFlags"].([]any); ok {
		for i, item := range flags {
			if text, isText := item.(string); isText {
				flags[i] = map[string]any{"type": string(RiskOther), "summary": text}
			}
		}
	}
	return true
}

// 최상위 응답에만 나오는 키. 이 중 하나도 없는 객체는 응답 조각이다.
var responseKeys = []string{"meta", "insights", "homeTips", "tips", "recommendations", "riskFlags"}

// isLegacyShape 는 응답 최상위 키를 가진 객체 중 meta 가 없거나,
// 문자열 insight 또는 구버전 tips/summary 키가 있으면 true 다.
func isLegacyShape(data map[string]any) bool {
	if !hasAnyKey(data, responseKeys) {
		return false
	}
	if _, ok := data["meta"].(map[string]any); !ok {
		return true
	}
	if _, ok := data["tips"]; ok {
		return true
	}
	if _, ok := data["summary"]; ok {
		return true
	}
	if items, ok := data["insights"].([]any); ok {
		for _, item := range items {
			if _, isText := item.(string); isText {
				return true
			}
		}
	}
	return false
}

func hasAnyKey(data map[string]any, keys []string) bool {
	for _, key := range keys {
		if _, ok := data[key]; ok {
			return true
		}
	}
	return false
}

func upgradeInsights(raw any) []any {
	items, _ := raw.([]any)
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				out = append(out, insightFromText(v))
			}
		case map[string]any:
			if _, ok := v["strength"]; !ok {
				v["strength"] = "moderate"
			}
			if _, ok := v["evidence"]; !ok {
				v["evidence"] = []any{}
			}
			if _, ok := v["title"]; !ok {
				if summary, isText := v["summary"].(string); isText {
					v["title"] = titleFrom(summary)
				}
			}
			out = append(out, v)
		}
	}
	return out
}

func insightFromText(text string) map[string]any {
	text = strings.TrimSpace(text)
	return map[string]any{
		"title":    titleFrom(text),
		"summary":  text,
		"evidence": []any{},
		"strength": "moderate",
	}
}

func upgradeTips(raw any) []any {
	items, _ := raw.([]any)
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			text := strings.TrimSpace(v)
			if text == "" {
				continue
			}
			out = append(out, map[string]any{"title": titleFrom(text), "steps": []any{text}, "why": ""})
		case map[string]any:
			if _, ok := v["steps"]; !ok {
				for _, key := range []string{"description", "text", "step"} {
					if s, isText := v[key].(string); isText {
						v["steps"] = []any{s}
						break
					}
				}
			}
			if _, ok := v["title"]; !ok {
				if steps, isList := v["steps"].([]any); isList && len(steps) > 0 {
					if s, isText := steps[0].(string); isText {
						v["title"] = titleFrom(s)
					}
				}
			}
			out = append(out, v)
		}
	}
	return out
}

// titleFrom 은 첫 문장을 제목으로 쓰되 길이를 제한한다.
func titleFrom(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?\n"); idx > 0 {
		text = text[:idx]
	}
	if utf8.RuneCountInString(text) <= legacyTitleRunes {
		return text
	}
	return string([]rune(text)[:legacyTitleRunes])
}

func uncertaintyFor(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return "low"
	case confidence >= 0.4:
		return "mid"
	default:
		return "high"
	}
}
