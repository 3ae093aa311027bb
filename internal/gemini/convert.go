package gemini

import (
	"strings"

	"google.golang.org/genai"

	"github.com/mchush24/rork-masalbak-studio-sub007/internal/llm"
)

const jsonMIMEType = "application/json"

var thinkingLevels = map[string]genai.ThinkingLevel{
	"minimal": genai.ThinkingLevelMinimal,
	"low":     genai.ThinkingLevelLow,
	"medium":  genai.ThinkingLevelMedium,
	"high":    genai.ThinkingLevelHigh,
}

// parseThinkingLevel 은 대소문자와 앞뒤 공백을 무시한다. "none" 등 모르는 값은 사고 설정을 끈다.
func parseThinkingLevel(level string) (genai.ThinkingLevel, bool) {
	parsed, ok := thinkingLevels[strings.ToLower(strings.TrimSpace(level))]
	return parsed, ok
}

// generateConfig 는 요청의 온도, 출력 토큰 한도, JSON 모드, 사고 수준을 genai 설정으로 옮긴다.
func generateConfig(req Request, model, thinking string) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{}
	if req.SystemPrompt != "" {
		out.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Temperature != nil {
		out.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxOutputTokens > 0 {
		out.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if req.JSONMode {
		out.ResponseMIMEType = jsonMIMEType
	}
	if level, ok := parseThinkingLevel(thinking); ok && isGemini3(model) {
		out.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true, ThinkingLevel: level}
	}
	return out
}

// toContents 는 조각들을 순서를 지켜 user Content 하나로 묶는다. 빈 텍스트와 빈 이미지는 뺀다.
func toContents(parts []llm.Part) []*genai.Content {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Kind == llm.PartImage && len(p.Data) > 0:
			out = append(out, genai.NewPartFromBytes(p.Data, p.MIMEType))
		case p.Kind != llm.PartImage && p.Text != "":
			out = append(out, genai.NewPartFromText(p.Text))
		}
	}
	return []*genai.Content{genai.NewContentFromParts(out, genai.RoleUser)}
}

// readResponse 는 첫 후보의 답변 조각을 이어 붙이고 사고 조각은 Reasoning 으로 따로 모은다.
func readResponse(response *genai.GenerateContentResponse) llm.ChatResult {
	result := llm.ChatResult{Usage: usageOf(response)}
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return result
	}

	var text strings.Builder
	var thoughts []string
	for _, part := range response.Candidates[0].Content.Parts {
		switch {
		case part == nil || part.Text == "":
		case part.Thought:
			thoughts = append(thoughts, part.Text)
		default:
			text.WriteString(part.Text)
		}
	}
	result.Text = text.String()
	result.Reasoning = strings.Join(thoughts, "\n")
	result.HasReasoning = len(thoughts) > 0
	return result
}

// usageOf: 출력 토큰에는 사고 토큰이 포함된다.
func usageOf(response *genai.GenerateContentResponse) llm.Usage {
	if response == nil || response.UsageMetadata == nil {
		return llm.Usage{}
	}
	meta := response.UsageMetadata
	return llm.Usage{
		InputTokens:     int(meta.PromptTokenCount),
		OutputTokens:    int(meta.CandidatesTokenCount + meta.ThoughtsTokenCount),
		TotalTokens:     int(meta.TotalTokenCount),
		ReasoningTokens: int(meta.ThoughtsTokenCount),
		CachedTokens:    int(meta.CachedContentTokenCount),
	}
}
