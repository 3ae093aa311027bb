package analysis

import (
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/config"
	"github.com/mchush24/rork-masalbak-studio-sub007/internal/domain/drawing"
)

// Profiles 는 검사 분류별 모델 호출 프로필이다.
type Profiles map[drawing.Category]drawing.PipelineProfile

// NewProfiles 는 설정에서 분류별 프로필을 만든다.
func NewProfiles(cfg *config.Config) Profiles {
	return Profiles{
		drawing.CategoryFreeDrawing: {
			Category:        drawing.CategoryFreeDrawing,
			SchemaVersion:   cfg.Pipeline.SchemaVersion,
			Model:           cfg.Gemini.ModelForTask(config.TaskFreeDrawing),
			Temperature:     cfg.Pipeline.FreeDrawingTemperature,
			MaxOutputTokens: cfg.Pipeline.FreeDrawingMaxTokens,
			ThinkingLevel:   cfg.Gemini.Thinking.Level(config.TaskFreeDrawing),
			JSONMode:        cfg.Gemini.JSONMode,
		},
		drawing.CategoryInstrument: {
			Category:        drawing.CategoryInstrument,
			SchemaVersion:   cfg.Pipeline.SchemaVersion,
			Model:           cfg.Gemini.ModelForTask(config.TaskInstrument),
			Temperature:     cfg.Pipeline.InstrumentTemperature,
			MaxOutputTokens: cfg.Pipeline.InstrumentMaxTokens,
			ThinkingLevel:   cfg.Gemini.Thinking.Level(config.TaskInstrument),
			JSONMode:        cfg.Gemini.JSONMode,
		},
	}
}

// For 는 분류에 맞는 프로필을 반환한다. 없으면 검사 프로필을 쓴다.
func (p Profiles) For(category drawing.Category) drawing.PipelineProfile {
	if profile, ok := p[category]; ok {
		return profile
	}
	return p[drawing.CategoryInstrument]
}

func taskKey(category drawing.Category) string {
	if category == drawing.CategoryFreeDrawing {
		return config.TaskFreeDrawing
	}
	return config.TaskInstrument
}
