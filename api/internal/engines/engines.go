package engines

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"calc-api/api/internal/config"
	"calc-api/api/internal/interpret"
	"calc-api/api/internal/interpret/gemini"
	"calc-api/api/internal/interpret/gpt"
	"calc-api/api/internal/interpret/ollama"
)

// Build registers every engine that has credentials in cfg. The default is
// cfg.Engine, which must be among them.
func Build(cfg *config.Config, log *zap.Logger) (*interpret.Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}

	prompts, err := loadPrompts(cfg.PromptFile)
	if err != nil {
		return nil, err
	}

	def := cfg.Engine
	if def == "openai" {
		def = "gpt"
	}
	reg := interpret.NewRegistry(def)

	if cfg.GeminiAPIKey != "" {
		m := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		reg.Register(interpret.NewAnalyzer(m, prompts, cfg.MaxImageSide, log.Named("gemini")), "gemini")
		log.Info("engine ready", zap.String("engine", "gemini"), zap.String("model", m.GetModel()))
	}
	if cfg.OpenAIAPIKey != "" {
		m := gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIURL)
		reg.Register(interpret.NewAnalyzer(m, prompts, cfg.MaxImageSide, log.Named("gpt")), "gpt", "openai")
		log.Info("engine ready", zap.String("engine", "gpt"), zap.String("model", m.GetModel()))
	}
	if cfg.OllamaURL != "" {
		m, err := ollama.New(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		reg.Register(interpret.NewAnalyzer(m, prompts, cfg.MaxImageSide, log.Named("ollama")), "ollama")
		log.Info("engine ready", zap.String("engine", "ollama"), zap.String("model", m.GetModel()))
	}

	if len(reg.Names()) == 0 {
		return nil, errors.New("no engine configured: set GEMINI_API_KEY, OPENAI_API_KEY or OLLAMA_URL")
	}
	if _, err := reg.Select(""); err != nil {
		return nil, fmt.Errorf("default engine: %w", err)
	}
	return reg, nil
}

func loadPrompts(path string) (*interpret.PromptBuilder, error) {
	if path == "" {
		return interpret.NewPromptBuilder("")
	}
	return interpret.LoadPromptBuilder(path)
}
