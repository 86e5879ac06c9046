package engines

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"calc-api/api/internal/config"
	"calc-api/api/internal/interpret"
)

func baseConfig() *config.Config {
	return &config.Config{
		Engine:       "gemini",
		GeminiModel:  "gemini-1.5-flash",
		OpenAIModel:  "gpt-4o-mini",
		OllamaModel:  "llava",
		MaxImageSide: 1024,
	}
}

func TestBuildRegistersConfiguredEngines(t *testing.T) {
	cfg := baseConfig()
	cfg.GeminiAPIKey = "g"
	cfg.OpenAIAPIKey = "o"
	cfg.OllamaURL = "http://localhost:11434"

	reg, err := Build(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if names := reg.Names(); len(names) != 3 {
		t.Errorf("Expected 3 engines, got %v", names)
	}
	in, err := reg.Select("")
	if err != nil || in.Name() != "gemini" {
		t.Errorf("Expected gemini default, got %v, %v", in, err)
	}
	if in, err := reg.Select("openai"); err != nil || in.Name() != "gpt" {
		t.Errorf("Expected openai alias to resolve to gpt, got %v, %v", in, err)
	}
}

func TestBuildDefaultMustBeConfigured(t *testing.T) {
	cfg := baseConfig()
	cfg.OpenAIAPIKey = "o"

	_, err := Build(cfg, nil)
	if !errors.Is(err, interpret.ErrUnknownEngine) {
		t.Errorf("Expected ErrUnknownEngine, got %v", err)
	}

	cfg.Engine = "openai"
	if _, err := Build(cfg, nil); err != nil {
		t.Errorf("Build failed: %v", err)
	}
}

func TestBuildNoEngines(t *testing.T) {
	if _, err := Build(baseConfig(), nil); err == nil {
		t.Error("Expected error with no credentials")
	}
}

func TestBuildPromptFile(t *testing.T) {
	cfg := baseConfig()
	cfg.GeminiAPIKey = "g"
	cfg.PromptFile = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := Build(cfg, nil); err == nil {
		t.Error("Expected error for missing prompt file")
	}

	if err := os.WriteFile(cfg.PromptFile, []byte("solve {{.Vars}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Build(cfg, nil); err != nil {
		t.Errorf("Build failed: %v", err)
	}
}
