package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string `yaml:"env"`
	ServerURL string `yaml:"server_url"`
	Port      string `yaml:"port"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GoogleAPIKey string `yaml:"google_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	OpenAIURL    string `yaml:"openai_base_url"`
	OllamaURL    string `yaml:"ollama_url"`
	OllamaModel  string `yaml:"ollama_model"`
	Engine       string `yaml:"llm_engine"`

	MaxImageSide   int    `yaml:"max_image_side"`
	RequestTimeout int    `yaml:"request_timeout"`
	MaxBodyMB      int    `yaml:"max_body_mb"`
	CORSOrigins    string `yaml:"cors_origins"`
	PromptFile     string `yaml:"prompt_file"`

	TelegramToken   string `yaml:"telegram_bot_token"`
	TelegramWebhook string `yaml:"telegram_webhook_url"`
}

func defaults() *Config {
	return &Config{
		Env:          "dev",
		ServerURL:    "localhost",
		Port:         "8900",
		GeminiModel:  "gemini-1.5-flash",
		OpenAIModel:  "gpt-4o-mini",
		OllamaModel:  "llava",
		Engine:       "gemini",
		MaxImageSide: 2048,
		MaxBodyMB:    20,
		CORSOrigins:  "*",
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Load reads .env (if present), then CONFIG_FILE (if set), then the process
// environment; later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.ServerURL = getEnv("SERVER_URL", cfg.ServerURL)
	cfg.Port = getEnv("PORT", cfg.Port)

	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GoogleAPIKey = getEnv("GOOGLE_API_KEY", cfg.GoogleAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIURL)
	cfg.OllamaURL = getEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaModel = getEnv("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.Engine = strings.ToLower(getEnv("LLM_ENGINE", cfg.Engine))

	cfg.MaxImageSide = getInt("MAX_IMAGE_SIDE", cfg.MaxImageSide)
	cfg.RequestTimeout = getInt("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxBodyMB = getInt("MAX_BODY_MB", cfg.MaxBodyMB)
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.PromptFile = getEnv("PROMPT_FILE", cfg.PromptFile)

	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	cfg.TelegramWebhook = getEnv("TELEGRAM_WEBHOOK_URL", cfg.TelegramWebhook)

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = cfg.GoogleAPIKey
	}
	return cfg, nil
}

// Validate checks that the default engine can actually be built.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("config: PORT is empty")
	}
	if c.MaxImageSide < 0 || c.RequestTimeout < 0 || c.MaxBodyMB < 0 {
		return errors.New("config: MAX_IMAGE_SIDE, REQUEST_TIMEOUT and MAX_BODY_MB must not be negative")
	}
	switch c.Engine {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("config: missing required env GEMINI_API_KEY")
		}
	case "gpt", "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("config: missing required env OPENAI_API_KEY")
		}
	case "ollama":
		if c.OllamaURL == "" {
			return errors.New("config: missing required env OLLAMA_URL")
		}
	default:
		return fmt.Errorf("config: unknown LLM_ENGINE %q (gemini|gpt|ollama)", c.Engine)
	}
	return nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.ServerURL, c.Port)
}

func (c *Config) IsDev() bool {
	e := strings.ToLower(c.Env)
	return e == "" || e == "dev" || e == "development" || e == "local"
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Config) MaxBodyBytes() int64 {
	return int64(c.MaxBodyMB) << 20
}

// Origins splits CORS_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
