package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"calc-api/api/internal/interpret"
)

// Engine talks to a local Ollama server running a vision model.
type Engine struct {
	Model  string
	client *api.Client
}

// New accepts either the server root or a full endpoint URL such as
// http://localhost:11434/api/chat; only scheme and host are kept.
func New(serverURL, model string) (*Engine, error) {
	parsed, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", serverURL)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &Engine{
		Model:  strings.TrimSpace(model),
		client: api.NewClient(base, http.DefaultClient),
	}, nil
}

func (e *Engine) Name() string     { return "ollama" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, p interpret.Prompt) (string, error) {
	if len(p.Image) == 0 {
		return "", errors.New("ollama: empty image")
	}
	stream := false
	req := &api.ChatRequest{
		Model: e.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: p.Text,
				Images:  []api.ImageData{api.ImageData(p.Image)},
			},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}

	var out strings.Builder
	err := e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", errors.New("ollama: empty response")
	}
	return out.String(), nil
}
