package gpt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"calc-api/api/internal/interpret"
	"calc-api/api/internal/util"
)

// jsonObjectHint is appended because json_object mode rejects top-level arrays.
const jsonObjectHint = "\nWrap the list in a JSON object under the key \"results\", e.g. {\"results\": [...]}."

type Engine struct {
	APIKey string
	Model  string
	client *openai.Client
}

// New builds an engine for the OpenAI chat completions API. baseURL may be empty.
func New(key, model, baseURL string) *Engine {
	cfg := openai.DefaultConfig(strings.TrimSpace(key))
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.BaseURL = strings.TrimRight(u, "/")
	}
	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  strings.TrimSpace(model),
		client: openai.NewClientWithConfig(cfg),
	}
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, p interpret.Prompt) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	if len(p.Image) == 0 {
		return "", errors.New("openai: empty image")
	}
	mime := util.PickMIME(p.MIME, "", p.Image)
	if !isOpenAIImageMIME(mime) {
		mime = "image/png"
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: p.Text + jsonObjectHint,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    util.MakeDataURL(mime, p.Image),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai: empty content (finish_reason=%s)", resp.Choices[0].FinishReason)
	}
	return out, nil
}

func isOpenAIImageMIME(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	switch m {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}
