package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"safechat/api/internal/llm"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1/"
	DefaultModel   = "gpt-4o-mini"
)

// Engine talks to an OpenAI-compatible chat completions endpoint.
type Engine struct {
	APIKey  string
	Model   string
	BaseURL string

	name   string
	client openai.Client
}

func New(key, model string) *Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return NewCompatible("gpt", key, model, DefaultBaseURL)
}

// NewCompatible builds an engine for any provider speaking the OpenAI chat
// completions protocol under baseURL.
func NewCompatible(name, key, model, baseURL string) *Engine {
	key = strings.TrimSpace(key)
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/"
	// Retries are off: a failed call degrades the verdict instead.
	client := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &Engine{
		APIKey:  key,
		Model:   strings.TrimSpace(model),
		BaseURL: baseURL,
		name:    name,
		client:  client,
	}
}

func (e *Engine) Name() string     { return e.name }
func (e *Engine) GetModel() string { return e.Model }

// WithModel returns a copy bound to model. The receiver is unchanged.
func (e *Engine) WithModel(model string) llm.Engine {
	cp := *e
	if m := strings.TrimSpace(model); m != "" {
		cp.Model = m
	}
	return &cp
}

func (e *Engine) Generate(ctx context.Context, prompt string) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%s: API key is empty", e.name)
	}
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", e.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", e.name)
	}
	return resp.Choices[0].Message.Content, nil
}
