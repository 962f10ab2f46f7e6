package deepseek

import (
	"strings"

	"safechat/api/internal/llm/openai"
)

const (
	BaseURL      = "https://api.deepseek.com"
	DefaultModel = "deepseek-chat"
)

// New returns a DeepSeek chat engine; the API is OpenAI-compatible.
func New(key, model string) *openai.Engine {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return openai.NewCompatible("deepseek", key, model, BaseURL)
}
