package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"safechat/api/internal/llm/deepseek"
	"safechat/api/internal/llm/gemini"
	"safechat/api/internal/llm/openai"
	"safechat/api/internal/toxicity"
)

type Config struct {
	Port string

	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	DeepseekAPIKey string
	DeepseekModel  string
	DefaultEngine  string

	TelegramToken string
	WebhookURL    string

	DatabaseURL     string
	VerdictCacheTTL time.Duration

	FailurePolicy      toxicity.FailurePolicy
	ModelTimeout       time.Duration
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration

	LogLevel string
}

// Load reads the process environment. API keys are not required here: a
// missing key fails the first model call instead.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GEMINI_MODEL", gemini.DefaultModel)
	v.SetDefault("OPENAI_MODEL", openai.DefaultModel)
	v.SetDefault("DEEPSEEK_MODEL", deepseek.DefaultModel)
	v.SetDefault("DEFAULT_ENGINE", "gemini")
	v.SetDefault("VERDICT_CACHE_TTL", "24h")
	v.SetDefault("FAILURE_POLICY", string(toxicity.FailOpen))
	v.SetDefault("MODEL_TIMEOUT", "0s")
	v.SetDefault("BREAKER_MAX_FAILURES", 5)
	v.SetDefault("BREAKER_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")

	policy, err := toxicity.ParseFailurePolicy(v.GetString("FAILURE_POLICY"))
	if err != nil {
		return nil, err
	}
	maxFailures := v.GetInt("BREAKER_MAX_FAILURES")
	if maxFailures < 1 {
		return nil, fmt.Errorf("BREAKER_MAX_FAILURES must be positive, got %d", maxFailures)
	}

	geminiKey := v.GetString("GOOGLE_API_KEY")
	if geminiKey == "" {
		geminiKey = v.GetString("GEMINI_API_KEY")
	}

	return &Config{
		Port: v.GetString("PORT"),

		GeminiAPIKey:   geminiKey,
		GeminiModel:    v.GetString("GEMINI_MODEL"),
		OpenAIAPIKey:   v.GetString("OPENAI_API_KEY"),
		OpenAIModel:    v.GetString("OPENAI_MODEL"),
		DeepseekAPIKey: v.GetString("DEEPSEEK_API_KEY"),
		DeepseekModel:  v.GetString("DEEPSEEK_MODEL"),
		DefaultEngine:  strings.ToLower(v.GetString("DEFAULT_ENGINE")),

		TelegramToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		WebhookURL:    v.GetString("WEBHOOK_URL"),

		DatabaseURL:     v.GetString("DATABASE_URL"),
		VerdictCacheTTL: v.GetDuration("VERDICT_CACHE_TTL"),

		FailurePolicy:      policy,
		ModelTimeout:       v.GetDuration("MODEL_TIMEOUT"),
		BreakerMaxFailures: uint32(maxFailures),
		BreakerTimeout:     v.GetDuration("BREAKER_TIMEOUT"),

		LogLevel: v.GetString("LOG_LEVEL"),
	}, nil
}
