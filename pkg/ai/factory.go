package ai

import (
	"fmt"

	"hyperagent/pkg/logging"

	"github.com/tmc/langchaingo/llms/openai"
)

const (
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	perplexityBaseURL = "https://api.perplexity.ai"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "openai", "deepseek" or "auto"

	OpenAIAPIKey   string
	OpenAIModel    string
	DeepseekAPIKey string
	DeepseekModel  string

	// GetModel returns a runtime model override for a provider, "" for none
	GetModel func(ProviderType) string

	Logger logging.Logger
}

// NewService creates a Service based on the config.
// Auto mode uses OpenAI first and Deepseek as fallback when both keys exist.
func NewService(cfg Config) (Service, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIService(cfg)
	case ProviderDeepseek:
		return newDeepseekService(cfg)
	default:
		var primary, fallback Service
		if cfg.OpenAIAPIKey != "" {
			svc, err := newOpenAIService(cfg)
			if err != nil {
				return nil, err
			}
			primary = svc
		}
		if cfg.DeepseekAPIKey != "" {
			svc, err := newDeepseekService(cfg)
			if err != nil {
				return nil, err
			}
			fallback = svc
		}
		switch {
		case primary != nil && fallback != nil:
			return NewFallbackService(primary, fallback, cfg.Logger), nil
		case primary != nil:
			return primary, nil
		case fallback != nil:
			return fallback, nil
		}
		return nil, fmt.Errorf("no AI provider configured: set OPENAI_API_KEY or DEEPSEEK_API_KEY")
	}
}

func newOpenAIService(cfg Config) (Service, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
	}
	llm, err := openai.New(
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.OpenAIModel),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return NewLLMService(llm, ProviderOpenAI, modelGetter(cfg, ProviderOpenAI)), nil
}

func newDeepseekService(cfg Config) (Service, error) {
	if cfg.DeepseekAPIKey == "" {
		return nil, fmt.Errorf("DEEPSEEK_API_KEY is required for Deepseek provider")
	}
	// Deepseek speaks the OpenAI chat completions protocol
	llm, err := openai.New(
		openai.WithToken(cfg.DeepseekAPIKey),
		openai.WithModel(cfg.DeepseekModel),
		openai.WithBaseURL(deepseekBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Deepseek client: %w", err)
	}
	return NewLLMService(llm, ProviderDeepseek, modelGetter(cfg, ProviderDeepseek)), nil
}

func modelGetter(cfg Config, provider ProviderType) func() string {
	if cfg.GetModel == nil {
		return nil
	}
	return func() string { return cfg.GetModel(provider) }
}
