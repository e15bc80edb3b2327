package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hyperagent/pkg/metrics"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// PerplexityResearcher implements Researcher with Perplexity's online models
type PerplexityResearcher struct {
	llm llms.Model
}

func NewPerplexityResearcher(apiKey, model string) (*PerplexityResearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("PERPLEXITY_API_KEY is required for sender research")
	}
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithBaseURL(perplexityBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Perplexity client: %w", err)
	}
	return &PerplexityResearcher{llm: llm}, nil
}

// NewResearcherWithModel wraps an existing model, used by tests.
func NewResearcherWithModel(llm llms.Model) *PerplexityResearcher {
	return &PerplexityResearcher{llm: llm}
}

func (r *PerplexityResearcher) ResearchSender(ctx context.Context, handle, message string) (string, error) {
	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, r.llm, fmt.Sprintf(researchPrompt, orNone(handle), message), llms.WithTemperature(0.2))
	metrics.ObserveLLMCall(string(ProviderPerplexity), "research", start, err)
	if err != nil {
		return "", fmt.Errorf("perplexity research: %w", err)
	}
	return strings.TrimSpace(out), nil
}
