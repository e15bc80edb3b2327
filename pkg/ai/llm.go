package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hyperagent/pkg/metrics"

	"github.com/tmc/langchaingo/llms"
)

// LLMService implements Service on top of any langchaingo chat model
type LLMService struct {
	llm      llms.Model
	provider ProviderType
	getModel func() string // runtime model override, may return ""
}

// NewLLMService wraps a langchaingo model. getModel is consulted on every
// call so the model can be switched without a restart.
func NewLLMService(llm llms.Model, provider ProviderType, getModel func() string) *LLMService {
	return &LLMService{
		llm:      llm,
		provider: provider,
		getModel: getModel,
	}
}

func (s *LLMService) Provider() ProviderType {
	return s.provider
}

func (s *LLMService) complete(ctx context.Context, operation, prompt string, temperature float64) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if s.getModel != nil {
		if model := s.getModel(); model != "" {
			opts = append(opts, llms.WithModel(model))
		}
	}

	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, s.llm, prompt, opts...)
	metrics.ObserveLLMCall(string(s.provider), operation, start, err)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", s.provider, operation, err)
	}
	return out, nil
}

func (s *LLMService) Classify(ctx context.Context, in ClassificationInput) (*Classification, error) {
	out, err := s.complete(ctx, "classify", buildClassifyPrompt(in), 0)
	if err != nil {
		return nil, err
	}

	var result Classification
	if err := decodeObject(out, &result); err != nil {
		return nil, err
	}
	if result.GoalID != nil && (strings.TrimSpace(*result.GoalID) == "" || *result.GoalID == "null") {
		result.GoalID = nil
	}
	return &result, nil
}

func (s *LLMService) IdentifyOpportunities(ctx context.Context, transcript string, candidates []Candidate) ([]IdentifiedOpportunity, error) {
	if len(candidates) == 0 {
		return []IdentifiedOpportunity{}, nil
	}

	out, err := s.complete(ctx, "identify", buildIdentifyPrompt(transcript, candidates), 0)
	if err != nil {
		return nil, err
	}

	var result struct {
		Opportunities []IdentifiedOpportunity `json:"opportunities"`
	}
	if err := decodeObject(out, &result); err != nil {
		return nil, err
	}
	if result.Opportunities == nil {
		return []IdentifiedOpportunity{}, nil
	}
	return result.Opportunities, nil
}

func (s *LLMService) InferStatus(ctx context.Context, in InferenceInput) (*StatusInference, error) {
	out, err := s.complete(ctx, "infer_status", buildInferPrompt(in), 0)
	if err != nil {
		return nil, err
	}

	var result StatusInference
	if err := decodeObject(out, &result); err != nil {
		return nil, err
	}
	if result.Status == "" {
		return nil, fmt.Errorf("malformed model response: missing status")
	}
	return &result, nil
}

func (s *LLMService) DraftReply(ctx context.Context, in DraftInput) (string, error) {
	out, err := s.complete(ctx, "draft_reply", buildDraftPrompt(in), 0.7)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Ping sends a trivial prompt to confirm credentials and model access.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.complete(ctx, "ping", "Reply with the single word: ok", 0)
	return err
}
