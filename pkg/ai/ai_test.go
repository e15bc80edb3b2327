package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// stubModel answers every prompt with the next canned response.
type stubModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	models    []string
}

func (m *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.models = append(m.models, opts.Model)

	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	out := ""
	if len(m.responses) > 0 {
		out = m.responses[0]
		m.responses = m.responses[1:]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (m *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"plain":        `{"a":1}`,
		"fenced json":  "```json\n{\"a\":1}\n```",
		"fenced":       "```\n{\"a\":1}\n```",
		"prose around": "Sure! Here you go: {\"a\":1} Hope that helps.",
		"whitespace":   "\n  {\"a\":1}  \n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, `{"a":1}`, extractJSON(in, '{', '}'))
		})
	}
}

func TestDecodeObject_Malformed(t *testing.T) {
	var v map[string]interface{}
	err := decodeObject("no json here", &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed model response")
}

func TestLLMService_Classify(t *testing.T) {
	model := &stubModel{responses: []string{"```json\n{\"relevanceScore\":4,\"tags\":[\"Podcast\"],\"status\":\"approved\",\"needsDiscussion\":true,\"goalId\":\"null\",\"explanation\":\"fits\"}\n```"}}
	svc := NewLLMService(model, ProviderOpenAI, nil)

	got, err := svc.Classify(context.Background(), ClassificationInput{
		Source:  "WIDGET",
		Message: "Join our podcast?",
		Goals:   []Goal{{ID: "g1", Name: "Media", Priority: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, got.RelevanceScore)
	assert.Equal(t, "approved", got.Status)
	assert.True(t, got.NeedsDiscussion)
	assert.Nil(t, got.GoalID, "string null must decode to no goal")
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Join our podcast?")
	assert.Contains(t, model.prompts[0], `"g1"`)
}

func TestLLMService_RuntimeModelOverride(t *testing.T) {
	model := &stubModel{responses: []string{"ok", "ok"}}
	current := ""
	svc := NewLLMService(model, ProviderDeepseek, func() string { return current })

	require.NoError(t, svc.Ping(context.Background()))
	current = "deepseek-reasoner"
	require.NoError(t, svc.Ping(context.Background()))

	assert.Equal(t, []string{"", "deepseek-reasoner"}, model.models)
}

func TestLLMService_IdentifyOpportunities(t *testing.T) {
	t.Run("no candidates skips the model", func(t *testing.T) {
		model := &stubModel{}
		svc := NewLLMService(model, ProviderOpenAI, nil)
		got, err := svc.IdentifyOpportunities(context.Background(), "transcript", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, model.prompts)
	})

	t.Run("empty list is valid", func(t *testing.T) {
		model := &stubModel{responses: []string{`{"opportunities": []}`}}
		svc := NewLLMService(model, ProviderOpenAI, nil)
		got, err := svc.IdentifyOpportunities(context.Background(), "t", []Candidate{{ID: "a"}})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("parses matches", func(t *testing.T) {
		model := &stubModel{responses: []string{`{"opportunities":[{"opportunityId":"a","relevantSection":"we love it"}]}`}}
		svc := NewLLMService(model, ProviderOpenAI, nil)
		got, err := svc.IdentifyOpportunities(context.Background(), "t", []Candidate{{ID: "a"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].OpportunityID)
		assert.Equal(t, "we love it", got[0].RelevantSection)
	})
}

func TestLLMService_InferStatus_RequiresStatus(t *testing.T) {
	model := &stubModel{responses: []string{`{"summary":"talked"}`}}
	svc := NewLLMService(model, ProviderOpenAI, nil)
	_, err := svc.InferStatus(context.Background(), InferenceInput{CurrentStatus: "pending"})
	require.Error(t, err)
}

func TestLLMService_DraftReply(t *testing.T) {
	model := &stubModel{responses: []string{"  Thanks for reaching out!\n"}}
	svc := NewLLMService(model, ProviderOpenAI, nil)
	got, err := svc.DraftReply(context.Background(), DraftInput{
		CelebrityName:  "Ada",
		Channel:        "email",
		InitialMessage: "Can Ada speak at our event?",
		Signature:      "Team Ada",
		Examples:       []string{"Hey there!"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Thanks for reaching out!", got)
	assert.True(t, strings.Contains(model.prompts[0], "Team Ada"))
	assert.True(t, strings.Contains(model.prompts[0], "Hey there!"))
}

func TestFallbackService(t *testing.T) {
	t.Run("quota error uses fallback", func(t *testing.T) {
		primary := NewLLMService(&stubModel{err: errors.New("status 429: insufficient_quota")}, ProviderOpenAI, nil)
		fallback := NewLLMService(&stubModel{responses: []string{"drafted"}}, ProviderDeepseek, nil)
		svc := NewFallbackService(primary, fallback, nil)

		got, err := svc.DraftReply(context.Background(), DraftInput{})
		require.NoError(t, err)
		assert.Equal(t, "drafted", got)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		fallbackModel := &stubModel{responses: []string{"drafted"}}
		primary := NewLLMService(&stubModel{err: errors.New("invalid api key")}, ProviderOpenAI, nil)
		svc := NewFallbackService(primary, NewLLMService(fallbackModel, ProviderDeepseek, nil), nil)

		_, err := svc.DraftReply(context.Background(), DraftInput{})
		require.Error(t, err)
		assert.Empty(t, fallbackModel.prompts)
	})
}

func TestNewService_RequiresAKey(t *testing.T) {
	_, err := NewService(Config{Provider: ProviderAuto})
	require.Error(t, err)

	_, err = NewService(Config{Provider: ProviderOpenAI})
	require.Error(t, err)
}

func TestPerplexityResearcher(t *testing.T) {
	model := &stubModel{responses: []string{" Acme Corp is a real company. \n"}}
	r := NewResearcherWithModel(model)

	got, err := r.ResearchSender(context.Background(), "@acme", "partnership?")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp is a real company.", got)
	assert.Contains(t, model.prompts[0], "@acme")
}
