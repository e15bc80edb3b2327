package ai

import (
	"context"
)

// Goal is the classification context for one celebrity priority bucket
type Goal struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority"`
}

// ClassificationInput is one inbound opportunity plus its celebrity's goals
type ClassificationInput struct {
	Source       string
	SenderHandle string
	SenderBio    string
	Subject      string
	Message      string
	Goals        []Goal // ordered by descending priority
}

// Classification is the raw classifier verdict; callers validate it
type Classification struct {
	RelevanceScore  int      `json:"relevanceScore"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	NeedsDiscussion bool     `json:"needsDiscussion"`
	GoalID          *string  `json:"goalId"`
	Explanation     string   `json:"explanation"`
}

// Candidate is an open opportunity offered to transcript identification
type Candidate struct {
	ID             string `json:"id"`
	InitialMessage string `json:"initialContent"`
	Status         string `json:"status"`
	SenderHandle   string `json:"senderHandle,omitempty"`
}

// IdentifiedOpportunity is a candidate the transcript actually discusses
type IdentifiedOpportunity struct {
	OpportunityID   string `json:"opportunityId"`
	RelevantSection string `json:"relevantSection"`
}

// InferenceInput is what the status inference sees for one opportunity
type InferenceInput struct {
	CurrentStatus  string
	InitialMessage string
	Excerpt        string
}

// StatusInference is the proposed outcome of a meeting for one opportunity
type StatusInference struct {
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	ActionRecap string `json:"actionRecap"`
}

// DraftInput drives reply drafting in the celebrity's voice
type DraftInput struct {
	CelebrityName  string
	SenderHandle   string
	Channel        string
	InitialMessage string
	Thread         []string
	Tone           string
	Signature      string
	Examples       []string
	Instructions   string
}

// Classifier scores inbound opportunities against goals
type Classifier interface {
	Classify(ctx context.Context, in ClassificationInput) (*Classification, error)
}

// Reconciler matches meeting transcripts to opportunities
type Reconciler interface {
	IdentifyOpportunities(ctx context.Context, transcript string, candidates []Candidate) ([]IdentifiedOpportunity, error)
	InferStatus(ctx context.Context, in InferenceInput) (*StatusInference, error)
}

// ReplyDrafter writes outbound reply drafts
type ReplyDrafter interface {
	DraftReply(ctx context.Context, in DraftInput) (string, error)
}

// Researcher looks up public information about a sender
type Researcher interface {
	ResearchSender(ctx context.Context, handle, message string) (string, error)
}

// Service bundles the LLM capabilities the workflows depend on.
// Implement this interface to add new providers.
type Service interface {
	Classifier
	Reconciler
	ReplyDrafter
	Ping(ctx context.Context) error
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderDeepseek   ProviderType = "deepseek"
	ProviderPerplexity ProviderType = "perplexity"
	ProviderAuto       ProviderType = "auto"
)
