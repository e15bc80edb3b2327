package domain

import (
	"errors"
	"time"

	oppdomain "hyperagent/internal/opportunity/domain"
)

var (
	ErrTranscriptRequired  = errors.New("transcript is required")
	ErrOpportunityRequired = errors.New("opportunityId is required")
	ErrInvalidStatus       = errors.New("proposedStatus must be pending, approved or rejected")
	ErrSessionNotFound     = errors.New("session not found")
	// ErrSessionState is returned for a transition the current state does not allow
	ErrSessionState = errors.New("action not allowed in the current session state")
)

// Proposal is an inferred, not yet applied, meeting outcome for one opportunity
type Proposal struct {
	OpportunityID   string           `json:"opportunityId"`
	SenderHandle    string           `json:"senderHandle,omitempty"`
	CurrentStatus   oppdomain.Status `json:"currentStatus"`
	RelevantSection string           `json:"relevantSection"`
	ProposedStatus  oppdomain.Status `json:"proposedStatus"`
	Summary         string           `json:"summary"`
	ActionRecap     string           `json:"actionRecap"`
}

// ItemFailure records a Phase B call that did not produce a proposal
type ItemFailure struct {
	OpportunityID string `json:"opportunityId"`
	Error         string `json:"error"`
}

// BulkResult is the staged output of identification plus inference
type BulkResult struct {
	Proposals []Proposal    `json:"proposals"`
	Failures  []ItemFailure `json:"failures"`
}

// ApplyInput is a human-approved proposal
type ApplyInput struct {
	OpportunityID  string           `json:"opportunityId"`
	Transcript     string           `json:"transcript"`
	ProposedStatus oppdomain.Status `json:"proposedStatus"`
	Summary        string           `json:"summary"`
	ActionRecap    string           `json:"actionRecap"`
}

// SessionState is a step of the review wizard
type SessionState string

const (
	StateUpload     SessionState = "upload"
	StateProcessing SessionState = "processing"
	StatePreview    SessionState = "preview"
	StateDone       SessionState = "done"
)

// Decision is what the reviewer did with one proposal
type Decision string

const (
	DecisionApplied Decision = "applied"
	DecisionSkipped Decision = "skipped"
)

// Session walks a reviewer through staged proposals one at a time.
// It only moves forward: upload, processing, preview(0..n-1), done.
type Session struct {
	ID          string              `json:"id"`
	CelebrityID string              `json:"celebrityId"`
	UserID      string              `json:"userId"`
	Transcript  string              `json:"-"`
	State       SessionState        `json:"state"`
	Proposals   []Proposal          `json:"proposals"`
	Failures    []ItemFailure       `json:"failures"`
	Index       int                 `json:"index"`
	Decisions   map[string]Decision `json:"decisions"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	ExpiresAt   time.Time           `json:"expiresAt"`
}

func NewSession(id, celebrityID, userID, transcript string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:          id,
		CelebrityID: celebrityID,
		UserID:      userID,
		Transcript:  transcript,
		State:       StateUpload,
		Proposals:   []Proposal{},
		Failures:    []ItemFailure{},
		Decisions:   map[string]Decision{},
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// StartProcessing leaves the upload step
func (s *Session) StartProcessing() error {
	if s.State != StateUpload {
		return ErrSessionState
	}
	s.State = StateProcessing
	return nil
}

// Stage stores the processing outcome and opens the first preview, or
// finishes at once when nothing was identified.
func (s *Session) Stage(result *BulkResult) error {
	if s.State != StateProcessing {
		return ErrSessionState
	}
	s.Proposals = append([]Proposal{}, result.Proposals...)
	s.Failures = append([]ItemFailure{}, result.Failures...)
	s.Index = 0
	if len(s.Proposals) == 0 {
		s.State = StateDone
		return nil
	}
	s.State = StatePreview
	return nil
}

// Fail ends a session whose processing step errored
func (s *Session) Fail(err error) {
	s.Error = err.Error()
	s.State = StateDone
}

// Current returns the proposal under review
func (s *Session) Current() (*Proposal, error) {
	if s.State != StatePreview || s.Index >= len(s.Proposals) {
		return nil, ErrSessionState
	}
	return &s.Proposals[s.Index], nil
}

// Decide records the decision on the current proposal and advances.
func (s *Session) Decide(decision Decision) error {
	current, err := s.Current()
	if err != nil {
		return err
	}
	s.Decisions[current.OpportunityID] = decision
	s.Index++
	if s.Index >= len(s.Proposals) {
		s.State = StateDone
	}
	return nil
}

// Clone returns a deep copy safe to hand out of a store
func (s *Session) Clone() *Session {
	c := *s
	c.Proposals = append([]Proposal{}, s.Proposals...)
	c.Failures = append([]ItemFailure{}, s.Failures...)
	c.Decisions = make(map[string]Decision, len(s.Decisions))
	for k, v := range s.Decisions {
		c.Decisions[k] = v
	}
	return &c
}
