package domain

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Source is the inbound channel an opportunity arrived through
type Source string

const (
	SourceTwitterDM Source = "TWITTER_DM"
	SourceEmail     Source = "EMAIL"
	SourceWidget    Source = "WIDGET"
)

// Status is the review state of an opportunity
type Status string

const (
	StatusPending             Status = "pending"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusOnHold              Status = "on_hold"
	StatusConversationStarted Status = "conversation_started"
)

// UnclassifiedScore marks an opportunity the classifier has not processed yet
const UnclassifiedScore = -1

const (
	MinRelevanceScore = 1
	MaxRelevanceScore = 5
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusOnHold, StatusConversationStarted:
		return true
	}
	return false
}

// IsReviewOutcome reports whether s is a status the classifier or a
// transcript review may propose.
func (s Status) IsReviewOutcome() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// IsOpen reports whether the opportunity is still under review.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusApproved
}

func (s Source) IsValid() bool {
	return s == SourceTwitterDM || s == SourceEmail || s == SourceWidget
}

// Label is the short channel name shown to people
func (s Source) Label() string {
	switch s {
	case SourceTwitterDM:
		return "twitter"
	case SourceEmail:
		return "email"
	case SourceWidget:
		return "widget"
	}
	return strings.ToLower(string(s))
}

// Opportunity is one inbound contact attempt
type Opportunity struct {
	ID              string         `json:"id" gorm:"primaryKey"`
	CelebrityID     string         `json:"celebrityId" gorm:"index;not null"`
	Source          Source         `json:"source" gorm:"index;not null"`
	SenderHandle    string         `json:"senderHandle"`
	SenderName      string         `json:"senderName,omitempty"`
	SenderEmail     string         `json:"senderEmail,omitempty"`
	SenderBio       string         `json:"senderBio,omitempty"`
	ConversationID  string         `json:"conversationId,omitempty" gorm:"index"`
	ExternalID      string         `json:"externalId,omitempty" gorm:"index"`
	Subject         string         `json:"subject,omitempty"`
	InitialMessage  string         `json:"initialMessage" gorm:"type:text"`
	Status          Status         `json:"status" gorm:"index;default:pending"`
	RelevanceScore  int            `json:"relevanceScore" gorm:"index;default:-1"`
	Tags            pq.StringArray `json:"tags" gorm:"type:text[]"`
	GoalID          *string        `json:"goalId" gorm:"index"`
	AssignedUserID  *string        `json:"assignedUserId" gorm:"index"`
	NeedsDiscussion bool           `json:"needsDiscussion" gorm:"default:false"`
	Explanation     string         `json:"explanation,omitempty" gorm:"type:text"`
	ClassifiedAt    *time.Time     `json:"classifiedAt"`

	MeetingNoteTranscript  string     `json:"meetingNoteTranscript,omitempty" gorm:"type:text"`
	MeetingNoteSummary     string     `json:"meetingNoteSummary,omitempty" gorm:"type:text"`
	MeetingNoteActionRecap string     `json:"meetingNoteActionRecap,omitempty" gorm:"type:text"`
	MeetingNoteProcessedBy *string    `json:"meetingNoteProcessedBy,omitempty"`
	MeetingNoteProcessedAt *time.Time `json:"meetingNoteProcessedAt,omitempty"`

	SenderResearch string `json:"senderResearch,omitempty" gorm:"type:text"`

	// Revision is bumped by every write; conditional updates compare it.
	Revision  int       `json:"revision" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}

// IsClassified reports whether the classification step has scored the row.
func (o *Opportunity) IsClassified() bool {
	return o.RelevanceScore != UnclassifiedScore
}

// NewInbound builds an unclassified, pending opportunity for an ingestion adapter.
func NewInbound(celebrityID string, source Source, senderHandle, message string, receivedAt time.Time) *Opportunity {
	return &Opportunity{
		CelebrityID:    celebrityID,
		Source:         source,
		SenderHandle:   senderHandle,
		InitialMessage: message,
		Status:         StatusPending,
		RelevanceScore: UnclassifiedScore,
		Tags:           pq.StringArray{},
		CreatedAt:      receivedAt,
		UpdatedAt:      receivedAt,
	}
}

// ClassificationResult is what the classification step writes back
type ClassificationResult struct {
	RelevanceScore  int
	Tags            []string
	Status          Status
	NeedsDiscussion bool
	GoalID          *string
	Explanation     string
}

// MeetingNote is a human-approved transcript reconciliation outcome
type MeetingNote struct {
	Transcript  string
	Summary     string
	ActionRecap string
	ProcessedBy string
	ProcessedAt time.Time
}

// ApplyMeetingNote records the approved outcome and clears the discussion flag.
func (o *Opportunity) ApplyMeetingNote(status Status, note MeetingNote) {
	o.Status = status
	o.MeetingNoteTranscript = note.Transcript
	o.MeetingNoteSummary = note.Summary
	o.MeetingNoteActionRecap = note.ActionRecap
	processedBy := note.ProcessedBy
	processedAt := note.ProcessedAt
	o.MeetingNoteProcessedBy = &processedBy
	o.MeetingNoteProcessedAt = &processedAt
	o.NeedsDiscussion = false
}

// ListFilter narrows opportunity listings
type ListFilter struct {
	CelebrityID     string
	Status          *Status
	Source          *Source
	GoalID          *string
	NeedsDiscussion *bool
	Limit           int
	Offset          int
}
