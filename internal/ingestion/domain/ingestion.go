package domain

import (
	"errors"
	"time"
)

var (
	ErrCelebrityIDRequired = errors.New("celebrityId is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrMessageRequired     = errors.New("message is required")
	ErrUnknownRecipient    = errors.New("unknown recipient")
	ErrTwitterDisabled     = errors.New("twitter ingestion is not configured")
)

// WidgetSubmission is a contact-form post from a celebrity's site
type WidgetSubmission struct {
	CelebrityID string `json:"celebrityId"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Message     string `json:"message"`
}

// InboundEmail is the subset of a Mailgun route post the webhook reads
type InboundEmail struct {
	Timestamp    string
	Token        string
	Signature    string
	Recipient    string
	Sender       string
	From         string
	Subject      string
	BodyPlain    string
	StrippedText string
	MessageID    string
}

// Body prefers the reply text without quoted history
func (e InboundEmail) Body() string {
	if e.StrippedText != "" {
		return e.StrippedText
	}
	return e.BodyPlain
}

// InboundResult tells the webhook which opportunity received the email
type InboundResult struct {
	OpportunityID string `json:"opportunityId"`
	Created       bool   `json:"created"`
	Reply         bool   `json:"reply"`
}

// AccountReport is the outcome of one Twitter account in a DM sweep
type AccountReport struct {
	AccountID string     `json:"accountId"`
	Username  string     `json:"username"`
	Created   int        `json:"created"`
	Skipped   int        `json:"skipped"`
	Failed    int        `json:"failed"`
	SyncedTo  *time.Time `json:"syncedTo,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// SyncReport collects every account of a DM sweep
type SyncReport struct {
	Accounts []AccountReport `json:"accounts"`
}
