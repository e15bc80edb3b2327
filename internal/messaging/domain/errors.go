package domain

import "errors"

var (
	ErrOpportunityIDRequired = errors.New("opportunityId is required")
	ErrMessageRequired       = errors.New("message is required")
	ErrThreadNotFound        = errors.New("thread not found")
	ErrInvalidThreadStatus   = errors.New("invalid thread status")
	ErrSendFailed            = errors.New("failed to send message")
	ErrTwitterNotConnected   = errors.New("twitter account not connected")
	ErrNoConversation        = errors.New("opportunity has no twitter conversation")
	ErrDraftUnavailable      = errors.New("reply drafting is not configured")
	ErrEmailNotConfigured    = errors.New("email sending is not configured")
)

var ErrNoRecipient = errors.New("opportunity has no sender email")
