package domain

import "time"

// ThreadStatus is the inbox state of an email thread, independent of the
// opportunity's review status
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadArchived ThreadStatus = "archived"
	ThreadSpam     ThreadStatus = "spam"
)

func (s ThreadStatus) IsValid() bool {
	return s == ThreadActive || s == ThreadArchived || s == ThreadSpam
}

// Direction tells whether a message was received or sent
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// EmailThread groups the email exchange of one opportunity
type EmailThread struct {
	ID            string       `json:"id" gorm:"primaryKey"`
	OpportunityID string       `json:"opportunityId" gorm:"uniqueIndex;not null"`
	Subject       string       `json:"subject"`
	Status        ThreadStatus `json:"status" gorm:"default:active"`
	LastMessageAt time.Time    `json:"lastMessageAt" gorm:"index"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

func (EmailThread) TableName() string {
	return "email_threads"
}

// EmailMessage is one append-only message in a thread
type EmailMessage struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	ThreadID          string    `json:"threadId" gorm:"index;not null"`
	Direction         Direction `json:"direction" gorm:"not null"`
	FromAddress       string    `json:"fromAddress"`
	ToAddress         string    `json:"toAddress"`
	Subject           string    `json:"subject"`
	Body              string    `json:"body" gorm:"type:text"`
	ProviderMessageID string    `json:"providerMessageId,omitempty" gorm:"index"`
	CreatedAt         time.Time `json:"createdAt" gorm:"index"`
}

func (EmailMessage) TableName() string {
	return "email_messages"
}
