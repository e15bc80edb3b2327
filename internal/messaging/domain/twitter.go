package domain

import "time"

// TwitterAuth is a celebrity's connected Twitter account
type TwitterAuth struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	CelebrityID   string     `json:"celebrityId" gorm:"index;not null"`
	TwitterUserID string     `json:"twitterUserId" gorm:"uniqueIndex;not null"`
	Username      string     `json:"username"`
	AccessToken   string     `json:"-" gorm:"not null"`
	RefreshToken  string     `json:"-"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	LastSyncedAt  *time.Time `json:"lastSyncedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (TwitterAuth) TableName() string {
	return "twitter_auth"
}

// TwitterMessage is one DM exchanged on an opportunity's conversation
type TwitterMessage struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	OpportunityID   string    `json:"opportunityId" gorm:"index;not null"`
	ConversationID  string    `json:"conversationId" gorm:"index"`
	Direction       Direction `json:"direction" gorm:"not null"`
	Text            string    `json:"text" gorm:"type:text"`
	ProviderEventID string    `json:"providerEventId,omitempty" gorm:"index"`
	CreatedAt       time.Time `json:"createdAt" gorm:"index"`
}

func (TwitterMessage) TableName() string {
	return "twitter_messages"
}
