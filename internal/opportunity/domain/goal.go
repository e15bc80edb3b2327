package domain

import "time"

// Goal is a celebrity-defined priority bucket used as classification context
type Goal struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	CelebrityID       string    `json:"celebrityId" gorm:"index;not null"`
	Name              string    `json:"name" gorm:"not null"`
	Description       string    `json:"description" gorm:"type:text"`
	Priority          int       `json:"priority" gorm:"default:0"`
	DefaultAssigneeID *string   `json:"defaultAssigneeId"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (Goal) TableName() string {
	return "goals"
}

// Celebrity owns opportunities, goals and team members
type Celebrity struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"not null"`
	TwitterHandle string    `json:"twitterHandle,omitempty"`
	InboundEmail  string    `json:"inboundEmail,omitempty" gorm:"uniqueIndex"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Celebrity) TableName() string {
	return "celebrities"
}

// Comment is an append-only note left on an opportunity by a team member
type Comment struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	OpportunityID string    `json:"opportunityId" gorm:"index;not null"`
	UserID        string    `json:"userId" gorm:"index;not null"`
	Body          string    `json:"body" gorm:"type:text;not null"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "opportunity_comments"
}
