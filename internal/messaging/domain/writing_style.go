package domain

import (
	"time"

	"github.com/lib/pq"
)

// WritingStyle is how drafted replies should sound for a celebrity
type WritingStyle struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	CelebrityID string         `json:"celebrityId" gorm:"uniqueIndex;not null"`
	Tone        string         `json:"tone"`
	Signature   string         `json:"signature"`
	Examples    pq.StringArray `json:"examples" gorm:"type:text[]"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (WritingStyle) TableName() string {
	return "writing_styles"
}
