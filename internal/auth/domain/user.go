package domain

import (
	"errors"
	"time"
)

// Role is a team member's permission level within a celebrity's workspace
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// User is a team member acting on a celebrity's opportunities
type User struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name"`
	CelebrityID string    `json:"celebrityId" gorm:"index"`
	Role        Role      `json:"role" gorm:"default:member"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// InviteCode attaches the redeeming user to a celebrity's team
type InviteCode struct {
	Code        string     `json:"code" gorm:"primaryKey"`
	CelebrityID string     `json:"celebrityId" gorm:"index;not null"`
	Role        Role       `json:"role" gorm:"default:member"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	UsedBy      *string    `json:"usedBy"`
	UsedAt      *time.Time `json:"usedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (InviteCode) TableName() string {
	return "invite_codes"
}

// Usable reports whether the code can still be redeemed at now.
func (c *InviteCode) Usable(now time.Time) bool {
	if c.UsedBy != nil {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}

var (
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrUserNotFound      = errors.New("user not found")
	ErrInviteNotFound    = errors.New("invite code not found")
	ErrInviteUnavailable = errors.New("invite code already used or expired")
)
