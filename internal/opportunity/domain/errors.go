package domain

import "errors"

var (
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrGoalNotFound        = errors.New("goal not found")
	ErrCelebrityNotFound   = errors.New("celebrity not found")
	ErrForbidden           = errors.New("forbidden")
	ErrRevisionConflict    = errors.New("opportunity was modified concurrently")
	ErrInvalidAction       = errors.New("invalid action")
	ErrNotClassified       = errors.New("opportunity has not been classified")
)

var (
	ErrSearchUnavailable   = errors.New("semantic search is not configured")
	ErrResearchUnavailable = errors.New("sender research is not configured")
	ErrInvalidGoal         = errors.New("invalid goal")
)
