package domain

import "errors"

var (
	// ErrSweepInProgress is returned when another sweep holds the lease
	ErrSweepInProgress = errors.New("classification sweep already in progress")
	// ErrInvalidClassification wraps classifier output that fails validation
	ErrInvalidClassification = errors.New("invalid classification")
)

// ItemStatus is the outcome of one opportunity in a sweep
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
	// ItemSkipped means another writer classified the row first
	ItemSkipped ItemStatus = "skipped"
)

type ItemResult struct {
	ID     string     `json:"id"`
	Status ItemStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// SweepReport is returned by every sweep run
type SweepReport struct {
	Processed int          `json:"processed"`
	Results   []ItemResult `json:"results"`
}
