package domain

import (
	"context"
	"time"
)

// EventType names an opportunity lifecycle event
type EventType string

const (
	EventCreated       EventType = "opportunity.created"
	EventClassified    EventType = "opportunity.classified"
	EventStatusChanged EventType = "opportunity.status_changed"
)

// Event is the payload published on the event bus
type Event struct {
	Type           EventType `json:"type"`
	OpportunityID  string    `json:"opportunityId"`
	CelebrityID    string    `json:"celebrityId"`
	Source         Source    `json:"source"`
	Status         Status    `json:"status"`
	RelevanceScore int       `json:"relevanceScore"`
	SenderHandle   string    `json:"senderHandle"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func NewEvent(eventType EventType, opp *Opportunity) Event {
	return Event{
		Type:           eventType,
		OpportunityID:  opp.ID,
		CelebrityID:    opp.CelebrityID,
		Source:         opp.Source,
		Status:         opp.Status,
		RelevanceScore: opp.RelevanceScore,
		SenderHandle:   opp.SenderHandle,
		OccurredAt:     time.Now(),
	}
}

// EventPublisher delivers lifecycle events. Publishing is best effort and
// never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
