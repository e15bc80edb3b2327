package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	authrepo "hyperagent/internal/auth/repository"
	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/fcm"
	"hyperagent/pkg/logging"
)

// Pusher sends push notifications and returns the tokens that failed
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// Indexer queues opportunities for the semantic index
type Indexer interface {
	HandleEvent(ctx context.Context, event oppdomain.Event) bool
}

const recentCapacity = 1024

// Dispatcher routes lifecycle events to team push notifications and the
// search index. Redelivered events are dropped.
type Dispatcher struct {
	userRepo authrepo.UserRepository
	fcmRepo  authrepo.FCMTokenRepository
	pusher   Pusher
	indexer  Indexer
	siteURL  string
	logger   logging.Logger

	mu     sync.Mutex
	seen   map[string]struct{}
	recent []string
}

func NewDispatcher(userRepo authrepo.UserRepository, fcmRepo authrepo.FCMTokenRepository, siteURL string, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		userRepo: userRepo,
		fcmRepo:  fcmRepo,
		siteURL:  strings.TrimRight(siteURL, "/"),
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

// SetPusher enables push notifications
func (d *Dispatcher) SetPusher(p Pusher) { d.pusher = p }

// SetIndexer enables search indexing
func (d *Dispatcher) SetIndexer(i Indexer) { d.indexer = i }

func eventKey(e oppdomain.Event) string {
	return fmt.Sprintf("%s/%s/%d", e.Type, e.OpportunityID, e.OccurredAt.UnixNano())
}

// firstDelivery remembers the last recentCapacity events
func (d *Dispatcher) firstDelivery(e oppdomain.Event) bool {
	key := eventKey(e)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	d.recent = append(d.recent, key)
	if len(d.recent) > recentCapacity {
		delete(d.seen, d.recent[0])
		d.recent = d.recent[1:]
	}
	return true
}

// Dispatch handles one event. Failures are logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, event oppdomain.Event) {
	if !d.firstDelivery(event) {
		d.logger.WithFields(logging.Fields{
			"type":           event.Type,
			"opportunity_id": event.OpportunityID,
		}).Debug("Skipping duplicate event")
		return
	}

	if d.indexer != nil && !d.indexer.HandleEvent(ctx, event) {
		d.logger.WithField("opportunity_id", event.OpportunityID).Warn("Index queue full, dropping event")
	}
	if event.Type == oppdomain.EventClassified {
		d.notifyTeam(ctx, event)
	}
}

func (d *Dispatcher) notifyTeam(ctx context.Context, event oppdomain.Event) {
	log := d.logger.WithFields(logging.Fields{
		"celebrity_id":   event.CelebrityID,
		"opportunity_id": event.OpportunityID,
	})
	if d.pusher == nil || d.fcmRepo == nil {
		log.Debug("Push notifications disabled")
		return
	}

	users, err := d.userRepo.ListByCelebrity(ctx, event.CelebrityID)
	if err != nil {
		log.WithError(err).Error("Failed to list team members")
		return
	}
	if len(users) == 0 {
		return
	}
	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	tokens, err := d.fcmRepo.GetTokensByUserIDs(ctx, userIDs)
	if err != nil {
		log.WithError(err).Error("Failed to load FCM tokens")
		return
	}
	if len(tokens) == 0 {
		log.Debug("No devices registered for team")
		return
	}
	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failed, err := d.pusher.SendToDevices(ctx, tokenStrings, d.buildNotification(event))
	if err != nil {
		log.WithError(err).Error("Failed to send push notification")
		return
	}
	log.WithFields(logging.Fields{
		"sent":   len(tokenStrings) - len(failed),
		"failed": len(failed),
	}).Info("Sent opportunity push notification")

	for _, token := range failed {
		if err := d.fcmRepo.DeleteToken(ctx, token); err != nil {
			log.WithError(err).Warn("Failed to delete stale FCM token")
		}
	}
}

func (d *Dispatcher) buildNotification(event oppdomain.Event) fcm.NotificationData {
	sender := event.SenderHandle
	if sender == "" {
		sender = "someone"
	}
	return fcm.NotificationData{
		Title: fmt.Sprintf("New %s opportunity (%d/5)", event.Source.Label(), event.RelevanceScore),
		Body:  fmt.Sprintf("From %s", sender),
		Data: map[string]string{
			"type":          string(event.Type),
			"opportunityId": event.OpportunityID,
			"score":         fmt.Sprintf("%d", event.RelevanceScore),
		},
		Link: d.opportunityLink(event.OpportunityID),
	}
}

func (d *Dispatcher) opportunityLink(id string) string {
	if d.siteURL == "" {
		return ""
	}
	return d.siteURL + "/opportunities/" + id
}
