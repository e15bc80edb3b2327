package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hyperagent/internal/ingestion/domain"
	msgdomain "hyperagent/internal/messaging/domain"
	msgusecase "hyperagent/internal/messaging/usecase"
	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/twitter"

	"golang.org/x/sync/errgroup"
)

func (u *ingestionUsecase) SyncTwitter(ctx context.Context) (*domain.SyncReport, error) {
	if u.sessions == nil {
		return nil, domain.ErrTwitterDisabled
	}
	accounts, err := u.twitterRepo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list twitter accounts: %w", err)
	}

	report := &domain.SyncReport{Accounts: make([]domain.AccountReport, len(accounts))}
	// A plain group: accounts never cancel each other.
	var g errgroup.Group
	g.SetLimit(u.cfg.TwitterConcurrency)
	for i, account := range accounts {
		g.Go(func() error {
			report.Accounts[i] = u.syncAccount(ctx, account)
			return nil
		})
	}
	_ = g.Wait()
	return report, nil
}

func (u *ingestionUsecase) syncAccount(ctx context.Context, account *msgdomain.TwitterAuth) domain.AccountReport {
	result := domain.AccountReport{AccountID: account.ID, Username: account.Username}
	log := u.logger.WithFields(logging.Fields{
		"account_id": account.ID,
		"username":   account.Username,
	})

	var since time.Time
	if account.LastSyncedAt != nil {
		since = *account.LastSyncedAt
	}

	session := u.sessions(account)
	events, err := u.collectEvents(ctx, session, account.TwitterUserID, since)
	if err != nil {
		log.WithError(err).Error("Skipping twitter account for this run")
		result.Error = err.Error()
		return result
	}

	users := make(map[string]*twitter.User)
	newest := since
	// oldest event that must be fetched again next run
	var retryFrom time.Time
	deferFrom := func(at time.Time) {
		if retryFrom.IsZero() || at.Before(retryFrom) {
			retryFrom = at
		}
	}
	for _, conv := range groupByConversation(events) {
		latest, err := u.oppRepo.FindLatestByConversation(ctx, conv.id, oppdomain.SourceTwitterDM)
		if err != nil {
			log.WithError(err).WithField("conversation_id", conv.id).Error("Dedup lookup failed")
			result.Failed += len(conv.events)
			deferFrom(conv.events[0].CreatedAt)
			continue
		}

		for j, ev := range conv.events {
			if latest != nil && !latest.CreatedAt.Before(ev.CreatedAt) {
				result.Skipped++
				continue
			}

			opp := oppdomain.NewInbound(account.CelebrityID, oppdomain.SourceTwitterDM, ev.SenderID, ev.Text, ev.CreatedAt)
			opp.ConversationID = conv.id
			opp.ExternalID = ev.ID
			if sender := u.lookupUser(ctx, session, users, ev.SenderID, log); sender != nil {
				opp.SenderHandle = "@" + sender.Username
				opp.SenderName = sender.Name
				opp.SenderBio = sender.Description
			}

			if err := u.create(ctx, opp); err != nil {
				// Later messages of this conversation wait for the retry so
				// the timestamp dedup cannot shadow this one.
				log.WithError(err).WithField("event_id", ev.ID).Error("Failed to ingest DM")
				result.Failed += len(conv.events) - j
				deferFrom(ev.CreatedAt)
				break
			}
			if err := u.twitterRepo.AppendMessage(ctx, &msgdomain.TwitterMessage{
				OpportunityID:   opp.ID,
				ConversationID:  conv.id,
				Direction:       msgdomain.DirectionInbound,
				Text:            ev.Text,
				ProviderEventID: ev.ID,
				CreatedAt:       ev.CreatedAt,
			}); err != nil {
				log.WithError(err).WithField("opportunity_id", opp.ID).Warn("Failed to record inbound DM")
			}

			result.Created++
			latest = opp
			if ev.CreatedAt.After(newest) {
				newest = ev.CreatedAt
			}
		}
	}

	// Twitter timestamps carry milliseconds, which also survives the
	// microsecond rounding of the stored cursor.
	if !retryFrom.IsZero() && !newest.Before(retryFrom) {
		newest = retryFrom.Add(-time.Millisecond)
	}
	if newest.After(since) {
		if err := u.twitterRepo.UpdateLastSynced(ctx, account.ID, newest); err != nil {
			log.WithError(err).Error("Failed to advance twitter sync cursor")
		} else {
			result.SyncedTo = &newest
		}
	}
	log.WithFields(logging.Fields{
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  result.Failed,
	}).Info("Twitter account synced")
	return result
}

// collectEvents pages newest first and stops at the first page with nothing
// newer than since. Own messages and non-message events are dropped.
func (u *ingestionUsecase) collectEvents(ctx context.Context, session msgusecase.TwitterSession, ownID string, since time.Time) ([]twitter.DMEvent, error) {
	var events []twitter.DMEvent
	paginationToken := ""
	for page := 0; page < u.cfg.TwitterMaxPages; page++ {
		resp, err := session.ListDMEvents(ctx, paginationToken)
		if err != nil {
			return nil, err
		}

		fresh := false
		for _, ev := range resp.Events {
			if !since.IsZero() && !ev.CreatedAt.After(since) {
				continue
			}
			fresh = true
			if !ev.IsMessage() || ev.SenderID == ownID {
				continue
			}
			events = append(events, ev)
		}

		if !fresh || resp.NextToken == "" {
			break
		}
		paginationToken = resp.NextToken
	}
	return events, nil
}

func (u *ingestionUsecase) lookupUser(ctx context.Context, session msgusecase.TwitterSession, cache map[string]*twitter.User, id string, log logging.Entry) *twitter.User {
	if user, ok := cache[id]; ok {
		return user
	}
	user, err := session.GetUser(ctx, id)
	if err != nil {
		log.WithError(err).WithField("sender_id", id).Warn("Twitter user lookup failed")
		user = nil
	}
	cache[id] = user
	return user
}

type conversation struct {
	id     string
	events []twitter.DMEvent
}

// groupByConversation orders each conversation oldest first, and the
// conversations by their oldest event.
func groupByConversation(events []twitter.DMEvent) []conversation {
	index := make(map[string]int)
	var convs []conversation
	for _, ev := range events {
		i, ok := index[ev.DMConversationID]
		if !ok {
			i = len(convs)
			index[ev.DMConversationID] = i
			convs = append(convs, conversation{id: ev.DMConversationID})
		}
		convs[i].events = append(convs[i].events, ev)
	}
	for i := range convs {
		evs := convs[i].events
		sort.SliceStable(evs, func(a, b int) bool { return evs[a].CreatedAt.Before(evs[b].CreatedAt) })
	}
	sort.SliceStable(convs, func(a, b int) bool {
		return convs[a].events[0].CreatedAt.Before(convs[b].events[0].CreatedAt)
	})
	return convs
}
