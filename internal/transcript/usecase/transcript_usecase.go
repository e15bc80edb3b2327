package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oppdomain "hyperagent/internal/opportunity/domain"
	opprepo "hyperagent/internal/opportunity/repository"
	"hyperagent/internal/transcript/domain"
	"hyperagent/internal/transcript/repository"
	"hyperagent/pkg/ai"
	"hyperagent/pkg/logging"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const applyAttempts = 3

type Config struct {
	Concurrency int
	SessionTTL  time.Duration
}

type transcriptUsecase struct {
	oppRepo    opprepo.OpportunityRepository
	reconciler ai.Reconciler
	sessions   repository.SessionStore
	publisher  oppdomain.EventPublisher
	cfg        Config
	logger     logging.Logger
	now        func() time.Time
}

func NewTranscriptUsecase(
	oppRepo opprepo.OpportunityRepository,
	reconciler ai.Reconciler,
	sessions repository.SessionStore,
	publisher oppdomain.EventPublisher,
	cfg Config,
	logger logging.Logger,
) TranscriptUsecase {
	if publisher == nil {
		publisher = oppdomain.NopPublisher{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	return &transcriptUsecase{
		oppRepo:    oppRepo,
		reconciler: reconciler,
		sessions:   sessions,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (u *transcriptUsecase) owned(ctx context.Context, celebrityID, id string) (*oppdomain.Opportunity, error) {
	opp, err := u.oppRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if opp == nil {
		return nil, oppdomain.ErrOpportunityNotFound
	}
	if celebrityID == "" || opp.CelebrityID != celebrityID {
		return nil, oppdomain.ErrForbidden
	}
	return opp, nil
}

func (u *transcriptUsecase) Process(ctx context.Context, celebrityID, opportunityID, transcript string) (*domain.Proposal, error) {
	if strings.TrimSpace(opportunityID) == "" {
		return nil, domain.ErrOpportunityRequired
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, domain.ErrTranscriptRequired
	}
	opp, err := u.owned(ctx, celebrityID, opportunityID)
	if err != nil {
		return nil, err
	}
	return u.infer(ctx, opp, transcript, "")
}

// infer runs Phase B for one opportunity. excerpt narrows the transcript
// when identification found a verbatim section.
func (u *transcriptUsecase) infer(ctx context.Context, opp *oppdomain.Opportunity, transcript, excerpt string) (*domain.Proposal, error) {
	text := excerpt
	if text == "" {
		text = transcript
	}
	inference, err := u.reconciler.InferStatus(ctx, ai.InferenceInput{
		CurrentStatus:  string(opp.Status),
		InitialMessage: opp.InitialMessage,
		Excerpt:        text,
	})
	if err != nil {
		return nil, err
	}
	status := oppdomain.Status(strings.ToLower(strings.TrimSpace(inference.Status)))
	if !status.IsReviewOutcome() {
		return nil, fmt.Errorf("model proposed unsupported status %q", inference.Status)
	}
	return &domain.Proposal{
		OpportunityID:   opp.ID,
		SenderHandle:    opp.SenderHandle,
		CurrentStatus:   opp.Status,
		RelevantSection: excerpt,
		ProposedStatus:  status,
		Summary:         strings.TrimSpace(inference.Summary),
		ActionRecap:     strings.TrimSpace(inference.ActionRecap),
	}, nil
}

func (u *transcriptUsecase) ProcessBulk(ctx context.Context, celebrityID, transcript string, opportunityIDs []string) (*domain.BulkResult, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, domain.ErrTranscriptRequired
	}
	if celebrityID == "" {
		return nil, oppdomain.ErrForbidden
	}

	candidates, err := u.candidates(ctx, celebrityID, opportunityIDs)
	if err != nil {
		return nil, err
	}
	result := &domain.BulkResult{Proposals: []domain.Proposal{}, Failures: []domain.ItemFailure{}}
	if len(candidates) == 0 {
		return result, nil
	}

	offered := make([]ai.Candidate, 0, len(candidates))
	byID := make(map[string]*oppdomain.Opportunity, len(candidates))
	for _, opp := range candidates {
		byID[opp.ID] = opp
		offered = append(offered, ai.Candidate{
			ID:             opp.ID,
			InitialMessage: opp.InitialMessage,
			Status:         string(opp.Status),
			SenderHandle:   opp.SenderHandle,
		})
	}

	identified, err := u.reconciler.IdentifyOpportunities(ctx, transcript, offered)
	if err != nil {
		return nil, fmt.Errorf("identify opportunities: %w", err)
	}
	identified = filterIdentified(identified, byID, transcript)
	u.logger.WithFields(logging.Fields{
		"celebrity_id": celebrityID,
		"candidates":   len(candidates),
		"identified":   len(identified),
	}).Info("Transcript identification finished")

	proposals := make([]*domain.Proposal, len(identified))
	failures := make([]error, len(identified))
	var g errgroup.Group
	g.SetLimit(u.cfg.Concurrency)
	for i, item := range identified {
		g.Go(func() error {
			proposals[i], failures[i] = u.infer(ctx, byID[item.OpportunityID], transcript, item.RelevantSection)
			return nil
		})
	}
	_ = g.Wait()

	for i, item := range identified {
		if failures[i] != nil {
			u.logger.WithError(failures[i]).WithField("opportunity_id", item.OpportunityID).Error("Status inference failed")
			result.Failures = append(result.Failures, domain.ItemFailure{OpportunityID: item.OpportunityID, Error: failures[i].Error()})
			continue
		}
		result.Proposals = append(result.Proposals, *proposals[i])
	}
	return result, nil
}

func (u *transcriptUsecase) candidates(ctx context.Context, celebrityID string, ids []string) ([]*oppdomain.Opportunity, error) {
	open, err := u.oppRepo.ListOpen(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return open, nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[strings.TrimSpace(id)] = true
	}
	var narrowed []*oppdomain.Opportunity
	for _, opp := range open {
		if wanted[opp.ID] {
			narrowed = append(narrowed, opp)
		}
	}
	return narrowed, nil
}

// filterIdentified drops ids that were not offered or repeat, and clears
// sections that are not verbatim quotes of the transcript.
func filterIdentified(items []ai.IdentifiedOpportunity, offered map[string]*oppdomain.Opportunity, transcript string) []ai.IdentifiedOpportunity {
	seen := make(map[string]bool, len(items))
	out := make([]ai.IdentifiedOpportunity, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.OpportunityID)
		if offered[id] == nil || seen[id] {
			continue
		}
		seen[id] = true
		section := strings.TrimSpace(item.RelevantSection)
		if section != "" && !strings.Contains(transcript, section) {
			section = ""
		}
		out = append(out, ai.IdentifiedOpportunity{OpportunityID: id, RelevantSection: section})
	}
	return out
}

func (u *transcriptUsecase) Apply(ctx context.Context, celebrityID, userID string, in domain.ApplyInput) (*oppdomain.Opportunity, error) {
	if strings.TrimSpace(in.OpportunityID) == "" {
		return nil, domain.ErrOpportunityRequired
	}
	if strings.TrimSpace(in.Transcript) == "" {
		return nil, domain.ErrTranscriptRequired
	}
	if !in.ProposedStatus.IsReviewOutcome() {
		return nil, domain.ErrInvalidStatus
	}

	note := oppdomain.MeetingNote{
		Transcript:  in.Transcript,
		Summary:     strings.TrimSpace(in.Summary),
		ActionRecap: strings.TrimSpace(in.ActionRecap),
		ProcessedBy: userID,
		ProcessedAt: u.now(),
	}

	// Last apply wins: a concurrent write only forces a re-read.
	for attempt := 1; ; attempt++ {
		opp, err := u.owned(ctx, celebrityID, in.OpportunityID)
		if err != nil {
			return nil, err
		}
		previous := opp.Status
		revision := opp.Revision
		opp.ApplyMeetingNote(in.ProposedStatus, note)

		err = u.oppRepo.Update(ctx, opp, revision)
		if errors.Is(err, oppdomain.ErrRevisionConflict) && attempt < applyAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}

		u.logger.WithFields(logging.Fields{
			"opportunity_id": opp.ID,
			"status":         opp.Status,
			"user_id":        userID,
		}).Info("Applied meeting note")
		if opp.Status != previous {
			u.publisher.Publish(ctx, oppdomain.NewEvent(oppdomain.EventStatusChanged, opp))
		}
		return opp, nil
	}
}

func (u *transcriptUsecase) CreateSession(ctx context.Context, celebrityID, userID, transcript string, opportunityIDs []string) (*domain.Session, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, domain.ErrTranscriptRequired
	}
	if celebrityID == "" {
		return nil, oppdomain.ErrForbidden
	}

	session := domain.NewSession(uuid.New().String(), celebrityID, userID, transcript, u.now(), u.cfg.SessionTTL)
	if err := session.StartProcessing(); err != nil {
		return nil, err
	}
	if err := u.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	result, err := u.ProcessBulk(ctx, celebrityID, transcript, opportunityIDs)
	return u.sessions.Update(ctx, session.ID, func(s *domain.Session) error {
		if err != nil {
			u.logger.WithError(err).WithField("session_id", s.ID).Error("Transcript session processing failed")
			s.Fail(err)
			return nil
		}
		return s.Stage(result)
	})
}

func (u *transcriptUsecase) GetSession(ctx context.Context, celebrityID, sessionID string) (*domain.Session, error) {
	session, err := u.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.CelebrityID != celebrityID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (u *transcriptUsecase) ApplyCurrent(ctx context.Context, celebrityID, userID, sessionID string, edits ProposalEdits) (*domain.Session, error) {
	session, err := u.GetSession(ctx, celebrityID, sessionID)
	if err != nil {
		return nil, err
	}
	current, err := session.Current()
	if err != nil {
		return nil, err
	}

	in := domain.ApplyInput{
		OpportunityID:  current.OpportunityID,
		Transcript:     session.Transcript,
		ProposedStatus: current.ProposedStatus,
		Summary:        current.Summary,
		ActionRecap:    current.ActionRecap,
	}
	if edits.ProposedStatus != nil {
		in.ProposedStatus = *edits.ProposedStatus
	}
	if edits.Summary != nil {
		in.Summary = *edits.Summary
	}
	if edits.ActionRecap != nil {
		in.ActionRecap = *edits.ActionRecap
	}
	if _, err := u.Apply(ctx, celebrityID, userID, in); err != nil {
		return nil, err
	}
	return u.advance(ctx, sessionID, session.Index, domain.DecisionApplied)
}

func (u *transcriptUsecase) SkipCurrent(ctx context.Context, celebrityID, sessionID string) (*domain.Session, error) {
	session, err := u.GetSession(ctx, celebrityID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := session.Current(); err != nil {
		return nil, err
	}
	return u.advance(ctx, sessionID, session.Index, domain.DecisionSkipped)
}

// advance records the decision only if nobody moved the session since it was read.
func (u *transcriptUsecase) advance(ctx context.Context, sessionID string, index int, decision domain.Decision) (*domain.Session, error) {
	return u.sessions.Update(ctx, sessionID, func(s *domain.Session) error {
		if s.Index != index {
			return domain.ErrSessionState
		}
		return s.Decide(decision)
	})
}
