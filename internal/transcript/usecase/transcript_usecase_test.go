package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	oppdomain "hyperagent/internal/opportunity/domain"
	opprepo "hyperagent/internal/opportunity/repository"
	"hyperagent/internal/transcript/domain"
	"hyperagent/internal/transcript/repository"
	"hyperagent/pkg/ai"
	"hyperagent/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReconciler identifies whatever ids it is told to and infers a fixed
// status per opportunity message.
type stubReconciler struct {
	mu          sync.Mutex
	identified  []ai.IdentifiedOpportunity
	identifyErr error
	inferences  map[string]*ai.StatusInference // keyed by initial message
	offered     []ai.Candidate
	excerpts    []string
}

func (s *stubReconciler) IdentifyOpportunities(_ context.Context, _ string, candidates []ai.Candidate) ([]ai.IdentifiedOpportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offered = candidates
	return s.identified, s.identifyErr
}

func (s *stubReconciler) InferStatus(_ context.Context, in ai.InferenceInput) (*ai.StatusInference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.excerpts = append(s.excerpts, in.Excerpt)
	inf, ok := s.inferences[in.InitialMessage]
	if !ok {
		return nil, errors.New("model timeout")
	}
	return inf, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []oppdomain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e oppdomain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

const meeting = `Alice: Let's talk about the Nike deal. We agreed to move forward with it.
Bob: And the podcast invite? I think we pass on that one.`

type fixture struct {
	store      *opprepo.MemoryStore
	reconciler *stubReconciler
	publisher  *recordingPublisher
	uc         TranscriptUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := opprepo.NewMemoryStore()
	rec := &stubReconciler{inferences: map[string]*ai.StatusInference{}}
	pub := &recordingPublisher{}
	uc := NewTranscriptUsecase(store.Opportunities(), rec, repository.NewMemorySessionStore(), pub, Config{}, logging.NewDiscardLogger())
	return &fixture{store: store, reconciler: rec, publisher: pub, uc: uc}
}

func (f *fixture) seed(t *testing.T, celebrityID, message string, status oppdomain.Status) *oppdomain.Opportunity {
	t.Helper()
	opp := oppdomain.NewInbound(celebrityID, oppdomain.SourceTwitterDM, "@sender", message, time.Now())
	opp.Status = status
	opp.RelevanceScore = 3
	require.NoError(t, f.store.Opportunities().Create(context.Background(), opp))
	return opp
}

func TestProcess_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Process(ctx, "c1", "", meeting)
	assert.ErrorIs(t, err, domain.ErrOpportunityRequired)

	_, err = f.uc.Process(ctx, "c1", "x", "  ")
	assert.ErrorIs(t, err, domain.ErrTranscriptRequired)

	_, err = f.uc.Process(ctx, "c1", "missing", meeting)
	assert.ErrorIs(t, err, oppdomain.ErrOpportunityNotFound)

	other := f.seed(t, "c2", "Nike deal", oppdomain.StatusPending)
	_, err = f.uc.Process(ctx, "c1", other.ID, meeting)
	assert.ErrorIs(t, err, oppdomain.ErrForbidden)
}

func TestProcess_UsesWholeTranscriptAndWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	f.reconciler.inferences["Nike deal"] = &ai.StatusInference{Status: "Approved", Summary: " Moving forward ", ActionRecap: "Send contract"}

	proposal, err := f.uc.Process(ctx, "c1", opp.ID, meeting)
	require.NoError(t, err)
	assert.Equal(t, oppdomain.StatusApproved, proposal.ProposedStatus)
	assert.Equal(t, oppdomain.StatusPending, proposal.CurrentStatus)
	assert.Equal(t, "Moving forward", proposal.Summary)
	assert.Equal(t, []string{meeting}, f.reconciler.excerpts)

	stored, err := f.store.Opportunities().FindByID(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, oppdomain.StatusPending, stored.Status)
	assert.Equal(t, opp.Revision, stored.Revision)
	assert.Empty(t, f.publisher.events)
}

func TestProcess_RejectsUnsupportedStatus(t *testing.T) {
	f := newFixture(t)
	opp := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	f.reconciler.inferences["Nike deal"] = &ai.StatusInference{Status: "conversation_started"}

	_, err := f.uc.Process(context.Background(), "c1", opp.ID, meeting)
	assert.Error(t, err)
}

func TestProcessBulk_IdentifiesThenInfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	nike := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	podcast := f.seed(t, "c1", "Podcast invite", oppdomain.StatusApproved)
	unmentioned := f.seed(t, "c1", "Brand ambassador role", oppdomain.StatusPending)
	f.seed(t, "c1", "Already closed", oppdomain.StatusRejected)
	f.seed(t, "c2", "Someone else's", oppdomain.StatusPending)

	f.reconciler.identified = []ai.IdentifiedOpportunity{
		{OpportunityID: nike.ID, RelevantSection: "We agreed to move forward with it."},
		{OpportunityID: nike.ID, RelevantSection: "duplicate"},
		{OpportunityID: podcast.ID, RelevantSection: "paraphrased, not in the transcript"},
		{OpportunityID: "invented-id"},
	}
	f.reconciler.inferences["Nike deal"] = &ai.StatusInference{Status: "approved", Summary: "Deal on"}
	f.reconciler.inferences["Podcast invite"] = &ai.StatusInference{Status: "rejected", Summary: "Passing"}

	result, err := f.uc.ProcessBulk(ctx, "c1", meeting, nil)
	require.NoError(t, err)
	assert.Len(t, f.reconciler.offered, 3)
	require.Len(t, result.Proposals, 2)
	assert.Empty(t, result.Failures)
	for _, p := range result.Proposals {
		assert.NotEqual(t, unmentioned.ID, p.OpportunityID)
	}

	assert.Equal(t, nike.ID, result.Proposals[0].OpportunityID)
	assert.Equal(t, "We agreed to move forward with it.", result.Proposals[0].RelevantSection)
	assert.Equal(t, oppdomain.StatusApproved, result.Proposals[0].ProposedStatus)

	assert.Equal(t, podcast.ID, result.Proposals[1].OpportunityID)
	assert.Empty(t, result.Proposals[1].RelevantSection)
	assert.Equal(t, oppdomain.StatusRejected, result.Proposals[1].ProposedStatus)

	assert.ElementsMatch(t, []string{"We agreed to move forward with it.", meeting}, f.reconciler.excerpts)
}

func TestProcessBulk_NarrowsCandidates(t *testing.T) {
	f := newFixture(t)
	nike := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	f.seed(t, "c1", "Podcast invite", oppdomain.StatusPending)

	result, err := f.uc.ProcessBulk(context.Background(), "c1", meeting, []string{nike.ID})
	require.NoError(t, err)
	require.Len(t, f.reconciler.offered, 1)
	assert.Equal(t, nike.ID, f.reconciler.offered[0].ID)
	assert.Empty(t, result.Proposals)
}

func TestProcessBulk_NoCandidatesSkipsModel(t *testing.T) {
	f := newFixture(t)
	f.reconciler.identifyErr = errors.New("must not be called")

	result, err := f.uc.ProcessBulk(context.Background(), "c1", meeting, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Proposals)
	assert.Nil(t, f.reconciler.offered)
}

func TestProcessBulk_ItemFailuresAreIsolated(t *testing.T) {
	f := newFixture(t)
	nike := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	podcast := f.seed(t, "c1", "Podcast invite", oppdomain.StatusPending)
	f.reconciler.identified = []ai.IdentifiedOpportunity{{OpportunityID: nike.ID}, {OpportunityID: podcast.ID}}
	f.reconciler.inferences["Nike deal"] = &ai.StatusInference{Status: "approved"}

	result, err := f.uc.ProcessBulk(context.Background(), "c1", meeting, nil)
	require.NoError(t, err)
	require.Len(t, result.Proposals, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, podcast.ID, result.Failures[0].OpportunityID)
	assert.Contains(t, result.Failures[0].Error, "model timeout")
}

func TestProcessBulk_IdentifyError(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	f.reconciler.identifyErr = errors.New("provider down")

	_, err := f.uc.ProcessBulk(context.Background(), "c1", meeting, nil)
	assert.ErrorContains(t, err, "provider down")
}

func TestApply_WritesMeetingNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	opp.NeedsDiscussion = true
	require.NoError(t, f.store.Opportunities().Update(ctx, opp, opp.Revision))

	updated, err := f.uc.Apply(ctx, "c1", "u1", domain.ApplyInput{
		OpportunityID:  opp.ID,
		Transcript:     meeting,
		ProposedStatus: oppdomain.StatusApproved,
		Summary:        "Deal on",
		ActionRecap:    "Send contract",
	})
	require.NoError(t, err)
	assert.Equal(t, oppdomain.StatusApproved, updated.Status)
	assert.False(t, updated.NeedsDiscussion)
	assert.Equal(t, meeting, updated.MeetingNoteTranscript)
	assert.Equal(t, "u1", *updated.MeetingNoteProcessedBy)
	assert.NotNil(t, updated.MeetingNoteProcessedAt)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, oppdomain.EventStatusChanged, f.publisher.events[0].Type)
}

func TestApply_TwiceKeepsLatestNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	in := domain.ApplyInput{
		OpportunityID:  opp.ID,
		Transcript:     meeting,
		ProposedStatus: oppdomain.StatusApproved,
		Summary:        "Deal on",
		ActionRecap:    "Send contract",
	}

	_, err := f.uc.Apply(ctx, "c1", "u1", in)
	require.NoError(t, err)

	in.Summary = "Deal on, pending legal"
	in.ActionRecap = "Loop in legal"
	updated, err := f.uc.Apply(ctx, "c1", "u2", in)
	require.NoError(t, err)
	assert.Equal(t, oppdomain.StatusApproved, updated.Status)

	stored, err := f.store.Opportunities().FindByID(ctx, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, oppdomain.StatusApproved, stored.Status)
	assert.Equal(t, "Deal on, pending legal", stored.MeetingNoteSummary)
	assert.Equal(t, "Loop in legal", stored.MeetingNoteActionRecap)
	assert.Equal(t, meeting, stored.MeetingNoteTranscript)
	assert.Equal(t, "u2", *stored.MeetingNoteProcessedBy)

	// only the first apply changed the status
	require.Len(t, f.publisher.events, 1)
}

func TestApply_SameStatusPublishesNothing(t *testing.T) {
	f := newFixture(t)
	opp := f.seed(t, "c1", "Nike deal", oppdomain.StatusApproved)

	_, err := f.uc.Apply(context.Background(), "c1", "u1", domain.ApplyInput{
		OpportunityID: opp.ID, Transcript: meeting, ProposedStatus: oppdomain.StatusApproved,
	})
	require.NoError(t, err)
	assert.Empty(t, f.publisher.events)
}

func TestApply_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	opp := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)

	_, err := f.uc.Apply(ctx, "c1", "u1", domain.ApplyInput{Transcript: meeting, ProposedStatus: oppdomain.StatusApproved})
	assert.ErrorIs(t, err, domain.ErrOpportunityRequired)

	_, err = f.uc.Apply(ctx, "c1", "u1", domain.ApplyInput{OpportunityID: opp.ID, ProposedStatus: oppdomain.StatusApproved})
	assert.ErrorIs(t, err, domain.ErrTranscriptRequired)

	_, err = f.uc.Apply(ctx, "c1", "u1", domain.ApplyInput{OpportunityID: opp.ID, Transcript: meeting, ProposedStatus: oppdomain.StatusConversationStarted})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.uc.Apply(ctx, "c2", "u1", domain.ApplyInput{OpportunityID: opp.ID, Transcript: meeting, ProposedStatus: oppdomain.StatusApproved})
	assert.ErrorIs(t, err, oppdomain.ErrForbidden)
}

func TestSession_WalksProposals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	nike := f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	podcast := f.seed(t, "c1", "Podcast invite", oppdomain.StatusPending)
	f.reconciler.identified = []ai.IdentifiedOpportunity{{OpportunityID: nike.ID}, {OpportunityID: podcast.ID}}
	f.reconciler.inferences["Nike deal"] = &ai.StatusInference{Status: "approved", Summary: "Deal on"}
	f.reconciler.inferences["Podcast invite"] = &ai.StatusInference{Status: "rejected"}

	session, err := f.uc.CreateSession(ctx, "c1", "u1", meeting, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePreview, session.State)
	require.Len(t, session.Proposals, 2)

	_, err = f.uc.GetSession(ctx, "c2", session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	summary := "Edited summary"
	session, err = f.uc.ApplyCurrent(ctx, "c1", "u1", session.ID, ProposalEdits{Summary: &summary})
	require.NoError(t, err)
	assert.Equal(t, 1, session.Index)
	assert.Equal(t, domain.DecisionApplied, session.Decisions[nike.ID])

	stored, err := f.store.Opportunities().FindByID(ctx, nike.ID)
	require.NoError(t, err)
	assert.Equal(t, oppdomain.StatusApproved, stored.Status)
	assert.Equal(t, "Edited summary", stored.MeetingNoteSummary)
	assert.Equal(t, meeting, stored.MeetingNoteTranscript)

	session, err = f.uc.SkipCurrent(ctx, "c1", session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, session.State)
	assert.Equal(t, domain.DecisionSkipped, session.Decisions[podcast.ID])

	skipped, err := f.store.Opportunities().FindByID(ctx, podcast.ID)
	require.NoError(t, err)
	assert.Equal(t, oppdomain.StatusPending, skipped.Status)

	_, err = f.uc.SkipCurrent(ctx, "c1", session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionState)
}

func TestSession_NothingIdentifiedFinishesImmediately(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)

	session, err := f.uc.CreateSession(context.Background(), "c1", "u1", meeting, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, session.State)
	assert.Empty(t, session.Error)
}

func TestSession_ProcessingErrorIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "c1", "Nike deal", oppdomain.StatusPending)
	f.reconciler.identifyErr = errors.New("provider down")

	session, err := f.uc.CreateSession(context.Background(), "c1", "u1", meeting, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, session.State)
	assert.True(t, strings.Contains(session.Error, "provider down"))
}
