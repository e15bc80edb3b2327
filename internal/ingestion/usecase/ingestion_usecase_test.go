package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hyperagent/internal/ingestion/domain"
	msgdomain "hyperagent/internal/messaging/domain"
	msgrepo "hyperagent/internal/messaging/repository"
	msgusecase "hyperagent/internal/messaging/usecase"
	oppdomain "hyperagent/internal/opportunity/domain"
	opprepo "hyperagent/internal/opportunity/repository"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/mailgun"
	"hyperagent/pkg/twitter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signingKey = "whsec"

type eventLog struct {
	mu     sync.Mutex
	events []oppdomain.Event
}

func (l *eventLog) Publish(_ context.Context, e oppdomain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

type fixture struct {
	opps   *opprepo.MemoryStore
	msgs   *msgrepo.MemoryStore
	events *eventLog
	uc     IngestionUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	opps := opprepo.NewMemoryStore()
	msgs := msgrepo.NewMemoryStore()
	logger := logging.NewDiscardLogger()
	events := &eventLog{}
	messaging := msgusecase.NewMessagingUsecase(opps.Opportunities(), opps.Celebrities(), msgs.Threads(), msgs.Twitter(), msgs.WritingStyles(), events, "mg.example.com", logger)
	uc := NewIngestionUsecase(opps.Opportunities(), opps.Celebrities(), msgs.Twitter(), messaging, events, Config{SigningKey: signingKey}, logger)
	return &fixture{opps: opps, msgs: msgs, events: events, uc: uc}
}

func (f *fixture) celebrity(t *testing.T, inbound string) *oppdomain.Celebrity {
	t.Helper()
	c := &oppdomain.Celebrity{Name: "Ada", InboundEmail: inbound}
	require.NoError(t, f.opps.Celebrities().Create(context.Background(), c))
	return c
}

func TestSubmitWidget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	celeb := f.celebrity(t, "")

	_, err := f.uc.SubmitWidget(ctx, domain.WidgetSubmission{CelebrityID: celeb.ID, Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrEmailRequired)
	_, err = f.uc.SubmitWidget(ctx, domain.WidgetSubmission{CelebrityID: celeb.ID, Email: "a@b.co"})
	assert.ErrorIs(t, err, domain.ErrMessageRequired)
	_, err = f.uc.SubmitWidget(ctx, domain.WidgetSubmission{Email: "a@b.co", Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrCelebrityIDRequired)
	_, err = f.uc.SubmitWidget(ctx, domain.WidgetSubmission{CelebrityID: celeb.ID, Email: "nope", Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	_, err = f.uc.SubmitWidget(ctx, domain.WidgetSubmission{CelebrityID: "ghost", Email: "a@b.co", Message: "hi"})
	assert.ErrorIs(t, err, oppdomain.ErrCelebrityNotFound)

	opp, err := f.uc.SubmitWidget(ctx, domain.WidgetSubmission{CelebrityID: celeb.ID, Email: "fan@example.com", Name: "Fan", Message: "Love your work"})
	require.NoError(t, err)
	assert.Equal(t, oppdomain.SourceWidget, opp.Source)
	assert.Equal(t, oppdomain.UnclassifiedScore, opp.RelevanceScore)
	assert.Equal(t, oppdomain.StatusPending, opp.Status)
	assert.Equal(t, "Fan", opp.SenderName)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, oppdomain.EventCreated, f.events.events[0].Type)
}

func signed(in domain.InboundEmail) domain.InboundEmail {
	in.Timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	in.Token = "tok-" + in.Timestamp
	in.Signature = mailgun.Sign(signingKey, in.Timestamp, in.Token)
	return in
}

func TestHandleInboundEmail_RejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	in := signed(domain.InboundEmail{Recipient: "ada@in.example.com"})
	in.Signature = mailgun.Sign("another-key", in.Timestamp, in.Token)

	_, err := f.uc.HandleInboundEmail(context.Background(), in)
	assert.ErrorIs(t, err, mailgun.ErrInvalidSignature)
}

func TestHandleInboundEmail_NewOpportunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	celeb := f.celebrity(t, "ada@in.example.com")

	in := signed(domain.InboundEmail{
		Recipient:    "Ada@in.example.com",
		From:         "Brand Team <deals@brand.com>",
		Subject:      "Partnership",
		BodyPlain:    "Full body\n> quoted",
		StrippedText: "Full body",
		MessageID:    "<m1@brand.com>",
	})
	res, err := f.uc.HandleInboundEmail(ctx, in)
	require.NoError(t, err)
	assert.True(t, res.Created)

	opp, err := f.opps.Opportunities().FindByID(ctx, res.OpportunityID)
	require.NoError(t, err)
	assert.Equal(t, celeb.ID, opp.CelebrityID)
	assert.Equal(t, oppdomain.SourceEmail, opp.Source)
	assert.Equal(t, "deals@brand.com", opp.SenderEmail)
	assert.Equal(t, "Brand Team", opp.SenderName)
	assert.Equal(t, "Full body", opp.InitialMessage)

	thread, err := f.msgs.Threads().FindByOpportunity(ctx, opp.ID)
	require.NoError(t, err)
	require.NotNil(t, thread)
	msgs, err := f.msgs.Threads().ListMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msgdomain.DirectionInbound, msgs[0].Direction)

	// Mailgun retries deliver the same Message-Id again.
	again, err := f.uc.HandleInboundEmail(ctx, in)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, opp.ID, again.OpportunityID)
}

func TestHandleInboundEmail_ReplyRouting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	celeb := f.celebrity(t, "ada@in.example.com")
	opp := oppdomain.NewInbound(celeb.ID, oppdomain.SourceEmail, "deals@brand.com", "hi", time.Now())
	require.NoError(t, f.opps.Opportunities().Create(ctx, opp))

	res, err := f.uc.HandleInboundEmail(ctx, signed(domain.InboundEmail{
		Recipient: mailgun.ReplyAddress(opp.ID, "mg.example.com"),
		From:      "deals@brand.com",
		Subject:   "Re: hi",
		BodyPlain: "Sounds good",
	}))
	require.NoError(t, err)
	assert.True(t, res.Reply)
	assert.Equal(t, opp.ID, res.OpportunityID)

	_, err = f.uc.HandleInboundEmail(ctx, signed(domain.InboundEmail{
		Recipient: mailgun.ReplyAddress("missing", "mg.example.com"),
	}))
	assert.ErrorIs(t, err, oppdomain.ErrOpportunityNotFound)

	_, err = f.uc.HandleInboundEmail(ctx, signed(domain.InboundEmail{Recipient: "nobody@in.example.com"}))
	assert.ErrorIs(t, err, domain.ErrUnknownRecipient)
}

// fakeDMs serves fixed pages of DM events, newest first.
type fakeDMs struct {
	pages     []twitter.DMPage
	listErr   error
	listCalls int32
	userCalls int32
}

func (f *fakeDMs) ListDMEvents(_ context.Context, token string) (*twitter.DMPage, error) {
	atomic.AddInt32(&f.listCalls, 1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	i := 0
	if token != "" {
		i, _ = strconv.Atoi(token)
	}
	page := f.pages[i]
	return &page, nil
}

func (f *fakeDMs) GetUser(_ context.Context, id string) (*twitter.User, error) {
	atomic.AddInt32(&f.userCalls, 1)
	return &twitter.User{ID: id, Username: "user" + id, Name: "User " + id}, nil
}

func (f *fakeDMs) SendDM(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func dm(id, conv, sender string, at time.Time) twitter.DMEvent {
	return twitter.DMEvent{ID: id, EventType: "MessageCreate", Text: "msg " + id, SenderID: sender, DMConversationID: conv, CreatedAt: at}
}

func TestSyncTwitter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	celeb := f.celebrity(t, "")
	account := &msgdomain.TwitterAuth{CelebrityID: celeb.ID, TwitterUserID: "me", Username: "ada", AccessToken: "at"}
	require.NoError(t, f.msgs.Twitter().SaveAccount(ctx, account))

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	dms := &fakeDMs{pages: []twitter.DMPage{
		{Events: []twitter.DMEvent{
			dm("e5", "c1", "u1", base.Add(5*time.Minute)),
			dm("e4", "c1", "me", base.Add(4*time.Minute)),
			{ID: "e3", EventType: "ParticipantsJoin", DMConversationID: "c2", CreatedAt: base.Add(3 * time.Minute)},
		}, NextToken: "1"},
		{Events: []twitter.DMEvent{
			dm("e2", "c2", "u2", base.Add(2*time.Minute)),
			dm("e1", "c1", "u1", base.Add(1*time.Minute)),
		}},
	}}
	f.uc.SetTwitterSessions(func(*msgdomain.TwitterAuth) msgusecase.TwitterSession { return dms })

	report, err := f.uc.SyncTwitter(ctx)
	require.NoError(t, err)
	require.Len(t, report.Accounts, 1)
	got := report.Accounts[0]
	assert.Empty(t, got.Error)
	assert.Equal(t, 3, got.Created)
	assert.Equal(t, int32(2), dms.userCalls, "profiles are cached per run")

	latest, err := f.opps.Opportunities().FindLatestByConversation(ctx, "c1", oppdomain.SourceTwitterDM)
	require.NoError(t, err)
	assert.Equal(t, "msg e5", latest.InitialMessage)
	assert.Equal(t, "@useru1", latest.SenderHandle)
	assert.True(t, latest.CreatedAt.Equal(base.Add(5*time.Minute)))

	accounts, err := f.msgs.Twitter().ListAccounts(ctx)
	require.NoError(t, err)
	require.NotNil(t, accounts[0].LastSyncedAt)
	assert.True(t, accounts[0].LastSyncedAt.Equal(base.Add(5*time.Minute)))

	// Nothing is newer than the cursor: one page read, nothing created.
	atomic.StoreInt32(&dms.listCalls, 0)
	report, err = f.uc.SyncTwitter(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accounts[0].Created)
	assert.Equal(t, int32(1), dms.listCalls)
}

func TestSyncTwitter_DedupAgainstExistingOpportunity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	celeb := f.celebrity(t, "")
	require.NoError(t, f.msgs.Twitter().SaveAccount(ctx, &msgdomain.TwitterAuth{CelebrityID: celeb.ID, TwitterUserID: "me", AccessToken: "at"}))

	at := time.Now().Add(-time.Minute).Truncate(time.Second)
	existing := oppdomain.NewInbound(celeb.ID, oppdomain.SourceTwitterDM, "@u1", "earlier copy", at)
	existing.ConversationID = "c1"
	require.NoError(t, f.opps.Opportunities().Create(ctx, existing))

	dms := &fakeDMs{pages: []twitter.DMPage{{Events: []twitter.DMEvent{dm("e1", "c1", "u1", at)}}}}
	f.uc.SetTwitterSessions(func(*msgdomain.TwitterAuth) msgusecase.TwitterSession { return dms })

	report, err := f.uc.SyncTwitter(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Accounts[0].Created)
	assert.Equal(t, 1, report.Accounts[0].Skipped)
}

func TestSyncTwitter_AccountsAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	celeb := f.celebrity(t, "")
	require.NoError(t, f.msgs.Twitter().SaveAccount(ctx, &msgdomain.TwitterAuth{CelebrityID: celeb.ID, TwitterUserID: "broken", AccessToken: "x"}))
	require.NoError(t, f.msgs.Twitter().SaveAccount(ctx, &msgdomain.TwitterAuth{CelebrityID: celeb.ID, TwitterUserID: "ok", AccessToken: "y"}))

	good := &fakeDMs{pages: []twitter.DMPage{{Events: []twitter.DMEvent{dm("e1", "c9", "u1", time.Now().Add(-time.Minute))}}}}
	bad := &fakeDMs{listErr: twitter.ErrUnauthorized}
	f.uc.SetTwitterSessions(func(a *msgdomain.TwitterAuth) msgusecase.TwitterSession {
		if a.TwitterUserID == "broken" {
			return bad
		}
		return good
	})

	report, err := f.uc.SyncTwitter(ctx)
	require.NoError(t, err)
	require.Len(t, report.Accounts, 2)
	var created, failed int
	for _, r := range report.Accounts {
		created += r.Created
		if r.Error != "" {
			failed++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, failed)
}

// flakyOpportunities fails Create once for each listed external id
type flakyOpportunities struct {
	opprepo.OpportunityRepository
	mu     sync.Mutex
	failOn map[string]bool
}

func (r *flakyOpportunities) Create(ctx context.Context, opp *oppdomain.Opportunity) error {
	r.mu.Lock()
	fail := r.failOn[opp.ExternalID]
	delete(r.failOn, opp.ExternalID)
	r.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return r.OpportunityRepository.Create(ctx, opp)
}

func TestSyncTwitter_FailedDMIsRetriedNextRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	celeb := f.celebrity(t, "")
	require.NoError(t, f.msgs.Twitter().SaveAccount(ctx, &msgdomain.TwitterAuth{CelebrityID: celeb.ID, TwitterUserID: "me", AccessToken: "at"}))

	repo := &flakyOpportunities{OpportunityRepository: f.opps.Opportunities(), failOn: map[string]bool{"e1": true}}
	logger := logging.NewDiscardLogger()
	messaging := msgusecase.NewMessagingUsecase(repo, f.opps.Celebrities(), f.msgs.Threads(), f.msgs.Twitter(), f.msgs.WritingStyles(), f.events, "mg.example.com", logger)
	uc := NewIngestionUsecase(repo, f.opps.Celebrities(), f.msgs.Twitter(), messaging, f.events, Config{SigningKey: signingKey}, logger)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	dms := &fakeDMs{pages: []twitter.DMPage{{Events: []twitter.DMEvent{
		dm("e3", "c1", "u1", base.Add(3*time.Minute)),
		dm("e2", "c2", "u2", base.Add(2*time.Minute)),
		dm("e1", "c1", "u1", base.Add(1*time.Minute)),
	}}}}
	uc.SetTwitterSessions(func(*msgdomain.TwitterAuth) msgusecase.TwitterSession { return dms })

	report, err := uc.SyncTwitter(ctx)
	require.NoError(t, err)
	first := report.Accounts[0]
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 2, first.Failed, "e3 waits behind e1 in the same conversation")
	if first.SyncedTo != nil {
		assert.True(t, first.SyncedTo.Before(base.Add(1*time.Minute)))
	}

	report, err = uc.SyncTwitter(ctx)
	require.NoError(t, err)
	second := report.Accounts[0]
	assert.Equal(t, 2, second.Created)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 0, second.Failed)

	latest, err := f.opps.Opportunities().FindLatestByConversation(ctx, "c1", oppdomain.SourceTwitterDM)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "msg e3", latest.InitialMessage)

	accounts, err := f.msgs.Twitter().ListAccounts(ctx)
	require.NoError(t, err)
	require.NotNil(t, accounts[0].LastSyncedAt)
	assert.True(t, accounts[0].LastSyncedAt.Equal(base.Add(3*time.Minute)))
}

func TestSyncTwitter_Disabled(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.SyncTwitter(context.Background())
	assert.ErrorIs(t, err, domain.ErrTwitterDisabled)
}

func TestGroupByConversation(t *testing.T) {
	base := time.Now()
	convs := groupByConversation([]twitter.DMEvent{
		dm("3", "b", "x", base.Add(3*time.Second)),
		dm("2", "a", "x", base.Add(2*time.Second)),
		dm("1", "b", "x", base.Add(1*time.Second)),
	})
	require.Len(t, convs, 2)
	assert.Equal(t, "b", convs[0].id)
	assert.Equal(t, "1", convs[0].events[0].ID)
	assert.Equal(t, "3", convs[0].events[1].ID)
	assert.Equal(t, "a", convs[1].id)
}
