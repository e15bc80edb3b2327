package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hyperagent/internal/messaging/domain"
	"hyperagent/internal/messaging/repository"
	oppdomain "hyperagent/internal/opportunity/domain"
	opprepo "hyperagent/internal/opportunity/repository"
	"hyperagent/pkg/ai"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/mailgun"
	"hyperagent/pkg/metrics"
	"hyperagent/pkg/twitter"

	"github.com/lib/pq"
)

const (
	statusUpdateAttempts = 3
	draftHistoryLimit    = 10
)

type messagingUsecase struct {
	oppRepo       opprepo.OpportunityRepository
	celebrityRepo opprepo.CelebrityRepository
	threadRepo    repository.ThreadRepository
	twitterRepo   repository.TwitterRepository
	styleRepo     repository.WritingStyleRepository
	publisher     oppdomain.EventPublisher
	mailDomain    string
	logger        logging.Logger

	sender   EmailSender
	sessions TwitterSessionFactory
	verifier TwitterVerifier
	drafter  ReplyDrafter
}

func NewMessagingUsecase(
	oppRepo opprepo.OpportunityRepository,
	celebrityRepo opprepo.CelebrityRepository,
	threadRepo repository.ThreadRepository,
	twitterRepo repository.TwitterRepository,
	styleRepo repository.WritingStyleRepository,
	publisher oppdomain.EventPublisher,
	mailDomain string,
	logger logging.Logger,
) MessagingUsecase {
	if publisher == nil {
		publisher = oppdomain.NopPublisher{}
	}
	return &messagingUsecase{
		oppRepo:       oppRepo,
		celebrityRepo: celebrityRepo,
		threadRepo:    threadRepo,
		twitterRepo:   twitterRepo,
		styleRepo:     styleRepo,
		publisher:     publisher,
		mailDomain:    mailDomain,
		logger:        logger,
	}
}

func (u *messagingUsecase) SetEmailSender(sender EmailSender) {
	u.sender = sender
}

func (u *messagingUsecase) SetTwitter(sessions TwitterSessionFactory, verifier TwitterVerifier) {
	u.sessions = sessions
	u.verifier = verifier
}

func (u *messagingUsecase) SetDrafter(drafter ReplyDrafter) {
	u.drafter = drafter
}

func (u *messagingUsecase) ownedOpportunity(ctx context.Context, celebrityID, id string) (*oppdomain.Opportunity, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrOpportunityIDRequired
	}
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

func (u *messagingUsecase) SendEmail(ctx context.Context, celebrityID string, in SendEmailInput) (*domain.EmailMessage, error) {
	if strings.TrimSpace(in.OpportunityID) == "" {
		return nil, domain.ErrOpportunityIDRequired
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, domain.ErrMessageRequired
	}
	if u.sender == nil {
		return nil, domain.ErrEmailNotConfigured
	}
	opp, err := u.ownedOpportunity(ctx, celebrityID, in.OpportunityID)
	if err != nil {
		return nil, err
	}
	if opp.SenderEmail == "" {
		return nil, domain.ErrNoRecipient
	}

	// The thread is only created once the send succeeds.
	existing, err := u.threadRepo.FindByOpportunity(ctx, opp.ID)
	if err != nil {
		return nil, err
	}
	threadSubject := replySubject(opp.Subject)
	if existing != nil {
		threadSubject = existing.Subject
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = threadSubject
	}

	replyTo := mailgun.ReplyAddress(opp.ID, u.mailDomain)
	providerID, err := u.sender.Send(ctx, mailgun.Message{
		To:      opp.SenderEmail,
		Subject: subject,
		Text:    in.Message,
		ReplyTo: replyTo,
	})
	if err != nil {
		metrics.OutboundMessages.WithLabelValues("email", "error").Inc()
		u.logger.WithError(err).WithField("opportunity_id", opp.ID).Error("Failed to send email")
		return nil, fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
	}
	metrics.OutboundMessages.WithLabelValues("email", "ok").Inc()

	thread := existing
	if thread == nil {
		if thread, err = u.findOrCreateThread(ctx, opp.ID, threadSubject); err != nil {
			return nil, fmt.Errorf("failed to record sent email: %w", err)
		}
	}
	msg := &domain.EmailMessage{
		ThreadID:          thread.ID,
		Direction:         domain.DirectionOutbound,
		FromAddress:       replyTo,
		ToAddress:         opp.SenderEmail,
		Subject:           subject,
		Body:              in.Message,
		ProviderMessageID: providerID,
		CreatedAt:         time.Now(),
	}
	if err := u.threadRepo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to record sent email: %w", err)
	}

	u.markConversationStarted(ctx, opp)
	return msg, nil
}

func (u *messagingUsecase) SendTwitter(ctx context.Context, celebrityID string, in SendTwitterInput) (*domain.TwitterMessage, error) {
	if strings.TrimSpace(in.OpportunityID) == "" {
		return nil, domain.ErrOpportunityIDRequired
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, domain.ErrMessageRequired
	}
	opp, err := u.ownedOpportunity(ctx, celebrityID, in.OpportunityID)
	if err != nil {
		return nil, err
	}
	if opp.ConversationID == "" {
		return nil, domain.ErrNoConversation
	}
	if u.sessions == nil {
		return nil, domain.ErrTwitterNotConnected
	}
	account, err := u.twitterRepo.FindAccountByCelebrity(ctx, opp.CelebrityID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrTwitterNotConnected
	}

	eventID, err := u.sessions(account).SendDM(ctx, opp.ConversationID, in.Message)
	if err != nil {
		metrics.OutboundMessages.WithLabelValues("twitter", "error").Inc()
		u.logger.WithError(err).WithFields(logging.Fields{
			"opportunity_id": opp.ID,
			"account_id":     account.ID,
		}).Error("Failed to send twitter DM")
		return nil, fmt.Errorf("%w: %v", domain.ErrSendFailed, err)
	}
	metrics.OutboundMessages.WithLabelValues("twitter", "ok").Inc()

	msg := &domain.TwitterMessage{
		OpportunityID:   opp.ID,
		ConversationID:  opp.ConversationID,
		Direction:       domain.DirectionOutbound,
		Text:            in.Message,
		ProviderEventID: eventID,
		CreatedAt:       time.Now(),
	}
	if err := u.twitterRepo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to record sent DM: %w", err)
	}

	u.markConversationStarted(ctx, opp)
	return msg, nil
}

// markConversationStarted moves the opportunity to conversation_started,
// re-reading on revision conflicts. The message is already out, so a
// failure here is logged rather than returned.
func (u *messagingUsecase) markConversationStarted(ctx context.Context, opp *oppdomain.Opportunity) {
	current := opp
	for attempt := 0; attempt < statusUpdateAttempts; attempt++ {
		if current.Status == oppdomain.StatusConversationStarted {
			return
		}
		revision := current.Revision
		current.Status = oppdomain.StatusConversationStarted
		err := u.oppRepo.Update(ctx, current, revision)
		if err == nil {
			u.publisher.Publish(ctx, oppdomain.NewEvent(oppdomain.EventStatusChanged, current))
			return
		}
		if !errors.Is(err, oppdomain.ErrRevisionConflict) {
			u.logger.WithError(err).WithField("opportunity_id", opp.ID).Error("Failed to update opportunity status after send")
			return
		}
		reloaded, err := u.oppRepo.FindByID(ctx, opp.ID)
		if err != nil || reloaded == nil {
			u.logger.WithError(err).WithField("opportunity_id", opp.ID).Error("Failed to reload opportunity after conflict")
			return
		}
		current = reloaded
	}
	u.logger.WithField("opportunity_id", opp.ID).Warn("Gave up updating opportunity status after repeated conflicts")
}

func (u *messagingUsecase) findOrCreateThread(ctx context.Context, opportunityID, subject string) (*domain.EmailThread, error) {
	thread, err := u.threadRepo.FindByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		return thread, nil
	}
	if err := u.threadRepo.Create(ctx, &domain.EmailThread{
		OpportunityID: opportunityID,
		Subject:       subject,
		Status:        domain.ThreadActive,
	}); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	// Re-read so a concurrently created thread wins.
	thread, err = u.threadRepo.FindByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, domain.ErrThreadNotFound
	}
	return thread, nil
}

func (u *messagingUsecase) RecordInboundEmail(ctx context.Context, opportunityID string, in InboundEmail) (*domain.EmailMessage, error) {
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = "(no subject)"
	}
	thread, err := u.findOrCreateThread(ctx, opportunityID, subject)
	if err != nil {
		return nil, err
	}
	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	msg := &domain.EmailMessage{
		ThreadID:          thread.ID,
		Direction:         domain.DirectionInbound,
		FromAddress:       in.From,
		ToAddress:         in.To,
		Subject:           in.Subject,
		Body:              in.Body,
		ProviderMessageID: in.ProviderMessageID,
		CreatedAt:         receivedAt,
	}
	if err := u.threadRepo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to record inbound email: %w", err)
	}
	return msg, nil
}

func (u *messagingUsecase) GetThread(ctx context.Context, celebrityID, opportunityID string) (*ThreadView, error) {
	opp, err := u.ownedOpportunity(ctx, celebrityID, opportunityID)
	if err != nil {
		return nil, err
	}
	view := &ThreadView{
		Messages:        []*domain.EmailMessage{},
		TwitterMessages: []*domain.TwitterMessage{},
	}

	thread, err := u.threadRepo.FindByOpportunity(ctx, opp.ID)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		view.Thread = thread
		msgs, err := u.threadRepo.ListMessages(ctx, thread.ID)
		if err != nil {
			return nil, err
		}
		if msgs != nil {
			view.Messages = msgs
		}
	}

	dms, err := u.twitterRepo.ListMessages(ctx, opp.ID)
	if err != nil {
		return nil, err
	}
	if dms != nil {
		view.TwitterMessages = dms
	}
	return view, nil
}

func (u *messagingUsecase) UpdateThreadStatus(ctx context.Context, celebrityID, threadID string, status domain.ThreadStatus) (*domain.EmailThread, error) {
	if !status.IsValid() {
		return nil, domain.ErrInvalidThreadStatus
	}
	thread, err := u.threadRepo.FindByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return nil, domain.ErrThreadNotFound
	}
	if _, err := u.ownedOpportunity(ctx, celebrityID, thread.OpportunityID); err != nil {
		return nil, err
	}
	if err := u.threadRepo.UpdateStatus(ctx, thread.ID, status); err != nil {
		return nil, err
	}
	thread.Status = status
	return thread, nil
}

func (u *messagingUsecase) DraftReply(ctx context.Context, celebrityID string, in DraftInput) (string, error) {
	if u.drafter == nil {
		return "", domain.ErrDraftUnavailable
	}
	opp, err := u.ownedOpportunity(ctx, celebrityID, in.OpportunityID)
	if err != nil {
		return "", err
	}

	draftIn := ai.DraftInput{
		SenderHandle:   opp.SenderHandle,
		Channel:        in.Channel,
		InitialMessage: opp.InitialMessage,
		Instructions:   in.Instructions,
	}
	if draftIn.Channel == "" {
		draftIn.Channel = defaultChannel(opp.Source)
	}
	if celebrity, err := u.celebrityRepo.FindByID(ctx, opp.CelebrityID); err == nil && celebrity != nil {
		draftIn.CelebrityName = celebrity.Name
	}
	if style, err := u.styleRepo.FindByCelebrity(ctx, opp.CelebrityID); err != nil {
		return "", err
	} else if style != nil {
		draftIn.Tone = style.Tone
		draftIn.Signature = style.Signature
		draftIn.Examples = style.Examples
	}

	view, err := u.GetThread(ctx, celebrityID, opp.ID)
	if err != nil {
		return "", err
	}
	draftIn.Thread = history(view, draftHistoryLimit)

	draft, err := u.drafter.DraftReply(ctx, draftIn)
	if err != nil {
		u.logger.WithError(err).WithField("opportunity_id", opp.ID).Error("Reply drafting failed")
		return "", fmt.Errorf("draft reply: %w", err)
	}
	return draft, nil
}

func (u *messagingUsecase) GetWritingStyle(ctx context.Context, celebrityID string) (*domain.WritingStyle, error) {
	if celebrityID == "" {
		return nil, oppdomain.ErrForbidden
	}
	style, err := u.styleRepo.FindByCelebrity(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	if style == nil {
		return &domain.WritingStyle{CelebrityID: celebrityID, Examples: pq.StringArray{}}, nil
	}
	return style, nil
}

func (u *messagingUsecase) SaveWritingStyle(ctx context.Context, celebrityID string, in WritingStyleInput) (*domain.WritingStyle, error) {
	if celebrityID == "" {
		return nil, oppdomain.ErrForbidden
	}
	examples := pq.StringArray{}
	for _, e := range in.Examples {
		if e = strings.TrimSpace(e); e != "" {
			examples = append(examples, e)
		}
	}
	style := &domain.WritingStyle{
		CelebrityID: celebrityID,
		Tone:        strings.TrimSpace(in.Tone),
		Signature:   strings.TrimSpace(in.Signature),
		Examples:    examples,
	}
	if err := u.styleRepo.Save(ctx, style); err != nil {
		return nil, err
	}
	return style, nil
}

func (u *messagingUsecase) ConnectTwitter(ctx context.Context, celebrityID string, creds twitter.Credentials) (*domain.TwitterAuth, error) {
	if celebrityID == "" {
		return nil, oppdomain.ErrForbidden
	}
	if u.verifier == nil {
		return nil, domain.ErrTwitterNotConnected
	}
	me, err := u.verifier.GetMe(ctx, creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("verify twitter credentials: %w", err)
	}
	account := &domain.TwitterAuth{
		CelebrityID:   celebrityID,
		TwitterUserID: me.ID,
		Username:      me.Username,
		AccessToken:   creds.AccessToken,
		RefreshToken:  creds.RefreshToken,
	}
	if !creds.ExpiresAt.IsZero() {
		expiresAt := creds.ExpiresAt
		account.ExpiresAt = &expiresAt
	}
	if err := u.twitterRepo.SaveAccount(ctx, account); err != nil {
		return nil, err
	}
	u.logger.WithFields(logging.Fields{
		"celebrity_id": celebrityID,
		"username":     me.Username,
	}).Info("Connected twitter account")
	return account, nil
}

// replySubject prefixes "Re: " once.
func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Re: your message"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func defaultChannel(source oppdomain.Source) string {
	if source == oppdomain.SourceTwitterDM {
		return "twitter"
	}
	return "email"
}

// history flattens the latest messages of both channels, oldest first.
func history(view *ThreadView, limit int) []string {
	type line struct {
		at   time.Time
		text string
	}
	var lines []line
	for _, m := range view.Messages {
		lines = append(lines, line{m.CreatedAt, fmt.Sprintf("[%s] %s", m.Direction, m.Body)})
	}
	for _, m := range view.TwitterMessages {
		lines = append(lines, line{m.CreatedAt, fmt.Sprintf("[%s] %s", m.Direction, m.Text)})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].at.Before(lines[j].at) })
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.text)
	}
	return out
}
