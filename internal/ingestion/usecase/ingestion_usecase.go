package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hyperagent/internal/ingestion/domain"
	msgrepo "hyperagent/internal/messaging/repository"
	msgusecase "hyperagent/internal/messaging/usecase"
	oppdomain "hyperagent/internal/opportunity/domain"
	opprepo "hyperagent/internal/opportunity/repository"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/mailgun"
	"hyperagent/pkg/metrics"
)

// Config carries the ingestion settings read from the environment
type Config struct {
	SigningKey         string
	TwitterConcurrency int
	TwitterMaxPages    int
}

type ingestionUsecase struct {
	oppRepo       opprepo.OpportunityRepository
	celebrityRepo opprepo.CelebrityRepository
	twitterRepo   msgrepo.TwitterRepository
	inbound       InboundRecorder
	publisher     oppdomain.EventPublisher
	cfg           Config
	logger        logging.Logger

	sessions msgusecase.TwitterSessionFactory
	now      func() time.Time
}

func NewIngestionUsecase(
	oppRepo opprepo.OpportunityRepository,
	celebrityRepo opprepo.CelebrityRepository,
	twitterRepo msgrepo.TwitterRepository,
	inbound InboundRecorder,
	publisher oppdomain.EventPublisher,
	cfg Config,
	logger logging.Logger,
) IngestionUsecase {
	if publisher == nil {
		publisher = oppdomain.NopPublisher{}
	}
	if cfg.TwitterConcurrency <= 0 {
		cfg.TwitterConcurrency = 4
	}
	if cfg.TwitterMaxPages <= 0 {
		cfg.TwitterMaxPages = 20
	}
	return &ingestionUsecase{
		oppRepo:       oppRepo,
		celebrityRepo: celebrityRepo,
		twitterRepo:   twitterRepo,
		inbound:       inbound,
		publisher:     publisher,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

func (u *ingestionUsecase) SetTwitterSessions(sessions msgusecase.TwitterSessionFactory) {
	u.sessions = sessions
}

// create stores a new opportunity and announces it.
func (u *ingestionUsecase) create(ctx context.Context, opp *oppdomain.Opportunity) error {
	if err := u.oppRepo.Create(ctx, opp); err != nil {
		return fmt.Errorf("failed to create opportunity: %w", err)
	}
	metrics.OpportunitiesIngested.WithLabelValues(string(opp.Source)).Inc()
	u.publisher.Publish(ctx, oppdomain.NewEvent(oppdomain.EventCreated, opp))
	u.logger.WithFields(logging.Fields{
		"opportunity_id": opp.ID,
		"celebrity_id":   opp.CelebrityID,
		"source":         opp.Source,
	}).Info("Ingested opportunity")
	return nil
}

func (u *ingestionUsecase) SubmitWidget(ctx context.Context, in domain.WidgetSubmission) (*oppdomain.Opportunity, error) {
	celebrityID := strings.TrimSpace(in.CelebrityID)
	email := strings.TrimSpace(in.Email)
	message := strings.TrimSpace(in.Message)
	switch {
	case celebrityID == "":
		return nil, domain.ErrCelebrityIDRequired
	case email == "":
		return nil, domain.ErrEmailRequired
	case message == "":
		return nil, domain.ErrMessageRequired
	}
	_, address := mailgun.ParseSender(email)
	if !strings.Contains(address, "@") {
		return nil, domain.ErrInvalidEmail
	}

	celebrity, err := u.celebrityRepo.FindByID(ctx, celebrityID)
	if err != nil {
		return nil, err
	}
	if celebrity == nil {
		return nil, oppdomain.ErrCelebrityNotFound
	}

	opp := oppdomain.NewInbound(celebrity.ID, oppdomain.SourceWidget, address, message, u.now())
	opp.SenderEmail = address
	opp.SenderName = strings.TrimSpace(in.Name)
	if err := u.create(ctx, opp); err != nil {
		return nil, err
	}
	return opp, nil
}

func (u *ingestionUsecase) HandleInboundEmail(ctx context.Context, in domain.InboundEmail) (*domain.InboundResult, error) {
	if err := mailgun.VerifySignature(u.cfg.SigningKey, in.Timestamp, in.Token, in.Signature); err != nil {
		return nil, err
	}

	from := in.From
	if from == "" {
		from = in.Sender
	}
	senderName, senderAddress := mailgun.ParseSender(from)
	recipients := mailgun.Recipients(in.Recipient)
	receivedAt := u.now()
	if ts, err := parseUnix(in.Timestamp); err == nil {
		receivedAt = ts
	}
	email := msgusecase.InboundEmail{
		From:              senderAddress,
		To:                in.Recipient,
		Subject:           in.Subject,
		Body:              in.Body(),
		ProviderMessageID: in.MessageID,
		ReceivedAt:        receivedAt,
	}

	// Replies to an outbound message route through reply+<id>@domain.
	for _, rcpt := range recipients {
		id, ok := mailgun.ParseReplyAddress(rcpt)
		if !ok {
			continue
		}
		opp, err := u.oppRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if opp == nil {
			return nil, oppdomain.ErrOpportunityNotFound
		}
		if _, err := u.inbound.RecordInboundEmail(ctx, opp.ID, email); err != nil {
			return nil, err
		}
		return &domain.InboundResult{OpportunityID: opp.ID, Reply: true}, nil
	}

	for _, rcpt := range recipients {
		celebrity, err := u.celebrityRepo.FindByInboundEmail(ctx, rcpt)
		if err != nil {
			return nil, err
		}
		if celebrity == nil {
			continue
		}

		if in.MessageID != "" {
			existing, err := u.oppRepo.FindLatestByConversation(ctx, in.MessageID, oppdomain.SourceEmail)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return &domain.InboundResult{OpportunityID: existing.ID}, nil
			}
		}

		opp := oppdomain.NewInbound(celebrity.ID, oppdomain.SourceEmail, senderAddress, email.Body, receivedAt)
		opp.SenderName = senderName
		opp.SenderEmail = senderAddress
		opp.Subject = strings.TrimSpace(in.Subject)
		opp.ConversationID = in.MessageID
		opp.ExternalID = in.MessageID
		if err := u.create(ctx, opp); err != nil {
			return nil, err
		}
		if _, err := u.inbound.RecordInboundEmail(ctx, opp.ID, email); err != nil {
			return nil, err
		}
		return &domain.InboundResult{OpportunityID: opp.ID, Created: true}, nil
	}

	return nil, domain.ErrUnknownRecipient
}

func parseUnix(ts string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}
