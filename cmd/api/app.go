package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	authdomain "hyperagent/internal/auth/domain"
	authrepo "hyperagent/internal/auth/repository"
	authusecase "hyperagent/internal/auth/usecase"
	"hyperagent/internal/classification/scheduler"
	clsusecase "hyperagent/internal/classification/usecase"
	ingusecase "hyperagent/internal/ingestion/usecase"
	msgdomain "hyperagent/internal/messaging/domain"
	msgrepo "hyperagent/internal/messaging/repository"
	msgusecase "hyperagent/internal/messaging/usecase"
	"hyperagent/internal/notification"
	oppdomain "hyperagent/internal/opportunity/domain"
	opprepo "hyperagent/internal/opportunity/repository"
	oppusecase "hyperagent/internal/opportunity/usecase"
	trrepo "hyperagent/internal/transcript/repository"
	trusecase "hyperagent/internal/transcript/usecase"
	"hyperagent/pkg/ai"
	"hyperagent/pkg/chroma"
	"hyperagent/pkg/config"
	"hyperagent/pkg/database"
	"hyperagent/pkg/fcm"
	"hyperagent/pkg/lock"
	"hyperagent/pkg/logging"
	"hyperagent/pkg/mailgun"
	"hyperagent/pkg/twitter"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrAIUnavailable is returned by model-backed operations when no provider is configured
var ErrAIUnavailable = errors.New("no AI provider configured")

// Models lists every table the service owns
func Models() []interface{} {
	return []interface{}{
		&oppdomain.Celebrity{},
		&oppdomain.Goal{},
		&oppdomain.Opportunity{},
		&oppdomain.Comment{},
		&msgdomain.EmailThread{},
		&msgdomain.EmailMessage{},
		&msgdomain.TwitterAuth{},
		&msgdomain.TwitterMessage{},
		&msgdomain.WritingStyle{},
		&authdomain.User{},
		&authdomain.InviteCode{},
		&authdomain.FCMToken{},
	}
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

type repositories struct {
	opportunities opprepo.OpportunityRepository
	goals         opprepo.GoalRepository
	celebrities   opprepo.CelebrityRepository
	comments      opprepo.CommentRepository
	threads       msgrepo.ThreadRepository
	twitter       msgrepo.TwitterRepository
	styles        msgrepo.WritingStyleRepository
	users         authrepo.UserRepository
	invites       authrepo.InviteCodeRepository
	fcmTokens     authrepo.FCMTokenRepository
}

func gormRepositories(db *gorm.DB) repositories {
	return repositories{
		opportunities: opprepo.NewGormOpportunityRepository(db),
		goals:         opprepo.NewGormGoalRepository(db),
		celebrities:   opprepo.NewGormCelebrityRepository(db),
		comments:      opprepo.NewGormCommentRepository(db),
		threads:       msgrepo.NewGormThreadRepository(db),
		twitter:       msgrepo.NewGormTwitterRepository(db),
		styles:        msgrepo.NewGormWritingStyleRepository(db),
		users:         authrepo.NewUserRepository(db),
		invites:       authrepo.NewInviteCodeRepository(db),
		fcmTokens:     authrepo.NewFCMTokenRepository(db),
	}
}

func memoryRepositories() repositories {
	opps := opprepo.NewMemoryStore()
	msgs := msgrepo.NewMemoryStore()
	auth := authrepo.NewMemoryStore()
	return repositories{
		opportunities: opps.Opportunities(),
		goals:         opps.Goals(),
		celebrities:   opps.Celebrities(),
		comments:      opps.Comments(),
		threads:       msgs.Threads(),
		twitter:       msgs.Twitter(),
		styles:        msgs.WritingStyles(),
		users:         auth.Users(),
		invites:       auth.InviteCodes(),
		fcmTokens:     auth.FCMTokens(),
	}
}

// App holds every wired component of the service
type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Settings *RuntimeSettings
	AI       ai.Service

	Auth          authusecase.AuthUsecase
	Opportunities oppusecase.OpportunityUsecase
	Goals         oppusecase.GoalUsecase
	Ingestion     ingusecase.IngestionUsecase
	Sweeper       clsusecase.SweepUsecase
	Messaging     msgusecase.MessagingUsecase
	Transcripts   trusecase.TranscriptUsecase

	db          *gorm.DB
	redis       goredis.UniversalClient
	scheduler   *scheduler.SweepScheduler
	indexWorker *oppusecase.IndexWorker
	subscriber  *notification.Subscriber
	closers     []func()
	started     bool
}

// NewApp connects the configured backends. Optional integrations that fail
// to initialise are logged and left disabled.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Settings: NewRuntimeSettings(cfg)}

	var repos repositories
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			return nil, err
		}
		app.db = db
		repos = gormRepositories(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		repos = memoryRepositories()
	}

	aiService, err := ai.NewService(ai.Config{
		Provider:       ai.ProviderType(cfg.AIProvider),
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		DeepseekAPIKey: cfg.DeepseekAPIKey,
		DeepseekModel:  cfg.DeepseekModel,
		GetModel:       app.Settings.Model,
		Logger:         logger,
	})
	if err != nil {
		logger.WithError(err).Warn("AI service disabled")
		aiService = unavailableAI{}
	} else {
		logger.WithField("provider", cfg.AIProvider).Info("AI service initialized")
	}
	app.AI = aiService

	// Events
	dispatcher := notification.NewDispatcher(repos.users, repos.fcmTokens, cfg.SiteURL, logger)
	publisher := app.eventPublisher(ctx, dispatcher)

	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials, logger)
		if err != nil {
			logger.WithError(err).Warn("Push notifications disabled")
		} else {
			dispatcher.SetPusher(fcmClient)
		}
	}

	app.Auth = authusecase.NewAuthUsecase(repos.users, repos.invites, repos.fcmTokens, cfg.JWTSecret, cfg.JWTExpiry)

	// Opportunities and semantic index
	app.Opportunities = oppusecase.NewOpportunityUsecase(repos.opportunities, repos.goals, repos.comments, publisher, logger)
	app.Goals = oppusecase.NewGoalUsecase(repos.goals)
	if cfg.ChromaAPIKey != "" {
		index, err := chroma.NewChromaClient(cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("Semantic search disabled")
		} else {
			app.Opportunities.SetSemanticIndex(index)
			app.indexWorker = oppusecase.NewIndexWorker(repos.opportunities, index, 2, logger)
			dispatcher.SetIndexer(app.indexWorker)
		}
	}
	if cfg.PerplexityAPIKey != "" {
		researcher, err := ai.NewPerplexityResearcher(cfg.PerplexityAPIKey, cfg.PerplexityModel)
		if err != nil {
			logger.WithError(err).Warn("Sender research disabled")
		} else {
			app.Opportunities.SetResearcher(researcher)
		}
	}

	// Messaging
	app.Messaging = msgusecase.NewMessagingUsecase(
		repos.opportunities, repos.celebrities,
		repos.threads, repos.twitter, repos.styles,
		publisher, cfg.MailgunDomain, logger,
	)
	if cfg.MailgunAPIKey != "" && cfg.MailgunDomain != "" {
		sender, err := mailgun.NewClient(mailgun.Config{
			APIKey:   cfg.MailgunAPIKey,
			Domain:   cfg.MailgunDomain,
			FromName: cfg.MailgunFromName,
			EU:       cfg.MailgunEU,
		})
		if err != nil {
			logger.WithError(err).Warn("Outbound email disabled")
		} else {
			app.Messaging.SetEmailSender(sender)
		}
	}
	if _, ok := aiService.(unavailableAI); !ok {
		app.Messaging.SetDrafter(aiService)
	}

	// Ingestion
	app.Ingestion = ingusecase.NewIngestionUsecase(
		repos.opportunities, repos.celebrities, repos.twitter,
		app.Messaging, publisher,
		ingusecase.Config{SigningKey: cfg.MailgunWebhookSigningKey},
		logger,
	)
	if cfg.TwitterClientID != "" {
		client := twitter.NewClient(twitter.Config{
			BaseURL:      cfg.TwitterAPIBaseURL,
			ClientID:     cfg.TwitterClientID,
			ClientSecret: cfg.TwitterClientSecret,
			RPS:          cfg.TwitterRPS,
		})
		sessions := msgusecase.PersistingSessions(client, repos.twitter, logger)
		app.Messaging.SetTwitter(sessions, client)
		app.Ingestion.SetTwitterSessions(sessions)
	} else {
		logger.Warn("TWITTER_CLIENT_ID not set, Twitter DMs disabled")
	}

	// Classification
	app.Sweeper = clsusecase.NewSweepUsecase(
		repos.opportunities, repos.goals, aiService,
		app.locker(),
		publisher,
		clsusecase.Config{
			BatchSize:      cfg.ClassifyBatchSize,
			Concurrency:    cfg.ClassifyConcurrency,
			Timeout:        cfg.ClassifyTimeout,
			NotifyMinScore: cfg.NotifyMinScore,
		},
		logger,
	)
	app.scheduler = scheduler.NewSweepScheduler(app.Sweeper, cfg.ClassifyInterval, logger)

	// Transcripts
	app.Transcripts = trusecase.NewTranscriptUsecase(
		repos.opportunities, aiService, app.sessionStore(), publisher,
		trusecase.Config{}, logger,
	)

	return app, nil
}

// eventPublisher publishes through Pub/Sub when a project is configured and
// dispatches in-process otherwise.
func (a *App) eventPublisher(ctx context.Context, dispatcher *notification.Dispatcher) oppdomain.EventPublisher {
	cfg := a.Config
	if cfg.GoogleProjectID != "" {
		client, err := notification.NewPubSubClient(ctx, cfg.GoogleProjectID, cfg.GoogleCredentials)
		if err == nil {
			topic := topicName(cfg.GooglePubSubTopic)
			publisher := notification.NewPubSubPublisher(client, topic, a.Logger)
			a.subscriber = notification.NewSubscriber(client, topic, dispatcher, a.Logger)
			a.closers = append(a.closers, publisher.Close, func() { _ = client.Close() })
			a.Logger.WithField("topic", topic).Info("Publishing events to Pub/Sub")
			return publisher
		}
		a.Logger.WithError(err).Warn("Pub/Sub unavailable, dispatching events in process")
	}
	local := notification.NewLocalPublisher(dispatcher, 0, a.Logger)
	a.closers = append(a.closers, local.Close)
	return local
}

// redisClient connects once on first use; nil when REDIS_ADDR is unset
func (a *App) redisClient() goredis.UniversalClient {
	if a.Config.RedisAddr == "" {
		return nil
	}
	if a.redis == nil {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
		})
		a.closers = append(a.closers, func() { _ = a.redis.Close() })
		a.Logger.WithField("addr", a.Config.RedisAddr).Info("Using Redis for leases and review sessions")
	}
	return a.redis
}

func (a *App) locker() lock.Locker {
	client := a.redisClient()
	if client == nil {
		return lock.NewMemoryLocker()
	}
	return lock.NewRedisLocker(client, "hyperagent:lock:")
}

func (a *App) sessionStore() trrepo.SessionStore {
	client := a.redisClient()
	if client == nil {
		return trrepo.NewMemorySessionStore()
	}
	return trrepo.NewRedisSessionStore(client, "hyperagent:session:")
}

// topicName accepts either a short name or projects/<p>/topics/<name>
func topicName(topic string) string {
	if parts := strings.Split(topic, "/"); len(parts) > 1 {
		topic = parts[len(parts)-1]
	}
	if topic == "" {
		topic = "opportunity-events"
	}
	return topic
}

// DB returns the database handle, nil for in-memory runs
func (a *App) DB() *gorm.DB { return a.db }

// StartBackground launches workers that run until ctx is cancelled
func (a *App) StartBackground(ctx context.Context) {
	a.started = true
	if a.indexWorker != nil {
		a.indexWorker.Start()
	}
	a.scheduler.Start()
	if a.subscriber != nil {
		go func() {
			if err := a.subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.WithError(err).Error("Event subscriber stopped")
			}
		}()
	}
}

// Close stops background work and releases connections
func (a *App) Close() {
	if a.started {
		a.scheduler.Stop()
	}
	// drains queued events before the index worker goes away
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.indexWorker != nil {
		a.indexWorker.Stop()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// unavailableAI stands in when no provider is configured so that
// model-backed endpoints fail per request instead of at startup.
type unavailableAI struct{}

func (unavailableAI) Classify(context.Context, ai.ClassificationInput) (*ai.Classification, error) {
	return nil, ErrAIUnavailable
}

func (unavailableAI) IdentifyOpportunities(context.Context, string, []ai.Candidate) ([]ai.IdentifiedOpportunity, error) {
	return nil, ErrAIUnavailable
}

func (unavailableAI) InferStatus(context.Context, ai.InferenceInput) (*ai.StatusInference, error) {
	return nil, ErrAIUnavailable
}

func (unavailableAI) DraftReply(context.Context, ai.DraftInput) (string, error) {
	return "", ErrAIUnavailable
}

func (unavailableAI) Ping(context.Context) error {
	return fmt.Errorf("ping: %w", ErrAIUnavailable)
}
