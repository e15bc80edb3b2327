package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/logging"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// NewPubSubClient connects to Google Pub/Sub with an optional credentials file
func NewPubSubClient(ctx context.Context, projectID, credentialsFile string) (*pubsub.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return client, nil
}

// PubSubPublisher publishes lifecycle events to a Pub/Sub topic
type PubSubPublisher struct {
	topic  *pubsub.Topic
	logger logging.Logger
}

func NewPubSubPublisher(client *pubsub.Client, topicName string, logger logging.Logger) *PubSubPublisher {
	return &PubSubPublisher{topic: client.Topic(topicName), logger: logger}
}

// Publish sends the event without waiting for the server ack. Delivery
// errors are logged.
func (p *PubSubPublisher) Publish(ctx context.Context, event oppdomain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("Failed to encode event")
		return
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":        string(event.Type),
			"celebrityId": event.CelebrityID,
		},
	})
	go func() {
		getCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := result.Get(getCtx); err != nil {
			p.logger.WithError(err).WithFields(logging.Fields{
				"type":           event.Type,
				"opportunity_id": event.OpportunityID,
			}).Error("Failed to publish event")
		}
	}()
}

// Close flushes pending messages
func (p *PubSubPublisher) Close() {
	p.topic.Stop()
}

// Subscriber consumes lifecycle events from Pub/Sub and dispatches them
type Subscriber struct {
	client     *pubsub.Client
	dispatcher *Dispatcher
	topicName  string
	subName    string
	logger     logging.Logger
}

func NewSubscriber(client *pubsub.Client, topicName string, dispatcher *Dispatcher, logger logging.Logger) *Subscriber {
	return &Subscriber{
		client:     client,
		dispatcher: dispatcher,
		topicName:  topicName,
		subName:    topicName + "-sub",
		logger:     logger,
	}
}

// ensureSubscription creates the subscription on first start
func (s *Subscriber) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.client.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}
	if exists {
		return sub, nil
	}

	topic := s.client.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic: %w", err)
	}
	if !topicExists {
		if topic, err = s.client.CreateTopic(ctx, s.topicName); err != nil {
			return nil, fmt.Errorf("create topic: %w", err)
		}
		s.logger.WithField("topic", s.topicName).Info("Created Pub/Sub topic")
	}

	sub, err = s.client.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 30 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	s.logger.WithField("subscription", s.subName).Info("Created Pub/Sub subscription")
	return sub, nil
}

// Start blocks receiving messages until ctx is cancelled
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		return err
	}
	s.logger.WithFields(logging.Fields{
		"topic":        s.topicName,
		"subscription": s.subName,
	}).Info("Listening for opportunity events")

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var event oppdomain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			s.logger.WithError(err).WithField("message_id", msg.ID).Warn("Dropping malformed event")
			msg.Ack()
			return
		}
		s.dispatcher.Dispatch(ctx, event)
		msg.Ack()
	})
}
