package fcm

import (
	"context"
	"fmt"

	"hyperagent/pkg/logging"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
	logger          logging.Logger
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string, logger logging.Logger) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	logger.Info("FCM client initialized")
	return &Client{
		messagingClient: messagingClient,
		logger:          logger,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string
	// Link opens when the notification is clicked
	Link string
}

func webpush(n NotificationData) *messaging.WebpushConfig {
	cfg := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Title: n.Title,
			Body:  n.Body,
			Icon:  "/icon-192.svg",
		},
	}
	if n.Link != "" {
		cfg.FCMOptions = &messaging.WebpushFCMOptions{Link: n.Link}
	}
	return cfg
}

// SendToDevices sends a push notification to multiple device tokens.
// Returns the tokens that failed to receive it.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data:    notification.Data,
		Webpush: webpush(notification),
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"success": response.SuccessCount,
		"failure": response.FailureCount,
	}).Debug("FCM multicast sent")

	var failedTokens []string
	for i, resp := range response.Responses {
		if !resp.Success {
			failedTokens = append(failedTokens, tokens[i])
			c.logger.WithError(resp.Error).WithField("token", truncateToken(tokens[i])).Warn("FCM delivery failed")
		}
	}
	return failedTokens, nil
}

func truncateToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
