package mailgun

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// Message is one outbound email
type Message struct {
	To      string
	Subject string
	Text    string
	ReplyTo string
	// Headers are extra MIME headers, e.g. In-Reply-To
	Headers map[string]string
}

// Sender delivers outbound email and returns the provider message id
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Config configures the Mailgun client
type Config struct {
	APIKey   string
	Domain   string
	FromName string
	EU       bool
}

// Client sends email through the Mailgun HTTP API
type Client struct {
	mg   *mailgun.MailgunImpl
	from string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.Domain == "" {
		return nil, fmt.Errorf("MAILGUN_API_KEY and MAILGUN_DOMAIN are required")
	}
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.EU {
		mg.SetAPIBase(mailgun.APIBaseEU)
	}
	return &Client{
		mg:   mg,
		from: FromAddress(cfg.FromName, cfg.Domain),
	}, nil
}

func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	m := c.mg.NewMessage(c.from, msg.Subject, msg.Text, msg.To)
	if msg.ReplyTo != "" {
		m.SetReplyTo(msg.ReplyTo)
	}
	for k, v := range msg.Headers {
		m.AddHeader(k, v)
	}

	_, id, err := c.mg.Send(ctx, m)
	if err != nil {
		return "", fmt.Errorf("mailgun send: %w", err)
	}
	return id, nil
}
