package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hyperagent/pkg/metrics"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// ErrUnauthorized is returned when the API rejects the access token (HTTP 401)
var ErrUnauthorized = errors.New("twitter: access token rejected")

// APIError is any other non-2xx response
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twitter api status %d: %s", e.StatusCode, e.Body)
}

// DMEvent is one entry of the /2/dm_events feed
type DMEvent struct {
	ID               string    `json:"id"`
	EventType        string    `json:"event_type"`
	Text             string    `json:"text"`
	SenderID         string    `json:"sender_id"`
	DMConversationID string    `json:"dm_conversation_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// IsMessage reports whether the event carries message text
func (e DMEvent) IsMessage() bool {
	return e.EventType == "MessageCreate"
}

// DMPage is one page of DM events, newest first
type DMPage struct {
	Events    []DMEvent
	NextToken string
}

// User is the subset of a Twitter profile stored with an opportunity
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Credentials is an OAuth2 user-context token pair
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Config configures the API client
type Config struct {
	BaseURL      string // defaults to https://api.twitter.com
	ClientID     string
	ClientSecret string
	RPS          float64
}

// Client is a minimal OAuth2 user-context client for the Twitter v2 API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	oauth      *oauth2.Config
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twitter.com"
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 5),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + "/2/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}
}

func (c *Client) do(ctx context.Context, endpoint, method, path, accessToken string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.TwitterRequests.WithLabelValues(endpoint, "error").Inc()
		return err
	}
	defer resp.Body.Close()
	metrics.TwitterRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListDMEvents returns one page of the authenticated user's DM events.
func (c *Client) ListDMEvents(ctx context.Context, accessToken, paginationToken string) (*DMPage, error) {
	q := url.Values{}
	q.Set("dm_event.fields", "id,text,event_type,dm_conversation_id,created_at,sender_id")
	q.Set("event_types", "MessageCreate")
	q.Set("max_results", "100")
	if paginationToken != "" {
		q.Set("pagination_token", paginationToken)
	}

	var raw struct {
		Data []DMEvent `json:"data"`
		Meta struct {
			NextToken string `json:"next_token"`
		} `json:"meta"`
	}
	if err := c.do(ctx, "dm_events", http.MethodGet, "/2/dm_events?"+q.Encode(), accessToken, nil, &raw); err != nil {
		return nil, err
	}
	return &DMPage{Events: raw.Data, NextToken: raw.Meta.NextToken}, nil
}

// GetUser looks up a profile by user id
func (c *Client) GetUser(ctx context.Context, accessToken, userID string) (*User, error) {
	var raw struct {
		Data User `json:"data"`
	}
	path := fmt.Sprintf("/2/users/%s?user.fields=description,name,username", url.PathEscape(userID))
	if err := c.do(ctx, "users", http.MethodGet, path, accessToken, nil, &raw); err != nil {
		return nil, err
	}
	return &raw.Data, nil
}

// GetMe returns the account that owns the access token
func (c *Client) GetMe(ctx context.Context, accessToken string) (*User, error) {
	var raw struct {
		Data User `json:"data"`
	}
	if err := c.do(ctx, "users_me", http.MethodGet, "/2/users/me", accessToken, nil, &raw); err != nil {
		return nil, err
	}
	return &raw.Data, nil
}

// SendDM posts a message into an existing conversation and returns the new event id.
func (c *Client) SendDM(ctx context.Context, accessToken, conversationID, text string) (string, error) {
	var raw struct {
		Data struct {
			DMConversationID string `json:"dm_conversation_id"`
			DMEventID        string `json:"dm_event_id"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/2/dm_conversations/%s/messages", url.PathEscape(conversationID))
	if err := c.do(ctx, "dm_send", http.MethodPost, path, accessToken, map[string]string{"text": text}, &raw); err != nil {
		return "", err
	}
	return raw.Data.DMEventID, nil
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Credentials, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Minute)}

	token, err := c.oauth.TokenSource(ctx, expired).Token()
	metrics.TwitterRequests.WithLabelValues("oauth2_token", tokenStatus(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("refresh twitter token: %w", err)
	}

	creds := &Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	// Twitter rotates refresh tokens, but keep the old one if none came back.
	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}
	return creds, nil
}

func tokenStatus(err error) string {
	if err == nil {
		return "200"
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return strconv.Itoa(re.Response.StatusCode)
	}
	return "error"
}
