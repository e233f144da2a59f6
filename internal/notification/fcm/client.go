package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	DefaultBaseURL = "https://fcm.googleapis.com"
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
)

// ErrUnregistered means FCM no longer accepts the registration token.
var ErrUnregistered = errors.New("fcm: registration token is no longer valid")

// Message represents an FCM message
type Message struct {
	Token        string            `json:"token,omitempty"`
	Notification *Notification     `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *AndroidConfig    `json:"android,omitempty"`
}

// Notification represents the notification payload
type Notification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// AndroidConfig represents Android-specific configuration
type AndroidConfig struct {
	Priority     string               `json:"priority,omitempty"`
	Notification *AndroidNotification `json:"notification,omitempty"`
}

// AndroidNotification represents Android notification options
type AndroidNotification struct {
	ChannelID string `json:"channel_id,omitempty"`
	Sound     string `json:"sound,omitempty"`
	Priority  string `json:"notification_priority,omitempty"`
}

// Client is an FCM HTTP v1 client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	projectID   string
	tokenSource oauth2.TokenSource
}

// Config holds FCM configuration
type Config struct {
	ProjectID       string
	CredentialsJSON string
	BaseURL         string
}

// NewClient creates a new FCM client from a service account key.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(config.CredentialsJSON), messagingScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return newClient(config, creds.TokenSource), nil
}

func newClient(config Config, ts oauth2.TokenSource) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     baseURL,
		projectID:   config.ProjectID,
		tokenSource: oauth2.ReuseTokenSource(nil, ts),
	}
}

// Send sends a visible notification plus data to one device
func (c *Client) Send(ctx context.Context, token string, notification *Notification, data map[string]string) error {
	return c.sendMessage(ctx, Message{
		Token:        token,
		Notification: notification,
		Data:         data,
		Android: &AndroidConfig{
			Priority: "high",
			Notification: &AndroidNotification{
				ChannelID: "reminders",
				Priority:  "PRIORITY_HIGH",
			},
		},
	})
}

func (c *Client) sendMessage(ctx context.Context, message Message) error {
	payloadBytes, err := json.Marshal(map[string]interface{}{"message": message})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.baseURL, c.projectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return ErrUnregistered
	}
	return fmt.Errorf("FCM error: %s - %s", resp.Status, string(body))
}
