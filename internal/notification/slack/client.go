package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Client is a Slack webhook client
type Client struct {
	httpClient *http.Client
	webhookURL string
}

type message struct {
	Text string `json:"text"`
}

// NewClient creates a new Slack webhook client
func NewClient(webhookURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		webhookURL: webhookURL,
	}
}

func (c *Client) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(message{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API error: status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) sendAsync(text, what string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := c.send(ctx, text); err != nil {
			log.Printf("[Slack] Failed to send %s: %v", what, err)
		}
	}()
}

// SendNewUserNotification announces a signup asynchronously
func (c *Client) SendNewUserNotification(email, displayName string) {
	if c == nil {
		return
	}
	c.sendAsync(fmt.Sprintf(":tada: New user signup: *%s* (%s)", displayName, email), "new user notification for "+email)
}

// SendJobFailure reports a background job that gave up, asynchronously
func (c *Client) SendJobFailure(job string, err error) {
	if c == nil {
		return
	}
	c.sendAsync(fmt.Sprintf(":warning: Job *%s* failed: %v", job, err), "job failure for "+job)
}
