package apns

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ProductionURL  = "https://api.push.apple.com"
	DevelopmentURL = "https://api.sandbox.push.apple.com"
)

// ErrUnregistered means APNs no longer accepts the device token.
var ErrUnregistered = errors.New("apns: device token is no longer registered")

// Notification represents an APNs alert
type Notification struct {
	DeviceToken string
	Title       string
	Body        string
	Sound       string
	Category    string
	ThreadID    string
	Data        map[string]interface{}
}

// Client is an APNs client
type Client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	teamID     string
	bundleID   string
	privateKey *ecdsa.PrivateKey

	// JWT token caching
	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// Config holds APNs configuration
type Config struct {
	KeyID        string
	TeamID       string
	PrivateKey   string
	BundleID     string
	IsProduction bool
	// BaseURL overrides the production/sandbox endpoint.
	BaseURL string
}

// NewClient creates a new APNs client
func NewClient(config Config) (*Client, error) {
	privateKey, err := parsePrivateKey(config.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DevelopmentURL
		if config.IsProduction {
			baseURL = ProductionURL
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:    baseURL,
		keyID:      config.KeyID,
		teamID:     config.TeamID,
		bundleID:   config.BundleID,
		privateKey: privateKey,
	}, nil
}

// Send delivers an alert to one device
func (c *Client) Send(ctx context.Context, notification Notification) error {
	payloadBytes, err := json.Marshal(buildPayload(notification))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := c.baseURL + "/3/device/" + notification.DeviceToken

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.getToken()
	if err != nil {
		return fmt.Errorf("failed to get auth token: %w", err)
	}

	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apns-topic", c.bundleID)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("apns-priority", "10")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusGone:
		return ErrUnregistered
	}

	body, _ := io.ReadAll(resp.Body)
	var reason struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body, &reason) == nil && (reason.Reason == "BadDeviceToken" || reason.Reason == "Unregistered") {
		return ErrUnregistered
	}
	return fmt.Errorf("APNs error: %s - %s", resp.Status, string(body))
}

func buildPayload(notification Notification) map[string]interface{} {
	aps := map[string]interface{}{
		"alert": map[string]interface{}{
			"title": notification.Title,
			"body":  notification.Body,
		},
		"mutable-content": 1,
	}

	if notification.Sound != "" {
		aps["sound"] = notification.Sound
	}
	if notification.Category != "" {
		aps["category"] = notification.Category
	}
	if notification.ThreadID != "" {
		aps["thread-id"] = notification.ThreadID
	}

	payload := map[string]interface{}{
		"aps": aps,
	}
	for k, v := range notification.Data {
		payload[k] = v
	}
	return payload
}

func (c *Client) getToken() (string, error) {
	c.tokenMu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		token := c.token
		c.tokenMu.RUnlock()
		return token, nil
	}
	c.tokenMu.RUnlock()

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.teamID,
		"iat": now.Unix(),
	})
	token.Header["kid"] = c.keyID

	signedToken, err := token.SignedString(c.privateKey)
	if err != nil {
		return "", err
	}

	c.token = signedToken
	c.tokenExpiry = now.Add(50 * time.Minute) // APNs tokens are valid for 1 hour

	return signedToken, nil
}

func parsePrivateKey(pemString string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemString))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	ecdsaKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not an ECDSA private key")
	}

	return ecdsaKey, nil
}
