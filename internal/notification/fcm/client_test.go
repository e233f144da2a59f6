package fcm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestClient_SendUsesBearerTokenAndProjectPath(t *testing.T) {
	var gotAuth, gotPath string
	var got struct {
		Message Message `json:"message"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newClient(Config{ProjectID: "nudge-test", BaseURL: srv.URL},
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok", TokenType: "Bearer"}))

	err := c.Send(context.Background(), "device-1", &Notification{Title: "Rain", Body: "outdoor"}, map[string]string{"type": "reminder"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/v1/projects/nudge-test/messages:send" {
		t.Errorf("path = %q", gotPath)
	}
	if got.Message.Token != "device-1" || got.Message.Notification.Title != "Rain" || got.Message.Data["type"] != "reminder" {
		t.Errorf("message = %+v", got.Message)
	}
}

func TestClient_SendErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		unreg  bool
	}{
		{"unregistered", http.StatusNotFound, true},
		{"quota", http.StatusTooManyRequests, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newClient(Config{ProjectID: "p", BaseURL: srv.URL},
				oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"}))
			err := c.Send(context.Background(), "d", &Notification{Title: "t"}, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrUnregistered) != tt.unreg {
				t.Errorf("unexpected error classification: %v", err)
			}
		})
	}
}

func TestNewClient_RejectsInvalidCredentials(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{ProjectID: "p", CredentialsJSON: "{"}); err == nil {
		t.Error("expected error for malformed credentials")
	}
}
