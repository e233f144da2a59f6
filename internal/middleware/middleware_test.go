package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/user/nudge/backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(m *jwt.Manager) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(m), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id.String())
	})
	return r
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	m := jwt.NewManager("secret")
	userID := uuid.New()
	pair, err := m.GenerateTokenPair(userID, "a@b.c")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		header   map[string]string
		status   int
		wantCode string
	}{
		{"no header", "/me", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not bearer", "/me", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"refresh token", "/me", map[string]string{"Authorization": "Bearer " + pair.RefreshToken}, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"access token", "/me", map[string]string{"Authorization": "Bearer " + pair.AccessToken}, http.StatusOK, ""},
		{"query token on plain request", "/me?token=" + pair.AccessToken, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"query token on upgrade", "/me?token=" + pair.AccessToken, map[string]string{"Upgrade": "websocket"}, http.StatusOK, ""},
	}

	router := protectedRouter(m)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Errorf("code = %q, want %q", got, tt.wantCode)
				}
			} else if w.Body.String() != userID.String() {
				t.Errorf("user id = %q", w.Body.String())
			}
		})
	}
}

func TestCronAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{"matching secret", "s3cret", "Bearer s3cret", http.StatusOK},
		{"wrong secret", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"empty secret disables", "", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/cron", CronAuthMiddleware(tt.secret), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/cron", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request inside the window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("keys are limited independently")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("window should have slid")
	}

	rl.cleanup()
	if _, ok := rl.requests["b"]; ok {
		t.Error("cleanup should drop idle keys")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	r := gin.New()
	r.Use(RateLimitMiddleware(rl))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
		if i == 1 {
			if got := errorCode(t, w); got != CodeRateLimited {
				t.Errorf("code = %q", got)
			}
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestRedactQuery(t *testing.T) {
	if got := redactQuery(url.Values{"token": {"abc"}, "q": {"milk"}}); got != "q=milk&token=REDACTED" {
		t.Errorf("redactQuery = %q", got)
	}
	if got := redactQuery(nil); got != "" {
		t.Errorf("redactQuery(nil) = %q", got)
	}
}
