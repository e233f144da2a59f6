package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/user/nudge/backend/internal/dto"
	"github.com/user/nudge/backend/internal/jobs"
	"github.com/user/nudge/backend/internal/location"
	"github.com/user/nudge/backend/internal/middleware"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/notification"
	"github.com/user/nudge/backend/internal/pubsub"
	"github.com/user/nudge/backend/internal/repository"
	"github.com/user/nudge/backend/internal/service"
	"github.com/user/nudge/backend/internal/suggest"
	"github.com/user/nudge/backend/internal/sweep"
	"github.com/user/nudge/backend/pkg/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCronSecret = "cron-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type silentPusher struct{}

func (silentPusher) SendToUser(context.Context, uuid.UUID, notification.Payload) (notification.SendResult, error) {
	return notification.SendResult{}, nil
}

type fixture struct {
	router    *gin.Engine
	hub       *pubsub.Hub
	schedules *repository.ScheduledNotificationRepository
	reminders *repository.ReminderRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newLimitedFixture(t, nil)
}

// newLimitedFixture wires the router the way main does, with limiter in
// front of the routes.
func newLimitedFixture(t *testing.T, limiter *middleware.RateLimiter) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}, &models.Device{}, &models.Reminder{}, &models.ScheduledNotification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	scheduleRepo := repository.NewScheduledNotificationRepository(db)

	hub := pubsub.NewHub()
	notifier := notification.NewService(scheduleRepo, silentPusher{}, hub)
	jwtManager := jwt.NewManager("handler-test")

	users := service.NewUserService(userRepo, deviceRepo, scheduleRepo)
	services := Services{
		Auth:        service.NewAuthService(userRepo, jwtManager, nil),
		Users:       users,
		Reminders:   service.NewReminderService(reminderRepo, notifier, 500),
		Sharing:     service.NewSharingService(reminderRepo, userRepo, notifier),
		Suggestions: service.NewSuggestionService(reminderRepo, userRepo, suggest.NewScoringProvider()),
		Devices:     service.NewDeviceService(deviceRepo),
	}

	sweeper := sweep.NewSweeper(reminderRepo, users, location.NewProvider(deviceRepo, 30*time.Minute), nil, notifier, nil)
	cron := CronJobs{
		Sweep:         jobs.NewSweepJob(reminderRepo, sweeper, nil),
		Delivery:      jobs.NewDeliveryJob(scheduleRepo, reminderRepo, notifier),
		DeviceCleanup: jobs.NewDeviceCleanupJob(deviceRepo),
		AccountPurge:  jobs.NewAccountPurgeJob(userRepo),
	}

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	New(services, cron, hub, jwtManager, testCronSecret, limiter).Routes(router)

	return &fixture{router: router, hub: hub, schedules: scheduleRepo, reminders: reminderRepo}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) register(t *testing.T, email string) (string, uuid.UUID) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{Email: email, Password: "password123"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	var resp dto.AuthResponse
	decode(t, w, &resp)
	return resp.AccessToken, uuid.MustParse(resp.User.ID)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &body)
	return body.Error.Code
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
}

func timeReminder(title string, at time.Time) dto.ReminderRequest {
	return dto.ReminderRequest{
		Title:       title,
		Category:    "home",
		TriggerType: "time",
		Details:     models.TriggerDetails{Time: &at},
	}
}

func TestAuthEndpoints(t *testing.T) {
	f := newFixture(t)
	token, userID := f.register(t, "ada@example.com")

	w := f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "ada@example.com", Password: "password123"})
	expect(t, w, http.StatusOK)
	var login dto.AuthResponse
	decode(t, w, &login)

	w = f.do(t, http.MethodPost, "/api/auth/refresh", "", dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	expect(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, "/api/me", token, nil)
	expect(t, w, http.StatusOK)
	var me dto.UserDTO
	decode(t, w, &me)
	if me.ID != userID.String() || me.Email != "ada@example.com" {
		t.Errorf("me = %+v", me)
	}

	w = f.do(t, http.MethodGet, "/api/me", "", nil)
	expect(t, w, http.StatusUnauthorized)

	w = f.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{Email: "ADA@example.com", Password: "password123"})
	expect(t, w, http.StatusConflict)
	if code := errorCode(t, w); code != "EMAIL_TAKEN" {
		t.Errorf("code = %q", code)
	}

	w = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	expect(t, w, http.StatusUnauthorized)
}

func TestReminderLifecycle(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "owner@example.com")
	at := time.Date(2030, 4, 2, 9, 30, 0, 0, time.UTC)

	w := f.do(t, http.MethodPost, "/api/reminders", token, timeReminder("Renew passport", at))
	expect(t, w, http.StatusCreated)
	var created dto.ReminderDTO
	decode(t, w, &created)

	if s, err := f.schedules.FindByReminderID(created.ID); err != nil || !s.FireAt.Equal(at) {
		t.Fatalf("schedule = %+v, %v", s, err)
	}

	w = f.do(t, http.MethodGet, "/api/reminders?q=PASS", token, nil)
	expect(t, w, http.StatusOK)
	var list dto.ReminderListResponse
	decode(t, w, &list)
	if list.Total != 1 || list.Reminders[0].ID != created.ID {
		t.Errorf("search = %+v", list)
	}

	w = f.do(t, http.MethodGet, "/api/reminders/day/2030-04-02", token, nil)
	expect(t, w, http.StatusOK)
	decode(t, w, &list)
	if list.Total != 1 {
		t.Errorf("day view total = %d", list.Total)
	}

	later := at.Add(48 * time.Hour)
	w = f.do(t, http.MethodPut, "/api/reminders/"+created.ID.String(), token, timeReminder("Renew passport now", later))
	expect(t, w, http.StatusOK)
	if s, err := f.schedules.FindByReminderID(created.ID); err != nil || !s.FireAt.Equal(later) {
		t.Errorf("rescheduled = %+v, %v", s, err)
	}

	w = f.do(t, http.MethodDelete, "/api/reminders/"+created.ID.String(), token, nil)
	expect(t, w, http.StatusNoContent)
	if _, err := f.schedules.FindByReminderID(created.ID); err == nil {
		t.Error("schedule should be canceled on delete")
	}

	w = f.do(t, http.MethodGet, "/api/reminders/"+created.ID.String(), token, nil)
	expect(t, w, http.StatusNotFound)
	if code := errorCode(t, w); code != "REMINDER_NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestReminderValidationErrors(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "v@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing title", http.MethodPost, "/api/reminders", map[string]string{"trigger_type": "time"}, http.StatusBadRequest},
		{"unknown trigger", http.MethodPost, "/api/reminders", dto.ReminderRequest{Title: "x", TriggerType: "moon"}, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/reminders/not-a-uuid", nil, http.StatusBadRequest},
		{"bad day", http.MethodGet, "/api/reminders/day/tomorrow", nil, http.StatusBadRequest},
		{"unknown id", http.MethodDelete, "/api/reminders/" + uuid.NewString(), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, token, tt.body)
			expect(t, w, tt.status)
		})
	}
}

func TestShareEndpoint(t *testing.T) {
	f := newFixture(t)
	senderToken, _ := f.register(t, "sender@example.com")
	recipientToken, _ := f.register(t, "recipient@example.com")

	w := f.do(t, http.MethodPost, "/api/reminders", senderToken, timeReminder("Concert", time.Now().Add(24*time.Hour)))
	expect(t, w, http.StatusCreated)
	var original dto.ReminderDTO
	decode(t, w, &original)

	sharePath := "/api/reminders/" + original.ID.String() + "/share"

	w = f.do(t, http.MethodPost, sharePath, senderToken, dto.ShareReminderRequest{RecipientEmail: "nobody@example.com"})
	expect(t, w, http.StatusNotFound)
	if code := errorCode(t, w); code != "RECIPIENT_NOT_FOUND" {
		t.Errorf("code = %q", code)
	}

	w = f.do(t, http.MethodPost, sharePath, "", dto.ShareReminderRequest{RecipientEmail: "recipient@example.com"})
	expect(t, w, http.StatusUnauthorized)

	w = f.do(t, http.MethodPost, sharePath, senderToken, dto.ShareReminderRequest{RecipientEmail: "recipient@example.com"})
	expect(t, w, http.StatusCreated)

	w = f.do(t, http.MethodGet, "/api/reminders", recipientToken, nil)
	expect(t, w, http.StatusOK)
	var list dto.ReminderListResponse
	decode(t, w, &list)
	if list.Total != 1 || list.Reminders[0].Title != "Concert" || list.Reminders[0].SharedByID == nil {
		t.Errorf("recipient reminders = %+v", list)
	}
}

func TestCronSweepFiresTimeReminderOnce(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "sweep@example.com")

	w := f.do(t, http.MethodPost, "/api/reminders", token, timeReminder("Take pills", time.Now().Add(-time.Minute)))
	expect(t, w, http.StatusCreated)
	var created dto.ReminderDTO
	decode(t, w, &created)

	w = f.do(t, http.MethodPost, "/api/cron/sweep", "wrong", nil)
	expect(t, w, http.StatusUnauthorized)

	var first, second jobs.SweepAllResult
	w = f.do(t, http.MethodPost, "/api/cron/sweep", testCronSecret, nil)
	expect(t, w, http.StatusOK)
	decode(t, w, &first)
	w = f.do(t, http.MethodPost, "/api/cron/sweep", testCronSecret, nil)
	expect(t, w, http.StatusOK)
	decode(t, w, &second)

	if first.Fired != 1 || second.Fired != 0 {
		t.Errorf("fired = %d then %d, want 1 then 0", first.Fired, second.Fired)
	}

	// The schedule for the already fired reminder is dropped without a second alert.
	w = f.do(t, http.MethodPost, "/api/cron/deliver", testCronSecret, nil)
	expect(t, w, http.StatusOK)
	var delivered jobs.DeliveryResult
	decode(t, w, &delivered)
	if delivered.Sent != 0 || delivered.Skipped != 1 {
		t.Errorf("delivery = %+v", delivered)
	}
	if _, err := f.schedules.FindByReminderID(created.ID); err == nil {
		t.Error("schedule should be removed")
	}
}

func TestCronSweepLocationReminder(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "walker@example.com")

	w := f.do(t, http.MethodPost, "/api/devices", token, dto.RegisterDeviceRequest{
		DeviceIdentifier: "phone", Platform: "ios", PushToken: "apns-token",
	})
	expect(t, w, http.StatusOK)
	var device dto.DeviceDTO
	decode(t, w, &device)

	lat, lon := 0.0, 0.0044
	w = f.do(t, http.MethodPut, "/api/devices/"+device.ID.String()+"/location", token,
		dto.ReportLocationRequest{Latitude: &lat, Longitude: &lon})
	expect(t, w, http.StatusNoContent)

	w = f.do(t, http.MethodPost, "/api/reminders", token, dto.ReminderRequest{
		Title:       "Grab coffee",
		TriggerType: "location",
		Details:     models.TriggerDetails{Location: &models.GeoFence{Latitude: 0, Longitude: 0}},
	})
	expect(t, w, http.StatusCreated)

	for i := 0; i < 2; i++ {
		w = f.do(t, http.MethodPost, "/api/cron/sweep", testCronSecret, nil)
		expect(t, w, http.StatusOK)
		var res jobs.SweepAllResult
		decode(t, w, &res)
		if res.Fired != 1 {
			t.Errorf("sweep %d fired %d, want 1", i, res.Fired)
		}
	}
}

func TestSettingsAndSuggestions(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "s@example.com")

	w := f.do(t, http.MethodPost, "/api/reminders", token, timeReminder("x", time.Now()))
	expect(t, w, http.StatusCreated)

	w = f.do(t, http.MethodGet, "/api/suggestions", token, nil)
	expect(t, w, http.StatusOK)
	var sugg dto.SuggestionsResponse
	decode(t, w, &sugg)
	if len(sugg.Suggestions) == 0 || !strings.HasPrefix(sugg.Suggestions[0], "Suggested reminder ") {
		t.Errorf("suggestions = %v", sugg.Suggestions)
	}

	off := false
	w = f.do(t, http.MethodPut, "/api/me/settings", token, dto.UpdateSettingsRequest{AISuggestionsEnabled: &off})
	expect(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, "/api/me/settings", token, nil)
	expect(t, w, http.StatusOK)
	var settings dto.SettingsDTO
	decode(t, w, &settings)
	if settings.AISuggestionsEnabled || !settings.NotificationsEnabled {
		t.Errorf("settings = %+v", settings)
	}

	w = f.do(t, http.MethodGet, "/api/suggestions", token, nil)
	expect(t, w, http.StatusOK)
	decode(t, w, &sugg)
	if len(sugg.Suggestions) != 0 {
		t.Errorf("suggestions with setting off = %v", sugg.Suggestions)
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	token, _ := f.register(t, "leaving@example.com")

	w := f.do(t, http.MethodDelete, "/api/me", token, nil)
	expect(t, w, http.StatusNoContent)

	w = f.do(t, http.MethodGet, "/api/me", token, nil)
	expect(t, w, http.StatusNotFound)
	if code := errorCode(t, w); code != "USER_NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	expect(t, w, http.StatusOK)

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in /metrics")
	}
}

func TestLiveAlerts(t *testing.T) {
	f := newFixture(t)
	token, userID := f.register(t, "live@example.com")

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.SubscriberCount(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	f.hub.BroadcastToUser(userID, pubsub.Event{Type: "reminder", Title: "Stretch", At: time.Now().UTC()})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got pubsub.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "reminder" || got.Title != "Stretch" {
		t.Errorf("event = %+v", got)
	}
}

func TestLiveAlertsRequiresToken(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRateLimitIsPerUser(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	defer limiter.Stop()
	f := newLimitedFixture(t, limiter)

	// Registration spends the shared IP bucket; authenticated calls must not.
	alice, _ := f.register(t, "alice@example.com")
	bob, _ := f.register(t, "bob@example.com")

	expect(t, f.do(t, http.MethodGet, "/api/me", alice, nil), http.StatusOK)
	expect(t, f.do(t, http.MethodGet, "/api/me", bob, nil), http.StatusOK)
	expect(t, f.do(t, http.MethodGet, "/api/me", alice, nil), http.StatusOK)

	w := f.do(t, http.MethodGet, "/api/me", alice, nil)
	expect(t, w, http.StatusTooManyRequests)
	if code := errorCode(t, w); code != middleware.CodeRateLimited {
		t.Errorf("code = %q", code)
	}
	expect(t, f.do(t, http.MethodGet, "/api/me", bob, nil), http.StatusOK)

	w = f.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "alice@example.com", Password: "password123"})
	expect(t, w, http.StatusTooManyRequests)
}
