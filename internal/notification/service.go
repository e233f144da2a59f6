package notification

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/metrics"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/pubsub"
)

// ScheduleStore persists pending alerts keyed by reminder id.
type ScheduleStore interface {
	Upsert(n *models.ScheduledNotification) error
	Delete(reminderID uuid.UUID) error
}

// Pusher fans a payload out to a user's devices.
type Pusher interface {
	SendToUser(ctx context.Context, userID uuid.UUID, payload Payload) (SendResult, error)
}

// Service schedules, cancels and fires reminder alerts.
type Service struct {
	schedules ScheduleStore
	pusher    Pusher
	hub       *pubsub.Hub
}

func NewService(schedules ScheduleStore, pusher Pusher, hub *pubsub.Hub) *Service {
	return &Service{schedules: schedules, pusher: pusher, hub: hub}
}

// ScheduleAt (re)schedules the alert for reminderID at when, replacing any
// earlier schedule for the same reminder.
func (s *Service) ScheduleAt(ctx context.Context, userID, reminderID uuid.UUID, when time.Time, title, body string) error {
	return s.schedules.Upsert(&models.ScheduledNotification{
		ReminderID: reminderID,
		UserID:     userID,
		FireAt:     when.UTC(),
		Title:      title,
		Body:       body,
	})
}

// Cancel drops any pending alert for reminderID. Cancelling an unknown id
// is not an error.
func (s *Service) Cancel(ctx context.Context, reminderID uuid.UUID) error {
	return s.schedules.Delete(reminderID)
}

// FireNow alerts the user immediately on every live connection and device.
// It fails only when a push to some device failed, none accepted the alert
// and no live connection received it. Devices whose platform has no client
// do not count as failures.
func (s *Service) FireNow(ctx context.Context, userID uuid.UUID, title, body string) error {
	live := 0
	if s.hub != nil {
		live = s.hub.BroadcastToUser(userID, pubsub.Event{
			Type:  "reminder",
			Title: title,
			Body:  body,
			At:    time.Now().UTC(),
		})
	}

	result, err := s.pusher.SendToUser(ctx, userID, Payload{
		Title:    title,
		Body:     body,
		Sound:    "default",
		Category: "REMINDER",
		Data:     map[string]string{"type": "reminder"},
	})
	if err != nil && live == 0 {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return err
	}
	if err != nil {
		log.Printf("[Notification] Push failed for user %s but %d live connection(s) received the alert: %v", userID, live, err)
	}

	if result.Delivered == 0 && live == 0 {
		metrics.NotificationsSent.WithLabelValues("no_target").Inc()
		return nil
	}
	metrics.NotificationsSent.WithLabelValues("delivered").Inc()
	return nil
}
