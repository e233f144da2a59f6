package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
	"gorm.io/gorm"
)

type DueSchedules interface {
	FindDue(now time.Time, limit int) ([]models.ScheduledNotification, error)
	Delete(reminderID uuid.UUID) error
}

type DeliveryReminders interface {
	FindByID(id uuid.UUID) (*models.Reminder, error)
	MarkNotified(id uuid.UUID) (bool, error)
	ClearNotified(id uuid.UUID) error
}

type AlertSender interface {
	FireNow(ctx context.Context, userID uuid.UUID, title, body string) error
}

const deliveryBatchSize = 500

// DeliveryJob sends scheduled alerts whose time has come
type DeliveryJob struct {
	schedules DueSchedules
	reminders DeliveryReminders
	sender    AlertSender
	now       func() time.Time
}

func NewDeliveryJob(schedules DueSchedules, reminders DeliveryReminders, sender AlertSender) *DeliveryJob {
	return &DeliveryJob{
		schedules: schedules,
		reminders: reminders,
		sender:    sender,
		now:       time.Now,
	}
}

// DeliveryResult represents the result of processing due schedules
type DeliveryResult struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Dropped int `json:"dropped"`
	Errors  int `json:"errors"`
}

// ProcessDue delivers every schedule at or past its fire time. It claims
// the reminder's notified flag first, so a sweep that already fired the
// reminder wins and the schedule is just removed. Failed deliveries keep
// their schedule for the next run.
func (j *DeliveryJob) ProcessDue(ctx context.Context) (*DeliveryResult, error) {
	due, err := j.schedules.FindDue(j.now(), deliveryBatchSize)
	if err != nil {
		log.Printf("[DeliveryJob] Error finding due schedules: %v", err)
		return nil, err
	}

	result := &DeliveryResult{Due: len(due)}
	if len(due) == 0 {
		return result, nil
	}
	log.Printf("[DeliveryJob] Found %d due schedules", len(due))

	for _, n := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		reminder, err := j.reminders.FindByID(n.ReminderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			j.drop(n.ReminderID)
			result.Dropped++
			continue
		}
		if err != nil {
			log.Printf("[DeliveryJob] Error loading reminder %s: %v", n.ReminderID, err)
			result.Errors++
			continue
		}
		if reminder.TriggerType != models.TriggerTime {
			j.drop(n.ReminderID)
			result.Dropped++
			continue
		}

		claimed, err := j.reminders.MarkNotified(reminder.ID)
		if err != nil {
			log.Printf("[DeliveryJob] Failed to claim reminder %s: %v", reminder.ID, err)
			result.Errors++
			continue
		}
		if !claimed {
			j.drop(n.ReminderID)
			result.Skipped++
			continue
		}

		if err := j.sender.FireNow(ctx, n.UserID, n.Title, n.Body); err != nil {
			log.Printf("[DeliveryJob] Failed to send alert for reminder %s: %v", reminder.ID, err)
			if err := j.reminders.ClearNotified(reminder.ID); err != nil {
				log.Printf("[DeliveryJob] Failed to release claim on reminder %s: %v", reminder.ID, err)
			}
			result.Errors++
			continue
		}

		j.drop(n.ReminderID)
		result.Sent++
	}

	log.Printf("[DeliveryJob] Completed: sent %d/%d, skipped %d, dropped %d, errors %d",
		result.Sent, result.Due, result.Skipped, result.Dropped, result.Errors)
	return result, nil
}

func (j *DeliveryJob) drop(reminderID uuid.UUID) {
	if err := j.schedules.Delete(reminderID); err != nil {
		log.Printf("[DeliveryJob] Failed to remove schedule for reminder %s: %v", reminderID, err)
	}
}
