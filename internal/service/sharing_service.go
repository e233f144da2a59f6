package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/dto"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/repository"
	apperrors "github.com/user/nudge/backend/pkg/errors"
	"gorm.io/gorm"
)

type SharingService struct {
	reminderRepo *repository.ReminderRepository
	userRepo     *repository.UserRepository
	notifier     Notifier
	now          func() time.Time
}

func NewSharingService(reminderRepo *repository.ReminderRepository, userRepo *repository.UserRepository, notifier Notifier) *SharingService {
	return &SharingService{
		reminderRepo: reminderRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Share copies one of the sender's reminders into the recipient's reminders
// under a new id and returns the copy.
func (s *SharingService) Share(ctx context.Context, senderID, reminderID uuid.UUID, recipientEmail string) (*dto.ReminderDTO, error) {
	if senderID == uuid.Nil {
		return nil, apperrors.ErrUnauthorized
	}

	sender, err := s.userRepo.FindByID(senderID)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	original, err := s.reminderRepo.FindByIDAndUser(reminderID, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, apperrors.Internal(err, "Failed to load reminder")
	}

	recipient, err := s.userRepo.FindByEmail(recipientEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecipientNotFound
		}
		return nil, apperrors.Internal(err, "Failed to look up recipient")
	}
	if recipient.ID == sender.ID {
		return nil, apperrors.ValidationError("You cannot share a reminder with yourself")
	}

	sharedAt := s.now().UTC()
	shared := &models.Reminder{
		UserID:            recipient.ID,
		Title:             original.Title,
		Category:          original.Category,
		TriggerType:       original.TriggerType,
		Details:           original.Details.Normalize(original.TriggerType),
		IsRecurring:       original.IsRecurring,
		RecurringInterval: original.RecurringInterval,
		SharedByID:        &sender.ID,
		SharedAt:          &sharedAt,
	}
	if err := s.reminderRepo.Create(shared); err != nil {
		return nil, apperrors.Internal(err, "Failed to share reminder")
	}

	if shared.IsTimeTriggered() {
		if err := s.notifier.ScheduleAt(ctx, recipient.ID, shared.ID, *shared.Details.Time, shared.Title, shared.AlertBody()); err != nil {
			return nil, apperrors.Internal(err, "Reminder shared but its alert could not be scheduled")
		}
	}

	if recipient.NotificationsEnabled {
		body := fmt.Sprintf("%s shared a reminder with you", senderName(sender))
		if err := s.notifier.FireNow(ctx, recipient.ID, shared.Title, body); err != nil {
			log.Printf("[Sharing] Failed to alert %s about shared reminder %s: %v", recipient.ID, shared.ID, err)
		}
	}

	result := dto.ReminderToDTO(shared)
	return &result, nil
}

func senderName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
