package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/dto"
	"github.com/user/nudge/backend/internal/geo"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/repository"
	apperrors "github.com/user/nudge/backend/pkg/errors"
	"gorm.io/gorm"
)

// Notifier is the alert scheduling capability reminders are kept in sync with.
type Notifier interface {
	ScheduleAt(ctx context.Context, userID, reminderID uuid.UUID, when time.Time, title, body string) error
	Cancel(ctx context.Context, reminderID uuid.UUID) error
	FireNow(ctx context.Context, userID uuid.UUID, title, body string) error
}

type ReminderService struct {
	reminderRepo  *repository.ReminderRepository
	notifier      Notifier
	defaultRadius float64
}

func NewReminderService(reminderRepo *repository.ReminderRepository, notifier Notifier, defaultRadius float64) *ReminderService {
	return &ReminderService{
		reminderRepo:  reminderRepo,
		notifier:      notifier,
		defaultRadius: defaultRadius,
	}
}

// Create stores a reminder and schedules its alert when it is time based.
func (s *ReminderService) Create(ctx context.Context, userID uuid.UUID, req dto.ReminderRequest) (*dto.ReminderDTO, error) {
	reminder := &models.Reminder{UserID: userID}
	if err := s.apply(reminder, req); err != nil {
		return nil, err
	}

	if err := s.reminderRepo.Create(reminder); err != nil {
		return nil, apperrors.Internal(err, "Failed to create reminder")
	}

	if err := s.syncSchedule(ctx, reminder, false); err != nil {
		return nil, err
	}

	result := dto.ReminderToDTO(reminder)
	return &result, nil
}

func (s *ReminderService) GetByID(userID, reminderID uuid.UUID) (*dto.ReminderDTO, error) {
	reminder, err := s.find(userID, reminderID)
	if err != nil {
		return nil, err
	}

	result := dto.ReminderToDTO(reminder)
	return &result, nil
}

// List returns the user's reminders, filtered by a case-insensitive title
// match when query is not blank.
func (s *ReminderService) List(userID uuid.UUID, query string) (*dto.ReminderListResponse, error) {
	var (
		reminders []models.Reminder
		err       error
	)
	if q := strings.TrimSpace(query); q != "" {
		reminders, err = s.reminderRepo.SearchByTitle(userID, q)
	} else {
		reminders, err = s.reminderRepo.ListByUser(userID)
	}
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to list reminders")
	}

	return &dto.ReminderListResponse{
		Reminders: dto.RemindersToDTO(reminders),
		Total:     len(reminders),
	}, nil
}

// ListForDay returns time reminders due on the given UTC calendar day
// (formatted YYYY-MM-DD), earliest first.
func (s *ReminderService) ListForDay(userID uuid.UUID, day string) (*dto.ReminderListResponse, error) {
	start, err := time.ParseInLocation("2006-01-02", day, time.UTC)
	if err != nil {
		return nil, apperrors.ValidationError("Date must be formatted as YYYY-MM-DD")
	}
	end := start.AddDate(0, 0, 1)

	reminders, err := s.reminderRepo.ListByUserAndType(userID, models.TriggerTime)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to list reminders")
	}

	onDay := make([]models.Reminder, 0, len(reminders))
	for _, r := range reminders {
		at := r.Details.Time
		if at == nil || at.Before(start) || !at.Before(end) {
			continue
		}
		onDay = append(onDay, r)
	}
	sortByTime(onDay)

	return &dto.ReminderListResponse{
		Reminders: dto.RemindersToDTO(onDay),
		Total:     len(onDay),
	}, nil
}

// Update replaces the editable fields of a reminder. The id is preserved, the
// notified flag is reset and the alert is rescheduled or canceled to match
// the new trigger.
func (s *ReminderService) Update(ctx context.Context, userID, reminderID uuid.UUID, req dto.ReminderRequest) (*dto.ReminderDTO, error) {
	reminder, err := s.find(userID, reminderID)
	if err != nil {
		return nil, err
	}

	wasTime := reminder.IsTimeTriggered()
	if err := s.apply(reminder, req); err != nil {
		return nil, err
	}
	reminder.Notified = false
	reminder.NotifiedAt = nil

	if err := s.reminderRepo.Update(reminder); err != nil {
		return nil, apperrors.Internal(err, "Failed to update reminder")
	}

	if err := s.syncSchedule(ctx, reminder, wasTime); err != nil {
		return nil, err
	}

	result := dto.ReminderToDTO(reminder)
	return &result, nil
}

// Delete removes the reminder and then cancels its pending alert. A cancel
// failure is reported to the caller.
func (s *ReminderService) Delete(ctx context.Context, userID, reminderID uuid.UUID) error {
	deleted, err := s.reminderRepo.DeleteForUser(reminderID, userID)
	if err != nil {
		return apperrors.Internal(err, "Failed to delete reminder")
	}
	if !deleted {
		return apperrors.ErrReminderNotFound
	}

	if err := s.notifier.Cancel(ctx, reminderID); err != nil {
		return apperrors.Internal(err, "Reminder deleted but its alert could not be canceled")
	}
	return nil
}

func (s *ReminderService) find(userID, reminderID uuid.UUID) (*models.Reminder, error) {
	reminder, err := s.reminderRepo.FindByIDAndUser(reminderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, apperrors.Internal(err, "Failed to load reminder")
	}
	return reminder, nil
}

// syncSchedule makes the pending alert match the reminder: time reminders
// are (re)scheduled, anything else that used to be time based is canceled.
func (s *ReminderService) syncSchedule(ctx context.Context, r *models.Reminder, wasTime bool) error {
	if r.IsTimeTriggered() {
		if err := s.notifier.ScheduleAt(ctx, r.UserID, r.ID, *r.Details.Time, r.Title, r.AlertBody()); err != nil {
			return apperrors.Internal(err, "Reminder saved but its alert could not be scheduled")
		}
		return nil
	}
	if wasTime {
		if err := s.notifier.Cancel(ctx, r.ID); err != nil {
			return apperrors.Internal(err, "Reminder saved but its old alert could not be canceled")
		}
	}
	return nil
}

// apply validates req and copies it onto r.
func (s *ReminderService) apply(r *models.Reminder, req dto.ReminderRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return apperrors.ValidationError("Title is required")
	}

	triggerType := models.TriggerType(strings.ToLower(strings.TrimSpace(req.TriggerType)))
	if !triggerType.Valid() {
		return apperrors.ValidationError("Trigger type must be one of time, location or condition")
	}

	details := req.Details.Normalize(triggerType)
	switch triggerType {
	case models.TriggerTime:
		if details.Time == nil {
			return apperrors.ValidationError("Time reminders need details.time")
		}
	case models.TriggerLocation:
		if details.Location == nil {
			return apperrors.ValidationError("Location reminders need details.location")
		}
		fence := *details.Location
		if !(geo.Point{Latitude: fence.Latitude, Longitude: fence.Longitude}).Valid() {
			return apperrors.ValidationError("Location coordinates out of range")
		}
		if fence.RadiusMeters < 0 {
			return apperrors.ValidationError("Radius cannot be negative")
		}
		if fence.RadiusMeters == 0 {
			fence.RadiusMeters = s.defaultRadius
		}
		details.Location = &fence
	case models.TriggerCondition:
		if details.Condition == nil || strings.TrimSpace(details.Condition.Label) == "" {
			return apperrors.ValidationError("Condition reminders need details.condition.label")
		}
		cond := *details.Condition
		if cond.Kind == "" {
			cond.Kind = models.ConditionKindWeather
		}
		if !strings.EqualFold(cond.Kind, models.ConditionKindWeather) {
			return apperrors.ValidationError("Only weather conditions are supported")
		}
		cond.Kind = models.ConditionKindWeather
		cond.Label = strings.ToLower(strings.TrimSpace(cond.Label))
		details.Condition = &cond
	}

	var interval models.RecurringInterval
	if req.IsRecurring {
		interval = models.RecurringInterval(strings.ToLower(req.RecurringInterval))
		if !interval.Valid() {
			return apperrors.ValidationError("Recurring interval must be daily, weekly or monthly")
		}
	}

	r.Title = title
	r.Category = strings.TrimSpace(req.Category)
	r.TriggerType = triggerType
	r.Details = details
	r.IsRecurring = req.IsRecurring
	r.RecurringInterval = interval
	return nil
}

func sortByTime(reminders []models.Reminder) {
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].Details.Time.Before(*reminders[j].Details.Time)
	})
}
