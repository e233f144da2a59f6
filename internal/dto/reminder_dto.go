package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
)

// ReminderRequest is the body for creating or replacing a reminder. Only the
// details variant matching trigger_type is kept.
type ReminderRequest struct {
	Title             string                `json:"title" binding:"required,max=500"`
	Category          string                `json:"category" binding:"max=100"`
	TriggerType       string                `json:"trigger_type" binding:"required"`
	Details           models.TriggerDetails `json:"details"`
	IsRecurring       bool                  `json:"is_recurring"`
	RecurringInterval string                `json:"recurring_interval,omitempty"`
}

// ShareReminderRequest names the account that receives a copy
type ShareReminderRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"required"`
}

// ReminderDTO represents a reminder in responses
type ReminderDTO struct {
	ID                uuid.UUID             `json:"id"`
	Title             string                `json:"title"`
	Category          string                `json:"category"`
	TriggerType       string                `json:"trigger_type"`
	Details           models.TriggerDetails `json:"details"`
	IsRecurring       bool                  `json:"is_recurring"`
	RecurringInterval string                `json:"recurring_interval,omitempty"`
	Notified          bool                  `json:"notified"`
	NotifiedAt        *time.Time            `json:"notified_at,omitempty"`
	SharedByID        *uuid.UUID            `json:"shared_by_id,omitempty"`
	SharedAt          *time.Time            `json:"shared_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// ReminderListResponse is the response for listing reminders
type ReminderListResponse struct {
	Reminders []ReminderDTO `json:"reminders"`
	Total     int           `json:"total"`
}

// SuggestionsResponse lists suggestion lines for the current user
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

func ReminderToDTO(r *models.Reminder) ReminderDTO {
	return ReminderDTO{
		ID:                r.ID,
		Title:             r.Title,
		Category:          r.Category,
		TriggerType:       string(r.TriggerType),
		Details:           r.Details,
		IsRecurring:       r.IsRecurring,
		RecurringInterval: string(r.RecurringInterval),
		Notified:          r.Notified,
		NotifiedAt:        r.NotifiedAt,
		SharedByID:        r.SharedByID,
		SharedAt:          r.SharedAt,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// RemindersToDTO converts a slice of Reminder models to DTOs
func RemindersToDTO(reminders []models.Reminder) []ReminderDTO {
	dtos := make([]ReminderDTO, len(reminders))
	for i := range reminders {
		dtos[i] = ReminderToDTO(&reminders[i])
	}
	return dtos
}
