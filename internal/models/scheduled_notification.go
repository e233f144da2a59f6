package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduledNotification is a pending alert keyed by the reminder it belongs
// to. There is at most one per reminder; scheduling again replaces it.
type ScheduledNotification struct {
	ReminderID uuid.UUID `gorm:"type:uuid;primaryKey" json:"reminder_id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	FireAt     time.Time `gorm:"not null;index" json:"fire_at"`
	Title      string    `gorm:"size:500;not null" json:"title"`
	Body       string    `gorm:"size:500" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
