package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScheduledNotificationRepository struct {
	db *gorm.DB
}

func NewScheduledNotificationRepository(db *gorm.DB) *ScheduledNotificationRepository {
	return &ScheduledNotificationRepository{db: db}
}

// Upsert stores the schedule, replacing any existing one for the same reminder.
func (r *ScheduledNotificationRepository) Upsert(n *models.ScheduledNotification) error {
	n.FireAt = n.FireAt.UTC()
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reminder_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "fire_at", "title", "body", "updated_at"}),
	}).Create(n).Error
}

func (r *ScheduledNotificationRepository) FindByReminderID(reminderID uuid.UUID) (*models.ScheduledNotification, error) {
	var n models.ScheduledNotification
	err := r.db.Where("reminder_id = ?", reminderID).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// FindDue returns schedules whose fire time is at or before now, earliest first.
func (r *ScheduledNotificationRepository) FindDue(now time.Time, limit int) ([]models.ScheduledNotification, error) {
	var due []models.ScheduledNotification
	query := r.db.Where("fire_at <= ?", now.UTC()).Order("fire_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&due).Error
	return due, err
}

func (r *ScheduledNotificationRepository) Delete(reminderID uuid.UUID) error {
	return r.db.Where("reminder_id = ?", reminderID).Delete(&models.ScheduledNotification{}).Error
}

func (r *ScheduledNotificationRepository) DeleteByUser(userID uuid.UUID) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.ScheduledNotification{}).Error
}
