package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
	"gorm.io/gorm"
)

type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(reminder *models.Reminder) error {
	return r.db.Create(reminder).Error
}

func (r *ReminderRepository) FindByID(id uuid.UUID) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.db.Where("id = ?", id).First(&reminder).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (r *ReminderRepository) FindByIDAndUser(id, userID uuid.UUID) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&reminder).Error
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

// ListByUser returns every live reminder owned by userID, oldest first.
func (r *ReminderRepository) ListByUser(userID uuid.UUID) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&reminders).Error
	return reminders, err
}

func (r *ReminderRepository) ListByUserAndType(userID uuid.UUID, triggerType models.TriggerType) ([]models.Reminder, error) {
	var reminders []models.Reminder
	err := r.db.
		Where("user_id = ? AND trigger_type = ?", userID, triggerType).
		Order("created_at ASC").
		Find(&reminders).Error
	return reminders, err
}

// SearchByTitle matches titles containing query, ignoring case.
func (r *ReminderRepository) SearchByTitle(userID uuid.UUID, query string) ([]models.Reminder, error) {
	var reminders []models.Reminder
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	err := r.db.
		Where("user_id = ? AND LOWER(title) LIKE ? ESCAPE '\\'", userID, pattern).
		Order("created_at ASC").
		Find(&reminders).Error
	return reminders, err
}

func (r *ReminderRepository) Update(reminder *models.Reminder) error {
	return r.db.Save(reminder).Error
}

// DeleteForUser soft-deletes the reminder and reports whether a row matched.
func (r *ReminderRepository) DeleteForUser(id, userID uuid.UUID) (bool, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Reminder{})
	return result.RowsAffected > 0, result.Error
}

// MarkNotified flips notified from false to true. It returns false when the
// flag was already set or the reminder no longer exists.
func (r *ReminderRepository) MarkNotified(id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result := r.db.Model(&models.Reminder{}).
		Where("id = ? AND notified = ?", id, false).
		Updates(map[string]interface{}{
			"notified":    true,
			"notified_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ClearNotified releases a claim taken by MarkNotified.
func (r *ReminderRepository) ClearNotified(id uuid.UUID) error {
	return r.db.Model(&models.Reminder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"notified":    false,
			"notified_at": nil,
		}).Error
}

// ListUserIDsWithReminders returns the active accounts owning at least one
// live reminder.
func (r *ReminderRepository) ListUserIDsWithReminders() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.Reminder{}).
		Joins("JOIN users ON users.id = reminders.user_id AND users.deleted_at IS NULL").
		Distinct().
		Order("reminders.user_id").
		Pluck("reminders.user_id", &ids).Error
	return ids, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
