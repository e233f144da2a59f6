package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	return r.db.Create(user).Error
}

func (r *UserRepository) FindByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindDeletedByEmail looks up a soft-deleted account so it can be restored
// instead of colliding with the unique email index.
func (r *UserRepository) FindDeletedByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Unscoped().
		Where("email = ? AND deleted_at IS NOT NULL", NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Restore clears the deletion mark and replaces the credentials.
func (r *UserRepository) Restore(user *models.User, passwordHash, displayName string) error {
	user.PasswordHash = passwordHash
	user.DisplayName = displayName
	user.DeletedAt = gorm.DeletedAt{}
	return r.db.Unscoped().Model(user).Updates(map[string]interface{}{
		"deleted_at":    nil,
		"password_hash": passwordHash,
		"display_name":  displayName,
	}).Error
}

func (r *UserRepository) UpdateSettings(id uuid.UUID, notificationsEnabled, aiSuggestionsEnabled bool) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"notifications_enabled":  notificationsEnabled,
			"ai_suggestions_enabled": aiSuggestionsEnabled,
		}).Error
}

func (r *UserRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.User{}, "id = ?", id).Error
}

// FindDeletedBefore returns soft-deleted accounts whose deletion is older
// than threshold.
func (r *UserRepository) FindDeletedBefore(threshold time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", threshold).
		Find(&users).Error
	return users, err
}

// Purge permanently removes a user and everything they own.
func (r *UserRepository) Purge(userID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.ScheduledNotification{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Reminder{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.Device{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id = ?", userID).Delete(&models.User{}).Error
	})
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
