package repository

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
	"gorm.io/gorm"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) FindByIDAndUser(id, userID uuid.UUID) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *DeviceRepository) ListByUser(userID uuid.UUID) ([]models.Device, error) {
	var devices []models.Device
	err := r.db.Where("user_id = ?", userID).Order("last_seen_at DESC").Find(&devices).Error
	return devices, err
}

// DeleteForUser removes a device and reports whether the user owned it.
func (r *DeviceRepository) DeleteForUser(id, userID uuid.UUID) (bool, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Device{})
	return result.RowsAffected > 0, result.Error
}

func (r *DeviceRepository) DeleteByUser(userID uuid.UUID) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Device{}).Error
}

// DeleteByPushToken removes a device by its push token (used when APNs returns invalid token)
func (r *DeviceRepository) DeleteByPushToken(pushToken string) error {
	return r.db.Where("push_token = ?", pushToken).Delete(&models.Device{}).Error
}

// DeleteStaleDevices removes devices not seen in the specified number of days
func (r *DeviceRepository) DeleteStaleDevices(days int) (int64, error) {
	staleThreshold := time.Now().UTC().AddDate(0, 0, -days)
	result := r.db.Where("last_seen_at < ?", staleThreshold).Delete(&models.Device{})
	return result.RowsAffected, result.Error
}

// Upsert registers the device, moving it away from any other account that
// previously held the same identifier.
func (r *DeviceRepository) Upsert(device *models.Device) error {
	var existingForOtherUser models.Device
	err := r.db.Where("device_identifier = ? AND user_id != ?", device.DeviceIdentifier, device.UserID).First(&existingForOtherUser).Error
	if err == nil {
		log.Printf("[DeviceRepository] Device %s was linked to user %s, unlinking before linking to user %s",
			device.DeviceIdentifier, existingForOtherUser.UserID, device.UserID)
		if err := r.db.Delete(&existingForOtherUser).Error; err != nil {
			return err
		}
	}

	// Same push token under a new identifier: the old row is stale
	if err := r.db.Where("user_id = ? AND push_token = ? AND device_identifier != ?",
		device.UserID, device.PushToken, device.DeviceIdentifier).
		Delete(&models.Device{}).Error; err != nil {
		return err
	}

	var existing models.Device
	err = r.db.Where("user_id = ? AND device_identifier = ?", device.UserID, device.DeviceIdentifier).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		device.LastSeenAt = time.Now().UTC()
		return r.db.Create(device).Error
	}
	if err != nil {
		return err
	}

	existing.Platform = device.Platform
	existing.PushToken = device.PushToken
	existing.DeviceName = device.DeviceName
	existing.AppVersion = device.AppVersion
	existing.OSVersion = device.OSVersion
	existing.LastSeenAt = time.Now().UTC()
	if err := r.db.Save(&existing).Error; err != nil {
		return err
	}
	*device = existing
	return nil
}

// UpdateLocation records the position a device sampled at sampledAt. It
// reports whether the user owns the device.
func (r *DeviceRepository) UpdateLocation(id, userID uuid.UUID, lat, lon float64, sampledAt time.Time) (bool, error) {
	result := r.db.Model(&models.Device{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"latitude":     lat,
			"longitude":    lon,
			"location_at":  sampledAt.UTC(),
			"last_seen_at": time.Now().UTC(),
		})
	return result.RowsAffected > 0, result.Error
}

// LatestLocation returns the device with the most recent position sampled
// after since, or gorm.ErrRecordNotFound.
func (r *DeviceRepository) LatestLocation(userID uuid.UUID, since time.Time) (*models.Device, error) {
	var device models.Device
	err := r.db.
		Where("user_id = ? AND location_at IS NOT NULL AND location_at >= ?", userID, since.UTC()).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("location_at DESC").
		First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

type PushTarget struct {
	Platform  models.Platform
	PushToken string
}

func (r *DeviceRepository) GetAllPushTokens(userID uuid.UUID) ([]PushTarget, error) {
	var result []PushTarget
	// DISTINCT: the same token can linger under an old identifier
	err := r.db.Model(&models.Device{}).
		Select("DISTINCT push_token, platform").
		Where("user_id = ?", userID).
		Find(&result).Error
	return result, err
}
