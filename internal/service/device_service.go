package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/dto"
	"github.com/user/nudge/backend/internal/geo"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/repository"
	apperrors "github.com/user/nudge/backend/pkg/errors"
	"gorm.io/gorm"
)

type DeviceService struct {
	deviceRepo *repository.DeviceRepository
	now        func() time.Time
}

func NewDeviceService(deviceRepo *repository.DeviceRepository) *DeviceService {
	return &DeviceService{
		deviceRepo: deviceRepo,
		now:        time.Now,
	}
}

// Register registers a new device or updates an existing one.
func (s *DeviceService) Register(userID uuid.UUID, req dto.RegisterDeviceRequest) (*dto.DeviceDTO, error) {
	if req.PushToken == "" {
		return nil, apperrors.ValidationError("Push token is required")
	}
	if req.DeviceIdentifier == "" {
		return nil, apperrors.ValidationError("Device identifier is required")
	}

	device := &models.Device{
		UserID:           userID,
		DeviceIdentifier: req.DeviceIdentifier,
		Platform:         models.Platform(req.Platform),
		PushToken:        req.PushToken,
		DeviceName:       req.DeviceName,
		AppVersion:       req.AppVersion,
		OSVersion:        req.OSVersion,
		LastSeenAt:       s.now().UTC(),
	}

	if err := s.deviceRepo.Upsert(device); err != nil {
		return nil, apperrors.Internal(err, "Failed to register device")
	}

	out := dto.DeviceToDTO(device)
	return &out, nil
}

// ReportLocation stores the position a device sampled. Positions reported
// with a future timestamp are clamped to now.
func (s *DeviceService) ReportLocation(userID, deviceID uuid.UUID, req dto.ReportLocationRequest) error {
	if req.Latitude == nil || req.Longitude == nil {
		return apperrors.ValidationError("Latitude and longitude are required")
	}
	if !(geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}).Valid() {
		return apperrors.ValidationError("Coordinates out of range")
	}

	now := s.now().UTC()
	sampledAt := now
	if req.SampledAt != nil && req.SampledAt.Before(now) {
		sampledAt = req.SampledAt.UTC()
	}

	ok, err := s.deviceRepo.UpdateLocation(deviceID, userID, *req.Latitude, *req.Longitude, sampledAt)
	if err != nil {
		return apperrors.Internal(err, "Failed to store location")
	}
	if !ok {
		return apperrors.ErrDeviceNotFound
	}
	return nil
}

// Unregister removes a device.
func (s *DeviceService) Unregister(userID, deviceID uuid.UUID) error {
	ok, err := s.deviceRepo.DeleteForUser(deviceID, userID)
	if err != nil {
		return apperrors.Internal(err, "Failed to unregister device")
	}
	if !ok {
		return apperrors.ErrDeviceNotFound
	}
	return nil
}

// ListByUser returns all devices for a user.
func (s *DeviceService) ListByUser(userID uuid.UUID) ([]dto.DeviceDTO, error) {
	devices, err := s.deviceRepo.ListByUser(userID)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to list devices")
	}
	return dto.DevicesToDTO(devices), nil
}

// GetByID returns a single device by ID.
func (s *DeviceService) GetByID(userID, deviceID uuid.UUID) (*dto.DeviceDTO, error) {
	device, err := s.deviceRepo.FindByIDAndUser(deviceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrDeviceNotFound
		}
		return nil, apperrors.Internal(err, "Failed to load device")
	}
	out := dto.DeviceToDTO(device)
	return &out, nil
}
