package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/models"
)

// RegisterDeviceRequest is the request body for registering a device
type RegisterDeviceRequest struct {
	DeviceIdentifier string `json:"device_identifier" binding:"required,max=255"`
	Platform         string `json:"platform" binding:"required,oneof=ios android"`
	PushToken        string `json:"push_token" binding:"required"`
	DeviceName       string `json:"device_name,omitempty"`
	AppVersion       string `json:"app_version,omitempty"`
	OSVersion        string `json:"os_version,omitempty"`
}

// ReportLocationRequest carries a position sampled on the device.
// SampledAt defaults to the server time when omitted.
type ReportLocationRequest struct {
	Latitude  *float64   `json:"latitude" binding:"required"`
	Longitude *float64   `json:"longitude" binding:"required"`
	SampledAt *time.Time `json:"sampled_at,omitempty"`
}

// DeviceDTO represents a device in responses
type DeviceDTO struct {
	ID               uuid.UUID  `json:"id"`
	DeviceIdentifier string     `json:"device_identifier"`
	Platform         string     `json:"platform"`
	DeviceName       string     `json:"device_name,omitempty"`
	AppVersion       string     `json:"app_version,omitempty"`
	OSVersion        string     `json:"os_version,omitempty"`
	LocationAt       *time.Time `json:"location_at,omitempty"`
	LastSeenAt       time.Time  `json:"last_seen_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// DeviceListResponse is the response for listing devices
type DeviceListResponse struct {
	Devices []DeviceDTO `json:"devices"`
	Total   int         `json:"total"`
}

func DeviceToDTO(d *models.Device) DeviceDTO {
	return DeviceDTO{
		ID:               d.ID,
		DeviceIdentifier: d.DeviceIdentifier,
		Platform:         string(d.Platform),
		DeviceName:       d.DeviceName,
		AppVersion:       d.AppVersion,
		OSVersion:        d.OSVersion,
		LocationAt:       d.LocationAt,
		LastSeenAt:       d.LastSeenAt,
		CreatedAt:        d.CreatedAt,
	}
}

// DevicesToDTO converts a slice of Device models to DTOs
func DevicesToDTO(devices []models.Device) []DeviceDTO {
	dtos := make([]DeviceDTO, len(devices))
	for i := range devices {
		dtos[i] = DeviceToDTO(&devices[i])
	}
	return dtos
}
