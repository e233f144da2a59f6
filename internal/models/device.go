package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Device is a phone that receives pushes and reports where the user is.
type Device struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	DeviceIdentifier string         `gorm:"size:255;not null;index" json:"device_identifier"`
	Platform         Platform       `gorm:"type:varchar(10);not null" json:"platform"`
	PushToken        string         `gorm:"not null;index" json:"-"`
	DeviceName       string         `gorm:"size:255" json:"device_name"`
	AppVersion       string         `gorm:"size:20" json:"app_version"`
	OSVersion        string         `gorm:"size:20" json:"os_version"`
	Latitude         *float64       `json:"latitude,omitempty"`
	Longitude        *float64       `json:"longitude,omitempty"`
	LocationAt       *time.Time     `gorm:"index" json:"location_at,omitempty"` // When the position was sampled on the device
	LastSeenAt       time.Time      `json:"last_seen_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// HasLocation reports whether the device ever reported a position.
func (d *Device) HasLocation() bool {
	return d.Latitude != nil && d.Longitude != nil && d.LocationAt != nil
}
