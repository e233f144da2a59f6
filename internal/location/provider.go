// Package location resolves a user's current position from the locations
// their devices report.
package location

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/geo"
	"github.com/user/nudge/backend/internal/models"
	"gorm.io/gorm"
)

type DeviceLocations interface {
	LatestLocation(userID uuid.UUID, since time.Time) (*models.Device, error)
}

// Provider answers with the freshest device position no older than maxAge.
type Provider struct {
	devices DeviceLocations
	maxAge  time.Duration
	now     func() time.Time
}

func NewProvider(devices DeviceLocations, maxAge time.Duration) *Provider {
	return &Provider{devices: devices, maxAge: maxAge, now: time.Now}
}

// CurrentPosition returns nil without error when no device reported a
// usable position recently.
func (p *Provider) CurrentPosition(ctx context.Context, userID uuid.UUID) (*geo.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := p.devices.LatestLocation(userID, p.now().Add(-p.maxAge))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !device.HasLocation() {
		return nil, nil
	}

	pt := geo.Point{Latitude: *device.Latitude, Longitude: *device.Longitude}
	if !pt.Valid() {
		return nil, nil
	}
	return &pt, nil
}
