package jobs

import (
	"context"
	"log"
)

// StaleDeviceStore deletes devices that stopped checking in
type StaleDeviceStore interface {
	DeleteStaleDevices(days int) (int64, error)
}

// DeviceCleanupJob handles cleaning up stale devices
type DeviceCleanupJob struct {
	devices StaleDeviceStore
}

func NewDeviceCleanupJob(devices StaleDeviceStore) *DeviceCleanupJob {
	return &DeviceCleanupJob{devices: devices}
}

// CleanupStaleDevices removes devices not seen for days. Their stale
// positions stop counting toward location reminders as well.
func (j *DeviceCleanupJob) CleanupStaleDevices(ctx context.Context, days int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	log.Printf("[DeviceCleanupJob] Starting cleanup of devices not seen in %d days", days)

	count, err := j.devices.DeleteStaleDevices(days)
	if err != nil {
		log.Printf("[DeviceCleanupJob] Error cleaning stale devices: %v", err)
		return 0, err
	}

	log.Printf("[DeviceCleanupJob] Cleaned up %d stale devices", count)
	return count, nil
}

// DeviceCleanupResult represents the result of cleaning up stale devices
type DeviceCleanupResult struct {
	Deleted int64 `json:"deleted"`
}
