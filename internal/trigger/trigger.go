// Package trigger decides whether a reminder is due given the current context.
package trigger

import (
	"strings"
	"time"

	"github.com/user/nudge/backend/internal/geo"
	"github.com/user/nudge/backend/internal/models"
)

// ShouldTrigger reports whether r matches at now, at position pos (nil when
// unknown) and under the current weather label ("" when unknown). Missing
// details and unknown trigger types never match.
func ShouldTrigger(r *models.Reminder, now time.Time, pos *geo.Point, weather string) bool {
	if r == nil {
		return false
	}

	switch r.TriggerType {
	case models.TriggerTime:
		return timeDue(r.Details.Time, now)
	case models.TriggerLocation:
		return insideFence(r.Details.Location, pos)
	case models.TriggerCondition:
		return conditionHolds(r.Details.Condition, weather)
	default:
		return false
	}
}

func timeDue(at *time.Time, now time.Time) bool {
	if at == nil {
		return false
	}
	return !now.Before(*at)
}

func insideFence(fence *models.GeoFence, pos *geo.Point) bool {
	if fence == nil || pos == nil {
		return false
	}
	d := geo.DistanceMeters(pos.Latitude, pos.Longitude, fence.Latitude, fence.Longitude)
	return d <= fence.RadiusMeters
}

func conditionHolds(cond *models.Condition, weather string) bool {
	if cond == nil || weather == "" {
		return false
	}
	if cond.Kind != "" && !strings.EqualFold(cond.Kind, models.ConditionKindWeather) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(weather), strings.TrimSpace(cond.Label))
}

// NeedsPosition reports whether any reminder can only be decided with a
// current position. Location reminders need it directly and condition
// reminders need it for the weather lookup.
func NeedsPosition(reminders []models.Reminder) bool {
	for i := range reminders {
		switch reminders[i].TriggerType {
		case models.TriggerLocation, models.TriggerCondition:
			return true
		}
	}
	return false
}

// NeedsWeather reports whether any reminder is a condition reminder.
func NeedsWeather(reminders []models.Reminder) bool {
	for i := range reminders {
		if reminders[i].TriggerType == models.TriggerCondition {
			return true
		}
	}
	return false
}
