package trigger

import (
	"testing"
	"time"

	"github.com/user/nudge/backend/internal/geo"
	"github.com/user/nudge/backend/internal/models"
)

func timeReminder(at *time.Time) *models.Reminder {
	return &models.Reminder{TriggerType: models.TriggerTime, Details: models.TriggerDetails{Time: at}}
}

func locationReminder(lat, lon, radius float64) *models.Reminder {
	return &models.Reminder{
		TriggerType: models.TriggerLocation,
		Details: models.TriggerDetails{
			Location: &models.GeoFence{Latitude: lat, Longitude: lon, RadiusMeters: radius},
		},
	}
}

func conditionReminder(label string) *models.Reminder {
	return &models.Reminder{
		TriggerType: models.TriggerCondition,
		Details: models.TriggerDetails{
			Condition: &models.Condition{Kind: models.ConditionKindWeather, Label: label},
		},
	}
}

func TestShouldTrigger_Time(t *testing.T) {
	due := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"exactly at instant", due, true},
		{"one second before", due.Add(-time.Second), false},
		{"one nanosecond before", due.Add(-time.Nanosecond), false},
		{"after instant", due.Add(5 * time.Minute), true},
		{"same instant other zone", due.In(time.FixedZone("EET", 2*3600)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldTrigger(timeReminder(&due), tt.now, nil, ""); got != tt.want {
				t.Errorf("ShouldTrigger() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldTrigger_Location(t *testing.T) {
	r := locationReminder(0, 0, 500)

	tests := []struct {
		name string
		pos  *geo.Point
		want bool
	}{
		{"about 489m away", &geo.Point{Latitude: 0, Longitude: 0.0044}, true},
		{"about 1113m away", &geo.Point{Latitude: 0, Longitude: 0.01}, false},
		{"at the center", &geo.Point{}, true},
		{"no position", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldTrigger(r, time.Now(), tt.pos, "clear"); got != tt.want {
				t.Errorf("ShouldTrigger() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldTrigger_LocationRadiusBoundary(t *testing.T) {
	pos := geo.Point{Latitude: 48.8566, Longitude: 2.3522}
	center := geo.Point{Latitude: 48.8600, Longitude: 2.3500}
	d := pos.DistanceTo(center)

	onEdge := locationReminder(center.Latitude, center.Longitude, d)
	if !ShouldTrigger(onEdge, time.Now(), &pos, "") {
		t.Errorf("expected match exactly at radius %f", d)
	}

	tooSmall := locationReminder(center.Latitude, center.Longitude, d-0.01)
	if ShouldTrigger(tooSmall, time.Now(), &pos, "") {
		t.Errorf("expected no match just outside radius %f", d-0.01)
	}
}

func TestShouldTrigger_Condition(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		weather string
		want    bool
	}{
		{"same case", "rain", "rain", true},
		{"capitalized weather", "rain", "Rain", true},
		{"capitalized label", "Rain", "rain", true},
		{"upper case", "rain", "RAIN", true},
		{"different label", "rain", "Clear", false},
		{"unknown weather", "rain", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldTrigger(conditionReminder(tt.label), time.Now(), nil, tt.weather); got != tt.want {
				t.Errorf("ShouldTrigger() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldTrigger_FailsClosed(t *testing.T) {
	pos := &geo.Point{Latitude: 0, Longitude: 0}
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		r    *models.Reminder
	}{
		{"nil reminder", nil},
		{"time without instant", timeReminder(nil)},
		{"location without fence", &models.Reminder{TriggerType: models.TriggerLocation}},
		{"condition without condition", &models.Reminder{TriggerType: models.TriggerCondition}},
		{"location with only a time", &models.Reminder{
			TriggerType: models.TriggerLocation,
			Details:     models.TriggerDetails{Time: &past},
		}},
		{"unknown trigger type", &models.Reminder{
			TriggerType: "moon_phase",
			Details: models.TriggerDetails{
				Time:      &past,
				Location:  &models.GeoFence{RadiusMeters: 1000},
				Condition: &models.Condition{Label: "rain"},
			},
		}},
		{"empty trigger type", &models.Reminder{Details: models.TriggerDetails{Time: &past}}},
		{"non-weather condition kind", &models.Reminder{
			TriggerType: models.TriggerCondition,
			Details:     models.TriggerDetails{Condition: &models.Condition{Kind: "traffic", Label: "rain"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ShouldTrigger(tt.r, time.Now(), pos, "rain") {
				t.Error("expected no match")
			}
		})
	}
}

func TestNeedsContext(t *testing.T) {
	onlyTime := []models.Reminder{*timeReminder(nil)}
	if NeedsPosition(onlyTime) || NeedsWeather(onlyTime) {
		t.Error("time reminders need no context")
	}

	withLocation := []models.Reminder{*timeReminder(nil), *locationReminder(0, 0, 1)}
	if !NeedsPosition(withLocation) || NeedsWeather(withLocation) {
		t.Error("location reminders need a position but no weather")
	}

	withCondition := []models.Reminder{*conditionReminder("rain")}
	if !NeedsPosition(withCondition) || !NeedsWeather(withCondition) {
		t.Error("condition reminders need position and weather")
	}
}
