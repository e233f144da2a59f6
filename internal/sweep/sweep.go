// Package sweep runs one evaluation pass over a user's reminders and fires
// the ones whose trigger currently holds.
package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/user/nudge/backend/internal/geo"
	"github.com/user/nudge/backend/internal/metrics"
	"github.com/user/nudge/backend/internal/models"
	"github.com/user/nudge/backend/internal/trigger"
)

// ReminderStore loads a user's reminders and owns the notified flag.
type ReminderStore interface {
	ListByUser(userID uuid.UUID) ([]models.Reminder, error)
	// MarkNotified atomically sets notified from false to true and reports
	// whether this caller made the transition.
	MarkNotified(id uuid.UUID) (bool, error)
	ClearNotified(id uuid.UUID) error
}

// PositionProvider returns the user's current position, or nil when none
// is known.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, userID uuid.UUID) (*geo.Point, error)
}

// WeatherProvider returns a condition label such as "rain" for a position.
type WeatherProvider interface {
	CurrentCondition(ctx context.Context, lat, lon float64) (string, error)
}

// Notifier delivers an alert to the user right away.
type Notifier interface {
	FireNow(ctx context.Context, userID uuid.UUID, title, body string) error
}

// SettingsSource reports whether the user wants alerts at all.
type SettingsSource interface {
	NotificationsEnabled(userID uuid.UUID) (bool, error)
}

// Result summarizes one sweep.
type Result struct {
	UserID            uuid.UUID                  `json:"user_id"`
	Evaluated         int                        `json:"evaluated"`
	Matched           int                        `json:"matched"`
	Fired             int                        `json:"fired"`
	Skipped           int                        `json:"skipped"`
	Errors            int                        `json:"errors"`
	PositionAvailable bool                       `json:"position_available"`
	WeatherAvailable  bool                       `json:"weather_available"`
	NotificationsOff  bool                       `json:"notifications_off,omitempty"`
	FiredByKind       map[models.TriggerType]int `json:"fired_by_kind"`
}

type Sweeper struct {
	reminders ReminderStore
	settings  SettingsSource
	positions PositionProvider
	weather   WeatherProvider
	notifier  Notifier
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewSweeper wires a sweeper. positions and weather may be nil, in which
// case that context is always unavailable.
func NewSweeper(
	reminders ReminderStore,
	settings SettingsSource,
	positions PositionProvider,
	weather WeatherProvider,
	notifier Notifier,
	recorder metrics.Recorder,
) *Sweeper {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Sweeper{
		reminders: reminders,
		settings:  settings,
		positions: positions,
		weather:   weather,
		notifier:  notifier,
		metrics:   recorder,
		now:       time.Now,
	}
}

// Run performs one sweep for userID. Only a failure to load the user's
// reminders or settings is returned; everything after that degrades and is
// counted in the result.
func (s *Sweeper) Run(ctx context.Context, userID uuid.UUID) (*Result, error) {
	start := time.Now()
	result := &Result{UserID: userID, FiredByKind: map[models.TriggerType]int{}}

	reminders, err := s.reminders.ListByUser(userID)
	if err != nil {
		s.metrics.Sweep(metrics.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("load reminders: %w", err)
	}

	if s.settings != nil {
		enabled, err := s.settings.NotificationsEnabled(userID)
		if err != nil {
			s.metrics.Sweep(metrics.OutcomeFailed, time.Since(start))
			return nil, fmt.Errorf("load settings: %w", err)
		}
		if !enabled {
			result.NotificationsOff = true
			s.metrics.Sweep(metrics.OutcomeSkipped, time.Since(start))
			return result, nil
		}
	}

	var pos *geo.Point
	if trigger.NeedsPosition(reminders) {
		pos = s.samplePosition(ctx, userID)
		result.PositionAvailable = pos != nil
	}

	var weather string
	if pos != nil && trigger.NeedsWeather(reminders) {
		weather = s.sampleWeather(ctx, userID, *pos)
		result.WeatherAvailable = weather != ""
	}

	now := s.now()
	for i := range reminders {
		r := &reminders[i]
		result.Evaluated++

		if !trigger.ShouldTrigger(r, now, pos, weather) {
			continue
		}
		result.Matched++

		if r.TriggerType == models.TriggerTime {
			s.fireOnce(ctx, r, result)
			continue
		}
		s.fire(ctx, r, result)
	}

	s.metrics.Sweep(metrics.OutcomeCompleted, time.Since(start))
	return result, nil
}

// fireOnce fires a time reminder at most once across overlapping sweeps.
func (s *Sweeper) fireOnce(ctx context.Context, r *models.Reminder, result *Result) {
	if r.Notified {
		result.Skipped++
		return
	}

	claimed, err := s.reminders.MarkNotified(r.ID)
	if err != nil {
		log.Printf("[Sweeper] Failed to claim reminder %s: %v", r.ID, err)
		result.Errors++
		return
	}
	if !claimed {
		result.Skipped++
		return
	}

	if err := s.notifier.FireNow(ctx, r.UserID, r.Title, r.AlertBody()); err != nil {
		log.Printf("[Sweeper] Failed to fire reminder %s: %v", r.ID, err)
		result.Errors++
		if err := s.reminders.ClearNotified(r.ID); err != nil {
			log.Printf("[Sweeper] Failed to release claim on reminder %s: %v", r.ID, err)
		}
		return
	}
	s.recordFired(r, result)
}

func (s *Sweeper) fire(ctx context.Context, r *models.Reminder, result *Result) {
	if err := s.notifier.FireNow(ctx, r.UserID, r.Title, r.AlertBody()); err != nil {
		log.Printf("[Sweeper] Failed to fire reminder %s: %v", r.ID, err)
		result.Errors++
		return
	}
	s.recordFired(r, result)
}

func (s *Sweeper) recordFired(r *models.Reminder, result *Result) {
	result.Fired++
	result.FiredByKind[r.TriggerType]++
	s.metrics.Fired(string(r.TriggerType))
}

func (s *Sweeper) samplePosition(ctx context.Context, userID uuid.UUID) *geo.Point {
	if s.positions == nil {
		s.metrics.ContextUnavailable("position")
		return nil
	}
	pos, err := s.positions.CurrentPosition(ctx, userID)
	if err != nil {
		log.Printf("[Sweeper] Position unavailable for user %s: %v", userID, err)
	}
	if pos == nil {
		s.metrics.ContextUnavailable("position")
		return nil
	}
	return pos
}

func (s *Sweeper) sampleWeather(ctx context.Context, userID uuid.UUID, pos geo.Point) string {
	if s.weather == nil {
		s.metrics.ContextUnavailable("weather")
		return ""
	}
	label, err := s.weather.CurrentCondition(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		log.Printf("[Sweeper] Weather unavailable for user %s: %v", userID, err)
		s.metrics.ContextUnavailable("weather")
		return ""
	}
	if label == "" {
		s.metrics.ContextUnavailable("weather")
	}
	return label
}
