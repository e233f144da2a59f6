package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TriggerType string

const (
	TriggerTime      TriggerType = "time"
	TriggerLocation  TriggerType = "location"
	TriggerCondition TriggerType = "condition"
)

// Valid reports whether t is one of the known trigger kinds.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTime, TriggerLocation, TriggerCondition:
		return true
	}
	return false
}

type RecurringInterval string

const (
	IntervalDaily   RecurringInterval = "daily"
	IntervalWeekly  RecurringInterval = "weekly"
	IntervalMonthly RecurringInterval = "monthly"
)

func (i RecurringInterval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// ConditionKindWeather is the only condition kind reminders can react to.
const ConditionKindWeather = "weather"

// GeoFence is a circular region around a center coordinate.
type GeoFence struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Condition matches a weather label such as "rain" or "clear".
type Condition struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// TriggerDetails is the payload selected by Reminder.TriggerType. Only the
// field matching the trigger type is meaningful.
type TriggerDetails struct {
	Time      *time.Time `json:"time,omitempty"`
	Location  *GeoFence  `json:"location,omitempty"`
	Condition *Condition `json:"condition,omitempty"`
}

// Normalize drops every variant that does not belong to t.
func (d TriggerDetails) Normalize(t TriggerType) TriggerDetails {
	var out TriggerDetails
	switch t {
	case TriggerTime:
		if d.Time != nil {
			ts := d.Time.UTC()
			out.Time = &ts
		}
	case TriggerLocation:
		out.Location = d.Location
	case TriggerCondition:
		out.Condition = d.Condition
	}
	return out
}

// Value implements driver.Valuer for JSON column storage
func (d TriggerDetails) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON column storage
func (d *TriggerDetails) Scan(value interface{}) error {
	if value == nil {
		*d = TriggerDetails{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to unmarshal TriggerDetails value")
	}
	if len(raw) == 0 {
		*d = TriggerDetails{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

type Reminder struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title             string            `gorm:"size:500;not null" json:"title"`
	Category          string            `gorm:"size:100" json:"category"`
	TriggerType       TriggerType       `gorm:"type:varchar(20);not null;index" json:"trigger_type"`
	Details           TriggerDetails    `gorm:"type:jsonb" json:"details"`
	IsRecurring       bool              `gorm:"default:false" json:"is_recurring"`
	RecurringInterval RecurringInterval `gorm:"type:varchar(10)" json:"recurring_interval,omitempty"`
	Notified          bool              `gorm:"not null;default:false;index" json:"notified"` // Set once a time reminder has fired
	NotifiedAt        *time.Time        `json:"notified_at,omitempty"`
	SharedByID        *uuid.UUID        `gorm:"type:uuid" json:"shared_by_id,omitempty"`
	SharedAt          *time.Time        `json:"shared_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (r *Reminder) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsTimeTriggered reports whether the reminder should get a scheduled alert.
func (r *Reminder) IsTimeTriggered() bool {
	return r.TriggerType == TriggerTime && r.Details.Time != nil
}

// AlertBody is the text shown under the title in notifications.
func (r *Reminder) AlertBody() string {
	return r.Category
}
