package domain

import (
	"errors"
	"fmt"
	"time"
)

// EventType classifies a calendar event. The set is closed: anything else
// is rejected at validation.
type EventType string

const (
	EventCropActivity EventType = "crop_activity" // materialized from a crop schedule template
	EventCustom       EventType = "custom"        // user-authored
	EventReminder     EventType = "reminder"      // user-authored, reminder-first
	EventWeather      EventType = "weather"       // weather advisory pinned to a date
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCropActivity, EventCustom, EventReminder, EventWeather:
		return true
	}
	return false
}

// CalendarEvent is a dated entry in the farm calendar. Materialized events
// carry a deterministic ID and a CropName back-reference; user-authored
// events get their ID from the store.
type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Type        EventType
	IsReminder  bool
	CropName    string // set only for materialized events
	CreatedAt   time.Time
}

// ActivityEventID builds the deterministic ID for a materialized event.
// The same (crop, activity, year) always maps to the same ID, which is what
// keeps re-materialization within a year from duplicating events.
func ActivityEventID(cropName, activity string, year int) string {
	return fmt.Sprintf("%s_%s_%d", cropName, activity, year)
}

// Validate checks the fields a store is not willing to repair.
func (e *CalendarEvent) Validate() error {
	if e.Title == "" {
		return errors.New("event title is empty")
	}
	if e.Date.IsZero() {
		return errors.New("event date is not set")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// IsTemplate reports whether the event was materialized from a crop schedule
// template. Template events are regenerated every session and cannot be
// deleted individually.
func (e *CalendarEvent) IsTemplate() bool {
	return e.Type == EventCropActivity
}

// OccursOn reports whether the event falls on the same calendar day as t,
// compared in t's location.
func (e *CalendarEvent) OccursOn(t time.Time) bool {
	d := e.Date.In(t.Location())
	return d.Year() == t.Year() && d.Month() == t.Month() && d.Day() == t.Day()
}

// FormatDate returns the event date for display.
func (e *CalendarEvent) FormatDate() string {
	return e.Date.Format("02.01.2006")
}

// DaysUntil returns the number of whole days from now until the event date.
// Negative for past events.
func (e *CalendarEvent) DaysUntil(now time.Time) int {
	day := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	return int(day(e.Date).Sub(day(now.In(e.Date.Location()))).Hours() / 24)
}
