// Package ics renders the crop calendar as an iCalendar document, for the
// feed endpoint and for CalDAV publishing.
package ics

import (
	"bytes"
	"fmt"

	"github.com/emersion/go-ical"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
)

const prodID = "-//AgriDirect//Crop Calendar//EN"

// UID returns the stable iCalendar UID for an event. Re-publishing the
// same event overwrites instead of duplicating.
func UID(e domain.CalendarEvent) string {
	return e.ID + "@agridirect"
}

// Build renders the event set as a VCALENDAR with one all-day VEVENT per
// event.
func Build(events []domain.CalendarEvent, name string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}

	for _, e := range events {
		cal.Children = append(cal.Children, Event(e).Component)
	}
	return cal
}

// Event renders a single calendar event as an all-day VEVENT.
func Event(e domain.CalendarEvent) *ical.Event {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, UID(e))
	vevent.Props.SetText(ical.PropSummary, e.Title)

	if e.Description != "" {
		vevent.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.CropName != "" {
		vevent.Props.SetText(ical.PropCategories, e.CropName)
	}

	// Day precision: DTEND is the exclusive next day.
	vevent.Props.SetDate(ical.PropDateTimeStart, e.Date)
	vevent.Props.SetDate(ical.PropDateTimeEnd, e.Date.AddDate(0, 0, 1))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, e.CreatedAt.UTC())
	return vevent
}

// Encode serializes a calendar in wire format.
func Encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
