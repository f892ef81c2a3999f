package domain

import (
	"errors"
	"fmt"
	"time"
)

// ActivitySchedule is one row of a crop's yearly care template: a named
// activity pinned to a month/day anniversary. Templates are year-agnostic;
// binding to a concrete year happens at materialization.
type ActivitySchedule struct {
	Activity    string `json:"activity"`
	Description string `json:"description"`
	Month       int    `json:"month"` // 1-12
	Day         int    `json:"day"`   // 1-31, not checked against month length
}

// CropSchedule is the full yearly template for one crop. Loaded from the
// catalog once per session and never mutated at runtime.
type CropSchedule struct {
	CropName   string             `json:"crop_name"`
	Activities []ActivitySchedule `json:"activities"`
}

// Validate checks the structural ranges of a template row. Day is not
// validated against the month's length; time.Date normalizes overflow
// (Feb 30 becomes Mar 1 or 2) at materialization.
func (a *ActivitySchedule) Validate() error {
	if a.Activity == "" {
		return errors.New("activity name is empty")
	}
	if a.Month < 1 || a.Month > 12 {
		return fmt.Errorf("activity %q: month %d out of range", a.Activity, a.Month)
	}
	if a.Day < 1 || a.Day > 31 {
		return fmt.Errorf("activity %q: day %d out of range", a.Activity, a.Day)
	}
	return nil
}

// DateIn binds the template row to a concrete year at midnight in loc.
func (a *ActivitySchedule) DateIn(year int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(a.Month), a.Day, 0, 0, 0, 0, loc)
}

// Validate checks the crop name and every activity row.
func (c *CropSchedule) Validate() error {
	if c.CropName == "" {
		return errors.New("crop name is empty")
	}
	for i := range c.Activities {
		if err := c.Activities[i].Validate(); err != nil {
			return fmt.Errorf("crop %q: %w", c.CropName, err)
		}
	}
	return nil
}
