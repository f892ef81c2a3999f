package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kritika1265/AgriDirect-sub000/internal/catalog"
	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
)

// lookBackDays is how far behind today a crop activity may fall and still
// be materialized. Recently passed activities stay visible so a farmer who
// opens the calendar late can see what was missed.
const lookBackDays = 30

// ScheduleService turns catalog templates into dated calendar events.
type ScheduleService struct {
	catalog  catalog.Catalog
	timezone *time.Location
	rollover bool
}

func NewScheduleService(cat catalog.Catalog, tz *time.Location) *ScheduleService {
	if tz == nil {
		tz = time.UTC
	}
	return &ScheduleService{catalog: cat, timezone: tz}
}

// SetYearRollover enables cross-year materialization: each activity maps
// to its nearest occurrence inside the rolling year starting at the
// look-back cutoff, instead of strictly the current calendar year.
func (s *ScheduleService) SetYearRollover(enabled bool) {
	s.rollover = enabled
}

// Materialize builds the crop activity events for the session anchored at
// now. The same now always yields the same event set, so reloading never
// duplicates events.
func (s *ScheduleService) Materialize(ctx context.Context, now time.Time) ([]domain.CalendarEvent, error) {
	schedules, err := s.catalog.CropSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}

	now = now.In(s.timezone)
	cutoff := dayStart(now).AddDate(0, 0, -lookBackDays)

	var events []domain.CalendarEvent
	for _, crop := range schedules {
		for _, act := range crop.Activities {
			occ, ok := s.occurrence(act, now, cutoff)
			if !ok {
				continue
			}
			events = append(events, domain.CalendarEvent{
				ID:          domain.ActivityEventID(crop.CropName, act.Activity, occ.Year()),
				Title:       fmt.Sprintf("%s: %s", crop.CropName, act.Activity),
				Description: act.Description,
				Date:        occ,
				Type:        domain.EventCropActivity,
				IsReminder:  true,
				CropName:    crop.CropName,
				CreatedAt:   now,
			})
		}
	}
	return events, nil
}

// occurrence picks the dated occurrence of an activity to surface, or
// reports that none falls inside the window.
func (s *ScheduleService) occurrence(act domain.ActivitySchedule, now, cutoff time.Time) (time.Time, bool) {
	if !s.rollover {
		occ := act.DateIn(now.Year(), s.timezone)
		return occ, !occ.Before(cutoff)
	}

	// With rollover, exactly one yearly occurrence lands in the window
	// [cutoff, cutoff+1y). Checking last year first keeps a December
	// activity visible through its January look-back.
	end := cutoff.AddDate(1, 0, 0)
	for _, year := range []int{now.Year() - 1, now.Year(), now.Year() + 1} {
		occ := act.DateIn(year, s.timezone)
		if !occ.Before(cutoff) && occ.Before(end) {
			return occ, true
		}
	}
	return time.Time{}, false
}

// dayStart truncates t to midnight in its own location.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
