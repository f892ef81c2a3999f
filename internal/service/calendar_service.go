package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
)

// Persistence snapshots the calendar event set between sessions.
type Persistence interface {
	LoadEvents() ([]domain.CalendarEvent, error)
	SaveEvents([]domain.CalendarEvent) error
}

// CalendarService owns the in-memory event set. It starts empty and
// unusable; Load materializes the crop activities, merges persisted user
// events and flips the service into its loaded state. Every operation
// before that fails with ErrNotLoaded.
//
// A single mutex serializes mutations end to end, so a mutation's store
// snapshot and notification update never interleave with another
// mutation's.
type CalendarService struct {
	schedule  *ScheduleService
	store     Persistence
	reminders *ReminderService
	timezone  *time.Location

	mu     sync.Mutex
	loaded bool
	events map[string]domain.CalendarEvent

	now func() time.Time
}

func NewCalendarService(schedule *ScheduleService, store Persistence, reminders *ReminderService, tz *time.Location) *CalendarService {
	if tz == nil {
		tz = time.UTC
	}
	return &CalendarService{
		schedule:  schedule,
		store:     store,
		reminders: reminders,
		timezone:  tz,
		events:    map[string]domain.CalendarEvent{},
		now:       time.Now,
	}
}

// Loaded reports whether the calendar has been initialized.
func (s *CalendarService) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Load builds the session's event set: crop activities materialized for
// now, plus persisted user events. Calling Load again rebuilds the same
// set, it never duplicates. A catalog or store read failure leaves the
// calendar unloaded; failures after the set is built (snapshot write,
// notification sync) are returned as warnings with the calendar loaded
// and usable.
func (s *CalendarService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	materialized, err := s.schedule.Materialize(ctx, now)
	if err != nil {
		return err
	}

	stored, err := s.store.LoadEvents()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	events := make(map[string]domain.CalendarEvent, len(materialized)+len(stored))
	for _, e := range materialized {
		events[e.ID] = e
	}
	for _, e := range stored {
		// Activity events are re-derived from the catalog on every load;
		// stored copies from earlier sessions would go stale, so only
		// user events survive from the store.
		if e.Type == domain.EventCropActivity {
			continue
		}
		if _, ok := events[e.ID]; ok {
			continue
		}
		events[e.ID] = e
	}

	s.events = events
	s.loaded = true

	snap := s.snapshotLocked()
	var warn error
	if err := s.store.SaveEvents(snap); err != nil {
		warn = fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.reminders.Sync(snap); err != nil && warn == nil {
		warn = fmt.Errorf("%w: %v", ErrNotification, err)
	}
	return warn
}

// Add inserts a user event. An empty id gets a generated one; a supplied
// id must be unused. The in-memory insert is authoritative: a failing
// store snapshot or notification schedule is reported as a warning, the
// returned event is in the calendar either way.
func (s *CalendarService) Add(event domain.CalendarEvent) (domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return domain.CalendarEvent{}, ErrNotLoaded
	}

	if event.Type == "" {
		event.Type = domain.EventCustom
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	if err := event.Validate(); err != nil {
		return domain.CalendarEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.Type == domain.EventCropActivity {
		return domain.CalendarEvent{}, fmt.Errorf("%w: add it to the catalog instead", ErrTemplateEvent)
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if _, exists := s.events[event.ID]; exists {
		return domain.CalendarEvent{}, fmt.Errorf("%w: %s", ErrDuplicateID, event.ID)
	}

	s.events[event.ID] = event

	var warn error
	if err := s.store.SaveEvents(s.snapshotLocked()); err != nil {
		warn = fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.reminders.EventAdded(event); err != nil && warn == nil {
		warn = fmt.Errorf("%w: %v", ErrNotification, err)
	}
	return event, warn
}

// Remove deletes a user event by id. Unknown ids are a no-op. Crop
// activity events come from the catalog and cannot be removed.
func (s *CalendarService) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNotLoaded
	}

	event, ok := s.events[id]
	if !ok {
		// Cancel regardless: a notification from an earlier session may
		// still reference the id, and the cancel is a cheap no-op
		// otherwise.
		if err := s.reminders.EventRemoved(id); err != nil {
			return fmt.Errorf("%w: %v", ErrNotification, err)
		}
		return nil
	}
	if event.IsTemplate() {
		return fmt.Errorf("%w: %s", ErrTemplateEvent, id)
	}

	// Cancel first so no notification can outlive its event.
	notifyErr := s.reminders.EventRemoved(id)

	delete(s.events, id)

	if err := s.store.SaveEvents(s.snapshotLocked()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if notifyErr != nil {
		return fmt.Errorf("%w: %v", ErrNotification, notifyErr)
	}
	return nil
}

// Events returns the full event set ordered by date.
func (s *CalendarService) Events() ([]domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	return s.snapshotLocked(), nil
}

// EventsForDay returns the events falling on the given calendar day,
// interpreted in date's location.
func (s *CalendarService) EventsForDay(date time.Time) ([]domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}

	var out []domain.CalendarEvent
	for _, e := range s.events {
		if e.OccursOn(date) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

// EventsInRange returns the events from day from through day to,
// inclusive on both ends.
func (s *CalendarService) EventsInRange(from, to time.Time) ([]domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}

	start := dayStart(from)
	end := dayStart(to.In(from.Location())).AddDate(0, 0, 1)

	var out []domain.CalendarEvent
	for _, e := range s.events {
		d := e.Date.In(from.Location())
		if !d.Before(start) && d.Before(end) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out, nil
}

// Today returns the events for the current day in the configured
// timezone.
func (s *CalendarService) Today() ([]domain.CalendarEvent, error) {
	return s.EventsForDay(s.now().In(s.timezone))
}

// FormatDigest renders events as a Telegram digest message. Empty input
// yields an empty string so callers can skip sending.
func (s *CalendarService) FormatDigest(events []domain.CalendarEvent) string {
	if len(events) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("🌱 Today on the farm:\n")
	for _, e := range events {
		sb.WriteString("• " + e.Title + "\n")
		if e.Description != "" {
			sb.WriteString("  " + e.Description + "\n")
		}
	}
	return sb.String()
}

// snapshotLocked copies the event set into a sorted slice. Caller must
// hold mu.
func (s *CalendarService) snapshotLocked() []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sortEvents(out)
	return out
}

func sortEvents(events []domain.CalendarEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
}
