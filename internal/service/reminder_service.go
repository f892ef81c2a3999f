package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
	"github.com/kritika1265/AgriDirect-sub000/internal/notify"
)

// ReminderService keeps scheduled notifications in step with the calendar.
// Every reminder-flagged event owns at most one notification, addressed by
// a key derived from the event id.
type ReminderService struct {
	notifier notify.Notifier
	timezone *time.Location
	fireHour int
	fireMin  int
	logger   *zap.Logger
}

func NewReminderService(n notify.Notifier, tz *time.Location, logger *zap.Logger) *ReminderService {
	if tz == nil {
		tz = time.UTC
	}
	return &ReminderService{
		notifier: n,
		timezone: tz,
		fireHour: 6,
		fireMin:  30,
		logger:   logger,
	}
}

// SetFireTime sets the local time of day reminders fire at.
func (r *ReminderService) SetFireTime(hour, min int) {
	r.fireHour = hour
	r.fireMin = min
}

// NotificationKey returns the notification identity for an event. Stable
// per event id, so re-scheduling replaces instead of duplicating.
func (r *ReminderService) NotificationKey(eventID string) string {
	return "event_" + eventID
}

// EventAdded schedules the notification for a new calendar event. Events
// without the reminder flag are skipped. Past fire times are passed
// through untouched: whether they fire is the notifier's policy, not
// ours.
func (r *ReminderService) EventAdded(e domain.CalendarEvent) error {
	if !e.IsReminder {
		return nil
	}

	n := &domain.Notification{
		Key:     r.NotificationKey(e.ID),
		EventID: e.ID,
		Title:   e.Title,
		Body:    e.Description,
		FireAt:  r.fireTimeFor(e),
	}
	if err := r.notifier.Schedule(n); err != nil {
		return fmt.Errorf("schedule %s: %w", n.Key, err)
	}
	return nil
}

// EventRemoved cancels whatever notification the event may have had. The
// cancel is unconditional so a stale notification never outlives its
// event; cancelling an unknown key is a no-op at the notifier.
func (r *ReminderService) EventRemoved(eventID string) error {
	key := r.NotificationKey(eventID)
	if err := r.notifier.Cancel(key); err != nil {
		return fmt.Errorf("cancel %s: %w", key, err)
	}
	return nil
}

// Sync re-schedules notifications for a full event set, typically after a
// calendar load. Individual failures are logged and the first one is
// returned once the rest of the set has been processed.
func (r *ReminderService) Sync(events []domain.CalendarEvent) error {
	var firstErr error
	for _, e := range events {
		if err := r.EventAdded(e); err != nil {
			r.logger.Warn("sync notification failed",
				zap.String("event_id", e.ID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// fireTimeFor places the reminder on the event's day at the configured
// local time.
func (r *ReminderService) fireTimeFor(e domain.CalendarEvent) time.Time {
	d := e.Date.In(r.timezone)
	return time.Date(d.Year(), d.Month(), d.Day(), r.fireHour, r.fireMin, 0, 0, r.timezone)
}
