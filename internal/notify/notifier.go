// Package notify schedules and delivers local reminders for calendar
// events. Scheduled notifications are persisted so pending reminders
// survive restarts; delivery itself is driven by the scheduler.
package notify

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
	"github.com/kritika1265/AgriDirect-sub000/internal/storage"
)

// Notifier schedules device reminders for calendar events.
type Notifier interface {
	Schedule(n *domain.Notification) error
	Cancel(key string) error
}

// LocalNotifier keeps scheduled notifications in the sqlite store.
type LocalNotifier struct {
	storage *storage.Storage
	logger  *zap.Logger

	now func() time.Time
}

func NewLocalNotifier(s *storage.Storage, logger *zap.Logger) *LocalNotifier {
	return &LocalNotifier{storage: s, logger: logger, now: time.Now}
}

// Schedule registers a notification. Scheduling an already known key
// replaces the previous entry. Requests whose fire time has already
// passed are silently dropped; this is the single place that policy
// lives.
func (l *LocalNotifier) Schedule(n *domain.Notification) error {
	if n.Key == "" {
		return fmt.Errorf("notification key is empty")
	}
	if n.FireAt.Before(l.now()) {
		l.logger.Debug("notification in the past, dropped",
			zap.String("key", n.Key),
			zap.Time("fire_at", n.FireAt))
		return nil
	}
	if err := l.storage.UpsertNotification(n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	l.logger.Debug("notification scheduled",
		zap.String("key", n.Key),
		zap.Time("fire_at", n.FireAt))
	return nil
}

// Cancel drops a scheduled notification. Unknown keys are ignored.
func (l *LocalNotifier) Cancel(key string) error {
	if err := l.storage.DeleteNotification(key); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	l.logger.Debug("notification cancelled", zap.String("key", key))
	return nil
}

// Due returns unsent notifications whose fire time has passed.
func (l *LocalNotifier) Due(now time.Time) ([]*domain.Notification, error) {
	return l.storage.ListDueNotifications(now)
}

// Pending returns all unsent notifications, soonest first.
func (l *LocalNotifier) Pending() ([]*domain.Notification, error) {
	return l.storage.ListPendingNotifications()
}

// MarkSent records a delivery so the notification does not fire again.
func (l *LocalNotifier) MarkSent(key string, at time.Time) error {
	return l.storage.MarkNotificationSent(key, at)
}

// Nop is a Notifier that does nothing. Used when notifications are
// disabled.
type Nop struct{}

func (Nop) Schedule(*domain.Notification) error { return nil }
func (Nop) Cancel(string) error                 { return nil }
