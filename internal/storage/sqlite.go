package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			date DATETIME NOT NULL,
			type TEXT NOT NULL,
			is_reminder INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			key TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT DEFAULT '',
			fire_at DATETIME NOT NULL,
			sent_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_event ON notifications(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_fire ON notifications(fire_at)`,
		// Crop attribution for materialized activity events
		`ALTER TABLE events ADD COLUMN crop_name TEXT DEFAULT ''`,
		`CREATE INDEX IF NOT EXISTS idx_events_crop ON events(crop_name)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Events ===

// SaveEvents replaces the stored event set with the given one atomically.
// The calendar keeps its authoritative copy in memory and snapshots it here
// after every mutation, so a partial write must never survive.
func (s *Storage) SaveEvents(events []domain.CalendarEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO events (id, title, description, date, type, is_reminder, crop_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.ID, e.Title, e.Description, e.Date, string(e.Type), e.IsReminder, e.CropName, e.CreatedAt); err != nil {
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// LoadEvents returns all stored events ordered by date.
func (s *Storage) LoadEvents() ([]domain.CalendarEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, title, description, date, type, is_reminder, crop_name, created_at
		 FROM events ORDER BY date ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.CalendarEvent
	for rows.Next() {
		var e domain.CalendarEvent
		var typ string
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &typ, &e.IsReminder, &e.CropName, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents returns the number of stored events.
func (s *Storage) CountEvents() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// === Notifications ===

// UpsertNotification schedules or re-schedules a notification. The key is
// the identity: scheduling the same key twice keeps a single row.
func (s *Storage) UpsertNotification(n *domain.Notification) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO notifications (key, event_id, title, body, fire_at, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.Key, n.EventID, n.Title, n.Body, n.FireAt, n.SentAt,
	)
	return err
}

// GetNotification returns a notification by key, or nil when absent.
func (s *Storage) GetNotification(key string) (*domain.Notification, error) {
	n := &domain.Notification{}
	err := s.db.QueryRow(
		`SELECT key, event_id, title, body, fire_at, sent_at FROM notifications WHERE key = ?`,
		key,
	).Scan(&n.Key, &n.EventID, &n.Title, &n.Body, &n.FireAt, &n.SentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

// DeleteNotification cancels a notification by key. Deleting an absent key
// is not an error.
func (s *Storage) DeleteNotification(key string) error {
	_, err := s.db.Exec(`DELETE FROM notifications WHERE key = ?`, key)
	return err
}

// DeleteNotificationsForEvent cancels every notification scheduled for the
// given event.
func (s *Storage) DeleteNotificationsForEvent(eventID string) error {
	_, err := s.db.Exec(`DELETE FROM notifications WHERE event_id = ?`, eventID)
	return err
}

// ListDueNotifications returns unsent notifications with fire_at at or
// before now, ordered by fire time.
func (s *Storage) ListDueNotifications(now time.Time) ([]*domain.Notification, error) {
	rows, err := s.db.Query(
		`SELECT key, event_id, title, body, fire_at, sent_at
		 FROM notifications
		 WHERE sent_at IS NULL AND fire_at <= ?
		 ORDER BY fire_at ASC`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.Key, &n.EventID, &n.Title, &n.Body, &n.FireAt, &n.SentAt); err != nil {
			return nil, err
		}
		due = append(due, n)
	}
	return due, rows.Err()
}

// ListPendingNotifications returns all unsent notifications ordered by fire
// time, soonest first.
func (s *Storage) ListPendingNotifications() ([]*domain.Notification, error) {
	rows, err := s.db.Query(
		`SELECT key, event_id, title, body, fire_at, sent_at
		 FROM notifications
		 WHERE sent_at IS NULL
		 ORDER BY fire_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.Key, &n.EventID, &n.Title, &n.Body, &n.FireAt, &n.SentAt); err != nil {
			return nil, err
		}
		pending = append(pending, n)
	}
	return pending, rows.Err()
}

// MarkNotificationSent records the delivery time so the notification is not
// delivered again.
func (s *Storage) MarkNotificationSent(key string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE notifications SET sent_at = ? WHERE key = ?`, at, key)
	return err
}
