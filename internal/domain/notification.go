package domain

import "time"

// Notification is a scheduled local notification for a calendar event.
// Key is stable per event occurrence so re-scheduling the same occurrence
// replaces the previous entry instead of stacking duplicates.
type Notification struct {
	Key     string     `json:"key"`
	EventID string     `json:"event_id"`
	Title   string     `json:"title"`
	Body    string     `json:"body"`
	FireAt  time.Time  `json:"fire_at"`
	SentAt  *time.Time `json:"sent_at,omitempty"`
}

// Pending reports whether the notification still awaits delivery.
func (n *Notification) Pending() bool {
	return n.SentAt == nil
}
