package service

import "errors"

// Sentinel errors for calendar operations. Persistence and notification
// failures are warnings: the in-memory mutation they follow has already
// been applied and stands.
var (
	ErrNotLoaded     = errors.New("calendar not loaded")
	ErrCatalogLoad   = errors.New("load crop catalog")
	ErrPersistence   = errors.New("persist calendar")
	ErrNotification  = errors.New("schedule notification")
	ErrInvalidEvent  = errors.New("invalid event")
	ErrDuplicateID   = errors.New("duplicate event id")
	ErrTemplateEvent = errors.New("crop activity events are managed by the catalog")
)
