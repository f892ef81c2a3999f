// Package api exposes the crop calendar over HTTP: JSON endpoints for the
// mobile app plus an iCalendar feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kritika1265/AgriDirect-sub000/config"
	"github.com/kritika1265/AgriDirect-sub000/internal/catalog"
	"github.com/kritika1265/AgriDirect-sub000/internal/clients/caldav"
	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
	"github.com/kritika1265/AgriDirect-sub000/internal/ics"
	"github.com/kritika1265/AgriDirect-sub000/internal/service"
)

const dateFormat = "2006-01-02"

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Warning string      `json:"warning,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type EventResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	IsReminder  bool   `json:"is_reminder"`
	CropName    string `json:"crop_name,omitempty"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	DaysUntil   int    `json:"days_until"`
}

type Server struct {
	cfg       *config.Config
	calendar  *service.CalendarService
	catalog   catalog.Catalog
	publisher *caldav.Client
	logger    *zap.Logger
	mux       *http.ServeMux
	server    *http.Server
}

func NewServer(cfg *config.Config, cal *service.CalendarService, cat catalog.Catalog, pub *caldav.Client, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		calendar:  cal,
		catalog:   cat,
		publisher: pub,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/events", s.basicAuth(s.apiEvents))
	s.mux.HandleFunc("/api/events/range", s.basicAuth(s.apiEventsRange))
	s.mux.HandleFunc("/api/events/today", s.basicAuth(s.apiEventsToday))
	s.mux.HandleFunc("/api/event/", s.basicAuth(s.apiEvent))

	s.mux.HandleFunc("/api/crops", s.basicAuth(s.apiCrops))
	s.mux.HandleFunc("/api/calendar.ics", s.basicAuth(s.apiCalendarFeed))
	s.mux.HandleFunc("/api/caldav/calendars", s.basicAuth(s.apiCalDAVCalendars))
}

// Handler returns the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    ":" + s.cfg.ServerPort,
		Handler: s.mux,
	}

	s.logger.Info("api server started", zap.String("port", s.cfg.ServerPort))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// basicAuth middleware. Without configured credentials the API is open.
func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.APIAuthEnabled() {
			next(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok || username != s.cfg.APIUsername || password != s.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="AgriDirect API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.jsonResponseWarn(w, data, "")
}

func (s *Server) jsonResponseWarn(w http.ResponseWriter, data interface{}, warning string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data, Warning: warning})
}

func (s *Server) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// writeServiceError maps calendar errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotLoaded):
		s.jsonError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrDuplicateID):
		s.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrTemplateEvent), errors.Is(err, service.ErrInvalidEvent):
		s.jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

// isWarning reports whether the mutation succeeded with a side effect
// failure. The response then carries the warning instead of an error.
func isWarning(err error) bool {
	return errors.Is(err, service.ErrPersistence) || errors.Is(err, service.ErrNotification)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// GET /api/events?date=YYYY-MM-DD - events for a day (all events if no date)
// POST /api/events - create event
func (s *Server) apiEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var (
			events []domain.CalendarEvent
			err    error
		)
		if d := r.URL.Query().Get("date"); d != "" {
			day, perr := time.ParseInLocation(dateFormat, d, s.cfg.Timezone)
			if perr != nil {
				s.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
				return
			}
			events, err = s.calendar.EventsForDay(day)
		} else {
			events, err = s.calendar.Events()
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.jsonResponse(w, s.eventsToResponse(events))

	case http.MethodPost:
		var req struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Date        string `json:"date"`
			Type        string `json:"type"`
			IsReminder  bool   `json:"is_reminder"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		if req.Title == "" {
			s.jsonError(w, "Title is required", http.StatusBadRequest)
			return
		}
		if req.Type != "" && !domain.EventType(req.Type).Valid() {
			s.jsonError(w, "Invalid event type", http.StatusBadRequest)
			return
		}

		date, err := time.ParseInLocation(dateFormat, req.Date, s.cfg.Timezone)
		if err != nil {
			s.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
			return
		}

		added, err := s.calendar.Add(domain.CalendarEvent{
			ID:          req.ID,
			Title:       req.Title,
			Description: req.Description,
			Date:        date,
			Type:        domain.EventType(req.Type),
			IsReminder:  req.IsReminder,
		})
		if err != nil && !isWarning(err) {
			s.writeServiceError(w, err)
			return
		}

		var warn string
		if err != nil {
			warn = err.Error()
			s.logger.Warn("event added with warning", zap.Error(err))
		}
		s.jsonResponseWarn(w, s.eventToResponse(added), warn)

	default:
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/events/range?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *Server) apiEventsRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, err := time.ParseInLocation(dateFormat, r.URL.Query().Get("from"), s.cfg.Timezone)
	if err != nil {
		s.jsonError(w, "Invalid from date (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	to, err := time.ParseInLocation(dateFormat, r.URL.Query().Get("to"), s.cfg.Timezone)
	if err != nil {
		s.jsonError(w, "Invalid to date (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	events, err := s.calendar.EventsInRange(from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.jsonResponse(w, s.eventsToResponse(events))
}

// GET /api/events/today
func (s *Server) apiEventsToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := s.calendar.Today()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.jsonResponse(w, s.eventsToResponse(events))
}

// DELETE /api/event/{id}
func (s *Server) apiEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/event/")
	if id == "" {
		s.jsonError(w, "Event ID required", http.StatusBadRequest)
		return
	}

	err := s.calendar.Remove(id)
	if err != nil && !isWarning(err) {
		s.writeServiceError(w, err)
		return
	}

	var warn string
	if err != nil {
		warn = err.Error()
		s.logger.Warn("event removed with warning", zap.Error(err))
	}
	s.jsonResponseWarn(w, map[string]string{"id": id}, warn)
}

// GET /api/crops - the crop schedule catalog
func (s *Server) apiCrops(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	schedules, err := s.catalog.CropSchedules(r.Context())
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, schedules)
}

// GET /api/calendar.ics - iCalendar feed of the full event set
func (s *Server) apiCalendarFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	events, err := s.calendar.Events()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	data, err := ics.Encode(ics.Build(events, "AgriDirect Crop Calendar"))
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Write(data)
}

// GET /api/caldav/calendars - list collections on the publish server
func (s *Server) apiCalDAVCalendars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.publisher == nil || !s.publisher.IsConfigured() {
		s.jsonError(w, "CalDAV not configured", http.StatusServiceUnavailable)
		return
	}

	calendars, err := s.publisher.DiscoverCalendars()
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type calendarItem struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	items := make([]calendarItem, 0, len(calendars))
	for _, c := range calendars {
		items = append(items, calendarItem{ID: c.ID, Name: c.DisplayName, URL: c.URL})
	}
	s.jsonResponse(w, items)
}

func (s *Server) eventToResponse(e domain.CalendarEvent) EventResponse {
	cat := domain.CategoryFor(e)
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Date:        e.Date.In(s.cfg.Timezone).Format(dateFormat),
		Type:        string(e.Type),
		IsReminder:  e.IsReminder,
		CropName:    e.CropName,
		Icon:        cat.Icon,
		Color:       cat.Color,
		DaysUntil:   e.DaysUntil(time.Now().In(s.cfg.Timezone)),
	}
}

func (s *Server) eventsToResponse(events []domain.CalendarEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, s.eventToResponse(e))
	}
	return out
}
