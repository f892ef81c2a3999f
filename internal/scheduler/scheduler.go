package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kritika1265/AgriDirect-sub000/config"
	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
	"github.com/kritika1265/AgriDirect-sub000/internal/notify"
	"github.com/kritika1265/AgriDirect-sub000/internal/service"
)

// Sender delivers notification and digest messages to the farmer.
type Sender interface {
	Send(text string) error
	IsConfigured() bool
}

// Publisher mirrors the calendar to an external calendar server.
type Publisher interface {
	Publish(events []domain.CalendarEvent) (int, error)
	IsConfigured() bool
}

type Scheduler struct {
	cron      *cron.Cron
	cfg       *config.Config
	calendar  *service.CalendarService
	notifier  *notify.LocalNotifier
	sender    Sender
	publisher Publisher
	logger    *zap.Logger
}

func New(cfg *config.Config, calendar *service.CalendarService, notifier *notify.LocalNotifier, logger *zap.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Timezone))

	return &Scheduler{
		cron:     c,
		cfg:      cfg,
		calendar: calendar,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *Scheduler) SetSender(sender Sender) {
	s.sender = sender
}

func (s *Scheduler) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Scheduler) Start(ctx context.Context) error {
	// Deliver due reminders every minute
	if _, err := s.cron.AddFunc("* * * * *", s.deliverDue); err != nil {
		return fmt.Errorf("add reminder delivery: %w", err)
	}

	// Morning digest at the configured time
	digestSpec := fmt.Sprintf("%d %d * * *", s.cfg.DigestMinute, s.cfg.DigestHour)
	if _, err := s.cron.AddFunc(digestSpec, s.morningDigest); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}

	// Nightly CalDAV push
	if _, err := s.cron.AddFunc("0 2 * * *", s.publishCalendar); err != nil {
		return fmt.Errorf("add calendar publish: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("timezone", s.cfg.Timezone.String()),
		zap.String("digest_time", s.cfg.DigestTime))

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// deliverDue sends every notification whose fire time has passed and
// marks it sent. A failed send stays pending for the next tick.
func (s *Scheduler) deliverDue() {
	if s.sender == nil || !s.sender.IsConfigured() {
		return
	}

	due, err := s.notifier.Due(time.Now())
	if err != nil {
		s.logger.Error("list due notifications", zap.Error(err))
		return
	}

	for _, n := range due {
		text := "🔔 " + n.Title
		if n.Body != "" {
			text += "\n" + n.Body
		}

		if err := s.sender.Send(text); err != nil {
			s.logger.Error("send notification",
				zap.String("key", n.Key),
				zap.Error(err))
			continue
		}

		if err := s.notifier.MarkSent(n.Key, time.Now()); err != nil {
			s.logger.Error("mark notification sent",
				zap.String("key", n.Key),
				zap.Error(err))
		}
	}
}

// morningDigest sends the day's activities in one message. Quiet days
// send nothing.
func (s *Scheduler) morningDigest() {
	if s.sender == nil || !s.sender.IsConfigured() {
		return
	}

	events, err := s.calendar.Today()
	if err != nil {
		s.logger.Error("today's events", zap.Error(err))
		return
	}

	text := s.calendar.FormatDigest(events)
	if text == "" {
		return
	}

	if err := s.sender.Send(text); err != nil {
		s.logger.Error("send digest", zap.Error(err))
	}
}

// publishCalendar mirrors the full event set to the CalDAV collection.
func (s *Scheduler) publishCalendar() {
	if s.publisher == nil || !s.publisher.IsConfigured() {
		return
	}

	events, err := s.calendar.Events()
	if err != nil {
		s.logger.Error("list events for publish", zap.Error(err))
		return
	}

	n, err := s.publisher.Publish(events)
	if err != nil {
		s.logger.Warn("calendar publish incomplete",
			zap.Int("published", n),
			zap.Error(err))
		return
	}
	s.logger.Info("calendar published", zap.Int("events", n))
}
