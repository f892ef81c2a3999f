package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kritika1265/AgriDirect-sub000/config"
	"github.com/kritika1265/AgriDirect-sub000/internal/api"
	"github.com/kritika1265/AgriDirect-sub000/internal/catalog"
	"github.com/kritika1265/AgriDirect-sub000/internal/clients/caldav"
	"github.com/kritika1265/AgriDirect-sub000/internal/clients/telegram"
	"github.com/kritika1265/AgriDirect-sub000/internal/notify"
	"github.com/kritika1265/AgriDirect-sub000/internal/scheduler"
	"github.com/kritika1265/AgriDirect-sub000/internal/service"
	"github.com/kritika1265/AgriDirect-sub000/internal/storage"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Init storage
	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("init storage", zap.Error(err))
	}
	defer store.Close()

	// Init services
	cat := catalog.New(cfg.CatalogPath)
	notifier := notify.NewLocalNotifier(store, logger)

	scheduleSvc := service.NewScheduleService(cat, cfg.Timezone)
	scheduleSvc.SetYearRollover(cfg.CalendarYearRollover)

	reminderSvc := service.NewReminderService(notifier, cfg.Timezone, logger)
	reminderSvc.SetFireTime(cfg.DigestHour, cfg.DigestMinute)

	calendarSvc := service.NewCalendarService(scheduleSvc, store, reminderSvc, cfg.Timezone)

	// Load the calendar. Side effect failures are survivable, a calendar
	// that never loaded is not.
	if err := calendarSvc.Load(context.Background()); err != nil {
		if !calendarSvc.Loaded() {
			logger.Fatal("load calendar", zap.Error(err))
		}
		logger.Warn("calendar loaded with warning", zap.Error(err))
	}

	// Init delivery clients
	tg, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID, logger)
	if err != nil {
		logger.Fatal("init telegram client", zap.Error(err))
	}

	dav := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
	if cfg.CalDAVPath != "" {
		dav.SetCalendarPath(cfg.CalDAVPath)
	}

	// Init scheduler
	sched := scheduler.New(cfg, calendarSvc, notifier, logger)
	sched.SetSender(tg)
	sched.SetPublisher(dav)

	// Init API server
	server := api.NewServer(cfg, calendarSvc, cat, dav, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			logger.Error("scheduler", zap.Error(err))
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("api server", zap.Error(err))
		}
	}()

	logger.Info("AgriDirect started", zap.String("timezone", cfg.Timezone.String()))

	// Wait for termination
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("stop api server", zap.Error(err))
	}

	logger.Info("AgriDirect stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
