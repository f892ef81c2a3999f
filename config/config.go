package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabasePath string
	CatalogPath  string
	Timezone     *time.Location

	// DigestTime is when the daily digest goes out and when event
	// reminders fire, as HH:MM in the configured timezone.
	DigestTime   string
	DigestHour   int
	DigestMinute int

	CalendarYearRollover bool

	ServerPort  string
	APIUsername string
	APIPassword string

	TelegramToken  string
	TelegramChatID int64

	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVPath     string

	LogLevel string
}

func Load() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/agridirect.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Asia/Kolkata"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	digestTime := os.Getenv("DIGEST_TIME")
	if digestTime == "" {
		digestTime = "06:30"
	}
	digestHour, digestMinute, err := parseClock(digestTime)
	if err != nil {
		return nil, fmt.Errorf("invalid DIGEST_TIME: %w", err)
	}

	var rollover bool
	if v := os.Getenv("CALENDAR_YEAR_ROLLOVER"); v != "" {
		rollover, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CALENDAR_YEAR_ROLLOVER: %w", err)
		}
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	var chatID int64
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		chatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		DatabasePath:         dbPath,
		CatalogPath:          os.Getenv("CATALOG_PATH"),
		Timezone:             tz,
		DigestTime:           digestTime,
		DigestHour:           digestHour,
		DigestMinute:         digestMinute,
		CalendarYearRollover: rollover,
		ServerPort:           serverPort,
		APIUsername:          os.Getenv("API_USERNAME"),
		APIPassword:          os.Getenv("API_PASSWORD"),
		TelegramToken:        os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:       chatID,
		CalDAVURL:            os.Getenv("CALDAV_URL"),
		CalDAVUsername:       os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:       os.Getenv("CALDAV_PASSWORD"),
		CalDAVPath:           os.Getenv("CALDAV_PATH"),
		LogLevel:             logLevel,
	}, nil
}

// APIAuthEnabled reports whether the HTTP API requires Basic Auth.
func (c *Config) APIAuthEnabled() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}

func parseClock(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}
