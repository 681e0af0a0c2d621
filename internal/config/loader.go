package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/roombook/internal/timeslot"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort            int
	SQLiteDSN           string
	SessionSecret       string
	SessionTTL          time.Duration
	WorkStartHour       int
	WorkEndHour         int
	SlotDurationMinutes int
	Timezone            string
}

// SlotConfig returns the slot generation parameters derived from the
// environment.
func (c Config) SlotConfig() timeslot.Config {
	return timeslot.Config{
		WorkStartHour:       c.WorkStartHour,
		WorkEndHour:         c.WorkEndHour,
		SlotDurationMinutes: c.SlotDurationMinutes,
	}
}

// Location resolves the configured timezone name.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	slots := timeslot.DefaultConfig()
	cfg := Config{
		HTTPPort:            8080,
		SQLiteDSN:           "file:roombook.db",
		SessionTTL:          12 * time.Hour,
		WorkStartHour:       slots.WorkStartHour,
		WorkEndHour:         slots.WorkEndHour,
		SlotDurationMinutes: slots.SlotDurationMinutes,
		Timezone:            "UTC",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ROOMBOOK_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROOMBOOK_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROOMBOOK_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("ROOMBOOK_SESSION_SECRET")); secret == "" {
		missing = append(missing, "ROOMBOOK_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("ROOMBOOK_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "ROOMBOOK_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if startValue := strings.TrimSpace(os.Getenv("ROOMBOOK_WORK_START_HOUR")); startValue != "" {
		start, err := strconv.Atoi(startValue)
		if err != nil || start < 0 || start > 23 {
			invalid = append(invalid, "ROOMBOOK_WORK_START_HOUR")
		} else {
			cfg.WorkStartHour = start
		}
	}

	if endValue := strings.TrimSpace(os.Getenv("ROOMBOOK_WORK_END_HOUR")); endValue != "" {
		end, err := strconv.Atoi(endValue)
		if err != nil || end < 0 || end > 23 {
			invalid = append(invalid, "ROOMBOOK_WORK_END_HOUR")
		} else {
			cfg.WorkEndHour = end
		}
	}

	if durationValue := strings.TrimSpace(os.Getenv("ROOMBOOK_SLOT_DURATION_MINUTES")); durationValue != "" {
		duration, err := strconv.Atoi(durationValue)
		if err != nil || duration <= 0 {
			invalid = append(invalid, "ROOMBOOK_SLOT_DURATION_MINUTES")
		} else {
			cfg.SlotDurationMinutes = duration
		}
	}

	if tz := strings.TrimSpace(os.Getenv("ROOMBOOK_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "ROOMBOOK_TIMEZONE")
		} else {
			cfg.Timezone = tz
		}
	}

	if err := cfg.SlotConfig().Validate(); err != nil {
		invalid = append(invalid, "ROOMBOOK_WORK_START_HOUR/ROOMBOOK_WORK_END_HOUR")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
