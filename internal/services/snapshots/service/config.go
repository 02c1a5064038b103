package service

import (
	"time"

	"bestsellers/internal/platform/config"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ConfigFromEnv builds a Config from SNAPSHOT_ prefixed keys
func ConfigFromEnv(cfg config.Conf) Config {
	c := cfg.Prefix("SNAPSHOT_")
	return Config{
		FreshFor: c.MayDuration("FRESH_FOR", 4*time.Hour),
		StaleFor: c.MayDuration("STALE_FOR", 24*time.Hour),
		ListWeekday: c.MayEnum("LIST_WEEKDAY", "wednesday",
			"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"),
		IngestHourUTC: c.MayInt("INGEST_HOUR", 8),
	}
}
