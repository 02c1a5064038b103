package service

import (
	"time"

	"bestsellers/internal/platform/config"
)

// ConfigFromEnv builds a Config from METADATA_ prefixed keys
func ConfigFromEnv(cfg config.Conf) Config {
	c := cfg.Prefix("METADATA_")
	return Config{
		L1TTL:         c.MayDuration("L1_TTL", 30*time.Minute),
		L2TTL:         c.MayDuration("L2_TTL", 30*24*time.Hour),
		SentinelTTL:   c.MayDuration("SENTINEL_TTL", 24*time.Hour),
		BatchSize:     c.MayInt("BATCH_SIZE", 5),
		ThrottleDelay: c.MayDuration("THROTTLE_DELAY", time.Second),
		MaxRetries:    c.MayInt("MAX_RETRIES", 3),
		RetryBase:     c.MayDuration("RETRY_BASE", 250*time.Millisecond),
	}
}
