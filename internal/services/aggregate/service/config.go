package service

import (
	"bestsellers/internal/platform/config"
)

// Config tunes category sizes and minimum-sample thresholds
type Config struct {
	TopN               int // default 10
	MinRegionsRegional int // default 2
	MinRegionsNational int // default 5
}

func (c Config) withDefaults() Config {
	if c.TopN <= 0 {
		c.TopN = 10
	}
	if c.MinRegionsRegional <= 0 {
		c.MinRegionsRegional = 2
	}
	if c.MinRegionsNational <= 0 {
		c.MinRegionsNational = 5
	}
	return c
}

// ConfigFromEnv builds a Config from AGGREGATE_ prefixed keys
func ConfigFromEnv(cfg config.Conf) Config {
	c := cfg.Prefix("AGGREGATE_")
	return Config{
		TopN:               c.MayInt("TOP_N", 10),
		MinRegionsRegional: c.MayInt("MIN_REGIONS_REGIONAL", 2),
		MinRegionsNational: c.MayInt("MIN_REGIONS_NATIONAL", 5),
	}
}
