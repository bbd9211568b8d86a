package app_config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	SamplerNative     = "native"
	SamplerRangeProbe = "range_probe"
)

// This is the config shared by every binary that touches timelines.
type TimelineAppConfig struct {
	// Keep at most this many entries per timeline. 0 disables the cap.
	TIMELINE_MAX_SIZE int64 `yaml:"TIMELINE_MAX_SIZE"`
	// Number of store operations per fan-out round-trip.
	FANOUT_CHUNK_SIZE int `yaml:"FANOUT_CHUNK_SIZE"`
	// Number of store operations per bulk load round-trip.
	LOADER_CHUNK_SIZE int `yaml:"LOADER_CHUNK_SIZE"`
	// "native" or "range_probe". Range probe also maintains the ordered
	// follower index on every follow.
	SAMPLER string `yaml:"SAMPLER"`
	// Timeline size returned when the caller does not ask for one.
	HOME_TIMELINE_LIMIT int `yaml:"HOME_TIMELINE_LIMIT"`
	// Larger requested timeline sizes are clamped to this.
	HOME_TIMELINE_MAX_LIMIT int `yaml:"HOME_TIMELINE_MAX_LIMIT"`
	// Publish every post to the relational archive.
	ARCHIVE_ENABLED bool `yaml:"ARCHIVE_ENABLED"`
	// Listen address of the API server.
	HTTP_ADDR string `yaml:"HTTP_ADDR"`
}

func DefaultTimelineAppConfig() TimelineAppConfig {
	return TimelineAppConfig{
		TIMELINE_MAX_SIZE:       800,
		FANOUT_CHUNK_SIZE:       1000,
		LOADER_CHUNK_SIZE:       3000,
		SAMPLER:                 SamplerNative,
		HOME_TIMELINE_LIMIT:     10,
		HOME_TIMELINE_MAX_LIMIT: 800,
		ARCHIVE_ENABLED:         false,
		HTTP_ADDR:               ":8080",
	}
}

// ParseTimelineAppConfig reads the yaml file at path on top of the defaults.
// An empty path returns the defaults.
func ParseTimelineAppConfig(path string) (TimelineAppConfig, error) {
	c := DefaultTimelineAppConfig()
	if path == "" {
		return c, nil
	}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		return c, errors.Wrapf(err, "fail to read app config %s", path)
	}
	if err = yaml.UnmarshalStrict(yamlFile, &c); err != nil {
		return c, errors.Wrapf(err, "fail to unmarshal app config %s", path)
	}
	return c, c.Validate()
}

func (c TimelineAppConfig) Validate() error {
	if c.TIMELINE_MAX_SIZE < 0 {
		return errors.Errorf("TIMELINE_MAX_SIZE must not be negative, got %d", c.TIMELINE_MAX_SIZE)
	}
	if c.FANOUT_CHUNK_SIZE <= 0 {
		return errors.Errorf("FANOUT_CHUNK_SIZE must be positive, got %d", c.FANOUT_CHUNK_SIZE)
	}
	if c.LOADER_CHUNK_SIZE <= 0 {
		return errors.Errorf("LOADER_CHUNK_SIZE must be positive, got %d", c.LOADER_CHUNK_SIZE)
	}
	if c.HOME_TIMELINE_LIMIT <= 0 {
		return errors.Errorf("HOME_TIMELINE_LIMIT must be positive, got %d", c.HOME_TIMELINE_LIMIT)
	}
	if c.HOME_TIMELINE_MAX_LIMIT < c.HOME_TIMELINE_LIMIT {
		return errors.Errorf("HOME_TIMELINE_MAX_LIMIT must be at least HOME_TIMELINE_LIMIT (%d), got %d", c.HOME_TIMELINE_LIMIT, c.HOME_TIMELINE_MAX_LIMIT)
	}
	if c.SAMPLER != SamplerNative && c.SAMPLER != SamplerRangeProbe {
		return errors.Errorf("unknown SAMPLER %q", c.SAMPLER)
	}
	return nil
}
