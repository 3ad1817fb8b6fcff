// Package config holds the validated configuration for the speech
// pipeline. Values come from defaults, an optional YAML config file
// (through viper), and SPEECH_* environment variables, in that order.
package config

import (
	"fmt"
	"time"

	gap "github.com/muesli/go-app-paths"

	"github.com/localreader/speech/internal/segment"
)

// Config contains every tunable of the pipeline.
type Config struct {
	// Synthesis settings
	Voice string  `yaml:"voice" env:"SPEECH_VOICE"`
	Speed float64 `yaml:"speed" env:"SPEECH_SPEED"`

	Pauses   segment.PauseConfig `yaml:"pauses"`
	Cache    CacheConfig         `yaml:"cache"`
	Playback PlaybackConfig      `yaml:"playback"`
}

// CacheConfig contains durable-cache settings.
type CacheConfig struct {
	// Dir overrides the default user cache directory when set.
	Dir                string `yaml:"dir" env:"SPEECH_CACHE_DIR"`
	MaxSizeMB          int    `yaml:"max_size_mb" env:"SPEECH_CACHE_MAX_SIZE_MB"`
	MaxAgeDays         int    `yaml:"max_age_days" env:"SPEECH_CACHE_MAX_AGE_DAYS"`
	CompressionLevel   int    `yaml:"compression_level" env:"SPEECH_CACHE_COMPRESSION_LEVEL"`
	PurgeOnVoiceChange int    `yaml:"purge_on_voice_change" env:"SPEECH_CACHE_PURGE_ON_VOICE_CHANGE"`
}

// PlaybackConfig contains controller and scheduler settings.
type PlaybackConfig struct {
	BufferUnits   int `yaml:"buffer_units" env:"SPEECH_BUFFER_UNITS"`
	PrefetchAhead int `yaml:"prefetch_ahead" env:"SPEECH_PREFETCH_AHEAD"`
}

// Default returns a Config with stock values.
func Default() Config {
	return Config{
		Voice:  "af_bella",
		Speed:  1.0,
		Pauses: segment.DefaultPauseConfig(),
		Cache: CacheConfig{
			MaxSizeMB:          200,
			MaxAgeDays:         7,
			CompressionLevel:   3,
			PurgeOnVoiceChange: 20,
		},
		Playback: PlaybackConfig{
			BufferUnits:   10,
			PrefetchAhead: 2,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Voice == "" {
		return fmt.Errorf("voice cannot be empty")
	}

	if c.Speed < 0.5 || c.Speed > 3.0 {
		return fmt.Errorf("speed must be between 0.5 and 3.0, got %g", c.Speed)
	}

	if err := c.Pauses.Validate(); err != nil {
		return fmt.Errorf("pauses: %w", err)
	}

	if c.Cache.MaxSizeMB < 1 {
		return fmt.Errorf("cache max_size_mb must be at least 1, got %d", c.Cache.MaxSizeMB)
	}
	if c.Cache.MaxAgeDays < 0 {
		return fmt.Errorf("cache max_age_days cannot be negative, got %d", c.Cache.MaxAgeDays)
	}
	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("cache compression_level must be between 0 and 22, got %d", c.Cache.CompressionLevel)
	}
	if c.Cache.PurgeOnVoiceChange < 0 {
		return fmt.Errorf("cache purge_on_voice_change cannot be negative, got %d", c.Cache.PurgeOnVoiceChange)
	}

	if c.Playback.BufferUnits < 1 {
		return fmt.Errorf("buffer_units must be at least 1, got %d", c.Playback.BufferUnits)
	}
	if c.Playback.PrefetchAhead < 0 {
		return fmt.Errorf("prefetch_ahead cannot be negative, got %d", c.Playback.PrefetchAhead)
	}

	return nil
}

// MaxCacheBytes converts the configured megabyte budget.
func (c *Config) MaxCacheBytes() int64 {
	return int64(c.Cache.MaxSizeMB) * 1024 * 1024
}

// MaxCacheAge converts the configured day budget. Zero disables age
// eviction.
func (c *Config) MaxCacheAge() time.Duration {
	return time.Duration(c.Cache.MaxAgeDays) * 24 * time.Hour
}

// CacheDir resolves the durable cache directory: the configured override
// when present, otherwise the user cache scope for this application.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	scope := gap.NewScope(gap.User, "speech")
	dir, err := scope.CacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return dir, nil
}
