package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadFromViper loads configuration from Viper, then overlays SPEECH_*
// environment variables and validates the result.
func LoadFromViper() (Config, error) {
	cfg := Default()

	// Synthesis settings
	if viper.IsSet("speech.voice") {
		cfg.Voice = viper.GetString("speech.voice")
	}
	if viper.IsSet("speech.speed") {
		cfg.Speed = viper.GetFloat64("speech.speed")
	}

	// Pause table
	if viper.IsSet("speech.pauses.comma") {
		cfg.Pauses.Comma = viper.GetInt("speech.pauses.comma")
	}
	if viper.IsSet("speech.pauses.period") {
		cfg.Pauses.Period = viper.GetInt("speech.pauses.period")
	}
	if viper.IsSet("speech.pauses.question") {
		cfg.Pauses.Question = viper.GetInt("speech.pauses.question")
	}
	if viper.IsSet("speech.pauses.exclamation") {
		cfg.Pauses.Exclamation = viper.GetInt("speech.pauses.exclamation")
	}
	if viper.IsSet("speech.pauses.colon") {
		cfg.Pauses.Colon = viper.GetInt("speech.pauses.colon")
	}
	if viper.IsSet("speech.pauses.semicolon") {
		cfg.Pauses.Semicolon = viper.GetInt("speech.pauses.semicolon")
	}
	if viper.IsSet("speech.pauses.newline") {
		cfg.Pauses.Newline = viper.GetInt("speech.pauses.newline")
	}
	if viper.IsSet("speech.pauses.soft_pause") {
		cfg.Pauses.SoftPause = viper.GetInt("speech.pauses.soft_pause")
	}
	if viper.IsSet("speech.pauses.speaker_change") {
		cfg.Pauses.SpeakerChange = viper.GetInt("speech.pauses.speaker_change")
	}
	if viper.IsSet("speech.pauses.action_beat") {
		cfg.Pauses.ActionBeat = viper.GetInt("speech.pauses.action_beat")
	}
	if viper.IsSet("speech.pauses.chapter_transition") {
		cfg.Pauses.ChapterTransition = viper.GetInt("speech.pauses.chapter_transition")
	}

	// Cache settings
	if viper.IsSet("speech.cache.dir") {
		cfg.Cache.Dir = viper.GetString("speech.cache.dir")
	}
	if viper.IsSet("speech.cache.max_size_mb") {
		cfg.Cache.MaxSizeMB = viper.GetInt("speech.cache.max_size_mb")
	}
	if viper.IsSet("speech.cache.max_age_days") {
		cfg.Cache.MaxAgeDays = viper.GetInt("speech.cache.max_age_days")
	}
	if viper.IsSet("speech.cache.compression_level") {
		cfg.Cache.CompressionLevel = viper.GetInt("speech.cache.compression_level")
	}
	if viper.IsSet("speech.cache.purge_on_voice_change") {
		cfg.Cache.PurgeOnVoiceChange = viper.GetInt("speech.cache.purge_on_voice_change")
	}

	// Playback settings
	if viper.IsSet("speech.playback.buffer_units") {
		cfg.Playback.BufferUnits = viper.GetInt("speech.playback.buffer_units")
	}
	if viper.IsSet("speech.playback.prefetch_ahead") {
		cfg.Playback.PrefetchAhead = viper.GetInt("speech.playback.prefetch_ahead")
	}

	// Environment variables win over the config file.
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SetDefaults seeds Viper with the stock configuration so that a partial
// config file only overrides what it names.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("speech.voice", defaults.Voice)
	viper.SetDefault("speech.speed", defaults.Speed)

	viper.SetDefault("speech.pauses.comma", defaults.Pauses.Comma)
	viper.SetDefault("speech.pauses.period", defaults.Pauses.Period)
	viper.SetDefault("speech.pauses.question", defaults.Pauses.Question)
	viper.SetDefault("speech.pauses.exclamation", defaults.Pauses.Exclamation)
	viper.SetDefault("speech.pauses.colon", defaults.Pauses.Colon)
	viper.SetDefault("speech.pauses.semicolon", defaults.Pauses.Semicolon)
	viper.SetDefault("speech.pauses.newline", defaults.Pauses.Newline)
	viper.SetDefault("speech.pauses.soft_pause", defaults.Pauses.SoftPause)
	viper.SetDefault("speech.pauses.speaker_change", defaults.Pauses.SpeakerChange)
	viper.SetDefault("speech.pauses.action_beat", defaults.Pauses.ActionBeat)
	viper.SetDefault("speech.pauses.chapter_transition", defaults.Pauses.ChapterTransition)

	viper.SetDefault("speech.cache.max_size_mb", defaults.Cache.MaxSizeMB)
	viper.SetDefault("speech.cache.max_age_days", defaults.Cache.MaxAgeDays)
	viper.SetDefault("speech.cache.compression_level", defaults.Cache.CompressionLevel)
	viper.SetDefault("speech.cache.purge_on_voice_change", defaults.Cache.PurgeOnVoiceChange)

	viper.SetDefault("speech.playback.buffer_units", defaults.Playback.BufferUnits)
	viper.SetDefault("speech.playback.prefetch_ahead", defaults.Playback.PrefetchAhead)
}
