// Package config provides configuration loading from YAML files.
package config

import (
	"io/fs"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Audio    AudioConfig       `yaml:"audio"`
	Playback PlaybackConfig    `yaml:"playback"`
	Display  DisplayConfig     `yaml:"display"`
	Sources  []SourceConfig    `yaml:"sources"`
	Keys     map[string]string `yaml:"keys"`
	Log      LogConfig         `yaml:"log"`
}

// AudioConfig sizes the output device and the decode pipeline.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferSize int `yaml:"buffer_size" default:"8192" validate:"gt=0"`
	BlockSize  int `yaml:"block_size" default:"1024" validate:"gt=0"`
}

// PlaybackConfig represents playback control configuration.
// Boolean flags are pointers so an explicit false survives defaulting.
type PlaybackConfig struct {
	Autoplay      *bool  `yaml:"autoplay" default:"true"`
	Loop          *bool  `yaml:"loop" default:"true"`
	OnStreamError string `yaml:"on_stream_error" default:"fatal" validate:"oneof=fatal skip"`
}

// DisplayConfig controls the queue window rendering.
type DisplayConfig struct {
	ShowState *bool `yaml:"show_state" default:"true"`
	Window    int   `yaml:"window" default:"3" validate:"gte=1,lte=20"`
}

// SourceConfig represents a single playlist source configuration.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stderr"`
}

// Load loads configuration from a YAML file. A missing file is not an error;
// defaults apply. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("SPINDLE_SAMPLE_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "failed to parse SPINDLE_SAMPLE_RATE")
		}
		c.Audio.SampleRate = n
	}
	if v := os.Getenv("SPINDLE_ON_STREAM_ERROR"); v != "" {
		c.Playback.OnStreamError = v
	}
	if v := os.Getenv("SPINDLE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	if c.Audio.BlockSize > c.Audio.BufferSize {
		return errors.Newf("block_size (%d) must not exceed buffer_size (%d)",
			c.Audio.BlockSize, c.Audio.BufferSize)
	}
	return nil
}

// AutoplayEnabled reports whether the next track starts playing on its own.
func (c *Config) AutoplayEnabled() bool {
	return c.Playback.Autoplay == nil || *c.Playback.Autoplay
}

// LoopEnabled reports whether queue navigation wraps around.
func (c *Config) LoopEnabled() bool {
	return c.Playback.Loop == nil || *c.Playback.Loop
}

// ShowStateEnabled reports whether the queue window is rendered.
func (c *Config) ShowStateEnabled() bool {
	return c.Display.ShowState == nil || *c.Display.ShowState
}
