// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ik5/audout/output"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Settings is everything the CLI can be configured with, from flags,
// AUDOUT_* environment variables or a config file.
type Settings struct {
	Backend     string        `mapstructure:"backend"`
	Output      int           `mapstructure:"output"`
	OutDir      string        `mapstructure:"out-dir"`
	Outputs     int           `mapstructure:"outputs"`
	Frames      int           `mapstructure:"frames"`
	OutputRate  int           `mapstructure:"output-rate"`
	Channels    int           `mapstructure:"channels"`
	MixAhead    int           `mapstructure:"mix-ahead"`
	Loop        bool          `mapstructure:"loop"`
	Duration    time.Duration `mapstructure:"duration"`
	LogLevel    string        `mapstructure:"log-level"`
	LogFormat   string        `mapstructure:"log-format"`
	MetricsAddr string        `mapstructure:"metrics-addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "null")
	v.SetDefault("output", 0)
	v.SetDefault("out-dir", ".")
	v.SetDefault("outputs", 1)
	v.SetDefault("frames", 1024)
	v.SetDefault("output-rate", 48000)
	v.SetDefault("channels", 2)
	v.SetDefault("mix-ahead", 3)
	v.SetDefault("loop", false)
	v.SetDefault("duration", time.Duration(0))
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("metrics-addr", "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AUDOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadSettings reads the optional config file and decodes v.
func loadSettings(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	var errs []error
	switch s.Backend {
	case "null", "wavfile":
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", s.Backend))
	}
	if s.Frames <= 0 {
		errs = append(errs, fmt.Errorf("frames must be positive, got %d", s.Frames))
	}
	if s.OutputRate < 0 || s.Channels < 0 {
		errs = append(errs, errors.New("output rate and channels must not be negative"))
	}
	if s.MixAhead < 0 {
		errs = append(errs, fmt.Errorf("mix-ahead must not be negative, got %d", s.MixAhead))
	}
	if s.Outputs <= 0 {
		errs = append(errs, fmt.Errorf("outputs must be positive, got %d", s.Outputs))
	}
	if s.Duration < 0 {
		errs = append(errs, fmt.Errorf("duration must not be negative, got %s", s.Duration))
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", s.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// DeviceConfig builds the device config for a source. Zero output rate or
// channels mean "same as the source".
func (s *Settings) DeviceConfig(srcRate, srcChannels int) output.Config {
	cfg := output.Config{
		InputFrames: s.Frames,
		InputRate:   srcRate,
		Channels:    s.Channels,
		OutputRate:  s.OutputRate,
		MixAhead:    s.MixAhead,
	}
	if cfg.OutputRate == 0 {
		cfg.OutputRate = srcRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = srcChannels
	}
	return cfg
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func newLogger(w io.Writer, s *Settings) *slog.Logger {
	level, _ := parseLevel(s.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	if s.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
