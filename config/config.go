// Package config holds the resstats settings. Values come from the defaults,
// then an optional TOML file, then RESSTATS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/Feresey/resstats/logparse"
	"github.com/Feresey/resstats/stats"
)

const (
	FormatText = "text"
	FormatYAML = "yaml"
)

type Config struct {
	// BotName is the nickname of the moderator bot in transcripts.
	BotName string `toml:"bot_name" env:"BOT_NAME"`
	// Timezone of transcript timestamps, an IANA name.
	Timezone string `toml:"timezone" env:"TIMEZONE"`

	Log    LogConfig    `toml:"log" envPrefix:"LOG_"`
	Report ReportConfig `toml:"report" envPrefix:"REPORT_"`
	Follow FollowConfig `toml:"follow" envPrefix:"FOLLOW_"`
}

type LogConfig struct {
	Level string `toml:"level" env:"LEVEL"` // debug, info, warn, error
	Color bool   `toml:"color" env:"COLOR"`
}

type ReportConfig struct {
	MinGames    int    `toml:"min_games" env:"MIN_GAMES"`
	Format      string `toml:"format" env:"FORMAT"` // text or yaml
	PlayersFile string `toml:"players_file" env:"PLAYERS_FILE"`
	CSVOutput   string `toml:"csv_output" env:"CSV_OUTPUT"`
}

type FollowConfig struct {
	PollInterval      string `toml:"poll_interval" env:"POLL_INTERVAL"` // e.g. "1s"
	MaxReadsPerSecond int    `toml:"max_reads_per_second" env:"MAX_READS_PER_SECOND"`
}

func DefaultConfig() *Config {
	return &Config{
		BotName:  logparse.DefaultBot,
		Timezone: "UTC",
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
		Report: ReportConfig{
			MinGames: stats.DefaultMinGames,
			Format:   FormatText,
		},
		Follow: FollowConfig{
			PollInterval:      "1s",
			MaxReadsPerSecond: 10,
		},
	}
}

// Load reads the config file at path over the defaults and applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return nil, fmt.Errorf("parse config file %s:%d:%d: %w", path, row, col, err)
			}
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "RESSTATS_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.BotName == "" {
		return errors.New("bot name is empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Report.MinGames < 0 {
		return fmt.Errorf("min games cannot be negative: %d", c.Report.MinGames)
	}
	switch c.Report.Format {
	case FormatText, FormatYAML:
	default:
		return fmt.Errorf("unknown report format %q", c.Report.Format)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if c.Follow.MaxReadsPerSecond <= 0 {
		return fmt.Errorf("max reads per second must be positive: %d", c.Follow.MaxReadsPerSecond)
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) LogLevel() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Follow.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid poll interval %q: %w", c.Follow.PollInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("poll interval must be positive: %s", d)
	}
	return d, nil
}
