package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"timeauction/backend/internal/auction"
)

// Broker backends.
const (
	BrokerMemory = "memory"
	BrokerNATS   = "nats"
)

// Config is the server's environment-driven configuration.
type Config struct {
	Addr           string   `env:"ADDR" envDefault:":8080"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty      bool     `env:"LOG_PRETTY" envDefault:"true"`
	Broker         string   `env:"BROKER" envDefault:"memory"`
	NATSURL        string   `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Optional YAML file overriding the default game rules.
	GameSettingsFile string `env:"GAME_SETTINGS_FILE"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Broker != BrokerMemory && cfg.Broker != BrokerNATS {
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
	return &cfg, nil
}

// gameSettingsFile is the YAML schema for game-rule overrides. Absent
// fields keep their defaults; durations use Go syntax ("1s", "500ms").
type gameSettingsFile struct {
	InitialBudget     *float64 `yaml:"initial_budget"`
	TotalRounds       *int     `yaml:"total_rounds"`
	CountdownTicks    *int     `yaml:"countdown_ticks"`
	TickInterval      string   `yaml:"tick_interval"`
	ResultDelay       string   `yaml:"result_delay"`
	DefaultMaxPlayers *int     `yaml:"default_max_players"`
	MinPlayers        *int     `yaml:"min_players"`
}

// GameSettings returns the game rules, applying the YAML override file
// on top of the defaults when one is configured.
func (c *Config) GameSettings() (auction.Settings, error) {
	settings := auction.DefaultSettings()
	if c.GameSettingsFile == "" {
		return settings, nil
	}

	data, err := os.ReadFile(c.GameSettingsFile)
	if err != nil {
		return settings, fmt.Errorf("read game settings file: %w", err)
	}
	var file gameSettingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return settings, fmt.Errorf("parse game settings file: %w", err)
	}

	if file.InitialBudget != nil {
		settings.InitialBudget = *file.InitialBudget
	}
	if file.TotalRounds != nil {
		settings.TotalRounds = *file.TotalRounds
	}
	if file.CountdownTicks != nil {
		settings.CountdownTicks = *file.CountdownTicks
	}
	if file.DefaultMaxPlayers != nil {
		settings.DefaultMaxPlayers = *file.DefaultMaxPlayers
	}
	if file.MinPlayers != nil {
		settings.MinPlayers = *file.MinPlayers
	}
	if file.TickInterval != "" {
		if settings.TickInterval, err = time.ParseDuration(file.TickInterval); err != nil {
			return settings, fmt.Errorf("parse tick_interval: %w", err)
		}
	}
	if file.ResultDelay != "" {
		if settings.ResultDelay, err = time.ParseDuration(file.ResultDelay); err != nil {
			return settings, fmt.Errorf("parse result_delay: %w", err)
		}
	}

	if settings.InitialBudget <= 0 || settings.TotalRounds <= 0 || settings.CountdownTicks <= 0 ||
		settings.TickInterval <= 0 || settings.ResultDelay < 0 || settings.DefaultMaxPlayers < settings.MinPlayers {
		return settings, fmt.Errorf("invalid game settings in %s", c.GameSettingsFile)
	}
	return settings, nil
}
