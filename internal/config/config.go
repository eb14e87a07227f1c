package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"IndicatorMaster/internal/model"
	"IndicatorMaster/internal/signal"
)

// Config holds all application configuration.
type Config struct {
	Store struct {
		Path        string        `yaml:"path" default:"data/master_data.json" validate:"required"`
		BackupDir   string        `yaml:"backup_dir"`
		LockTimeout time.Duration `yaml:"lock_timeout" default:"30s"`
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	} `yaml:"log"`
	Schedule struct {
		Cron string `yaml:"cron" default:"0 0 7 * * 1-5"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	FRED struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url" default:"https://api.stlouisfed.org"`
	} `yaml:"fred"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		TextfilePath string `yaml:"textfile_path"`
	} `yaml:"metrics"`
	Proxy      string      `yaml:"proxy"`
	Indicators []Indicator `yaml:"indicators" validate:"dive"`
}

// Indicator is one row of the indicator table.
type Indicator struct {
	Name       string    `yaml:"name" validate:"required"`
	Frequency  string    `yaml:"frequency" validate:"required,oneof=daily monthly quarterly"`
	Quality    string    `yaml:"quality" default:"real" validate:"oneof=real proxy pending manual"`
	Source     Source    `yaml:"source"`
	Transform  Transform `yaml:"transform"`
	Retention  int       `yaml:"retention" validate:"gte=0"`
	MinHistory int       `yaml:"min_history" validate:"gte=0"`
}

// Source tells the collector where an indicator comes from.
type Source struct {
	Kind     string `yaml:"kind" validate:"required,oneof=yahoo fred file static"`
	Label    string `yaml:"label"`
	Symbol   string `yaml:"symbol" validate:"required_if=Kind yahoo"`
	SeriesID string `yaml:"series_id" validate:"required_if=Kind fred"`
	Path     string `yaml:"path" validate:"required_if=Kind file"`
	Query    string `yaml:"query"`
	Interval string `yaml:"interval"`
	Range    string `yaml:"range" default:"2y"`
	Start    string `yaml:"start"`
	// Values is the fixed payload of a static source.
	Values map[string]float64 `yaml:"values"`
}

// Transform selects the signal transform of an indicator.
type Transform struct {
	Kind        string  `yaml:"kind" default:"none" validate:"oneof=none roc moving_average deviation monthly_mean differential rsi range_position trend"`
	Window      int     `yaml:"window" validate:"gte=0"`
	Resample    string  `yaml:"resample" validate:"omitempty,oneof=monthly_mean"`
	Against     string  `yaml:"against"`
	Bandwidth   float64 `yaml:"bandwidth" validate:"gte=0,lt=1"`
	ShortWindow int     `yaml:"short_window" validate:"gte=0"`
}

var validate = validator.New()

// Load reads config from a YAML file, then applies environment variable
// overrides and struct-tag defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("MASTER_DATA_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		cfg.FRED.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and the consistency of the indicator table.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	seen := make(map[string]bool, len(c.Indicators))
	for _, ind := range c.Indicators {
		if seen[ind.Name] {
			return fmt.Errorf("indicator %q is declared twice", ind.Name)
		}
		seen[ind.Name] = true
	}
	var errs []error
	for _, ind := range c.Indicators {
		if err := ind.check(seen); err != nil {
			errs = append(errs, fmt.Errorf("indicator %q: %w", ind.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (ind Indicator) check(names map[string]bool) error {
	switch signal.Kind(ind.Transform.Kind) {
	case signal.KindRateOfChange, signal.KindMovingAverage, signal.KindDeviation, signal.KindRSI, signal.KindRangePosition:
		if ind.Transform.Window <= 0 {
			return fmt.Errorf("transform %s needs a positive window", ind.Transform.Kind)
		}
	case signal.KindDifferential:
		if !names[ind.Transform.Against] {
			return fmt.Errorf("differential against unknown indicator %q", ind.Transform.Against)
		}
		if ind.Transform.Against == ind.Name {
			return errors.New("differential against itself")
		}
	}
	return nil
}

// Spec returns the transform spec of ind.
func (ind Indicator) Spec() signal.Spec {
	return signal.Spec{
		Kind:        signal.Kind(ind.Transform.Kind),
		Window:      ind.Transform.Window,
		Resample:    ind.Transform.Resample,
		Against:     ind.Transform.Against,
		Bandwidth:   ind.Transform.Bandwidth,
		ShortWindow: ind.Transform.ShortWindow,
	}
}

// FrequencyValue returns the parsed frequency.
func (ind Indicator) FrequencyValue() model.Frequency {
	f, _ := model.ParseFrequency(ind.Frequency)
	return f
}

// QualityValue returns the parsed data quality.
func (ind Indicator) QualityValue() model.DataQuality {
	q, _ := model.ParseDataQuality(ind.Quality)
	return q
}

// Registry builds the transform table of all indicators that declare one.
func (c *Config) Registry() signal.Registry {
	reg := make(signal.Registry)
	for _, ind := range c.Indicators {
		if ind.Transform.Kind == "" || signal.Kind(ind.Transform.Kind) == signal.KindNone {
			continue
		}
		reg[ind.Name] = ind.Spec()
	}
	return reg
}

// Retention returns the per-indicator point caps.
func (c *Config) Retention() map[string]int {
	out := make(map[string]int)
	for _, ind := range c.Indicators {
		if ind.Retention > 0 {
			out[ind.Name] = ind.Retention
		}
	}
	return out
}

// MinHistory returns the per-indicator GARCH-ready thresholds.
func (c *Config) MinHistory() map[string]int {
	out := make(map[string]int)
	for _, ind := range c.Indicators {
		if ind.MinHistory > 0 {
			out[ind.Name] = ind.MinHistory
		}
	}
	return out
}

// Indicator returns the configured indicator called name.
func (c *Config) Indicator(name string) (Indicator, bool) {
	for _, ind := range c.Indicators {
		if ind.Name == name {
			return ind, true
		}
	}
	return Indicator{}, false
}
