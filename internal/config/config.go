// Package config models meridian.yml, the optional per-workspace file for
// server settings, logging, scoring threshold overrides, and webhooks.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hadimercer/meridian/internal/scoring"
)

// Config models meridian.yml. Every section is optional; a missing file
// means all defaults.
type Config struct {
	Server struct {
		Addr                   string `yaml:"addr"`
		BasePath               string `yaml:"base_path"`
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Scoring  ScoringOverrides `yaml:"scoring"`
	Webhooks []Webhook        `yaml:"webhooks"`
}

// ScoringOverrides are optional replacements for individual baseline values.
// Pointers distinguish "unset" from legitimate zero or negative thresholds.
type ScoringOverrides struct {
	ScheduleGreenMin  *float64 `yaml:"schedule_green_min"`
	ScheduleAmberMin  *float64 `yaml:"schedule_amber_min"`
	BudgetGreenMin    *float64 `yaml:"budget_green_min"`
	BudgetAmberMin    *float64 `yaml:"budget_amber_min"`
	BlockerRecentDays *int     `yaml:"blocker_recent_days"`
	BlockerAgingDays  *int     `yaml:"blocker_aging_days"`
	WeightSchedule    *float64 `yaml:"weight_schedule"`
	WeightBudget      *float64 `yaml:"weight_budget"`
	WeightBlocker     *float64 `yaml:"weight_blocker"`
	StalenessDaily    *int     `yaml:"staleness_daily"`
	StalenessWeekly   *int     `yaml:"staleness_weekly"`
	StalenessBiweekly *int     `yaml:"staleness_biweekly"`
	StalenessMonthly  *int     `yaml:"staleness_monthly"`
}

type Webhook struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

// Baselines returns the stock baselines with any overrides applied.
func (c *Config) Baselines() scoring.Baselines {
	b := scoring.DefaultBaselines()
	if c == nil {
		return b
	}
	o := c.Scoring
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setI := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&b.Schedule.GreenMin, o.ScheduleGreenMin)
	setF(&b.Schedule.AmberMin, o.ScheduleAmberMin)
	setF(&b.Budget.GreenMin, o.BudgetGreenMin)
	setF(&b.Budget.AmberMin, o.BudgetAmberMin)
	setI(&b.BlockerRecentDays, o.BlockerRecentDays)
	setI(&b.BlockerAgingDays, o.BlockerAgingDays)
	setF(&b.Weights.Schedule, o.WeightSchedule)
	setF(&b.Weights.Budget, o.WeightBudget)
	setF(&b.Weights.Blocker, o.WeightBlocker)
	setI(&b.StalenessDaily, o.StalenessDaily)
	setI(&b.StalenessWeekly, o.StalenessWeekly)
	setI(&b.StalenessBiweekly, o.StalenessBiweekly)
	setI(&b.StalenessMonthly, o.StalenessMonthly)
	return b
}

// Validate ensures the config is internally coherent.
func (c *Config) Validate() error {
	o := c.Scoring
	if o.ScheduleGreenMin != nil && o.ScheduleAmberMin != nil && *o.ScheduleGreenMin <= *o.ScheduleAmberMin {
		return fmt.Errorf("scoring.schedule_green_min must exceed schedule_amber_min")
	}
	if o.BudgetGreenMin != nil && o.BudgetAmberMin != nil && *o.BudgetGreenMin <= *o.BudgetAmberMin {
		return fmt.Errorf("scoring.budget_green_min must exceed budget_amber_min")
	}
	for _, w := range []*float64{o.WeightSchedule, o.WeightBudget, o.WeightBlocker} {
		if w != nil && *w < 0 {
			return fmt.Errorf("scoring weights must not be negative")
		}
	}
	for _, d := range []*int{o.BlockerRecentDays, o.BlockerAgingDays, o.StalenessDaily, o.StalenessWeekly, o.StalenessBiweekly, o.StalenessMonthly} {
		if d != nil && *d < 0 {
			return fmt.Errorf("scoring day windows must not be negative")
		}
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json, console", c.Log.Format)
	}
	for i, wh := range c.Webhooks {
		if wh.URL == "" {
			return fmt.Errorf("webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "meridian.yml")
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns an all-defaults config when the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// InitLogger builds the process logger from the log section and installs it
// as the zap global.
func (c *Config) InitLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c != nil && c.Log.Level != "" {
		if err := level.Set(c.Log.Level); err != nil {
			return nil, err
		}
	}
	zc := zap.NewProductionConfig()
	if c != nil && c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
