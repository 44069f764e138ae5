// Package config loads the planner configuration from YAML, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rsned/industry-planner/internal/industry/plan"
	"github.com/rsned/industry-planner/pkg/industry"
)

// Config holds all planner configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Planner   PlannerConfig   `yaml:"planner"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// DatabaseConfig holds the SQLite location
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// PlannerConfig holds build plan defaults
type PlannerConfig struct {
	MaxJobTimeSec  int                     `yaml:"max_job_time_sec"` // 0 disables time splitting
	DefaultME      *float64                `yaml:"default_me"`
	DefaultTE      *float64                `yaml:"default_te"`
	FacilityPolicy string                  `yaml:"facility_policy"` // material, index
	Blacklist      []industry.TypeID       `yaml:"blacklist"`
	MaxRuns        map[industry.TypeID]int `yaml:"max_runs"`
}

// OptimizerConfig holds ore mix defaults
type OptimizerConfig struct {
	Efficiency float64 `yaml:"efficiency"`
	CacheSize  *int    `yaml:"cache_size"` // 0 disables the ore mix cache
	OreTable   string  `yaml:"ore_table"`  // optional override of the built-in yield table
}

// DefaultCacheSize is the number of ore mix results kept when the file
// does not set optimizer.cache_size.
const DefaultCacheSize = 256

// Environment variables that override the file.
const (
	EnvDBPath     = "INDUSTRY_DB_PATH"
	EnvLogLevel   = "INDUSTRY_LOG_LEVEL"
	EnvEfficiency = "INDUSTRY_EFFICIENCY"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. A missing file is not an
// error. Values from a .env file in the working directory and from the
// environment take precedence over the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Existing environment variables win over .env entries.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvEfficiency); v != "" {
		eff, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvEfficiency, err)
		}
		c.Optimizer.Efficiency = eff
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "industry.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Planner.DefaultME == nil {
		me := plan.DefaultME
		c.Planner.DefaultME = &me
	}
	if c.Planner.DefaultTE == nil {
		te := plan.DefaultTE
		c.Planner.DefaultTE = &te
	}
	if c.Planner.FacilityPolicy == "" {
		c.Planner.FacilityPolicy = "material"
	}
	if c.Optimizer.Efficiency == 0 {
		c.Optimizer.Efficiency = 0.8
	}
	if c.Optimizer.CacheSize == nil {
		size := DefaultCacheSize
		c.Optimizer.CacheSize = &size
	}
}

func (c *Config) validate() error {
	if c.Optimizer.Efficiency <= 0 || c.Optimizer.Efficiency > 1 {
		return fmt.Errorf("optimizer.efficiency %v outside (0,1]", c.Optimizer.Efficiency)
	}
	if c.Optimizer.CacheSize != nil && *c.Optimizer.CacheSize < 0 {
		return fmt.Errorf("optimizer.cache_size must not be negative")
	}
	if c.Planner.MaxJobTimeSec < 0 {
		return fmt.Errorf("planner.max_job_time_sec must not be negative")
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Policy returns the facility selection policy.
func (c *Config) Policy() (plan.FacilityPolicy, error) {
	switch c.Planner.FacilityPolicy {
	case "material", "":
		return plan.PreferMaterial, nil
	case "index":
		return plan.PreferIndex, nil
	default:
		return 0, fmt.Errorf("planner.facility_policy %q: expected material or index", c.Planner.FacilityPolicy)
	}
}

// MixCacheSize returns the configured ore mix cache size.
func (c *Config) MixCacheSize() int {
	if c.Optimizer.CacheSize == nil {
		return DefaultCacheSize
	}
	return *c.Optimizer.CacheSize
}

// PlanDefaults returns the ME/TE used when no structure matches.
func (c *Config) PlanDefaults() industry.EfficiencyOverride {
	d := industry.EfficiencyOverride{ME: plan.DefaultME, TE: plan.DefaultTE}
	if c.Planner.DefaultME != nil {
		d.ME = *c.Planner.DefaultME
	}
	if c.Planner.DefaultTE != nil {
		d.TE = *c.Planner.DefaultTE
	}
	return d
}
