// Package config handles loading and validating netcover configuration.
//
// Configuration comes from a YAML file layered over DefaultConfig, with
// a small set of NC_* environment overrides applied last. The run
// section maps one-to-one onto the sampling driver's options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/netcover/pkg/model"
)

// Config is the top-level netcover configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Run      RunConfig      `yaml:"run"`
}

// DatabaseConfig locates the catalog and run-store database.
type DatabaseConfig struct {
	// Path is the SQLite database file holding the catalog tables and
	// receiving the run tables.
	Path string `yaml:"path"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	// Addr is the listen address for /metrics, e.g. ":9464".
	// Empty disables the listener.
	Addr string `yaml:"addr"`
}

// RunConfig is the structured record consumed by the sampling driver.
type RunConfig struct {
	// CoverageTarget is the fraction of in-scope elements to cover,
	// in [0, 1]. Required.
	CoverageTarget float64 `yaml:"coverage_target"`

	Filter model.ScopeFilter `yaml:"filter"`

	// IsInterToolset pairs PoCs across toolsets instead of within one.
	IsInterToolset bool `yaml:"is_inter_toolset"`

	Bias BiasConfig `yaml:"bias_reduction"`

	MaxRelaxationLevels int `yaml:"max_relaxation_levels"`
	AttemptsCeiling     int `yaml:"attempts_ceiling"`
	BFSDepthLimit       int `yaml:"bfs_depth_limit"`

	// Seed seeds the sampler PRNG. Runs with the same seed, catalog,
	// and config produce identical metrics and paths. 0 means derive
	// from the clock.
	Seed int64 `yaml:"seed"`

	// Timeout bounds the whole run. 0 means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// Tag is an optional suffix appended to the generated run tag.
	Tag string `yaml:"tag"`

	// LegacyDistance switches the minimum-distance check back to the
	// historical node-id delta instead of hop distance.
	LegacyDistance bool `yaml:"legacy_distance"`
}

// BiasConfig holds the sampler's bias reduction knobs.
type BiasConfig struct {
	MaxAttemptsPerToolset   int     `yaml:"max_attempts_per_toolset"`
	MaxAttemptsPerEquipment int     `yaml:"max_attempts_per_equipment"`
	MinDistanceBetweenNodes int     `yaml:"min_distance_between_nodes"`
	UtilityDiversityWeight  float64 `yaml:"utility_diversity_weight"`
	PhaseDiversityWeight    float64 `yaml:"phase_diversity_weight"`
	PlateauThreshold        int     `yaml:"plateau_threshold"`
	MinCoverageImprovement  float64 `yaml:"min_coverage_improvement"`
	CoverageHistorySize     int     `yaml:"coverage_history_size"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "netcover.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Run: RunConfig{
			CoverageTarget:      0,
			Bias:                DefaultBias(),
			MaxRelaxationLevels: 3,
			AttemptsCeiling:     100000,
			BFSDepthLimit:       50,
		},
	}
}

// DefaultBias returns the documented bias reduction defaults.
func DefaultBias() BiasConfig {
	return BiasConfig{
		MaxAttemptsPerToolset:   5,
		MaxAttemptsPerEquipment: 3,
		MinDistanceBetweenNodes: 10,
		UtilityDiversityWeight:  0.3,
		PhaseDiversityWeight:    0.2,
		PlateauThreshold:        50,
		MinCoverageImprovement:  0.01,
		CoverageHistorySize:     10,
	}
}

// Load reads a YAML config file layered over DefaultConfig. A missing
// file is not an error: defaults plus env overrides are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "netcover.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ApplyEnvOverrides(cfg), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return ApplyEnvOverrides(cfg), nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return c.Run.Validate()
}

// Validate checks the run section.
func (r *RunConfig) Validate() error {
	if r.CoverageTarget < 0 || r.CoverageTarget > 1 {
		return fmt.Errorf("run.coverage_target must be in [0, 1], got %v", r.CoverageTarget)
	}
	if r.Bias.UtilityDiversityWeight < 0 || r.Bias.UtilityDiversityWeight > 1 {
		return fmt.Errorf("run.bias_reduction.utility_diversity_weight must be in [0, 1]")
	}
	if r.Bias.PhaseDiversityWeight < 0 || r.Bias.PhaseDiversityWeight > 1 {
		return fmt.Errorf("run.bias_reduction.phase_diversity_weight must be in [0, 1]")
	}
	if r.Bias.MinCoverageImprovement < 0 || r.Bias.MinCoverageImprovement > 1 {
		return fmt.Errorf("run.bias_reduction.min_coverage_improvement must be in [0, 1]")
	}
	if r.Bias.MaxAttemptsPerToolset < 1 {
		return fmt.Errorf("run.bias_reduction.max_attempts_per_toolset must be at least 1")
	}
	if r.Bias.MaxAttemptsPerEquipment < 1 {
		return fmt.Errorf("run.bias_reduction.max_attempts_per_equipment must be at least 1")
	}
	if r.Bias.MinDistanceBetweenNodes < 1 {
		return fmt.Errorf("run.bias_reduction.min_distance_between_nodes must be at least 1")
	}
	if r.Bias.CoverageHistorySize < 1 {
		return fmt.Errorf("run.bias_reduction.coverage_history_size must be at least 1")
	}
	if r.Bias.PlateauThreshold < 1 {
		return fmt.Errorf("run.bias_reduction.plateau_threshold must be at least 1")
	}
	if r.MaxRelaxationLevels < 0 {
		return fmt.Errorf("run.max_relaxation_levels must not be negative")
	}
	if r.AttemptsCeiling < 1 {
		return fmt.Errorf("run.attempts_ceiling must be at least 1")
	}
	if r.BFSDepthLimit < 1 {
		return fmt.Errorf("run.bfs_depth_limit must be at least 1")
	}
	return nil
}

// Environment override names.
const (
	// EnvSeed overrides run.seed.
	EnvSeed = "NC_SEED"
	// EnvLogLevel overrides logging.level.
	EnvLogLevel = "NC_LOG_LEVEL"
	// EnvDatabase overrides database.path.
	EnvDatabase = "NC_DATABASE"
	// EnvAttemptsCeiling overrides run.attempts_ceiling when set (>0).
	EnvAttemptsCeiling = "NC_ATTEMPTS_CEILING"
)

// ApplyEnvOverrides applies NC_* environment tunables over a loaded
// configuration.
func ApplyEnvOverrides(cfg *Config) *Config {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabase)); v != "" {
		cfg.Database.Path = v
	}
	if n, ok := envInt64(EnvSeed); ok {
		cfg.Run.Seed = n
	}
	if n, ok := envInt64(EnvAttemptsCeiling); ok && n > 0 {
		cfg.Run.AttemptsCeiling = int(n)
	}
	return cfg
}

func envInt64(name string) (int64, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
