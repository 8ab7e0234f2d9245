package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/netcover/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.Run.AttemptsCeiling != 100000 {
		t.Errorf("attempts ceiling = %d, want 100000", cfg.Run.AttemptsCeiling)
	}
	if cfg.Run.BFSDepthLimit != 50 {
		t.Errorf("bfs depth limit = %d, want 50", cfg.Run.BFSDepthLimit)
	}
	if cfg.Run.MaxRelaxationLevels != 3 {
		t.Errorf("max relaxation levels = %d, want 3", cfg.Run.MaxRelaxationLevels)
	}

	bias := cfg.Run.Bias
	if bias.MaxAttemptsPerToolset != 5 || bias.MaxAttemptsPerEquipment != 3 {
		t.Errorf("attempt caps = %d/%d, want 5/3", bias.MaxAttemptsPerToolset, bias.MaxAttemptsPerEquipment)
	}
	if bias.MinDistanceBetweenNodes != 10 {
		t.Errorf("min distance = %d, want 10", bias.MinDistanceBetweenNodes)
	}
	if bias.UtilityDiversityWeight != 0.3 || bias.PhaseDiversityWeight != 0.2 {
		t.Errorf("diversity weights = %v/%v, want 0.3/0.2", bias.UtilityDiversityWeight, bias.PhaseDiversityWeight)
	}
	if bias.PlateauThreshold != 50 || bias.CoverageHistorySize != 10 {
		t.Errorf("plateau = %d history = %d, want 50 and 10", bias.PlateauThreshold, bias.CoverageHistorySize)
	}
	if bias.MinCoverageImprovement != 0.01 {
		t.Errorf("min improvement = %v, want 0.01", bias.MinCoverageImprovement)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netcover.yaml")
	data := `
database:
  path: /tmp/fab.db
logging:
  level: debug
run:
  coverage_target: 0.8
  is_inter_toolset: true
  filter:
    fab_no: 3
    toolset: TS-X
  bias_reduction:
    max_attempts_per_toolset: 9
    min_distance_between_nodes: 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/fab.db" {
		t.Errorf("database path = %s", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %s", cfg.Logging.Level)
	}
	if cfg.Run.CoverageTarget != 0.8 || !cfg.Run.IsInterToolset {
		t.Errorf("run section = %+v", cfg.Run)
	}
	if cfg.Run.Filter.FabNo != 3 || cfg.Run.Filter.Toolset != "TS-X" {
		t.Errorf("filter = %+v", cfg.Run.Filter)
	}
	if cfg.Run.Bias.MaxAttemptsPerToolset != 9 {
		t.Errorf("max attempts per toolset = %d, want 9", cfg.Run.Bias.MaxAttemptsPerToolset)
	}
	if cfg.Run.Bias.MinDistanceBetweenNodes != 4 {
		t.Errorf("min distance = %d, want 4", cfg.Run.Bias.MinDistanceBetweenNodes)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.AttemptsCeiling != 100000 {
		t.Error("missing file should fall back to defaults")
	}
}

func TestValidate_Ranges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"target above one", func(c *config.Config) { c.Run.CoverageTarget = 1.5 }},
		{"negative target", func(c *config.Config) { c.Run.CoverageTarget = -0.1 }},
		{"utility weight", func(c *config.Config) { c.Run.Bias.UtilityDiversityWeight = 2 }},
		{"zero history", func(c *config.Config) { c.Run.Bias.CoverageHistorySize = 0 }},
		{"zero ceiling", func(c *config.Config) { c.Run.AttemptsCeiling = 0 }},
		{"zero depth", func(c *config.Config) { c.Run.BFSDepthLimit = 0 }},
		{"empty database", func(c *config.Config) { c.Database.Path = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvSeed, "77")
	t.Setenv(config.EnvLogLevel, "warn")
	t.Setenv(config.EnvAttemptsCeiling, "500")

	cfg := config.ApplyEnvOverrides(config.DefaultConfig())
	if cfg.Run.Seed != 77 {
		t.Errorf("seed = %d, want 77", cfg.Run.Seed)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level = %s, want warn", cfg.Logging.Level)
	}
	if cfg.Run.AttemptsCeiling != 500 {
		t.Errorf("attempts ceiling = %d, want 500", cfg.Run.AttemptsCeiling)
	}
}
