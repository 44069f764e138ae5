package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rsned/industry-planner/internal/industry/plan"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvEfficiency, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "industry.db" || cfg.Logging.Level != "info" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Optimizer.Efficiency != 0.8 || cfg.MixCacheSize() != DefaultCacheSize {
		t.Errorf("unexpected optimizer defaults %+v", cfg.Optimizer)
	}
	if d := cfg.PlanDefaults(); d.ME != plan.DefaultME || d.TE != plan.DefaultTE {
		t.Errorf("unexpected plan defaults %+v", d)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvEfficiency, "")

	path := writeConfig(t, `
database:
  path: /var/lib/industry.db
logging:
  level: debug
  json: true
planner:
  max_job_time_sec: 86400
  default_me: 0
  facility_policy: index
  blacklist: [11530, 11531]
  max_runs:
    16670: 10
optimizer:
  efficiency: 0.9
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/var/lib/industry.db" || !cfg.Logging.JSON {
		t.Errorf("unexpected config %+v", cfg)
	}
	if d := cfg.PlanDefaults(); d.ME != 0 || d.TE != plan.DefaultTE {
		t.Errorf("explicit zero ME should be kept, got %+v", d)
	}
	if p, _ := cfg.Policy(); p != plan.PreferIndex {
		t.Errorf("expected index policy, got %v", p)
	}
	if len(cfg.Planner.Blacklist) != 2 || cfg.Planner.MaxRuns[16670] != 10 {
		t.Errorf("unexpected planner config %+v", cfg.Planner)
	}
	if cfg.Optimizer.Efficiency != 0.9 {
		t.Errorf("expected efficiency 0.9, got %v", cfg.Optimizer.Efficiency)
	}
}

func TestCacheSizeZeroDisables(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvEfficiency, "")

	cfg, err := Load(writeConfig(t, "optimizer:\n  cache_size: 0\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.MixCacheSize(); got != 0 {
		t.Errorf("explicit zero cache size should be kept, got %d", got)
	}

	cfg, err = Load(writeConfig(t, "optimizer:\n  cache_size: 32\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.MixCacheSize(); got != 32 {
		t.Errorf("expected cache size 32, got %d", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/env.db")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvEfficiency, "0.5")

	cfg, err := Load(writeConfig(t, "database:\n  path: file.db\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/env.db" || cfg.Logging.Level != "warn" || cfg.Optimizer.Efficiency != 0.5 {
		t.Errorf("environment did not override file: %+v", cfg)
	}

	t.Setenv(EnvEfficiency, "lots")
	if _, err := Load(""); err == nil {
		t.Errorf("expected error for unparseable efficiency")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvEfficiency, "")

	bad := []string{
		"optimizer:\n  efficiency: 1.5\n",
		"planner:\n  facility_policy: cheapest\n",
		"logging:\n  level: loud\n",
		"planner:\n  max_job_time_sec: -1\n",
		"optimizer:\n  cache_size: -1\n",
		"database: [",
	}
	for _, content := range bad {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("expected error for %q", content)
		}
	}
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output %q", buf.String())
	}

	buf.Reset()
	cfg.Logging.JSON = true
	logger = cfg.NewLogger(&buf, true)
	logger.Debug("verbose")
	if !strings.Contains(buf.String(), `"msg":"verbose"`) {
		t.Errorf("expected JSON debug output, got %q", buf.String())
	}

	if lvl, err := ParseLevel("error"); err != nil || lvl != slog.LevelError {
		t.Errorf("ParseLevel(error) = %v, %v", lvl, err)
	}
}
