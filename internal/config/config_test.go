package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Region.States) != 5 {
		t.Errorf("expected 5 allow-listed states, got %d", len(cfg.Region.States))
	}
	if cfg.Mass.Method != MethodConcentration {
		t.Errorf("expected method %q, got %q", MethodConcentration, cfg.Mass.Method)
	}
	if cfg.Valuation.DemandN != 150 || cfg.Valuation.DemandP != 22 {
		t.Errorf("expected demand 150/22, got %v/%v", cfg.Valuation.DemandN, cfg.Valuation.DemandP)
	}
	if cfg.Valuation.PriceN != 1.89 || cfg.Valuation.PriceP != 5.37 {
		t.Errorf("expected prices 1.89/5.37, got %v/%v", cfg.Valuation.PriceN, cfg.Valuation.PriceP)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
valuation:
  recovery_efficiency: 0.6
reuse:
  doses_t_per_ha: [10, 40]
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Valuation.RecoveryEfficiency != 0.6 {
		t.Errorf("expected recovery 0.6, got %v", cfg.Valuation.RecoveryEfficiency)
	}
	if len(cfg.Reuse.Doses) != 2 {
		t.Errorf("expected 2 doses, got %v", cfg.Reuse.Doses)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Valuation.AvailabilityN != 0.5 {
		t.Errorf("expected default N availability 0.5, got %v", cfg.Valuation.AvailabilityN)
	}
	if cfg.Mass.LbPerAcreToKgPerHa != 1.12085 {
		t.Errorf("expected default conversion factor, got %v", cfg.Mass.LbPerAcreToKgPerHa)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Mass.Method = "average"
	cfg.Reuse.Doses = []float64{20, -5}
	cfg.Output.Formats = []string{"parquet"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"mass.method", "-5", "parquet"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Input.Sites != filepath.Join(dir, "RAW", "EOF_Site_Table.csv") {
		t.Errorf("expected sites path under %s, got %q", dir, cfg.Input.Sites)
	}
	if cfg.Output.Dir != filepath.Join(dir, "Output") {
		t.Errorf("expected output dir under %s, got %q", dir, cfg.Output.Dir)
	}
}

func TestInScopeIsCaseInsensitive(t *testing.T) {
	cfg := Default()
	if !cfg.InScope("oh") {
		t.Error("expected 'oh' to be in scope")
	}
	if cfg.InScope("TX") {
		t.Error("expected TX to be out of scope")
	}
}

func TestWantsFormat(t *testing.T) {
	cfg := &Config{Output: Output{Formats: []string{FormatCSV}}}
	if !cfg.WantsFormat(FormatCSV) {
		t.Error("expected csv to be wanted")
	}
	if cfg.WantsFormat(FormatSQLite) {
		t.Error("expected sqlite not to be wanted")
	}
}
