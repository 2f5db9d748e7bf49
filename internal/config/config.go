package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Mass computation methods.
const (
	MethodConcentration = "concentration"
	MethodLegacyYield   = "legacy_yield"
)

// Nutrient bases for the valuation step.
const (
	NutrientTotal       = "total"
	NutrientParticulate = "particulate"
)

// Output formats.
const (
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatSQLite = "sqlite"
)

type Config struct {
	Region       Region       `yaml:"region"`
	Input        Input        `yaml:"input"`
	Columns      Columns      `yaml:"columns"`
	Mass         Mass         `yaml:"mass"`
	Reuse        Reuse        `yaml:"reuse"`
	Valuation    Valuation    `yaml:"valuation"`
	SiteAnalysis SiteAnalysis `yaml:"site_analysis"`
	Output       Output       `yaml:"output"`
	Logging      Logging      `yaml:"logging"`
}

type Region struct {
	Name   string   `yaml:"name"`
	States []string `yaml:"states"`
}

type Input struct {
	Sites        string `yaml:"sites"`
	Events       string `yaml:"events"`
	SiteAreaUnit string `yaml:"site_area_unit"`
}

// Columns maps logical fields to input column headers.
type Columns struct {
	StationID      string `yaml:"station_id"`
	State          string `yaml:"state"`
	Area           string `yaml:"area"`
	SiteType       string `yaml:"site_type"`
	Year           string `yaml:"year"`
	StormStart     string `yaml:"storm_start"`
	QCValid        string `yaml:"qc_valid"`
	RunoffVolume   string `yaml:"runoff_volume"`
	TotalN         string `yaml:"total_nitrogen"`
	TKN            string `yaml:"tkn"`
	Ammonia        string `yaml:"ammonia"`
	TotalP         string `yaml:"total_phosphorus"`
	Orthophosphate string `yaml:"orthophosphate"`
	Sediment       string `yaml:"suspended_sediment"`
	SedimentYield  string `yaml:"sediment_yield"`
	NYield         string `yaml:"nitrogen_yield"`
	PYield         string `yaml:"phosphorus_yield"`
}

type Mass struct {
	Method             string  `yaml:"method"`
	LbPerAcreToKgPerHa float64 `yaml:"lb_per_acre_to_kg_per_ha"`
}

type Reuse struct {
	Doses         []float64 `yaml:"doses_t_per_ha"`
	ReferenceDose float64   `yaml:"reference_dose"`
}

type Valuation struct {
	NutrientBasis      string  `yaml:"nutrient_basis"`
	PriceN             float64 `yaml:"price_n_usd_per_kg"`
	PriceP             float64 `yaml:"price_p_usd_per_kg"`
	DemandN            float64 `yaml:"demand_n_kg_per_ha"`
	DemandP            float64 `yaml:"demand_p_kg_per_ha"`
	RecoveryEfficiency float64 `yaml:"recovery_efficiency"`
	AvailabilityN      float64 `yaml:"availability_n"`
	AvailabilityP      float64 `yaml:"availability_p"`
}

type SiteAnalysis struct {
	Enabled       bool    `yaml:"enabled"`
	MinSedimentKg float64 `yaml:"min_sediment_kg"`
	MaxDose       float64 `yaml:"max_dose_t_per_ha"`
	Top           int     `yaml:"top"`
}

type Output struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
	Plots   bool     `yaml:"plots"`
	Report  bool     `yaml:"report"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for sedivalue.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "sedivalue")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/sedivalue/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'sedivalue init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file. Relative input and output paths
// are resolved against the directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Region: Region{
			Name:   "GreatLakes",
			States: []string{"OH", "MI", "IN", "WI", "NY"},
		},
		Input: Input{SiteAreaUnit: "ha"},
		Columns: Columns{
			StationID:      "USGS_Station_Number",
			State:          "State",
			Area:           "Area",
			SiteType:       "Site_Type",
			Year:           "Year",
			StormStart:     "storm_start",
			QCValid:        "qc_valid",
			RunoffVolume:   "runoff_volume",
			TotalN:         "total_nitrogen_conc_mgL",
			TKN:            "total_Kjeldahl_nitrogen_unfiltered_conc_mgL",
			Ammonia:        "ammonia_plus_ammonium_conc_mgL",
			TotalP:         "total_phosphorus_unfiltered_conc_mgL",
			Orthophosphate: "orthophosphate_conc_mgL",
			Sediment:       "suspended_sediment_conc_mgL",
			SedimentYield:  "suspended_sediment_yield_pounds_per_acre",
			NYield:         "total_nitrogen_yield_pounds_per_acre",
			PYield:         "total_phosphorus_unfiltered_yield_pounds_per_acre",
		},
		Mass: Mass{
			Method:             MethodConcentration,
			LbPerAcreToKgPerHa: 1.12085,
		},
		Reuse: Reuse{
			Doses:         []float64{5, 20, 50, 75, 100},
			ReferenceDose: 20,
		},
		Valuation: Valuation{
			NutrientBasis:      NutrientTotal,
			PriceN:             1.89,
			PriceP:             5.37,
			DemandN:            150,
			DemandP:            22,
			RecoveryEfficiency: 0.80,
			AvailabilityN:      0.50,
			AvailabilityP:      0.80,
		},
		SiteAnalysis: SiteAnalysis{
			Enabled:       true,
			MinSedimentKg: 100,
			MaxDose:       100,
			Top:           15,
		},
		Output: Output{
			Dir:     "Output",
			Formats: []string{FormatCSV},
			Plots:   true,
			Report:  true,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise surface mid-run.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Region.States) == 0 {
		problems = append(problems, "region.states must list at least one state code")
	}
	switch c.Mass.Method {
	case MethodConcentration, MethodLegacyYield:
	default:
		problems = append(problems, fmt.Sprintf("mass.method %q is not one of %s, %s",
			c.Mass.Method, MethodConcentration, MethodLegacyYield))
	}
	if c.Mass.LbPerAcreToKgPerHa <= 0 {
		problems = append(problems, "mass.lb_per_acre_to_kg_per_ha must be positive")
	}
	switch strings.ToLower(c.Input.SiteAreaUnit) {
	case "ha", "acres":
	default:
		problems = append(problems, fmt.Sprintf("input.site_area_unit %q must be ha or acres", c.Input.SiteAreaUnit))
	}
	if len(c.Reuse.Doses) == 0 {
		problems = append(problems, "reuse.doses_t_per_ha must not be empty")
	}
	for _, d := range c.Reuse.Doses {
		if d < 0 {
			problems = append(problems, fmt.Sprintf("reuse dose %g is negative", d))
		}
	}
	switch c.Valuation.NutrientBasis {
	case NutrientTotal, NutrientParticulate:
	default:
		problems = append(problems, fmt.Sprintf("valuation.nutrient_basis %q must be %s or %s",
			c.Valuation.NutrientBasis, NutrientTotal, NutrientParticulate))
	}
	v := c.Valuation
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"price_n_usd_per_kg", v.PriceN},
		{"price_p_usd_per_kg", v.PriceP},
		{"demand_n_kg_per_ha", v.DemandN},
		{"demand_p_kg_per_ha", v.DemandP},
		{"recovery_efficiency", v.RecoveryEfficiency},
		{"availability_n", v.AvailabilityN},
		{"availability_p", v.AvailabilityP},
	} {
		if f.val < 0 {
			problems = append(problems, fmt.Sprintf("valuation.%s must not be negative", f.name))
		}
	}
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"recovery_efficiency", v.RecoveryEfficiency},
		{"availability_n", v.AvailabilityN},
		{"availability_p", v.AvailabilityP},
	} {
		if f.val > 1 {
			problems = append(problems, fmt.Sprintf("valuation.%s must not exceed 1", f.name))
		}
	}
	if c.SiteAnalysis.MaxDose <= 0 {
		problems = append(problems, "site_analysis.max_dose_t_per_ha must be positive")
	}
	for _, f := range c.Output.Formats {
		switch f {
		case FormatCSV, FormatXLSX, FormatSQLite:
		default:
			problems = append(problems, fmt.Sprintf("output format %q is not supported", f))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// WantsFormat reports whether an output format is enabled.
func (c *Config) WantsFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// DatabasePath is the SQLite result store inside the output directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Output.Dir, "sedivalue.db")
}

// WorkbookPath is the XLSX output file inside the output directory.
func (c *Config) WorkbookPath() string {
	return filepath.Join(c.Output.Dir, "sedivalue.xlsx")
}

// InScope reports whether a state code is allow-listed.
func (c *Config) InScope(state string) bool {
	for _, s := range c.Region.States {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Input.Sites = resolve(c.Input.Sites)
	c.Input.Events = resolve(c.Input.Events)
	c.Output.Dir = resolve(c.Output.Dir)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
