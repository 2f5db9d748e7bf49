package model

import (
	"fmt"

	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

// Site is one monitoring station from the site table.
type Site struct {
	StationID    string
	State        string
	DrainageArea q.MonitoringArea
	SiteType     string
}

// StormEvent is one measured runoff event. Concentrations are mg/L, the
// volume is liters and legacy yields are already kg/ha.
type StormEvent struct {
	StationID string
	Year      int
	Valid     bool
	VolumeL   float64

	TotalN         float64
	TKN            float64
	Ammonia        float64
	TotalP         float64
	Orthophosphate float64
	Sediment       float64

	SedimentYield q.KgPerHa
	NYield        q.KgPerHa
	PYield        q.KgPerHa
}

// NutrientMass groups the masses tracked per event and per aggregate.
type NutrientMass struct {
	Sediment     q.Kilograms
	TotalN       q.Kilograms
	TotalP       q.Kilograms
	ParticulateN q.Kilograms
	ParticulateP q.Kilograms
	DissolvedN   q.Kilograms
	DissolvedP   q.Kilograms
}

// Add returns the field-wise sum.
func (m NutrientMass) Add(o NutrientMass) NutrientMass {
	return NutrientMass{
		Sediment:     m.Sediment + o.Sediment,
		TotalN:       m.TotalN + o.TotalN,
		TotalP:       m.TotalP + o.TotalP,
		ParticulateN: m.ParticulateN + o.ParticulateN,
		ParticulateP: m.ParticulateP + o.ParticulateP,
		DissolvedN:   m.DissolvedN + o.DissolvedN,
		DissolvedP:   m.DissolvedP + o.DissolvedP,
	}
}

// Yields is the per-monitored-hectare view of an aggregate.
type Yields struct {
	Sediment q.Opt[q.KgPerHa]
	TotalN   q.Opt[q.KgPerHa]
	TotalP   q.Opt[q.KgPerHa]
}

// Basis says how an aggregate was produced.
type Basis int

const (
	// BasisMass aggregates hold summed masses.
	BasisMass Basis = iota
	// BasisYield aggregates hold summed per-area yields of a single site.
	BasisYield
)

func (b Basis) String() string {
	switch b {
	case BasisMass:
		return "mass"
	case BasisYield:
		return "yield"
	default:
		return fmt.Sprintf("basis(%d)", int(b))
	}
}

// AnnualSiteAggregate is one (station, year) row.
type AnnualSiteAggregate struct {
	StationID string
	State     string
	Year      int
	Basis     Basis
	Mass      NutrientMass // BasisMass only
	Legacy    Yields       // BasisYield only
	Area      q.MonitoringArea
	Events    int
	Valid     bool
}

// Yields returns the per-hectare view. Mass aggregates divide by their own
// monitoring area; yield aggregates return their summed yields.
func (a AnnualSiteAggregate) Yields() Yields {
	if a.Basis == BasisYield {
		return a.Legacy
	}
	return Yields{
		Sediment: q.PerMonitoredHectare(a.Mass.Sediment, a.Area),
		TotalN:   q.PerMonitoredHectare(a.Mass.TotalN, a.Area),
		TotalP:   q.PerMonitoredHectare(a.Mass.TotalP, a.Area),
	}
}

// ScopeLevel distinguishes state rows from whole-region rows.
type ScopeLevel string

const (
	ScopeState  ScopeLevel = "state"
	ScopeRegion ScopeLevel = "region"
)

// Scope identifies a state or the configured region.
type Scope struct {
	Level ScopeLevel
	Code  string
}

func (s Scope) String() string {
	return string(s.Level) + ":" + s.Code
}

// RegionalAggregate is the multi-site total for a (scope, year).
type RegionalAggregate struct {
	Scope  Scope
	Year   int
	Mass   NutrientMass
	Area   q.MonitoringArea
	Sites  int
	Events int
}

// Yields divides the summed masses by the summed monitoring area.
func (r RegionalAggregate) Yields() Yields {
	return Yields{
		Sediment: q.PerMonitoredHectare(r.Mass.Sediment, r.Area),
		TotalN:   q.PerMonitoredHectare(r.Mass.TotalN, r.Area),
		TotalP:   q.PerMonitoredHectare(r.Mass.TotalP, r.Area),
	}
}

// GradeN is grams of particulate N per kg of sediment.
func (r RegionalAggregate) GradeN() q.Opt[q.Ratio] {
	return q.Grade(r.Mass.ParticulateN, r.Mass.Sediment)
}

// GradeP is grams of particulate P per kg of sediment.
func (r RegionalAggregate) GradeP() q.Opt[q.Ratio] {
	return q.Grade(r.Mass.ParticulateP, r.Mass.Sediment)
}

// ReuseEstimate is the farmland area one (scope, year) covers at one dose.
type ReuseEstimate struct {
	Scope    Scope
	Year     int
	Dose     q.TonnesPerHa
	Sediment q.Kilograms
	Area     q.Opt[q.ReuseArea]
}

// EconomicValuation is the valued (scope, year, dose) row. Every field is
// missing when the reuse area is.
type EconomicValuation struct {
	Scope     Scope
	Year      int
	Dose      q.TonnesPerHa
	ReuseArea q.Opt[q.ReuseArea]

	AppliedN q.Opt[q.KgPerHa]
	AppliedP q.Opt[q.KgPerHa]
	UsableN  q.Opt[q.KgPerHa]
	UsableP  q.Opt[q.KgPerHa]

	PercentN   q.Opt[q.Ratio]
	PercentP   q.Opt[q.Ratio]
	Bottleneck q.Opt[q.Ratio]

	ReplacedArea q.Opt[q.ReuseArea]

	GrossPerHa q.Opt[q.USD]
	GrossTotal q.Opt[q.USD]

	LimitingPerHa q.Opt[q.USD]
	LimitingTotal q.Opt[q.USD]

	SavingNPerHa  q.Opt[q.USD]
	SavingPPerHa  q.Opt[q.USD]
	SeparatePerHa q.Opt[q.USD]
	SeparateTotal q.Opt[q.USD]
}

// SiteEconomics is the per-station ranking row.
type SiteEconomics struct {
	Rank            int
	StationID       string
	State           string
	Events          int
	YearsMonitored  int
	Mass            NutrientMass
	AvgAnnualLoad   q.Kilograms
	GradeN          q.Opt[q.Ratio]
	GradeP          q.Opt[q.Ratio]
	MaxAllowedDose  q.Opt[q.TonnesPerHa]
	OptimizedDose   q.Opt[q.TonnesPerHa]
	ReuseArea       q.Opt[q.ReuseArea]
	AppliedN        q.Opt[q.KgPerHa]
	AppliedP        q.Opt[q.KgPerHa]
	UsableN         q.Opt[q.KgPerHa]
	UsableP         q.Opt[q.KgPerHa]
	ValueNPerHa     q.Opt[q.USD]
	ValuePPerHa     q.Opt[q.USD]
	ValuePerHa      q.Opt[q.USD]
	ValueTotalPerYr q.Opt[q.USD]
}

// Results bundles everything one run produces.
type Results struct {
	SiteTotals  []AnnualSiteAggregate
	ScopeTotals []RegionalAggregate
	Reuse       []ReuseEstimate
	Valuations  []EconomicValuation
	Sites       []SiteEconomics
}
