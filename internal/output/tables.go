// Package output lays stage results out as named tables and writes them.
package output

import (
	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

// Table names.
const (
	SiteTotals    = "annual_site_totals"
	ScopeTotals   = "annual_scope_totals"
	ReuseByDose   = "reuse_by_dose"
	EconomicValue = "economic_value"
	SiteEconomics = "site_economics"
)

// Table is a header plus rows of cells. A cell is nil (missing), string,
// int or float64.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// Tables returns the result tables in a fixed order. The site economics
// table is omitted when there are no ranked sites.
func Tables(r model.Results) []Table {
	tables := []Table{
		siteTotalsTable(r.SiteTotals),
		scopeTotalsTable(r.ScopeTotals),
		reuseTable(r.Reuse),
		valuationTable(r.Valuations),
	}
	if len(r.Sites) > 0 {
		tables = append(tables, siteEconomicsTable(r.Sites))
	}
	return tables
}

func cell[T ~float64](o q.Opt[T]) any {
	if v, ok := o.Get(); ok {
		return float64(v)
	}
	return nil
}

func massCells(m model.NutrientMass) []any {
	return []any{
		float64(m.Sediment), float64(m.TotalN), float64(m.TotalP),
		float64(m.ParticulateN), float64(m.ParticulateP),
		float64(m.DissolvedN), float64(m.DissolvedP),
	}
}

var massHeader = []string{
	"sediment_kg", "total_n_kg", "total_p_kg",
	"particulate_n_kg", "particulate_p_kg",
	"dissolved_n_kg", "dissolved_p_kg",
}

func yieldCells(y model.Yields) []any {
	return []any{cell(y.Sediment), cell(y.TotalN), cell(y.TotalP)}
}

var yieldHeader = []string{"sediment_yield_kg_ha", "n_yield_kg_ha", "p_yield_kg_ha"}

func join(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func siteTotalsTable(aggs []model.AnnualSiteAggregate) Table {
	t := Table{
		Name:   SiteTotals,
		Header: join([]string{"station_id", "state", "year", "basis", "events", "monitoring_area_ha"}, massHeader, yieldHeader),
	}
	for _, a := range aggs {
		row := []any{a.StationID, a.State, a.Year, a.Basis.String(), a.Events, float64(a.Area)}
		if a.Basis == model.BasisMass {
			row = append(row, massCells(a.Mass)...)
		} else {
			row = append(row, make([]any, len(massHeader))...)
		}
		row = append(row, yieldCells(a.Yields())...)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func scopeTotalsTable(aggs []model.RegionalAggregate) Table {
	t := Table{
		Name: ScopeTotals,
		Header: join([]string{"scope_level", "scope", "year", "sites", "events", "monitoring_area_ha"},
			massHeader, yieldHeader, []string{"grade_n_g_kg", "grade_p_g_kg"}),
	}
	for _, a := range aggs {
		row := []any{string(a.Scope.Level), a.Scope.Code, a.Year, a.Sites, a.Events, float64(a.Area)}
		row = append(row, massCells(a.Mass)...)
		row = append(row, yieldCells(a.Yields())...)
		row = append(row, cell(a.GradeN()), cell(a.GradeP()))
		t.Rows = append(t.Rows, row)
	}
	return t
}

func reuseTable(ests []model.ReuseEstimate) Table {
	t := Table{
		Name:   ReuseByDose,
		Header: []string{"scope_level", "scope", "year", "dose_t_ha", "sediment_kg", "reuse_area_ha"},
	}
	for _, e := range ests {
		t.Rows = append(t.Rows, []any{
			string(e.Scope.Level), e.Scope.Code, e.Year, float64(e.Dose), float64(e.Sediment), cell(e.Area),
		})
	}
	return t
}

func valuationTable(vals []model.EconomicValuation) Table {
	t := Table{
		Name: EconomicValue,
		Header: []string{
			"scope_level", "scope", "year", "dose_t_ha", "reuse_area_ha",
			"applied_n_kg_ha", "applied_p_kg_ha", "usable_n_kg_ha", "usable_p_kg_ha",
			"demand_share_n", "demand_share_p", "bottleneck_share", "replaced_area_ha",
			"gross_usd_ha", "gross_usd",
			"limiting_usd_ha", "limiting_usd",
			"saving_n_usd_ha", "saving_p_usd_ha", "separate_usd_ha", "separate_usd",
		},
	}
	for _, v := range vals {
		t.Rows = append(t.Rows, []any{
			string(v.Scope.Level), v.Scope.Code, v.Year, float64(v.Dose), cell(v.ReuseArea),
			cell(v.AppliedN), cell(v.AppliedP), cell(v.UsableN), cell(v.UsableP),
			cell(v.PercentN), cell(v.PercentP), cell(v.Bottleneck), cell(v.ReplacedArea),
			cell(v.GrossPerHa), cell(v.GrossTotal),
			cell(v.LimitingPerHa), cell(v.LimitingTotal),
			cell(v.SavingNPerHa), cell(v.SavingPPerHa), cell(v.SeparatePerHa), cell(v.SeparateTotal),
		})
	}
	return t
}

func siteEconomicsTable(rows []model.SiteEconomics) Table {
	t := Table{
		Name: SiteEconomics,
		Header: []string{
			"rank", "station_id", "state", "events", "years_monitored",
			"sediment_kg", "particulate_n_kg", "particulate_p_kg", "avg_annual_load_kg",
			"grade_n_g_kg", "grade_p_g_kg", "max_allowed_dose_t_ha", "optimized_dose_t_ha",
			"reuse_area_ha", "applied_n_kg_ha", "applied_p_kg_ha", "usable_n_kg_ha", "usable_p_kg_ha",
			"value_n_usd_ha", "value_p_usd_ha", "value_usd_ha", "value_usd_yr",
		},
	}
	for _, s := range rows {
		t.Rows = append(t.Rows, []any{
			s.Rank, s.StationID, s.State, s.Events, s.YearsMonitored,
			float64(s.Mass.Sediment), float64(s.Mass.ParticulateN), float64(s.Mass.ParticulateP), float64(s.AvgAnnualLoad),
			cell(s.GradeN), cell(s.GradeP), cell(s.MaxAllowedDose), cell(s.OptimizedDose),
			cell(s.ReuseArea), cell(s.AppliedN), cell(s.AppliedP), cell(s.UsableN), cell(s.UsableP),
			cell(s.ValueNPerHa), cell(s.ValuePPerHa), cell(s.ValuePerHa), cell(s.ValueTotalPerYr),
		})
	}
	return t
}
