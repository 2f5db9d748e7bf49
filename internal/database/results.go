package database

import (
	"database/sql"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

// insertRows prepares query once and executes it for each argument list.
func insertRows(tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.Exec(args(i)...); err != nil {
			return err
		}
	}
	return nil
}

func insertSiteAggregates(tx *sql.Tx, runID string, res model.Results) error {
	rows := res.SiteTotals
	return insertRows(tx, `INSERT INTO site_aggregates
		(run_id, station_id, state, year, basis, events, monitoring_area_ha,
		sediment_kg, total_n_kg, total_p_kg, particulate_n_kg, particulate_p_kg, dissolved_n_kg, dissolved_p_kg,
		sediment_yield_kg_ha, n_yield_kg_ha, p_yield_kg_ha)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			a := rows[i]
			args := []any{runID, a.StationID, a.State, a.Year, a.Basis.String(), a.Events, float64(a.Area)}
			if a.Basis == model.BasisMass {
				args = append(args, massArgs(a.Mass)...)
			} else {
				args = append(args, nil, nil, nil, nil, nil, nil, nil)
			}
			y := a.Yields()
			return append(args, y.Sediment.Null(), y.TotalN.Null(), y.TotalP.Null())
		})
}

func massArgs(m model.NutrientMass) []any {
	return []any{
		float64(m.Sediment), float64(m.TotalN), float64(m.TotalP),
		float64(m.ParticulateN), float64(m.ParticulateP),
		float64(m.DissolvedN), float64(m.DissolvedP),
	}
}

func insertScopeAggregates(tx *sql.Tx, runID string, res model.Results) error {
	rows := res.ScopeTotals
	return insertRows(tx, `INSERT INTO scope_aggregates
		(run_id, scope_level, scope, year, sites, events, monitoring_area_ha,
		sediment_kg, total_n_kg, total_p_kg, particulate_n_kg, particulate_p_kg, dissolved_n_kg, dissolved_p_kg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			a := rows[i]
			args := []any{runID, string(a.Scope.Level), a.Scope.Code, a.Year, a.Sites, a.Events, float64(a.Area)}
			return append(args, massArgs(a.Mass)...)
		})
}

func insertReuseEstimates(tx *sql.Tx, runID string, res model.Results) error {
	rows := res.Reuse
	return insertRows(tx, `INSERT INTO reuse_estimates
		(run_id, scope_level, scope, year, dose_t_ha, sediment_kg, reuse_area_ha)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			e := rows[i]
			return []any{runID, string(e.Scope.Level), e.Scope.Code, e.Year, float64(e.Dose), float64(e.Sediment), e.Area.Null()}
		})
}

func insertValuations(tx *sql.Tx, runID string, res model.Results) error {
	rows := res.Valuations
	return insertRows(tx, `INSERT INTO valuations
		(run_id, scope_level, scope, year, dose_t_ha, reuse_area_ha,
		applied_n_kg_ha, applied_p_kg_ha, usable_n_kg_ha, usable_p_kg_ha,
		demand_share_n, demand_share_p, bottleneck_share, replaced_area_ha,
		gross_usd_ha, gross_usd, limiting_usd_ha, limiting_usd,
		saving_n_usd_ha, saving_p_usd_ha, separate_usd_ha, separate_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			v := rows[i]
			return []any{
				runID, string(v.Scope.Level), v.Scope.Code, v.Year, float64(v.Dose), v.ReuseArea.Null(),
				v.AppliedN.Null(), v.AppliedP.Null(), v.UsableN.Null(), v.UsableP.Null(),
				v.PercentN.Null(), v.PercentP.Null(), v.Bottleneck.Null(), v.ReplacedArea.Null(),
				v.GrossPerHa.Null(), v.GrossTotal.Null(), v.LimitingPerHa.Null(), v.LimitingTotal.Null(),
				v.SavingNPerHa.Null(), v.SavingPPerHa.Null(), v.SeparatePerHa.Null(), v.SeparateTotal.Null(),
			}
		})
}

func insertSiteEconomics(tx *sql.Tx, runID string, res model.Results) error {
	rows := res.Sites
	return insertRows(tx, `INSERT INTO site_economics
		(run_id, rank, station_id, state, events, years_monitored,
		sediment_kg, particulate_n_kg, particulate_p_kg, avg_annual_load_kg,
		grade_n_g_kg, grade_p_g_kg, max_allowed_dose_t_ha, optimized_dose_t_ha,
		reuse_area_ha, applied_n_kg_ha, applied_p_kg_ha, usable_n_kg_ha, usable_p_kg_ha,
		value_n_usd_ha, value_p_usd_ha, value_usd_ha, value_usd_yr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) []any {
			s := rows[i]
			return []any{
				runID, s.Rank, s.StationID, s.State, s.Events, s.YearsMonitored,
				float64(s.Mass.Sediment), float64(s.Mass.ParticulateN), float64(s.Mass.ParticulateP), float64(s.AvgAnnualLoad),
				s.GradeN.Null(), s.GradeP.Null(), s.MaxAllowedDose.Null(), s.OptimizedDose.Null(),
				s.ReuseArea.Null(), s.AppliedN.Null(), s.AppliedP.Null(), s.UsableN.Null(), s.UsableP.Null(),
				s.ValueNPerHa.Null(), s.ValuePPerHa.Null(), s.ValuePerHa.Null(), s.ValueTotalPerYr.Null(),
			}
		})
}

// GetValuations returns the valuations of a run for one scope code and
// dose, ordered by year.
func (db *DB) GetValuations(runID, scope string, dose float64) ([]model.EconomicValuation, error) {
	rows, err := db.conn.Query(
		`SELECT scope_level, scope, year, dose_t_ha, reuse_area_ha,
		applied_n_kg_ha, applied_p_kg_ha, usable_n_kg_ha, usable_p_kg_ha,
		demand_share_n, demand_share_p, bottleneck_share, replaced_area_ha,
		gross_usd_ha, gross_usd, limiting_usd_ha, limiting_usd,
		saving_n_usd_ha, saving_p_usd_ha, separate_usd_ha, separate_usd
		FROM valuations WHERE run_id = ? AND scope = ? AND dose_t_ha = ?
		ORDER BY year`, runID, scope, dose,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EconomicValuation
	for rows.Next() {
		var (
			v     model.EconomicValuation
			level string
			d     float64
			n     [17]sql.NullFloat64
		)
		dest := []any{&level, &v.Scope.Code, &v.Year, &d}
		for i := range n {
			dest = append(dest, &n[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		v.Scope.Level = model.ScopeLevel(level)
		v.Dose = q.TonnesPerHa(d)
		v.ReuseArea = q.FromNull[q.ReuseArea](n[0])
		v.AppliedN = q.FromNull[q.KgPerHa](n[1])
		v.AppliedP = q.FromNull[q.KgPerHa](n[2])
		v.UsableN = q.FromNull[q.KgPerHa](n[3])
		v.UsableP = q.FromNull[q.KgPerHa](n[4])
		v.PercentN = q.FromNull[q.Ratio](n[5])
		v.PercentP = q.FromNull[q.Ratio](n[6])
		v.Bottleneck = q.FromNull[q.Ratio](n[7])
		v.ReplacedArea = q.FromNull[q.ReuseArea](n[8])
		v.GrossPerHa = q.FromNull[q.USD](n[9])
		v.GrossTotal = q.FromNull[q.USD](n[10])
		v.LimitingPerHa = q.FromNull[q.USD](n[11])
		v.LimitingTotal = q.FromNull[q.USD](n[12])
		v.SavingNPerHa = q.FromNull[q.USD](n[13])
		v.SavingPPerHa = q.FromNull[q.USD](n[14])
		v.SeparatePerHa = q.FromNull[q.USD](n[15])
		v.SeparateTotal = q.FromNull[q.USD](n[16])
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetSiteEconomics returns the site ranking of a run. limit <= 0 returns
// every row.
func (db *DB) GetSiteEconomics(runID string, limit int) ([]model.SiteEconomics, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(
		`SELECT rank, station_id, state, events, years_monitored,
		sediment_kg, particulate_n_kg, particulate_p_kg, avg_annual_load_kg,
		grade_n_g_kg, grade_p_g_kg, max_allowed_dose_t_ha, optimized_dose_t_ha,
		reuse_area_ha, applied_n_kg_ha, applied_p_kg_ha, usable_n_kg_ha, usable_p_kg_ha,
		value_n_usd_ha, value_p_usd_ha, value_usd_ha, value_usd_yr
		FROM site_economics WHERE run_id = ? ORDER BY rank LIMIT ?`, runID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SiteEconomics
	for rows.Next() {
		var (
			s                                model.SiteEconomics
			sed, pn, pp, avg                 float64
			gradeN, gradeP, maxDose, optDose sql.NullFloat64
			n                                [9]sql.NullFloat64
		)
		dest := []any{&s.Rank, &s.StationID, &s.State, &s.Events, &s.YearsMonitored,
			&sed, &pn, &pp, &avg, &gradeN, &gradeP, &maxDose, &optDose}
		for i := range n {
			dest = append(dest, &n[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.Mass = model.NutrientMass{Sediment: q.Kilograms(sed), ParticulateN: q.Kilograms(pn), ParticulateP: q.Kilograms(pp)}
		s.AvgAnnualLoad = q.Kilograms(avg)
		s.GradeN = q.FromNull[q.Ratio](gradeN)
		s.GradeP = q.FromNull[q.Ratio](gradeP)
		s.MaxAllowedDose = q.FromNull[q.TonnesPerHa](maxDose)
		s.OptimizedDose = q.FromNull[q.TonnesPerHa](optDose)
		s.ReuseArea = q.FromNull[q.ReuseArea](n[0])
		s.AppliedN = q.FromNull[q.KgPerHa](n[1])
		s.AppliedP = q.FromNull[q.KgPerHa](n[2])
		s.UsableN = q.FromNull[q.KgPerHa](n[3])
		s.UsableP = q.FromNull[q.KgPerHa](n[4])
		s.ValueNPerHa = q.FromNull[q.USD](n[5])
		s.ValuePPerHa = q.FromNull[q.USD](n[6])
		s.ValuePerHa = q.FromNull[q.USD](n[7])
		s.ValueTotalPerYr = q.FromNull[q.USD](n[8])
		out = append(out, s)
	}
	return out, rows.Err()
}
