package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/SediValue/internal/model"
)

// SaveRun records a run and its results. An existing run with the same ID
// is replaced, rows included.
func (db *DB) SaveRun(run Run, res model.Results) error {
	return inTx(db.conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", run.ID); err != nil {
			return fmt.Errorf("clearing run %s: %w", run.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO runs
			(id, region, mass_method, nutrient_basis, reference_dose, site_years, scope_years, valuations, ranked_sites)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Region, run.MassMethod, run.NutrientBasis, run.ReferenceDose,
			len(res.SiteTotals), len(res.ScopeTotals), len(res.Valuations), len(res.Sites),
		); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		steps := []struct {
			name string
			fn   func(*sql.Tx, string, model.Results) error
		}{
			{"site aggregates", insertSiteAggregates},
			{"scope aggregates", insertScopeAggregates},
			{"reuse estimates", insertReuseEstimates},
			{"valuations", insertValuations},
			{"site economics", insertSiteEconomics},
		}
		for _, s := range steps {
			if err := s.fn(tx, run.ID, res); err != nil {
				return fmt.Errorf("inserting %s: %w", s.name, err)
			}
		}
		return nil
	})
}

const runColumns = `id, region, mass_method, nutrient_basis, reference_dose,
	site_years, scope_years, valuations, ranked_sites, created_at`

func scanRun(scan func(dest ...any) error) (*Run, error) {
	var r Run
	if err := scan(&r.ID, &r.Region, &r.MassMethod, &r.NutrientBasis, &r.ReferenceDose,
		&r.SiteYears, &r.ScopeYears, &r.Valuations, &r.RankedSites, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRuns returns recorded runs, newest first.
func (db *DB) GetRuns() ([]Run, error) {
	rows, err := db.conn.Query("SELECT " + runColumns + " FROM runs ORDER BY created_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by ID, or nil if it does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	r, err := scanRun(db.conn.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetLatestRunID returns the ID of the most recent run.
// Returns empty string if no runs exist.
func (db *DB) GetLatestRunID() (string, error) {
	var id string
	err := db.conn.QueryRow("SELECT id FROM runs ORDER BY created_at DESC, id LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// GetStats returns aggregate store statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM site_aggregates", &s.SiteAggregates},
		{"SELECT COUNT(*) FROM scope_aggregates", &s.ScopeYears},
		{"SELECT COUNT(*) FROM valuations", &s.Valuations},
		{"SELECT COUNT(*) FROM site_economics", &s.RankedSites},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	latest, err := db.GetLatestRunID()
	if err != nil {
		return nil, err
	}
	s.LatestRun = latest
	return s, nil
}
