package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    region TEXT NOT NULL,
    mass_method TEXT NOT NULL,
    nutrient_basis TEXT NOT NULL,
    reference_dose REAL NOT NULL,
    site_years INTEGER DEFAULT 0,
    scope_years INTEGER DEFAULT 0,
    valuations INTEGER DEFAULT 0,
    ranked_sites INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS site_aggregates (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    station_id TEXT NOT NULL,
    state TEXT NOT NULL,
    year INTEGER NOT NULL,
    basis TEXT NOT NULL,
    events INTEGER NOT NULL,
    monitoring_area_ha REAL NOT NULL,
    sediment_kg REAL,
    total_n_kg REAL,
    total_p_kg REAL,
    particulate_n_kg REAL,
    particulate_p_kg REAL,
    dissolved_n_kg REAL,
    dissolved_p_kg REAL,
    sediment_yield_kg_ha REAL,
    n_yield_kg_ha REAL,
    p_yield_kg_ha REAL,
    PRIMARY KEY (run_id, station_id, year)
);

CREATE TABLE IF NOT EXISTS scope_aggregates (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scope_level TEXT NOT NULL CHECK(scope_level IN ('state', 'region')),
    scope TEXT NOT NULL,
    year INTEGER NOT NULL,
    sites INTEGER NOT NULL,
    events INTEGER NOT NULL,
    monitoring_area_ha REAL NOT NULL,
    sediment_kg REAL NOT NULL,
    total_n_kg REAL NOT NULL,
    total_p_kg REAL NOT NULL,
    particulate_n_kg REAL NOT NULL,
    particulate_p_kg REAL NOT NULL,
    dissolved_n_kg REAL NOT NULL,
    dissolved_p_kg REAL NOT NULL,
    PRIMARY KEY (run_id, scope_level, scope, year)
);

CREATE TABLE IF NOT EXISTS reuse_estimates (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scope_level TEXT NOT NULL,
    scope TEXT NOT NULL,
    year INTEGER NOT NULL,
    dose_t_ha REAL NOT NULL,
    sediment_kg REAL NOT NULL,
    reuse_area_ha REAL,
    PRIMARY KEY (run_id, scope_level, scope, year, dose_t_ha)
);

CREATE TABLE IF NOT EXISTS valuations (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scope_level TEXT NOT NULL,
    scope TEXT NOT NULL,
    year INTEGER NOT NULL,
    dose_t_ha REAL NOT NULL,
    reuse_area_ha REAL,
    applied_n_kg_ha REAL,
    applied_p_kg_ha REAL,
    usable_n_kg_ha REAL,
    usable_p_kg_ha REAL,
    demand_share_n REAL,
    demand_share_p REAL,
    bottleneck_share REAL,
    replaced_area_ha REAL,
    gross_usd_ha REAL,
    gross_usd REAL,
    limiting_usd_ha REAL,
    limiting_usd REAL,
    saving_n_usd_ha REAL,
    saving_p_usd_ha REAL,
    separate_usd_ha REAL,
    separate_usd REAL,
    PRIMARY KEY (run_id, scope_level, scope, year, dose_t_ha)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_valuations_scope ON valuations(run_id, scope, dose_t_ha);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "site economics ranking",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS site_economics (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    rank INTEGER NOT NULL,
    station_id TEXT NOT NULL,
    state TEXT NOT NULL,
    events INTEGER NOT NULL,
    years_monitored INTEGER NOT NULL,
    sediment_kg REAL NOT NULL,
    particulate_n_kg REAL NOT NULL,
    particulate_p_kg REAL NOT NULL,
    avg_annual_load_kg REAL NOT NULL,
    grade_n_g_kg REAL,
    grade_p_g_kg REAL,
    max_allowed_dose_t_ha REAL,
    optimized_dose_t_ha REAL,
    reuse_area_ha REAL,
    applied_n_kg_ha REAL,
    applied_p_kg_ha REAL,
    usable_n_kg_ha REAL,
    usable_p_kg_ha REAL,
    value_n_usd_ha REAL,
    value_p_usd_ha REAL,
    value_usd_ha REAL,
    value_usd_yr REAL,
    PRIMARY KEY (run_id, station_id)
);

CREATE INDEX IF NOT EXISTS idx_site_economics_rank ON site_economics(run_id, rank);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
