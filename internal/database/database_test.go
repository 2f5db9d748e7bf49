package database

import (
	"path/filepath"
	"testing"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var region = model.Scope{Level: model.ScopeRegion, Code: "GreatLakes"}

func testRun(id string) Run {
	return Run{ID: id, Region: "GreatLakes", MassMethod: "concentration", NutrientBasis: "total", ReferenceDose: 20}
}

func testResults() model.Results {
	return model.Results{
		SiteTotals: []model.AnnualSiteAggregate{
			{StationID: "04001", State: "OH", Year: 2016, Basis: model.BasisMass, Events: 2, Area: 4,
				Mass: model.NutrientMass{Sediment: 79760, TotalN: 155.9, TotalP: 20}, Valid: true},
		},
		ScopeTotals: []model.RegionalAggregate{
			{Scope: region, Year: 2016, Mass: model.NutrientMass{Sediment: 79760, TotalN: 155.9}, Area: 4, Sites: 1, Events: 2},
			{Scope: region, Year: 2017, Area: 4, Sites: 1, Events: 1},
		},
		Reuse: []model.ReuseEstimate{
			{Scope: region, Year: 2016, Dose: 20, Sediment: 79760, Area: q.ReuseAreaFor(79760, 20)},
			{Scope: region, Year: 2017, Dose: 20, Area: q.ReuseAreaFor(0, 20)},
		},
		Valuations: []model.EconomicValuation{
			{Scope: region, Year: 2016, Dose: 20, ReuseArea: q.Some[q.ReuseArea](3.988),
				AppliedN: q.Some[q.KgPerHa](39.09), SeparateTotal: q.Some[q.USD](186.6)},
			{Scope: region, Year: 2017, Dose: 20},
		},
		Sites: []model.SiteEconomics{
			{Rank: 1, StationID: "04001", State: "OH", Events: 2, YearsMonitored: 1,
				GradeP: q.Some[q.Ratio](0.5), ValuePerHa: q.Some[q.USD](177.67)},
			{Rank: 2, StationID: "04002", State: "MI", Events: 1, YearsMonitored: 1},
		},
	}
}

func TestSaveRunAndGetRuns(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveRun(testRun("run-a"), testResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runs, err := db.GetRuns()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.SiteYears != 1 || r.ScopeYears != 2 || r.Valuations != 2 || r.RankedSites != 2 {
		t.Errorf("unexpected run counts: %+v", r)
	}
	if r.CreatedAt == nil {
		t.Error("expected created_at to be set")
	}
}

func TestSaveRunReplacesExisting(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveRun(testRun("run-a"), testResults()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	res := testResults()
	res.Sites = res.Sites[:1]
	if err := db.SaveRun(testRun("run-a"), res); err != nil {
		t.Fatalf("second save: %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Runs != 1 {
		t.Errorf("expected 1 run after re-save, got %d", stats.Runs)
	}
	if stats.RankedSites != 1 {
		t.Errorf("expected replaced site rows, got %d", stats.RankedSites)
	}
	if stats.Valuations != 2 {
		t.Errorf("expected 2 valuations, got %d", stats.Valuations)
	}
	if stats.LatestRun != "run-a" {
		t.Errorf("expected latest run 'run-a', got %q", stats.LatestRun)
	}
}

func TestGetValuationsKeepsMissing(t *testing.T) {
	db := openTestDB(t)
	db.SaveRun(testRun("run-a"), testResults())

	vals, err := db.GetValuations("run-a", "GreatLakes", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("expected 2 valuations, got %d", len(vals))
	}
	if got, _ := vals[0].AppliedN.Get(); got != 39.09 {
		t.Errorf("expected applied N 39.09, got %v", got)
	}
	if vals[0].Scope != region {
		t.Errorf("expected scope %v, got %v", region, vals[0].Scope)
	}
	if vals[1].ReuseArea.Valid() || vals[1].SeparateTotal.Valid() {
		t.Error("expected NULL columns to read back as missing")
	}
	if vals[0].LimitingTotal.Valid() {
		t.Error("expected unset limiting total to stay missing")
	}
}

func TestGetSiteEconomics(t *testing.T) {
	db := openTestDB(t)
	db.SaveRun(testRun("run-a"), testResults())

	all, err := db.GetSiteEconomics("run-a", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(all))
	}
	if all[0].StationID != "04001" || all[0].ValuePerHa.Or(0) != 177.67 {
		t.Errorf("expected top site 04001 at 177.67, got %+v", all[0])
	}
	if all[1].ValuePerHa.Valid() {
		t.Error("expected missing value for second site")
	}

	top, _ := db.GetSiteEconomics("run-a", 1)
	if len(top) != 1 {
		t.Errorf("expected 1 site with limit, got %d", len(top))
	}
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	r, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil run, got %+v", r)
	}
	id, err := db.GetLatestRunID()
	if err != nil || id != "" {
		t.Errorf("expected no latest run, got %q (%v)", id, err)
	}
}
