package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

var region = model.Scope{Level: model.ScopeRegion, Code: "GreatLakes"}

func testResults() model.Results {
	return model.Results{
		SiteTotals: []model.AnnualSiteAggregate{
			{StationID: "04001", State: "OH", Year: 2016, Basis: model.BasisMass, Events: 2, Area: 4,
				Mass: model.NutrientMass{Sediment: 100, TotalN: 2}, Valid: true},
			{StationID: "04002", State: "MI", Year: 2016, Basis: model.BasisYield, Events: 1, Area: 0,
				Legacy: model.Yields{Sediment: q.Some[q.KgPerHa](12)}, Valid: true},
		},
		ScopeTotals: []model.RegionalAggregate{
			{Scope: region, Year: 2016, Mass: model.NutrientMass{Sediment: 100}, Area: 4, Sites: 1, Events: 2},
		},
		Reuse: []model.ReuseEstimate{
			{Scope: region, Year: 2016, Dose: 20, Sediment: 100, Area: q.ReuseAreaFor(100, 20)},
			{Scope: region, Year: 2017, Dose: 20, Sediment: 0, Area: q.ReuseAreaFor(0, 20)},
		},
		Valuations: []model.EconomicValuation{
			{Scope: region, Year: 2017, Dose: 20},
		},
	}
}

func find(tables []Table, name string) *Table {
	for i := range tables {
		if tables[i].Name == name {
			return &tables[i]
		}
	}
	return nil
}

func TestTablesShape(t *testing.T) {
	tables := Tables(testResults())
	if len(tables) != 4 {
		t.Fatalf("expected 4 tables without site economics, got %d", len(tables))
	}
	for _, tbl := range tables {
		for i, row := range tbl.Rows {
			if len(row) != len(tbl.Header) {
				t.Errorf("%s row %d: expected %d cells, got %d", tbl.Name, i, len(tbl.Header), len(row))
			}
		}
	}

	sites := find(tables, SiteTotals)
	if sites.Rows[1][6] != nil {
		t.Errorf("expected empty mass cell for yield-basis row, got %v", sites.Rows[1][6])
	}

	reuse := find(tables, ReuseByDose)
	if reuse.Rows[0][5] != 0.005 {
		t.Errorf("expected 0.005 ha, got %v", reuse.Rows[0][5])
	}
	if reuse.Rows[1][5] != nil {
		t.Errorf("expected missing reuse area, got %v", reuse.Rows[1][5])
	}

	res := testResults()
	res.Sites = []model.SiteEconomics{{Rank: 1, StationID: "04001"}}
	if got := Tables(res); find(got, SiteEconomics) == nil {
		t.Error("expected site economics table when sites are ranked")
	}
}

func TestFormatCell(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"OH", "OH"},
		{2016, "2016"},
		{0.005, "0.005"},
		{39.0922, "39.0922"},
	}
	for _, c := range cases {
		if got := FormatCell(c.in); got != c.want {
			t.Errorf("FormatCell(%v): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestCSVWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := CSVWriter{Dir: dir}.Write(Tables(testResults()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 files, got %d", len(paths))
	}

	f, err := os.Open(filepath.Join(dir, ReuseByDose+".csv"))
	if err != nil {
		t.Fatalf("failed to open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][5] != "reuse_area_ha" {
		t.Errorf("expected reuse_area_ha header, got %q", records[0][5])
	}
	if records[2][5] != "" {
		t.Errorf("expected empty cell for missing area, got %q", records[2][5])
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	if _, err := (XLSXWriter{Path: path}).Write(Tables(testResults())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 4 || sheets[0] != SiteTotals {
		t.Fatalf("expected 4 sheets starting with %s, got %v", SiteTotals, sheets)
	}
	rows, err := f.GetRows(ReuseByDose)
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "region" || rows[1][1] != "GreatLakes" {
		t.Errorf("expected region row, got %v", rows[1])
	}
}
