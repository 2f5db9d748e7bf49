package report

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
	"github.com/TobiSchelling/SediValue/internal/valuation"
)

var (
	region = model.Scope{Level: model.ScopeRegion, Code: "GreatLakes"}
	ohio   = model.Scope{Level: model.ScopeState, Code: "OH"}
)

func valuations() []model.EconomicValuation {
	return []model.EconomicValuation{
		{Scope: region, Year: 2017, Dose: 20},
		{Scope: region, Year: 2016, Dose: 20,
			ReuseArea: q.Some[q.ReuseArea](3.5),
			AppliedN:  q.Some[q.KgPerHa](39.0923), PercentN: q.Some[q.Ratio](0.10425),
			LimitingTotal: q.Some[q.USD](150.5), SeparateTotal: q.Some[q.USD](180.25)},
		{Scope: region, Year: 2018, Dose: 20,
			ReuseArea: q.Some[q.ReuseArea](2.5),
			AppliedN:  q.Some[q.KgPerHa](20.9077), PercentN: q.Some[q.Ratio](0.05575),
			LimitingTotal: q.Some[q.USD](49.5), SeparateTotal: q.Some[q.USD](19.75)},
		{Scope: region, Year: 2016, Dose: 40, ReuseArea: q.Some[q.ReuseArea](1.994)},
		{Scope: ohio, Year: 2016, Dose: 20, ReuseArea: q.Some[q.ReuseArea](1)},
	}
}

func testReport() *Report {
	return Build("run-a", region, 20, valuation.DefaultParams(), valuations(), nil)
}

func TestBuildFiltersAndSorts(t *testing.T) {
	r := testReport()
	if len(r.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(r.Rows))
	}
	for i, want := range []int{2016, 2017, 2018} {
		if r.Rows[i].Year != want {
			t.Errorf("row %d: expected year %d, got %d", i, want, r.Rows[i].Year)
		}
	}
}

func TestTotalsSkipMissing(t *testing.T) {
	tot := testReport().Totals()
	if tot.Years != 3 || tot.ValidYears != 2 {
		t.Errorf("expected 2 of 3 valid years, got %d of %d", tot.ValidYears, tot.Years)
	}
	if got, _ := tot.MeanReuseArea.Get(); got != 3 {
		t.Errorf("expected mean reuse area 3, got %v", got)
	}
	if got, _ := tot.SumLimiting.Get(); got != 200 {
		t.Errorf("expected limiting total 200, got %v", got)
	}
	if got, _ := tot.MeanSeparate.Get(); got != 100 {
		t.Errorf("expected mean separate 100, got %v", got)
	}
	if tot.MeanAppliedP.Valid() {
		t.Error("expected mean applied P to be missing when no year has it")
	}
}

func TestTotalsEmpty(t *testing.T) {
	tot := Build("run-a", region, 5, valuation.DefaultParams(), valuations(), nil).Totals()
	if tot.Years != 0 || tot.SumSeparate.Valid() || tot.MeanReuseArea.Valid() {
		t.Errorf("expected empty totals, got %+v", tot)
	}
}

func TestFormatting(t *testing.T) {
	cases := []struct{ got, want string }{
		{Money(q.Some[q.USD](186.5964)), "$186.60"},
		{Money(q.Some[q.USD](0)), "$0.00"},
		{Money(q.None[q.USD]()), "n/a"},
		{Percent(q.Some[q.Ratio](0.5)), "50.0%"},
		{Percent(q.Some[q.Ratio](1)), "100.0%"},
		{Percent(q.None[q.Ratio]()), "n/a"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("expected %q, got %q", c.want, c.got)
		}
	}
}

func TestMarkdown(t *testing.T) {
	r := testReport()
	r.Sites = []model.SiteEconomics{{Rank: 1, StationID: "04001", State: "OH", ValuePerHa: q.Some[q.USD](177.672)}}
	out := r.Markdown()

	for _, want := range []string{
		"# Sediment nutrient value: GreatLakes",
		"| 2016 | 3.50 |",
		"$180.25",
		"| 2017 | n/a |",
		"2 of 3 years",
		"## Top sites",
		"| 1 | 04001 | OH |",
		"$177.67",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected markdown to contain %q", want)
		}
	}
}

func TestMarkdownOmitsSitesWhenEmpty(t *testing.T) {
	if strings.Contains(testReport().Markdown(), "Top sites") {
		t.Error("expected no site section without ranked sites")
	}
}

func TestHTMLRendersTables(t *testing.T) {
	page, err := HTML("GreatLakes", testReport().Markdown())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := string(page)
	if !strings.Contains(s, "<table>") {
		t.Error("expected rendered table")
	}
	if !strings.Contains(s, "<title>GreatLakes</title>") {
		t.Error("expected page title")
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	paths, err := testReport().Write(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %v", paths)
	}
	pdf, err := os.ReadFile(paths[2])
	if err != nil {
		t.Fatalf("reading pdf: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("expected a PDF header")
	}
}
