package mass

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

func testSites() map[string]model.Site {
	return map[string]model.Site{
		"A": {StationID: "A", State: "OH", DrainageArea: 4},
		"B": {StationID: "B", State: "OH", DrainageArea: 12},
		"C": {StationID: "C", State: "MI", DrainageArea: 1.5},
	}
}

func TestTwoEventNitrogenMass(t *testing.T) {
	events := []model.StormEvent{
		{StationID: "A", Year: 2016, Valid: true, VolumeL: 5000, TotalN: 15},
		{StationID: "A", Year: 2016, Valid: true, VolumeL: 8000, TotalN: 22},
	}
	aggs, res := AggregateSites(Concentration{}, testSites(), events)
	if len(aggs) != 1 || res.StationYears != 1 {
		t.Fatalf("expected 1 station-year, got %d", len(aggs))
	}
	if math.Abs(float64(aggs[0].Mass.TotalN)-0.251) > 1e-12 {
		t.Errorf("expected 0.251 kg N, got %v", aggs[0].Mass.TotalN)
	}
	if aggs[0].Events != 2 || !aggs[0].Valid {
		t.Errorf("expected 2 valid events, got %d (valid=%v)", aggs[0].Events, aggs[0].Valid)
	}
}

func TestParticulateNeverNegative(t *testing.T) {
	cases := []model.StormEvent{
		{VolumeL: 1000, TKN: 1, Ammonia: 3, TotalP: 0.2, Orthophosphate: 0.5},
		{VolumeL: 1000, TKN: 5, Ammonia: 1, TotalP: 1, Orthophosphate: 0.25},
		{VolumeL: 0, TKN: 5, Ammonia: 6},
	}
	for i, ev := range cases {
		m := EventMass(ev)
		if m.ParticulateN < 0 || m.ParticulateP < 0 {
			t.Errorf("case %d: negative particulate mass %+v", i, m)
		}
	}
	m := EventMass(cases[0])
	if m.ParticulateN != 0 || m.ParticulateP != 0 {
		t.Errorf("expected clamped zero partitions, got N=%v P=%v", m.ParticulateN, m.ParticulateP)
	}
	m = EventMass(cases[1])
	if math.Abs(float64(m.ParticulateN)-0.004) > 1e-12 {
		t.Errorf("expected 0.004 kg particulate N, got %v", m.ParticulateN)
	}
	if math.Abs(float64(m.DissolvedP)-0.00025) > 1e-12 {
		t.Errorf("expected 0.00025 kg dissolved P, got %v", m.DissolvedP)
	}
}

func TestInvalidEventDoesNotChangeAggregate(t *testing.T) {
	base := []model.StormEvent{
		{StationID: "A", Year: 2016, Valid: true, VolumeL: 5000, TotalN: 15, Sediment: 300},
		{StationID: "A", Year: 2016, Valid: true, VolumeL: 8000, TotalN: 22, Sediment: 450},
	}
	masked := append([]model.StormEvent{
		{StationID: "A", Year: 2016, Valid: false, VolumeL: 90000, TotalN: 400, Sediment: 9000},
	}, base...)

	want, _ := AggregateSites(Concentration{}, testSites(), base)
	got, _ := AggregateSites(Concentration{}, testSites(), masked)
	if len(got) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(got))
	}
	if got[0].Mass != want[0].Mass || got[0].Events != want[0].Events {
		t.Errorf("invalid event changed the aggregate: %+v vs %+v", got[0].Mass, want[0].Mass)
	}
}

func TestStationYearWithoutValidEventsIsOmitted(t *testing.T) {
	events := []model.StormEvent{
		{StationID: "A", Year: 2016, Valid: true, VolumeL: 1000, Sediment: 10},
		{StationID: "A", Year: 2017, Valid: false, VolumeL: 1000, Sediment: 10},
	}
	aggs, res := AggregateSites(Concentration{}, testSites(), events)
	if len(aggs) != 1 || aggs[0].Year != 2016 {
		t.Fatalf("expected only 2016 aggregate, got %+v", aggs)
	}
	if res.Omitted != 1 {
		t.Errorf("expected 1 omitted station-year, got %d", res.Omitted)
	}
}

func TestRegionalYieldIsAreaWeighted(t *testing.T) {
	events := []model.StormEvent{
		{StationID: "A", Year: 2016, Valid: true, VolumeL: 100000, Sediment: 800, TotalN: 12, TotalP: 2},
		{StationID: "B", Year: 2016, Valid: true, VolumeL: 20000, Sediment: 150, TotalN: 4, TotalP: 0.3},
		{StationID: "C", Year: 2016, Valid: true, VolumeL: 60000, Sediment: 2000, TotalN: 30, TotalP: 5},
	}
	siteAggs, _ := AggregateSites(Concentration{}, testSites(), events)
	regional, err := AggregateRegions("GreatLakes", siteAggs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var region model.RegionalAggregate
	for _, r := range regional {
		if r.Scope.Level == model.ScopeRegion {
			region = r
		}
	}
	if region.Sites != 3 {
		t.Fatalf("expected region over 3 sites, got %d", region.Sites)
	}

	yields := make([]float64, len(siteAggs))
	areas := make([]float64, len(siteAggs))
	masses := make([]float64, len(siteAggs))
	for i, a := range siteAggs {
		y, _ := a.Yields().Sediment.Get()
		yields[i] = float64(y)
		areas[i] = float64(a.Area)
		masses[i] = float64(a.Mass.Sediment)
	}

	got, _ := region.Yields().Sediment.Get()
	weighted := stat.Mean(yields, areas)
	if math.Abs(float64(got)-weighted) > 1e-9 {
		t.Errorf("expected aggregate-then-divide %v to equal area-weighted mean %v", got, weighted)
	}
	if math.Abs(float64(got)-floats.Sum(masses)/floats.Sum(areas)) > 1e-9 {
		t.Errorf("expected yield from summed mass over summed area, got %v", got)
	}
	// Summing the per-site yields is the forbidden shortcut and differs here.
	if math.Abs(float64(got)-floats.Sum(yields)) < 1e-6 {
		t.Error("expected summed yields to differ from the regional yield")
	}
}

func TestRegionalScopes(t *testing.T) {
	events := []model.StormEvent{
		{StationID: "A", Year: 2016, Valid: true, VolumeL: 1000, Sediment: 10},
		{StationID: "C", Year: 2016, Valid: true, VolumeL: 1000, Sediment: 20},
		{StationID: "C", Year: 2017, Valid: true, VolumeL: 1000, Sediment: 30},
	}
	siteAggs, _ := AggregateSites(Concentration{}, testSites(), events)
	regional, err := AggregateRegions("GreatLakes", siteAggs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// region 2016, region 2017, MI 2016, MI 2017, OH 2016
	if len(regional) != 5 {
		t.Fatalf("expected 5 scope-years, got %d", len(regional))
	}
	if regional[0].Scope.Level != model.ScopeRegion || regional[0].Year != 2016 {
		t.Errorf("expected region rows first, got %v", regional[0].Scope)
	}
	if math.Abs(float64(regional[0].Mass.Sediment)-0.03) > 1e-12 {
		t.Errorf("expected 0.03 kg region sediment in 2016, got %v", regional[0].Mass.Sediment)
	}
	if regional[0].Area != 5.5 {
		t.Errorf("expected summed area 5.5 ha, got %v", regional[0].Area)
	}
}

func TestLegacyYieldStaysWithinSite(t *testing.T) {
	events := []model.StormEvent{
		{StationID: "A", Year: 2016, Valid: true, SedimentYield: 10, NYield: 1, PYield: 0.2},
		{StationID: "A", Year: 2016, Valid: true, SedimentYield: 5, NYield: 0.5, PYield: 0.1},
		{StationID: "A", Year: 2016, Valid: false, SedimentYield: 100},
	}
	aggs, _ := AggregateSites(LegacyYield{}, testSites(), events)
	if len(aggs) != 1 || aggs[0].Basis != model.BasisYield {
		t.Fatalf("expected one yield-basis aggregate, got %+v", aggs)
	}
	sed, _ := aggs[0].Yields().Sediment.Get()
	if sed != q.KgPerHa(15) {
		t.Errorf("expected 15 kg/ha, got %v", sed)
	}
	if aggs[0].Mass != (model.NutrientMass{}) {
		t.Error("expected no masses on a yield-basis aggregate")
	}

	_, err := AggregateRegions("GreatLakes", aggs)
	var basisErr *model.BasisError
	if !errors.As(err, &basisErr) {
		t.Fatalf("expected BasisError, got %v", err)
	}
}

func TestMethodFor(t *testing.T) {
	m, err := MethodFor("concentration")
	if err != nil || m.Basis() != model.BasisMass {
		t.Errorf("expected concentration method, got %v (%v)", m, err)
	}
	m, err = MethodFor("legacy_yield")
	if err != nil || m.Basis() != model.BasisYield {
		t.Errorf("expected legacy method, got %v (%v)", m, err)
	}
	if _, err := MethodFor("mean"); err == nil {
		t.Error("expected error for unknown method")
	}
}
