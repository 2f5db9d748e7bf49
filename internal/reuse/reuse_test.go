package reuse

import (
	"math"
	"testing"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

func regional(sediment q.Kilograms, year int) model.RegionalAggregate {
	return model.RegionalAggregate{
		Scope: model.Scope{Level: model.ScopeRegion, Code: "GreatLakes"},
		Year:  year,
		Mass:  model.NutrientMass{Sediment: sediment},
		Area:  10,
		Sites: 1,
	}
}

func TestNewEstimatorRejectsInvalid(t *testing.T) {
	for _, doses := range [][]float64{nil, {20, -1}, {math.NaN()}} {
		if _, err := NewEstimator(doses); err == nil {
			t.Errorf("expected error for doses %v", doses)
		}
	}
}

func TestNewEstimatorSortsAndDedupes(t *testing.T) {
	e, err := NewEstimator([]float64{50, 5, 20, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := e.Doses()
	want := []q.TonnesPerHa{5, 20, 50}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected dose %v at %d, got %v", want[i], i, got[i])
		}
	}
}

func TestReuseAreaDecreasesWithDose(t *testing.T) {
	e, _ := NewEstimator([]float64{5, 20, 50, 75, 100})
	rows, res := e.Estimate([]model.RegionalAggregate{regional(79760, 2016)})
	if res.Rows != 5 || res.Undefined != 0 {
		t.Fatalf("expected 5 defined rows, got %+v", res)
	}
	prev := math.Inf(1)
	for _, r := range rows {
		a, ok := r.Area.Get()
		if !ok {
			t.Fatalf("expected defined area at dose %v", r.Dose)
		}
		if float64(a) >= prev {
			t.Errorf("expected area to decrease at dose %v, got %v after %v", r.Dose, a, prev)
		}
		prev = float64(a)
	}
	a20, _ := rows[1].Area.Get()
	if math.Abs(float64(a20)-3.988) > 1e-9 {
		t.Errorf("expected 3.988 ha at 20 t/ha, got %v", a20)
	}
}

func TestDoublingDoseHalvesArea(t *testing.T) {
	e, _ := NewEstimator([]float64{25, 50})
	rows, _ := e.Estimate([]model.RegionalAggregate{regional(12345, 2017)})
	a25, _ := rows[0].Area.Get()
	a50, _ := rows[1].Area.Get()
	if math.Abs(float64(a25)-2*float64(a50)) > 1e-12 {
		t.Errorf("expected %v = 2 × %v", a25, a50)
	}
}

func TestZeroSedimentIsUndefined(t *testing.T) {
	e, _ := NewEstimator([]float64{20})
	rows, res := e.Estimate([]model.RegionalAggregate{regional(0, 2016), regional(500, 2017)})
	if res.Undefined != 1 {
		t.Errorf("expected 1 undefined row, got %d", res.Undefined)
	}
	if rows[0].Area.Valid() {
		t.Errorf("expected missing area for zero sediment, got %v", rows[0].Area)
	}
	if !rows[1].Area.Valid() {
		t.Error("expected defined area for 2017")
	}
}

func TestZeroDoseIsUndefined(t *testing.T) {
	e, err := NewEstimator([]float64{0, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, res := e.Estimate([]model.RegionalAggregate{regional(500, 2016)})
	if res.Undefined != 1 || rows[0].Area.Valid() {
		t.Errorf("expected zero dose to give a missing area, got %+v", rows[0])
	}
}
