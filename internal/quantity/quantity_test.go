package quantity

import (
	"math"
	"testing"
)

func TestSomeRejectsNonFinite(t *testing.T) {
	if Some(math.NaN()).Valid() {
		t.Error("expected NaN to be missing")
	}
	if Some(KgPerHa(math.Inf(1))).Valid() {
		t.Error("expected +Inf to be missing")
	}
	if !Some(0.0).Valid() {
		t.Error("expected zero to be a defined value")
	}
}

func TestZeroValueIsMissing(t *testing.T) {
	var o Opt[USD]
	if o.Valid() {
		t.Error("expected zero-value Opt to be missing")
	}
	if o.Format(2) != "" {
		t.Errorf("expected empty string, got %q", o.Format(2))
	}
	if o.Null().Valid {
		t.Error("expected NULL for missing value")
	}
}

func TestReuseAreaFor(t *testing.T) {
	a, ok := ReuseAreaFor(40000, 20).Get()
	if !ok || math.Abs(float64(a)-2.0) > 1e-12 {
		t.Errorf("expected 2 ha, got %v (ok=%v)", a, ok)
	}
	if ReuseAreaFor(0, 20).Valid() {
		t.Error("expected missing area for zero sediment")
	}
	if ReuseAreaFor(1000, 0).Valid() {
		t.Error("expected missing area for zero dose")
	}
}

func TestPerReuseHectare(t *testing.T) {
	got, ok := PerReuseHectare(155.9, Some(ReuseArea(3.988))).Get()
	if !ok || math.Abs(float64(got)-39.09) > 0.01 {
		t.Errorf("expected ~39.09 kg/ha, got %v", got)
	}
	if PerReuseHectare(10, None[ReuseArea]()).Valid() {
		t.Error("expected missing for missing area")
	}
	if PerReuseHectare(10, Some(ReuseArea(0))).Valid() {
		t.Error("expected missing for zero area")
	}
}

func TestDivAndMin(t *testing.T) {
	if Div[KgPerHa, KgPerHa, Ratio](Some(KgPerHa(5)), Some(KgPerHa(0))).Valid() {
		t.Error("expected missing for zero denominator")
	}
	r, _ := Div[KgPerHa, KgPerHa, Ratio](Some(KgPerHa(15)), Some(KgPerHa(150))).Get()
	if math.Abs(float64(r)-0.1) > 1e-12 {
		t.Errorf("expected 0.1, got %v", r)
	}
	m, _ := Min(Some(Ratio(0.4)), Some(Ratio(0.2))).Get()
	if m != 0.2 {
		t.Errorf("expected 0.2, got %v", m)
	}
	if Min(Some(Ratio(0.4)), None[Ratio]()).Valid() {
		t.Error("expected missing when one side is missing")
	}
}

func TestMassFromConcentration(t *testing.T) {
	total := MassFromConcentration(15, 5000) + MassFromConcentration(22, 8000)
	if math.Abs(float64(total)-0.251) > 1e-12 {
		t.Errorf("expected 0.251 kg, got %v", total)
	}
}

func TestValuesSkipsMissing(t *testing.T) {
	vals := Values([]Opt[USD]{Some(USD(1)), None[USD](), Some(USD(3))})
	if len(vals) != 2 || vals[0] != 1 || vals[1] != 3 {
		t.Errorf("expected [1 3], got %v", vals)
	}
}
