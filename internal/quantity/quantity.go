// Package quantity holds the unit-tagged numeric types shared by every stage.
//
// Monitoring area and reuse area are separate types. A nutrient total can
// only be divided by the area that matches the basis being computed, so the
// watershed-vs-farmland mix-up cannot be written without an explicit
// conversion at the call site.
package quantity

import "math"

// Conversion constants.
const (
	LbPerAcreToKgPerHa = 1.12085
	PoundsToKg         = 0.45359237
	AcresToHectares    = 0.40468564224
	MgPerKg            = 1e6
	KgPerTonne         = 1000.0
	GramsPerKg         = 1000.0
)

// Kilograms is a mass.
type Kilograms float64

// MonitoringArea is the contributing drainage area of one or more
// monitoring sites, in hectares.
type MonitoringArea float64

// ReuseArea is farmland area that receives recovered sediment, in hectares.
type ReuseArea float64

// KgPerHa is a per-hectare rate. Whether it refers to the monitoring or the
// reuse basis depends on which helper produced it.
type KgPerHa float64

// TonnesPerHa is a sediment application dose.
type TonnesPerHa float64

// USD is a currency amount.
type USD float64

// USDPerKg is a fertilizer market price.
type USDPerKg float64

// Ratio is a dimensionless fraction.
type Ratio float64

// PerReuseHectare spreads a mass over a reuse area. Missing or non-positive
// areas give a missing result.
func PerReuseHectare(m Kilograms, area Opt[ReuseArea]) Opt[KgPerHa] {
	a, ok := area.Get()
	if !ok || a <= 0 {
		return None[KgPerHa]()
	}
	return Some(KgPerHa(float64(m) / float64(a)))
}

// PerMonitoredHectare gives the yield of a mass over its monitoring area.
func PerMonitoredHectare(m Kilograms, area MonitoringArea) Opt[KgPerHa] {
	if area <= 0 {
		return None[KgPerHa]()
	}
	return Some(KgPerHa(float64(m) / float64(area)))
}

// ReuseAreaFor is the farmland area a sediment mass covers at a dose.
func ReuseAreaFor(sediment Kilograms, dose TonnesPerHa) Opt[ReuseArea] {
	if sediment <= 0 || dose <= 0 {
		return None[ReuseArea]()
	}
	return Some(ReuseArea(float64(sediment) / (float64(dose) * KgPerTonne)))
}

// Grade is grams of nutrient per kilogram of sediment.
func Grade(nutrient, sediment Kilograms) Opt[Ratio] {
	if sediment <= 0 {
		return None[Ratio]()
	}
	return Some(Ratio(float64(nutrient) / float64(sediment) * GramsPerKg))
}

// MassFromConcentration converts a concentration (mg/L) over a volume (L)
// to kilograms.
func MassFromConcentration(mgPerL, liters float64) Kilograms {
	return Kilograms(mgPerL * liters / MgPerKg)
}

// ClampNonNegative floors a mass at zero.
func ClampNonNegative(m Kilograms) Kilograms {
	if m < 0 || math.IsNaN(float64(m)) {
		return 0
	}
	return m
}
