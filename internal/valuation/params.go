// Package valuation prices the nutrients carried by recovered sediment.
//
// Two pricing methods run side by side. LimitingNutrient values the share of
// a full fertilizer program that the scarcer nutrient can replace.
// SeparatePricing caps each nutrient at crop demand and prices it on its own.
package valuation

import (
	"fmt"

	"github.com/TobiSchelling/SediValue/internal/config"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

// Params holds the agronomic and market inputs of a valuation.
type Params struct {
	Basis string // config.NutrientTotal or config.NutrientParticulate

	PriceN  q.USDPerKg
	PriceP  q.USDPerKg
	DemandN q.KgPerHa
	DemandP q.KgPerHa

	Recovery      q.Ratio
	AvailabilityN q.Ratio
	AvailabilityP q.Ratio
}

// DefaultParams returns the stock parameter set.
func DefaultParams() Params {
	return Params{
		Basis:         config.NutrientTotal,
		PriceN:        1.89,
		PriceP:        5.37,
		DemandN:       150,
		DemandP:       22,
		Recovery:      0.80,
		AvailabilityN: 0.50,
		AvailabilityP: 0.80,
	}
}

// ParamsFrom reads the valuation section of the configuration.
func ParamsFrom(cfg *config.Config) Params {
	v := cfg.Valuation
	return Params{
		Basis:         v.NutrientBasis,
		PriceN:        q.USDPerKg(v.PriceN),
		PriceP:        q.USDPerKg(v.PriceP),
		DemandN:       q.KgPerHa(v.DemandN),
		DemandP:       q.KgPerHa(v.DemandP),
		Recovery:      q.Ratio(v.RecoveryEfficiency),
		AvailabilityN: q.Ratio(v.AvailabilityN),
		AvailabilityP: q.Ratio(v.AvailabilityP),
	}
}

// Validate rejects parameters no valuation can be computed from.
func (p Params) Validate() error {
	switch p.Basis {
	case config.NutrientTotal, config.NutrientParticulate:
	default:
		return fmt.Errorf("unknown nutrient basis %q", p.Basis)
	}
	if p.PriceN < 0 || p.PriceP < 0 {
		return fmt.Errorf("prices must not be negative")
	}
	if p.DemandN < 0 || p.DemandP < 0 {
		return fmt.Errorf("crop demand must not be negative")
	}
	for _, r := range []q.Ratio{p.Recovery, p.AvailabilityN, p.AvailabilityP} {
		if r < 0 || r > 1 {
			return fmt.Errorf("efficiency %v outside [0, 1]", r)
		}
	}
	return nil
}

// CostPerHa is the price of meeting full N and P demand on one hectare.
func (p Params) CostPerHa() q.USD {
	return q.USD(float64(p.DemandN)*float64(p.PriceN) + float64(p.DemandP)*float64(p.PriceP))
}

// UsableN discounts applied N by recovery and plant availability.
func (p Params) UsableN(applied q.Opt[q.KgPerHa]) q.Opt[q.KgPerHa] {
	return q.Map(applied, func(a q.KgPerHa) q.KgPerHa {
		return a * q.KgPerHa(p.Recovery*p.AvailabilityN)
	})
}

// UsableP discounts applied P by recovery and plant availability.
func (p Params) UsableP(applied q.Opt[q.KgPerHa]) q.Opt[q.KgPerHa] {
	return q.Map(applied, func(a q.KgPerHa) q.KgPerHa {
		return a * q.KgPerHa(p.Recovery*p.AvailabilityP)
	})
}

// PercentOfDemand is usable ÷ demand clamped to [0, 1]. It is missing when
// demand is zero.
func PercentOfDemand(usable q.Opt[q.KgPerHa], demand q.KgPerHa) q.Opt[q.Ratio] {
	r := q.Div[q.KgPerHa, q.KgPerHa, q.Ratio](usable, q.Some(demand))
	return q.Map(r, func(v q.Ratio) q.Ratio {
		switch {
		case v < 0:
			return 0
		case v > 1:
			return 1
		}
		return v
	})
}

// capped is min(usable, demand).
func capped(usable q.Opt[q.KgPerHa], demand q.KgPerHa) q.Opt[q.KgPerHa] {
	return q.Min(usable, q.Some(demand))
}
