package valuation

import (
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

// Nutrients is the per-reuse-hectare picture a pricing method works from.
type Nutrients struct {
	UsableN  q.Opt[q.KgPerHa]
	UsableP  q.Opt[q.KgPerHa]
	PercentN q.Opt[q.Ratio]
	PercentP q.Opt[q.Ratio]
}

// NutrientsFor derives usable amounts and demand shares from applied rates.
func NutrientsFor(p Params, appliedN, appliedP q.Opt[q.KgPerHa]) Nutrients {
	n := Nutrients{
		UsableN: p.UsableN(appliedN),
		UsableP: p.UsableP(appliedP),
	}
	n.PercentN = PercentOfDemand(n.UsableN, p.DemandN)
	n.PercentP = PercentOfDemand(n.UsableP, p.DemandP)
	return n
}

// Bottleneck is the smaller of the two demand shares.
func (n Nutrients) Bottleneck() q.Opt[q.Ratio] {
	return q.Min(n.PercentN, n.PercentP)
}

// PricingMethod turns a nutrient picture into a dollar value per hectare.
type PricingMethod interface {
	Name() string
	PerHa(p Params, n Nutrients) q.Opt[q.USD]
}

// GrossPerHa prices all usable nutrients without any demand cap.
func GrossPerHa(p Params, n Nutrients) q.Opt[q.USD] {
	return q.Map2(n.UsableN, n.UsableP, func(un, up q.KgPerHa) q.USD {
		return q.USD(float64(un)*float64(p.PriceN) + float64(up)*float64(p.PriceP))
	})
}

// SavingN is the value of usable N up to crop demand.
func SavingN(p Params, n Nutrients) q.Opt[q.USD] {
	return q.Map(capped(n.UsableN, p.DemandN), func(v q.KgPerHa) q.USD {
		return q.USD(float64(v) * float64(p.PriceN))
	})
}

// SavingP is the value of usable P up to crop demand.
func SavingP(p Params, n Nutrients) q.Opt[q.USD] {
	return q.Map(capped(n.UsableP, p.DemandP), func(v q.KgPerHa) q.USD {
		return q.USD(float64(v) * float64(p.PriceP))
	})
}

// LimitingNutrient values the fraction of a complete N+P program that the
// bottleneck nutrient replaces, never more than the gross nutrient value.
type LimitingNutrient struct{}

func (LimitingNutrient) Name() string { return "limiting_nutrient" }

func (LimitingNutrient) PerHa(p Params, n Nutrients) q.Opt[q.USD] {
	replaced := q.Map(n.Bottleneck(), func(r q.Ratio) q.USD {
		return q.USD(r) * p.CostPerHa()
	})
	return q.Min(replaced, GrossPerHa(p, n))
}

// SeparatePricing caps each nutrient at demand and sums their values.
type SeparatePricing struct{}

func (SeparatePricing) Name() string { return "separate_pricing" }

func (SeparatePricing) PerHa(p Params, n Nutrients) q.Opt[q.USD] {
	return q.Map2(SavingN(p, n), SavingP(p, n), func(sn, sp q.USD) q.USD {
		return sn + sp
	})
}
