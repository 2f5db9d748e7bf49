package valuation

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SediValue/internal/config"
	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

const stage = "value"

// Valuator prices reuse estimates with both pricing methods.
type Valuator struct {
	params   Params
	limiting PricingMethod
	separate PricingMethod
}

// New returns a valuator for p.
func New(p Params) (*Valuator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("valuation parameters: %w", err)
	}
	return &Valuator{params: p, limiting: LimitingNutrient{}, separate: SeparatePricing{}}, nil
}

// Params returns the parameters in use.
func (v *Valuator) Params() Params { return v.params }

func (v *Valuator) nutrientMass(m model.NutrientMass) (n, p q.Kilograms) {
	if v.params.Basis == config.NutrientParticulate {
		return m.ParticulateN, m.ParticulateP
	}
	return m.TotalN, m.TotalP
}

func perHaTotal(perHa q.Opt[q.USD], area q.Opt[q.ReuseArea]) q.Opt[q.USD] {
	return q.Map2(perHa, area, func(v q.USD, a q.ReuseArea) q.USD {
		return v * q.USD(a)
	})
}

// Value prices one reuse estimate against the aggregate it was derived
// from. A missing reuse area leaves every derived field missing.
func (v *Valuator) Value(agg model.RegionalAggregate, est model.ReuseEstimate) model.EconomicValuation {
	massN, massP := v.nutrientMass(agg.Mass)
	area := est.Area

	ev := model.EconomicValuation{
		Scope:     est.Scope,
		Year:      est.Year,
		Dose:      est.Dose,
		ReuseArea: area,
		AppliedN:  q.PerReuseHectare(massN, area),
		AppliedP:  q.PerReuseHectare(massP, area),
	}
	n := NutrientsFor(v.params, ev.AppliedN, ev.AppliedP)
	ev.UsableN, ev.UsableP = n.UsableN, n.UsableP
	ev.PercentN, ev.PercentP = n.PercentN, n.PercentP
	ev.Bottleneck = n.Bottleneck()
	ev.ReplacedArea = q.Map2(area, ev.Bottleneck, func(a q.ReuseArea, r q.Ratio) q.ReuseArea {
		return a * q.ReuseArea(r)
	})

	ev.GrossPerHa = GrossPerHa(v.params, n)
	ev.GrossTotal = perHaTotal(ev.GrossPerHa, area)
	ev.LimitingPerHa = v.limiting.PerHa(v.params, n)
	ev.LimitingTotal = perHaTotal(ev.LimitingPerHa, area)
	ev.SavingNPerHa = SavingN(v.params, n)
	ev.SavingPPerHa = SavingP(v.params, n)
	ev.SeparatePerHa = v.separate.PerHa(v.params, n)
	ev.SeparateTotal = perHaTotal(ev.SeparatePerHa, area)
	return ev
}

// Result counts valued rows and rows left undefined.
type Result struct {
	Rows      int
	Undefined int
}

// ValueAll values every estimate. Each estimate must have a matching
// (scope, year) aggregate.
func (v *Valuator) ValueAll(aggs []model.RegionalAggregate, ests []model.ReuseEstimate) ([]model.EconomicValuation, Result, error) {
	type key struct {
		scope model.Scope
		year  int
	}
	byKey := make(map[key]model.RegionalAggregate, len(aggs))
	for _, a := range aggs {
		byKey[key{a.Scope, a.Year}] = a
	}

	var res Result
	out := make([]model.EconomicValuation, 0, len(ests))
	for _, est := range ests {
		agg, ok := byKey[key{est.Scope, est.Year}]
		if !ok {
			return nil, res, &model.PreconditionError{
				Stage:  stage,
				Reason: fmt.Sprintf("no aggregate for %s %d", est.Scope, est.Year),
			}
		}
		ev := v.Value(agg, est)
		if !ev.SeparatePerHa.Valid() {
			res.Undefined++
		}
		out = append(out, ev)
	}
	res.Rows = len(out)

	log.WithFields(log.Fields{
		"rows":      res.Rows,
		"undefined": res.Undefined,
		"basis":     v.params.Basis,
		"methods":   v.limiting.Name() + "," + v.separate.Name(),
	}).Info("valued reuse estimates")
	return out, res, nil
}
