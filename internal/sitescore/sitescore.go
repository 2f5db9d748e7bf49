// Package sitescore ranks individual monitoring stations by the fertilizer
// value of their sediment at a phosphorus-limited application dose.
package sitescore

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SediValue/internal/config"
	"github.com/TobiSchelling/SediValue/internal/mass"
	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
	"github.com/TobiSchelling/SediValue/internal/valuation"
)

// Options controls site selection and dosing.
type Options struct {
	MinSediment q.Kilograms
	MaxDose     q.TonnesPerHa
	Params      valuation.Params
}

// OptionsFrom reads the site analysis section of the configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		MinSediment: q.Kilograms(cfg.SiteAnalysis.MinSedimentKg),
		MaxDose:     q.TonnesPerHa(cfg.SiteAnalysis.MaxDose),
		Params:      valuation.ParamsFrom(cfg),
	}
}

// Result counts stations seen and kept.
type Result struct {
	Stations       int
	Ranked         int
	BelowThreshold int
	Undosed        int
}

type tally struct {
	mass   model.NutrientMass
	events int
	years  map[int]bool
}

// Rank scores every station with more than opt.MinSediment of total
// sediment across its QC-valid events. Rows are ordered by value per
// hectare, highest first; stations without a defined value come last.
func Rank(sites map[string]model.Site, events []model.StormEvent, opt Options) ([]model.SiteEconomics, Result) {
	tallies := make(map[string]*tally)
	for _, ev := range events {
		if !ev.Valid {
			continue
		}
		if _, ok := sites[ev.StationID]; !ok {
			continue
		}
		t, ok := tallies[ev.StationID]
		if !ok {
			t = &tally{years: make(map[int]bool)}
			tallies[ev.StationID] = t
		}
		t.mass = t.mass.Add(mass.EventMass(ev))
		t.events++
		t.years[ev.Year] = true
	}

	res := Result{Stations: len(tallies)}
	var rows []model.SiteEconomics
	for id, t := range tallies {
		if t.mass.Sediment <= opt.MinSediment {
			res.BelowThreshold++
			continue
		}
		row := score(sites[id], t, opt)
		if !row.OptimizedDose.Valid() {
			res.Undosed++
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, aok := rows[i].ValuePerHa.Get()
		b, bok := rows[j].ValuePerHa.Get()
		if aok != bok {
			return aok
		}
		if aok && a != b {
			return a > b
		}
		return rows[i].StationID < rows[j].StationID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	res.Ranked = len(rows)

	log.WithFields(log.Fields{
		"stations":        res.Stations,
		"ranked":          res.Ranked,
		"below_threshold": res.BelowThreshold,
		"undosed":         res.Undosed,
	}).Info("ranked sites")
	return rows, res
}

func score(site model.Site, t *tally, opt Options) model.SiteEconomics {
	p := opt.Params
	row := model.SiteEconomics{
		StationID:      site.StationID,
		State:          site.State,
		Events:         t.events,
		YearsMonitored: len(t.years),
		Mass:           t.mass,
		AvgAnnualLoad:  t.mass.Sediment / q.Kilograms(len(t.years)),
		GradeN:         q.Grade(t.mass.ParticulateN, t.mass.Sediment),
		GradeP:         q.Grade(t.mass.ParticulateP, t.mass.Sediment),
	}

	// kg of usable P per kg of sediment, so the dose meets P demand exactly
	effectiveP := q.Map(row.GradeP, func(g q.Ratio) q.Ratio {
		return g / q.GramsPerKg * p.Recovery * p.AvailabilityP
	})
	if e, ok := effectiveP.Get(); ok && e > 0 {
		row.MaxAllowedDose = q.Some(q.TonnesPerHa(float64(p.DemandP) / float64(e) / q.KgPerTonne))
	}
	row.OptimizedDose = q.Min(row.MaxAllowedDose, q.Some(opt.MaxDose))

	dose, ok := row.OptimizedDose.Get()
	if !ok {
		return row
	}
	row.ReuseArea = q.ReuseAreaFor(row.AvgAnnualLoad, dose)

	// grade in g/kg times dose in t/ha is kg/ha
	applied := func(grade q.Opt[q.Ratio]) q.Opt[q.KgPerHa] {
		return q.Map(grade, func(g q.Ratio) q.KgPerHa { return q.KgPerHa(float64(g) * float64(dose)) })
	}
	row.AppliedN = applied(row.GradeN)
	row.AppliedP = applied(row.GradeP)

	n := valuation.NutrientsFor(p, row.AppliedN, row.AppliedP)
	row.UsableN, row.UsableP = n.UsableN, n.UsableP
	row.ValueNPerHa = valuation.SavingN(p, n)
	row.ValuePPerHa = valuation.SavingP(p, n)
	row.ValuePerHa = valuation.SeparatePricing{}.PerHa(p, n)
	row.ValueTotalPerYr = q.Map2(row.ValuePerHa, row.ReuseArea, func(v q.USD, a q.ReuseArea) q.USD {
		return v * q.USD(a)
	})
	return row
}

// Top returns at most n leading rows; n <= 0 returns all.
func Top(rows []model.SiteEconomics, n int) []model.SiteEconomics {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}
