package mass

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SediValue/internal/config"
	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

const stage = "aggregate"

// Method turns the QC-valid events of one station-year into an aggregate.
type Method interface {
	Name() string
	Basis() model.Basis
	Reduce(site model.Site, year int, events []model.StormEvent) model.AnnualSiteAggregate
}

// MethodFor returns the method registered under name.
func MethodFor(name string) (Method, error) {
	switch name {
	case config.MethodConcentration:
		return Concentration{}, nil
	case config.MethodLegacyYield:
		return LegacyYield{}, nil
	}
	return nil, fmt.Errorf("unknown mass method %q", name)
}

// Concentration computes masses from concentration × runoff volume.
type Concentration struct{}

func (Concentration) Name() string       { return config.MethodConcentration }
func (Concentration) Basis() model.Basis { return model.BasisMass }

// Reduce sums per-event masses.
func (Concentration) Reduce(site model.Site, year int, events []model.StormEvent) model.AnnualSiteAggregate {
	agg := newAggregate(site, year, model.BasisMass)
	for _, ev := range events {
		agg.Mass = agg.Mass.Add(EventMass(ev))
		agg.Events++
	}
	agg.Valid = agg.Events > 0
	return agg
}

// EventMass converts one event's concentrations to masses and partitions
// N and P into dissolved and particulate fractions. Particulate masses are
// floored at zero.
func EventMass(ev model.StormEvent) model.NutrientMass {
	v := ev.VolumeL
	tkn := q.MassFromConcentration(ev.TKN, v)
	nh := q.MassFromConcentration(ev.Ammonia, v)
	tp := q.MassFromConcentration(ev.TotalP, v)
	po4 := q.MassFromConcentration(ev.Orthophosphate, v)
	return model.NutrientMass{
		Sediment:     q.MassFromConcentration(ev.Sediment, v),
		TotalN:       q.MassFromConcentration(ev.TotalN, v),
		TotalP:       tp,
		ParticulateN: q.ClampNonNegative(tkn - nh),
		ParticulateP: q.ClampNonNegative(tp - po4),
		DissolvedN:   nh,
		DissolvedP:   po4,
	}
}

// LegacyYield sums pre-computed per-area yields within one site. The result
// carries no masses and cannot feed regional totals.
type LegacyYield struct{}

func (LegacyYield) Name() string       { return config.MethodLegacyYield }
func (LegacyYield) Basis() model.Basis { return model.BasisYield }

// Reduce sums the event yields of a single site-year.
func (LegacyYield) Reduce(site model.Site, year int, events []model.StormEvent) model.AnnualSiteAggregate {
	agg := newAggregate(site, year, model.BasisYield)
	var sed, n, p q.KgPerHa
	for _, ev := range events {
		sed += ev.SedimentYield
		n += ev.NYield
		p += ev.PYield
		agg.Events++
	}
	agg.Valid = agg.Events > 0
	agg.Legacy = model.Yields{Sediment: q.Some(sed), TotalN: q.Some(n), TotalP: q.Some(p)}
	return agg
}

func newAggregate(site model.Site, year int, basis model.Basis) model.AnnualSiteAggregate {
	return model.AnnualSiteAggregate{
		StationID: site.StationID,
		State:     site.State,
		Year:      year,
		Basis:     basis,
		Area:      site.DrainageArea,
	}
}

// SiteResult counts the outcome of a site aggregation.
type SiteResult struct {
	StationYears int
	Omitted      int
	Events       int
}

type siteYear struct {
	station string
	year    int
}

// AggregateSites groups events by (station, year) and reduces each group
// with m. QC-invalid events are removed before reduction; a station-year
// with no valid event is omitted from the output.
func AggregateSites(m Method, sites map[string]model.Site, events []model.StormEvent) ([]model.AnnualSiteAggregate, SiteResult) {
	groups := make(map[siteYear][]model.StormEvent)
	for _, ev := range events {
		key := siteYear{ev.StationID, ev.Year}
		if !ev.Valid {
			if _, ok := groups[key]; !ok {
				groups[key] = nil
			}
			continue
		}
		groups[key] = append(groups[key], ev)
	}

	keys := make([]siteYear, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].station != keys[j].station {
			return keys[i].station < keys[j].station
		}
		return keys[i].year < keys[j].year
	})

	var res SiteResult
	var out []model.AnnualSiteAggregate
	for _, k := range keys {
		site, ok := sites[k.station]
		if !ok || len(groups[k]) == 0 {
			res.Omitted++
			continue
		}
		agg := m.Reduce(site, k.year, groups[k])
		res.Events += agg.Events
		out = append(out, agg)
	}
	res.StationYears = len(out)

	log.WithFields(log.Fields{
		"method":        m.Name(),
		"station_years": res.StationYears,
		"omitted":       res.Omitted,
	}).Info("aggregated site totals")
	return out, res
}

type scopeYear struct {
	scope model.Scope
	year  int
}

// AggregateRegions sums site masses into per-state and whole-region totals.
// Yields are never summed: the regional yield is derived from the summed
// masses and summed monitoring areas. Yield-basis aggregates are rejected.
func AggregateRegions(region string, siteAggs []model.AnnualSiteAggregate) ([]model.RegionalAggregate, error) {
	acc := make(map[scopeYear]*model.RegionalAggregate)
	var order []scopeYear

	add := func(key scopeYear, a model.AnnualSiteAggregate) {
		r, ok := acc[key]
		if !ok {
			r = &model.RegionalAggregate{Scope: key.scope, Year: key.year}
			acc[key] = r
			order = append(order, key)
		}
		r.Mass = r.Mass.Add(a.Mass)
		r.Area += a.Area
		r.Sites++
		r.Events += a.Events
	}

	for _, a := range siteAggs {
		if a.Basis != model.BasisMass {
			return nil, &model.BasisError{
				Stage:  stage,
				Reason: fmt.Sprintf("station %s year %d is %s-basis; multi-site totals need mass-basis aggregates", a.StationID, a.Year, a.Basis),
			}
		}
		if !a.Valid {
			continue
		}
		add(scopeYear{model.Scope{Level: model.ScopeState, Code: a.State}, a.Year}, a)
		add(scopeYear{model.Scope{Level: model.ScopeRegion, Code: region}, a.Year}, a)
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.scope.Level != b.scope.Level {
			return a.scope.Level == model.ScopeRegion
		}
		if a.scope.Code != b.scope.Code {
			return a.scope.Code < b.scope.Code
		}
		return a.year < b.year
	})

	out := make([]model.RegionalAggregate, 0, len(order))
	for _, k := range order {
		out = append(out, *acc[k])
	}
	return out, nil
}
