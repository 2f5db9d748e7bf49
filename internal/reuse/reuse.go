package reuse

import (
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

// Estimator converts regional sediment totals into farmland reuse areas for
// a fixed set of doses.
type Estimator struct {
	doses []q.TonnesPerHa
}

// NewEstimator returns an estimator for the given doses (t/ha), sorted
// ascending. Negative doses are rejected; a zero dose is kept and yields
// missing areas.
func NewEstimator(doses []float64) (*Estimator, error) {
	if len(doses) == 0 {
		return nil, fmt.Errorf("no doses configured")
	}
	out := make([]q.TonnesPerHa, 0, len(doses))
	seen := make(map[float64]bool)
	for _, d := range doses {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("invalid dose %g t/ha", d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, q.TonnesPerHa(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return &Estimator{doses: out}, nil
}

// Doses returns the configured doses.
func (e *Estimator) Doses() []q.TonnesPerHa {
	return append([]q.TonnesPerHa(nil), e.doses...)
}

// Result counts the rows produced and those with an undefined area.
type Result struct {
	Rows      int
	Undefined int
}

// Estimate emits one row per (scope, year, dose). Rows with no sediment or
// a zero dose carry a missing area.
func (e *Estimator) Estimate(aggs []model.RegionalAggregate) ([]model.ReuseEstimate, Result) {
	var res Result
	out := make([]model.ReuseEstimate, 0, len(aggs)*len(e.doses))
	for _, a := range aggs {
		for _, d := range e.doses {
			est := model.ReuseEstimate{
				Scope:    a.Scope,
				Year:     a.Year,
				Dose:     d,
				Sediment: a.Mass.Sediment,
				Area:     q.ReuseAreaFor(a.Mass.Sediment, d),
			}
			if !est.Area.Valid() {
				res.Undefined++
			}
			out = append(out, est)
		}
	}
	res.Rows = len(out)

	fields := log.Fields{"rows": res.Rows, "doses": len(e.doses)}
	if res.Undefined > 0 {
		fields["undefined"] = res.Undefined
		log.WithFields(fields).Warn("some reuse areas are undefined")
		return out, res
	}
	log.WithFields(fields).Info("estimated reuse areas")
	return out, res
}
