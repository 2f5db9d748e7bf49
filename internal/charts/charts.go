// Package charts draws the per-year trend charts of a run as PNG files.
// Years without a defined value are left as gaps in the lines.
package charts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
	"github.com/TobiSchelling/SediValue/internal/report"
)

// Chart file names.
const (
	CostReduction = "cost_reduction.png"
	DemandShare   = "demand_share.png"
	Applied       = "applied_nutrients.png"
	Grade         = "sediment_grade.png"
	TopSites      = "top_sites.png"
	SedimentYield = "sediment_yield.png"
	NYield        = "n_yield.png"
	PYield        = "p_yield.png"
)

const (
	width  = 8 * vg.Inch
	height = 4 * vg.Inch
)

// plotted is a chart-space value; units live in the axis label.
type plotted float64

// series is one named line over years.
type series struct {
	name string
	ys   []q.Opt[plotted]
}

// segments splits a series at missing values so each run of defined years
// becomes its own polyline.
func segments(years []int, ys []q.Opt[plotted]) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, y := range ys {
		v, ok := y.Get()
		if !ok {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(years[i]), Y: float64(v)})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func scaled[T ~float64](opts []q.Opt[T], scale float64) []q.Opt[plotted] {
	out := make([]q.Opt[plotted], len(opts))
	for i, o := range opts {
		out[i] = q.Map(o, func(v T) plotted { return plotted(float64(v) * scale) })
	}
	return out
}

func yearTicks(years []int) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, len(years))
	for i, y := range years {
		ticks[i] = plot.Tick{Value: float64(y), Label: strconv.Itoa(y)}
	}
	return ticks
}

func newPlot(title, ylabel string, years []int) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = yearTicks(years)
	p.Y.Min = 0
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	return p
}

// addSeries draws every series with its own color and returns false when no
// series has a single defined point.
func addSeries(p *plot.Plot, years []int, ss []series) (bool, error) {
	drawn := false
	for i, s := range ss {
		segs := segments(years, s.ys)
		if len(segs) == 0 {
			continue
		}
		drawn = true
		color := plotutil.Color(i)
		for j, seg := range segs {
			line, points, err := plotter.NewLinePoints(seg)
			if err != nil {
				return false, fmt.Errorf("%s: %w", s.name, err)
			}
			line.Color = color
			points.Color = color
			points.Shape = draw.CircleGlyph{}
			p.Add(line, points)
			if j == 0 {
				p.Legend.Add(s.name, line, points)
			}
		}
	}
	return drawn, nil
}

func refLine(p *plot.Plot, name string, value float64, i int) {
	fn := plotter.NewFunction(func(float64) float64 { return value })
	fn.Color = plotutil.Color(i)
	fn.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(fn)
	p.Legend.Add(name, fn)
}

// Input is what the charts draw from.
type Input struct {
	Report *report.Report
	Totals []model.RegionalAggregate
}

func (in Input) years() []int {
	years := make([]int, len(in.Report.Rows))
	for i, r := range in.Report.Rows {
		years[i] = r.Year
	}
	return years
}

func pick[T ~float64](rows []model.EconomicValuation, get func(model.EconomicValuation) q.Opt[T]) []q.Opt[T] {
	out := make([]q.Opt[T], len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}
	return out
}

// Write draws every chart into dir and returns the paths written. Charts
// with nothing to draw are skipped.
func Write(dir string, in Input) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chart dir: %w", err)
	}

	builders := []struct {
		file  string
		build func(Input) (*plot.Plot, bool, error)
	}{
		{CostReduction, costReduction},
		{DemandShare, demandShare},
		{Applied, applied},
		{Grade, grade},
		{TopSites, topSites},
		{SedimentYield, stateYield("Sediment yield by state", func(y model.Yields) q.Opt[q.KgPerHa] { return y.Sediment })},
		{NYield, stateYield("Total N yield by state", func(y model.Yields) q.Opt[q.KgPerHa] { return y.TotalN })},
		{PYield, stateYield("Total P yield by state", func(y model.Yields) q.Opt[q.KgPerHa] { return y.TotalP })},
	}

	var paths []string
	for _, b := range builders {
		p, ok, err := b.build(in)
		if err != nil {
			return paths, fmt.Errorf("chart %s: %w", b.file, err)
		}
		if !ok {
			log.WithField("chart", b.file).Debug("nothing to draw, skipping")
			continue
		}
		path := filepath.Join(dir, b.file)
		if err := p.Save(width, height, path); err != nil {
			return paths, fmt.Errorf("saving %s: %w", b.file, err)
		}
		paths = append(paths, path)
	}
	log.WithFields(log.Fields{"dir": dir, "charts": len(paths)}).Info("wrote charts")
	return paths, nil
}

func costReduction(in Input) (*plot.Plot, bool, error) {
	rows, years := in.Report.Rows, in.years()
	p := newPlot(fmt.Sprintf("Fertilizer cost reduction, %s", in.Report.Scope.Code), "USD per year", years)
	ok, err := addSeries(p, years, []series{
		{"Limiting nutrient", scaled(pick(rows, func(v model.EconomicValuation) q.Opt[q.USD] { return v.LimitingTotal }), 1)},
		{"Separate pricing", scaled(pick(rows, func(v model.EconomicValuation) q.Opt[q.USD] { return v.SeparateTotal }), 1)},
	})
	return p, ok, err
}

func demandShare(in Input) (*plot.Plot, bool, error) {
	rows, years := in.Report.Rows, in.years()
	p := newPlot("Share of crop demand replaced", "Percent", years)
	p.Y.Max = 100
	ok, err := addSeries(p, years, []series{
		{"N", scaled(pick(rows, func(v model.EconomicValuation) q.Opt[q.Ratio] { return v.PercentN }), 100)},
		{"P", scaled(pick(rows, func(v model.EconomicValuation) q.Opt[q.Ratio] { return v.PercentP }), 100)},
		{"Limiting", scaled(pick(rows, func(v model.EconomicValuation) q.Opt[q.Ratio] { return v.Bottleneck }), 100)},
	})
	return p, ok, err
}

func applied(in Input) (*plot.Plot, bool, error) {
	rows, years := in.Report.Rows, in.years()
	p := newPlot(fmt.Sprintf("Applied nutrients at %s t/ha", q.Some(in.Report.Dose).Format(0)), "kg/ha", years)
	ok, err := addSeries(p, years, []series{
		{"Applied N", scaled(pick(rows, func(v model.EconomicValuation) q.Opt[q.KgPerHa] { return v.AppliedN }), 1)},
		{"Applied P", scaled(pick(rows, func(v model.EconomicValuation) q.Opt[q.KgPerHa] { return v.AppliedP }), 1)},
	})
	if !ok || err != nil {
		return p, ok, err
	}
	refLine(p, "N demand", float64(in.Report.Params.DemandN), 0)
	refLine(p, "P demand", float64(in.Report.Params.DemandP), 1)
	return p, true, nil
}

// grade draws particulate grams per kilogram of sediment for the report
// scope, from the scope totals.
func grade(in Input) (*plot.Plot, bool, error) {
	var aggs []model.RegionalAggregate
	for _, a := range in.Totals {
		if a.Scope == in.Report.Scope {
			aggs = append(aggs, a)
		}
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Year < aggs[j].Year })

	years := make([]int, len(aggs))
	gn := make([]q.Opt[q.Ratio], len(aggs))
	gp := make([]q.Opt[q.Ratio], len(aggs))
	for i, a := range aggs {
		years[i] = a.Year
		gn[i] = q.Grade(a.Mass.ParticulateN, a.Mass.Sediment)
		gp[i] = q.Grade(a.Mass.ParticulateP, a.Mass.Sediment)
	}

	p := newPlot("Sediment grade", "g per kg sediment", years)
	ok, err := addSeries(p, years, []series{
		{"Particulate N", scaled(gn, 1)},
		{"Particulate P", scaled(gp, 1)},
	})
	return p, ok, err
}

// stateSeries builds one yield line per state over every year any state
// reports. Each yield is the state's summed mass over its summed
// monitoring area for that year.
func stateSeries(totals []model.RegionalAggregate, get func(model.Yields) q.Opt[q.KgPerHa]) ([]int, []series) {
	byState := make(map[string]map[int]model.RegionalAggregate)
	seen := make(map[int]bool)
	for _, a := range totals {
		if a.Scope.Level != model.ScopeState {
			continue
		}
		if byState[a.Scope.Code] == nil {
			byState[a.Scope.Code] = make(map[int]model.RegionalAggregate)
		}
		byState[a.Scope.Code][a.Year] = a
		seen[a.Year] = true
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	states := make([]string, 0, len(byState))
	for s := range byState {
		states = append(states, s)
	}
	sort.Strings(states)

	ss := make([]series, len(states))
	for i, state := range states {
		ys := make([]q.Opt[q.KgPerHa], len(years))
		for j, y := range years {
			if a, ok := byState[state][y]; ok {
				ys[j] = get(a.Yields())
			}
		}
		ss[i] = series{state, scaled(ys, 1)}
	}
	return years, ss
}

func stateYield(title string, get func(model.Yields) q.Opt[q.KgPerHa]) func(Input) (*plot.Plot, bool, error) {
	return func(in Input) (*plot.Plot, bool, error) {
		years, ss := stateSeries(in.Totals, get)
		if len(ss) == 0 {
			return nil, false, nil
		}
		p := newPlot(title, "kg/ha", years)
		ok, err := addSeries(p, years, ss)
		return p, ok, err
	}
}

// topSites stacks N and P value per hectare for the ranked sites.
func topSites(in Input) (*plot.Plot, bool, error) {
	sites := in.Report.Sites
	if len(sites) == 0 {
		return nil, false, nil
	}
	vn := make(plotter.Values, len(sites))
	vp := make(plotter.Values, len(sites))
	names := make([]string, len(sites))
	for i, s := range sites {
		vn[i] = float64(s.ValueNPerHa.Or(0))
		vp[i] = float64(s.ValuePPerHa.Or(0))
		names[i] = s.StationID
	}

	p := plot.New()
	p.Title.Text = "Top sites by value per hectare"
	p.Y.Label.Text = "USD/ha"
	p.Legend.Top = true

	w := vg.Points(14)
	barN, err := plotter.NewBarChart(vn, w)
	if err != nil {
		return nil, false, err
	}
	barN.Color = plotutil.Color(0)
	barN.LineStyle.Width = 0
	barP, err := plotter.NewBarChart(vp, w)
	if err != nil {
		return nil, false, err
	}
	barP.Color = plotutil.Color(1)
	barP.LineStyle.Width = 0
	barP.StackOn(barN)

	p.Add(barN, barP)
	p.Legend.Add("N", barN)
	p.Legend.Add("P", barP)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = draw.XRight
	return p, true, nil
}
