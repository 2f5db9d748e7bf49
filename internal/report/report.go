// Package report renders the run summary for one scope at the reference dose
// as Markdown, HTML and PDF.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
	"github.com/TobiSchelling/SediValue/internal/valuation"
)

// Report is the summary of one scope at one dose.
type Report struct {
	RunID  string
	Scope  model.Scope
	Dose   q.TonnesPerHa
	Params valuation.Params
	Rows   []model.EconomicValuation
	Sites  []model.SiteEconomics
}

// Build selects the valuations for scope at dose, ordered by year.
func Build(runID string, scope model.Scope, dose q.TonnesPerHa, params valuation.Params, vals []model.EconomicValuation, sites []model.SiteEconomics) *Report {
	r := &Report{RunID: runID, Scope: scope, Dose: dose, Params: params, Sites: sites}
	for _, v := range vals {
		if v.Scope == scope && v.Dose == dose {
			r.Rows = append(r.Rows, v)
		}
	}
	sort.Slice(r.Rows, func(i, j int) bool { return r.Rows[i].Year < r.Rows[j].Year })
	return r
}

// Totals are multi-year figures over the rows with defined values.
type Totals struct {
	Years      int
	ValidYears int

	MeanReuseArea q.Opt[q.ReuseArea]
	MeanAppliedN  q.Opt[q.KgPerHa]
	MeanAppliedP  q.Opt[q.KgPerHa]
	MeanPercentN  q.Opt[q.Ratio]
	MeanPercentP  q.Opt[q.Ratio]

	SumLimiting  q.Opt[q.USD]
	SumSeparate  q.Opt[q.USD]
	MeanLimiting q.Opt[q.USD]
	MeanSeparate q.Opt[q.USD]
}

func column[T ~float64](rows []model.EconomicValuation, get func(model.EconomicValuation) q.Opt[T]) []float64 {
	opts := make([]q.Opt[T], len(rows))
	for i, r := range rows {
		opts[i] = get(r)
	}
	return q.Values(opts)
}

func mean[T ~float64](xs []float64) q.Opt[T] {
	if len(xs) == 0 {
		return q.None[T]()
	}
	return q.Some(T(stat.Mean(xs, nil)))
}

func sum[T ~float64](xs []float64) q.Opt[T] {
	if len(xs) == 0 {
		return q.None[T]()
	}
	return q.Some(T(floats.Sum(xs)))
}

// Totals summarizes the report rows. Missing values are left out of every
// sum and mean.
func (r *Report) Totals() Totals {
	t := Totals{Years: len(r.Rows)}
	for _, row := range r.Rows {
		if row.ReuseArea.Valid() {
			t.ValidYears++
		}
	}
	t.MeanReuseArea = mean[q.ReuseArea](column(r.Rows, func(v model.EconomicValuation) q.Opt[q.ReuseArea] { return v.ReuseArea }))
	t.MeanAppliedN = mean[q.KgPerHa](column(r.Rows, func(v model.EconomicValuation) q.Opt[q.KgPerHa] { return v.AppliedN }))
	t.MeanAppliedP = mean[q.KgPerHa](column(r.Rows, func(v model.EconomicValuation) q.Opt[q.KgPerHa] { return v.AppliedP }))
	t.MeanPercentN = mean[q.Ratio](column(r.Rows, func(v model.EconomicValuation) q.Opt[q.Ratio] { return v.PercentN }))
	t.MeanPercentP = mean[q.Ratio](column(r.Rows, func(v model.EconomicValuation) q.Opt[q.Ratio] { return v.PercentP }))

	limiting := column(r.Rows, func(v model.EconomicValuation) q.Opt[q.USD] { return v.LimitingTotal })
	separate := column(r.Rows, func(v model.EconomicValuation) q.Opt[q.USD] { return v.SeparateTotal })
	t.SumLimiting, t.MeanLimiting = sum[q.USD](limiting), mean[q.USD](limiting)
	t.SumSeparate, t.MeanSeparate = sum[q.USD](separate), mean[q.USD](separate)
	return t
}

const missing = "n/a"

// Money rounds to cents.
func Money(o q.Opt[q.USD]) string {
	v, ok := o.Get()
	if !ok {
		return missing
	}
	return "$" + decimal.NewFromFloat(float64(v)).StringFixed(2)
}

// Percent renders a [0, 1] share with one decimal.
func Percent(o q.Opt[q.Ratio]) string {
	v, ok := o.Get()
	if !ok {
		return missing
	}
	return decimal.NewFromFloat(float64(v)).Shift(2).StringFixed(1) + "%"
}

func number[T ~float64](o q.Opt[T], prec int) string {
	if s := o.Format(prec); s != "" {
		return s
	}
	return missing
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	p := r.Params
	t := r.Totals()

	fmt.Fprintf(&b, "# Sediment nutrient value: %s\n\n", r.Scope.Code)
	fmt.Fprintf(&b, "Run `%s`, %s scope, dose %s t/ha, %s nutrient basis.\n\n",
		r.RunID, r.Scope.Level, number(q.Some(r.Dose), 0), p.Basis)

	b.WriteString("## Parameters\n\n")
	b.WriteString("| Parameter | N | P |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| Crop demand (kg/ha) | %s | %s |\n", number(q.Some(p.DemandN), 0), number(q.Some(p.DemandP), 0))
	fmt.Fprintf(&b, "| Price (USD/kg) | %s | %s |\n", number(q.Some(p.PriceN), 2), number(q.Some(p.PriceP), 2))
	fmt.Fprintf(&b, "| Availability | %s | %s |\n", Percent(q.Some(p.AvailabilityN)), Percent(q.Some(p.AvailabilityP)))
	fmt.Fprintf(&b, "\nRecovery efficiency %s. Full-program cost %s/ha.\n\n",
		Percent(q.Some(p.Recovery)), Money(q.Some(p.CostPerHa())))

	b.WriteString("## Annual results\n\n")
	b.WriteString("| Year | Reuse area (ha) | Applied N | Applied P | Usable N | Usable P | N met | P met | Limiting | Separate |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, v := range r.Rows {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			v.Year, number(v.ReuseArea, 2),
			number(v.AppliedN, 2), number(v.AppliedP, 2),
			number(v.UsableN, 2), number(v.UsableP, 2),
			Percent(v.PercentN), Percent(v.PercentP),
			Money(v.LimitingTotal), Money(v.SeparateTotal))
	}

	b.WriteString("\n## Multi-year summary\n\n")
	fmt.Fprintf(&b, "%d of %d years have a defined reuse area.\n\n", t.ValidYears, t.Years)
	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Mean reuse area (ha) | %s |\n", number(t.MeanReuseArea, 2))
	fmt.Fprintf(&b, "| Mean applied N / P (kg/ha) | %s / %s |\n", number(t.MeanAppliedN, 2), number(t.MeanAppliedP, 2))
	fmt.Fprintf(&b, "| Mean share of N / P demand met | %s / %s |\n", Percent(t.MeanPercentN), Percent(t.MeanPercentP))
	fmt.Fprintf(&b, "| Limiting-nutrient value, total | %s |\n", Money(t.SumLimiting))
	fmt.Fprintf(&b, "| Separate pricing value, total | %s |\n", Money(t.SumSeparate))
	fmt.Fprintf(&b, "| Separate pricing value, mean per year | %s |\n", Money(t.MeanSeparate))

	if len(r.Sites) > 0 {
		b.WriteString("\n## Top sites\n\n")
		b.WriteString("| Rank | Station | State | Dose (t/ha) | Grade N (g/kg) | Grade P (g/kg) | Value/ha | Value/yr |\n")
		b.WriteString("|---:|---|---|---:|---:|---:|---:|---:|\n")
		for _, s := range r.Sites {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s | %s |\n",
				s.Rank, s.StationID, s.State, number(s.OptimizedDose, 1),
				number(s.GradeN, 2), number(s.GradeP, 3),
				Money(s.ValuePerHa), Money(s.ValueTotalPerYr))
		}
	}
	return b.String()
}

// Write renders the Markdown, HTML and PDF summaries into dir and returns
// the paths written.
func (r *Report) Write(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	text := r.Markdown()

	mdPath := filepath.Join(dir, "summary.md")
	if err := os.WriteFile(mdPath, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("writing markdown: %w", err)
	}

	doc, err := HTML(r.Scope.Code, text)
	if err != nil {
		return []string{mdPath}, err
	}
	htmlPath := filepath.Join(dir, "summary.html")
	if err := os.WriteFile(htmlPath, doc, 0o644); err != nil {
		return []string{mdPath}, fmt.Errorf("writing html: %w", err)
	}

	pdfPath := filepath.Join(dir, "summary.pdf")
	if err := r.WritePDF(pdfPath); err != nil {
		return []string{mdPath, htmlPath}, err
	}

	log.WithFields(log.Fields{"dir": dir, "years": len(r.Rows)}).Info("wrote report")
	return []string{mdPath, htmlPath, pdfPath}, nil
}
