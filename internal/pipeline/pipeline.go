package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/SediValue/internal/charts"
	"github.com/TobiSchelling/SediValue/internal/config"
	"github.com/TobiSchelling/SediValue/internal/database"
	"github.com/TobiSchelling/SediValue/internal/loader"
	"github.com/TobiSchelling/SediValue/internal/mass"
	"github.com/TobiSchelling/SediValue/internal/model"
	"github.com/TobiSchelling/SediValue/internal/output"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
	"github.com/TobiSchelling/SediValue/internal/report"
	"github.com/TobiSchelling/SediValue/internal/reuse"
	"github.com/TobiSchelling/SediValue/internal/sitescore"
	"github.com/TobiSchelling/SediValue/internal/valuation"
)

const totalSteps = 7

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	RunID   string
	Steps   []StepResult
	Results model.Results
	Files   []string
}

// Err returns the first failed step's error.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", s.Name, s.Err)
		}
	}
	return nil
}

// Pipeline runs the accounting and valuation steps over one configuration.
type Pipeline struct {
	cfg *config.Config
	db  *database.DB

	sel     *loader.Selection
	method  mass.Method
	scopes  []model.RegionalAggregate
	params  valuation.Params
	results model.Results
}

// New creates a pipeline. db may be nil when the sqlite format is off.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{cfg: cfg, db: db}
}

// RunID derives a name-based UUID from the input files and configuration,
// so identical inputs always produce the same ID.
func RunID(cfg *config.Config) (string, error) {
	var data []byte
	for _, path := range []string{cfg.Input.Sites, cfg.Input.Events} {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("hashing input: %w", err)
		}
		data = append(data, b...)
	}
	c, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("hashing config: %w", err)
	}
	data = append(data, c...)
	return uuid.NewSHA1(uuid.NameSpaceOID, data).String(), nil
}

func banner(n int, what string) {
	log.Infof("Step %d/%d: %s...", n, totalSteps, what)
}

// Run executes every step in order. A failed step stops the run; ctx is
// checked between steps.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}

	steps := []func() StepResult{
		func() StepResult { return p.runLoad(r) },
		p.runAggregate,
		p.runEstimate,
		p.runValue,
		p.runSites,
		func() StepResult { return p.runWrite(r) },
		func() StepResult { return p.runReport(r) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			r.Steps = append(r.Steps, StepResult{Name: "Cancelled", Err: err})
			break
		}
		res := step()
		r.Steps = append(r.Steps, res)
		if res.Err != nil {
			break
		}
	}
	r.Results = p.results
	return r
}

// DryRun loads and filters the input and reports what a run would do.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	sel, err := loader.Load(p.cfg)
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Load", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Load",
		Summary: fmt.Sprintf("[dry-run] %d sites and %d QC-valid events in %s",
			sel.Stats.SitesSelected, sel.Stats.EventsRetained, p.cfg.Region.Name),
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("[dry-run] Would aggregate with the %s method", p.cfg.Mass.Method),
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Estimate",
		Summary: fmt.Sprintf("[dry-run] Would estimate reuse area at %d dose(s)", len(p.cfg.Reuse.Doses)),
	})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Value",
		Summary: fmt.Sprintf("[dry-run] Would value %s nutrients with both pricing methods", p.cfg.Valuation.NutrientBasis),
	})
	sites := "[dry-run] Site ranking disabled"
	if p.cfg.SiteAnalysis.Enabled {
		sites = fmt.Sprintf("[dry-run] Would rank up to %d sites", sel.Stats.SitesSelected)
	}
	r.Steps = append(r.Steps, StepResult{Name: "Sites", Summary: sites})
	r.Steps = append(r.Steps, StepResult{
		Name:    "Write",
		Summary: fmt.Sprintf("[dry-run] Would write %v to %s", p.cfg.Output.Formats, p.cfg.Output.Dir),
	})

	id, err := RunID(p.cfg)
	if err == nil {
		r.RunID = id
	}
	if p.db != nil && id != "" {
		if prev, _ := p.db.GetRun(id); prev != nil {
			r.Steps = append(r.Steps, StepResult{
				Name:    "Report",
				Summary: fmt.Sprintf("[dry-run] Run %s is already stored and would be replaced", id),
			})
			return r
		}
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("[dry-run] Would report %s at %g t/ha", p.cfg.Region.Name, p.cfg.Reuse.ReferenceDose),
	})
	return r
}

func (p *Pipeline) runLoad(r *Result) StepResult {
	banner(1, "Loading input tables")
	id, err := RunID(p.cfg)
	if err != nil {
		return StepResult{Name: "Load", Err: err}
	}
	r.RunID = id

	sel, err := loader.Load(p.cfg)
	if err != nil {
		return StepResult{Name: "Load", Err: err}
	}
	p.sel = sel
	summary := fmt.Sprintf("Loaded %d sites and %d QC-valid events (%d out of region, %d failed QC)",
		sel.Stats.SitesSelected, sel.Stats.EventsRetained, sel.Stats.OutOfRegion, sel.Stats.InvalidQC)
	if sel.Unknown != nil {
		summary += fmt.Sprintf(", %d referencing unknown stations", sel.Unknown.Dropped)
	}
	return StepResult{Name: "Load", Summary: summary}
}

func (p *Pipeline) runAggregate() StepResult {
	banner(2, "Aggregating station-years")
	m, err := mass.MethodFor(p.cfg.Mass.Method)
	if err != nil {
		return StepResult{Name: "Aggregate", Err: err}
	}
	p.method = m

	siteAggs, res := mass.AggregateSites(m, p.sel.Sites, p.sel.Events)
	p.results.SiteTotals = siteAggs
	// station-years with only QC-invalid events were dropped by the loader
	res.Omitted += p.sel.Stats.EmptyStationYears
	if res.Omitted > 0 {
		log.WithField("omitted", res.Omitted).Warn("station-years without a QC-valid event omitted")
	}
	if m.Basis() != model.BasisMass {
		log.WithField("method", m.Name()).Warn("yield-basis aggregates stay per site; multi-site totals skipped")
		return StepResult{
			Name:    "Aggregate",
			Summary: fmt.Sprintf("Aggregated %d station-years on a yield basis (%d omitted)", res.StationYears, res.Omitted),
		}
	}

	scopes, err := mass.AggregateRegions(p.cfg.Region.Name, siteAggs)
	if err != nil {
		return StepResult{Name: "Aggregate", Err: err}
	}
	p.scopes = scopes
	p.results.ScopeTotals = scopes
	return StepResult{
		Name: "Aggregate",
		Summary: fmt.Sprintf("Aggregated %d station-years (%d omitted) into %d scope-years",
			res.StationYears, res.Omitted, len(scopes)),
	}
}

func (p *Pipeline) massBasis() bool {
	return p.method != nil && p.method.Basis() == model.BasisMass
}

func (p *Pipeline) runEstimate() StepResult {
	banner(3, "Estimating reuse area")
	if !p.massBasis() {
		return StepResult{Name: "Estimate", Summary: "Skipped: reuse area needs mass-basis totals"}
	}
	est, err := reuse.NewEstimator(p.cfg.Reuse.Doses)
	if err != nil {
		return StepResult{Name: "Estimate", Err: err}
	}
	rows, res := est.Estimate(p.scopes)
	p.results.Reuse = rows
	return StepResult{
		Name:    "Estimate",
		Summary: fmt.Sprintf("Estimated %d rows over %d doses, %d undefined", res.Rows, len(est.Doses()), res.Undefined),
	}
}

func (p *Pipeline) runValue() StepResult {
	banner(4, "Valuing recovered nutrients")
	if !p.massBasis() {
		return StepResult{Name: "Value", Summary: "Skipped: valuation needs mass-basis totals"}
	}
	p.params = valuation.ParamsFrom(p.cfg)
	v, err := valuation.New(p.params)
	if err != nil {
		return StepResult{Name: "Value", Err: err}
	}
	rows, res, err := v.ValueAll(p.scopes, p.results.Reuse)
	if err != nil {
		return StepResult{Name: "Value", Err: err}
	}
	p.results.Valuations = rows
	return StepResult{
		Name:    "Value",
		Summary: fmt.Sprintf("Valued %d rows, %d undefined", res.Rows, res.Undefined),
	}
}

func (p *Pipeline) runSites() StepResult {
	banner(5, "Ranking sites")
	if !p.cfg.SiteAnalysis.Enabled {
		return StepResult{Name: "Sites", Summary: "Skipped: site analysis disabled"}
	}
	if !p.massBasis() {
		return StepResult{Name: "Sites", Summary: "Skipped: site ranking needs event concentrations"}
	}
	rows, res := sitescore.Rank(p.sel.Sites, p.sel.Events, sitescore.OptionsFrom(p.cfg))
	p.results.Sites = rows
	return StepResult{
		Name: "Sites",
		Summary: fmt.Sprintf("Ranked %d of %d stations (%d below threshold, %d without a dose)",
			res.Ranked, res.Stations, res.BelowThreshold, res.Undosed),
	}
}

func (p *Pipeline) runWrite(r *Result) StepResult {
	banner(6, "Writing results")
	tables := output.Tables(p.results)

	var writers []output.Writer
	if p.cfg.WantsFormat(config.FormatCSV) {
		writers = append(writers, output.CSVWriter{Dir: p.cfg.Output.Dir})
	}
	if p.cfg.WantsFormat(config.FormatXLSX) {
		writers = append(writers, output.XLSXWriter{Path: p.cfg.WorkbookPath()})
	}
	for _, w := range writers {
		files, err := w.Write(tables)
		r.Files = append(r.Files, files...)
		if err != nil {
			return StepResult{Name: "Write", Err: err}
		}
	}

	stored := ""
	if p.cfg.WantsFormat(config.FormatSQLite) {
		if p.db == nil {
			return StepResult{Name: "Write", Err: errors.New("sqlite output requested without a database")}
		}
		run := database.Run{
			ID:            r.RunID,
			Region:        p.cfg.Region.Name,
			MassMethod:    p.cfg.Mass.Method,
			NutrientBasis: p.cfg.Valuation.NutrientBasis,
			ReferenceDose: p.cfg.Reuse.ReferenceDose,
		}
		if err := p.db.SaveRun(run, p.results); err != nil {
			return StepResult{Name: "Write", Err: fmt.Errorf("saving run: %w", err)}
		}
		stored = fmt.Sprintf(", stored run %s", r.RunID)
	}
	return StepResult{
		Name:    "Write",
		Summary: fmt.Sprintf("Wrote %d tables to %d file(s)%s", len(tables), len(r.Files), stored),
	}
}

func (p *Pipeline) runReport(r *Result) StepResult {
	banner(7, "Rendering report")
	out := p.cfg.Output
	if !out.Report && !out.Plots {
		return StepResult{Name: "Report", Summary: "Skipped: report and plots disabled"}
	}
	if !p.massBasis() {
		return StepResult{Name: "Report", Summary: "Skipped: nothing valued on a yield basis"}
	}

	region := model.Scope{Level: model.ScopeRegion, Code: p.cfg.Region.Name}
	top := sitescore.Top(p.results.Sites, p.cfg.SiteAnalysis.Top)
	rep := report.Build(r.RunID, region, q.TonnesPerHa(p.cfg.Reuse.ReferenceDose), p.params, p.results.Valuations, top)
	if len(rep.Rows) == 0 {
		log.WithField("dose", p.cfg.Reuse.ReferenceDose).Warn("reference dose is not in the dose set")
	}

	var written int
	if out.Report {
		files, err := rep.Write(out.Dir)
		r.Files = append(r.Files, files...)
		written += len(files)
		if err != nil {
			return StepResult{Name: "Report", Err: err}
		}
	}
	if out.Plots {
		files, err := charts.Write(filepath.Join(out.Dir, "charts"), charts.Input{Report: rep, Totals: p.results.ScopeTotals})
		r.Files = append(r.Files, files...)
		written += len(files)
		if err != nil {
			return StepResult{Name: "Report", Err: err}
		}
	}

	t := rep.Totals()
	return StepResult{
		Name: "Report",
		Summary: fmt.Sprintf("Wrote %d file(s); %d of %d years valued, separate pricing total %s",
			written, t.ValidYears, t.Years, report.Money(t.SumSeparate)),
	}
}
