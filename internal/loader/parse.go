package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SediValue/internal/config"
	"github.com/TobiSchelling/SediValue/internal/model"
	q "github.com/TobiSchelling/SediValue/internal/quantity"
)

const stage = "load"

// Options controls how raw tables are interpreted.
type Options struct {
	Columns     config.Columns
	Method      string
	LbPerAcre   float64
	AreaInAcres bool
}

// OptionsFrom builds loader options from the run configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Columns:     cfg.Columns,
		Method:      cfg.Mass.Method,
		LbPerAcre:   cfg.Mass.LbPerAcreToKgPerHa,
		AreaInAcres: strings.EqualFold(cfg.Input.SiteAreaUnit, "acres"),
	}
}

// ParseStats counts rows accepted and rejected while parsing.
type ParseStats struct {
	Rows       int
	Accepted   int
	Rejected   int
	Duplicates int
}

// ParseSites reads the site metadata table.
func ParseSites(t *Table, opt Options) ([]model.Site, ParseStats, error) {
	c := opt.Columns
	var st ParseStats
	if err := t.Require(stage, c.StationID, c.State, c.Area, c.SiteType); err != nil {
		return nil, st, err
	}

	seen := make(map[string]bool)
	var sites []model.Site
	for i := range t.Rows {
		st.Rows++
		id := t.Cell(i, c.StationID)
		if id == "" {
			st.Rejected++
			continue
		}
		if seen[id] {
			st.Duplicates++
			continue
		}
		area, err := parseNonNegative(t.Cell(i, c.Area), c.Area)
		if err != nil {
			log.WithFields(log.Fields{"table": t.Name, "row": i + 2, "station": id}).
				Debug("rejecting site with invalid drainage area")
			st.Rejected++
			continue
		}
		if opt.AreaInAcres {
			area *= q.AcresToHectares
		}
		seen[id] = true
		sites = append(sites, model.Site{
			StationID:    id,
			State:        strings.ToUpper(t.Cell(i, c.State)),
			DrainageArea: q.MonitoringArea(area),
			SiteType:     t.Cell(i, c.SiteType),
		})
		st.Accepted++
	}
	return sites, st, nil
}

// EventColumns lists the event columns required for a mass method.
func EventColumns(opt Options) []string {
	c := opt.Columns
	cols := []string{c.StationID, c.QCValid}
	if opt.Method == config.MethodLegacyYield {
		return append(cols, c.SedimentYield, c.NYield, c.PYield)
	}
	return append(cols, c.RunoffVolume, c.TotalN, c.TKN, c.Ammonia, c.TotalP, c.Orthophosphate, c.Sediment)
}

// ParseEvents reads the storm event table. Legacy yields are converted from
// lb/acre to kg/ha here and nowhere else.
func ParseEvents(t *Table, opt Options) ([]model.StormEvent, ParseStats, error) {
	c := opt.Columns
	var st ParseStats
	if err := t.Require(stage, EventColumns(opt)...); err != nil {
		return nil, st, err
	}
	if !t.Has(c.Year) && !t.Has(c.StormStart) {
		return nil, st, &model.SchemaError{Stage: stage, Table: t.Name, Missing: []string{c.Year + " or " + c.StormStart}}
	}

	legacy := opt.Method == config.MethodLegacyYield
	var events []model.StormEvent
	for i := range t.Rows {
		st.Rows++
		ev, err := parseEvent(t, i, opt, legacy)
		if err != nil {
			log.WithFields(log.Fields{"table": t.Name, "row": i + 2}).Debugf("rejecting event: %v", err)
			st.Rejected++
			continue
		}
		events = append(events, ev)
		st.Accepted++
	}
	return events, st, nil
}

func parseEvent(t *Table, i int, opt Options, legacy bool) (model.StormEvent, error) {
	c := opt.Columns
	ev := model.StormEvent{StationID: t.Cell(i, c.StationID)}
	if ev.StationID == "" {
		return ev, fmt.Errorf("empty station id")
	}

	year, err := eventYear(t, i, c)
	if err != nil {
		return ev, err
	}
	ev.Year = year

	valid, err := parseFlag(t.Cell(i, c.QCValid))
	if err != nil {
		return ev, err
	}
	ev.Valid = valid

	if legacy {
		fields := []struct {
			col  string
			dest *q.KgPerHa
		}{
			{c.SedimentYield, &ev.SedimentYield},
			{c.NYield, &ev.NYield},
			{c.PYield, &ev.PYield},
		}
		for _, f := range fields {
			v, err := parseNonNegative(t.Cell(i, f.col), f.col)
			if err != nil {
				return ev, err
			}
			*f.dest = q.KgPerHa(v * opt.LbPerAcre)
		}
		return ev, nil
	}

	fields := []struct {
		col  string
		dest *float64
	}{
		{c.RunoffVolume, &ev.VolumeL},
		{c.TotalN, &ev.TotalN},
		{c.TKN, &ev.TKN},
		{c.Ammonia, &ev.Ammonia},
		{c.TotalP, &ev.TotalP},
		{c.Orthophosphate, &ev.Orthophosphate},
		{c.Sediment, &ev.Sediment},
	}
	for _, f := range fields {
		v, err := parseNonNegative(t.Cell(i, f.col), f.col)
		if err != nil {
			return ev, err
		}
		*f.dest = v
	}
	return ev, nil
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006-01-02 15:04", "2006-01-02 15:04:05",
	"2006/01/02", "01/02/2006", "1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006",
}

func eventYear(t *Table, i int, c config.Columns) (int, error) {
	if t.Has(c.Year) {
		if raw := t.Cell(i, c.Year); raw != "" {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil || f != float64(int(f)) {
				return 0, fmt.Errorf("invalid year %q", raw)
			}
			return int(f), nil
		}
	}
	raw := t.Cell(i, c.StormStart)
	if raw == "" {
		return 0, fmt.Errorf("no year or storm start")
	}
	for _, l := range timeLayouts {
		if ts, err := time.Parse(l, raw); err == nil {
			return ts.Year(), nil
		}
	}
	return 0, fmt.Errorf("unparsable storm start %q", raw)
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "valid":
		return true, nil
	case "0", "false", "f", "no", "n", "invalid":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized QC flag %q", raw)
}

// parseNumber parses a numeric cell. Blank cells are zero.
func parseNumber(raw string) (float64, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" || strings.EqualFold(raw, "na") || strings.EqualFold(raw, "nan") {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseNonNegative(raw, col string) (float64, error) {
	v, err := parseNumber(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	if v < 0 || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: invalid value %g", col, v)
	}
	return v, nil
}
