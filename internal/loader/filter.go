package loader

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SediValue/internal/config"
	"github.com/TobiSchelling/SediValue/internal/model"
)

// FilterStats counts what the filter kept and dropped.
type FilterStats struct {
	SitesTotal     int
	SitesSelected  int
	EventsTotal    int
	EventsRetained int
	OutOfRegion    int
	InvalidQC      int
	UnknownStation int
	// EmptyStationYears counts in-scope station-years whose events all
	// failed QC. They never reach the aggregator.
	EmptyStationYears int
}

type stationYear struct {
	station string
	year    int
}

// Selection is the in-scope input handed to the mass aggregator.
type Selection struct {
	Sites  map[string]model.Site
	Events []model.StormEvent
	Stats  FilterStats
	// Unknown summarizes events whose station is not in the site table.
	// Nil when every event resolved.
	Unknown *model.ReferenceError
}

// Filter keeps sites whose state passes inScope and the QC-valid events
// of those sites.
func Filter(sites []model.Site, events []model.StormEvent, inScope func(state string) bool) (*Selection, error) {
	sel := &Selection{Sites: make(map[string]model.Site)}
	sel.Stats.SitesTotal = len(sites)
	sel.Stats.EventsTotal = len(events)

	known := make(map[string]bool, len(sites))
	for _, s := range sites {
		known[s.StationID] = true
		if inScope(s.State) {
			sel.Sites[s.StationID] = s
		}
	}
	sel.Stats.SitesSelected = len(sel.Sites)
	if len(sel.Sites) == 0 {
		return nil, &model.PreconditionError{Stage: stage, Reason: "no monitoring sites in the configured region"}
	}

	unknown := make(map[string]bool)
	seen := make(map[stationYear]bool)
	for _, ev := range events {
		if !known[ev.StationID] {
			sel.Stats.UnknownStation++
			unknown[ev.StationID] = true
			continue
		}
		if _, ok := sel.Sites[ev.StationID]; !ok {
			sel.Stats.OutOfRegion++
			continue
		}
		key := stationYear{ev.StationID, ev.Year}
		if !ev.Valid {
			sel.Stats.InvalidQC++
			if _, ok := seen[key]; !ok {
				seen[key] = false
			}
			continue
		}
		seen[key] = true
		sel.Events = append(sel.Events, ev)
	}
	sel.Stats.EventsRetained = len(sel.Events)
	for _, valid := range seen {
		if !valid {
			sel.Stats.EmptyStationYears++
		}
	}

	if sel.Stats.UnknownStation > 0 {
		ids := make([]string, 0, len(unknown))
		for id := range unknown {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		sel.Unknown = &model.ReferenceError{Dropped: sel.Stats.UnknownStation, Stations: ids}
		log.WithField("dropped", sel.Stats.UnknownStation).Warn(sel.Unknown.Error())
	}

	if len(sel.Events) == 0 {
		return nil, &model.PreconditionError{Stage: stage, Reason: "no QC-valid storm events for in-scope sites"}
	}

	log.WithFields(log.Fields{
		"sites":        sel.Stats.SitesSelected,
		"events":       sel.Stats.EventsRetained,
		"out_of_scope": sel.Stats.OutOfRegion,
		"invalid_qc":   sel.Stats.InvalidQC,
		"empty_years":  sel.Stats.EmptyStationYears,
	}).Info("filtered input")
	return sel, nil
}

// Load reads, parses and filters both input tables named in the config.
func Load(cfg *config.Config) (*Selection, error) {
	opt := OptionsFrom(cfg)

	siteTable, err := ReadTable(cfg.Input.Sites)
	if err != nil {
		return nil, fmt.Errorf("loading sites: %w", err)
	}
	sites, siteStats, err := ParseSites(siteTable, opt)
	if err != nil {
		return nil, err
	}
	if siteStats.Rejected > 0 || siteStats.Duplicates > 0 {
		log.WithFields(log.Fields{"rejected": siteStats.Rejected, "duplicates": siteStats.Duplicates}).
			Warn("site rows skipped")
	}

	eventTable, err := ReadTable(cfg.Input.Events)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	events, eventStats, err := ParseEvents(eventTable, opt)
	if err != nil {
		return nil, err
	}
	if eventStats.Rejected > 0 {
		log.WithField("rejected", eventStats.Rejected).Warn("event rows rejected")
	}

	return Filter(sites, events, cfg.InScope)
}
