package database

// Run describes one recorded pipeline run.
type Run struct {
	ID            string
	Region        string
	MassMethod    string
	NutrientBasis string
	ReferenceDose float64
	SiteYears     int
	ScopeYears    int
	Valuations    int
	RankedSites   int
	CreatedAt     *string
}

// Stats contains aggregate store statistics.
type Stats struct {
	Runs           int
	SiteAggregates int
	ScopeYears     int
	Valuations     int
	RankedSites    int
	LatestRun      string
}
