package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/SediValue/internal/config"
	"github.com/TobiSchelling/SediValue/internal/database"
	"github.com/TobiSchelling/SediValue/internal/loader"
	"github.com/TobiSchelling/SediValue/internal/logging"
	"github.com/TobiSchelling/SediValue/internal/model"
	"github.com/TobiSchelling/SediValue/internal/pipeline"
	"github.com/TobiSchelling/SediValue/internal/report"
	"github.com/TobiSchelling/SediValue/internal/sitescore"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "sedivalue",
	Short:   "Fertilizer value of recovered sediment",
	Long:    "sedivalue turns edge-of-field storm event loads into nutrient masses, reuse areas and fertilizer cost savings.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Setup("info", verbose); err != nil {
			return err
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return logging.Setup(cfg.Logging.Level, verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(runsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sedivalue", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/sedivalue/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your site and storm event tables.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show result store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Store: %s\n\n", db.Path())
		fmt.Println("Runs:")
		fmt.Printf("  Recorded: %d\n", stats.Runs)
		if stats.LatestRun != "" {
			fmt.Printf("  Latest: %s\n", stats.LatestRun)
		}
		fmt.Println("\nRows:")
		fmt.Printf("  Station-years: %d\n", stats.SiteAggregates)
		fmt.Printf("  Scope-years: %d\n", stats.ScopeYears)
		fmt.Printf("  Valuations: %d\n", stats.Valuations)
		fmt.Printf("  Ranked sites: %d\n", stats.RankedSites)
		return nil
	},
}

// --- run command ---

var (
	dryRun       bool
	methodFlag   string
	doseOverride float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: load -> aggregate -> estimate -> value -> sites -> write -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if methodFlag != "" {
			cfg.Mass.Method = methodFlag
		}
		if cmd.Flags().Changed("dose") {
			applyDose(cfg, doseOverride)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var db *database.DB
		if cfg.WantsFormat(config.FormatSQLite) {
			var err error
			if db, err = openDB(); err != nil {
				return err
			}
			defer db.Close()
		}

		pipe := pipeline.New(cfg, db)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(ctx)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}
		if err := result.Err(); err != nil {
			return err
		}

		if !dryRun {
			fmt.Printf("\nRun %s complete. %d file(s) in %s\n", result.RunID, len(result.Files), cfg.Output.Dir)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().StringVar(&methodFlag, "method", "", "Mass method: concentration or legacy_yield")
	runCmd.Flags().Float64Var(&doseOverride, "dose", 0, "Reference dose in t/ha (added to the dose set)")
}

// applyDose makes d the reference dose and adds it to the dose set.
func applyDose(c *config.Config, d float64) {
	c.Reuse.ReferenceDose = d
	for _, have := range c.Reuse.Doses {
		if have == d {
			return
		}
	}
	c.Reuse.Doses = append(c.Reuse.Doses, d)
}

// --- sites command ---

var (
	sitesTop int
	sitesRun string
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Rank monitoring sites by fertilizer value per hectare",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		top := cfg.SiteAnalysis.Top
		if cmd.Flags().Changed("top") {
			top = sitesTop
		}

		var rows []model.SiteEconomics
		if sitesRun != "" {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			id := sitesRun
			if id == "latest" {
				if id, err = db.GetLatestRunID(); err != nil {
					return err
				}
				if id == "" {
					return fmt.Errorf("no runs recorded in %s", db.Path())
				}
			}
			if rows, err = db.GetSiteEconomics(id, top); err != nil {
				return fmt.Errorf("reading run %s: %w", id, err)
			}
			fmt.Printf("Run %s\n\n", id)
		} else {
			sel, err := loader.Load(cfg)
			if err != nil {
				return err
			}
			ranked, _ := sitescore.Rank(sel.Sites, sel.Events, sitescore.OptionsFrom(cfg))
			rows = sitescore.Top(ranked, top)
		}

		if len(rows) == 0 {
			fmt.Println("No sites above the sediment threshold.")
			return nil
		}
		fmt.Printf("%-4s  %-16s %-5s %9s %9s %12s %14s\n", "Rank", "Station", "State", "Dose t/ha", "Area ha", "USD/ha", "USD/yr")
		for _, s := range rows {
			fmt.Printf("%-4d  %-16s %-5s %9s %9s %12s %14s\n",
				s.Rank, s.StationID, s.State,
				orDash(s.OptimizedDose.Format(1)), orDash(s.ReuseArea.Format(2)),
				report.Money(s.ValuePerHa), report.Money(s.ValueTotalPerYr))
		}
		return nil
	},
}

func init() {
	sitesCmd.Flags().IntVarP(&sitesTop, "top", "n", 15, "Number of sites to show (0 for all)")
	sitesCmd.Flags().StringVar(&sitesRun, "run", "", "Read the ranking of a stored run ID (or 'latest') instead of the input tables")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// --- runs command ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded. Run 'sedivalue run' with the sqlite format enabled.")
			return nil
		}

		for _, r := range runs {
			created := ""
			if r.CreatedAt != nil {
				created = *r.CreatedAt
			}
			fmt.Printf("%s  %s\n", r.ID, created)
			fmt.Printf("    %s, %s method, %s basis, reference %g t/ha\n", r.Region, r.MassMethod, r.NutrientBasis, r.ReferenceDose)
			fmt.Printf("    %d station-years, %d scope-years, %d valuations, %d ranked sites\n",
				r.SiteYears, r.ScopeYears, r.Valuations, r.RankedSites)
		}
		return nil
	},
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DatabasePath())
}
