package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jthurman/smartfeed/internal/collect"
	"github.com/jthurman/smartfeed/internal/config"
	"github.com/jthurman/smartfeed/internal/database"
	"github.com/jthurman/smartfeed/internal/fetch"
	"github.com/jthurman/smartfeed/internal/interest"
	"github.com/jthurman/smartfeed/internal/scoring"
	"github.com/jthurman/smartfeed/internal/server"
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
	Use:     "smartfeed",
	Short:   "Engagement-driven feed curation",
	Long:    "Smartfeed scores feed items per viewer from engagement, recency, and learned interests, and serves ranked feed pages.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
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
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(interestsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("smartfeed", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/smartfeed/",
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
		fmt.Println("Edit it to configure feeds, scoring weights, and interest tracking.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
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

		fmt.Println("Items:")
		fmt.Printf("  Total: %d\n", stats.TotalItems)
		fmt.Println("\nEngagement:")
		fmt.Printf("  Records: %d\n", stats.EngagementRecords)
		fmt.Printf("  Viewers with interactions: %d\n", stats.EngagedViewers)
		fmt.Println("\nInterests:")
		fmt.Printf("  Entries: %d\n", stats.InterestEntries)
		fmt.Printf("  Viewers with interests: %d\n", stats.InterestViewers)
		return nil
	},
}

// --- import command ---

var daysBack int

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import items from configured RSS feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Importing items from feeds...")

		importer := collect.NewImporter(cfg, db, daysBack)
		result := importer.Import()

		fmt.Println("\nImport complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New items: %d\n", result.NewItems)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nItems by source:")
			// Sort sources by count descending
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func init() {
	importCmd.Flags().IntVar(&daysBack, "days-back", 7, "Lookback window for feed entries (days)")
}

// --- fetch command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch full content for items missing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fetcher := fetch.NewContentFetcher(db, 0)
		result := fetcher.FetchMissingContent()

		fmt.Printf("\nFetched: %d, failed: %d\n", result.Fetched, result.Failed)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		analyzer := interest.NewAnalyzer(db, cfg)
		analyzer.StartDecayTimer()
		defer analyzer.Stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, cfg, analyzer, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- decay command ---

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Run one interest decay sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		analyzer := interest.NewAnalyzer(db, cfg)
		result, err := analyzer.DecayInterests()
		if err != nil {
			return fmt.Errorf("running decay sweep: %w", err)
		}

		fmt.Printf("Scanned %d interests: %d decayed, %d deleted\n",
			result.Scanned, result.Decayed, result.Deleted)
		return nil
	},
}

// --- score command ---

var scoreCmd = &cobra.Command{
	Use:   "score [item-id] [viewer-id]",
	Short: "Show the score breakdown for an item and viewer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid item ID: %s", args[0])
		}
		viewerID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid viewer ID: %s", args[1])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		item, err := db.GetItem(itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("item %d not found", itemID)
		}

		// No cache: the point of this command is a fresh breakdown.
		engine := scoring.NewEngine(db, nil, cfg)
		b, err := engine.CalculateScoreAt(itemID, viewerID, time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("Item [%d] %s\n", itemID, item.Title)
		fmt.Printf("Viewer %d\n\n", viewerID)
		fmt.Printf("  Base score:      %.2f\n", b.BaseScore)
		fmt.Printf("  Time decay:      x%.4f\n", b.TimeDecay)
		fmt.Printf("  Interest boost:  +%.2f\n", b.InterestBoost)
		fmt.Printf("  Freshness bonus: +%.2f\n", b.FreshnessBonus)
		fmt.Printf("  Final:           %.2f\n", b.Final)
		return nil
	},
}

// --- interests command ---

var interestsCmd = &cobra.Command{
	Use:   "interests",
	Short: "Inspect and manage learned interests",
}

var interestsListCmd = &cobra.Command{
	Use:   "list [viewer-id]",
	Short: "List a viewer's learned interests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		viewerID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid viewer ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.GetInterests(viewerID)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Printf("No interests recorded for viewer %d\n", viewerID)
			return nil
		}

		fmt.Printf("Interests for viewer %d:\n\n", viewerID)
		for _, e := range entries {
			fmt.Printf("  %-24s weight %6.2f  seen %d times\n", e.Keyword, e.Weight, e.Occurrences)
		}
		return nil
	},
}

var interestsRemoveCmd = &cobra.Command{
	Use:   "remove [viewer-id]",
	Short: "Remove all learned interests for a viewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		viewerID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid viewer ID: %s", args[0])
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		removed, err := db.DeleteViewerInterests(viewerID)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d interests for viewer %d\n", removed, viewerID)
		return nil
	},
}

func init() {
	interestsCmd.AddCommand(interestsListCmd)
	interestsCmd.AddCommand(interestsRemoveCmd)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "smartfeed.db")
	return database.Open(dbPath)
}
