package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var fetchRefresh bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the counter datasets and build monthly aggregates",
	Long: `Loads the locations and yearly counts CSVs through the configured cache and
reports what was built. With the sqlite cache the raw data is stored locally so
later commands skip the network.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "Drop cached data and download again")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	src, err := openDataSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	if fetchRefresh && src.invalidator != nil {
		if err := src.invalidator.Invalidate(); err != nil {
			return fmt.Errorf("invalidating cache: %w", err)
		}
		fmt.Println("✓ Cache cleared")
	}

	fmt.Printf("Loading %d count sources (cache: %s)...\n", len(cfg.GetCountsSources()), cfg.GetCache())
	ds, err := buildDataset(cmd.Context(), cfg, src)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Snapshot %s fetched at %s\n", ds.SnapshotID, ds.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("✓ %d locations, %d observations, %d monthly aggregates\n", len(ds.Locations), ds.Observations, len(ds.Aggregates))

	months := ds.Months()
	if len(months) > 0 {
		fmt.Printf("✓ %d months from %s to %s\n", len(months), months[0], months[len(months)-1])
	} else {
		fmt.Println("No count data found")
	}

	if unmatched := ds.Unmatched(); len(unmatched) > 0 {
		fmt.Printf("⚠ Locations without count data: %s\n", strings.Join(unmatched, ", "))
	}
	return nil
}
