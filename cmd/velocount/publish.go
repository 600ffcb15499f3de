package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/velocount/internal/publisher"
	"github.com/jgoulah/velocount/pkg/models"
)

var (
	publishSink  string
	publishSince string
	publishUntil string
	publishAll   bool
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish monthly aggregates to MQTT, InfluxDB or Kafka",
	Long: `Builds the dataset and sends each monthly aggregate, with its counter location,
to the chosen sink. Aggregates already sent to that sink are skipped unless --all.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSink, "sink", "mqtt", "Sink to publish to (mqtt, influx or kafka)")
	publishCmd.Flags().StringVar(&publishSince, "since", "", "Only publish months from this one on (YYYY-MM)")
	publishCmd.Flags().StringVar(&publishUntil, "until", "", "Only publish months up to this one (YYYY-MM)")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all aggregates (ignore published state)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of aggregates to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Parse month filters if provided
	var since, until *models.Month
	if publishSince != "" {
		m, err := models.ParseMonth(publishSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		since = &m
	}
	if publishUntil != "" {
		m, err := models.ParseMonth(publishUntil)
		if err != nil {
			return fmt.Errorf("parsing --until: %w", err)
		}
		until = &m
	}

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open data source
	src, err := openDataSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	// Published state lives in the database whichever cache is in use
	db := src.db
	if db == nil {
		if db, err = openDB(cfg); err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
	}

	// Build dataset
	ds, err := buildDataset(cmd.Context(), cfg, src)
	if err != nil {
		return err
	}

	// Create publisher
	sink, err := publisher.New(cmd.Context(), publishSink, cfg)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer sink.Close()

	// Get aggregates to publish, skipping ones already sent unless --all
	records := publisher.Records(ds, since, until)
	if !publishAll {
		pending := records[:0]
		for _, r := range records {
			published, err := db.IsPublished(sink.Name(), r.Aggregate.Key())
			if err != nil {
				return err
			}
			if !published {
				pending = append(pending, r)
			}
		}
		records = pending
	}

	// Check if there's data to publish
	if len(records) == 0 {
		if publishAll {
			fmt.Println("No aggregates in range")
		} else {
			fmt.Printf("No unpublished aggregates for %s\n", sink.Name())
		}
		return nil
	}

	// Apply limit if specified
	if publishLimit > 0 && len(records) > publishLimit {
		records = records[:publishLimit]
		fmt.Printf("Limiting to %d aggregates (--limit flag)\n", publishLimit)
	}

	fmt.Printf("Publishing %d aggregates to %s...\n", len(records), sink.Name())
	// Publish each aggregate
	published := 0
	for i, r := range records {
		agg := r.Aggregate
		fmt.Printf("[%d/%d] Publishing %s %s (%s)... ", i+1, len(records), agg.Period(), agg.CounterName, humanize.Commaf(agg.MeanCount))
		if err := sink.Publish(cmd.Context(), []publisher.Record{r}); err != nil {
			fmt.Printf("FAILED: %v\n", err)
			continue
		}

		// Mark aggregate as published in database
		if err := db.MarkPublished(sink.Name(), agg.Key()); err != nil {
			fmt.Printf("✓ (warning: failed to mark as published: %v)\n", err)
		} else {
			fmt.Printf("✓\n")
		}
		published++
	}

	fmt.Printf("\nSuccessfully published %d/%d aggregates to %s\n", published, len(records), sink.Name())
	return nil
}
