package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/velocount/pkg/models"
)

var listCounter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List monthly aggregates",
	Long:  `Displays the monthly mean count of every counter, or of one counter with --counter.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listCounter, "counter", "", "Only show this counter (aliases accepted)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(cmd)
	if err != nil {
		return err
	}

	var data []models.MonthlyAggregate
	if listCounter != "" {
		data = ds.Series(listCounter)
	} else {
		data = ds.SortedAggregates()
	}

	if len(data) == 0 {
		if listCounter != "" {
			fmt.Printf("No data found for %s\n", listCounter)
		} else {
			fmt.Println("No data found")
		}
		return nil
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("%-8s  %-34s  %8s  %7s\n", "Month", "Counter", "Mean", "Samples")
	fmt.Println("------------------------------------------------------------")

	var samples int
	for _, agg := range data {
		fmt.Printf("%-8s  %-34s  %8s  %7d\n", agg.Period(), agg.CounterName, humanize.Comma(int64(math.Round(agg.MeanCount))), agg.Samples)
		samples += agg.Samples
	}

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("%d aggregates from %s observations\n", len(data), humanize.Comma(int64(samples)))
	return nil
}
