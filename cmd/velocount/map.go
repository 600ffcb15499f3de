package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/velocount/internal/render"
	"github.com/jgoulah/velocount/pkg/models"
)

var (
	mapMonth string
	mapJSON  bool
	mapDeck  bool
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Print the map rows for one month",
	Long: `Joins every counter location with its mean count for the month. Counters with
no data that month are listed separately.`,
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringVar(&mapMonth, "month", "", "Month to show (YYYY-MM)")
	mapCmd.Flags().BoolVar(&mapJSON, "json", false, "Print JSON instead of a table")
	mapCmd.Flags().BoolVar(&mapDeck, "deck", false, "Include the deck description in JSON output")
	mapCmd.MarkFlagRequired("month")
	rootCmd.AddCommand(mapCmd)
}

type mapOutput struct {
	Month   string          `json:"month"`
	Rows    []models.MapRow `json:"rows"`
	Missing []string        `json:"missing"`
	Deck    *render.Deck    `json:"deck,omitempty"`
}

func runMap(cmd *cobra.Command, args []string) error {
	m, err := models.ParseMonth(mapMonth)
	if err != nil {
		return err
	}

	ds, err := loadDataset(cmd)
	if err != nil {
		return err
	}

	rows := ds.MapRows(m.Year, m.Month)
	missing := ds.Missing(m.Year, m.Month)

	if mapJSON {
		out := mapOutput{Month: m.String(), Rows: rows, Missing: missing}
		if mapDeck {
			deck := render.NewDeck(rows)
			out.Deck = &deck
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(rows) == 0 {
		fmt.Printf("No data for %s\n", m)
		return nil
	}

	fmt.Printf("\nCounters for %s:\n", m)
	fmt.Println("------------------------------------------------------------------")
	fmt.Printf("%-34s  %9s  %10s  %8s\n", "Counter", "Latitude", "Longitude", "Mean")
	fmt.Println("------------------------------------------------------------------")
	for _, row := range rows {
		fmt.Printf("%-34s  %9.5f  %10.5f  %8s\n", row.Name, row.Latitude, row.Longitude, humanize.Comma(int64(math.Round(row.Counts))))
	}
	fmt.Println("------------------------------------------------------------------")
	fmt.Printf("%d counters\n", len(rows))

	if len(missing) > 0 {
		fmt.Printf("No data: %s\n", strings.Join(missing, ", "))
	}
	return nil
}
