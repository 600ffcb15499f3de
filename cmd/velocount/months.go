package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "List the months covered by the count data",
	RunE:  runMonths,
}

func init() {
	rootCmd.AddCommand(monthsCmd)
}

func runMonths(cmd *cobra.Command, args []string) error {
	ds, err := loadDataset(cmd)
	if err != nil {
		return err
	}

	months := ds.Months()
	if len(months) == 0 {
		fmt.Println("No count data found")
		return nil
	}

	for _, m := range months {
		fmt.Printf("%s  %3d counters\n", m, len(ds.MapRows(m.Year, m.Month)))
	}
	return nil
}
