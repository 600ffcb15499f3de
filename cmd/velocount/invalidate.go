package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop cached source data",
	Long:  `Removes the stored snapshot so the next command downloads the CSVs again.`,
	RunE:  runInvalidate,
}

func init() {
	rootCmd.AddCommand(invalidateCmd)
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	src, err := openDataSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	if src.invalidator == nil {
		fmt.Printf("Cache %q keeps nothing to drop\n", cfg.GetCache())
		return nil
	}

	if err := src.invalidator.Invalidate(); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	fmt.Println("✓ Cache cleared")
	return nil
}
