package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/velocount/internal/dashboard"
	"github.com/jgoulah/velocount/internal/dataset"
)

var (
	serveListen    string
	serveAnimation string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the map dashboard",
	Long: `Builds the dataset once, then serves the JSON API, the animation websocket and
the map page. POST /api/v1/refresh drops the cache and rebuilds.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveAnimation, "animation", "", "Animation speed: none, slow, medium or fast")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if serveListen != "" {
		cfg.Server.ListenAddr = serveListen
	}
	if serveAnimation != "" {
		cfg.Server.Animation = serveAnimation
	}

	speed, err := dashboard.ParseSpeed(cfg.GetAnimation())
	if err != nil {
		return err
	}

	src, err := openDataSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	buildCtx, cancel := context.WithTimeout(cmd.Context(), cfg.GetFetchTimeout())
	defer cancel()

	fmt.Println("Building dataset...")
	svc, err := dashboard.NewService(buildCtx, dataset.NewBuilder(src), src.invalidator)
	if err != nil {
		return err
	}
	ds := svc.Dataset()
	fmt.Printf("✓ %d locations, %d months\n", len(ds.Locations), len(ds.Months()))

	return dashboard.Serve(cmd.Context(), cfg.GetListenAddr(), svc, speed)
}
