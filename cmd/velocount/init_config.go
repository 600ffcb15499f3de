package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgoulah/velocount/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default sources",
	Long: `Writes the config file with every default filled in, ready to edit. The
default sources are the City of Montreal 2015-2018 counter datasets.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := getConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	// Environment overrides stay out of the written file
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg.Sources.Locations = cfg.GetLocationsSource()
	cfg.Sources.Counts = cfg.GetCountsSources()
	cfg.Cache = cfg.GetCache()
	cfg.DBPath = cfg.GetDBPath()
	cfg.FetchTimeout = cfg.GetFetchTimeout()
	cfg.Server.ListenAddr = cfg.GetListenAddr()
	cfg.Server.Animation = cfg.GetAnimation()
	cfg.MQTT.TopicPrefix = cfg.MQTT.GetTopicPrefix()
	cfg.InfluxDB.Measurement = cfg.InfluxDB.GetMeasurement()
	cfg.Kafka.Topic = cfg.Kafka.GetTopic()

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("✓ Wrote %s\n", path)
	return nil
}
