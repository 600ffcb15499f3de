package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jgoulah/velocount/internal/cache"
	"github.com/jgoulah/velocount/internal/config"
	"github.com/jgoulah/velocount/internal/database"
	"github.com/jgoulah/velocount/internal/dataset"
	"github.com/jgoulah/velocount/internal/source"
)

var (
	cfgFile string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "velocount",
	Short: "Build monthly maps of Montreal bicycle counter data",
	Long: `Velocount downloads the City of Montreal bicycle counter datasets, normalizes
counter names, computes monthly mean counts per counter and serves them as map
rows for a dashboard. Raw data is cached in a local SQLite database.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path, preferring the --db flag
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.GetDBPath()
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// openDB opens the database connection
func openDB(cfg *config.Config) (*database.DB, error) {
	path := getDBPath(cfg)

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// dataSource is the configured source chain: HTTP behind the selected cache
type dataSource struct {
	source.DataSource
	invalidator source.Invalidator
	db          *database.DB // set for the sqlite cache
}

func (d *dataSource) Close() {
	if d.db != nil {
		d.db.Close()
	}
}

// openDataSource wires the HTTP source behind the cache named in the config
func openDataSource(cfg *config.Config) (*dataSource, error) {
	httpSrc := source.NewHTTP(cfg.GetLocationsSource(), cfg.GetCountsSources())

	switch cfg.GetCache() {
	case "sqlite":
		db, err := openDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		c := database.NewCache(db, httpSrc)
		return &dataSource{DataSource: c, invalidator: c, db: db}, nil
	case "memory":
		m := cache.NewMemory(httpSrc)
		return &dataSource{DataSource: m, invalidator: m}, nil
	case "none":
		return &dataSource{DataSource: httpSrc}, nil
	default:
		return nil, fmt.Errorf("unknown cache %q (use sqlite, memory or none)", cfg.GetCache())
	}
}

// buildDataset loads the sources and builds the dataset within the fetch timeout
func buildDataset(ctx context.Context, cfg *config.Config, src source.DataSource) (*dataset.Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.GetFetchTimeout())
	defer cancel()

	ds, err := dataset.NewBuilder(src).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building dataset: %w", err)
	}
	return ds, nil
}

// loadDataset is the common prologue of the read-only commands
func loadDataset(cmd *cobra.Command) (*dataset.Dataset, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	src, err := openDataSource(cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return buildDataset(cmd.Context(), cfg, src)
}
